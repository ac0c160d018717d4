package main

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/gramlens/config"
	"github.com/mohammad-safakhou/gramlens/internal/corpus"
	"github.com/mohammad-safakhou/gramlens/internal/retrieval"
	"github.com/mohammad-safakhou/gramlens/internal/store"
)

func indexCMD() *cobra.Command {
	var cfgPath string
	var skipVector bool
	var index = &cobra.Command{
		Use:   "index",
		Short: "Load profile exports into Postgres and the vector index",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)
			ctx := context.Background()

			loader := corpus.NewLoader(cfg.Corpus.DataDir)
			posts, err := loader.LoadAll(cfg.Corpus.Profiles)
			if err != nil {
				return err
			}

			if err := cfg.Storage.Postgres.Validate(); err != nil {
				return fmt.Errorf("index requires postgres: %w", err)
			}
			st, err := store.NewWithDSN(ctx, cfg.Storage.Postgres.DSN())
			if err != nil {
				return fmt.Errorf("postgres connect: %w", err)
			}
			defer st.Close()

			if err := st.UpsertPosts(ctx, posts); err != nil {
				return fmt.Errorf("upsert posts: %w", err)
			}
			log.Printf("stored %d posts", len(posts))

			if skipVector || cfg.Vector.BaseURL == "" {
				return nil
			}
			docs := make([]retrieval.Document, 0, len(posts))
			for _, p := range posts {
				docs = append(docs, retrieval.DocumentFromPost(p))
			}
			client := retrieval.NewClient(cfg.Vector)
			if err := client.Index(ctx, docs); err != nil {
				return fmt.Errorf("vector index: %w", err)
			}
			return nil
		},
	}
	index.Flags().BoolVar(&skipVector, "skip-vector", false, "skip pushing documents to the vector service")
	index.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")

	return index
}
