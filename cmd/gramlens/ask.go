package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/gramlens/config"
	"github.com/mohammad-safakhou/gramlens/internal/agent/core"
	"github.com/mohammad-safakhou/gramlens/internal/agent/telemetry"
	"github.com/mohammad-safakhou/gramlens/internal/corpus"
	"github.com/mohammad-safakhou/gramlens/internal/retrieval"
	"github.com/mohammad-safakhou/gramlens/internal/store"
	"github.com/mohammad-safakhou/gramlens/provider"
)

func askCMD() *cobra.Command {
	var cfgPath string
	var profile string
	var ask = &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer one question from the terminal",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)
			ctx := context.Background()

			accessor, err := openAccessor(ctx, cfg)
			if err != nil {
				return err
			}

			prov, err := provider.New(cfg.LLM)
			if err != nil {
				return err
			}
			tele := telemetry.NewTelemetry(cfg.Telemetry)
			searcher := retrieval.NewClient(cfg.Vector)
			coordinator := core.NewCoordinator(cfg, prov, accessor, searcher, tele)

			question := ""
			for i, arg := range args {
				if i > 0 {
					question += " "
				}
				question += arg
			}

			// Stream the answer to stdout as it is generated.
			answer := coordinator.Answer(ctx, question, profile, func(delta string) error {
				fmt.Print(delta)
				return nil
			})
			fmt.Println()
			fmt.Fprintf(os.Stderr, "\n(%d supporting results)\n", len(answer.Results))
			return nil
		},
	}
	ask.Flags().StringVar(&profile, "profile", "", "restrict to one profile")
	ask.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")

	return ask
}

// openAccessor mirrors the server's backend choice for CLI commands.
func openAccessor(ctx context.Context, cfg *config.Config) (corpus.Accessor, error) {
	if cfg.Storage.Postgres.Validate() == nil {
		st, err := store.NewWithDSN(ctx, cfg.Storage.Postgres.DSN())
		if err != nil {
			return nil, fmt.Errorf("postgres connect: %w", err)
		}
		return st, nil
	}
	loader := corpus.NewLoader(cfg.Corpus.DataDir)
	posts, err := loader.LoadAll(cfg.Corpus.Profiles)
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}
	return corpus.NewMemory(posts), nil
}
