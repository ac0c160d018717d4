package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohammad-safakhou/gramlens/config"
	"github.com/mohammad-safakhou/gramlens/internal/agent/core"
	"github.com/mohammad-safakhou/gramlens/internal/agent/telemetry"
	"github.com/mohammad-safakhou/gramlens/internal/cache"
	"github.com/mohammad-safakhou/gramlens/internal/corpus"
	"github.com/mohammad-safakhou/gramlens/internal/retrieval"
	"github.com/mohammad-safakhou/gramlens/internal/store"
	"github.com/mohammad-safakhou/gramlens/provider"
)

// Run wires the full service and blocks serving HTTP until the server stops.
func Run(cfg *config.Config, addr string) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	// Unified HTTP error handler with structured JSON and logging
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	ctx := context.Background()
	tele := telemetry.NewTelemetry(cfg.Telemetry)

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(tele.Registry(), promhttp.HandlerOpts{})))

	accessor, profiles, err := buildAccessor(ctx, cfg)
	if err != nil {
		return err
	}

	prov, err := provider.New(cfg.LLM)
	if err != nil {
		return err
	}
	searcher := retrieval.NewClient(cfg.Vector)
	coordinator := core.NewCoordinator(cfg, prov, accessor, searcher, tele)

	answerCache, err := cache.New(ctx, cfg.Storage.Redis)
	if err != nil {
		return err
	}
	if answerCache != nil {
		defer answerCache.Close()
	}

	api := e.Group("/api")
	if secret := strings.TrimSpace(cfg.Server.JWTSecret); secret != "" {
		api.Use(authMiddleware([]byte(secret)))
	}

	h := &AskHandler{
		Coordinator: coordinator,
		Cache:       answerCache,
		Telemetry:   tele,
		Profiles:    profiles,
	}
	h.Register(api)

	if addr == "" {
		addr = cfg.Server.Address
	}
	log.Printf("listening on %s", addr)
	return e.Start(addr)
}

// buildAccessor picks the corpus backend: Postgres when configured, the
// JSON export directory otherwise. Also returns the known profile list for
// the profiles endpoint.
func buildAccessor(ctx context.Context, cfg *config.Config) (corpus.Accessor, []string, error) {
	if cfg.Storage.Postgres.Validate() == nil {
		st, err := store.NewWithDSN(ctx, cfg.Storage.Postgres.DSN())
		if err != nil {
			return nil, nil, fmt.Errorf("postgres connect: %w", err)
		}
		profiles, err := st.Profiles(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("list profiles: %w", err)
		}
		return st, profiles, nil
	}

	loader := corpus.NewLoader(cfg.Corpus.DataDir)
	posts, err := loader.LoadAll(cfg.Corpus.Profiles)
	if err != nil {
		return nil, nil, fmt.Errorf("load corpus: %w", err)
	}
	memory := corpus.NewMemory(posts)
	return memory, memory.Profiles(), nil
}
