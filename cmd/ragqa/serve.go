package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/ragqa/internal/domain"
	chiTransport "github.com/kailas-cloud/ragqa/internal/transport/chi"
	healthuc "github.com/kailas-cloud/ragqa/internal/usecase/health"
	"github.com/kailas-cloud/ragqa/internal/version"
)

var (
	servePort    int
	serveNoReset bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Long: `Serve POST /ingest, POST /ask, POST /reset, GET /health and GET /metrics.

The collection is recreated on startup unless collection.recreate_on_startup
is false or --no-reset is given.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Listen port (defaults to http.port)")
	serveCmd.Flags().BoolVar(&serveNoReset, "no-reset", false, "Keep the existing collection on startup")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if servePort > 0 {
		cfg.HTTP.Port = servePort
	}
	ctx := cmd.Context()

	logger.Info("Starting ragqa API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("vector_store", cfg.VectorStore.Driver),
		zap.String("collection", cfg.Collection.Name),
	)

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	if cfg.Collection.ShouldRecreate() && !serveNoReset {
		if err := a.ingest.Reset(ctx); err != nil {
			return fmt.Errorf("recreate collection on startup: %w", err)
		}
	} else if err := keepCollection(ctx, a.ingest, logger); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      chiTransport.NewRouter(chiTransport.NewServer(a.ingest, a.answer, a.health, logger), logger),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}
	grace := time.Duration(cfg.HTTP.ShutdownSec) * time.Second

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down", zap.Duration("grace", grace))
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), grace)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err //nolint:wrapcheck // already wrapped per goroutine
	}

	logger.Info("Server stopped gracefully")
	return nil
}

// keepCollection checks the collection kept across a restart. A collection
// built with other dimensions or metric stops startup; a missing one only
// warns, since /ask answers from an empty context until /reset and /ingest.
func keepCollection(ctx context.Context, c healthuc.Checker, logger *zap.Logger) error {
	err := c.HealthCheck(ctx)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrInvalidConfiguration):
		return fmt.Errorf("existing collection: %w", err)
	default:
		logger.Warn("Collection not ready; POST /reset then /ingest", zap.Error(err))
		return nil
	}
}
