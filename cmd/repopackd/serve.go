package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fyrsmithlabs/repopackd/internal/artifact"
	ctxhttp "github.com/fyrsmithlabs/repopackd/internal/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the streaming HTTP API",
	Long: `Start the HTTP server.

Endpoints:
  POST /api/v1/process-repo-streaming   start a job, stream its messages (SSE)
  POST /api/v1/jobs/{id}/selection      answer a job's exclusion request
  GET  /health                          liveness
  GET  /metrics                         Prometheus metrics

When an artifact backend is configured the retention sweeper runs in the
background.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger, true)
	if err != nil {
		return err
	}
	defer a.close(ctx)
	logger = a.logger

	srv, err := ctxhttp.NewServer(a.orch, logger, &ctxhttp.Config{
		Host:          cfg.Server.Host,
		Port:          cfg.Server.Port,
		RatePerMinute: cfg.Server.RatePerMinute,
		RateBurst:     cfg.Server.RateBurst,
	})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	if a.store != nil {
		sweeper := artifact.NewSweeper(a.store, cfg.Artifacts.Retention, cfg.Artifacts.SweepInterval, logger)
		g.Go(func() error { return sweeper.Run(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info(context.Background(), "shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn(shutdownCtx, "http shutdown failed", zap.Error(err))
		}
		if err := a.orch.Wait(shutdownCtx); err != nil {
			logger.Warn(shutdownCtx, "jobs still running at shutdown", zap.Int("running", a.orch.Running()))
		}
		return nil
	})

	return g.Wait()
}
