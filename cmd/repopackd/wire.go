package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/repopackd/internal/artifact"
	"github.com/fyrsmithlabs/repopackd/internal/config"
	"github.com/fyrsmithlabs/repopackd/internal/events"
	"github.com/fyrsmithlabs/repopackd/internal/fetch"
	"github.com/fyrsmithlabs/repopackd/internal/job"
	"github.com/fyrsmithlabs/repopackd/internal/logging"
	"github.com/fyrsmithlabs/repopackd/internal/pack"
	"github.com/fyrsmithlabs/repopackd/internal/packer"
	"github.com/fyrsmithlabs/repopackd/internal/progress"
	"github.com/fyrsmithlabs/repopackd/internal/secrets"
	"github.com/fyrsmithlabs/repopackd/internal/telemetry"
	"github.com/fyrsmithlabs/repopackd/internal/tokens"
)

// app holds the initialized services.
type app struct {
	cfg    *config.Config
	logger *logging.Logger
	tel    *telemetry.Telemetry
	nc     *nats.Conn
	store  artifact.Store
	orch   *job.Orchestrator
}

// newApp wires configuration into running services. withStore controls
// whether artifacts are persisted; local packing leaves it off.
func newApp(ctx context.Context, cfg *config.Config, logger *logging.Logger, withStore bool) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	tel, err := telemetry.New(ctx, telemetry.FromConfig(cfg.Telemetry, version), logger)
	if err != nil {
		return nil, err
	}
	a.tel = tel
	if logger, err = logger.WithOTEL(tel.LoggerProvider()); err != nil {
		return nil, err
	}
	a.logger = logger

	meta, err := fetch.NewGitHubMetadata(ctx, cfg.Fetch.GitHubToken, cfg.Fetch.APIBaseURL)
	if err != nil {
		return nil, err
	}
	fetcher := fetch.New(fetch.Options{
		AllowedHosts: cfg.Fetch.AllowedHosts,
		GitBinary:    cfg.Fetch.GitBinary,
		CloneDepth:   cfg.Fetch.CloneDepth,
		CloneTimeout: cfg.Job.CloneTimeout,
	}, meta, logger)

	packerAdapter, err := newPacker(cfg, logger)
	if err != nil {
		return nil, err
	}

	estimator, err := tokens.New(cfg.Tokens.Estimator, cfg.Tokens.MaxBytes)
	if err != nil {
		return nil, err
	}

	deps := job.Deps{
		Fetcher: fetcher,
		Packer:  packerAdapter,
		Tokens:  estimator,
		Logger:  logger,
	}

	if needsNATS(cfg, withStore) {
		a.nc, err = nats.Connect(cfg.NATS.URL, nats.Name("repopackd"))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to nats: %w", err)
		}
		if cfg.NATS.PublishEvents {
			deps.Events = events.NewNATSPublisher(a.nc, logger)
		}
	}

	if withStore {
		a.store, err = newStore(ctx, cfg.Artifacts, a.nc)
		if err != nil {
			a.close(ctx)
			return nil, err
		}
		if a.store != nil {
			deps.Store = a.store
		}
	}

	a.orch, err = job.NewOrchestrator(job.Config{
		TempRoot:         cfg.Job.TempRoot,
		SizeThresholdMB:  cfg.Job.SizeThresholdMB,
		MaxSourceSizeMB:  cfg.Job.MaxSourceSizeMB,
		SelectionTimeout: cfg.Job.SelectionTimeout,
		TopN:             cfg.Job.TopN,
		OutputStyle:      packer.Style(cfg.Pack.OutputStyle),
	}, deps)
	if err != nil {
		a.close(ctx)
		return nil, err
	}
	return a, nil
}

func needsNATS(cfg *config.Config, withStore bool) bool {
	return cfg.NATS.PublishEvents || (withStore && cfg.Artifacts.Backend == "nats")
}

func newPacker(cfg *config.Config, logger *logging.Logger) (*pack.Adapter, error) {
	var detector *secrets.Detector
	if cfg.Pack.SecurityCheck {
		userAllowlist := ""
		if home, err := os.UserHomeDir(); err == nil {
			userAllowlist = filepath.Join(home, ".config", "repopackd", "gitleaks.toml")
		}
		allow, err := secrets.LoadAllowlists(userAllowlist)
		if err != nil {
			return nil, err
		}
		detector, err = secrets.NewDetector(allow)
		if err != nil {
			return nil, err
		}
	}

	base := packer.DefaultConfig()
	base.SecurityCheck = cfg.Pack.SecurityCheck
	base.Ignore.UseGitignore = cfg.Pack.UseGitignore
	base.Ignore.UseDefaultPatterns = cfg.Pack.UseDefaultPatterns
	base.ShowLineNumbers = cfg.Pack.ShowLineNumbers
	base.RemoveEmptyLines = cfg.Pack.RemoveEmptyLines
	base.TopFilesLength = cfg.Pack.TopFiles

	return pack.NewAdapter(packer.New(detector, logger), base, progress.DefaultSteepness, logger), nil
}

// newStore returns nil for the "none" backend.
func newStore(ctx context.Context, cfg config.ArtifactsConfig, nc *nats.Conn) (artifact.Store, error) {
	switch cfg.Backend {
	case "none", "":
		return nil, nil
	case "file":
		return artifact.NewFileStore(cfg.Dir)
	case "nats":
		if nc == nil {
			return nil, errors.New("nats backend needs a nats connection")
		}
		return artifact.NewNATSStore(ctx, nc, cfg.Bucket)
	default:
		return nil, fmt.Errorf("unknown artifact backend %q", cfg.Backend)
	}
}

// close releases connections. Shutdown errors are logged only.
func (a *app) close(ctx context.Context) {
	if a.nc != nil {
		if err := a.nc.Drain(); err != nil {
			a.logger.Warn(ctx, "nats drain failed", zap.Error(err))
		}
	}
	if a.tel != nil {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := a.tel.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn(ctx, "telemetry shutdown failed", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}
