// Package pack drives the packing engine for a job and reports its
// progress on a saturating curve.
package pack

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/repopackd/internal/logging"
	"github.com/fyrsmithlabs/repopackd/internal/packer"
	"github.com/fyrsmithlabs/repopackd/internal/progress"
)

// Engine is the packing engine.
type Engine interface {
	Pack(ctx context.Context, root string, cfg packer.Config, onProgress packer.ProgressFunc) (*packer.Result, error)
}

// Error wraps a packing engine failure.
type Error struct {
	Err error
}

func (e *Error) Error() string {
	return "pack failed: " + e.Err.Error()
}

// Unwrap returns the engine's error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Request describes one pack invocation.
type Request struct {
	Root       string
	OutputPath string
	Style      packer.Style
	Include    []string
	Exclude    []string
	Header     packer.Header
}

// Artifact is a complete packed document.
type Artifact struct {
	Text   string
	Size   int64
	Style  packer.Style
	Result *packer.Result
}

// Adapter invokes the engine with job-level settings.
type Adapter struct {
	engine    Engine
	base      packer.Config
	steepness float64
	logger    *logging.Logger
}

// NewAdapter creates an adapter. base supplies the engine options that are
// not set per request; steepness <= 0 selects progress.DefaultSteepness.
func NewAdapter(engine Engine, base packer.Config, steepness float64, logger *logging.Logger) *Adapter {
	if logger == nil {
		logger = logging.NewNop()
	}
	if steepness <= 0 {
		steepness = progress.DefaultSteepness
	}
	return &Adapter{engine: engine, base: base, steepness: steepness, logger: logger.Named("pack")}
}

// Pack runs the engine. Each engine callback is relayed through emit with a
// percentage inside progress.PackSpan that rises with the callback count
// and stays below the span's ceiling. On failure any partial output is
// removed and an *Error is returned.
func (a *Adapter) Pack(ctx context.Context, req Request, emit func(progress.Event)) (*Artifact, error) {
	cfg := a.base
	cfg.Style = req.Style
	cfg.OutputPath = req.OutputPath
	cfg.Include = append([]string(nil), req.Include...)
	cfg.Ignore.CustomPatterns = append(append([]string(nil), a.base.Ignore.CustomPatterns...), req.Exclude...)
	cfg.Header = req.Header

	count := 0
	res, err := a.engine.Pack(ctx, req.Root, cfg, func(msg string) {
		count++
		emit(progress.Event{Text: msg, Percent: progress.PackSpan.Logistic(count, a.steepness)})
	})
	if err != nil {
		a.discard(ctx, req.OutputPath)
		return nil, &Error{Err: err}
	}

	data, err := os.ReadFile(req.OutputPath)
	if err != nil {
		a.discard(ctx, req.OutputPath)
		return nil, &Error{Err: fmt.Errorf("failed to read packed output: %w", err)}
	}

	a.logger.Debug(ctx, "pack finished",
		zap.Int("callbacks", count),
		zap.Int("files", res.TotalFiles),
		zap.Int("suspicious", len(res.SuspiciousFiles)))
	for _, f := range res.SuspiciousFiles {
		a.logger.Warn(ctx, "file withheld by security check",
			zap.String("path", f.Path),
			zap.Strings("rules", f.Rules))
	}

	return &Artifact{
		Text:   string(data),
		Size:   int64(len(data)),
		Style:  cfg.Style,
		Result: res,
	}, nil
}

func (a *Adapter) discard(ctx context.Context, path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		a.logger.Warn(ctx, "failed to remove partial output", zap.String("path", path), zap.Error(err))
	}
}
