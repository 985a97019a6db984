// Package fetch retrieves source repositories: it validates the source URL,
// checks the declared size, and runs a bounded git clone while reporting
// progress.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/repopackd/internal/logging"
	"github.com/fyrsmithlabs/repopackd/internal/progress"
)

// Options configures a Fetcher.
type Options struct {
	AllowedHosts []string
	GitBinary    string
	CloneDepth   int
	CloneTimeout time.Duration
}

// Fetcher runs the fetch stage of a job.
type Fetcher struct {
	opts   Options
	meta   MetadataClient
	cloner *Cloner
	logger *logging.Logger
}

// New creates a Fetcher.
func New(opts Options, meta MetadataClient, logger *logging.Logger) *Fetcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Fetcher{
		opts: opts,
		meta: meta,
		cloner: &Cloner{
			GitBinary: opts.GitBinary,
			Depth:     opts.CloneDepth,
			Timeout:   opts.CloneTimeout,
		},
		logger: logger.Named("fetch"),
	}
}

// Parse validates rawURL against the accepted shape and allowed hosts.
func (f *Fetcher) Parse(rawURL string) (Source, error) {
	return ParseSourceURL(rawURL, f.opts.AllowedHosts)
}

// Fetch rejects repositories whose declared size exceeds maxBytes and
// clones src into dest. Progress is reported through emit with percentages
// inside progress.FetchSpan. Every returned error is an *Error.
func (f *Fetcher) Fetch(ctx context.Context, src Source, dest string, maxBytes int64, emit func(progress.Event)) error {
	emit(progress.Event{Text: "Checking repository size", Percent: progress.FetchSpan.Lo})
	size, err := f.meta.RepoSize(ctx, src)
	if err != nil {
		var fe *Error
		if errors.As(err, &fe) {
			return err
		}
		return newError(KindMetadataUnavailable, err, "failed to query %s", src)
	}
	f.logger.Debug(ctx, "repository size reported",
		zap.String("source", src.String()),
		zap.Int64("size_bytes", size),
		zap.Int64("limit_bytes", maxBytes))
	if maxBytes > 0 && size > maxBytes {
		return SizeExceeded(size, maxBytes)
	}

	emit(progress.Event{
		Text:    fmt.Sprintf("Cloning %s (%s)", src, FormatMB(size)),
		Percent: progress.FetchSpan.Lo,
	})

	last := -1
	start := time.Now()
	err = f.cloner.Clone(ctx, src, dest, func(pct int) {
		if pct == last {
			return
		}
		last = pct
		emit(progress.Event{
			Text:    fmt.Sprintf("Receiving objects: %d%%", pct),
			Percent: progress.FetchSpan.Percent(float64(pct)),
		})
	})
	if err != nil {
		f.logger.Warn(ctx, "clone failed", zap.String("source", src.String()), zap.Error(err))
		return err
	}

	f.logger.Info(ctx, "repository cloned",
		zap.String("source", src.String()),
		zap.Duration("duration", time.Since(start)))
	emit(progress.Event{Text: "Repository cloned", Percent: progress.FetchSpan.Hi})
	return nil
}
