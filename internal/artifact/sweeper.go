package artifact

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/repopackd/internal/logging"
)

const (
	// DefaultRetention is how long artifacts are kept.
	DefaultRetention = 30 * 24 * time.Hour
	// DefaultSweepInterval is the period between sweeps.
	DefaultSweepInterval = 24 * time.Hour
)

// SweepResult summarizes one sweep.
type SweepResult struct {
	Scanned int
	Deleted int
	Failed  int
}

// Sweeper deletes artifacts older than its retention window.
type Sweeper struct {
	store     Store
	retention time.Duration
	interval  time.Duration
	logger    *logging.Logger
	now       func() time.Time
}

// NewSweeper creates a sweeper. Zero durations take the defaults.
func NewSweeper(store Store, retention, interval time.Duration, logger *logging.Logger) *Sweeper {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Sweeper{
		store:     store,
		retention: retention,
		interval:  interval,
		logger:    logger.Named("sweeper"),
		now:       time.Now,
	}
}

// SweepOnce deletes every expired artifact. A failed delete is logged and
// counted; only a failed listing returns an error.
func (s *Sweeper) SweepOnce(ctx context.Context) (SweepResult, error) {
	var res SweepResult
	objects, err := s.store.List(ctx)
	if err != nil {
		return res, err
	}

	cutoff := s.now().Add(-s.retention)
	for _, obj := range objects {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Scanned++
		if !obj.Created.Before(cutoff) {
			continue
		}
		if err := s.store.Delete(ctx, obj.Name); err != nil {
			res.Failed++
			s.logger.Warn(ctx, "failed to delete expired artifact",
				zap.String("name", obj.Name), zap.Error(err))
			continue
		}
		res.Deleted++
		s.logger.Debug(ctx, "deleted expired artifact",
			zap.String("name", obj.Name), zap.Time("created", obj.Created))
	}

	s.logger.Info(ctx, "artifact sweep finished",
		zap.Int("scanned", res.Scanned),
		zap.Int("deleted", res.Deleted),
		zap.Int("failed", res.Failed))
	return res, nil
}

// Run sweeps immediately and then once per interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if _, err := s.SweepOnce(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			s.logger.Warn(ctx, "artifact sweep failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
