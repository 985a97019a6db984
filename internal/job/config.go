package job

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/fyrsmithlabs/repopackd/internal/gate"
	"github.com/fyrsmithlabs/repopackd/internal/packer"
	"github.com/fyrsmithlabs/repopackd/internal/scan"
)

const bytesPerMB = 1024 * 1024

// maxMB is the largest size in MB whose byte count fits in an int64.
const maxMB = float64(math.MaxInt64 / bytesPerMB)

// Config holds orchestrator defaults. Requests may override the size
// limits and output style per job.
type Config struct {
	// TempRoot holds one uniquely named working directory per job.
	TempRoot         string
	SizeThresholdMB  float64
	MaxSourceSizeMB  float64
	SelectionTimeout time.Duration
	TopN             int
	OutputStyle      packer.Style
}

// DefaultConfig returns the stock defaults.
func DefaultConfig() Config {
	return Config{
		TempRoot:         filepath.Join(os.TempDir(), "repopackd"),
		SizeThresholdMB:  1,
		MaxSourceSizeMB:  100,
		SelectionTimeout: gate.DefaultTimeout,
		TopN:             scan.DefaultTopN,
		OutputStyle:      packer.StyleMarkdown,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.TempRoot == "" {
		return errors.New("job temp root is required")
	}
	if !validMB(c.SizeThresholdMB) || !validMB(c.MaxSourceSizeMB) {
		return fmt.Errorf("job size limits must be positive and at most %.0f MB", maxMB)
	}
	if c.SelectionTimeout <= 0 {
		return errors.New("selection timeout must be positive")
	}
	if c.TopN < 1 {
		return fmt.Errorf("top n must be at least 1, got %d", c.TopN)
	}
	if _, err := packer.ParseStyle(string(c.OutputStyle)); err != nil {
		return err
	}
	return nil
}

// settings are the effective per-job values.
type settings struct {
	threshold int64
	maxSource int64
	style     packer.Style
	excludes  []string
}

// ErrInvalidRequest is wrapped by errors for malformed handshakes.
var ErrInvalidRequest = errors.New("invalid request")

func (c Config) resolve(req Request) (settings, error) {
	s := settings{
		threshold: int64(c.SizeThresholdMB * bytesPerMB),
		maxSource: int64(c.MaxSourceSizeMB * bytesPerMB),
		style:     c.OutputStyle,
	}
	if req.SizeThresholdMB != nil {
		if !validMB(*req.SizeThresholdMB) {
			return s, fmt.Errorf("%w: sizeThresholdMb must be positive and at most %.0f", ErrInvalidRequest, maxMB)
		}
		s.threshold = int64(*req.SizeThresholdMB * bytesPerMB)
	}
	if req.MaxSourceSizeMB != nil {
		if !validMB(*req.MaxSourceSizeMB) {
			return s, fmt.Errorf("%w: maxSourceSizeMb must be positive and at most %.0f", ErrInvalidRequest, maxMB)
		}
		s.maxSource = int64(*req.MaxSourceSizeMB * bytesPerMB)
	}
	if req.OutputStyle != "" {
		style, err := packer.ParseStyle(req.OutputStyle)
		if err != nil {
			return s, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		s.style = style
	}

	s.excludes = append(s.excludes, req.ExcludeGlobs...)
	if req.RegexFilter != "" {
		s.excludes = append(s.excludes, req.RegexFilter)
	}
	return s, nil
}

func validMB(v float64) bool {
	return v > 0 && v <= maxMB && !math.IsNaN(v)
}
