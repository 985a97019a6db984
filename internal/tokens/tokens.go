// Package tokens estimates token counts for candidate files.
package tokens

import (
	"context"
	"fmt"
	"io"
	"os"
	"unicode/utf8"
)

// Estimator estimates the token count of a file. Implementations must
// bound the work done per file.
type Estimator interface {
	Estimate(ctx context.Context, path string) int
}

// None always reports zero.
type None struct{}

// Estimate implements Estimator.
func (None) Estimate(context.Context, string) int { return 0 }

// Heuristic estimates one token per four characters, reading at most
// MaxBytes from the file. Unreadable files count as zero.
type Heuristic struct {
	MaxBytes int64
}

// Estimate implements Estimator.
func (h Heuristic) Estimate(ctx context.Context, path string) int {
	if ctx.Err() != nil || h.MaxBytes <= 0 {
		return 0
	}
	f, err := os.Open(path)
	if err != nil {
		return 0
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.MaxBytes))
	if err != nil {
		return 0
	}
	chars := utf8.RuneCount(data)
	return (chars + 3) / 4
}

// New returns the estimator named by kind: "none" (or empty) or "heuristic".
func New(kind string, maxBytes int64) (Estimator, error) {
	switch kind {
	case "", "none":
		return None{}, nil
	case "heuristic":
		if maxBytes <= 0 {
			return nil, fmt.Errorf("heuristic estimator needs a positive byte bound, got %d", maxBytes)
		}
		return Heuristic{MaxBytes: maxBytes}, nil
	default:
		return nil, fmt.Errorf("unknown token estimator %q", kind)
	}
}
