// Package gate implements the interactive exclusion step of a job: the
// pipeline pauses with a list of large files and resumes with the caller's
// selection or, after a timeout, with the default policy.
package gate

import (
	"context"
	"errors"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/fyrsmithlabs/repopackd/internal/scan"
)

// DefaultTimeout bounds how long a job waits for a selection.
const DefaultTimeout = 100 * time.Second

// State is the gate lifecycle.
type State int

const (
	StateScanning State = iota
	StateAwaiting
	StateResolved
)

func (s State) String() string {
	switch s {
	case StateScanning:
		return "scanning"
	case StateAwaiting:
		return "awaiting_selection"
	default:
		return "resolved"
	}
}

// Source records how a gate was resolved.
type Source string

const (
	SourceCaller Source = "caller"
	// SourceDefault means the caller replied without a selection and the
	// default policy applied.
	SourceDefault Source = "default"
	// SourceTimeout means no selection arrived in time and the default
	// policy applied. It is not an error.
	SourceTimeout Source = "timeout"
)

// ErrNotAwaiting is returned by Submit when no selection is being waited for.
var ErrNotAwaiting = errors.New("gate: not awaiting a selection")

// Resolution is the outcome of the gate.
type Resolution struct {
	Excluded []string
	Source   Source
}

// Gate is traversed exactly once per job.
type Gate struct {
	candidates []scan.CandidateFile
	threshold  int64
	timeout    time.Duration

	mu         sync.Mutex
	state      State
	selected   []string
	useDefault bool
	replied    chan struct{}
}

// New creates a gate over candidates. On timeout every candidate strictly
// larger than threshold is excluded.
func New(candidates []scan.CandidateFile, threshold int64, timeout time.Duration) *Gate {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Gate{
		candidates: candidates,
		threshold:  threshold,
		timeout:    timeout,
		replied:    make(chan struct{}),
	}
}

// Candidates returns the files offered for exclusion.
func (g *Gate) Candidates() []scan.CandidateFile {
	return g.candidates
}

// DefaultSelection is the set excluded when the caller does not answer.
func (g *Gate) DefaultSelection() []string {
	return scan.OverThreshold(g.candidates, g.threshold)
}

// State returns the current state.
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Open moves the gate to awaiting. Submissions are accepted from then on.
func (g *Gate) Open() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != StateScanning {
		return errors.New("gate: already opened")
	}
	g.state = StateAwaiting
	return nil
}

// Submit delivers the caller's selection. A nil selection asks for the
// default policy; an empty non-nil selection excludes nothing. Only the
// first submission while awaiting is accepted.
func (g *Gate) Submit(selected []string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != StateAwaiting {
		return ErrNotAwaiting
	}
	if selected == nil {
		g.useDefault = true
	} else {
		g.selected = normalize(selected)
	}
	g.state = StateResolved
	close(g.replied)
	return nil
}

// Wait blocks until the caller submits, the timeout elapses, or ctx is
// done. Open must have been called.
func (g *Gate) Wait(ctx context.Context) (Resolution, error) {
	timer := time.NewTimer(g.timeout)
	defer timer.Stop()

	select {
	case <-g.replied:
	case <-timer.C:
	case <-ctx.Done():
		g.mu.Lock()
		if g.state == StateAwaiting {
			g.state = StateResolved
			g.mu.Unlock()
			return Resolution{}, ctx.Err()
		}
		g.mu.Unlock()
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == StateResolved {
		if g.useDefault {
			return Resolution{Excluded: g.DefaultSelection(), Source: SourceDefault}, nil
		}
		return Resolution{Excluded: g.selected, Source: SourceCaller}, nil
	}
	g.state = StateResolved
	return Resolution{Excluded: g.DefaultSelection(), Source: SourceTimeout}, nil
}

// normalize cleans paths relative to the root, drops empties and duplicates,
// and preserves order.
func normalize(selected []string) []string {
	out := make([]string, 0, len(selected))
	seen := make(map[string]bool, len(selected))
	for _, p := range selected {
		p = strings.TrimSpace(strings.ReplaceAll(p, "\\", "/"))
		if p == "" {
			continue
		}
		p = strings.TrimPrefix(path.Clean("/"+p), "/")
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}
