package job

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fyrsmithlabs/repopackd/internal/bridge"
	"github.com/fyrsmithlabs/repopackd/internal/gate"
)

var (
	// ErrEnd is returned by Next after the terminal message was delivered.
	ErrEnd = bridge.ErrEnd

	// ErrNotAwaiting is returned by Reply when the job is not waiting for
	// a selection or one was already accepted.
	ErrNotAwaiting = errors.New("job is not awaiting a file selection")

	// ErrNotFound is returned for unknown job IDs.
	ErrNotFound = errors.New("job not found")
)

// Job is one end-to-end processing request. Its outbound messages are
// consumed by a single reader through Next.
type Job struct {
	ID      string
	Request Request
	Created time.Time

	out  *bridge.Bridge[Message]
	done chan struct{}

	mu    sync.Mutex
	state State
	gate  *gate.Gate
}

func newJob(id string, req Request) *Job {
	return &Job{
		ID:      id,
		Request: req,
		Created: time.Now(),
		out:     bridge.New[Message](),
		done:    make(chan struct{}),
	}
}

// Next returns the next outbound message, blocking until one is available.
// After the terminal message it returns ErrEnd.
func (j *Job) Next(ctx context.Context) (Message, error) {
	return j.out.Next(ctx)
}

// State returns the current lifecycle state.
func (j *Job) State() State {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// Done is closed once the job reached a terminal state and its working
// directory was removed.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Reply delivers the caller's exclusion decision. It is only valid while
// the job is awaiting a selection, and only the first reply counts.
func (j *Job) Reply(r Reply) error {
	j.mu.Lock()
	g := j.gate
	st := j.state
	j.mu.Unlock()

	if st != StateAwaitingSelection || g == nil {
		return ErrNotAwaiting
	}
	if err := g.Submit(r.SelectedFiles); err != nil {
		if errors.Is(err, gate.ErrNotAwaiting) {
			return ErrNotAwaiting
		}
		return err
	}
	return nil
}

func (j *Job) setState(s State) {
	j.mu.Lock()
	j.state = s
	j.mu.Unlock()
}

// openGate publishes g and enters AwaitingSelection before the selection
// message goes out, so an immediate reply is accepted.
func (j *Job) openGate(g *gate.Gate) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := g.Open(); err != nil {
		return err
	}
	j.gate = g
	j.state = StateAwaitingSelection
	return nil
}
