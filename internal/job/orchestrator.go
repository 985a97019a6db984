// Package job runs repository packing jobs: fetch, scan, interactive
// exclusion and pack, reported as one ordered message sequence per job.
package job

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/repopackd/internal/bridge"
	"github.com/fyrsmithlabs/repopackd/internal/fetch"
	"github.com/fyrsmithlabs/repopackd/internal/logging"
	"github.com/fyrsmithlabs/repopackd/internal/pack"
	"github.com/fyrsmithlabs/repopackd/internal/progress"
	"github.com/fyrsmithlabs/repopackd/internal/tokens"
)

const instrumentationName = "github.com/fyrsmithlabs/repopackd/internal/job"

// Fetcher validates source URLs and clones repositories.
type Fetcher interface {
	Parse(rawURL string) (fetch.Source, error)
	Fetch(ctx context.Context, src fetch.Source, dest string, maxBytes int64, emit func(progress.Event)) error
}

// Packer turns a fetched tree into an artifact.
type Packer interface {
	Pack(ctx context.Context, req pack.Request, emit func(progress.Event)) (*pack.Artifact, error)
}

// ArtifactStore persists completed artifacts and returns their key.
type ArtifactStore interface {
	Save(ctx context.Context, jobID, ext string, data []byte) (string, error)
}

// EventSink mirrors outbound messages elsewhere. Messages are passed
// without the artifact body.
type EventSink interface {
	Publish(ctx context.Context, jobID string, msg Message)
}

// Deps are the orchestrator's collaborators. Fetcher and Packer are
// required.
type Deps struct {
	Fetcher Fetcher
	Packer  Packer
	Tokens  tokens.Estimator
	Store   ArtifactStore
	Events  EventSink
	Logger  *logging.Logger
	Metrics *Metrics
}

// Orchestrator starts jobs and tracks the ones still running.
type Orchestrator struct {
	cfg     Config
	fetcher Fetcher
	packer  Packer
	tokens  tokens.Estimator
	store   ArtifactStore
	events  EventSink
	logger  *logging.Logger
	metrics *Metrics
	tracer  trace.Tracer

	mu   sync.Mutex
	jobs map[string]*Job
	wg   sync.WaitGroup
}

// NewOrchestrator creates an orchestrator with explicit configuration.
func NewOrchestrator(cfg Config, deps Deps) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid job config: %w", err)
	}
	if deps.Fetcher == nil {
		return nil, errors.New("fetcher is required")
	}
	if deps.Packer == nil {
		return nil, errors.New("packer is required")
	}
	if deps.Tokens == nil {
		deps.Tokens = tokens.None{}
	}
	if deps.Logger == nil {
		deps.Logger = logging.NewNop()
	}
	if deps.Metrics == nil {
		deps.Metrics = NewMetrics()
	}

	return &Orchestrator{
		cfg:     cfg,
		fetcher: deps.Fetcher,
		packer:  deps.Packer,
		tokens:  deps.Tokens,
		store:   deps.Store,
		events:  deps.Events,
		logger:  deps.Logger.Named("job"),
		metrics: deps.Metrics,
		tracer:  otel.Tracer(instrumentationName),
		jobs:    make(map[string]*Job),
	}, nil
}

// Start validates req and launches a job. The job runs detached from
// ctx's cancellation; values such as the request ID are kept. Errors wrap
// ErrInvalidRequest.
func (o *Orchestrator) Start(ctx context.Context, req Request) (*Job, error) {
	st, err := o.cfg.resolve(req)
	if err != nil {
		return nil, err
	}

	j := newJob(uuid.NewString(), req)
	o.mu.Lock()
	o.jobs[j.ID] = j
	o.mu.Unlock()

	o.metrics.JobsStarted.Inc()
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.run(context.WithoutCancel(ctx), j, st)
	}()
	return j, nil
}

// Get returns a running job.
func (o *Orchestrator) Get(id string) (*Job, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	j, ok := o.jobs[id]
	return j, ok
}

// Reply routes a selection to a running job.
func (o *Orchestrator) Reply(id string, r Reply) error {
	j, ok := o.Get(id)
	if !ok {
		return ErrNotFound
	}
	return j.Reply(r)
}

// Running returns the number of jobs not yet finished.
func (o *Orchestrator) Running() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.jobs)
}

// Wait blocks until every started job finished or ctx is done.
func (o *Orchestrator) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Orchestrator) forget(id string) {
	o.mu.Lock()
	delete(o.jobs, id)
	o.mu.Unlock()
}

func (o *Orchestrator) publish(ctx context.Context, jobID string, msg Message) {
	if o.events == nil {
		return
	}
	msg.Output = ""
	o.events.Publish(ctx, jobID, msg)
}

// relay runs produce on its own goroutine and forwards every event it
// emits as a progress message, in order, until produce returns.
func relay(ctx context.Context, emit func(Message), produce func(emit func(progress.Event)) error) error {
	events := bridge.New[progress.Event]()
	errc := make(chan error, 1)
	go func() {
		defer events.Close()
		defer func() {
			if r := recover(); r != nil {
				errc <- fmt.Errorf("internal error: %v", r)
			}
		}()
		errc <- produce(events.Emit)
	}()

	for {
		ev, err := events.Next(ctx)
		if errors.Is(err, ErrEnd) {
			break
		}
		if err != nil {
			return err
		}
		emit(Message{HumanFriendlyProgress: ev.Text, Progress: ev.Percent})
	}
	return <-errc
}

func (o *Orchestrator) logFinish(ctx context.Context, j *Job, state State, err error) {
	fields := []zap.Field{
		zap.String("source", j.Request.SourceURL),
		zap.String("state", state.String()),
		zap.Duration("duration", time.Since(j.Created)),
	}
	if err != nil {
		o.logger.Warn(ctx, "job failed", append(fields, zap.Error(err))...)
		return
	}
	o.logger.Info(ctx, "job completed", fields...)
}
