package job

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/repopackd/internal/fetch"
	"github.com/fyrsmithlabs/repopackd/internal/gate"
	"github.com/fyrsmithlabs/repopackd/internal/logging"
	"github.com/fyrsmithlabs/repopackd/internal/pack"
	"github.com/fyrsmithlabs/repopackd/internal/packer"
	"github.com/fyrsmithlabs/repopackd/internal/progress"
	"github.com/fyrsmithlabs/repopackd/internal/scan"
)

// OutputBaseName is the engine output file name without extension.
const OutputBaseName = "repopack-output"

// outcome is what a successful run hands to the terminal message.
type outcome struct {
	artifact *pack.Artifact
	key      string
}

// run drives j to a terminal state. The working directory is removed
// before the terminal message is emitted, on every path.
func (o *Orchestrator) run(ctx context.Context, j *Job, st settings) {
	ctx = logging.WithJobID(ctx, j.ID)
	ctx, span := o.tracer.Start(ctx, "job.run")
	defer span.End()
	span.SetAttributes(
		attribute.String("job.id", j.ID),
		attribute.String("job.source", j.Request.SourceURL),
		attribute.String("job.style", string(st.style)),
	)

	o.metrics.JobsInFlight.Inc()
	defer o.metrics.JobsInFlight.Dec()

	var tracker progress.Tracker
	emit := func(m Message) {
		m.Progress = tracker.Advance(m.Progress)
		o.logger.Trace(ctx, "job message",
			zap.String("text", m.HumanFriendlyProgress),
			zap.Float64("progress", m.Progress))
		j.out.Emit(m)
		o.publish(ctx, j.ID, m)
	}

	o.logger.Info(ctx, "job started", zap.String("source", j.Request.SourceURL))
	jobDir := filepath.Join(o.cfg.TempRoot, j.ID)
	res, err := o.safeExecute(ctx, j, st, jobDir, emit)

	o.teardown(ctx, jobDir)

	final := Message{Complete: true}
	state := StateCompleted
	if err != nil {
		state = StateFailed
		final.HumanFriendlyProgress = "Error occurred"
		final.Progress = tracker.Last()
		final.Error = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		final.HumanFriendlyProgress = "Processing complete"
		final.Progress = progress.Complete
		final.Output = res.artifact.Text
		final.OutputSize = res.artifact.Size
		final.ArtifactKey = res.key
		final.Summary = newSummary(res.artifact.Result)
		o.metrics.ArtifactBytes.Observe(float64(res.artifact.Size))
	}

	j.setState(state)
	o.forget(j.ID)
	j.out.Emit(final)
	o.publish(ctx, j.ID, final)
	j.out.Close()
	close(j.done)

	o.metrics.JobsFinished.WithLabelValues(state.String()).Inc()
	o.metrics.JobDuration.WithLabelValues(state.String()).Observe(time.Since(j.Created).Seconds())
	o.logFinish(ctx, j, state, err)
}

// safeExecute converts a panic in any stage into an error.
func (o *Orchestrator) safeExecute(ctx context.Context, j *Job, st settings, jobDir string, emit func(Message)) (res outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error(ctx, "job panicked",
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
			err = fmt.Errorf("internal error: %v", r)
		}
	}()
	return o.execute(ctx, j, st, jobDir, emit)
}

func (o *Orchestrator) execute(ctx context.Context, j *Job, st settings, jobDir string, emit func(Message)) (outcome, error) {
	// The URL is checked before any I/O.
	src, err := o.fetcher.Parse(j.Request.SourceURL)
	if err != nil {
		return outcome{}, err
	}

	srcDir := filepath.Join(jobDir, "src")
	outDir := filepath.Join(jobDir, "out")
	if err := os.MkdirAll(outDir, 0o700); err != nil {
		return outcome{}, fmt.Errorf("failed to create working directory: %w", err)
	}

	// Fetching
	j.setState(StateFetching)
	emit(Message{HumanFriendlyProgress: "Fetching " + src.String(), Progress: progress.FetchSpan.Lo})
	err = o.stage(ctx, "fetch", func(ctx context.Context) error {
		return relay(ctx, emit, func(ev func(progress.Event)) error {
			return o.fetcher.Fetch(ctx, src, srcDir, st.maxSource, ev)
		})
	})
	if err != nil {
		return outcome{}, err
	}

	// Scanning
	j.setState(StateScanning)
	emit(Message{HumanFriendlyProgress: "Scanning repository", Progress: progress.ScanSpan.Lo})
	var scanned *scan.Result
	err = o.stage(ctx, "scan", func(ctx context.Context) error {
		var err error
		scanned, err = scan.Scan(ctx, srcDir, scan.Options{
			Exclude:       st.excludes,
			SizeThreshold: st.threshold,
			TopN:          o.cfg.TopN,
			Tokens:        o.tokens,
		})
		if err != nil {
			return err
		}
		if scanned.TotalSize > st.maxSource {
			return fetch.SizeExceeded(scanned.TotalSize, st.maxSource)
		}
		return nil
	})
	if err != nil {
		return outcome{}, err
	}
	emit(Message{
		HumanFriendlyProgress: fmt.Sprintf("Found %d files (%s)", len(scanned.Files), fetch.FormatMB(scanned.TotalSize)),
		Progress:              progress.ScanSpan.Hi,
	})

	// AwaitingSelection
	g := gate.New(scanned.Candidates, st.threshold, o.cfg.SelectionTimeout)
	if err := j.openGate(g); err != nil {
		return outcome{}, err
	}
	emit(Message{
		HumanFriendlyProgress:   fmt.Sprintf("Select files to exclude (%d candidates)", len(scanned.Candidates)),
		Progress:                progress.SelectSpan.Lo,
		LargeFiles:              scanned.Candidates,
		WaitingForFileSelection: true,
	})
	var resolution gate.Resolution
	err = o.stage(ctx, "selection", func(ctx context.Context) error {
		var err error
		resolution, err = g.Wait(ctx)
		return err
	})
	if err != nil {
		return outcome{}, fmt.Errorf("selection aborted: %w", err)
	}
	o.metrics.Selections.WithLabelValues(string(resolution.Source)).Inc()
	o.logger.Debug(ctx, "selection resolved",
		zap.String("source", string(resolution.Source)),
		zap.Strings("excluded", resolution.Excluded))
	emit(Message{
		HumanFriendlyProgress: selectionText(resolution),
		Progress:              progress.SelectSpan.Hi,
	})

	// Packing
	j.setState(StatePacking)
	emit(Message{HumanFriendlyProgress: "Packing repository", Progress: progress.PackSpan.Lo})
	req := pack.Request{
		Root:       srcDir,
		OutputPath: filepath.Join(outDir, OutputBaseName+"."+st.style.Ext()),
		Style:      st.style,
		Exclude:    append(append([]string(nil), st.excludes...), literalPatterns(resolution.Excluded)...),
		Header:     o.header(ctx, src, srcDir),
	}
	var art *pack.Artifact
	err = o.stage(ctx, "pack", func(ctx context.Context) error {
		return relay(ctx, emit, func(ev func(progress.Event)) error {
			var err error
			art, err = o.packer.Pack(ctx, req, ev)
			return err
		})
	})
	if err != nil {
		return outcome{}, err
	}

	res := outcome{artifact: art}
	if o.store != nil {
		key, err := o.store.Save(ctx, j.ID, art.Style.Ext(), []byte(art.Text))
		if err != nil {
			o.logger.Warn(ctx, "failed to persist artifact", zap.Error(err))
		} else {
			res.key = key
		}
	}
	return res, nil
}

// stage wraps fn in a span and records its duration.
func (o *Orchestrator) stage(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	ctx, span := o.tracer.Start(ctx, "job."+name)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	o.metrics.StageDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (o *Orchestrator) header(ctx context.Context, src fetch.Source, dir string) packer.Header {
	h := packer.Header{Source: src.String()}
	head, err := fetch.InspectHead(dir)
	if err != nil {
		o.logger.Debug(ctx, "HEAD not readable", zap.Error(err))
		return h
	}
	h.Commit = head.Commit
	h.Branch = head.Branch
	return h
}

// teardown removes the working directory. Failures are logged only.
func (o *Orchestrator) teardown(ctx context.Context, dir string) {
	if err := os.RemoveAll(dir); err != nil {
		o.logger.Warn(ctx, "failed to remove working directory", zap.String("dir", dir), zap.Error(err))
	}
}

func selectionText(r gate.Resolution) string {
	switch r.Source {
	case gate.SourceTimeout:
		return fmt.Sprintf("No selection received, excluding %d files over the size threshold", len(r.Excluded))
	case gate.SourceDefault:
		return fmt.Sprintf("Excluding %d files over the size threshold", len(r.Excluded))
	default:
		return fmt.Sprintf("Excluding %d selected files", len(r.Excluded))
	}
}

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`)

// literalPatterns turns root-relative file paths into anchored patterns
// matching exactly those paths.
func literalPatterns(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		out = append(out, "/"+globEscaper.Replace(p))
	}
	return out
}
