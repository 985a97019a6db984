package pack

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/repopackd/internal/logging"
	"github.com/fyrsmithlabs/repopackd/internal/packer"
	"github.com/fyrsmithlabs/repopackd/internal/progress"
)

// fakeEngine writes a fixed document after a number of callbacks.
type fakeEngine struct {
	callbacks int
	output    string
	err       error
	result    *packer.Result
	got       packer.Config
}

func (f *fakeEngine) Pack(ctx context.Context, root string, cfg packer.Config, onProgress packer.ProgressFunc) (*packer.Result, error) {
	f.got = cfg
	for i := 0; i < f.callbacks; i++ {
		onProgress("step")
	}
	if f.output != "" {
		if err := os.WriteFile(cfg.OutputPath, []byte(f.output), 0o600); err != nil {
			return nil, err
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &packer.Result{OutputPath: cfg.OutputPath, TotalFiles: 1}, nil
}

func request(t *testing.T) Request {
	return Request{
		Root:       t.TempDir(),
		OutputPath: filepath.Join(t.TempDir(), "repopack-output.md"),
		Style:      packer.StyleMarkdown,
		Exclude:    []string{"big.bin"},
	}
}

func TestAdapter_ProgressMonotonicBelowCeiling(t *testing.T) {
	eng := &fakeEngine{callbacks: 500, output: "packed"}
	a := NewAdapter(eng, packer.DefaultConfig(), 0, nil)

	var events []progress.Event
	art, err := a.Pack(context.Background(), request(t), func(ev progress.Event) { events = append(events, ev) })
	require.NoError(t, err)
	assert.Equal(t, "packed", art.Text)
	assert.Equal(t, int64(6), art.Size)

	require.Len(t, events, 500)
	prev := progress.PackSpan.Lo
	for _, ev := range events {
		assert.Greater(t, ev.Percent, progress.PackSpan.Lo)
		assert.Less(t, ev.Percent, progress.PackSpan.Hi)
		assert.GreaterOrEqual(t, ev.Percent, prev)
		prev = ev.Percent
	}
}

func TestAdapter_MergesExcludes(t *testing.T) {
	eng := &fakeEngine{output: "x"}
	base := packer.DefaultConfig()
	base.Ignore.CustomPatterns = []string{"*.log"}
	a := NewAdapter(eng, base, 0, nil)

	req := request(t)
	req.Include = []string{"src/"}
	_, err := a.Pack(context.Background(), req, func(progress.Event) {})
	require.NoError(t, err)

	assert.Equal(t, []string{"*.log", "big.bin"}, eng.got.Ignore.CustomPatterns)
	assert.Equal(t, []string{"src/"}, eng.got.Include)
	assert.Equal(t, req.OutputPath, eng.got.OutputPath)
	assert.True(t, eng.got.SecurityCheck)
	// The base config is not mutated.
	assert.Equal(t, []string{"*.log"}, base.Ignore.CustomPatterns)
}

func TestAdapter_EngineFailureDiscardsPartialOutput(t *testing.T) {
	cause := errors.New("disk full")
	eng := &fakeEngine{callbacks: 3, output: "half", err: cause}
	a := NewAdapter(eng, packer.DefaultConfig(), 0, nil)

	req := request(t)
	_, err := a.Pack(context.Background(), req, func(progress.Event) {})
	require.Error(t, err)

	var pe *Error
	require.ErrorAs(t, err, &pe)
	assert.ErrorIs(t, err, cause)
	assert.NoFileExists(t, req.OutputPath)
}

func TestAdapter_MissingOutput(t *testing.T) {
	a := NewAdapter(&fakeEngine{}, packer.DefaultConfig(), 0, nil)
	_, err := a.Pack(context.Background(), request(t), func(progress.Event) {})
	var pe *Error
	assert.ErrorAs(t, err, &pe)
}

func TestAdapter_RealEngine(t *testing.T) {
	req := request(t)
	require.NoError(t, os.WriteFile(filepath.Join(req.Root, "main.go"), []byte("package main\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(req.Root, "big.bin"), []byte("zzz"), 0o644))

	base := packer.DefaultConfig()
	base.SecurityCheck = false
	a := NewAdapter(packer.New(nil, nil), base, 0, nil)

	art, err := a.Pack(context.Background(), req, func(progress.Event) {})
	require.NoError(t, err)
	assert.Contains(t, art.Text, "## File: main.go")
	assert.NotContains(t, art.Text, "## File: big.bin")
	assert.Equal(t, 1, art.Result.TotalFiles)
}

func TestAdapter_LogsWithheldFiles(t *testing.T) {
	logger := logging.NewTestLogger()
	eng := &fakeEngine{output: "doc", result: &packer.Result{
		TotalFiles:      2,
		SuspiciousFiles: []packer.SuspiciousFile{{Path: "deploy.sh", Rules: []string{"aws-access-token"}}},
	}}
	a := NewAdapter(eng, packer.DefaultConfig(), 0, logger.Logger)

	art, err := a.Pack(context.Background(), request(t), func(progress.Event) {})
	require.NoError(t, err)
	require.Len(t, art.Result.SuspiciousFiles, 1)
	logger.AssertLogged(t, zapcore.WarnLevel, "withheld by security check")
	logger.AssertField(t, "withheld by security check", "path", "deploy.sh")
}
