package fetch

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/repopackd/internal/progress"
)

type fakeMetadata struct {
	size  int64
	err   error
	calls int
}

func (f *fakeMetadata) RepoSize(ctx context.Context, src Source) (int64, error) {
	f.calls++
	return f.size, f.err
}

func newTestFetcher(t *testing.T, meta MetadataClient, gitBody string) *Fetcher {
	t.Helper()
	return New(Options{
		AllowedHosts: []string{"github.com"},
		GitBinary:    writeFakeGit(t, gitBody),
		CloneDepth:   1,
		CloneTimeout: 10 * time.Second,
	}, meta, nil)
}

func collect(events *[]progress.Event) func(progress.Event) {
	return func(ev progress.Event) { *events = append(*events, ev) }
}

func TestFetcher_Success(t *testing.T) {
	meta := &fakeMetadata{size: 10 * 1024}
	f := newTestFetcher(t, meta, fakeCloneOK)
	dest := filepath.Join(t.TempDir(), "src")

	var events []progress.Event
	src, err := f.Parse("https://github.com/acme/tiny")
	require.NoError(t, err)
	assert.Equal(t, "tiny", src.Repo)
	require.NoError(t, f.Fetch(context.Background(), src, dest, 100<<20, collect(&events)))
	assert.FileExists(t, filepath.Join(dest, "README.md"))

	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, progress.FetchSpan.Hi, last.Percent)

	// Progress stays within the fetch span, never decreases, and the
	// duplicated 25% line is reported once.
	seen := map[float64]int{}
	prev := -1.0
	for _, ev := range events {
		assert.GreaterOrEqual(t, ev.Percent, prev)
		assert.LessOrEqual(t, ev.Percent, progress.FetchSpan.Hi)
		prev = ev.Percent
		if ev.Text == "Receiving objects: 25%" {
			seen[ev.Percent]++
		}
	}
	assert.Equal(t, 1, seen[progress.FetchSpan.Percent(25)])
}

func TestFetcher_ParseRejectsDisallowedHost(t *testing.T) {
	f := newTestFetcher(t, &fakeMetadata{}, `exit 0`)
	_, err := f.Parse("https://gitlab.com/acme/tiny")
	assert.ErrorIs(t, err, ErrInvalidURL)
}

func TestFetcher_SizeExceededSkipsClone(t *testing.T) {
	meta := &fakeMetadata{size: 200 << 20}
	marker := filepath.Join(t.TempDir(), "cloned")
	f := newTestFetcher(t, meta, `touch `+marker)

	var events []progress.Event
	err := f.Fetch(context.Background(), Source{Owner: "acme", Repo: "huge", CloneURL: "https://github.com/acme/huge.git"}, t.TempDir(), 100<<20, collect(&events))
	assert.ErrorIs(t, err, ErrSizeExceeded)
	assert.Equal(t, 1, meta.calls)
	assert.NoFileExists(t, marker)
}

func TestFetcher_MetadataFailureSkipsClone(t *testing.T) {
	meta := &fakeMetadata{err: &Error{Kind: KindMetadataUnavailable, Detail: "boom"}}
	marker := filepath.Join(t.TempDir(), "cloned")
	f := newTestFetcher(t, meta, `touch `+marker)

	var events []progress.Event
	err := f.Fetch(context.Background(), tinySource, t.TempDir(), 100<<20, collect(&events))
	assert.ErrorIs(t, err, ErrMetadataUnavailable)
	assert.NoFileExists(t, marker)
}

func TestFetcher_CloneFailure(t *testing.T) {
	f := newTestFetcher(t, &fakeMetadata{size: 1}, `exit 1`)

	var events []progress.Event
	err := f.Fetch(context.Background(), tinySource, filepath.Join(t.TempDir(), "src"), 100<<20, collect(&events))
	assert.ErrorIs(t, err, ErrCloneFailed)
}
