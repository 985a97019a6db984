package gate

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/repopackd/internal/scan"
)

var candidates = []scan.CandidateFile{
	{Path: "assets/big.bin", Size: 5 << 20},
	{Path: "data/medium.csv", Size: 2 << 20},
	{Path: "main.go", Size: 10},
}

const threshold = 1 << 20

func openGate(t *testing.T, timeout time.Duration) *Gate {
	t.Helper()
	g := New(candidates, threshold, timeout)
	require.Equal(t, StateScanning, g.State())
	require.NoError(t, g.Open())
	require.Equal(t, StateAwaiting, g.State())
	return g
}

func TestGate_TimeoutAppliesDefaultPolicy(t *testing.T) {
	g := openGate(t, 20*time.Millisecond)

	res, err := g.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SourceTimeout, res.Source)
	assert.Equal(t, []string{"assets/big.bin", "data/medium.csv"}, res.Excluded)
	assert.Equal(t, StateResolved, g.State())
}

func TestGate_CallerSelection(t *testing.T) {
	g := openGate(t, time.Minute)

	go func() {
		time.Sleep(10 * time.Millisecond)
		_ = g.Submit([]string{"main.go", "./main.go", " data/medium.csv "})
	}()

	res, err := g.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SourceCaller, res.Source)
	assert.Equal(t, []string{"main.go", "data/medium.csv"}, res.Excluded)
}

func TestGate_EmptySelectionExcludesNothing(t *testing.T) {
	g := openGate(t, time.Minute)
	require.NoError(t, g.Submit([]string{}))

	res, err := g.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SourceCaller, res.Source)
	assert.Empty(t, res.Excluded)
}

func TestGate_NilSelectionUsesDefault(t *testing.T) {
	g := openGate(t, time.Minute)
	require.NoError(t, g.Submit(nil))

	res, err := g.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SourceDefault, res.Source)
	assert.Equal(t, g.DefaultSelection(), res.Excluded)
}

func TestGate_SubmitRejectedOutsideAwaiting(t *testing.T) {
	g := New(candidates, threshold, time.Minute)
	assert.ErrorIs(t, g.Submit(nil), ErrNotAwaiting)

	require.NoError(t, g.Open())
	require.NoError(t, g.Submit(nil))
	assert.ErrorIs(t, g.Submit([]string{"main.go"}), ErrNotAwaiting)
	assert.Error(t, g.Open())
}

func TestGate_SubmitAfterTimeoutRejected(t *testing.T) {
	g := openGate(t, 5*time.Millisecond)
	_, err := g.Wait(context.Background())
	require.NoError(t, err)
	assert.ErrorIs(t, g.Submit([]string{"main.go"}), ErrNotAwaiting)
}

func TestGate_ContextCanceled(t *testing.T) {
	g := openGate(t, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, g.Submit(nil), ErrNotAwaiting)
}

func TestGate_ConcurrentSubmitsOneWins(t *testing.T) {
	g := openGate(t, time.Minute)

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if g.Submit([]string{"main.go"}) == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, accepted)

	res, err := g.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SourceCaller, res.Source)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t,
		[]string{"a/b.txt", "c.txt", "x"},
		normalize([]string{"a/b.txt", "", "  ", "/c.txt", "a\\b.txt", "../x", "c.txt"}))
}
