package tokens

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "f.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNone(t *testing.T) {
	assert.Zero(t, None{}.Estimate(context.Background(), writeFile(t, "hello world")))
}

func TestHeuristic(t *testing.T) {
	h := Heuristic{MaxBytes: 1 << 20}
	ctx := context.Background()

	assert.Equal(t, 0, h.Estimate(ctx, writeFile(t, "")))
	assert.Equal(t, 1, h.Estimate(ctx, writeFile(t, "abc")))
	assert.Equal(t, 2, h.Estimate(ctx, writeFile(t, "abcdefgh")))
	// Multi-byte runes count as one character each.
	assert.Equal(t, 2, h.Estimate(ctx, writeFile(t, "héllo")))
	assert.Equal(t, 0, h.Estimate(ctx, filepath.Join(t.TempDir(), "missing")))
}

func TestHeuristic_Bounded(t *testing.T) {
	h := Heuristic{MaxBytes: 400}
	path := writeFile(t, strings.Repeat("x", 10_000))
	assert.Equal(t, 100, h.Estimate(context.Background(), path))
}

func TestHeuristic_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Zero(t, Heuristic{MaxBytes: 100}.Estimate(ctx, writeFile(t, "abcdefgh")))
}

func TestNew(t *testing.T) {
	e, err := New("", 0)
	require.NoError(t, err)
	assert.IsType(t, None{}, e)

	e, err = New("heuristic", 1024)
	require.NoError(t, err)
	assert.Equal(t, Heuristic{MaxBytes: 1024}, e)

	_, err = New("heuristic", 0)
	assert.Error(t, err)
	_, err = New("bpe", 10)
	assert.Error(t, err)
}
