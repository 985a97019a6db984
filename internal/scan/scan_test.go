package scan

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/repopackd/internal/tokens"
)

func writeTree(t *testing.T, files map[string]int) string {
	t.Helper()
	root := t.TempDir()
	for rel, size := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("a", size)), 0o644))
	}
	return root
}

func paths(files []File) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Path
	}
	return out
}

func TestScan_SkipsGitAndExcluded(t *testing.T) {
	root := writeTree(t, map[string]int{
		"main.go":           10,
		"pkg/util.go":       20,
		".git/objects/blob": 999,
		"logs/app.log":      50,
		"node_modules/x.js": 5,
		"docs/guide.md":     7,
	})

	res, err := Scan(context.Background(), root, Options{
		Exclude:       []string{"*.log", "node_modules/"},
		SizeThreshold: 1 << 20,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"docs/guide.md", "main.go", "pkg/util.go"}, paths(res.Files))
	assert.Equal(t, int64(37), res.TotalSize)
}

func TestScan_SkipsSymlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	root := writeTree(t, map[string]int{"real.txt": 4})
	require.NoError(t, os.Symlink(filepath.Join(root, "real.txt"), filepath.Join(root, "link.txt")))

	res, err := Scan(context.Background(), root, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"real.txt"}, paths(res.Files))
}

func TestScan_FewLargeFilesReturnsTopN(t *testing.T) {
	// Three files, none over 1MB: all three offered, largest first.
	root := writeTree(t, map[string]int{"a.txt": 10, "b.txt": 30, "c.txt": 20})

	res, err := Scan(context.Background(), root, Options{SizeThreshold: 1 << 20, TopN: 10})
	require.NoError(t, err)

	require.Len(t, res.Candidates, 3)
	assert.Equal(t, "b.txt", res.Candidates[0].Path)
	assert.Equal(t, "c.txt", res.Candidates[1].Path)
	assert.Equal(t, "a.txt", res.Candidates[2].Path)
	assert.Zero(t, res.Candidates[0].TokenCount)
}

func TestScan_TokenEstimates(t *testing.T) {
	root := writeTree(t, map[string]int{"a.txt": 40})

	res, err := Scan(context.Background(), root, Options{Tokens: tokens.Heuristic{MaxBytes: 1024}})
	require.NoError(t, err)
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, 10, res.Candidates[0].TokenCount)
}

func TestScan_CanceledContext(t *testing.T) {
	root := writeTree(t, map[string]int{"a.txt": 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Scan(ctx, root, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSelectCandidates_NoneOverThreshold(t *testing.T) {
	var files []File
	for i := 0; i < 25; i++ {
		files = append(files, File{Path: fmt.Sprintf("f%02d", i), Size: int64(i)})
	}
	got := SelectCandidates(files, 1000, 10)
	require.Len(t, got, 10)
	assert.Equal(t, "f24", got[0].Path)
	assert.Equal(t, "f15", got[9].Path)
}

func TestSelectCandidates_SomeOverThreshold(t *testing.T) {
	files := []File{{"a", 5}, {"b", 500}, {"c", 50}, {"d", 5000}}
	got := SelectCandidates(files, 100, 10)
	assert.Equal(t, []string{"d", "b", "c", "a"}, paths(got))
}

func TestSelectCandidates_ManyOverThreshold(t *testing.T) {
	var files []File
	for i := 0; i < 15; i++ {
		files = append(files, File{Path: fmt.Sprintf("big%02d", i), Size: int64(1000 + i)})
	}
	files = append(files, File{Path: "small", Size: 1})

	got := SelectCandidates(files, 100, 10)
	require.Len(t, got, 15)
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].Size, got[i].Size)
	}
	assert.NotContains(t, paths(got), "small")
}

func TestSelectCandidates_TiesByPath(t *testing.T) {
	files := []File{{"z", 10}, {"a", 10}, {"m", 10}}
	assert.Equal(t, []string{"a", "m", "z"}, paths(SelectCandidates(files, 0, 2)))
	// Input order is untouched.
	assert.Equal(t, "z", files[0].Path)
}

func TestSelectCandidates_ThresholdIsStrict(t *testing.T) {
	var files []File
	for i := 0; i < 10; i++ {
		files = append(files, File{Path: fmt.Sprintf("f%d", i), Size: 100})
	}
	files = append(files, File{Path: "tiny", Size: 1})
	// Exactly at threshold does not count as over, so topN applies.
	assert.Len(t, SelectCandidates(files, 100, 10), 10)
}

func TestOverThreshold(t *testing.T) {
	c := []CandidateFile{{Path: "a", Size: 300}, {Path: "b", Size: 100}, {Path: "c", Size: 200}}
	assert.Equal(t, []string{"a", "c"}, OverThreshold(c, 100))
	assert.Empty(t, OverThreshold(c, 1000))
}
