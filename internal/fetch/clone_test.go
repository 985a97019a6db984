package fetch

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeFakeGit writes a shell script standing in for git. The script sees
// the destination directory as its last argument.
func writeFakeGit(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake git requires a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "git")
	script := "#!/bin/sh\nfor last; do :; done\n" + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

const fakeCloneOK = `mkdir -p "$last"
echo "hello" > "$last/README.md"
printf 'Cloning into %s...\n' "$last" >&2
printf 'Receiving objects:   0%% (0/4)\rReceiving objects:  25%% (1/4)\rReceiving objects:  25%% (1/4)\r' >&2
printf 'Receiving objects:  75%% (3/4)\rReceiving objects: 100%% (4/4), done.\n' >&2
printf 'Resolving deltas: 100%% (2/2), done.\n' >&2
exit 0`

func TestCloner_ReportsProgress(t *testing.T) {
	c := &Cloner{GitBinary: writeFakeGit(t, fakeCloneOK), Depth: 1, Timeout: 10 * time.Second}
	dest := filepath.Join(t.TempDir(), "src")

	var got []int
	err := c.Clone(context.Background(), tinySource, dest, func(pct int) { got = append(got, pct) })
	require.NoError(t, err)

	assert.Equal(t, []int{0, 25, 25, 75, 100}, got)
	assert.FileExists(t, filepath.Join(dest, "README.md"))
}

func TestCloner_PassesDepthAndURL(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "args")
	bin := writeFakeGit(t, `echo "$@" > `+argsFile+`
mkdir -p "$last"`)
	c := &Cloner{GitBinary: bin, Depth: 3}

	require.NoError(t, c.Clone(context.Background(), tinySource, filepath.Join(t.TempDir(), "src"), nil))

	args, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	assert.Contains(t, string(args), "clone --depth=3 --progress -- https://github.com/acme/tiny.git")
}

func TestCloner_NonZeroExit(t *testing.T) {
	bin := writeFakeGit(t, `echo "fatal: repository not found" >&2
exit 128`)
	c := &Cloner{GitBinary: bin}

	err := c.Clone(context.Background(), tinySource, filepath.Join(t.TempDir(), "src"), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCloneFailed)
	assert.Contains(t, err.Error(), "status 128")
	assert.Contains(t, err.Error(), "repository not found")
}

func TestCloner_Timeout(t *testing.T) {
	bin := writeFakeGit(t, `exec sleep 5`)
	c := &Cloner{GitBinary: bin, Timeout: 100 * time.Millisecond}

	start := time.Now()
	err := c.Clone(context.Background(), tinySource, filepath.Join(t.TempDir(), "src"), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCloneFailed)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "timed out")
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestCloner_MissingBinary(t *testing.T) {
	c := &Cloner{GitBinary: filepath.Join(t.TempDir(), "no-such-git")}
	err := c.Clone(context.Background(), tinySource, t.TempDir(), nil)
	assert.ErrorIs(t, err, ErrCloneFailed)
}

func TestScanProgressLines(t *testing.T) {
	adv, tok, err := scanProgressLines([]byte("a\rb\nc"), false)
	require.NoError(t, err)
	assert.Equal(t, 2, adv)
	assert.Equal(t, "a", string(tok))

	adv, tok, _ = scanProgressLines([]byte("tail"), true)
	assert.Equal(t, 4, adv)
	assert.Equal(t, "tail", string(tok))

	adv, tok, _ = scanProgressLines([]byte("partial"), false)
	assert.Equal(t, 0, adv)
	assert.Nil(t, tok)
}
