package fetch

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var receivingPattern = regexp.MustCompile(`Receiving objects:\s+(\d+)%`)

// stderrTailLines is how many non-progress stderr lines are kept for error
// reports.
const stderrTailLines = 5

// Cloner runs a depth-limited git clone as a subprocess.
type Cloner struct {
	GitBinary string
	Depth     int
	Timeout   time.Duration
}

// Clone clones src into dest. onProgress receives each "Receiving objects"
// percentage in the order git reports it. The clone is killed when Timeout
// elapses or ctx is done.
func (c *Cloner) Clone(ctx context.Context, src Source, dest string, onProgress func(pct int)) error {
	bin := c.GitBinary
	if bin == "" {
		bin = "git"
	}
	depth := c.Depth
	if depth < 1 {
		depth = 1
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, bin, "clone", "--depth="+strconv.Itoa(depth), "--progress", "--", src.CloneURL, dest)
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	cmd.WaitDelay = 2 * time.Second

	// Stderr goes through an io.Pipe so WaitDelay bounds the copy even when
	// a descendant of a killed git still holds the descriptor.
	pr, pw := io.Pipe()
	cmd.Stderr = pw
	if err := cmd.Start(); err != nil {
		return newError(KindCloneFailed, err, "failed to start %s", bin)
	}
	done := make(chan error, 1)
	go func() {
		err := cmd.Wait()
		pw.Close()
		done <- err
	}()

	tail := make([]string, 0, stderrTailLines)
	sc := bufio.NewScanner(pr)
	sc.Split(scanProgressLines)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if m := receivingPattern.FindStringSubmatch(line); m != nil {
			if pct, err := strconv.Atoi(m[1]); err == nil && onProgress != nil {
				onProgress(pct)
			}
			continue
		}
		if len(tail) == stderrTailLines {
			tail = tail[1:]
		}
		tail = append(tail, line)
	}
	// Keep draining so the copy goroutine never blocks on a full pipe.
	_, _ = io.Copy(io.Discard, pr)

	waitErr := <-done
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return newError(KindCloneFailed, ctx.Err(), "clone of %s timed out after %s", src, timeout)
	case ctx.Err() != nil:
		return newError(KindCloneFailed, ctx.Err(), "clone of %s aborted", src)
	case waitErr != nil:
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			return newError(KindCloneFailed, nil, "git exited with status %d%s", exitErr.ExitCode(), tailSuffix(tail))
		}
		return newError(KindCloneFailed, waitErr, "git did not finish%s", tailSuffix(tail))
	}
	return nil
}

func tailSuffix(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return fmt.Sprintf(" (%s)", strings.Join(lines, "; "))
}

// scanProgressLines splits on either \r or \n. git redraws progress lines
// with carriage returns.
func scanProgressLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
