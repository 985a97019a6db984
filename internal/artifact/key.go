// Package artifact persists completed artifacts and expires old ones.
package artifact

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Object describes one stored artifact.
type Object struct {
	Name    string
	Size    int64
	Created time.Time
}

// Store is implemented by artifact backends.
type Store interface {
	// Save stores data under a fresh key and returns it.
	Save(ctx context.Context, jobID, ext string, data []byte) (string, error)
	List(ctx context.Context) ([]Object, error)
	Delete(ctx context.Context, name string) error
}

// ObjectName builds the key `<unixmillis>-<jobID>.<ext>`.
func ObjectName(created time.Time, jobID, ext string) string {
	return fmt.Sprintf("%d-%s.%s", created.UnixMilli(), jobID, ext)
}

// ParseKeyTime returns the creation time encoded in an object name.
func ParseKeyTime(name string) (time.Time, bool) {
	prefix, _, ok := strings.Cut(name, "-")
	if !ok || prefix == "" {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(prefix, 10, 64)
	if err != nil || ms < 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

func validName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("invalid artifact name %q", name)
	}
	return nil
}
