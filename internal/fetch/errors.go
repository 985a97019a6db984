package fetch

import (
	"errors"
	"fmt"
)

// Kind classifies fetch failures.
type Kind string

const (
	KindInvalidURL          Kind = "invalid_url"
	KindMetadataUnavailable Kind = "metadata_unavailable"
	KindSizeExceeded        Kind = "size_exceeded"
	KindCloneFailed         Kind = "clone_failed"
)

// Sentinels for errors.Is. Every *Error matches the sentinel of its kind.
var (
	ErrInvalidURL          = errors.New("invalid source url")
	ErrMetadataUnavailable = errors.New("repository metadata unavailable")
	ErrSizeExceeded        = errors.New("repository size exceeds limit")
	ErrCloneFailed         = errors.New("clone failed")
)

// Error is a classified fetch failure.
type Error struct {
	Kind Kind
	// Detail is a human-readable description shown to callers.
	Detail string
	Err    error
}

func (e *Error) Error() string {
	msg := e.sentinel().Error()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind.
func (e *Error) Is(target error) bool {
	return target == e.sentinel()
}

func (e *Error) sentinel() error {
	switch e.Kind {
	case KindInvalidURL:
		return ErrInvalidURL
	case KindMetadataUnavailable:
		return ErrMetadataUnavailable
	case KindSizeExceeded:
		return ErrSizeExceeded
	default:
		return ErrCloneFailed
	}
}

func newError(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...), Err: err}
}

// SizeExceeded builds the error reported when a declared or measured size
// is over the limit.
func SizeExceeded(size, limit int64) *Error {
	return newError(KindSizeExceeded, nil, "%s over limit of %s", FormatMB(size), FormatMB(limit))
}

// FormatMB renders a byte count in megabytes with two decimals.
func FormatMB(n int64) string {
	return fmt.Sprintf("%.2f MB", float64(n)/(1024*1024))
}
