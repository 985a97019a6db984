// Package bridge adapts push-style producers to a pull-style consumer.
//
// Producers call Emit from any goroutine without ever blocking. A single
// consumer drains values in emission order with Next, which parks until a
// value arrives or the bridge is closed:
//
//	b := bridge.New[Event]()
//	go func() {
//	    defer b.Close()
//	    runSubprocess(func(line string) { b.Emit(parse(line)) })
//	}()
//	for {
//	    ev, err := b.Next(ctx)
//	    if errors.Is(err, bridge.ErrEnd) {
//	        break
//	    }
//	    ...
//	}
package bridge

import (
	"context"
	"errors"
	"sync"
)

// ErrEnd is returned by Next once the bridge is closed and drained.
var ErrEnd = errors.New("bridge: end of stream")

// Bridge is an unbounded FIFO with a non-blocking producer side and a
// single blocking consumer. The zero value is not usable; call New.
type Bridge[T any] struct {
	mu     sync.Mutex
	buf    []T
	closed bool
	// notify holds at most one wakeup for the parked consumer.
	notify chan struct{}
}

// New returns an open, empty bridge.
func New[T any]() *Bridge[T] {
	return &Bridge[T]{notify: make(chan struct{}, 1)}
}

// Emit appends v. It never blocks. Values emitted after Close are dropped.
func (b *Bridge[T]) Emit(v T) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.buf = append(b.buf, v)
	b.mu.Unlock()
	b.wake()
}

// Close marks the end of the stream. Values already emitted are still
// delivered before Next reports ErrEnd. Close is idempotent.
func (b *Bridge[T]) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	b.wake()
}

// Next returns the oldest undelivered value. It blocks until one is
// available, the bridge is closed and drained (ErrEnd), or ctx is done.
// Only one goroutine may call Next at a time.
func (b *Bridge[T]) Next(ctx context.Context) (T, error) {
	for {
		b.mu.Lock()
		if len(b.buf) > 0 {
			v := b.buf[0]
			var zero T
			b.buf[0] = zero
			b.buf = b.buf[1:]
			b.mu.Unlock()
			return v, nil
		}
		closed := b.closed
		b.mu.Unlock()

		if closed {
			var zero T
			return zero, ErrEnd
		}

		select {
		case <-b.notify:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

// Len reports the number of buffered values.
func (b *Bridge[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buf)
}

func (b *Bridge[T]) wake() {
	select {
	case b.notify <- struct{}{}:
	default:
	}
}
