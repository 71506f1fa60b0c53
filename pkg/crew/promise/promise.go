package promise

import (
	"context"
	"sync"

	"github.com/ib-77/crew/pkg/crew"
)

// Promise is a single-assignment container that eventually holds a success
// value or a failure. It transitions pending -> fulfilled or pending -> failed
// exactly once; later completions are no-ops.
type Promise[T any] struct {
	mu     sync.Mutex
	done   chan struct{}
	result crew.Result[T]
	ready  bool
}

func New[T any]() *Promise[T] {
	return &Promise[T]{
		done: make(chan struct{}),
	}
}

// Completed returns an already fulfilled promise.
func Completed[T any](value T) *Promise[T] {
	p := New[T]()
	p.Fulfill(value)
	return p
}

// Failed returns an already failed promise.
func Failed[T any](err error) *Promise[T] {
	p := New[T]()
	p.Reject(err)
	return p
}

// Fulfill completes the promise with a success value. It reports whether the
// completion took effect; false means the promise was already settled.
func (p *Promise[T]) Fulfill(value T) bool {
	return p.settle(crew.Success(value))
}

// Reject completes the promise with a failure. It reports whether the
// completion took effect; false means the promise was already settled.
func (p *Promise[T]) Reject(err error) bool {
	return p.settle(crew.Fail[T](err))
}

func (p *Promise[T]) settle(r crew.Result[T]) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ready {
		return false
	}
	p.result = r
	p.ready = true
	close(p.done)
	return true
}

// Done returns a channel that is closed once the promise is settled. Multiple
// observers may wait on the same channel.
func (p *Promise[T]) Done() <-chan struct{} {
	return p.done
}

// Await blocks until the promise settles or ctx expires. On expiry the worker
// behind the promise may keep running; its result is simply never observed.
func (p *Promise[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-p.done:
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.result.Result(), p.result.Err()
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Poll returns the settled result without blocking. The second return value
// reports whether the promise has settled.
func (p *Promise[T]) Poll() (crew.Result[T], bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.result, p.ready
}
