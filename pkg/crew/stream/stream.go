package stream

import (
	"context"
	"sync"

	"github.com/ib-77/crew/pkg/crew"
)

type delivery[T any] struct {
	idx    int
	result crew.Result[T]
}

// waitState is the single-assignment core of a receive. One state may back
// several enrollments (multi-channel receive); the first successful delivery
// or abort settles it and every later attempt is refused.
type waitState[T any] struct {
	mu   sync.Mutex
	done bool
	ch   chan delivery[T]
}

func newWaitState[T any]() *waitState[T] {
	return &waitState[T]{ch: make(chan delivery[T], 1)}
}

func (s *waitState[T]) abort() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done {
		return false
	}
	s.done = true
	return true
}

type recvWaiter[T any] struct {
	state *waitState[T]
	idx   int
}

// deliver hands a result to the waiter. It reports false when the waiter was
// already satisfied or withdrawn, in which case the caller keeps ownership of
// the value.
func (w *recvWaiter[T]) deliver(r crew.Result[T]) bool {
	s := w.state
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done {
		return false
	}
	s.done = true
	s.ch <- delivery[T]{idx: w.idx, result: r}
	return true
}

type sendWaiter[T any] struct {
	value T
	ready chan error
}

// Channel is an ordered message queue with explicit close semantics. A zero
// capacity makes it a rendezvous channel: every send waits for a matching
// receive. Values are delivered FIFO in send order; a value is either in the
// buffer or in a receiver's hand, never both.
type Channel[T any] struct {
	mu       sync.Mutex
	buf      []T
	capacity int
	closed   bool
	recvq    []*recvWaiter[T]
	sendq    []*sendWaiter[T]
}

// New creates an unbuffered channel.
func New[T any]() *Channel[T] {
	return &Channel[T]{}
}

// Buffered creates a channel holding up to capacity undelivered values.
func Buffered[T any](capacity int) (*Channel[T], error) {
	if capacity <= 0 {
		return nil, crew.NewUsageError("stream.Buffered", "capacity must be positive")
	}
	return &Channel[T]{capacity: capacity}, nil
}

// Send delivers value, handing it directly to a waiting receiver when one
// exists, buffering it when there is room, and suspending otherwise. It fails
// with crew.ErrChannelClosed once the channel is closed.
func (c *Channel[T]) Send(ctx context.Context, value T) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return crew.ErrChannelClosed
	}

	if c.handOffLocked(value) {
		c.mu.Unlock()
		return nil
	}

	if len(c.buf) < c.capacity {
		c.buf = append(c.buf, value)
		c.mu.Unlock()
		return nil
	}

	sw := &sendWaiter[T]{value: value, ready: make(chan error, 1)}
	c.sendq = append(c.sendq, sw)
	c.mu.Unlock()

	select {
	case err := <-sw.ready:
		return err
	case <-ctx.Done():
		c.mu.Lock()
		for i, w := range c.sendq {
			if w == sw {
				c.sendq = append(c.sendq[:i], c.sendq[i+1:]...)
				c.mu.Unlock()
				return ctx.Err()
			}
		}
		c.mu.Unlock()

		// The value was already taken by a receiver or the close path.
		return <-sw.ready
	}
}

// TrySend delivers value without suspending. It reports false when the
// channel is full or closed.
func (c *Channel[T]) TrySend(value T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	if c.handOffLocked(value) {
		return true
	}

	if len(c.buf) < c.capacity {
		c.buf = append(c.buf, value)
		return true
	}
	return false
}

// handOffLocked passes value to the first live waiting receiver, skipping
// waiters that were already satisfied or withdrawn.
func (c *Channel[T]) handOffLocked(value T) bool {
	for len(c.recvq) > 0 {
		w := c.recvq[0]
		c.recvq = c.recvq[1:]
		if w.deliver(crew.Success(value)) {
			return true
		}
	}
	return false
}

// Receive returns the oldest undelivered value, suspending until a sender
// provides one. It fails with crew.ErrChannelClosed only once the channel is
// closed and the buffer has been drained.
func (c *Channel[T]) Receive(ctx context.Context) (T, error) {
	var zero T

	w := &recvWaiter[T]{state: newWaitState[T]()}
	c.enroll(w)

	select {
	case d := <-w.state.ch:
		return d.result.Result(), d.result.Err()
	case <-ctx.Done():
		if w.state.abort() {
			c.withdraw(w)
			return zero, ctx.Err()
		}
		// A delivery won the race against the cancellation; accept it.
		d := <-w.state.ch
		return d.result.Result(), d.result.Err()
	}
}

// enroll queues w, or settles it immediately from the buffer, a blocked
// sender, or the closed state. A value refused by w (already satisfied via
// another channel) goes back to the buffer head under the same lock.
func (c *Channel[T]) enroll(w *recvWaiter[T]) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if v, ok := c.takeLocked(); ok {
		if !w.deliver(crew.Success(v)) {
			c.buf = append([]T{v}, c.buf...)
		}
		return
	}

	if c.closed {
		w.deliver(crew.Fail[T](crew.ErrChannelClosed))
		return
	}

	c.recvq = append(c.recvq, w)
}

func (c *Channel[T]) withdraw(w *recvWaiter[T]) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, x := range c.recvq {
		if x == w {
			c.recvq = append(c.recvq[:i], c.recvq[i+1:]...)
			return
		}
	}
}

// TryReceive returns the oldest buffered value without suspending. It never
// joins the receiver queue.
func (c *Channel[T]) TryReceive() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.takeLocked()
}

// takeLocked pops the oldest value, promoting a blocked sender into the freed
// slot (or taking its value directly on a rendezvous channel).
func (c *Channel[T]) takeLocked() (T, bool) {
	if len(c.buf) > 0 {
		v := c.buf[0]
		c.buf = c.buf[1:]
		if len(c.sendq) > 0 {
			sw := c.sendq[0]
			c.sendq = c.sendq[1:]
			c.buf = append(c.buf, sw.value)
			sw.ready <- nil
		}
		return v, true
	}

	if len(c.sendq) > 0 {
		sw := c.sendq[0]
		c.sendq = c.sendq[1:]
		sw.ready <- nil
		return sw.value, true
	}

	var zero T
	return zero, false
}

// Close marks the channel closed. It is idempotent. Waiting receivers and
// blocked senders fail with crew.ErrChannelClosed; already-buffered values
// remain receivable until drained.
func (c *Channel[T]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true

	for _, w := range c.recvq {
		w.deliver(crew.Fail[T](crew.ErrChannelClosed))
	}
	c.recvq = nil

	for _, sw := range c.sendq {
		sw.ready <- crew.ErrChannelClosed
	}
	c.sendq = nil
}

func (c *Channel[T]) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Len returns the number of undelivered buffered values.
func (c *Channel[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.buf)
}

func (c *Channel[T]) Cap() int {
	return c.capacity
}

// Drain exposes the channel as a lazy sequence: buffered values first, then
// live values, terminating cleanly once the channel is closed and empty. Each
// call starts an independent subscription.
func (c *Channel[T]) Drain(ctx context.Context) <-chan T {
	out := make(chan T)

	go func() {
		defer close(out)

		for {
			v, err := c.Receive(ctx)
			if err != nil {
				return
			}

			select {
			case out <- v:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

// ReceiveAny returns the index and value of whichever channel produces first,
// enrolling one shared waiter on every channel and withdrawing it from the
// losers once settled. A source that closes first resolves the call with
// crew.ErrChannelClosed and that source's index.
func ReceiveAny[T any](ctx context.Context, channels ...*Channel[T]) (int, T, error) {
	var zero T
	if len(channels) == 0 {
		return -1, zero, crew.NewUsageError("stream.ReceiveAny", "requires at least one channel")
	}

	state := newWaitState[T]()
	waiters := make([]*recvWaiter[T], len(channels))
	for i, c := range channels {
		w := &recvWaiter[T]{state: state, idx: i}
		waiters[i] = w
		c.enroll(w)
	}

	settle := func(d delivery[T]) (int, T, error) {
		for i, c := range channels {
			if i != d.idx {
				c.withdraw(waiters[i])
			}
		}
		return d.idx, d.result.Result(), d.result.Err()
	}

	select {
	case d := <-state.ch:
		return settle(d)
	case <-ctx.Done():
		if state.abort() {
			for i, c := range channels {
				c.withdraw(waiters[i])
			}
			return -1, zero, ctx.Err()
		}
		return settle(<-state.ch)
	}
}
