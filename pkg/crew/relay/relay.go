package relay

import (
	"context"
	"sync"

	"github.com/ib-77/crew/pkg/crew"
	"github.com/ib-77/crew/pkg/crew/stream"
)

type Kind int

const (
	ValueKind Kind = iota
	CloseKind
)

// Message is one frame on the transport between two linked endpoints. Value
// frames carry a per-direction sequence number; a Close frame carries the
// number of value frames sent before it, so closure is applied only after
// every earlier value has been delivered.
type Message[T any] struct {
	Seq   uint64
	Kind  Kind
	Value T
	Sent  uint64
}

// Endpoint is one side of a cross-worker channel. Values sent here surface as
// buffered values on the peer; closure travels as a control frame and is
// therefore not instantaneous across the worker boundary.
type Endpoint[T any] struct {
	inbound *stream.Channel[T]
	out     chan Message[T]

	mu        sync.Mutex
	seq       uint64
	closed    bool
	closeSent bool
}

// Link creates two endpoints joined by one ordered message transport per
// direction, each buffering up to capacity undelivered values.
func Link[T any](capacity int) (*Endpoint[T], *Endpoint[T], error) {
	if capacity <= 0 {
		return nil, nil, crew.NewUsageError("relay.Link", "capacity must be positive")
	}

	a := newEndpoint[T](capacity)
	b := newEndpoint[T](capacity)

	go pump(a.out, b)
	go pump(b.out, a)

	return a, b, nil
}

func newEndpoint[T any](capacity int) *Endpoint[T] {
	in, _ := stream.Buffered[T](capacity)
	return &Endpoint[T]{
		inbound: in,
		out:     make(chan Message[T], capacity),
	}
}

// pump applies one direction of the transport to the destination endpoint.
// Frames arrive in sequence order. A value that raced the destination's own
// Close is dropped, which is the documented resolution of the close-in-flight
// race: the closing side never accepts values arriving after it closed.
func pump[T any](frames <-chan Message[T], dst *Endpoint[T]) {
	for msg := range frames {
		switch msg.Kind {
		case ValueKind:
			_ = dst.inbound.Send(context.Background(), msg.Value)
		case CloseKind:
			// Every value frame below msg.Sent has already been applied.
			dst.closeLocal()
			dst.sendCloseFrame()
			return
		}
	}
}

// Send transmits value to the peer, blocking when the transport is saturated.
func (e *Endpoint[T]) Send(ctx context.Context, value T) error {
	msg, ok := e.nextValueFrame(value)
	if !ok {
		return crew.ErrChannelClosed
	}

	select {
	case e.out <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TrySend transmits value without blocking; false when the transport is full
// or the endpoint is closed.
func (e *Endpoint[T]) TrySend(value T) bool {
	msg, ok := e.nextValueFrame(value)
	if !ok {
		return false
	}

	select {
	case e.out <- msg:
		return true
	default:
		return false
	}
}

func (e *Endpoint[T]) nextValueFrame(value T) (Message[T], bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return Message[T]{}, false
	}
	e.seq++
	return Message[T]{Seq: e.seq, Kind: ValueKind, Value: value}, true
}

// Receive takes the oldest value delivered by the peer.
func (e *Endpoint[T]) Receive(ctx context.Context) (T, error) {
	return e.inbound.Receive(ctx)
}

// TryReceive takes the oldest delivered value without blocking.
func (e *Endpoint[T]) TryReceive() (T, bool) {
	return e.inbound.TryReceive()
}

// Close stops this endpoint and notifies the peer with a control frame. It is
// idempotent. Values the peer already delivered remain drainable here; values
// still in flight toward this endpoint are dropped.
func (e *Endpoint[T]) Close() {
	e.closeLocal()
	e.sendCloseFrame()
}

func (e *Endpoint[T]) closeLocal() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.mu.Unlock()

	e.inbound.Close()
}

// sendCloseFrame emits the close frame at most once per endpoint. The frame
// queues behind every value frame already sent, so the peer drains them all
// before observing closure.
func (e *Endpoint[T]) sendCloseFrame() {
	e.mu.Lock()
	if e.closeSent {
		e.mu.Unlock()
		return
	}
	e.closeSent = true
	sent := e.seq
	e.mu.Unlock()

	msg := Message[T]{Kind: CloseKind, Sent: sent}
	select {
	case e.out <- msg:
	default:
		// Saturated transport: deliver the close frame without blocking the
		// caller. It still queues behind every value frame already enqueued.
		go func() { e.out <- msg }()
	}
}

func (e *Endpoint[T]) IsClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// Len returns the number of delivered, not yet received values.
func (e *Endpoint[T]) Len() int {
	return e.inbound.Len()
}

// Drain exposes delivered values as a lazy sequence terminating once the
// link is closed and empty.
func (e *Endpoint[T]) Drain(ctx context.Context) <-chan T {
	return e.inbound.Drain(ctx)
}
