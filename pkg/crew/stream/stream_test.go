package stream

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ib-77/crew/pkg/crew"
)

func TestBufferedRejectsNonPositiveCapacity(t *testing.T) {
	t.Parallel()

	if _, err := Buffered[int](0); !crew.IsUsageError(err) {
		t.Fatalf("expected usage error for capacity=0, got: %v", err)
	}
}

func TestTrySendRespectsCapacity(t *testing.T) {
	t.Parallel()

	c, err := Buffered[int](3)
	if err != nil {
		t.Fatalf("Buffered: %v", err)
	}

	for i := 0; i < 3; i++ {
		if !c.TrySend(i) {
			t.Fatalf("TrySend %d should succeed with room left", i)
		}
	}
	if c.TrySend(99) {
		t.Fatalf("TrySend should fail on a full buffer")
	}

	if _, err := c.Receive(context.Background()); err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if !c.TrySend(99) {
		t.Fatalf("TrySend should succeed after one Receive freed a slot")
	}
}

func TestFIFOOrdering(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	c, _ := Buffered[int](3)
	for _, v := range []int{1, 2, 3} {
		if err := c.Send(ctx, v); err != nil {
			t.Fatalf("Send %d: %v", v, err)
		}
	}

	for _, want := range []int{1, 2, 3} {
		got, err := c.Receive(ctx)
		if err != nil || got != want {
			t.Fatalf("expected %d, got: val=%v, err=%v", want, got, err)
		}
	}
}

func TestCloseDrainsBufferThenFails(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	c, _ := Buffered[int](2)
	_ = c.Send(ctx, 1)
	_ = c.Send(ctx, 2)
	c.Close()
	c.Close() // idempotent

	if c.TrySend(3) {
		t.Fatalf("TrySend after close should fail")
	}
	if err := c.Send(ctx, 3); !errors.Is(err, crew.ErrChannelClosed) {
		t.Fatalf("Send after close should fail with ErrChannelClosed, got: %v", err)
	}

	for _, want := range []int{1, 2} {
		got, err := c.Receive(ctx)
		if err != nil || got != want {
			t.Fatalf("buffered value %d should survive close, got: val=%v, err=%v", want, got, err)
		}
	}

	if _, err := c.Receive(ctx); !errors.Is(err, crew.ErrChannelClosed) {
		t.Fatalf("drained closed channel should fail with ErrChannelClosed, got: %v", err)
	}
}

func TestCloseFailsWaitingReceiver(t *testing.T) {
	t.Parallel()

	c := New[int]()
	failed := make(chan error, 1)

	go func() {
		_, err := c.Receive(context.Background())
		failed <- err
	}()

	time.Sleep(10 * time.Millisecond)
	c.Close()

	select {
	case err := <-failed:
		if !errors.Is(err, crew.ErrChannelClosed) {
			t.Fatalf("expected ErrChannelClosed, got: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("close should fail the waiting receiver")
	}
}

func TestSendBlocksUntilReceive(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	c, _ := Buffered[int](1)
	_ = c.Send(ctx, 1)

	sent := make(chan struct{})
	go func() {
		_ = c.Send(ctx, 2)
		close(sent)
	}()

	select {
	case <-sent:
		t.Fatalf("Send on a full buffer should suspend")
	case <-time.After(30 * time.Millisecond):
	}

	v, err := c.Receive(ctx)
	if err != nil || v != 1 {
		t.Fatalf("expected 1, got: val=%v, err=%v", v, err)
	}

	select {
	case <-sent:
	case <-time.After(time.Second):
		t.Fatalf("Receive should unblock the suspended sender")
	}

	v, err = c.Receive(ctx)
	if err != nil || v != 2 {
		t.Fatalf("expected 2, got: val=%v, err=%v", v, err)
	}
}

func TestRendezvousHandOff(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	c := New[string]()
	got := make(chan string, 1)

	go func() {
		v, _ := c.Receive(ctx)
		got <- v
	}()

	if err := c.Send(ctx, "ping"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if v := <-got; v != "ping" {
		t.Fatalf("expected ping, got %q", v)
	}
}

func TestTryReceiveNeverSuspends(t *testing.T) {
	t.Parallel()

	c, _ := Buffered[int](1)
	if _, ok := c.TryReceive(); ok {
		t.Fatalf("TryReceive on empty channel should report none")
	}

	c.TrySend(5)
	v, ok := c.TryReceive()
	if !ok || v != 5 {
		t.Fatalf("expected 5, got: val=%v, ok=%v", v, ok)
	}
}

func TestReceiveHonorsCancellation(t *testing.T) {
	t.Parallel()

	c := New[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Receive(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got: %v", err)
	}

	// The withdrawn waiter must not swallow a later value.
	if c.TrySend(1) {
		t.Fatalf("no live receiver should remain after cancellation")
	}
	got := make(chan int, 1)
	go func() {
		v, _ := c.Receive(context.Background())
		got <- v
	}()
	if err := c.Send(context.Background(), 7); err != nil {
		t.Fatalf("Send after withdrawn receiver: %v", err)
	}
	if v := <-got; v != 7 {
		t.Fatalf("expected 7, got %d", v)
	}
}

func TestDrainTerminatesOnClosedAndEmpty(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	c, _ := Buffered[int](3)
	for i := 1; i <= 3; i++ {
		_ = c.Send(ctx, i)
	}
	c.Close()

	var got []int
	for v := range c.Drain(ctx) {
		got = append(got, v)
	}

	if len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Fatalf("expected [1 2 3], got %v", got)
	}
}

func TestReceiveAnyResolvesWithFirstProducer(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	a, _ := Buffered[int](1)
	b, _ := Buffered[int](1)
	_ = b.Send(ctx, 20)

	idx, v, err := ReceiveAny(ctx, a, b)
	if err != nil || idx != 1 || v != 20 {
		t.Fatalf("expected (1, 20), got: idx=%d, val=%v, err=%v", idx, v, err)
	}
}

func TestReceiveAnyWithdrawsLosers(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	a := New[int]()
	b := New[int]()

	done := make(chan struct{})
	go func() {
		idx, v, err := ReceiveAny(ctx, a, b)
		if err != nil || idx != 0 || v != 1 {
			t.Errorf("expected (0, 1), got: idx=%d, val=%v, err=%v", idx, v, err)
		}
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	if err := a.Send(ctx, 1); err != nil {
		t.Fatalf("Send: %v", err)
	}
	<-done

	// The loser must not hold a phantom receiver: this send needs a real one.
	got := make(chan int, 1)
	go func() {
		v, _ := b.Receive(ctx)
		got <- v
	}()
	if err := b.Send(ctx, 2); err != nil {
		t.Fatalf("Send to loser channel: %v", err)
	}
	if v := <-got; v != 2 {
		t.Fatalf("expected 2, got %d", v)
	}
}

func TestReceiveAnyClosedSourceResolves(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	a := New[int]()
	b := New[int]()
	b.Close()

	idx, _, err := ReceiveAny(ctx, a, b)
	if idx != 1 || !errors.Is(err, crew.ErrChannelClosed) {
		t.Fatalf("expected closed source 1 to resolve, got: idx=%d, err=%v", idx, err)
	}
}
