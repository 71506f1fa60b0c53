package promise

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestFulfillAndAwait(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	p := New[int]()
	if ok := p.Fulfill(42); !ok {
		t.Fatalf("first Fulfill should take effect")
	}

	v, err := p.Await(ctx)
	if err != nil || v != 42 {
		t.Fatalf("expected 42, got: val=%v, err=%v", v, err)
	}
}

func TestRejectAndAwait(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	p := New[int]()
	boom := errors.New("boom")
	if ok := p.Reject(boom); !ok {
		t.Fatalf("first Reject should take effect")
	}

	_, err := p.Await(ctx)
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got: %v", err)
	}
}

func TestDoubleCompletionIsNoOp(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	p := New[int]()
	p.Fulfill(1)

	if p.Fulfill(2) {
		t.Fatalf("second Fulfill should be a no-op")
	}
	if p.Reject(errors.New("late")) {
		t.Fatalf("Reject after Fulfill should be a no-op")
	}

	v, err := p.Await(ctx)
	if err != nil || v != 1 {
		t.Fatalf("expected first value 1, got: val=%v, err=%v", v, err)
	}
}

func TestPoll(t *testing.T) {
	t.Parallel()

	p := New[string]()
	if _, ready := p.Poll(); ready {
		t.Fatalf("pending promise should not be ready")
	}

	p.Fulfill("done")
	r, ready := p.Poll()
	if !ready || !r.IsSuccess() || r.Result() != "done" {
		t.Fatalf("expected ready success 'done', got: ready=%v, r=%v", ready, r)
	}
}

func TestMultipleObservers(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	p := New[int]()
	results := make(chan int, 3)

	for n := 0; n < 3; n++ {
		go func() {
			v, _ := p.Await(ctx)
			results <- v
		}()
	}

	p.Fulfill(7)

	for n := 0; n < 3; n++ {
		if v := <-results; v != 7 {
			t.Fatalf("every observer should see 7, got %d", v)
		}
	}
}

func TestAwaitContextExpiry(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	p := New[int]()
	_, err := p.Await(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got: %v", err)
	}
}

func TestPreResolvedConstructors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	v, err := Completed(5).Await(ctx)
	if err != nil || v != 5 {
		t.Fatalf("expected 5, got: val=%v, err=%v", v, err)
	}

	boom := errors.New("bad")
	_, err = Failed[int](boom).Await(ctx)
	if !errors.Is(err, boom) {
		t.Fatalf("expected bad, got: %v", err)
	}
}
