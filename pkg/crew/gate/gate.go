package gate

import (
	"context"
	"sync"

	"github.com/ib-77/crew/pkg/crew"
)

// Semaphore is a counting admission gate with an explicit FIFO waiter queue.
// Release hands the permit directly to the head waiter without touching the
// permit count, so permits + outstanding acquisitions == max at all times and
// no waiter can be starved by a late arrival.
type Semaphore struct {
	mu      sync.Mutex
	permits int
	max     int
	waiters []chan struct{}
}

func New(max int) (*Semaphore, error) {
	if max <= 0 {
		return nil, crew.NewUsageError("gate.New", "max must be positive")
	}
	return &Semaphore{
		permits: max,
		max:     max,
	}, nil
}

// Acquire takes a permit, suspending in FIFO order behind earlier callers
// when none is available. A cancelled context withdraws the waiter; if a
// hand-off raced the cancellation, the permit is re-released so it is not
// lost.
func (s *Semaphore) Acquire(ctx context.Context) error {
	s.mu.Lock()
	if s.permits > 0 {
		s.permits--
		s.mu.Unlock()
		return nil
	}

	ready := make(chan struct{})
	s.waiters = append(s.waiters, ready)
	s.mu.Unlock()

	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		s.mu.Lock()
		for i, w := range s.waiters {
			if w == ready {
				s.waiters = append(s.waiters[:i], s.waiters[i+1:]...)
				s.mu.Unlock()
				return ctx.Err()
			}
		}
		s.mu.Unlock()

		// Not in the queue anymore: a Release already handed us the permit.
		select {
		case <-ready:
			s.Release()
		default:
		}
		return ctx.Err()
	}
}

// TryAcquire takes a permit without suspending. It never joins the queue.
func (s *Semaphore) TryAcquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.permits > 0 {
		s.permits--
		return true
	}
	return false
}

// Release returns a permit, waking the head waiter if one exists. Releasing
// more than was acquired panics.
func (s *Semaphore) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.waiters) > 0 {
		ready := s.waiters[0]
		s.waiters = s.waiters[1:]
		close(ready)
		return
	}

	if s.permits == s.max {
		panic("gate: release without matching acquire")
	}
	s.permits++
}

// Available returns the number of free permits.
func (s *Semaphore) Available() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.permits
}

// Waiting returns the number of suspended acquirers.
func (s *Semaphore) Waiting() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.waiters)
}
