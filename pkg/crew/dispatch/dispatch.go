package dispatch

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/ib-77/crew/pkg/crew"
	"github.com/ib-77/crew/pkg/crew/gate"
	"github.com/ib-77/crew/pkg/crew/promise"
)

// Task is a deferred unit of work handed to the dispatcher. It runs inside an
// isolated worker; no shared mutable state should cross the task boundary.
type Task[T any] func(ctx context.Context) (T, error)

type worker struct {
	name string
	kill chan struct{}
}

// Dispatcher spawns one worker per task and delivers exactly one result per
// launch through a promise. Each Dispatcher owns its registry; independent
// instances do not share state.
type Dispatcher struct {
	mu      sync.Mutex
	workers map[string]*worker
}

func New() *Dispatcher {
	return &Dispatcher{
		workers: make(map[string]*worker),
	}
}

// Launch runs task in a fresh worker under a generated name.
func Launch[T any](ctx context.Context, d *Dispatcher, task Task[T]) *promise.Promise[T] {
	return LaunchNamed(ctx, d, uuid.NewString(), task)
}

// LaunchNamed runs task in a fresh worker registered under name. The worker
// sends back exactly one message, success or failure; the promise settles on
// that first message and the worker is deregistered on every path. A panic
// inside the task is captured at the worker boundary and delivered as a
// failure; it never crashes the dispatcher or sibling tasks.
func LaunchNamed[T any](ctx context.Context, d *Dispatcher, name string, task Task[T]) *promise.Promise[T] {
	p := promise.New[T]()
	w := d.register(name)

	results := make(chan crew.Result[T], 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				results <- crew.Fail[T](crew.NewTaskError(name, fmt.Errorf("panic: %v", r)))
			}
		}()

		v, err := task(ctx)
		if err != nil {
			results <- crew.Fail[T](crew.NewTaskError(name, err))
			return
		}
		results <- crew.Success(v)
	}()

	go func() {
		defer d.deregister(name)

		select {
		case r := <-results:
			if r.IsSuccess() {
				p.Fulfill(r.Result())
			} else {
				p.Reject(r.Err())
			}
		case <-w.kill:
			// Killed worker: the promise is discarded and never settles.
		}
	}()

	return p
}

type outcome[T any] struct {
	idx int
	val T
	err error
}

// LaunchAll launches every task concurrently, one worker each, and resolves
// to the results in input order. It fails with the first observed failure;
// the remaining workers are not cancelled and may keep running.
func LaunchAll[T any](ctx context.Context, d *Dispatcher, tasks []Task[T]) *promise.Promise[[]T] {
	all := promise.New[[]T]()

	promises := make([]*promise.Promise[T], len(tasks))
	for i, task := range tasks {
		promises[i] = Launch(ctx, d, task)
	}

	done := make(chan outcome[T], len(promises))
	for i, p := range promises {
		go func(idx int, p *promise.Promise[T]) {
			v, err := p.Await(ctx)
			done <- outcome[T]{idx: idx, val: v, err: err}
		}(i, p)
	}

	go func() {
		results := make([]T, len(promises))
		for range promises {
			o := <-done
			if o.err != nil {
				all.Reject(o.err)
				return
			}
			results[o.idx] = o.val
		}
		all.Fulfill(results)
	}()

	return all
}

// Race launches every task concurrently and resolves with the first success.
// Failures only settle the race once all tasks have failed, as an
// AggregateError carrying the last observed error. Losing tasks keep running;
// their results are discarded.
func Race[T any](ctx context.Context, d *Dispatcher, tasks []Task[T]) (*promise.Promise[T], error) {
	if len(tasks) == 0 {
		return nil, crew.NewUsageError("dispatch.Race", crew.ErrEmptyRace.Error())
	}

	winner := promise.New[T]()

	var mu sync.Mutex
	failed := 0
	var last error

	for _, task := range tasks {
		p := Launch(ctx, d, task)
		go func(p *promise.Promise[T]) {
			v, err := p.Await(ctx)
			if err == nil {
				winner.Fulfill(v)
				return
			}

			mu.Lock()
			failed++
			last = err
			lost := failed == len(tasks)
			mu.Unlock()

			if lost {
				winner.Reject(&crew.AggregateError{Count: len(tasks), Last: last})
			}
		}(p)
	}

	return winner, nil
}

// LaunchWithLimit launches tasks with at most concurrency workers running
// simultaneously. Results preserve input order regardless of completion
// order. The permit is released on every exit path.
func LaunchWithLimit[T any](ctx context.Context, d *Dispatcher, tasks []Task[T], concurrency int) (*promise.Promise[[]T], error) {
	sem, err := gate.New(concurrency)
	if err != nil {
		return nil, crew.NewUsageError("dispatch.LaunchWithLimit", "concurrency must be positive")
	}

	all := promise.New[[]T]()
	done := make(chan outcome[T], len(tasks))

	for i, task := range tasks {
		go func(idx int, task Task[T]) {
			if err := sem.Acquire(ctx); err != nil {
				done <- outcome[T]{idx: idx, err: err}
				return
			}
			defer sem.Release()

			v, err := Launch(ctx, d, task).Await(ctx)
			done <- outcome[T]{idx: idx, val: v, err: err}
		}(i, task)
	}

	go func() {
		results := make([]T, len(tasks))
		for range tasks {
			o := <-done
			if o.err != nil {
				all.Reject(o.err)
				return
			}
			results[o.idx] = o.val
		}
		all.Fulfill(results)
	}()

	return all, nil
}

// KillAll forcibly terminates every outstanding worker and discards their
// promises. In-flight launches whose worker is killed never settle.
func (d *Dispatcher) KillAll() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, w := range d.workers {
		close(w.kill)
	}
	d.workers = make(map[string]*worker)
}

// ActiveWorkerCount returns the number of registered workers.
func (d *Dispatcher) ActiveWorkerCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.workers)
}

// ActiveWorkerNames returns the names of registered workers, in no
// particular order.
func (d *Dispatcher) ActiveWorkerNames() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	names := make([]string, 0, len(d.workers))
	for name := range d.workers {
		names = append(names, name)
	}
	return names
}

func (d *Dispatcher) register(name string) *worker {
	d.mu.Lock()
	defer d.mu.Unlock()

	w := &worker{name: name, kill: make(chan struct{})}
	d.workers[name] = w
	return w
}

func (d *Dispatcher) deregister(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.workers, name)
}
