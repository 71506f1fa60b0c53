package combine

import (
	"context"
	"sync"

	"github.com/ib-77/crew/pkg/crew"
	"github.com/ib-77/crew/pkg/crew/stream"
)

// Select resolves with the index and value of whichever channel produces
// first, withdrawing the receive from every other source upon resolution.
func Select[T any](ctx context.Context, channels ...*stream.Channel[T]) (int, T, error) {
	var zero T
	if len(channels) == 0 {
		return -1, zero, crew.NewUsageError("combine.Select", "requires at least one channel")
	}
	return stream.ReceiveAny(ctx, channels...)
}

// Merge interleaves the results of every source sequence. A failed result is
// forwarded immediately and ends the merge; otherwise the output completes
// only once every source has completed. Order is preserved within each
// source, never across sources.
func Merge[T any](ctx context.Context, sources ...<-chan crew.Result[T]) <-chan crew.Result[T] {
	out := make(chan crew.Result[T])

	merged, cancel := context.WithCancel(ctx)
	wg := &sync.WaitGroup{}

	for _, source := range sources {
		wg.Add(1)
		go func(source <-chan crew.Result[T]) {
			defer wg.Done()

			for {
				select {
				case <-merged.Done():
					return
				case r, ok := <-source:
					if !ok {
						return
					}

					select {
					case out <- r:
						if r.IsFailure() {
							cancel()
							return
						}
					case <-merged.Done():
						return
					}
				}
			}
		}(source)
	}

	go func() {
		wg.Wait()
		cancel()
		close(out)
	}()

	return out
}

// MergeChannels interleaves live values from every input channel, completing
// only once all of them are closed and drained.
func MergeChannels[T any](ctx context.Context, channels ...*stream.Channel[T]) <-chan T {
	out := make(chan T)
	wg := &sync.WaitGroup{}

	for _, c := range channels {
		wg.Add(1)
		go func(c *stream.Channel[T]) {
			defer wg.Done()

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
		}(c)
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	return out
}

// Pipeline applies a one-to-one transform over source, terminating exactly
// when source terminates. Failed results pass through untransformed; a
// transform error becomes a failed result.
func Pipeline[In, Out any](ctx context.Context, source <-chan crew.Result[In],
	transform func(ctx context.Context, in In) (Out, error)) <-chan crew.Result[Out] {

	out := make(chan crew.Result[Out])

	go func() {
		defer close(out)

		for {
			select {
			case <-ctx.Done():
				return
			case r, ok := <-source:
				if !ok {
					return
				}

				var next crew.Result[Out]
				if r.IsSuccess() {
					v, err := transform(ctx, r.Result())
					if err != nil {
						next = crew.Fail[Out](err)
					} else {
						next = crew.Success(v)
					}
				} else {
					next = crew.FailFrom[In, Out](r)
				}

				select {
				case out <- next:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out
}

// ToResults lifts plain values into a Result sequence, the usual head of a
// Pipeline.
func ToResults[T any](ctx context.Context, values []T) <-chan crew.Result[T] {
	out := make(chan crew.Result[T])

	go func() {
		defer close(out)

		for _, v := range values {
			select {
			case out <- crew.Success(v):
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

// Collect drains a sequence into a slice, stopping early when ctx expires.
func Collect[T any](ctx context.Context, in <-chan T) []T {
	res := make([]T, 0)
	for {
		select {
		case v, ok := <-in:
			if !ok {
				return res
			}
			res = append(res, v)
		case <-ctx.Done():
			return res
		}
	}
}

// Results adapts a channel into a Result sequence suitable for Merge and
// Pipeline: buffered values first, then live values, completing cleanly on
// closed-and-empty.
func Results[T any](ctx context.Context, c *stream.Channel[T]) <-chan crew.Result[T] {
	out := make(chan crew.Result[T])

	go func() {
		defer close(out)

		for v := range c.Drain(ctx) {
			select {
			case out <- crew.Success(v):
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}
