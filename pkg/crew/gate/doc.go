// Package gate implements a counting semaphore with fair FIFO queueing, used
// to bound how many workers run at once.
//
// Key operations:
// - New: create a semaphore with a fixed number of permits
// - Acquire: take a permit, suspending in arrival order when none is free
// - TryAcquire: take a permit without suspending
// - Release: hand the permit to the head waiter, or return it to the pool
//
// Release transfers ownership to the next waiter directly, which keeps the
// queue fair and avoids lost wakeups under contention.
package gate
