// Package dispatch fans tasks out to isolated workers and delivers exactly
// one result per task through a promise.
//
// Key operations:
// - Launch/LaunchNamed: run one task in a fresh worker
// - LaunchAll: run many tasks concurrently, results in input order
// - LaunchWithLimit: bound simultaneous workers with a semaphore
// - Race: resolve with the first success, fail once every task has failed
// - KillAll: terminate every outstanding worker, discarding promises
//
// Failures inside a task are captured at the worker boundary and delivered as
// failed promises; they never crash the dispatcher or sibling tasks. There is
// no cooperative cancellation: callers wanting timeouts wrap Await with a
// deadline context, accepting that the worker may keep running with its
// result discarded.
package dispatch
