// Package promise provides a single-assignment completion container used to
// deliver exactly one result from a worker back to its caller.
//
// Key operations:
// - New: create a pending promise
// - Fulfill/Reject: settle the promise once; later completions are no-ops
// - Await: block until settled or the context expires
// - Poll: non-blocking inspection of the settled result
// - Done: completion signal channel for select-based consumers
//
// A promise may be awaited by any number of observers; all of them see the
// same settled Result.
package promise
