package crew

import (
	"errors"
	"fmt"
)

var (
	// ErrChannelClosed is returned by send and receive operations against a
	// closed, drained channel.
	ErrChannelClosed = errors.New("channel is closed")

	// ErrWorkerKilled is returned when a worker is terminated by KillAll
	// before it could deliver its result.
	ErrWorkerKilled = errors.New("worker was killed")

	// ErrEmptyRace is the reason carried by the usage error for a race over
	// an empty task list.
	ErrEmptyRace = errors.New("race requires at least one task")
)

// UsageError reports an invalid argument detected before any worker spawns.
type UsageError struct {
	Op     string
	Reason string
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

func NewUsageError(op, reason string) error {
	return &UsageError{Op: op, Reason: reason}
}

// IsUsageError checks if an error is a UsageError
func IsUsageError(err error) bool {
	var ue *UsageError
	return errors.As(err, &ue)
}

// TaskError wraps a failure (returned error or recovered panic) that occurred
// inside a task body, captured at the worker boundary.
type TaskError struct {
	Worker string
	Err    error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("worker %s failed: %v", e.Worker, e.Err)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

func NewTaskError(worker string, err error) error {
	return &TaskError{Worker: worker, Err: err}
}

// WorkerName returns the worker name from a TaskError if the error is one.
func WorkerName(err error) (string, bool) {
	var te *TaskError
	if errors.As(err, &te) {
		return te.Worker, true
	}
	return "", false
}

// AggregateError is produced by a race whose every task failed. It carries
// the number of failures and the last error observed.
type AggregateError struct {
	Count int
	Last  error
}

func (e *AggregateError) Error() string {
	return fmt.Sprintf("all %d tasks failed, last: %v", e.Count, e.Last)
}

func (e *AggregateError) Unwrap() error {
	return e.Last
}
