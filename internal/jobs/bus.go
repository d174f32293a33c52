package jobs

import (
	"context"
	"errors"
)

// Bus contract violations. These indicate a programming error in the
// consumer, not a transient condition: they are surfaced immediately and
// never retried.
var (
	// ErrBusyConsumer is returned by ConsumeNext while a previously
	// consumed job has not been acknowledged.
	ErrBusyConsumer = errors.New("jobs: previous job not yet acknowledged")

	// ErrNoOutstandingJob is returned by Acknowledge when no job is
	// outstanding.
	ErrNoOutstandingJob = errors.New("jobs: no outstanding job to acknowledge")

	// ErrWrongJobID is returned by Acknowledge when the id does not match
	// the outstanding job.
	ErrWrongJobID = errors.New("jobs: acknowledge id does not match outstanding job")
)

// Bus is a single-consumer-at-a-time FIFO job queue.
//
// A consumer instance may hold at most one unacknowledged job: ConsumeNext
// fails with ErrBusyConsumer until the previous job is acknowledged.
// ConsumeNext returns (nil, nil) when the queue is empty.
//
// Delivery is at-least-once; handlers are expected to be idempotent by
// content, so duplicate or out-of-order execution is harmless.
type Bus interface {
	Enqueue(ctx context.Context, jobType Type, meta any) error
	ConsumeNext(ctx context.Context) (*Job, error)
	Acknowledge(ctx context.Context, jobID string) error
}
