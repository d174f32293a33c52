package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// MemoryBus is an in-process Bus used by tests and single-process setups.
// FIFO order is strict, which makes cascade traces deterministic.
type MemoryBus struct {
	mu          sync.Mutex
	queue       []Job
	outstanding *Job
}

// NewMemoryBus creates an empty in-memory bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{}
}

// Enqueue appends a job to the back of the queue.
func (b *MemoryBus) Enqueue(ctx context.Context, jobType Type, meta any) error {
	raw, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("enqueue %s: marshal meta: %w", jobType, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.queue = append(b.queue, Job{
		ID:   uuid.NewString(),
		Type: jobType,
		Meta: raw,
	})
	return nil
}

// ConsumeNext pops the front job. Returns (nil, nil) when the queue is
// empty and ErrBusyConsumer while a previous job is unacknowledged.
func (b *MemoryBus) ConsumeNext(ctx context.Context) (*Job, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.outstanding != nil {
		return nil, fmt.Errorf("%w (job %s)", ErrBusyConsumer, b.outstanding.ID)
	}
	if len(b.queue) == 0 {
		return nil, nil
	}

	job := b.queue[0]
	// Nil out the slot so the backing array does not retain the payload.
	b.queue[0] = Job{}
	if len(b.queue) == 1 {
		b.queue = b.queue[:0]
	} else {
		b.queue = b.queue[1:]
	}

	b.outstanding = &job
	cp := job
	return &cp, nil
}

// Acknowledge deletes the outstanding job, allowing the next consume.
func (b *MemoryBus) Acknowledge(ctx context.Context, jobID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.outstanding == nil {
		return ErrNoOutstandingJob
	}
	if b.outstanding.ID != jobID {
		return fmt.Errorf("%w (got %s, outstanding %s)", ErrWrongJobID, jobID, b.outstanding.ID)
	}
	b.outstanding = nil
	return nil
}

// Len returns the number of queued (not yet consumed) jobs.
func (b *MemoryBus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}
