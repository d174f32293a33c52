package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// fetchWait bounds how long an empty ConsumeNext blocks on the server
// before reporting an empty queue.
const fetchWait = 250 * time.Millisecond

// NATSBus is a Bus backed by a NATS JetStream work queue, for deployments
// where multiple worker processes share the rebuild queue. Each NATSBus
// instance is one consumer and enforces the one-outstanding-job contract
// locally; the work-queue retention policy ensures each job is delivered
// to exactly one consumer at a time.
type NATSBus struct {
	nc      *nats.Conn
	js      nats.JetStreamContext
	sub     *nats.Subscription
	subject string

	mu            sync.Mutex
	outstanding   *nats.Msg
	outstandingID string
}

// ConnectNATS connects to a NATS server, ensures the stream exists and
// binds a durable pull consumer to it.
func ConnectNATS(url, stream, subject, durable string) (*NATSBus, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	_, err = js.AddStream(&nats.StreamConfig{
		Name:      stream,
		Subjects:  []string{subject},
		Retention: nats.WorkQueuePolicy,
	})
	if err != nil && !errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
		nc.Close()
		return nil, fmt.Errorf("add stream %s: %w", stream, err)
	}

	sub, err := js.PullSubscribe(subject, durable)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("pull subscribe %s: %w", subject, err)
	}

	return &NATSBus{nc: nc, js: js, sub: sub, subject: subject}, nil
}

// Close drains the connection.
func (b *NATSBus) Close() error {
	return b.nc.Drain()
}

// Enqueue publishes a job to the stream.
func (b *NATSBus) Enqueue(ctx context.Context, jobType Type, meta any) error {
	raw, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("enqueue %s: marshal meta: %w", jobType, err)
	}
	payload, err := json.Marshal(Job{
		ID:   uuid.NewString(),
		Type: jobType,
		Meta: raw,
	})
	if err != nil {
		return fmt.Errorf("enqueue %s: marshal job: %w", jobType, err)
	}
	if _, err := b.js.Publish(b.subject, payload, nats.Context(ctx)); err != nil {
		return fmt.Errorf("enqueue %s: publish: %w", jobType, err)
	}
	return nil
}

// ConsumeNext fetches one job. Returns (nil, nil) when the queue is empty
// within the fetch window and ErrBusyConsumer while a previous job is
// unacknowledged.
func (b *NATSBus) ConsumeNext(ctx context.Context) (*Job, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.outstanding != nil {
		return nil, fmt.Errorf("%w (job %s)", ErrBusyConsumer, b.outstandingID)
	}

	msgs, err := b.sub.Fetch(1, nats.MaxWait(fetchWait))
	if err != nil {
		if errors.Is(err, nats.ErrTimeout) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch job: %w", err)
	}
	if len(msgs) == 0 {
		return nil, nil
	}

	var job Job
	if err := json.Unmarshal(msgs[0].Data, &job); err != nil {
		// A malformed payload is a producer/consumer version mismatch;
		// terminate the message so it cannot poison the queue.
		_ = msgs[0].Term()
		return nil, fmt.Errorf("unmarshal job payload: %w", err)
	}

	b.outstanding = msgs[0]
	b.outstandingID = job.ID
	return &job, nil
}

// Acknowledge acks the outstanding message, allowing the next consume.
func (b *NATSBus) Acknowledge(ctx context.Context, jobID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.outstanding == nil {
		return ErrNoOutstandingJob
	}
	if b.outstandingID != jobID {
		return fmt.Errorf("%w (got %s, outstanding %s)", ErrWrongJobID, jobID, b.outstandingID)
	}
	if err := b.outstanding.Ack(); err != nil {
		return fmt.Errorf("ack job %s: %w", jobID, err)
	}
	b.outstanding = nil
	b.outstandingID = ""
	return nil
}
