package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/omprussia/weblate-omp/internal/telemetry"
	"github.com/omprussia/weblate-omp/internal/txn"
)

// Queue schedules jobs.
//
//go:generate mockgen -destination=mocks/mock_queue.go -package=mocks -source=queue.go Queue
type Queue interface {
	Enqueue(ctx context.Context, job Job) error
}

// Producer publishes jobs to a broker, routing each task to its queue.
type Producer struct {
	broker  Broker
	router  *Router
	metrics *telemetry.Metrics
	now     func() time.Time
}

// ProducerOption configures a Producer
type ProducerOption func(*Producer)

// WithProducerMetrics counts scheduled jobs
func WithProducerMetrics(m *telemetry.Metrics) ProducerOption {
	return func(p *Producer) {
		p.metrics = m
	}
}

// NewProducer returns a Queue backed by broker.
func NewProducer(broker Broker, router *Router, opts ...ProducerOption) *Producer {
	if router == nil {
		router = NewRouter(nil)
	}
	p := &Producer{broker: broker, router: router, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Enqueue implements Queue
func (p *Producer) Enqueue(ctx context.Context, job Job) error {
	args, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode %s arguments: %w", job.TaskName(), err)
	}

	env := Envelope{
		ID:         uuid.NewString(),
		Task:       job.TaskName(),
		Args:       args,
		EnqueuedAt: p.now().UTC(),
	}
	queue := p.router.QueueFor(env.Task)
	if err := p.broker.Publish(ctx, queue, env); err != nil {
		return err
	}

	p.metrics.RecordJobScheduled(ctx, env.Task)
	slog.DebugContext(ctx, "Job scheduled", "task", env.Task, "queue", queue, "id", env.ID)
	return nil
}

type deferredQueue struct {
	next Queue
}

// Deferred wraps next so each Enqueue waits for the transaction carried by
// the context to commit. Jobs of a rolled back transaction are dropped.
// Outside a transaction jobs are enqueued immediately.
func Deferred(next Queue) Queue {
	return &deferredQueue{next: next}
}

func (q *deferredQueue) Enqueue(ctx context.Context, job Job) error {
	if !txn.InTransaction(ctx) {
		return q.next.Enqueue(ctx, job)
	}
	txn.OnCommit(ctx, func(ctx context.Context) error {
		return q.next.Enqueue(ctx, job)
	})
	return nil
}
