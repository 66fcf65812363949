package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/omprussia/weblate-omp/internal/telemetry"
)

const consumeErrorBackoff = time.Second

// Handler executes one job from its encoded arguments.
type Handler func(ctx context.Context, args json.RawMessage) error

// Pool runs workers that consume queues and dispatch jobs by task name.
type Pool struct {
	broker  Broker
	queues  []string
	workers int
	metrics *telemetry.Metrics

	mu       sync.RWMutex
	handlers map[string]Handler
}

// PoolOption configures a Pool
type PoolOption func(*Pool)

// WithPoolMetrics counts processed jobs
func WithPoolMetrics(m *telemetry.Metrics) PoolOption {
	return func(p *Pool) {
		p.metrics = m
	}
}

// NewPool returns a pool running workers goroutines per queue.
func NewPool(broker Broker, queues []string, workers int, opts ...PoolOption) *Pool {
	if workers <= 0 {
		workers = 1
	}
	p := &Pool{
		broker:   broker,
		queues:   queues,
		workers:  workers,
		handlers: make(map[string]Handler),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Handle registers h for task, replacing any previous handler.
func (p *Pool) Handle(task string, h Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers[task] = h
}

// Register decodes the arguments into T before calling fn.
func Register[T Job](p *Pool, fn func(ctx context.Context, job T) error) {
	var zero T
	p.Handle(zero.TaskName(), func(ctx context.Context, args json.RawMessage) error {
		var job T
		if err := json.Unmarshal(args, &job); err != nil {
			return fmt.Errorf("failed to decode %s arguments: %w", zero.TaskName(), err)
		}
		return fn(ctx, job)
	})
}

// Run blocks until ctx is cancelled or the broker is closed.
func (p *Pool) Run(ctx context.Context) error {
	slog.InfoContext(ctx, "Starting job workers", "queues", p.queues, "workers_per_queue", p.workers)

	g, gctx := errgroup.WithContext(ctx)
	for _, queue := range p.queues {
		for range p.workers {
			g.Go(func() error {
				return p.work(gctx, queue)
			})
		}
	}
	err := g.Wait()
	slog.InfoContext(ctx, "Job workers stopped")
	return err
}

func (p *Pool) work(ctx context.Context, queue string) error {
	for {
		env, err := p.broker.Consume(ctx, queue)
		switch {
		case err == nil:
			p.Process(ctx, env)
		case ctx.Err() != nil, errors.Is(err, ErrBrokerClosed):
			return nil
		default:
			slog.ErrorContext(ctx, "Failed to consume job", "queue", queue, "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(consumeErrorBackoff):
			}
		}
	}
}

// Process runs the handler of one envelope. Failures are logged and
// counted; they never stop the worker.
func (p *Pool) Process(ctx context.Context, env Envelope) {
	start := time.Now()
	err := p.dispatch(ctx, env)
	duration := time.Since(start)
	p.metrics.RecordJobProcessed(ctx, env.Task, err == nil, duration)

	if err != nil {
		slog.ErrorContext(ctx, "Job failed",
			"task", env.Task,
			"id", env.ID,
			"duration", duration.String(),
			"error", err)
		return
	}
	slog.InfoContext(ctx, "Job completed",
		"task", env.Task,
		"id", env.ID,
		"duration", duration.String())
}

func (p *Pool) dispatch(ctx context.Context, env Envelope) (err error) {
	p.mu.RLock()
	h, ok := p.handlers[env.Task]
	p.mu.RUnlock()
	if !ok {
		return fmt.Errorf("no handler registered for task %q", env.Task)
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %s panicked: %v", env.Task, r)
		}
	}()
	return h(ctx, env.Args)
}
