package tasks

import (
	"context"
	"errors"
	"sync"
)

// EagerBroker runs every published job inline on the bound pool. One-shot
// commands use it so their jobs complete before the process exits.
type EagerBroker struct {
	mu     sync.RWMutex
	pool   *Pool
	closed chan struct{}
	once   sync.Once
}

// NewEagerBroker returns a broker that must be bound to a pool with Bind
// before jobs are published.
func NewEagerBroker() *EagerBroker {
	return &EagerBroker{closed: make(chan struct{})}
}

// Bind sets the pool that processes published jobs
func (b *EagerBroker) Bind(p *Pool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pool = p
}

// Publish processes env before returning. Job failures are logged by the
// pool and not returned.
func (b *EagerBroker) Publish(ctx context.Context, _ string, env Envelope) error {
	select {
	case <-b.closed:
		return ErrBrokerClosed
	default:
	}

	b.mu.RLock()
	p := b.pool
	b.mu.RUnlock()
	if p == nil {
		return errors.New("eager broker is not bound to a worker pool")
	}
	p.Process(ctx, env)
	return nil
}

// Consume never yields a job.
func (b *EagerBroker) Consume(ctx context.Context, _ string) (Envelope, error) {
	select {
	case <-b.closed:
		return Envelope{}, ErrBrokerClosed
	case <-ctx.Done():
		return Envelope{}, ctx.Err()
	}
}

// Close implements Broker
func (b *EagerBroker) Close() error {
	b.once.Do(func() { close(b.closed) })
	return nil
}
