package tasks

import (
	"context"
	"sync"
)

const defaultMemoryCapacity = 1024

type memoryBroker struct {
	mu       sync.Mutex
	capacity int
	queues   map[string]chan Envelope
	closed   chan struct{}
	once     sync.Once
}

// NewMemoryBroker returns a process-local broker with one buffered channel
// per queue. capacity <= 0 uses a default.
func NewMemoryBroker(capacity int) Broker {
	if capacity <= 0 {
		capacity = defaultMemoryCapacity
	}
	return &memoryBroker{
		capacity: capacity,
		queues:   make(map[string]chan Envelope),
		closed:   make(chan struct{}),
	}
}

func (b *memoryBroker) queue(name string) chan Envelope {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch, ok := b.queues[name]
	if !ok {
		ch = make(chan Envelope, b.capacity)
		b.queues[name] = ch
	}
	return ch
}

func (b *memoryBroker) Publish(ctx context.Context, queue string, env Envelope) error {
	select {
	case <-b.closed:
		return ErrBrokerClosed
	default:
	}

	select {
	case b.queue(queue) <- env:
		return nil
	case <-b.closed:
		return ErrBrokerClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *memoryBroker) Consume(ctx context.Context, queue string) (Envelope, error) {
	select {
	case env := <-b.queue(queue):
		return env, nil
	case <-b.closed:
		return Envelope{}, ErrBrokerClosed
	case <-ctx.Done():
		return Envelope{}, ctx.Err()
	}
}

func (b *memoryBroker) Close() error {
	b.once.Do(func() { close(b.closed) })
	return nil
}
