package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/omprussia/weblate-omp/internal/config"
)

// ErrBrokerClosed is returned by brokers after Close.
var ErrBrokerClosed = errors.New("broker closed")

// Envelope is the wire form of a job.
type Envelope struct {
	ID         string          `json:"id"`
	Task       string          `json:"task"`
	Args       json.RawMessage `json:"args"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// Broker moves envelopes between producers and workers.
type Broker interface {
	Publish(ctx context.Context, queue string, env Envelope) error
	// Consume blocks until an envelope is available on queue or ctx ends.
	Consume(ctx context.Context, queue string) (Envelope, error)
	Close() error
}

// NewBroker builds the broker selected in the queue configuration.
func NewBroker(cfg *config.QueueConfig) (Broker, error) {
	switch cfg.Broker {
	case config.BrokerInMemory, "":
		return NewMemoryBroker(0), nil
	case config.BrokerRedis:
		return NewRedisBroker(cfg.Redis.GetURL())
	default:
		return nil, fmt.Errorf("unsupported broker %q", cfg.Broker)
	}
}
