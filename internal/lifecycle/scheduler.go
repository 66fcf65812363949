package lifecycle

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"
)

// DailyRunner runs the daily addon tick.
type DailyRunner interface {
	RunDaily(ctx context.Context) error
}

// Scheduler fires the daily tick periodically.
type Scheduler struct {
	runner   DailyRunner
	interval time.Duration

	mu         sync.Mutex
	cancelFunc context.CancelFunc
	done       chan struct{}
}

// NewScheduler returns a scheduler ticking every interval.
func NewScheduler(runner DailyRunner, interval time.Duration) *Scheduler {
	return &Scheduler{
		runner:   runner,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// nextInterval applies a jitter of up to 5% either way so replicas started
// together spread their ticks.
func nextInterval(base time.Duration) time.Duration {
	jitter := base / 20
	if jitter <= 0 {
		return base
	}
	//nolint:gosec // G404: Non-cryptographic randomness is sufficient for scheduling jitter
	offset := time.Duration(rand.Int64N(int64(2*jitter))) - jitter
	return base + offset
}

// Start runs the loop until ctx is cancelled or Stop is called. The first
// tick fires one interval after start.
func (s *Scheduler) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancelFunc = cancel
	s.mu.Unlock()
	defer func() {
		close(s.done)
		slog.Info("Daily scheduler shutting down")
	}()

	interval := nextInterval(s.interval)
	slog.Info("Starting daily scheduler", "base_interval", s.interval, "actual_interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.runner.RunDaily(ctx); err != nil {
				slog.Error("Daily tick finished with errors", "error", err)
			}
			ticker.Reset(nextInterval(s.interval))
		case <-ctx.Done():
			return nil
		}
	}
}

// Stop cancels the loop and waits for it to return.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	cancel := s.cancelFunc
	s.mu.Unlock()
	if cancel != nil {
		slog.Info("Stopping daily scheduler")
		cancel()
		<-s.done
	}
	return nil
}
