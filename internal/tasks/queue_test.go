package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omprussia/weblate-omp/internal/config"
	"github.com/omprussia/weblate-omp/internal/txn"
)

func TestRouter_QueueFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		overrides map[string]string
		task      string
		want      string
	}{
		{name: "auto translate", task: TaskAutoTranslate, want: "translate"},
		{name: "import memory", task: TaskImportMemory, want: "memory"},
		{name: "install addon", task: TaskInstallAddon, want: "addons"},
		{name: "unrouted task", task: "cleanup", want: DefaultQueue},
		{
			name:      "override",
			overrides: map[string]string{TaskAutoTranslate: "fast"},
			task:      TaskAutoTranslate,
			want:      "fast",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, NewRouter(tt.overrides).QueueFor(tt.task))
		})
	}
}

func TestProducer_Enqueue(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	broker := NewMemoryBroker(4)
	p := NewProducer(broker, nil)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	job := AutoTranslate{
		UserID:        3,
		TranslationID: 42,
		Configuration: map[string]any{"mode": "translate", "threshold": float64(80)},
	}
	require.NoError(t, p.Enqueue(ctx, job))

	env, err := broker.Consume(ctx, "translate")
	require.NoError(t, err)
	assert.Equal(t, TaskAutoTranslate, env.Task)
	assert.Equal(t, fixed, env.EnqueuedAt)
	_, err = uuid.Parse(env.ID)
	assert.NoError(t, err)

	var decoded AutoTranslate
	require.NoError(t, json.Unmarshal(env.Args, &decoded))
	assert.Equal(t, job, decoded)
}

func TestProducer_BrokerClosed(t *testing.T) {
	t.Parallel()

	broker := NewMemoryBroker(1)
	require.NoError(t, broker.Close())

	err := NewProducer(broker, nil).Enqueue(context.Background(), ImportMemory{ProjectID: 1})
	assert.ErrorIs(t, err, ErrBrokerClosed)
}

func TestDeferred(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		run      func(ctx context.Context, m txn.Manager, q Queue) error
		wantJobs int
		wantErr  bool
	}{
		{
			name: "outside transaction enqueues immediately",
			run: func(ctx context.Context, _ txn.Manager, q Queue) error {
				return q.Enqueue(ctx, ImportMemory{ProjectID: 1})
			},
			wantJobs: 1,
		},
		{
			name: "commit flushes jobs",
			run: func(ctx context.Context, m txn.Manager, q Queue) error {
				return m.InTx(ctx, func(ctx context.Context) error {
					if err := q.Enqueue(ctx, ImportMemory{ProjectID: 1}); err != nil {
						return err
					}
					return q.Enqueue(ctx, ImportMemory{ProjectID: 2})
				})
			},
			wantJobs: 2,
		},
		{
			name: "rollback drops jobs",
			run: func(ctx context.Context, m txn.Manager, q Queue) error {
				return m.InTx(ctx, func(ctx context.Context) error {
					_ = q.Enqueue(ctx, ImportMemory{ProjectID: 1})
					return errors.New("boom")
				})
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			broker := NewMemoryBroker(4)
			q := Deferred(NewProducer(broker, nil))

			err := tt.run(ctx, txn.NewMemoryManager(), q)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}

			got := 0
			for {
				cctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
				_, err := broker.Consume(cctx, "memory")
				cancel()
				if err != nil {
					break
				}
				got++
			}
			assert.Equal(t, tt.wantJobs, got)
		})
	}
}

func TestDeferred_JobsKeepTheirArguments(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	broker := NewMemoryBroker(4)
	q := Deferred(NewProducer(broker, nil))

	cfg := map[string]any{"mode": "suggest"}
	err := txn.NewMemoryManager().InTx(ctx, func(ctx context.Context) error {
		if err := q.Enqueue(ctx, AutoTranslate{TranslationID: 1, Configuration: cfg}); err != nil {
			return err
		}
		return q.Enqueue(ctx, AutoTranslate{TranslationID: 2, Configuration: cfg})
	})
	require.NoError(t, err)

	var ids []int64
	for range 2 {
		env, err := broker.Consume(ctx, "translate")
		require.NoError(t, err)
		var job AutoTranslate
		require.NoError(t, json.Unmarshal(env.Args, &job))
		ids = append(ids, job.TranslationID)
	}
	assert.Equal(t, []int64{1, 2}, ids)
}

func TestNewBroker(t *testing.T) {
	t.Parallel()

	b, err := NewBroker(&config.QueueConfig{Broker: config.BrokerInMemory})
	require.NoError(t, err)
	assert.NoError(t, b.Close())

	b, err = NewBroker(&config.QueueConfig{Broker: config.BrokerRedis, Redis: config.RedisConfig{URL: "redis://localhost:6379/2"}})
	require.NoError(t, err)
	assert.NoError(t, b.Close())

	_, err = NewBroker(&config.QueueConfig{Broker: "amqp"})
	assert.ErrorContains(t, err, "unsupported broker")
}
