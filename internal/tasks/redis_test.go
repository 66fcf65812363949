package tasks

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisBroker(t *testing.T) (Broker, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	b, err := NewRedisBroker("redis://" + mr.Addr() + "/0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b, mr
}

func TestRedisBroker_PublishConsume(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	b, mr := newTestRedisBroker(t)

	first := Envelope{ID: "1", Task: TaskImportMemory, Args: json.RawMessage(`{"project_id":1}`), EnqueuedAt: time.Unix(0, 0).UTC()}
	second := Envelope{ID: "2", Task: TaskImportMemory, Args: json.RawMessage(`{"project_id":2}`), EnqueuedAt: time.Unix(0, 0).UTC()}
	require.NoError(t, b.Publish(ctx, "memory", first))
	require.NoError(t, b.Publish(ctx, "memory", second))

	items, err := mr.List("weblate:queue:memory")
	require.NoError(t, err)
	assert.Len(t, items, 2)

	got, err := b.Consume(ctx, "memory")
	require.NoError(t, err)
	assert.Equal(t, "1", got.ID)
	assert.JSONEq(t, `{"project_id":1}`, string(got.Args))

	got, err = b.Consume(ctx, "memory")
	require.NoError(t, err)
	assert.Equal(t, "2", got.ID)
}

func TestRedisBroker_ConsumeHonoursContext(t *testing.T) {
	t.Parallel()

	b, _ := newTestRedisBroker(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.Consume(ctx, "translate")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRedisBroker_InvalidEnvelope(t *testing.T) {
	t.Parallel()

	b, mr := newTestRedisBroker(t)
	_, err := mr.Lpush("weblate:queue:translate", "not json")
	require.NoError(t, err)

	_, err = b.Consume(context.Background(), "translate")
	assert.ErrorContains(t, err, "failed to decode envelope")
}

func TestRedisBroker_Closed(t *testing.T) {
	t.Parallel()

	b, _ := newTestRedisBroker(t)
	require.NoError(t, b.Close())

	err := b.Publish(context.Background(), "memory", Envelope{ID: "x"})
	assert.ErrorIs(t, err, ErrBrokerClosed)
}

func TestNewRedisBroker_InvalidURL(t *testing.T) {
	t.Parallel()

	_, err := NewRedisBroker("http://not-redis")
	assert.ErrorContains(t, err, "invalid redis url")
}

func TestProducer_WithRedis(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	b, mr := newTestRedisBroker(t)
	p := NewProducer(b, NewRouter(nil))

	require.NoError(t, p.Enqueue(ctx, InstallAddon{Addon: "weblate.synchronize.translations", Username: "admin"}))

	items, err := mr.List("weblate:queue:addons")
	require.NoError(t, err)
	require.Len(t, items, 1)

	var env Envelope
	require.NoError(t, json.Unmarshal([]byte(items[0]), &env))
	assert.Equal(t, TaskInstallAddon, env.Task)
	assert.JSONEq(t, `{"addon":"weblate.synchronize.translations","username":"admin"}`, string(env.Args))
}
