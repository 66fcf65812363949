package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix   = "weblate:queue:"
	redisPollTimeout = time.Second
)

type redisBroker struct {
	client *redis.Client
}

// NewRedisBroker connects to the Redis instance at url. Each queue is a
// list: producers LPUSH and workers BRPOP, so jobs are consumed in FIFO order.
func NewRedisBroker(url string) (Broker, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return &redisBroker{client: redis.NewClient(opts)}, nil
}

// NewRedisBrokerFromClient wraps an existing client.
func NewRedisBrokerFromClient(client *redis.Client) Broker {
	return &redisBroker{client: client}
}

func redisKey(queue string) string {
	return redisKeyPrefix + queue
}

func (b *redisBroker) Publish(ctx context.Context, queue string, env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to encode envelope %s: %w", env.ID, err)
	}
	if err := b.client.LPush(ctx, redisKey(queue), data).Err(); err != nil {
		return mapRedisError(fmt.Errorf("failed to publish %s to %s: %w", env.Task, queue, err))
	}
	return nil
}

func (b *redisBroker) Consume(ctx context.Context, queue string) (Envelope, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Envelope{}, err
		}

		res, err := b.client.BRPop(ctx, redisPollTimeout, redisKey(queue)).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Envelope{}, ctxErr
			}
			return Envelope{}, mapRedisError(fmt.Errorf("failed to consume %s: %w", queue, err))
		}

		// BRPOP replies with [key, value]
		var env Envelope
		if err := json.Unmarshal([]byte(res[1]), &env); err != nil {
			return Envelope{}, fmt.Errorf("failed to decode envelope from %s: %w", queue, err)
		}
		return env, nil
	}
}

func (b *redisBroker) Close() error {
	err := b.client.Close()
	if errors.Is(err, redis.ErrClosed) {
		return nil
	}
	return err
}

func mapRedisError(err error) error {
	if errors.Is(err, redis.ErrClosed) {
		return fmt.Errorf("%w: %w", ErrBrokerClosed, err)
	}
	return err
}
