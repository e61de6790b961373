package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Broker moves job messages from submitters to workers.
type Broker interface {
	Publish(ctx context.Context, msg Message) error
	// Consume waits up to timeout for a message. It returns nil, nil when
	// nothing arrived in time.
	Consume(ctx context.Context, timeout time.Duration) (*Message, error)
}

// RedisBroker is a FIFO queue on a Redis list: LPUSH to publish, BRPOP to consume.
type RedisBroker struct {
	client *redis.Client
	key    string
}

func NewRedisBroker(client *redis.Client, key string) *RedisBroker {
	if key == "" {
		key = "jobs:queue"
	}
	return &RedisBroker{client: client, key: key}
}

func (b *RedisBroker) Publish(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode job message: %w", err)
	}
	if err := b.client.LPush(ctx, b.key, payload).Err(); err != nil {
		return fmt.Errorf("publish job %s: %w", msg.TaskID, err)
	}
	return nil
}

func (b *RedisBroker) Consume(ctx context.Context, timeout time.Duration) (*Message, error) {
	res, err := b.client.BRPop(ctx, timeout, b.key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	// res is [key, value]
	if len(res) != 2 {
		return nil, fmt.Errorf("unexpected BRPOP reply of length %d", len(res))
	}
	var msg Message
	if err := json.Unmarshal([]byte(res[1]), &msg); err != nil {
		return nil, fmt.Errorf("decode job message: %w", err)
	}
	return &msg, nil
}

// MemoryBroker is an in-process broker for tests and Redis-less runs.
type MemoryBroker struct {
	ch chan Message
}

func NewMemoryBroker(size int) *MemoryBroker {
	if size <= 0 {
		size = 100
	}
	return &MemoryBroker{ch: make(chan Message, size)}
}

var ErrQueueFull = errors.New("job queue is full")

func (b *MemoryBroker) Publish(ctx context.Context, msg Message) error {
	select {
	case b.ch <- msg:
		return nil
	default:
		return fmt.Errorf("%w: capacity %d reached", ErrQueueFull, cap(b.ch))
	}
}

func (b *MemoryBroker) Consume(ctx context.Context, timeout time.Duration) (*Message, error) {
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case msg := <-b.ch:
		return &msg, nil
	case <-t.C:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
