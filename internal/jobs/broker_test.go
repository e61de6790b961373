package jobs

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestRedisBrokerFIFO(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	b := NewRedisBroker(redis.NewClient(&redis.Options{Addr: m.Addr()}), "test:jobs")
	ctx := context.Background()

	require.NoError(t, b.Publish(ctx, Message{TaskID: "1", Name: TaskSample}))
	require.NoError(t, b.Publish(ctx, Message{TaskID: "2", Name: TaskAddNumbers, Args: json.RawMessage(`{"x":1,"y":2}`)}))

	list, err := m.List("test:jobs")
	require.NoError(t, err)
	require.Len(t, list, 2)

	first, err := b.Consume(ctx, time.Second)
	require.NoError(t, err)
	require.Equal(t, "1", first.TaskID)

	second, err := b.Consume(ctx, time.Second)
	require.NoError(t, err)
	require.Equal(t, TaskAddNumbers, second.Name)
	require.JSONEq(t, `{"x":1,"y":2}`, string(second.Args))
}

func TestRedisBrokerRejectsGarbage(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	_, err = m.Lpush("jobs:queue", "not json")
	require.NoError(t, err)

	b := NewRedisBroker(redis.NewClient(&redis.Options{Addr: m.Addr()}), "")
	_, err = b.Consume(context.Background(), time.Second)
	require.Error(t, err)
}

func TestMemoryBroker(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBroker(1)

	msg, err := b.Consume(ctx, 10*time.Millisecond)
	require.NoError(t, err)
	require.Nil(t, msg)

	require.NoError(t, b.Publish(ctx, Message{TaskID: "a"}))
	require.ErrorIs(t, b.Publish(ctx, Message{TaskID: "b"}), ErrQueueFull)

	msg, err = b.Consume(ctx, time.Second)
	require.NoError(t, err)
	require.Equal(t, "a", msg.TaskID)

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	_, err = b.Consume(cctx, time.Second)
	require.ErrorIs(t, err, context.Canceled)
}
