package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type failingBroker struct{}

func (failingBroker) Publish(context.Context, Message) error { return errors.New("broker down") }
func (failingBroker) Consume(context.Context, time.Duration) (*Message, error) {
	return nil, errors.New("broker down")
}

func TestDispatcherSubmitRecordsPending(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	broker := NewMemoryBroker(10)
	d := NewDispatcher(store, broker, nil)

	id, err := d.Submit(ctx, TaskAddNumbers, AddArgs{X: 2, Y: 3})
	require.NoError(t, err)
	require.Len(t, id, 36)

	rep, err := d.Status(ctx, id)
	require.NoError(t, err)
	require.Equal(t, StatusPending, rep.Status)
	require.Empty(t, rep.Result)

	msg, err := broker.Consume(ctx, time.Second)
	require.NoError(t, err)
	require.Equal(t, id, msg.TaskID)
	require.JSONEq(t, `{"x":2,"y":3}`, string(msg.Args))
}

func TestDispatcherPublishFailureMarksFailure(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	d := NewDispatcher(store, failingBroker{}, nil)

	_, err := d.Submit(ctx, TaskSample, nil)
	require.Error(t, err)

	store.mu.RLock()
	defer store.mu.RUnlock()
	require.Len(t, store.jobs, 1)
	for _, j := range store.jobs {
		require.Equal(t, StatusFailure, j.Status)
		require.Equal(t, "broker down", j.Error)
	}
}

func TestDispatcherStatusUnknownIsPending(t *testing.T) {
	d := NewDispatcher(NewMemoryStore(), NewMemoryBroker(1), nil)
	rep, err := d.Status(context.Background(), "does-not-exist")
	require.NoError(t, err)
	require.Equal(t, &Report{TaskID: "does-not-exist", Status: StatusPending}, rep)
}

func TestDispatcherStatusShowsResultOrError(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	d := NewDispatcher(store, NewMemoryBroker(1), nil)

	require.NoError(t, store.SetStatus(ctx, "ok", StatusSuccess, "5", ""))
	require.NoError(t, store.SetStatus(ctx, "bad", StatusFailure, "", "boom"))
	require.NoError(t, store.SetStatus(ctx, "running", StatusStarted, "", ""))

	rep, _ := d.Status(ctx, "ok")
	require.Equal(t, "5", rep.Result)
	require.Empty(t, rep.Error)

	rep, _ = d.Status(ctx, "bad")
	require.Equal(t, "boom", rep.Error)

	rep, _ = d.Status(ctx, "running")
	require.Equal(t, StatusStarted, rep.Status)
	require.Empty(t, rep.Result)
}
