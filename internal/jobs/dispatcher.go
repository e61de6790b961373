package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/docdesk/docdesk/backend/go-services/pkg/logger"
	"github.com/docdesk/docdesk/backend/go-services/pkg/metrics"
)

// Submitter enqueues jobs by name.
type Submitter interface {
	Submit(ctx context.Context, name string, args interface{}) (string, error)
}

// Dispatcher records jobs in the Store and publishes them to the Broker.
type Dispatcher struct {
	store  Store
	broker Broker
	log    *logger.Logger
}

func NewDispatcher(store Store, broker Broker, log *logger.Logger) *Dispatcher {
	if log == nil {
		log = logger.Nop()
	}
	return &Dispatcher{store: store, broker: broker, log: log}
}

// Submit writes a PENDING record, publishes the job and returns its id
// without waiting for it to run.
func (d *Dispatcher) Submit(ctx context.Context, name string, args interface{}) (string, error) {
	var raw json.RawMessage
	if args != nil {
		b, err := json.Marshal(args)
		if err != nil {
			return "", fmt.Errorf("encode args for %s: %w", name, err)
		}
		raw = b
	}
	now := time.Now().UTC()
	j := &Job{
		TaskID:    uuid.NewString(),
		Name:      name,
		Args:      raw,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := d.store.Save(ctx, j); err != nil {
		return "", fmt.Errorf("record job %s: %w", name, err)
	}
	if err := d.broker.Publish(ctx, Message{TaskID: j.TaskID, Name: name, Args: raw}); err != nil {
		if serr := d.store.SetStatus(ctx, j.TaskID, StatusFailure, "", err.Error()); serr != nil {
			d.log.Errorf("mark job %s failed: %v", j.TaskID, serr)
		}
		return "", err
	}
	metrics.JobsSubmitted.WithLabelValues(name).Inc()
	d.log.Debugf("job %s (%s) queued", j.TaskID, name)
	return j.TaskID, nil
}

// Status reports the state of a job. Unknown ids report PENDING.
func (d *Dispatcher) Status(ctx context.Context, taskID string) (*Report, error) {
	j, err := d.store.Get(ctx, taskID)
	if errors.Is(err, ErrJobNotFound) {
		return &Report{TaskID: taskID, Status: StatusPending}, nil
	}
	if err != nil {
		return nil, err
	}
	r := &Report{TaskID: taskID, Status: j.Status}
	switch j.Status {
	case StatusSuccess:
		r.Result = j.Result
	case StatusFailure:
		r.Error = j.Error
	}
	return r, nil
}
