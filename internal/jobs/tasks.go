package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/docdesk/docdesk/backend/go-services/internal/mail"
	"github.com/docdesk/docdesk/backend/go-services/pkg/logger"
)

// Registered job names.
const (
	TaskSample      = "sample"
	TaskSendEmail   = "send_email"
	TaskAddNumbers  = "add_numbers"
	TaskProcessData = "process_data"
)

// EmailArgs are the arguments of the send_email job.
type EmailArgs struct {
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Message   string `json:"message"`
}

// AddArgs are the arguments of the add_numbers job.
type AddArgs struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ProcessArgs are the arguments of the process_data job.
type ProcessArgs struct {
	Data interface{} `json:"data"`
}

// ProcessResult is returned by process_data.
type ProcessResult struct {
	Original    interface{} `json:"original"`
	ProcessedAt float64     `json:"processed_at"`
	Status      string      `json:"status"`
}

// Tasks holds the dependencies of the built-in job handlers.
type Tasks struct {
	Mail         mail.Sender
	From         string
	SampleDelay  time.Duration
	ProcessDelay time.Duration
	Log          *logger.Logger

	now func() time.Time
}

// Register installs every built-in handler on r.
func (t *Tasks) Register(r *Registry) {
	if t.Log == nil {
		t.Log = logger.Nop()
	}
	if t.now == nil {
		t.now = time.Now
	}
	r.Register(TaskSample, t.sample)
	r.Register(TaskSendEmail, t.sendEmail)
	r.Register(TaskAddNumbers, t.addNumbers)
	r.Register(TaskProcessData, t.processData)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func decodeArgs(raw json.RawMessage, dst interface{}) error {
	if len(raw) == 0 {
		return errors.New("missing arguments")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

func (t *Tasks) sample(ctx context.Context, _ json.RawMessage) (interface{}, error) {
	t.Log.Infof("Starting sample task")
	if err := sleep(ctx, t.SampleDelay); err != nil {
		return nil, err
	}
	result := "Sample task completed successfully!"
	t.Log.Infof("%s", result)
	return result, nil
}

func (t *Tasks) sendEmail(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var args EmailArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	t.Log.Infof("Sending email to %s", args.Recipient)
	err := t.Mail.Send(ctx, mail.Message{
		From:    t.From,
		To:      []string{args.Recipient},
		Subject: args.Subject,
		Body:    args.Message,
	})
	if err != nil {
		msg := fmt.Sprintf("Failed to send email to %s: %v", args.Recipient, err)
		t.Log.Errorf("%s", msg)
		return nil, errors.New(msg)
	}
	result := fmt.Sprintf("Email sent successfully to %s", args.Recipient)
	t.Log.Infof("%s", result)
	return result, nil
}

func (t *Tasks) addNumbers(_ context.Context, raw json.RawMessage) (interface{}, error) {
	var args AddArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	sum := args.X + args.Y
	t.Log.Infof("Adding %v + %v = %v", args.X, args.Y, sum)
	return sum, nil
}

func (t *Tasks) processData(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var args ProcessArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	t.Log.Infof("Processing data: %v", args.Data)
	if err := sleep(ctx, t.ProcessDelay); err != nil {
		return nil, err
	}
	now := t.now()
	out := ProcessResult{
		Original:    args.Data,
		ProcessedAt: float64(now.UnixNano()) / float64(time.Second),
		Status:      "completed",
	}
	t.Log.Infof("Data processing completed: %+v", out)
	return out, nil
}
