package jobs

import (
	"encoding/json"
	"time"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusStarted Status = "STARTED"
	StatusSuccess Status = "SUCCESS"
	StatusFailure Status = "FAILURE"
)

// Terminal reports whether no further transitions happen from s.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailure
}

// Job is the persisted record of one submitted job.
type Job struct {
	TaskID    string          `bson:"taskId" json:"task_id"`
	Name      string          `bson:"name" json:"name"`
	Args      json.RawMessage `bson:"args,omitempty" json:"args,omitempty"`
	Status    Status          `bson:"status" json:"status"`
	Result    string          `bson:"result,omitempty" json:"result,omitempty"`
	Error     string          `bson:"error,omitempty" json:"error,omitempty"`
	CreatedAt time.Time       `bson:"createdAt" json:"created_at"`
	UpdatedAt time.Time       `bson:"updatedAt" json:"updated_at"`
}

// Message is what travels through the broker.
type Message struct {
	TaskID string          `json:"task_id"`
	Name   string          `json:"name"`
	Args   json.RawMessage `json:"args,omitempty"`
}

// Report is the status view returned to API callers.
type Report struct {
	TaskID string `json:"task_id"`
	Status Status `json:"status"`
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// stringify renders a handler result: strings as-is, everything else as JSON.
func stringify(v interface{}) (string, error) {
	switch r := v.(type) {
	case nil:
		return "", nil
	case string:
		return r, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
