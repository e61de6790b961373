package jobs

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrJobNotFound = errors.New("job not found")

// Store persists job records so any process can report status.
type Store interface {
	Save(ctx context.Context, j *Job) error
	Get(ctx context.Context, taskID string) (*Job, error)
	SetStatus(ctx context.Context, taskID string, st Status, result, errMsg string) error
}

// MemoryStore keeps job records in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]*Job)}
}

func (m *MemoryStore) Save(ctx context.Context, j *Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *j
	m.jobs[j.TaskID] = &cp
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, taskID string) (*Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.jobs[taskID]
	if !ok {
		return nil, ErrJobNotFound
	}
	cp := *j
	return &cp, nil
}

func (m *MemoryStore) SetStatus(ctx context.Context, taskID string, st Status, result, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	j, ok := m.jobs[taskID]
	if !ok {
		j = &Job{TaskID: taskID, CreatedAt: now}
		m.jobs[taskID] = j
	}
	j.Status = st
	j.Result = result
	j.Error = errMsg
	j.UpdatedAt = now
	return nil
}
