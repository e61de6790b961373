package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps job records as JSON under "<prefix><taskId>". Records
// expire after ttl, matching how long results stay queryable.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "job:"
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) key(taskID string) string {
	return s.prefix + taskID
}

func (s *RedisStore) Save(ctx context.Context, j *Job) error {
	b, err := json.Marshal(j)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(j.TaskID), b, s.ttl).Err(); err != nil {
		return fmt.Errorf("save job %s: %w", j.TaskID, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, taskID string) (*Job, error) {
	b, err := s.client.Get(ctx, s.key(taskID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load job %s: %w", taskID, err)
	}
	var j Job
	if err := json.Unmarshal(b, &j); err != nil {
		return nil, fmt.Errorf("decode job %s: %w", taskID, err)
	}
	return &j, nil
}

// SetStatus is a read-modify-write. Only one worker handles a given job, so
// concurrent writers for the same key do not occur.
func (s *RedisStore) SetStatus(ctx context.Context, taskID string, st Status, result, errMsg string) error {
	now := time.Now().UTC()
	j, err := s.Get(ctx, taskID)
	if errors.Is(err, ErrJobNotFound) {
		j = &Job{TaskID: taskID, CreatedAt: now}
	} else if err != nil {
		return err
	}
	j.Status = st
	j.Result = result
	j.Error = errMsg
	j.UpdatedAt = now
	return s.Save(ctx, j)
}
