package sessions

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRepository keeps each refresh session in a hash at <prefix><token>
// and the user's live tokens in a set at <prefix>user:<id>, so all sessions
// of one user can be revoked together. Both keys expire with the session.
type RedisRepository struct {
	client *redis.Client
	prefix string
}

// NewRedisRepository uses "session:" when prefix is empty.
func NewRedisRepository(client *redis.Client, prefix string) *RedisRepository {
	if prefix == "" {
		prefix = "session:"
	}
	return &RedisRepository{client: client, prefix: prefix}
}

func (r *RedisRepository) tokenKey(refresh string) string {
	return r.prefix + refresh
}

func (r *RedisRepository) userKey(userID int64) string {
	return r.prefix + "user:" + strconv.FormatInt(userID, 10)
}

// Create stores s. A session that has already expired is not stored.
func (r *RedisRepository) Create(ctx context.Context, s *Session) error {
	if !s.ExpiresAt.After(time.Now()) {
		return nil
	}
	key, ukey := r.tokenKey(s.RefreshToken), r.userKey(s.UserID)
	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, key,
			"user_id", s.UserID,
			"created_at", s.CreatedAt.UnixMilli(),
			"expires_at", s.ExpiresAt.UnixMilli(),
		)
		p.PExpireAt(ctx, key, s.ExpiresAt)
		p.SAdd(ctx, ukey, s.RefreshToken)
		p.PExpireAt(ctx, ukey, s.ExpiresAt)
		return nil
	})
	return err
}

func (r *RedisRepository) GetByRefresh(ctx context.Context, refresh string) (*Session, error) {
	vals, err := r.client.HGetAll(ctx, r.tokenKey(refresh)).Result()
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 {
		return nil, nil
	}
	userID, err := strconv.ParseInt(vals["user_id"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("session %s: bad user_id: %w", r.tokenKey(refresh), err)
	}
	created, _ := strconv.ParseInt(vals["created_at"], 10, 64)
	expires, _ := strconv.ParseInt(vals["expires_at"], 10, 64)
	return &Session{
		RefreshToken: refresh,
		UserID:       userID,
		CreatedAt:    time.UnixMilli(created).UTC(),
		ExpiresAt:    time.UnixMilli(expires).UTC(),
	}, nil
}

func (r *RedisRepository) DeleteByRefresh(ctx context.Context, refresh string) error {
	key := r.tokenKey(refresh)
	userID, err := r.client.HGet(ctx, key, "user_id").Int64()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return err
	}
	_, err = r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, key)
		p.SRem(ctx, r.userKey(userID), refresh)
		return nil
	})
	return err
}

func (r *RedisRepository) DeleteByUser(ctx context.Context, userID int64) error {
	ukey := r.userKey(userID)
	tokens, err := r.client.SMembers(ctx, ukey).Result()
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(tokens)+1)
	for _, t := range tokens {
		keys = append(keys, r.tokenKey(t))
	}
	keys = append(keys, ukey)
	return r.client.Del(ctx, keys...).Err()
}
