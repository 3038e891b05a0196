package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"ecollect/internal/flow/models"
	"ecollect/pkg/platform/sentinel"
)

// RedisStore persists flow sessions in Redis as JSON with a TTL, so sessions
// survive process restarts and expire on their own when abandoned.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func sessionKey(id uuid.UUID) string {
	return "flow:session:" + id.String()
}

func (s *RedisStore) Save(ctx context.Context, session *models.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal flow session: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(session.ID), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("save flow session: %w", err)
	}
	return nil
}

func (s *RedisStore) Find(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	payload, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find flow session: %w", err)
	}
	var session models.Session
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, fmt.Errorf("unmarshal flow session: %w", err)
	}
	return &session, nil
}

func (s *RedisStore) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.client.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("delete flow session: %w", err)
	}
	return nil
}
