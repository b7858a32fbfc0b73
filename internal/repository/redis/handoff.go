package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const handoffNS = "cinego:v1:handoff"

func KeyHandoffSlot(sessionID string) string {
	return fmt.Sprintf("%s:%s", handoffNS, sessionID)
}

// HandoffStore is the redis backing for the guest hand-off cache: one
// well-known slot per browser session, overwritten on every snapshot.
type HandoffStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewHandoffStore(rdb *redis.Client, ttl time.Duration) *HandoffStore {
	return &HandoffStore{rdb: rdb, ttl: ttl}
}

func (s *HandoffStore) Set(ctx context.Context, sessionID, payload string) error {
	return s.rdb.Set(ctx, KeyHandoffSlot(sessionID), payload, s.ttl).Err()
}

func (s *HandoffStore) Get(ctx context.Context, sessionID string) (string, bool, error) {
	v, err := s.rdb.Get(ctx, KeyHandoffSlot(sessionID)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *HandoffStore) Del(ctx context.Context, sessionID string) error {
	return s.rdb.Del(ctx, KeyHandoffSlot(sessionID)).Err()
}
