package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const paylockNS = "cinego:v1:paylock"

func KeyPayLock(sessionID string) string {
	return fmt.Sprintf("%s:%s", paylockNS, sessionID)
}

// PayLock guards the pay action per browser session: exactly one payment
// order may be in flight between order creation and resolution, even if
// the pay button is hammered or the session lands on another instance.
type PayLock struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewPayLock(rdb *redis.Client, ttl time.Duration) *PayLock {
	return &PayLock{rdb: rdb, ttl: ttl}
}

func (l *PayLock) Acquire(ctx context.Context, sessionID string) (bool, error) {
	return l.rdb.SetNX(ctx, KeyPayLock(sessionID), "LOCK", l.ttl).Result()
}

func (l *PayLock) Release(ctx context.Context, sessionID string) error {
	return l.rdb.Del(ctx, KeyPayLock(sessionID)).Err()
}
