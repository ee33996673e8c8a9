package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Unread totals are a hint for the client's polling loop; Mongo stays the
// source of truth, so stale keys just age out.
const unreadTTL = 14 * 24 * time.Hour

// UnreadStorage caches each user's total unread-message count in Redis. All
// methods are safe on a nil receiver so the service runs without Redis.
type UnreadStorage struct {
	redis *redis.Client
}

// NewUnreadStorage wraps the given client. A nil client yields a disabled
// (but still usable) storage.
func NewUnreadStorage(rds *redis.Client) *UnreadStorage {
	if rds == nil {
		return nil
	}
	return &UnreadStorage{redis: rds}
}

// Incr bumps the receiver's unread total after a message is delivered.
func (u *UnreadStorage) Incr(ctx context.Context, userID uint) {
	if u == nil {
		return
	}
	pipe := u.redis.Pipeline()
	name := u.name(userID)
	pipe.Incr(ctx, name)
	pipe.Expire(ctx, name, unreadTTL)
	_, _ = pipe.Exec(ctx)
}

// Get returns the cached total and whether the key was present.
func (u *UnreadStorage) Get(ctx context.Context, userID uint) (int64, bool) {
	if u == nil {
		return 0, false
	}
	n, err := u.redis.Get(ctx, u.name(userID)).Int64()
	if err != nil {
		return 0, false
	}
	return n, true
}

// Set overwrites the cached total, used to backfill after a cache miss or a
// bulk mark-read.
func (u *UnreadStorage) Set(ctx context.Context, userID uint, count int64) {
	if u == nil {
		return
	}
	_ = u.redis.Set(ctx, u.name(userID), count, unreadTTL).Err()
}

// Del drops the cached total.
func (u *UnreadStorage) Del(ctx context.Context, userID uint) {
	if u == nil {
		return
	}
	_ = u.redis.Del(ctx, u.name(userID)).Err()
}

func (u *UnreadStorage) name(userID uint) string {
	return fmt.Sprintf("snapshare:unread:%d", userID)
}
