package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"fakenews/internal/config"
	redisdb "fakenews/internal/redis"

	"github.com/redis/go-redis/v9"
)

// setupTestRedis returns a client on DB 15, skipping when no Redis is running.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	cfg := &config.Config{}
	cfg.Redis.Addr = "localhost:6379"
	cfg.Redis.DB = 15
	rdb := redisdb.NewClient(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}
	t.Cleanup(func() { rdb.Close() })
	return rdb
}

func TestSessionLifecycle(t *testing.T) {
	rdb := setupTestRedis(t)
	ctx := context.Background()

	userId := uint(12345)
	token := "session_test_token"
	defer EndSession(ctx, rdb, userId)

	if err := StartSession(ctx, rdb, userId, token); err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	if err := TouchSession(ctx, rdb, userId, token); err != nil {
		t.Fatalf("TouchSession failed: %v", err)
	}
	if ttl := rdb.TTL(ctx, sessionKey(userId)).Val(); ttl <= 0 || ttl > InactivityTimeout {
		t.Errorf("session should expire within the inactivity timeout, got %s", ttl)
	}

	count, err := OnlineUserCount(ctx, rdb)
	if err != nil {
		t.Fatalf("OnlineUserCount failed: %v", err)
	}
	if count < 1 {
		t.Errorf("expected at least one online user, got %d", count)
	}

	if err := EndSession(ctx, rdb, userId); err != nil {
		t.Fatalf("EndSession failed: %v", err)
	}
	if err := TouchSession(ctx, rdb, userId, token); !errors.Is(err, ErrNoSession) {
		t.Errorf("expected ErrNoSession after logout, got %v", err)
	}
}

func TestTouchSession_ReplacedByNewLogin(t *testing.T) {
	rdb := setupTestRedis(t)
	ctx := context.Background()
	userId := uint(12346)
	defer EndSession(ctx, rdb, userId)

	_ = StartSession(ctx, rdb, userId, "old")
	_ = StartSession(ctx, rdb, userId, "new")
	if err := TouchSession(ctx, rdb, userId, "old"); !errors.Is(err, ErrNoSession) {
		t.Errorf("old token should be rejected after a new login, got %v", err)
	}
	if err := TouchSession(ctx, rdb, userId, "new"); err != nil {
		t.Errorf("new token should be accepted, got %v", err)
	}
}

func TestOnlineUserCount_IgnoresForeignKeys(t *testing.T) {
	rdb := setupTestRedis(t)
	ctx := context.Background()
	before, err := OnlineUserCount(ctx, rdb)
	if err != nil {
		t.Fatalf("OnlineUserCount failed: %v", err)
	}
	rdb.Set(ctx, "session:not-a-user", "x", time.Minute)
	defer rdb.Del(ctx, "session:not-a-user")

	after, err := OnlineUserCount(ctx, rdb)
	if err != nil {
		t.Fatalf("OnlineUserCount failed: %v", err)
	}
	if after != before {
		t.Errorf("non-numeric session keys should not count, got %d then %d", before, after)
	}
}
