package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	sessionPrefix = "session:"

	TokenLifetime     = 7 * 24 * time.Hour
	InactivityTimeout = 30 * time.Minute
)

// ErrNoSession means the user has no live session or it holds another token.
var ErrNoSession = errors.New("session expired or replaced")

func sessionKey(userID uint) string {
	return sessionPrefix + strconv.FormatUint(uint64(userID), 10)
}

// StartSession records token as the user's only session. A later login
// replaces it, which logs out the earlier token.
func StartSession(ctx context.Context, rdb *redis.Client, userID uint, token string) error {
	return rdb.Set(ctx, sessionKey(userID), token, InactivityTimeout).Err()
}

// TouchSession confirms token is the user's current session and pushes its
// expiry out by InactivityTimeout.
func TouchSession(ctx context.Context, rdb *redis.Client, userID uint, token string) error {
	key := sessionKey(userID)
	stored, err := rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return ErrNoSession
	}
	if err != nil {
		return fmt.Errorf("read session: %w", err)
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(token)) != 1 {
		return ErrNoSession
	}
	return rdb.Expire(ctx, key, InactivityTimeout).Err()
}

func EndSession(ctx context.Context, rdb *redis.Client, userID uint) error {
	return rdb.Del(ctx, sessionKey(userID)).Err()
}

// OnlineUserCount counts users holding a live session.
func OnlineUserCount(ctx context.Context, rdb *redis.Client) (int, error) {
	online := 0
	iter := rdb.Scan(ctx, 0, sessionPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		id := strings.TrimPrefix(iter.Val(), sessionPrefix)
		if _, err := strconv.ParseUint(id, 10, 64); err == nil {
			online++
		}
	}
	if err := iter.Err(); err != nil {
		return 0, err
	}
	return online, nil
}
