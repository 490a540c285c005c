package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisResetTokenStore keeps reset tokens in Redis with a TTL and applies the
// password change through the user repository.
type RedisResetTokenStore struct {
	rdb   *redis.Client
	users UserRepository
}

type resetEntry struct {
	UserID    int64     `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

func NewRedisResetTokenStore(rdb *redis.Client, users UserRepository) *RedisResetTokenStore {
	return &RedisResetTokenStore{rdb: rdb, users: users}
}

// NewRedisClient connects to addr and pings it.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis is not reachable: %w", err)
	}
	return rdb, nil
}

func tokenKey(digest string) string { return "reset:token:" + digest }
func userKey(id int64) string       { return "reset:user:" + strconv.FormatInt(id, 10) }

// restoreScript puts a consumed token back unless the user has requested a
// newer one in the meantime. KEYS: token key, user key. ARGV: digest, entry,
// remaining ttl in ms.
var restoreScript = redis.NewScript(`
if redis.call("GET", KEYS[2]) == ARGV[1] then
	return redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3], "NX")
end
return false
`)

// SaveResetToken replaces any token the user still has outstanding.
func (s *RedisResetTokenStore) SaveResetToken(ctx context.Context, userID int64, digest string, now, expires time.Time) error {
	ttl := expires.Sub(now)
	if ttl <= 0 {
		return fmt.Errorf("reset token already expired")
	}
	payload, err := json.Marshal(resetEntry{UserID: userID, ExpiresAt: expires})
	if err != nil {
		return err
	}

	previous, err := s.rdb.Get(ctx, userKey(userID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("read previous reset token: %w", err)
	}

	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if previous != "" {
			pipe.Del(ctx, tokenKey(previous))
		}
		pipe.Set(ctx, tokenKey(digest), payload, ttl)
		pipe.Set(ctx, userKey(userID), digest, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}
	return nil
}

// ConsumeResetToken claims the token with GETDEL, so a token can be spent at
// most once, and restores it when the password update fails.
func (s *RedisResetTokenStore) ConsumeResetToken(ctx context.Context, digest string, now time.Time, newHash string) error {
	raw, err := s.rdb.GetDel(ctx, tokenKey(digest)).Result()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("read reset token: %w", err)
	}

	var entry resetEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return fmt.Errorf("decode reset token: %w", err)
	}
	if !now.Before(entry.ExpiresAt) {
		return ErrNotFound
	}

	if err := s.users.UpdatePasswordHash(ctx, entry.UserID, newHash); err != nil {
		remaining := max(entry.ExpiresAt.Sub(now).Milliseconds(), 1)
		keys := []string{tokenKey(digest), userKey(entry.UserID)}
		if rerr := restoreScript.Run(context.WithoutCancel(ctx), s.rdb, keys, digest, raw, remaining).Err(); rerr != nil && !errors.Is(rerr, redis.Nil) {
			return errors.Join(err, fmt.Errorf("restore reset token: %w", rerr))
		}
		return err
	}
	return nil
}
