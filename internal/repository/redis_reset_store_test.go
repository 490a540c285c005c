package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"facilitymonitor/internal/models"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// passwordBook is a UserRepository that only tracks password hashes.
type passwordBook struct {
	mu       sync.Mutex
	hashes   map[int64]string
	onUpdate func() error
}

func (p *passwordBook) FindByUsername(context.Context, string) (models.User, error) {
	return models.User{}, ErrNotFound
}

func (p *passwordBook) FindByEmail(context.Context, string) (models.User, error) {
	return models.User{}, ErrNotFound
}

func (p *passwordBook) Create(context.Context, models.User) (int64, error) {
	return 0, errors.New("not supported")
}

func (p *passwordBook) UpdatePasswordHash(_ context.Context, userID int64, hash string) error {
	if p.onUpdate != nil {
		if err := p.onUpdate(); err != nil {
			return err
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hashes[userID] = hash
	return nil
}

func (p *passwordBook) hash(userID int64) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hashes[userID]
}

var issuedAt = time.Date(2020, 6, 1, 12, 0, 0, 0, time.UTC)

func newRedisStore(t *testing.T) (*RedisResetTokenStore, *passwordBook, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	book := &passwordBook{hashes: map[int64]string{7: "old"}}
	return NewRedisResetTokenStore(rdb, book), book, mr
}

func TestRedisResetTokenRoundTrip(t *testing.T) {
	store, book, mr := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveResetToken(ctx, 7, "d1", issuedAt, issuedAt.Add(time.Hour)))
	assert.Equal(t, time.Hour, mr.TTL(tokenKey("d1")))

	require.NoError(t, store.ConsumeResetToken(ctx, "d1", issuedAt.Add(10*time.Minute), "new"))
	assert.Equal(t, "new", book.hash(7))
	assert.False(t, mr.Exists(tokenKey("d1")))

	err := store.ConsumeResetToken(ctx, "d1", issuedAt.Add(11*time.Minute), "newer")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "new", book.hash(7))
}

func TestRedisResetTokenExpiry(t *testing.T) {
	store, book, mr := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveResetToken(ctx, 7, "d1", issuedAt, issuedAt.Add(time.Hour)))
	assert.ErrorIs(t, store.ConsumeResetToken(ctx, "d1", issuedAt.Add(time.Hour), "new"), ErrNotFound)
	assert.Equal(t, "old", book.hash(7))

	require.NoError(t, store.SaveResetToken(ctx, 7, "d2", issuedAt, issuedAt.Add(time.Hour)))
	mr.FastForward(time.Hour + time.Second)
	assert.ErrorIs(t, store.ConsumeResetToken(ctx, "d2", issuedAt, "new"), ErrNotFound)
	assert.Equal(t, "old", book.hash(7))
}

func TestRedisResetTokenRejectsExpiredOnSave(t *testing.T) {
	store, _, _ := newRedisStore(t)
	assert.Error(t, store.SaveResetToken(context.Background(), 7, "d1", issuedAt, issuedAt))
}

func TestRedisResetTokenNewRequestInvalidatesEarlier(t *testing.T) {
	store, book, _ := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveResetToken(ctx, 7, "d1", issuedAt, issuedAt.Add(time.Hour)))
	require.NoError(t, store.SaveResetToken(ctx, 7, "d2", issuedAt.Add(time.Minute), issuedAt.Add(time.Hour+time.Minute)))

	assert.ErrorIs(t, store.ConsumeResetToken(ctx, "d1", issuedAt.Add(2*time.Minute), "new"), ErrNotFound)
	require.NoError(t, store.ConsumeResetToken(ctx, "d2", issuedAt.Add(2*time.Minute), "new"))
	assert.Equal(t, "new", book.hash(7))
}

func TestRedisResetTokenSurvivesFailedPasswordUpdate(t *testing.T) {
	store, book, mr := newRedisStore(t)
	ctx := context.Background()
	require.NoError(t, store.SaveResetToken(ctx, 7, "d1", issuedAt, issuedAt.Add(time.Hour)))

	book.onUpdate = func() error { return errors.New("db down") }
	err := store.ConsumeResetToken(ctx, "d1", issuedAt.Add(10*time.Minute), "new")
	assert.ErrorContains(t, err, "db down")
	assert.Equal(t, "old", book.hash(7))
	assert.Equal(t, 50*time.Minute, mr.TTL(tokenKey("d1")))

	book.onUpdate = nil
	require.NoError(t, store.ConsumeResetToken(ctx, "d1", issuedAt.Add(11*time.Minute), "new"))
	assert.Equal(t, "new", book.hash(7))
}

func TestRedisResetTokenNotRestoredOverNewerRequest(t *testing.T) {
	store, book, _ := newRedisStore(t)
	ctx := context.Background()
	require.NoError(t, store.SaveResetToken(ctx, 7, "d1", issuedAt, issuedAt.Add(time.Hour)))

	book.onUpdate = func() error {
		if err := store.SaveResetToken(ctx, 7, "d2", issuedAt, issuedAt.Add(time.Hour)); err != nil {
			return err
		}
		return errors.New("db down")
	}
	assert.Error(t, store.ConsumeResetToken(ctx, "d1", issuedAt.Add(time.Minute), "new"))

	book.onUpdate = nil
	assert.ErrorIs(t, store.ConsumeResetToken(ctx, "d1", issuedAt.Add(2*time.Minute), "new"), ErrNotFound)
	require.NoError(t, store.ConsumeResetToken(ctx, "d2", issuedAt.Add(2*time.Minute), "newer"))
	assert.Equal(t, "newer", book.hash(7))
}
