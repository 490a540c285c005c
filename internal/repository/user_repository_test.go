package repository

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"facilitymonitor/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestUserRepository connects to TEST_DATABASE_URL and skips the test when
// it is unset.
func newTestUserRepository(t *testing.T) *PostgresUserRepository {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping postgres integration test")
	}
	ctx := context.Background()
	pool, err := NewPool(ctx, url, 2)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	repo := NewPostgresUserRepository(pool)
	require.NoError(t, repo.EnsureSchema(ctx))
	return repo
}

func createTestUser(t *testing.T, repo *PostgresUserRepository) int64 {
	t.Helper()
	ctx := context.Background()
	name := fmt.Sprintf("reset-test-%d", time.Now().UnixNano())
	id, err := repo.Create(ctx, models.User{Username: name, PasswordHash: "old"})
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = repo.pool.Exec(context.Background(), `DELETE FROM users WHERE id = $1`, id)
	})
	return id
}

func TestPostgresResetTokenLifecycle(t *testing.T) {
	repo := newTestUserRepository(t)
	ctx := context.Background()
	id := createTestUser(t, repo)

	digest := fmt.Sprintf("digest-%d", id)
	require.NoError(t, repo.SaveResetToken(ctx, id, digest, issuedAt, issuedAt.Add(time.Hour)))

	// expired exactly at the boundary
	assert.ErrorIs(t, repo.ConsumeResetToken(ctx, digest, issuedAt.Add(time.Hour), "new"), ErrNotFound)

	require.NoError(t, repo.ConsumeResetToken(ctx, digest, issuedAt.Add(time.Minute), "new"))
	assert.ErrorIs(t, repo.ConsumeResetToken(ctx, digest, issuedAt.Add(2*time.Minute), "newer"), ErrNotFound)

	var hash string
	var token *string
	require.NoError(t, repo.pool.QueryRow(ctx, `SELECT password_hash, reset_token FROM users WHERE id = $1`, id).Scan(&hash, &token))
	assert.Equal(t, "new", hash)
	assert.Nil(t, token)
}

func TestPostgresResetTokenNewRequestInvalidatesEarlier(t *testing.T) {
	repo := newTestUserRepository(t)
	ctx := context.Background()
	id := createTestUser(t, repo)

	first, second := fmt.Sprintf("first-%d", id), fmt.Sprintf("second-%d", id)
	require.NoError(t, repo.SaveResetToken(ctx, id, first, issuedAt, issuedAt.Add(time.Hour)))
	require.NoError(t, repo.SaveResetToken(ctx, id, second, issuedAt, issuedAt.Add(time.Hour)))

	assert.ErrorIs(t, repo.ConsumeResetToken(ctx, first, issuedAt.Add(time.Minute), "new"), ErrNotFound)
	require.NoError(t, repo.ConsumeResetToken(ctx, second, issuedAt.Add(time.Minute), "new"))
}
