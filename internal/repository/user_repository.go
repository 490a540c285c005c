package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"facilitymonitor/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const usersSchema = `
CREATE TABLE IF NOT EXISTS users (
	id                  BIGSERIAL PRIMARY KEY,
	username            VARCHAR(255) NOT NULL UNIQUE,
	password_hash       VARCHAR(255) NOT NULL,
	email               VARCHAR(255) UNIQUE,
	reset_token         VARCHAR(255),
	reset_token_expires TIMESTAMPTZ,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

const userColumns = `id, username, COALESCE(email, '') AS email, password_hash, reset_token, reset_token_expires, created_at`

// PostgresUserRepository stores accounts and, in the same row, their pending reset token.
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// EnsureSchema creates the users table when it is missing.
func (r *PostgresUserRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, usersSchema); err != nil {
		return fmt.Errorf("create users table: %w", err)
	}
	return nil
}

func (r *PostgresUserRepository) FindByUsername(ctx context.Context, username string) (models.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

func (r *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *PostgresUserRepository) findOne(ctx context.Context, query string, arg any) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, query, arg)
	if err != nil {
		return models.User{}, fmt.Errorf("query user: %w", err)
	}
	u, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[models.User])
	if errors.Is(err, pgx.ErrNoRows) {
		return models.User{}, ErrNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}

func (r *PostgresUserRepository) Create(ctx context.Context, u models.User) (int64, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var email any
	if u.Email != "" {
		email = u.Email
	}
	var id int64
	err = conn.QueryRow(ctx,
		`INSERT INTO users (username, password_hash, email) VALUES ($1, $2, $3) RETURNING id`,
		u.Username, u.PasswordHash, email,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert user: %w", err)
	}
	return id, nil
}

func (r *PostgresUserRepository) UpdatePasswordHash(ctx context.Context, userID int64, hash string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `UPDATE users SET password_hash = $1 WHERE id = $2`, hash, userID)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresUserRepository) SaveResetToken(ctx context.Context, userID int64, digest string, _, expires time.Time) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx,
		`UPDATE users SET reset_token = $1, reset_token_expires = $2 WHERE id = $3`,
		digest, expires, userID)
	if err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ConsumeResetToken matches, overwrites and clears in a single UPDATE so two
// concurrent uses of one token cannot both succeed.
func (r *PostgresUserRepository) ConsumeResetToken(ctx context.Context, digest string, now time.Time, newHash string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
		UPDATE users
		SET password_hash = $1, reset_token = NULL, reset_token_expires = NULL
		WHERE reset_token = $2 AND reset_token_expires > $3`,
		newHash, digest, now)
	if err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
