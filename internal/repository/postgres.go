package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"facilitymonitor/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPool creates the connection pool and checks that the database answers.
func NewPool(ctx context.Context, databaseURL string, maxConns int32) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	poolConfig.MaxConns = maxConns
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	return pool, nil
}

var (
	climateSelect     = `SELECT id, suhu, kelembapan, waktu FROM sensor_data ORDER BY waktu DESC`
	fireSmokeSelect   = `SELECT id, api_value, asap_value, waktu FROM api_asap_data ORDER BY waktu DESC`
	electricitySelect = `SELECT id, ` + strings.Join(models.ElectricityColumns, ", ") +
		`, waktu FROM listrik_noc ORDER BY waktu DESC`
)

// PostgresTelemetryRepository reads and writes the telemetry tables. Every
// call holds a pooled connection only for its own duration.
type PostgresTelemetryRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresTelemetryRepository(pool *pgxpool.Pool) *PostgresTelemetryRepository {
	return &PostgresTelemetryRepository{pool: pool}
}

func (r *PostgresTelemetryRepository) LatestClimate(ctx context.Context, offset int) (models.ClimateReading, error) {
	return latest[models.ClimateReading](ctx, r.pool, climateSelect, offset)
}

func (r *PostgresTelemetryRepository) LatestFireSmoke(ctx context.Context) (models.FireSmokeReading, error) {
	return latest[models.FireSmokeReading](ctx, r.pool, fireSmokeSelect, 0)
}

func (r *PostgresTelemetryRepository) LatestElectricity(ctx context.Context) (models.ElectricityReading, error) {
	return latest[models.ElectricityReading](ctx, r.pool, electricitySelect, 0)
}

func (r *PostgresTelemetryRepository) ClimateHistory(ctx context.Context) ([]models.ClimateReading, error) {
	return history[models.ClimateReading](ctx, r.pool, climateSelect)
}

func (r *PostgresTelemetryRepository) FireSmokeHistory(ctx context.Context) ([]models.FireSmokeReading, error) {
	return history[models.FireSmokeReading](ctx, r.pool, fireSmokeSelect)
}

func (r *PostgresTelemetryRepository) ElectricityHistory(ctx context.Context) ([]models.ElectricityReading, error) {
	return history[models.ElectricityReading](ctx, r.pool, electricitySelect)
}

func (r *PostgresTelemetryRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *PostgresTelemetryRepository) InsertClimate(ctx context.Context, rd models.ClimateReading) error {
	return r.exec(ctx, `INSERT INTO sensor_data (suhu, kelembapan, waktu) VALUES ($1, $2, $3)`,
		rd.Temperature, rd.Humidity, stamp(rd.Timestamp))
}

func (r *PostgresTelemetryRepository) InsertFireSmoke(ctx context.Context, rd models.FireSmokeReading) error {
	return r.exec(ctx, `INSERT INTO api_asap_data (api_value, asap_value, waktu) VALUES ($1, $2, $3)`,
		rd.FireIndex, rd.SmokeIndex, stamp(rd.Timestamp))
}

func (r *PostgresTelemetryRepository) InsertElectricity(ctx context.Context, rd models.ElectricityReading) error {
	cols := append(append([]string{}, models.ElectricityColumns...), "waktu")
	placeholders := make([]string, len(cols))
	args := make([]any, 0, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	for _, v := range rd.Values() {
		args = append(args, v)
	}
	args = append(args, stamp(rd.Timestamp))

	query := fmt.Sprintf(`INSERT INTO listrik_noc (%s) VALUES (%s)`,
		strings.Join(cols, ", "), strings.Join(placeholders, ", "))
	return r.exec(ctx, query, args...)
}

func (r *PostgresTelemetryRepository) exec(ctx context.Context, query string, args ...any) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert reading: %w", err)
	}
	return nil
}

func latest[T any](ctx context.Context, pool *pgxpool.Pool, query string, offset int) (T, error) {
	var zero T
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return zero, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, query+` LIMIT 1 OFFSET $1`, offset)
	if err != nil {
		return zero, fmt.Errorf("query latest reading: %w", err)
	}
	row, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[T])
	if errors.Is(err, pgx.ErrNoRows) {
		return zero, ErrNotFound
	}
	if err != nil {
		return zero, fmt.Errorf("scan latest reading: %w", err)
	}
	return row, nil
}

func history[T any](ctx context.Context, pool *pgxpool.Pool, query string) ([]T, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowToStructByName[T])
	if err != nil {
		return nil, fmt.Errorf("scan history: %w", err)
	}
	return out, nil
}

func stamp(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}
