package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"facilitymonitor/internal/models"
	"facilitymonitor/internal/repository"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memUsers keeps users and their reset tokens in memory, with the same
// single-step consume semantics as the SQL store.
type memUsers struct {
	mu     sync.Mutex
	byID   map[int64]*models.User
	nextID int64
	err    error
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[int64]*models.User{}}
}

func (m *memUsers) find(match func(*models.User) bool) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return models.User{}, m.err
	}
	for _, u := range m.byID {
		if match(u) {
			return *u, nil
		}
	}
	return models.User{}, repository.ErrNotFound
}

func (m *memUsers) FindByUsername(_ context.Context, username string) (models.User, error) {
	return m.find(func(u *models.User) bool { return u.Username == username })
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (models.User, error) {
	return m.find(func(u *models.User) bool { return u.Email != "" && u.Email == email })
}

func (m *memUsers) Create(_ context.Context, u models.User) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	u.ID = m.nextID
	m.byID[u.ID] = &u
	return u.ID, nil
}

func (m *memUsers) UpdatePasswordHash(_ context.Context, id int64, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (m *memUsers) SaveResetToken(_ context.Context, id int64, digest string, _, expires time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.ResetTokenHash = &digest
	u.ResetTokenExpires = &expires
	return nil
}

func (m *memUsers) ConsumeResetToken(_ context.Context, digest string, now time.Time, newHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.ResetTokenHash != nil && *u.ResetTokenHash == digest && u.ResetTokenExpires.After(now) {
			u.PasswordHash = newHash
			u.ResetTokenHash = nil
			u.ResetTokenExpires = nil
			return nil
		}
	}
	return repository.ErrNotFound
}

type captureMailer struct {
	to, link string
	sent     int
	err      error
}

func (c *captureMailer) SendPasswordReset(_ context.Context, to, link string) error {
	if c.err != nil {
		return c.err
	}
	c.to, c.link = to, link
	c.sent++
	return nil
}

// stubTelemetry returns the rows it holds; a nil slice means an empty table.
type stubTelemetry struct {
	climate     []models.ClimateReading
	fireSmoke   []models.FireSmokeReading
	electricity []models.ElectricityReading
	err         error
}

var errStoreDown = errors.New("connection refused")

func (s *stubTelemetry) LatestClimate(_ context.Context, offset int) (models.ClimateReading, error) {
	if s.err != nil {
		return models.ClimateReading{}, s.err
	}
	if offset >= len(s.climate) {
		return models.ClimateReading{}, repository.ErrNotFound
	}
	return s.climate[offset], nil
}

func (s *stubTelemetry) LatestFireSmoke(context.Context) (models.FireSmokeReading, error) {
	if s.err != nil {
		return models.FireSmokeReading{}, s.err
	}
	if len(s.fireSmoke) == 0 {
		return models.FireSmokeReading{}, repository.ErrNotFound
	}
	return s.fireSmoke[0], nil
}

func (s *stubTelemetry) LatestElectricity(context.Context) (models.ElectricityReading, error) {
	if s.err != nil {
		return models.ElectricityReading{}, s.err
	}
	if len(s.electricity) == 0 {
		return models.ElectricityReading{}, repository.ErrNotFound
	}
	return s.electricity[0], nil
}

func (s *stubTelemetry) ClimateHistory(context.Context) ([]models.ClimateReading, error) {
	return s.climate, s.err
}

func (s *stubTelemetry) FireSmokeHistory(context.Context) ([]models.FireSmokeReading, error) {
	return s.fireSmoke, s.err
}

func (s *stubTelemetry) ElectricityHistory(context.Context) ([]models.ElectricityReading, error) {
	return s.electricity, s.err
}

func (s *stubTelemetry) Ping(context.Context) error { return s.err }
