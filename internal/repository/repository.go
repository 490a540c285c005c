package repository

import (
	"context"
	"errors"
	"time"

	"facilitymonitor/internal/models"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// TelemetryRepository reads sensor readings. Latest* methods return ErrNotFound
// when the table holds no row at the requested position.
type TelemetryRepository interface {
	LatestClimate(ctx context.Context, offset int) (models.ClimateReading, error)
	LatestFireSmoke(ctx context.Context) (models.FireSmokeReading, error)
	LatestElectricity(ctx context.Context) (models.ElectricityReading, error)

	ClimateHistory(ctx context.Context) ([]models.ClimateReading, error)
	FireSmokeHistory(ctx context.Context) ([]models.FireSmokeReading, error)
	ElectricityHistory(ctx context.Context) ([]models.ElectricityReading, error)

	Ping(ctx context.Context) error
}

// TelemetryWriter stores readings pushed by devices.
type TelemetryWriter interface {
	InsertClimate(ctx context.Context, r models.ClimateReading) error
	InsertFireSmoke(ctx context.Context, r models.FireSmokeReading) error
	InsertElectricity(ctx context.Context, r models.ElectricityReading) error
}

type UserRepository interface {
	FindByUsername(ctx context.Context, username string) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	Create(ctx context.Context, u models.User) (int64, error)
	UpdatePasswordHash(ctx context.Context, userID int64, hash string) error
}

// ResetTokenStore keeps pending password-reset tokens by digest. Times are
// supplied by the caller so expiry follows one clock.
type ResetTokenStore interface {
	// SaveResetToken records digest for userID, issued at now and valid until
	// expires. Any earlier token of the user stops being valid.
	SaveResetToken(ctx context.Context, userID int64, digest string, now, expires time.Time) error
	// ConsumeResetToken replaces the password of the user owning digest and
	// invalidates the token. It returns ErrNotFound when the digest is
	// unknown, already used, or expired at now. When the password cannot be
	// written the token stays valid.
	ConsumeResetToken(ctx context.Context, digest string, now time.Time, newHash string) error
}
