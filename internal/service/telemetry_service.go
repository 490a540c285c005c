package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"facilitymonitor/internal/models"
	"facilitymonitor/internal/repository"
)

// TelemetryService serves the latest reading of each category and full histories.
// An empty table yields a tagged fallback; a store failure is returned as an error.
type TelemetryService struct {
	repo   repository.TelemetryRepository
	now    func() time.Time
	logger *slog.Logger
}

// NewTelemetryService creates a new TelemetryService.
func NewTelemetryService(repo repository.TelemetryRepository, logger *slog.Logger) *TelemetryService {
	return &TelemetryService{repo: repo, now: time.Now, logger: logger}
}

// LatestClimate returns the reading for climate sensor 1 or 2. Sensor 2 is the
// second newest row; without one it is derived from sensor 1.
func (s *TelemetryService) LatestClimate(ctx context.Context, sensor int) (models.ClimateSample, error) {
	if sensor != 1 && sensor != 2 {
		return models.ClimateSample{}, fmt.Errorf("%w: unknown climate sensor %d", ErrInvalidInput, sensor)
	}

	first, err := s.repo.LatestClimate(ctx, 0)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		fb := models.FallbackClimate(s.now())
		if sensor == 2 {
			fb = models.DeriveSensor2(fb)
		}
		s.logger.Debug("climate table empty, serving fallback", "sensor", sensor)
		return models.ClimateSample{ClimateReading: fb, Availability: models.AvailabilityFallback}, nil
	case err != nil:
		return models.ClimateSample{}, fmt.Errorf("fetch sensor %d data: %w", sensor, err)
	}
	if sensor == 1 {
		return models.ClimateSample{ClimateReading: first, Availability: models.AvailabilityReal}, nil
	}

	second, err := s.repo.LatestClimate(ctx, 1)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return models.ClimateSample{ClimateReading: models.DeriveSensor2(first), Availability: models.AvailabilitySynthetic}, nil
	case err != nil:
		return models.ClimateSample{}, fmt.Errorf("fetch sensor 2 data: %w", err)
	}
	return models.ClimateSample{ClimateReading: second, Availability: models.AvailabilityReal}, nil
}

func (s *TelemetryService) LatestFireSmoke(ctx context.Context) (models.FireSmokeSample, error) {
	r, err := s.repo.LatestFireSmoke(ctx)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return models.FireSmokeSample{FireSmokeReading: models.FallbackFireSmoke(s.now()), Availability: models.AvailabilityFallback}, nil
	case err != nil:
		return models.FireSmokeSample{}, fmt.Errorf("fetch fire/smoke data: %w", err)
	}
	return models.FireSmokeSample{FireSmokeReading: r, Availability: models.AvailabilityReal}, nil
}

func (s *TelemetryService) LatestElectricity(ctx context.Context) (models.ElectricitySample, error) {
	r, err := s.repo.LatestElectricity(ctx)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return models.ElectricitySample{ElectricityReading: models.FallbackElectricity(s.now()), Availability: models.AvailabilityFallback}, nil
	case err != nil:
		return models.ElectricitySample{}, fmt.Errorf("fetch electricity data: %w", err)
	}
	return models.ElectricitySample{ElectricityReading: r, Availability: models.AvailabilityReal}, nil
}

// Export returns the whole history of kind, newest first.
func (s *TelemetryService) Export(ctx context.Context, kind models.ExportKind) (models.ExportData, error) {
	data := models.ExportData{Kind: kind}
	var err error
	switch kind {
	case models.ExportSensor:
		data.Climate, err = s.repo.ClimateHistory(ctx)
	case models.ExportFireSmoke:
		data.FireSmoke, err = s.repo.FireSmokeHistory(ctx)
	case models.ExportElectricity:
		data.Electricity, err = s.repo.ElectricityHistory(ctx)
	default:
		return data, fmt.Errorf("%w: unknown export kind %q", ErrInvalidInput, kind)
	}
	if err != nil {
		return models.ExportData{}, fmt.Errorf("export %s: %w", kind, err)
	}
	return data, nil
}

// Ready reports whether the telemetry store answers.
func (s *TelemetryService) Ready(ctx context.Context) error {
	return s.repo.Ping(ctx)
}
