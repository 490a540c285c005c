package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"facilitymonitor/internal/config"
	"facilitymonitor/internal/controller"
	"facilitymonitor/internal/logging"
	"facilitymonitor/internal/mailer"
	"facilitymonitor/internal/metrics"
	"facilitymonitor/internal/middleware"
	"facilitymonitor/internal/repository"
	"facilitymonitor/internal/routes"
	"facilitymonitor/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("error loading configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.New("facility-api", cfg.LogLevel)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := repository.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		return err
	}
	defer pool.Close()

	telemetry, closeTelemetry, err := newTelemetryRepository(ctx, cfg, pool, logger)
	if err != nil {
		return err
	}
	defer closeTelemetry()

	users := repository.NewPostgresUserRepository(pool)
	if err := users.EnsureSchema(ctx); err != nil {
		return err
	}

	var resets repository.ResetTokenStore = users
	if cfg.ResetTokenBackend == config.BackendRedis {
		rdb, err := repository.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return err
		}
		defer rdb.Close()
		resets = repository.NewRedisResetTokenStore(rdb, users)
	}

	var mail service.Mailer
	if cfg.SMTP.Enabled() {
		mail = mailer.NewSMTPMailer(cfg.SMTP, cfg.ResetTokenTTL.String())
	} else {
		logger.Warn("SMTP is not configured, reset links are written to the log")
		mail = mailer.NewLogMailer(logger)
	}

	tokens := service.NewTokenIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.TokenTTL)
	authService := service.NewAuthService(users, resets, tokens, mail, cfg.FrontendURL, cfg.ResetTokenTTL, logger.With("component", "auth"))
	if cfg.Seed.Enabled() {
		if err := authService.EnsureSeedUser(ctx, cfg.Seed); err != nil {
			return err
		}
	}
	telemetryService := service.NewTelemetryService(telemetry, logger.With("component", "telemetry"))

	requireAuth, err := middleware.NewJWTMiddleware(middleware.JWTConfig{
		Secret:   cfg.JWTSecret,
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
	}, logger)
	if err != nil {
		return fmt.Errorf("jwt validator: %w", err)
	}

	m := metrics.New()
	handler := routes.NewHandler(routes.Dependencies{
		Telemetry:   controller.NewTelemetryController(telemetryService, m, logger),
		Auth:        controller.NewAuthController(authService, logger),
		RequireAuth: requireAuth,
		Metrics:     m,
		Logger:      logger,
		CORSOrigins: cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server is running", "url", fmt.Sprintf("http://localhost:%s", cfg.Port), "telemetry_backend", cfg.TelemetryBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newTelemetryRepository(ctx context.Context, cfg config.Config, pool *pgxpool.Pool, logger *slog.Logger) (repository.TelemetryRepository, func(), error) {
	if cfg.TelemetryBackend != config.BackendInflux {
		return repository.NewPostgresTelemetryRepository(pool), func() {}, nil
	}
	influx := repository.NewInfluxDBRepository(cfg.InfluxDBURL, cfg.InfluxDBToken, cfg.InfluxDBOrg, cfg.InfluxDBBucket, logger)
	if err := influx.EnsureBucket(ctx); err != nil {
		influx.Close()
		return nil, nil, err
	}
	return influx, influx.Close, nil
}
