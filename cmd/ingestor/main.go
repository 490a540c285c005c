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
	"facilitymonitor/internal/ingest"
	"facilitymonitor/internal/logging"
	"facilitymonitor/internal/metrics"
	"facilitymonitor/internal/repository"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

const writeTimeout = 5 * time.Second

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("error loading configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.New("facility-ingestor", cfg.LogLevel)

	if err := run(cfg, logger); err != nil {
		logger.Error("ingestor stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	writer, closeWriter, err := newWriter(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeWriter()

	m := metrics.New()
	handler := ingest.NewHandler(writer, cfg.MQTT.TopicPrefix, m, logger.With("component", "ingest"))

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.MQTT.Broker)
	// Client ids must be unique per broker.
	opts.SetClientID(cfg.MQTT.ClientID + "-" + uuid.NewString()[:8])
	opts.SetAutoReconnect(true)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("mqtt connection lost", "error", err)
	})
	// Subscriptions are not persisted by the broker for a clean session, so
	// they are renewed on every (re)connect.
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		if err := handler.Subscribe(c, writeTimeout); err != nil {
			logger.Error("failed to subscribe", "error", err)
		}
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("connect to %s: %w", cfg.MQTT.Broker, token.Error())
	}
	defer client.Disconnect(250)
	logger.Info("connected to broker", "broker", cfg.MQTT.Broker)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: m.Handler(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics listener failed", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newWriter(ctx context.Context, cfg config.Config, logger *slog.Logger) (repository.TelemetryWriter, func(), error) {
	if cfg.TelemetryBackend == config.BackendInflux {
		influx := repository.NewInfluxDBRepository(cfg.InfluxDBURL, cfg.InfluxDBToken, cfg.InfluxDBOrg, cfg.InfluxDBBucket, logger)
		if err := influx.EnsureBucket(ctx); err != nil {
			influx.Close()
			return nil, nil, err
		}
		return influx, influx.Close, nil
	}
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		return nil, nil, err
	}
	return repository.NewPostgresTelemetryRepository(pool), pool.Close, nil
}
