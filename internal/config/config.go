package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Telemetry and reset-token storage backends.
const (
	BackendPostgres = "postgres"
	BackendInflux   = "influx"
	BackendRedis    = "redis"
)

// Config holds the application's configuration.
type Config struct {
	Port     string
	LogLevel slog.Level

	DatabaseURL string
	DBMaxConns  int32

	JWTSecret     string
	JWTIssuer     string
	JWTAudience   string
	TokenTTL      time.Duration
	ResetTokenTTL time.Duration

	FrontendURL        string
	CORSAllowedOrigins []string

	TelemetryBackend  string
	InfluxDBURL       string
	InfluxDBToken     string
	InfluxDBOrg       string
	InfluxDBBucket    string
	ResetTokenBackend string
	RedisAddr         string
	RedisPassword     string
	RedisDB           int

	SMTP SMTPConfig
	Seed SeedUser
	MQTT MQTTConfig
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Enabled reports whether enough is set to deliver mail.
func (s SMTPConfig) Enabled() bool {
	return s.Host != "" && s.From != ""
}

// SeedUser is an optional account created at startup when it does not exist yet.
type SeedUser struct {
	Username string
	Password string
	Email    string
}

func (s SeedUser) Enabled() bool {
	return s.Username != "" && s.Password != ""
}

type MQTTConfig struct {
	Broker      string
	ClientID    string
	TopicPrefix string
}

// LoadConfig loads the configuration from the .env file, if any, and environment variables.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, relying on system environment variables")
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function.
func FromEnv(getenv func(string) string) (Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	cfg := Config{
		Port:              get("PORT", "3000"),
		JWTSecret:         getenv("JWT_SECRET"),
		JWTIssuer:         get("JWT_ISSUER", "facility-monitor"),
		JWTAudience:       get("JWT_AUDIENCE", "facility-monitor-dashboard"),
		FrontendURL:       strings.TrimRight(get("FRONTEND_URL", "http://localhost:5173"), "/"),
		TelemetryBackend:  strings.ToLower(get("TELEMETRY_BACKEND", BackendPostgres)),
		InfluxDBURL:       getenv("INFLUXDB_URL"),
		InfluxDBToken:     getenv("INFLUXDB_TOKEN"),
		InfluxDBOrg:       getenv("INFLUXDB_ORG"),
		InfluxDBBucket:    get("INFLUXDB_BUCKET", "facility"),
		ResetTokenBackend: strings.ToLower(get("RESET_TOKEN_BACKEND", BackendPostgres)),
		RedisAddr:         get("REDIS_ADDR", "localhost:6379"),
		RedisPassword:     getenv("REDIS_PASSWORD"),
		SMTP: SMTPConfig{
			Host:     getenv("SMTP_HOST"),
			Username: getenv("SMTP_USER"),
			Password: getenv("SMTP_PASS"),
			From:     get("SMTP_FROM", getenv("SMTP_USER")),
		},
		Seed: SeedUser{
			Username: getenv("SEED_USERNAME"),
			Password: getenv("SEED_PASSWORD"),
			Email:    getenv("SEED_EMAIL"),
		},
		MQTT: MQTTConfig{
			Broker:      get("MQTT_BROKER", "tcp://localhost:1883"),
			ClientID:    get("MQTT_CLIENT_ID", "facility-ingestor"),
			TopicPrefix: strings.TrimRight(get("MQTT_TOPIC_PREFIX", "facility"), "/"),
		},
	}

	var err error
	if cfg.LogLevel, err = parseLevel(get("LOG_LEVEL", "info")); err != nil {
		return Config{}, err
	}
	if cfg.TokenTTL, err = time.ParseDuration(get("TOKEN_TTL", "24h")); err != nil {
		return Config{}, fmt.Errorf("invalid TOKEN_TTL: %w", err)
	}
	if cfg.ResetTokenTTL, err = time.ParseDuration(get("RESET_TOKEN_TTL", "1h")); err != nil {
		return Config{}, fmt.Errorf("invalid RESET_TOKEN_TTL: %w", err)
	}
	if cfg.SMTP.Port, err = strconv.Atoi(get("SMTP_PORT", "465")); err != nil {
		return Config{}, fmt.Errorf("invalid SMTP_PORT: %w", err)
	}
	if cfg.RedisDB, err = strconv.Atoi(get("REDIS_DB", "0")); err != nil {
		return Config{}, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	maxConns, err := strconv.Atoi(get("DB_MAX_CONNS", "10"))
	if err != nil || maxConns < 1 {
		return Config{}, fmt.Errorf("invalid DB_MAX_CONNS %q", getenv("DB_MAX_CONNS"))
	}
	cfg.DBMaxConns = int32(maxConns)

	cfg.CORSAllowedOrigins = splitList(get("CORS_ALLOWED_ORIGINS", cfg.FrontendURL))

	cfg.DatabaseURL = getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = buildDatabaseURL(get)
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET must be set")
	}
	switch cfg.TelemetryBackend {
	case BackendPostgres:
	case BackendInflux:
		if cfg.InfluxDBURL == "" || cfg.InfluxDBToken == "" || cfg.InfluxDBOrg == "" {
			return Config{}, fmt.Errorf("InfluxDB configuration is incomplete. Please set INFLUXDB_URL, INFLUXDB_TOKEN, and INFLUXDB_ORG environment variables")
		}
	default:
		return Config{}, fmt.Errorf("unknown TELEMETRY_BACKEND %q", cfg.TelemetryBackend)
	}
	if cfg.ResetTokenBackend != BackendPostgres && cfg.ResetTokenBackend != BackendRedis {
		return Config{}, fmt.Errorf("unknown RESET_TOKEN_BACKEND %q", cfg.ResetTokenBackend)
	}
	return cfg, nil
}

func buildDatabaseURL(get func(string, string) string) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(get("DB_USER", "postgres"), get("DB_PASSWORD", "")),
		Host:   get("DB_HOST", "localhost") + ":" + get("DB_PORT", "5432"),
		Path:   "/" + get("DB_NAME", "monitoring"),
	}
	q := url.Values{}
	q.Set("sslmode", get("DB_SSLMODE", "disable"))
	u.RawQuery = q.Encode()
	return u.String()
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return l, fmt.Errorf("invalid LOG_LEVEL %q: %w", s, err)
	}
	return l, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
