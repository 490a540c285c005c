// Package ingest stores readings that devices publish over MQTT.
package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"facilitymonitor/internal/metrics"
	"facilitymonitor/internal/models"
	"facilitymonitor/internal/repository"
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Topic suffixes under the configured prefix.
const (
	TopicClimate     = "climate"
	TopicFireSmoke   = "fire-smoke"
	TopicElectricity = "electricity"
)

var ErrUnknownTopic = errors.New("unknown topic")

// Handler decodes device payloads and writes them to the store.
type Handler struct {
	writer  repository.TelemetryWriter
	prefix  string
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

func NewHandler(writer repository.TelemetryWriter, prefix string, m *metrics.Metrics, logger *slog.Logger) *Handler {
	return &Handler{writer: writer, prefix: strings.TrimRight(prefix, "/"), metrics: m, logger: logger, now: time.Now}
}

// Topics returns the subscriptions the handler understands.
func (h *Handler) Topics() []string {
	return []string{
		h.prefix + "/" + TopicClimate,
		h.prefix + "/" + TopicFireSmoke,
		h.prefix + "/" + TopicElectricity,
	}
}

type climatePayload struct {
	Temperature *float64  `json:"suhu"`
	Humidity    *float64  `json:"kelembapan"`
	Timestamp   time.Time `json:"timestamp"`
}

type fireSmokePayload struct {
	FireIndex  *float64  `json:"api_value"`
	SmokeIndex *float64  `json:"asap_value"`
	Timestamp  time.Time `json:"timestamp"`
}

// Handle stores one message. A reading without a timestamp is stamped with
// the time it was received.
func (h *Handler) Handle(ctx context.Context, topic string, payload []byte) error {
	category := strings.TrimPrefix(topic, h.prefix+"/")
	err := h.handle(ctx, category, payload)
	h.metrics.Ingested(category, err)
	return err
}

func (h *Handler) handle(ctx context.Context, category string, payload []byte) error {
	switch category {
	case TopicClimate:
		var p climatePayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return fmt.Errorf("decode climate payload: %w", err)
		}
		if p.Temperature == nil || p.Humidity == nil {
			return fmt.Errorf("climate payload needs suhu and kelembapan")
		}
		return h.writer.InsertClimate(ctx, models.ClimateReading{
			Temperature: *p.Temperature,
			Humidity:    *p.Humidity,
			Timestamp:   h.stamp(p.Timestamp),
		})

	case TopicFireSmoke:
		var p fireSmokePayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return fmt.Errorf("decode fire/smoke payload: %w", err)
		}
		if p.FireIndex == nil || p.SmokeIndex == nil {
			return fmt.Errorf("fire/smoke payload needs api_value and asap_value")
		}
		return h.writer.InsertFireSmoke(ctx, models.FireSmokeReading{
			FireIndex:  *p.FireIndex,
			SmokeIndex: *p.SmokeIndex,
			Timestamp:  h.stamp(p.Timestamp),
		})

	case TopicElectricity:
		var r models.ElectricityReading
		dec := json.NewDecoder(bytes.NewReader(payload))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&r); err != nil {
			return fmt.Errorf("decode electricity payload: %w", err)
		}
		r.ID = 0
		r.Timestamp = h.stamp(r.Timestamp)
		return h.writer.InsertElectricity(ctx, r)
	}
	return fmt.Errorf("%w %q", ErrUnknownTopic, category)
}

func (h *Handler) stamp(t time.Time) time.Time {
	if t.IsZero() {
		return h.now()
	}
	return t
}

// MessageHandler adapts Handle to the paho callback signature. Each message
// gets its own write deadline.
func (h *Handler) MessageHandler(timeout time.Duration) mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := h.Handle(ctx, msg.Topic(), msg.Payload()); err != nil {
			h.logger.Error("failed to store device message", "topic", msg.Topic(), "error", err)
			return
		}
		h.logger.Debug("device message stored", "topic", msg.Topic())
	}
}

// Subscribe connects client's subscriptions to the handler.
func (h *Handler) Subscribe(client mqtt.Client, timeout time.Duration) error {
	filters := make(map[string]byte, 3)
	for _, t := range h.Topics() {
		filters[t] = 1
	}
	token := client.SubscribeMultiple(filters, h.MessageHandler(timeout))
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("subscribe: %w", token.Error())
	}
	h.logger.Info("subscribed", "topics", h.Topics())
	return nil
}
