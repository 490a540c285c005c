package controller

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"facilitymonitor/internal/metrics"
	"facilitymonitor/internal/models"
	"facilitymonitor/internal/utils"
	"github.com/gorilla/mux"
)

// AvailabilityHeader repeats the availability tag of a latest-reading response.
const AvailabilityHeader = "X-Data-Availability"

// TelemetryReader is the part of service.TelemetryService the HTTP layer uses.
type TelemetryReader interface {
	LatestClimate(ctx context.Context, sensor int) (models.ClimateSample, error)
	LatestFireSmoke(ctx context.Context) (models.FireSmokeSample, error)
	LatestElectricity(ctx context.Context) (models.ElectricitySample, error)
	Export(ctx context.Context, kind models.ExportKind) (models.ExportData, error)
	Ready(ctx context.Context) error
}

// TelemetryController serves the latest readings and history exports.
type TelemetryController struct {
	telemetry TelemetryReader
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func NewTelemetryController(telemetry TelemetryReader, m *metrics.Metrics, logger *slog.Logger) *TelemetryController {
	return &TelemetryController{telemetry: telemetry, metrics: m, logger: logger}
}

func (c *TelemetryController) respondWithSample(w http.ResponseWriter, category string, availability models.Availability, sample any) {
	if !availability.IsReal() {
		c.metrics.Fallback(category)
	}
	w.Header().Set(AvailabilityHeader, string(availability))
	utils.RespondWithJSON(w, http.StatusOK, sample)
}

// HandleSensor serves climate sensor 1 or 2.
func (c *TelemetryController) HandleSensor(sensor int) http.HandlerFunc {
	category := "sensor" + strconv.Itoa(sensor)
	return func(w http.ResponseWriter, r *http.Request) {
		sample, err := c.telemetry.LatestClimate(r.Context(), sensor)
		if err != nil {
			c.logger.Error("error fetching sensor data", "sensor", sensor, "error", err)
			respondWithServiceError(w, err, fmt.Sprintf("Failed to fetch sensor %d data", sensor))
			return
		}
		c.respondWithSample(w, category, sample.Availability, sample)
	}
}

func (c *TelemetryController) HandleFireSmoke(w http.ResponseWriter, r *http.Request) {
	sample, err := c.telemetry.LatestFireSmoke(r.Context())
	if err != nil {
		c.logger.Error("error fetching fire/smoke data", "error", err)
		respondWithServiceError(w, err, "Failed to fetch fire/smoke data")
		return
	}
	c.respondWithSample(w, "fire-smoke", sample.Availability, sample)
}

func (c *TelemetryController) HandleElectricity(w http.ResponseWriter, r *http.Request) {
	sample, err := c.telemetry.LatestElectricity(r.Context())
	if err != nil {
		c.logger.Error("error fetching electricity data", "error", err)
		respondWithServiceError(w, err, "Failed to fetch electricity data")
		return
	}
	c.respondWithSample(w, "electricity", sample.Availability, sample)
}

// HandleExport returns the full history of {kind} as JSON, or CSV with ?format=csv.
func (c *TelemetryController) HandleExport(w http.ResponseWriter, r *http.Request) {
	kind, err := models.ParseExportKind(mux.Vars(r)["kind"])
	if err != nil {
		utils.RespondWithError(w, models.NewAPIError(models.ErrorCodeBadRequest, err.Error(), nil, http.StatusBadRequest))
		return
	}

	format := r.URL.Query().Get("format")
	if format != "" && format != "json" && format != "csv" {
		utils.RespondWithError(w, models.NewAPIError(models.ErrorCodeBadRequest, "format must be json or csv", nil, http.StatusBadRequest))
		return
	}

	data, err := c.telemetry.Export(r.Context(), kind)
	if err != nil {
		c.logger.Error("error exporting data", "kind", kind, "error", err)
		respondWithServiceError(w, err, "Failed to export data")
		return
	}

	if format != "csv" {
		utils.RespondWithJSON(w, http.StatusOK, data.Payload())
		return
	}

	filename := fmt.Sprintf("%s_%s.csv", kind, time.Now().Format("2006-01-02_15-04"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	if err := writeCSV(w, data); err != nil {
		c.logger.Error("error writing csv export", "kind", kind, "error", err)
	}
}

func writeCSV(w http.ResponseWriter, data models.ExportData) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(data.Header()); err != nil {
		return err
	}
	for i := 0; i < data.Len(); i++ {
		row := data.Row(i)
		record := make([]string, len(row))
		for j, cell := range row {
			record[j] = formatCell(cell)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatCell(v any) string {
	switch x := v.(type) {
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		return x.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprint(x)
	}
}

// HandleHealth reports liveness.
func (c *TelemetryController) HandleHealth(w http.ResponseWriter, r *http.Request) {
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleReady reports whether the telemetry store is reachable.
func (c *TelemetryController) HandleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := c.telemetry.Ready(ctx); err != nil {
		utils.RespondWithError(w, models.NewAPIError(models.ErrorCodeInternalServerError, "store unavailable", err.Error(), http.StatusServiceUnavailable))
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
