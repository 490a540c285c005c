package models

import (
	"fmt"
	"strings"
)

// ExportKind names a telemetry history that can be exported.
type ExportKind string

const (
	ExportSensor      ExportKind = "sensor-data"
	ExportFireSmoke   ExportKind = "fire-smoke"
	ExportElectricity ExportKind = "electricity"
)

// ParseExportKind accepts the path segment used by the export endpoint.
func ParseExportKind(s string) (ExportKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sensor", "sensor-data", "sensor_data":
		return ExportSensor, nil
	case "fire-smoke", "fire_smoke", "api-asap":
		return ExportFireSmoke, nil
	case "electricity", "listrik":
		return ExportElectricity, nil
	}
	return "", fmt.Errorf("unknown export kind %q", s)
}

// ExportData is the full history of one kind, newest first. Exactly one slice is set.
type ExportData struct {
	Kind        ExportKind
	Climate     []ClimateReading
	FireSmoke   []FireSmokeReading
	Electricity []ElectricityReading
}

// Header returns the tabular column names for the kind.
func (d ExportData) Header() []string {
	switch d.Kind {
	case ExportSensor:
		return []string{"id", "suhu", "kelembapan", "timestamp"}
	case ExportFireSmoke:
		return []string{"id", "api_value", "asap_value", "timestamp"}
	default:
		h := append([]string{"id"}, ElectricityColumns...)
		return append(h, "timestamp")
	}
}

// Len returns the number of rows.
func (d ExportData) Len() int {
	switch d.Kind {
	case ExportSensor:
		return len(d.Climate)
	case ExportFireSmoke:
		return len(d.FireSmoke)
	default:
		return len(d.Electricity)
	}
}

// Payload returns the rows as a JSON-encodable slice, never nil.
func (d ExportData) Payload() any {
	switch d.Kind {
	case ExportSensor:
		if d.Climate == nil {
			return []ClimateReading{}
		}
		return d.Climate
	case ExportFireSmoke:
		if d.FireSmoke == nil {
			return []FireSmokeReading{}
		}
		return d.FireSmoke
	default:
		if d.Electricity == nil {
			return []ElectricityReading{}
		}
		return d.Electricity
	}
}

// Row returns the cells of row i in Header order: the id, the float values,
// then the capture time.
func (d ExportData) Row(i int) []any {
	var (
		id     int64
		values []float64
		ts     any
	)
	switch d.Kind {
	case ExportSensor:
		r := d.Climate[i]
		id, values, ts = r.ID, []float64{r.Temperature, r.Humidity}, r.Timestamp
	case ExportFireSmoke:
		r := d.FireSmoke[i]
		id, values, ts = r.ID, []float64{r.FireIndex, r.SmokeIndex}, r.Timestamp
	default:
		r := d.Electricity[i]
		id, values, ts = r.ID, r.Values(), r.Timestamp
	}
	row := make([]any, 0, len(values)+2)
	row = append(row, id)
	for _, v := range values {
		row = append(row, v)
	}
	return append(row, ts)
}
