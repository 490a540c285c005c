package dashboard

import (
	"time"

	"facilitymonitor/internal/models"
	"facilitymonitor/internal/status"
)

// MetricStatus is one classified value shown on a card.
type MetricStatus struct {
	Label  string
	Metric status.Metric
	Value  float64
	Unit   string
	Level  status.Level
	Trend  status.Direction
}

// CategoryStatus is the derived display state of one category.
type CategoryStatus struct {
	Category     Category
	Online       bool
	Availability models.Availability
	Level        status.Level
	Metrics      []MetricStatus
	CapturedAt   time.Time
	Err          error
}

var categoryTitles = map[Category]string{
	Sensor1:     "Sensor 1",
	Sensor2:     "Sensor 2",
	FireSmoke:   "Fire/Smoke",
	Electricity: "Electricity",
}

// Derive classifies every category of state at now. It is recomputed on its
// own clock so a reading can turn offline between two polls.
func Derive(state ViewState, order []Category, now time.Time) []CategoryStatus {
	out := make([]CategoryStatus, 0, len(order))
	for _, c := range order {
		cs := state.Categories[c]
		st := CategoryStatus{Category: c, Err: cs.Err, Level: status.Offline}
		if cs.Reading != nil {
			st.CapturedAt = cs.Reading.CapturedAt()
			st.Availability = cs.Reading.Availability()
			st.Online = status.Online(st.CapturedAt, now)
			st.Metrics = metricsOf(*cs.Reading)

			levels := make([]status.Level, len(st.Metrics))
			for i, m := range st.Metrics {
				levels[i] = m.Level
			}
			st.Level = status.Worst(levels...)
			if !st.Online {
				st.Level = status.Offline
			}
		}
		out = append(out, st)
	}
	return out
}

func metric(label string, m status.Metric, v float64, unit string) MetricStatus {
	return MetricStatus{
		Label:  label,
		Metric: m,
		Value:  v,
		Unit:   unit,
		Level:  status.Classify(m, v),
		Trend:  status.Trend(m, v),
	}
}

func metricsOf(r Reading) []MetricStatus {
	switch {
	case r.Climate != nil:
		title := categoryTitles[r.Category]
		return []MetricStatus{
			metric("Temperature "+title, status.Temperature, r.Climate.Temperature, "°C"),
			metric("Humidity "+title, status.Humidity, r.Climate.Humidity, "%"),
		}
	case r.FireSmoke != nil:
		return []MetricStatus{
			metric("Fire level", status.FireIndex, r.FireSmoke.FireIndex, ""),
			metric("Smoke level", status.SmokeIndex, r.FireSmoke.SmokeIndex, ""),
		}
	case r.Electricity != nil:
		e := r.Electricity
		return []MetricStatus{
			metric("Voltage R", status.Voltage, e.VoltageR, "V"),
			metric("Voltage S", status.Voltage, e.VoltageS, "V"),
			metric("Voltage T", status.Voltage, e.VoltageT, "V"),
			metric("Power R", status.Power, e.PowerR, "W"),
			metric("Power S", status.Power, e.PowerS, "W"),
			metric("Power T", status.Power, e.PowerT, "W"),
			metric("Power factor", status.PowerFactor, e.PowerFactor3Ph, ""),
		}
	}
	return nil
}
