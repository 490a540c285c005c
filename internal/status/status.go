// Package status derives display state from readings. Every function is pure:
// the result depends only on the arguments.
package status

import (
	"math"
	"time"
)

// Level is the severity shown for a metric.
type Level string

const (
	Normal   Level = "normal"
	Warning  Level = "warning"
	Critical Level = "critical"
	Offline  Level = "offline"
)

// OnlineWindow is the maximum reading age still considered live.
const OnlineWindow = 60 * time.Second

// Online reports whether a reading captured at capturedAt is fresh at now.
// Readings stamped in the future count as online.
func Online(capturedAt, now time.Time) bool {
	return now.Sub(capturedAt) <= OnlineWindow
}

// Band holds the inclusive normal range (WarnLow..WarnHigh) inside the
// inclusive acceptable range (CritLow..CritHigh).
type Band struct {
	CritLow, WarnLow, WarnHigh, CritHigh float64
}

// Classify places v in the band. Boundary values belong to the inner range.
func (b Band) Classify(v float64) Level {
	switch {
	case v < b.CritLow || v > b.CritHigh:
		return Critical
	case v < b.WarnLow || v > b.WarnHigh:
		return Warning
	default:
		return Normal
	}
}

// Metric identifies what a value measures.
type Metric string

const (
	Temperature Metric = "temperature"
	Humidity    Metric = "humidity"
	FireIndex   Metric = "fire"
	SmokeIndex  Metric = "smoke"
	Voltage     Metric = "voltage"
	Power       Metric = "power"
	PowerFactor Metric = "power_factor"
)

var (
	noLow  = math.Inf(-1)
	noHigh = math.Inf(1)
)

var bands = map[Metric]Band{
	Temperature: {CritLow: 10, WarnLow: 18, WarnHigh: 30, CritHigh: 35},
	Humidity:    {CritLow: 20, WarnLow: 30, WarnHigh: 70, CritHigh: 80},
	FireIndex:   {CritLow: noLow, WarnLow: noLow, WarnHigh: 50, CritHigh: 80},
	SmokeIndex:  {CritLow: noLow, WarnLow: noLow, WarnHigh: 50, CritHigh: 80},
	Voltage:     {CritLow: 200, WarnLow: 210, WarnHigh: 230, CritHigh: 240},
	Power:       {CritLow: noLow, WarnLow: noLow, WarnHigh: 12000, CritHigh: 15000},
	PowerFactor: {CritLow: 0.80, WarnLow: 0.90, WarnHigh: 1.0, CritHigh: 1.0},
}

// BandFor returns the thresholds of m.
func BandFor(m Metric) (Band, bool) {
	b, ok := bands[m]
	return b, ok
}

// Classify returns the level of value for metric m. Metrics without
// thresholds are always Normal.
func Classify(m Metric, value float64) Level {
	b, ok := bands[m]
	if !ok {
		return Normal
	}
	return b.Classify(value)
}

// ClassifyOptional is Classify for a value that may be absent; absent is Offline.
func ClassifyOptional(m Metric, value *float64) Level {
	if value == nil {
		return Offline
	}
	return Classify(m, *value)
}

// Direction is the trend arrow next to a value.
type Direction string

const (
	Up     Direction = "up"
	Down   Direction = "down"
	Stable Direction = "stable"
)

// trendReference is the fixed value a reading is compared to. This is not a
// comparison with the previous reading.
var trendReference = map[Metric]float64{
	FireIndex:  20,
	SmokeIndex: 30,
}

func Trend(m Metric, value float64) Direction {
	ref, ok := trendReference[m]
	if !ok {
		return Stable
	}
	if value > ref {
		return Up
	}
	return Down
}

// GaugeLevel colours a gauge by the position of value within min..max.
func GaugeLevel(value, min, max float64) Level {
	if max <= min {
		return Normal
	}
	n := (value - min) / (max - min)
	if n > 0.8 || n < 0.2 {
		return Critical
	}
	return Normal
}

// Worst returns the most severe of levels, Offline ranking above Critical.
func Worst(levels ...Level) Level {
	rank := map[Level]int{Normal: 0, Warning: 1, Critical: 2, Offline: 3}
	worst := Normal
	for _, l := range levels {
		if rank[l] > rank[worst] {
			worst = l
		}
	}
	return worst
}
