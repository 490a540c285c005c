package models

// Availability tells whether a latest-reading result came from the store.
type Availability string

const (
	// AvailabilityReal is a row read from the store.
	AvailabilityReal Availability = "real"
	// AvailabilitySynthetic is derived from another sensor's real row.
	AvailabilitySynthetic Availability = "synthetic"
	// AvailabilityFallback is a fixed placeholder served when the store is empty.
	AvailabilityFallback Availability = "fallback"
)

// IsReal reports whether the value was measured by the sensor it is reported for.
func (a Availability) IsReal() bool {
	return a == AvailabilityReal
}

// ClimateSample is a ClimateReading tagged with its availability. It marshals
// to the flat reading object plus an "availability" key.
type ClimateSample struct {
	ClimateReading
	Availability Availability `json:"availability"`
}

type FireSmokeSample struct {
	FireSmokeReading
	Availability Availability `json:"availability"`
}

type ElectricitySample struct {
	ElectricityReading
	Availability Availability `json:"availability"`
}
