package models

import "time"

// ClimateReading is one row of the temperature/humidity table.
type ClimateReading struct {
	ID          int64     `json:"id,omitempty" db:"id"`
	Temperature float64   `json:"suhu" db:"suhu"`
	Humidity    float64   `json:"kelembapan" db:"kelembapan"`
	Timestamp   time.Time `json:"timestamp" db:"waktu"`
}

// FireSmokeReading is one row of the fire/smoke index table.
type FireSmokeReading struct {
	ID         int64     `json:"id,omitempty" db:"id"`
	FireIndex  float64   `json:"api_value" db:"api_value"`
	SmokeIndex float64   `json:"asap_value" db:"asap_value"`
	Timestamp  time.Time `json:"timestamp" db:"waktu"`
}

// ElectricityReading is one row of the three-phase power table. The R, S and T
// suffixes name the phase lines, 3ph the aggregate.
type ElectricityReading struct {
	ID int64 `json:"id,omitempty" db:"id"`

	VoltageR float64 `json:"phase_r" db:"phase_r"`
	VoltageS float64 `json:"phase_s" db:"phase_s"`
	VoltageT float64 `json:"phase_t" db:"phase_t"`

	CurrentR float64 `json:"current_r" db:"current_r"`
	CurrentS float64 `json:"current_s" db:"current_s"`
	CurrentT float64 `json:"current_t" db:"current_t"`

	PowerR float64 `json:"power_r" db:"power_r"`
	PowerS float64 `json:"power_s" db:"power_s"`
	PowerT float64 `json:"power_t" db:"power_t"`

	EnergyR float64 `json:"energy_r" db:"energy_r"`
	EnergyS float64 `json:"energy_s" db:"energy_s"`
	EnergyT float64 `json:"energy_t" db:"energy_t"`

	FrequencyR float64 `json:"frequency_r" db:"frequency_r"`
	FrequencyS float64 `json:"frequency_s" db:"frequency_s"`
	FrequencyT float64 `json:"frequency_t" db:"frequency_t"`

	PowerFactorR float64 `json:"pf_r" db:"pf_r"`
	PowerFactorS float64 `json:"pf_s" db:"pf_s"`
	PowerFactorT float64 `json:"pf_t" db:"pf_t"`

	ApparentPowerR float64 `json:"va_r" db:"va_r"`
	ApparentPowerS float64 `json:"va_s" db:"va_s"`
	ApparentPowerT float64 `json:"va_t" db:"va_t"`

	ReactivePowerR float64 `json:"var_r" db:"var_r"`
	ReactivePowerS float64 `json:"var_s" db:"var_s"`
	ReactivePowerT float64 `json:"var_t" db:"var_t"`

	Voltage3Ph       float64 `json:"voltage_3ph" db:"voltage_3ph"`
	Current3Ph       float64 `json:"current_3ph" db:"current_3ph"`
	Power3Ph         float64 `json:"power_3ph" db:"power_3ph"`
	Energy3Ph        float64 `json:"energy_3ph" db:"energy_3ph"`
	Frequency3Ph     float64 `json:"frequency_3ph" db:"frequency_3ph"`
	PowerFactor3Ph   float64 `json:"pf_3ph" db:"pf_3ph"`
	ApparentPower3Ph float64 `json:"va_3ph" db:"va_3ph"`
	ReactivePower3Ph float64 `json:"var_3ph" db:"var_3ph"`

	Timestamp time.Time `json:"timestamp" db:"waktu"`
}

// ElectricityColumns lists the value columns of ElectricityReading in table order.
var ElectricityColumns = []string{
	"phase_r", "phase_s", "phase_t",
	"current_r", "current_s", "current_t",
	"power_r", "power_s", "power_t",
	"energy_r", "energy_s", "energy_t",
	"frequency_r", "frequency_s", "frequency_t",
	"pf_r", "pf_s", "pf_t",
	"va_r", "va_s", "va_t",
	"var_r", "var_s", "var_t",
	"voltage_3ph", "current_3ph", "power_3ph", "energy_3ph",
	"frequency_3ph", "pf_3ph", "va_3ph", "var_3ph",
}

// Values returns the readings in ElectricityColumns order.
func (e ElectricityReading) Values() []float64 {
	return []float64{
		e.VoltageR, e.VoltageS, e.VoltageT,
		e.CurrentR, e.CurrentS, e.CurrentT,
		e.PowerR, e.PowerS, e.PowerT,
		e.EnergyR, e.EnergyS, e.EnergyT,
		e.FrequencyR, e.FrequencyS, e.FrequencyT,
		e.PowerFactorR, e.PowerFactorS, e.PowerFactorT,
		e.ApparentPowerR, e.ApparentPowerS, e.ApparentPowerT,
		e.ReactivePowerR, e.ReactivePowerS, e.ReactivePowerT,
		e.Voltage3Ph, e.Current3Ph, e.Power3Ph, e.Energy3Ph,
		e.Frequency3Ph, e.PowerFactor3Ph, e.ApparentPower3Ph, e.ReactivePower3Ph,
	}
}

// SetValues is the inverse of Values. Missing trailing values are left untouched.
func (e *ElectricityReading) SetValues(v []float64) {
	dst := []*float64{
		&e.VoltageR, &e.VoltageS, &e.VoltageT,
		&e.CurrentR, &e.CurrentS, &e.CurrentT,
		&e.PowerR, &e.PowerS, &e.PowerT,
		&e.EnergyR, &e.EnergyS, &e.EnergyT,
		&e.FrequencyR, &e.FrequencyS, &e.FrequencyT,
		&e.PowerFactorR, &e.PowerFactorS, &e.PowerFactorT,
		&e.ApparentPowerR, &e.ApparentPowerS, &e.ApparentPowerT,
		&e.ReactivePowerR, &e.ReactivePowerS, &e.ReactivePowerT,
		&e.Voltage3Ph, &e.Current3Ph, &e.Power3Ph, &e.Energy3Ph,
		&e.Frequency3Ph, &e.PowerFactor3Ph, &e.ApparentPower3Ph, &e.ReactivePower3Ph,
	}
	for i := range dst {
		if i >= len(v) {
			return
		}
		*dst[i] = v[i]
	}
}
