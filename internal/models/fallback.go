package models

import "time"

// Offsets applied to sensor 1 when no second climate row exists.
const (
	Sensor2TemperatureOffset = 1.2
	Sensor2HumidityOffset    = 3.5
)

// FallbackClimate is served for sensor 1 when the climate table is empty.
func FallbackClimate(now time.Time) ClimateReading {
	return ClimateReading{Temperature: 25.0, Humidity: 60.0, Timestamp: now}
}

// DeriveSensor2 shifts a sensor 1 reading by the fixed sensor 2 offsets.
func DeriveSensor2(first ClimateReading) ClimateReading {
	return ClimateReading{
		Temperature: first.Temperature + Sensor2TemperatureOffset,
		Humidity:    first.Humidity + Sensor2HumidityOffset,
		Timestamp:   first.Timestamp,
	}
}

func FallbackFireSmoke(now time.Time) FireSmokeReading {
	return FireSmokeReading{FireIndex: 15, SmokeIndex: 25, Timestamp: now}
}

func FallbackElectricity(now time.Time) ElectricityReading {
	return ElectricityReading{
		VoltageR: 220, VoltageS: 222, VoltageT: 221,
		CurrentR: 15, CurrentS: 16, CurrentT: 14,
		PowerR: 3300, PowerS: 3552, PowerT: 3094,
		EnergyR: 12500, EnergyS: 13200, EnergyT: 11800,
		FrequencyR: 50.1, FrequencyS: 50.2, FrequencyT: 50.0,
		PowerFactorR: 0.92, PowerFactorS: 0.93, PowerFactorT: 0.91,
		ApparentPowerR: 3580, ApparentPowerS: 3820, ApparentPowerT: 3400,
		ReactivePowerR: 1200, ReactivePowerS: 1240, ReactivePowerT: 1180,
		Voltage3Ph:       221,
		Current3Ph:       45,
		Power3Ph:         9946,
		Energy3Ph:        37500,
		Frequency3Ph:     50.1,
		PowerFactor3Ph:   0.92,
		ApparentPower3Ph: 10800,
		ReactivePower3Ph: 3620,
		Timestamp:        now,
	}
}
