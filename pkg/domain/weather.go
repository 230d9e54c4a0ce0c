package domain

import "math"

// Forecast is a value object: no identity, never cached or deduplicated.
// High and Low are always Celsius.
type Forecast struct {
	Condition  string  `json:"condition"`
	High       float64 `json:"high"`
	Low        float64 `json:"low"`
	Date       string  `json:"date"`
	Historical bool    `json:"historical"`
}

type TemperatureUnit string

const (
	Celsius    TemperatureUnit = "C"
	Fahrenheit TemperatureUnit = "F"
)

type Temperature struct {
	Unit TemperatureUnit `json:"unit"`
	High int             `json:"high"`
	Low  int             `json:"low"`
}

func CelsiusToFahrenheit(c float64) float64 {
	return c*9/5 + 32
}

// Temperature converts at read time; the forecast itself is not modified.
// Anything other than Celsius is reported in Fahrenheit.
func (f Forecast) Temperature(unit TemperatureUnit) Temperature {
	high, low := f.High, f.Low
	if unit != Celsius {
		unit = Fahrenheit
		high, low = CelsiusToFahrenheit(high), CelsiusToFahrenheit(low)
	}
	return Temperature{Unit: unit, High: roundHalfUp(high), Low: roundHalfUp(low)}
}

// roundHalfUp rounds .5 towards positive infinity (-2.5 -> -2).
func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}
