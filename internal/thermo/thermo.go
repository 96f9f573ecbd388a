// Package thermo reads the hot plate temperature.
// The real implementation bit-bangs a MAX6675 thermocouple converter over
// three GPIO lines; the fake returns scripted readings for tests.
package thermo

import (
	"errors"
	"fmt"
)

// Sensor reads the plate temperature in degrees Celsius.
type Sensor interface {
	ReadTemperature() (float64, error)
}

// ErrOpenThermocouple is reported when the MAX6675 detects no probe.
var ErrOpenThermocouple = errors.New("thermocouple input open")

// Default pin definitions (BCM numbering, SPI0 header pins).
const (
	DefaultPinSCK = 11
	DefaultPinCS  = 8
	DefaultPinSO  = 9
)

// MAX6675 frame layout: D15 dummy sign bit, D14..D3 temperature in 0.25 °C
// steps, D2 open-input flag, D1 device ID, D0 tri-state.
const (
	max6675OpenBit   = 1 << 2
	max6675DummyBit  = 1 << 15
	max6675Shift     = 3
	max6675Increment = 0.25
)

// DecodeMAX6675 converts a raw 16-bit MAX6675 frame to degrees Celsius.
func DecodeMAX6675(frame uint16) (float64, error) {
	if frame&max6675DummyBit != 0 {
		return 0, fmt.Errorf("max6675: invalid frame 0x%04x", frame)
	}
	if frame&max6675OpenBit != 0 {
		return 0, ErrOpenThermocouple
	}
	return float64(frame>>max6675Shift) * max6675Increment, nil
}
