//go:build !linux

package thermo

import "errors"

// MAX6675 is not available on non-Linux platforms.
type MAX6675 struct{}

// NewMAX6675 returns an error on non-Linux platforms.
func NewMAX6675(pinSCK, pinCS, pinSO int) (*MAX6675, error) {
	return nil, errors.New("thermo: not supported on this platform (requires Linux)")
}

// ReadTemperature is not implemented on non-Linux platforms.
func (m *MAX6675) ReadTemperature() (float64, error) {
	return 0, errors.New("thermo: not supported")
}

// Close is not implemented on non-Linux platforms.
func (m *MAX6675) Close() error {
	return nil
}
