//go:build linux

package thermo

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

const chipName = "gpiochip0"

var _ Sensor = (*MAX6675)(nil)

// MAX6675 reads a MAX6675 over bit-banged SPI using Linux GPIO character device.
// A conversion takes up to 220 ms and pulling CS low aborts the one in
// progress, so the chip returns the last completed conversion. With a tick
// period shorter than that, consecutive reads can repeat a stale value.
type MAX6675 struct {
	chip *gpiocdev.Chip
	sck  *gpiocdev.Line
	cs   *gpiocdev.Line
	so   *gpiocdev.Line
}

// NewMAX6675 requests the clock and chip-select pins as outputs and the data
// pin as an input.
func NewMAX6675(pinSCK, pinCS, pinSO int) (*MAX6675, error) {
	chip, err := gpiocdev.NewChip(chipName, gpiocdev.WithConsumer("reflow-controller"))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	m := &MAX6675{chip: chip}

	if m.sck, err = chip.RequestLine(pinSCK, gpiocdev.AsOutput(0)); err != nil {
		m.Close()
		return nil, fmt.Errorf("request SCK pin %d: %w", pinSCK, err)
	}
	// CS idles high; bringing it low stops a conversion and latches the result.
	if m.cs, err = chip.RequestLine(pinCS, gpiocdev.AsOutput(1)); err != nil {
		m.Close()
		return nil, fmt.Errorf("request CS pin %d: %w", pinCS, err)
	}
	if m.so, err = chip.RequestLine(pinSO, gpiocdev.AsInput); err != nil {
		m.Close()
		return nil, fmt.Errorf("request SO pin %d: %w", pinSO, err)
	}

	return m, nil
}

// ReadTemperature clocks out one 16-bit frame and decodes it.
func (m *MAX6675) ReadTemperature() (float64, error) {
	frame, err := m.readFrame()
	if err != nil {
		return 0, err
	}
	return DecodeMAX6675(frame)
}

func (m *MAX6675) readFrame() (uint16, error) {
	if err := m.cs.SetValue(0); err != nil {
		return 0, fmt.Errorf("max6675: assert CS: %w", err)
	}
	// Always release CS so the next conversion starts.
	defer m.cs.SetValue(1)

	var frame uint16
	for i := 0; i < 16; i++ {
		if err := m.sck.SetValue(1); err != nil {
			return 0, fmt.Errorf("max6675: clock high: %w", err)
		}
		v, err := m.so.Value()
		if err != nil {
			return 0, fmt.Errorf("max6675: read SO: %w", err)
		}
		if err := m.sck.SetValue(0); err != nil {
			return 0, fmt.Errorf("max6675: clock low: %w", err)
		}
		frame = frame<<1 | uint16(v&1)
	}
	return frame, nil
}

// Close releases GPIO resources.
func (m *MAX6675) Close() error {
	var errs []error
	for _, l := range []*gpiocdev.Line{m.sck, m.cs, m.so} {
		if l == nil {
			continue
		}
		if err := l.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if m.chip != nil {
		if err := m.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
