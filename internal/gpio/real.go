//go:build linux

package gpio

import (
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

const chipName = "gpiochip0"

const consumer = "reflow-controller"

var (
	_ Switch = (*RealSwitch)(nil)
	_ Button = (*RealButton)(nil)
)

// RealSwitch drives the SSR from actual hardware using Linux GPIO character device.
type RealSwitch struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

// NewRealSwitch requests the heater pin as an output, initially low (heater off).
func NewRealSwitch(pin int) (*RealSwitch, error) {
	chip, err := gpiocdev.NewChip(chipName, gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	line, err := chip.RequestLine(pin, gpiocdev.AsOutput(0))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request heater pin %d: %w", pin, err)
	}

	return &RealSwitch{chip: chip, line: line}, nil
}

// On drives the SSR pin high.
func (s *RealSwitch) On() error {
	return s.set(true)
}

// Off drives the SSR pin low.
func (s *RealSwitch) Off() error {
	return s.set(false)
}

func (s *RealSwitch) set(on bool) error {
	v := 0
	if on {
		v = 1
	}
	if err := s.line.SetValue(v); err != nil {
		return fmt.Errorf("set heater pin: %w", err)
	}
	return nil
}

// Close releases GPIO resources.
// The pin is driven low and then reconfigured as an input with pull-down
// so the SSR stays de-energised while nothing owns the line.
func (s *RealSwitch) Close() error {
	var errs []error

	if s.line != nil {
		if err := s.line.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("drive heater pin low: %w", err))
		}
		if err := s.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure heater pin: %w", err))
		}
		if err := s.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close heater pin: %w", err))
		}
	}
	if s.chip != nil {
		if err := s.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// RealButton watches the start/stop button for edge events.
type RealButton struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

// NewRealButton requests the button pin as an active-low input with pull-up.
// onPress is called from the gpiocdev event goroutine once per debounced press.
func NewRealButton(pin int, debounce time.Duration, onPress func()) (*RealButton, error) {
	chip, err := gpiocdev.NewChip(chipName, gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	handler := func(evt gpiocdev.LineEvent) {
		// Active low: a physical press is reported as a rising edge.
		if evt.Type == gpiocdev.LineEventRisingEdge {
			onPress()
		}
	}

	line, err := chip.RequestLine(pin,
		gpiocdev.AsInput,
		gpiocdev.AsActiveLow,
		gpiocdev.WithPullUp,
		gpiocdev.WithRisingEdge,
		gpiocdev.WithDebounce(debounce),
		gpiocdev.WithEventHandler(handler),
	)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request button pin %d: %w", pin, err)
	}

	return &RealButton{chip: chip, line: line}, nil
}

// Close stops edge detection and releases GPIO resources.
func (b *RealButton) Close() error {
	var errs []error
	if b.line != nil {
		if err := b.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close button pin: %w", err))
		}
	}
	if b.chip != nil {
		if err := b.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
