// Package gpio provides the heater output and start/stop button with
// hardware abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import "time"

// Switch drives the solid-state relay feeding the heating element.
type Switch interface {
	// On energises the heater. Calling it while already on is a no-op.
	On() error

	// Off de-energises the heater. Calling it while already off is a no-op.
	Off() error

	// Close forces the heater off and releases GPIO resources.
	Close() error
}

// Button delivers debounced presses of the start/stop button.
type Button interface {
	Close() error
}

// Default pin definitions (BCM numbering).
const (
	DefaultPinHeater = 17 // SSR control
	DefaultPinButton = 27 // active-low push button
)

// DefaultDebounce suppresses contact bounce on the start/stop button.
const DefaultDebounce = 200 * time.Millisecond
