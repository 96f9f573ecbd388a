package session

import "sync/atomic"

// Signal is the start/stop request shared between the button handler and the
// control loop. Writers only ever set it; the control loop clears it when a
// run starts and when a stop has been acknowledged.
type Signal struct {
	pressed atomic.Bool
}

// Press asserts the signal. Safe to call from any goroutine.
func (s *Signal) Press() {
	s.pressed.Store(true)
}

// Pressed reports whether the signal is asserted.
func (s *Signal) Pressed() bool {
	return s.pressed.Load()
}

// Clear deasserts the signal.
func (s *Signal) Clear() {
	s.pressed.Store(false)
}
