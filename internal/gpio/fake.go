package gpio

import "sync"

var _ Switch = (*FakeSwitch)(nil)

// FakeSwitch is a test double that records heater commands.
type FakeSwitch struct {
	mu sync.Mutex

	// on is the current output state.
	on bool

	// Transitions counts off->on and on->off changes.
	transitions int

	// Commands records every On (true) and Off (false) call in order.
	commands []bool

	// Closed tracks if Close was called
	Closed bool

	// SwitchError, if set, will be returned by On and Off.
	SwitchError error
}

// NewFakeSwitch creates a FakeSwitch in the off state.
func NewFakeSwitch() *FakeSwitch {
	return &FakeSwitch{}
}

// On records an on command.
func (f *FakeSwitch) On() error {
	return f.set(true)
}

// Off records an off command.
func (f *FakeSwitch) Off() error {
	return f.set(false)
}

func (f *FakeSwitch) set(on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, on)
	if f.SwitchError != nil {
		return f.SwitchError
	}
	if f.on != on {
		f.transitions++
	}
	f.on = on
	return nil
}

// IsOn reports the current output state.
func (f *FakeSwitch) IsOn() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.on
}

// Commands returns a copy of the recorded commands.
func (f *FakeSwitch) Commands() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]bool(nil), f.commands...)
}

// Transitions returns how many times the output changed state.
func (f *FakeSwitch) Transitions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.transitions
}

// Close forces the output off and marks the switch as closed.
func (f *FakeSwitch) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.on = false
	f.Closed = true
	return nil
}

// Reset clears recorded commands.
func (f *FakeSwitch) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.on = false
	f.transitions = 0
	f.commands = nil
	f.Closed = false
	f.SwitchError = nil
}
