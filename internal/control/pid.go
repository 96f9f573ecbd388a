package control

import "math"

// Regime selects a gain set for measured temperatures up to and including
// MaxC.
type Regime struct {
	MaxC  float64
	Gains Gains
}

// DefaultRegimes is the gain schedule tuned for the hot plate: gentle below
// 150 °C, aggressive above it.
var DefaultRegimes = []Regime{
	{MaxC: 150, Gains: Gains{Kp: 100.0, Ki: 0.025, Kd: 20.0}},
	{MaxC: math.Inf(1), Gains: Gains{Kp: 300.0, Ki: 0.05, Kd: 350.0}},
}

// PID is a position-form PID controller with regime-scheduled gains.
//
// The integral accumulates on every Step, including steps where the output is
// forced to zero because the plate is at or above the setpoint. That winds up
// the integral during overshoot; it is kept because the tuned closed-loop
// response depends on it.
type PID struct {
	regimes []Regime
	state   ControllerState
}

// NewPID creates a controller with zeroed state. Regimes must be sorted by
// ascending MaxC; nil selects DefaultRegimes.
func NewPID(regimes []Regime) *PID {
	if len(regimes) == 0 {
		regimes = DefaultRegimes
	}
	return &PID{regimes: regimes}
}

// GainsFor returns the gain set for a measured temperature.
func (p *PID) GainsFor(measuredC float64) Gains {
	for _, r := range p.regimes {
		if measuredC <= r.MaxC {
			return r.Gains
		}
	}
	return p.regimes[len(p.regimes)-1].Gains
}

// Step advances the controller by one tick and returns a command in [0,1].
func (p *PID) Step(setpointC, measuredC float64) float64 {
	g := p.GainsFor(measuredC)

	err := setpointC - measuredC
	p.state.Integral += err
	derivative := err - p.state.LastError
	p.state.LastError = err

	raw := g.Kp*err + g.Ki*p.state.Integral + g.Kd*derivative

	if measuredC >= setpointC {
		return 0
	}
	return clamp(raw, 0, 1)
}

// State returns a copy of the controller state.
func (p *PID) State() ControllerState {
	return p.state
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
