// Package control contains the pure control law for the reflow heater:
// setpoint correction, the PID controller and on/off binarization.
// This package has NO hardware or timing dependencies (no GPIO, MQTT, or
// time.Sleep); every input arrives as a parameter.
package control

import "time"

// ControllerState is the mutable memory of a PID controller.
type ControllerState struct {
	Integral  float64
	LastError float64
}

// Gains holds the PID coefficients for one temperature regime.
type Gains struct {
	Kp float64
	Ki float64
	Kd float64
}

// TickRecord is emitted once per control tick.
type TickRecord struct {
	// Elapsed is the time since the start of the run at this tick.
	Elapsed time.Duration
	// MeasuredC is the thermocouple reading for this tick.
	MeasuredC float64
	// TargetC is the uncorrected segment target.
	TargetC float64

	Segment   int     // zero-based segment index
	Tick      int     // zero-based tick within the segment
	SetpointC float64 // corrected setpoint fed to the PID
	Command   float64 // PID output in [0,1]
	HeaterOn  bool
}
