package control

// holdBackC is subtracted from the raw target during the short window that
// follows the first base-correction phase of a segment.
const holdBackC = 3.0

// holdBackTicks is the length of that window.
const holdBackTicks = 11

// BaseCorrection returns the magnitude-dependent corrected target used in the
// early and middle phases of a segment.
func BaseCorrection(targetC float64) float64 {
	switch {
	case targetC <= 100:
		return 0.6*targetC - 7.5
	case targetC <= 150:
		return 0.9 * targetC
	case targetC <= 200:
		return targetC - 5.0
	default:
		return targetC
	}
}

// phaseBounds are the inclusive upper tick bounds of the first three phases.
type phaseBounds struct {
	base     int
	holdBack int
	approach int
}

func boundsFor(ticks int) phaseBounds {
	if ticks < 1 {
		ticks = 1
	}
	// Integer arithmetic gives exact truncation of 0.35*d and 0.7*d.
	base := ticks * 35 / 100
	return phaseBounds{
		base:     base,
		holdBack: base + holdBackTicks,
		approach: ticks * 70 / 100,
	}
}

// CorrectSetpoint returns the setpoint to hand to the PID at the given tick of
// a segment whose raw target is targetC and which runs for ticks ticks.
//
// Phases are tested in order, so segments shorter than the hold-back window
// (where later windows are empty or inverted) still map every tick to a value.
func CorrectSetpoint(targetC float64, tick, ticks int) float64 {
	b := boundsFor(ticks)
	switch {
	case tick <= b.base:
		return BaseCorrection(targetC)
	case tick <= b.holdBack:
		return targetC - holdBackC
	case tick <= b.approach:
		return BaseCorrection(targetC)
	default:
		return targetC
	}
}
