// Package session runs reflow profiles against the heater: the idle/run
// state machine, the per-tick scheduler and the safety paths (hot start,
// operator stop, sensor fault).
package session

import (
	"errors"
	"time"

	"github.com/sweeney/reflow-controller/internal/control"
)

// State is the session state machine position.
type State string

const (
	StateIdle       State = "IDLE"
	StateRunning    State = "RUNNING"
	StateFinished   State = "FINISHED"
	StateStopped    State = "STOPPED"
	StateOverheated State = "OVERHEATED"
	StateFaulted    State = "FAULTED"
)

// Outcome is how a single reflow run ended.
type Outcome string

const (
	OutcomeFinished    Outcome = "FINISHED"
	OutcomeStopped     Outcome = "STOPPED"
	OutcomeSensorFault Outcome = "SENSOR_FAULT"
	OutcomeHeaterFault Outcome = "HEATER_FAULT"
	OutcomeAborted     Outcome = "ABORTED"
)

var (
	// ErrSensorFault wraps failed or out-of-range temperature readings.
	ErrSensorFault = errors.New("sensor fault")
	// ErrHeaterFault wraps failures to drive the heater output.
	ErrHeaterFault = errors.New("heater fault")
)

// Transition describes a state change.
type Transition struct {
	Time    time.Time
	RunID   string
	From    State
	To      State
	Outcome Outcome // set when leaving RUNNING
	TempC   float64 // last good reading, 0 if none
	Err     error
}

// Observer receives session activity. Implementations must not block; they
// are called from the control loop.
type Observer interface {
	OnTick(rec control.TickRecord)
	OnTransition(tr Transition)
	OnTemperature(c float64)
}

// Observers fans out to several observers in order.
type Observers []Observer

func (o Observers) OnTick(rec control.TickRecord) {
	for _, obs := range o {
		obs.OnTick(rec)
	}
}

func (o Observers) OnTransition(tr Transition) {
	for _, obs := range o {
		obs.OnTransition(tr)
	}
}

func (o Observers) OnTemperature(c float64) {
	for _, obs := range o {
		obs.OnTemperature(c)
	}
}

// TickLog is a per-run tick sink, such as the CSV log.
type TickLog interface {
	WriteTick(rec control.TickRecord) error
	Close() error
}

// OpenLogFunc opens the tick log for a run starting at start.
type OpenLogFunc func(start time.Time) (TickLog, error)

// Config holds the timing and safety parameters of a session.
type Config struct {
	// TickPeriod is the control period.
	TickPeriod time.Duration
	// SafeStartC is the highest plate temperature (exclusive) at which a run
	// may start.
	SafeStartC float64
	// MinValidC and MaxValidC bound plausible sensor readings.
	MinValidC float64
	MaxValidC float64
	// StopSettle is how long the stopped/faulted state is held before idle.
	StopSettle time.Duration
	// FinishHold is how long the finished state is held before idle.
	FinishHold time.Duration
	// CooldownCheck is the re-sample interval while overheated.
	CooldownCheck time.Duration
	// Regimes is the PID gain schedule; nil uses control.DefaultRegimes.
	Regimes []control.Regime
}

// DefaultConfig returns the settings of the reference hot plate.
func DefaultConfig() Config {
	return Config{
		TickPeriod:    200 * time.Millisecond,
		SafeStartC:    50,
		MinValidC:     -20,
		MaxValidC:     400,
		StopSettle:    4 * time.Second,
		FinishHold:    5 * time.Second,
		CooldownCheck: 2 * time.Second,
	}
}
