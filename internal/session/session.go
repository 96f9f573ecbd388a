package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sweeney/reflow-controller/internal/control"
	"github.com/sweeney/reflow-controller/internal/profile"
	"github.com/sweeney/reflow-controller/internal/thermo"
)

// Deps are the collaborators of a session. Sensor, Heater and Signal are
// required.
type Deps struct {
	Sensor   thermo.Sensor
	Heater   control.Switch
	Signal   *Signal
	Observer Observer
	OpenLog  OpenLogFunc
	Now      func() time.Time
	NewRunID func() string
}

// Session owns the heater and runs at most one profile at a time.
type Session struct {
	cfg     Config
	profile profile.Profile
	deps    Deps
	pid     *control.PID

	mu    sync.Mutex
	state State

	lastTempC  float64
	idleFaulty bool
}

// New validates the profile and creates an idle session.
func New(cfg Config, p profile.Profile, deps Deps) (*Session, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if deps.Sensor == nil || deps.Heater == nil || deps.Signal == nil {
		return nil, errors.New("session: sensor, heater and signal are required")
	}
	if cfg.TickPeriod <= 0 {
		return nil, fmt.Errorf("session: tick period must be positive, got %v", cfg.TickPeriod)
	}
	if deps.Observer == nil {
		deps.Observer = Observers(nil)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NewRunID == nil {
		deps.NewRunID = uuid.NewString
	}
	return &Session{
		cfg:     cfg,
		profile: p,
		deps:    deps,
		pid:     control.NewPID(cfg.Regimes),
		state:   StateIdle,
	}, nil
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Profile returns the profile this session executes.
func (s *Session) Profile() profile.Profile {
	return s.profile
}

// PIDState returns the controller memory. It persists across runs.
func (s *Session) PIDState() control.ControllerState {
	return s.pid.State()
}

func (s *Session) setState(to State, runID string, outcome Outcome, err error) {
	s.mu.Lock()
	from := s.state
	s.state = to
	s.mu.Unlock()

	if err != nil {
		log.Printf("reflow: %s -> %s (%v)", from, to, err)
	} else {
		log.Printf("reflow: %s -> %s", from, to)
	}
	s.deps.Observer.OnTransition(Transition{
		Time:    s.deps.Now(),
		RunID:   runID,
		From:    from,
		To:      to,
		Outcome: outcome,
		TempC:   s.lastTempC,
		Err:     err,
	})
}

// Run executes the idle loop until ctx is cancelled. Each value received on
// tick is one control period; in production tick comes from a time.Ticker
// running at Config.TickPeriod.
//
// The heater is always off when Run returns.
func (s *Session) Run(ctx context.Context, tick <-chan time.Time) error {
	defer s.heaterOff()
	s.heaterOff()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick:
		}

		if !s.deps.Signal.Pressed() {
			s.idle()
			continue
		}
		if !s.start(ctx, tick) {
			return nil
		}
	}
}

// idle keeps the heater off and samples the plate for observers.
func (s *Session) idle() {
	s.heaterOff()
	c, err := s.readTemperature()
	if err != nil {
		if !s.idleFaulty {
			log.Printf("reflow: idle temperature read failed: %v", err)
			s.idleFaulty = true
		}
		return
	}
	if s.idleFaulty {
		log.Printf("reflow: temperature readings recovered (%.2f C)", c)
		s.idleFaulty = false
	}
}

// start handles a start request. It returns false if ctx was cancelled.
func (s *Session) start(ctx context.Context, tick <-chan time.Time) bool {
	c, err := s.readTemperature()
	if err != nil {
		return s.fault(ctx, tick, err)
	}
	// Inclusive: a plate at exactly SafeStartC is still too hot to start.
	if c >= s.cfg.SafeStartC {
		return s.cooldown(ctx, tick)
	}

	outcome, err := s.Reflow(ctx, tick)
	switch outcome {
	case OutcomeAborted:
		return false
	case OutcomeFinished:
		if !s.hold(ctx, tick, s.cfg.FinishHold) {
			return false
		}
	default:
		if err != nil {
			log.Printf("reflow: run ended: %v", err)
		}
		if !s.hold(ctx, tick, s.cfg.StopSettle) {
			return false
		}
	}
	s.deps.Signal.Clear()
	s.setState(StateIdle, "", "", nil)
	return true
}

// cooldown refuses a start on a hot plate: heater off, re-sample until the
// plate is below the safe start temperature, then drop the request.
func (s *Session) cooldown(ctx context.Context, tick <-chan time.Time) bool {
	s.heaterOff()
	s.setState(StateOverheated, "", "", nil)

	for s.lastTempC >= s.cfg.SafeStartC {
		if !s.hold(ctx, tick, s.cfg.CooldownCheck) {
			return false
		}
		s.heaterOff()
		if _, err := s.readTemperature(); err != nil {
			log.Printf("reflow: cooldown temperature read failed: %v", err)
			return s.fault(ctx, tick, err)
		}
	}

	s.deps.Signal.Clear()
	s.setState(StateIdle, "", "", nil)
	return true
}

// fault reports a sensor failure outside a run, waits out the stop settle
// time and drops the pending start request. It returns false if ctx was
// cancelled.
func (s *Session) fault(ctx context.Context, tick <-chan time.Time, err error) bool {
	s.heaterOff()
	s.setState(StateFaulted, "", "", err)
	ok := s.hold(ctx, tick, s.cfg.StopSettle)
	s.deps.Signal.Clear()
	s.setState(StateIdle, "", "", nil)
	return ok
}

// hold waits for d worth of ticks, at least one. It returns false if ctx was
// cancelled.
func (s *Session) hold(ctx context.Context, tick <-chan time.Time, d time.Duration) bool {
	n := int(d / s.cfg.TickPeriod)
	if n < 1 {
		n = 1
	}
	for i := 0; i < n; i++ {
		if !s.wait(ctx, tick) {
			return false
		}
	}
	return true
}

func (s *Session) wait(ctx context.Context, tick <-chan time.Time) bool {
	select {
	case <-ctx.Done():
		return false
	case <-tick:
		return true
	}
}

// readTemperature reads the sensor and rejects implausible values. Good
// readings update lastTempC and are forwarded to observers.
func (s *Session) readTemperature() (float64, error) {
	c, err := s.deps.Sensor.ReadTemperature()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSensorFault, err)
	}
	if math.IsNaN(c) || c < s.cfg.MinValidC || c > s.cfg.MaxValidC {
		return 0, fmt.Errorf("%w: reading %.2f C outside [%.0f, %.0f]", ErrSensorFault, c, s.cfg.MinValidC, s.cfg.MaxValidC)
	}
	s.lastTempC = c
	s.deps.Observer.OnTemperature(c)
	return c, nil
}

// heaterOff de-energises the heater, retrying once on failure.
func (s *Session) heaterOff() error {
	err := s.deps.Heater.Off()
	if err == nil {
		return nil
	}
	if err = s.deps.Heater.Off(); err != nil {
		log.Printf("reflow: failed to switch heater off: %v", err)
		return fmt.Errorf("%w: %v", ErrHeaterFault, err)
	}
	return nil
}
