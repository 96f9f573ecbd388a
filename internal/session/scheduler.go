package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/sweeney/reflow-controller/internal/control"
	"github.com/sweeney/reflow-controller/internal/profile"
)

// Reflow executes the whole profile once, starting immediately; subsequent
// ticks are paced by tick. It clears the signal on entry and returns when the
// profile completes, the signal is pressed, a fault occurs, or ctx is
// cancelled. The heater is off on every return path.
//
// Reflow leaves the session in FINISHED, STOPPED or FAULTED (IDLE when
// aborted); Run is responsible for the hold delay and the return to IDLE.
func (s *Session) Reflow(ctx context.Context, tick <-chan time.Time) (Outcome, error) {
	runID := s.deps.NewRunID()
	start := s.deps.Now()
	s.deps.Signal.Clear()

	var tickLog TickLog
	if s.deps.OpenLog != nil {
		l, err := s.deps.OpenLog(start)
		if err != nil {
			log.Printf("reflow: tick log unavailable: %v", err)
		} else {
			tickLog = l
			defer func() {
				if err := tickLog.Close(); err != nil {
					log.Printf("reflow: close tick log: %v", err)
				}
			}()
		}
	}

	s.setState(StateRunning, runID, "", nil)
	log.Printf("reflow: run %s started: profile=%q segments=%d duration=%v",
		runID, s.profile.Name, len(s.profile.Segments), s.profile.TotalDuration())

	logFailed := false
	n := 0
	for si, seg := range s.profile.Segments {
		ticks := profile.Ticks(seg, s.cfg.TickPeriod)
		for i := 0; i < ticks; i++ {
			if n > 0 && !s.wait(ctx, tick) {
				if err := s.heaterOff(); err != nil {
					return s.heaterFault(runID, err)
				}
				s.setState(StateIdle, runID, OutcomeAborted, ctx.Err())
				return OutcomeAborted, ctx.Err()
			}

			rec, err := s.step(si, seg, i, ticks, n)
			if err != nil {
				if offErr := s.heaterOff(); offErr != nil {
					return s.heaterFault(runID, offErr)
				}
				outcome := OutcomeSensorFault
				if errors.Is(err, ErrHeaterFault) {
					outcome = OutcomeHeaterFault
				}
				s.setState(StateFaulted, runID, outcome, err)
				return outcome, err
			}
			n++

			if tickLog != nil && !logFailed {
				if err := tickLog.WriteTick(rec); err != nil {
					log.Printf("reflow: tick log write failed, disabling for this run: %v", err)
					logFailed = true
				}
			}
			s.deps.Observer.OnTick(rec)

			if s.deps.Signal.Pressed() {
				if err := s.heaterOff(); err != nil {
					return s.heaterFault(runID, err)
				}
				s.setState(StateStopped, runID, OutcomeStopped, nil)
				return OutcomeStopped, nil
			}
		}
	}

	if err := s.heaterOff(); err != nil {
		return s.heaterFault(runID, err)
	}
	s.setState(StateFinished, runID, OutcomeFinished, nil)
	return OutcomeFinished, nil
}

// heaterFault ends a run whose heater could not be switched off. The SSR
// may still be energised, so the run never reports a clean stop.
func (s *Session) heaterFault(runID string, err error) (Outcome, error) {
	s.setState(StateFaulted, runID, OutcomeHeaterFault, err)
	return OutcomeHeaterFault, err
}

// step performs one control tick: read, correct, PID, drive.
func (s *Session) step(si int, seg profile.Segment, i, ticks, n int) (control.TickRecord, error) {
	measured, err := s.readTemperature()
	if err != nil {
		return control.TickRecord{}, err
	}

	setpoint := control.CorrectSetpoint(seg.TargetC, i, ticks)
	cmd := s.pid.Step(setpoint, measured)
	on, err := control.Drive(s.deps.Heater, cmd)
	if err != nil {
		return control.TickRecord{}, fmt.Errorf("%w: %v", ErrHeaterFault, err)
	}

	return control.TickRecord{
		Elapsed:   time.Duration(n) * s.cfg.TickPeriod,
		MeasuredC: measured,
		TargetC:   seg.TargetC,
		Segment:   si,
		Tick:      i,
		SetpointC: setpoint,
		Command:   cmd,
		HeaterOn:  on,
	}, nil
}
