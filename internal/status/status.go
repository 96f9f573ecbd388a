// Package status provides a thread-safe status tracker for the reflow
// controller. It observes the session and is read by the HTTP handlers and
// the MQTT lifecycle events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/reflow-controller/internal/control"
	"github.com/sweeney/reflow-controller/internal/profile"
	"github.com/sweeney/reflow-controller/internal/session"
)

// HotC is the plate temperature above which the controller reports HOT.
const HotC = 70.0

// maxTracePoints bounds the per-run trace; the oldest points are dropped.
const maxTracePoints = 4000

// NetworkInfo contains network state.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains controller configuration for display.
type Config struct {
	TickMs     int64
	SafeStartC float64
	Profile    string
	Broker     string
	HTTPAddr   string
	LogDir     string
}

// Counts tallies session outcomes since startup.
type Counts struct {
	Runs       int
	Finished   int
	Stopped    int
	Faulted    int
	Overheated int
}

// TracePoint is one measured sample of the current (or last) run.
type TracePoint struct {
	Elapsed   time.Duration
	MeasuredC float64
	TargetC   float64
	HeaterOn  bool
}

// ProfilePoint is a corner of the target curve.
type ProfilePoint struct {
	At      time.Duration
	TargetC float64
}

// Snapshot is a point-in-time view of controller state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	State       session.State
	RunID       string
	TempC       float64
	HaveTemp    bool
	SetpointC   float64
	TargetC     float64
	Command     float64
	HeaterOn    bool
	Elapsed     time.Duration
	Segment     int
	LastOutcome session.Outcome
	LastError   string
	Counts      Counts

	Trace   []TracePoint
	Profile []ProfilePoint
	Total   time.Duration

	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the controller started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Hot reports whether the plate is too hot to touch.
func (s Snapshot) Hot() bool {
	return s.HaveTemp && s.TempC > HotC
}

// Tracker holds mutable controller state behind an RWMutex. It implements
// session.Observer.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time, config and the
// profile the session executes.
func NewTracker(startTime time.Time, cfg Config, p profile.Profile) *Tracker {
	return &Tracker{
		snap: Snapshot{
			State:     session.StateIdle,
			StartTime: startTime,
			Config:    cfg,
			Profile:   ProfileCurve(p),
			Total:     p.TotalDuration(),
		},
	}
}

// ProfileCurve returns the step-shaped target curve of p: two points per
// segment, at its start and at its end.
func ProfileCurve(p profile.Profile) []ProfilePoint {
	pts := make([]ProfilePoint, 0, 2*len(p.Segments))
	var at time.Duration
	for _, s := range p.Segments {
		pts = append(pts, ProfilePoint{At: at, TargetC: s.TargetC})
		at += s.Duration
		pts = append(pts, ProfilePoint{At: at, TargetC: s.TargetC})
	}
	return pts
}

// OnTick records the latest control tick.
func (t *Tracker) OnTick(rec control.TickRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap.TempC = rec.MeasuredC
	t.snap.HaveTemp = true
	t.snap.SetpointC = rec.SetpointC
	t.snap.TargetC = rec.TargetC
	t.snap.Command = rec.Command
	t.snap.HeaterOn = rec.HeaterOn
	t.snap.Elapsed = rec.Elapsed
	t.snap.Segment = rec.Segment

	if len(t.snap.Trace) >= maxTracePoints {
		t.snap.Trace = t.snap.Trace[1:]
	}
	t.snap.Trace = append(t.snap.Trace, TracePoint{
		Elapsed:   rec.Elapsed,
		MeasuredC: rec.MeasuredC,
		TargetC:   rec.TargetC,
		HeaterOn:  rec.HeaterOn,
	})
}

// OnTransition records a state change and updates the outcome counts.
func (t *Tracker) OnTransition(tr session.Transition) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap.State = tr.To
	if tr.To != session.StateRunning {
		t.snap.HeaterOn = false
	}

	switch tr.To {
	case session.StateRunning:
		t.snap.RunID = tr.RunID
		t.snap.Counts.Runs++
		t.snap.Trace = nil
		t.snap.Elapsed = 0
		t.snap.Segment = 0
		t.snap.LastOutcome = ""
		t.snap.LastError = ""
	case session.StateFinished:
		t.snap.Counts.Finished++
	case session.StateStopped:
		t.snap.Counts.Stopped++
	case session.StateFaulted:
		t.snap.Counts.Faulted++
	case session.StateOverheated:
		t.snap.Counts.Overheated++
	}

	if tr.Outcome != "" {
		t.snap.LastOutcome = tr.Outcome
	}
	if tr.Err != nil {
		t.snap.LastError = tr.Err.Error()
	}
}

// OnTemperature records a good sensor reading.
func (t *Tracker) OnTemperature(c float64) {
	t.mu.Lock()
	t.snap.TempC = c
	t.snap.HaveTemp = true
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the controller state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	s.Trace = append([]TracePoint(nil), t.snap.Trace...)
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
