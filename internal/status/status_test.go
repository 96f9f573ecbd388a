package status

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/reflow-controller/internal/control"
	"github.com/sweeney/reflow-controller/internal/profile"
	"github.com/sweeney/reflow-controller/internal/session"
)

func testProfile() profile.Profile {
	return profile.Profile{
		Name: "test",
		Segments: []profile.Segment{
			{Duration: 10 * time.Second, TargetC: 100},
			{Duration: 5 * time.Second, TargetC: 150},
		},
	}
}

func TestNewTracker(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := Config{TickMs: 200, SafeStartC: 50, Broker: "tcp://localhost:1883", HTTPAddr: ":80"}
	tr := NewTracker(start, cfg, testProfile())

	snap := tr.Snapshot()
	if !snap.StartTime.Equal(start) {
		t.Errorf("StartTime: got %v, want %v", snap.StartTime, start)
	}
	if snap.State != session.StateIdle {
		t.Errorf("State: got %q, want IDLE", snap.State)
	}
	if snap.Config.TickMs != 200 {
		t.Errorf("Config.TickMs: got %d, want 200", snap.Config.TickMs)
	}
	if snap.Total != 15*time.Second {
		t.Errorf("Total: got %v, want 15s", snap.Total)
	}
	if snap.HaveTemp {
		t.Error("expected HaveTemp=false initially")
	}
	if snap.MQTTConnected {
		t.Error("expected MQTTConnected=false initially")
	}
}

func TestProfileCurve(t *testing.T) {
	pts := ProfileCurve(testProfile())
	want := []ProfilePoint{
		{At: 0, TargetC: 100},
		{At: 10 * time.Second, TargetC: 100},
		{At: 10 * time.Second, TargetC: 150},
		{At: 15 * time.Second, TargetC: 150},
	}
	if len(pts) != len(want) {
		t.Fatalf("got %d points, want %d", len(pts), len(want))
	}
	for i := range want {
		if pts[i] != want[i] {
			t.Errorf("point %d: got %+v, want %+v", i, pts[i], want[i])
		}
	}
}

func TestObserveRun(t *testing.T) {
	tr := NewTracker(time.Now(), Config{}, testProfile())

	tr.OnTemperature(24)
	tr.OnTransition(session.Transition{RunID: "run-1", From: session.StateIdle, To: session.StateRunning})
	tr.OnTick(control.TickRecord{MeasuredC: 24, TargetC: 100, SetpointC: 52.5, Command: 1, HeaterOn: true})
	tr.OnTick(control.TickRecord{Elapsed: 200 * time.Millisecond, MeasuredC: 24.5, TargetC: 100, SetpointC: 52.5, Command: 1, HeaterOn: true, Tick: 1})

	snap := tr.Snapshot()
	if snap.State != session.StateRunning {
		t.Errorf("State: got %q, want RUNNING", snap.State)
	}
	if snap.RunID != "run-1" {
		t.Errorf("RunID: got %q", snap.RunID)
	}
	if snap.TempC != 24.5 || snap.SetpointC != 52.5 || !snap.HeaterOn {
		t.Errorf("unexpected tick state: %+v", snap)
	}
	if len(snap.Trace) != 2 {
		t.Fatalf("Trace: got %d points, want 2", len(snap.Trace))
	}
	if snap.Counts.Runs != 1 {
		t.Errorf("Counts.Runs: got %d, want 1", snap.Counts.Runs)
	}

	tr.OnTransition(session.Transition{RunID: "run-1", From: session.StateRunning, To: session.StateStopped, Outcome: session.OutcomeStopped})
	snap = tr.Snapshot()
	if snap.HeaterOn {
		t.Error("heater should read OFF after leaving RUNNING")
	}
	if snap.LastOutcome != session.OutcomeStopped {
		t.Errorf("LastOutcome: got %q", snap.LastOutcome)
	}
	if snap.Counts.Stopped != 1 {
		t.Errorf("Counts.Stopped: got %d, want 1", snap.Counts.Stopped)
	}

	// The trace of the last run survives until the next one starts.
	tr.OnTransition(session.Transition{From: session.StateStopped, To: session.StateIdle})
	if n := len(tr.Snapshot().Trace); n != 2 {
		t.Errorf("Trace after idle: got %d points, want 2", n)
	}
	tr.OnTransition(session.Transition{RunID: "run-2", From: session.StateIdle, To: session.StateRunning})
	snap = tr.Snapshot()
	if len(snap.Trace) != 0 {
		t.Errorf("Trace should reset on a new run, got %d points", len(snap.Trace))
	}
	if snap.LastOutcome != "" {
		t.Errorf("LastOutcome should reset on a new run, got %q", snap.LastOutcome)
	}
}

func TestObserveFaultAndOverheat(t *testing.T) {
	tr := NewTracker(time.Now(), Config{}, testProfile())

	tr.OnTransition(session.Transition{To: session.StateFaulted, Outcome: session.OutcomeSensorFault, Err: errors.New("sensor fault: open")})
	tr.OnTransition(session.Transition{To: session.StateIdle})
	tr.OnTransition(session.Transition{To: session.StateOverheated})

	snap := tr.Snapshot()
	if snap.Counts.Faulted != 1 || snap.Counts.Overheated != 1 {
		t.Errorf("unexpected counts: %+v", snap.Counts)
	}
	if snap.LastError != "sensor fault: open" {
		t.Errorf("LastError: got %q", snap.LastError)
	}
	if snap.LastOutcome != session.OutcomeSensorFault {
		t.Errorf("LastOutcome: got %q", snap.LastOutcome)
	}
}

func TestHot(t *testing.T) {
	tests := []struct {
		temp float64
		have bool
		want bool
	}{
		{0, false, false},
		{25, true, false},
		{70, true, false},
		{70.25, true, true},
		{235, true, true},
	}
	for _, tt := range tests {
		snap := Snapshot{TempC: tt.temp, HaveTemp: tt.have}
		if got := snap.Hot(); got != tt.want {
			t.Errorf("Hot(%v, have=%v): got %v, want %v", tt.temp, tt.have, got, tt.want)
		}
	}
}

func TestTraceBounded(t *testing.T) {
	tr := NewTracker(time.Now(), Config{}, testProfile())
	tr.OnTransition(session.Transition{To: session.StateRunning})
	for i := 0; i < maxTracePoints+10; i++ {
		tr.OnTick(control.TickRecord{Elapsed: time.Duration(i) * time.Millisecond})
	}

	snap := tr.Snapshot()
	if len(snap.Trace) != maxTracePoints {
		t.Fatalf("Trace: got %d points, want %d", len(snap.Trace), maxTracePoints)
	}
	if snap.Trace[0].Elapsed != 10*time.Millisecond {
		t.Errorf("oldest point: got %v, want 10ms", snap.Trace[0].Elapsed)
	}
}

func TestSetMQTTConnected(t *testing.T) {
	tr := NewTracker(time.Now(), Config{}, testProfile())

	tr.SetMQTTConnected(true)
	if !tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=true")
	}

	tr.SetMQTTConnected(false)
	if tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=false")
	}
}

func TestSetNetwork(t *testing.T) {
	tr := NewTracker(time.Now(), Config{}, testProfile())

	if tr.Snapshot().Network != nil {
		t.Error("expected nil Network initially")
	}

	net := &NetworkInfo{Type: "wifi", IP: "192.168.1.42", Status: "connected"}
	tr.SetNetwork(net)

	snap := tr.Snapshot()
	if snap.Network == nil {
		t.Fatal("expected non-nil Network")
	}
	if snap.Network.IP != "192.168.1.42" {
		t.Errorf("Network.IP: got %q, want %q", snap.Network.IP, "192.168.1.42")
	}
}

func TestSnapshotUptime(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		StartTime: start,
		Now:       start.Add(15 * time.Minute),
	}

	if snap.Uptime() != 15*time.Minute {
		t.Errorf("Uptime: got %v, want 15m", snap.Uptime())
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	tr := NewTracker(time.Now(), Config{}, testProfile())
	tr.OnTransition(session.Transition{To: session.StateRunning})
	tr.OnTick(control.TickRecord{MeasuredC: 30})

	snap1 := tr.Snapshot()

	tr.OnTick(control.TickRecord{MeasuredC: 31})
	tr.OnTransition(session.Transition{To: session.StateFinished})

	if snap1.State != session.StateRunning {
		t.Error("snapshot should be a copy; State was modified")
	}
	if len(snap1.Trace) != 1 || snap1.Trace[0].MeasuredC != 30 {
		t.Error("snapshot should be a copy; Trace was modified")
	}
}

func TestFormatJSON(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		State:         session.StateRunning,
		RunID:         "run-1",
		TempC:         120.5,
		HaveTemp:      true,
		SetpointC:     112.5,
		TargetC:       125,
		HeaterOn:      true,
		Elapsed:       60 * time.Second,
		Segment:       1,
		Counts:        Counts{Runs: 3, Finished: 1, Stopped: 1},
		Profile:       ProfileCurve(testProfile()),
		Trace:         []TracePoint{{Elapsed: 0, MeasuredC: 24}, {Elapsed: 200 * time.Millisecond, MeasuredC: 24.25, HeaterOn: true}},
		Total:         15 * time.Second,
		StartTime:     start,
		Now:           start.Add(15 * time.Minute),
		MQTTConnected: true,
		Config:        Config{TickMs: 200, SafeStartC: 50, Profile: "test", Broker: "tcp://localhost:1883", HTTPAddr: ":80"},
	}

	data := FormatJSON(snap)

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	s := parsed.Status
	if s.State != "RUNNING" {
		t.Errorf("State: got %q, want RUNNING", s.State)
	}
	if s.TemperatureC == nil || *s.TemperatureC != 120.5 {
		t.Errorf("TemperatureC: got %v, want 120.5", s.TemperatureC)
	}
	if !s.Hot {
		t.Error("expected Hot=true")
	}
	if s.Heater != "ON" {
		t.Errorf("Heater: got %q, want ON", s.Heater)
	}
	if s.Run.ElapsedSeconds != 60 || s.Run.Segment != 1 || s.Run.SetpointC != 112.5 {
		t.Errorf("unexpected run: %+v", s.Run)
	}
	if s.UptimeSeconds != 900 {
		t.Errorf("UptimeSeconds: got %d, want 900", s.UptimeSeconds)
	}
	if !s.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if s.Counts.Runs != 3 {
		t.Errorf("Counts.Runs: got %d, want 3", s.Counts.Runs)
	}
	if len(s.Profile) != 4 || s.Profile[3].At != 15 {
		t.Errorf("unexpected profile curve: %+v", s.Profile)
	}
	if len(s.Trace) != 2 || s.Trace[1].Elapsed != 0.2 || !s.Trace[1].Heater {
		t.Errorf("unexpected trace: %+v", s.Trace)
	}
	// Event and Reason should be omitted
	if s.Event != "" {
		t.Errorf("expected empty Event for web format, got %q", s.Event)
	}
	if s.Reason != "" {
		t.Errorf("expected empty Reason for web format, got %q", s.Reason)
	}
}

func TestFormatJSONNoReading(t *testing.T) {
	snap := Snapshot{
		StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC),
	}

	data := FormatJSON(snap)

	var raw map[string]map[string]interface{}
	json.Unmarshal(data, &raw)

	if raw["status"]["state"] != "UNKNOWN" {
		t.Errorf("state: got %v, want UNKNOWN", raw["status"]["state"])
	}
	if v, ok := raw["status"]["temperature_c"]; !ok || v != nil {
		t.Errorf("temperature_c: got %v, want null", v)
	}
}

func TestFormatStatusEvent(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		State:     session.StateIdle,
		TempC:     22,
		HaveTemp:  true,
		Trace:     []TracePoint{{MeasuredC: 22}},
		Profile:   ProfileCurve(testProfile()),
		StartTime: start,
		Now:       start.Add(30 * time.Minute),
		Config:    Config{Broker: "tcp://localhost:1883"},
	}

	data := FormatStatusEvent(snap, "SHUTDOWN", "SIGTERM")

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Status.Event != "SHUTDOWN" {
		t.Errorf("Event: got %q, want SHUTDOWN", parsed.Status.Event)
	}
	if parsed.Status.Reason != "SIGTERM" {
		t.Errorf("Reason: got %q, want SIGTERM", parsed.Status.Reason)
	}
	if parsed.Status.Hot {
		t.Error("expected Hot=false at 22 C")
	}
	if len(parsed.Status.Trace) != 0 || len(parsed.Status.Profile) != 0 {
		t.Error("status events should not carry curves")
	}
}

func TestFormatStatusEventOmitsReasonWhenEmpty(t *testing.T) {
	snap := Snapshot{
		StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC),
	}

	data := FormatStatusEvent(snap, "STARTUP", "")

	// Verify "reason" is not in the raw JSON output
	var raw map[string]interface{}
	json.Unmarshal(data, &raw)
	status := raw["status"].(map[string]interface{})
	if _, exists := status["reason"]; exists {
		t.Error("reason should be omitted when empty")
	}
	if status["event"] != "STARTUP" {
		t.Errorf("event: got %v, want STARTUP", status["event"])
	}
}

func TestFormatJSONWithNetwork(t *testing.T) {
	snap := Snapshot{
		StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 1, 1, 0, 1, 0, 0, time.UTC),
		Network:   &NetworkInfo{Type: "wifi", IP: "192.168.1.42", Status: "connected", SSID: "MyNet"},
		Config:    Config{Broker: "tcp://localhost:1883"},
	}

	data := FormatJSON(snap)

	var parsed StatusJSON
	json.Unmarshal(data, &parsed)

	if parsed.Status.Network == nil {
		t.Fatal("expected Network in JSON")
	}
	if parsed.Status.Network.IP != "192.168.1.42" {
		t.Errorf("Network.IP: got %q, want 192.168.1.42", parsed.Status.Network.IP)
	}
	if parsed.Status.Network.SSID != "MyNet" {
		t.Errorf("Network.SSID: got %q, want MyNet", parsed.Status.Network.SSID)
	}
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker(time.Now(), Config{}, testProfile())
	var wg sync.WaitGroup

	// Writer
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			tr.OnTick(control.TickRecord{MeasuredC: float64(i)})
			tr.OnTemperature(float64(i))
			tr.SetMQTTConnected(i%2 == 0)
			tr.SetNetwork(&NetworkInfo{IP: "1.2.3.4"})
		}
	}()

	// Reader
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			snap := tr.Snapshot()
			_ = snap.Uptime()
			_ = FormatJSON(snap)
		}
	}()

	wg.Wait()
}
