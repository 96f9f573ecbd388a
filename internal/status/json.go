package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string             `json:"event,omitempty"`
	Reason        string             `json:"reason,omitempty"`
	State         string             `json:"state"`
	RunID         string             `json:"run_id,omitempty"`
	TemperatureC  *float64           `json:"temperature_c"`
	Hot           bool               `json:"hot"`
	Heater        string             `json:"heater"`
	Run           RunJSON            `json:"run"`
	UptimeSeconds int64              `json:"uptime_seconds"`
	StartTime     string             `json:"start_time"`
	Timestamp     string             `json:"timestamp"`
	MQTT          MQTTStatus         `json:"mqtt"`
	Counts        CountsJSON         `json:"counts"`
	Network       *NetworkJSON       `json:"network,omitempty"`
	Config        ConfigJSON         `json:"config"`
	Profile       []ProfilePointJSON `json:"profile,omitempty"`
	Trace         []TracePointJSON   `json:"trace,omitempty"`
}

// RunJSON describes the current or last run.
type RunJSON struct {
	ElapsedSeconds float64 `json:"elapsed_s"`
	TotalSeconds   float64 `json:"total_s"`
	Segment        int     `json:"segment"`
	TargetC        float64 `json:"target_c"`
	SetpointC      float64 `json:"setpoint_c"`
	Command        float64 `json:"command"`
	LastOutcome    string  `json:"last_outcome,omitempty"`
	LastError      string  `json:"last_error,omitempty"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of outcome counts.
type CountsJSON struct {
	Runs       int `json:"runs"`
	Finished   int `json:"finished"`
	Stopped    int `json:"stopped"`
	Faulted    int `json:"faulted"`
	Overheated int `json:"overheated"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of controller config.
type ConfigJSON struct {
	TickMs     int64   `json:"tick_ms"`
	SafeStartC float64 `json:"safe_start_c"`
	Profile    string  `json:"profile"`
	Broker     string  `json:"broker"`
	HTTPAddr   string  `json:"http_addr"`
	LogDir     string  `json:"log_dir,omitempty"`
}

// ProfilePointJSON is a corner of the target curve.
type ProfilePointJSON struct {
	At      float64 `json:"t"`
	TargetC float64 `json:"c"`
}

// TracePointJSON is one measured sample.
type TracePointJSON struct {
	Elapsed   float64 `json:"t"`
	MeasuredC float64 `json:"c"`
	Heater    bool    `json:"on"`
}

func buildInner(snap Snapshot) StatusInner {
	state := string(snap.State)
	if state == "" {
		state = "UNKNOWN"
	}
	heater := "OFF"
	if snap.HeaterOn {
		heater = "ON"
	}

	inner := StatusInner{
		State:  state,
		RunID:  snap.RunID,
		Hot:    snap.Hot(),
		Heater: heater,
		Run: RunJSON{
			ElapsedSeconds: snap.Elapsed.Seconds(),
			TotalSeconds:   snap.Total.Seconds(),
			Segment:        snap.Segment,
			TargetC:        snap.TargetC,
			SetpointC:      snap.SetpointC,
			Command:        snap.Command,
			LastOutcome:    string(snap.LastOutcome),
			LastError:      snap.LastError,
		},
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Runs:       snap.Counts.Runs,
			Finished:   snap.Counts.Finished,
			Stopped:    snap.Counts.Stopped,
			Faulted:    snap.Counts.Faulted,
			Overheated: snap.Counts.Overheated,
		},
		Config: ConfigJSON{
			TickMs:     snap.Config.TickMs,
			SafeStartC: snap.Config.SafeStartC,
			Profile:    snap.Config.Profile,
			Broker:     snap.Config.Broker,
			HTTPAddr:   snap.Config.HTTPAddr,
			LogDir:     snap.Config.LogDir,
		},
	}
	if snap.HaveTemp {
		c := snap.TempC
		inner.TemperatureC = &c
	}
	return inner
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

func buildCurves(snap Snapshot, inner *StatusInner) {
	for _, p := range snap.Profile {
		inner.Profile = append(inner.Profile, ProfilePointJSON{At: p.At.Seconds(), TargetC: p.TargetC})
	}
	for _, p := range snap.Trace {
		inner.Trace = append(inner.Trace, TracePointJSON{Elapsed: p.Elapsed.Seconds(), MeasuredC: p.MeasuredC, Heater: p.HeaterOn})
	}
}

// FormatJSON returns the JSON status for the web endpoint, including the
// profile curve and the run trace for graphing.
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)
	buildCurves(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event. Curves
// are omitted; ticks are published on their own topic.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
