// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/reflow-controller/internal/control"
)

// TopicTicks is the MQTT topic for per-tick telemetry.
const TopicTicks = "reflow/controller/ticks"

// TopicSystem is the MQTT topic for lifecycle and run events.
const TopicSystem = "reflow/controller/system"

// Publisher publishes controller telemetry to MQTT.
type Publisher interface {
	// PublishTick sends one tick of a run.
	// Returns error if publishing fails (should not crash the process).
	PublishTick(tick TickMessage) error

	// PublishSystem sends a lifecycle or run event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// TickMessage is a tick record tagged with its run.
type TickMessage struct {
	RunID string
	Tick  control.TickRecord
}

// SystemEvent represents a lifecycle event (startup, shutdown) or a run event
// (started, finished, stopped, fault, overheated, cooled).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "RUN_STARTED", "RUN_FAULT"
	Reason     string // e.g., "SIGTERM", fault description
	RunID      string
	TempC      float64
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// TickPayload represents the MQTT message payload for a tick.
type TickPayload struct {
	Tick TickPayloadInner `json:"tick"`
}

// TickPayloadInner contains the tick details.
type TickPayloadInner struct {
	RunID     string  `json:"run_id"`
	Elapsed   float64 `json:"elapsed_s"`
	MeasuredC float64 `json:"measured_c"`
	TargetC   float64 `json:"target_c"`
	SetpointC float64 `json:"setpoint_c"`
	Command   float64 `json:"command"`
	Heater    string  `json:"heater"`
	Segment   int     `json:"segment"`
	Index     int     `json:"index"`
}

// FormatTickPayload creates the JSON payload for a tick.
func FormatTickPayload(msg TickMessage) ([]byte, error) {
	heater := "OFF"
	if msg.Tick.HeaterOn {
		heater = "ON"
	}
	payload := TickPayload{
		Tick: TickPayloadInner{
			RunID:     msg.RunID,
			Elapsed:   msg.Tick.Elapsed.Seconds(),
			MeasuredC: msg.Tick.MeasuredC,
			TargetC:   msg.Tick.TargetC,
			SetpointC: msg.Tick.SetpointC,
			Command:   msg.Tick.Command,
			Heater:    heater,
			Segment:   msg.Tick.Segment,
			Index:     msg.Tick.Tick,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for events that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string   `json:"timestamp"`
	Event     string   `json:"event"`
	Reason    string   `json:"reason,omitempty"`
	RunID     string   `json:"run_id,omitempty"`
	TempC     *float64 `json:"temp_c,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
			RunID:     event.RunID,
		},
	}
	if event.TempC != 0 {
		c := event.TempC
		payload.System.TempC = &c
	}
	return json.Marshal(payload)
}
