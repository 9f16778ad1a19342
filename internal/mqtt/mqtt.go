// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/irrigation-controller/internal/logic"
)

// Topic is the MQTT topic for pump transition events.
const Topic = "irrigation/pumps/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "irrigation/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a pump event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event logic.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Pump PumpPayload `json:"pump"`
}

// PumpPayload contains the pump event details.
type PumpPayload struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	ID        string `json:"id"`
	State     string `json:"state"`
	Reason    string `json:"reason"`
}

// FormatPayload creates the JSON payload for a pump event.
func FormatPayload(event logic.Event) ([]byte, error) {
	payload := Payload{
		Pump: PumpPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     string(event.Type),
			ID:        string(event.Pump),
			State:     string(logic.StateOf(event.Type == logic.EventPumpOn)),
			Reason:    string(event.Reason),
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp,omitempty"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	inner := SystemPayloadInner{
		Event:  event.Event,
		Reason: event.Reason,
	}
	if !event.Timestamp.IsZero() {
		inner.Timestamp = event.Timestamp.UTC().Format(time.RFC3339)
	}
	return json.Marshal(SystemPayload{System: inner})
}

// WillPayload is the last-will message the broker publishes if the
// daemon disappears without a clean shutdown.
func WillPayload() []byte {
	data, _ := FormatSystemPayload(SystemEvent{Event: "OFFLINE"})
	return data
}

// Discard is a Publisher that drops everything. Used when MQTT is disabled.
type Discard struct{}

func (Discard) Publish(logic.Event) error       { return nil }
func (Discard) PublishSystem(SystemEvent) error { return nil }
func (Discard) Close() error                    { return nil }
func (Discard) IsConnected() bool               { return false }
