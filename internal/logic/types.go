// Package logic contains pure business logic for irrigation pump scheduling.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via TimeOfDay or time.Time parameters.
package logic

import "time"

// PumpID identifies a pump.
type PumpID string

const (
	PumpGarden     PumpID = "garden"
	PumpGreenhouse PumpID = "greenhouse"
)

// State represents the logical state of a pump output.
type State string

const (
	StateOn  State = "ON"
	StateOff State = "OFF"
)

// Reason explains which arbitration rule produced a decision.
type Reason string

const (
	ReasonManual   Reason = "MANUAL"   // manual override pins the output
	ReasonDisabled Reason = "DISABLED" // schedule disabled, no override
	ReasonSchedule Reason = "SCHEDULE" // inside a schedule window
	ReasonIdle     Reason = "IDLE"     // schedule enabled, outside all windows
)

// EventType represents an output transition event.
type EventType string

const (
	EventPumpOn  EventType = "PUMP_ON"
	EventPumpOff EventType = "PUMP_OFF"
)

// Event represents an output transition to be published.
type Event struct {
	Timestamp time.Time
	Pump      PumpID
	Type      EventType
	Reason    Reason
}

// Decision is the arbiter's verdict for one pump in one cycle.
type Decision struct {
	On     bool
	Reason Reason
}

// Output is the value to apply to one pump's actuator this cycle.
type Output struct {
	Pump    PumpID
	On      bool
	Reason  Reason
	Changed bool // differs from the value applied on the previous cycle
}

// EventCounts tracks the number of transitions of one pump since startup.
type EventCounts struct {
	On  int
	Off int
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    map[PumpID]EventCounts
}

// StateOf converts an output value to its State.
func StateOf(on bool) State {
	if on {
		return StateOn
	}
	return StateOff
}
