package logic

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnknownPump is returned when a request names a pump that does not exist.
var ErrUnknownPump = errors.New("unknown pump")

// PumpConfig describes a pump at construction time.
type PumpConfig struct {
	ID   PumpID
	Name string
}

// Pump is the per-pump state owned by the Controller.
type Pump struct {
	ID       PumpID
	Name     string
	Schedule Schedule
	Control  PumpControl
	// Output is the value applied to the actuator on the last cycle.
	// Lines start de-energized, so it starts false.
	Output bool
	Reason Reason
	Counts EventCounts
}

// Controller is the aggregate of every pump's schedule and control state.
// It is not safe for concurrent use: the control loop owns it, and
// administrative mutations are applied between cycles.
type Controller struct {
	pumps         []*Pump
	startTime     time.Time
	lastHeartbeat time.Time
}

// NewController creates a Controller with the given pumps in display order.
// Every pump starts with an empty schedule and NewPumpControl state.
// The startTime is used for calculating uptime in heartbeat events.
func NewController(startTime time.Time, pumps ...PumpConfig) *Controller {
	c := &Controller{
		startTime:     startTime,
		lastHeartbeat: startTime,
	}
	for _, p := range pumps {
		c.pumps = append(c.pumps, &Pump{
			ID:      p.ID,
			Name:    p.Name,
			Control: NewPumpControl(),
		})
	}
	return c
}

func (c *Controller) pump(id PumpID) (*Pump, error) {
	for _, p := range c.pumps {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownPump, id)
}

// Pumps returns a copy of every pump's state.
func (c *Controller) Pumps() []Pump {
	out := make([]Pump, len(c.pumps))
	for i, p := range c.pumps {
		out[i] = *p
		out[i].Schedule = p.Schedule.Clone()
	}
	return out
}

// Pump returns a copy of one pump's state.
func (c *Controller) Pump(id PumpID) (Pump, error) {
	p, err := c.pump(id)
	if err != nil {
		return Pump{}, err
	}
	out := *p
	out.Schedule = p.Schedule.Clone()
	return out, nil
}

// ToggleManual flips the desired output and pins it with a manual override.
func (c *Controller) ToggleManual(id PumpID) error {
	p, err := c.pump(id)
	if err != nil {
		return err
	}
	p.Control.DesiredOn = !p.Control.DesiredOn
	p.Control.ManualOverride = true
	return nil
}

// ToggleSchedule flips the schedule-enabled flag. Enabling the schedule
// also clears any manual override; disabling it leaves the override alone.
func (c *Controller) ToggleSchedule(id PumpID) error {
	p, err := c.pump(id)
	if err != nil {
		return err
	}
	p.Control.ScheduleEnabled = !p.Control.ScheduleEnabled
	if p.Control.ScheduleEnabled {
		p.Control.ManualOverride = false
	}
	return nil
}

// ResetOverride clears the manual override of every pump. DesiredOn is
// recomputed from the schedule on the next cycle.
func (c *Controller) ResetOverride() {
	for _, p := range c.pumps {
		p.Control.ManualOverride = false
	}
}

// ReplaceSchedule validates every window and, only if all are valid,
// replaces the pump's schedule. On error the schedule is untouched.
func (c *Controller) ReplaceSchedule(id PumpID, raw []RawWindow) error {
	p, err := c.pump(id)
	if err != nil {
		return err
	}
	s, err := ValidateWindows(raw)
	if err != nil {
		return err
	}
	p.Schedule = s
	return nil
}

// Cycle runs the arbiter for every pump at now and records the result as
// the applied output. The caller must apply every returned Output.
func (c *Controller) Cycle(now TimeOfDay) []Output {
	outputs := make([]Output, 0, len(c.pumps))
	for _, p := range c.pumps {
		d := Decide(p.Schedule, &p.Control, now)
		changed := d.On != p.Output
		if changed {
			if d.On {
				p.Counts.On++
			} else {
				p.Counts.Off++
			}
		}
		p.Output = d.On
		p.Reason = d.Reason
		outputs = append(outputs, Output{Pump: p.ID, On: d.On, Reason: d.Reason, Changed: changed})
	}
	return outputs
}

// Hold returns the previously applied outputs without evaluating anything.
// Used when the current time is unknown.
func (c *Controller) Hold() []Output {
	outputs := make([]Output, 0, len(c.pumps))
	for _, p := range c.pumps {
		outputs = append(outputs, Output{Pump: p.ID, On: p.Output, Reason: p.Reason})
	}
	return outputs
}

// Events converts the changed outputs of a cycle into transition events.
func Events(outputs []Output, t time.Time) []Event {
	var events []Event
	for _, o := range outputs {
		if !o.Changed {
			continue
		}
		typ := EventPumpOff
		if o.On {
			typ = EventPumpOn
		}
		events = append(events, Event{Timestamp: t, Pump: o.Pump, Type: typ, Reason: o.Reason})
	}
	return events
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if the interval has not elapsed,
// or if interval is <= 0 (disabled).
func (c *Controller) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}
	if now.Sub(c.lastHeartbeat) < interval {
		return nil
	}

	c.lastHeartbeat = now
	counts := make(map[PumpID]EventCounts, len(c.pumps))
	for _, p := range c.pumps {
		counts[p.ID] = p.Counts
	}
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(c.startTime),
		Counts:    counts,
	}
}
