// Package status provides a thread-safe status tracker for the irrigation daemon.
// The control loop publishes a copy of the controller after every cycle; HTTP
// handlers and MQTT system events read it without touching the controller.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/irrigation-controller/internal/logic"
)

// NetworkInfo contains network state. This is a local copy to avoid
// importing internal/mqtt from status.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	CycleMs     int64
	HeartbeatMs int64
	Broker      string
	HTTPAddr    string
	NTPServer   string // empty = system clock
	Timezone    string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Pumps         []logic.Pump
	ClockValid    bool      // the last cycle had a trustworthy time
	LocalTime     time.Time // controller time of the last valid cycle
	LastCycle     time.Time
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Pending returns the state p will be driven to on the next cycle when an
// admin change applied since the last evaluation disagrees with Output, or ""
// when nothing is pending. It is always "" while the clock is unavailable.
func (s Snapshot) Pending(p logic.Pump) string {
	if !s.ClockValid {
		return ""
	}
	c := p.Control
	next := logic.Evaluate(p.Schedule, &c, logic.TimeOfDayOf(s.LocalTime))
	if next == p.Output {
		return ""
	}
	return string(logic.StateOf(next))
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Ready reports whether the outputs reflect an evaluated schedule.
func (s Snapshot) Ready() bool {
	return s.ClockValid && !s.LocalTime.IsZero()
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
		now: time.Now,
	}
}

// Update stores the pump states of the cycle that ran at cycleTime.
// localTime is the controller's time of day, or the zero time when the clock
// was unavailable and the outputs were held.
// Called from runLoop on every tick.
func (t *Tracker) Update(pumps []logic.Pump, localTime, cycleTime time.Time) {
	t.mu.Lock()
	t.snap.Pumps = pumps
	t.snap.ClockValid = !localTime.IsZero()
	if t.snap.ClockValid {
		t.snap.LocalTime = localTime
	}
	t.snap.LastCycle = cycleTime
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

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = t.now()
	return s
}
