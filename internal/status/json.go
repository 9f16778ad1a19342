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
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Pumps         []PumpJSON   `json:"pumps"`
	Ready         bool         `json:"ready"`
	ClockValid    bool         `json:"clock_valid"`
	LocalTime     string       `json:"local_time,omitempty"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// PumpJSON is the JSON representation of one pump.
type PumpJSON struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	State           string     `json:"state"`
	PendingState    string     `json:"pending_state,omitempty"`
	Reason          string     `json:"reason,omitempty"`
	ScheduleEnabled bool       `json:"schedule_enabled"`
	ManualOverride  bool       `json:"manual_override"`
	DesiredOn       bool       `json:"desired_on"`
	Schedule        []string   `json:"schedule"`
	Counts          CountsJSON `json:"event_counts"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	On  int `json:"on"`
	Off int `json:"off"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
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

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	CycleMs     int64  `json:"cycle_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	HTTPAddr    string `json:"http_addr"`
	NTPServer   string `json:"ntp_server,omitempty"`
	Timezone    string `json:"timezone"`
}

func buildPumps(snap Snapshot) []PumpJSON {
	pumps := make([]PumpJSON, 0, len(snap.Pumps))
	for _, p := range snap.Pumps {
		windows := make([]string, len(p.Schedule))
		for i, w := range p.Schedule {
			windows[i] = w.String()
		}
		pumps = append(pumps, PumpJSON{
			ID:              string(p.ID),
			Name:            p.Name,
			State:           stateString(p.Output),
			PendingState:    snap.Pending(p),
			Reason:          string(p.Reason),
			ScheduleEnabled: p.Control.ScheduleEnabled,
			ManualOverride:  p.Control.ManualOverride,
			DesiredOn:       p.Control.DesiredOn,
			Schedule:        windows,
			Counts:          CountsJSON{On: p.Counts.On, Off: p.Counts.Off},
		})
	}
	return pumps
}

func stateString(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		Pumps:         buildPumps(snap),
		Ready:         snap.Ready(),
		ClockValid:    snap.ClockValid,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Config: ConfigJSON{
			CycleMs:     snap.Config.CycleMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
			NTPServer:   snap.Config.NTPServer,
			Timezone:    snap.Config.Timezone,
		},
	}
	if !snap.LocalTime.IsZero() {
		inner.LocalTime = snap.LocalTime.Format("15:04")
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

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
