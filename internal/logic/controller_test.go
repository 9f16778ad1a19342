package logic

import (
	"errors"
	"testing"
	"time"
)

func newTestController(t *testing.T) *Controller {
	t.Helper()
	c := NewController(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		PumpConfig{ID: PumpGarden, Name: "Garden"},
		PumpConfig{ID: PumpGreenhouse, Name: "Greenhouse"},
	)
	err := c.ReplaceSchedule(PumpGarden, []RawWindow{
		{6, 10, 6, 40},
		{12, 10, 12, 45},
		{17, 15, 17, 40},
	})
	if err != nil {
		t.Fatalf("seed garden schedule: %v", err)
	}
	return c
}

func mustPump(t *testing.T, c *Controller, id PumpID) Pump {
	t.Helper()
	p, err := c.Pump(id)
	if err != nil {
		t.Fatalf("Pump(%s): %v", id, err)
	}
	return p
}

func outputFor(t *testing.T, outputs []Output, id PumpID) Output {
	t.Helper()
	for _, o := range outputs {
		if o.Pump == id {
			return o
		}
	}
	t.Fatalf("no output for pump %s", id)
	return Output{}
}

func TestNewController(t *testing.T) {
	c := newTestController(t)
	pumps := c.Pumps()
	if len(pumps) != 2 {
		t.Fatalf("expected 2 pumps, got %d", len(pumps))
	}
	if pumps[0].ID != PumpGarden || pumps[1].ID != PumpGreenhouse {
		t.Errorf("unexpected pump order: %s, %s", pumps[0].ID, pumps[1].ID)
	}
	for _, p := range pumps {
		if !p.Control.ScheduleEnabled || p.Control.ManualOverride || p.Control.DesiredOn {
			t.Errorf("%s: unexpected initial control %+v", p.ID, p.Control)
		}
		if p.Output {
			t.Errorf("%s: output should start off", p.ID)
		}
	}
}

func TestUnknownPump(t *testing.T) {
	c := newTestController(t)
	if err := c.ToggleManual("pool"); !errors.Is(err, ErrUnknownPump) {
		t.Errorf("ToggleManual: expected ErrUnknownPump, got %v", err)
	}
	if err := c.ToggleSchedule("pool"); !errors.Is(err, ErrUnknownPump) {
		t.Errorf("ToggleSchedule: expected ErrUnknownPump, got %v", err)
	}
	if err := c.ReplaceSchedule("pool", nil); !errors.Is(err, ErrUnknownPump) {
		t.Errorf("ReplaceSchedule: expected ErrUnknownPump, got %v", err)
	}
	if _, err := c.Pump("pool"); !errors.Is(err, ErrUnknownPump) {
		t.Errorf("Pump: expected ErrUnknownPump, got %v", err)
	}
}

func TestToggleManual(t *testing.T) {
	c := newTestController(t)
	if err := c.ToggleManual(PumpGarden); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p := mustPump(t, c, PumpGarden)
	if !p.Control.DesiredOn || !p.Control.ManualOverride {
		t.Errorf("expected desired=on override=on, got %+v", p.Control)
	}

	if err := c.ToggleManual(PumpGarden); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p = mustPump(t, c, PumpGarden)
	if p.Control.DesiredOn || !p.Control.ManualOverride {
		t.Errorf("expected desired=off override=on, got %+v", p.Control)
	}

	if mustPump(t, c, PumpGreenhouse).Control.ManualOverride {
		t.Error("toggling garden must not affect greenhouse")
	}
}

func TestToggleScheduleEnableClearsOverride(t *testing.T) {
	c := newTestController(t)
	c.ToggleSchedule(PumpGarden) // true -> false
	c.ToggleManual(PumpGarden)

	p := mustPump(t, c, PumpGarden)
	if p.Control.ScheduleEnabled || !p.Control.ManualOverride {
		t.Fatalf("setup: unexpected control %+v", p.Control)
	}

	c.ToggleSchedule(PumpGarden) // false -> true
	p = mustPump(t, c, PumpGarden)
	if !p.Control.ScheduleEnabled {
		t.Error("expected schedule enabled")
	}
	if p.Control.ManualOverride {
		t.Error("enabling the schedule should clear the override")
	}
}

func TestToggleScheduleDisableKeepsOverride(t *testing.T) {
	c := newTestController(t)
	c.ToggleManual(PumpGarden)

	c.ToggleSchedule(PumpGarden) // true -> false
	p := mustPump(t, c, PumpGarden)
	if p.Control.ScheduleEnabled {
		t.Error("expected schedule disabled")
	}
	if !p.Control.ManualOverride || !p.Control.DesiredOn {
		t.Errorf("disabling the schedule should leave the override alone, got %+v", p.Control)
	}
}

func TestResetOverrideAllPumps(t *testing.T) {
	c := newTestController(t)
	c.ToggleManual(PumpGarden)
	c.ToggleManual(PumpGreenhouse)
	c.ToggleSchedule(PumpGreenhouse) // disable, override kept

	c.ResetOverride()

	for _, p := range c.Pumps() {
		if p.Control.ManualOverride {
			t.Errorf("%s: override should be cleared", p.ID)
		}
		if !p.Control.DesiredOn {
			t.Errorf("%s: reset must not touch DesiredOn", p.ID)
		}
	}
	if mustPump(t, c, PumpGreenhouse).Control.ScheduleEnabled {
		t.Error("reset must not touch ScheduleEnabled")
	}
}

func TestReplaceScheduleAtomic(t *testing.T) {
	c := newTestController(t)
	before := mustPump(t, c, PumpGarden).Schedule

	err := c.ReplaceSchedule(PumpGarden, []RawWindow{{6, 10, 6, 40}, {12, 0, 11, 0}})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if ve.Index != 1 {
		t.Errorf("expected offending index 1, got %d", ve.Index)
	}

	after := mustPump(t, c, PumpGarden).Schedule
	if after.String() != before.String() {
		t.Errorf("schedule changed on failed replace: %q -> %q", before, after)
	}
}

func TestReplaceScheduleCommits(t *testing.T) {
	c := newTestController(t)
	err := c.ReplaceSchedule(PumpGreenhouse, []RawWindow{{6, 0, 6, 10}, {18, 5, 18, 15}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := mustPump(t, c, PumpGreenhouse).Schedule.String()
	if got != "06:00-06:10, 18:05-18:15" {
		t.Errorf("unexpected schedule %q", got)
	}

	if err := c.ReplaceSchedule(PumpGreenhouse, nil); err != nil {
		t.Fatalf("clearing schedule: %v", err)
	}
	if n := len(mustPump(t, c, PumpGreenhouse).Schedule); n != 0 {
		t.Errorf("expected empty schedule, got %d windows", n)
	}
}

func TestPumpsReturnsCopies(t *testing.T) {
	c := newTestController(t)
	pumps := c.Pumps()
	pumps[0].Schedule[0].Start = At(0, 0)
	pumps[0].Control.ManualOverride = true

	p := mustPump(t, c, PumpGarden)
	if p.Schedule[0].Start != At(6, 10) {
		t.Error("mutating a copy changed the schedule")
	}
	if p.Control.ManualOverride {
		t.Error("mutating a copy changed the control state")
	}
}

func TestCycleOutputsAndTransitions(t *testing.T) {
	c := newTestController(t)

	out := c.Cycle(At(6, 9))
	g := outputFor(t, out, PumpGarden)
	if g.On || g.Changed {
		t.Errorf("06:09: expected OFF unchanged, got %+v", g)
	}

	out = c.Cycle(At(6, 10))
	g = outputFor(t, out, PumpGarden)
	if !g.On || !g.Changed || g.Reason != ReasonSchedule {
		t.Errorf("06:10: expected ON changed by SCHEDULE, got %+v", g)
	}
	gh := outputFor(t, out, PumpGreenhouse)
	if gh.On || gh.Changed || gh.Reason != ReasonIdle {
		t.Errorf("06:10 greenhouse: expected OFF unchanged IDLE, got %+v", gh)
	}

	out = c.Cycle(At(6, 20))
	if g = outputFor(t, out, PumpGarden); g.Changed {
		t.Errorf("06:20: expected no change, got %+v", g)
	}

	out = c.Cycle(At(6, 41))
	g = outputFor(t, out, PumpGarden)
	if g.On || !g.Changed {
		t.Errorf("06:41: expected OFF changed, got %+v", g)
	}

	p := mustPump(t, c, PumpGarden)
	if p.Counts.On != 1 || p.Counts.Off != 1 {
		t.Errorf("expected counts on=1 off=1, got %+v", p.Counts)
	}
}

func TestCycleAppliesEveryPump(t *testing.T) {
	c := newTestController(t)
	out := c.Cycle(At(3, 0))
	if len(out) != 2 {
		t.Fatalf("expected an output per pump, got %d", len(out))
	}
}

func TestHoldReturnsLastOutputs(t *testing.T) {
	c := newTestController(t)
	c.Cycle(At(12, 30))

	held := c.Hold()
	g := outputFor(t, held, PumpGarden)
	if !g.On || g.Changed {
		t.Errorf("expected held garden ON unchanged, got %+v", g)
	}
	if gh := outputFor(t, held, PumpGreenhouse); gh.On {
		t.Errorf("expected held greenhouse OFF, got %+v", gh)
	}
}

func TestEvents(t *testing.T) {
	ts := time.Date(2026, 5, 1, 12, 10, 0, 0, time.UTC)
	events := Events([]Output{
		{Pump: PumpGarden, On: true, Reason: ReasonSchedule, Changed: true},
		{Pump: PumpGreenhouse, On: false, Reason: ReasonIdle},
	}, ts)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	e := events[0]
	if e.Pump != PumpGarden || e.Type != EventPumpOn || e.Reason != ReasonSchedule || !e.Timestamp.Equal(ts) {
		t.Errorf("unexpected event %+v", e)
	}

	events = Events([]Output{{Pump: PumpGreenhouse, On: false, Reason: ReasonManual, Changed: true}}, ts)
	if len(events) != 1 || events[0].Type != EventPumpOff {
		t.Errorf("expected PUMP_OFF, got %+v", events)
	}
}

func TestEndToEndOverrideScenario(t *testing.T) {
	c := newTestController(t)

	if !outputFor(t, c.Cycle(At(12, 30)), PumpGarden).On {
		t.Fatal("12:30: expected ON")
	}
	if outputFor(t, c.Cycle(At(13, 0)), PumpGarden).On {
		t.Fatal("13:00: expected OFF")
	}

	c.ToggleManual(PumpGarden)
	if o := outputFor(t, c.Cycle(At(13, 0)), PumpGarden); !o.On || o.Reason != ReasonManual {
		t.Fatalf("13:00 after toggle: expected ON/MANUAL, got %+v", o)
	}
	for _, now := range []TimeOfDay{At(14, 0), At(17, 41), At(17, 50)} {
		if !outputFor(t, c.Cycle(now), PumpGarden).On {
			t.Fatalf("%s: override should pin ON", now)
		}
	}

	c.ResetOverride()
	if o := outputFor(t, c.Cycle(At(17, 50)), PumpGarden); o.On || o.Reason != ReasonIdle {
		t.Errorf("17:50 after reset: expected OFF/IDLE, got %+v", o)
	}
}

func TestCheckHeartbeatDisabledWithZeroInterval(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewController(start, PumpConfig{ID: PumpGarden})
	if hb := c.CheckHeartbeat(start.Add(time.Hour), 0); hb != nil {
		t.Error("expected nil heartbeat with zero interval")
	}
}

func TestCheckHeartbeatAtInterval(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewController(start, PumpConfig{ID: PumpGarden})
	c.ToggleManual(PumpGarden)
	c.Cycle(At(0, 0))

	if hb := c.CheckHeartbeat(start.Add(14*time.Minute), 15*time.Minute); hb != nil {
		t.Error("expected no heartbeat before interval")
	}

	hb := c.CheckHeartbeat(start.Add(15*time.Minute), 15*time.Minute)
	if hb == nil {
		t.Fatal("expected heartbeat at interval")
	}
	if hb.Uptime != 15*time.Minute {
		t.Errorf("expected uptime 15m, got %v", hb.Uptime)
	}
	if hb.Counts[PumpGarden].On != 1 {
		t.Errorf("expected garden on count 1, got %+v", hb.Counts[PumpGarden])
	}

	if hb := c.CheckHeartbeat(start.Add(20*time.Minute), 15*time.Minute); hb != nil {
		t.Error("expected next heartbeat to wait a full interval")
	}
}
