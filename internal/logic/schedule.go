package logic

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeOfDay is a wall-clock time with one-minute resolution.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// At returns the TimeOfDay h:m. It does not range-check its arguments.
func At(h, m int) TimeOfDay {
	return TimeOfDay{Hour: h, Minute: m}
}

// TimeOfDayOf returns the hour and minute of t in t's location.
func TimeOfDayOf(t time.Time) TimeOfDay {
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}
}

// Minutes returns the number of minutes since midnight.
func (t TimeOfDay) Minutes() int {
	return t.Hour*60 + t.Minute
}

// Before reports whether t is strictly earlier in the day than o.
func (t TimeOfDay) Before(o TimeOfDay) bool {
	return t.Minutes() < o.Minutes()
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Window is a time-of-day interval during which a pump should run.
// Start must not be after End; windows never wrap past midnight.
type Window struct {
	Start TimeOfDay
	End   TimeOfDay
}

// Active reports whether t falls inside the window. Both bounds are inclusive.
func (w Window) Active(t TimeOfDay) bool {
	m := t.Minutes()
	return w.Start.Minutes() <= m && m <= w.End.Minutes()
}

func (w Window) String() string {
	return w.Start.String() + "-" + w.End.String()
}

// Schedule is the ordered list of windows for one pump.
// Windows may overlap; a time matching any of them is active.
type Schedule []Window

// Active reports whether t falls inside at least one window.
func (s Schedule) Active(t TimeOfDay) bool {
	for _, w := range s {
		if w.Active(t) {
			return true
		}
	}
	return false
}

// Clone returns a copy that shares no storage with s.
func (s Schedule) Clone() Schedule {
	if s == nil {
		return nil
	}
	out := make(Schedule, len(s))
	copy(out, s)
	return out
}

func (s Schedule) String() string {
	parts := make([]string, len(s))
	for i, w := range s {
		parts[i] = w.String()
	}
	return strings.Join(parts, ", ")
}

// RawWindow is an unvalidated window as submitted by an administrator.
type RawWindow struct {
	StartHour   int `json:"start_hour"`
	StartMinute int `json:"start_minute"`
	EndHour     int `json:"end_hour"`
	EndMinute   int `json:"end_minute"`
}

// ValidationError reports the first invalid window of a schedule replacement.
type ValidationError struct {
	Index  int    // position of the offending window
	Field  string // empty when the window as a whole is invalid
	Value  int
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("window %d: %s", e.Index, e.Reason)
	}
	return fmt.Sprintf("window %d: %s %d %s", e.Index, e.Field, e.Value, e.Reason)
}

// ValidateWindows checks every raw window and returns the schedule they
// describe. Each hour must be in [0,23], each minute in [0,59], and each
// window must end strictly after it starts.
func ValidateWindows(raw []RawWindow) (Schedule, error) {
	s := make(Schedule, 0, len(raw))
	for i, r := range raw {
		fields := []struct {
			name  string
			value int
			max   int
		}{
			{"start_hour", r.StartHour, 23},
			{"start_minute", r.StartMinute, 59},
			{"end_hour", r.EndHour, 23},
			{"end_minute", r.EndMinute, 59},
		}
		for _, f := range fields {
			if f.value < 0 || f.value > f.max {
				return nil, &ValidationError{
					Index:  i,
					Field:  f.name,
					Value:  f.value,
					Reason: fmt.Sprintf("out of range [0,%d]", f.max),
				}
			}
		}

		w := Window{Start: At(r.StartHour, r.StartMinute), End: At(r.EndHour, r.EndMinute)}
		if !w.Start.Before(w.End) {
			return nil, &ValidationError{
				Index:  i,
				Reason: fmt.Sprintf("end %s must be after start %s", w.End, w.Start),
			}
		}
		s = append(s, w)
	}
	return s, nil
}

// ParseWindows parses a list of "HH:MM-HH:MM" entries separated by commas,
// semicolons or newlines. It checks syntax only; ranges are checked by
// ValidateWindows.
func ParseWindows(s string) ([]RawWindow, error) {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n' || r == '\r'
	})

	var out []RawWindow
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		start, end, ok := strings.Cut(part, "-")
		if !ok {
			return nil, fmt.Errorf("window %d: invalid format %q, want HH:MM-HH:MM", len(out), part)
		}
		sh, sm, err := parseClock(start)
		if err != nil {
			return nil, fmt.Errorf("window %d: start: %w", len(out), err)
		}
		eh, em, err := parseClock(end)
		if err != nil {
			return nil, fmt.Errorf("window %d: end: %w", len(out), err)
		}
		out = append(out, RawWindow{StartHour: sh, StartMinute: sm, EndHour: eh, EndMinute: em})
	}
	return out, nil
}

func parseClock(s string) (int, int, error) {
	hs, ms, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, 0, fmt.Errorf("invalid time %q, want HH:MM", s)
	}
	h, err := strconv.Atoi(hs)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid hour %q", hs)
	}
	m, err := strconv.Atoi(ms)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid minute %q", ms)
	}
	return h, m, nil
}
