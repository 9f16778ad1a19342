// Package clock provides the wall-clock time source for the control loop.
// A reading is only returned once it is trustworthy; before that the source
// reports ErrUnavailable and the caller holds its outputs.
package clock

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrUnavailable means the time source has no valid reading yet.
var ErrUnavailable = errors.New("clock: time not synchronized")

// Source supplies the current wall-clock time.
type Source interface {
	Now() (time.Time, error)
}

// MinValid is the earliest wall-clock time accepted as real. A board without
// a battery-backed RTC boots near the epoch or at its image build date.
var MinValid = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// System trusts the OS clock once it passes the MinValid floor. Use it when
// the host already runs an NTP daemon.
type System struct {
	Location *time.Location
	now      func() time.Time
}

// NewSystem returns a System source reporting times in loc.
func NewSystem(loc *time.Location) *System {
	return &System{Location: loc, now: time.Now}
}

// Now returns the OS time in the configured location.
func (s *System) Now() (time.Time, error) {
	t := s.now()
	if t.Before(MinValid) {
		return time.Time{}, ErrUnavailable
	}
	return t.In(s.Location), nil
}

// Fake is a test double returning a fixed reading. It may be changed while
// a loop goroutine is reading it.
type Fake struct {
	mu  sync.Mutex
	T   time.Time
	Err error
}

// Now returns the configured time or error.
func (f *Fake) Now() (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return time.Time{}, f.Err
	}
	return f.T, nil
}

// Set changes the reading and clears any error.
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.T = t
	f.Err = nil
}

// Fail makes subsequent readings return err.
func (f *Fake) Fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Err = err
}

// Location resolves the zone flags: an IANA name wins over a fixed offset.
func Location(name string, offset time.Duration) (*time.Location, error) {
	if name != "" {
		return time.LoadLocation(name)
	}
	if offset == 0 {
		return time.UTC, nil
	}
	sign, abs := "+", offset
	if offset < 0 {
		sign, abs = "-", -offset
	}
	name = fmt.Sprintf("UTC%s%02d:%02d", sign, int(abs.Hours()), int(abs.Minutes())%60)
	return time.FixedZone(name, int(offset.Seconds())), nil
}
