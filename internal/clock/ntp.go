package clock

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/beevik/ntp"
)

// NTP keeps an offset between the local clock and an NTP server. Queries run
// on the goroutine started with Run, never inside Now, so a slow server
// cannot stall the caller. A failed refresh keeps the last good offset. Until
// the first successful query Now returns ErrUnavailable.
type NTP struct {
	Server   string
	Interval time.Duration
	Retry    time.Duration
	Timeout  time.Duration
	Location *time.Location

	mu     sync.Mutex
	offset time.Duration
	synced bool

	now   func() time.Time
	query func(host string, opt ntp.QueryOptions) (*ntp.Response, error)
}

// NewNTP creates an NTP source. No query is made until Run or Sync is called.
func NewNTP(server string, interval, timeout time.Duration, loc *time.Location) *NTP {
	return &NTP{
		Server:   server,
		Interval: interval,
		Retry:    10 * time.Second,
		Timeout:  timeout,
		Location: loc,
		now:      time.Now,
		query:    ntp.QueryWithOptions,
	}
}

// Now returns the corrected time in the configured location.
func (n *NTP) Now() (time.Time, error) {
	n.mu.Lock()
	offset, synced := n.offset, n.synced
	n.mu.Unlock()
	if !synced {
		return time.Time{}, ErrUnavailable
	}
	return n.now().Add(offset).In(n.Location), nil
}

// Synced reports whether at least one query has succeeded.
func (n *NTP) Synced() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.synced
}

// Run queries the server immediately and then every Interval, or every Retry
// while no query has succeeded yet, until ctx is done.
func (n *NTP) Run(ctx context.Context) {
	for {
		if err := n.Sync(); err != nil {
			log.Printf("ntp: %v", err)
		}
		wait := n.Interval
		if !n.Synced() {
			wait = n.Retry
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}
}

// Sync performs one query and updates the offset on success.
func (n *NTP) Sync() error {
	resp, err := n.query(n.Server, ntp.QueryOptions{Timeout: n.Timeout})
	if err != nil {
		return fmt.Errorf("query %s: %w", n.Server, err)
	}
	if err := resp.Validate(); err != nil {
		return fmt.Errorf("invalid response from %s: %w", n.Server, err)
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.synced {
		log.Printf("ntp: synchronized with %s (offset %v)", n.Server, resp.ClockOffset)
	}
	n.offset = resp.ClockOffset
	n.synced = true
	return nil
}
