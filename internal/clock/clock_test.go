package clock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/beevik/ntp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func goodResponse(offset time.Duration) *ntp.Response {
	return &ntp.Response{
		Time:          base,
		ReferenceTime: base,
		Stratum:       2,
		Leap:          ntp.LeapNoWarning,
		ClockOffset:   offset,
	}
}

// scriptedNTP returns an NTP source whose local clock and server responses are scripted.
func scriptedNTP(local *time.Time, responses ...func() (*ntp.Response, error)) (*NTP, *int) {
	calls := 0
	n := NewNTP("pool.ntp.org", time.Minute, time.Second, time.UTC)
	n.now = func() time.Time { return *local }
	n.query = func(host string, opt ntp.QueryOptions) (*ntp.Response, error) {
		i := calls
		calls++
		if i >= len(responses) {
			i = len(responses) - 1
		}
		return responses[i]()
	}
	return n, &calls
}

func ok(offset time.Duration) func() (*ntp.Response, error) {
	return func() (*ntp.Response, error) { return goodResponse(offset), nil }
}

func fail() (*ntp.Response, error) {
	return nil, errors.New("i/o timeout")
}

func TestNTPUnavailableBeforeFirstSync(t *testing.T) {
	local := base
	n, _ := scriptedNTP(&local, fail)

	_, err := n.Now()
	assert.ErrorIs(t, err, ErrUnavailable)

	assert.Error(t, n.Sync())
	_, err = n.Now()
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.False(t, n.Synced())
}

func TestNTPAppliesOffset(t *testing.T) {
	local := base
	n, calls := scriptedNTP(&local, ok(90*time.Second))

	require.NoError(t, n.Sync())
	got, err := n.Now()
	require.NoError(t, err)
	assert.Equal(t, base.Add(90*time.Second), got)
	assert.True(t, n.Synced())
	assert.Equal(t, 1, *calls)
}

func TestNTPNowNeverQueries(t *testing.T) {
	local := base
	n, calls := scriptedNTP(&local, ok(time.Second), ok(2*time.Second))
	require.NoError(t, n.Sync())

	for i := 0; i < 5; i++ {
		local = local.Add(time.Hour)
		got, err := n.Now()
		require.NoError(t, err)
		assert.Equal(t, local.Add(time.Second), got)
	}
	assert.Equal(t, 1, *calls)

	require.NoError(t, n.Sync())
	got, err := n.Now()
	require.NoError(t, err)
	assert.Equal(t, local.Add(2*time.Second), got)
}

func TestNTPKeepsOffsetAfterFailedRefresh(t *testing.T) {
	local := base
	n, _ := scriptedNTP(&local, ok(5*time.Second), fail)

	require.NoError(t, n.Sync())
	assert.Error(t, n.Sync())

	local = base.Add(2 * time.Minute)
	got, err := n.Now()
	require.NoError(t, err)
	assert.Equal(t, local.Add(5*time.Second), got)
}

func TestNTPRunRetriesUntilSynced(t *testing.T) {
	local := base
	n, calls := scriptedNTP(&local, fail, fail, ok(3*time.Second))
	n.Retry = time.Millisecond
	n.Interval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		n.Run(ctx)
		close(done)
	}()

	require.Eventually(t, n.Synced, time.Second, time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, 3, *calls, "no query before Interval once synced")
	got, err := n.Now()
	require.NoError(t, err)
	assert.Equal(t, base.Add(3*time.Second), got)
}

func TestNTPRunStopsOnCancel(t *testing.T) {
	local := base
	n, _ := scriptedNTP(&local, fail)
	n.Retry = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		n.Run(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestNTPRejectsUnsynchronizedServer(t *testing.T) {
	local := base
	n, _ := scriptedNTP(&local, func() (*ntp.Response, error) {
		r := goodResponse(time.Hour)
		r.Leap = ntp.LeapNotInSync
		return r, nil
	})

	assert.Error(t, n.Sync())
	_, err := n.Now()
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestNTPLocation(t *testing.T) {
	local := base
	n, _ := scriptedNTP(&local, ok(0))
	n.Location = time.FixedZone("UTC-3", -3*3600)
	require.NoError(t, n.Sync())

	got, err := n.Now()
	require.NoError(t, err)
	assert.Equal(t, 9, got.Hour())
}

func TestSystemRejectsImplausibleClock(t *testing.T) {
	s := NewSystem(time.UTC)
	s.now = func() time.Time { return time.Unix(0, 0) }

	_, err := s.Now()
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestSystemReturnsTimeInLocation(t *testing.T) {
	loc := time.FixedZone("UTC-3", -3*3600)
	s := NewSystem(loc)
	s.now = func() time.Time { return base }

	got, err := s.Now()
	require.NoError(t, err)
	assert.Equal(t, loc, got.Location())
	assert.True(t, got.Equal(base))
}

func TestFake(t *testing.T) {
	f := &Fake{Err: ErrUnavailable}
	_, err := f.Now()
	assert.ErrorIs(t, err, ErrUnavailable)

	f.Set(base)
	got, err := f.Now()
	require.NoError(t, err)
	assert.Equal(t, base, got)
}

func TestLocation(t *testing.T) {
	loc, err := Location("", 0)
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)

	loc, err = Location("", -3*time.Hour)
	require.NoError(t, err)
	name, off := base.In(loc).Zone()
	assert.Equal(t, -3*3600, off)
	assert.Equal(t, "UTC-03:00", name)

	loc, err = Location("UTC", -3*time.Hour)
	require.NoError(t, err)
	_, off = base.In(loc).Zone()
	assert.Equal(t, 0, off, "name wins over offset")

	_, err = Location("Not/AZone", 0)
	assert.Error(t, err)
}
