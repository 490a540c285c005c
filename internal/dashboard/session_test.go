package dashboard

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"facilitymonitor/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeFetcher struct {
	mu          sync.Mutex
	temperature float64
	fail        map[Category]error
	release     chan struct{}
	waitCtx     bool
	started     chan Category
}

func (f *fakeFetcher) set(temp float64, fail map[Category]error) {
	f.mu.Lock()
	f.temperature, f.fail = temp, fail
	f.mu.Unlock()
}

func (f *fakeFetcher) Latest(ctx context.Context, c Category) (Reading, error) {
	if f.started != nil {
		f.started <- c
	}
	if f.release != nil {
		<-f.release
	}
	if f.waitCtx {
		<-ctx.Done()
		return Reading{}, ctx.Err()
	}

	f.mu.Lock()
	temp, err := f.temperature, f.fail[c]
	f.mu.Unlock()
	if err != nil {
		return Reading{}, err
	}

	r := Reading{Category: c}
	switch c {
	case Sensor1, Sensor2:
		r.Climate = &models.ClimateSample{
			ClimateReading: models.ClimateReading{Temperature: temp, Humidity: 50, Timestamp: time.Now()},
			Availability:   models.AvailabilityReal,
		}
	case FireSmoke:
		r.FireSmoke = &models.FireSmokeSample{
			FireSmokeReading: models.FireSmokeReading{FireIndex: temp, SmokeIndex: 10, Timestamp: time.Now()},
			Availability:     models.AvailabilityReal,
		}
	case Electricity:
		r.Electricity = &models.ElectricitySample{
			ElectricityReading: models.FallbackElectricity(time.Now()),
			Availability:       models.AvailabilityFallback,
		}
	}
	return r, nil
}

// manualTicker replaces time.NewTicker so tests decide when a period elapses.
type manualTicker struct {
	mu        sync.Mutex
	intervals []time.Duration
	current   chan time.Time
}

func (m *manualTicker) factory(d time.Duration) (<-chan time.Time, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.intervals = append(m.intervals, d)
	m.current = make(chan time.Time)
	return m.current, func() {}
}

func (m *manualTicker) tick(t *testing.T) {
	t.Helper()
	m.mu.Lock()
	ch := m.current
	m.mu.Unlock()
	select {
	case ch <- time.Now():
	case <-time.After(2 * time.Second):
		t.Fatal("poll loop did not take the tick")
	}
}

// offer sends a tick if the poll loop takes it within wait.
func (m *manualTicker) offer(wait time.Duration) bool {
	m.mu.Lock()
	ch := m.current
	m.mu.Unlock()
	select {
	case ch <- time.Now():
		return true
	case <-time.After(wait):
		return false
	}
}

func (m *manualTicker) armed() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Duration(nil), m.intervals...)
}

type sessionFixture struct {
	session *Session
	fetcher *fakeFetcher
	ticker  *manualTicker
	updates chan ViewState
}

func newSessionFixture(t *testing.T, view View, fetcher *fakeFetcher) *sessionFixture {
	t.Helper()
	f := &sessionFixture{fetcher: fetcher, ticker: &manualTicker{}, updates: make(chan ViewState, 16)}
	s, err := NewSession(fetcher, view, DefaultInterval, discardLogger(),
		WithOnUpdate(func(v ViewState) { f.updates <- v }))
	require.NoError(t, err)
	s.ticker = f.ticker.factory
	f.session = s
	t.Cleanup(s.Stop)
	return f
}

func (f *sessionFixture) next(t *testing.T) ViewState {
	t.Helper()
	select {
	case v := <-f.updates:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("no batch was applied")
		return ViewState{}
	}
}

func TestNewSessionRejectsUnlistedInterval(t *testing.T) {
	_, err := NewSession(&fakeFetcher{}, Views["overview"], 45*time.Second, discardLogger())
	assert.Error(t, err)

	_, err = NewSession(&fakeFetcher{}, View{Name: "empty"}, DefaultInterval, discardLogger())
	assert.Error(t, err)
}

func TestStartFetchesImmediately(t *testing.T) {
	f := newSessionFixture(t, Views["overview"], &fakeFetcher{temperature: 20})
	require.NoError(t, f.session.Start(context.Background()))

	v := f.next(t)
	assert.Equal(t, 1, v.Batches)
	assert.Len(t, v.Categories, 4)
	assert.Equal(t, 20.0, v.Categories[Sensor1].Reading.Climate.Temperature)
	assert.False(t, v.LastUpdate.IsZero())
	assert.Equal(t, []time.Duration{DefaultInterval}, f.ticker.armed())

	assert.ErrorIs(t, f.session.Start(context.Background()), ErrSessionRunning)
}

func TestFailedCategoryKeepsPreviousValue(t *testing.T) {
	fetcher := &fakeFetcher{temperature: 20}
	f := newSessionFixture(t, Views["overview"], fetcher)
	require.NoError(t, f.session.Start(context.Background()))
	first := f.next(t)

	fetcher.set(21, map[Category]error{FireSmoke: errors.New("503 Service Unavailable")})
	f.ticker.tick(t)
	second := f.next(t)

	assert.Equal(t, 21.0, second.Categories[Sensor1].Reading.Climate.Temperature)
	assert.Equal(t, 21.0, second.Categories[Sensor2].Reading.Climate.Temperature)

	fs := second.Categories[FireSmoke]
	require.NotNil(t, fs.Reading)
	assert.Equal(t, 20.0, fs.Reading.FireSmoke.FireIndex)
	assert.Equal(t, first.Categories[FireSmoke].FetchedAt, fs.FetchedAt)
	assert.EqualError(t, fs.Err, "503 Service Unavailable")
	assert.NotNil(t, second.Categories[Electricity].Reading)
}

func TestFailureBeforeFirstSuccessLeavesCategoryEmpty(t *testing.T) {
	fetcher := &fakeFetcher{fail: map[Category]error{Sensor2: errors.New("timeout")}}
	f := newSessionFixture(t, Views["climate"], fetcher)
	require.NoError(t, f.session.Start(context.Background()))

	v := f.next(t)
	assert.NotNil(t, v.Categories[Sensor1].Reading)
	assert.Nil(t, v.Categories[Sensor2].Reading)
	assert.Error(t, v.Categories[Sensor2].Err)
}

func TestSetIntervalRearmsTimer(t *testing.T) {
	f := newSessionFixture(t, Views["fire-smoke"], &fakeFetcher{})
	require.NoError(t, f.session.Start(context.Background()))
	f.next(t)

	require.NoError(t, f.session.SetInterval(time.Minute))
	v := f.next(t)
	assert.Equal(t, time.Minute, v.Interval)
	assert.Equal(t, []time.Duration{DefaultInterval, time.Minute}, f.ticker.armed())

	f.ticker.tick(t)
	assert.Equal(t, 3, f.next(t).Batches)

	assert.Error(t, f.session.SetInterval(45*time.Second))
}

func TestRefreshDoesNotResetTimer(t *testing.T) {
	f := newSessionFixture(t, Views["electricity"], &fakeFetcher{})
	assert.ErrorIs(t, f.session.Refresh(context.Background()), ErrNotRunning)

	require.NoError(t, f.session.Start(context.Background()))
	f.next(t)

	require.NoError(t, f.session.Refresh(context.Background()))
	assert.Equal(t, 2, f.next(t).Batches)
	assert.Len(t, f.ticker.armed(), 1)

	f.ticker.tick(t)
	assert.Equal(t, 3, f.next(t).Batches)
}

func TestStopDiscardsLateResults(t *testing.T) {
	fetcher := &fakeFetcher{temperature: 20, release: make(chan struct{})}
	f := newSessionFixture(t, Views["climate"], fetcher)
	require.NoError(t, f.session.Start(context.Background()))

	go func() {
		time.Sleep(50 * time.Millisecond)
		close(fetcher.release)
	}()
	f.session.Stop()

	v := f.session.State()
	assert.Zero(t, v.Batches)
	assert.Nil(t, v.Categories[Sensor1].Reading)
	assert.Empty(t, f.updates)

	assert.ErrorIs(t, f.session.Start(context.Background()), ErrSessionClosed)
	f.session.Stop()
}

func TestStopCancelsInFlightFetches(t *testing.T) {
	f := newSessionFixture(t, Views["overview"], &fakeFetcher{waitCtx: true})
	require.NoError(t, f.session.Start(context.Background()))

	done := make(chan struct{})
	go func() {
		f.session.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not cancel pending fetches")
	}
	assert.Zero(t, f.session.State().Batches)
}

func TestParentCancelStopsPollingAfterIntervalChange(t *testing.T) {
	f := newSessionFixture(t, Views["fire-smoke"], &fakeFetcher{})
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, f.session.Start(ctx))
	f.next(t)

	require.NoError(t, f.session.SetInterval(time.Minute))
	assert.Equal(t, 2, f.next(t).Batches)

	cancel()
	f.ticker.offer(200 * time.Millisecond)
	select {
	case v := <-f.updates:
		t.Fatalf("batch applied after the context was cancelled: batches=%d", v.Batches)
	case <-time.After(200 * time.Millisecond):
	}
	assert.Equal(t, 2, f.session.State().Batches)
}

func TestRefreshOverlappingSetIntervalIsCancelled(t *testing.T) {
	fetcher := &fakeFetcher{waitCtx: true, started: make(chan Category, 16)}
	f := newSessionFixture(t, Views["fire-smoke"], fetcher)
	require.NoError(t, f.session.Start(context.Background()))
	<-fetcher.started

	refreshed := make(chan error, 1)
	go func() { refreshed <- f.session.Refresh(context.Background()) }()
	select {
	case <-fetcher.started:
	case <-time.After(2 * time.Second):
		t.Fatal("refresh did not start fetching")
	}

	require.NoError(t, f.session.SetInterval(time.Minute))
	select {
	case err := <-refreshed:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("refresh was not cancelled by the interval change")
	}
	assert.Zero(t, f.session.State().Batches)
}
