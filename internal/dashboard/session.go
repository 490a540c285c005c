package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// AllowedIntervals are the refresh periods a user can pick.
var AllowedIntervals = []time.Duration{
	10 * time.Second,
	30 * time.Second,
	60 * time.Second,
	5 * time.Minute,
	10 * time.Minute,
}

// DefaultInterval is selected when a session starts without a preference.
const DefaultInterval = 30 * time.Second

func ValidInterval(d time.Duration) bool {
	for _, a := range AllowedIntervals {
		if a == d {
			return true
		}
	}
	return false
}

// View is a page of the dashboard and the categories it shows.
type View struct {
	Name       string
	Categories []Category
}

var Views = map[string]View{
	"overview":    {Name: "overview", Categories: []Category{Sensor1, Sensor2, FireSmoke, Electricity}},
	"climate":     {Name: "climate", Categories: []Category{Sensor1, Sensor2}},
	"fire-smoke":  {Name: "fire-smoke", Categories: []Category{FireSmoke}},
	"electricity": {Name: "electricity", Categories: []Category{Electricity}},
}

// Fetcher loads the latest reading of a category. *Client implements it.
type Fetcher interface {
	Latest(ctx context.Context, category Category) (Reading, error)
}

// CategoryState is what the view currently shows for one category. Reading
// stays at the last successful value when a later fetch fails.
type CategoryState struct {
	Reading   *Reading
	FetchedAt time.Time
	Err       error
}

// ViewState is a copy of a session's state.
type ViewState struct {
	View       string
	Interval   time.Duration
	Categories map[Category]CategoryState
	LastUpdate time.Time
	Batches    int
}

var (
	ErrSessionClosed  = errors.New("session closed")
	ErrSessionRunning = errors.New("session already running")
	ErrNotRunning     = errors.New("session not running")
)

// Session polls the categories of one view on a fixed interval while the view
// is shown. Each poll is a batch: all categories are fetched concurrently and
// the results are applied together once every fetch has settled. Stop cancels
// outstanding fetches and discards anything that still arrives.
type Session struct {
	fetcher  Fetcher
	view     View
	logger   *slog.Logger
	now      func() time.Time
	onUpdate func(ViewState)
	ticker   func(time.Duration) (<-chan time.Time, func())

	mu         sync.Mutex
	interval   time.Duration
	state      map[Category]CategoryState
	lastUpdate time.Time
	batches    int
	generation uint64
	parent     context.Context
	ctx        context.Context
	cancel     context.CancelFunc
	running    bool
	closed     bool
	waitGroup  sync.WaitGroup
}

type SessionOption func(*Session)

// WithOnUpdate registers a callback invoked after every applied batch.
func WithOnUpdate(fn func(ViewState)) SessionOption {
	return func(s *Session) { s.onUpdate = fn }
}

func WithSessionClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

func NewSession(fetcher Fetcher, view View, interval time.Duration, logger *slog.Logger, opts ...SessionOption) (*Session, error) {
	if !ValidInterval(interval) {
		return nil, fmt.Errorf("refresh interval %s is not one of the selectable values", interval)
	}
	if len(view.Categories) == 0 {
		return nil, fmt.Errorf("view %q has no categories", view.Name)
	}
	s := &Session{
		fetcher:  fetcher,
		view:     view,
		logger:   logger.With("view", view.Name),
		now:      time.Now,
		interval: interval,
		state:    make(map[Category]CategoryState, len(view.Categories)),
		ticker: func(d time.Duration) (<-chan time.Time, func()) {
			t := time.NewTicker(d)
			return t.C, t.Stop
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start fetches immediately and then on every tick until Stop.
func (s *Session) Start(parent context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.closed:
		return ErrSessionClosed
	case s.running:
		return ErrSessionRunning
	}
	s.running = true
	s.parent = parent
	s.arm(parent)
	return nil
}

// arm starts a fresh polling task. Callers hold s.mu.
func (s *Session) arm(parent context.Context) {
	s.ctx, s.cancel = context.WithCancel(parent)
	s.generation++
	ctx, gen, interval := s.ctx, s.generation, s.interval

	s.waitGroup.Add(1)
	go func() {
		defer s.waitGroup.Done()
		tick, stop := s.ticker(interval)
		defer stop()

		s.spawnBatch(ctx, gen)
		for {
			select {
			case <-ctx.Done():
				return
			case <-tick:
				if ctx.Err() != nil {
					return
				}
				s.spawnBatch(ctx, gen)
			}
		}
	}()
}

// spawnBatch runs a batch without blocking the ticker, so a slow batch can
// overlap the next one.
func (s *Session) spawnBatch(ctx context.Context, gen uint64) {
	s.waitGroup.Add(1)
	go func() {
		defer s.waitGroup.Done()
		s.runBatch(ctx, gen)
	}()
}

// SetInterval switches to d, restarting the task so the new period starts now.
func (s *Session) SetInterval(d time.Duration) error {
	if !ValidInterval(d) {
		return fmt.Errorf("refresh interval %s is not one of the selectable values", d)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	s.interval = d
	if !s.running {
		return nil
	}
	s.cancel()
	s.arm(s.parent)
	s.logger.Info("refresh interval changed", "interval", d)
	return nil
}

// Refresh runs one batch now and waits for it. The periodic schedule is not
// shifted. A refresh still in flight when SetInterval or Stop replaces the
// task is cancelled with it and applies nothing; the re-armed task fetches
// immediately on its own.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrNotRunning
	}
	sessionCtx, gen := s.ctx, s.generation
	s.waitGroup.Add(1)
	s.mu.Unlock()
	defer s.waitGroup.Done()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	release := context.AfterFunc(sessionCtx, cancel)
	defer release()

	s.runBatch(ctx, gen)
	return nil
}

// Stop ends the session. In-flight fetches are cancelled and their results
// dropped. Stop is idempotent and waits for every goroutine to exit.
func (s *Session) Stop() {
	s.mu.Lock()
	if s.running {
		s.cancel()
		s.generation++
		s.running = false
	}
	s.closed = true
	s.mu.Unlock()

	s.waitGroup.Wait()
}

// State returns a copy of the current view state.
func (s *Session) State() ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *Session) snapshot() ViewState {
	return ViewState{
		View:       s.view.Name,
		Interval:   s.interval,
		Categories: maps.Clone(s.state),
		LastUpdate: s.lastUpdate,
		Batches:    s.batches,
	}
}

type fetchResult struct {
	reading Reading
	err     error
}

func (s *Session) runBatch(ctx context.Context, gen uint64) {
	results := make([]fetchResult, len(s.view.Categories))

	var g errgroup.Group
	for i, category := range s.view.Categories {
		g.Go(func() error {
			r, err := s.fetcher.Latest(ctx, category)
			results[i] = fetchResult{reading: r, err: err}
			if err != nil {
				return fmt.Errorf("%s: %w", category, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil && ctx.Err() == nil {
		s.logger.Warn("poll batch incomplete", "error", err)
	}

	s.apply(gen, results)
}

// apply commits a settled batch unless the task that started it is gone.
func (s *Session) apply(gen uint64, results []fetchResult) {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		s.logger.Debug("discarding batch from a stopped task")
		return
	}

	now := s.now()
	succeeded := false
	for i, category := range s.view.Categories {
		cs := s.state[category]
		res := results[i]
		if res.err != nil {
			cs.Err = res.err
		} else {
			reading := res.reading
			cs = CategoryState{Reading: &reading, FetchedAt: now}
			succeeded = true
		}
		s.state[category] = cs
	}
	if succeeded {
		s.lastUpdate = now
	}
	s.batches++
	snap := s.snapshot()
	s.mu.Unlock()

	if s.onUpdate != nil {
		s.onUpdate(snap)
	}
}
