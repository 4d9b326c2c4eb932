package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrCircuitOpen rejects calls while the breaker is open.
	ErrCircuitOpen = errors.New("circuit breaker is open")
	// ErrTooManyRequests rejects calls beyond the half-open trial budget.
	ErrTooManyRequests = errors.New("too many requests")
)

// State represents the circuit breaker state
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

var stateNames = [...]string{
	StateClosed:   "closed",
	StateHalfOpen: "half-open",
	StateOpen:     "open",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Settings configures a Breaker. Zero fields take the defaults noted.
type Settings struct {
	// MaxRequests is both the number of trial calls let through while
	// half-open and the successes needed there to close. Default 1.
	MaxRequests uint32
	// Interval clears the counts of a closed breaker. Default 60s.
	Interval time.Duration
	// Timeout is how long the breaker stays open. Default 60s.
	Timeout time.Duration
	// ReadyToTrip decides after a failure whether to open.
	// Default: more than 5 consecutive failures.
	ReadyToTrip func(counts Counts) bool
	// IsFailure classifies errors. Default: everything except cancellation.
	IsFailure func(err error) bool
	// OnStateChange observes transitions. It runs without the breaker lock.
	OnStateChange func(name string, from State, to State)
	Now           func() time.Time
}

func (s Settings) withDefaults() Settings {
	if s.MaxRequests == 0 {
		s.MaxRequests = 1
	}
	if s.Interval == 0 {
		s.Interval = 60 * time.Second
	}
	if s.Timeout == 0 {
		s.Timeout = 60 * time.Second
	}
	if s.ReadyToTrip == nil {
		s.ReadyToTrip = func(c Counts) bool { return c.ConsecutiveFailures > 5 }
	}
	if s.IsFailure == nil {
		s.IsFailure = func(err error) bool { return !errors.Is(err, context.Canceled) }
	}
	if s.Now == nil {
		s.Now = time.Now
	}
	return s
}

// Counts are the outcomes recorded in the current window.
type Counts struct {
	Requests             uint32
	TotalSuccesses       uint32
	TotalFailures        uint32
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
}

func (c *Counts) record(ok bool) {
	if ok {
		c.TotalSuccesses++
		c.ConsecutiveSuccesses++
		c.ConsecutiveFailures = 0
		return
	}
	c.TotalFailures++
	c.ConsecutiveFailures++
	c.ConsecutiveSuccesses = 0
}

type transition struct{ from, to State }

// Breaker guards calls to one upstream. Safe for concurrent use.
type Breaker struct {
	name string
	cfg  Settings

	mu       sync.Mutex
	state    State
	counts   Counts
	window   uint64
	deadline time.Time
}

// New creates a closed breaker.
func New(name string, settings Settings) *Breaker {
	cfg := settings.withDefaults()
	return &Breaker{
		name:     name,
		cfg:      cfg,
		deadline: cfg.Now().Add(cfg.Interval),
	}
}

// Name returns the breaker name.
func (b *Breaker) Name() string {
	return b.name
}

// State returns the current state, applying any timed transition first.
func (b *Breaker) State() State {
	var st State
	b.update(func(now time.Time) { st = b.state })
	return st
}

// Counts returns the counts of the current window.
func (b *Breaker) Counts() Counts {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.counts
}

// Do runs fn if the breaker admits it and records the outcome.
// A panic in fn is recorded as a failure and re-raised.
func (b *Breaker) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	window, err := b.admit()
	if err != nil {
		return err
	}

	ok := false
	defer func() {
		if !ok {
			if p := recover(); p != nil {
				b.settle(window, false)
				panic(p)
			}
		}
	}()

	err = fn(ctx)
	ok = true
	b.settle(window, err == nil || !b.cfg.IsFailure(err))
	return err
}

// Call runs fn through b and returns its result.
func Call[T any](ctx context.Context, b *Breaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := b.Do(ctx, func(ctx context.Context) error {
		var err error
		out, err = fn(ctx)
		return err
	})
	return out, err
}

func (b *Breaker) admit() (uint64, error) {
	var (
		window uint64
		err    error
	)
	b.update(func(time.Time) {
		window = b.window
		switch {
		case b.state == StateOpen:
			err = ErrCircuitOpen
		case b.state == StateHalfOpen && b.counts.Requests >= b.cfg.MaxRequests:
			err = ErrTooManyRequests
		default:
			b.counts.Requests++
		}
	})
	return window, err
}

// settle records the outcome of a call admitted in window. Outcomes from an
// earlier window are ignored.
func (b *Breaker) settle(window uint64, ok bool) {
	b.update(func(now time.Time) {
		if window != b.window {
			return
		}
		switch b.state {
		case StateClosed:
			b.counts.record(ok)
			if !ok && b.cfg.ReadyToTrip(b.counts) {
				b.moveTo(StateOpen, now)
			}
		case StateHalfOpen:
			if !ok {
				b.moveTo(StateOpen, now)
				return
			}
			b.counts.record(true)
			if b.counts.ConsecutiveSuccesses >= b.cfg.MaxRequests {
				b.moveTo(StateClosed, now)
			}
		}
	})
}

// update runs fn under the lock after applying timed transitions, then
// reports every transition fn or the clock caused.
func (b *Breaker) update(fn func(now time.Time)) {
	b.mu.Lock()
	start := b.state
	var changes []transition
	record := func() {
		if b.state != start {
			changes = append(changes, transition{start, b.state})
			start = b.state
		}
	}

	now := b.cfg.Now()
	b.tick(now)
	record()
	fn(now)
	record()
	b.mu.Unlock()

	if b.cfg.OnStateChange == nil {
		return
	}
	for _, c := range changes {
		b.cfg.OnStateChange(b.name, c.from, c.to)
	}
}

// tick applies the transitions that only depend on time.
func (b *Breaker) tick(now time.Time) {
	if b.deadline.IsZero() || !now.After(b.deadline) {
		return
	}
	switch b.state {
	case StateClosed:
		b.reset(now)
	case StateOpen:
		b.moveTo(StateHalfOpen, now)
	}
}

func (b *Breaker) moveTo(state State, now time.Time) {
	if b.state == state {
		return
	}
	b.state = state
	b.reset(now)
}

// reset starts a new counting window for the current state.
func (b *Breaker) reset(now time.Time) {
	b.window++
	b.counts = Counts{}
	switch b.state {
	case StateClosed:
		b.deadline = now.Add(b.cfg.Interval)
	case StateOpen:
		b.deadline = now.Add(b.cfg.Timeout)
	default:
		b.deadline = time.Time{}
	}
}
