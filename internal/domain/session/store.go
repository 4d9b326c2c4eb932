package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/kevinchung58/Paper2Poster/internal/infrastructure/logging"
	"github.com/kevinchung58/Paper2Poster/internal/infrastructure/monitoring"
	"github.com/kevinchung58/Paper2Poster/internal/shared/id"
	"go.uber.org/zap"
)

// ErrStopped is returned by Dispatch once the store loop has exited.
var ErrStopped = errors.New("session store stopped")

// Subscriber observes every applied transition. It runs on the store loop
// and must not call Dispatch synchronously.
type Subscriber func(prev, next State)

type envelope struct {
	ev    Event
	reply chan State
}

// Store owns the live session and applies events one at a time.
type Store struct {
	events  chan envelope
	done    chan struct{}
	started atomic.Bool

	state    State
	snapshot atomic.Pointer[State]

	subMu  sync.RWMutex
	subs   map[int]Subscriber
	nextID int

	newID   func() string
	logger  *logging.Logger
	metrics *monitoring.Metrics
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Store) { s.logger = l.Component("store") }
}

// WithMetrics records transitions.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// WithIDs replaces the chat message id source.
func WithIDs(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

// NewStore creates a store holding the empty session. Call Run to start it.
func NewStore(opts ...Option) *Store {
	s := &Store{
		events: make(chan envelope),
		done:   make(chan struct{}),
		subs:   make(map[int]Subscriber),
		newID:  id.Default().NewMessage,
		logger: logging.NewNop(),
		state:  State{ChatLog: []Message{}},
	}
	for _, opt := range opts {
		opt(s)
	}
	initial := s.state.Clone()
	s.snapshot.Store(&initial)
	return s
}

// Run applies events until ctx is cancelled. It must be called exactly once.
func (s *Store) Run(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return errors.New("session store already running")
	}
	defer close(s.done)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case env := <-s.events:
			env.reply <- s.apply(env.ev)
		}
	}
}

func (s *Store) apply(ev Event) State {
	prev := s.state
	next := Reduce(prev, ev, s.newID)
	name := Name(ev)

	applied := !sameState(prev, next)
	s.metrics.RecordTransition(name, applied)
	if !applied {
		s.logger.Debug("Event dropped", zap.String("event", name),
			zap.Uint64("generation", prev.Generation), zap.Uint64("applied_seq", prev.AppliedSeq))
		return next.Clone()
	}

	s.state = next
	out := next.Clone()
	s.snapshot.Store(&out)
	s.logger.Debug("Event applied", zap.String("event", name),
		zap.String("poster_id", next.PosterID), zap.Bool("pending", next.Pending))

	s.subMu.RLock()
	subs := make([]Subscriber, 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.subMu.RUnlock()

	for _, fn := range subs {
		fn(prev.Clone(), next.Clone())
	}
	return next.Clone()
}

// sameState reports whether Reduce dropped the event. Reduce returns its
// input untouched in that case, so comparing the bookkeeping fields and the
// identity of the slices is enough.
func sameState(a, b State) bool {
	return a.PosterID == b.PosterID &&
		a.Content == b.Content &&
		a.PreviewRef == b.PreviewRef &&
		len(a.ChatLog) == len(b.ChatLog) &&
		a.Pending == b.Pending &&
		a.LastError == b.LastError &&
		a.ActiveTarget == b.ActiveTarget &&
		a.Generation == b.Generation &&
		a.IssuedSeq == b.IssuedSeq &&
		a.AppliedSeq == b.AppliedSeq &&
		a.InFlight == b.InFlight &&
		a.Revision == b.Revision
}

// Dispatch applies ev and returns the resulting snapshot. Events are applied
// strictly in the order Dispatch is called.
func (s *Store) Dispatch(ctx context.Context, ev Event) (State, error) {
	env := envelope{ev: ev, reply: make(chan State, 1)}
	select {
	case s.events <- env:
	case <-s.done:
		return State{}, ErrStopped
	case <-ctx.Done():
		return State{}, ctx.Err()
	}
	// The loop always replies once it has taken the envelope.
	return <-env.reply, nil
}

// Snapshot returns a copy of the current session.
func (s *Store) Snapshot() State {
	return s.snapshot.Load().Clone()
}

// Subscribe registers fn for every applied transition and returns a
// function that removes it.
func (s *Store) Subscribe(fn Subscriber) func() {
	s.subMu.Lock()
	key := s.nextID
	s.nextID++
	s.subs[key] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, key)
		s.subMu.Unlock()
	}
}

// Done is closed when Run returns.
func (s *Store) Done() <-chan struct{} {
	return s.done
}
