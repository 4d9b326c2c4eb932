package preview

import (
	"context"
	"sync"
	"time"

	"github.com/kevinchung58/Paper2Poster/internal/domain/poster"
	"github.com/kevinchung58/Paper2Poster/internal/domain/session"
	"github.com/kevinchung58/Paper2Poster/internal/infrastructure/logging"
	"github.com/kevinchung58/Paper2Poster/internal/infrastructure/monitoring"
	"go.uber.org/zap"
)

// DefaultInterval is the delay between two preview fetches.
const DefaultInterval = 3 * time.Second

// Fetcher reads the current server document of a poster.
type Fetcher interface {
	GetPoster(ctx context.Context, posterID string) (*poster.Document, error)
}

// Poller refreshes the session document while its preview is unsettled.
//
// It is idle or polling. At most one polling episode exists at a time; an
// episode belongs to one poster of one session generation and is cancelled
// as soon as the session moves on.
type Poller struct {
	store    *session.Store
	api      Fetcher
	interval time.Duration
	logger   *logging.Logger
	metrics  *monitoring.Metrics

	mu          sync.Mutex
	current     *episode
	closed      bool
	unsubscribe func()
	wg          sync.WaitGroup
}

type episode struct {
	posterID   string
	generation uint64
	cancel     context.CancelFunc
}

// Option configures a Poller.
type Option func(*Poller)

// WithInterval sets the delay between fetches.
func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *logging.Logger) Option {
	return func(p *Poller) { p.logger = l.Component("preview") }
}

// WithMetrics records fetches and polling activity.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(p *Poller) { p.metrics = m }
}

// New creates a poller and attaches it to store. Call Close on teardown.
func New(store *session.Store, api Fetcher, opts ...Option) *Poller {
	p := &Poller{
		store:    store,
		api:      api,
		interval: DefaultInterval,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.unsubscribe = store.Subscribe(func(_, next session.State) { p.observe(next) })
	p.observe(store.Snapshot())
	return p
}

// Polling reports whether an episode is running.
func (p *Poller) Polling() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current != nil
}

// observe runs on the store loop after every transition. It never blocks.
func (p *Poller) observe(s session.State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}

	want := s.HasPoster() && s.PreviewStatus().Unsettled()
	if cur := p.current; cur != nil {
		if want && cur.posterID == s.PosterID && cur.generation == s.Generation {
			return
		}
		cur.cancel()
		p.current = nil
		p.metrics.SetPolling(false)
	}
	if want {
		p.start(s)
	}
}

// resume starts an episode if the stored preview is unsettled and none is
// running. Transitions applied while an ending episode was still current
// were skipped by observe.
func (p *Poller) resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || p.current != nil {
		return
	}
	if s := p.store.Snapshot(); s.HasPoster() && s.PreviewStatus().Unsettled() {
		p.start(s)
	}
}

// start must be called with mu held.
func (p *Poller) start(s session.State) {
	ctx, cancel := context.WithCancel(context.Background())
	ep := &episode{posterID: s.PosterID, generation: s.Generation, cancel: cancel}
	p.current = ep
	p.metrics.SetPolling(true)
	p.logger.Debug("Polling started", zap.String("poster_id", ep.posterID))

	p.wg.Add(1)
	go p.run(ctx, ep)
}

func (p *Poller) run(ctx context.Context, ep *episode) {
	defer p.wg.Done()
	settled := p.poll(ctx, ep)
	p.finish(ep)
	if settled {
		p.resume()
	}
}

// poll fetches until the stored preview settles, the session moves on, a
// fetch fails or ctx is cancelled. It reports whether it ended because the
// stored preview settled.
func (p *Poller) poll(ctx context.Context, ep *episode) bool {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}

		snap := p.store.Snapshot()
		if snap.PosterID != ep.posterID || snap.Generation != ep.generation {
			return false
		}
		if snap.Pending {
			// A user operation will bring its own document.
			continue
		}

		ticket := snap.Ticket()
		doc, err := p.api.GetPoster(ctx, ep.posterID)
		if err != nil {
			if ctx.Err() != nil {
				return false
			}
			p.metrics.RecordPollFetch("error")
			p.logger.Warn("Preview refresh failed, polling stopped",
				zap.String("poster_id", ep.posterID), zap.Error(err))
			return false
		}
		p.metrics.RecordPollFetch("success")

		next, err := p.store.Dispatch(ctx, session.DocumentReplaced{
			Ticket:     ticket,
			Document:   doc,
			Background: true,
		})
		if err != nil {
			return false
		}
		if next.PosterID != ep.posterID || next.Generation != ep.generation {
			return false
		}
		// The fetched document may have been dropped as stale, so the
		// stored status decides.
		if status := next.PreviewStatus(); !status.Unsettled() {
			p.logger.Debug("Preview settled",
				zap.String("poster_id", ep.posterID), zap.String("status", string(status)))
			return true
		}
	}
}

// finish returns the poller to idle if ep is still the current episode.
func (p *Poller) finish(ep *episode) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ep.cancel()
	if p.current == ep {
		p.current = nil
		p.metrics.SetPolling(false)
	}
}

// Close detaches the poller and waits for a running episode to stop.
// It must not be called from a store subscriber.
func (p *Poller) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	if p.current != nil {
		p.current.cancel()
	}
	p.mu.Unlock()

	p.unsubscribe()
	p.wg.Wait()
}
