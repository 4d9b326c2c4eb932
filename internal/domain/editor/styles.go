package editor

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/kevinchung58/Paper2Poster/internal/domain/dispatch"
	"github.com/kevinchung58/Paper2Poster/internal/domain/poster"
	"github.com/kevinchung58/Paper2Poster/internal/domain/session"
	"github.com/kevinchung58/Paper2Poster/internal/infrastructure/logging"
	"github.com/kevinchung58/Paper2Poster/internal/infrastructure/monitoring"
	"github.com/kevinchung58/Paper2Poster/internal/shared/utils"
	"go.uber.org/zap"
)

// DefaultQuiet is how long the buffer waits after the last edit before
// pushing.
const DefaultQuiet = 500 * time.Millisecond

// StyleSetter pushes a complete set of style overrides.
type StyleSetter interface {
	SetStyleOverrides(ctx context.Context, overrides poster.StyleOverrides) (session.State, error)
}

// StyleBuffer accumulates style edits and pushes them once edits stop.
//
// The buffer is reseeded from the server's overrides whenever the store
// applies a new document, unless local edits are waiting to be pushed.
type StyleBuffer struct {
	setter  StyleSetter
	quiet   time.Duration
	logger  *logging.Logger
	metrics *monitoring.Metrics

	mu       sync.Mutex
	posterID string
	buf      poster.StyleOverrides
	acked    poster.StyleOverrides
	timer    *time.Timer
	closed   bool

	flushMu     sync.Mutex
	unsubscribe func()
}

// BufferOption configures a StyleBuffer.
type BufferOption func(*StyleBuffer)

// WithQuiet sets the debounce period.
func WithQuiet(d time.Duration) BufferOption {
	return func(b *StyleBuffer) {
		if d > 0 {
			b.quiet = d
		}
	}
}

// WithLogger sets the buffer logger.
func WithLogger(l *logging.Logger) BufferOption {
	return func(b *StyleBuffer) { b.logger = l.Component("editor") }
}

// WithMetrics records flushes.
func WithMetrics(m *monitoring.Metrics) BufferOption {
	return func(b *StyleBuffer) { b.metrics = m }
}

// NewStyleBuffer creates a buffer that follows store and pushes through setter.
func NewStyleBuffer(store *session.Store, setter StyleSetter, opts ...BufferOption) *StyleBuffer {
	b := &StyleBuffer{
		setter: setter,
		quiet:  DefaultQuiet,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.seed(store.Snapshot())
	b.unsubscribe = store.Subscribe(func(prev, next session.State) {
		if prev.Revision != next.Revision || prev.PosterID != next.PosterID {
			b.seed(next)
		}
	})
	return b
}

func (b *StyleBuffer) seed(s session.State) {
	b.mu.Lock()
	defer b.mu.Unlock()

	overrides := s.Content.Overrides()
	if s.PosterID != b.posterID {
		b.posterID = s.PosterID
		b.stopTimer()
		b.buf = overrides.Clone()
	} else if b.timer == nil {
		b.buf = overrides.Clone()
	}
	b.acked = overrides
}

// Overrides returns a copy of the buffered overrides.
func (b *StyleBuffer) Overrides() poster.StyleOverrides {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Clone()
}

// Dirty reports whether the buffer differs from the acknowledged overrides.
func (b *StyleBuffer) Dirty() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !cmp.Equal(b.buf, b.acked)
}

// Set changes one property of one element. An empty value clears it.
func (b *StyleBuffer) Set(target poster.StyleTarget, prop poster.StyleProperty, value string) error {
	if _, err := poster.ParseStyleTarget(string(target)); err != nil {
		return fmt.Errorf("%w: %v", dispatch.ErrInvalidInput, err)
	}
	value = strings.TrimSpace(value)
	return b.edit(func(o *poster.StyleOverrides) error {
		e := o.Element(target).Clone()
		if e == nil {
			e = &poster.ElementStyle{}
		}
		switch prop {
		case poster.PropFontSize:
			e.FontSize = nil
			if value != "" {
				n, err := strconv.Atoi(value)
				if err != nil {
					return fmt.Errorf("%w: font size %q is not a number", dispatch.ErrInvalidInput, value)
				}
				if err := utils.ValidateFontSize(n); err != nil {
					return fmt.Errorf("%w: %v", dispatch.ErrInvalidInput, err)
				}
				e.FontSize = &n
			}
		case poster.PropColor:
			e.Color = nil
			if value != "" {
				if err := utils.ValidateColor(value); err != nil {
					return fmt.Errorf("%w: %v", dispatch.ErrInvalidInput, err)
				}
				e.Color = &value
			}
		case poster.PropFontFamily:
			e.FontFamily = nil
			if value != "" {
				if err := utils.ValidateFontFamily(value); err != nil {
					return fmt.Errorf("%w: %v", dispatch.ErrInvalidInput, err)
				}
				e.FontFamily = &value
			}
		default:
			return fmt.Errorf("%w: unknown style property %q", dispatch.ErrInvalidInput, prop)
		}
		o.SetElement(target, e)
		return nil
	})
}

// SetBackground changes the slide background. An empty color clears it.
func (b *StyleBuffer) SetBackground(color string) error {
	color = strings.TrimSpace(color)
	return b.edit(func(o *poster.StyleOverrides) error {
		if color == "" {
			o.SlideBackground = nil
			return nil
		}
		if err := utils.ValidateColor(color); err != nil {
			return fmt.Errorf("%w: %v", dispatch.ErrInvalidInput, err)
		}
		o.SlideBackground = &color
		return nil
	})
}

func (b *StyleBuffer) edit(apply func(*poster.StyleOverrides) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return fmt.Errorf("style buffer closed")
	}
	if b.posterID == "" {
		return dispatch.ErrNoSession
	}

	next := b.buf.Clone()
	if err := apply(&next); err != nil {
		return err
	}
	b.buf = next

	b.stopTimer()
	b.timer = time.AfterFunc(b.quiet, func() {
		if err := b.flush(context.Background(), "quiet"); err != nil {
			b.logger.Debug("Debounced style push failed", zap.Error(err))
		}
	})
	return nil
}

func (b *StyleBuffer) stopTimer() {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}

// Flush pushes buffered edits now.
func (b *StyleBuffer) Flush(ctx context.Context) error {
	return b.flush(ctx, "manual")
}

func (b *StyleBuffer) flush(ctx context.Context, trigger string) error {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	b.mu.Lock()
	b.stopTimer()
	if cmp.Equal(b.buf, b.acked) {
		b.mu.Unlock()
		return nil
	}
	out := b.buf.Clone()
	b.mu.Unlock()

	b.metrics.RecordStyleFlush(trigger)
	if _, err := b.setter.SetStyleOverrides(ctx, out); err != nil {
		return err
	}

	b.mu.Lock()
	b.acked = out
	b.mu.Unlock()
	return nil
}

// Close pushes pending edits and detaches the buffer from the store.
func (b *StyleBuffer) Close(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	err := b.flush(ctx, "close")
	b.unsubscribe()
	return err
}
