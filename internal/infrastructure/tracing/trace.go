package tracing

import (
	"context"
	"sync"
	"time"

	"github.com/kevinchung58/Paper2Poster/internal/infrastructure/logging"
	"github.com/kevinchung58/Paper2Poster/internal/shared/id"
	"go.uber.org/zap"
)

const queueSize = 1000

// Tracer hands out spans and logs them once they end.
type Tracer struct {
	service string
	logger  *logging.Logger
	queue   chan *Span
	drained chan struct{}

	mu     sync.RWMutex
	closed bool
}

// New creates a tracer for service and starts its collector.
func New(service string, logger *logging.Logger) *Tracer {
	t := &Tracer{
		service: service,
		logger:  logger.Component("tracing"),
		queue:   make(chan *Span, queueSize),
		drained: make(chan struct{}),
	}
	go t.collect()
	return t
}

// Start opens a span named name. It continues the trace found in ctx and
// becomes the parent of spans started from the returned context.
// A nil tracer still propagates IDs but never reports.
func (t *Tracer) Start(ctx context.Context, name string) (*Span, context.Context) {
	trace := GetTraceID(ctx)
	if trace == "" {
		trace = TraceID(id.NewRequestID())
	}
	s := &Span{
		TraceID:  trace,
		SpanID:   SpanID(id.NewRequestID()),
		ParentID: GetSpanID(ctx),
		Name:     name,
		Start:    time.Now(),
		tracer:   t,
	}
	if t != nil {
		s.Service = t.service
	}
	return s, withIDs(ctx, s.TraceID, s.SpanID)
}

func (t *Tracer) submit(s *Span) {
	if t == nil {
		return
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return
	}
	select {
	case t.queue <- s:
	default:
		t.logger.Warn("Span queue full, dropping span",
			zap.String("trace_id", string(s.TraceID)),
			zap.String("operation", s.Name),
		)
	}
}

func (t *Tracer) collect() {
	defer close(t.drained)
	for s := range t.queue {
		t.report(s)
	}
}

func (t *Tracer) report(s *Span) {
	fields := make([]zap.Field, 0, 8+len(s.tags))
	fields = append(fields,
		zap.String("trace_id", string(s.TraceID)),
		zap.String("span_id", string(s.SpanID)),
		zap.String("operation", s.Name),
		zap.String("service", s.Service),
		zap.Duration("duration", s.Duration),
	)
	if s.ParentID != "" {
		fields = append(fields, zap.String("parent_id", string(s.ParentID)))
	}
	if s.Status != 0 {
		fields = append(fields, zap.Int("status", s.Status))
	}
	for _, tag := range s.tags {
		fields = append(fields, zap.String(tag[0], tag[1]))
	}

	if s.Err != nil {
		t.logger.Warn("Span completed with error", append(fields, zap.Error(s.Err))...)
		return
	}
	t.logger.Debug("Span completed", fields...)
}

// Close stops accepting spans, logs the ones already queued and returns.
func (t *Tracer) Close() {
	if t == nil {
		return
	}
	t.mu.Lock()
	if !t.closed {
		t.closed = true
		close(t.queue)
	}
	t.mu.Unlock()
	<-t.drained
}
