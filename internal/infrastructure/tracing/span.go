package tracing

import (
	"sync"
	"time"
)

// TraceID identifies every span of one logical request.
type TraceID string

// SpanID identifies one span.
type SpanID string

// Span is one timed operation within a trace.
type Span struct {
	TraceID  TraceID
	SpanID   SpanID
	ParentID SpanID
	Name     string
	Service  string
	Start    time.Time
	Duration time.Duration
	Status   int
	Err      error

	tags   [][2]string
	tracer *Tracer
	once   sync.Once
}

// Tag attaches a key/value pair to the span.
func (s *Span) Tag(key, value string) {
	s.tags = append(s.tags, [2]string{key, value})
}

// Fail marks the span as failed.
func (s *Span) Fail(err error) {
	s.Err = err
}

// SetStatus records the HTTP status the operation ended with.
func (s *Span) SetStatus(code int) {
	s.Status = code
}

// End stamps the duration and hands the span to its tracer. Only the first
// call has an effect.
func (s *Span) End() {
	s.once.Do(func() {
		s.Duration = time.Since(s.Start)
		s.tracer.submit(s)
	})
}
