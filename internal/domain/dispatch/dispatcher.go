package dispatch

import (
	"context"
	"errors"

	"github.com/kevinchung58/Paper2Poster/internal/domain/poster"
	"github.com/kevinchung58/Paper2Poster/internal/domain/session"
	"github.com/kevinchung58/Paper2Poster/internal/infrastructure/logging"
	"github.com/kevinchung58/Paper2Poster/internal/infrastructure/monitoring"
	"github.com/kevinchung58/Paper2Poster/internal/providers/posterapi"
	"github.com/kevinchung58/Paper2Poster/internal/shared/utils"
	"go.uber.org/zap"
)

var (
	// ErrNoSession is returned when an operation needs a poster and none is loaded.
	ErrNoSession = errors.New("no poster loaded")
	// ErrSectionNotFound is returned for a section id the document does not have.
	ErrSectionNotFound = errors.New("section not found")
	// ErrUnknownTheme is returned for a theme key the registry does not know.
	ErrUnknownTheme = errors.New("unknown theme")
	// ErrInvalidInput wraps local validation failures.
	ErrInvalidInput = errors.New("invalid input")
)

// API is the subset of the poster service the dispatchers call.
type API interface {
	CreatePoster(ctx context.Context, topic string) (*poster.CreateResponse, error)
	Prompt(ctx context.Context, posterID string, req poster.PromptRequest) (*poster.PromptResponse, error)
	GeneratePPTX(ctx context.Context, posterID string) (*poster.ExportResponse, error)
	UploadSectionImage(ctx context.Context, posterID, sectionID, filename string, data []byte) (*poster.Document, error)
}

// Themes reports which theme keys exist.
type Themes interface {
	Has(key string) bool
}

// Exporter performs the side effect of a successful export, such as saving
// the deck locally. It returns a human readable location.
type Exporter interface {
	Export(ctx context.Context, posterID string, res *poster.ExportResponse) (string, error)
}

// Dispatcher turns user intents into poster service calls and session events.
//
// Every operation records its outcome in the session, including failures.
// The returned error repeats the failure for callers that want to map it to
// a status code; the session has already been updated when it is returned.
type Dispatcher struct {
	store     *session.Store
	api       API
	themes    Themes
	exporter  Exporter
	maxUpload int64
	logger    *logging.Logger
	metrics   *monitoring.Metrics
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithThemes validates theme keys locally before calling the service.
func WithThemes(t Themes) Option {
	return func(d *Dispatcher) { d.themes = t }
}

// WithExporter sets the export side effect.
func WithExporter(e Exporter) Option {
	return func(d *Dispatcher) { d.exporter = e }
}

// WithMaxUpload sets the largest accepted image upload in bytes.
func WithMaxUpload(n int64) Option {
	return func(d *Dispatcher) { d.maxUpload = n }
}

// WithLogger sets the dispatcher logger.
func WithLogger(l *logging.Logger) Option {
	return func(d *Dispatcher) { d.logger = l.Component("dispatch") }
}

// WithMetrics records operation outcomes.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// New creates a dispatcher over store and api.
func New(store *session.Store, api API, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		store:     store,
		api:       api,
		maxUpload: utils.MaxUploadSize,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// op tracks one running operation.
type op struct {
	d      *Dispatcher
	name   string
	ticket session.Ticket
	state  session.State
	timer  *monitoring.Timer
}

// begin marks the session pending and takes a ticket. The settling events
// are dispatched even if ctx is cancelled later, so a session is never left
// pending by an abandoned caller.
func (d *Dispatcher) begin(ctx context.Context, name string) (*op, error) {
	state, err := d.store.Dispatch(ctx, session.OperationStarted{})
	if err != nil {
		return nil, err
	}
	return &op{d: d, name: name, ticket: state.Ticket(), state: state, timer: monitoring.NewTimer(d.metrics, name)}, nil
}

// replaced settles the operation with a new server document.
func (o *op) replaced(ctx context.Context, doc *poster.Document, previewRef, note string, sender session.Sender) (session.State, error) {
	o.timer.Stop("success")
	return o.d.store.Dispatch(context.WithoutCancel(ctx), session.DocumentReplaced{
		Ticket:     o.ticket,
		Document:   doc,
		PreviewRef: previewRef,
		Note:       utils.StripMarkup(note),
		NoteSender: sender,
	})
}

// completed settles the operation without touching the document.
func (o *op) completed(ctx context.Context, note string) (session.State, error) {
	o.timer.Stop("success")
	return o.d.store.Dispatch(context.WithoutCancel(ctx), session.OperationCompleted{Ticket: o.ticket, Note: note})
}

// failed settles the operation with cause and returns cause.
func (o *op) failed(ctx context.Context, cause error) (session.State, error) {
	status := "error"
	if errors.Is(cause, ErrInvalidInput) || errors.Is(cause, ErrSectionNotFound) ||
		errors.Is(cause, ErrUnknownTheme) || errors.Is(cause, ErrNoSession) {
		status = "rejected"
	}
	o.timer.Stop(status)

	msg := failureMessage(o.name, cause)
	o.d.logger.Warn("Operation failed", zap.String("operation", o.name), zap.Error(cause))

	state, err := o.d.store.Dispatch(context.WithoutCancel(ctx), session.OperationFailed{
		Ticket:  o.ticket,
		Message: msg,
		Note:    "Error: " + msg,
	})
	if err != nil {
		return state, err
	}
	return state, cause
}

// Generic messages used when the service gives no detail.
var genericFailures = map[string]string{
	OpCreatePoster:  "Failed to create the poster.",
	OpSendPrompt:    "Failed to process the prompt.",
	OpSetTheme:      "Failed to change the theme.",
	OpSetStyles:     "Failed to update the styles.",
	OpDirectEdit:    "Failed to update the element.",
	OpSectionImages: "Failed to update the section images.",
	OpUploadImage:   "Failed to upload the image.",
	OpExport:        "Failed to export the poster.",
}

// failureMessage prefers the server's detail, then local validation text,
// then the operation's generic message.
func failureMessage(op string, err error) string {
	if detail := posterapi.Detail(err); detail != "" {
		return utils.StripMarkup(detail)
	}
	if errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrSectionNotFound) ||
		errors.Is(err, ErrUnknownTheme) || errors.Is(err, ErrNoSession) {
		return err.Error()
	}
	if errors.Is(err, posterapi.ErrUnavailable) {
		return "The poster service is unavailable. Try again shortly."
	}
	return genericFailures[op]
}
