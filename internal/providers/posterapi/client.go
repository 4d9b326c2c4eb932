package posterapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/kevinchung58/Paper2Poster/internal/domain/poster"
	"github.com/kevinchung58/Paper2Poster/internal/infrastructure/logging"
	"github.com/kevinchung58/Paper2Poster/internal/infrastructure/monitoring"
	"github.com/kevinchung58/Paper2Poster/internal/infrastructure/resilience"
	"github.com/kevinchung58/Paper2Poster/internal/infrastructure/tracing"
	"github.com/kevinchung58/Paper2Poster/internal/shared/id"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Config configures the poster service client.
type Config struct {
	BaseURL      string
	Prefix       string
	Timeout      time.Duration
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	// RateLimit is requests per second, 0 for unlimited.
	RateLimit float64
	RateBurst int
	// BreakerTrips is the number of consecutive failures that opens the
	// circuit breaker.
	BreakerTrips uint32
	UserAgent    string
}

// DefaultConfig points at a poster service on localhost.
func DefaultConfig() Config {
	return Config{
		BaseURL:      "http://localhost:8000",
		Prefix:       "/api/v1",
		Timeout:      120 * time.Second,
		RetryMax:     2,
		RetryWaitMin: 500 * time.Millisecond,
		RetryWaitMax: 5 * time.Second,
		BreakerTrips: 5,
		UserAgent:    "poster-studio/1.0",
	}
}

// Client talks to the poster service. Safe for concurrent use.
type Client struct {
	resty   *resty.Client
	limiter *rate.Limiter
	breaker *resilience.Breaker
	root    *url.URL
	prefix  string
	logger  *logging.Logger
	metrics *monitoring.Metrics
	tracer  *tracing.Tracer
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the client logger.
func WithLogger(l *logging.Logger) Option {
	return func(c *Client) { c.logger = l.Component("posterapi") }
}

// WithMetrics records calls and breaker state.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithTracer opens a span per call and forwards the trace headers.
func WithTracer(t *tracing.Tracer) Option {
	return func(c *Client) { c.tracer = t }
}

// WithBreaker replaces the default circuit breaker.
func WithBreaker(b *resilience.Breaker) Option {
	return func(c *Client) { c.breaker = b }
}

// New creates a client for the service at cfg.BaseURL.
func New(cfg Config, opts ...Option) (*Client, error) {
	root, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || root.Scheme == "" || root.Host == "" {
		return nil, fmt.Errorf("invalid poster service url %q", cfg.BaseURL)
	}

	// Pooled transport from retryablehttp; retries are decided by resty below.
	retryClient := retryablehttp.NewClient()
	retryClient.Logger = nil

	r := resty.New().
		SetTransport(retryClient.HTTPClient.Transport).
		SetBaseURL(root.String()+"/"+strings.Trim(cfg.Prefix, "/")).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryMax).
		SetRetryWaitTime(cfg.RetryWaitMin).
		SetRetryMaxWaitTime(cfg.RetryWaitMax).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", "application/json").
		SetJSONMarshaler(sonic.ConfigStd.Marshal).
		SetJSONUnmarshaler(sonic.ConfigStd.Unmarshal).
		AddRetryCondition(retryIdempotent)

	c := &Client{
		resty:   r,
		limiter: rate.NewLimiter(rate.Inf, 0),
		root:    root,
		prefix:  "/" + strings.Trim(cfg.Prefix, "/"),
		logger:  logging.NewNop(),
	}
	if cfg.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), max(1, cfg.RateBurst, int(cfg.RateLimit)))
	}
	for _, opt := range opts {
		opt(c)
	}
	trips := cfg.BreakerTrips
	if trips == 0 {
		trips = 5
	}
	if c.breaker == nil {
		c.breaker = resilience.New("poster-api", resilience.Settings{
			MaxRequests: 2,
			Interval:    60 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts resilience.Counts) bool {
				return counts.ConsecutiveFailures >= trips
			},
			IsFailure: isServiceFailure,
			OnStateChange: func(name string, from, to resilience.State) {
				c.logger.Warn("Circuit breaker state change", zap.String("breaker", name),
					zap.Stringer("from", from), zap.Stringer("to", to))
				c.metrics.SetBreakerState(int(to))
			},
		})
	}
	return c, nil
}

// retryIdempotent retries reads on transport errors, 5xx and 429.
// Prompts and uploads are never replayed.
func retryIdempotent(resp *resty.Response, err error) bool {
	if resp == nil || resp.Request == nil || resp.Request.Method != http.MethodGet {
		return false
	}
	if err != nil {
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	code := resp.StatusCode()
	return code >= 500 || code == http.StatusTooManyRequests
}

// BreakerState returns the current circuit breaker state.
func (c *Client) BreakerState() resilience.State {
	return c.breaker.State()
}

// ResolveURL turns a server reference such as "/api/v1/posters/p1/preview"
// into an absolute URL. Absolute references are returned unchanged.
func (c *Client) ResolveURL(ref string) string {
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return c.root.ResolveReference(u).String()
}

// call runs one request through the limiter and breaker and converts
// non-2xx responses into *APIError.
func (c *Client) call(ctx context.Context, endpoint string, build func(*resty.Request) (*resty.Response, error)) (*resty.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s: rate limit: %w", endpoint, err)
	}

	span, ctx := c.tracer.Start(ctx, "posterapi."+endpoint)
	defer span.End()

	start := time.Now()
	resp, err := resilience.Call(ctx, c.breaker, func(ctx context.Context) (*resty.Response, error) {
		req := c.resty.R().
			SetContext(ctx).
			SetHeader("X-Request-ID", id.NewRequestID().String())
		tracing.Inject(ctx, req.Header)
		resp, err := build(req)
		if resp != nil {
			span.SetStatus(resp.StatusCode())
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", endpoint, err)
		}
		if resp.IsError() {
			return resp, &APIError{Endpoint: endpoint, Status: resp.StatusCode(), Detail: parseDetail(resp.Body())}
		}
		return resp, nil
	})

	status := "ok"
	switch {
	case errors.Is(err, resilience.ErrCircuitOpen), errors.Is(err, resilience.ErrTooManyRequests):
		c.metrics.RecordUpstreamCall(endpoint, "rejected", time.Since(start))
		span.Fail(err)
		return nil, fmt.Errorf("%s: %w", endpoint, ErrUnavailable)
	case err != nil:
		status = "error"
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			status = fmt.Sprintf("%d", apiErr.Status)
		}
		c.logger.Debug("Poster service call failed", zap.String("endpoint", endpoint), zap.Error(err))
		span.Fail(err)
	}
	c.metrics.RecordUpstreamCall(endpoint, status, time.Since(start))
	return resp, err
}

// CreatePoster creates a poster, optionally seeded with a topic.
func (c *Client) CreatePoster(ctx context.Context, topic string) (*poster.CreateResponse, error) {
	var out poster.CreateResponse
	_, err := c.call(ctx, "create_poster", func(r *resty.Request) (*resty.Response, error) {
		return r.SetBody(poster.CreateRequest{Topic: topic}).SetResult(&out).Post("/posters")
	})
	if err != nil {
		return nil, err
	}
	if out.PosterID == "" {
		return nil, fmt.Errorf("create_poster: response has no poster_id")
	}
	return &out, nil
}

// GetPoster fetches the current document.
func (c *Client) GetPoster(ctx context.Context, posterID string) (*poster.Document, error) {
	var out poster.Document
	_, err := c.call(ctx, "get_poster", func(r *resty.Request) (*resty.Response, error) {
		return r.SetPathParam("id", posterID).SetResult(&out).Get("/posters/{id}")
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Prompt sends a prompt or a direct update.
func (c *Client) Prompt(ctx context.Context, posterID string, body poster.PromptRequest) (*poster.PromptResponse, error) {
	var out poster.PromptResponse
	_, err := c.call(ctx, "prompt", func(r *resty.Request) (*resty.Response, error) {
		return r.SetPathParam("id", posterID).SetBody(body).SetResult(&out).Post("/posters/{id}/prompt")
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GeneratePPTX asks the service to build the slide deck.
func (c *Client) GeneratePPTX(ctx context.Context, posterID string) (*poster.ExportResponse, error) {
	var out poster.ExportResponse
	_, err := c.call(ctx, "generate_pptx", func(r *resty.Request) (*resty.Response, error) {
		return r.SetPathParam("id", posterID).SetResult(&out).Post("/posters/{id}/generate_pptx")
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Ping checks that the service root answers.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.call(ctx, "ping", func(r *resty.Request) (*resty.Response, error) {
		return r.Get(c.root.String() + "/")
	})
	return err
}
