package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kevinchung58/Paper2Poster/internal/api/view"
	"github.com/kevinchung58/Paper2Poster/internal/domain/dispatch"
	"github.com/kevinchung58/Paper2Poster/internal/domain/editor"
	"github.com/kevinchung58/Paper2Poster/internal/domain/poster"
	"github.com/kevinchung58/Paper2Poster/internal/domain/session"
	"github.com/kevinchung58/Paper2Poster/internal/domain/theme"
	"github.com/kevinchung58/Paper2Poster/internal/infrastructure/logging"
	"github.com/kevinchung58/Paper2Poster/internal/infrastructure/resilience"
	"github.com/kevinchung58/Paper2Poster/internal/providers/posterapi"
	"github.com/kevinchung58/Paper2Poster/internal/shared/utils"
	"go.uber.org/zap"
)

// Upstream is what the handlers need from the poster service client
// beyond the dispatchers.
type Upstream interface {
	FetchPreview(ctx context.Context, ref string) (*posterapi.Preview, error)
	Ping(ctx context.Context) error
	BreakerState() resilience.State
}

// Handlers contains all studio HTTP handlers.
type Handlers struct {
	store      *session.Store
	dispatcher *dispatch.Dispatcher
	styles     *editor.StyleBuffer
	themes     *theme.Registry
	upstream   Upstream
	renderer   view.Renderer
	logger     *logging.Logger
	version    string
	maxUpload  int64
}

// Deps groups the collaborators of Handlers.
type Deps struct {
	Store      *session.Store
	Dispatcher *dispatch.Dispatcher
	Styles     *editor.StyleBuffer
	Themes     *theme.Registry
	Upstream   Upstream
	Renderer   view.Renderer
	Logger     *logging.Logger
	Version    string
	MaxUpload  int64 // bytes; utils.MaxUploadSize when zero
}

// NewHandlers creates a new handler set.
func NewHandlers(d Deps) *Handlers {
	maxUpload := d.MaxUpload
	if maxUpload <= 0 {
		maxUpload = utils.MaxUploadSize
	}
	return &Handlers{
		store:      d.Store,
		dispatcher: d.Dispatcher,
		styles:     d.Styles,
		themes:     d.Themes,
		upstream:   d.Upstream,
		renderer:   d.Renderer,
		logger:     d.Logger.Component("http"),
		version:    d.Version,
		maxUpload:  maxUpload,
	}
}

// Register mounts every studio route on r.
func (h *Handlers) Register(r gin.IRoutes) {
	r.GET("/", h.Root)
	r.GET("/health", h.Health)
	r.GET("/themes", h.ListThemes)
	r.POST("/logs", h.StreamLogs)

	r.GET("/session", h.GetSession)
	r.POST("/session/poster", h.CreatePoster)
	r.POST("/session/prompt", h.SendPrompt)
	r.PUT("/session/target", h.SelectTarget)
	r.PUT("/session/theme", h.SetTheme)
	r.PUT("/session/styles", h.EditStyle)
	r.POST("/session/styles/flush", h.FlushStyles)
	r.PUT("/session/elements/:target", h.EditElement)
	r.PUT("/session/sections/:sid/images", h.SetSectionImages)
	r.POST("/session/sections/:sid/images", h.UploadSectionImage)
	r.POST("/session/export", h.Export)
	r.GET("/session/preview", h.Preview)
}

// Root handles the service banner.
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "Poster Studio",
		"version": h.version,
	})
}

// Health reports the studio and poster service status.
func (h *Handlers) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	upstream := gin.H{"reachable": true, "breaker": h.upstream.BreakerState().String()}
	status := "healthy"
	if err := h.upstream.Ping(ctx); err != nil {
		upstream["reachable"] = false
		upstream["error"] = err.Error()
		status = "degraded"
	}

	s := h.store.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"status":       status,
		"poster_api":   upstream,
		"has_poster":   s.HasPoster(),
		"pending":      s.Pending,
		"style_buffer": gin.H{"dirty": h.styles.Dirty()},
	})
}

// ListThemes lists the known themes.
func (h *Handlers) ListThemes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"themes": h.themes.List()})
}

// GetSession returns the current snapshot.
func (h *Handlers) GetSession(c *gin.Context) {
	c.JSON(http.StatusOK, h.renderer.Render(h.store.Snapshot()))
}

type createRequest struct {
	Topic string `json:"topic"`
}

// CreatePoster starts a new poster.
func (h *Handlers) CreatePoster(c *gin.Context) {
	var req createRequest
	if !h.bindOptional(c, &req) {
		return
	}
	s, err := h.dispatcher.CreatePoster(c.Request.Context(), req.Topic)
	h.respond(c, s, err)
}

type promptRequest struct {
	Text   string `json:"text" binding:"required"`
	Target string `json:"target"`
}

// SendPrompt sends a free-form prompt.
func (h *Handlers) SendPrompt(c *gin.Context) {
	var req promptRequest
	if !h.bind(c, &req) {
		return
	}
	s, err := h.dispatcher.SendPrompt(c.Request.Context(), req.Text, req.Target)
	h.respond(c, s, err)
}

type targetRequest struct {
	Target string `json:"target"`
}

// SelectTarget sets or clears the prompt target.
func (h *Handlers) SelectTarget(c *gin.Context) {
	var req targetRequest
	if !h.bind(c, &req) {
		return
	}
	s, err := h.dispatcher.SelectTarget(c.Request.Context(), req.Target)
	h.respond(c, s, err)
}

type themeRequest struct {
	Theme string `json:"theme" binding:"required"`
}

// SetTheme switches the theme.
func (h *Handlers) SetTheme(c *gin.Context) {
	var req themeRequest
	if !h.bind(c, &req) {
		return
	}
	s, err := h.dispatcher.SetTheme(c.Request.Context(), req.Theme)
	h.respond(c, s, err)
}

type styleRequest struct {
	Target   string `json:"target" binding:"required"`
	Property string `json:"property"`
	Value    string `json:"value"`
}

// EditStyle buffers one style edit. The push happens after the quiet period.
func (h *Handlers) EditStyle(c *gin.Context) {
	var req styleRequest
	if !h.bind(c, &req) {
		return
	}

	var err error
	if req.Target == poster.BackgroundTarget {
		err = h.styles.SetBackground(req.Value)
	} else {
		target, terr := poster.ParseStyleTarget(req.Target)
		prop, perr := poster.ParseStyleProperty(req.Property)
		switch {
		case terr != nil:
			err = fmt.Errorf("%w: %v", dispatch.ErrInvalidInput, terr)
		case perr != nil:
			err = fmt.Errorf("%w: %v", dispatch.ErrInvalidInput, perr)
		default:
			err = h.styles.Set(target, prop, req.Value)
		}
	}
	if err != nil {
		h.fail(c, err, err.Error())
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"overrides": h.styles.Overrides(), "dirty": h.styles.Dirty()})
}

// FlushStyles pushes buffered style edits now.
func (h *Handlers) FlushStyles(c *gin.Context) {
	err := h.styles.Flush(c.Request.Context())
	h.respond(c, h.store.Snapshot(), err)
}

type elementRequest struct {
	Text *string `json:"text" binding:"required"`
}

// EditElement commits a direct text edit. Unchanged text makes no call.
func (h *Handlers) EditElement(c *gin.Context) {
	var req elementRequest
	if !h.bind(c, &req) {
		return
	}
	ref := c.Param("target")
	changed, err := editor.CommitElement(c.Request.Context(), h.dispatcher, h.store.Snapshot(), ref, *req.Text)
	if !changed && err == nil {
		c.JSON(http.StatusOK, gin.H{"changed": false, "session": h.renderer.Render(h.store.Snapshot())})
		return
	}
	h.respond(c, h.store.Snapshot(), err)
}

type imagesRequest struct {
	URLs []string `json:"urls"`
}

// SetSectionImages replaces a section's image list.
func (h *Handlers) SetSectionImages(c *gin.Context) {
	var req imagesRequest
	if !h.bind(c, &req) {
		return
	}
	if req.URLs == nil {
		req.URLs = []string{}
	}
	s, err := h.dispatcher.SetSectionImageURLs(c.Request.Context(), c.Param("sid"), req.URLs)
	h.respond(c, s, err)
}

// UploadSectionImage forwards a multipart image upload.
func (h *Handlers) UploadSectionImage(c *gin.Context) {
	fh, err := c.FormFile(posterapi.ImageField)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing " + posterapi.ImageField + " file"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()

	// One byte past the limit is enough to tell an oversized file apart.
	data, err := io.ReadAll(io.LimitReader(f, h.maxUpload+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if int64(len(data)) > h.maxUpload {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error": fmt.Sprintf("file %q exceeds the %d byte upload limit", fh.Filename, h.maxUpload),
		})
		return
	}
	s, err := h.dispatcher.UploadSectionImage(c.Request.Context(), c.Param("sid"), fh.Filename, data)
	h.respond(c, s, err)
}

// Export builds the slide deck.
func (h *Handlers) Export(c *gin.Context) {
	s, err := h.dispatcher.RequestExport(c.Request.Context())
	h.respond(c, s, err)
}

// Preview proxies the current preview image. While the service is still
// rendering it answers 202 with the preview status.
func (h *Handlers) Preview(c *gin.Context) {
	s := h.store.Snapshot()
	if s.PreviewRef == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "no preview available"})
		return
	}
	p, err := h.upstream.FetchPreview(c.Request.Context(), s.PreviewRef)
	if err != nil {
		h.fail(c, err, "Failed to load the preview.")
		return
	}
	if !p.Ready {
		body := gin.H{"preview_status": s.PreviewStatus()}
		if p.Document != nil {
			body["preview_status"] = p.Document.PreviewStatus
			if p.Document.PreviewLastError != nil {
				body["preview_last_error"] = *p.Document.PreviewLastError
			}
		}
		c.JSON(http.StatusAccepted, body)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, p.ContentType, p.Image)
}

func (h *Handlers) bind(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

// bindOptional accepts an empty body.
func (h *Handlers) bindOptional(c *gin.Context, v any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	return h.bind(c, v)
}

// respond writes the session after an operation. Failures are already in
// the session; the status code only classifies them.
func (h *Handlers) respond(c *gin.Context, s session.State, err error) {
	if err == nil {
		c.JSON(http.StatusOK, h.renderer.Render(s))
		return
	}
	msg := s.LastError
	if msg == "" {
		msg = err.Error()
	}
	h.fail(c, err, msg)
}

func (h *Handlers) fail(c *gin.Context, err error, msg string) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Warn("Operation failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.Error(err)
	c.JSON(status, gin.H{
		"error":   msg,
		"session": h.renderer.Render(h.store.Snapshot()),
	})
}

// StatusFor maps an operation error to an HTTP status.
func StatusFor(err error) int {
	var apiErr *posterapi.APIError
	switch {
	case errors.Is(err, dispatch.ErrNoSession):
		return http.StatusConflict
	case errors.Is(err, dispatch.ErrSectionNotFound):
		return http.StatusNotFound
	case errors.Is(err, dispatch.ErrInvalidInput), errors.Is(err, dispatch.ErrUnknownTheme):
		return http.StatusBadRequest
	case errors.Is(err, posterapi.ErrUnavailable), errors.Is(err, session.ErrStopped):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &apiErr):
		if apiErr.NotFound() {
			return http.StatusNotFound
		}
		if apiErr.Status >= 400 && apiErr.Status < 500 {
			return http.StatusUnprocessableEntity
		}
		return http.StatusBadGateway
	}
	return http.StatusBadGateway
}
