package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzhttp"
	"go.uber.org/zap"

	httpapi "github.com/kevinchung58/Paper2Poster/internal/api/http"
	"github.com/kevinchung58/Paper2Poster/internal/api/middleware"
	"github.com/kevinchung58/Paper2Poster/internal/api/ws"
	"github.com/kevinchung58/Paper2Poster/internal/infrastructure/config"
	"github.com/kevinchung58/Paper2Poster/internal/infrastructure/monitoring"
	"github.com/kevinchung58/Paper2Poster/internal/infrastructure/tracing"
)

const shutdownTimeout = 10 * time.Second

// Server wraps the studio HTTP surface and its session.
type Server struct {
	studio  *Studio
	router  *gin.Engine
	handler http.Handler
	ws      *ws.Handler
	config  *config.Config
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, version string) (*Server, error) {
	logger, err := NewLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	logger.Info("Initializing poster studio",
		zap.String("addr", cfg.Addr()),
		zap.String("poster_api", cfg.PosterAPI.URL),
		zap.String("version", version),
	)

	studio, err := NewStudio(cfg, logger)
	if err != nil {
		return nil, err
	}

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(tracing.HTTPMiddleware(studio.Tracer))
	router.Use(middleware.Logger(logger))
	router.Use(monitoring.Middleware(studio.Metrics, "/metrics", "/stream"))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig().WithOrigins(cfg.Server.CORSOrigins...)))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		rl := middleware.DefaultRateLimitConfig()
		rl.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		rl.Burst = cfg.RateLimit.Burst
		router.Use(middleware.RateLimit(rl))
	}

	handlers := httpapi.NewHandlers(httpapi.Deps{
		Store:      studio.Store,
		Dispatcher: studio.Dispatcher,
		Styles:     studio.Styles,
		Themes:     studio.Themes,
		Upstream:   studio.Client,
		Renderer:   studio.Renderer,
		Logger:     logger,
		Version:    version,
		MaxUpload:  cfg.MaxUploadBytes(),
	})
	handlers.Register(router)

	wsHandler := ws.NewHandler(studio.Store, studio.Renderer, logger, studio.Metrics)
	router.GET("/stream", wsHandler.HandleConnection)
	router.GET("/metrics", gin.WrapH(studio.Metrics.Handler()))

	logger.Info("Server initialized successfully")

	return &Server{
		studio:  studio,
		router:  router,
		handler: compress(router),
		ws:      wsHandler,
		config:  cfg,
	}, nil
}

// compress gzips responses except the WebSocket upgrade, which must reach
// gin with a hijackable writer.
func compress(router http.Handler) http.Handler {
	gz := gzhttp.GzipHandler(router)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/stream" || strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
			router.ServeHTTP(w, r)
			return
		}
		gz.ServeHTTP(w, r)
	})
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Studio returns the session the server drives.
func (s *Server) Studio() *Studio {
	return s.studio
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	logger := s.studio.Logger
	srv := &http.Server{
		Addr:              s.config.Addr(),
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			s.Close()
			return fmt.Errorf("http server: %w", err)
		}
		return s.Close()
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown failed", zap.Error(err))
	}
	return s.Close()
}

// Close disconnects stream clients and stops the session.
func (s *Server) Close() error {
	s.ws.Close()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := s.studio.Close(ctx)

	// Sync logger before exit
	s.studio.Logger.Sync()
	return err
}
