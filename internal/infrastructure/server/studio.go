package server

import (
	"context"
	"fmt"

	"github.com/kevinchung58/Paper2Poster/internal/api/view"
	"github.com/kevinchung58/Paper2Poster/internal/domain/dispatch"
	"github.com/kevinchung58/Paper2Poster/internal/domain/editor"
	"github.com/kevinchung58/Paper2Poster/internal/domain/preview"
	"github.com/kevinchung58/Paper2Poster/internal/domain/session"
	"github.com/kevinchung58/Paper2Poster/internal/domain/theme"
	"github.com/kevinchung58/Paper2Poster/internal/infrastructure/config"
	"github.com/kevinchung58/Paper2Poster/internal/infrastructure/logging"
	"github.com/kevinchung58/Paper2Poster/internal/infrastructure/monitoring"
	"github.com/kevinchung58/Paper2Poster/internal/infrastructure/tracing"
	"github.com/kevinchung58/Paper2Poster/internal/providers/posterapi"
	"go.uber.org/zap"
)

// Studio is one live poster session with everything that acts on it.
// The HTTP server and the terminal front end both drive a Studio.
type Studio struct {
	Config     *config.Config
	Logger     *logging.Logger
	Metrics    *monitoring.Metrics
	Tracer     *tracing.Tracer
	Themes     *theme.Registry
	Client     *posterapi.Client
	Store      *session.Store
	Dispatcher *dispatch.Dispatcher
	Poller     *preview.Poller
	Styles     *editor.StyleBuffer
	Renderer   view.Renderer

	cancel context.CancelFunc
}

// NewLogger builds the process logger from cfg.
func NewLogger(cfg config.LogConfig) (*logging.Logger, error) {
	lc := logging.DefaultConfig()
	if cfg.Development {
		lc = logging.DevelopmentConfig()
	}
	if cfg.Level != "" {
		lc.Level = cfg.Level
	}
	return logging.New(lc)
}

// NewStudio wires a session to the poster service at cfg.PosterAPI and
// starts the store loop.
func NewStudio(cfg *config.Config, logger *logging.Logger) (*Studio, error) {
	metrics := monitoring.NewMetrics()
	tracer := tracing.New("studio", logger)

	themes, err := theme.Load(cfg.Studio.ThemesFile)
	if err != nil {
		tracer.Close()
		return nil, fmt.Errorf("failed to load themes: %w", err)
	}
	logger.Info("Themes loaded", zap.Int("count", len(themes.List())),
		zap.String("file", cfg.Studio.ThemesFile))

	apiCfg := posterapi.DefaultConfig()
	apiCfg.BaseURL = cfg.PosterAPI.URL
	apiCfg.Prefix = cfg.PosterAPI.Prefix
	apiCfg.Timeout = cfg.PosterAPI.Timeout
	apiCfg.RetryMax = cfg.PosterAPI.RetryMax
	apiCfg.RateLimit = cfg.PosterAPI.RateLimit
	apiCfg.RateBurst = cfg.PosterAPI.RateBurst
	apiCfg.BreakerTrips = cfg.PosterAPI.BreakerTrips

	client, err := posterapi.New(apiCfg,
		posterapi.WithLogger(logger),
		posterapi.WithMetrics(metrics),
		posterapi.WithTracer(tracer),
	)
	if err != nil {
		tracer.Close()
		return nil, fmt.Errorf("failed to create poster service client: %w", err)
	}
	logger.Info("Poster service configured", zap.String("url", cfg.PosterAPI.URL),
		zap.String("prefix", cfg.PosterAPI.Prefix))

	store := session.NewStore(session.WithLogger(logger), session.WithMetrics(metrics))
	ctx, cancel := context.WithCancel(context.Background())
	go store.Run(ctx)

	dispatcher := dispatch.New(store, client,
		dispatch.WithThemes(themes),
		dispatch.WithExporter(dispatch.DownloadExporter{
			Dir:    cfg.Studio.ExportDir,
			Client: client,
			Logger: logger,
		}),
		dispatch.WithMaxUpload(cfg.MaxUploadBytes()),
		dispatch.WithLogger(logger),
		dispatch.WithMetrics(metrics),
	)

	poller := preview.New(store, client,
		preview.WithInterval(cfg.Studio.PollInterval),
		preview.WithLogger(logger),
		preview.WithMetrics(metrics),
	)

	styles := editor.NewStyleBuffer(store, dispatcher,
		editor.WithQuiet(cfg.Studio.StyleDebounce),
		editor.WithLogger(logger),
		editor.WithMetrics(metrics),
	)

	return &Studio{
		Config:     cfg,
		Logger:     logger,
		Metrics:    metrics,
		Tracer:     tracer,
		Themes:     themes,
		Client:     client,
		Store:      store,
		Dispatcher: dispatcher,
		Poller:     poller,
		Styles:     styles,
		Renderer:   view.Renderer{Resolve: client.ResolveURL, Themes: themes},
		cancel:     cancel,
	}, nil
}

// Close pushes pending style edits, stops polling and stops the store.
func (s *Studio) Close(ctx context.Context) error {
	err := s.Styles.Close(ctx)
	if err != nil {
		s.Logger.Warn("Pending style edits were not saved", zap.Error(err))
	}
	s.Poller.Close()
	s.cancel()
	<-s.Store.Done()
	s.Tracer.Close()
	return err
}
