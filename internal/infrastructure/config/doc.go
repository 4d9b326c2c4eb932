// Package config loads studio settings from the environment.
//
// Every field has an envconfig tag and a default, so a bare `studio serve`
// talks to a poster service on localhost:8000 and listens on :8090. The
// cobra commands apply their flags on top of the loaded Config.
//
//	cfg := config.LoadOrDefault()
//	log.Printf("studio on %s, poster service %s", cfg.Addr(), cfg.PosterAPI.URL)
//
// Variables by section:
//
//	server      STUDIO_PORT STUDIO_HOST CORS_ORIGINS
//	poster api  POSTER_API_URL POSTER_API_PREFIX POSTER_API_TIMEOUT
//	            POSTER_API_RETRY_MAX POSTER_API_RPS POSTER_API_BURST
//	            POSTER_API_BREAKER_TRIPS
//	studio      POLL_INTERVAL STYLE_DEBOUNCE EXPORT_DIR THEMES_FILE MAX_UPLOAD_MB
//	logging     LOG_LEVEL LOG_DEV
//	rate limit  RATE_LIMIT_RPS RATE_LIMIT_BURST RATE_LIMIT_ENABLED
package config
