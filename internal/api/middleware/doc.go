// Package middleware holds the gin middleware in front of the studio routes.
//
// RequestID and Logger give every request an id and one access log line.
// CORS lets a browser front end on another origin reach the studio; with an
// explicit origin list it also allows credentials. RateLimit keeps one token
// bucket per client IP and forgets clients that go quiet.
//
//	router.Use(middleware.RequestID(), middleware.Logger(logger))
//	router.Use(middleware.CORS(middleware.DefaultCORSConfig().WithOrigins(origins...)))
//	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
package middleware
