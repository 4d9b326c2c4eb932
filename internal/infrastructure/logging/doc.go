// Package logging provides structured logging using uber/zap.
//
// Two modes:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Every studio component takes a named child logger so log lines can be
// filtered by origin:
//
//	logger := logging.NewDefault()
//	pollLog := logger.Component("preview")
//	pollLog.Warn("Preview fetch failed", zap.String("poster_id", id), zap.Error(err))
//
// Output goes to stderr by default so the REPL front end keeps stdout to itself.
package logging
