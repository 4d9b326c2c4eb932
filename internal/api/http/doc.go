// Package http implements the studio REST surface.
//
// Every mutating route runs one dispatcher operation and answers with the
// resulting session snapshot. Failures are part of the session (chat note
// and last_error); the HTTP status only classifies them:
//
//	409 no poster loaded
//	404 unknown section or poster
//	400 invalid input or unknown theme
//	422 other rejections by the poster service
//	502 poster service failure, 503 circuit breaker open
//
// Style edits go through the debounced edit buffer and answer 202.
package http
