// Package ws pushes live session snapshots to studio clients.
//
// Message Types (Server → Client):
//   - snapshot: the full session after a transition, also sent on connect
//   - pong: answer to ping
//   - error: malformed or unknown client message
//
// Message Types (Client → Server):
//   - ping: Keep-alive ping
//   - snapshot: ask for the current session
//
// Example Usage:
//
//	handler := ws.NewHandler(store, renderer, logger, metrics)
//	router.GET("/stream", handler.HandleConnection)
package ws
