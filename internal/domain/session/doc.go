// Package session holds the live poster session and its state machine.
//
// All changes go through Reduce, a pure function over a closed set of
// events. Store runs Reduce on a single goroutine, so events are applied
// strictly in the order they are dispatched, and notifies subscribers with
// the previous and next state after every applied transition.
//
// Ordering of responses:
//
// Every request-issuing operation starts with SessionResetRequested or
// OperationStarted and takes the resulting State.Ticket. Responses carry that
// ticket back:
//   - a ticket from an older generation (a reset happened since) is dropped
//   - a document whose ticket sequence is older than the last applied one is
//     dropped as stale, but still settles its request
//   - Pending clears once every started request has settled
//
// Example Usage:
//
//	store := session.NewStore(session.WithLogger(logger))
//	go store.Run(ctx)
//
//	snap, _ := store.Dispatch(ctx, session.OperationStarted{})
//	tk := snap.Ticket()
//	// ... call the poster service ...
//	store.Dispatch(ctx, session.DocumentReplaced{Ticket: tk, Document: doc})
package session
