// Package dispatch implements the studio's user intents.
//
// Each dispatcher validates its input, takes a ticket from the session
// store, calls the poster service and settles the operation with exactly one
// of DocumentReplaced, OperationCompleted or OperationFailed. Failures are
// always visible in the chat log; a returned error never means the session
// was left pending.
//
// Operations:
//   - CreatePoster: reset the session and create a new poster
//   - SendPrompt: free-form prompt, optionally targeting one element
//   - SetTheme, SetStyleOverrides: direct style updates
//   - DirectEditElement: replace one element's text
//   - SetSectionImageURLs, UploadSectionImage: section images
//   - RequestExport: build the slide deck and hand it to an Exporter
package dispatch
