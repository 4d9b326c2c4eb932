// Package preview keeps the session document fresh while the poster
// service renders a preview.
//
// The Poller watches every store transition. When the loaded document's
// preview_status is pending or generating it re-fetches the poster on a
// fixed interval and feeds each response back as a background
// DocumentReplaced. It stops when the status settles, when the poster or
// session changes, or on the first fetch error, which is only logged.
package preview
