// Package editor holds the client-side edit state that sits in front of
// the dispatchers: a debounced style override buffer and the commit rule
// for direct text edits.
package editor
