package session

import "github.com/kevinchung58/Paper2Poster/internal/domain/poster"

// Event is a state transition. The set of events is closed.
type Event interface {
	event()
}

// SessionResetRequested discards the current poster and starts a creation.
type SessionResetRequested struct {
	Note string
}

// SessionCreated installs the poster returned by a creation request.
type SessionCreated struct {
	Ticket     Ticket
	PosterID   string
	Document   *poster.Document
	PreviewRef string
	Note       string
}

// OperationStarted marks a request against the current poster as in flight.
type OperationStarted struct{}

// OperationFailed settles a request that did not produce a document.
// Note, when set, is appended to the chat log as a system message.
type OperationFailed struct {
	Ticket  Ticket
	Message string
	Note    string
}

// OperationCompleted settles a request whose result leaves the document as is.
type OperationCompleted struct {
	Ticket Ticket
	Note   string
}

// UserMessageAppended records a prompt typed by the user.
type UserMessageAppended struct {
	Text string
}

// DocumentReplaced installs a new server document.
//
// Background replacements come from the preview poller: they do not settle
// a started request.
type DocumentReplaced struct {
	Ticket     Ticket
	Document   *poster.Document
	PreviewRef string
	Note       string
	NoteSender Sender
	Background bool
}

// SystemNoteAppended adds a system message to the chat log.
type SystemNoteAppended struct {
	Text string
}

// TargetSelected sets or clears the element subsequent prompts apply to.
type TargetSelected struct {
	Ref string
}

func (SessionResetRequested) event() {}
func (SessionCreated) event()        {}
func (OperationStarted) event()      {}
func (OperationFailed) event()       {}
func (OperationCompleted) event()    {}
func (UserMessageAppended) event()   {}
func (DocumentReplaced) event()      {}
func (SystemNoteAppended) event()    {}
func (TargetSelected) event()        {}

// Name returns a short event name for logs and metrics.
func Name(ev Event) string {
	switch ev.(type) {
	case SessionResetRequested:
		return "session_reset_requested"
	case SessionCreated:
		return "session_created"
	case OperationStarted:
		return "operation_started"
	case OperationFailed:
		return "operation_failed"
	case OperationCompleted:
		return "operation_completed"
	case UserMessageAppended:
		return "user_message_appended"
	case DocumentReplaced:
		return "document_replaced"
	case SystemNoteAppended:
		return "system_note_appended"
	case TargetSelected:
		return "target_selected"
	}
	return "unknown"
}
