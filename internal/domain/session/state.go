package session

import "github.com/kevinchung58/Paper2Poster/internal/domain/poster"

// Sender identifies who authored a chat message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
	SenderSystem    Sender = "system"
)

// Message is one entry of the chat transcript.
type Message struct {
	ID     string `json:"id"`
	Sender Sender `json:"sender"`
	Text   string `json:"text"`
}

// Ticket identifies a request by the session epoch it was issued in and its
// issue order. Responses carry the ticket of the request that produced them.
type Ticket struct {
	Generation uint64 `json:"generation"`
	Seq        uint64 `json:"seq"`
}

// State is the single live poster session.
//
// PosterID and Content are either both set or both absent. Content is only
// ever replaced with a complete server document.
type State struct {
	PosterID     string           `json:"poster_id,omitempty"`
	Content      *poster.Document `json:"content,omitempty"`
	PreviewRef   string           `json:"preview_image_ref,omitempty"`
	ChatLog      []Message        `json:"chat_log"`
	Pending      bool             `json:"pending_operation"`
	LastError    string           `json:"last_error,omitempty"`
	ActiveTarget string           `json:"active_target_ref,omitempty"`

	// Generation is bumped by every reset; responses from an older
	// generation are dropped.
	Generation uint64 `json:"generation"`
	// IssuedSeq is the sequence number of the most recently started request.
	IssuedSeq uint64 `json:"issued_seq"`
	// AppliedSeq is the highest request sequence whose document was applied.
	AppliedSeq uint64 `json:"applied_seq"`
	// InFlight counts started requests of this generation without a response.
	InFlight int `json:"in_flight"`
	// Revision increments whenever the document or preview reference changes.
	Revision uint64 `json:"revision"`
	// PlaceholderID is the "Creating..." message a successful creation replaces.
	PlaceholderID string `json:"-"`
}

// HasPoster reports whether a poster is loaded.
func (s State) HasPoster() bool {
	return s.PosterID != ""
}

// Ticket returns the ticket of the most recently started request.
func (s State) Ticket() Ticket {
	return Ticket{Generation: s.Generation, Seq: s.IssuedSeq}
}

// PreviewStatus returns the document's preview status, or "" with no poster.
func (s State) PreviewStatus() poster.PreviewStatus {
	if s.Content == nil {
		return ""
	}
	return s.Content.PreviewStatus
}

// Theme returns the selected theme, or "" with no poster.
func (s State) Theme() string {
	if s.Content == nil {
		return ""
	}
	return s.Content.SelectedTheme
}

// Clone returns a deep copy safe to hand to other goroutines.
func (s State) Clone() State {
	out := s
	out.Content = s.Content.Clone()
	out.ChatLog = append([]Message(nil), s.ChatLog...)
	return out
}
