package session

// Default chat notes used when an event carries none.
const (
	CreatingNote = "Creating a new poster..."
	CreatedNote  = "New poster created."
)

// Reduce returns the state that results from applying ev to s.
//
// Reduce never mutates s. Events whose preconditions do not hold are dropped
// and s is returned unchanged. newID supplies chat message ids.
func Reduce(s State, ev Event, newID func() string) State {
	switch e := ev.(type) {
	case SessionResetRequested:
		note := e.Note
		if note == "" {
			note = CreatingNote
		}
		placeholder := Message{ID: newID(), Sender: SenderSystem, Text: note}
		return State{
			ChatLog:       []Message{placeholder},
			Pending:       true,
			Generation:    s.Generation + 1,
			IssuedSeq:     s.IssuedSeq + 1,
			InFlight:      1,
			Revision:      s.Revision + 1,
			PlaceholderID: placeholder.ID,
		}

	case SessionCreated:
		if e.Ticket.Generation != s.Generation || s.HasPoster() || e.PosterID == "" || e.Document == nil {
			return s
		}
		doc := e.Document.Clone()
		doc.PosterID = e.PosterID
		s.PosterID = e.PosterID
		s.Content = doc
		s.PreviewRef = e.PreviewRef
		s.AppliedSeq = max(s.AppliedSeq, e.Ticket.Seq)
		s.Revision++
		s = settle(s)
		note := e.Note
		if note == "" {
			note = CreatedNote
		}
		s.ChatLog = appendMessage(withoutMessage(s.ChatLog, s.PlaceholderID), Message{ID: newID(), Sender: SenderSystem, Text: note})
		s.PlaceholderID = ""
		return s

	case OperationStarted:
		s.IssuedSeq++
		s.InFlight++
		s.Pending = true
		s.LastError = ""
		return s

	case OperationFailed:
		if e.Ticket.Generation != s.Generation {
			return s
		}
		s = settle(s)
		s.LastError = e.Message
		if e.Note != "" {
			s.ChatLog = appendMessage(s.ChatLog, Message{ID: newID(), Sender: SenderSystem, Text: e.Note})
		}
		return s

	case OperationCompleted:
		if e.Ticket.Generation != s.Generation {
			return s
		}
		s = settle(s)
		if e.Note != "" {
			s.ChatLog = appendMessage(s.ChatLog, Message{ID: newID(), Sender: SenderSystem, Text: e.Note})
		}
		return s

	case UserMessageAppended:
		if !s.HasPoster() {
			return s
		}
		s.ChatLog = appendMessage(s.ChatLog, Message{ID: newID(), Sender: SenderUser, Text: e.Text})
		return s

	case DocumentReplaced:
		if !s.HasPoster() || e.Ticket.Generation != s.Generation || e.Document == nil {
			return s
		}
		if e.Document.PosterID != "" && e.Document.PosterID != s.PosterID {
			return s
		}
		if e.Ticket.Seq < s.AppliedSeq {
			// A newer response already landed.
			if !e.Background {
				s = settle(s)
			}
			return s
		}
		doc := e.Document.Clone()
		doc.PosterID = s.PosterID
		s.Content = doc
		if e.PreviewRef != "" {
			s.PreviewRef = e.PreviewRef
		}
		s.AppliedSeq = max(s.AppliedSeq, e.Ticket.Seq)
		s.Revision++
		if !e.Background {
			s = settle(s)
		}
		if e.Note != "" {
			sender := e.NoteSender
			if sender != SenderAssistant {
				sender = SenderSystem
			}
			s.ChatLog = appendMessage(s.ChatLog, Message{ID: newID(), Sender: sender, Text: e.Note})
		}
		return s

	case SystemNoteAppended:
		s.ChatLog = appendMessage(s.ChatLog, Message{ID: newID(), Sender: SenderSystem, Text: e.Text})
		return s

	case TargetSelected:
		s.ActiveTarget = e.Ref
		return s
	}
	return s
}

// settle accounts for one response to a started request.
func settle(s State) State {
	if s.InFlight > 0 {
		s.InFlight--
	}
	s.Pending = s.InFlight > 0
	return s
}

// withoutMessage returns log minus the message with id, as a new slice.
func withoutMessage(log []Message, id string) []Message {
	out := make([]Message, 0, len(log))
	for _, m := range log {
		if m.ID != id {
			out = append(out, m)
		}
	}
	return out
}

// appendMessage appends without sharing the backing array of log.
func appendMessage(log []Message, m Message) []Message {
	return append(log[:len(log):len(log)], m)
}
