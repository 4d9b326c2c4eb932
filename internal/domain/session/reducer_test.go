package session

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"testing"

	"github.com/kevinchung58/Paper2Poster/internal/domain/poster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("msg_%d", n)
	}
}

func doc(title string, status poster.PreviewStatus) *poster.Document {
	return &poster.Document{
		Title:          title,
		Sections:       []poster.Section{{SectionID: "s1", Title: "Intro", Content: "Hello", ImageURLs: []string{}}},
		SelectedTheme:  "default",
		StyleOverrides: &poster.StyleOverrides{},
		PreviewStatus:  status,
	}
}

// created returns a session holding poster p1.
func created(t *testing.T, ids func() string) State {
	t.Helper()
	s := Reduce(State{}, SessionResetRequested{}, ids)
	s = Reduce(s, SessionCreated{Ticket: s.Ticket(), PosterID: "p1", Document: doc("AI", poster.PreviewPending), PreviewRef: "/api/v1/posters/p1/preview"}, ids)
	require.True(t, s.HasPoster())
	return s
}

func TestResetAndCreate(t *testing.T) {
	ids := counterIDs()

	s := Reduce(State{}, SessionResetRequested{}, ids)
	assert.True(t, s.Pending)
	assert.False(t, s.HasPoster())
	assert.Nil(t, s.Content)
	require.Len(t, s.ChatLog, 1)
	assert.Equal(t, SenderSystem, s.ChatLog[0].Sender)
	assert.Equal(t, uint64(1), s.Generation)

	s = Reduce(s, SessionCreated{Ticket: s.Ticket(), PosterID: "p1", Document: doc("AI", poster.PreviewPending), PreviewRef: "/preview"}, ids)
	assert.False(t, s.Pending)
	assert.Equal(t, "p1", s.PosterID)
	assert.Equal(t, "p1", s.Content.PosterID)
	assert.Equal(t, "/preview", s.PreviewRef)
	require.Len(t, s.ChatLog, 1, "the announcement replaces the placeholder")
	assert.Equal(t, SenderSystem, s.ChatLog[0].Sender)
	assert.Equal(t, CreatedNote, s.ChatLog[0].Text)
	assert.Empty(t, s.PlaceholderID)
}

func TestResetDiscardsPreviousPoster(t *testing.T) {
	ids := counterIDs()
	s := created(t, ids)
	s = Reduce(s, TargetSelected{Ref: poster.TargetTitle}, ids)
	s = Reduce(s, OperationFailed{Ticket: s.Ticket(), Message: "boom"}, ids)

	s = Reduce(s, SessionResetRequested{}, ids)
	assert.False(t, s.HasPoster())
	assert.Empty(t, s.PreviewRef)
	assert.Empty(t, s.LastError)
	assert.Empty(t, s.ActiveTarget)
	assert.Len(t, s.ChatLog, 1)
	assert.Equal(t, uint64(0), s.AppliedSeq)
}

func TestCreationResponseFromOlderGenerationIsDropped(t *testing.T) {
	ids := counterIDs()

	first := Reduce(State{}, SessionResetRequested{}, ids)
	firstTicket := first.Ticket()
	second := Reduce(first, SessionResetRequested{}, ids)

	s := Reduce(second, SessionCreated{Ticket: firstTicket, PosterID: "old", Document: doc("Old", poster.PreviewPending)}, ids)
	assert.Equal(t, second, s)

	s = Reduce(s, SessionCreated{Ticket: second.Ticket(), PosterID: "new", Document: doc("New", poster.PreviewPending)}, ids)
	assert.Equal(t, "new", s.PosterID)
}

func TestOperationLifecycle(t *testing.T) {
	ids := counterIDs()
	s := created(t, ids)
	s.LastError = "earlier"

	s = Reduce(s, OperationStarted{}, ids)
	assert.True(t, s.Pending)
	assert.Empty(t, s.LastError)
	tk := s.Ticket()

	before := s.Content
	s = Reduce(s, OperationFailed{Ticket: tk, Message: "LLM timeout", Note: "Error: LLM timeout"}, ids)
	assert.False(t, s.Pending)
	assert.Equal(t, "LLM timeout", s.LastError)
	assert.Same(t, before, s.Content, "failure leaves content untouched")
	assert.Equal(t, "Error: LLM timeout", s.ChatLog[len(s.ChatLog)-1].Text)

	s = Reduce(s, OperationStarted{}, ids)
	s = Reduce(s, OperationCompleted{Ticket: s.Ticket(), Note: "Exported."}, ids)
	assert.False(t, s.Pending)
	assert.Same(t, before, s.Content)
	assert.Equal(t, SenderSystem, s.ChatLog[len(s.ChatLog)-1].Sender)
}

func TestPreconditionsWithoutPoster(t *testing.T) {
	ids := counterIDs()
	empty := State{}

	assert.Equal(t, empty, Reduce(empty, UserMessageAppended{Text: "hi"}, ids))
	assert.Equal(t, empty, Reduce(empty, DocumentReplaced{Document: doc("x", poster.PreviewCompleted)}, ids))

	s := Reduce(empty, SystemNoteAppended{Text: "hello"}, ids)
	assert.Len(t, s.ChatLog, 1)
}

func TestDocumentReplacedIsWholesale(t *testing.T) {
	ids := counterIDs()
	s := created(t, ids)
	s = Reduce(s, OperationStarted{}, ids)

	next := &poster.Document{
		Title:         "Quantum",
		Sections:      []poster.Section{{SectionID: "s9", Title: "Only", ImageURLs: []string{}}},
		SelectedTheme: "minimalist_dark",
		PreviewStatus: poster.PreviewGenerating,
	}
	s = Reduce(s, DocumentReplaced{Ticket: s.Ticket(), Document: next, Note: "Done!", NoteSender: SenderAssistant}, ids)

	assert.Equal(t, "Quantum", s.Content.Title)
	require.Len(t, s.Content.Sections, 1)
	assert.Equal(t, "s9", s.Content.Sections[0].SectionID)
	assert.Nil(t, s.Content.Abstract)
	assert.Equal(t, "/api/v1/posters/p1/preview", s.PreviewRef, "absent preview ref keeps the old one")
	assert.False(t, s.Pending)

	last := s.ChatLog[len(s.ChatLog)-1]
	assert.Equal(t, SenderAssistant, last.Sender)
	assert.Equal(t, "Done!", last.Text)

	next.Title = "mutated by caller"
	assert.Equal(t, "Quantum", s.Content.Title)
}

func TestDocumentForAnotherPosterIsDropped(t *testing.T) {
	ids := counterIDs()
	s := created(t, ids)
	other := doc("Other", poster.PreviewCompleted)
	other.PosterID = "p2"

	got := Reduce(s, DocumentReplaced{Ticket: s.Ticket(), Document: other}, ids)
	assert.Equal(t, s, got)
}

func TestStaleResponseIsDroppedButSettles(t *testing.T) {
	ids := counterIDs()
	s := created(t, ids)

	s = Reduce(s, OperationStarted{}, ids)
	slow := s.Ticket()
	s = Reduce(s, OperationStarted{}, ids)
	fast := s.Ticket()
	require.Equal(t, 2, s.InFlight)

	s = Reduce(s, DocumentReplaced{Ticket: fast, Document: doc("Fast", poster.PreviewPending)}, ids)
	assert.True(t, s.Pending, "the slow request is still in flight")
	assert.Equal(t, "Fast", s.Content.Title)

	s = Reduce(s, DocumentReplaced{Ticket: slow, Document: doc("Slow", poster.PreviewPending)}, ids)
	assert.Equal(t, "Fast", s.Content.Title)
	assert.False(t, s.Pending)
	assert.Equal(t, 0, s.InFlight)
}

func TestBackgroundRefreshDoesNotSettle(t *testing.T) {
	ids := counterIDs()
	s := created(t, ids)
	poll := s.Ticket()

	s = Reduce(s, OperationStarted{}, ids)
	s = Reduce(s, DocumentReplaced{Ticket: poll, Document: doc("Polled", poster.PreviewGenerating), Background: true}, ids)
	assert.True(t, s.Pending)
	assert.Equal(t, "Polled", s.Content.Title)

	s = Reduce(s, DocumentReplaced{Ticket: s.Ticket(), Document: doc("Prompted", poster.PreviewPending)}, ids)
	assert.False(t, s.Pending)

	s = Reduce(s, DocumentReplaced{Ticket: poll, Document: doc("Late poll", poster.PreviewCompleted), Background: true}, ids)
	assert.Equal(t, "Prompted", s.Content.Title, "a poll issued before the prompt cannot overwrite it")
}

func TestReduceDoesNotMutateInput(t *testing.T) {
	ids := counterIDs()
	s := created(t, ids)
	s.ChatLog = append(make([]Message, 0, 16), s.ChatLog...)
	before := s.Clone()

	_ = Reduce(s, UserMessageAppended{Text: "one"}, ids)
	_ = Reduce(s, UserMessageAppended{Text: "two"}, ids)

	assert.Equal(t, before, s)
	assert.Len(t, s.ChatLog[:cap(s.ChatLog)][len(s.ChatLog)].Text, 0, "spare capacity untouched")
}

func TestMutualPresenceAndAppendOnly(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	ids := counterIDs()
	s := State{ChatLog: []Message{}}
	var tickets []Ticket

	randomEvent := func() Event {
		var tk Ticket
		if len(tickets) > 0 {
			tk = tickets[rng.Intn(len(tickets))]
		}
		switch rng.Intn(9) {
		case 0:
			return SessionResetRequested{}
		case 1:
			return SessionCreated{Ticket: tk, PosterID: fmt.Sprintf("p%d", rng.Intn(3)), Document: doc("T", poster.PreviewPending)}
		case 2:
			return OperationStarted{}
		case 3:
			return OperationFailed{Ticket: tk, Message: "x", Note: "Error: x"}
		case 4:
			return OperationCompleted{Ticket: tk}
		case 5:
			return UserMessageAppended{Text: "u"}
		case 6:
			return DocumentReplaced{Ticket: tk, Document: doc("R", poster.PreviewCompleted), Note: "a", NoteSender: SenderAssistant, Background: rng.Intn(2) == 0}
		case 7:
			return SystemNoteAppended{Text: "n"}
		default:
			return TargetSelected{Ref: poster.TargetAbstract}
		}
	}

	for i := 0; i < 2000; i++ {
		ev := randomEvent()
		next := Reduce(s, ev, ids)

		require.Equal(t, next.PosterID == "", next.Content == nil, "posterId and content present together (step %d)", i)
		if next.Content != nil {
			require.NotEmpty(t, next.Content.SelectedTheme)
		}
		require.Equal(t, next.InFlight > 0, next.Pending)
		require.GreaterOrEqual(t, next.InFlight, 0)

		_, creation := ev.(SessionCreated)
		switch {
		case creation && !s.HasPoster() && next.HasPoster():
			// Creation swaps the "Creating..." placeholder for the announcement;
			// every other message stays in order.
			require.Equal(t, withoutMessage(s.ChatLog, s.PlaceholderID), next.ChatLog[:len(next.ChatLog)-1], "step %d", i)
			require.Equal(t, CreatedNote, next.ChatLog[len(next.ChatLog)-1].Text)
			require.Empty(t, next.PlaceholderID)
			for _, m := range next.ChatLog {
				require.NotEqual(t, CreatingNote, m.Text, "placeholder removed (step %d)", i)
			}
		case next.Generation == s.Generation && !creation:
			require.GreaterOrEqual(t, len(next.ChatLog), len(s.ChatLog))
			require.Equal(t, s.ChatLog, next.ChatLog[:len(s.ChatLog)], "chat log is append-only within a session")
		}

		s = next
		tickets = append(tickets, s.Ticket())
	}
}

func TestServicePayloadSurvivesReduce(t *testing.T) {
	payload := `{
		"poster_id": "p1",
		"title": "AI",
		"sections": [{"section_id": "s1", "section_title": "Intro", "section_content": "Hi", "image_urls": []}],
		"selected_theme": "default",
		"style_overrides": {"title": {}, "section_title": {"color": "#FF0000"}},
		"preview_status": "completed"
	}`
	var incoming poster.Document
	require.NoError(t, json.Unmarshal([]byte(payload), &incoming))

	ids := counterIDs()
	s := created(t, ids)
	s = Reduce(s, OperationStarted{}, ids)
	s = Reduce(s, DocumentReplaced{Ticket: s.Ticket(), Document: &incoming}, ids)

	stored, err := json.Marshal(s.Content)
	require.NoError(t, err)
	assert.JSONEq(t, payload, string(stored))
	assert.NotNil(t, s.Content.Sections[0].ImageURLs)
	assert.NotNil(t, s.Content.StyleOverrides.Title)
}
