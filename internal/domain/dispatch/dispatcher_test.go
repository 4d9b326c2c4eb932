package dispatch

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/kevinchung58/Paper2Poster/internal/domain/poster"
	"github.com/kevinchung58/Paper2Poster/internal/domain/session"
	"github.com/kevinchung58/Paper2Poster/internal/providers/posterapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	mu       sync.Mutex
	prompts  []poster.PromptRequest
	creates  []string
	uploads  int
	exports  int
	err      error
	response func(req poster.PromptRequest) *poster.PromptResponse
}

func (f *fakeAPI) CreatePoster(_ context.Context, topic string) (*poster.CreateResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates = append(f.creates, topic)
	if f.err != nil {
		return nil, f.err
	}
	return &poster.CreateResponse{
		PosterID:        "p1",
		PosterData:      *testDoc("AI"),
		PreviewImageURL: "/api/v1/posters/p1/preview",
	}, nil
}

func (f *fakeAPI) Prompt(_ context.Context, posterID string, req poster.PromptRequest) (*poster.PromptResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, req)
	if f.err != nil {
		return nil, f.err
	}
	if f.response != nil {
		return f.response(req), nil
	}
	doc := testDoc("AI")
	if req.SelectedTheme != nil {
		doc.SelectedTheme = *req.SelectedTheme
	}
	return &poster.PromptResponse{PosterID: posterID, LLMResponseText: "Done.", UpdatedPosterData: *doc}, nil
}

func (f *fakeAPI) GeneratePPTX(_ context.Context, posterID string) (*poster.ExportResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exports++
	if f.err != nil {
		return nil, f.err
	}
	return &poster.ExportResponse{
		PosterID:    posterID,
		DownloadURL: "/api/v1/posters/" + posterID + "/download_pptx",
		Message:     "PPTX generated.",
	}, nil
}

func (f *fakeAPI) UploadSectionImage(_ context.Context, _, sectionID, filename string, _ []byte) (*poster.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads++
	if f.err != nil {
		return nil, f.err
	}
	doc := testDoc("AI")
	doc.Sections[0].ImageURLs = []string{"/static/" + filename}
	return doc, nil
}

func (f *fakeAPI) promptCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

type themeSet map[string]bool

func (t themeSet) Has(key string) bool { return t[key] }

func testDoc(title string) *poster.Document {
	return &poster.Document{
		PosterID:      "p1",
		Title:         title,
		Sections:      []poster.Section{{SectionID: "s1", Title: "Intro", Content: "Hello", ImageURLs: []string{}}},
		SelectedTheme: "default",
		PreviewStatus: poster.PreviewPending,
	}
}

func newTestDispatcher(t *testing.T, api *fakeAPI, opts ...Option) (*Dispatcher, *session.Store) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	n := 0
	store := session.NewStore(session.WithIDs(func() string {
		n++
		return "m" + strconv.Itoa(n)
	}))
	go store.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-store.Done()
	})
	_, err := store.Dispatch(ctx, session.TargetSelected{})
	require.NoError(t, err)

	opts = append([]Option{WithThemes(themeSet{"default": true, "professional_blue": true})}, opts...)
	return New(store, api, opts...), store
}

func withPoster(t *testing.T, d *Dispatcher) session.State {
	t.Helper()
	s, err := d.CreatePoster(context.Background(), "")
	require.NoError(t, err)
	require.True(t, s.HasPoster())
	return s
}

func lastMessage(s session.State) session.Message {
	return s.ChatLog[len(s.ChatLog)-1]
}

func TestCreatePoster(t *testing.T) {
	api := &fakeAPI{}
	d, _ := newTestDispatcher(t, api)

	s, err := d.CreatePoster(context.Background(), "  AI in healthcare ")
	require.NoError(t, err)

	assert.Equal(t, []string{"AI in healthcare"}, api.creates)
	assert.Equal(t, "p1", s.PosterID)
	assert.Equal(t, "AI", s.Content.Title)
	assert.False(t, s.Pending)
	require.Len(t, s.ChatLog, 1)
	assert.Equal(t, session.SenderSystem, s.ChatLog[0].Sender)
	assert.Equal(t, `New poster "AI" created.`, s.ChatLog[0].Text)
}

func TestCreatePosterFailure(t *testing.T) {
	api := &fakeAPI{err: &posterapi.APIError{Endpoint: "create_poster", Status: http.StatusInternalServerError}}
	d, _ := newTestDispatcher(t, api)

	s, err := d.CreatePoster(context.Background(), "")
	require.Error(t, err)

	assert.False(t, s.HasPoster())
	assert.False(t, s.Pending)
	assert.Equal(t, genericFailures[OpCreatePoster], s.LastError)
	assert.Equal(t, "Error: "+genericFailures[OpCreatePoster], lastMessage(s).Text)
}

func TestOperationsRequirePoster(t *testing.T) {
	api := &fakeAPI{}
	d, _ := newTestDispatcher(t, api)
	ctx := context.Background()

	_, err := d.SendPrompt(ctx, "hi", "")
	assert.ErrorIs(t, err, ErrNoSession)
	_, err = d.SetTheme(ctx, "default")
	assert.ErrorIs(t, err, ErrNoSession)
	_, err = d.RequestExport(ctx)
	assert.ErrorIs(t, err, ErrNoSession)

	s := d.store.Snapshot()
	assert.False(t, s.Pending)
	assert.Equal(t, 0, s.InFlight)
	assert.Zero(t, api.promptCount())
}

func TestSendPrompt(t *testing.T) {
	api := &fakeAPI{}
	d, _ := newTestDispatcher(t, api)
	withPoster(t, d)
	ctx := context.Background()

	_, err := d.SelectTarget(ctx, poster.SectionContentRef("s1"))
	require.NoError(t, err)

	s, err := d.SendPrompt(ctx, "make it shorter", "")
	require.NoError(t, err)

	require.Len(t, api.prompts, 1)
	req := api.prompts[0]
	assert.Equal(t, "make it shorter", *req.PromptText)
	assert.Equal(t, "section_s1_content", *req.TargetElementID)
	assert.False(t, req.IsDirectUpdate)

	n := len(s.ChatLog)
	assert.Equal(t, session.Message{ID: s.ChatLog[n-2].ID, Sender: session.SenderUser, Text: "make it shorter"}, s.ChatLog[n-2])
	assert.Equal(t, session.SenderAssistant, s.ChatLog[n-1].Sender)
	assert.Equal(t, "Done.", s.ChatLog[n-1].Text)
	assert.False(t, s.Pending)
}

func TestSendPromptFailureKeepsUserMessage(t *testing.T) {
	api := &fakeAPI{}
	d, _ := newTestDispatcher(t, api)
	withPoster(t, d)

	api.err = &posterapi.APIError{Endpoint: "prompt", Status: http.StatusBadRequest, Detail: "Prompt too vague"}
	s, err := d.SendPrompt(context.Background(), "hmm", "")
	require.Error(t, err)

	n := len(s.ChatLog)
	assert.Equal(t, session.SenderUser, s.ChatLog[n-2].Sender)
	assert.Equal(t, "hmm", s.ChatLog[n-2].Text)
	assert.Equal(t, "Error: Prompt too vague", s.ChatLog[n-1].Text)
	assert.Equal(t, "Prompt too vague", s.LastError)
	assert.False(t, s.Pending)
}

func TestSendPromptRejectsBadTarget(t *testing.T) {
	api := &fakeAPI{}
	d, _ := newTestDispatcher(t, api)
	withPoster(t, d)

	_, err := d.SendPrompt(context.Background(), "hi", "footer")
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Zero(t, api.promptCount())
}

func TestSetThemeIsIdempotent(t *testing.T) {
	api := &fakeAPI{}
	d, _ := newTestDispatcher(t, api)
	before := withPoster(t, d)

	s, err := d.SetTheme(context.Background(), "default")
	require.NoError(t, err)
	assert.Zero(t, api.promptCount())
	assert.Equal(t, before.ChatLog, s.ChatLog)
}

func TestSetTheme(t *testing.T) {
	api := &fakeAPI{}
	d, _ := newTestDispatcher(t, api)
	withPoster(t, d)

	s, err := d.SetTheme(context.Background(), "professional_blue")
	require.NoError(t, err)

	require.Len(t, api.prompts, 1)
	assert.True(t, api.prompts[0].IsDirectUpdate)
	assert.Equal(t, "professional_blue", *api.prompts[0].SelectedTheme)
	assert.Nil(t, api.prompts[0].PromptText)
	assert.Equal(t, "professional_blue", s.Theme())
	assert.Equal(t, session.SenderSystem, lastMessage(s).Sender)
}

func TestSetUnknownTheme(t *testing.T) {
	api := &fakeAPI{}
	d, _ := newTestDispatcher(t, api)
	withPoster(t, d)

	s, err := d.SetTheme(context.Background(), "neon")
	assert.ErrorIs(t, err, ErrUnknownTheme)
	assert.Zero(t, api.promptCount())
	assert.Contains(t, lastMessage(s).Text, "neon")
	assert.False(t, s.Pending)
}

func TestSetStyleOverrides(t *testing.T) {
	api := &fakeAPI{}
	d, _ := newTestDispatcher(t, api)
	withPoster(t, d)
	ctx := context.Background()

	size := 32
	_, err := d.SetStyleOverrides(ctx, poster.StyleOverrides{Title: &poster.ElementStyle{FontSize: &size}})
	require.NoError(t, err)
	require.Len(t, api.prompts, 1)
	assert.True(t, api.prompts[0].IsDirectUpdate)
	assert.Equal(t, 32, *api.prompts[0].StyleOverrides.Title.FontSize)

	bad := "red"
	_, err = d.SetStyleOverrides(ctx, poster.StyleOverrides{SlideBackground: &bad})
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, 1, api.promptCount())
}

func TestDirectEditElement(t *testing.T) {
	api := &fakeAPI{}
	d, _ := newTestDispatcher(t, api)
	withPoster(t, d)
	ctx := context.Background()

	_, err := d.DirectEditElement(ctx, poster.TargetTitle, "New title")
	require.NoError(t, err)
	require.Len(t, api.prompts, 1)
	assert.Equal(t, "poster_title", *api.prompts[0].TargetElementID)
	assert.Equal(t, "New title", *api.prompts[0].PromptText)
	assert.True(t, api.prompts[0].IsDirectUpdate)

	_, err = d.DirectEditElement(ctx, poster.SectionTitleRef("s9"), "x")
	assert.ErrorIs(t, err, ErrSectionNotFound)
	assert.Equal(t, 1, api.promptCount())
}

func TestSetSectionImageURLs(t *testing.T) {
	api := &fakeAPI{}
	d, _ := newTestDispatcher(t, api)
	withPoster(t, d)
	ctx := context.Background()

	s, err := d.SetSectionImageURLs(ctx, "s9", []string{"https://x/y.png"})
	assert.ErrorIs(t, err, ErrSectionNotFound)
	assert.Zero(t, api.promptCount())
	assert.Contains(t, lastMessage(s).Text, "section not found")

	_, err = d.SetSectionImageURLs(ctx, "s1", []string{"https://x/y.png"})
	require.NoError(t, err)
	require.Len(t, api.prompts, 1)
	req := api.prompts[0]
	require.Len(t, req.Sections, 1)
	assert.Equal(t, "s1", req.Sections[0].SectionID)
	assert.Equal(t, "Intro", req.Sections[0].Title)
	assert.Equal(t, []string{"https://x/y.png"}, req.Sections[0].ImageURLs)
}

func TestUploadSectionImage(t *testing.T) {
	api := &fakeAPI{}
	d, _ := newTestDispatcher(t, api)
	withPoster(t, d)
	ctx := context.Background()

	_, err := d.UploadSectionImage(ctx, "s1", "notes.txt", []byte("plain text"))
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Zero(t, api.uploads)

	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00\x1f\x15\xc4\x89")
	s, err := d.UploadSectionImage(ctx, "s1", "fig.png", png)
	require.NoError(t, err)
	assert.Equal(t, 1, api.uploads)
	assert.Equal(t, []string{"/static/fig.png"}, s.Content.Sections[0].ImageURLs)
}

type recordingExporter struct {
	got *poster.ExportResponse
	err error
}

func (r *recordingExporter) Export(_ context.Context, _ string, res *poster.ExportResponse) (string, error) {
	r.got = res
	if r.err != nil {
		return "", r.err
	}
	return filepath.Join("exports", "p1.pptx"), nil
}

func TestRequestExport(t *testing.T) {
	api := &fakeAPI{}
	exp := &recordingExporter{}
	d, _ := newTestDispatcher(t, api, WithExporter(exp))
	before := withPoster(t, d)

	s, err := d.RequestExport(context.Background())
	require.NoError(t, err)

	require.NotNil(t, exp.got)
	assert.Equal(t, "/api/v1/posters/p1/download_pptx", exp.got.DownloadURL)
	assert.Equal(t, before.Content, s.Content)
	assert.Equal(t, before.Revision, s.Revision)
	assert.Contains(t, lastMessage(s).Text, filepath.Join("exports", "p1.pptx"))
	assert.False(t, s.Pending)
}

func TestRequestExportFailure(t *testing.T) {
	api := &fakeAPI{}
	exp := &recordingExporter{err: errors.New("disk full")}
	d, _ := newTestDispatcher(t, api, WithExporter(exp))
	withPoster(t, d)

	s, err := d.RequestExport(context.Background())
	require.Error(t, err)
	assert.Equal(t, genericFailures[OpExport], s.LastError)
	assert.False(t, s.Pending)
}

func TestFailureMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"detail", &posterapi.APIError{Status: 404, Detail: "Poster not found"}, "Poster not found"},
		{"no detail", &posterapi.APIError{Status: 500}, genericFailures[OpSendPrompt]},
		{"transport", errors.New("connection refused"), genericFailures[OpSendPrompt]},
		{"unavailable", posterapi.ErrUnavailable, "The poster service is unavailable. Try again shortly."},
		{"local", ErrNoSession, "no poster loaded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, failureMessage(OpSendPrompt, tt.err))
		})
	}
}

func TestCancelledCallerStillSettles(t *testing.T) {
	api := &fakeAPI{}
	d, store := newTestDispatcher(t, api)
	withPoster(t, d)

	ctx, cancel := context.WithCancel(context.Background())
	api.response = func(req poster.PromptRequest) *poster.PromptResponse {
		cancel()
		return &poster.PromptResponse{PosterID: "p1", UpdatedPosterData: *testDoc("Changed")}
	}

	_, err := d.SendPrompt(ctx, "change it", "")
	require.NoError(t, err)
	s := store.Snapshot()
	assert.False(t, s.Pending)
	assert.Equal(t, "Changed", s.Content.Title)
}
