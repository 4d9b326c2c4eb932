// Package view renders the session snapshot sent to studio clients.
package view

import (
	"net/url"
	"strconv"

	"github.com/kevinchung58/Paper2Poster/internal/domain/poster"
	"github.com/kevinchung58/Paper2Poster/internal/domain/session"
	"github.com/kevinchung58/Paper2Poster/internal/domain/theme"
)

// Session is the client-facing form of session.State.
type Session struct {
	PosterID      string               `json:"poster_id,omitempty"`
	Content       *poster.Document     `json:"content"`
	PreviewURL    string               `json:"preview_url,omitempty"`
	PreviewStatus poster.PreviewStatus `json:"preview_status,omitempty"`
	ChatLog       []session.Message    `json:"chat_log"`
	Pending       bool                 `json:"pending_operation"`
	LastError     string               `json:"last_error,omitempty"`
	ActiveTarget  string               `json:"active_target_ref,omitempty"`
	Style         *theme.Resolved      `json:"resolved_style,omitempty"`
	Revision      uint64               `json:"revision"`
}

// Renderer builds Session values.
type Renderer struct {
	// Resolve turns a server preview reference into an absolute URL.
	Resolve func(ref string) string
	Themes  *theme.Registry
}

// Render converts s. The preview URL carries the session revision so a
// browser never shows a cached image for a newer document.
func (r Renderer) Render(s session.State) Session {
	out := Session{
		PosterID:      s.PosterID,
		Content:       s.Content,
		PreviewStatus: s.PreviewStatus(),
		ChatLog:       s.ChatLog,
		Pending:       s.Pending,
		LastError:     s.LastError,
		ActiveTarget:  s.ActiveTarget,
		Revision:      s.Revision,
	}
	if out.ChatLog == nil {
		out.ChatLog = []session.Message{}
	}
	if s.PreviewRef != "" {
		out.PreviewURL = versioned(r.resolve(s.PreviewRef), s.Revision)
	}
	if s.Content != nil && r.Themes != nil {
		resolved := r.Themes.Resolve(s.Content.SelectedTheme, s.Content.StyleOverrides)
		out.Style = &resolved
	}
	return out
}

func (r Renderer) resolve(ref string) string {
	if r.Resolve == nil {
		return ref
	}
	return r.Resolve(ref)
}

func versioned(raw string, rev uint64) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	q.Set("v", strconv.FormatUint(rev, 10))
	u.RawQuery = q.Encode()
	return u.String()
}
