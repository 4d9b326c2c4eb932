package editor

import (
	"context"
	"errors"
	"sync"

	"github.com/kevinchung58/Paper2Poster/internal/domain/session"
)

// ErrNotEditing is returned by Commit when no edit was begun.
var ErrNotEditing = errors.New("no edit in progress")

// ElementEditor replaces the text of one element.
type ElementEditor interface {
	DirectEditElement(ctx context.Context, targetRef, text string) (session.State, error)
}

// TextEdit is the edit state of one text field.
type TextEdit struct {
	editor ElementEditor

	mu     sync.Mutex
	ref    string
	seed   string
	active bool
}

// NewTextEdit creates an idle text edit.
func NewTextEdit(e ElementEditor) *TextEdit {
	return &TextEdit{editor: e}
}

// Begin starts editing ref, seeded with its current value.
func (t *TextEdit) Begin(ref, seed string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ref, t.seed, t.active = ref, seed, true
}

// Editing returns the element being edited.
func (t *TextEdit) Editing() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ref, t.active
}

// Cancel discards the edit.
func (t *TextEdit) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ref, t.seed, t.active = "", "", false
}

// Commit ends the edit and sends value if it differs from the seed.
func (t *TextEdit) Commit(ctx context.Context, value string) (bool, error) {
	t.mu.Lock()
	ref, seed, active := t.ref, t.seed, t.active
	t.ref, t.seed, t.active = "", "", false
	t.mu.Unlock()

	if !active {
		return false, ErrNotEditing
	}
	if value == seed {
		return false, nil
	}
	_, err := t.editor.DirectEditElement(ctx, ref, value)
	return true, err
}

// CommitElement sends value for ref unless it equals the element's current
// text in s. Unknown elements are passed through so the editor reports them.
func CommitElement(ctx context.Context, e ElementEditor, s session.State, ref, value string) (bool, error) {
	if current, ok := s.Content.Value(ref); ok && current == value {
		return false, nil
	}
	_, err := e.DirectEditElement(ctx, ref, value)
	return true, err
}
