package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/kevinchung58/Paper2Poster/internal/domain/poster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runStore(t *testing.T, opts ...Option) (*Store, context.Context) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	store := NewStore(append([]Option{WithIDs(counterIDs())}, opts...)...)
	go store.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-store.Done()
	})
	// Round-trip once so the loop is known to be running.
	_, err := store.Dispatch(ctx, TargetSelected{})
	require.NoError(t, err)
	return store, ctx
}

func TestDispatchReturnsResultingState(t *testing.T) {
	store, ctx := runStore(t)

	snap, err := store.Dispatch(ctx, SessionResetRequested{})
	require.NoError(t, err)
	assert.True(t, snap.Pending)

	snap, err = store.Dispatch(ctx, SessionCreated{Ticket: snap.Ticket(), PosterID: "p1", Document: doc("AI", poster.PreviewPending)})
	require.NoError(t, err)
	assert.Equal(t, "p1", snap.PosterID)
	assert.Equal(t, snap, store.Snapshot())
}

func TestSnapshotIsACopy(t *testing.T) {
	store, ctx := runStore(t)
	snap, err := store.Dispatch(ctx, SessionResetRequested{})
	require.NoError(t, err)
	_, err = store.Dispatch(ctx, SessionCreated{Ticket: snap.Ticket(), PosterID: "p1", Document: doc("AI", poster.PreviewPending)})
	require.NoError(t, err)

	got := store.Snapshot()
	got.Content.Title = "changed"
	got.ChatLog[0].Text = "changed"

	again := store.Snapshot()
	assert.Equal(t, "AI", again.Content.Title)
	assert.Equal(t, CreatedNote, again.ChatLog[0].Text)
}

func TestSubscribersSeeEveryAppliedTransition(t *testing.T) {
	store, ctx := runStore(t)

	var mu sync.Mutex
	var seen []string
	unsubscribe := store.Subscribe(func(prev, next State) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, next.ActiveTarget)
		assert.NotEqual(t, prev.ActiveTarget, next.ActiveTarget)
	})

	for _, ref := range []string{"poster_title", "poster_title", "poster_abstract"} {
		_, err := store.Dispatch(ctx, TargetSelected{Ref: ref})
		require.NoError(t, err)
	}

	unsubscribe()
	_, err := store.Dispatch(ctx, TargetSelected{Ref: ""})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"poster_title", "poster_abstract"}, seen, "dropped events are not broadcast")
}

func TestConcurrentDispatchIsSerialized(t *testing.T) {
	store, ctx := runStore(t)
	snap, err := store.Dispatch(ctx, SessionResetRequested{})
	require.NoError(t, err)
	_, err = store.Dispatch(ctx, SessionCreated{Ticket: snap.Ticket(), PosterID: "p1", Document: doc("AI", poster.PreviewPending)})
	require.NoError(t, err)

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Dispatch(ctx, UserMessageAppended{Text: "hi"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	final := store.Snapshot()
	assert.Len(t, final.ChatLog, 1+n)
	seen := make(map[string]bool)
	for _, m := range final.ChatLog {
		assert.False(t, seen[m.ID], "duplicate message id %s", m.ID)
		seen[m.ID] = true
	}
}

func TestDispatchAfterStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	store := NewStore()
	go store.Run(ctx)
	cancel()

	select {
	case <-store.Done():
	case <-time.After(time.Second):
		t.Fatal("store did not stop")
	}

	_, err := store.Dispatch(context.Background(), SystemNoteAppended{Text: "late"})
	assert.ErrorIs(t, err, ErrStopped)
}

func TestRunTwice(t *testing.T) {
	store, ctx := runStore(t)
	assert.Error(t, store.Run(ctx))
}
