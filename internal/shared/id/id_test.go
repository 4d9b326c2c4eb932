package id

import (
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageIDsSortInCreationOrder(t *testing.T) {
	gen := NewGenerator()
	prev := gen.NewMessage()
	for i := 0; i < 100; i++ {
		next := gen.NewMessage()
		require.True(t, strings.HasPrefix(next, "msg_"))
		assert.Less(t, prev, next)
		prev = next
	}
	_, err := ulid.Parse(strings.TrimPrefix(prev, "msg_"))
	assert.NoError(t, err)
}

func TestConcurrentGeneration(t *testing.T) {
	gen := NewGenerator()
	const n = 200

	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v := gen.NewMessage()
			mu.Lock()
			seen[v] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, seen, n)
}

func TestDefaultIsShared(t *testing.T) {
	assert.Same(t, Default(), Default())
	assert.True(t, strings.HasPrefix(NewConnID().String(), "conn_"))
}

func TestRequestIDIsUUID(t *testing.T) {
	_, err := uuid.Parse(NewRequestID().String())
	assert.NoError(t, err)
	assert.NotEqual(t, NewRequestID(), NewRequestID())
}
