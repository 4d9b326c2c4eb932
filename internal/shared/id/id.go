// Package id provides ID generation for the studio.
//
// Chat messages and WebSocket connections get prefixed ULIDs (msg_*, conn_*)
// so transcripts sort by creation time and log lines show what an ID names.
// Request and trace IDs are UUIDs, the format the poster service logs.
package id

import (
	"crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// ConnID identifies a WebSocket subscriber.
type ConnID string

// RequestID identifies one HTTP request, inbound or outbound.
type RequestID string

func (c ConnID) String() string    { return string(c) }
func (r RequestID) String() string { return string(r) }

// Generator hands out ULIDs that strictly increase, even within one
// millisecond.
type Generator struct {
	mu      sync.Mutex
	entropy io.Reader
	now     func() time.Time
}

// NewGenerator returns a generator backed by crypto/rand.
func NewGenerator() *Generator {
	return &Generator{entropy: ulid.Monotonic(rand.Reader, 0), now: time.Now}
}

var shared = sync.OnceValue(NewGenerator)

// Default returns the process-wide generator.
func Default() *Generator { return shared() }

// Prefixed returns prefix + "_" + a new ULID.
func (g *Generator) Prefixed(prefix string) string {
	g.mu.Lock()
	u := ulid.MustNew(ulid.Timestamp(g.now()), g.entropy)
	g.mu.Unlock()
	return prefix + "_" + u.String()
}

// NewMessage returns a chat message ID.
func (g *Generator) NewMessage() string { return g.Prefixed("msg") }

// NewConnID returns a WebSocket connection ID.
func NewConnID() ConnID { return ConnID(Default().Prefixed("conn")) }

// NewRequestID returns a random UUID.
func NewRequestID() RequestID { return RequestID(uuid.NewString()) }
