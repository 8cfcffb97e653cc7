// Package sessions keeps short-term per-conversation memory for the
// natural-language front end. Each session holds a bounded ring of turns;
// the oldest turn is evicted when the ring is full. Nothing here is
// persisted and the ticket engine does not depend on it.
package sessions

import (
	"sync"
	"time"
)

type Turn struct {
	Role string
	Text string
	TS   time.Time
}

type Memory struct {
	mu       sync.Mutex
	capacity int
	turns    map[string][]Turn
}

const defaultCapacity = 10

func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Memory{
		capacity: capacity,
		turns:    make(map[string][]Turn),
	}
}

// Append records one turn for the session, evicting the oldest turn when
// the ring is at capacity.
func (m *Memory) Append(sessionID string, turn Turn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ring := m.turns[sessionID]
	if len(ring) >= m.capacity {
		ring = ring[len(ring)-m.capacity+1:]
	}
	m.turns[sessionID] = append(ring, turn)
}

// History returns a copy of the session's turns, oldest first.
func (m *Memory) History(sessionID string) []Turn {
	m.mu.Lock()
	defer m.mu.Unlock()

	ring := m.turns[sessionID]
	out := make([]Turn, len(ring))
	copy(out, ring)
	return out
}

// Clear drops the session entirely.
func (m *Memory) Clear(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.turns, sessionID)
}
