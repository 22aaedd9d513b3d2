// Package history stores bounded per-conversation turn sequences.
package history

import (
	"context"
	"sync"
	"time"

	contractx "github.com/atelierline/concierge/agent/contract"
)

// MaxTurns is the retained window per conversation: 5 exchanges.
const MaxTurns = 10

const defaultMaxConversations = 10_000

// Store is the conversation-history contract used by the orchestrator.
type Store interface {
	Append(ctx context.Context, conversationID string, turns ...contractx.Turn) error
	Recent(ctx context.Context, conversationID string) ([]contractx.Turn, error)
}

type entry struct {
	turns   []contractx.Turn
	touched time.Time
}

// MemoryStore is the in-process Store. Each conversation keeps at most
// MaxTurns turns (oldest evicted first); conversations past the configured
// cap are evicted least-recently-touched first, so the key set is bounded.
// All mutations are serialized behind one mutex.
type MemoryStore struct {
	mu               sync.Mutex
	conversations    map[string]*entry
	maxConversations int
	now              func() time.Time
}

type MemoryOption func(*MemoryStore)

func WithMaxConversations(n int) MemoryOption {
	return func(s *MemoryStore) {
		if n > 0 {
			s.maxConversations = n
		}
	}
}

func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		conversations:    make(map[string]*entry),
		maxConversations: defaultMaxConversations,
		now:              time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *MemoryStore) Append(ctx context.Context, conversationID string, turns ...contractx.Turn) error {
	if conversationID == "" || len(turns) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.conversations[conversationID]
	if !ok {
		e = &entry{}
		s.conversations[conversationID] = e
	}
	e.turns = append(e.turns, turns...)
	if len(e.turns) > MaxTurns {
		e.turns = append([]contractx.Turn(nil), e.turns[len(e.turns)-MaxTurns:]...)
	}
	e.touched = s.now()

	s.evictLocked()
	return nil
}

func (s *MemoryStore) Recent(ctx context.Context, conversationID string) ([]contractx.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.conversations[conversationID]
	if !ok {
		return nil, nil
	}
	out := make([]contractx.Turn, len(e.turns))
	copy(out, e.turns)
	return out, nil
}

// Len reports the number of tracked conversations.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conversations)
}

func (s *MemoryStore) evictLocked() {
	for len(s.conversations) > s.maxConversations {
		var (
			oldestID string
			oldestAt time.Time
			first    = true
		)
		for id, e := range s.conversations {
			if first || e.touched.Before(oldestAt) {
				oldestID = id
				oldestAt = e.touched
				first = false
			}
		}
		delete(s.conversations, oldestID)
	}
}
