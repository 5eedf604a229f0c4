package session

import (
	"context"
	"sync"
)

// memoryMaxExchanges bounds per-session growth; only the most recent
// exchanges are retained.
const memoryMaxExchanges = 50

// MemoryStore is an in-memory Store for development and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]Exchange
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string][]Exchange),
	}
}

// AppendExchange records one exchange, trimming the oldest entries once
// the per-session cap is reached.
func (s *MemoryStore) AppendExchange(ctx context.Context, sessionID string, ex Exchange) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	exchanges := append(s.sessions[sessionID], ex)
	if len(exchanges) > memoryMaxExchanges {
		exchanges = exchanges[len(exchanges)-memoryMaxExchanges:]
	}
	s.sessions[sessionID] = exchanges
	return nil
}

// RecentExchanges returns up to limit exchanges, oldest first.
func (s *MemoryStore) RecentExchanges(ctx context.Context, sessionID string, limit int) ([]Exchange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	exchanges := s.sessions[sessionID]
	if len(exchanges) > limit {
		exchanges = exchanges[len(exchanges)-limit:]
	}

	out := make([]Exchange, len(exchanges))
	copy(out, exchanges)
	return out, nil
}

// DeleteSession removes the session's history.
func (s *MemoryStore) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }
