// Package session tracks conversation history per session so follow-up
// questions carry context. History is bounded: only the most recent
// exchanges are replayed into the model's system prompt.
package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fhuber/dozent/pkg/api"
	"github.com/fhuber/dozent/pkg/debug"
)

// DefaultMaxHistory is the number of exchanges replayed as context.
const DefaultMaxHistory = 2

// Exchange is one user question and its answer.
type Exchange struct {
	UserMessage      string
	AssistantMessage string
	CreatedAt        time.Time
}

// Store persists exchanges per session.
type Store interface {
	// AppendExchange records one completed exchange for the session.
	AppendExchange(ctx context.Context, sessionID string, ex Exchange) error

	// RecentExchanges returns up to limit exchanges for the session,
	// oldest first.
	RecentExchanges(ctx context.Context, sessionID string, limit int) ([]Exchange, error)

	// DeleteSession removes all exchanges of the session.
	DeleteSession(ctx context.Context, sessionID string) error

	// Close releases store resources.
	Close() error
}

// Manager issues session IDs and renders bounded history text.
type Manager struct {
	store      Store
	maxHistory int
}

// NewManager creates a Manager. maxHistory bounds how many exchanges are
// rendered into history text; zero disables history entirely.
func NewManager(store Store, maxHistory int) *Manager {
	if maxHistory < 0 {
		maxHistory = DefaultMaxHistory
	}
	return &Manager{store: store, maxHistory: maxHistory}
}

// NewSession returns a fresh session ID.
func (m *Manager) NewSession() string {
	id := api.NewSessionID()
	debug.Log("sessions", "session created", "session_id", id)
	return id
}

// RecordExchange stores a completed question/answer pair.
func (m *Manager) RecordExchange(ctx context.Context, sessionID, userMessage, assistantMessage string) error {
	return m.store.AppendExchange(ctx, sessionID, Exchange{
		UserMessage:      userMessage,
		AssistantMessage: assistantMessage,
		CreatedAt:        time.Now(),
	})
}

// History renders the most recent exchanges as conversation text, or
// empty when the session has none or history is disabled.
func (m *Manager) History(ctx context.Context, sessionID string) (string, error) {
	if m.maxHistory == 0 || sessionID == "" {
		return "", nil
	}

	exchanges, err := m.store.RecentExchanges(ctx, sessionID, m.maxHistory)
	if err != nil {
		return "", fmt.Errorf("loading session history: %w", err)
	}

	lines := make([]string, 0, len(exchanges)*2)
	for _, ex := range exchanges {
		lines = append(lines,
			"User: "+ex.UserMessage,
			"Assistant: "+ex.AssistantMessage,
		)
	}
	return strings.Join(lines, "\n"), nil
}

// Clear removes the session's history.
func (m *Manager) Clear(ctx context.Context, sessionID string) error {
	return m.store.DeleteSession(ctx, sessionID)
}
