package session

import (
	"context"
	"strings"
	"testing"
)

func TestManagerHistoryEmpty(t *testing.T) {
	m := NewManager(NewMemoryStore(), DefaultMaxHistory)

	history, err := m.History(context.Background(), m.NewSession())
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if history != "" {
		t.Errorf("expected empty history for new session, got %q", history)
	}
}

func TestManagerHistoryFormat(t *testing.T) {
	m := NewManager(NewMemoryStore(), DefaultMaxHistory)
	ctx := context.Background()
	id := m.NewSession()

	if err := m.RecordExchange(ctx, id, "What is Python?", "A programming language."); err != nil {
		t.Fatalf("RecordExchange failed: %v", err)
	}

	history, err := m.History(ctx, id)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	want := "User: What is Python?\nAssistant: A programming language."
	if history != want {
		t.Errorf("unexpected history:\n got %q\nwant %q", history, want)
	}
}

func TestManagerHistoryBounded(t *testing.T) {
	m := NewManager(NewMemoryStore(), 2)
	ctx := context.Background()
	id := m.NewSession()

	m.RecordExchange(ctx, id, "first question", "first answer")
	m.RecordExchange(ctx, id, "second question", "second answer")
	m.RecordExchange(ctx, id, "third question", "third answer")

	history, err := m.History(ctx, id)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if strings.Contains(history, "first question") {
		t.Errorf("oldest exchange must be dropped, got %q", history)
	}
	if !strings.Contains(history, "second question") || !strings.Contains(history, "third question") {
		t.Errorf("recent exchanges missing from history: %q", history)
	}
}

func TestManagerHistoryDisabled(t *testing.T) {
	store := NewMemoryStore()
	m := NewManager(store, 0)
	ctx := context.Background()
	id := m.NewSession()

	m.RecordExchange(ctx, id, "question", "answer")

	history, err := m.History(ctx, id)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if history != "" {
		t.Errorf("expected empty history when disabled, got %q", history)
	}
}

func TestManagerSessionIsolation(t *testing.T) {
	m := NewManager(NewMemoryStore(), DefaultMaxHistory)
	ctx := context.Background()
	a := m.NewSession()
	b := m.NewSession()

	if a == b {
		t.Fatal("expected distinct session IDs")
	}

	m.RecordExchange(ctx, a, "question in a", "answer in a")

	history, err := m.History(ctx, b)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if history != "" {
		t.Errorf("history leaked across sessions: %q", history)
	}
}

func TestManagerClear(t *testing.T) {
	m := NewManager(NewMemoryStore(), DefaultMaxHistory)
	ctx := context.Background()
	id := m.NewSession()

	m.RecordExchange(ctx, id, "question", "answer")
	if err := m.Clear(ctx, id); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	history, _ := m.History(ctx, id)
	if history != "" {
		t.Errorf("expected empty history after clear, got %q", history)
	}
}

func TestMemoryStoreTrimsOldExchanges(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	for i := 0; i < memoryMaxExchanges+10; i++ {
		store.AppendExchange(ctx, "sess_x", Exchange{UserMessage: "q", AssistantMessage: "a"})
	}

	exchanges, err := store.RecentExchanges(ctx, "sess_x", memoryMaxExchanges*2)
	if err != nil {
		t.Fatalf("RecentExchanges failed: %v", err)
	}
	if len(exchanges) != memoryMaxExchanges {
		t.Errorf("expected cap of %d exchanges, got %d", memoryMaxExchanges, len(exchanges))
	}
}
