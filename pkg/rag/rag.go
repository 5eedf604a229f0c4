// Package rag orchestrates one question/answer exchange: session
// history in, tool-augmented generation, evidence collection, and
// history recording on the way out.
package rag

import (
	"context"
	"fmt"

	"github.com/fhuber/dozent/pkg/api"
	"github.com/fhuber/dozent/pkg/debug"
	"github.com/fhuber/dozent/pkg/generator"
	"github.com/fhuber/dozent/pkg/provider"
	"github.com/fhuber/dozent/pkg/tools"
)

// AnswerGenerator is the generation loop surface the system needs.
type AnswerGenerator interface {
	Generate(ctx context.Context, query, history string, catalog []provider.Tool, executor generator.ToolExecutor) (string, error)
}

// SessionTracker manages session IDs and bounded conversation history.
type SessionTracker interface {
	NewSession() string
	History(ctx context.Context, sessionID string) (string, error)
	RecordExchange(ctx context.Context, sessionID, userMessage, assistantMessage string) error
}

// CourseAnalytics reports on the ingested corpus.
type CourseAnalytics interface {
	CourseCount(ctx context.Context) (int, error)
	CourseTitles(ctx context.Context) ([]string, error)
}

// System wires the pieces of one deployment together.
type System struct {
	generator AnswerGenerator
	registry  *tools.Registry
	sessions  SessionTracker
	analytics CourseAnalytics
}

// New creates a System.
func New(gen AnswerGenerator, registry *tools.Registry, sessions SessionTracker, analytics CourseAnalytics) *System {
	return &System{
		generator: gen,
		registry:  registry,
		sessions:  sessions,
		analytics: analytics,
	}
}

// Answer is the result of one exchange.
type Answer struct {
	Text      string
	Sources   []string
	SessionID string
}

// Query runs one exchange. An empty sessionID starts a new session.
// The registry's evidence slot is drained into the answer and reset
// before the next exchange.
func (s *System) Query(ctx context.Context, query, sessionID string) (*Answer, error) {
	if sessionID == "" {
		sessionID = s.sessions.NewSession()
	}

	history, err := s.sessions.History(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}

	text, err := s.generator.Generate(ctx, query, history, s.registry.Definitions(), s.registry)
	if err != nil {
		return nil, err
	}

	sources := s.registry.LastSources()
	s.registry.ResetSources()

	if err := s.sessions.RecordExchange(ctx, sessionID, query, text); err != nil {
		return nil, fmt.Errorf("recording exchange: %w", err)
	}

	debug.Log("generator", "exchange completed",
		"session_id", sessionID,
		"sources", len(sources),
	)

	return &Answer{
		Text:      text,
		Sources:   sources,
		SessionID: sessionID,
	}, nil
}

// CourseStats returns corpus analytics for the courses endpoint.
func (s *System) CourseStats(ctx context.Context) (*api.CourseStats, error) {
	count, err := s.analytics.CourseCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting courses: %w", err)
	}
	titles, err := s.analytics.CourseTitles(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing courses: %w", err)
	}
	return &api.CourseStats{
		TotalCourses: count,
		CourseTitles: titles,
	}, nil
}
