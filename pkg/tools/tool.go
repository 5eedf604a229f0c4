package tools

import (
	"context"
	"encoding/json"
)

// Definition describes a tool to the model: its name, what it does, and
// a JSON Schema for its arguments.
type Definition struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}

// Tool is a named capability the model may request be invoked.
type Tool interface {
	// Name returns the tool's unique name.
	Name() string

	// Definition returns the schema description exposed to the model.
	Definition() Definition

	// Execute runs the tool with the decoded arguments and returns text
	// for the model. Errors are surfaced to the model as diagnostic
	// tool results by the generation loop, never as hard failures.
	Execute(ctx context.Context, args map[string]any) (string, error)
}

// SourceProvider is implemented by tools that perform retrieval and
// track the sources of their most recent execution.
type SourceProvider interface {
	// LastSources returns the sources from the most recent execution.
	// Reading does not clear them.
	LastSources() []string

	// ResetSources clears the tracked sources.
	ResetSources()
}
