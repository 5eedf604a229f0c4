package tools

import (
	"context"
	"fmt"

	"github.com/fhuber/dozent/pkg/debug"
	"github.com/fhuber/dozent/pkg/provider"
)

// Registry maps tool names to handlers and exposes the catalog in
// registration order.
//
// The sources slot shared through SourceProvider tools is caller-managed:
// one exchange reads LastSources after generation and calls ResetSources
// before the next. Concurrent exchanges need a registry each.
type Registry struct {
	tools map[string]Tool
	order []string
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register adds a tool. Registering a name twice overwrites the previous
// entry and keeps the original catalog position.
func (r *Registry) Register(t Tool) {
	name := t.Name()
	if _, exists := r.tools[name]; !exists {
		r.order = append(r.order, name)
	}
	r.tools[name] = t
	debug.Log("tools", "tool registered", "name", name)
}

// Get returns the tool registered under name.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// ExecuteTool invokes the named tool. An unknown name yields a literal
// not-found message with a nil error, so the generation loop never has
// to special-case a missing tool. Handler errors are propagated.
func (r *Registry) ExecuteTool(ctx context.Context, name string, args map[string]any) (string, error) {
	t, ok := r.tools[name]
	if !ok {
		return fmt.Sprintf("Tool '%s' not found", name), nil
	}
	return t.Execute(ctx, args)
}

// Definitions returns the tool catalog in registration order, in the
// function-calling format the model backend expects.
func (r *Registry) Definitions() []provider.Tool {
	defs := make([]provider.Tool, 0, len(r.order))
	for _, name := range r.order {
		d := r.tools[name].Definition()
		defs = append(defs, provider.Tool{
			Type: "function",
			Function: provider.FunctionDef{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  d.Parameters,
			},
		})
	}
	return defs
}

// LastSources returns the sources of the first registered tool that
// tracked any. Reading does not clear them; callers reset explicitly.
func (r *Registry) LastSources() []string {
	for _, name := range r.order {
		if sp, ok := r.tools[name].(SourceProvider); ok {
			if sources := sp.LastSources(); len(sources) > 0 {
				return sources
			}
		}
	}
	return nil
}

// ResetSources clears the tracked sources of every source-providing tool.
func (r *Registry) ResetSources() {
	for _, name := range r.order {
		if sp, ok := r.tools[name].(SourceProvider); ok {
			sp.ResetSources()
		}
	}
}
