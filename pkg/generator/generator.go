package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fhuber/dozent/pkg/debug"
	"github.com/fhuber/dozent/pkg/observability"
	"github.com/fhuber/dozent/pkg/provider"
)

// Defaults for inference parameters.
const (
	DefaultMaxRounds           = 2
	DefaultReasoningEffort     = "low"
	DefaultMaxCompletionTokens = 800
)

// ToolExecutor invokes a tool by name. Implementations report individual
// tool failures as errors; the loop converts them into diagnostic tool
// results instead of aborting the exchange.
type ToolExecutor interface {
	ExecuteTool(ctx context.Context, name string, args map[string]any) (string, error)
}

// Options configures a Generator. Zero values fall back to the defaults.
type Options struct {
	Model               string
	MaxRounds           int
	ReasoningEffort     string
	MaxCompletionTokens int
}

// Generator drives the bounded tool-calling loop against a model backend.
type Generator struct {
	backend   provider.Provider
	model     string
	maxRounds int
	effort    string
	maxTokens int
}

// New creates a Generator for the given backend.
func New(backend provider.Provider, opts Options) *Generator {
	if opts.MaxRounds <= 0 {
		opts.MaxRounds = DefaultMaxRounds
	}
	if opts.ReasoningEffort == "" {
		opts.ReasoningEffort = DefaultReasoningEffort
	}
	if opts.MaxCompletionTokens <= 0 {
		opts.MaxCompletionTokens = DefaultMaxCompletionTokens
	}

	return &Generator{
		backend:   backend,
		model:     opts.Model,
		maxRounds: opts.MaxRounds,
		effort:    opts.ReasoningEffort,
		maxTokens: opts.MaxCompletionTokens,
	}
}

// Generate answers one query. history is prior conversation text appended
// to the system prompt, catalog is the tool schema list offered to the
// model, and executor resolves requested tool calls. Both catalog and
// executor may be empty or nil.
//
// When the model requests tools but no executor was supplied, the raw
// content of that response is returned as-is, even when it is empty.
// This mirrors long-standing behavior callers rely on; see DESIGN.md.
func (g *Generator) Generate(ctx context.Context, query, history string, catalog []provider.Tool, executor ToolExecutor) (string, error) {
	system := SystemPrompt
	if history != "" {
		system = fmt.Sprintf("%s\n\nPrevious conversation:\n%s", SystemPrompt, history)
	}

	messages := []provider.Message{
		provider.SystemMessage(system),
		provider.UserMessage(query),
	}

	resp, err := g.complete(ctx, messages, catalog)
	if err != nil {
		return "", err
	}

	if resp.FinishReason == provider.FinishToolCalls && executor != nil {
		return g.runToolRounds(ctx, resp, messages, catalog, executor)
	}

	observability.GenerationRounds.Observe(0)
	return resp.Message.Text(), nil
}

// runToolRounds executes up to maxRounds of tool-request resolution. Each
// round appends the assistant's tool-call message verbatim, resolves every
// requested call with exactly one tool result, and asks the model again
// with the catalog still offered. If the budget runs out while the model
// keeps requesting tools, one last call is made with the catalog withheld;
// its content is returned unconditionally. That forced call reuses the
// message list as of the end of the last round, so the unresolved
// tool-call message is not part of it.
func (g *Generator) runToolRounds(ctx context.Context, resp *provider.Response, messages []provider.Message, catalog []provider.Tool, executor ToolExecutor) (string, error) {
	rounds := 0

	for rounds < g.maxRounds {
		messages = append(messages, resp.Message)

		for _, call := range resp.Message.ToolCalls {
			result := g.executeCall(ctx, executor, call)
			messages = append(messages, provider.ToolResultMessage(call.ID, result))
		}

		rounds++
		debug.Log("generator", "tool round completed",
			"round", rounds,
			"calls", len(resp.Message.ToolCalls),
		)

		var err error
		resp, err = g.complete(ctx, messages, catalog)
		if err != nil {
			return "", err
		}

		if resp.FinishReason != provider.FinishToolCalls {
			observability.GenerationRounds.Observe(float64(rounds))
			return resp.Message.Text(), nil
		}
	}

	debug.Log("generator", "round budget exhausted, forcing final answer", "rounds", rounds)

	final, err := g.complete(ctx, messages, nil)
	if err != nil {
		return "", err
	}

	observability.GenerationRounds.Observe(float64(rounds))
	return final.Message.Text(), nil
}

// executeCall resolves a single tool call. Argument decode failures and
// executor errors both become diagnostic result text so the model can
// react; sibling calls in the same round are unaffected.
func (g *Generator) executeCall(ctx context.Context, executor ToolExecutor, call provider.ToolCall) string {
	name := call.Function.Name

	var args map[string]any
	if call.Function.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
			observability.ToolExecutionsTotal.WithLabelValues(name, "error").Inc()
			return fmt.Sprintf("Error executing tool: invalid arguments for '%s': %s", name, err.Error())
		}
	}

	result, err := executor.ExecuteTool(ctx, name, args)
	if err != nil {
		observability.ToolExecutionsTotal.WithLabelValues(name, "error").Inc()
		debug.Log("generator", "tool execution failed", "tool", name, "error", err.Error())
		return fmt.Sprintf("Error executing tool: %s", err.Error())
	}

	observability.ToolExecutionsTotal.WithLabelValues(name, "success").Inc()
	return result
}

// complete issues one model call. A non-empty catalog is offered with
// tool choice "auto"; a nil catalog disables tool calling entirely.
func (g *Generator) complete(ctx context.Context, messages []provider.Message, catalog []provider.Tool) (*provider.Response, error) {
	maxTokens := g.maxTokens
	req := &provider.Request{
		Model:               g.model,
		Messages:            messages,
		ReasoningEffort:     g.effort,
		MaxCompletionTokens: &maxTokens,
	}
	if len(catalog) > 0 {
		req.Tools = catalog
		req.ToolChoice = "auto"
	}

	start := time.Now()
	resp, err := g.backend.Complete(ctx, req)
	elapsed := time.Since(start).Seconds()

	observability.ModelLatency.WithLabelValues(g.backend.Name(), g.model).Observe(elapsed)
	if err != nil {
		observability.ModelRequestsTotal.WithLabelValues(g.backend.Name(), g.model, "error").Inc()
		return nil, err
	}
	observability.ModelRequestsTotal.WithLabelValues(g.backend.Name(), g.model, "success").Inc()
	observability.ModelTokensTotal.WithLabelValues(g.backend.Name(), g.model, "input").Add(float64(resp.Usage.InputTokens))
	observability.ModelTokensTotal.WithLabelValues(g.backend.Name(), g.model, "output").Add(float64(resp.Usage.OutputTokens))

	debug.Log("generator", "model call completed",
		"finish_reason", resp.FinishReason,
		"tool_calls", len(resp.Message.ToolCalls),
		"latency_s", elapsed,
	)

	return resp, nil
}
