package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/fhuber/dozent/pkg/provider"
)

// mockBackend replays scripted responses and records every request.
type mockBackend struct {
	responses []*provider.Response
	requests  []*provider.Request
	err       error
	failAt    int // 1-based call index that returns err; 0 means first call when err set
}

func (m *mockBackend) Name() string { return "mock" }

func (m *mockBackend) Complete(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	// Snapshot messages so later appends by the loop don't mutate what we
	// recorded for this call.
	snapshot := *req
	snapshot.Messages = append([]provider.Message(nil), req.Messages...)
	m.requests = append(m.requests, &snapshot)

	call := len(m.requests)
	if m.err != nil && (m.failAt == 0 || call == m.failAt) {
		return nil, m.err
	}

	if len(m.responses) == 0 {
		return nil, fmt.Errorf("mock backend: no scripted response for call %d", call)
	}
	resp := m.responses[0]
	if len(m.responses) > 1 {
		m.responses = m.responses[1:]
	}
	return resp, nil
}

func (m *mockBackend) Close() error { return nil }

// mockExecutor records tool invocations and returns scripted results.
type mockExecutor struct {
	calls   []executedCall
	results map[string]string
	errs    map[string]error
}

type executedCall struct {
	name string
	args map[string]any
}

func (m *mockExecutor) ExecuteTool(ctx context.Context, name string, args map[string]any) (string, error) {
	m.calls = append(m.calls, executedCall{name: name, args: args})
	if err, ok := m.errs[name]; ok {
		return "", err
	}
	if result, ok := m.results[name]; ok {
		return result, nil
	}
	return "ok", nil
}

func textResponse(content string) *provider.Response {
	return &provider.Response{
		Message:      provider.Message{Role: provider.RoleAssistant, Content: content},
		FinishReason: provider.FinishStop,
	}
}

func toolCallResponse(calls ...provider.ToolCall) *provider.Response {
	return &provider.Response{
		Message: provider.Message{
			Role:      provider.RoleAssistant,
			Content:   nil,
			ToolCalls: calls,
		},
		FinishReason: provider.FinishToolCalls,
	}
}

func searchCall(id, query string) provider.ToolCall {
	return provider.ToolCall{
		ID:   id,
		Type: "function",
		Function: provider.FunctionCall{
			Name:      "search",
			Arguments: fmt.Sprintf(`{"query": %q}`, query),
		},
	}
}

func searchCatalog() []provider.Tool {
	return []provider.Tool{{
		Type: "function",
		Function: provider.FunctionDef{
			Name:        "search",
			Description: "Search course content",
			Parameters:  json.RawMessage(`{"type": "object"}`),
		},
	}}
}

func TestGenerateWithoutTools(t *testing.T) {
	backend := &mockBackend{responses: []*provider.Response{textResponse("Paris is the capital of France.")}}
	g := New(backend, Options{Model: "m"})

	answer, err := g.Generate(context.Background(), "capital of France?", "", nil, nil)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if answer != "Paris is the capital of France." {
		t.Errorf("unexpected answer: %q", answer)
	}
	if len(backend.requests) != 1 {
		t.Fatalf("expected exactly 1 model call, got %d", len(backend.requests))
	}

	req := backend.requests[0]
	if len(req.Tools) != 0 || req.ToolChoice != "" {
		t.Errorf("expected no tools in request, got %d tools, tool_choice %q", len(req.Tools), req.ToolChoice)
	}
	if req.ReasoningEffort != "low" {
		t.Errorf("expected default reasoning effort low, got %q", req.ReasoningEffort)
	}
	if req.MaxCompletionTokens == nil || *req.MaxCompletionTokens != 800 {
		t.Errorf("expected default max_completion_tokens 800, got %v", req.MaxCompletionTokens)
	}
}

func TestGenerateStopAtRoundZero(t *testing.T) {
	backend := &mockBackend{responses: []*provider.Response{textResponse("direct answer")}}
	exec := &mockExecutor{}
	g := New(backend, Options{Model: "m"})

	answer, err := g.Generate(context.Background(), "q", "", searchCatalog(), exec)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if answer != "direct answer" {
		t.Errorf("unexpected answer: %q", answer)
	}
	if len(backend.requests) != 1 {
		t.Errorf("expected 1 model call, got %d", len(backend.requests))
	}
	if len(exec.calls) != 0 {
		t.Errorf("expected no tool executions, got %d", len(exec.calls))
	}
	if backend.requests[0].ToolChoice != "auto" {
		t.Errorf("expected tool_choice auto when catalog offered, got %q", backend.requests[0].ToolChoice)
	}
}

func TestGenerateSingleRound(t *testing.T) {
	backend := &mockBackend{responses: []*provider.Response{
		toolCallResponse(searchCall("call_1", "closures")),
		textResponse("Closures capture their environment."),
	}}
	exec := &mockExecutor{results: map[string]string{"search": "lesson text about closures"}}
	g := New(backend, Options{Model: "m"})

	answer, err := g.Generate(context.Background(), "what are closures?", "", searchCatalog(), exec)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if answer != "Closures capture their environment." {
		t.Errorf("unexpected answer: %q", answer)
	}
	if len(backend.requests) != 2 {
		t.Fatalf("expected 2 model calls, got %d", len(backend.requests))
	}
	if len(exec.calls) != 1 {
		t.Fatalf("expected 1 tool execution, got %d", len(exec.calls))
	}
	if exec.calls[0].name != "search" || exec.calls[0].args["query"] != "closures" {
		t.Errorf("tool call arguments not decoded correctly: %+v", exec.calls[0])
	}

	// The follow-up call must carry the assistant tool-call message
	// verbatim followed by exactly one result per request, and keep the
	// catalog offered.
	followup := backend.requests[1]
	if len(followup.Tools) != 1 || followup.ToolChoice != "auto" {
		t.Errorf("expected catalog still offered on follow-up call")
	}
	msgs := followup.Messages
	if len(msgs) != 4 {
		t.Fatalf("expected 4 messages (system, user, assistant, tool), got %d", len(msgs))
	}
	if msgs[2].Role != provider.RoleAssistant || len(msgs[2].ToolCalls) != 1 || msgs[2].ToolCalls[0].ID != "call_1" {
		t.Errorf("assistant tool-call message not preserved verbatim: %+v", msgs[2])
	}
	if msgs[3].Role != provider.RoleTool || msgs[3].ToolCallID != "call_1" {
		t.Errorf("tool result message missing or not matched to its call: %+v", msgs[3])
	}
	if msgs[3].Text() != "lesson text about closures" {
		t.Errorf("unexpected tool result content: %q", msgs[3].Text())
	}
}

func TestGenerateRoundBudgetForcesFinalCall(t *testing.T) {
	backend := &mockBackend{responses: []*provider.Response{
		toolCallResponse(searchCall("call_1", "python")),
		toolCallResponse(searchCall("call_2", "java")),
		toolCallResponse(searchCall("call_3", "rust")),
		textResponse("Here's a comparison."),
	}}
	exec := &mockExecutor{results: map[string]string{"search": "some results"}}
	g := New(backend, Options{Model: "m", MaxRounds: 2})

	answer, err := g.Generate(context.Background(), "compare python and java", "", searchCatalog(), exec)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if answer != "Here's a comparison." {
		t.Errorf("unexpected answer: %q", answer)
	}

	// Initial + 2 in-round follow-ups + 1 forced final.
	if len(backend.requests) != 4 {
		t.Fatalf("expected 4 model calls, got %d", len(backend.requests))
	}
	if len(exec.calls) != 2 {
		t.Errorf("expected 2 tool executions (one per round), got %d", len(exec.calls))
	}

	final := backend.requests[3]
	if len(final.Tools) != 0 || final.ToolChoice != "" {
		t.Errorf("forced final call must not offer tools, got %d tools, tool_choice %q",
			len(final.Tools), final.ToolChoice)
	}

	// The round-2 response (call_3) is never resolved: the forced call's
	// message list ends with round 2's tool result, not with another
	// assistant tool-call message.
	last := final.Messages[len(final.Messages)-1]
	if last.Role != provider.RoleTool || last.ToolCallID != "call_2" {
		t.Errorf("forced call must end at the last resolved round, got role %q tool_call_id %q",
			last.Role, last.ToolCallID)
	}
	for _, msg := range final.Messages {
		for _, tc := range msg.ToolCalls {
			if tc.ID == "call_3" {
				t.Error("unresolved tool-call message must not be replayed in the forced call")
			}
		}
	}
}

func TestGenerateSecondRoundStops(t *testing.T) {
	backend := &mockBackend{responses: []*provider.Response{
		toolCallResponse(searchCall("call_1", "python")),
		toolCallResponse(searchCall("call_2", "java")),
		textResponse("Here's a comparison."),
	}}
	exec := &mockExecutor{results: map[string]string{"search": "some results"}}
	g := New(backend, Options{Model: "m", MaxRounds: 2})

	answer, err := g.Generate(context.Background(), "compare python and java", "", searchCatalog(), exec)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if answer != "Here's a comparison." {
		t.Errorf("unexpected answer: %q", answer)
	}
	if len(backend.requests) != 3 {
		t.Fatalf("expected 3 model calls when round 2's response stops, got %d", len(backend.requests))
	}
	if len(exec.calls) != 2 {
		t.Errorf("expected 2 tool executions, got %d", len(exec.calls))
	}
}

func TestGenerateToolFailureIsolation(t *testing.T) {
	calls := toolCallResponse(
		provider.ToolCall{
			ID:   "call_bad",
			Type: "function",
			Function: provider.FunctionCall{
				Name:      "broken",
				Arguments: `{"x": 1}`,
			},
		},
		searchCall("call_good", "topic"),
	)
	backend := &mockBackend{responses: []*provider.Response{
		calls,
		textResponse("answered despite the failure"),
	}}
	exec := &mockExecutor{
		results: map[string]string{"search": "relevant content"},
		errs:    map[string]error{"broken": errors.New("index unavailable")},
	}
	g := New(backend, Options{Model: "m"})

	answer, err := g.Generate(context.Background(), "q", "", searchCatalog(), exec)
	if err != nil {
		t.Fatalf("Generate must not fail on tool errors: %v", err)
	}
	if answer != "answered despite the failure" {
		t.Errorf("unexpected answer: %q", answer)
	}

	// Both sibling calls resolved, each result matched to its call ID.
	if len(exec.calls) != 2 {
		t.Fatalf("expected both sibling calls executed, got %d", len(exec.calls))
	}
	msgs := backend.requests[1].Messages
	var badResult, goodResult string
	for _, msg := range msgs {
		switch msg.ToolCallID {
		case "call_bad":
			badResult = msg.Text()
		case "call_good":
			goodResult = msg.Text()
		}
	}
	if !strings.HasPrefix(badResult, "Error executing tool: ") {
		t.Errorf("expected error marker in failed tool result, got %q", badResult)
	}
	if !strings.Contains(badResult, "index unavailable") {
		t.Errorf("expected original failure description in tool result, got %q", badResult)
	}
	if goodResult != "relevant content" {
		t.Errorf("sibling call result lost: %q", goodResult)
	}
}

func TestGenerateMalformedArgumentsBecomeDiagnostic(t *testing.T) {
	backend := &mockBackend{responses: []*provider.Response{
		toolCallResponse(provider.ToolCall{
			ID:   "call_1",
			Type: "function",
			Function: provider.FunctionCall{
				Name:      "search",
				Arguments: `{not json`,
			},
		}),
		textResponse("recovered"),
	}}
	exec := &mockExecutor{}
	g := New(backend, Options{Model: "m"})

	answer, err := g.Generate(context.Background(), "q", "", searchCatalog(), exec)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if answer != "recovered" {
		t.Errorf("unexpected answer: %q", answer)
	}
	if len(exec.calls) != 0 {
		t.Errorf("executor must not run with undecodable arguments, got %d calls", len(exec.calls))
	}

	result := backend.requests[1].Messages[3]
	if !strings.HasPrefix(result.Text(), "Error executing tool: ") {
		t.Errorf("expected diagnostic tool result, got %q", result.Text())
	}
}

func TestGenerateExecutorAbsentReturnsRawContent(t *testing.T) {
	backend := &mockBackend{responses: []*provider.Response{
		toolCallResponse(searchCall("call_1", "anything")),
	}}
	g := New(backend, Options{Model: "m"})

	answer, err := g.Generate(context.Background(), "q", "", searchCatalog(), nil)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if answer != "" {
		t.Errorf("expected raw null content returned as empty string, got %q", answer)
	}
	if len(backend.requests) != 1 {
		t.Errorf("expected 1 model call with no executor, got %d", len(backend.requests))
	}
}

func TestGenerateEmptyCatalogWithExecutor(t *testing.T) {
	backend := &mockBackend{responses: []*provider.Response{textResponse("plain answer")}}
	exec := &mockExecutor{}
	g := New(backend, Options{Model: "m"})

	answer, err := g.Generate(context.Background(), "q", "", []provider.Tool{}, exec)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if answer != "plain answer" {
		t.Errorf("unexpected answer: %q", answer)
	}

	req := backend.requests[0]
	if len(req.Tools) != 0 || req.ToolChoice != "" {
		t.Errorf("empty catalog must behave as no tools offered, got %d tools, tool_choice %q",
			len(req.Tools), req.ToolChoice)
	}
}

func TestGenerateModelErrorPropagates(t *testing.T) {
	wantErr := errors.New("backend connection error")

	t.Run("initial call", func(t *testing.T) {
		backend := &mockBackend{err: wantErr}
		g := New(backend, Options{Model: "m"})

		_, err := g.Generate(context.Background(), "q", "", nil, nil)
		if !errors.Is(err, wantErr) {
			t.Fatalf("expected backend error to propagate, got %v", err)
		}
	})

	t.Run("mid-loop call", func(t *testing.T) {
		backend := &mockBackend{
			responses: []*provider.Response{toolCallResponse(searchCall("call_1", "q"))},
			err:       wantErr,
			failAt:    2,
		}
		exec := &mockExecutor{}
		g := New(backend, Options{Model: "m"})

		_, err := g.Generate(context.Background(), "q", "", searchCatalog(), exec)
		if !errors.Is(err, wantErr) {
			t.Fatalf("expected mid-loop backend error to propagate, got %v", err)
		}
	})
}

func TestGenerateHistoryInSystemPrompt(t *testing.T) {
	backend := &mockBackend{responses: []*provider.Response{textResponse("ok")}}
	g := New(backend, Options{Model: "m"})

	history := "User: hello\nAssistant: hi"
	if _, err := g.Generate(context.Background(), "q", history, nil, nil); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	system := backend.requests[0].Messages[0]
	if system.Role != provider.RoleSystem {
		t.Fatalf("expected first message to be system, got %q", system.Role)
	}
	if !strings.Contains(system.Text(), "Previous conversation:\n"+history) {
		t.Errorf("history not appended to system prompt")
	}
	if !strings.HasPrefix(system.Text(), SystemPrompt) {
		t.Errorf("system prompt text missing")
	}
}

func TestGenerateEmptyContentReturnedVerbatim(t *testing.T) {
	backend := &mockBackend{responses: []*provider.Response{textResponse("")}}
	g := New(backend, Options{Model: "m"})

	answer, err := g.Generate(context.Background(), "q", "", nil, nil)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if answer != "" {
		t.Errorf("expected empty content returned verbatim, got %q", answer)
	}
}
