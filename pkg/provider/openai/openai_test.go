package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fhuber/dozent/pkg/api"
	"github.com/fhuber/dozent/pkg/provider"
)

func TestNewRequiresBaseURL(t *testing.T) {
	_, err := New(Config{})
	if err == nil {
		t.Fatal("expected error for missing BaseURL")
	}
}

func TestCompleteTextResponse(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "chatcmpl-1",
			"model": "test-model",
			"choices": [{
				"index": 0,
				"message": {"role": "assistant", "content": "Hello there"},
				"finish_reason": "stop"
			}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 4, "total_tokens": 16}
		}`))
	}))
	defer server.Close()

	p, err := New(Config{BaseURL: server.URL, APIKey: "secret"})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer p.Close()

	maxTokens := 800
	resp, err := p.Complete(context.Background(), &provider.Request{
		Model:               "test-model",
		Messages:            []provider.Message{provider.UserMessage("hi")},
		ReasoningEffort:     "low",
		MaxCompletionTokens: &maxTokens,
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	if gotPath != "/v1/chat/completions" {
		t.Errorf("expected path /v1/chat/completions, got %q", gotPath)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("expected bearer auth, got %q", gotAuth)
	}
	if gotBody["reasoning_effort"] != "low" {
		t.Errorf("expected reasoning_effort low, got %v", gotBody["reasoning_effort"])
	}
	if gotBody["max_completion_tokens"] != float64(800) {
		t.Errorf("expected max_completion_tokens 800, got %v", gotBody["max_completion_tokens"])
	}
	if resp.Message.Text() != "Hello there" {
		t.Errorf("expected content 'Hello there', got %q", resp.Message.Text())
	}
	if resp.FinishReason != provider.FinishStop {
		t.Errorf("expected finish reason stop, got %q", resp.FinishReason)
	}
	if resp.Usage.TotalTokens != 16 {
		t.Errorf("expected 16 total tokens, got %d", resp.Usage.TotalTokens)
	}
}

func TestCompleteToolCallResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"model": "test-model",
			"choices": [{
				"index": 0,
				"message": {
					"role": "assistant",
					"content": null,
					"tool_calls": [{
						"id": "call_abc",
						"type": "function",
						"function": {"name": "search_course_content", "arguments": "{\"query\": \"closures\"}"}
					}]
				},
				"finish_reason": "tool_calls"
			}]
		}`))
	}))
	defer server.Close()

	p, err := New(Config{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer p.Close()

	resp, err := p.Complete(context.Background(), &provider.Request{
		Model:    "test-model",
		Messages: []provider.Message{provider.UserMessage("hi")},
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	if resp.FinishReason != provider.FinishToolCalls {
		t.Fatalf("expected finish reason tool_calls, got %q", resp.FinishReason)
	}
	if len(resp.Message.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(resp.Message.ToolCalls))
	}
	tc := resp.Message.ToolCalls[0]
	if tc.ID != "call_abc" {
		t.Errorf("expected tool call ID call_abc, got %q", tc.ID)
	}
	if tc.Function.Name != "search_course_content" {
		t.Errorf("expected function search_course_content, got %q", tc.Function.Name)
	}

	// Null content must survive a round trip so the assistant message can
	// be replayed verbatim.
	if resp.Message.Content != nil {
		t.Errorf("expected nil content, got %v", resp.Message.Content)
	}
	raw, err := json.Marshal(resp.Message)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var onWire map[string]any
	if err := json.Unmarshal(raw, &onWire); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if v, ok := onWire["content"]; !ok || v != nil {
		t.Errorf("expected content to serialize as null, got %v (present=%v)", v, ok)
	}
}

func TestCompleteErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantType api.ErrorType
		wantMsg  string
	}{
		{
			name:     "bad request",
			status:   http.StatusBadRequest,
			body:     `{"error": {"message": "model not found", "type": "invalid_request_error"}}`,
			wantType: api.ErrorTypeInvalidRequest,
			wantMsg:  "model not found",
		},
		{
			name:     "unauthorized",
			status:   http.StatusUnauthorized,
			body:     `{"error": {"message": "bad key"}}`,
			wantType: api.ErrorTypeModelError,
			wantMsg:  "bad key",
		},
		{
			name:     "rate limited",
			status:   http.StatusTooManyRequests,
			body:     ``,
			wantType: api.ErrorTypeTooManyRequests,
			wantMsg:  "backend rate limit exceeded",
		},
		{
			name:     "server error unparseable body",
			status:   http.StatusBadGateway,
			body:     `upstream exploded`,
			wantType: api.ErrorTypeModelError,
			wantMsg:  "backend server error (HTTP 502)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			p, err := New(Config{BaseURL: server.URL})
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			defer p.Close()

			_, err = p.Complete(context.Background(), &provider.Request{Model: "m"})
			if err == nil {
				t.Fatal("expected error")
			}

			var apiErr *api.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected APIError, got %T: %v", err, err)
			}
			if apiErr.Type != tt.wantType {
				t.Errorf("expected error type %q, got %q", tt.wantType, apiErr.Type)
			}
			if apiErr.Message != tt.wantMsg {
				t.Errorf("expected message %q, got %q", tt.wantMsg, apiErr.Message)
			}
		})
	}
}

func TestCompleteNetworkError(t *testing.T) {
	p, err := New(Config{BaseURL: "http://127.0.0.1:1"})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer p.Close()

	_, err = p.Complete(context.Background(), &provider.Request{Model: "m"})
	if err == nil {
		t.Fatal("expected connection error")
	}

	var apiErr *api.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T", err)
	}
	if apiErr.Type != api.ErrorTypeModelError {
		t.Errorf("expected model_error, got %q", apiErr.Type)
	}
}

func TestCompleteNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"model": "m", "choices": []}`))
	}))
	defer server.Close()

	p, err := New(Config{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer p.Close()

	_, err = p.Complete(context.Background(), &provider.Request{Model: "m"})
	if err == nil {
		t.Fatal("expected error for empty choices")
	}
}
