package mcptool

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/fhuber/dozent/pkg/tools"
)

// setupTestServer creates a test MCP server with tools and connects it
// to a client via in-memory transports. Returns the client ready for use.
func setupTestServer(t *testing.T, serverTools map[string]mcp.ToolHandler) *Client {
	t.Helper()

	server := mcp.NewServer(
		&mcp.Implementation{Name: "test-server", Version: "1.0.0"},
		nil,
	)

	for name, handler := range serverTools {
		server.AddTool(
			&mcp.Tool{
				Name:        name,
				Description: "Test tool: " + name,
				InputSchema: map[string]any{"type": "object"},
			},
			handler,
		)
	}

	serverTransport, clientTransport := mcp.NewInMemoryTransports()

	ctx := context.Background()
	go func() {
		_ = server.Run(ctx, serverTransport)
	}()

	client := NewClient(ServerConfig{Name: "test-server"})
	if err := client.Connect(ctx, clientTransport); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	t.Cleanup(func() {
		_ = client.Close()
	})

	return client
}

func TestClientDiscoversTools(t *testing.T) {
	client := setupTestServer(t, map[string]mcp.ToolHandler{
		"get_deadlines": func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: "Friday"}},
			}, nil
		},
		"get_schedule": func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: "Mondays 10:00"}},
			}, nil
		},
	})

	discovered, err := client.Tools(context.Background())
	if err != nil {
		t.Fatalf("Tools failed: %v", err)
	}
	if len(discovered) != 2 {
		t.Fatalf("expected 2 tools, got %d", len(discovered))
	}

	names := []string{discovered[0].Name(), discovered[1].Name()}
	sort.Strings(names)
	if names[0] != "get_deadlines" || names[1] != "get_schedule" {
		t.Errorf("unexpected tool names: %v", names)
	}

	def := discovered[0].Definition()
	if def.Description == "" || len(def.Parameters) == 0 {
		t.Errorf("tool definition incomplete: %+v", def)
	}
}

func TestRemoteToolExecute(t *testing.T) {
	client := setupTestServer(t, map[string]mcp.ToolHandler{
		"echo": func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var args map[string]any
			_ = json.Unmarshal(req.Params.Arguments, &args)
			text, _ := args["text"].(string)
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: "echo: " + text}},
			}, nil
		},
	})

	discovered, err := client.Tools(context.Background())
	if err != nil {
		t.Fatalf("Tools failed: %v", err)
	}

	out, err := discovered[0].Execute(context.Background(), map[string]any{"text": "hello"})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if out != "echo: hello" {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestRemoteToolServerErrorBecomesError(t *testing.T) {
	client := setupTestServer(t, map[string]mcp.ToolHandler{
		"failing": func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return &mcp.CallToolResult{
				IsError: true,
				Content: []mcp.Content{&mcp.TextContent{Text: "backend exploded"}},
			}, nil
		},
	})

	discovered, err := client.Tools(context.Background())
	if err != nil {
		t.Fatalf("Tools failed: %v", err)
	}

	_, err = discovered[0].Execute(context.Background(), nil)
	if err == nil {
		t.Fatal("expected error for failing tool")
	}
	if !strings.Contains(err.Error(), "backend exploded") {
		t.Errorf("expected server error text, got %v", err)
	}
}

func TestRegisterAll(t *testing.T) {
	client := setupTestServer(t, map[string]mcp.ToolHandler{
		"get_deadlines": func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: "Friday"}},
			}, nil
		},
	})

	registry := tools.NewRegistry()
	if err := client.RegisterAll(context.Background(), registry); err != nil {
		t.Fatalf("RegisterAll failed: %v", err)
	}

	out, err := registry.ExecuteTool(context.Background(), "get_deadlines", nil)
	if err != nil {
		t.Fatalf("ExecuteTool failed: %v", err)
	}
	if out != "Friday" {
		t.Errorf("unexpected output: %q", out)
	}
}
