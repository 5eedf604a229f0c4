package mcptool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/fhuber/dozent/pkg/tools"
)

// remoteTool adapts one discovered MCP tool to the tools.Tool interface.
type remoteTool struct {
	client *Client
	def    tools.Definition
}

var _ tools.Tool = (*remoteTool)(nil)

func newRemoteTool(client *Client, t *mcp.Tool) (*remoteTool, error) {
	var params json.RawMessage
	if t.InputSchema != nil {
		data, err := json.Marshal(t.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("marshaling input schema: %w", err)
		}
		params = data
	}

	return &remoteTool{
		client: client,
		def: tools.Definition{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  params,
		},
	}, nil
}

func (t *remoteTool) Name() string { return t.def.Name }

func (t *remoteTool) Definition() tools.Definition { return t.def }

// Execute forwards the call to the MCP server. Server-reported tool
// errors and transport failures both surface as errors; the generation
// loop turns them into diagnostic tool results.
func (t *remoteTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	session := t.client.session
	if session == nil {
		return "", fmt.Errorf("MCP client %q not connected", t.client.cfg.Name)
	}

	result, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      t.def.Name,
		Arguments: args,
	})
	if err != nil {
		return "", fmt.Errorf("MCP tool call failed: %w", err)
	}

	output := textContent(result)
	if result.IsError {
		return "", fmt.Errorf("%s", output)
	}
	return output, nil
}

// textContent joins the text parts of a tool result.
func textContent(result *mcp.CallToolResult) string {
	var output string
	for _, content := range result.Content {
		if tc, ok := content.(*mcp.TextContent); ok {
			if output != "" {
				output += "\n"
			}
			output += tc.Text
		}
	}
	return output
}
