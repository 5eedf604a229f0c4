// Package mcptool connects to MCP servers and exposes their tools to
// the generation loop, so external capabilities (calendars, ticket
// systems, custom search) sit next to the built-in course tools in the
// same registry.
package mcptool

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/fhuber/dozent/pkg/debug"
	"github.com/fhuber/dozent/pkg/tools"
)

// ServerConfig describes one MCP server connection.
type ServerConfig struct {
	// Name identifies the server in logs and errors.
	Name string

	// URL is the server endpoint.
	URL string

	// Transport selects the wire transport: "streamable-http" (default)
	// or "sse".
	Transport string

	// Headers are added to every HTTP request (e.g. Authorization).
	Headers map[string]string
}

// Client wraps an MCP SDK client and session for a single server
// connection. It handles connection lifecycle and tool discovery.
type Client struct {
	cfg     ServerConfig
	client  *mcp.Client
	session *mcp.ClientSession

	mu sync.Mutex
}

// NewClient creates a Client for the given server configuration.
// Call Connect to establish the connection.
func NewClient(cfg ServerConfig) *Client {
	return &Client{cfg: cfg}
}

// Connect establishes the MCP connection, performing the protocol
// handshake. For testing, a non-nil transport bypasses URL-based
// transport creation.
func (c *Client) Connect(ctx context.Context, transport mcp.Transport) error {
	c.client = mcp.NewClient(
		&mcp.Implementation{
			Name:    "dozent",
			Version: "1.0.0",
		},
		&mcp.ClientOptions{
			Capabilities: &mcp.ClientCapabilities{},
		},
	)

	if transport == nil {
		t, err := c.createTransport()
		if err != nil {
			return fmt.Errorf("creating transport for %q: %w", c.cfg.Name, err)
		}
		transport = t
	}

	session, err := c.client.Connect(ctx, transport, nil)
	if err != nil {
		return fmt.Errorf("connecting to MCP server %q: %w", c.cfg.Name, err)
	}
	c.session = session

	debug.Log("mcp", "connected", "server", c.cfg.Name)
	return nil
}

func (c *Client) createTransport() (mcp.Transport, error) {
	httpClient := c.buildHTTPClient()

	switch c.cfg.Transport {
	case "sse":
		transport := &mcp.SSEClientTransport{Endpoint: c.cfg.URL}
		if httpClient != nil {
			transport.HTTPClient = httpClient
		}
		return transport, nil

	case "streamable-http", "":
		transport := &mcp.StreamableClientTransport{Endpoint: c.cfg.URL}
		if httpClient != nil {
			transport.HTTPClient = httpClient
		}
		return transport, nil

	default:
		return nil, fmt.Errorf("unsupported transport type %q", c.cfg.Transport)
	}
}

// buildHTTPClient returns an HTTP client that injects the configured
// headers, or nil when none are configured.
func (c *Client) buildHTTPClient() *http.Client {
	if len(c.cfg.Headers) == 0 {
		return nil
	}
	return &http.Client{
		Transport: &headerTransport{
			base:    http.DefaultTransport,
			headers: c.cfg.Headers,
		},
	}
}

type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	return t.base.RoundTrip(req)
}

// Tools lists the server's tools, each wrapped as a registrable
// tools.Tool bound to this client's session.
func (c *Client) Tools(ctx context.Context) ([]tools.Tool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return nil, fmt.Errorf("MCP client %q not connected", c.cfg.Name)
	}

	var wrapped []tools.Tool
	for tool, err := range c.session.Tools(ctx, nil) {
		if err != nil {
			return nil, fmt.Errorf("listing tools from %q: %w", c.cfg.Name, err)
		}
		rt, convErr := newRemoteTool(c, tool)
		if convErr != nil {
			return nil, fmt.Errorf("converting tool %q from %q: %w", tool.Name, c.cfg.Name, convErr)
		}
		wrapped = append(wrapped, rt)
	}

	debug.Log("mcp", "tools discovered", "server", c.cfg.Name, "count", len(wrapped))
	return wrapped, nil
}

// RegisterAll discovers the server's tools and registers each in the
// registry.
func (c *Client) RegisterAll(ctx context.Context, registry *tools.Registry) error {
	discovered, err := c.Tools(ctx)
	if err != nil {
		return err
	}
	for _, t := range discovered {
		registry.Register(t)
	}
	return nil
}

// Close closes the MCP session.
func (c *Client) Close() error {
	if c.session != nil {
		return c.session.Close()
	}
	return nil
}
