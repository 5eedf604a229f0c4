package config

import (
	"errors"
	"fmt"
)

// Validate checks the configuration for required fields and valid values.
// Returns an error with a descriptive field path on failure.
func (c *Config) Validate() error {
	var errs []error

	if c.Model.BaseURL == "" {
		errs = append(errs, fmt.Errorf("model.base_url is required"))
	}
	if c.Model.Name == "" {
		errs = append(errs, fmt.Errorf("model.name is required"))
	}
	if c.Model.MaxToolRounds < 0 {
		errs = append(errs, fmt.Errorf("model.max_tool_rounds must be >= 0, got %d", c.Model.MaxToolRounds))
	}
	if c.Model.MaxCompletionTokens <= 0 {
		errs = append(errs, fmt.Errorf("model.max_completion_tokens must be > 0, got %d", c.Model.MaxCompletionTokens))
	}

	if c.Server.Port <= 0 {
		errs = append(errs, fmt.Errorf("server.port must be > 0, got %d", c.Server.Port))
	}

	if c.Embeddings.URL == "" {
		errs = append(errs, fmt.Errorf("embeddings.url is required"))
	}

	if c.VectorStore.URL == "" {
		errs = append(errs, fmt.Errorf("vector_store.url is required"))
	}
	if c.VectorStore.MaxResults <= 0 || c.VectorStore.MaxResults > 20 {
		errs = append(errs, fmt.Errorf("vector_store.max_results must be in 1..20, got %d", c.VectorStore.MaxResults))
	}

	if c.Ingest.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("ingest.chunk_size must be > 0, got %d", c.Ingest.ChunkSize))
	}
	if c.Ingest.ChunkOverlap < 0 || c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize {
		errs = append(errs, fmt.Errorf("ingest.chunk_overlap must be in 0..chunk_size-1, got %d", c.Ingest.ChunkOverlap))
	}

	switch c.Sessions.Type {
	case "memory", "postgres":
		// valid
	default:
		errs = append(errs, fmt.Errorf("sessions.type must be \"memory\" or \"postgres\", got %q", c.Sessions.Type))
	}
	if c.Sessions.MaxHistory < 0 {
		errs = append(errs, fmt.Errorf("sessions.max_history must be >= 0, got %d", c.Sessions.MaxHistory))
	}
	if c.Sessions.Type == "postgres" {
		if c.Sessions.Postgres.DSN == "" && c.Sessions.Postgres.DSNFile == "" {
			errs = append(errs, fmt.Errorf("sessions.postgres.dsn or sessions.postgres.dsn_file is required when sessions.type is \"postgres\""))
		}
	}

	switch c.Auth.Type {
	case "none", "apikey", "jwt":
		// valid
	default:
		errs = append(errs, fmt.Errorf("auth.type must be \"none\", \"apikey\", or \"jwt\", got %q", c.Auth.Type))
	}
	if c.Auth.Type == "apikey" && len(c.Auth.APIKeys) == 0 {
		errs = append(errs, fmt.Errorf("auth.api_keys is required when auth.type is \"apikey\""))
	}
	if c.Auth.Type == "jwt" && c.Auth.JWT.Secret == "" && c.Auth.JWT.SecretFile == "" {
		errs = append(errs, fmt.Errorf("auth.jwt.secret or auth.jwt.secret_file is required when auth.type is \"jwt\""))
	}

	for i, srv := range c.MCP.Servers {
		if srv.Name == "" {
			errs = append(errs, fmt.Errorf("mcp.servers[%d].name is required", i))
		}
		if srv.URL == "" {
			errs = append(errs, fmt.Errorf("mcp.servers[%d].url is required", i))
		}
		switch srv.Transport {
		case "", "sse", "streamable-http":
			// valid
		default:
			errs = append(errs, fmt.Errorf("mcp.servers[%d].transport must be \"sse\" or \"streamable-http\", got %q", i, srv.Transport))
		}
	}

	return errors.Join(errs...)
}
