// Package config provides unified configuration for the dozent service.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (DOZENT_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import "time"

// Config holds all configuration for the dozent service.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Model         ModelConfig         `yaml:"model"`
	Embeddings    EmbeddingsConfig    `yaml:"embeddings"`
	VectorStore   VectorStoreConfig   `yaml:"vector_store"`
	Ingest        IngestConfig        `yaml:"ingest"`
	Sessions      SessionsConfig      `yaml:"sessions"`
	Auth          AuthConfig          `yaml:"auth"`
	MCP           MCPConfig           `yaml:"mcp"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`             // default: 8080
	ReadTimeout     time.Duration `yaml:"read_timeout"`     // default: 30s
	WriteTimeout    time.Duration `yaml:"write_timeout"`    // default: 120s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // default: 30s
}

// ModelConfig holds chat model backend settings.
type ModelConfig struct {
	BaseURL             string        `yaml:"base_url"` // required
	APIKey              string        `yaml:"api_key"`
	APIKeyFile          string        `yaml:"api_key_file"` // _file variant for api_key
	Name                string        `yaml:"name"`         // required
	ReasoningEffort     string        `yaml:"reasoning_effort"`      // default: "low"
	MaxCompletionTokens int           `yaml:"max_completion_tokens"` // default: 800
	MaxToolRounds       int           `yaml:"max_tool_rounds"`       // default: 2
	Timeout             time.Duration `yaml:"timeout"`               // default: 120s
}

// EmbeddingsConfig holds embedding backend settings.
type EmbeddingsConfig struct {
	URL        string `yaml:"url"`   // required
	Model      string `yaml:"model"` // default: "text-embedding-3-small"
	APIKey     string `yaml:"api_key"`
	APIKeyFile string `yaml:"api_key_file"`
}

// VectorStoreConfig holds Qdrant settings.
type VectorStoreConfig struct {
	URL        string `yaml:"url"`         // default: "http://localhost:6333"
	MaxResults int    `yaml:"max_results"` // default: 5, must be 1..20
}

// IngestConfig holds document chunking settings.
type IngestConfig struct {
	DocsPath     string `yaml:"docs_path"`     // default: "./docs"
	ChunkSize    int    `yaml:"chunk_size"`    // default: 800
	ChunkOverlap int    `yaml:"chunk_overlap"` // default: 100, must be < chunk_size
}

// SessionsConfig holds conversation history settings.
type SessionsConfig struct {
	Type       string         `yaml:"type"`        // "memory" or "postgres", default: "memory"
	MaxHistory int            `yaml:"max_history"` // exchanges remembered, default: 2, 0 disables
	Postgres   PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	DSN            string `yaml:"dsn"`
	DSNFile        string `yaml:"dsn_file"` // _file variant for dsn
	MaxConns       int32  `yaml:"max_conns"` // default: 25
	MigrateOnStart bool   `yaml:"migrate_on_start"`
}

// AuthConfig holds authentication settings.
type AuthConfig struct {
	Type    string         `yaml:"type"`     // "none", "apikey", or "jwt", default: "none"
	APIKeys []APIKeyConfig `yaml:"api_keys"` // entries for type=apikey
	JWT     JWTConfig      `yaml:"jwt"`      // settings for type=jwt
}

// APIKeyConfig describes a single API key entry.
type APIKeyConfig struct {
	Key     string   `yaml:"key"`
	KeyFile string   `yaml:"key_file"` // _file variant for key
	Subject string   `yaml:"subject"`
	Scopes  []string `yaml:"scopes"`
}

// JWTConfig holds JWT validation settings.
type JWTConfig struct {
	Secret     string `yaml:"secret"`
	SecretFile string `yaml:"secret_file"` // _file variant for secret
	Issuer     string `yaml:"issuer"`
	Audience   string `yaml:"audience"`
}

// MCPConfig holds MCP (Model Context Protocol) server settings.
type MCPConfig struct {
	Servers []MCPServerConfig `yaml:"servers"`
}

// MCPServerConfig describes a single MCP server connection.
type MCPServerConfig struct {
	Name      string            `yaml:"name"`
	Transport string            `yaml:"transport"` // "sse" or "streamable-http"
	URL       string            `yaml:"url"`
	Headers   map[string]string `yaml:"headers"`
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    120 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Model: ModelConfig{
			ReasoningEffort:     "low",
			MaxCompletionTokens: 800,
			MaxToolRounds:       2,
			Timeout:             120 * time.Second,
		},
		Embeddings: EmbeddingsConfig{
			Model: "text-embedding-3-small",
		},
		VectorStore: VectorStoreConfig{
			URL:        "http://localhost:6333",
			MaxResults: 5,
		},
		Ingest: IngestConfig{
			DocsPath:     "./docs",
			ChunkSize:    800,
			ChunkOverlap: 100,
		},
		Sessions: SessionsConfig{
			Type:       "memory",
			MaxHistory: 2,
			Postgres: PostgresConfig{
				MaxConns: 25,
			},
		},
		Auth: AuthConfig{
			Type: "none",
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
	}
}
