package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, DOZENT_CONFIG env, ./config.yaml, /etc/dozent/config.yaml)
//  3. Environment variable overrides
//  4. File reference resolution (_file suffix)
//  5. Validation
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. DOZENT_CONFIG environment variable
// 3. ./config.yaml in the current directory
// 4. /etc/dozent/config.yaml
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	if configPath != "" {
		return configPath
	}

	if envPath := os.Getenv("DOZENT_CONFIG"); envPath != "" {
		return envPath
	}

	candidates := []string{
		"config.yaml",
		"/etc/dozent/config.yaml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnvOverrides maps environment variables to config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DOZENT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("DOZENT_MODEL_URL"); v != "" {
		cfg.Model.BaseURL = v
	}
	if v := os.Getenv("DOZENT_MODEL"); v != "" {
		cfg.Model.Name = v
	}
	if v := os.Getenv("DOZENT_API_KEY"); v != "" {
		cfg.Model.APIKey = v
	}
	if v := os.Getenv("DOZENT_EMBEDDING_URL"); v != "" {
		cfg.Embeddings.URL = v
	}
	if v := os.Getenv("DOZENT_EMBEDDING_MODEL"); v != "" {
		cfg.Embeddings.Model = v
	}
	if v := os.Getenv("DOZENT_EMBEDDING_API_KEY"); v != "" {
		cfg.Embeddings.APIKey = v
	}
	if v := os.Getenv("DOZENT_QDRANT_URL"); v != "" {
		cfg.VectorStore.URL = v
	}
	if v := os.Getenv("DOZENT_MAX_RESULTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.VectorStore.MaxResults = n
		}
	}
	if v := os.Getenv("DOZENT_DOCS_PATH"); v != "" {
		cfg.Ingest.DocsPath = v
	}
	if v := os.Getenv("DOZENT_SESSIONS"); v != "" {
		cfg.Sessions.Type = v
	}
	if v := os.Getenv("DOZENT_MAX_HISTORY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Sessions.MaxHistory = n
		}
	}
	if v := os.Getenv("DOZENT_POSTGRES_DSN"); v != "" {
		cfg.Sessions.Postgres.DSN = v
	}
	if v := os.Getenv("DOZENT_AUTH_TYPE"); v != "" {
		cfg.Auth.Type = v
	}

	// DOZENT_API_KEYS: JSON array of API key configs.
	if v := os.Getenv("DOZENT_API_KEYS"); v != "" {
		var keys []APIKeyConfig
		if err := json.Unmarshal([]byte(v), &keys); err == nil && len(keys) > 0 {
			cfg.Auth.APIKeys = keys
		}
	}

	// DOZENT_MCP_SERVERS: JSON array of MCP server configs.
	if v := os.Getenv("DOZENT_MCP_SERVERS"); v != "" {
		var servers []MCPServerConfig
		if err := json.Unmarshal([]byte(v), &servers); err == nil && len(servers) > 0 {
			cfg.MCP.Servers = servers
		}
	}
}

// resolveFileReferences reads _file fields and populates the corresponding
// value fields. A file reference is only applied when the value field is
// still empty.
func resolveFileReferences(cfg *Config) error {
	if cfg.Model.APIKeyFile != "" && cfg.Model.APIKey == "" {
		val, err := readSecretFile(cfg.Model.APIKeyFile)
		if err != nil {
			return fmt.Errorf("model.api_key_file: %w", err)
		}
		cfg.Model.APIKey = val
	}

	if cfg.Embeddings.APIKeyFile != "" && cfg.Embeddings.APIKey == "" {
		val, err := readSecretFile(cfg.Embeddings.APIKeyFile)
		if err != nil {
			return fmt.Errorf("embeddings.api_key_file: %w", err)
		}
		cfg.Embeddings.APIKey = val
	}

	if cfg.Sessions.Postgres.DSNFile != "" && cfg.Sessions.Postgres.DSN == "" {
		val, err := readSecretFile(cfg.Sessions.Postgres.DSNFile)
		if err != nil {
			return fmt.Errorf("sessions.postgres.dsn_file: %w", err)
		}
		cfg.Sessions.Postgres.DSN = val
	}

	if cfg.Auth.JWT.SecretFile != "" && cfg.Auth.JWT.Secret == "" {
		val, err := readSecretFile(cfg.Auth.JWT.SecretFile)
		if err != nil {
			return fmt.Errorf("auth.jwt.secret_file: %w", err)
		}
		cfg.Auth.JWT.Secret = val
	}

	for i := range cfg.Auth.APIKeys {
		if cfg.Auth.APIKeys[i].KeyFile != "" && cfg.Auth.APIKeys[i].Key == "" {
			val, err := readSecretFile(cfg.Auth.APIKeys[i].KeyFile)
			if err != nil {
				return fmt.Errorf("auth.api_keys[%d].key_file: %w", i, err)
			}
			cfg.Auth.APIKeys[i].Key = val
		}
	}

	return nil
}

// readSecretFile reads a file and returns its content with surrounding
// whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
