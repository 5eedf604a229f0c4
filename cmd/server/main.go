// Command server runs the dozent course-materials assistant API.
//
// Configuration is loaded from a YAML file (-config flag, DOZENT_CONFIG
// env var, ./config.yaml, /etc/dozent/config.yaml) with DOZENT_* env
// var overrides. See pkg/config for the full schema.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/fhuber/dozent/pkg/auth"
	"github.com/fhuber/dozent/pkg/auth/apikey"
	authjwt "github.com/fhuber/dozent/pkg/auth/jwt"
	"github.com/fhuber/dozent/pkg/config"
	"github.com/fhuber/dozent/pkg/generator"
	"github.com/fhuber/dozent/pkg/observability"
	"github.com/fhuber/dozent/pkg/provider/openai"
	"github.com/fhuber/dozent/pkg/rag"
	"github.com/fhuber/dozent/pkg/session"
	sessionpg "github.com/fhuber/dozent/pkg/session/postgres"
	"github.com/fhuber/dozent/pkg/tools"
	"github.com/fhuber/dozent/pkg/tools/course"
	"github.com/fhuber/dozent/pkg/tools/mcptool"
	"github.com/fhuber/dozent/pkg/transport"
	"github.com/fhuber/dozent/pkg/vectorstore"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx := context.Background()

	// Model backend.
	prov, err := openai.New(openai.Config{
		BaseURL: cfg.Model.BaseURL,
		APIKey:  cfg.Model.APIKey,
		Timeout: cfg.Model.Timeout,
	})
	if err != nil {
		return fmt.Errorf("creating provider: %w", err)
	}
	defer prov.Close()

	gen := generator.New(prov, generator.Options{
		Model:               cfg.Model.Name,
		MaxRounds:           cfg.Model.MaxToolRounds,
		ReasoningEffort:     cfg.Model.ReasoningEffort,
		MaxCompletionTokens: cfg.Model.MaxCompletionTokens,
	})

	// Vector store and course tools.
	embedder := vectorstore.NewEmbeddingClient(cfg.Embeddings.URL, cfg.Embeddings.Model, cfg.Embeddings.APIKey)
	backend := vectorstore.NewQdrant(cfg.VectorStore.URL)
	store := vectorstore.NewStore(backend, embedder, cfg.VectorStore.MaxResults)

	registry := tools.NewRegistry()
	registry.Register(course.NewSearchTool(store))
	registry.Register(course.NewOutlineTool(store))

	// Remote MCP tools.
	for _, srv := range cfg.MCP.Servers {
		client := mcptool.NewClient(mcptool.ServerConfig{
			Name:      srv.Name,
			URL:       srv.URL,
			Transport: srv.Transport,
			Headers:   srv.Headers,
		})
		if err := client.Connect(ctx, nil); err != nil {
			return fmt.Errorf("connecting to MCP server %s: %w", srv.Name, err)
		}
		defer client.Close()
		if err := client.RegisterAll(ctx, registry); err != nil {
			return fmt.Errorf("registering tools from %s: %w", srv.Name, err)
		}
		logger.Info("mcp server connected", "name", srv.Name, "url", srv.URL)
	}

	// Session history.
	var sessionStore session.Store
	switch cfg.Sessions.Type {
	case "postgres":
		pg, err := sessionpg.New(ctx, sessionpg.Config{
			DSN:            cfg.Sessions.Postgres.DSN,
			MaxConns:       cfg.Sessions.Postgres.MaxConns,
			MigrateOnStart: cfg.Sessions.Postgres.MigrateOnStart,
		})
		if err != nil {
			return fmt.Errorf("connecting to postgres: %w", err)
		}
		sessionStore = pg
		logger.Info("sessions enabled", "type", "postgres")
	default:
		sessionStore = session.NewMemoryStore()
		logger.Info("sessions enabled", "type", "memory")
	}
	defer sessionStore.Close()

	sessions := session.NewManager(sessionStore, cfg.Sessions.MaxHistory)

	system := rag.New(gen, registry, sessions, store)

	// HTTP surface.
	handler := transport.NewHandler(system, logger)
	mux := handler.Routes()
	var root http.Handler = mux
	if cfg.Observability.Metrics.Enabled {
		transport.MountMetrics(mux, cfg.Observability.Metrics.Path)
		root = observability.MetricsMiddleware(root)
	}
	if mw := authMiddleware(cfg); mw != nil {
		root = mw(root)
	}

	srv := transport.NewServer(root,
		transport.WithAddr(fmt.Sprintf(":%d", cfg.Server.Port)),
		transport.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout),
		transport.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
		transport.WithLogger(logger),
	)

	logger.Info("dozent starting",
		"port", cfg.Server.Port,
		"model", cfg.Model.Name,
		"tools", len(registry.Definitions()),
	)
	return srv.ListenAndServe(ctx)
}

// authMiddleware builds the authentication middleware from config.
// Returns nil when authentication is disabled.
func authMiddleware(cfg *config.Config) func(http.Handler) http.Handler {
	if cfg.Auth.Type == "none" {
		return nil
	}

	chain := &auth.AuthChain{DefaultDecision: auth.No}
	switch cfg.Auth.Type {
	case "apikey":
		entries := make([]apikey.RawKeyEntry, 0, len(cfg.Auth.APIKeys))
		for _, k := range cfg.Auth.APIKeys {
			entries = append(entries, apikey.RawKeyEntry{
				Key:     k.Key,
				Subject: k.Subject,
				Scopes:  k.Scopes,
			})
		}
		chain.Authenticators = append(chain.Authenticators, apikey.New(entries))
	case "jwt":
		chain.Authenticators = append(chain.Authenticators,
			authjwt.New([]byte(cfg.Auth.JWT.Secret), cfg.Auth.JWT.Issuer, cfg.Auth.JWT.Audience))
	}

	bypass := []string{"/healthz", cfg.Observability.Metrics.Path}
	return auth.Middleware(chain, bypass)
}
