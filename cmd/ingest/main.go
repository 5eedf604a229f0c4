// Command ingest loads course documents into the vector store.
//
// It parses every .txt file in the configured docs folder, chunks the
// lesson content, and upserts catalog and content points into Qdrant.
// Courses already present in the catalog are skipped unless -clear is
// given.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/fhuber/dozent/pkg/config"
	"github.com/fhuber/dozent/pkg/ingest"
	"github.com/fhuber/dozent/pkg/vectorstore"
)

func main() {
	if err := run(); err != nil {
		slog.Error("ingest failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config file")
	docsPath := flag.String("docs", "", "docs folder (overrides config)")
	clear := flag.Bool("clear", false, "drop existing collections before ingesting")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	dir := cfg.Ingest.DocsPath
	if *docsPath != "" {
		dir = *docsPath
	}

	embedder := vectorstore.NewEmbeddingClient(cfg.Embeddings.URL, cfg.Embeddings.Model, cfg.Embeddings.APIKey)
	backend := vectorstore.NewQdrant(cfg.VectorStore.URL)
	store := vectorstore.NewStore(backend, embedder, cfg.VectorStore.MaxResults)

	loader := ingest.NewLoader(store, cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap)

	courses, chunks, err := loader.IngestFolder(context.Background(), dir, *clear)
	if err != nil {
		return fmt.Errorf("ingesting %s: %w", dir, err)
	}

	fmt.Printf("Loaded %d courses with %d chunks\n", courses, chunks)
	return nil
}
