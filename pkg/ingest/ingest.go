package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/fhuber/dozent/pkg/debug"
	"github.com/fhuber/dozent/pkg/vectorstore"
)

// embedBatchSize bounds how many chunks are embedded per request.
const embedBatchSize = 64

// CourseStore is the vector store surface the loader needs.
type CourseStore interface {
	AddCourse(ctx context.Context, course vectorstore.Course) error
	AddChunks(ctx context.Context, chunks []vectorstore.Chunk) error
	CourseTitles(ctx context.Context) ([]string, error)
	ClearAll(ctx context.Context) error
}

// Loader ingests course documents into the vector store.
type Loader struct {
	store        CourseStore
	chunkSize    int
	chunkOverlap int
}

// NewLoader creates a Loader. Zero chunk parameters use the defaults.
func NewLoader(store CourseStore, chunkSize, chunkOverlap int) *Loader {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkOverlap <= 0 {
		chunkOverlap = DefaultChunkOverlap
	}
	return &Loader{store: store, chunkSize: chunkSize, chunkOverlap: chunkOverlap}
}

// IngestFile parses and loads one course document. Returns the number
// of chunks written.
func (l *Loader) IngestFile(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	doc, err := ParseDocument(f)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", path, err)
	}

	if err := l.store.AddCourse(ctx, doc.Course); err != nil {
		return 0, err
	}

	chunks := l.chunkDocument(doc)
	if err := l.addChunkBatches(ctx, chunks); err != nil {
		return 0, err
	}

	debug.Log("ingest", "file ingested", "path", path, "course", doc.Course.Title, "chunks", len(chunks))
	return len(chunks), nil
}

// chunkDocument turns a parsed document into embeddable chunks with a
// running index per course.
func (l *Loader) chunkDocument(doc *Document) []vectorstore.Chunk {
	var chunks []vectorstore.Chunk
	index := 0

	add := func(text string, lesson *int) {
		for _, piece := range ChunkText(text, l.chunkSize, l.chunkOverlap) {
			chunks = append(chunks, vectorstore.Chunk{
				Content:      piece,
				CourseTitle:  doc.Course.Title,
				LessonNumber: lesson,
				ChunkIndex:   index,
			})
			index++
		}
	}

	if doc.Preamble != "" {
		add(doc.Preamble, nil)
	}
	for _, lc := range doc.Lessons {
		lesson := lc.Lesson.Number
		add(lc.Text, &lesson)
	}
	return chunks
}

// addChunkBatches writes chunks in bounded batches, embedding up to
// four batches concurrently.
func (l *Loader) addChunkBatches(ctx context.Context, chunks []vectorstore.Chunk) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for start := 0; start < len(chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]
		g.Go(func() error {
			return l.store.AddChunks(ctx, batch)
		})
	}

	return g.Wait()
}

// IngestFolder loads every .txt document in dir, skipping courses whose
// titles are already in the store. With clearExisting, all collections
// are dropped first. Returns courses added and total chunks written.
func (l *Loader) IngestFolder(ctx context.Context, dir string, clearExisting bool) (int, int, error) {
	if clearExisting {
		if err := l.store.ClearAll(ctx); err != nil {
			return 0, 0, fmt.Errorf("clearing store: %w", err)
		}
	}

	existing, err := l.store.CourseTitles(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("listing existing courses: %w", err)
	}
	known := make(map[string]bool, len(existing))
	for _, title := range existing {
		known[title] = true
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, 0, fmt.Errorf("reading %s: %w", dir, err)
	}

	coursesAdded, chunksAdded := 0, 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		path := filepath.Join(dir, entry.Name())

		f, err := os.Open(path)
		if err != nil {
			return coursesAdded, chunksAdded, fmt.Errorf("opening %s: %w", path, err)
		}
		doc, err := ParseDocument(f)
		f.Close()
		if err != nil {
			return coursesAdded, chunksAdded, fmt.Errorf("parsing %s: %w", path, err)
		}

		if known[doc.Course.Title] {
			debug.Log("ingest", "course already ingested, skipping", "title", doc.Course.Title)
			continue
		}

		if err := l.store.AddCourse(ctx, doc.Course); err != nil {
			return coursesAdded, chunksAdded, err
		}
		chunks := l.chunkDocument(doc)
		if err := l.addChunkBatches(ctx, chunks); err != nil {
			return coursesAdded, chunksAdded, err
		}

		known[doc.Course.Title] = true
		coursesAdded++
		chunksAdded += len(chunks)
	}

	return coursesAdded, chunksAdded, nil
}
