package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/fhuber/dozent/pkg/debug"
	"github.com/fhuber/dozent/pkg/observability"
)

// Collection names. The catalog holds one point per course, keyed by a
// title-derived UUID so re-ingesting a course overwrites its metadata.
// The content collection holds the embedded chunks.
const (
	CatalogCollection = "course_catalog"
	ContentCollection = "course_content"
)

// Store combines the embedding client and the vector backend into the
// course-material search surface used by the tools and the ingester.
type Store struct {
	backend    Backend
	embedder   EmbeddingClient
	maxResults int
}

// NewStore creates a Store. maxResults bounds Search result counts.
func NewStore(backend Backend, embedder EmbeddingClient, maxResults int) *Store {
	return &Store{
		backend:    backend,
		embedder:   embedder,
		maxResults: maxResults,
	}
}

func pointID(parts ...string) string {
	var key string
	for _, p := range parts {
		key += p + "\x00"
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)).String()
}

// AddCourse writes the course's metadata into the catalog, embedding the
// title so fuzzy course-name matching works.
func (s *Store) AddCourse(ctx context.Context, course Course) error {
	vectors, err := s.embedder.Embed(ctx, []string{course.Title})
	if err != nil {
		return fmt.Errorf("embedding course title: %w", err)
	}

	if err := s.backend.EnsureCollection(ctx, CatalogCollection, len(vectors[0])); err != nil {
		return fmt.Errorf("ensuring catalog collection: %w", err)
	}

	lessonsJSON, err := json.Marshal(course.Lessons)
	if err != nil {
		return fmt.Errorf("marshaling lessons: %w", err)
	}

	point := Point{
		ID:     pointID("course", course.Title),
		Vector: vectors[0],
		Payload: map[string]any{
			"title":        course.Title,
			"course_link":  course.Link,
			"instructor":   course.Instructor,
			"lessons":      string(lessonsJSON),
			"lesson_count": len(course.Lessons),
		},
	}

	if err := s.backend.Upsert(ctx, CatalogCollection, []Point{point}); err != nil {
		return fmt.Errorf("upserting course metadata: %w", err)
	}

	debug.Log("vectorstore", "course added", "title", course.Title, "lessons", len(course.Lessons))
	return nil
}

// AddChunks embeds and writes content chunks. Chunk IDs derive from the
// course title and chunk index, so re-ingestion overwrites in place.
func (s *Store) AddChunks(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding chunks: %w", err)
	}

	if err := s.backend.EnsureCollection(ctx, ContentCollection, len(vectors[0])); err != nil {
		return fmt.Errorf("ensuring content collection: %w", err)
	}

	points := make([]Point, len(chunks))
	for i, c := range chunks {
		payload := map[string]any{
			"content":      c.Content,
			"course_title": c.CourseTitle,
			"chunk_index":  c.ChunkIndex,
		}
		if c.LessonNumber != nil {
			payload["lesson_number"] = *c.LessonNumber
		}
		points[i] = Point{
			ID:      pointID("chunk", c.CourseTitle, fmt.Sprintf("%d", c.ChunkIndex)),
			Vector:  vectors[i],
			Payload: payload,
		}
	}

	if err := s.backend.Upsert(ctx, ContentCollection, points); err != nil {
		return fmt.Errorf("upserting chunks: %w", err)
	}

	observability.IngestedChunksTotal.Add(float64(len(points)))
	return nil
}

// ResolveCourseName maps a possibly partial course name to the title of
// the best-matching catalog entry. An empty result means no course matched.
func (s *Store) ResolveCourseName(ctx context.Context, name string) (string, error) {
	vectors, err := s.embedder.Embed(ctx, []string{name})
	if err != nil {
		return "", fmt.Errorf("embedding course name: %w", err)
	}

	matches, err := s.backend.Search(ctx, CatalogCollection, vectors[0], nil, 1)
	if err != nil {
		return "", fmt.Errorf("searching catalog: %w", err)
	}
	if len(matches) == 0 {
		return "", nil
	}

	title, _ := matches[0].Payload["title"].(string)
	return title, nil
}

// Search finds content chunks matching the query. courseName, when
// non-empty, is resolved against the catalog first; lessonNumber, when
// non-nil, restricts matches to that lesson.
func (s *Store) Search(ctx context.Context, query, courseName string, lessonNumber *int) ([]SearchResult, error) {
	var filters []FieldFilter

	if courseName != "" {
		title, err := s.ResolveCourseName(ctx, courseName)
		if err != nil {
			observability.SearchesTotal.WithLabelValues("error").Inc()
			return nil, err
		}
		if title == "" {
			observability.SearchesTotal.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("No course found matching '%s'", courseName)
		}
		filters = append(filters, FieldFilter{Key: "course_title", Value: title})
	}
	if lessonNumber != nil {
		filters = append(filters, FieldFilter{Key: "lesson_number", Value: *lessonNumber})
	}

	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		observability.SearchesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	matches, err := s.backend.Search(ctx, ContentCollection, vectors[0], filters, s.maxResults)
	if err != nil {
		observability.SearchesTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	results := make([]SearchResult, 0, len(matches))
	for _, m := range matches {
		r := SearchResult{Score: m.Score}
		r.Content, _ = m.Payload["content"].(string)
		r.CourseTitle, _ = m.Payload["course_title"].(string)
		if n, ok := m.Payload["lesson_number"].(float64); ok {
			lesson := int(n)
			r.LessonNumber = &lesson
		}
		results = append(results, r)
	}

	observability.SearchesTotal.WithLabelValues("success").Inc()
	debug.Log("vectorstore", "search completed", "query", debug.Truncate(query, 80), "results", len(results))
	return results, nil
}

// GetCourseOutline returns the full metadata of the course matching the
// given name, or nil when no course matches.
func (s *Store) GetCourseOutline(ctx context.Context, courseName string) (*Course, error) {
	vectors, err := s.embedder.Embed(ctx, []string{courseName})
	if err != nil {
		return nil, fmt.Errorf("embedding course name: %w", err)
	}

	matches, err := s.backend.Search(ctx, CatalogCollection, vectors[0], nil, 1)
	if err != nil {
		return nil, fmt.Errorf("searching catalog: %w", err)
	}
	if len(matches) == 0 {
		return nil, nil
	}

	return courseFromPayload(matches[0].Payload)
}

// GetLessonLink returns the link of the given lesson, or empty when the
// course or lesson is unknown.
func (s *Store) GetLessonLink(ctx context.Context, courseTitle string, lessonNumber int) (string, error) {
	course, err := s.GetCourseOutline(ctx, courseTitle)
	if err != nil || course == nil {
		return "", err
	}
	for _, l := range course.Lessons {
		if l.Number == lessonNumber {
			return l.Link, nil
		}
	}
	return "", nil
}

// CourseCount returns the number of ingested courses.
func (s *Store) CourseCount(ctx context.Context) (int, error) {
	return s.backend.Count(ctx, CatalogCollection)
}

// CourseTitles returns the titles of all ingested courses.
func (s *Store) CourseTitles(ctx context.Context) ([]string, error) {
	matches, err := s.backend.Scroll(ctx, CatalogCollection, 1000)
	if err != nil {
		return nil, fmt.Errorf("listing catalog: %w", err)
	}

	titles := make([]string, 0, len(matches))
	for _, m := range matches {
		if title, ok := m.Payload["title"].(string); ok {
			titles = append(titles, title)
		}
	}
	return titles, nil
}

// ClearAll deletes both collections.
func (s *Store) ClearAll(ctx context.Context) error {
	if err := s.backend.DeleteCollection(ctx, CatalogCollection); err != nil {
		return err
	}
	return s.backend.DeleteCollection(ctx, ContentCollection)
}

func courseFromPayload(payload map[string]any) (*Course, error) {
	course := &Course{}
	course.Title, _ = payload["title"].(string)
	course.Link, _ = payload["course_link"].(string)
	course.Instructor, _ = payload["instructor"].(string)

	if lessonsJSON, ok := payload["lessons"].(string); ok && lessonsJSON != "" {
		if err := json.Unmarshal([]byte(lessonsJSON), &course.Lessons); err != nil {
			return nil, fmt.Errorf("parsing lessons metadata: %w", err)
		}
	}
	return course, nil
}
