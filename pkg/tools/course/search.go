// Package course provides the course-material tools offered to the
// model: content search and course outlines, both backed by the vector
// store.
package course

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fhuber/dozent/pkg/debug"
	"github.com/fhuber/dozent/pkg/tools"
	"github.com/fhuber/dozent/pkg/vectorstore"
)

// SearchStore is the vector store surface the search tool needs.
type SearchStore interface {
	Search(ctx context.Context, query, courseName string, lessonNumber *int) ([]vectorstore.SearchResult, error)
	GetLessonLink(ctx context.Context, courseTitle string, lessonNumber int) (string, error)
}

// SearchTool searches course content with optional course and lesson
// filters. It records the sources of its most recent execution for the
// caller to surface alongside the answer.
type SearchTool struct {
	store   SearchStore
	sources []string
}

var (
	_ tools.Tool           = (*SearchTool)(nil)
	_ tools.SourceProvider = (*SearchTool)(nil)
)

// NewSearchTool creates a SearchTool over the given store.
func NewSearchTool(store SearchStore) *SearchTool {
	return &SearchTool{store: store}
}

func (t *SearchTool) Name() string { return "search_course_content" }

func (t *SearchTool) Definition() tools.Definition {
	return tools.Definition{
		Name:        t.Name(),
		Description: "Search course materials with smart course name matching and lesson filtering",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"query": {
					"type": "string",
					"description": "What to search for in the course content"
				},
				"course_name": {
					"type": "string",
					"description": "Course title (partial matches work, e.g. 'MCP', 'Introduction')"
				},
				"lesson_number": {
					"type": "integer",
					"description": "Specific lesson number to search within (e.g. 1, 2, 3)"
				}
			},
			"required": ["query"]
		}`),
	}
}

// Execute runs the search. Store failures are returned as plain text so
// the model sees the failure description and can answer accordingly.
func (t *SearchTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	query, ok := args["query"].(string)
	if !ok || query == "" {
		return "", fmt.Errorf("query parameter is required")
	}

	courseName, _ := args["course_name"].(string)
	var lessonNumber *int
	if n, ok := args["lesson_number"].(float64); ok {
		lesson := int(n)
		lessonNumber = &lesson
	}

	debug.Log("tools", "course search",
		"query", debug.Truncate(query, 80),
		"course", courseName,
	)

	results, err := t.store.Search(ctx, query, courseName, lessonNumber)
	if err != nil {
		return err.Error(), nil
	}

	if len(results) == 0 {
		msg := "No relevant content found"
		if courseName != "" {
			msg += fmt.Sprintf(" in course '%s'", courseName)
		}
		if lessonNumber != nil {
			msg += fmt.Sprintf(" in lesson %d", *lessonNumber)
		}
		return msg + ".", nil
	}

	return t.formatResults(ctx, results), nil
}

// formatResults renders matches as labeled blocks and refreshes the
// source list, linking each source to its lesson when a link is known.
func (t *SearchTool) formatResults(ctx context.Context, results []vectorstore.SearchResult) string {
	blocks := make([]string, 0, len(results))
	sources := make([]string, 0, len(results))

	for _, r := range results {
		header := fmt.Sprintf("[%s]", r.CourseTitle)
		source := r.CourseTitle
		if r.LessonNumber != nil {
			header = fmt.Sprintf("[%s - Lesson %d]", r.CourseTitle, *r.LessonNumber)
			source = fmt.Sprintf("%s - Lesson %d", r.CourseTitle, *r.LessonNumber)

			if link, err := t.store.GetLessonLink(ctx, r.CourseTitle, *r.LessonNumber); err == nil && link != "" {
				source = fmt.Sprintf(`<a href="%s" target="_blank">%s</a>`, link, source)
			}
		}

		blocks = append(blocks, header+"\n"+r.Content)
		sources = append(sources, source)
	}

	t.sources = sources
	return strings.Join(blocks, "\n\n")
}

// LastSources returns the sources of the most recent search.
func (t *SearchTool) LastSources() []string { return t.sources }

// ResetSources clears the tracked sources.
func (t *SearchTool) ResetSources() { t.sources = nil }
