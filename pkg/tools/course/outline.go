package course

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fhuber/dozent/pkg/tools"
	"github.com/fhuber/dozent/pkg/vectorstore"
)

// OutlineStore is the vector store surface the outline tool needs.
type OutlineStore interface {
	GetCourseOutline(ctx context.Context, courseName string) (*vectorstore.Course, error)
}

// OutlineTool returns a course's structure: title, link, and the number
// and title of every lesson.
type OutlineTool struct {
	store   OutlineStore
	sources []string
}

var (
	_ tools.Tool           = (*OutlineTool)(nil)
	_ tools.SourceProvider = (*OutlineTool)(nil)
)

// NewOutlineTool creates an OutlineTool over the given store.
func NewOutlineTool(store OutlineStore) *OutlineTool {
	return &OutlineTool{store: store}
}

func (t *OutlineTool) Name() string { return "get_course_outline" }

func (t *OutlineTool) Definition() tools.Definition {
	return tools.Definition{
		Name:        t.Name(),
		Description: "Get the outline of a course: title, course link, and all lessons with their numbers and titles",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"course_name": {
					"type": "string",
					"description": "Course title (partial matches work, e.g. 'MCP', 'Introduction')"
				}
			},
			"required": ["course_name"]
		}`),
	}
}

func (t *OutlineTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	courseName, ok := args["course_name"].(string)
	if !ok || courseName == "" {
		return "", fmt.Errorf("course_name parameter is required")
	}

	course, err := t.store.GetCourseOutline(ctx, courseName)
	if err != nil {
		return err.Error(), nil
	}
	if course == nil {
		return fmt.Sprintf("No course found matching '%s'", courseName), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Course: %s\n", course.Title)
	if course.Link != "" {
		fmt.Fprintf(&b, "Course Link: %s\n", course.Link)
	}
	fmt.Fprintf(&b, "\nLessons (%d):\n", len(course.Lessons))
	for _, l := range course.Lessons {
		fmt.Fprintf(&b, "%d. %s\n", l.Number, l.Title)
	}

	source := course.Title
	if course.Link != "" {
		source = fmt.Sprintf(`<a href="%s" target="_blank">%s</a>`, course.Link, course.Title)
	}
	t.sources = []string{source}

	return b.String(), nil
}

// LastSources returns the source of the most recent outline lookup.
func (t *OutlineTool) LastSources() []string { return t.sources }

// ResetSources clears the tracked sources.
func (t *OutlineTool) ResetSources() { t.sources = nil }
