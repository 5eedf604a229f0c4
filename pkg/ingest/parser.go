// Package ingest reads course documents, splits their content into
// overlapping chunks, and loads both metadata and chunks into the
// vector store.
//
// The expected document format is a header block followed by lesson
// sections:
//
//	Course Title: Building Things
//	Course Link: https://example.com/course
//	Course Instructor: Jane Doe
//
//	Lesson 0: Introduction
//	Lesson Link: https://example.com/course/lesson0
//	<lesson content...>
//
//	Lesson 1: Next Topic
//	...
package ingest

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/fhuber/dozent/pkg/vectorstore"
)

var lessonHeaderRe = regexp.MustCompile(`^Lesson\s+(\d+):\s*(.+)$`)

// LessonContent pairs a lesson's metadata with its raw text.
type LessonContent struct {
	Lesson vectorstore.Lesson
	Text   string
}

// Document is one parsed course file.
type Document struct {
	Course  vectorstore.Course
	Lessons []LessonContent

	// Preamble is content before the first lesson marker, kept so courses
	// without lesson structure still get indexed.
	Preamble string
}

// ParseDocument parses a course document. The title header is required;
// link and instructor are optional.
func ParseDocument(r io.Reader) (*Document, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	doc := &Document{}
	var current *LessonContent
	var text strings.Builder

	flush := func() {
		content := strings.TrimSpace(text.String())
		if current != nil {
			current.Text = content
			doc.Lessons = append(doc.Lessons, *current)
		} else {
			doc.Preamble = content
		}
		text.Reset()
	}

	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(trimmed, "Course Title:"):
			doc.Course.Title = strings.TrimSpace(strings.TrimPrefix(trimmed, "Course Title:"))
			continue
		case strings.HasPrefix(trimmed, "Course Link:"):
			doc.Course.Link = strings.TrimSpace(strings.TrimPrefix(trimmed, "Course Link:"))
			continue
		case strings.HasPrefix(trimmed, "Course Instructor:"):
			doc.Course.Instructor = strings.TrimSpace(strings.TrimPrefix(trimmed, "Course Instructor:"))
			continue
		}

		if m := lessonHeaderRe.FindStringSubmatch(trimmed); m != nil {
			flush()
			number, _ := strconv.Atoi(m[1])
			current = &LessonContent{Lesson: vectorstore.Lesson{
				Number: number,
				Title:  strings.TrimSpace(m[2]),
			}}
			continue
		}

		if current != nil && strings.HasPrefix(trimmed, "Lesson Link:") && current.Text == "" && text.Len() == 0 {
			current.Lesson.Link = strings.TrimSpace(strings.TrimPrefix(trimmed, "Lesson Link:"))
			continue
		}

		text.WriteString(line)
		text.WriteString("\n")
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}
	flush()

	if doc.Course.Title == "" {
		return nil, fmt.Errorf("document has no Course Title header")
	}

	for _, lc := range doc.Lessons {
		doc.Course.Lessons = append(doc.Course.Lessons, lc.Lesson)
	}
	return doc, nil
}
