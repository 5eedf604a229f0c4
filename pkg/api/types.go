package api

// QueryRequest is the body of POST /api/query.
type QueryRequest struct {
	// Query is the user's question. An empty string is valid and is
	// passed to the model verbatim; a missing field is rejected.
	Query *string `json:"query"`

	// SessionID continues an existing conversation. When empty, a new
	// session is created and returned in the response.
	SessionID string `json:"session_id,omitempty"`
}

// QueryResponse is the body returned by POST /api/query.
type QueryResponse struct {
	Answer    string   `json:"answer"`
	Sources   []string `json:"sources"`
	SessionID string   `json:"session_id"`
}

// CourseStats is the body returned by GET /api/courses.
type CourseStats struct {
	TotalCourses int      `json:"total_courses"`
	CourseTitles []string `json:"course_titles"`
}
