package api

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestAPIError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *APIError
		want string
	}{
		{
			name: "with param",
			err:  NewInvalidRequestError("query", "query is required"),
			want: "invalid_request: query is required (param: query)",
		},
		{
			name: "without param",
			err:  NewServerError("something broke"),
			want: "server_error: something broke",
		},
		{
			name: "model error",
			err:  NewModelError("backend returned 502"),
			want: "model_error: backend returned 502",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrorResponse_JSON(t *testing.T) {
	resp := ErrorResponse{Error: NewNotFoundError("session not found")}

	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	s := string(data)
	if !strings.Contains(s, `"type":"not_found"`) {
		t.Errorf("expected type field in %s", s)
	}
	if strings.Contains(s, `"param"`) {
		t.Errorf("empty param should be omitted: %s", s)
	}
}

func TestNewSessionID(t *testing.T) {
	id := NewSessionID()
	if !ValidateSessionID(id) {
		t.Errorf("generated session ID %q does not validate", id)
	}

	other := NewSessionID()
	if id == other {
		t.Error("expected unique session IDs")
	}
}

func TestValidateSessionID_Rejects(t *testing.T) {
	bad := []string{
		"",
		"sess_",
		"sess_not-a-uuid",
		"resp_7c9e6679-7425-40de-944b-e07fc1f90ae7",
		"7c9e6679-7425-40de-944b-e07fc1f90ae7",
	}
	for _, id := range bad {
		if ValidateSessionID(id) {
			t.Errorf("expected %q to be rejected", id)
		}
	}
}
