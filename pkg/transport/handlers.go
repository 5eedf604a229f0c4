package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fhuber/dozent/pkg/api"
	"github.com/fhuber/dozent/pkg/rag"
)

// QueryService answers user queries and reports course analytics.
// *rag.System satisfies it.
type QueryService interface {
	Query(ctx context.Context, query, sessionID string) (*rag.Answer, error)
	CourseStats(ctx context.Context) (*api.CourseStats, error)
}

// Handler serves the dozent HTTP API.
type Handler struct {
	service QueryService
	logger  *slog.Logger
}

// NewHandler creates the API handler backed by the given service.
func NewHandler(service QueryService, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Routes returns the API mux with all endpoints registered.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/query", h.handleQuery)
	mux.HandleFunc("GET /api/courses", h.handleCourses)
	mux.HandleFunc("GET /healthz", h.handleHealth)
	return mux
}

// MountMetrics exposes the Prometheus endpoint on the given mux.
func MountMetrics(mux *http.ServeMux, path string) {
	if path == "" {
		path = "/metrics"
	}
	mux.Handle("GET "+path, promhttp.Handler())
}

func (h *Handler) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req api.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeAPIError(w, api.NewInvalidRequestError("", "invalid JSON body: "+err.Error()))
		return
	}
	if req.Query == nil {
		h.writeAPIError(w, api.NewInvalidRequestError("query", "query is required"))
		return
	}
	if req.SessionID != "" && !api.ValidateSessionID(req.SessionID) {
		h.writeAPIError(w, api.NewInvalidRequestError("session_id", "malformed session ID"))
		return
	}

	answer, err := h.service.Query(r.Context(), *req.Query, req.SessionID)
	if err != nil {
		h.writeAPIError(w, err)
		return
	}

	sources := answer.Sources
	if sources == nil {
		sources = []string{}
	}
	writeJSON(w, http.StatusOK, api.QueryResponse{
		Answer:    answer.Text,
		Sources:   sources,
		SessionID: answer.SessionID,
	})
}

func (h *Handler) handleCourses(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.CourseStats(r.Context())
	if err != nil {
		h.writeAPIError(w, err)
		return
	}
	if stats.CourseTitles == nil {
		stats.CourseTitles = []string{}
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeAPIError maps an error to its HTTP status and writes the
// standard error envelope. Errors that are not *APIError become
// opaque 500s so internal details do not leak.
func (h *Handler) writeAPIError(w http.ResponseWriter, err error) {
	var apiErr *api.APIError
	if !errors.As(err, &apiErr) {
		h.logger.Error("internal error", "error", err)
		apiErr = api.NewServerError("internal server error")
	}
	writeError(w, statusForErrorType(apiErr.Type), string(apiErr.Type), apiErr.Param, apiErr.Message)
}

func statusForErrorType(t api.ErrorType) int {
	switch t {
	case api.ErrorTypeInvalidRequest:
		return http.StatusBadRequest
	case api.ErrorTypeNotFound:
		return http.StatusNotFound
	case api.ErrorTypeUnauthorized:
		return http.StatusUnauthorized
	case api.ErrorTypeTooManyRequests:
		return http.StatusTooManyRequests
	case api.ErrorTypeModelError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil && err != io.ErrShortWrite {
		slog.Default().Error("encoding response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, errType, param, message string) {
	writeJSON(w, status, api.ErrorResponse{Error: &api.APIError{
		Type:    api.ErrorType(errType),
		Param:   param,
		Message: message,
	}})
}
