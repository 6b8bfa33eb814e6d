package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/avialab/temtrack/audit"
	"github.com/avialab/temtrack/review"
)

// Server exposes the annotation service REST API.
type Server struct {
	store *Store
	sink  audit.Sink
	log   *slog.Logger
}

func New(store *Store, sink audit.Sink, log *slog.Logger) *Server {
	if sink == nil {
		sink = audit.NopSink{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Server{store: store, sink: sink, log: log}
}

// Routes builds the API handler.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/projects", s.handleListProjects)
	mux.HandleFunc("POST /api/v1/projects", s.handleCreateProject)
	mux.HandleFunc("GET /api/v1/events", s.handleListEvents)
	mux.HandleFunc("POST /api/v1/events", s.handleCreateEvent)

	mux.HandleFunc("GET /api/v1/items", s.handleListItems)
	mux.HandleFunc("POST /api/v1/items", s.handleCreateItem)
	mux.HandleFunc("GET /api/v1/items/{id}", s.handleGetItem)
	mux.HandleFunc("PUT /api/v1/items/{id}", s.handleUpdateItem)
	mux.HandleFunc("DELETE /api/v1/items/{id}", s.handleDeleteItem)

	mux.HandleFunc("GET /api/v1/items/{id}/review-history", s.handleReviewHistory)
	mux.HandleFunc("POST /api/v1/items/{id}/submit", s.handleSubmit)
	mux.HandleFunc("POST /api/v1/items/{id}/approve", s.handleApprove)
	mux.HandleFunc("POST /api/v1/items/{id}/reject", s.handleReject)
	mux.HandleFunc("POST /api/v1/items/{id}/request-revision", s.handleRequestRevision)
	mux.HandleFunc("POST /api/v1/items/{id}/resubmit", s.handleResubmit)

	return s.logRequests(mux)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug("http_request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// actor identity comes from headers; authentication proper is handled
// upstream of this service.
func actorFromRequest(r *http.Request) (string, review.Role) {
	return r.Header.Get("X-Actor"), review.ParseRole(r.Header.Get("X-Actor-Role"))
}

type errorBody struct {
	Kind    review.ErrorKind  `json:"kind"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, kind review.ErrorKind, message string, fields map[string]string) {
	writeJSON(w, status, map[string]errorBody{
		"error": {Kind: kind, Message: message, Fields: fields},
	})
}

func notFound(w http.ResponseWriter, what string) {
	writeError(w, http.StatusNotFound, review.KindNotFound, what+" not found", nil)
}

func forbidden(w http.ResponseWriter, message string) {
	writeError(w, http.StatusForbidden, review.KindAuthorization, message, nil)
}

func invalid(w http.ResponseWriter, message string, fields map[string]string) {
	writeError(w, http.StatusUnprocessableEntity, review.KindValidation, message, fields)
}

func internal(w http.ResponseWriter, log *slog.Logger, op string, err error) {
	log.Error("store_error", "op", op, "error", err.Error())
	writeError(w, http.StatusInternalServerError, review.KindServer, "internal error", nil)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Body == nil {
		return true
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		// An empty body means "no options"; every operation accepts that.
		if errors.Is(err, io.EOF) {
			return true
		}
		invalid(w, "malformed request body", nil)
		return false
	}
	return true
}

func (s *Server) emitAudit(ctx context.Context, e audit.Event) {
	if err := s.sink.Emit(ctx, e); err != nil {
		s.log.Warn("audit_emit_failed", "item_id", e.ItemID, "action", string(e.Action), "error", err.Error())
	}
}

// validateFeedbacks checks field names against the reviewable catalog and
// feedback types against the closed enum, returning per-field errors.
func validateFeedbacks(fbs []review.FieldFeedback) map[string]string {
	errs := map[string]string{}
	for _, fb := range fbs {
		if !review.IsReviewableField(fb.FieldName) {
			errs[fb.FieldName] = "not a reviewable field"
			continue
		}
		if !fb.FeedbackType.Valid() {
			errs[fb.FieldName] = "invalid feedback type"
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}
