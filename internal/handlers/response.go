package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"serviceinfo/internal/lifecycle"
	"serviceinfo/internal/repository"
	"serviceinfo/internal/services"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data == nil {
		return
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(data)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// writeError maps service errors to status codes. Validation errors are
// returned as {"field": ["message", ...]}.
func writeError(w http.ResponseWriter, logr *zap.Logger, err error) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, verr.Fields)
	case errors.Is(err, repository.ErrNotFound):
		writeDetail(w, http.StatusNotFound, "Not found.")
	case errors.Is(err, lifecycle.ErrInvalidTransition):
		writeDetail(w, http.StatusConflict, err.Error())
	case errors.Is(err, repository.ErrConflict):
		writeDetail(w, http.StatusConflict, "Conflicts with an existing record.")
	case errors.Is(err, services.ErrInvalidCredentials):
		writeDetail(w, http.StatusUnauthorized, "Invalid credentials.")
	case errors.Is(err, services.ErrInactiveAccount):
		writeDetail(w, http.StatusForbidden, "Account is not active.")
	default:
		logr.Error("request failed", zap.Error(err))
		writeDetail(w, http.StatusInternalServerError, "Internal server error.")
	}
}

// decodeJSON reads the request body into v. Malformed bodies answer 400.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"non_field_errors": {"Invalid JSON payload."}})
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeDetail(w, http.StatusBadRequest, "invalid id parameter")
		return 0, false
	}
	return id, true
}

const maxPageSize = 200

// paging reads limit and offset. Missing or bad values fall back to a full
// first page.
func paging(r *http.Request) (limit, offset int) {
	q := r.URL.Query()
	limit, _ = strconv.Atoi(q.Get("limit"))
	offset, _ = strconv.Atoi(q.Get("offset"))
	if limit <= 0 || limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// list wraps an unpaginated collection; count is its length.
func list[T any](items []T) map[string]any {
	return paged(items, len(items))
}

// paged wraps one page of results. count is the number of matches across all
// pages.
func paged[T any](items []T, total int) map[string]any {
	if items == nil {
		items = []T{}
	}
	return map[string]any{"results": items, "count": total}
}
