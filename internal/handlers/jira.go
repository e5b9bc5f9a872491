package handlers

import (
	"net/http"
	"strconv"

	"serviceinfo/internal/services"

	"go.uber.org/zap"
)

type JiraHandler struct {
	service *services.JiraService
	batch   int
	logr    *zap.Logger
}

func NewJiraHandler(svc *services.JiraService, batch int, logr *zap.Logger) *JiraHandler {
	return &JiraHandler{service: svc, batch: batch, logr: logr}
}

// SyncOne pushes a single audit record.
func (h *JiraHandler) SyncOne(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	out, err := h.service.Synchronize(r.Context(), id)
	if err != nil {
		h.logr.Warn("manual jira sync failed", zap.Int64("record_id", id), zap.Error(err))
		writeError(w, h.logr, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"outcome": out.String()})
}

// SyncPending sweeps unsynced records. ?limit= caps the batch.
func (h *JiraHandler) SyncPending(w http.ResponseWriter, r *http.Request) {
	limit := h.batch
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}
	report, err := h.service.SynchronizePending(r.Context(), limit)
	if err != nil {
		writeError(w, h.logr, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
