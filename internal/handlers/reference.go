package handlers

import (
	"net/http"

	"serviceinfo/internal/i18n"
	"serviceinfo/internal/services"

	"go.uber.org/zap"
)

// ReferenceHandler serves the read-only type tables.
type ReferenceHandler struct {
	service *services.ReferenceService
	siteURL string
	logr    *zap.Logger
}

func NewReferenceHandler(svc *services.ReferenceService, siteURL string, logr *zap.Logger) *ReferenceHandler {
	return &ReferenceHandler{service: svc, siteURL: siteURL, logr: logr}
}

func (h *ReferenceHandler) present(r *http.Request) presenter {
	return presenter{siteURL: h.siteURL, locale: i18n.FromContext(r.Context())}
}

func (h *ReferenceHandler) ServiceTypes(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.ServiceTypes(r.Context())
	if err != nil {
		writeError(w, h.logr, err)
		return
	}
	p := h.present(r)
	views := make([]serviceTypeView, 0, len(out))
	for _, t := range out {
		views = append(views, p.serviceType(t))
	}
	writeJSON(w, http.StatusOK, list(views))
}

func (h *ReferenceHandler) ServiceType(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	t, err := h.service.ServiceType(r.Context(), id)
	if err != nil {
		writeError(w, h.logr, err)
		return
	}
	writeJSON(w, http.StatusOK, h.present(r).serviceType(t))
}

func (h *ReferenceHandler) ProviderTypes(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.ProviderTypes(r.Context())
	if err != nil {
		writeError(w, h.logr, err)
		return
	}
	p := h.present(r)
	views := make([]providerTypeView, 0, len(out))
	for _, t := range out {
		views = append(views, p.providerType(t))
	}
	writeJSON(w, http.StatusOK, list(views))
}

func (h *ReferenceHandler) ProviderType(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	t, err := h.service.ProviderType(r.Context(), id)
	if err != nil {
		writeError(w, h.logr, err)
		return
	}
	writeJSON(w, http.StatusOK, h.present(r).providerType(t))
}
