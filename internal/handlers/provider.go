package handlers

import (
	"net/http"

	"serviceinfo/internal/i18n"
	"serviceinfo/internal/middleware"
	"serviceinfo/internal/services"

	"go.uber.org/zap"
)

type ProviderHandler struct {
	service *services.ProviderService
	siteURL string
	logr    *zap.Logger
}

func NewProviderHandler(svc *services.ProviderService, siteURL string, logr *zap.Logger) *ProviderHandler {
	return &ProviderHandler{service: svc, siteURL: siteURL, logr: logr}
}

func (h *ProviderHandler) present(r *http.Request) presenter {
	return presenter{siteURL: h.siteURL, locale: i18n.FromContext(r.Context())}
}

// Register creates a provider with an inactive account.
func (h *ProviderHandler) Register(w http.ResponseWriter, r *http.Request) {
	var in services.RegistrationInput
	if !decodeJSON(w, r, &in) {
		return
	}
	p, err := h.service.Register(r.Context(), in)
	if err != nil {
		writeError(w, h.logr, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.present(r).provider(p))
}

func (h *ProviderHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := paging(r)
	out, total, err := h.service.List(r.Context(), limit, offset)
	if err != nil {
		writeError(w, h.logr, err)
		return
	}
	p := h.present(r)
	views := make([]providerView, 0, len(out))
	for _, pr := range out {
		views = append(views, p.provider(pr))
	}
	writeJSON(w, http.StatusOK, paged(views, total))
}

func (h *ProviderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.logr, err)
		return
	}
	writeJSON(w, http.StatusOK, h.present(r).provider(p))
}

// Profile returns the calling provider.
func (h *ProviderHandler) Profile(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.present(r).provider(middleware.ProviderFrom(r.Context())))
}

// UpdateProfile replaces the calling provider's information.
func (h *ProviderHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var in services.ProviderInput
	if !decodeJSON(w, r, &in) {
		return
	}
	p, err := h.service.Update(r.Context(), middleware.ProviderFrom(r.Context()).ID, in)
	if err != nil {
		writeError(w, h.logr, err)
		return
	}
	writeJSON(w, http.StatusOK, h.present(r).provider(p))
}
