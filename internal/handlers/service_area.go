package handlers

import (
	"net/http"

	"serviceinfo/internal/i18n"
	"serviceinfo/internal/models"
	"serviceinfo/internal/services"
	"serviceinfo/internal/utils"

	"go.uber.org/zap"
)

type ServiceAreaHandler struct {
	service *services.ServiceAreaService
	siteURL string
	logr    *zap.Logger
}

func NewServiceAreaHandler(svc *services.ServiceAreaService, siteURL string, logr *zap.Logger) *ServiceAreaHandler {
	return &ServiceAreaHandler{service: svc, siteURL: siteURL, logr: logr}
}

func (h *ServiceAreaHandler) absolute(resp *models.ServiceAreasResponse) *models.ServiceAreasResponse {
	for i := range resp.Features {
		resp.Features[i].URL = h.siteURL + resp.Features[i].URL
	}
	return resp
}

// GetServiceAreas returns service areas as a GeoJSON FeatureCollection.
// Filters: parent=<id>, roots=true, with_region=true.
func (h *ServiceAreaHandler) GetServiceAreas(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	var params models.ServiceAreaQueryParams
	parents, err := utils.ParseIDList(q, "parent")
	if err != nil || len(parents) > 1 {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"parent": {"Give a single valid area id."}})
		return
	}
	if len(parents) == 1 {
		params.ParentID = parents[0]
	}
	params.RootsOnly = q.Get("roots") == "true"
	params.WithRegion = q.Get("with_region") == "true"

	response, err := h.service.GetServiceAreas(ctx, params, i18n.FromContext(ctx))
	if err != nil {
		writeError(w, h.logr, err)
		return
	}

	writeJSON(w, http.StatusOK, h.absolute(response))
}

// GetServiceAreaByID returns a single service area by ID
func (h *ServiceAreaHandler) GetServiceAreaByID(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	feature, err := h.service.GetServiceAreaByID(ctx, id, i18n.FromContext(ctx))
	if err != nil {
		writeError(w, h.logr, err)
		return
	}
	feature.URL = h.siteURL + feature.URL

	writeJSON(w, http.StatusOK, feature)
}

// Containing returns the areas around a point, deepest first.
//
//	GET /api/v1/service-areas/containing?lat=33.89&lng=35.5
func (h *ServiceAreaHandler) Containing(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	lat, hasLat, err := utils.ParseFloat(q, "lat")
	if err != nil || !hasLat {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"lat": {"A valid latitude is required."}})
		return
	}
	lng, hasLng, err := utils.ParseFloat(q, "lng")
	if err != nil || !hasLng {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"lng": {"A valid longitude is required."}})
		return
	}

	response, err := h.service.Containing(ctx, lng, lat, i18n.FromContext(ctx))
	if err != nil {
		writeError(w, h.logr, err)
		return
	}
	writeJSON(w, http.StatusOK, h.absolute(response))
}

// Create adds an area (staff only).
func (h *ServiceAreaHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.ServiceAreaInput
	if !decodeJSON(w, r, &in) {
		return
	}
	area, err := h.service.Create(r.Context(), in)
	if err != nil {
		writeError(w, h.logr, err)
		return
	}
	p := presenter{siteURL: h.siteURL, locale: i18n.FromContext(r.Context())}
	writeJSON(w, http.StatusCreated, p.area(area))
}
