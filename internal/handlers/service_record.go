package handlers

import (
	"context"
	"net/http"
	"slices"

	"serviceinfo/internal/i18n"
	"serviceinfo/internal/middleware"
	"serviceinfo/internal/models"
	"serviceinfo/internal/services"
	"serviceinfo/internal/utils"

	"go.uber.org/zap"
)

type ServiceRecordHandler struct {
	service *services.ServiceRecordService
	areas   *services.ServiceAreaService
	siteURL string
	logr    *zap.Logger
}

func NewServiceRecordHandler(svc *services.ServiceRecordService, areas *services.ServiceAreaService, siteURL string, logr *zap.Logger) *ServiceRecordHandler {
	return &ServiceRecordHandler{service: svc, areas: areas, siteURL: siteURL, logr: logr}
}

func (h *ServiceRecordHandler) present(r *http.Request) presenter {
	return presenter{siteURL: h.siteURL, locale: i18n.FromContext(r.Context())}
}

// badQuery answers 400 in the validation error shape.
func badQuery(w http.ResponseWriter, field string, err error) {
	writeJSON(w, http.StatusBadRequest, map[string][]string{field: {err.Error()}})
}

// List returns current services.
//
//	GET /api/v1/services?type=1,2&area=3&provider=4&q=clinic&lat=33.9&lng=35.5
//
// area includes every area below it. lat/lng keeps services whose area
// contains the point.
func (h *ServiceRecordHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	params := models.ServiceQueryParams{Text: q.Get("q")}
	params.Limit, params.Offset = paging(r)

	var err error
	if params.TypeIDs, err = utils.ParseIDList(q, "type"); err != nil {
		badQuery(w, "type", err)
		return
	}
	if params.ProviderIDs, err = utils.ParseIDList(q, "provider"); err != nil {
		badQuery(w, "provider", err)
		return
	}

	var areaIDs []int64
	filtered := false

	roots, err := utils.ParseIDList(q, "area")
	if err != nil {
		badQuery(w, "area", err)
		return
	}
	if len(roots) > 0 {
		filtered = true
		for _, id := range roots {
			below, err := h.areas.DescendantIDs(ctx, id)
			if err != nil {
				writeError(w, h.logr, err)
				return
			}
			areaIDs = append(append(areaIDs, id), below...)
		}
	}

	lat, hasLat, err := utils.ParseFloat(q, "lat")
	if err != nil {
		badQuery(w, "lat", err)
		return
	}
	lng, hasLng, err := utils.ParseFloat(q, "lng")
	if err != nil {
		badQuery(w, "lng", err)
		return
	}
	if hasLat != hasLng {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"location": {"Both lat and lng are required."}})
		return
	}
	if hasLat {
		hits, err := h.areas.Containing(ctx, lng, lat, i18n.FromContext(ctx))
		if err != nil {
			writeError(w, h.logr, err)
			return
		}
		var containing []int64
		for _, f := range hits.Features {
			containing = append(containing, f.ID)
		}
		if filtered {
			areaIDs = slices.DeleteFunc(areaIDs, func(id int64) bool { return !slices.Contains(containing, id) })
		} else {
			areaIDs = containing
		}
		filtered = true
	}

	if filtered && len(areaIDs) == 0 {
		writeJSON(w, http.StatusOK, list([]serviceView{}))
		return
	}
	params.AreaIDs = areaIDs

	out, total, err := h.service.Search(ctx, params)
	if err != nil {
		writeError(w, h.logr, err)
		return
	}
	writeJSON(w, http.StatusOK, paged(h.present(r).services(out), total))
}

// Get returns one current service.
func (h *ServiceRecordHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	svc, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.logr, err)
		return
	}
	writeJSON(w, http.StatusOK, h.present(r).service(svc))
}

// ListMine returns every record of the calling provider, in any state.
func (h *ServiceRecordHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	p := middleware.ProviderFrom(r.Context())
	out, err := h.service.ListForProvider(r.Context(), p.ID)
	if err != nil {
		writeError(w, h.logr, err)
		return
	}
	writeJSON(w, http.StatusOK, list(h.present(r).services(out)))
}

func (h *ServiceRecordHandler) GetMine(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	svc, err := h.service.GetOwned(r.Context(), middleware.ProviderFrom(r.Context()).ID, id)
	if err != nil {
		writeError(w, h.logr, err)
		return
	}
	writeJSON(w, http.StatusOK, h.present(r).service(svc))
}

// Create submits a new draft, or an edit when update_of is set.
func (h *ServiceRecordHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.ServiceInput
	if !decodeJSON(w, r, &in) {
		return
	}
	svc, err := h.service.Create(r.Context(), middleware.ProviderFrom(r.Context()).ID, in)
	if err != nil {
		writeError(w, h.logr, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.present(r).service(svc))
}

func (h *ServiceRecordHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	svc, err := h.service.Cancel(r.Context(), middleware.ProviderFrom(r.Context()).ID, id)
	if err != nil {
		writeError(w, h.logr, err)
		return
	}
	writeJSON(w, http.StatusOK, h.present(r).service(svc))
}

// ListPending is the staff review queue.
func (h *ServiceRecordHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	limit, offset := paging(r)
	out, total, err := h.service.ListPending(r.Context(), limit, offset)
	if err != nil {
		writeError(w, h.logr, err)
		return
	}
	writeJSON(w, http.StatusOK, paged(h.present(r).services(out), total))
}

func (h *ServiceRecordHandler) GetAny(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	svc, err := h.service.GetAny(r.Context(), id)
	if err != nil {
		writeError(w, h.logr, err)
		return
	}
	writeJSON(w, http.StatusOK, h.present(r).service(svc))
}

func (h *ServiceRecordHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Approve)
}

func (h *ServiceRecordHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Reject)
}

func (h *ServiceRecordHandler) transition(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, id int64) (*models.Service, error)) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	svc, err := apply(r.Context(), id)
	if err != nil {
		writeError(w, h.logr, err)
		return
	}
	writeJSON(w, http.StatusOK, h.present(r).service(svc))
}

// AuditTrail lists the audit records of one service.
func (h *ServiceRecordHandler) AuditTrail(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if _, err := h.service.GetAny(r.Context(), id); err != nil {
		writeError(w, h.logr, err)
		return
	}
	recs, err := h.service.AuditTrail(r.Context(), id)
	if err != nil {
		writeError(w, h.logr, err)
		return
	}
	writeJSON(w, http.StatusOK, list(recs))
}
