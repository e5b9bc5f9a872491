package services

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strings"

	"serviceinfo/internal/geo"
	"serviceinfo/internal/models"
	"serviceinfo/internal/repository"

	"go.uber.org/zap"
)

type ServiceAreaService struct {
	store repository.Store
	logr  *zap.Logger
}

func NewServiceAreaService(store repository.Store, logr *zap.Logger) *ServiceAreaService {
	return &ServiceAreaService{store: store, logr: logr}
}

// ServiceAreaInput is the staff payload for a new area.
type ServiceAreaInput struct {
	NameEN   string          `json:"name_en" validate:"max=256"`
	NameAR   string          `json:"name_ar" validate:"max=256"`
	NameFR   string          `json:"name_fr" validate:"max=256"`
	ParentID *int64          `json:"parent"`
	Region   json.RawMessage `json:"region"`
}

// tree indexes every area by id and by parent. Children are never stored,
// only derived from parent links.
type tree struct {
	byID     map[int64]*models.ServiceArea
	children map[int64][]int64
}

func (s *ServiceAreaService) loadTree(ctx context.Context) (*tree, error) {
	areas, err := s.store.Areas().List(ctx, models.ServiceAreaQueryParams{})
	if err != nil {
		return nil, err
	}
	t := &tree{byID: make(map[int64]*models.ServiceArea, len(areas)), children: make(map[int64][]int64)}
	for _, a := range areas {
		t.byID[a.ID] = a
		if a.ParentID != nil {
			t.children[*a.ParentID] = append(t.children[*a.ParentID], a.ID)
		}
	}
	return t, nil
}

// descendants walks the subtree under id breadth-first. A visited set keeps
// malformed (cyclic) data from looping.
func (t *tree) descendants(id int64) []int64 {
	var out []int64
	seen := map[int64]bool{id: true}
	queue := slices.Clone(t.children[id])
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if seen[cur] {
			continue
		}
		seen[cur] = true
		out = append(out, cur)
		queue = append(queue, t.children[cur]...)
	}
	return out
}

// depth counts parent hops to a root, stopping on a repeat.
func (t *tree) depth(id int64) int {
	d := 0
	seen := map[int64]bool{}
	for cur, ok := t.byID[id]; ok && cur.ParentID != nil && !seen[cur.ID]; cur, ok = t.byID[*cur.ParentID] {
		seen[cur.ID] = true
		d++
	}
	return d
}

func (t *tree) feature(a *models.ServiceArea, locale string) models.ServiceAreaGeoJSON {
	children := t.children[a.ID]
	if children == nil {
		children = []int64{}
	}
	geometry := a.Region
	if len(geometry) == 0 {
		geometry = json.RawMessage("null")
	}
	return models.ServiceAreaGeoJSON{
		ID:       a.ID,
		URL:      a.APIPath(),
		Type:     "Feature",
		Geometry: geometry,
		Properties: map[string]any{
			"id":       a.ID,
			"name":     a.Name(locale),
			"name_en":  a.NameEN,
			"name_ar":  a.NameAR,
			"name_fr":  a.NameFR,
			"parent":   a.ParentID,
			"children": children,
		},
	}
}

func collection(features []models.ServiceAreaGeoJSON) *models.ServiceAreasResponse {
	return &models.ServiceAreasResponse{
		Type:     "FeatureCollection",
		Features: features,
		Count:    len(features),
	}
}

// GetServiceAreas returns the areas matching params as a GeoJSON FeatureCollection.
func (s *ServiceAreaService) GetServiceAreas(ctx context.Context, params models.ServiceAreaQueryParams, locale string) (*models.ServiceAreasResponse, error) {
	t, err := s.loadTree(ctx)
	if err != nil {
		return nil, err
	}
	areas, err := s.store.Areas().List(ctx, params)
	if err != nil {
		return nil, err
	}
	features := make([]models.ServiceAreaGeoJSON, 0, len(areas))
	for _, a := range areas {
		features = append(features, t.feature(a, locale))
	}
	return collection(features), nil
}

// GetServiceAreaByID returns a single service area by ID
func (s *ServiceAreaService) GetServiceAreaByID(ctx context.Context, id int64, locale string) (*models.ServiceAreaGeoJSON, error) {
	t, err := s.loadTree(ctx)
	if err != nil {
		return nil, err
	}
	a, ok := t.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	f := t.feature(a, locale)
	return &f, nil
}

// Children returns the areas directly under id.
func (s *ServiceAreaService) Children(ctx context.Context, id int64) ([]*models.ServiceArea, error) {
	if _, err := s.store.Areas().Get(ctx, id); err != nil {
		return nil, err
	}
	return s.store.Areas().List(ctx, models.ServiceAreaQueryParams{ParentID: id})
}

// DescendantIDs returns every area id in the subtree under id, excluding id.
func (s *ServiceAreaService) DescendantIDs(ctx context.Context, id int64) ([]int64, error) {
	t, err := s.loadTree(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := t.byID[id]; !ok {
		return nil, repository.ErrNotFound
	}
	return t.descendants(id), nil
}

// Containing returns the areas whose region contains the point, deepest first.
func (s *ServiceAreaService) Containing(ctx context.Context, lng, lat float64, locale string) (*models.ServiceAreasResponse, error) {
	if !geo.ValidPoint(lng, lat) {
		return nil, fieldError("location", "Enter a valid coordinate.")
	}
	hits, err := s.store.Areas().Containing(ctx, lng, lat)
	if err != nil {
		return nil, err
	}
	t, err := s.loadTree(ctx)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(hits, func(a, b *models.ServiceArea) int {
		return t.depth(b.ID) - t.depth(a.ID)
	})
	features := make([]models.ServiceAreaGeoJSON, 0, len(hits))
	for _, a := range hits {
		features = append(features, t.feature(a, locale))
	}
	return collection(features), nil
}

// Create adds an area. Cycles cannot arise because the parent must already exist.
func (s *ServiceAreaService) Create(ctx context.Context, in ServiceAreaInput) (*models.ServiceArea, error) {
	verr := validateStruct(&in)
	if strings.TrimSpace(in.NameEN+in.NameAR+in.NameFR) == "" {
		verr.Add("name_en", "A name is required in at least one language.")
	}
	if in.ParentID != nil {
		if _, err := s.store.Areas().Get(ctx, *in.ParentID); errors.Is(err, repository.ErrNotFound) {
			verr.Add("parent", msgDoesNotExist)
		} else if err != nil {
			return nil, err
		}
	}
	region := in.Region
	if len(region) == 0 || string(region) == "null" {
		region = nil
	} else if _, err := geo.Parse(region); err != nil {
		verr.Add("region", err.Error())
	}
	if err := verr.Err(); err != nil {
		return nil, err
	}

	area := &models.ServiceArea{
		NameEN:   in.NameEN,
		NameAR:   in.NameAR,
		NameFR:   in.NameFR,
		ParentID: in.ParentID,
		Region:   region,
	}
	if err := s.store.Areas().Create(ctx, area); err != nil {
		return nil, err
	}
	s.logr.Info("service area created", zap.Int64("area_id", area.ID))
	return area, nil
}
