package models

import (
	"encoding/json"
	"fmt"

	"serviceinfo/internal/i18n"

	"github.com/uptrace/bun"
)

// ServiceArea is a named region in the area tree. Region holds the polygon as
// GeoJSON; the store keeps a PostGIS geometry column generated from it.
type ServiceArea struct {
	bun.BaseModel `bun:"table:service_areas,alias:sa"`

	ID       int64           `bun:"id,pk,autoincrement" json:"id"`
	NameEN   string          `bun:"name_en,notnull,default:''" json:"name_en"`
	NameAR   string          `bun:"name_ar,notnull,default:''" json:"name_ar"`
	NameFR   string          `bun:"name_fr,notnull,default:''" json:"name_fr"`
	ParentID *int64          `bun:"parent_id" json:"parent_id"`
	Region   json.RawMessage `bun:"region_geojson,type:jsonb,nullzero" json:"region,omitempty"`
}

// Name resolves the area name for locale (fallback English, Arabic, French).
func (a *ServiceArea) Name(locale string) string {
	return i18n.Resolve(i18n.EnArFr(a.NameEN, a.NameAR, a.NameFR), locale)
}

func (a *ServiceArea) APIPath() string {
	return fmt.Sprintf("/api/v1/service-areas/%d", a.ID)
}

// ServiceAreaGeoJSON represents a service area in GeoJSON format
type ServiceAreaGeoJSON struct {
	ID         int64           `json:"id"`
	URL        string          `json:"url"`
	Type       string          `json:"type"`
	Geometry   json.RawMessage `json:"geometry"`
	Properties map[string]any  `json:"properties"`
}

// ServiceAreasResponse represents the API response
type ServiceAreasResponse struct {
	Type     string               `json:"type"` // "FeatureCollection"
	Features []ServiceAreaGeoJSON `json:"features"`
	Count    int                  `json:"count"`
}

// ServiceAreaQueryParams for filtering service areas
type ServiceAreaQueryParams struct {
	// Only areas directly under this parent. Zero means no filter.
	ParentID int64
	// Only areas without a parent.
	RootsOnly bool
	// Only areas with a polygon.
	WithRegion bool
}
