package postgres

import (
	"context"
	"fmt"

	"serviceinfo/internal/models"

	"github.com/uptrace/bun"
)

type areaRepo struct{ db bun.IDB }

func (r areaRepo) Create(ctx context.Context, area *models.ServiceArea) error {
	_, err := r.db.NewInsert().Model(area).Returning("id").Exec(ctx)
	return translate(err, "insert service area")
}

func (r areaRepo) Get(ctx context.Context, id int64) (*models.ServiceArea, error) {
	area := new(models.ServiceArea)
	if err := r.db.NewSelect().Model(area).Where("sa.id = ?", id).Scan(ctx); err != nil {
		return nil, translate(err, fmt.Sprintf("service area %d", id))
	}
	return area, nil
}

func (r areaRepo) List(ctx context.Context, params models.ServiceAreaQueryParams) ([]*models.ServiceArea, error) {
	var areas []*models.ServiceArea
	q := r.db.NewSelect().Model(&areas)

	if params.RootsOnly {
		q = q.Where("sa.parent_id IS NULL")
	}
	if params.ParentID != 0 {
		q = q.Where("sa.parent_id = ?", params.ParentID)
	}
	if params.WithRegion {
		q = q.Where("sa.region IS NOT NULL")
	}

	if err := q.OrderExpr("sa.id ASC").Scan(ctx); err != nil {
		return nil, translate(err, "list service areas")
	}
	return areas, nil
}

// Containing asks PostGIS which stored regions contain the point.
func (r areaRepo) Containing(ctx context.Context, lng, lat float64) ([]*models.ServiceArea, error) {
	var areas []*models.ServiceArea
	err := r.db.NewSelect().
		Model(&areas).
		Where("sa.region IS NOT NULL").
		Where("ST_Contains(sa.region, ST_SetSRID(ST_MakePoint(?, ?), 4326))", lng, lat).
		OrderExpr("sa.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, translate(err, "service areas containing point")
	}
	return areas, nil
}

type typeRepo struct{ db bun.IDB }

func (r typeRepo) CreateServiceType(ctx context.Context, t *models.ServiceType) error {
	_, err := r.db.NewInsert().Model(t).Returning("id").Exec(ctx)
	return translate(err, "insert service type")
}

func (r typeRepo) GetServiceType(ctx context.Context, id int64) (*models.ServiceType, error) {
	t := new(models.ServiceType)
	if err := r.db.NewSelect().Model(t).Where("st.id = ?", id).Scan(ctx); err != nil {
		return nil, translate(err, fmt.Sprintf("service type %d", id))
	}
	return t, nil
}

func (r typeRepo) ListServiceTypes(ctx context.Context) ([]*models.ServiceType, error) {
	var types []*models.ServiceType
	if err := r.db.NewSelect().Model(&types).OrderExpr("st.number ASC").Scan(ctx); err != nil {
		return nil, translate(err, "list service types")
	}
	return types, nil
}

func (r typeRepo) CreateProviderType(ctx context.Context, t *models.ProviderType) error {
	_, err := r.db.NewInsert().Model(t).Returning("id").Exec(ctx)
	return translate(err, "insert provider type")
}

func (r typeRepo) GetProviderType(ctx context.Context, id int64) (*models.ProviderType, error) {
	t := new(models.ProviderType)
	if err := r.db.NewSelect().Model(t).Where("pt.id = ?", id).Scan(ctx); err != nil {
		return nil, translate(err, fmt.Sprintf("provider type %d", id))
	}
	return t, nil
}

func (r typeRepo) ListProviderTypes(ctx context.Context) ([]*models.ProviderType, error) {
	var types []*models.ProviderType
	if err := r.db.NewSelect().Model(&types).OrderExpr("pt.number ASC").Scan(ctx); err != nil {
		return nil, translate(err, "list provider types")
	}
	return types, nil
}
