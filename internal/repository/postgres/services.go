package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"serviceinfo/internal/lifecycle"
	"serviceinfo/internal/models"
	"serviceinfo/internal/repository"

	"github.com/uptrace/bun"
)

type serviceRepo struct{ db bun.IDB }

func (r serviceRepo) Insert(ctx context.Context, svc *models.Service) error {
	now := time.Now().UTC()
	svc.CreatedAt, svc.UpdatedAt = now, now
	if svc.Status == "" {
		svc.Status = lifecycle.StatusDraft
	}

	if _, err := r.db.NewInsert().Model(svc).Returning("id").Exec(ctx); err != nil {
		return translate(err, "insert service")
	}

	if len(svc.SelectionCriteria) == 0 {
		return nil
	}
	for _, c := range svc.SelectionCriteria {
		c.ServiceID = svc.ID
	}
	_, err := r.db.NewInsert().Model(&svc.SelectionCriteria).Returning("id").Exec(ctx)
	return translate(err, "insert selection criteria")
}

func (r serviceRepo) get(ctx context.Context, id int64, lock bool) (*models.Service, error) {
	svc := new(models.Service)
	q := r.db.NewSelect().
		Model(svc).
		Relation("SelectionCriteria").
		Where("s.id = ?", id)
	if lock {
		q = q.For("UPDATE OF s")
	}
	if err := q.Scan(ctx); err != nil {
		return nil, translate(err, fmt.Sprintf("service %d", id))
	}
	return svc, nil
}

func (r serviceRepo) Get(ctx context.Context, id int64) (*models.Service, error) {
	return r.get(ctx, id, false)
}

func (r serviceRepo) GetForUpdate(ctx context.Context, id int64) (*models.Service, error) {
	return r.get(ctx, id, true)
}

// UpdateStatus is a compare-and-set on status, so a transition decided on a
// stale read cannot land.
func (r serviceRepo) UpdateStatus(ctx context.Context, svc *models.Service, prev lifecycle.Status) error {
	what := fmt.Sprintf("update service %d", svc.ID)
	updatedAt := time.Now().UTC()
	res, err := r.db.NewUpdate().
		Model((*models.Service)(nil)).
		Set("status = ?", svc.Status).
		Set("update_of_id = ?", svc.UpdateOfID).
		Set("updated_at = ?", updatedAt).
		Where("s.id = ?", svc.ID).
		Where("s.status = ?", prev).
		Exec(ctx)
	if err != nil {
		return translate(err, what)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	if n == 1 {
		svc.UpdatedAt = updatedAt
		return nil
	}

	exists, err := r.db.NewSelect().Model((*models.Service)(nil)).Where("s.id = ?", svc.ID).Exists(ctx)
	if err != nil {
		return translate(err, what)
	}
	if !exists {
		return fmt.Errorf("%s: %w", what, repository.ErrNotFound)
	}
	return fmt.Errorf("%s: status is no longer %s: %w", what, prev, lifecycle.ErrInvalidTransition)
}

func (r serviceRepo) selectServices(out *[]*models.Service) *bun.SelectQuery {
	return r.db.NewSelect().Model(out).Relation("SelectionCriteria")
}

func (r serviceRepo) ListDraftsFor(ctx context.Context, targetID, exceptID int64) ([]*models.Service, error) {
	var out []*models.Service
	err := r.selectServices(&out).
		Where("s.status = ?", lifecycle.StatusDraft).
		Where("s.update_of_id = ?", targetID).
		Where("s.id <> ?", exceptID).
		OrderExpr("s.id ASC").
		For("UPDATE OF s").
		Scan(ctx)
	if err != nil {
		return nil, translate(err, "list sibling drafts")
	}
	return out, nil
}

func (r serviceRepo) ListByProvider(ctx context.Context, providerID int64) ([]*models.Service, error) {
	var out []*models.Service
	err := r.selectServices(&out).
		Where("s.provider_id = ?", providerID).
		OrderExpr("s.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, translate(err, "list provider services")
	}
	return out, nil
}

func (r serviceRepo) ListByStatus(ctx context.Context, status lifecycle.Status, limit, offset int) ([]*models.Service, int, error) {
	var out []*models.Service
	q := r.selectServices(&out).
		Where("s.status = ?", status).
		OrderExpr("s.id ASC")
	total, err := paginate(q, limit, offset).ScanAndCount(ctx)
	if err != nil {
		return nil, 0, translate(err, "list services by status")
	}
	return out, total, nil
}

func (r serviceRepo) ListCurrent(ctx context.Context, params models.ServiceQueryParams) ([]*models.Service, int, error) {
	var out []*models.Service
	q := r.selectServices(&out).Where("s.status = ?", lifecycle.StatusCurrent)

	if len(params.TypeIDs) > 0 {
		q = q.Where("s.type_id IN (?)", bun.In(params.TypeIDs))
	}
	if len(params.AreaIDs) > 0 {
		q = q.Where("s.area_id IN (?)", bun.In(params.AreaIDs))
	}
	if len(params.ProviderIDs) > 0 {
		q = q.Where("s.provider_id IN (?)", bun.In(params.ProviderIDs))
	}
	if text := strings.TrimSpace(params.Text); text != "" {
		pattern := "%" + likeEscaper.Replace(text) + "%"
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where("s.name_en ILIKE ?", pattern).
				WhereOr("s.name_ar ILIKE ?", pattern).
				WhereOr("s.name_fr ILIKE ?", pattern)
		})
	}

	q = paginate(q.OrderExpr("s.id ASC"), params.Limit, params.Offset)
	total, err := q.ScanAndCount(ctx)
	if err != nil {
		return nil, 0, translate(err, "list current services")
	}
	return out, total, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func paginate(q *bun.SelectQuery, limit, offset int) *bun.SelectQuery {
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	return q
}
