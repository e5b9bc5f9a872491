package postgres

import (
	"context"
	"fmt"
	"time"

	"serviceinfo/internal/models"
	"serviceinfo/internal/optlock"
	"serviceinfo/internal/repository"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type providerRepo struct{ db bun.IDB }

func (r providerRepo) Create(ctx context.Context, p *models.Provider) error {
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	_, err := r.db.NewInsert().Model(p).Returning("id").Exec(ctx)
	return translate(err, "insert provider")
}

func (r providerRepo) Get(ctx context.Context, id int64) (*models.Provider, error) {
	p := new(models.Provider)
	if err := r.db.NewSelect().Model(p).Where("p.id = ?", id).Scan(ctx); err != nil {
		return nil, translate(err, fmt.Sprintf("provider %d", id))
	}
	return p, nil
}

func (r providerRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Provider, error) {
	p := new(models.Provider)
	if err := r.db.NewSelect().Model(p).Where("p.user_id = ?", userID).Scan(ctx); err != nil {
		return nil, translate(err, fmt.Sprintf("provider for user %s", userID))
	}
	return p, nil
}

func (r providerRepo) List(ctx context.Context, limit, offset int) ([]*models.Provider, int, error) {
	var out []*models.Provider
	q := paginate(r.db.NewSelect().Model(&out).OrderExpr("p.id ASC"), limit, offset)
	total, err := q.ScanAndCount(ctx)
	if err != nil {
		return nil, 0, translate(err, "list providers")
	}
	return out, total, nil
}

func (r providerRepo) Update(ctx context.Context, p *models.Provider) error {
	p.UpdatedAt = time.Now().UTC()
	res, err := r.db.NewUpdate().
		Model(p).
		ExcludeColumn("id", "user_id", "created_at").
		WherePK().
		Exec(ctx)
	return affected(res, err, fmt.Sprintf("update provider %d", p.ID))
}

type jiraRepo struct{ db bun.IDB }

func (r jiraRepo) Create(ctx context.Context, rec *models.JiraUpdateRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	rec.CreatedAt = time.Now().UTC()
	_, err := r.db.NewInsert().Model(rec).Returning("id").Exec(ctx)
	return translate(err, "insert jira update record")
}

func (r jiraRepo) Get(ctx context.Context, id int64) (*models.JiraUpdateRecord, error) {
	rec := new(models.JiraUpdateRecord)
	if err := r.db.NewSelect().Model(rec).Where("jr.id = ?", id).Scan(ctx); err != nil {
		return nil, translate(err, fmt.Sprintf("jira update record %d", id))
	}
	return rec, nil
}

func (r jiraRepo) ListByService(ctx context.Context, serviceID int64) ([]*models.JiraUpdateRecord, error) {
	var out []*models.JiraUpdateRecord
	err := r.db.NewSelect().Model(&out).
		Where("jr.service_id = ?", serviceID).
		OrderExpr("jr.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, translate(err, "list jira update records")
	}
	return out, nil
}

func (r jiraRepo) ListUnsynced(ctx context.Context, limit int) ([]*models.JiraUpdateRecord, error) {
	var out []*models.JiraUpdateRecord
	q := r.db.NewSelect().Model(&out).
		Where("jr.jira_issue_key = ''").
		Where("jr.update_type IN (?)", bun.In(models.TicketedTypes)).
		OrderExpr("jr.id ASC")
	if err := paginate(q, limit, 0).Scan(ctx); err != nil {
		return nil, translate(err, "list unsynced jira update records")
	}
	return out, nil
}

// SwapIssueKey is the compare-and-set the ticket sync lock is built on. Taking
// the claim stamps claimed_at; any other swap clears it.
func (r jiraRepo) SwapIssueKey(ctx context.Context, id int64, prev, next string) (bool, error) {
	var claimedAt *time.Time
	if next == optlock.Sentinel {
		now := time.Now().UTC()
		claimedAt = &now
	}
	res, err := r.db.NewUpdate().
		Model((*models.JiraUpdateRecord)(nil)).
		Set("jira_issue_key = ?", next).
		Set("claimed_at = ?", claimedAt).
		Where("id = ?", id).
		Where("jira_issue_key = ?", prev).
		Exec(ctx)
	if err != nil {
		return false, translate(err, fmt.Sprintf("swap issue key on record %d", id))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r jiraRepo) ReleaseStaleClaims(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := r.db.NewUpdate().
		Model((*models.JiraUpdateRecord)(nil)).
		Set("jira_issue_key = ''").
		Set("claimed_at = NULL").
		Where("jira_issue_key = ?", optlock.Sentinel).
		Where("claimed_at IS NULL OR claimed_at < ?", cutoff).
		Exec(ctx)
	if err != nil {
		return 0, translate(err, "release stale jira claims")
	}
	n, err := res.RowsAffected()
	return int(n), err
}

type userRepo struct{ db bun.IDB }

func (r userRepo) Create(ctx context.Context, u *models.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.CreatedAt = time.Now().UTC()
	_, err := r.db.NewInsert().Model(u).Exec(ctx)
	return translate(err, "insert user")
}

func (r userRepo) get(ctx context.Context, what string, where string, arg any) (*models.User, error) {
	u := new(models.User)
	if err := r.db.NewSelect().Model(u).Where(where, arg).Scan(ctx); err != nil {
		return nil, translate(err, what)
	}
	return u, nil
}

func (r userRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.get(ctx, fmt.Sprintf("user %s", id), "id = ?", id)
}

func (r userRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.get(ctx, "user by email", "lower(email) = lower(?)", email)
}

func (r userRepo) GetByActivationKey(ctx context.Context, key string) (*models.User, error) {
	// Blank keys belong to every activated user.
	if key == "" {
		return nil, fmt.Errorf("user by activation key: %w", repository.ErrNotFound)
	}
	return r.get(ctx, "user by activation key", "activation_key = ?", key)
}

func (r userRepo) update(ctx context.Context, id uuid.UUID, set string, args ...any) error {
	res, err := r.db.NewUpdate().
		Model((*models.User)(nil)).
		Set(set, args...).
		Where("id = ?", id).
		Exec(ctx)
	return affected(res, err, fmt.Sprintf("update user %s", id))
}

func (r userRepo) Activate(ctx context.Context, id uuid.UUID) error {
	return r.update(ctx, id, "is_active = TRUE, activation_key = ''")
}

func (r userRepo) TouchLastLogin(ctx context.Context, id uuid.UUID) error {
	return r.update(ctx, id, "last_login_at = ?", time.Now().UTC())
}

func (r userRepo) IncrementTokenVersion(ctx context.Context, id uuid.UUID) error {
	return r.update(ctx, id, "token_version = token_version + 1")
}

func (r userRepo) SetActivationKey(ctx context.Context, id uuid.UUID, key string) error {
	return r.update(ctx, id, "activation_key = ?", key)
}

func (r userRepo) GrantRole(ctx context.Context, id uuid.UUID, role string) error {
	return r.update(ctx, id, "roles = CASE WHEN ? = ANY(roles) THEN roles ELSE array_append(roles, ?) END", role, role)
}
