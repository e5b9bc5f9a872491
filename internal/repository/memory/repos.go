package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"serviceinfo/internal/geo"
	"serviceinfo/internal/lifecycle"
	"serviceinfo/internal/models"
	"serviceinfo/internal/optlock"
	"serviceinfo/internal/repository"

	"github.com/google/uuid"
)

func sortedByID[T any](m map[int64]T, keep func(T) bool) []int64 {
	ids := make([]int64, 0, len(m))
	for id, v := range m {
		if keep == nil || keep(v) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

type areaRepo struct{ s *Store }

func (r areaRepo) Create(_ context.Context, area *models.ServiceArea) error {
	if len(area.Region) > 0 {
		if _, err := geo.Parse(area.Region); err != nil {
			return err
		}
	}
	return r.s.write(func(t *tables) error {
		area.ID = r.s.next("service_areas")
		t.areas[area.ID] = *area
		return nil
	})
}

func (r areaRepo) Get(_ context.Context, id int64) (*models.ServiceArea, error) {
	var (
		a  models.ServiceArea
		ok bool
	)
	r.s.read(func(t *tables) { a, ok = t.areas[id] })
	if !ok {
		return nil, fmt.Errorf("service area %d: %w", id, repository.ErrNotFound)
	}
	return &a, nil
}

func (r areaRepo) List(_ context.Context, params models.ServiceAreaQueryParams) ([]*models.ServiceArea, error) {
	var out []*models.ServiceArea
	r.s.read(func(t *tables) {
		for _, id := range sortedByID(t.areas, nil) {
			a := t.areas[id]
			if params.RootsOnly && a.ParentID != nil {
				continue
			}
			if params.ParentID != 0 && (a.ParentID == nil || *a.ParentID != params.ParentID) {
				continue
			}
			if params.WithRegion && len(a.Region) == 0 {
				continue
			}
			out = append(out, &a)
		}
	})
	return out, nil
}

func (r areaRepo) Containing(_ context.Context, lng, lat float64) ([]*models.ServiceArea, error) {
	var candidates []models.ServiceArea
	r.s.read(func(t *tables) {
		for _, id := range sortedByID(t.areas, func(a models.ServiceArea) bool { return len(a.Region) > 0 }) {
			candidates = append(candidates, t.areas[id])
		}
	})

	pt := geo.Point{Lng: lng, Lat: lat}
	var out []*models.ServiceArea
	for i := range candidates {
		shape, err := geo.Parse(candidates[i].Region)
		if err != nil {
			return nil, fmt.Errorf("service area %d region: %w", candidates[i].ID, err)
		}
		if shape.Contains(pt) {
			out = append(out, &candidates[i])
		}
	}
	return out, nil
}

type typeRepo struct{ s *Store }

func (r typeRepo) CreateServiceType(_ context.Context, st *models.ServiceType) error {
	return r.s.write(func(t *tables) error {
		for _, other := range t.serviceTypes {
			if other.Number == st.Number {
				return fmt.Errorf("service type number %d: %w", st.Number, repository.ErrConflict)
			}
		}
		st.ID = r.s.next("service_types")
		t.serviceTypes[st.ID] = *st
		return nil
	})
}

func (r typeRepo) GetServiceType(_ context.Context, id int64) (*models.ServiceType, error) {
	var (
		st models.ServiceType
		ok bool
	)
	r.s.read(func(t *tables) { st, ok = t.serviceTypes[id] })
	if !ok {
		return nil, fmt.Errorf("service type %d: %w", id, repository.ErrNotFound)
	}
	return &st, nil
}

func (r typeRepo) ListServiceTypes(_ context.Context) ([]*models.ServiceType, error) {
	var out []*models.ServiceType
	r.s.read(func(t *tables) {
		for _, v := range t.serviceTypes {
			out = append(out, &v)
		}
	})
	slices.SortFunc(out, func(a, b *models.ServiceType) int { return a.Number - b.Number })
	return out, nil
}

func (r typeRepo) CreateProviderType(_ context.Context, pt *models.ProviderType) error {
	return r.s.write(func(t *tables) error {
		for _, other := range t.providerTypes {
			if other.Number == pt.Number {
				return fmt.Errorf("provider type number %d: %w", pt.Number, repository.ErrConflict)
			}
		}
		pt.ID = r.s.next("provider_types")
		t.providerTypes[pt.ID] = *pt
		return nil
	})
}

func (r typeRepo) GetProviderType(_ context.Context, id int64) (*models.ProviderType, error) {
	var (
		pt models.ProviderType
		ok bool
	)
	r.s.read(func(t *tables) { pt, ok = t.providerTypes[id] })
	if !ok {
		return nil, fmt.Errorf("provider type %d: %w", id, repository.ErrNotFound)
	}
	return &pt, nil
}

func (r typeRepo) ListProviderTypes(_ context.Context) ([]*models.ProviderType, error) {
	var out []*models.ProviderType
	r.s.read(func(t *tables) {
		for _, v := range t.providerTypes {
			out = append(out, &v)
		}
	})
	slices.SortFunc(out, func(a, b *models.ProviderType) int { return a.Number - b.Number })
	return out, nil
}

type providerRepo struct{ s *Store }

func (r providerRepo) Create(_ context.Context, p *models.Provider) error {
	return r.s.write(func(t *tables) error {
		for _, other := range t.providers {
			if other.UserID == p.UserID {
				return fmt.Errorf("provider for user %s: %w", p.UserID, repository.ErrConflict)
			}
		}
		now := time.Now().UTC()
		p.ID = r.s.next("providers")
		p.CreatedAt, p.UpdatedAt = now, now
		t.providers[p.ID] = *p
		return nil
	})
}

func (r providerRepo) Get(_ context.Context, id int64) (*models.Provider, error) {
	var (
		p  models.Provider
		ok bool
	)
	r.s.read(func(t *tables) { p, ok = t.providers[id] })
	if !ok {
		return nil, fmt.Errorf("provider %d: %w", id, repository.ErrNotFound)
	}
	return &p, nil
}

func (r providerRepo) GetByUserID(_ context.Context, userID uuid.UUID) (*models.Provider, error) {
	var found *models.Provider
	r.s.read(func(t *tables) {
		for _, p := range t.providers {
			if p.UserID == userID {
				found = &p
				return
			}
		}
	})
	if found == nil {
		return nil, fmt.Errorf("provider for user %s: %w", userID, repository.ErrNotFound)
	}
	return found, nil
}

func (r providerRepo) List(_ context.Context, limit, offset int) ([]*models.Provider, int, error) {
	var out []*models.Provider
	r.s.read(func(t *tables) {
		for _, id := range sortedByID(t.providers, nil) {
			p := t.providers[id]
			out = append(out, &p)
		}
	})
	return page(out, limit, offset), len(out), nil
}

func (r providerRepo) Update(_ context.Context, p *models.Provider) error {
	return r.s.write(func(t *tables) error {
		old, ok := t.providers[p.ID]
		if !ok {
			return fmt.Errorf("provider %d: %w", p.ID, repository.ErrNotFound)
		}
		p.UserID, p.CreatedAt = old.UserID, old.CreatedAt
		p.UpdatedAt = time.Now().UTC()
		t.providers[p.ID] = *p
		return nil
	})
}

type serviceRepo struct{ s *Store }

func (r serviceRepo) Insert(_ context.Context, svc *models.Service) error {
	return r.s.write(func(t *tables) error {
		now := time.Now().UTC()
		svc.ID = r.s.next("services")
		svc.CreatedAt, svc.UpdatedAt = now, now
		if svc.Status == "" {
			svc.Status = lifecycle.StatusDraft
		}

		crit := make([]models.SelectionCriterion, 0, len(svc.SelectionCriteria))
		for _, c := range svc.SelectionCriteria {
			c.ID = r.s.next("selection_criteria")
			c.ServiceID = svc.ID
			crit = append(crit, *c)
		}
		t.criteria[svc.ID] = crit

		row := *svc
		row.SelectionCriteria = nil
		t.services[svc.ID] = row
		return nil
	})
}

// load must be called under a lock.
func load(t *tables, id int64) (*models.Service, bool) {
	row, ok := t.services[id]
	if !ok {
		return nil, false
	}
	crit := t.criteria[id]
	row.SelectionCriteria = make([]*models.SelectionCriterion, len(crit))
	for i := range crit {
		c := crit[i]
		row.SelectionCriteria[i] = &c
	}
	return &row, true
}

func (r serviceRepo) Get(_ context.Context, id int64) (*models.Service, error) {
	var (
		svc *models.Service
		ok  bool
	)
	r.s.read(func(t *tables) { svc, ok = load(t, id) })
	if !ok {
		return nil, fmt.Errorf("service %d: %w", id, repository.ErrNotFound)
	}
	return svc, nil
}

// GetForUpdate needs no row lock here: transactions already run one at a time.
func (r serviceRepo) GetForUpdate(ctx context.Context, id int64) (*models.Service, error) {
	return r.Get(ctx, id)
}

func (r serviceRepo) UpdateStatus(_ context.Context, svc *models.Service, prev lifecycle.Status) error {
	return r.s.write(func(t *tables) error {
		row, ok := t.services[svc.ID]
		if !ok {
			return fmt.Errorf("service %d: %w", svc.ID, repository.ErrNotFound)
		}
		if row.Status != prev {
			return fmt.Errorf("update service %d: status is no longer %s: %w", svc.ID, prev, lifecycle.ErrInvalidTransition)
		}
		svc.UpdatedAt = time.Now().UTC()
		row.Status, row.UpdateOfID, row.UpdatedAt = svc.Status, svc.UpdateOfID, svc.UpdatedAt
		t.services[svc.ID] = row
		return nil
	})
}

func (r serviceRepo) list(keep func(models.Service) bool) []*models.Service {
	var out []*models.Service
	r.s.read(func(t *tables) {
		for _, id := range sortedByID(t.services, keep) {
			svc, _ := load(t, id)
			out = append(out, svc)
		}
	})
	return out
}

func (r serviceRepo) ListDraftsFor(_ context.Context, targetID, exceptID int64) ([]*models.Service, error) {
	return r.list(func(s models.Service) bool {
		return s.Status == lifecycle.StatusDraft && s.ID != exceptID &&
			s.UpdateOfID != nil && *s.UpdateOfID == targetID
	}), nil
}

func (r serviceRepo) ListByProvider(_ context.Context, providerID int64) ([]*models.Service, error) {
	return r.list(func(s models.Service) bool { return s.ProviderID == providerID }), nil
}

func (r serviceRepo) ListByStatus(_ context.Context, status lifecycle.Status, limit, offset int) ([]*models.Service, int, error) {
	out := r.list(func(s models.Service) bool { return s.Status == status })
	return page(out, limit, offset), len(out), nil
}

func (r serviceRepo) ListCurrent(_ context.Context, params models.ServiceQueryParams) ([]*models.Service, int, error) {
	out := r.list(func(s models.Service) bool {
		if s.Status != lifecycle.StatusCurrent {
			return false
		}
		if len(params.TypeIDs) > 0 && !slices.Contains(params.TypeIDs, s.TypeID) {
			return false
		}
		if len(params.AreaIDs) > 0 && !slices.Contains(params.AreaIDs, s.AreaID) {
			return false
		}
		if len(params.ProviderIDs) > 0 && !slices.Contains(params.ProviderIDs, s.ProviderID) {
			return false
		}
		return s.MatchesText(params.Text)
	})
	return page(out, params.Limit, params.Offset), len(out), nil
}

type jiraRepo struct{ s *Store }

func (r jiraRepo) Create(_ context.Context, rec *models.JiraUpdateRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	return r.s.write(func(t *tables) error {
		if rec.ServiceID != nil {
			for _, other := range t.jira {
				if other.ServiceID != nil && *other.ServiceID == *rec.ServiceID && other.UpdateType == rec.UpdateType {
					return fmt.Errorf("%s record for service %d: %w", rec.UpdateType, *rec.ServiceID, repository.ErrConflict)
				}
			}
		}
		rec.ID = r.s.next("jira_update_records")
		rec.CreatedAt = time.Now().UTC()
		t.jira[rec.ID] = *rec
		return nil
	})
}

func (r jiraRepo) Get(_ context.Context, id int64) (*models.JiraUpdateRecord, error) {
	var (
		rec models.JiraUpdateRecord
		ok  bool
	)
	r.s.read(func(t *tables) { rec, ok = t.jira[id] })
	if !ok {
		return nil, fmt.Errorf("jira update record %d: %w", id, repository.ErrNotFound)
	}
	return &rec, nil
}

func (r jiraRepo) list(keep func(models.JiraUpdateRecord) bool) []*models.JiraUpdateRecord {
	var out []*models.JiraUpdateRecord
	r.s.read(func(t *tables) {
		for _, id := range sortedByID(t.jira, keep) {
			rec := t.jira[id]
			out = append(out, &rec)
		}
	})
	return out
}

func (r jiraRepo) ListByService(_ context.Context, serviceID int64) ([]*models.JiraUpdateRecord, error) {
	return r.list(func(rec models.JiraUpdateRecord) bool {
		return rec.ServiceID != nil && *rec.ServiceID == serviceID
	}), nil
}

func (r jiraRepo) ListUnsynced(_ context.Context, limit int) ([]*models.JiraUpdateRecord, error) {
	out := r.list(func(rec models.JiraUpdateRecord) bool { return rec.JiraIssueKey == "" && rec.UpdateType.Ticketed() })
	return page(out, limit, 0), nil
}

func (r jiraRepo) SwapIssueKey(_ context.Context, id int64, prev, next string) (bool, error) {
	swapped := false
	err := r.s.write(func(t *tables) error {
		rec, ok := t.jira[id]
		if !ok || rec.JiraIssueKey != prev {
			return nil
		}
		rec.JiraIssueKey = next
		rec.ClaimedAt = nil
		if next == optlock.Sentinel {
			now := time.Now().UTC()
			rec.ClaimedAt = &now
		}
		t.jira[id] = rec
		swapped = true
		return nil
	})
	return swapped, err
}

func (r jiraRepo) ReleaseStaleClaims(_ context.Context, cutoff time.Time) (int, error) {
	released := 0
	err := r.s.write(func(t *tables) error {
		for id, rec := range t.jira {
			if rec.JiraIssueKey != optlock.Sentinel || (rec.ClaimedAt != nil && !rec.ClaimedAt.Before(cutoff)) {
				continue
			}
			rec.JiraIssueKey, rec.ClaimedAt = "", nil
			t.jira[id] = rec
			released++
		}
		return nil
	})
	return released, err
}

type userRepo struct{ s *Store }

func (r userRepo) Create(_ context.Context, u *models.User) error {
	return r.s.write(func(t *tables) error {
		for _, other := range t.users {
			if strings.EqualFold(other.Email, u.Email) {
				return fmt.Errorf("user %s: %w", u.Email, repository.ErrConflict)
			}
		}
		if u.ID == uuid.Nil {
			u.ID = uuid.New()
		}
		u.CreatedAt = time.Now().UTC()
		u.Roles = slices.Clone(u.Roles)
		t.users[u.ID] = *u
		return nil
	})
}

func (r userRepo) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	var (
		u  models.User
		ok bool
	)
	r.s.read(func(t *tables) { u, ok = t.users[id] })
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, repository.ErrNotFound)
	}
	return &u, nil
}

func (r userRepo) find(match func(models.User) bool) *models.User {
	var found *models.User
	r.s.read(func(t *tables) {
		for _, u := range t.users {
			if match(u) {
				found = &u
				return
			}
		}
	})
	return found
}

func (r userRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	u := r.find(func(u models.User) bool { return strings.EqualFold(u.Email, email) })
	if u == nil {
		return nil, fmt.Errorf("user %s: %w", email, repository.ErrNotFound)
	}
	return u, nil
}

func (r userRepo) GetByActivationKey(_ context.Context, key string) (*models.User, error) {
	if key == "" {
		return nil, fmt.Errorf("activation key: %w", repository.ErrNotFound)
	}
	u := r.find(func(u models.User) bool { return u.ActivationKey == key })
	if u == nil {
		return nil, fmt.Errorf("activation key: %w", repository.ErrNotFound)
	}
	return u, nil
}

func (r userRepo) update(id uuid.UUID, fn func(u *models.User)) error {
	return r.s.write(func(t *tables) error {
		u, ok := t.users[id]
		if !ok {
			return fmt.Errorf("user %s: %w", id, repository.ErrNotFound)
		}
		fn(&u)
		t.users[id] = u
		return nil
	})
}

func (r userRepo) Activate(_ context.Context, id uuid.UUID) error {
	return r.update(id, func(u *models.User) {
		u.IsActive = true
		u.ActivationKey = ""
	})
}

func (r userRepo) TouchLastLogin(_ context.Context, id uuid.UUID) error {
	return r.update(id, func(u *models.User) {
		now := time.Now().UTC()
		u.LastLoginAt = &now
	})
}

func (r userRepo) IncrementTokenVersion(_ context.Context, id uuid.UUID) error {
	return r.update(id, func(u *models.User) { u.TokenVersion++ })
}

func (r userRepo) SetActivationKey(_ context.Context, id uuid.UUID, key string) error {
	return r.update(id, func(u *models.User) { u.ActivationKey = key })
}

func (r userRepo) GrantRole(_ context.Context, id uuid.UUID, role string) error {
	return r.update(id, func(u *models.User) {
		if !slices.Contains(u.Roles, role) {
			u.Roles = append(slices.Clone(u.Roles), role)
		}
	})
}
