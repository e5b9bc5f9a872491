// Package repository declares the persistence ports of the directory. The
// postgres subpackage implements them with bun on PostgreSQL/PostGIS; the
// memory subpackage keeps everything in process for tests and local runs.
package repository

import (
	"context"
	"errors"
	"time"

	"serviceinfo/internal/lifecycle"
	"serviceinfo/internal/models"

	"github.com/google/uuid"
)

// Stores return these (optionally wrapped) so services can translate them.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// Store groups the repositories. RunInTx gives fn a Store bound to one
// transaction: either every write made through it lands or none does.
// Calling RunInTx on a transactional Store reuses the open transaction.
type Store interface {
	Areas() AreaRepository
	Types() TypeRepository
	Providers() ProviderRepository
	Services() ServiceRepository
	JiraRecords() JiraRecordRepository
	Users() UserRepository
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}

type AreaRepository interface {
	Create(ctx context.Context, area *models.ServiceArea) error
	Get(ctx context.Context, id int64) (*models.ServiceArea, error)
	List(ctx context.Context, params models.ServiceAreaQueryParams) ([]*models.ServiceArea, error)
	// Containing returns areas whose polygon contains the point.
	Containing(ctx context.Context, lng, lat float64) ([]*models.ServiceArea, error)
}

type TypeRepository interface {
	CreateServiceType(ctx context.Context, t *models.ServiceType) error
	GetServiceType(ctx context.Context, id int64) (*models.ServiceType, error)
	ListServiceTypes(ctx context.Context) ([]*models.ServiceType, error)
	CreateProviderType(ctx context.Context, t *models.ProviderType) error
	GetProviderType(ctx context.Context, id int64) (*models.ProviderType, error)
	ListProviderTypes(ctx context.Context) ([]*models.ProviderType, error)
}

type ProviderRepository interface {
	Create(ctx context.Context, p *models.Provider) error
	Get(ctx context.Context, id int64) (*models.Provider, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Provider, error)
	// List returns one page and the number of providers across all pages.
	List(ctx context.Context, limit, offset int) ([]*models.Provider, int, error)
	Update(ctx context.Context, p *models.Provider) error
}

type ServiceRepository interface {
	// Insert stores a new record and its selection criteria.
	Insert(ctx context.Context, s *models.Service) error
	Get(ctx context.Context, id int64) (*models.Service, error)
	// GetForUpdate is Get plus a row lock held until the transaction ends.
	GetForUpdate(ctx context.Context, id int64) (*models.Service, error)
	// UpdateStatus persists Status, UpdateOfID and UpdatedAt only, and only
	// while the stored status is still prev. A stale prev fails with
	// lifecycle.ErrInvalidTransition.
	UpdateStatus(ctx context.Context, s *models.Service, prev lifecycle.Status) error
	// ListDraftsFor returns drafts whose update_of is targetID, skipping exceptID.
	ListDraftsFor(ctx context.Context, targetID, exceptID int64) ([]*models.Service, error)
	ListByProvider(ctx context.Context, providerID int64) ([]*models.Service, error)
	// ListByStatus returns one page and the total count with that status.
	ListByStatus(ctx context.Context, status lifecycle.Status, limit, offset int) ([]*models.Service, int, error)
	// ListCurrent is the public listing: one page of current records matching
	// params, plus how many match across all pages.
	ListCurrent(ctx context.Context, params models.ServiceQueryParams) ([]*models.Service, int, error)
}

type JiraRecordRepository interface {
	// Create validates and inserts the record. A second record with the same
	// (service, update type) fails with ErrConflict.
	Create(ctx context.Context, r *models.JiraUpdateRecord) error
	Get(ctx context.Context, id int64) (*models.JiraUpdateRecord, error)
	ListByService(ctx context.Context, serviceID int64) ([]*models.JiraUpdateRecord, error)
	// ListUnsynced returns ticketed records with a blank issue key, oldest first.
	ListUnsynced(ctx context.Context, limit int) ([]*models.JiraUpdateRecord, error)
	// SwapIssueKey sets jira_issue_key to next only where it currently equals
	// prev, as one atomic single-row update. It reports whether a row changed.
	SwapIssueKey(ctx context.Context, id int64, prev, next string) (bool, error)
	// ReleaseStaleClaims blanks issue keys still holding the claim sentinel
	// that were claimed before cutoff, and returns how many it released.
	ReleaseStaleClaims(ctx context.Context, cutoff time.Time) (int, error)
}

type UserRepository interface {
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByActivationKey(ctx context.Context, key string) (*models.User, error)
	// Activate marks the user active and clears the activation key.
	Activate(ctx context.Context, id uuid.UUID) error
	TouchLastLogin(ctx context.Context, id uuid.UUID) error
	// IncrementTokenVersion invalidates every token issued so far.
	IncrementTokenVersion(ctx context.Context, id uuid.UUID) error
	// SetActivationKey stores a new (hashed) key on a pending user.
	SetActivationKey(ctx context.Context, id uuid.UUID, key string) error
	// GrantRole adds role unless the user already has it.
	GrantRole(ctx context.Context, id uuid.UUID, role string) error
}
