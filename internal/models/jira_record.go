package models

import (
	"fmt"
	"strings"
	"time"

	"serviceinfo/internal/optlock"

	"github.com/uptrace/bun"
)

// UpdateType names the lifecycle event an audit record documents.
type UpdateType string

const (
	UpdateProviderChange       UpdateType = "provider-change"
	UpdateNewService           UpdateType = "new-service"
	UpdateChangeService        UpdateType = "change-service"
	UpdateCancelDraftService   UpdateType = "cancel-draft-service"
	UpdateCancelCurrentService UpdateType = "cancel-current-service"
)

// Label is the staff-facing description of the update type.
func (t UpdateType) Label() string {
	switch t {
	case UpdateProviderChange:
		return "Provider updated their information"
	case UpdateNewService:
		return "New service submitted by provider"
	case UpdateChangeService:
		return "Change to existing service submitted by provider"
	case UpdateCancelDraftService:
		return "Provider canceled a draft service"
	case UpdateCancelCurrentService:
		return "Provider canceled a current service"
	default:
		return string(t)
	}
}

// Ticketed reports whether records of this type open a Jira issue. The other
// types are audit-only.
func (t UpdateType) Ticketed() bool {
	return t == UpdateNewService || t == UpdateChangeService
}

// TicketedTypes lists the update types that open a Jira issue.
var TicketedTypes = []UpdateType{UpdateNewService, UpdateChangeService}

// JiraUpdateRecord is an append-only audit row for a provider or service
// event. JiraIssueKey stays blank until the record is pushed to Jira.
// Each service update type can only happen once per service.
type JiraUpdateRecord struct {
	bun.BaseModel `bun:"table:jira_update_records,alias:jr"`

	ID           int64      `bun:"id,pk,autoincrement" json:"id"`
	ServiceID    *int64     `bun:"service_id,unique:service_update_type" json:"service_id"`
	ProviderID   *int64     `bun:"provider_id" json:"provider_id"`
	UpdateType   UpdateType `bun:"update_type,notnull,unique:service_update_type" json:"update_type"`
	JiraIssueKey string     `bun:"jira_issue_key,notnull,default:''" json:"jira_issue_key"`
	// ClaimedAt is set while JiraIssueKey holds the claim sentinel.
	ClaimedAt    *time.Time `bun:"claimed_at" json:"-"`
	CreatedAt    time.Time  `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}

// Validate checks that exactly the right one of service or provider is set
// for the update type. Stores call it before every insert.
func (r *JiraUpdateRecord) Validate() error {
	var errs []string
	switch r.UpdateType {
	case "":
		errs = append(errs, "must have a non-blank update_type")
	case UpdateProviderChange:
		if r.ProviderID == nil {
			errs = append(errs, fmt.Sprintf("%s must specify provider", r.UpdateType))
		}
		if r.ServiceID != nil {
			errs = append(errs, fmt.Sprintf("%s must not specify service", r.UpdateType))
		}
	case UpdateNewService, UpdateChangeService, UpdateCancelDraftService, UpdateCancelCurrentService:
		if r.ServiceID == nil {
			errs = append(errs, fmt.Sprintf("%s must specify service", r.UpdateType))
		}
		if r.ProviderID != nil {
			errs = append(errs, fmt.Sprintf("%s must not specify provider", r.UpdateType))
		}
	default:
		errs = append(errs, fmt.Sprintf("unrecognized update_type: %s", r.UpdateType))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidJiraRecord, strings.Join(errs, ", "))
	}
	return nil
}

// Synced reports whether a Jira issue key has been stored.
func (r *JiraUpdateRecord) Synced() bool {
	return r.JiraIssueKey != "" && r.JiraIssueKey != optlock.Sentinel
}

// NewServiceRecord builds an audit row for a service event.
func NewServiceRecord(serviceID int64, t UpdateType) *JiraUpdateRecord {
	return &JiraUpdateRecord{ServiceID: &serviceID, UpdateType: t}
}

// NewProviderRecord builds an audit row for a provider event.
func NewProviderRecord(providerID int64) *JiraUpdateRecord {
	return &JiraUpdateRecord{ProviderID: &providerID, UpdateType: UpdateProviderChange}
}
