package services

import (
	"context"
	"errors"
	"strings"

	"serviceinfo/internal/lifecycle"
	"serviceinfo/internal/metrics"
	"serviceinfo/internal/models"
	"serviceinfo/internal/notify"
	"serviceinfo/internal/repository"

	"go.uber.org/zap"
)

// CriterionInput is one selection criterion submitted with a service.
type CriterionInput struct {
	TextEN string `json:"text_en" validate:"max=100"`
	TextFR string `json:"text_fr" validate:"max=100"`
	TextAR string `json:"text_ar" validate:"max=100"`
}

// ServiceInput is what a provider submits for a new service or an edit.
// UpdateOf names the record the submission would replace.
type ServiceInput struct {
	TypeID           int64    `json:"type" validate:"required"`
	AreaID           int64    `json:"area_of_service" validate:"required"`
	NameEN           string   `json:"name_en" validate:"max=45"`
	NameAR           string   `json:"name_ar" validate:"max=45"`
	NameFR           string   `json:"name_fr" validate:"max=45"`
	DescriptionEN    string   `json:"description_en"`
	DescriptionAR    string   `json:"description_ar"`
	DescriptionFR    string   `json:"description_fr"`
	AdditionalInfoEN string   `json:"additional_info_en"`
	AdditionalInfoAR string   `json:"additional_info_ar"`
	AdditionalInfoFR string   `json:"additional_info_fr"`
	CostOfService    string   `json:"cost_of_service"`
	Latitude         *float64 `json:"latitude" validate:"omitempty,latitude"`
	Longitude        *float64 `json:"longitude" validate:"omitempty,longitude"`
	UpdateOf         *int64   `json:"update_of"`

	models.OpeningHours

	SelectionCriteria []CriterionInput `json:"selection_criteria" validate:"dive"`
}

// ServiceRecordService runs the service versioning workflow. Every operation
// that changes state does so in a single store transaction.
type ServiceRecordService struct {
	store    repository.Store
	notifier notify.Notifier
	jira     *JiraService
	metrics  *metrics.Metrics
	logr     *zap.Logger
}

func NewServiceRecordService(store repository.Store, notifier notify.Notifier, jira *JiraService, m *metrics.Metrics, logr *zap.Logger) *ServiceRecordService {
	return &ServiceRecordService{store: store, notifier: notifier, jira: jira, metrics: m, logr: logr}
}

func (s *ServiceRecordService) validate(ctx context.Context, in *ServiceInput) error {
	verr := validateStruct(in)

	if strings.TrimSpace(in.NameEN+in.NameAR+in.NameFR) == "" {
		verr.Add("name_en", "A name is required in at least one language.")
	}
	if (in.Latitude == nil) != (in.Longitude == nil) {
		verr.Add("location", "Both latitude and longitude are required.")
	}
	validateHours(&in.OpeningHours, verr)

	if in.TypeID != 0 {
		if _, err := s.store.Types().GetServiceType(ctx, in.TypeID); errors.Is(err, repository.ErrNotFound) {
			verr.Add("type", msgDoesNotExist)
		} else if err != nil {
			return err
		}
	}
	if in.AreaID != 0 {
		if _, err := s.store.Areas().Get(ctx, in.AreaID); errors.Is(err, repository.ErrNotFound) {
			verr.Add("area_of_service", msgDoesNotExist)
		} else if err != nil {
			return err
		}
	}
	return verr.Err()
}

// validateHours checks each time parses and that open/close come in pairs
// with close after open.
func validateHours(h *models.OpeningHours, verr *ValidationError) {
	fields := h.Fields()
	for i := 0; i < len(fields); i += 2 {
		open, closing := fields[i], fields[i+1]
		for _, f := range []models.HourField{open, closing} {
			if f.Value != nil {
				if _, err := parseClock(*f.Value); err != nil {
					verr.Add(f.Field, "Time has wrong format. Use one of these formats instead: hh:mm[:ss].")
				}
			}
		}
		if (open.Value == nil) != (closing.Value == nil) {
			verr.Add(closing.Field, "Both open and close times are required for a day.")
			continue
		}
		if open.Value == nil {
			continue
		}
		o, err1 := parseClock(*open.Value)
		c, err2 := parseClock(*closing.Value)
		if err1 == nil && err2 == nil && !c.After(o) {
			verr.Add(closing.Field, "Closing time must be after opening time.")
		}
	}
}

func (in *ServiceInput) toModel(providerID int64) *models.Service {
	svc := &models.Service{
		ProviderID:       providerID,
		TypeID:           in.TypeID,
		AreaID:           in.AreaID,
		NameEN:           in.NameEN,
		NameAR:           in.NameAR,
		NameFR:           in.NameFR,
		DescriptionEN:    in.DescriptionEN,
		DescriptionAR:    in.DescriptionAR,
		DescriptionFR:    in.DescriptionFR,
		AdditionalInfoEN: in.AdditionalInfoEN,
		AdditionalInfoAR: in.AdditionalInfoAR,
		AdditionalInfoFR: in.AdditionalInfoFR,
		CostOfService:    in.CostOfService,
		OpeningHours:     in.OpeningHours,
		Latitude:         in.Latitude,
		Longitude:        in.Longitude,
		Status:           lifecycle.StatusDraft,
		UpdateOfID:       in.UpdateOf,
	}
	for _, c := range in.SelectionCriteria {
		svc.SelectionCriteria = append(svc.SelectionCriteria, &models.SelectionCriterion{
			TextEN: c.TextEN, TextFR: c.TextFR, TextAR: c.TextAR,
		})
	}
	return svc
}

// transition applies event to svc and persists the new status.
func (s *ServiceRecordService) transition(ctx context.Context, tx repository.Store, svc *models.Service, event lifecycle.Event) error {
	prev := svc.Status
	next, err := lifecycle.Next(prev, event)
	if err != nil {
		return err
	}
	svc.Status = next
	if next != lifecycle.StatusDraft {
		svc.UpdateOfID = nil
	}
	if err := tx.Services().UpdateStatus(ctx, svc, prev); err != nil {
		return err
	}
	s.metrics.Transition(string(event), string(next))
	return nil
}

// supersede archives a draft the provider replaced and logs the cancellation.
func (s *ServiceRecordService) supersedeDraft(ctx context.Context, tx repository.Store, draft *models.Service) error {
	if err := s.transition(ctx, tx, draft, lifecycle.EventSupersede); err != nil {
		return err
	}
	return tx.JiraRecords().Create(ctx, models.NewServiceRecord(draft.ID, models.UpdateCancelDraftService))
}

// Create stores a new draft for providerID.
//
// An edit of a draft that has never been approved replaces that draft: the
// old one is archived and the new one stands alone. An edit of anything else
// keeps update_of, and every other draft aimed at the same record is archived
// so at most one pending edit survives.
func (s *ServiceRecordService) Create(ctx context.Context, providerID int64, in ServiceInput) (*models.Service, error) {
	if err := s.validate(ctx, &in); err != nil {
		return nil, err
	}
	svc := in.toModel(providerID)

	var auditID int64
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx repository.Store) error {
		if svc.UpdateOfID != nil {
			// Locking the target queues concurrent edits of it behind this one.
			target, err := tx.Services().GetForUpdate(ctx, *svc.UpdateOfID)
			if errors.Is(err, repository.ErrNotFound) || (err == nil && target.ProviderID != providerID) {
				return fieldError("update_of", msgDoesNotExist)
			}
			if err != nil {
				return err
			}
			if target.Status == lifecycle.StatusDraft && target.UpdateOfID == nil {
				if err := s.supersedeDraft(ctx, tx, target); err != nil {
					return err
				}
				svc.UpdateOfID = nil
			}
		}

		if err := tx.Services().Insert(ctx, svc); err != nil {
			return err
		}

		updateType := models.UpdateNewService
		if svc.UpdateOfID != nil {
			updateType = models.UpdateChangeService
			siblings, err := tx.Services().ListDraftsFor(ctx, *svc.UpdateOfID, svc.ID)
			if err != nil {
				return err
			}
			for _, sib := range siblings {
				if err := s.supersedeDraft(ctx, tx, sib); err != nil {
					return err
				}
			}
		}

		rec := models.NewServiceRecord(svc.ID, updateType)
		if err := tx.JiraRecords().Create(ctx, rec); err != nil {
			return err
		}
		auditID = rec.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logr.Info("service draft created",
		zap.Int64("service_id", svc.ID),
		zap.Int64("provider_id", providerID),
		zap.Bool("is_update", svc.UpdateOfID != nil))
	s.syncAfterCommit(ctx, auditID)
	return svc, nil
}

// Approve makes a draft current, archiving the record it replaces.
func (s *ServiceRecordService) Approve(ctx context.Context, id int64) (*models.Service, error) {
	var svc *models.Service
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx repository.Store) error {
		var err error
		if svc, err = tx.Services().GetForUpdate(ctx, id); err != nil {
			return err
		}
		// Checked up front so a non-draft never archives its target.
		if _, err := lifecycle.Next(svc.Status, lifecycle.EventApprove); err != nil {
			return err
		}
		if svc.UpdateOfID != nil {
			prior, err := tx.Services().GetForUpdate(ctx, *svc.UpdateOfID)
			if err != nil {
				return err
			}
			if prior.Status == lifecycle.StatusCurrent {
				if err := s.transition(ctx, tx, prior, lifecycle.EventSupersede); err != nil {
					return err
				}
			}
		}
		return s.transition(ctx, tx, svc, lifecycle.EventApprove)
	})
	if err != nil {
		return nil, err
	}

	s.logr.Info("service approved", zap.Int64("service_id", svc.ID))
	s.notifyApproved(ctx, svc)
	return svc, nil
}

func (s *ServiceRecordService) notifyApproved(ctx context.Context, svc *models.Service) {
	provider, err := s.store.Providers().Get(ctx, svc.ProviderID)
	if err == nil {
		err = s.notifier.ServiceApproved(ctx, svc, provider)
	}
	if err != nil {
		s.metrics.NotifyFailures.Inc()
		s.logr.Warn("approval notification not sent", zap.Int64("service_id", svc.ID), zap.Error(err))
	}
}

// Reject closes a draft without touching the record it targeted.
func (s *ServiceRecordService) Reject(ctx context.Context, id int64) (*models.Service, error) {
	var svc *models.Service
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx repository.Store) error {
		var err error
		if svc, err = tx.Services().GetForUpdate(ctx, id); err != nil {
			return err
		}
		return s.transition(ctx, tx, svc, lifecycle.EventReject)
	})
	if err != nil {
		return nil, err
	}
	s.logr.Info("service rejected", zap.Int64("service_id", svc.ID))
	return svc, nil
}

// Cancel withdraws a provider's draft or current service. Records in any
// other state cannot be canceled and get no audit row.
func (s *ServiceRecordService) Cancel(ctx context.Context, providerID, id int64) (*models.Service, error) {
	var svc *models.Service
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx repository.Store) error {
		var err error
		if svc, err = tx.Services().GetForUpdate(ctx, id); err != nil {
			return err
		}
		if svc.ProviderID != providerID {
			return repository.ErrNotFound
		}

		updateType := models.UpdateCancelCurrentService
		if svc.Status == lifecycle.StatusDraft {
			updateType = models.UpdateCancelDraftService
		}
		if err := s.transition(ctx, tx, svc, lifecycle.EventCancel); err != nil {
			return err
		}

		return tx.JiraRecords().Create(ctx, models.NewServiceRecord(svc.ID, updateType))
	})
	if err != nil {
		return nil, err
	}

	s.logr.Info("service canceled", zap.Int64("service_id", svc.ID), zap.Int64("provider_id", providerID))
	return svc, nil
}

// syncAfterCommit hands a fresh audit record to Jira without holding up the
// response. Failures stay on the record for the sweep to retry.
func (s *ServiceRecordService) syncAfterCommit(ctx context.Context, recordID int64) {
	if s.jira == nil {
		return
	}
	s.jira.SynchronizeLater(ctx, recordID)
}

func (s *ServiceRecordService) owned(ctx context.Context, store repository.Store, providerID, id int64) (*models.Service, error) {
	svc, err := store.Services().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if svc.ProviderID != providerID {
		return nil, repository.ErrNotFound
	}
	return svc, nil
}

// Get returns a current service. Other states are only visible to their
// provider (GetOwned) and staff (GetAny).
func (s *ServiceRecordService) Get(ctx context.Context, id int64) (*models.Service, error) {
	svc, err := s.store.Services().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if svc.Status != lifecycle.StatusCurrent {
		return nil, repository.ErrNotFound
	}
	return svc, nil
}

func (s *ServiceRecordService) GetOwned(ctx context.Context, providerID, id int64) (*models.Service, error) {
	return s.owned(ctx, s.store, providerID, id)
}

func (s *ServiceRecordService) GetAny(ctx context.Context, id int64) (*models.Service, error) {
	return s.store.Services().Get(ctx, id)
}

func (s *ServiceRecordService) ListForProvider(ctx context.Context, providerID int64) ([]*models.Service, error) {
	return s.store.Services().ListByProvider(ctx, providerID)
}

// ListPending is the staff review queue: one page of drafts and the total.
func (s *ServiceRecordService) ListPending(ctx context.Context, limit, offset int) ([]*models.Service, int, error) {
	return s.store.Services().ListByStatus(ctx, lifecycle.StatusDraft, limit, offset)
}

// AuditTrail returns the audit records of one service in creation order.
func (s *ServiceRecordService) AuditTrail(ctx context.Context, id int64) ([]*models.JiraUpdateRecord, error) {
	return s.store.JiraRecords().ListByService(ctx, id)
}

// Search is the public listing. Only current records are returned, with the
// number of matches across all pages.
func (s *ServiceRecordService) Search(ctx context.Context, params models.ServiceQueryParams) ([]*models.Service, int, error) {
	return s.store.Services().ListCurrent(ctx, params)
}
