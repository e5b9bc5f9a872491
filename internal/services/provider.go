package services

import (
	"context"
	"errors"
	"strings"

	"serviceinfo/internal/auth"
	"serviceinfo/internal/metrics"
	"serviceinfo/internal/models"
	"serviceinfo/internal/notify"
	"serviceinfo/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProviderInput is the editable part of a provider profile.
type ProviderInput struct {
	NameEN                       string `json:"name_en" validate:"max=256"`
	NameAR                       string `json:"name_ar" validate:"max=256"`
	NameFR                       string `json:"name_fr" validate:"max=256"`
	TypeID                       int64  `json:"type" validate:"required"`
	PhoneNumber                  string `json:"phone_number" validate:"required,max=20"`
	Website                      string `json:"website" validate:"omitempty,url"`
	DescriptionEN                string `json:"description_en"`
	DescriptionAR                string `json:"description_ar"`
	DescriptionFR                string `json:"description_fr"`
	NumberOfMonthlyBeneficiaries *int   `json:"number_of_monthly_beneficiaries" validate:"required,gte=0,lte=1000000"`
}

// RegistrationInput creates a provider and its (inactive) user account.
type RegistrationInput struct {
	Email              string `json:"email" validate:"required,email"`
	Password           string `json:"password" validate:"required"`
	BaseActivationLink string `json:"base_activation_link" validate:"required,url"`
	ProviderInput
}

type ProviderService struct {
	store    repository.Store
	notifier notify.Notifier
	metrics  *metrics.Metrics
	logr     *zap.Logger
}

func NewProviderService(store repository.Store, notifier notify.Notifier, m *metrics.Metrics, logr *zap.Logger) *ProviderService {
	return &ProviderService{store: store, notifier: notifier, metrics: m, logr: logr}
}

func (s *ProviderService) validate(ctx context.Context, in *ProviderInput, verr *ValidationError) error {
	if strings.TrimSpace(in.NameEN+in.NameAR+in.NameFR) == "" {
		verr.Add("name_en", "A name is required in at least one language.")
	}
	if in.TypeID == 0 {
		return nil
	}
	if _, err := s.store.Types().GetProviderType(ctx, in.TypeID); errors.Is(err, repository.ErrNotFound) {
		verr.Add("type", msgDoesNotExist)
	} else if err != nil {
		return err
	}
	return nil
}

func (in *ProviderInput) apply(p *models.Provider) {
	p.NameEN, p.NameAR, p.NameFR = in.NameEN, in.NameAR, in.NameFR
	p.TypeID = in.TypeID
	p.PhoneNumber = in.PhoneNumber
	p.Website = in.Website
	p.DescriptionEN, p.DescriptionAR, p.DescriptionFR = in.DescriptionEN, in.DescriptionAR, in.DescriptionFR
	if in.NumberOfMonthlyBeneficiaries != nil {
		p.NumberOfMonthlyBeneficiaries = *in.NumberOfMonthlyBeneficiaries
	}
}

// Register creates an inactive user and its provider in one transaction,
// then asks for an activation notice to be sent. The link carries the raw
// key; only its hash is stored.
func (s *ProviderService) Register(ctx context.Context, in RegistrationInput) (*models.Provider, error) {
	in.Email = strings.TrimSpace(in.Email)
	verr := validateStruct(&in)
	if err := s.validate(ctx, &in.ProviderInput, verr); err != nil {
		return nil, err
	}
	if in.Email != "" && verr.Fields["email"] == nil {
		if _, err := s.store.Users().GetByEmail(ctx, in.Email); err == nil {
			verr.Add("email", "A user with that email already exists.")
		} else if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
	}
	if err := verr.Err(); err != nil {
		return nil, err
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	key, err := auth.NewOpaqueToken()
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:            uuid.New(),
		Email:         in.Email,
		PasswordHash:  hash,
		Provider:      models.AuthLocal,
		Roles:         []string{},
		ActivationKey: auth.HashToken(key),
	}
	provider := &models.Provider{UserID: user.ID}
	in.ProviderInput.apply(provider)

	err = s.store.RunInTx(ctx, func(ctx context.Context, tx repository.Store) error {
		if err := tx.Users().Create(ctx, user); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return fieldError("email", "A user with that email already exists.")
			}
			return err
		}
		return tx.Providers().Create(ctx, provider)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.Registrations.Inc()
	s.logr.Info("provider registered", zap.Int64("provider_id", provider.ID), zap.String("user_id", user.ID.String()))
	if err := s.notifier.ActivationRequested(ctx, user, in.BaseActivationLink+key); err != nil {
		s.metrics.NotifyFailures.Inc()
		s.logr.Error("activation notice failed", zap.Error(err), zap.String("user_id", user.ID.String()))
	}
	return provider, nil
}

// Update replaces the provider's profile and records a provider-change audit
// row in the same transaction.
func (s *ProviderService) Update(ctx context.Context, providerID int64, in ProviderInput) (*models.Provider, error) {
	verr := validateStruct(&in)
	if err := s.validate(ctx, &in, verr); err != nil {
		return nil, err
	}
	if err := verr.Err(); err != nil {
		return nil, err
	}

	var out *models.Provider
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx repository.Store) error {
		p, err := tx.Providers().Get(ctx, providerID)
		if err != nil {
			return err
		}
		in.apply(p)
		if err := tx.Providers().Update(ctx, p); err != nil {
			return err
		}
		out = p
		return tx.JiraRecords().Create(ctx, models.NewProviderRecord(p.ID))
	})
	if err != nil {
		return nil, err
	}
	s.logr.Info("provider updated", zap.Int64("provider_id", providerID))
	return out, nil
}

func (s *ProviderService) Get(ctx context.Context, id int64) (*models.Provider, error) {
	return s.store.Providers().Get(ctx, id)
}

func (s *ProviderService) GetByUser(ctx context.Context, userID uuid.UUID) (*models.Provider, error) {
	return s.store.Providers().GetByUserID(ctx, userID)
}

func (s *ProviderService) List(ctx context.Context, limit, offset int) ([]*models.Provider, int, error) {
	return s.store.Providers().List(ctx, limit, offset)
}
