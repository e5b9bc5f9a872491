package services

import (
	"context"

	"serviceinfo/internal/models"
	"serviceinfo/internal/repository"
)

// ReferenceService reads the static type tables.
type ReferenceService struct {
	store repository.Store
}

func NewReferenceService(store repository.Store) *ReferenceService {
	return &ReferenceService{store: store}
}

func (s *ReferenceService) ServiceTypes(ctx context.Context) ([]*models.ServiceType, error) {
	return s.store.Types().ListServiceTypes(ctx)
}

func (s *ReferenceService) ServiceType(ctx context.Context, id int64) (*models.ServiceType, error) {
	return s.store.Types().GetServiceType(ctx, id)
}

func (s *ReferenceService) ProviderTypes(ctx context.Context) ([]*models.ProviderType, error) {
	return s.store.Types().ListProviderTypes(ctx)
}

func (s *ReferenceService) ProviderType(ctx context.Context, id int64) (*models.ProviderType, error) {
	return s.store.Types().GetProviderType(ctx, id)
}
