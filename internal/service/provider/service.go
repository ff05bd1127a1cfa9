package provider

import (
	"context"
	"fmt"

	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/internal/repository"
	apperrors "github.com/jwalitptl/booking-api/pkg/errors"
	"github.com/jwalitptl/booking-api/pkg/validator"
)

type Service struct {
	repo      repository.ProviderRepository
	validator validator.Validator
}

func NewService(repo repository.ProviderRepository) *Service {
	return &Service{
		repo:      repo,
		validator: validator.New(),
	}
}

func (s *Service) Get(ctx context.Context, id string) (*model.Provider, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]*model.Provider, error) {
	providers, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}
	return providers, nil
}

func (s *Service) Upsert(ctx context.Context, p *model.Provider) error {
	if err := s.validator.Validate(p); err != nil {
		return apperrors.BadRequest(fmt.Sprintf("invalid provider %s", p.ID), err)
	}
	if err := s.repo.Upsert(ctx, p); err != nil {
		return fmt.Errorf("failed to upsert provider %s: %w", p.ID, err)
	}
	return nil
}

// Seed upserts every provider, stopping at the first invalid one.
func (s *Service) Seed(ctx context.Context, providers []model.Provider) (int, error) {
	for i := range providers {
		if err := s.Upsert(ctx, &providers[i]); err != nil {
			return i, err
		}
	}
	return len(providers), nil
}
