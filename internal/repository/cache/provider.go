package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/internal/repository"
)

// ProviderRepository caches Get lookups in front of another directory.
// Upsert writes through and drops the cached entry.
type ProviderRepository struct {
	next  repository.ProviderRepository
	cache *gocache.Cache
}

var _ repository.ProviderRepository = (*ProviderRepository)(nil)

func NewProviderRepository(next repository.ProviderRepository, ttl, cleanup time.Duration) *ProviderRepository {
	return &ProviderRepository{
		next:  next,
		cache: gocache.New(ttl, cleanup),
	}
}

func (r *ProviderRepository) Get(ctx context.Context, id string) (*model.Provider, error) {
	if cached, ok := r.cache.Get(id); ok {
		p := cached.(model.Provider)
		return &p, nil
	}

	p, err := r.next.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	r.cache.SetDefault(id, *p)
	return p, nil
}

func (r *ProviderRepository) List(ctx context.Context) ([]*model.Provider, error) {
	return r.next.List(ctx)
}

func (r *ProviderRepository) Upsert(ctx context.Context, provider *model.Provider) error {
	if err := r.next.Upsert(ctx, provider); err != nil {
		return err
	}
	r.cache.Delete(provider.ID)
	return nil
}
