package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/internal/repository"
)

type providerRepository struct {
	mu        sync.RWMutex
	providers map[string]*model.Provider
}

// NewProviderRepository returns a directory holding the given providers.
func NewProviderRepository(seed ...model.Provider) repository.ProviderRepository {
	r := &providerRepository{providers: make(map[string]*model.Provider)}
	for i := range seed {
		p := seed[i]
		_ = r.Upsert(context.Background(), &p)
	}
	return r
}

func (r *providerRepository) Get(ctx context.Context, id string) (*model.Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[id]
	if !ok {
		return nil, &model.UnknownProviderError{ProviderID: id}
	}
	out := *p
	return &out, nil
}

func (r *providerRepository) List(ctx context.Context) ([]*model.Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*model.Provider, 0, len(r.providers))
	for _, p := range r.providers {
		c := *p
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *providerRepository) Upsert(ctx context.Context, provider *model.Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	stored := *provider
	if existing, ok := r.providers[provider.ID]; ok {
		stored.CreatedAt = existing.CreatedAt
	} else {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	r.providers[provider.ID] = &stored
	return nil
}
