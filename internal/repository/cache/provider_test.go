package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/internal/repository"
	"github.com/jwalitptl/booking-api/internal/repository/memory"
)

type countingRepo struct {
	repository.ProviderRepository
	gets int
}

func (c *countingRepo) Get(ctx context.Context, id string) (*model.Provider, error) {
	c.gets++
	return c.ProviderRepository.Get(ctx, id)
}

func TestProviderRepositoryCachesGet(t *testing.T) {
	ctx := context.Background()
	backing := &countingRepo{ProviderRepository: memory.NewProviderRepository(
		model.Provider{ID: "1", Name: "Dr. Sarah Johnson", StartHour: 8, EndHour: 17},
	)}
	repo := NewProviderRepository(backing, time.Minute, time.Minute)

	for i := 0; i < 3; i++ {
		p, err := repo.Get(ctx, "1")
		require.NoError(t, err)
		assert.Equal(t, 8, p.StartHour)
	}
	assert.Equal(t, 1, backing.gets)

	require.NoError(t, repo.Upsert(ctx, &model.Provider{ID: "1", Name: "Dr. Sarah Johnson", StartHour: 9, EndHour: 17}))
	p, err := repo.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, 9, p.StartHour)
	assert.Equal(t, 2, backing.gets)
}

func TestProviderRepositoryDoesNotCacheMisses(t *testing.T) {
	ctx := context.Background()
	backing := &countingRepo{ProviderRepository: memory.NewProviderRepository()}
	repo := NewProviderRepository(backing, time.Minute, time.Minute)

	var unknown *model.UnknownProviderError
	_, err := repo.Get(ctx, "7")
	assert.ErrorAs(t, err, &unknown)
	_, err = repo.Get(ctx, "7")
	assert.ErrorAs(t, err, &unknown)
	assert.Equal(t, 2, backing.gets)
}
