package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jwalitptl/booking-api/internal/model"
)

const providerColumns = `id, name, specialty, start_hour, end_hour, weekend_eligible, created_at, updated_at`

func (r *providerRepository) Get(ctx context.Context, id string) (*model.Provider, error) {
	query := `SELECT ` + providerColumns + ` FROM providers WHERE id = $1`

	var provider model.Provider
	if err := r.db.GetContext(ctx, &provider, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &model.UnknownProviderError{ProviderID: id}
		}
		return nil, fmt.Errorf("failed to get provider: %w", err)
	}
	return &provider, nil
}

func (r *providerRepository) List(ctx context.Context) ([]*model.Provider, error) {
	query := `SELECT ` + providerColumns + ` FROM providers ORDER BY id ASC`

	var providers []*model.Provider
	if err := r.db.SelectContext(ctx, &providers, query); err != nil {
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}
	return providers, nil
}

func (r *providerRepository) Upsert(ctx context.Context, provider *model.Provider) error {
	query := `
		INSERT INTO providers (` + providerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			specialty = EXCLUDED.specialty,
			start_hour = EXCLUDED.start_hour,
			end_hour = EXCLUDED.end_hour,
			weekend_eligible = EXCLUDED.weekend_eligible,
			updated_at = EXCLUDED.updated_at
	`
	now := time.Now()
	_, err := r.db.ExecContext(ctx, query,
		provider.ID,
		provider.Name,
		provider.Specialty,
		provider.StartHour,
		provider.EndHour,
		provider.WeekendEligible,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert provider: %w", err)
	}
	provider.UpdatedAt = now
	return nil
}
