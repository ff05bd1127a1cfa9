package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jwalitptl/booking-api/internal/model"
)

// mergeBatchSize keeps a single INSERT well under the bind parameter limit.
const mergeBatchSize = 500

const slotColumns = `id, provider_id, slot_date, slot_time, duration, is_available, category, reserved_at`

const (
	mergeSlotsQuery = `
		INSERT INTO slots (` + slotColumns + `)
		VALUES (:id, :provider_id, :slot_date, :slot_time, :duration, :is_available, :category, :reserved_at)
		ON CONFLICT (id) DO NOTHING
	`

	// reserveSlotQuery relies on the row lock taken by UPDATE: a second
	// concurrent updater re-evaluates is_available after the first commits
	// and matches no row.
	reserveSlotQuery = `
		UPDATE slots
		SET is_available = FALSE, reserved_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND is_available
		RETURNING ` + slotColumns

	slotExistsQuery = `SELECT EXISTS (SELECT 1 FROM slots WHERE id = $1)`

	openSlotsQuery = `
		UPDATE slots
		SET is_available = TRUE, updated_at = NOW()
		WHERE id = ANY($1) AND NOT is_available AND reserved_at IS NULL
	`
)

// batchBounds splits n items into [start, end) ranges of at most size.
func batchBounds(n, size int) [][2]int {
	var out [][2]int
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		out = append(out, [2]int{start, end})
	}
	return out
}

func (r *slotRepository) Merge(ctx context.Context, slots []*model.Slot) (int, error) {
	if len(slots) == 0 {
		return 0, nil
	}

	inserted := 0
	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		for _, b := range batchBounds(len(slots), mergeBatchSize) {
			result, err := tx.NamedExecContext(ctx, mergeSlotsQuery, slots[b[0]:b[1]])
			if err != nil {
				return fmt.Errorf("failed to merge slots: %w", err)
			}
			rows, err := result.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to get rows affected: %w", err)
			}
			inserted += int(rows)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

func (r *slotRepository) Get(ctx context.Context, id string) (*model.Slot, error) {
	query := `SELECT ` + slotColumns + ` FROM slots WHERE id = $1`

	var slot model.Slot
	if err := r.db.GetContext(ctx, &slot, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &model.SlotNotFoundError{SlotID: id}
		}
		return nil, fmt.Errorf("failed to get slot: %w", err)
	}
	return &slot, nil
}

func (r *slotRepository) List(ctx context.Context, filter model.SlotFilter) ([]*model.Slot, error) {
	query, args := listSlotsQuery(filter)

	var slots []*model.Slot
	if err := r.db.SelectContext(ctx, &slots, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list slots: %w", err)
	}
	return slots, nil
}

func listSlotsQuery(filter model.SlotFilter) (string, []interface{}) {
	query := `SELECT ` + slotColumns + ` FROM slots WHERE provider_id = $1`
	args := []interface{}{filter.ProviderID}
	argCount := 2

	if !filter.From.IsZero() {
		query += fmt.Sprintf(" AND slot_date >= $%d", argCount)
		args = append(args, filter.From)
		argCount++
	}

	if !filter.To.IsZero() {
		query += fmt.Sprintf(" AND slot_date < $%d", argCount)
		args = append(args, filter.To)
		argCount++
	}

	if filter.AvailableOnly {
		query += " AND is_available"
	}

	query += " ORDER BY slot_date ASC, slot_time ASC"
	return query, args
}

func (r *slotRepository) Reserve(ctx context.Context, id string) (*model.Slot, error) {
	var slot model.Slot
	err := r.db.GetContext(ctx, &slot, reserveSlotQuery, id)
	if err == nil {
		return &slot, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to reserve slot: %w", err)
	}

	var exists bool
	if err := r.db.GetContext(ctx, &exists, slotExistsQuery, id); err != nil {
		return nil, fmt.Errorf("failed to check slot: %w", err)
	}
	if !exists {
		return nil, &model.SlotNotFoundError{SlotID: id}
	}
	return nil, &model.SlotAlreadyBookedError{SlotID: id}
}

func (r *slotRepository) Open(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	result, err := r.db.ExecContext(ctx, openSlotsQuery, pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("failed to open slots: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(rows), nil
}
