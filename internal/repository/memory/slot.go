package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/internal/repository"
)

type slotRepository struct {
	mu         sync.RWMutex
	byID       map[string]*model.Slot
	byProvider map[string][]*model.Slot
}

func NewSlotRepository() repository.SlotRepository {
	return &slotRepository{
		byID:       make(map[string]*model.Slot),
		byProvider: make(map[string][]*model.Slot),
	}
}

func (r *slotRepository) Merge(ctx context.Context, slots []*model.Slot) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	inserted := 0
	touched := make(map[string]struct{})
	for _, s := range slots {
		if _, exists := r.byID[s.ID]; exists {
			continue
		}
		stored := *s
		r.byID[s.ID] = &stored
		r.byProvider[s.ProviderID] = append(r.byProvider[s.ProviderID], &stored)
		touched[s.ProviderID] = struct{}{}
		inserted++
	}

	for providerID := range touched {
		schedule := r.byProvider[providerID]
		sort.Slice(schedule, func(i, j int) bool { return schedule[i].Before(*schedule[j]) })
	}
	return inserted, nil
}

func (r *slotRepository) Get(ctx context.Context, id string) (*model.Slot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.byID[id]
	if !ok {
		return nil, &model.SlotNotFoundError{SlotID: id}
	}
	out := *s
	return &out, nil
}

func (r *slotRepository) List(ctx context.Context, filter model.SlotFilter) ([]*model.Slot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*model.Slot
	for _, s := range r.byProvider[filter.ProviderID] {
		if !filter.From.IsZero() && s.Date.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && !s.Date.Before(filter.To) {
			continue
		}
		if filter.AvailableOnly && !s.IsAvailable {
			continue
		}
		c := *s
		out = append(out, &c)
	}
	return out, nil
}

func (r *slotRepository) Reserve(ctx context.Context, id string) (*model.Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.byID[id]
	if !ok {
		return nil, &model.SlotNotFoundError{SlotID: id}
	}
	if !s.IsAvailable {
		return nil, &model.SlotAlreadyBookedError{SlotID: id}
	}
	reservedAt := time.Now().UTC()
	s.IsAvailable = false
	s.ReservedAt = &reservedAt
	out := *s
	return &out, nil
}

func (r *slotRepository) Open(ctx context.Context, ids []string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	opened := 0
	for _, id := range ids {
		s, ok := r.byID[id]
		if !ok || s.IsAvailable || s.Booked() {
			continue
		}
		s.IsAvailable = true
		opened++
	}
	return opened, nil
}
