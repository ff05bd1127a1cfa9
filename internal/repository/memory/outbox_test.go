package memory

import (
	"context"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/booking-api/internal/model"
)

func TestOutboxRepositoryLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewOutboxRepository()

	assert.Error(t, repo.Create(ctx, nil))
	assert.Error(t, repo.Create(ctx, &model.OutboxEvent{EventType: "x"}))

	first := &model.OutboxEvent{EventType: model.EventSlotReserved, Payload: json.RawMessage(`{}`)}
	second := &model.OutboxEvent{EventType: model.EventSlotsGenerated, Payload: json.RawMessage(`{}`)}
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))

	pending, err := repo.GetPendingEvents(ctx, 1)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	msg := "broker down"
	require.NoError(t, repo.UpdateStatus(ctx, second.ID, model.OutboxStatusFailed, &msg))
	require.NoError(t, repo.UpdateStatus(ctx, first.ID, model.OutboxStatusProcessed, nil))

	failed, ok := repo.Find(second.ID)
	require.True(t, ok)
	assert.Equal(t, 1, failed.RetryCount)

	pending, err = repo.GetPendingEvents(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	n, err := repo.DeleteProcessedBefore(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, ok = repo.Find(first.ID)
	assert.False(t, ok)
	_, ok = repo.Find(second.ID)
	assert.True(t, ok)
}
