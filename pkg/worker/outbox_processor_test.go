package worker

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/internal/repository/memory"
	"github.com/jwalitptl/booking-api/pkg/logger"
	"github.com/jwalitptl/booking-api/pkg/metrics"
)

type recordingBroker struct {
	mu        sync.Mutex
	failures  int
	published map[string][]string
}

func (b *recordingBroker) Publish(_ context.Context, channel string, message interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failures > 0 {
		b.failures--
		return errors.New("broker unavailable")
	}
	payload, err := json.Marshal(message)
	if err != nil {
		return err
	}
	if b.published == nil {
		b.published = make(map[string][]string)
	}
	b.published[channel] = append(b.published[channel], string(payload))
	return nil
}

func (b *recordingBroker) Subscribe(context.Context, string) (<-chan []byte, error) {
	return nil, errors.New("not supported")
}

func (b *recordingBroker) Close() error { return nil }

func newProcessor(t *testing.T, broker *recordingBroker, attempts int) (*OutboxProcessor, *memory.OutboxRepository) {
	t.Helper()
	repo := memory.NewOutboxRepository()
	p := NewOutboxProcessor(repo, broker, OutboxProcessorConfig{
		BatchSize:     10,
		PollInterval:  time.Millisecond,
		RetryAttempts: attempts,
		RetryDelay:    time.Millisecond,
	}, logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard}), metrics.New("test"))
	return p, repo
}

func TestProcessPendingPublishesAndMarksProcessed(t *testing.T) {
	ctx := context.Background()
	broker := &recordingBroker{failures: 1}
	p, repo := newProcessor(t, broker, 2)

	event := &model.OutboxEvent{
		EventType: model.EventSlotReserved,
		Payload:   json.RawMessage(`{"slot":{"id":"2024-01-15-08:00-1"}}`),
	}
	require.NoError(t, repo.Create(ctx, event))

	require.NoError(t, p.ProcessPending(ctx))

	assert.Equal(t, []string{`{"slot":{"id":"2024-01-15-08:00-1"}}`}, broker.published[model.EventSlotReserved])
	pending, err := repo.GetPendingEvents(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestProcessPendingMarksFailedAfterRetries(t *testing.T) {
	ctx := context.Background()
	broker := &recordingBroker{failures: 5}
	p, repo := newProcessor(t, broker, 2)

	event := &model.OutboxEvent{EventType: model.EventSlotsGenerated, Payload: json.RawMessage(`{}`)}
	require.NoError(t, repo.Create(ctx, event))

	require.NoError(t, p.ProcessPending(ctx))

	stored, ok := repo.Find(event.ID)
	require.True(t, ok)
	assert.Equal(t, model.OutboxStatusFailed, stored.Status)
	require.NotNil(t, stored.ErrorMessage)
	assert.Equal(t, "broker unavailable", *stored.ErrorMessage)
	assert.Equal(t, 3, broker.failures)
}

func TestRetryStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := retry(ctx, 5, time.Hour, func() error {
		calls++
		return errors.New("fail")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
