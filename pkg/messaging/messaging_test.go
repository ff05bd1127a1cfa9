package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBrokerDeliversToSubscribers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := NewMemoryBroker()
	defer b.Close()

	ch, err := b.Subscribe(ctx, "slot.reserved")
	require.NoError(t, err)

	require.NoError(t, b.Publish(ctx, "slot.reserved", map[string]string{"id": "2024-01-15-08:00-1"}))
	require.NoError(t, b.Publish(ctx, "slots.generated", map[string]string{"provider_id": "1"}))

	select {
	case msg := <-ch:
		assert.JSONEq(t, `{"id":"2024-01-15-08:00-1"}`, string(msg))
	case <-time.After(time.Second):
		t.Fatal("message not delivered")
	}

	select {
	case msg := <-ch:
		t.Fatalf("unexpected message %s", msg)
	default:
	}
}

func TestMemoryBrokerClose(t *testing.T) {
	b := NewMemoryBroker()
	ch, err := b.Subscribe(context.Background(), "topic")
	require.NoError(t, err)

	require.NoError(t, b.Close())
	_, open := <-ch
	assert.False(t, open)
	assert.Error(t, b.Publish(context.Background(), "topic", "x"))
}

func TestBrokerAdapter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	adapter := NewBrokerAdapter(NewMemoryBroker())
	defer adapter.Close()

	got := make(chan string, 2)
	require.NoError(t, adapter.Subscribe(ctx, "slot.reserved", func(msg []byte) error {
		got <- string(msg)
		if string(msg) == `{"n":1}` {
			return errors.New("handler failure is skipped")
		}
		return nil
	}))

	require.NoError(t, adapter.Publish(ctx, "slot.reserved", []byte(`{"n":1}`)))
	require.NoError(t, adapter.Publish(ctx, "slot.reserved", []byte(`{"n":2}`)))
	assert.Error(t, adapter.Publish(ctx, "slot.reserved", []byte(`not json`)))

	for _, want := range []string{`{"n":1}`, `{"n":2}`} {
		select {
		case msg := <-got:
			assert.JSONEq(t, want, msg)
		case <-time.After(time.Second):
			t.Fatal("message not delivered")
		}
	}
}
