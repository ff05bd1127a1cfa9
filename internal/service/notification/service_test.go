package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/pkg/messaging"
)

type sentMail struct {
	to, subject, body string
}

type fakeMailer struct {
	mu       sync.Mutex
	failures int
	sent     []sentMail
}

func (m *fakeMailer) SendCustom(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failures > 0 {
		m.failures--
		return errors.New("smtp down")
	}
	m.sent = append(m.sent, sentMail{to, subject, body})
	return nil
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func reservedPayload(t *testing.T, contact *model.BookingContact) []byte {
	t.Helper()
	date, err := model.ParseDate("2024-01-15")
	require.NoError(t, err)
	payload, err := json.Marshal(&model.SlotReservedEvent{
		Slot: &model.Slot{
			ID:         "2024-01-15-08:00-1",
			ProviderID: "1",
			Date:       date,
			Time:       "08:00",
			Duration:   30,
			Category:   model.SlotCategoryFollowUp,
		},
		Contact:    contact,
		ReservedAt: time.Date(2024, 1, 14, 9, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return payload
}

func newTestService(mailer *fakeMailer) *service {
	return &service{
		emailSvc:   mailer,
		broker:     messaging.NewBrokerAdapter(messaging.NewMemoryBroker()),
		retryDelay: time.Millisecond,
	}
}

func TestHandleSlotReservedSendsConfirmation(t *testing.T) {
	mailer := &fakeMailer{failures: 1}
	svc := newTestService(mailer)

	err := svc.HandleSlotReserved(context.Background(), reservedPayload(t, &model.BookingContact{
		PatientName: "Jane Doe",
		Email:       "jane@example.com",
	}))
	require.NoError(t, err)
	require.Len(t, mailer.sent, 1)

	mail := mailer.sent[0]
	assert.Equal(t, "jane@example.com", mail.to)
	assert.Equal(t, "Appointment confirmed: 2024-01-15 at 08:00", mail.subject)
	assert.Contains(t, mail.body, "Dear Jane Doe")
	assert.Contains(t, mail.body, "follow-up appointment")
	assert.Contains(t, mail.body, "2024-01-15-08:00-1")
}

func TestHandleSlotReservedWithoutContact(t *testing.T) {
	mailer := &fakeMailer{}
	svc := newTestService(mailer)

	require.NoError(t, svc.HandleSlotReserved(context.Background(), reservedPayload(t, nil)))
	require.NoError(t, svc.HandleSlotReserved(context.Background(), reservedPayload(t, &model.BookingContact{PatientName: "No Mail"})))
	assert.Empty(t, mailer.sent)
}

func TestHandleSlotReservedErrors(t *testing.T) {
	mailer := &fakeMailer{failures: maxRetries}
	svc := newTestService(mailer)

	assert.Error(t, svc.HandleSlotReserved(context.Background(), []byte(`{`)))
	assert.Error(t, svc.HandleSlotReserved(context.Background(), []byte(`{"contact":{"email":"a@b.c"}}`)))

	err := svc.HandleSlotReserved(context.Background(), reservedPayload(t, &model.BookingContact{Email: "jane@example.com"}))
	assert.ErrorContains(t, err, "smtp down")
}

func TestStartConsumesReservedEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mailer := &fakeMailer{}
	svc := newTestService(mailer)
	require.NoError(t, svc.Start(ctx))

	require.NoError(t, svc.broker.Publish(ctx, model.EventSlotReserved,
		reservedPayload(t, &model.BookingContact{Email: "jane@example.com"})))

	assert.Eventually(t, func() bool { return mailer.count() == 1 }, time.Second, 10*time.Millisecond)
}
