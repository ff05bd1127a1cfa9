package email

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewServiceWithoutRelayOnlyLogs(t *testing.T) {
	svc := NewService(Config{})
	_, isLog := svc.(logService)
	assert.True(t, isLog)
	assert.NoError(t, svc.SendCustom(context.Background(), "jane@example.com", "hi", "body"))
}

func TestSMTPServiceHonoursCancelledContext(t *testing.T) {
	svc := NewService(Config{SMTPHost: "smtp.invalid", SMTPPort: 25, From: "noreply@example.com"})
	_, isSMTP := svc.(*smtpService)
	assert.True(t, isSMTP)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, svc.SendCustom(ctx, "jane@example.com", "hi", "body"), context.Canceled)
}
