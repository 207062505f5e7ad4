package security

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObserved() (*SecurityLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return NewWithZap(zap.New(core), "identity-sync", "test"), logs
}

func TestMaskEmail(t *testing.T) {
	assert.Equal(t, "j***@example.com", MaskEmail("jane@example.com"))
	assert.Equal(t, "***", MaskEmail("a@"))
	assert.Equal(t, "***@example.com", MaskEmail("j@example.com"))
}

func TestHashValueIsStableAndShort(t *testing.T) {
	assert.Equal(t, HashValue("user_1"), HashValue("user_1"))
	assert.NotEqual(t, HashValue("user_1"), HashValue("user_2"))
	assert.Len(t, HashValue("user_1"), 16)
}

func TestWebhookSignatureInvalidIsLoggedAtErrorLevel(t *testing.T) {
	sl, logs := newObserved()

	sl.LogWebhookSignatureInvalid(context.Background(), RequestMeta{IP: "10.0.0.1", RequestID: "req-1"}, "msg_1", "no matching signature")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.ErrorLevel, entry.Level)
	assert.Equal(t, string(EventWebhookSignatureInvalid), entry.Message)

	fields := entry.ContextMap()
	assert.Equal(t, "CRITICAL", fields["severity"])
	assert.Equal(t, "msg_1", fields["subject_value"])
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Contains(t, fields["details"], "no matching signature")
}

func TestProvisionEventsHashAuthID(t *testing.T) {
	sl, logs := newObserved()

	sl.LogProvisionDegraded(context.Background(), "user_secret", "profile_fetch", errors.New("timeout"))
	sl.LogSignupFailed(context.Background(), RequestMeta{}, "ada@example.com", "create", "form_password_pwned")

	require.Equal(t, 2, logs.Len())
	first := logs.All()[0].ContextMap()
	assert.Equal(t, HashValue("user_secret"), first["subject_value"])
	assert.Equal(t, zapcore.InfoLevel, logs.All()[0].Level)

	second := logs.All()[1].ContextMap()
	assert.Equal(t, "a***@example.com", second["subject_value"])
}

func TestNilLoggerIsSafe(t *testing.T) {
	var sl *SecurityLogger
	assert.NotPanics(t, func() {
		sl.LogRateLimitTriggered(context.Background(), RequestMeta{}, "memory")
		_ = sl.Sync()
	})
}

func TestSeverity(t *testing.T) {
	assert.Equal(t, SeverityMEDIUM, GetSeverity(EventType("unknown")))
	assert.True(t, IsHighOrAbove(EventForbiddenAccess))
	assert.False(t, IsHighOrAbove(EventSignOut))
	assert.Equal(t, "development", Environment("debug"))
	assert.Equal(t, "production", Environment("release"))
}
