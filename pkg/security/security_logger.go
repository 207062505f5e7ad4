package security

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EventType represents the type of security event
type EventType string

const (
	EventWebhookSignatureInvalid EventType = "webhook_signature_invalid"
	EventWebhookRejected         EventType = "webhook_payload_rejected"
	EventUserProvisioned         EventType = "user_provisioned"
	EventProvisionDegraded       EventType = "user_provision_degraded"
	EventSessionInvalid          EventType = "session_invalid"
	EventUnauthorizedAccess      EventType = "unauthorized_access"
	EventForbiddenAccess         EventType = "forbidden_access"
	EventRateLimitTriggered      EventType = "rate_limit_triggered"
	EventSignupFailed            EventType = "signup_failed"
	EventSigninFailed            EventType = "signin_failed"
	EventSignOut                 EventType = "sign_out"
)

// SecurityEvent represents a security-related event to be logged
type SecurityEvent struct {
	Timestamp    time.Time              `json:"timestamp"`
	Service      string                 `json:"service"`
	Environment  string                 `json:"env"`
	Level        string                 `json:"level"`
	Severity     Severity               `json:"severity"`
	Event        EventType              `json:"event"`
	SubjectType  string                 `json:"subject_type,omitempty"`  // "email", "ip", "auth_id"
	SubjectValue string                 `json:"subject_value,omitempty"` // masked or hashed
	IP           string                 `json:"ip,omitempty"`
	UserAgent    string                 `json:"user_agent,omitempty"`
	RequestID    string                 `json:"request_id,omitempty"`
	Details      map[string]interface{} `json:"details,omitempty"`
}

// SecurityLogger writes security events through a dedicated zap logger.
type SecurityLogger struct {
	zapLogger   *zap.Logger
	serviceName string
	environment string
}

// NewSecurityLogger builds a production zap logger writing JSON to stdout.
func NewSecurityLogger(serviceName, environment string) *SecurityLogger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.LevelKey = "level"
	config.EncoderConfig.MessageKey = "message"
	config.OutputPaths = []string{"stdout"}
	config.ErrorOutputPaths = []string{"stderr"}

	logger, err := config.Build(
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return NewWithZap(logger, serviceName, environment)
}

func NewWithZap(logger *zap.Logger, serviceName, environment string) *SecurityLogger {
	return &SecurityLogger{
		zapLogger:   logger,
		serviceName: serviceName,
		environment: environment,
	}
}

// Nop discards every event.
func Nop() *SecurityLogger {
	return NewWithZap(zap.NewNop(), "", "")
}

// Log logs a security event. A nil receiver is a no-op.
func (sl *SecurityLogger) Log(_ context.Context, event SecurityEvent) {
	if sl == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	event.Service = sl.serviceName
	event.Environment = sl.environment
	event.Severity = GetSeverity(event.Event)

	level := zapcore.WarnLevel
	switch event.Severity {
	case SeverityINFO, SeverityMEDIUM:
		level = zapcore.InfoLevel
	case SeverityHIGH, SeverityCRITICAL:
		level = zapcore.ErrorLevel
	}
	event.Level = level.String()

	fields := []zap.Field{
		zap.String("service", event.Service),
		zap.String("env", event.Environment),
		zap.String("event", string(event.Event)),
		zap.String("severity", string(event.Severity)),
	}
	if event.SubjectType != "" {
		fields = append(fields, zap.String("subject_type", event.SubjectType))
	}
	if event.SubjectValue != "" {
		fields = append(fields, zap.String("subject_value", event.SubjectValue))
	}
	if event.IP != "" {
		fields = append(fields, zap.String("ip", event.IP))
	}
	if event.UserAgent != "" {
		fields = append(fields, zap.String("user_agent", event.UserAgent))
	}
	if event.RequestID != "" {
		fields = append(fields, zap.String("request_id", event.RequestID))
	}
	if len(event.Details) > 0 {
		detailsJSON, _ := json.Marshal(event.Details)
		fields = append(fields, zap.String("details", string(detailsJSON)))
	}

	sl.zapLogger.Log(level, string(event.Event), fields...)
}

// RequestMeta is the per-request data attached to most events.
type RequestMeta struct {
	IP        string
	UserAgent string
	RequestID string
	Path      string
}

func (sl *SecurityLogger) LogWebhookSignatureInvalid(ctx context.Context, meta RequestMeta, svixID, reason string) {
	sl.Log(ctx, SecurityEvent{
		Event:        EventWebhookSignatureInvalid,
		SubjectType:  "svix_id",
		SubjectValue: svixID,
		IP:           meta.IP,
		UserAgent:    meta.UserAgent,
		RequestID:    meta.RequestID,
		Details:      map[string]interface{}{"reason": reason},
	})
}

func (sl *SecurityLogger) LogWebhookRejected(ctx context.Context, meta RequestMeta, eventType, reason string) {
	sl.Log(ctx, SecurityEvent{
		Event:     EventWebhookRejected,
		IP:        meta.IP,
		RequestID: meta.RequestID,
		Details:   map[string]interface{}{"event_type": eventType, "reason": reason},
	})
}

func (sl *SecurityLogger) LogUserProvisioned(ctx context.Context, authID, source string) {
	sl.Log(ctx, SecurityEvent{
		Event:        EventUserProvisioned,
		SubjectType:  "auth_id",
		SubjectValue: HashValue(authID),
		Details:      map[string]interface{}{"source": source},
	})
}

func (sl *SecurityLogger) LogProvisionDegraded(ctx context.Context, authID, stage string, err error) {
	sl.Log(ctx, SecurityEvent{
		Event:        EventProvisionDegraded,
		SubjectType:  "auth_id",
		SubjectValue: HashValue(authID),
		Details:      map[string]interface{}{"stage": stage, "error": err.Error()},
	})
}

func (sl *SecurityLogger) LogSessionInvalid(ctx context.Context, meta RequestMeta, reason string) {
	sl.Log(ctx, SecurityEvent{
		Event:     EventSessionInvalid,
		IP:        meta.IP,
		UserAgent: meta.UserAgent,
		RequestID: meta.RequestID,
		Details:   map[string]interface{}{"reason": reason, "path": meta.Path},
	})
}

func (sl *SecurityLogger) LogUnauthorizedAccess(ctx context.Context, meta RequestMeta, procedure string) {
	sl.Log(ctx, SecurityEvent{
		Event:     EventUnauthorizedAccess,
		IP:        meta.IP,
		RequestID: meta.RequestID,
		Details:   map[string]interface{}{"procedure": procedure},
	})
}

func (sl *SecurityLogger) LogForbiddenAccess(ctx context.Context, meta RequestMeta, authID, procedure, capability string) {
	sl.Log(ctx, SecurityEvent{
		Event:        EventForbiddenAccess,
		SubjectType:  "auth_id",
		SubjectValue: HashValue(authID),
		IP:           meta.IP,
		RequestID:    meta.RequestID,
		Details:      map[string]interface{}{"procedure": procedure, "capability": capability},
	})
}

// LogRateLimitTriggered logs when rate limiting is triggered
func (sl *SecurityLogger) LogRateLimitTriggered(ctx context.Context, meta RequestMeta, limiter string) {
	sl.Log(ctx, SecurityEvent{
		Event:        EventRateLimitTriggered,
		SubjectType:  "ip",
		SubjectValue: meta.IP,
		IP:           meta.IP,
		UserAgent:    meta.UserAgent,
		RequestID:    meta.RequestID,
		Details:      map[string]interface{}{"endpoint": meta.Path, "limiter": limiter},
	})
}

func (sl *SecurityLogger) LogSignupFailed(ctx context.Context, meta RequestMeta, email, stage, reason string) {
	sl.Log(ctx, SecurityEvent{
		Event:        EventSignupFailed,
		SubjectType:  "email",
		SubjectValue: MaskEmail(email),
		IP:           meta.IP,
		RequestID:    meta.RequestID,
		Details:      map[string]interface{}{"stage": stage, "reason": reason},
	})
}

func (sl *SecurityLogger) LogSigninFailed(ctx context.Context, meta RequestMeta, email, reason string) {
	sl.Log(ctx, SecurityEvent{
		Event:        EventSigninFailed,
		SubjectType:  "email",
		SubjectValue: MaskEmail(email),
		IP:           meta.IP,
		UserAgent:    meta.UserAgent,
		RequestID:    meta.RequestID,
		Details:      map[string]interface{}{"reason": reason},
	})
}

func (sl *SecurityLogger) LogSignOut(ctx context.Context, meta RequestMeta, authID string) {
	sl.Log(ctx, SecurityEvent{
		Event:        EventSignOut,
		SubjectType:  "auth_id",
		SubjectValue: HashValue(authID),
		IP:           meta.IP,
		RequestID:    meta.RequestID,
	})
}

// Sync flushes any buffered log entries
func (sl *SecurityLogger) Sync() error {
	if sl == nil {
		return nil
	}
	return sl.zapLogger.Sync()
}

// --- Helper Functions ---

// MaskEmail masks an email for logging (e.g., "j***@example.com")
func MaskEmail(email string) string {
	if len(email) < 3 {
		return "***"
	}
	atIndex := strings.IndexByte(email, '@')
	if atIndex <= 1 {
		return "***" + email[1:]
	}
	return string(email[0]) + "***" + email[atIndex:]
}

// HashValue creates a SHA256 hash of a value (for logging without PII)
func HashValue(value string) string {
	hash := sha256.Sum256([]byte(value))
	return hex.EncodeToString(hash[:8])
}

// Environment maps GIN_MODE to the environment label used on events.
func Environment(ginMode string) string {
	if ginMode == "release" {
		return "production"
	}
	return "development"
}
