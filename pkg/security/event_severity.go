package security

// Severity is derived from EventType, never supplied by callers.
type Severity string

const (
	SeverityINFO     Severity = "INFO"
	SeverityMEDIUM   Severity = "MEDIUM"
	SeverityWARN     Severity = "WARN"
	SeverityHIGH     Severity = "HIGH"
	SeverityCRITICAL Severity = "CRITICAL"
)

var EventSeverityMap = map[EventType]Severity{
	EventUserProvisioned: SeverityINFO,
	EventSignOut:         SeverityINFO,

	EventSignupFailed:      SeverityMEDIUM,
	EventWebhookRejected:   SeverityMEDIUM,
	EventSessionInvalid:    SeverityMEDIUM,
	EventProvisionDegraded: SeverityMEDIUM,

	EventSigninFailed:       SeverityWARN,
	EventRateLimitTriggered: SeverityWARN,

	EventUnauthorizedAccess: SeverityHIGH,
	EventForbiddenAccess:    SeverityHIGH,

	EventWebhookSignatureInvalid: SeverityCRITICAL,
}

// GetSeverity returns the severity for an event type, MEDIUM when unmapped.
func GetSeverity(eventType EventType) Severity {
	if severity, ok := EventSeverityMap[eventType]; ok {
		return severity
	}
	return SeverityMEDIUM
}

func IsHighOrAbove(eventType EventType) bool {
	severity := GetSeverity(eventType)
	return severity == SeverityHIGH || severity == SeverityCRITICAL
}
