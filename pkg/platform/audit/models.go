package audit

import (
	"context"
	"time"
)

// EventCategory classifies audit events by their primary purpose so stores
// can apply different retention.
type EventCategory string

const (
	// CategoryCompliance covers verification outcomes: who was checked,
	// when, and with what result.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers binding failures and credential problems.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine redirects.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted by the verification service at the end of an invocation.
type Event struct {
	Category   EventCategory `json:"category"`
	Timestamp  time.Time     `json:"timestamp"`
	SubjectID  string        `json:"subject_id"`
	Action     string        `json:"action"`
	Decision   string        `json:"decision,omitempty"`
	Reason     string        `json:"reason,omitempty"`
	CheckCount int           `json:"check_count,omitempty"`
	RequestID  string        `json:"request_id,omitempty"`
}

type AuditEvent string

const (
	EventVerificationRedirected AuditEvent = "verification_redirected"
	EventVerificationPassed     AuditEvent = "verification_passed"
	EventVerificationFlagged    AuditEvent = "verification_flagged"
	EventVerificationRejected   AuditEvent = "verification_rejected"
	EventVerificationFailed     AuditEvent = "verification_failed"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventVerificationPassed:     CategoryCompliance,
	EventVerificationFlagged:    CategoryCompliance,
	EventVerificationRejected:   CategorySecurity,
	EventVerificationFailed:     CategorySecurity,
	EventVerificationRedirected: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}
