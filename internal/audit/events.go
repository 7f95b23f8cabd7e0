package audit

import (
	"time"

	"github.com/google/uuid"
)

// Event routing keys as constants
const (
	EventAccessForbidden     = "access.forbidden"
	EventRecordAggregated    = "record.aggregated"
	EventProviderQueryFailed = "provider.query_failed"
)

// Audit types attached to events
const (
	TypeAccess      = "Access"
	TypeAggregation = "Aggregation"
	TypeProvider    = "Provider"
)

// Event is the audit entry published for every denial and aggregation
// outcome. CorrelationID ties the entry back to the inbound request.
type Event struct {
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	Timestamp     time.Time `json:"timestamp"`
	ServiceName   string    `json:"service_name"`
	AuditType     string    `json:"audit_type"`
	Title         string    `json:"title"`
	Message       string    `json:"message"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// NewEvent creates an audit event with common fields populated.
func NewEvent(eventType, auditType, title, message, correlationID string) Event {
	return Event{
		EventType:     eventType,
		EventID:       uuid.NewString(),
		Timestamp:     time.Now().UTC(),
		ServiceName:   "fhir-gateway-service",
		AuditType:     auditType,
		Title:         title,
		Message:       message,
		CorrelationID: correlationID,
	}
}
