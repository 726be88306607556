package events

import (
	"time"

	"github.com/agrilink/crm-sync/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventRegistrationSynced EventType = "registration_synced"
	EventRegistrationFailed EventType = "registration_failed"
)

// Event represents a sync outcome emitted by the orchestrator.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	RecordID  string      `json:"record_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// RegistrationSyncedPayload carries the result of a successful sync.
type RegistrationSyncedPayload struct {
	Registration        domain.Registration `json:"registration"`
	ContactID           string              `json:"contact_id"`
	LeadID              string              `json:"lead_id"`
	ContactCreated      bool                `json:"contact_created"`
	AttachmentsUploaded int                 `json:"attachments_uploaded"`
}

// RegistrationFailedPayload carries the failure reason for a record whose
// sync did not complete. Registration is nil when the failure happened
// before normalization.
type RegistrationFailedPayload struct {
	Registration *domain.Registration `json:"registration,omitempty"`
	Reason       string               `json:"reason"`
}
