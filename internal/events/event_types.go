package events

import (
	"time"

	"github.com/hse-tools/permit-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventItemCreated          EventType = "item_created"
	EventItemStatusChanged    EventType = "item_status_changed"
	EventItemDeleted          EventType = "item_deleted"
	EventRequestCreated       EventType = "request_created"
	EventRequestStatusChanged EventType = "request_status_changed"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	UserID string      `json:"user_id"`
	Role   domain.Role `json:"role"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	SubjectID string      `json:"subject_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// ItemCreatedPayload payload.
type ItemCreatedPayload struct {
	Type     domain.ItemType `json:"type"`
	Title    string          `json:"title"`
	OwnerID  string          `json:"owner_id"`
	MocID    *string         `json:"moc_id,omitempty"`
}

// ItemStatusChangedPayload payload.
type ItemStatusChangedPayload struct {
	Type      domain.ItemType   `json:"type"`
	Title     string            `json:"title"`
	OwnerID   string            `json:"owner_id"`
	OldStatus domain.ItemStatus `json:"old_status"`
	NewStatus domain.ItemStatus `json:"new_status"`
}

// ItemDeletedPayload payload.
type ItemDeletedPayload struct {
	Type    domain.ItemType `json:"type"`
	OwnerID string          `json:"owner_id"`
}

// RequestCreatedPayload payload.
type RequestCreatedPayload struct {
	ContractorID string `json:"contractor_id"`
	ItemID       string `json:"item_id"`
	RequestedBy  string `json:"requested_by"`
}

// RequestStatusChangedPayload payload.
type RequestStatusChangedPayload struct {
	ContractorID string               `json:"contractor_id"`
	RequestedBy  string               `json:"requested_by"`
	OldStatus    domain.RequestStatus `json:"old_status"`
	NewStatus    domain.RequestStatus `json:"new_status"`
}
