package domain

import "time"

// RequestStatus tracks a contractor's answer to an HSE request.
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "Pending"
	RequestStatusAccepted RequestStatus = "Accepted"
	RequestStatusRejected RequestStatus = "Rejected"
)

// Valid reports whether s is a known request status.
func (s RequestStatus) Valid() bool {
	switch s {
	case RequestStatusPending, RequestStatusAccepted, RequestStatusRejected:
		return true
	}
	return false
}

// Request is an HSE-initiated notification to a contractor about an item.
type Request struct {
	ID           string
	ContractorID string
	ItemID       string
	RequestedBy  string
	Status       RequestStatus
	CreatedAt    time.Time

	// Populated on reads that expand references.
	Item       *ItemRef
	Contractor *UserRef
	Requester  *UserRef
}

// ItemRef is the expanded view of an item referenced by a request.
type ItemRef struct {
	ID          string
	Title       string
	Type        ItemType
	Description string
}
