package dto

import (
	"time"

	"github.com/hse-tools/permit-service/internal/domain"
)

// CreateRequestRequest payload. Emptiness is checked by the request service.
type CreateRequestRequest struct {
	ContractorID string `json:"contractorId"`
	ItemID       string `json:"itemId"`
}

// UpdateRequestRequest payload.
type UpdateRequestRequest struct {
	Status domain.RequestStatus `json:"status" validate:"required"`
}

// RequestItemResponse is the expanded item of a request.
type RequestItemResponse struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Type        domain.ItemType `json:"type"`
	Description string          `json:"description"`
}

// RequestResponse is the wire view of a request.
type RequestResponse struct {
	ID          string               `json:"id"`
	Contractor  *UserResponse        `json:"contractor"`
	Item        *RequestItemResponse `json:"item"`
	RequestedBy *UserResponse        `json:"requestedBy"`
	Status      domain.RequestStatus `json:"status"`
	CreatedAt   time.Time            `json:"createdAt"`
}

// NewRequestResponse maps a domain request.
func NewRequestResponse(request *domain.Request) RequestResponse {
	contractor := NewUserResponse(request.Contractor)
	if contractor == nil {
		contractor = &UserResponse{ID: request.ContractorID}
	}
	requester := NewUserResponse(request.Requester)
	if requester == nil {
		requester = &UserResponse{ID: request.RequestedBy}
	}
	item := &RequestItemResponse{ID: request.ItemID}
	if request.Item != nil {
		item = &RequestItemResponse{
			ID:          request.Item.ID,
			Title:       request.Item.Title,
			Type:        request.Item.Type,
			Description: request.Item.Description,
		}
	}
	return RequestResponse{
		ID:          request.ID,
		Contractor:  contractor,
		Item:        item,
		RequestedBy: requester,
		Status:      request.Status,
		CreatedAt:   request.CreatedAt,
	}
}

// NewRequestResponses maps a listing.
func NewRequestResponses(requests []domain.Request) []RequestResponse {
	out := make([]RequestResponse, 0, len(requests))
	for i := range requests {
		out = append(out, NewRequestResponse(&requests[i]))
	}
	return out
}
