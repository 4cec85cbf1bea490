package dto

import (
	"time"

	"github.com/hse-tools/permit-service/internal/domain"
)

// CreateItemRequest payload.
type CreateItemRequest struct {
	Title           string          `json:"title" validate:"max=200"`
	Description     string          `json:"description"`
	Type            domain.ItemType `json:"type"`
	AssignedTo      *string         `json:"assignedTo" validate:"omitempty,uuid"`
	MocID           *string         `json:"mocId"`
	ReasonForChange string          `json:"reasonForChange"`
	Pros            string          `json:"pros"`
	Cons            string          `json:"cons"`
	RiskFactor      string          `json:"riskFactor"`
}

// UpdateItemRequest is the generic item patch.
type UpdateItemRequest struct {
	Title       *string            `json:"title" validate:"omitempty,max=200"`
	Description *string            `json:"description"`
	Status      *domain.ItemStatus `json:"status"`
}

// ItemListQuery captures optional list filters.
type ItemListQuery struct {
	Type   string `query:"type"`
	Status string `query:"status"`
	Search string `query:"search"`
}

// ItemResponse is the wire view of an item, with derived flags.
type ItemResponse struct {
	ID              string            `json:"id"`
	Title           string            `json:"title"`
	Description     string            `json:"description"`
	Type            domain.ItemType   `json:"type"`
	Status          domain.ItemStatus `json:"status"`
	CreatedBy       *UserResponse     `json:"createdBy"`
	AssignedTo      *UserResponse     `json:"assignedTo"`
	MocID           *string           `json:"mocId"`
	MocOwner        *UserResponse     `json:"mocOwner,omitempty"`
	ReasonForChange string            `json:"reasonForChange"`
	Pros            string            `json:"pros"`
	Cons            string            `json:"cons"`
	RiskFactor      string            `json:"riskFactor"`
	SubmittedAt     *time.Time        `json:"submittedAt"`
	ReviewedAt      *time.Time        `json:"reviewedAt"`
	AcceptedAt      *time.Time        `json:"acceptedAt"`
	CreatedAt       time.Time         `json:"createdAt"`
	IsEditable      bool              `json:"isEditable"`
	IsReviewable    bool              `json:"isReviewable"`
	CanIssuePTW     bool              `json:"canIssuePTW"`
}

// NewItemResponse maps a domain item.
func NewItemResponse(item *domain.Item) ItemResponse {
	createdBy := NewUserResponse(item.Creator)
	if createdBy == nil {
		createdBy = &UserResponse{ID: item.CreatedBy}
	}
	assignedTo := NewUserResponse(item.Assignee)
	if assignedTo == nil && item.AssignedTo != nil {
		assignedTo = &UserResponse{ID: *item.AssignedTo}
	}
	return ItemResponse{
		ID:              item.ID,
		Title:           item.Title,
		Description:     item.Description,
		Type:            item.Type,
		Status:          item.Status,
		CreatedBy:       createdBy,
		AssignedTo:      assignedTo,
		MocID:           item.MocID,
		MocOwner:        NewUserResponse(item.MocOwner),
		ReasonForChange: item.ReasonForChange,
		Pros:            item.Pros,
		Cons:            item.Cons,
		RiskFactor:      item.RiskFactor,
		SubmittedAt:     item.SubmittedAt,
		ReviewedAt:      item.ReviewedAt,
		AcceptedAt:      item.AcceptedAt,
		CreatedAt:       item.CreatedAt,
		IsEditable:      item.IsEditable(),
		IsReviewable:    item.IsReviewable(),
		CanIssuePTW:     item.CanIssuePTW(),
	}
}

// NewItemResponses maps a listing.
func NewItemResponses(items []domain.Item) []ItemResponse {
	out := make([]ItemResponse, 0, len(items))
	for i := range items {
		out = append(out, NewItemResponse(&items[i]))
	}
	return out
}
