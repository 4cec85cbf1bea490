package domain

import "time"

// ItemType distinguishes change proposals from work permits.
type ItemType string

const (
	ItemTypeMOC ItemType = "MOC"
	ItemTypePTW ItemType = "PTW"
)

// Valid reports whether t is a known item type.
func (t ItemType) Valid() bool {
	return t == ItemTypeMOC || t == ItemTypePTW
}

// ItemStatus enumerates lifecycle states shared by MOC and PTW items.
type ItemStatus string

const (
	ItemStatusDraft      ItemStatus = "Draft"
	ItemStatusSubmitted  ItemStatus = "Submitted"
	ItemStatusApproved   ItemStatus = "Approved"
	ItemStatusRejected   ItemStatus = "Rejected"
	ItemStatusJobStarted ItemStatus = "Job Started"
)

// Valid reports whether s is a known status.
func (s ItemStatus) Valid() bool {
	switch s {
	case ItemStatusDraft, ItemStatusSubmitted, ItemStatusApproved, ItemStatusRejected, ItemStatusJobStarted:
		return true
	}
	return false
}

// Item is either a Management of Change proposal or a Permit to Work issued against one.
type Item struct {
	ID              string
	Title           string
	Description     string
	Type            ItemType
	Status          ItemStatus
	CreatedBy       string
	AssignedTo      *string
	MocID           *string
	ReasonForChange string
	Pros            string
	Cons            string
	RiskFactor      string
	SubmittedAt     *time.Time
	ReviewedAt      *time.Time
	AcceptedAt      *time.Time
	CreatedAt       time.Time

	// Populated on reads that expand references.
	Creator  *UserRef
	Assignee *UserRef
	MocOwner *UserRef
}

// IsEditable reports whether a contractor may still change the MOC.
func (i *Item) IsEditable() bool {
	return i.Status == ItemStatusDraft && i.Type == ItemTypeMOC
}

// IsReviewable reports whether HSE may approve or reject the MOC.
func (i *Item) IsReviewable() bool {
	return i.Status == ItemStatusSubmitted && i.Type == ItemTypeMOC
}

// CanIssuePTW reports whether a permit may be created from this item.
func (i *Item) CanIssuePTW() bool {
	return i.Type == ItemTypeMOC && i.Status == ItemStatusApproved
}
