package workflow

import (
	"fmt"
	"time"

	"github.com/hse-tools/permit-service/internal/domain"
	apperrors "github.com/hse-tools/permit-service/pkg/util/errorutil"
)

// Action is a lifecycle event applied to an item.
type Action string

const (
	ActionSubmit  Action = "submit"
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
	ActionAccept  Action = "accept"
)

type edges map[domain.ItemStatus]map[Action]domain.ItemStatus

// graphs holds the legal transitions for each item type. Anything absent is rejected.
var graphs = map[domain.ItemType]edges{
	domain.ItemTypeMOC: {
		domain.ItemStatusDraft: {ActionSubmit: domain.ItemStatusSubmitted},
		domain.ItemStatusSubmitted: {
			ActionApprove: domain.ItemStatusApproved,
			ActionReject:  domain.ItemStatusRejected,
		},
	},
	domain.ItemTypePTW: {
		domain.ItemStatusDraft: {ActionSubmit: domain.ItemStatusSubmitted},
		domain.ItemStatusSubmitted: {
			ActionApprove: domain.ItemStatusApproved,
			ActionReject:  domain.ItemStatusRejected,
		},
		domain.ItemStatusApproved: {ActionAccept: domain.ItemStatusJobStarted},
	},
}

// Next returns the status reached by applying action to an item of the given type and status.
func Next(itemType domain.ItemType, from domain.ItemStatus, action Action) (domain.ItemStatus, error) {
	graph, ok := graphs[itemType]
	if !ok {
		return "", apperrors.NewInvalidType(fmt.Sprintf("invalid item type %q", itemType))
	}
	to, ok := graph[from][action]
	if !ok {
		return "", apperrors.NewInvalidTransition(
			fmt.Sprintf("cannot %s a %s in status %s", action, itemType, from),
			map[string]any{"type": itemType, "status": from, "action": action},
		)
	}
	return to, nil
}

// Operation maps an action on an item type to the guarded operation in the policy table.
func (a Action) Operation(itemType domain.ItemType) Operation {
	switch a {
	case ActionSubmit:
		if itemType == domain.ItemTypePTW {
			return OpSubmitPTW
		}
		return OpSubmitMOC
	case ActionApprove:
		return OpApprove
	case ActionReject:
		return OpReject
	case ActionAccept:
		return OpAccept
	}
	return ""
}

// ActionFor resolves the action that leads into target, used when a patch names a status directly.
func ActionFor(target domain.ItemStatus) (Action, bool) {
	switch target {
	case domain.ItemStatusSubmitted:
		return ActionSubmit, true
	case domain.ItemStatusApproved:
		return ActionApprove, true
	case domain.ItemStatusRejected:
		return ActionReject, true
	case domain.ItemStatusJobStarted:
		return ActionAccept, true
	}
	return "", false
}

// Apply authorizes and performs action on item, stamping the matching timestamp.
// The item is left untouched on error.
func Apply(item *domain.Item, role domain.Role, action Action, now time.Time) error {
	if err := Authorize(action.Operation(item.Type), role); err != nil {
		return err
	}
	to, err := Next(item.Type, item.Status, action)
	if err != nil {
		return err
	}
	item.Status = to
	switch action {
	case ActionSubmit:
		item.SubmittedAt = &now
	case ActionApprove, ActionReject:
		item.ReviewedAt = &now
	case ActionAccept:
		item.AcceptedAt = &now
	}
	return nil
}
