package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hse-tools/permit-service/internal/domain"
	"github.com/hse-tools/permit-service/internal/events"
	"github.com/hse-tools/permit-service/internal/observability"
	"github.com/hse-tools/permit-service/internal/repository"
	"github.com/hse-tools/permit-service/internal/workflow"
	apperrors "github.com/hse-tools/permit-service/pkg/util/errorutil"
)

// ItemService drives the MOC and PTW lifecycle.
type ItemService struct {
	items      repository.ItemRepository
	requests   repository.RequestRepository
	users      repository.UserRepository
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// ItemDependencies bundles collaborators for the item service.
type ItemDependencies struct {
	ItemRepo    repository.ItemRepository
	RequestRepo repository.RequestRepository
	UserRepo    repository.UserRepository
	Dispatcher  events.Dispatcher
	Metrics     *observability.Metrics
	Logger      *zap.Logger
}

// ItemCreateInput describes item creation payload.
type ItemCreateInput struct {
	Title           string
	Description     string
	Type            domain.ItemType
	AssignedTo      *string
	MocID           *string
	ReasonForChange string
	Pros            string
	Cons            string
	RiskFactor      string
}

// ItemPatch describes a generic item update. Nil fields are left unchanged.
type ItemPatch struct {
	Title       *string
	Description *string
	Status      *domain.ItemStatus
}

// ItemListFilter carries the optional query filters of the item listing.
type ItemListFilter struct {
	Type   *domain.ItemType
	Status *domain.ItemStatus
	Search *string
}

// NewItemService constructs the service.
func NewItemService(deps ItemDependencies) *ItemService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ItemService{
		items:      deps.ItemRepo,
		requests:   deps.RequestRepo,
		users:      deps.UserRepo,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
		now:        time.Now,
	}
}

// CreateItem creates a Draft MOC for a contractor, or a Draft PTW for HSE against an Approved MOC.
func (s *ItemService) CreateItem(ctx context.Context, actor domain.Identity, input ItemCreateInput) (*domain.Item, error) {
	item := &domain.Item{
		Title:           strings.TrimSpace(input.Title),
		Description:     strings.TrimSpace(input.Description),
		Type:            input.Type,
		Status:          domain.ItemStatusDraft,
		CreatedBy:       actor.UserID,
		AssignedTo:      input.AssignedTo,
		ReasonForChange: input.ReasonForChange,
		Pros:            input.Pros,
		Cons:            input.Cons,
		RiskFactor:      input.RiskFactor,
	}

	switch input.Type {
	case domain.ItemTypeMOC:
		if err := workflow.Authorize(workflow.OpCreateMOC, actor.Role); err != nil {
			return nil, err
		}
	case domain.ItemTypePTW:
		if err := workflow.Authorize(workflow.OpCreatePTW, actor.Role); err != nil {
			return nil, err
		}
		if err := s.requireApprovedMOC(ctx, input.MocID); err != nil {
			return nil, err
		}
		item.MocID = input.MocID
	default:
		return nil, apperrors.NewInvalidType("invalid item type")
	}

	if item.AssignedTo != nil {
		if err := s.requireAssignee(ctx, *item.AssignedTo); err != nil {
			return nil, err
		}
	}

	if err := s.items.Create(ctx, item); err != nil {
		return nil, apperrors.MapStoreError(err, "item")
	}
	created, err := s.items.GetByID(ctx, item.ID)
	if err != nil {
		return nil, apperrors.MapStoreError(err, "item")
	}

	s.logger.Info("item created",
		zap.String("item_id", created.ID),
		zap.String("type", string(created.Type)),
		zap.String("created_by", actor.UserID))
	publish(ctx, s.dispatcher, actor, events.EventItemCreated, created.ID, events.ItemCreatedPayload{
		Type:    created.Type,
		Title:   created.Title,
		OwnerID: created.CreatedBy,
		MocID:   created.MocID,
	})
	return created, nil
}

func (s *ItemService) requireApprovedMOC(ctx context.Context, mocID *string) error {
	const msg = "PTW can only be created from approved MOC"
	if mocID == nil || *mocID == "" {
		return apperrors.NewInvalidType(msg)
	}
	if err := parseID(*mocID, "MOC"); err != nil {
		return apperrors.NewInvalidType(msg)
	}
	moc, err := s.items.GetByID(ctx, *mocID)
	if err != nil {
		mapped := apperrors.MapStoreError(err, "MOC")
		if apperrors.ToDomainError(mapped).Code == apperrors.CodeNotFound {
			return apperrors.NewInvalidType(msg)
		}
		return mapped
	}
	if !moc.CanIssuePTW() {
		return apperrors.NewInvalidType(msg)
	}
	return nil
}

func (s *ItemService) requireAssignee(ctx context.Context, id string) error {
	if err := parseID(id, "assignee"); err != nil {
		return err
	}
	if _, err := s.users.GetByID(ctx, id); err != nil {
		return apperrors.MapStoreError(err, "assignee")
	}
	return nil
}

// GetItem fetches one item with its creator expanded.
func (s *ItemService) GetItem(ctx context.Context, actor domain.Identity, id string) (*domain.Item, error) {
	if err := workflow.Authorize(workflow.OpGetItem, actor.Role); err != nil {
		return nil, err
	}
	return s.load(ctx, id)
}

// ListItems returns items visible to the caller. Contractors only ever see their own items.
func (s *ItemService) ListItems(ctx context.Context, actor domain.Identity, filter ItemListFilter) ([]domain.Item, error) {
	if err := workflow.Authorize(workflow.OpListItems, actor.Role); err != nil {
		return nil, err
	}
	repoFilter := repository.ItemFilter{
		Type:       filter.Type,
		Status:     filter.Status,
		SearchTerm: filter.Search,
	}
	if actor.Role == domain.RoleContractor {
		repoFilter.CreatedBy = &actor.UserID
	}
	return s.list(ctx, repoFilter)
}

// ListMOCs returns the caller's MOCs for contractors and every contractor-created MOC for HSE.
func (s *ItemService) ListMOCs(ctx context.Context, actor domain.Identity) ([]domain.Item, error) {
	if err := workflow.Authorize(workflow.OpListMOCs, actor.Role); err != nil {
		return nil, err
	}
	mocType := domain.ItemTypeMOC
	filter := repository.ItemFilter{Type: &mocType}
	switch actor.Role {
	case domain.RoleContractor:
		filter.CreatedBy = &actor.UserID
	case domain.RoleHSE:
		creatorRole := domain.RoleContractor
		filter.CreatorRole = &creatorRole
	}
	return s.list(ctx, filter)
}

// ListOwnMOCs returns the calling contractor's MOCs.
func (s *ItemService) ListOwnMOCs(ctx context.Context, actor domain.Identity) ([]domain.Item, error) {
	if err := workflow.Authorize(workflow.OpListOwnMOCs, actor.Role); err != nil {
		return nil, err
	}
	mocType := domain.ItemTypeMOC
	return s.list(ctx, repository.ItemFilter{Type: &mocType, CreatedBy: &actor.UserID})
}

// ListJobStarted returns started jobs scoped to the caller: a contractor sees items they created
// and permits issued against their MOCs, HSE sees all.
func (s *ItemService) ListJobStarted(ctx context.Context, actor domain.Identity) ([]domain.Item, error) {
	if err := workflow.Authorize(workflow.OpListJobStarted, actor.Role); err != nil {
		return nil, err
	}
	status := domain.ItemStatusJobStarted
	filter := repository.ItemFilter{Status: &status}
	if actor.Role == domain.RoleContractor {
		filter.OwnerOrMocOwner = &actor.UserID
	}
	return s.list(ctx, filter)
}

// ListAllJobStarted returns every started job regardless of owner.
func (s *ItemService) ListAllJobStarted(ctx context.Context, actor domain.Identity) ([]domain.Item, error) {
	if err := workflow.Authorize(workflow.OpListJobStarted, actor.Role); err != nil {
		return nil, err
	}
	status := domain.ItemStatusJobStarted
	return s.list(ctx, repository.ItemFilter{Status: &status})
}

// GetPTWByMoc returns the permit issued against mocID, with issuer and MOC owner expanded.
func (s *ItemService) GetPTWByMoc(ctx context.Context, actor domain.Identity, mocID string) (*domain.Item, error) {
	if err := workflow.Authorize(workflow.OpGetPTWByMoc, actor.Role); err != nil {
		return nil, err
	}
	notFound := apperrors.NewNotFound("PTW for this MOC", map[string]any{"moc_id": mocID})
	if err := parseID(mocID, "MOC"); err != nil {
		return nil, notFound
	}
	ptw, err := s.items.FindPTWByMoc(ctx, mocID)
	if err != nil {
		mapped := apperrors.MapStoreError(err, "PTW")
		if apperrors.ToDomainError(mapped).Code == apperrors.CodeNotFound {
			return nil, notFound
		}
		return nil, mapped
	}
	return ptw, nil
}

// Submit moves a Draft item to Submitted.
func (s *ItemService) Submit(ctx context.Context, actor domain.Identity, id string) (*domain.Item, error) {
	return s.transition(ctx, actor, id, workflow.ActionSubmit)
}

// Approve moves a Submitted item to Approved.
func (s *ItemService) Approve(ctx context.Context, actor domain.Identity, id string) (*domain.Item, error) {
	return s.transition(ctx, actor, id, workflow.ActionApprove)
}

// Reject moves a Submitted item to Rejected.
func (s *ItemService) Reject(ctx context.Context, actor domain.Identity, id string) (*domain.Item, error) {
	return s.transition(ctx, actor, id, workflow.ActionReject)
}

// AcceptPTW starts the job on an Approved permit.
func (s *ItemService) AcceptPTW(ctx context.Context, actor domain.Identity, id string) (*domain.Item, error) {
	return s.transition(ctx, actor, id, workflow.ActionAccept)
}

// UpdateItem applies a generic patch. HSE may edit title and description; a status in the patch is
// routed through the lifecycle like the dedicated endpoints. A contractor patch is only accepted
// when it submits a Draft item.
func (s *ItemService) UpdateItem(ctx context.Context, actor domain.Identity, id string, patch ItemPatch) (*domain.Item, error) {
	item, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	oldStatus := item.Status
	if actor.Role == domain.RoleContractor {
		if patch.Status == nil || *patch.Status != domain.ItemStatusSubmitted || item.Status != domain.ItemStatusDraft {
			return nil, apperrors.NewForbidden("contractors cannot edit this item")
		}
		if err := checkContractorScope(actor, item, workflow.ActionSubmit); err != nil {
			return nil, err
		}
		if err := workflow.Apply(item, actor.Role, workflow.ActionSubmit, s.now()); err != nil {
			return nil, err
		}
	} else {
		if err := workflow.Authorize(workflow.OpEditItem, actor.Role); err != nil {
			return nil, err
		}
		if patch.Status != nil && !patch.Status.Valid() {
			return nil, apperrors.NewInvalidType("invalid status")
		}
		if patch.Title != nil && strings.TrimSpace(*patch.Title) != "" {
			item.Title = strings.TrimSpace(*patch.Title)
		}
		if patch.Description != nil {
			item.Description = strings.TrimSpace(*patch.Description)
		}
		if patch.Status != nil && *patch.Status != item.Status {
			action, ok := workflow.ActionFor(*patch.Status)
			if !ok {
				return nil, apperrors.NewInvalidTransition("cannot move item back to "+string(*patch.Status), nil)
			}
			if err := workflow.Apply(item, actor.Role, action, s.now()); err != nil {
				return nil, err
			}
		}
	}

	if err := s.items.Update(ctx, item); err != nil {
		return nil, apperrors.MapStoreError(err, "item")
	}
	if item.Status != oldStatus {
		s.statusChanged(ctx, actor, item, oldStatus)
	}
	return item, nil
}

// DeleteItem removes an item. A MOC with an issued PTW, or any item that requests point at, cannot be
// deleted.
func (s *ItemService) DeleteItem(ctx context.Context, actor domain.Identity, id string) error {
	if err := workflow.Authorize(workflow.OpDeleteItem, actor.Role); err != nil {
		return err
	}
	item, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if item.Type == domain.ItemTypeMOC {
		dependents, err := s.items.CountByMoc(ctx, item.ID)
		if err != nil {
			return apperrors.MapStoreError(err, "item")
		}
		if dependents > 0 {
			return apperrors.NewConflict("MOC has an issued PTW and cannot be deleted", map[string]any{"ptw_count": dependents})
		}
	}
	requests, err := s.requests.CountByItem(ctx, item.ID)
	if err != nil {
		return apperrors.MapStoreError(err, "request")
	}
	if requests > 0 {
		return apperrors.NewConflict("item is referenced by requests and cannot be deleted", map[string]any{"request_count": requests})
	}
	if err := s.items.Delete(ctx, item.ID); err != nil {
		return apperrors.MapStoreError(err, "item")
	}
	s.logger.Info("item deleted", zap.String("item_id", item.ID), zap.String("deleted_by", actor.UserID))
	publish(ctx, s.dispatcher, actor, events.EventItemDeleted, item.ID, events.ItemDeletedPayload{
		Type:    item.Type,
		OwnerID: item.CreatedBy,
	})
	return nil
}

func (s *ItemService) transition(ctx context.Context, actor domain.Identity, id string, action workflow.Action) (*domain.Item, error) {
	item, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	// role, then graph, then ownership
	if err := workflow.Authorize(action.Operation(item.Type), actor.Role); err != nil {
		return nil, err
	}
	if _, err := workflow.Next(item.Type, item.Status, action); err != nil {
		return nil, err
	}
	if err := checkContractorScope(actor, item, action); err != nil {
		return nil, err
	}
	oldStatus := item.Status
	if err := workflow.Apply(item, actor.Role, action, s.now()); err != nil {
		return nil, err
	}
	if err := s.items.Update(ctx, item); err != nil {
		return nil, apperrors.MapStoreError(err, "item")
	}
	s.statusChanged(ctx, actor, item, oldStatus)
	return item, nil
}

// checkContractorScope limits contractors to submitting their own items and accepting permits
// issued against their own MOCs.
func checkContractorScope(actor domain.Identity, item *domain.Item, action workflow.Action) error {
	if actor.Role != domain.RoleContractor {
		return nil
	}
	switch action {
	case workflow.ActionSubmit:
		if item.CreatedBy != actor.UserID {
			return apperrors.NewForbidden("only the owner can submit this item")
		}
	case workflow.ActionAccept:
		if item.MocOwner == nil || item.MocOwner.ID != actor.UserID {
			return apperrors.NewForbidden("permit was not issued for your MOC")
		}
	}
	return nil
}

func (s *ItemService) statusChanged(ctx context.Context, actor domain.Identity, item *domain.Item, oldStatus domain.ItemStatus) {
	s.metrics.RecordTransition(string(item.Type), string(oldStatus), string(item.Status))
	s.logger.Info("item status changed",
		zap.String("item_id", item.ID),
		zap.String("type", string(item.Type)),
		zap.String("from", string(oldStatus)),
		zap.String("to", string(item.Status)),
		zap.String("actor_id", actor.UserID))
	publish(ctx, s.dispatcher, actor, events.EventItemStatusChanged, item.ID, events.ItemStatusChangedPayload{
		Type:      item.Type,
		Title:     item.Title,
		OwnerID:   item.CreatedBy,
		OldStatus: oldStatus,
		NewStatus: item.Status,
	})
}

func (s *ItemService) load(ctx context.Context, id string) (*domain.Item, error) {
	if err := parseID(id, "item"); err != nil {
		return nil, err
	}
	item, err := s.items.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.MapStoreError(err, "item")
	}
	return item, nil
}

func (s *ItemService) list(ctx context.Context, filter repository.ItemFilter) ([]domain.Item, error) {
	items, err := s.items.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapStoreError(err, "item")
	}
	if items == nil {
		items = []domain.Item{}
	}
	return items, nil
}
