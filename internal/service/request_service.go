package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/hse-tools/permit-service/internal/domain"
	"github.com/hse-tools/permit-service/internal/events"
	"github.com/hse-tools/permit-service/internal/observability"
	"github.com/hse-tools/permit-service/internal/repository"
	"github.com/hse-tools/permit-service/internal/workflow"
	apperrors "github.com/hse-tools/permit-service/pkg/util/errorutil"
)

// RequestService manages HSE requests sent to contractors.
type RequestService struct {
	requests   repository.RequestRepository
	items      repository.ItemRepository
	users      repository.UserRepository
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// RequestDependencies bundles collaborators for the request service.
type RequestDependencies struct {
	RequestRepo repository.RequestRepository
	ItemRepo    repository.ItemRepository
	UserRepo    repository.UserRepository
	Dispatcher  events.Dispatcher
	Metrics     *observability.Metrics
	Logger      *zap.Logger
}

// NewRequestService constructs the service.
func NewRequestService(deps RequestDependencies) *RequestService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RequestService{
		requests:   deps.RequestRepo,
		items:      deps.ItemRepo,
		users:      deps.UserRepo,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
	}
}

// CreateRequest records a Pending request from the calling HSE user to a contractor about an item.
func (s *RequestService) CreateRequest(ctx context.Context, actor domain.Identity, contractorID, itemID string) (*domain.Request, error) {
	if err := workflow.Authorize(workflow.OpCreateRequest, actor.Role); err != nil {
		return nil, err
	}
	contractorID = strings.TrimSpace(contractorID)
	itemID = strings.TrimSpace(itemID)
	if contractorID == "" || itemID == "" {
		return nil, apperrors.NewMissingField("contractor and item are required")
	}

	if err := parseID(contractorID, "contractor"); err != nil {
		return nil, err
	}
	contractor, err := s.users.GetByID(ctx, contractorID)
	if err != nil {
		return nil, apperrors.MapStoreError(err, "contractor")
	}
	if contractor.Role != domain.RoleContractor {
		return nil, apperrors.NewInvalidType("recipient is not a contractor")
	}
	if err := parseID(itemID, "item"); err != nil {
		return nil, err
	}
	if _, err := s.items.GetByID(ctx, itemID); err != nil {
		return nil, apperrors.MapStoreError(err, "item")
	}

	request := &domain.Request{
		ContractorID: contractorID,
		ItemID:       itemID,
		RequestedBy:  actor.UserID,
		Status:       domain.RequestStatusPending,
	}
	if err := s.requests.Create(ctx, request); err != nil {
		return nil, apperrors.MapStoreError(err, "request")
	}
	created, err := s.requests.GetByID(ctx, request.ID)
	if err != nil {
		return nil, apperrors.MapStoreError(err, "request")
	}

	s.metrics.RecordRequestStatus(string(created.Status))
	s.logger.Info("request created",
		zap.String("request_id", created.ID),
		zap.String("contractor_id", contractorID),
		zap.String("item_id", itemID))
	publish(ctx, s.dispatcher, actor, events.EventRequestCreated, created.ID, events.RequestCreatedPayload{
		ContractorID: contractorID,
		ItemID:       itemID,
		RequestedBy:  actor.UserID,
	})
	return created, nil
}

// ListRequests returns every request for HSE and only the contractor's own for contractors.
func (s *RequestService) ListRequests(ctx context.Context, actor domain.Identity) ([]domain.Request, error) {
	if err := workflow.Authorize(workflow.OpListRequests, actor.Role); err != nil {
		return nil, err
	}
	filter := repository.RequestFilter{}
	if actor.Role == domain.RoleContractor {
		filter.ContractorID = &actor.UserID
	}
	requests, err := s.requests.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapStoreError(err, "request")
	}
	if requests == nil {
		requests = []domain.Request{}
	}
	return requests, nil
}

// GetRequest fetches one request with item, contractor and requester expanded.
func (s *RequestService) GetRequest(ctx context.Context, actor domain.Identity, id string) (*domain.Request, error) {
	if err := workflow.Authorize(workflow.OpGetRequest, actor.Role); err != nil {
		return nil, err
	}
	return s.load(ctx, id)
}

// UpdateRequestStatus sets the request status. A contractor may only update requests addressed to them.
func (s *RequestService) UpdateRequestStatus(ctx context.Context, actor domain.Identity, id string, status domain.RequestStatus) (*domain.Request, error) {
	if err := workflow.Authorize(workflow.OpUpdateRequest, actor.Role); err != nil {
		return nil, err
	}
	request, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role == domain.RoleContractor && request.ContractorID != actor.UserID {
		return nil, apperrors.NewForbidden("not allowed to update this request")
	}
	if !status.Valid() {
		return nil, apperrors.NewInvalidType("invalid request status")
	}

	oldStatus := request.Status
	if err := s.requests.UpdateStatus(ctx, request.ID, status); err != nil {
		return nil, apperrors.MapStoreError(err, "request")
	}
	request.Status = status

	s.metrics.RecordRequestStatus(string(status))
	s.logger.Info("request status changed",
		zap.String("request_id", request.ID),
		zap.String("from", string(oldStatus)),
		zap.String("to", string(status)),
		zap.String("actor_id", actor.UserID))
	publish(ctx, s.dispatcher, actor, events.EventRequestStatusChanged, request.ID, events.RequestStatusChangedPayload{
		ContractorID: request.ContractorID,
		RequestedBy:  request.RequestedBy,
		OldStatus:    oldStatus,
		NewStatus:    status,
	})
	return request, nil
}

func (s *RequestService) load(ctx context.Context, id string) (*domain.Request, error) {
	if err := parseID(id, "request"); err != nil {
		return nil, err
	}
	request, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.MapStoreError(err, "request")
	}
	return request, nil
}
