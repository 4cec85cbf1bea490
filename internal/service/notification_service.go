package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hse-tools/permit-service/internal/config"
	"github.com/hse-tools/permit-service/internal/events"
	"github.com/hse-tools/permit-service/internal/notifications"
)

// UserPublisher delivers a notification to one user.
type UserPublisher interface {
	PublishUser(ctx context.Context, userID string, msg notifications.Message) error
}

// NotificationService turns domain events into per-user notifications.
type NotificationService struct {
	dispatcher events.Dispatcher
	publisher  UserPublisher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, publisher UserPublisher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		publisher:  publisher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventItemCreated, n.handleItemCreated)
	n.dispatcher.Subscribe(events.EventItemStatusChanged, n.handleItemStatusChanged)
	n.dispatcher.Subscribe(events.EventRequestCreated, n.handleRequestCreated)
	n.dispatcher.Subscribe(events.EventRequestStatusChanged, n.handleRequestStatusChanged)
}

func (n *NotificationService) handleItemCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ItemCreatedPayload)
	if !ok {
		return nil
	}
	n.logger.Info("ItemCreated", zap.String("item_id", event.SubjectID), zap.String("type", string(payload.Type)))
	return nil
}

func (n *NotificationService) handleItemStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ItemStatusChangedPayload)
	if !ok {
		return nil
	}
	n.logger.Info("ItemStatusChanged", zap.String("item_id", event.SubjectID), zap.Any("payload", payload))
	if payload.OwnerID == event.Actor.UserID {
		return nil
	}
	return n.send(ctx, payload.OwnerID, notifications.Message{
		Kind:      string(event.Type),
		SubjectID: event.SubjectID,
		Text:      fmt.Sprintf("%s %q moved from %s to %s", payload.Type, payload.Title, payload.OldStatus, payload.NewStatus),
		Data:      payload,
	})
}

func (n *NotificationService) handleRequestCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.RequestCreatedPayload)
	if !ok {
		return nil
	}
	n.logger.Info("RequestCreated", zap.String("request_id", event.SubjectID), zap.Any("payload", payload))
	return n.send(ctx, payload.ContractorID, notifications.Message{
		Kind:      string(event.Type),
		SubjectID: event.SubjectID,
		Text:      "you have a new request from HSE",
		Data:      payload,
	})
}

func (n *NotificationService) handleRequestStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.RequestStatusChangedPayload)
	if !ok {
		return nil
	}
	n.logger.Info("RequestStatusChanged", zap.String("request_id", event.SubjectID), zap.Any("payload", payload))
	if payload.RequestedBy == event.Actor.UserID {
		return nil
	}
	return n.send(ctx, payload.RequestedBy, notifications.Message{
		Kind:      string(event.Type),
		SubjectID: event.SubjectID,
		Text:      fmt.Sprintf("request marked %s", payload.NewStatus),
		Data:      payload,
	})
}

func (n *NotificationService) send(ctx context.Context, userID string, msg notifications.Message) error {
	if !n.cfg.Enabled || n.publisher == nil || userID == "" {
		return nil
	}
	if err := n.publisher.PublishUser(ctx, userID, msg); err != nil {
		return fmt.Errorf("notify user %s: %w", userID, err)
	}
	return nil
}
