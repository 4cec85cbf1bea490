package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hse-tools/permit-service/internal/domain"
	"github.com/hse-tools/permit-service/internal/events"
	apperrors "github.com/hse-tools/permit-service/pkg/util/errorutil"
)

// parseID rejects identifiers the store could never hold so they surface as NOT_FOUND
// rather than as a driver error.
func parseID(id, resource string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperrors.NewNotFound(resource, map[string]any{"id": id})
	}
	return nil
}

func publish(ctx context.Context, dispatcher events.Dispatcher, actor domain.Identity, eventType events.EventType, subjectID string, payload any) {
	if dispatcher == nil {
		return
	}
	_ = dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		SubjectID: subjectID,
		Actor:     events.Actor{UserID: actor.UserID, Role: actor.Role},
		Timestamp: time.Now(),
		Payload:   payload,
	})
}
