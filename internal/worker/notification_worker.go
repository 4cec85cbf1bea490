package worker

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/hse-tools/permit-service/internal/notifications"
	"github.com/hse-tools/permit-service/internal/service"
)

// StartNotificationWorker registers notification handlers and, when a notifier is given, logs every
// delivered user notification until ctx is cancelled.
func StartNotificationWorker(ctx context.Context, notificationService *service.NotificationService, notifier *notifications.Notifier, logger *zap.Logger) error {
	if notificationService == nil {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	notificationService.RegisterHandlers()

	return notifier.StartPatternSubscriber(ctx, func(channel, payload string) {
		logger.Debug("notification delivered",
			zap.String("user_id", strings.TrimPrefix(channel, notifications.UserChannel(""))),
			zap.Int("bytes", len(payload)))
	})
}
