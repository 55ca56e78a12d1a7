package worker

import (
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/persistence"
	"github.com/spec-kit/support-desk/internal/service"
)

// StartNotificationWorker subscribes the notification handlers to the
// dispatcher. Events are also streamed to Redis when a client is configured.
func StartNotificationWorker(dispatcher events.Dispatcher, logger *zap.Logger, redis *persistence.Redis, prefix string) *service.NotificationService {
	if dispatcher == nil {
		return nil
	}
	var sink events.EventHandler
	if redis.Configured() {
		publisher := events.NewRedisPublisher(redis.Client, prefix)
		sink = publisher.Handle
		logger.Info("streaming ticket events to redis", zap.String("channel", publisher.Channel()))
	}
	notifications := service.NewNotificationService(dispatcher, logger, sink)
	notifications.RegisterHandlers()
	return notifications
}
