package worker

import (
	"go.uber.org/zap"

	"github.com/spec-kit/crm-support/internal/events"
	"github.com/spec-kit/crm-support/internal/service"
)

// StartNotificationWorker subscribes the customer and webhook notifiers to ticket
// events and returns the event types now covered.
func StartNotificationWorker(notificationService *service.NotificationService, logger *zap.Logger) []events.EventType {
	if notificationService == nil {
		return nil
	}
	subscribed := notificationService.RegisterHandlers()
	if logger != nil {
		names := make([]string, 0, len(subscribed))
		for _, t := range subscribed {
			names = append(names, string(t))
		}
		logger.Info("ticket notifications subscribed", zap.Strings("events", names))
	}
	return subscribed
}
