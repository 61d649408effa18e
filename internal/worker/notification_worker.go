package worker

import (
	"go.uber.org/zap"

	"github.com/spec-kit/civic-reporter/internal/config"
	"github.com/spec-kit/civic-reporter/internal/events"
	"github.com/spec-kit/civic-reporter/internal/service"
)

// StartNotificationWorker builds the notification service and subscribes it
// to issue events on dispatcher. A nil dispatcher disables notifications.
func StartNotificationWorker(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *service.NotificationService {
	if dispatcher == nil {
		return nil
	}
	notifications := service.NewNotificationService(dispatcher, logger.Named("notifications"), cfg)
	notifications.RegisterHandlers()
	logger.Info("notification worker started",
		zap.Bool("email", cfg.EmailFrom != ""),
		zap.Bool("webhook", cfg.WebhookURL != ""))
	return notifications
}
