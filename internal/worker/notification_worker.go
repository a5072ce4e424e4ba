package worker

import (
	"go.uber.org/zap"

	"github.com/spec-kit/credit-line-service/internal/events"
	"github.com/spec-kit/credit-line-service/internal/service"
)

// NotificationWorker subscribes the notification service to the lending event
// stream.
type NotificationWorker struct {
	notifications *service.NotificationService
	logger        *zap.Logger
}

// NewNotificationWorker constructs the worker.
func NewNotificationWorker(notifications *service.NotificationService, logger *zap.Logger) *NotificationWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationWorker{notifications: notifications, logger: logger}
}

// Start registers the event handlers. The dispatcher is synchronous, so there
// is no goroutine to manage and nothing to stop.
func (w *NotificationWorker) Start() {
	if w.notifications == nil {
		return
	}
	w.notifications.RegisterHandlers()
	w.logger.Info("notification worker subscribed",
		zap.Strings("events", []string{
			string(events.EventApplicationCreated),
			string(events.EventFundsDisbursed),
			string(events.EventFundsRepaid),
			string(events.EventApplicationRejected),
		}))
}
