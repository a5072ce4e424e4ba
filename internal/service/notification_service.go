package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/credit-line-service/internal/config"
	"github.com/spec-kit/credit-line-service/internal/events"
)

// NotificationService handles emitting notifications for domain events.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventApplicationCreated, n.handleApplicationCreated)
	n.dispatcher.Subscribe(events.EventFundsDisbursed, n.handleFundsDisbursed)
	n.dispatcher.Subscribe(events.EventFundsRepaid, n.handleFundsRepaid)
	n.dispatcher.Subscribe(events.EventApplicationRejected, n.handleApplicationRejected)
}

func (n *NotificationService) handleApplicationCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("ApplicationCreated", zap.String("application_id", event.ApplicationID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleFundsDisbursed(ctx context.Context, event events.Event) error {
	n.logger.Info("FundsDisbursed", zap.String("application_id", event.ApplicationID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleFundsRepaid(ctx context.Context, event events.Event) error {
	n.logger.Info("FundsRepaid", zap.String("application_id", event.ApplicationID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleApplicationRejected(ctx context.Context, event events.Event) error {
	n.logger.Info("ApplicationRejected", zap.String("application_id", event.ApplicationID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) sendEmailNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("application_id", event.ApplicationID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("application_id", event.ApplicationID),
		zap.String("event_type", string(event.Type)))
}
