package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/realty-crm/internal/config"
	"github.com/spec-kit/realty-crm/internal/events"
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
	n.dispatcher.Subscribe(events.EventClientCreated, n.handleClientCreated)
	n.dispatcher.Subscribe(events.EventClientStageChanged, n.handleClientStageChanged)
	n.dispatcher.Subscribe(events.EventClientReassigned, n.handleClientReassigned)
	n.dispatcher.Subscribe(events.EventClientNoteAdded, n.handleClientNoteAdded)
}

func (n *NotificationService) handleClientCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("ClientCreated", zap.String("client_id", event.ClientID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleClientStageChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("ClientStageChanged", zap.String("client_id", event.ClientID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleClientReassigned(ctx context.Context, event events.Event) error {
	n.logger.Info("ClientReassigned", zap.String("client_id", event.ClientID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleClientNoteAdded(ctx context.Context, event events.Event) error {
	n.logger.Info("ClientNoteAdded", zap.String("client_id", event.ClientID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) sendEmailNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("client_id", event.ClientID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("client_id", event.ClientID),
		zap.String("event_type", string(event.Type)))
}
