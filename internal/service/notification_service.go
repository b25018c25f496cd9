package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/crm-support/internal/config"
	"github.com/spec-kit/crm-support/internal/events"
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
		logger:     loggerOrNop(logger),
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to ticket events and returns the event types it covers.
func (n *NotificationService) RegisterHandlers() []events.EventType {
	if n.dispatcher == nil {
		return nil
	}
	handlers := []struct {
		eventType events.EventType
		handle    events.EventHandler
	}{
		{events.EventTicketCreated, n.handleTicketCreated},
		{events.EventTicketStatusChanged, n.handleWebhookOnly},
		{events.EventTicketPriorityChanged, n.handleWebhookOnly},
		{events.EventTicketAssigned, n.handleWebhookOnly},
		{events.EventTicketClaimed, n.handleWebhookOnly},
		{events.EventTicketReleased, n.handleWebhookOnly},
		{events.EventTicketMessageAdded, n.handleTicketMessageAdded},
		{events.EventTicketEscalated, n.handleTicketEscalated},
	}
	subscribed := make([]events.EventType, 0, len(handlers))
	for _, h := range handlers {
		n.dispatcher.Subscribe(h.eventType, h.handle)
		subscribed = append(subscribed, h.eventType)
	}
	return subscribed
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketCreated", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleWebhookOnly(ctx context.Context, event events.Event) error {
	n.logger.Info(string(event.Type), zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleTicketMessageAdded(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketMessageAdded", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleTicketEscalated(ctx context.Context, event events.Event) error {
	n.logger.Warn("TicketEscalated", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) sendEmailNotificationStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}
