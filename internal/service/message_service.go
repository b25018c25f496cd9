package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/crm-support/internal/domain"
	"github.com/spec-kit/crm-support/internal/events"
	"github.com/spec-kit/crm-support/internal/repository"
	apperrors "github.com/spec-kit/crm-support/pkg/util"
)

const messagePreviewLen = 140

// MessageService owns the per-ticket message thread.
type MessageService struct {
	tickets  repository.TicketRepository
	messages repository.TicketMessageRepository
	audit    auditTrail
	now      Clock
}

// MessageDependencies bundles repositories for the message service.
type MessageDependencies struct {
	TicketRepo  repository.TicketRepository
	MessageRepo repository.TicketMessageRepository
	Dispatcher  events.Dispatcher
	Clock       Clock
	Logger      *zap.Logger
}

// MessageInput is the body of a new message.
type MessageInput struct {
	Message        string
	AttachmentURLs []string
}

// NewMessageService constructs the service.
func NewMessageService(deps MessageDependencies) *MessageService {
	logger := loggerOrNop(deps.Logger)
	return &MessageService{
		tickets:  deps.TicketRepo,
		messages: deps.MessageRepo,
		audit:    auditTrail{dispatcher: deps.Dispatcher, logger: logger},
		now:      clockOrDefault(deps.Clock),
	}
}

// PostMessage appends a message from actor. Closed tickets still accept messages.
// The parent ticket's lastActivityAt moves to the message time, and the first
// admin message sets firstResponseAt.
func (s *MessageService) PostMessage(ctx context.Context, actor events.Actor, ticketID string, input MessageInput) (*domain.TicketMessage, *domain.Ticket, error) {
	body := strings.TrimSpace(input.Message)
	if body == "" {
		return nil, nil, apperrors.NewValidationError("message is required", map[string]any{"message": "required"})
	}

	msg := &domain.TicketMessage{
		TicketID:       ticketID,
		Message:        body,
		AttachmentURLs: trimURLs(input.AttachmentURLs),
	}
	switch actor.Type {
	case domain.SubjectTypeAdmin:
		if actor.AdminID == nil {
			return nil, nil, apperrors.NewUnauthorized("admin required")
		}
		msg.SenderType = domain.SenderTypeAdmin
		msg.SenderID = *actor.AdminID
	case domain.SubjectTypeCustomer:
		if err := s.ensureCustomerOwns(ctx, actor, ticketID); err != nil {
			return nil, nil, err
		}
		msg.SenderType = domain.SenderTypeCustomer
		msg.SenderID = *actor.CustomerID
	default:
		return nil, nil, apperrors.NewForbidden("only customers and admins may post messages")
	}

	msg.CreatedAt = s.now()
	ticket, err := s.messages.CreateWithActivity(ctx, msg)
	if err != nil {
		return nil, nil, notFoundOr(err, "ticket", ticketID)
	}

	s.audit.publish(ctx, events.Event{
		Type:      events.EventTicketMessageAdded,
		TicketID:  ticketID,
		Actor:     actor,
		Timestamp: msg.CreatedAt,
		Payload: events.TicketMessageAddedPayload{
			MessageID:   msg.ID,
			SenderType:  msg.SenderType,
			SenderID:    msg.SenderID,
			BodyPreview: stringPreview(msg.Message, messagePreviewLen),
		},
	})
	return msg, ticket, nil
}

// GetMessages returns the full thread ordered by creation time.
func (s *MessageService) GetMessages(ctx context.Context, actor events.Actor, ticketID string) ([]domain.TicketMessage, error) {
	switch actor.Type {
	case domain.SubjectTypeCustomer:
		if err := s.ensureCustomerOwns(ctx, actor, ticketID); err != nil {
			return nil, err
		}
	default:
		if _, err := s.tickets.GetByID(ctx, ticketID); err != nil {
			return nil, notFoundOr(err, "ticket", ticketID)
		}
	}
	msgs, err := s.messages.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return msgs, nil
}

func (s *MessageService) ensureCustomerOwns(ctx context.Context, actor events.Actor, ticketID string) error {
	if actor.CustomerID == nil {
		return apperrors.NewForbidden("customer required")
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return notFoundOr(err, "ticket", ticketID)
	}
	if ticket.CustomerID != *actor.CustomerID {
		return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	}
	return nil
}
