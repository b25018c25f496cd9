package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/crm-support/internal/domain"
	"github.com/spec-kit/crm-support/internal/escalation"
	"github.com/spec-kit/crm-support/internal/events"
	"github.com/spec-kit/crm-support/internal/repository"
	apperrors "github.com/spec-kit/crm-support/pkg/util"
)

// EscalationService stamps the one-time escalatedAt marker on overdue tickets.
type EscalationService struct {
	tickets repository.TicketRepository
	audit   auditTrail
	now     Clock
	logger  *zap.Logger
}

// EscalationDependencies bundles repositories for the escalation service.
type EscalationDependencies struct {
	TicketRepo  repository.TicketRepository
	HistoryRepo repository.TicketHistoryRepository
	Dispatcher  events.Dispatcher
	Clock       Clock
	Logger      *zap.Logger
}

// NewEscalationService constructs the service.
func NewEscalationService(deps EscalationDependencies) *EscalationService {
	logger := loggerOrNop(deps.Logger)
	return &EscalationService{
		tickets: deps.TicketRepo,
		audit:   auditTrail{history: deps.HistoryRepo, dispatcher: deps.Dispatcher, logger: logger},
		now:     clockOrDefault(deps.Clock),
		logger:  logger,
	}
}

// Sweep marks every unresolved ticket that has crossed its threshold and has no marker yet.
// It returns how many tickets this call marked.
func (s *EscalationService) Sweep(ctx context.Context) (int, error) {
	now := s.now()
	candidates, err := s.tickets.ListUnresolved(ctx)
	if err != nil {
		return 0, err
	}

	marked := 0
	for i := range candidates {
		if err := ctx.Err(); err != nil {
			return marked, err
		}
		ticket := &candidates[i]
		if !escalation.NeedsMarker(ticket, now) {
			continue
		}
		_, ok, err := s.mark(ctx, events.SystemActor(), ticket, now)
		if err != nil {
			s.logger.Warn("escalation mark failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
			continue
		}
		if ok {
			marked++
		}
	}
	return marked, nil
}

// Acknowledge lets an admin stamp escalatedAt by hand. The ticket must be overdue;
// an already-marked ticket is returned unchanged.
func (s *EscalationService) Acknowledge(ctx context.Context, adminID, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, notFoundOr(err, "ticket", ticketID)
	}
	if ticket.EscalatedAt != nil {
		return ticket, nil
	}
	now := s.now()
	if !escalation.IsOverdue(ticket, now) {
		return nil, apperrors.NewValidationError("ticket has not crossed its escalation threshold", map[string]any{
			"ticket_id": ticketID,
			"threshold": escalation.Threshold(ticket.Priority).String(),
		})
	}

	updated, ok, err := s.mark(ctx, events.AdminActor(adminID), ticket, now)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !ok {
		// someone else set the marker first
		current, err := s.tickets.GetByID(ctx, ticketID)
		if err != nil {
			return nil, notFoundOr(err, "ticket", ticketID)
		}
		return current, nil
	}
	return updated, nil
}

// mark reports ok=false when another writer already set the marker.
func (s *EscalationService) mark(ctx context.Context, actor events.Actor, ticket *domain.Ticket, now time.Time) (*domain.Ticket, bool, error) {
	updated, err := s.tickets.MarkEscalated(ctx, ticket.ID, now)
	if errors.Is(err, repository.ErrStaleWrite) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	age := now.Sub(ticket.CreatedAt).Truncate(time.Minute)
	s.audit.record(ctx, actor, ticket.ID, domain.ChangeTypeEscalation,
		map[string]any{"escalated_at": nil},
		map[string]any{"escalated_at": now, "priority": ticket.Priority, "age": age.String()},
		now)
	s.audit.publish(ctx, events.Event{
		Type:      events.EventTicketEscalated,
		TicketID:  ticket.ID,
		Actor:     actor,
		Timestamp: now,
		Payload: events.TicketEscalatedPayload{
			Priority:    ticket.Priority,
			EscalatedAt: now,
			Age:         age.String(),
		},
	})
	return updated, true, nil
}
