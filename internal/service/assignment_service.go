package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spec-kit/crm-support/internal/domain"
	"github.com/spec-kit/crm-support/internal/events"
	"github.com/spec-kit/crm-support/internal/repository"
	apperrors "github.com/spec-kit/crm-support/pkg/util"
)

// AssignmentService implements the single-owner claim/release protocol.
type AssignmentService struct {
	tickets repository.TicketRepository
	admins  repository.AdminRepository
	audit   auditTrail
	now     Clock
	logger  *zap.Logger
}

// AssignmentDependencies bundles repositories.
type AssignmentDependencies struct {
	TicketRepo  repository.TicketRepository
	AdminRepo   repository.AdminRepository
	HistoryRepo repository.TicketHistoryRepository
	Dispatcher  events.Dispatcher
	Clock       Clock
	Logger      *zap.Logger
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	logger := loggerOrNop(deps.Logger)
	return &AssignmentService{
		tickets: deps.TicketRepo,
		admins:  deps.AdminRepo,
		audit:   auditTrail{history: deps.HistoryRepo, dispatcher: deps.Dispatcher, logger: logger},
		now:     clockOrDefault(deps.Clock),
		logger:  logger,
	}
}

// Claim gives adminID ownership of the ticket.
//
// An unowned ticket is taken. A ticket already owned by adminID is returned
// unchanged. A ticket owned by someone else fails with ALREADY_CLAIMED unless
// allowReclaim is set, in which case ownership is replaced. Each write is a
// compare-and-set against the owner just read; losing that race re-reads and
// applies the same rules to the winner's state until the claim settles or ctx
// is done.
func (s *AssignmentService) Claim(ctx context.Context, adminID, ticketID string, allowReclaim bool) (*domain.Ticket, error) {
	if adminID == "" {
		return nil, apperrors.NewUnauthorized("admin required")
	}

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, ownershipAbandoned(err)
		}
		current, err := s.tickets.GetByID(ctx, ticketID)
		if err != nil {
			return nil, notFoundOr(err, "ticket", ticketID)
		}

		prior := cloneString(current.AssignedTo)
		switch {
		case prior == nil:
		case *prior == adminID:
			return current, nil
		case !allowReclaim:
			return nil, s.alreadyClaimed(ctx, *prior)
		}

		now := s.now()
		updated, err := s.tickets.CompareAndSetAssignee(ctx, ticketID, prior, &adminID, now)
		if errors.Is(err, repository.ErrStaleWrite) {
			s.logger.Debug("claim lost race; re-reading",
				zap.String("ticket_id", ticketID),
				zap.String("admin_id", adminID),
				zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return nil, apperrors.MapError(err)
		}

		change := domain.ChangeTypeClaim
		if prior != nil {
			change = domain.ChangeTypeTakeover
		}
		actor := events.AdminActor(adminID)
		s.audit.record(ctx, actor, ticketID, change,
			map[string]any{"assigned_to": derefOrNil(prior)},
			map[string]any{"assigned_to": adminID},
			now)
		s.audit.publish(ctx, events.Event{
			Type:      events.EventTicketClaimed,
			TicketID:  ticketID,
			Actor:     actor,
			Timestamp: now,
			Payload: events.TicketAssignedPayload{
				PreviousAdminID: prior,
				AssigneeAdminID: cloneString(updated.AssignedTo),
				Takeover:        prior != nil,
			},
		})
		return updated, nil
	}
}

// Release clears ownership when adminID is the current owner and fails with NOT_OWNER otherwise.
// A lost compare-and-set means the owner changed, so the re-read reports NOT_OWNER.
func (s *AssignmentService) Release(ctx context.Context, adminID, ticketID string) (*domain.Ticket, error) {
	if adminID == "" {
		return nil, apperrors.NewUnauthorized("admin required")
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, ownershipAbandoned(err)
		}
		current, err := s.tickets.GetByID(ctx, ticketID)
		if err != nil {
			return nil, notFoundOr(err, "ticket", ticketID)
		}
		if !current.IsAssignedTo(adminID) {
			owner := ""
			if current.AssignedTo != nil {
				owner = *current.AssignedTo
			}
			return nil, apperrors.NewNotOwner(owner)
		}

		now := s.now()
		expected := adminID
		updated, err := s.tickets.CompareAndSetAssignee(ctx, ticketID, &expected, nil, now)
		if errors.Is(err, repository.ErrStaleWrite) {
			continue
		}
		if err != nil {
			return nil, apperrors.MapError(err)
		}

		actor := events.AdminActor(adminID)
		s.audit.record(ctx, actor, ticketID, domain.ChangeTypeRelease,
			map[string]any{"assigned_to": adminID},
			map[string]any{"assigned_to": nil},
			now)
		s.audit.publish(ctx, events.Event{
			Type:      events.EventTicketReleased,
			TicketID:  ticketID,
			Actor:     actor,
			Timestamp: now,
			Payload:   events.TicketAssignedPayload{PreviousAdminID: &expected},
		})
		return updated, nil
	}
}

func ownershipAbandoned(err error) error {
	return apperrors.NewUnavailable("request ended before ownership settled; re-fetch the ticket", err)
}

// alreadyClaimed builds the failure with the owner's display name when it can be resolved.
func (s *AssignmentService) alreadyClaimed(ctx context.Context, ownerID string) error {
	name := ""
	if s.admins != nil {
		if owner, err := s.admins.GetByID(ctx, ownerID); err == nil {
			name = owner.Username
		} else if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("owner lookup failed", zap.String("admin_id", ownerID), zap.Error(err))
		}
	}
	return apperrors.NewAlreadyClaimed(ownerID, name)
}
