package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/crm-support/internal/domain"
	"github.com/spec-kit/crm-support/internal/escalation"
	"github.com/spec-kit/crm-support/internal/events"
	"github.com/spec-kit/crm-support/internal/repository"
	apperrors "github.com/spec-kit/crm-support/pkg/util"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100

	// AssignedToUnassigned selects tickets nobody has claimed.
	AssignedToUnassigned = "unassigned"
	// AssignedToMe selects tickets owned by the calling admin.
	AssignedToMe = "me"
)

// StatsCache stores the derived overview between requests.
type StatsCache interface {
	Get(ctx context.Context) (*domain.TicketStats, error)
	Set(ctx context.Context, stats *domain.TicketStats) error
}

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets      repository.TicketRepository
	history      repository.TicketHistoryRepository
	customers    repository.CustomerRepository
	purchases    repository.PurchaseRepository
	admins       repository.AdminRepository
	statsCache   StatsCache
	recentWindow time.Duration
	audit        auditTrail
	now          Clock
	logger       *zap.Logger
}

// TicketDependencies bundles repositories for ticket service.
type TicketDependencies struct {
	TicketRepo   repository.TicketRepository
	HistoryRepo  repository.TicketHistoryRepository
	CustomerRepo repository.CustomerRepository
	PurchaseRepo repository.PurchaseRepository
	AdminRepo    repository.AdminRepository
	Dispatcher   events.Dispatcher
	StatsCache   StatsCache
	RecentWindow time.Duration
	Clock        Clock
	Logger       *zap.Logger
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	PurchaseID     *string
	Subject        string
	Message        string
	Category       domain.TicketCategory
	Priority       domain.TicketPriority
	AttachmentURLs []string
}

// TicketQuery holds raw list parameters. Empty strings mean "no filter".
// AssignedTo accepts an admin id, AssignedToUnassigned or AssignedToMe.
type TicketQuery struct {
	Status     string
	Priority   string
	Category   string
	AssignedTo string
	Search     string
	Page       int
	Limit      int
}

// Pagination describes an offset page.
type Pagination struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"total_pages"`
}

// TicketPage is one page of a filtered listing.
type TicketPage struct {
	Tickets    []domain.Ticket
	Pagination Pagination
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := loggerOrNop(deps.Logger)
	window := deps.RecentWindow
	if window <= 0 {
		window = 7 * 24 * time.Hour
	}
	return &TicketService{
		tickets:      deps.TicketRepo,
		history:      deps.HistoryRepo,
		customers:    deps.CustomerRepo,
		purchases:    deps.PurchaseRepo,
		admins:       deps.AdminRepo,
		statsCache:   deps.StatsCache,
		recentWindow: window,
		audit:        auditTrail{history: deps.HistoryRepo, dispatcher: deps.Dispatcher, logger: logger},
		now:          clockOrDefault(deps.Clock),
		logger:       logger,
	}
}

// Assess evaluates the read-time SLA flags for t against the service clock.
func (s *TicketService) Assess(t *domain.Ticket) escalation.Assessment {
	return escalation.Assess(t, s.now())
}

// CreateTicket opens a ticket on behalf of a customer.
func (s *TicketService) CreateTicket(ctx context.Context, customerID string, input TicketCreateInput) (*domain.Ticket, error) {
	subject := strings.TrimSpace(input.Subject)
	message := strings.TrimSpace(input.Message)
	fields := map[string]any{}
	if subject == "" {
		fields["subject"] = "required"
	}
	if message == "" {
		fields["message"] = "required"
	}
	if input.Category == "" {
		input.Category = domain.TicketCategoryGeneral
	} else if !input.Category.Valid() {
		fields["category"] = "invalid"
	}
	if input.Priority == "" {
		input.Priority = domain.TicketPriorityMedium
	} else if !input.Priority.Valid() {
		fields["priority"] = "invalid"
	}
	if len(fields) > 0 {
		return nil, apperrors.NewValidationError("invalid ticket", fields)
	}

	if _, err := s.customers.GetByID(ctx, customerID); err != nil {
		return nil, notFoundOr(err, "customer", customerID)
	}
	if input.PurchaseID != nil && strings.TrimSpace(*input.PurchaseID) == "" {
		input.PurchaseID = nil
	}
	if input.PurchaseID != nil {
		purchase, err := s.purchases.GetByID(ctx, *input.PurchaseID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, apperrors.NewValidationError("purchase not found", map[string]any{"purchase_id": *input.PurchaseID})
			}
			return nil, apperrors.MapError(err)
		}
		if purchase.CustomerID != customerID {
			return nil, apperrors.NewValidationError("purchase belongs to another customer", map[string]any{"purchase_id": *input.PurchaseID})
		}
	}

	now := s.now()
	ticket := &domain.Ticket{
		CustomerID:     customerID,
		PurchaseID:     cloneString(input.PurchaseID),
		Subject:        subject,
		Message:        message,
		AttachmentURLs: trimURLs(input.AttachmentURLs),
		Status:         domain.TicketStatusOpen,
		Priority:       input.Priority,
		Category:       input.Category,
		CreatedAt:      now,
		UpdatedAt:      now,
		LastActivityAt: now,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.audit.publish(ctx, events.Event{
		Type:      events.EventTicketCreated,
		TicketID:  ticket.ID,
		Actor:     events.CustomerActor(customerID),
		Timestamp: now,
		Payload: events.TicketCreatedPayload{
			CustomerID: customerID,
			Category:   ticket.Category,
			Priority:   ticket.Priority,
			Subject:    ticket.Subject,
		},
	})
	return ticket, nil
}

// GetTicket loads a ticket. Customers only see their own; other tickets read as missing.
func (s *TicketService) GetTicket(ctx context.Context, actor events.Actor, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, notFoundOr(err, "ticket", ticketID)
	}
	if actor.Type == domain.SubjectTypeCustomer && (actor.CustomerID == nil || ticket.CustomerID != *actor.CustomerID) {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	}
	return ticket, nil
}

// ListHistory returns the audit trail of a ticket, oldest first.
func (s *TicketService) ListHistory(ctx context.Context, ticketID string, limit, offset int) ([]domain.TicketHistory, error) {
	if s.history == nil {
		return []domain.TicketHistory{}, nil
	}
	entries, err := s.history.ListByTicket(ctx, ticketID, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

// ApplyUpdate applies an admin patch through the domain transition table and
// persists it with an optimistic version check. Direct reassignment bypasses
// the claim rules; a concurrent write surfaces as CONFLICT.
func (s *TicketService) ApplyUpdate(ctx context.Context, adminID, ticketID string, patch domain.TicketPatch) (*domain.Ticket, error) {
	if err := patch.Validate(); err != nil {
		return nil, apperrors.NewValidationError(err.Error(), nil)
	}
	if patch.Reassign && patch.AssignedTo != nil {
		assignee, err := s.admins.GetByID(ctx, *patch.AssignedTo)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, apperrors.NewValidationError("assignee not found", map[string]any{"assigned_to": *patch.AssignedTo})
			}
			return nil, apperrors.MapError(err)
		}
		if !assignee.Active {
			return nil, apperrors.NewValidationError("assignee inactive", map[string]any{"assigned_to": *patch.AssignedTo})
		}
	}

	current, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, notFoundOr(err, "ticket", ticketID)
	}

	now := s.now()
	next := current.Clone()
	changes := next.Apply(patch, now)

	updated, err := s.tickets.UpdateIfVersion(ctx, next, current.Version)
	if err != nil {
		if !errors.Is(err, repository.ErrStaleWrite) {
			return nil, apperrors.MapError(err)
		}
		if _, getErr := s.tickets.GetByID(ctx, ticketID); getErr != nil {
			return nil, notFoundOr(getErr, "ticket", ticketID)
		}
		return nil, apperrors.NewConflict("ticket was modified concurrently; refresh and retry", map[string]any{"ticket_id": ticketID})
	}

	actor := events.AdminActor(adminID)
	for _, change := range changes {
		s.recordChange(ctx, actor, ticketID, change, now)
	}
	return updated, nil
}

func (s *TicketService) recordChange(ctx context.Context, actor events.Actor, ticketID string, change domain.TicketChange, now time.Time) {
	var key string
	event := events.Event{TicketID: ticketID, Actor: actor, Timestamp: now}
	switch change.Type {
	case domain.ChangeTypeStatus:
		key = "status"
		event.Type = events.EventTicketStatusChanged
		event.Payload = events.TicketStatusChangedPayload{
			OldStatus: change.Old.(domain.TicketStatus),
			NewStatus: change.New.(domain.TicketStatus),
		}
	case domain.ChangeTypePriority:
		key = "priority"
		event.Type = events.EventTicketPriorityChanged
		event.Payload = events.TicketPriorityChangedPayload{
			OldPriority: change.Old.(domain.TicketPriority),
			NewPriority: change.New.(domain.TicketPriority),
		}
	case domain.ChangeTypeAssignee:
		key = "assigned_to"
		event.Type = events.EventTicketAssigned
		event.Payload = events.TicketAssignedPayload{
			PreviousAdminID: optionalString(change.Old),
			AssigneeAdminID: optionalString(change.New),
		}
	case domain.ChangeTypeResolution:
		key = "resolution"
	default:
		key = string(change.Type)
	}

	s.audit.record(ctx, actor, ticketID, change.Type,
		map[string]any{key: change.Old},
		map[string]any{key: change.New},
		now)
	if event.Type != "" {
		s.audit.publish(ctx, event)
	}
}

func optionalString(v any) *string {
	if s, ok := v.(string); ok {
		return &s
	}
	return nil
}

// ListTickets returns one page of tickets matching q. Customers are always scoped to their own tickets.
func (s *TicketService) ListTickets(ctx context.Context, actor events.Actor, q TicketQuery) (*TicketPage, error) {
	filter, err := s.buildFilter(actor, q)
	if err != nil {
		return nil, err
	}

	page := q.Page
	if page < 1 {
		page = 1
	}
	limit := q.Limit
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	filter.Limit = limit
	filter.Offset = (page - 1) * limit

	tickets, total, err := s.tickets.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return &TicketPage{
		Tickets: tickets,
		Pagination: Pagination{
			Total:      total,
			Page:       page,
			Limit:      limit,
			TotalPages: int(math.Ceil(float64(total) / float64(limit))),
		},
	}, nil
}

func (s *TicketService) buildFilter(actor events.Actor, q TicketQuery) (repository.TicketFilter, error) {
	var filter repository.TicketFilter
	invalid := map[string]any{}

	if v := strings.TrimSpace(q.Status); v != "" {
		status := domain.TicketStatus(v)
		if !status.Valid() {
			invalid["status"] = v
		}
		filter.Status = &status
	}
	if v := strings.TrimSpace(q.Priority); v != "" {
		priority := domain.TicketPriority(v)
		if !priority.Valid() {
			invalid["priority"] = v
		}
		filter.Priority = &priority
	}
	if v := strings.TrimSpace(q.Category); v != "" {
		category := domain.TicketCategory(v)
		if !category.Valid() {
			invalid["category"] = v
		}
		filter.Category = &category
	}
	switch v := strings.TrimSpace(q.AssignedTo); v {
	case "":
	case AssignedToUnassigned:
		filter.Unassigned = true
	case AssignedToMe:
		if actor.AdminID == nil {
			invalid["assigned_to"] = v
		} else {
			filter.AssignedTo = cloneString(actor.AdminID)
		}
	default:
		filter.AssignedTo = &v
	}
	if v := strings.TrimSpace(q.Search); v != "" {
		filter.SearchTerm = &v
	}
	if len(invalid) > 0 {
		return filter, apperrors.NewValidationError("invalid filter", invalid)
	}

	if actor.Type == domain.SubjectTypeCustomer {
		if actor.CustomerID == nil {
			return filter, apperrors.NewForbidden("customer required")
		}
		filter.CustomerID = cloneString(actor.CustomerID)
	}
	return filter, nil
}

// Stats builds the dashboard overview. Counts come from the store; the escalated
// counter and age buckets come from the evaluator over unresolved tickets.
func (s *TicketService) Stats(ctx context.Context) (*domain.TicketStats, error) {
	if s.statsCache != nil {
		cached, err := s.statsCache.Get(ctx)
		if err != nil {
			s.logger.Warn("stats cache read failed", zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	now := s.now()
	stats, err := s.tickets.Stats(ctx, now.Add(-s.recentWindow))
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	unresolved, err := s.tickets.ListUnresolved(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	stats.AgeBuckets = make(map[string]int, len(escalation.AgeBuckets))
	for _, bucket := range escalation.AgeBuckets {
		stats.AgeBuckets[bucket] = 0
	}
	for i := range unresolved {
		ticket := &unresolved[i]
		stats.AgeBuckets[escalation.AgeBucket(ticket.CreatedAt, now)]++
		if escalation.IsOverdue(ticket, now) {
			stats.Escalated++
		}
	}
	for _, category := range domain.TicketCategories {
		if _, ok := stats.ByCategory[category]; !ok {
			stats.ByCategory[category] = 0
		}
	}
	stats.GeneratedAt = now
	stats.RecentWindow = s.recentWindow

	if s.statsCache != nil {
		if err := s.statsCache.Set(ctx, stats); err != nil {
			s.logger.Warn("stats cache write failed", zap.Error(err))
		}
	}
	return stats, nil
}
