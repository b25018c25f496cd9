// Package memory provides in-process implementations of the repository interfaces.
// It backs local runs without POSTGRES_DSN and the service and handler tests.
// A single mutex serializes every write, which gives the same single-winner
// guarantee as the conditional UPDATE statements in the Postgres repositories.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/crm-support/internal/domain"
	"github.com/spec-kit/crm-support/internal/repository"
)

// Store holds all rows.
type Store struct {
	mu        sync.RWMutex
	tickets   map[string]*domain.Ticket
	messages  map[string][]domain.TicketMessage
	history   map[string][]domain.TicketHistory
	admins    map[string]*domain.Admin
	customers map[string]*domain.Customer
	purchases map[string]*domain.Purchase
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		tickets:   map[string]*domain.Ticket{},
		messages:  map[string][]domain.TicketMessage{},
		history:   map[string][]domain.TicketHistory{},
		admins:    map[string]*domain.Admin{},
		customers: map[string]*domain.Customer{},
		purchases: map[string]*domain.Purchase{},
	}
}

// Tickets returns the ticket repository view.
func (s *Store) Tickets() repository.TicketRepository { return (*ticketRepo)(s) }

// Messages returns the message repository view.
func (s *Store) Messages() repository.TicketMessageRepository { return (*messageRepo)(s) }

// History returns the history repository view.
func (s *Store) History() repository.TicketHistoryRepository { return (*historyRepo)(s) }

// Admins returns the admin repository view.
func (s *Store) Admins() repository.AdminRepository { return (*adminRepo)(s) }

// Customers returns the customer repository view.
func (s *Store) Customers() repository.CustomerRepository { return (*customerRepo)(s) }

// Purchases returns the purchase repository view.
func (s *Store) Purchases() repository.PurchaseRepository { return (*purchaseRepo)(s) }

// AddAdmin seeds an admin account.
func (s *Store) AddAdmin(admin domain.Admin) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if admin.ID == "" {
		admin.ID = uuid.NewString()
	}
	s.admins[admin.ID] = &admin
}

// AddCustomer seeds a customer.
func (s *Store) AddCustomer(customer domain.Customer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if customer.ID == "" {
		customer.ID = uuid.NewString()
	}
	s.customers[customer.ID] = &customer
}

// AddPurchase seeds a purchase.
func (s *Store) AddPurchase(purchase domain.Purchase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if purchase.ID == "" {
		purchase.ID = uuid.NewString()
	}
	s.purchases[purchase.ID] = &purchase
}

// PutTicket stores a ticket as-is, keeping its timestamps. Used for fixtures.
func (s *Store) PutTicket(ticket domain.Ticket) *domain.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ticket.ID == "" {
		ticket.ID = uuid.NewString()
	}
	if ticket.LastActivityAt.IsZero() {
		ticket.LastActivityAt = ticket.CreatedAt
	}
	if ticket.UpdatedAt.IsZero() {
		ticket.UpdatedAt = ticket.CreatedAt
	}
	if ticket.Version == 0 {
		ticket.Version = 1
	}
	s.tickets[ticket.ID] = ticket.Clone()
	return ticket.Clone()
}

type ticketRepo Store

func (r *ticketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	ticket.ID = uuid.NewString()
	ticket.Version = 1
	ticket.UpdatedAt = ticket.CreatedAt
	ticket.LastActivityAt = ticket.CreatedAt
	s.tickets[ticket.ID] = ticket.Clone()
	return nil
}

func (r *ticketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()
	ticket, ok := s.tickets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return ticket.Clone(), nil
}

func (r *ticketRepo) List(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, int, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*domain.Ticket, 0, len(s.tickets))
	for _, ticket := range s.tickets {
		if matchesFilter(ticket, filter) {
			matched = append(matched, ticket)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := len(matched)
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	result := []domain.Ticket{}
	for i := offset; i < total && i < offset+limit; i++ {
		result = append(result, *matched[i].Clone())
	}
	return result, total, nil
}

func matchesFilter(ticket *domain.Ticket, filter repository.TicketFilter) bool {
	if filter.CustomerID != nil && ticket.CustomerID != *filter.CustomerID {
		return false
	}
	if filter.Status != nil && ticket.Status != *filter.Status {
		return false
	}
	if filter.Priority != nil && ticket.Priority != *filter.Priority {
		return false
	}
	if filter.Category != nil && ticket.Category != *filter.Category {
		return false
	}
	if filter.Unassigned && ticket.AssignedTo != nil {
		return false
	}
	if !filter.Unassigned && filter.AssignedTo != nil && !ticket.IsAssignedTo(*filter.AssignedTo) {
		return false
	}
	if filter.SearchTerm != nil {
		term := strings.ToLower(strings.TrimSpace(*filter.SearchTerm))
		if term != "" &&
			!strings.Contains(strings.ToLower(ticket.Subject), term) &&
			!strings.Contains(strings.ToLower(ticket.Message), term) {
			return false
		}
	}
	return true
}

func (r *ticketRepo) CompareAndSetAssignee(_ context.Context, id string, expected, next *string, at time.Time) (*domain.Ticket, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	ticket, ok := s.tickets[id]
	if !ok {
		return nil, repository.ErrStaleWrite
	}
	if !sameOwner(ticket.AssignedTo, expected) {
		return nil, repository.ErrStaleWrite
	}
	if next == nil {
		ticket.AssignedTo = nil
	} else {
		owner := *next
		ticket.AssignedTo = &owner
	}
	ticket.LastActivityAt = at
	ticket.UpdatedAt = at
	ticket.Version++
	return ticket.Clone(), nil
}

func sameOwner(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (r *ticketRepo) UpdateIfVersion(_ context.Context, ticket *domain.Ticket, expectedVersion int64) (*domain.Ticket, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.tickets[ticket.ID]
	if !ok || stored.Version != expectedVersion {
		return nil, repository.ErrStaleWrite
	}
	next := stored.Clone()
	patch := ticket.Clone()
	next.Status = patch.Status
	next.Priority = patch.Priority
	next.AssignedTo = patch.AssignedTo
	next.Resolution = patch.Resolution
	next.ResolvedAt = patch.ResolvedAt
	next.LastActivityAt = patch.LastActivityAt
	next.UpdatedAt = patch.UpdatedAt
	next.Version++
	s.tickets[ticket.ID] = next
	return next.Clone(), nil
}

func (r *ticketRepo) MarkEscalated(_ context.Context, id string, at time.Time) (*domain.Ticket, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	ticket, ok := s.tickets[id]
	if !ok || ticket.EscalatedAt != nil || ticket.Status.IsResolution() {
		return nil, repository.ErrStaleWrite
	}
	ts := at
	ticket.EscalatedAt = &ts
	ticket.UpdatedAt = at
	ticket.Version++
	return ticket.Clone(), nil
}

func (r *ticketRepo) ListUnresolved(_ context.Context) ([]domain.Ticket, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := []domain.Ticket{}
	for _, ticket := range s.tickets {
		if !ticket.Status.IsResolution() {
			result = append(result, *ticket.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (r *ticketRepo) Stats(_ context.Context, recentSince time.Time) (*domain.TicketStats, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := &domain.TicketStats{
		ByStatus:   map[domain.TicketStatus]int{},
		ByCategory: map[domain.TicketCategory]int{},
	}
	for _, status := range domain.TicketStatuses {
		stats.ByStatus[status] = 0
	}
	for _, ticket := range s.tickets {
		stats.Total++
		stats.ByStatus[ticket.Status]++
		stats.ByCategory[ticket.Category]++
		switch ticket.Priority {
		case domain.TicketPriorityUrgent:
			stats.Urgent++
		case domain.TicketPriorityHigh:
			stats.High++
		}
		if !ticket.CreatedAt.Before(recentSince) {
			stats.Recent++
		}
		if ticket.AssignedTo == nil && !ticket.Status.IsResolution() {
			stats.Unassigned++
		}
	}
	return stats, nil
}

type messageRepo Store

func (r *messageRepo) CreateWithActivity(_ context.Context, msg *domain.TicketMessage) (*domain.Ticket, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	ticket, ok := s.tickets[msg.TicketID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	ticket.LastActivityAt = msg.CreatedAt
	ticket.UpdatedAt = msg.CreatedAt
	if msg.SenderType == domain.SenderTypeAdmin && ticket.FirstResponseAt == nil {
		ts := msg.CreatedAt
		ticket.FirstResponseAt = &ts
	}
	ticket.Version++

	msg.ID = uuid.NewString()
	stored := *msg
	if msg.AttachmentURLs != nil {
		stored.AttachmentURLs = append([]string(nil), msg.AttachmentURLs...)
	}
	s.messages[msg.TicketID] = append(s.messages[msg.TicketID], stored)
	return ticket.Clone(), nil
}

func (r *messageRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketMessage, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := append([]domain.TicketMessage{}, s.messages[ticketID]...)
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

type historyRepo Store

func (r *historyRepo) Create(_ context.Context, entry *domain.TicketHistory) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.ID = uuid.NewString()
	s.history[entry.TicketID] = append(s.history[entry.TicketID], *entry)
	return nil
}

func (r *historyRepo) ListByTicket(_ context.Context, ticketID string, limit, offset int) ([]domain.TicketHistory, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.history[ticketID]
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	result := []domain.TicketHistory{}
	for i := offset; i < len(entries) && i < offset+limit; i++ {
		result = append(result, entries[i])
	}
	return result, nil
}

type adminRepo Store

func (r *adminRepo) GetByID(_ context.Context, id string) (*domain.Admin, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()
	admin, ok := s.admins[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *admin
	return &out, nil
}

func (r *adminRepo) GetByEmail(_ context.Context, email string) (*domain.Admin, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, admin := range s.admins {
		if strings.EqualFold(admin.Email, email) {
			out := *admin
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *adminRepo) List(_ context.Context, filter repository.AdminFilter) ([]domain.Admin, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := []domain.Admin{}
	for _, admin := range s.admins {
		if filter.Role != nil && admin.Role != *filter.Role {
			continue
		}
		if filter.Active != nil && admin.Active != *filter.Active {
			continue
		}
		result = append(result, *admin)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Username < result[j].Username })
	if filter.Offset >= len(result) {
		return []domain.Admin{}, nil
	}
	result = result[max(filter.Offset, 0):]
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}
	return result, nil
}

type customerRepo Store

func (r *customerRepo) GetByID(_ context.Context, id string) (*domain.Customer, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()
	customer, ok := s.customers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *customer
	return &out, nil
}

func (r *customerRepo) GetByEmail(_ context.Context, email string) (*domain.Customer, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, customer := range s.customers {
		if strings.EqualFold(customer.Email, email) {
			out := *customer
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

type purchaseRepo Store

func (r *purchaseRepo) GetByID(_ context.Context, id string) (*domain.Purchase, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()
	purchase, ok := s.purchases[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *purchase
	return &out, nil
}
