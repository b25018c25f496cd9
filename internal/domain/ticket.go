package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)

// TicketStatuses lists every valid status.
var TicketStatuses = []TicketStatus{
	TicketStatusOpen,
	TicketStatusInProgress,
	TicketStatusResolved,
	TicketStatusClosed,
}

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	for _, candidate := range TicketStatuses {
		if s == candidate {
			return true
		}
	}
	return false
}

// IsResolution reports whether s marks the ticket as handled (resolved or closed).
func (s TicketStatus) IsResolution() bool {
	return s == TicketStatusResolved || s == TicketStatusClosed
}

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityUrgent TicketPriority = "urgent"
)

// TicketPriorities lists every valid priority.
var TicketPriorities = []TicketPriority{
	TicketPriorityLow,
	TicketPriorityMedium,
	TicketPriorityHigh,
	TicketPriorityUrgent,
}

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	for _, candidate := range TicketPriorities {
		if p == candidate {
			return true
		}
	}
	return false
}

// TicketCategory classifies what the customer needs help with.
type TicketCategory string

const (
	TicketCategoryDelivery       TicketCategory = "delivery"
	TicketCategoryProductQuality TicketCategory = "product_quality"
	TicketCategoryPayment        TicketCategory = "payment"
	TicketCategoryGeneral        TicketCategory = "general"
	TicketCategoryRefund         TicketCategory = "refund"
	TicketCategoryExchange       TicketCategory = "exchange"
)

// TicketCategories lists every valid category.
var TicketCategories = []TicketCategory{
	TicketCategoryDelivery,
	TicketCategoryProductQuality,
	TicketCategoryPayment,
	TicketCategoryGeneral,
	TicketCategoryRefund,
	TicketCategoryExchange,
}

// Valid reports whether c is a known category.
func (c TicketCategory) Valid() bool {
	for _, candidate := range TicketCategories {
		if c == candidate {
			return true
		}
	}
	return false
}

// Ticket is the aggregate for customer support requests.
type Ticket struct {
	ID             string
	CustomerID     string
	PurchaseID     *string
	Subject        string
	Message        string
	Resolution     *string
	AttachmentURLs []string
	Status         TicketStatus
	Priority       TicketPriority
	Category       TicketCategory
	AssignedTo     *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	// FirstResponseAt is set once, by the first admin-authored message.
	FirstResponseAt *time.Time
	LastActivityAt  time.Time
	// EscalatedAt is the persisted escalation marker, written at most once.
	EscalatedAt *time.Time
	ResolvedAt  *time.Time
	// Version increments on every stored write and backs optimistic updates.
	Version int64
}

// IsAssignedTo reports whether adminID currently owns the ticket.
func (t *Ticket) IsAssignedTo(adminID string) bool {
	return t.AssignedTo != nil && *t.AssignedTo == adminID
}

// Clone returns a deep copy so callers can mutate without aliasing stored state.
func (t *Ticket) Clone() *Ticket {
	if t == nil {
		return nil
	}
	out := *t
	out.PurchaseID = cloneString(t.PurchaseID)
	out.Resolution = cloneString(t.Resolution)
	out.AssignedTo = cloneString(t.AssignedTo)
	out.FirstResponseAt = cloneTime(t.FirstResponseAt)
	out.EscalatedAt = cloneTime(t.EscalatedAt)
	out.ResolvedAt = cloneTime(t.ResolvedAt)
	if t.AttachmentURLs != nil {
		out.AttachmentURLs = append([]string(nil), t.AttachmentURLs...)
	}
	return &out
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	s := *v
	return &s
}

func cloneTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	t := *v
	return &t
}
