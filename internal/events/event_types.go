package events

import (
	"time"

	"github.com/spec-kit/crm-support/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated         EventType = "ticket_created"
	EventTicketStatusChanged   EventType = "ticket_status_changed"
	EventTicketPriorityChanged EventType = "ticket_priority_changed"
	EventTicketAssigned        EventType = "ticket_assigned"
	EventTicketClaimed         EventType = "ticket_claimed"
	EventTicketReleased        EventType = "ticket_released"
	EventTicketMessageAdded    EventType = "ticket_message_added"
	EventTicketEscalated       EventType = "ticket_escalated"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type       domain.SubjectType `json:"type"`
	AdminID    *string            `json:"admin_id,omitempty"`
	CustomerID *string            `json:"customer_id,omitempty"`
}

// AdminActor builds an Actor for an admin caller.
func AdminActor(adminID string) Actor {
	return Actor{Type: domain.SubjectTypeAdmin, AdminID: &adminID}
}

// CustomerActor builds an Actor for a customer caller.
func CustomerActor(customerID string) Actor {
	return Actor{Type: domain.SubjectTypeCustomer, CustomerID: &customerID}
}

// SystemActor is used by background jobs.
func SystemActor() Actor {
	return Actor{Type: domain.SubjectTypeSystem}
}

// ID returns the acting admin or customer id, or nil for the system.
func (a Actor) ID() *string {
	switch a.Type {
	case domain.SubjectTypeAdmin:
		return a.AdminID
	case domain.SubjectTypeCustomer:
		return a.CustomerID
	default:
		return nil
	}
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	TicketID  string    `json:"ticket_id"`
	Actor     Actor     `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	CustomerID string                `json:"customer_id"`
	Category   domain.TicketCategory `json:"category"`
	Priority   domain.TicketPriority `json:"priority"`
	Subject    string                `json:"subject"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketPriorityChangedPayload payload.
type TicketPriorityChangedPayload struct {
	OldPriority domain.TicketPriority `json:"old_priority"`
	NewPriority domain.TicketPriority `json:"new_priority"`
}

// TicketAssignedPayload is published for claims, takeovers, releases and direct reassignment.
type TicketAssignedPayload struct {
	PreviousAdminID *string `json:"previous_admin_id,omitempty"`
	AssigneeAdminID *string `json:"assignee_admin_id,omitempty"`
	Takeover        bool    `json:"takeover,omitempty"`
}

// TicketMessageAddedPayload payload.
type TicketMessageAddedPayload struct {
	MessageID   string            `json:"message_id"`
	SenderType  domain.SenderType `json:"sender_type"`
	SenderID    string            `json:"sender_id"`
	BodyPreview string            `json:"body_preview"`
}

// TicketEscalatedPayload payload.
type TicketEscalatedPayload struct {
	Priority    domain.TicketPriority `json:"priority"`
	EscalatedAt time.Time             `json:"escalated_at"`
	Age         string                `json:"age"`
}
