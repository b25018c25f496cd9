package dto

import (
	"encoding/json"
	"time"

	"github.com/spec-kit/crm-support/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	PurchaseID     *string               `json:"purchase_id"`
	Subject        string                `json:"subject" validate:"required,max=200"`
	Message        string                `json:"message" validate:"required,max=10000"`
	Category       domain.TicketCategory `json:"category"`
	Priority       domain.TicketPriority `json:"priority"`
	AttachmentURLs []string              `json:"attachment_urls" validate:"omitempty,max=10,dive,url"`
}

// NullableString tells an omitted field apart from an explicit null.
type NullableString struct {
	Set   bool
	Value *string
}

// UnmarshalJSON is only invoked for keys present in the payload, null included.
func (n *NullableString) UnmarshalJSON(data []byte) error {
	n.Set = true
	if string(data) == "null" {
		n.Value = nil
		return nil
	}
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	n.Value = &v
	return nil
}

// UpdateTicketRequest is the admin PATCH payload; every field is optional.
type UpdateTicketRequest struct {
	Status     *domain.TicketStatus   `json:"status"`
	Priority   *domain.TicketPriority `json:"priority"`
	AssignedTo NullableString         `json:"assigned_to"`
	Resolution *string                `json:"resolution" validate:"omitempty,max=5000"`
}

// ToPatch converts the payload into a domain patch.
func (r UpdateTicketRequest) ToPatch() domain.TicketPatch {
	return domain.TicketPatch{
		Status:     r.Status,
		Priority:   r.Priority,
		Resolution: r.Resolution,
		Reassign:   r.AssignedTo.Set,
		AssignedTo: r.AssignedTo.Value,
	}
}

// ClaimTicketRequest payload. AllowReclaim confirms a takeover from another admin.
type ClaimTicketRequest struct {
	AllowReclaim bool `json:"allow_reclaim"`
}

// CreateMessageRequest payload.
type CreateMessageRequest struct {
	Message        string   `json:"message" validate:"required,max=10000"`
	AttachmentURLs []string `json:"attachment_urls" validate:"omitempty,max=10,dive,url"`
}

// TicketResponse is the ticket representation shared by both surfaces,
// including the flags computed at read time.
type TicketResponse struct {
	ID              string                `json:"id"`
	CustomerID      string                `json:"customer_id"`
	PurchaseID      *string               `json:"purchase_id"`
	Subject         string                `json:"subject"`
	Message         string                `json:"message"`
	Resolution      *string               `json:"resolution"`
	AttachmentURLs  []string              `json:"attachment_urls"`
	Status          domain.TicketStatus   `json:"status"`
	Priority        domain.TicketPriority `json:"priority"`
	Category        domain.TicketCategory `json:"category"`
	AssignedTo      *string               `json:"assigned_to"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
	FirstResponseAt *time.Time            `json:"first_response_at"`
	LastActivityAt  time.Time             `json:"last_activity_at"`
	EscalatedAt     *time.Time            `json:"escalated_at"`
	ResolvedAt      *time.Time            `json:"resolved_at"`
	Version         int64                 `json:"version"`
	IsEscalated     bool                  `json:"is_escalated"`
	IsOverdue       bool                  `json:"is_overdue"`
	ResponseTime    string                `json:"response_time"`
	AgeBucket       string                `json:"age_bucket"`
}

// TicketDetailResponse bundles a ticket with its thread and audit trail.
type TicketDetailResponse struct {
	Ticket   TicketResponse          `json:"ticket"`
	Messages []TicketMessageResponse `json:"messages"`
	History  []TicketHistoryResponse `json:"history"`
}

// TicketMessageResponse returns ticket message data.
type TicketMessageResponse struct {
	ID             string            `json:"id"`
	TicketID       string            `json:"ticket_id"`
	SenderType     domain.SenderType `json:"sender_type"`
	SenderID       string            `json:"sender_id"`
	Message        string            `json:"message"`
	AttachmentURLs []string          `json:"attachment_urls"`
	CreatedAt      time.Time         `json:"created_at"`
}

// TicketHistoryResponse returns audit entries.
type TicketHistoryResponse struct {
	ID            string                  `json:"id"`
	ChangeType    domain.TicketChangeType `json:"change_type"`
	ChangedByType domain.SubjectType      `json:"changed_by_type"`
	ChangedByID   *string                 `json:"changed_by_id"`
	OldValue      map[string]any          `json:"old_value"`
	NewValue      map[string]any          `json:"new_value"`
	CreatedAt     time.Time               `json:"created_at"`
}

// PaginationResponse describes an offset page.
type PaginationResponse struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"total_pages"`
}

// TicketListResponse is one page of tickets.
type TicketListResponse struct {
	Tickets    []TicketResponse   `json:"tickets"`
	Pagination PaginationResponse `json:"pagination"`
}

// OwnerRef identifies the admin currently holding a ticket.
type OwnerRef struct {
	ID       *string `json:"id"`
	Username string  `json:"username,omitempty"`
}

// OwnershipResponse wraps claim/release results. Failures are expected
// outcomes and carry the current owner so the UI can offer a takeover.
type OwnershipResponse struct {
	Success      bool            `json:"success"`
	Code         string          `json:"code,omitempty"`
	Message      string          `json:"message,omitempty"`
	CurrentOwner *OwnerRef       `json:"current_owner,omitempty"`
	Ticket       *TicketResponse `json:"ticket,omitempty"`
}

// TicketStatsResponse is the dashboard overview.
type TicketStatsResponse struct {
	Total       int                           `json:"total"`
	ByStatus    map[domain.TicketStatus]int   `json:"by_status"`
	Urgent      int                           `json:"urgent"`
	High        int                           `json:"high"`
	ByCategory  map[domain.TicketCategory]int `json:"by_category"`
	Recent      int                           `json:"recent"`
	Escalated   int                           `json:"escalated"`
	Unassigned  int                           `json:"unassigned"`
	AgeBuckets  map[string]int                `json:"age_buckets"`
	GeneratedAt time.Time                     `json:"generated_at"`
}
