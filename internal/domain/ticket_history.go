package domain

import "time"

// TicketChangeType captures what changed in a history entry.
type TicketChangeType string

const (
	ChangeTypeStatus     TicketChangeType = "status_change"
	ChangeTypePriority   TicketChangeType = "priority_change"
	ChangeTypeAssignee   TicketChangeType = "assignee_change"
	ChangeTypeResolution TicketChangeType = "resolution_change"
	ChangeTypeClaim      TicketChangeType = "claim"
	ChangeTypeTakeover   TicketChangeType = "takeover"
	ChangeTypeRelease    TicketChangeType = "release"
	ChangeTypeEscalation TicketChangeType = "escalation"
)

// TicketHistory is an immutable audit trail entry.
// ChangedByID is nil for system actions such as the escalation sweep.
type TicketHistory struct {
	ID            string
	TicketID      string
	ChangedByType SubjectType
	ChangedByID   *string
	ChangeType    TicketChangeType
	OldValue      map[string]any
	NewValue      map[string]any
	CreatedAt     time.Time
}
