package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidArgument marks malformed patch or filter values.
var ErrInvalidArgument = errors.New("invalid argument")

// TicketPatch is a partial update applied by an admin.
// Reassign distinguishes "leave assignment alone" from "set AssignedTo (possibly nil)".
type TicketPatch struct {
	Status     *TicketStatus
	Priority   *TicketPriority
	Resolution *string
	Reassign   bool
	AssignedTo *string
}

// IsEmpty reports whether the patch changes nothing.
func (p TicketPatch) IsEmpty() bool {
	return p.Status == nil && p.Priority == nil && p.Resolution == nil && !p.Reassign
}

// Validate checks enum values and required fields.
func (p TicketPatch) Validate() error {
	if p.IsEmpty() {
		return fmt.Errorf("%w: patch has no fields", ErrInvalidArgument)
	}
	if p.Status != nil && !p.Status.Valid() {
		return fmt.Errorf("%w: status %q", ErrInvalidArgument, *p.Status)
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return fmt.Errorf("%w: priority %q", ErrInvalidArgument, *p.Priority)
	}
	if p.Reassign && p.AssignedTo != nil && strings.TrimSpace(*p.AssignedTo) == "" {
		return fmt.Errorf("%w: assigned_to must be an admin id or null", ErrInvalidArgument)
	}
	return nil
}

// TicketChange describes one field changed by Apply.
type TicketChange struct {
	Type TicketChangeType
	Old  any
	New  any
}

type statusEffect func(t *Ticket, from TicketStatus, now time.Time)

// statusEntryEffects lists side effects run when a ticket enters a status from a different one.
// Leaving resolved/closed clears nothing: ResolvedAt is kept as the last resolution marker.
var statusEntryEffects = map[TicketStatus][]statusEffect{
	TicketStatusOpen:       nil,
	TicketStatusInProgress: nil,
	TicketStatusResolved:   {stampResolvedAt},
	TicketStatusClosed:     {stampResolvedAt},
}

func stampResolvedAt(t *Ticket, _ TicketStatus, now time.Time) {
	ts := now
	t.ResolvedAt = &ts
}

// Apply mutates t according to patch, runs transition side effects and stamps
// LastActivityAt and UpdatedAt. The patch must already be validated.
func (t *Ticket) Apply(patch TicketPatch, now time.Time) []TicketChange {
	var changes []TicketChange

	if patch.Status != nil && *patch.Status != t.Status {
		from := t.Status
		t.Status = *patch.Status
		for _, effect := range statusEntryEffects[t.Status] {
			effect(t, from, now)
		}
		changes = append(changes, TicketChange{Type: ChangeTypeStatus, Old: from, New: t.Status})
	}
	if patch.Priority != nil && *patch.Priority != t.Priority {
		changes = append(changes, TicketChange{Type: ChangeTypePriority, Old: t.Priority, New: *patch.Priority})
		t.Priority = *patch.Priority
	}
	if patch.Resolution != nil {
		old := t.Resolution
		resolution := strings.TrimSpace(*patch.Resolution)
		if resolution == "" {
			t.Resolution = nil
		} else {
			t.Resolution = &resolution
		}
		if !equalStringPtr(old, t.Resolution) {
			changes = append(changes, TicketChange{Type: ChangeTypeResolution, Old: derefString(old), New: derefString(t.Resolution)})
		}
	}
	if patch.Reassign && !equalStringPtr(t.AssignedTo, patch.AssignedTo) {
		changes = append(changes, TicketChange{Type: ChangeTypeAssignee, Old: derefString(t.AssignedTo), New: derefString(patch.AssignedTo)})
		t.AssignedTo = cloneString(patch.AssignedTo)
	}

	t.LastActivityAt = now
	t.UpdatedAt = now
	return changes
}

func equalStringPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func derefString(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}
