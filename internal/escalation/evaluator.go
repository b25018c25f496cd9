// Package escalation holds the SLA rules used for read-time escalation flags and stats.
package escalation

import (
	"fmt"
	"time"

	"github.com/spec-kit/crm-support/internal/domain"
)

// NoResponseYet is reported by ResponseTimeBucket before the first admin reply.
const NoResponseYet = "no response yet"

var thresholds = map[domain.TicketPriority]time.Duration{
	domain.TicketPriorityUrgent: 2 * time.Hour,
	domain.TicketPriorityHigh:   8 * time.Hour,
	domain.TicketPriorityMedium: 24 * time.Hour,
	domain.TicketPriorityLow:    72 * time.Hour,
}

// Threshold returns the SLA window for a priority. Unknown priorities get the medium window.
func Threshold(priority domain.TicketPriority) time.Duration {
	if d, ok := thresholds[priority]; ok {
		return d
	}
	return thresholds[domain.TicketPriorityMedium]
}

// IsEscalated reports whether a ticket created at createdAt has outlived its SLA window at now.
// The comparison is strict: a ticket exactly at its threshold is not escalated.
func IsEscalated(priority domain.TicketPriority, createdAt, now time.Time) bool {
	return now.Sub(createdAt) > Threshold(priority)
}

// IsOverdue is the display flag for a ticket: escalated and not yet resolved or closed.
func IsOverdue(t *domain.Ticket, now time.Time) bool {
	if t == nil || t.Status.IsResolution() {
		return false
	}
	return IsEscalated(t.Priority, t.CreatedAt, now)
}

// Age bucket labels, ordered from youngest to oldest.
const (
	AgeUnder2h  = "<2h"
	Age2hTo8h   = "2h-8h"
	Age8hTo24h  = "8h-24h"
	Age24hTo72h = "24h-72h"
	AgeOver72h  = ">72h"
)

// AgeBuckets lists the bucket labels in display order.
var AgeBuckets = []string{AgeUnder2h, Age2hTo8h, Age8hTo24h, Age24hTo72h, AgeOver72h}

// AgeBucket places a ticket's age on the same boundaries as the SLA thresholds.
func AgeBucket(createdAt, now time.Time) string {
	age := now.Sub(createdAt)
	switch {
	case age <= 2*time.Hour:
		return AgeUnder2h
	case age <= 8*time.Hour:
		return Age2hTo8h
	case age <= 24*time.Hour:
		return Age8hTo24h
	case age <= 72*time.Hour:
		return Age24hTo72h
	default:
		return AgeOver72h
	}
}

// ResponseTimeBucket renders the delay between creation and the first admin reply,
// in whole hours below one day and whole days above.
func ResponseTimeBucket(t *domain.Ticket) string {
	if t == nil || t.FirstResponseAt == nil {
		return NoResponseYet
	}
	d := t.FirstResponseAt.Sub(t.CreatedAt)
	if d < 0 {
		d = 0
	}
	hours := int(d / time.Hour)
	if d < 24*time.Hour {
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	days := hours / 24
	if days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}

// Assessment is the read-time SLA view of one ticket. It is never persisted.
type Assessment struct {
	IsEscalated  bool
	IsOverdue    bool
	Threshold    time.Duration
	AgeBucket    string
	ResponseTime string
}

// Assess evaluates every read-time flag for t at now.
func Assess(t *domain.Ticket, now time.Time) Assessment {
	if t == nil {
		return Assessment{ResponseTime: NoResponseYet}
	}
	return Assessment{
		IsEscalated:  IsEscalated(t.Priority, t.CreatedAt, now),
		IsOverdue:    IsOverdue(t, now),
		Threshold:    Threshold(t.Priority),
		AgeBucket:    AgeBucket(t.CreatedAt, now),
		ResponseTime: ResponseTimeBucket(t),
	}
}

// NeedsMarker reports whether a sweep should stamp escalatedAt on t.
func NeedsMarker(t *domain.Ticket, now time.Time) bool {
	return t != nil && t.EscalatedAt == nil && IsOverdue(t, now)
}
