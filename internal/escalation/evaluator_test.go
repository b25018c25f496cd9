package escalation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/crm-support/internal/domain"
)

func TestIsEscalated_Thresholds(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		priority domain.TicketPriority
		age      time.Duration
		want     bool
	}{
		{domain.TicketPriorityUrgent, 3 * time.Hour, true},
		{domain.TicketPriorityUrgent, time.Hour, false},
		{domain.TicketPriorityUrgent, 2 * time.Hour, false},
		{domain.TicketPriorityHigh, 9 * time.Hour, true},
		{domain.TicketPriorityHigh, 8 * time.Hour, false},
		{domain.TicketPriorityMedium, 25 * time.Hour, true},
		{domain.TicketPriorityMedium, 23 * time.Hour, false},
		{domain.TicketPriorityLow, 73 * time.Hour, true},
		{domain.TicketPriorityLow, 48 * time.Hour, false},
	}
	for _, tc := range cases {
		got := IsEscalated(tc.priority, now.Add(-tc.age), now)
		assert.Equal(t, tc.want, got, "%s aged %s", tc.priority, tc.age)
	}
}

func TestThreshold_UnknownPriorityUsesMedium(t *testing.T) {
	assert.Equal(t, 24*time.Hour, Threshold(domain.TicketPriority("whatever")))
}

func TestIsOverdue_IgnoresResolvedTickets(t *testing.T) {
	now := time.Now()
	ticket := &domain.Ticket{Priority: domain.TicketPriorityUrgent, CreatedAt: now.Add(-5 * time.Hour), Status: domain.TicketStatusOpen}
	assert.True(t, IsOverdue(ticket, now))

	ticket.Status = domain.TicketStatusResolved
	assert.False(t, IsOverdue(ticket, now))
}

func TestAgeBucket(t *testing.T) {
	now := time.Now()
	assert.Equal(t, AgeUnder2h, AgeBucket(now.Add(-time.Hour), now))
	assert.Equal(t, Age2hTo8h, AgeBucket(now.Add(-5*time.Hour), now))
	assert.Equal(t, Age8hTo24h, AgeBucket(now.Add(-20*time.Hour), now))
	assert.Equal(t, Age24hTo72h, AgeBucket(now.Add(-50*time.Hour), now))
	assert.Equal(t, AgeOver72h, AgeBucket(now.Add(-100*time.Hour), now))
}

func TestResponseTimeBucket(t *testing.T) {
	created := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	ticket := &domain.Ticket{CreatedAt: created}
	assert.Equal(t, NoResponseYet, ResponseTimeBucket(ticket))

	at := func(d time.Duration) *time.Time { v := created.Add(d); return &v }

	ticket.FirstResponseAt = at(30 * time.Minute)
	assert.Equal(t, "0 hours", ResponseTimeBucket(ticket))
	ticket.FirstResponseAt = at(time.Hour + 10*time.Minute)
	assert.Equal(t, "1 hour", ResponseTimeBucket(ticket))
	ticket.FirstResponseAt = at(5 * time.Hour)
	assert.Equal(t, "5 hours", ResponseTimeBucket(ticket))
	ticket.FirstResponseAt = at(30 * time.Hour)
	assert.Equal(t, "1 day", ResponseTimeBucket(ticket))
	ticket.FirstResponseAt = at(80 * time.Hour)
	assert.Equal(t, "3 days", ResponseTimeBucket(ticket))
}

func TestAssess_AndNeedsMarker(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	ticket := &domain.Ticket{
		Status:    domain.TicketStatusOpen,
		Priority:  domain.TicketPriorityHigh,
		CreatedAt: now.Add(-9 * time.Hour),
	}

	a := Assess(ticket, now)
	assert.True(t, a.IsEscalated)
	assert.True(t, a.IsOverdue)
	assert.Equal(t, 8*time.Hour, a.Threshold)
	assert.Equal(t, Age8hTo24h, a.AgeBucket)
	assert.Equal(t, NoResponseYet, a.ResponseTime)
	assert.True(t, NeedsMarker(ticket, now))

	marked := now.Add(-time.Hour)
	ticket.EscalatedAt = &marked
	assert.False(t, NeedsMarker(ticket, now))
}
