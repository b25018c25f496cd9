package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/crm-support/internal/domain"
	"github.com/spec-kit/crm-support/internal/events"
	"github.com/spec-kit/crm-support/internal/repository"
	apperrors "github.com/spec-kit/crm-support/pkg/util"
)

func TestSweep_MarksOverdueTicketsOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	overdue := env.seedTicket(domain.TicketPriorityUrgent, 3*time.Hour)
	fresh := env.seedTicket(domain.TicketPriorityUrgent, time.Hour)
	resolved := env.seedTicket(domain.TicketPriorityLow, 100*time.Hour)
	_, err := env.tickets.ApplyUpdate(ctx, adminB, resolved.ID, domain.TicketPatch{Status: ptr(domain.TicketStatusResolved)})
	require.NoError(t, err)

	marked, err := env.escalation.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, marked)

	stored, err := env.store.Tickets().GetByID(ctx, overdue.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.EscalatedAt)
	firstMark := *stored.EscalatedAt

	env.clock.Advance(2 * time.Hour)
	marked, err = env.escalation.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, marked, "only the ticket that newly crossed its threshold")

	stored, err = env.store.Tickets().GetByID(ctx, overdue.ID)
	require.NoError(t, err)
	assert.Equal(t, firstMark, *stored.EscalatedAt, "marker is never overwritten")

	stored, err = env.store.Tickets().GetByID(ctx, fresh.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.EscalatedAt)

	stored, err = env.store.Tickets().GetByID(ctx, resolved.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.EscalatedAt)

	history, err := env.tickets.ListHistory(ctx, overdue.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.SubjectTypeSystem, history[0].ChangedByType)
	assert.Nil(t, history[0].ChangedByID)
}

// resolveAfterListing resolves a ticket right after the sweep reads its candidates.
type resolveAfterListing struct {
	repository.TicketRepository
	resolve func()
}

func (r resolveAfterListing) ListUnresolved(ctx context.Context) ([]domain.Ticket, error) {
	tickets, err := r.TicketRepository.ListUnresolved(ctx)
	r.resolve()
	return tickets, err
}

func TestSweep_SkipsTicketResolvedMeanwhile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	overdue := env.seedTicket(domain.TicketPriorityUrgent, 3*time.Hour)

	sweeper := NewEscalationService(EscalationDependencies{
		TicketRepo: resolveAfterListing{
			TicketRepository: env.store.Tickets(),
			resolve: func() {
				_, err := env.tickets.ApplyUpdate(ctx, adminB, overdue.ID, domain.TicketPatch{Status: ptr(domain.TicketStatusResolved)})
				require.NoError(t, err)
			},
		},
		HistoryRepo: env.store.History(),
		Dispatcher:  env.dispatcher,
		Clock:       env.clock.Now,
	})

	marked, err := sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, marked)

	stored, err := env.store.Tickets().GetByID(ctx, overdue.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusResolved, stored.Status)
	assert.Nil(t, stored.EscalatedAt)
}

func TestAcknowledge(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	fresh := env.seedTicket(domain.TicketPriorityLow, time.Hour)
	overdue := env.seedTicket(domain.TicketPriorityHigh, 9*time.Hour)

	_, err := env.escalation.Acknowledge(ctx, adminB, fresh.ID)
	require.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = env.escalation.Acknowledge(ctx, adminB, "missing")
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	marked, err := env.escalation.Acknowledge(ctx, adminB, overdue.ID)
	require.NoError(t, err)
	require.NotNil(t, marked.EscalatedAt)
	at := *marked.EscalatedAt

	env.clock.Advance(time.Hour)
	again, err := env.escalation.Acknowledge(ctx, adminC, overdue.ID)
	require.NoError(t, err)
	assert.Equal(t, at, *again.EscalatedAt)

	assert.Equal(t, []events.EventType{events.EventTicketEscalated}, env.dispatcher.types())
}

func TestSweep_StopsOnCancelledContext(t *testing.T) {
	env := newTestEnv(t)
	env.seedTicket(domain.TicketPriorityUrgent, 3*time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	marked, err := env.escalation.Sweep(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, marked)
}
