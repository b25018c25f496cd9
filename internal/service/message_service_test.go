package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/crm-support/internal/domain"
	"github.com/spec-kit/crm-support/internal/escalation"
	"github.com/spec-kit/crm-support/internal/events"
	apperrors "github.com/spec-kit/crm-support/pkg/util"
)

func TestPostMessage_FirstResponseSetOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ticket := env.seedTicket(domain.TicketPriorityHigh, 3*time.Hour)

	env.clock.Advance(time.Minute)
	_, touched, err := env.messages.PostMessage(ctx, events.CustomerActor(customerID), ticket.ID, MessageInput{Message: "any update?"})
	require.NoError(t, err)
	assert.Nil(t, touched.FirstResponseAt, "customer messages never count as a response")
	assert.Equal(t, env.clock.Now(), touched.LastActivityAt)

	env.clock.Advance(time.Minute)
	firstReply := env.clock.Now()
	_, touched, err = env.messages.PostMessage(ctx, events.AdminActor(adminB), ticket.ID, MessageInput{Message: "Looking into it"})
	require.NoError(t, err)
	require.NotNil(t, touched.FirstResponseAt)
	assert.Equal(t, firstReply, *touched.FirstResponseAt)

	for i := 0; i < 3; i++ {
		env.clock.Advance(time.Hour)
		_, touched, err = env.messages.PostMessage(ctx, events.AdminActor(adminC), ticket.ID, MessageInput{Message: "follow-up"})
		require.NoError(t, err)
		assert.Equal(t, firstReply, *touched.FirstResponseAt)
		assert.Equal(t, env.clock.Now(), touched.LastActivityAt)
	}
	assert.Equal(t, "3 hours", escalation.ResponseTimeBucket(touched))

	thread, err := env.messages.GetMessages(ctx, events.CustomerActor(customerID), ticket.ID)
	require.NoError(t, err)
	require.Len(t, thread, 5)
	assert.Equal(t, domain.SenderTypeCustomer, thread[0].SenderType)
	assert.Equal(t, customerID, thread[0].SenderID)
	assert.Equal(t, domain.SenderTypeAdmin, thread[1].SenderType)
	for i := 1; i < len(thread); i++ {
		assert.False(t, thread[i].CreatedAt.Before(thread[i-1].CreatedAt))
	}
}

func TestPostMessage_ClosedTicketAcceptsMessages(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ticket := env.seedTicket(domain.TicketPriorityLow, time.Hour)
	_, err := env.tickets.ApplyUpdate(ctx, adminB, ticket.ID, domain.TicketPatch{Status: ptr(domain.TicketStatusClosed)})
	require.NoError(t, err)

	msg, touched, err := env.messages.PostMessage(ctx, events.CustomerActor(customerID), ticket.ID, MessageInput{
		Message:        "Still broken",
		AttachmentURLs: []string{"https://cdn.example.com/photo.jpg"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, []string{"https://cdn.example.com/photo.jpg"}, msg.AttachmentURLs)
	assert.Equal(t, domain.TicketStatusClosed, touched.Status)
	assert.Contains(t, env.dispatcher.types(), events.EventTicketMessageAdded)
}

func TestPostMessage_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ticket := env.seedTicket(domain.TicketPriorityLow, time.Hour)

	_, _, err := env.messages.PostMessage(ctx, events.AdminActor(adminB), ticket.ID, MessageInput{Message: "   "})
	require.ErrorIs(t, err, apperrors.ErrValidation)

	_, _, err = env.messages.PostMessage(ctx, events.AdminActor(adminB), "missing", MessageInput{Message: "hi"})
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	_, _, err = env.messages.PostMessage(ctx, events.CustomerActor(otherCust), ticket.ID, MessageInput{Message: "hi"})
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = env.messages.GetMessages(ctx, events.CustomerActor(otherCust), ticket.ID)
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	_, _, err = env.messages.PostMessage(ctx, events.SystemActor(), ticket.ID, MessageInput{Message: "hi"})
	require.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestGetMessages_EmptyThread(t *testing.T) {
	env := newTestEnv(t)
	ticket := env.seedTicket(domain.TicketPriorityLow, time.Hour)

	thread, err := env.messages.GetMessages(context.Background(), events.AdminActor(adminB), ticket.ID)
	require.NoError(t, err)
	assert.Empty(t, thread)
}
