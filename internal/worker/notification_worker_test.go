package worker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/crm-support/internal/config"
	"github.com/spec-kit/crm-support/internal/events"
	"github.com/spec-kit/crm-support/internal/service"
)

func TestStartNotificationWorker(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)
	dispatcher := events.NewInMemoryDispatcher()

	subscribed := StartNotificationWorker(service.NewNotificationService(dispatcher, logger, config.NotificationConfig{}), logger)
	assert.Contains(t, subscribed, events.EventTicketClaimed)
	assert.Contains(t, subscribed, events.EventTicketEscalated)
	assert.Equal(t, 1, logs.FilterMessage("ticket notifications subscribed").Len())

	require.NoError(t, dispatcher.Publish(context.Background(), events.Event{
		Type:     events.EventTicketEscalated,
		TicketID: "t-1",
	}))
	assert.Equal(t, 1, logs.FilterMessage("TicketEscalated").Len())
}

func TestStartNotificationWorker_Nil(t *testing.T) {
	assert.Nil(t, StartNotificationWorker(nil, zap.NewNop()))
}
