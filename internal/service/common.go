package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spec-kit/crm-support/internal/domain"
	"github.com/spec-kit/crm-support/internal/events"
	"github.com/spec-kit/crm-support/internal/repository"
	apperrors "github.com/spec-kit/crm-support/pkg/util"
)

// Clock returns the current time. Tests pin it; production uses UTC wall time.
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now().UTC()
}

func clockOrDefault(c Clock) Clock {
	if c == nil {
		return systemClock
	}
	return c
}

func loggerOrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

// notFoundOr translates repository.ErrNotFound into a NOT_FOUND DomainError for resource.
func notFoundOr(err error, resource, id string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound(resource, map[string]any{resource + "_id": id})
	}
	return apperrors.MapError(err)
}

// auditTrail appends history rows and publishes events for ticket mutations.
// Both happen after the ticket write has committed, so failures are logged and swallowed.
type auditTrail struct {
	history    repository.TicketHistoryRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

func (a auditTrail) record(ctx context.Context, actor events.Actor, ticketID string, change domain.TicketChangeType, oldValue, newValue map[string]any, at time.Time) {
	if a.history == nil {
		return
	}
	entry := &domain.TicketHistory{
		TicketID:      ticketID,
		ChangedByType: actor.Type,
		ChangedByID:   actor.ID(),
		ChangeType:    change,
		OldValue:      oldValue,
		NewValue:      newValue,
		CreatedAt:     at,
	}
	if err := a.history.Create(ctx, entry); err != nil {
		a.logger.Warn("ticket history write failed",
			zap.String("ticket_id", ticketID),
			zap.String("change_type", string(change)),
			zap.Error(err))
	}
}

func (a auditTrail) publish(ctx context.Context, event events.Event) {
	if a.dispatcher == nil {
		return
	}
	if err := a.dispatcher.Publish(ctx, event); err != nil {
		a.logger.Warn("event handler failed",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Error(err))
	}
}

// stringPreview trims body to at most limit bytes without splitting a rune.
func stringPreview(body string, limit int) string {
	body = strings.TrimSpace(body)
	if len(body) <= limit {
		return body
	}
	suffix := "..."
	if limit <= len(suffix) {
		suffix = ""
	}
	cut := limit - len(suffix)
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return body[:cut] + suffix
}

func derefOrNil(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

func trimURLs(urls []string) []string {
	if urls == nil {
		return nil
	}
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if u = strings.TrimSpace(u); u != "" {
			out = append(out, u)
		}
	}
	return out
}
