package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/spec-kit/crm-support/internal/domain"
	"github.com/spec-kit/crm-support/internal/events"
	"github.com/spec-kit/crm-support/internal/repository/memory"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, e events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, e)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) types() []events.EventType {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]events.EventType, 0, len(d.events))
	for _, e := range d.events {
		out = append(out, e.Type)
	}
	return out
}

const (
	adminB     = "admin-b"
	adminC     = "admin-c"
	customerID = "customer-1"
	otherCust  = "customer-2"
)

type testEnv struct {
	store      *memory.Store
	clock      *fakeClock
	dispatcher *recordingDispatcher
	tickets    *TicketService
	assign     *AssignmentService
	messages   *MessageService
	escalation *EscalationService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.NewStore()
	clock := &fakeClock{now: time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)}
	dispatcher := &recordingDispatcher{}

	store.AddAdmin(domain.Admin{ID: adminB, Username: "bella", Email: "bella@example.com", Role: domain.AdminRoleSupport, Active: true})
	store.AddAdmin(domain.Admin{ID: adminC, Username: "carl", Email: "carl@example.com", Role: domain.AdminRoleManager, Active: true})
	store.AddAdmin(domain.Admin{ID: "admin-off", Username: "olga", Email: "olga@example.com", Role: domain.AdminRoleSupport})
	store.AddCustomer(domain.Customer{ID: customerID, Name: "Dana", Email: "dana@example.com"})
	store.AddCustomer(domain.Customer{ID: otherCust, Name: "Eli", Email: "eli@example.com"})
	store.AddPurchase(domain.Purchase{ID: "purchase-1", CustomerID: customerID})
	store.AddPurchase(domain.Purchase{ID: "purchase-2", CustomerID: otherCust})

	return &testEnv{
		store:      store,
		clock:      clock,
		dispatcher: dispatcher,
		tickets: NewTicketService(TicketDependencies{
			TicketRepo:   store.Tickets(),
			HistoryRepo:  store.History(),
			CustomerRepo: store.Customers(),
			PurchaseRepo: store.Purchases(),
			AdminRepo:    store.Admins(),
			Dispatcher:   dispatcher,
			Clock:        clock.Now,
		}),
		assign: NewAssignmentService(AssignmentDependencies{
			TicketRepo:  store.Tickets(),
			AdminRepo:   store.Admins(),
			HistoryRepo: store.History(),
			Dispatcher:  dispatcher,
			Clock:       clock.Now,
		}),
		messages: NewMessageService(MessageDependencies{
			TicketRepo:  store.Tickets(),
			MessageRepo: store.Messages(),
			Dispatcher:  dispatcher,
			Clock:       clock.Now,
		}),
		escalation: NewEscalationService(EscalationDependencies{
			TicketRepo:  store.Tickets(),
			HistoryRepo: store.History(),
			Dispatcher:  dispatcher,
			Clock:       clock.Now,
		}),
	}
}

// seedTicket stores an open ticket created age ago.
func (e *testEnv) seedTicket(priority domain.TicketPriority, age time.Duration) *domain.Ticket {
	created := e.clock.Now().Add(-age)
	return e.store.PutTicket(domain.Ticket{
		CustomerID: customerID,
		Subject:    "Where is my parcel",
		Message:    "Order shows delivered but nothing arrived",
		Status:     domain.TicketStatusOpen,
		Priority:   priority,
		Category:   domain.TicketCategoryDelivery,
		CreatedAt:  created,
	})
}

func ptr[T any](v T) *T { return &v }
