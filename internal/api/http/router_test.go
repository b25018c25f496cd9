package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/crm-support/internal/api/dto"
	"github.com/spec-kit/crm-support/internal/api/http/handlers"
	"github.com/spec-kit/crm-support/internal/auth"
	"github.com/spec-kit/crm-support/internal/domain"
	"github.com/spec-kit/crm-support/internal/escalation"
	"github.com/spec-kit/crm-support/internal/events"
	"github.com/spec-kit/crm-support/internal/observability"
	"github.com/spec-kit/crm-support/internal/repository/memory"
	"github.com/spec-kit/crm-support/internal/service"
)

type errorEnvelope struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

type testServer struct {
	app    *fiber.App
	store  *memory.Store
	tokens *auth.TokenManager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := memory.NewStore()
	store.AddAdmin(domain.Admin{ID: "admin-b", Username: "bella", Email: "bella@example.com", Role: domain.AdminRoleSupport, Active: true})
	store.AddAdmin(domain.Admin{ID: "admin-c", Username: "carl", Email: "carl@example.com", Role: domain.AdminRoleManager, Active: true})
	store.AddCustomer(domain.Customer{ID: "customer-1", Name: "Dana", Email: "dana@example.com"})
	store.AddCustomer(domain.Customer{ID: "customer-2", Name: "Eli", Email: "eli@example.com"})

	dispatcher := events.NewInMemoryDispatcher()
	tokens := auth.NewTokenManager("test-secret", 15)
	tickets := service.NewTicketService(service.TicketDependencies{
		TicketRepo:   store.Tickets(),
		HistoryRepo:  store.History(),
		CustomerRepo: store.Customers(),
		PurchaseRepo: store.Purchases(),
		AdminRepo:    store.Admins(),
		Dispatcher:   dispatcher,
	})
	messages := service.NewMessageService(service.MessageDependencies{
		TicketRepo:  store.Tickets(),
		MessageRepo: store.Messages(),
		Dispatcher:  dispatcher,
	})

	metrics := observability.NewMetrics()
	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), metrics, time.Second)
	RegisterRoutes(app, RouteConfig{
		Health: handlers.NewHealthHandler("crm-support", "test", nil, metrics),
		Auth: handlers.NewAuthHandler(service.NewAuthService(service.AuthDependencies{
			AdminRepo:    store.Admins(),
			CustomerRepo: store.Customers(),
			TokenManager: tokens,
		})),
		Tickets: handlers.NewTicketsHandler(tickets, messages),
		AdminTickets: handlers.NewAdminTicketsHandler(handlers.AdminTicketsDependencies{
			Tickets: tickets,
			Assignments: service.NewAssignmentService(service.AssignmentDependencies{
				TicketRepo:  store.Tickets(),
				AdminRepo:   store.Admins(),
				HistoryRepo: store.History(),
				Dispatcher:  dispatcher,
			}),
			Messages: messages,
			Escalations: service.NewEscalationService(service.EscalationDependencies{
				TicketRepo:  store.Tickets(),
				HistoryRepo: store.History(),
				Dispatcher:  dispatcher,
			}),
		}),
		Admins:         handlers.NewAdminsHandler(service.NewAdminDirectoryService(store.Admins())),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, store.Admins(), store.Customers()),
	})
	return &testServer{app: app, store: store, tokens: tokens}
}

func (s *testServer) adminToken(t *testing.T, id string) string {
	t.Helper()
	role := domain.AdminRoleSupport
	_, signed, err := s.tokens.GenerateToken(id, domain.SubjectTypeAdmin, &role)
	require.NoError(t, err)
	return signed
}

func (s *testServer) customerToken(t *testing.T, id string) string {
	t.Helper()
	_, signed, err := s.tokens.GenerateToken(id, domain.SubjectTypeCustomer, nil)
	require.NoError(t, err)
	return signed
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, raw
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	return out
}

func (s *testServer) seedTicket(priority domain.TicketPriority, age time.Duration) *domain.Ticket {
	created := time.Now().UTC().Add(-age)
	return s.store.PutTicket(domain.Ticket{
		CustomerID: "customer-1",
		Subject:    "Parcel missing",
		Message:    "Tracking says delivered",
		Status:     domain.TicketStatusOpen,
		Priority:   priority,
		Category:   domain.TicketCategoryDelivery,
		CreatedAt:  created,
	})
}

func TestClaimAndReleaseOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	ticket := srv.seedTicket(domain.TicketPriorityHigh, 9*time.Hour)
	base := "/api/admin/tickets/" + ticket.ID
	bella := srv.adminToken(t, "admin-b")
	carl := srv.adminToken(t, "admin-c")

	status, raw := srv.do(t, fiber.MethodPost, base+"/claim", bella, nil)
	require.Equal(t, fiber.StatusOK, status, string(raw))
	claimed := decode[dto.OwnershipResponse](t, raw)
	require.True(t, claimed.Success)
	require.NotNil(t, claimed.Ticket)
	assert.Equal(t, "admin-b", *claimed.Ticket.AssignedTo)
	assert.True(t, claimed.Ticket.IsEscalated)

	status, raw = srv.do(t, fiber.MethodPost, base+"/claim", carl, dto.ClaimTicketRequest{})
	require.Equal(t, fiber.StatusConflict, status)
	refused := decode[dto.OwnershipResponse](t, raw)
	assert.False(t, refused.Success)
	assert.Equal(t, "ALREADY_CLAIMED", refused.Code)
	assert.Contains(t, refused.Message, "bella")
	require.NotNil(t, refused.CurrentOwner)
	require.NotNil(t, refused.CurrentOwner.ID)
	assert.Equal(t, "admin-b", *refused.CurrentOwner.ID)
	assert.Equal(t, "bella", refused.CurrentOwner.Username)

	status, raw = srv.do(t, fiber.MethodPost, base+"/claim", carl, dto.ClaimTicketRequest{AllowReclaim: true})
	require.Equal(t, fiber.StatusOK, status, string(raw))
	takeover := decode[dto.OwnershipResponse](t, raw)
	assert.Equal(t, "admin-c", *takeover.Ticket.AssignedTo)

	status, raw = srv.do(t, fiber.MethodPost, base+"/release", bella, nil)
	require.Equal(t, fiber.StatusConflict, status)
	notOwner := decode[dto.OwnershipResponse](t, raw)
	assert.False(t, notOwner.Success)
	assert.Equal(t, "NOT_OWNER", notOwner.Code)
	assert.Equal(t, "admin-c", *notOwner.CurrentOwner.ID)

	status, raw = srv.do(t, fiber.MethodPost, base+"/release", carl, nil)
	require.Equal(t, fiber.StatusOK, status, string(raw))
	released := decode[dto.OwnershipResponse](t, raw)
	assert.Nil(t, released.Ticket.AssignedTo)
}

func TestClaimUnknownTicketIsNotFound(t *testing.T) {
	srv := newTestServer(t)
	status, raw := srv.do(t, fiber.MethodPost, "/api/admin/tickets/missing/claim", srv.adminToken(t, "admin-b"), nil)
	require.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", decode[errorEnvelope](t, raw).Error.Code)
}

func TestCustomerTicketFlow(t *testing.T) {
	srv := newTestServer(t)
	dana := srv.customerToken(t, "customer-1")

	status, raw := srv.do(t, fiber.MethodPost, "/api/customer/tickets", dana, dto.CreateTicketRequest{
		Subject: "Refund please",
		Message: "The blender arrived broken",
	})
	require.Equal(t, fiber.StatusCreated, status, string(raw))
	created := decode[struct {
		Data dto.TicketResponse `json:"data"`
	}](t, raw).Data
	assert.Equal(t, domain.TicketStatusOpen, created.Status)
	assert.Equal(t, domain.TicketPriorityMedium, created.Priority)
	assert.Equal(t, domain.TicketCategoryGeneral, created.Category)
	assert.Equal(t, escalation.NoResponseYet, created.ResponseTime)

	status, raw = srv.do(t, fiber.MethodPost, "/api/customer/tickets/"+created.ID+"/messages", dana, dto.CreateMessageRequest{Message: "Any news?"})
	require.Equal(t, fiber.StatusCreated, status, string(raw))

	status, raw = srv.do(t, fiber.MethodGet, "/api/customer/tickets?limit=5", dana, nil)
	require.Equal(t, fiber.StatusOK, status, string(raw))
	list := decode[dto.TicketListResponse](t, raw)
	require.Len(t, list.Tickets, 1)
	assert.Equal(t, 1, list.Pagination.Total)
	assert.Equal(t, 5, list.Pagination.Limit)
	assert.Equal(t, 1, list.Pagination.TotalPages)

	eli := srv.customerToken(t, "customer-2")
	status, raw = srv.do(t, fiber.MethodGet, "/api/customer/tickets/"+created.ID, eli, nil)
	require.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", decode[errorEnvelope](t, raw).Error.Code)
}

func TestCreateTicketRejectsUnknownCategory(t *testing.T) {
	srv := newTestServer(t)
	status, raw := srv.do(t, fiber.MethodPost, "/api/customer/tickets", srv.customerToken(t, "customer-1"), dto.CreateTicketRequest{
		Subject:  "Hi",
		Message:  "Hello",
		Category: domain.TicketCategory("Delivery"),
	})
	require.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", decode[errorEnvelope](t, raw).Error.Code)
}

func TestPatchDistinguishesNullFromOmitted(t *testing.T) {
	srv := newTestServer(t)
	ticket := srv.seedTicket(domain.TicketPriorityLow, time.Hour)
	path := "/api/admin/tickets/" + ticket.ID
	token := srv.adminToken(t, "admin-b")

	status, raw := srv.do(t, fiber.MethodPatch, path, token, map[string]any{"assigned_to": "admin-c"})
	require.Equal(t, fiber.StatusOK, status, string(raw))

	status, raw = srv.do(t, fiber.MethodPatch, path, token, map[string]any{"priority": "urgent"})
	require.Equal(t, fiber.StatusOK, status, string(raw))
	kept := decode[struct {
		Data dto.TicketResponse `json:"data"`
	}](t, raw).Data
	require.NotNil(t, kept.AssignedTo)
	assert.Equal(t, "admin-c", *kept.AssignedTo)
	assert.Equal(t, domain.TicketPriorityUrgent, kept.Priority)

	status, raw = srv.do(t, fiber.MethodPatch, path, token, map[string]any{"assigned_to": nil})
	require.Equal(t, fiber.StatusOK, status, string(raw))
	cleared := decode[struct {
		Data dto.TicketResponse `json:"data"`
	}](t, raw).Data
	assert.Nil(t, cleared.AssignedTo)

	status, raw = srv.do(t, fiber.MethodPatch, path, token, map[string]any{"status": "Open"})
	require.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", decode[errorEnvelope](t, raw).Error.Code)
}

func TestAdminDetailIncludesHistory(t *testing.T) {
	srv := newTestServer(t)
	ticket := srv.seedTicket(domain.TicketPriorityMedium, time.Hour)
	token := srv.adminToken(t, "admin-b")

	status, _ := srv.do(t, fiber.MethodPost, "/api/admin/tickets/"+ticket.ID+"/claim", token, nil)
	require.Equal(t, fiber.StatusOK, status)
	status, _ = srv.do(t, fiber.MethodPost, "/api/admin/tickets/"+ticket.ID+"/messages", token, dto.CreateMessageRequest{Message: "Looking into it"})
	require.Equal(t, fiber.StatusCreated, status)

	status, raw := srv.do(t, fiber.MethodGet, "/api/admin/tickets/"+ticket.ID, token, nil)
	require.Equal(t, fiber.StatusOK, status, string(raw))
	detail := decode[struct {
		Data dto.TicketDetailResponse `json:"data"`
	}](t, raw).Data
	assert.NotNil(t, detail.Ticket.FirstResponseAt)
	require.Len(t, detail.Messages, 1)
	assert.Equal(t, domain.SenderTypeAdmin, detail.Messages[0].SenderType)
	require.Len(t, detail.History, 1)
	assert.Equal(t, domain.ChangeTypeClaim, detail.History[0].ChangeType)
}

func TestStatsRouteIsNotATicketID(t *testing.T) {
	srv := newTestServer(t)
	srv.seedTicket(domain.TicketPriorityUrgent, 3*time.Hour)
	srv.seedTicket(domain.TicketPriorityLow, time.Hour)

	status, raw := srv.do(t, fiber.MethodGet, "/api/admin/tickets/stats", srv.adminToken(t, "admin-b"), nil)
	require.Equal(t, fiber.StatusOK, status, string(raw))
	stats := decode[struct {
		Data dto.TicketStatsResponse `json:"data"`
	}](t, raw).Data
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Urgent)
	assert.Equal(t, 1, stats.Escalated)
	assert.Equal(t, 2, stats.Unassigned)
	assert.Equal(t, 0, stats.ByCategory[domain.TicketCategoryRefund])
}

func TestAuthGuards(t *testing.T) {
	srv := newTestServer(t)

	status, raw := srv.do(t, fiber.MethodGet, "/api/admin/tickets", "", nil)
	require.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", decode[errorEnvelope](t, raw).Error.Code)

	status, raw = srv.do(t, fiber.MethodGet, "/api/admin/tickets", srv.customerToken(t, "customer-1"), nil)
	require.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", decode[errorEnvelope](t, raw).Error.Code)

	status, _ = srv.do(t, fiber.MethodGet, "/api/customer/tickets", srv.adminToken(t, "admin-b"), nil)
	require.Equal(t, fiber.StatusForbidden, status)
}

func TestListRejectsUnknownFilter(t *testing.T) {
	srv := newTestServer(t)
	status, raw := srv.do(t, fiber.MethodGet, "/api/admin/tickets?status=pending", srv.adminToken(t, "admin-b"), nil)
	require.Equal(t, fiber.StatusBadRequest, status)
	env := decode[errorEnvelope](t, raw)
	assert.Equal(t, "VALIDATION_FAILED", env.Error.Code)
	assert.Equal(t, "pending", env.Error.Details["status"])
}

func TestHealthAndUnknownRoute(t *testing.T) {
	srv := newTestServer(t)

	status, raw := srv.do(t, fiber.MethodGet, "/health/ready", "", nil)
	require.Equal(t, fiber.StatusOK, status, string(raw))

	status, raw = srv.do(t, fiber.MethodGet, "/nope", "", nil)
	require.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", decode[errorEnvelope](t, raw).Error.Code)

	status, raw = srv.do(t, fiber.MethodGet, "/health/metrics", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	body := decode[struct {
		Metrics observability.Snapshot `json:"metrics"`
	}](t, raw)
	assert.Equal(t, int64(1), body.Metrics.Requests["/health/ready|GET|200"])
}
