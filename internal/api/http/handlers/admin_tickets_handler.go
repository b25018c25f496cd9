package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/crm-support/internal/api/dto"
	"github.com/spec-kit/crm-support/internal/domain"
	"github.com/spec-kit/crm-support/internal/service"
	apperrors "github.com/spec-kit/crm-support/pkg/util"
)

const detailHistoryLimit = 100

// AdminTicketsHandler handles the back-office ticket queue.
type AdminTicketsHandler struct {
	tickets     *service.TicketService
	assignments *service.AssignmentService
	messages    *service.MessageService
	escalations *service.EscalationService
}

// AdminTicketsDependencies bundles the services behind the admin surface.
type AdminTicketsDependencies struct {
	Tickets     *service.TicketService
	Assignments *service.AssignmentService
	Messages    *service.MessageService
	Escalations *service.EscalationService
}

// NewAdminTicketsHandler constructs handler.
func NewAdminTicketsHandler(deps AdminTicketsDependencies) *AdminTicketsHandler {
	return &AdminTicketsHandler{
		tickets:     deps.Tickets,
		assignments: deps.Assignments,
		messages:    deps.Messages,
		escalations: deps.Escalations,
	}
}

// ListTickets GET /api/admin/tickets.
func (h *AdminTicketsHandler) ListTickets(c *fiber.Ctx) error {
	admin, err := adminPrincipal(c)
	if err != nil {
		return err
	}
	page, err := h.tickets.ListTickets(c.UserContext(), adminActor(admin), parseTicketQuery(c))
	if err != nil {
		return err
	}
	return c.JSON(ticketListResponse(h.tickets, page))
}

// Stats GET /api/admin/tickets/stats.
func (h *AdminTicketsHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.tickets.Stats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": statsResponse(stats)})
}

// GetTicket GET /api/admin/tickets/:id.
func (h *AdminTicketsHandler) GetTicket(c *fiber.Ctx) error {
	admin, err := adminPrincipal(c)
	if err != nil {
		return err
	}
	ctx := c.UserContext()
	id := c.Params("id")
	ticket, err := h.tickets.GetTicket(ctx, adminActor(admin), id)
	if err != nil {
		return err
	}
	messages, err := h.messages.GetMessages(ctx, adminActor(admin), id)
	if err != nil {
		return err
	}
	history, err := h.tickets.ListHistory(ctx, id, detailHistoryLimit, 0)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TicketDetailResponse{
		Ticket:   ticketResponse(ticket, h.tickets.Assess(ticket)),
		Messages: ticketMessageResponses(messages),
		History:  historyResponses(history),
	}})
}

// UpdateTicket PATCH /api/admin/tickets/:id.
func (h *AdminTicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	admin, err := adminPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.UpdateTicketRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	ticket, err := h.tickets.ApplyUpdate(c.UserContext(), admin.ID, c.Params("id"), req.ToPatch())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket, h.tickets.Assess(ticket))})
}

// ClaimTicket POST /api/admin/tickets/:id/claim. An empty body claims without takeover.
func (h *AdminTicketsHandler) ClaimTicket(c *fiber.Ctx) error {
	admin, err := adminPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.ClaimTicketRequest
	if len(c.Body()) > 0 {
		if err := bindJSON(c, &req); err != nil {
			return err
		}
	}
	ticket, err := h.assignments.Claim(c.UserContext(), admin.ID, c.Params("id"), req.AllowReclaim)
	return h.ownershipResult(c, ticket, err)
}

// ReleaseTicket POST /api/admin/tickets/:id/release.
func (h *AdminTicketsHandler) ReleaseTicket(c *fiber.Ctx) error {
	admin, err := adminPrincipal(c)
	if err != nil {
		return err
	}
	ticket, err := h.assignments.Release(c.UserContext(), admin.ID, c.Params("id"))
	return h.ownershipResult(c, ticket, err)
}

func (h *AdminTicketsHandler) ownershipResult(c *fiber.Ctx, ticket *domain.Ticket, err error) error {
	if err != nil {
		if apperrors.IsBusinessOutcome(err) {
			return ownershipFailure(c, err)
		}
		return err
	}
	resp := ticketResponse(ticket, h.tickets.Assess(ticket))
	return c.JSON(dto.OwnershipResponse{Success: true, Ticket: &resp})
}

// EscalateTicket POST /api/admin/tickets/:id/escalate.
func (h *AdminTicketsHandler) EscalateTicket(c *fiber.Ctx) error {
	admin, err := adminPrincipal(c)
	if err != nil {
		return err
	}
	ticket, err := h.escalations.Acknowledge(c.UserContext(), admin.ID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket, h.tickets.Assess(ticket))})
}

// ListMessages GET /api/admin/tickets/:id/messages.
func (h *AdminTicketsHandler) ListMessages(c *fiber.Ctx) error {
	admin, err := adminPrincipal(c)
	if err != nil {
		return err
	}
	messages, err := h.messages.GetMessages(c.UserContext(), adminActor(admin), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketMessageResponses(messages)})
}

// AddMessage POST /api/admin/tickets/:id/messages.
func (h *AdminTicketsHandler) AddMessage(c *fiber.Ctx) error {
	admin, err := adminPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CreateMessageRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	msg, _, err := h.messages.PostMessage(c.UserContext(), adminActor(admin), c.Params("id"), service.MessageInput{
		Message:        req.Message,
		AttachmentURLs: req.AttachmentURLs,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketMessageResponse(msg)})
}
