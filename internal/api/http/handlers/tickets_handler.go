package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/crm-support/internal/api/dto"
	"github.com/spec-kit/crm-support/internal/service"
)

// TicketsHandler exposes customer ticket endpoints.
type TicketsHandler struct {
	tickets  *service.TicketService
	messages *service.MessageService
}

// NewTicketsHandler builds handler.
func NewTicketsHandler(tickets *service.TicketService, messages *service.MessageService) *TicketsHandler {
	return &TicketsHandler{tickets: tickets, messages: messages}
}

// CreateTicket POST /api/customer/tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	customer, err := customerPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	ticket, err := h.tickets.CreateTicket(c.UserContext(), customer.ID, service.TicketCreateInput{
		PurchaseID:     req.PurchaseID,
		Subject:        req.Subject,
		Message:        req.Message,
		Category:       req.Category,
		Priority:       req.Priority,
		AttachmentURLs: req.AttachmentURLs,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketResponse(ticket, h.tickets.Assess(ticket))})
}

// ListTickets GET /api/customer/tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	customer, err := customerPrincipal(c)
	if err != nil {
		return err
	}
	page, err := h.tickets.ListTickets(c.UserContext(), customerActor(customer), parseTicketQuery(c))
	if err != nil {
		return err
	}
	return c.JSON(ticketListResponse(h.tickets, page))
}

// GetTicket GET /api/customer/tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	customer, err := customerPrincipal(c)
	if err != nil {
		return err
	}
	ticket, err := h.tickets.GetTicket(c.UserContext(), customerActor(customer), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket, h.tickets.Assess(ticket))})
}

// ListMessages GET /api/customer/tickets/:id/messages.
func (h *TicketsHandler) ListMessages(c *fiber.Ctx) error {
	customer, err := customerPrincipal(c)
	if err != nil {
		return err
	}
	messages, err := h.messages.GetMessages(c.UserContext(), customerActor(customer), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketMessageResponses(messages)})
}

// AddMessage POST /api/customer/tickets/:id/messages.
func (h *TicketsHandler) AddMessage(c *fiber.Ctx) error {
	customer, err := customerPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CreateMessageRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	msg, _, err := h.messages.PostMessage(c.UserContext(), customerActor(customer), c.Params("id"), service.MessageInput{
		Message:        req.Message,
		AttachmentURLs: req.AttachmentURLs,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketMessageResponse(msg)})
}
