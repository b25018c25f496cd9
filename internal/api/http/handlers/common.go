package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/crm-support/internal/api/dto"
	"github.com/spec-kit/crm-support/internal/auth"
	"github.com/spec-kit/crm-support/internal/domain"
	"github.com/spec-kit/crm-support/internal/escalation"
	"github.com/spec-kit/crm-support/internal/events"
	"github.com/spec-kit/crm-support/internal/service"
	apperrors "github.com/spec-kit/crm-support/pkg/util"
)

func adminPrincipal(c *fiber.Ctx) (*domain.Admin, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Admin == nil {
		return nil, apperrors.NewUnauthorized("admin required")
	}
	return principal.Admin, nil
}

func customerPrincipal(c *fiber.Ctx) (*domain.Customer, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Customer == nil {
		return nil, apperrors.NewUnauthorized("customer required")
	}
	return principal.Customer, nil
}

func invalidPayload() error {
	return fiber.NewError(http.StatusBadRequest, "invalid payload")
}

// parseTicketQuery reads list filters. assignedTo is accepted as an alias of assigned_to.
func parseTicketQuery(c *fiber.Ctx) service.TicketQuery {
	assignedTo := c.Query("assigned_to")
	if assignedTo == "" {
		assignedTo = c.Query("assignedTo")
	}
	return service.TicketQuery{
		Status:     c.Query("status"),
		Priority:   c.Query("priority"),
		Category:   c.Query("category"),
		AssignedTo: assignedTo,
		Search:     c.Query("search"),
		Page:       c.QueryInt("page", 1),
		Limit:      c.QueryInt("limit", 0),
	}
}

func ticketResponse(ticket *domain.Ticket, assessment escalation.Assessment) dto.TicketResponse {
	urls := ticket.AttachmentURLs
	if urls == nil {
		urls = []string{}
	}
	return dto.TicketResponse{
		ID:              ticket.ID,
		CustomerID:      ticket.CustomerID,
		PurchaseID:      ticket.PurchaseID,
		Subject:         ticket.Subject,
		Message:         ticket.Message,
		Resolution:      ticket.Resolution,
		AttachmentURLs:  urls,
		Status:          ticket.Status,
		Priority:        ticket.Priority,
		Category:        ticket.Category,
		AssignedTo:      ticket.AssignedTo,
		CreatedAt:       ticket.CreatedAt,
		UpdatedAt:       ticket.UpdatedAt,
		FirstResponseAt: ticket.FirstResponseAt,
		LastActivityAt:  ticket.LastActivityAt,
		EscalatedAt:     ticket.EscalatedAt,
		ResolvedAt:      ticket.ResolvedAt,
		Version:         ticket.Version,
		IsEscalated:     assessment.IsEscalated,
		IsOverdue:       assessment.IsOverdue,
		ResponseTime:    assessment.ResponseTime,
		AgeBucket:       assessment.AgeBucket,
	}
}

func ticketListResponse(tickets *service.TicketService, page *service.TicketPage) dto.TicketListResponse {
	items := make([]dto.TicketResponse, 0, len(page.Tickets))
	for i := range page.Tickets {
		ticket := &page.Tickets[i]
		items = append(items, ticketResponse(ticket, tickets.Assess(ticket)))
	}
	return dto.TicketListResponse{
		Tickets: items,
		Pagination: dto.PaginationResponse{
			Total:      page.Pagination.Total,
			Page:       page.Pagination.Page,
			Limit:      page.Pagination.Limit,
			TotalPages: page.Pagination.TotalPages,
		},
	}
}

func ticketMessageResponse(msg *domain.TicketMessage) dto.TicketMessageResponse {
	urls := msg.AttachmentURLs
	if urls == nil {
		urls = []string{}
	}
	return dto.TicketMessageResponse{
		ID:             msg.ID,
		TicketID:       msg.TicketID,
		SenderType:     msg.SenderType,
		SenderID:       msg.SenderID,
		Message:        msg.Message,
		AttachmentURLs: urls,
		CreatedAt:      msg.CreatedAt,
	}
}

func ticketMessageResponses(messages []domain.TicketMessage) []dto.TicketMessageResponse {
	resp := make([]dto.TicketMessageResponse, 0, len(messages))
	for i := range messages {
		resp = append(resp, ticketMessageResponse(&messages[i]))
	}
	return resp
}

func historyResponses(entries []domain.TicketHistory) []dto.TicketHistoryResponse {
	resp := make([]dto.TicketHistoryResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, dto.TicketHistoryResponse{
			ID:            entry.ID,
			ChangeType:    entry.ChangeType,
			ChangedByType: entry.ChangedByType,
			ChangedByID:   entry.ChangedByID,
			OldValue:      entry.OldValue,
			NewValue:      entry.NewValue,
			CreatedAt:     entry.CreatedAt,
		})
	}
	return resp
}

func statsResponse(stats *domain.TicketStats) dto.TicketStatsResponse {
	return dto.TicketStatsResponse{
		Total:       stats.Total,
		ByStatus:    stats.ByStatus,
		Urgent:      stats.Urgent,
		High:        stats.High,
		ByCategory:  stats.ByCategory,
		Recent:      stats.Recent,
		Escalated:   stats.Escalated,
		Unassigned:  stats.Unassigned,
		AgeBuckets:  stats.AgeBuckets,
		GeneratedAt: stats.GeneratedAt,
	}
}

func adminResponse(admin *domain.Admin) dto.AdminResponse {
	return dto.AdminResponse{
		ID:       admin.ID,
		Username: admin.Username,
		Email:    admin.Email,
		Role:     admin.Role,
		Active:   admin.Active,
	}
}

// ownershipFailure renders ALREADY_CLAIMED and NOT_OWNER as a structured
// body instead of routing them through the error middleware.
func ownershipFailure(c *fiber.Ctx, err error) error {
	domainErr := apperrors.ToDomainError(err)
	resp := dto.OwnershipResponse{
		Success: false,
		Code:    domainErr.Code,
		Message: domainErr.Message,
	}
	owner := &dto.OwnerRef{}
	if id, ok := domainErr.Details["current_owner_id"].(string); ok && id != "" {
		owner.ID = &id
	}
	if name, ok := domainErr.Details["current_owner_name"].(string); ok {
		owner.Username = name
	}
	resp.CurrentOwner = owner
	return c.Status(http.StatusConflict).JSON(resp)
}

func adminActor(admin *domain.Admin) events.Actor {
	return events.AdminActor(admin.ID)
}

func customerActor(customer *domain.Customer) events.Actor {
	return events.CustomerActor(customer.ID)
}
