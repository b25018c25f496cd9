package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/crm-support/internal/api/dto"
	"github.com/spec-kit/crm-support/internal/domain"
	"github.com/spec-kit/crm-support/internal/service"
	apperrors "github.com/spec-kit/crm-support/pkg/util"
)

// AdminsHandler serves the admin roster used by reassignment pickers.
type AdminsHandler struct {
	directory *service.AdminDirectoryService
}

// NewAdminsHandler constructs handler.
func NewAdminsHandler(directory *service.AdminDirectoryService) *AdminsHandler {
	return &AdminsHandler{directory: directory}
}

// ListAdmins GET /api/admin/admins?role&active&limit&offset.
func (h *AdminsHandler) ListAdmins(c *fiber.Ctx) error {
	filters := service.AdminListFilters{
		Limit:  c.QueryInt("limit", 50),
		Offset: c.QueryInt("offset", 0),
	}
	if v := c.Query("role"); v != "" {
		role := domain.AdminRole(v)
		filters.Role = &role
	}
	if v := c.Query("active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			return apperrors.NewValidationError("invalid active flag", map[string]any{"active": v})
		}
		filters.Active = &active
	}

	admins, err := h.directory.ListAdmins(c.UserContext(), filters)
	if err != nil {
		return err
	}
	items := make([]dto.AdminResponse, 0, len(admins))
	for i := range admins {
		items = append(items, adminResponse(&admins[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetAdmin GET /api/admin/admins/:id.
func (h *AdminsHandler) GetAdmin(c *fiber.Ctx) error {
	admin, err := h.directory.GetAdmin(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": adminResponse(admin)})
}
