package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/crm-support/internal/api/dto"
	"github.com/spec-kit/crm-support/internal/service"
)

// AuthHandler exposes the login endpoints for both account types.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// AdminLogin handles POST /auth/admin/login.
func (h *AuthHandler) AdminLogin(c *fiber.Ctx) error {
	req, err := parseLogin(c)
	if err != nil {
		return err
	}
	admin, result, err := h.auth.LoginAdmin(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"admin": adminResponse(admin),
			"auth":  authResponse(result),
		},
	})
}

// CustomerLogin handles POST /auth/customer/login.
func (h *AuthHandler) CustomerLogin(c *fiber.Ctx) error {
	req, err := parseLogin(c)
	if err != nil {
		return err
	}
	customer, result, err := h.auth.LoginCustomer(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"customer": dto.CustomerResponse{ID: customer.ID, Name: customer.Name, Email: customer.Email},
			"auth":     authResponse(result),
		},
	})
}

func parseLogin(c *fiber.Ctx) (dto.LoginRequest, error) {
	var req dto.LoginRequest
	err := bindJSON(c, &req)
	return req, err
}

func authResponse(result *service.LoginResult) dto.AuthResponse {
	return dto.AuthResponse{
		Token:     result.AccessToken,
		TokenType: "Bearer",
		ExpiresAt: result.Token.ExpiresAt,
	}
}
