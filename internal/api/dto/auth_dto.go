package dto

import (
	"time"

	"github.com/spec-kit/crm-support/internal/domain"
)

// LoginRequest payload for admin and customer login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AdminResponse is the public view of an admin account.
type AdminResponse struct {
	ID       string           `json:"id"`
	Username string           `json:"username"`
	Email    string           `json:"email"`
	Role     domain.AdminRole `json:"role"`
	Active   bool             `json:"active"`
}

// CustomerResponse is the public view of a customer account.
type CustomerResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}
