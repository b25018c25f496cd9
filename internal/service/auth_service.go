package service

import (
	"context"
	"errors"
	"strings"

	"github.com/spec-kit/crm-support/internal/auth"
	"github.com/spec-kit/crm-support/internal/domain"
	"github.com/spec-kit/crm-support/internal/repository"
	apperrors "github.com/spec-kit/crm-support/pkg/util"
)

// AuthService coordinates login flows. Accounts are provisioned outside this service.
type AuthService struct {
	admins    repository.AdminRepository
	customers repository.CustomerRepository
	tokenMgr  *auth.TokenManager
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	AdminRepo    repository.AdminRepository
	CustomerRepo repository.CustomerRepository
	TokenManager *auth.TokenManager
}

// LoginResult carries the signed token with its metadata.
type LoginResult struct {
	AccessToken string
	Token       *domain.Token
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	return &AuthService{
		admins:    deps.AdminRepo,
		customers: deps.CustomerRepo,
		tokenMgr:  deps.TokenManager,
	}
}

// LoginAdmin authenticates an admin and returns a role-bearing token.
func (s *AuthService) LoginAdmin(ctx context.Context, email, password string) (*domain.Admin, *LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, nil, apperrors.NewValidationError("email and password are required", nil)
	}
	admin, err := s.admins.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, nil, apperrors.MapError(err)
	}
	if err := auth.ComparePassword(admin.PasswordHash, password); err != nil {
		return nil, nil, apperrors.NewUnauthorized("invalid credentials")
	}
	if !admin.Active {
		return nil, nil, apperrors.NewForbidden("admin account disabled")
	}
	role := admin.Role
	meta, signed, err := s.tokenMgr.GenerateToken(admin.ID, domain.SubjectTypeAdmin, &role)
	if err != nil {
		return nil, nil, apperrors.NewInternalError(err)
	}
	return admin, &LoginResult{AccessToken: signed, Token: meta}, nil
}

// LoginCustomer authenticates a customer.
func (s *AuthService) LoginCustomer(ctx context.Context, email, password string) (*domain.Customer, *LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, nil, apperrors.NewValidationError("email and password are required", nil)
	}
	customer, err := s.customers.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, nil, apperrors.MapError(err)
	}
	if customer.PasswordHash == "" {
		return nil, nil, apperrors.NewUnauthorized("invalid credentials")
	}
	if err := auth.ComparePassword(customer.PasswordHash, password); err != nil {
		return nil, nil, apperrors.NewUnauthorized("invalid credentials")
	}
	meta, signed, err := s.tokenMgr.GenerateToken(customer.ID, domain.SubjectTypeCustomer, nil)
	if err != nil {
		return nil, nil, apperrors.NewInternalError(err)
	}
	return customer, &LoginResult{AccessToken: signed, Token: meta}, nil
}
