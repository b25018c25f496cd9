package service

import (
	"context"

	"github.com/spec-kit/crm-support/internal/domain"
	"github.com/spec-kit/crm-support/internal/repository"
	apperrors "github.com/spec-kit/crm-support/pkg/util"
)

// AdminDirectoryService exposes the read-only admin roster used for owner names and reassignment.
type AdminDirectoryService struct {
	admins repository.AdminRepository
}

// AdminListFilters define listing parameters.
type AdminListFilters struct {
	Role   *domain.AdminRole
	Active *bool
	Limit  int
	Offset int
}

// NewAdminDirectoryService constructs the service.
func NewAdminDirectoryService(admins repository.AdminRepository) *AdminDirectoryService {
	return &AdminDirectoryService{admins: admins}
}

// ListAdmins returns admins matching filters.
func (s *AdminDirectoryService) ListAdmins(ctx context.Context, filters AdminListFilters) ([]domain.Admin, error) {
	if filters.Role != nil && !filters.Role.Valid() {
		return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": *filters.Role})
	}
	admins, err := s.admins.List(ctx, repository.AdminFilter{
		Role:   filters.Role,
		Active: filters.Active,
		Limit:  filters.Limit,
		Offset: filters.Offset,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return admins, nil
}

// GetAdmin loads one admin.
func (s *AdminDirectoryService) GetAdmin(ctx context.Context, id string) (*domain.Admin, error) {
	admin, err := s.admins.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "admin", id)
	}
	return admin, nil
}
