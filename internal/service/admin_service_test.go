package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/crm-support/internal/domain"
	"github.com/spec-kit/crm-support/internal/repository/memory"
	apperrors "github.com/spec-kit/crm-support/pkg/util"
)

func TestAdminDirectory(t *testing.T) {
	store := memory.NewStore()
	store.AddAdmin(domain.Admin{ID: "a1", Username: "bella", Role: domain.AdminRoleSupport, Active: true})
	store.AddAdmin(domain.Admin{ID: "a2", Username: "carl", Role: domain.AdminRoleManager, Active: true})
	store.AddAdmin(domain.Admin{ID: "a3", Username: "ann", Role: domain.AdminRoleSupport, Active: false})
	svc := NewAdminDirectoryService(store.Admins())
	ctx := context.Background()

	all, err := svc.ListAdmins(ctx, AdminListFilters{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "ann", all[0].Username)

	role := domain.AdminRoleSupport
	active := true
	support, err := svc.ListAdmins(ctx, AdminListFilters{Role: &role, Active: &active})
	require.NoError(t, err)
	require.Len(t, support, 1)
	assert.Equal(t, "a1", support[0].ID)

	paged, err := svc.ListAdmins(ctx, AdminListFilters{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, "bella", paged[0].Username)

	bad := domain.AdminRole("owner")
	_, err = svc.ListAdmins(ctx, AdminListFilters{Role: &bad})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	admin, err := svc.GetAdmin(ctx, "a2")
	require.NoError(t, err)
	assert.Equal(t, "carl", admin.Username)

	_, err = svc.GetAdmin(ctx, "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
