package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/crm-support/internal/domain"
)

func TestTokenManager_RoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 15)
	role := domain.AdminRoleManager

	meta, signed, err := tm.GenerateToken("admin-1", domain.SubjectTypeAdmin, &role)
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, meta.ExpiresAt.Sub(meta.IssuedAt))

	claims, err := tm.ParseToken(signed)
	require.NoError(t, err)
	assert.Equal(t, "admin-1", claims.Subject)
	assert.Equal(t, domain.SubjectTypeAdmin, claims.SubjectType)
	require.NotNil(t, claims.Role)
	assert.Equal(t, domain.AdminRoleManager, *claims.Role)
}

func TestTokenManager_RejectsForeignSecretAndExpiry(t *testing.T) {
	issuer := NewTokenManager("secret", 1)
	_, signed, err := issuer.GenerateToken("c-1", domain.SubjectTypeCustomer, nil)
	require.NoError(t, err)

	_, err = NewTokenManager("other", 1).ParseToken(signed)
	require.Error(t, err)

	late := NewTokenManager("secret", 1)
	late.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = late.ParseToken(signed)
	require.Error(t, err)
}

func TestPassword_HashAndCompare(t *testing.T) {
	hashed, err := HashPassword("hunter22", 4)
	require.NoError(t, err)
	require.NoError(t, ComparePassword(hashed, "hunter22"))
	require.Error(t, ComparePassword(hashed, "hunter23"))
}

func TestPassword_RejectsEmptyAndClampsCost(t *testing.T) {
	_, err := HashPassword("", 4)
	require.ErrorIs(t, err, ErrEmptyPassword)

	hashed, err := HashPassword("hunter22", 99)
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(hashed))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)
}
