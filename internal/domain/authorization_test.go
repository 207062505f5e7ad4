package domain_test

import (
	"context"
	"testing"

	"identity-sync-backend/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestRolePolicy(t *testing.T) {
	policy := domain.NewRolePolicy()
	ctx := context.Background()

	admin := &domain.User{Role: domain.RoleAdmin}
	user := &domain.User{Role: domain.RoleUser}

	assert.NoError(t, policy.Authorize(ctx, admin, domain.CapabilityAdminister))
	assert.NoError(t, policy.Authorize(ctx, admin, domain.CapabilityReadSelf))
	assert.NoError(t, policy.Authorize(ctx, user, domain.CapabilityReadSelf))
	assert.ErrorIs(t, policy.Authorize(ctx, user, domain.CapabilityAdminister), domain.ErrForbidden)
	assert.ErrorIs(t, policy.Authorize(ctx, nil, domain.CapabilityReadSelf), domain.ErrForbidden)
	assert.ErrorIs(t, policy.Authorize(ctx, &domain.User{Role: "OWNER"}, domain.CapabilityReadSelf), domain.ErrForbidden)
}

func TestUserInitial(t *testing.T) {
	assert.Equal(t, "A", (&domain.User{FirstName: ptr("ada"), Email: "x@y.z"}).Initial())
	assert.Equal(t, "X", (&domain.User{FirstName: ptr("  "), Email: "x@y.z"}).Initial())
	assert.Equal(t, "É", (&domain.User{FirstName: ptr("émile")}).Initial())
	assert.Equal(t, "", (&domain.User{}).Initial())
}

func TestRoleValid(t *testing.T) {
	assert.True(t, domain.RoleUser.Valid())
	assert.True(t, domain.RoleAdmin.Valid())
	assert.False(t, domain.Role("user").Valid())
}
