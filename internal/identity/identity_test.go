package identity_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/registrar/internal/identity"
)

func TestParseRole(t *testing.T) {
	for _, r := range identity.Roles {
		got, err := identity.ParseRole(string(r))
		require.NoError(t, err)
		assert.Equal(t, r, got)
	}

	_, err := identity.ParseRole("registrar")
	assert.Error(t, err)
}

func TestRole_IsStaffSide(t *testing.T) {
	assert.False(t, identity.RoleStudent.IsStaffSide())

	for _, r := range []identity.Role{
		identity.RoleStaff,
		identity.RoleAdmin,
		identity.RoleSAScheduling,
		identity.RoleSAReleasing,
	} {
		assert.True(t, r.IsStaffSide(), r)
	}
}

func TestActor_Context(t *testing.T) {
	_, ok := identity.FromContext(context.Background())
	assert.False(t, ok)

	actor := identity.Actor{ID: uuid.New(), Role: identity.RoleSAReleasing}
	got, ok := identity.FromContext(identity.WithActor(context.Background(), actor))
	require.True(t, ok)
	assert.Equal(t, actor, got)
	assert.True(t, got.Is(identity.RoleStaff, identity.RoleSAReleasing))
	assert.False(t, got.Is(identity.RoleAdmin))
}
