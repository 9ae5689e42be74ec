package gate

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/catequesis/catequesis-api/internal/shared"
)

func scopedPrincipal(role shared.Role, parishID *uuid.UUID) *shared.Principal {
	return &shared.Principal{
		ID:       uuid.New(),
		Name:     "Test Principal",
		Role:     role,
		ParishID: parishID,
		Active:   true,
	}
}

func TestCheckRole(t *testing.T) {
	policy := RoutePolicy{AllowedRoles: []shared.Role{shared.RoleParroco, shared.RoleSecretaria}}
	parish := uuid.New()

	require.Nil(t, CheckRole(scopedPrincipal(shared.RoleParroco, &parish), policy))
	require.Nil(t, CheckRole(scopedPrincipal(shared.RoleSecretaria, &parish), policy))

	rej := CheckRole(scopedPrincipal(shared.RoleConsulta, &parish), policy)
	require.NotNil(t, rej)
	require.Equal(t, KindInsufficientRole, rej.Kind)

	// Admin gets no free pass through the role gate; the allowed set decides.
	rej = CheckRole(scopedPrincipal(shared.RoleAdmin, nil), policy)
	require.NotNil(t, rej)
	require.Equal(t, KindInsufficientRole, rej.Kind)
}

func TestCheckRoleEmptySetAdmitsAnyAuthenticated(t *testing.T) {
	parish := uuid.New()
	for _, role := range shared.Roles {
		require.Nil(t, CheckRole(scopedPrincipal(role, &parish), RoutePolicy{}))
	}
	rej := CheckRole(nil, RoutePolicy{})
	require.NotNil(t, rej)
	require.Equal(t, KindMissingCredential, rej.Kind)
}

func TestCheckParishScope(t *testing.T) {
	own := uuid.New()
	other := uuid.New()

	require.Nil(t, CheckParishScope(scopedPrincipal(shared.RoleCatequista, &own), own))

	rej := CheckParishScope(scopedPrincipal(shared.RoleCatequista, &own), other)
	require.NotNil(t, rej)
	require.Equal(t, KindTenantMismatch, rej.Kind)

	rej = CheckParishScope(scopedPrincipal(shared.RoleParroco, nil), own)
	require.NotNil(t, rej)
	require.Equal(t, KindNoTenantAssigned, rej.Kind)

	// Privileged principals reach every parish, parish-free or not.
	require.Nil(t, CheckParishScope(scopedPrincipal(shared.RoleAdmin, nil), other))
}

func TestCheckCredentialChange(t *testing.T) {
	parish := uuid.New()
	flagged := scopedPrincipal(shared.RoleSecretaria, &parish)
	flagged.PasswordChangeRequired = true

	rej := CheckCredentialChange(flagged, RoutePolicy{Action: "catechumens.list"})
	require.NotNil(t, rej)
	require.Equal(t, KindCredentialChangeRequired, rej.Kind)

	require.Nil(t, CheckCredentialChange(flagged, RoutePolicy{
		Action:                 "auth.change_password",
		CredentialChangeExempt: true,
	}))

	clean := scopedPrincipal(shared.RoleSecretaria, &parish)
	require.Nil(t, CheckCredentialChange(clean, RoutePolicy{Action: "catechumens.list"}))
	require.Nil(t, CheckCredentialChange(nil, RoutePolicy{}))
}

func TestGatesAreIdempotent(t *testing.T) {
	own := uuid.New()
	p := scopedPrincipal(shared.RoleCatequista, &own)
	policy := RoutePolicy{AllowedRoles: []shared.Role{shared.RoleCatequista}}

	for i := 0; i < 3; i++ {
		require.Nil(t, CheckRole(p, policy))
		require.Nil(t, CheckParishScope(p, own))
		require.Nil(t, CheckCredentialChange(p, policy))
	}

	other := uuid.New()
	for i := 0; i < 3; i++ {
		rej := CheckParishScope(p, other)
		require.NotNil(t, rej)
		require.Equal(t, KindTenantMismatch, rej.Kind)
	}
}
