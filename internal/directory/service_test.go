package directory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/catequesis/catequesis-api/internal/shared"
)

func newTestService(t *testing.T) (*Service, *MemoryRepository) {
	t.Helper()
	repo := NewMemoryRepository()
	return NewService(repo), repo
}

func seedAccount(t *testing.T, svc *Service, role shared.Role, parishID *uuid.UUID) *Account {
	t.Helper()
	account, err := svc.CreateAccount(context.Background(), CreateAccountInput{
		Email:           "marta@parroquia.example",
		Name:            "marta diaz",
		InitialPassword: "primera-clave-1",
		Role:            role,
		ParishID:        parishID,
	})
	require.NoError(t, err)
	return account
}

func TestCreateAccountForcesPasswordChange(t *testing.T) {
	svc, _ := newTestService(t)
	parish := uuid.New()

	account := seedAccount(t, svc, shared.RoleSecretaria, &parish)
	require.True(t, account.PasswordChangeRequired)
	require.True(t, account.Active)
	require.Equal(t, "marta@parroquia.example", account.Email)
	require.Equal(t, "Marta Diaz", account.Name)
	require.NotEqual(t, "primera-clave-1", account.PasswordHash)
}

func TestCreateAccountValidatesRoleAndParish(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateAccount(ctx, CreateAccountInput{
		Email: "x@example.com", Name: "X", InitialPassword: "pw", Role: "director",
	})
	require.Error(t, err)

	// Every non-privileged role is bound to a parish.
	_, err = svc.CreateAccount(ctx, CreateAccountInput{
		Email: "x@example.com", Name: "X", InitialPassword: "pw", Role: shared.RoleParroco,
	})
	require.Error(t, err)

	// The privileged role is parish-free.
	_, err = svc.CreateAccount(ctx, CreateAccountInput{
		Email: "admin@example.com", Name: "Admin", InitialPassword: "pw-123456", Role: shared.RoleAdmin,
	})
	require.NoError(t, err)
}

func TestResolveStripsSecrets(t *testing.T) {
	svc, _ := newTestService(t)
	parish := uuid.New()
	account := seedAccount(t, svc, shared.RoleCatequista, &parish)

	principal, err := svc.Resolve(context.Background(), account.ID)
	require.NoError(t, err)
	require.Equal(t, account.ID, principal.ID)
	require.Equal(t, shared.RoleCatequista, principal.Role)
	require.NotNil(t, principal.ParishID)
	require.Equal(t, parish, *principal.ParishID)
	require.True(t, principal.PasswordChangeRequired)
}

func TestResolveUnknownAccount(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Resolve(context.Background(), uuid.New())
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestAuthenticate(t *testing.T) {
	svc, _ := newTestService(t)
	parish := uuid.New()
	account := seedAccount(t, svc, shared.RoleSecretaria, &parish)
	ctx := context.Background()

	got, err := svc.Authenticate(ctx, "marta@parroquia.example", "primera-clave-1")
	require.NoError(t, err)
	require.Equal(t, account.ID, got.ID)

	// Email matching is case-insensitive, passwords are not.
	_, err = svc.Authenticate(ctx, "MARTA@parroquia.example", "primera-clave-1")
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, "marta@parroquia.example", "wrong")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "nobody@parroquia.example", "primera-clave-1")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestAuthenticateInactiveAccount(t *testing.T) {
	svc, _ := newTestService(t)
	parish := uuid.New()
	account := seedAccount(t, svc, shared.RoleSecretaria, &parish)
	ctx := context.Background()

	require.NoError(t, svc.SetActive(ctx, account.ID, false))

	_, err := svc.Authenticate(ctx, "marta@parroquia.example", "primera-clave-1")
	require.ErrorIs(t, err, shared.ErrAccountInactive)
}

func TestChangePasswordClearsMustChangeFlag(t *testing.T) {
	svc, _ := newTestService(t)
	parish := uuid.New()
	account := seedAccount(t, svc, shared.RoleSecretaria, &parish)
	ctx := context.Background()

	err := svc.ChangePassword(ctx, account.ID, "wrong-current", "nueva-clave-9")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	require.NoError(t, svc.ChangePassword(ctx, account.ID, "primera-clave-1", "nueva-clave-9"))

	principal, err := svc.Resolve(ctx, account.ID)
	require.NoError(t, err)
	require.False(t, principal.PasswordChangeRequired)

	_, err = svc.Authenticate(ctx, "marta@parroquia.example", "nueva-clave-9")
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, "marta@parroquia.example", "primera-clave-1")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestCreateAccountDuplicateEmail(t *testing.T) {
	svc, _ := newTestService(t)
	parish := uuid.New()
	seedAccount(t, svc, shared.RoleSecretaria, &parish)

	_, err := svc.CreateAccount(context.Background(), CreateAccountInput{
		Email:           "Marta@Parroquia.example",
		Name:            "Other",
		InitialPassword: "otra-clave-22",
		Role:            shared.RoleCatequista,
		ParishID:        &parish,
	})
	require.ErrorIs(t, err, shared.ErrDuplicate)
}
