package parishes

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/catequesis/catequesis-api/internal/shared"
)

func TestCreateAndUpdateParish(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	p, err := svc.Create(ctx, CreateInput{Name: "san josé obrero", City: "sevilla"})
	require.NoError(t, err)
	require.Equal(t, "San José Obrero", p.Name)
	require.Equal(t, "Sevilla", p.City)
	require.True(t, p.Active)

	_, err = svc.Create(ctx, CreateInput{Name: "SAN JOSÉ OBRERO", City: "Sevilla"})
	require.ErrorIs(t, err, shared.ErrDuplicate)

	updated, err := svc.Update(ctx, p.ID, CreateInput{Name: "san josé", City: "sevilla", Phone: "955-000-000"})
	require.NoError(t, err)
	require.Equal(t, "San José", updated.Name)
	require.Equal(t, "955-000-000", updated.Phone)
}

func TestSetActiveParish(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	p, err := svc.Create(ctx, CreateInput{Name: "Santa Ana", City: "Granada"})
	require.NoError(t, err)

	require.NoError(t, svc.SetActive(ctx, p.ID, false))
	got, err := svc.Find(ctx, p.ID)
	require.NoError(t, err)
	require.False(t, got.Active)
}
