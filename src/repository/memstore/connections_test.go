package memstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bubtconnect/backend/src/apperr"
	"github.com/bubtconnect/backend/src/models"
	"github.com/bubtconnect/backend/src/repository/memstore"
)

func TestTransitionFollowsStatusTable(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	req := &models.ConnectionRequest{FromUserId: "alice", ToUserId: "bob", Status: models.ConnectionStatusPending, CreatedAt: now}
	require.NoError(t, store.Connections.Create(ctx, req))

	_, err := store.Connections.Transition(ctx, "alice", "bob",
		models.ConnectionStatusPending, models.ConnectionStatusPending, now)
	require.ErrorContains(t, err, "not allowed")

	_, err = store.Connections.Transition(ctx, "alice", "bob",
		models.ConnectionStatusPending, "rejected", now)
	require.ErrorContains(t, err, "not allowed")

	got, err := store.Connections.FindByID(ctx, req.Id)
	require.NoError(t, err)
	require.Equal(t, models.ConnectionStatusPending, got.Status, "forbidden transitions write nothing")

	accepted, err := store.Connections.Transition(ctx, "alice", "bob",
		models.ConnectionStatusPending, models.ConnectionStatusAccepted, now.Add(time.Minute))
	require.NoError(t, err)
	require.Equal(t, models.ConnectionStatusAccepted, accepted.Status)
	require.Equal(t, now.Add(time.Minute), accepted.UpdatedAt)

	_, err = store.Connections.Transition(ctx, "alice", "bob",
		models.ConnectionStatusPending, models.ConnectionStatusAccepted, now)
	require.ErrorIs(t, err, apperr.ErrNotFound, "only one accept wins")
}

func TestStatusTable(t *testing.T) {
	require.True(t, models.CanTransition(models.ConnectionStatusPending, models.ConnectionStatusAccepted))
	require.True(t, models.CanTransition(models.ConnectionStatusAccepted, models.ConnectionStatusPending))
	require.False(t, models.CanTransition(models.ConnectionStatusPending, models.ConnectionStatusPending))
	require.False(t, models.CanTransition(models.ConnectionStatusAccepted, models.ConnectionStatusAccepted))
	require.NoError(t, models.CheckTransition(models.ConnectionStatusPending, models.ConnectionStatusAccepted))
}
