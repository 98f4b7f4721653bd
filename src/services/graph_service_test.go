package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bubtconnect/backend/src/apperr"
	"github.com/bubtconnect/backend/src/models"
	"github.com/bubtconnect/backend/src/repository"
)

func TestFollowMirrorsEdges(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	env.addUser(t, "alice")
	env.addUser(t, "bob")

	require.NoError(t, env.graph.Follow(ctx, "alice", "bob"))
	require.Equal(t, []string{"bob"}, env.user(t, "alice").Following)
	require.Equal(t, []string{"alice"}, env.user(t, "bob").Followers)

	require.ErrorIs(t, env.graph.Follow(ctx, "alice", "bob"), apperr.ErrAlreadyFollowing)

	require.NoError(t, env.graph.Unfollow(ctx, "alice", "bob"))
	require.Empty(t, env.user(t, "alice").Following)
	require.Empty(t, env.user(t, "bob").Followers)

	require.NoError(t, env.graph.Unfollow(ctx, "alice", "bob"), "unfollow is idempotent")
}

func TestFollowRejectsSelfAndUnknown(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	env.addUser(t, "alice")

	require.ErrorIs(t, env.graph.Follow(ctx, "alice", "alice"), apperr.ErrInvalidInput)
	require.ErrorIs(t, env.graph.Follow(ctx, "alice", "ghost"), apperr.ErrNotFound)
	require.Empty(t, env.user(t, "alice").Following)
}

func TestFollowRollsBackWhenMirrorFails(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t, withUsers(func(u repository.UserRepository) repository.UserRepository {
		return &flakyUsers{UserRepository: u, failEdge: models.EdgeFollowers}
	}))
	env.addUser(t, "alice")
	env.addUser(t, "bob")

	err := env.graph.Follow(ctx, "alice", "bob")
	require.ErrorIs(t, err, errStoreDown)
	require.Empty(t, env.user(t, "alice").Following, "no half-applied follow")
	require.Empty(t, env.user(t, "bob").Followers)
}

func TestUnfollowRestoresEdgeWhenMirrorFails(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t, withUsers(func(u repository.UserRepository) repository.UserRepository {
		return &failingRemovals{UserRepository: u, failEdge: models.EdgeFollowers}
	}))
	env.addUser(t, "alice")
	env.addUser(t, "bob")
	require.NoError(t, env.graph.Follow(ctx, "alice", "bob"))

	err := env.graph.Unfollow(ctx, "alice", "bob")
	require.ErrorIs(t, err, errStoreDown)
	require.Equal(t, []string{"bob"}, env.user(t, "alice").Following, "following edge restored")
	require.Equal(t, []string{"alice"}, env.user(t, "bob").Followers)
}

func TestListConnections(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	for _, id := range []string{"alice", "bob", "carol", "dave"} {
		env.addUser(t, id)
	}

	require.NoError(t, env.graph.Follow(ctx, "bob", "alice"))
	require.NoError(t, env.graph.Follow(ctx, "alice", "carol"))
	_, err := env.connections.SendRequest(ctx, "dave", "alice")
	require.NoError(t, err)
	_, err = env.connections.SendRequest(ctx, "carol", "alice")
	require.NoError(t, err)
	require.NoError(t, env.connections.AcceptRequest(ctx, "alice", "carol"))

	view, err := env.graph.ListConnections(ctx, "alice")
	require.NoError(t, err)

	require.Equal(t, []models.UserDto{env.user(t, "bob").Summary()}, view.Followers)
	require.Equal(t, []models.UserDto{env.user(t, "carol").Summary()}, view.Following)
	require.Equal(t, []models.UserDto{env.user(t, "carol").Summary()}, view.Connections)
	require.Len(t, view.PendingConnections, 1)
	require.Equal(t, env.user(t, "dave").Summary(), view.PendingConnections[0].From)
	require.Equal(t, models.ConnectionStatusPending, view.PendingConnections[0].Status)
}

func TestConnectionStatus(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	for _, id := range []string{"alice", "bob", "carol"} {
		env.addUser(t, id)
	}

	status, _, err := env.graph.ConnectionStatus(ctx, "alice", "bob")
	require.NoError(t, err)
	require.Equal(t, models.RelationNotConnected, status)

	req, err := env.connections.SendRequest(ctx, "alice", "bob")
	require.NoError(t, err)

	status, _, err = env.graph.ConnectionStatus(ctx, "alice", "bob")
	require.NoError(t, err)
	require.Equal(t, models.RelationPending, status)

	status, id, err := env.graph.ConnectionStatus(ctx, "bob", "alice")
	require.NoError(t, err)
	require.Equal(t, models.RelationReceived, status)
	require.Equal(t, req.Id, *id)

	require.NoError(t, env.connections.AcceptRequest(ctx, "bob", "alice"))
	status, _, err = env.graph.ConnectionStatus(ctx, "alice", "bob")
	require.NoError(t, err)
	require.Equal(t, models.RelationConnected, status)

	_, _, err = env.graph.ConnectionStatus(ctx, "carol", "carol")
	require.ErrorIs(t, err, apperr.ErrInvalidInput)
}
