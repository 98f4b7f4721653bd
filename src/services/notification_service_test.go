package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bubtconnect/backend/src/apperr"
	"github.com/bubtconnect/backend/src/models"
)

func TestActivityIsRecordedAndPushed(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	env.addUser(t, "alice")
	env.addUser(t, "bob")

	bobLive := &recordingChannel{}
	env.broker.Connect("bob", bobLive)

	require.NoError(t, env.graph.Follow(ctx, "alice", "bob"))
	_, err := env.connections.SendRequest(ctx, "alice", "bob")
	require.NoError(t, err)
	require.NoError(t, env.connections.AcceptRequest(ctx, "bob", "alice"))

	bobFeed, err := env.notifications.List(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, bobFeed, 2)
	types := []models.NotificationType{bobFeed[0].Type, bobFeed[1].Type}
	require.ElementsMatch(t, []models.NotificationType{
		models.NotificationTypeNewFollower,
		models.NotificationTypeConnectionRequest,
	}, types)
	for _, n := range bobFeed {
		require.NotNil(t, n.RelatedUserSummary)
		require.Equal(t, "alice", n.RelatedUserSummary.Username)
		require.False(t, n.Read)
	}

	aliceFeed, err := env.notifications.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, aliceFeed, 1)
	require.Equal(t, models.NotificationTypeConnectionAccepted, aliceFeed[0].Type)
	require.Equal(t, "bob", aliceFeed[0].RelatedUser)

	pushed := 0
	for _, ev := range bobLive.received() {
		if ev.Name == "notification" {
			pushed++
		}
	}
	require.Equal(t, 2, pushed)
}

func TestFailedFollowRecordsNothing(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	env.addUser(t, "alice")
	env.addUser(t, "bob")

	require.NoError(t, env.graph.Follow(ctx, "alice", "bob"))
	require.ErrorIs(t, env.graph.Follow(ctx, "alice", "bob"), apperr.ErrAlreadyFollowing)

	feed, err := env.notifications.List(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, feed, 1)
}

func TestMarkReadAndDeleteAreScopedToRecipient(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	env.addUser(t, "alice")
	env.addUser(t, "bob")
	require.NoError(t, env.graph.Follow(ctx, "alice", "bob"))

	feed, err := env.notifications.List(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, feed, 1)
	id := feed[0].Id.Hex()

	_, err = env.notifications.MarkRead(ctx, "alice", id)
	require.ErrorIs(t, err, apperr.ErrNotFound)
	require.ErrorIs(t, env.notifications.Delete(ctx, "alice", id), apperr.ErrNotFound)

	n, err := env.notifications.MarkRead(ctx, "bob", id)
	require.NoError(t, err)
	require.True(t, n.Read)

	_, err = env.notifications.MarkRead(ctx, "bob", "not-an-id")
	require.ErrorIs(t, err, apperr.ErrInvalidInput)

	require.NoError(t, env.notifications.Delete(ctx, "bob", id))
	feed, err = env.notifications.List(ctx, "bob")
	require.NoError(t, err)
	require.Empty(t, feed)
}
