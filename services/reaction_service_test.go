package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/chatkit/models"
	"github.com/akinalp/chatkit/pkg"
)

func TestSendReaction(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("success updates aggregates and own reactions", func(t *testing.T) {
		env := newServiceEnv(t)
		env.seedChannel(t, "messaging:genel")
		channelState := env.registry.Channel("messaging:genel")
		env.seedMessage(t, "m1", "messaging:genel", base)
		channelState.SetMessages([]models.Message{{ID: "m1", CID: "messaging:genel", CreatedAt: base}})
		svc := NewReactionService(env.fake, env.repos, env.registry, env.global)

		result := svc.SendReaction(ctx, "m1", "like", 1).Execute()
		require.NoError(t, result.Err)
		assert.Equal(t, models.SyncStatusSynced, result.Value.SyncStatus)

		message, err := env.repos.Messages.GetByID(ctx, "m1")
		require.NoError(t, err)
		assert.Equal(t, 1, message.ReactionCounts["like"])
		assert.Len(t, message.OwnReactions, 1)

		stateMessage, ok := channelState.GetMessage("m1")
		require.True(t, ok)
		assert.Equal(t, 1, stateMessage.ReactionCounts["like"])
	})

	t.Run("repeat send does not inflate the count", func(t *testing.T) {
		env := newServiceEnv(t)
		env.seedChannel(t, "messaging:genel")
		env.seedMessage(t, "m1", "messaging:genel", base)
		svc := NewReactionService(env.fake, env.repos, env.registry, env.global)

		require.NoError(t, svc.SendReaction(ctx, "m1", "like", 1).Execute().Err)
		require.NoError(t, svc.SendReaction(ctx, "m1", "like", 1).Execute().Err)

		message, err := env.repos.Messages.GetByID(ctx, "m1")
		require.NoError(t, err)
		assert.Equal(t, 1, message.ReactionCounts["like"])

		reactions, err := env.repos.Reactions.GetByMessageID(ctx, "m1")
		require.NoError(t, err)
		assert.Len(t, reactions, 1)
	})

	t.Run("offline reaction stays failed, aggregate is not rolled back", func(t *testing.T) {
		env := newServiceEnv(t)
		env.seedChannel(t, "messaging:genel")
		env.seedMessage(t, "m1", "messaging:genel", base)
		env.fake.setError(errors.New("network is down"))
		svc := NewReactionService(env.fake, env.repos, env.registry, env.global)

		result := svc.SendReaction(ctx, "m1", "like", 1).Execute()
		require.Error(t, result.Err)

		failed, err := env.repos.Reactions.GetBySyncStatus(ctx, models.SyncStatusFailed)
		require.NoError(t, err)
		require.Len(t, failed, 1)
		assert.Equal(t, "like", failed[0].Type)

		// Aggregate optimistic hali korur — recovery retry tamamlayacak.
		message, err := env.repos.Messages.GetByID(ctx, "m1")
		require.NoError(t, err)
		assert.Equal(t, 1, message.ReactionCounts["like"])
	})

	t.Run("validation", func(t *testing.T) {
		env := newServiceEnv(t)
		svc := NewReactionService(env.fake, env.repos, env.registry, env.global)

		assert.ErrorIs(t, svc.SendReaction(ctx, "", "like", 1).Execute().Err, pkg.ErrValidation)
		assert.ErrorIs(t, svc.SendReaction(ctx, "m1", "", 1).Execute().Err, pkg.ErrValidation)
	})
}

func TestDeleteReaction(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	env := newServiceEnv(t)
	env.seedChannel(t, "messaging:genel")
	env.seedMessage(t, "m1", "messaging:genel", base)
	svc := NewReactionService(env.fake, env.repos, env.registry, env.global)

	require.NoError(t, svc.SendReaction(ctx, "m1", "like", 3).Execute().Err)

	result := svc.DeleteReaction(ctx, "m1", "like").Execute()
	require.NoError(t, result.Err)
	assert.Equal(t, 3, result.Value.Score, "cache'teki gerçek skor düşülmeli")

	message, err := env.repos.Messages.GetByID(ctx, "m1")
	require.NoError(t, err)
	assert.Empty(t, message.ReactionCounts)
	assert.Empty(t, message.OwnReactions)

	reactions, err := env.repos.Reactions.GetByMessageID(ctx, "m1")
	require.NoError(t, err)
	assert.Empty(t, reactions)
}
