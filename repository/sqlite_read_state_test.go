package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/chatkit/models"
	"github.com/akinalp/chatkit/pkg"
)

func TestReadStateRepoForwardOnly(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()
	seedChannel(t, repos, "messaging:genel")
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repos.Reads.Upsert(ctx, &models.ChannelUserRead{
		CID: "messaging:genel", UserID: "ayse", LastRead: base, UnreadMessages: 0,
	}))

	t.Run("stale watermark is rejected in sql", func(t *testing.T) {
		require.NoError(t, repos.Reads.Upsert(ctx, &models.ChannelUserRead{
			CID: "messaging:genel", UserID: "ayse", LastRead: base.Add(-time.Hour), UnreadMessages: 99,
		}))

		got, err := repos.Reads.Get(ctx, "messaging:genel", "ayse")
		require.NoError(t, err)
		assert.True(t, got.LastRead.Equal(base), "watermark geri gitmemeli")
		assert.Zero(t, got.UnreadMessages)
	})

	t.Run("forward watermark advances", func(t *testing.T) {
		require.NoError(t, repos.Reads.Upsert(ctx, &models.ChannelUserRead{
			CID: "messaging:genel", UserID: "ayse", LastRead: base.Add(time.Hour),
		}))

		got, err := repos.Reads.Get(ctx, "messaging:genel", "ayse")
		require.NoError(t, err)
		assert.True(t, got.LastRead.Equal(base.Add(time.Hour)))
	})

	t.Run("missing row returns ErrNotFound", func(t *testing.T) {
		_, err := repos.Reads.Get(ctx, "messaging:genel", "yok")
		assert.ErrorIs(t, err, pkg.ErrNotFound)
	})
}

func TestReadStateRepoIncrementUnread(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()
	seedChannel(t, repos, "messaging:genel")

	t.Run("creates row starting at one", func(t *testing.T) {
		require.NoError(t, repos.Reads.IncrementUnread(ctx, "messaging:genel", "ayse"))

		got, err := repos.Reads.Get(ctx, "messaging:genel", "ayse")
		require.NoError(t, err)
		assert.Equal(t, 1, got.UnreadMessages)
	})

	t.Run("increments existing row", func(t *testing.T) {
		require.NoError(t, repos.Reads.IncrementUnread(ctx, "messaging:genel", "ayse"))
		require.NoError(t, repos.Reads.IncrementUnread(ctx, "messaging:genel", "ayse"))

		got, err := repos.Reads.Get(ctx, "messaging:genel", "ayse")
		require.NoError(t, err)
		assert.Equal(t, 3, got.UnreadMessages)
	})
}

func TestReadStateRepoGetByCID(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()
	seedChannel(t, repos, "messaging:genel")
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repos.Reads.Upsert(ctx, &models.ChannelUserRead{
		CID: "messaging:genel", UserID: "ayse", LastRead: base,
	}))
	require.NoError(t, repos.Reads.Upsert(ctx, &models.ChannelUserRead{
		CID: "messaging:genel", UserID: "mehmet", LastRead: base,
	}))

	reads, err := repos.Reads.GetByCID(ctx, "messaging:genel")
	require.NoError(t, err)
	assert.Len(t, reads, 2)
}
