package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestChannelUserReadApply(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("forward watermark advances and resets unread", func(t *testing.T) {
		read := &ChannelUserRead{CID: "messaging:1", UserID: "ayse", LastRead: base, UnreadMessages: 5}

		applied := read.Apply(base.Add(time.Minute))
		assert.True(t, applied)
		assert.Equal(t, base.Add(time.Minute), read.LastRead)
		assert.Zero(t, read.UnreadMessages)
	})

	t.Run("stale watermark is rejected", func(t *testing.T) {
		read := &ChannelUserRead{CID: "messaging:1", UserID: "ayse", LastRead: base, UnreadMessages: 5}

		assert.False(t, read.Apply(base.Add(-time.Minute)))
		assert.False(t, read.Apply(base))
		assert.Equal(t, base, read.LastRead)
		assert.Equal(t, 5, read.UnreadMessages)
	})
}
