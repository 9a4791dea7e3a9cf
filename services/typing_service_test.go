package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/chatkit/pkg"
	"github.com/akinalp/chatkit/pkg/throttle"
	"github.com/akinalp/chatkit/ws"
)

func TestKeystroke(t *testing.T) {
	ctx := context.Background()

	t.Run("throttle window suppresses repeats", func(t *testing.T) {
		env := newServiceEnv(t)
		th := throttle.New(time.Minute)
		defer th.Close()
		svc := NewTypingService(env.fake, th)

		require.NoError(t, svc.Keystroke(ctx, "messaging:genel", "").Execute().Err)
		require.NoError(t, svc.Keystroke(ctx, "messaging:genel", "").Execute().Err)
		require.NoError(t, svc.Keystroke(ctx, "messaging:genel", "").Execute().Err)

		// Pencere başına kanal bazında tek typing.start gider.
		assert.Equal(t, []string{ws.EventTypingStart}, env.fake.sentEventTypes)
	})

	t.Run("channels throttle independently", func(t *testing.T) {
		env := newServiceEnv(t)
		th := throttle.New(time.Minute)
		defer th.Close()
		svc := NewTypingService(env.fake, th)

		require.NoError(t, svc.Keystroke(ctx, "messaging:a", "").Execute().Err)
		require.NoError(t, svc.Keystroke(ctx, "messaging:b", "").Execute().Err)

		assert.Len(t, env.fake.sentEventTypes, 2)
	})

	t.Run("thread typing throttles separately and carries the parent", func(t *testing.T) {
		env := newServiceEnv(t)
		th := throttle.New(time.Minute)
		defer th.Close()
		svc := NewTypingService(env.fake, th)

		require.NoError(t, svc.Keystroke(ctx, "messaging:genel", "").Execute().Err)
		require.NoError(t, svc.Keystroke(ctx, "messaging:genel", "parent-1").Execute().Err)
		// Aynı thread'in ikinci keystroke'u pencereye takılır.
		require.NoError(t, svc.Keystroke(ctx, "messaging:genel", "parent-1").Execute().Err)

		assert.Equal(t, []string{ws.EventTypingStart, ws.EventTypingStart}, env.fake.sentEventTypes)
		assert.Equal(t, []string{"", "parent-1"}, env.fake.sentEventParents)
	})

	t.Run("invalid cid", func(t *testing.T) {
		env := newServiceEnv(t)
		th := throttle.New(time.Minute)
		defer th.Close()
		svc := NewTypingService(env.fake, th)

		result := svc.Keystroke(ctx, "bozuk", "").Execute()
		assert.ErrorIs(t, result.Err, pkg.ErrValidation)
		assert.Empty(t, env.fake.sentEventTypes)
	})
}

func TestStopTyping(t *testing.T) {
	ctx := context.Background()
	env := newServiceEnv(t)
	th := throttle.New(time.Minute)
	defer th.Close()
	svc := NewTypingService(env.fake, th)

	require.NoError(t, svc.Keystroke(ctx, "messaging:genel", "").Execute().Err)
	require.NoError(t, svc.StopTyping(ctx, "messaging:genel", "").Execute().Err)

	// Stop throttle penceresini sıfırlar — sonraki keystroke hemen gider.
	require.NoError(t, svc.Keystroke(ctx, "messaging:genel", "").Execute().Err)

	assert.Equal(t, []string{
		ws.EventTypingStart,
		ws.EventTypingStop,
		ws.EventTypingStart,
	}, env.fake.sentEventTypes)
}
