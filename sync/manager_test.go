package sync

import (
	"context"
	"errors"
	gosync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/chatkit/api"
	"github.com/akinalp/chatkit/config"
	"github.com/akinalp/chatkit/models"
	"github.com/akinalp/chatkit/pkg/call"
	"github.com/akinalp/chatkit/ws"
)

// fakeAPI, manager testleri için elle yazılmış ChatAPI fake'i.
type fakeAPI struct {
	mu gosync.Mutex

	sendMessageErr  error
	sendMessages    []string // gönderilen mesaj id'leri
	deletedMessages []string

	queryChannelResponse api.ChannelPage
	queryChannelCalls    int

	syncEvents []ws.Event
	syncCalls  int
}

func (f *fakeAPI) SendMessage(ctx context.Context, cid string, message *models.Message) *call.Call[models.Message] {
	msg := *message
	return call.New(ctx, func(ctx context.Context) (models.Message, error) {
		f.mu.Lock()
		f.sendMessages = append(f.sendMessages, msg.ID)
		err := f.sendMessageErr
		f.mu.Unlock()
		if err != nil {
			return models.Message{}, err
		}
		return msg, nil
	})
}

func (f *fakeAPI) EditMessage(ctx context.Context, message *models.Message) *call.Call[models.Message] {
	msg := *message
	return call.New(ctx, func(ctx context.Context) (models.Message, error) { return msg, nil })
}

func (f *fakeAPI) DeleteMessage(ctx context.Context, messageID string) *call.Call[models.Message] {
	return call.New(ctx, func(ctx context.Context) (models.Message, error) {
		f.mu.Lock()
		f.deletedMessages = append(f.deletedMessages, messageID)
		f.mu.Unlock()
		return models.Message{ID: messageID}, nil
	})
}

func (f *fakeAPI) SendReaction(ctx context.Context, reaction *models.Reaction) *call.Call[models.Reaction] {
	r := *reaction
	return call.New(ctx, func(ctx context.Context) (models.Reaction, error) { return r, nil })
}

func (f *fakeAPI) DeleteReaction(ctx context.Context, messageID, reactionType string) *call.Call[models.Reaction] {
	return call.New(ctx, func(ctx context.Context) (models.Reaction, error) {
		return models.Reaction{MessageID: messageID, Type: reactionType}, nil
	})
}

func (f *fakeAPI) MarkRead(ctx context.Context, cid, messageID string) *call.Call[api.Empty] {
	return call.New(ctx, func(ctx context.Context) (api.Empty, error) { return api.Empty{}, nil })
}

func (f *fakeAPI) MarkAllRead(ctx context.Context) *call.Call[api.Empty] {
	return call.New(ctx, func(ctx context.Context) (api.Empty, error) { return api.Empty{}, nil })
}

func (f *fakeAPI) QueryChannel(ctx context.Context, cid string, req api.QueryChannelRequest) *call.Call[api.ChannelPage] {
	return call.New(ctx, func(ctx context.Context) (api.ChannelPage, error) {
		f.mu.Lock()
		f.queryChannelCalls++
		page := f.queryChannelResponse
		f.mu.Unlock()
		return page, nil
	})
}

func (f *fakeAPI) QueryChannels(ctx context.Context, req api.QueryChannelsRequest) *call.Call[[]api.ChannelPage] {
	return call.New(ctx, func(ctx context.Context) ([]api.ChannelPage, error) { return nil, nil })
}

func (f *fakeAPI) GetReplies(ctx context.Context, parentID string, limit int) *call.Call[[]models.Message] {
	return call.New(ctx, func(ctx context.Context) ([]models.Message, error) { return nil, nil })
}

func (f *fakeAPI) GetSyncHistory(ctx context.Context, cids []string, since time.Time) *call.Call[[]ws.Event] {
	return call.New(ctx, func(ctx context.Context) ([]ws.Event, error) {
		f.mu.Lock()
		f.syncCalls++
		events := f.syncEvents
		f.mu.Unlock()
		return events, nil
	})
}

func (f *fakeAPI) SendEvent(ctx context.Context, cid, eventType, parentID string) *call.Call[api.Empty] {
	return call.New(ctx, func(ctx context.Context) (api.Empty, error) { return api.Empty{}, nil })
}

func (f *fakeAPI) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sendMessages)
}

func newManagerEnv(t *testing.T, cfg config.SyncConfig) (*Manager, *fakeAPI, *dispatcherEnv) {
	t.Helper()
	env := newDispatcherEnv(t)
	fake := &fakeAPI{}
	manager := NewManager(fake, env.repos, env.registry, env.dispatcher, cfg)
	manager.SetCurrentUser("ben")
	return manager, fake, env
}

func seedFailedMessage(t *testing.T, env *dispatcherEnv, id string, deleted bool) {
	t.Helper()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	message := &models.Message{
		ID: id, CID: "messaging:genel", UserID: "ben", Text: "offline " + id,
		SyncStatus: models.SyncStatusFailed,
		CreatedAt:  base, UpdatedAt: base,
	}
	if deleted {
		deletedAt := base.Add(time.Minute)
		message.DeletedAt = &deletedAt
	}
	require.NoError(t, env.repos.Messages.Upsert(context.Background(), message))
}

func TestManagerRetryFailed(t *testing.T) {
	ctx := context.Background()
	cfg := config.SyncConfig{RecoveryEnabled: true, RetryMaxAttempts: 3}

	t.Run("failed message is resent and marked synced", func(t *testing.T) {
		manager, fake, env := newManagerEnv(t, cfg)
		env.seedChannel(t, "messaging:genel")
		seedFailedMessage(t, env, "m1", false)

		manager.RetryFailed(ctx)

		assert.Equal(t, []string{"m1"}, fake.sendMessages)
		cached, err := env.repos.Messages.GetByID(ctx, "m1")
		require.NoError(t, err)
		assert.Equal(t, models.SyncStatusSynced, cached.SyncStatus)
	})

	t.Run("tombstoned message retries as delete", func(t *testing.T) {
		manager, fake, env := newManagerEnv(t, cfg)
		env.seedChannel(t, "messaging:genel")
		seedFailedMessage(t, env, "m1", true)

		manager.RetryFailed(ctx)

		assert.Empty(t, fake.sendMessages, "tombstone yeniden GÖNDERİLMEZ")
		assert.Equal(t, []string{"m1"}, fake.deletedMessages)
	})

	t.Run("retry budget caps attempts, content survives", func(t *testing.T) {
		manager, fake, env := newManagerEnv(t, cfg)
		env.seedChannel(t, "messaging:genel")
		seedFailedMessage(t, env, "m1", false)
		fake.sendMessageErr = errors.New("network is down")

		for i := 0; i < cfg.RetryMaxAttempts+2; i++ {
			manager.RetryFailed(ctx)
		}

		assert.Equal(t, cfg.RetryMaxAttempts, fake.sentCount())

		cached, err := env.repos.Messages.GetByID(ctx, "m1")
		require.NoError(t, err)
		assert.Equal(t, models.SyncStatusFailed, cached.SyncStatus)
		assert.Equal(t, "offline m1", cached.Text, "bütçe bitse de içerik silinmez")
	})

	t.Run("permanent api error exhausts the budget immediately", func(t *testing.T) {
		manager, fake, env := newManagerEnv(t, cfg)
		env.seedChannel(t, "messaging:genel")
		seedFailedMessage(t, env, "m1", false)
		fake.sendMessageErr = &api.Error{Code: 4, Message: "message too large", StatusCode: 400}

		manager.RetryFailed(ctx)
		manager.RetryFailed(ctx)

		// Kalıcı hata tekrar denenmez — aynı cevap gelir.
		assert.Equal(t, 1, fake.sentCount())
	})

	t.Run("explicit reset reopens the budget", func(t *testing.T) {
		manager, fake, env := newManagerEnv(t, cfg)
		env.seedChannel(t, "messaging:genel")
		seedFailedMessage(t, env, "m1", false)
		fake.sendMessageErr = &api.Error{Code: 4, Message: "bad request", StatusCode: 400}

		manager.RetryFailed(ctx)
		require.Equal(t, 1, fake.sentCount())

		manager.ResetRetryBudget("message:m1")
		fake.mu.Lock()
		fake.sendMessageErr = nil
		fake.mu.Unlock()

		manager.RetryFailed(ctx)
		assert.Equal(t, 2, fake.sentCount())

		cached, err := env.repos.Messages.GetByID(ctx, "m1")
		require.NoError(t, err)
		assert.Equal(t, models.SyncStatusSynced, cached.SyncStatus)
	})
}

func TestManagerRecover(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cfg := config.SyncConfig{RecoveryEnabled: true, RetryMaxAttempts: 3}

	t.Run("rewatches active channels and replays history", func(t *testing.T) {
		manager, fake, env := newManagerEnv(t, cfg)
		env.seedChannel(t, "messaging:genel")
		channelState := env.registry.Channel("messaging:genel")

		// Son senkron noktası — replay buradan başlar.
		since := base
		require.NoError(t, env.repos.SyncState.Upsert(ctx, &models.SyncState{
			UserID: "ben", LastSyncedAt: &since, ActiveCIDs: []string{"messaging:genel"},
		}))

		fake.queryChannelResponse = api.ChannelPage{
			Channel: models.Channel{
				CID: "messaging:genel", Type: "messaging", ID: "genel", Name: "Genel",
				CreatedAt: base, UpdatedAt: base,
			},
			Messages: []models.Message{
				{ID: "snap-1", CID: "messaging:genel", UserID: "ayse", CreatedAt: base, UpdatedAt: base},
			},
		}
		fake.syncEvents = []ws.Event{
			newMessageEvent(ws.EventMessageNew, "messaging:genel", "kacirilan-1", "ayse", base.Add(time.Minute)),
		}

		require.NoError(t, manager.Recover(ctx))

		// Re-watch snapshot'ı controller'a indi.
		assert.Equal(t, 1, fake.queryChannelCalls)
		assert.Equal(t, "Genel", channelState.Channel.Get().Name)

		// Kaçırılan event dispatcher'dan geçti.
		assert.Equal(t, 1, fake.syncCalls)
		_, err := env.repos.Messages.GetByID(ctx, "kacirilan-1")
		assert.NoError(t, err)

		// Watermark ilerledi.
		syncState, err := env.repos.SyncState.GetByUserID(ctx, "ben")
		require.NoError(t, err)
		require.NotNil(t, syncState.LastSyncedAt)
		assert.True(t, syncState.LastSyncedAt.After(base))
	})

	t.Run("disabled recovery is a no-op", func(t *testing.T) {
		manager, fake, _ := newManagerEnv(t, config.SyncConfig{RecoveryEnabled: false, RetryMaxAttempts: 3})

		require.NoError(t, manager.Recover(ctx))
		assert.Zero(t, fake.queryChannelCalls)
		assert.Zero(t, fake.syncCalls)
	})

	t.Run("no sync point skips replay", func(t *testing.T) {
		manager, fake, env := newManagerEnv(t, cfg)
		env.seedChannel(t, "messaging:genel")
		env.registry.Channel("messaging:genel")
		fake.queryChannelResponse = api.ChannelPage{
			Channel: models.Channel{CID: "messaging:genel", Type: "messaging", ID: "genel", CreatedAt: base, UpdatedAt: base},
		}

		require.NoError(t, manager.Recover(ctx))
		assert.Zero(t, fake.syncCalls, "watermark yokken history istenmez")
	})
}
