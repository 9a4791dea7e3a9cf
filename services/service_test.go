package services

import (
	"context"
	"io/fs"
	"path/filepath"
	gosync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/akinalp/chatkit/api"
	"github.com/akinalp/chatkit/database"
	"github.com/akinalp/chatkit/models"
	"github.com/akinalp/chatkit/pkg/call"
	"github.com/akinalp/chatkit/repository"
	"github.com/akinalp/chatkit/state"
	"github.com/akinalp/chatkit/ws"
)

// fakeChatAPI, servis testleri için elle yazılmış ChatAPI fake'i.
//
// failWith doluysa her network call o hatayla döner — "offline" senaryosu.
// Sayaçlar hangi metodun kaç kez network'e çıktığını doğrulamak içindir.
type fakeChatAPI struct {
	mu       gosync.Mutex
	failWith error

	sendMessageCalls   int
	queryChannelCalls  int
	queryChannelsCalls int
	markReadCalls      int
	markAllReadCalls   int
	sentEventTypes     []string
	sentEventParents   []string

	queryChannelResponse  api.ChannelPage
	queryChannelsResponse []api.ChannelPage
}

func (f *fakeChatAPI) setError(err error) {
	f.mu.Lock()
	f.failWith = err
	f.mu.Unlock()
}

func (f *fakeChatAPI) currentError() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failWith
}

func (f *fakeChatAPI) SendMessage(ctx context.Context, cid string, message *models.Message) *call.Call[models.Message] {
	msg := *message
	return call.New(ctx, func(ctx context.Context) (models.Message, error) {
		f.mu.Lock()
		f.sendMessageCalls++
		err := f.failWith
		f.mu.Unlock()
		if err != nil {
			return models.Message{}, err
		}
		// Server, client ID'sini korur ve kendi zaman damgasını basar.
		msg.SyncStatus = models.SyncStatusSynced
		msg.UpdatedAt = msg.UpdatedAt.Add(time.Millisecond)
		return msg, nil
	})
}

func (f *fakeChatAPI) EditMessage(ctx context.Context, message *models.Message) *call.Call[models.Message] {
	msg := *message
	return call.New(ctx, func(ctx context.Context) (models.Message, error) {
		if err := f.currentError(); err != nil {
			return models.Message{}, err
		}
		return msg, nil
	})
}

func (f *fakeChatAPI) DeleteMessage(ctx context.Context, messageID string) *call.Call[models.Message] {
	return call.New(ctx, func(ctx context.Context) (models.Message, error) {
		if err := f.currentError(); err != nil {
			return models.Message{}, err
		}
		return models.Message{ID: messageID}, nil
	})
}

func (f *fakeChatAPI) SendReaction(ctx context.Context, reaction *models.Reaction) *call.Call[models.Reaction] {
	r := *reaction
	return call.New(ctx, func(ctx context.Context) (models.Reaction, error) {
		if err := f.currentError(); err != nil {
			return models.Reaction{}, err
		}
		return r, nil
	})
}

func (f *fakeChatAPI) DeleteReaction(ctx context.Context, messageID, reactionType string) *call.Call[models.Reaction] {
	return call.New(ctx, func(ctx context.Context) (models.Reaction, error) {
		if err := f.currentError(); err != nil {
			return models.Reaction{}, err
		}
		return models.Reaction{MessageID: messageID, Type: reactionType}, nil
	})
}

func (f *fakeChatAPI) MarkRead(ctx context.Context, cid, messageID string) *call.Call[api.Empty] {
	return call.New(ctx, func(ctx context.Context) (api.Empty, error) {
		f.mu.Lock()
		f.markReadCalls++
		err := f.failWith
		f.mu.Unlock()
		return api.Empty{}, err
	})
}

func (f *fakeChatAPI) MarkAllRead(ctx context.Context) *call.Call[api.Empty] {
	return call.New(ctx, func(ctx context.Context) (api.Empty, error) {
		f.mu.Lock()
		f.markAllReadCalls++
		err := f.failWith
		f.mu.Unlock()
		return api.Empty{}, err
	})
}

func (f *fakeChatAPI) QueryChannel(ctx context.Context, cid string, req api.QueryChannelRequest) *call.Call[api.ChannelPage] {
	return call.New(ctx, func(ctx context.Context) (api.ChannelPage, error) {
		f.mu.Lock()
		f.queryChannelCalls++
		err := f.failWith
		page := f.queryChannelResponse
		f.mu.Unlock()
		if err != nil {
			return api.ChannelPage{}, err
		}
		return page, nil
	})
}

func (f *fakeChatAPI) QueryChannels(ctx context.Context, req api.QueryChannelsRequest) *call.Call[[]api.ChannelPage] {
	return call.New(ctx, func(ctx context.Context) ([]api.ChannelPage, error) {
		f.mu.Lock()
		f.queryChannelsCalls++
		err := f.failWith
		pages := f.queryChannelsResponse
		f.mu.Unlock()
		if err != nil {
			return nil, err
		}
		return pages, nil
	})
}

func (f *fakeChatAPI) GetReplies(ctx context.Context, parentID string, limit int) *call.Call[[]models.Message] {
	return call.New(ctx, func(ctx context.Context) ([]models.Message, error) {
		if err := f.currentError(); err != nil {
			return nil, err
		}
		return nil, nil
	})
}

func (f *fakeChatAPI) GetSyncHistory(ctx context.Context, cids []string, since time.Time) *call.Call[[]ws.Event] {
	return call.New(ctx, func(ctx context.Context) ([]ws.Event, error) {
		if err := f.currentError(); err != nil {
			return nil, err
		}
		return nil, nil
	})
}

func (f *fakeChatAPI) SendEvent(ctx context.Context, cid, eventType, parentID string) *call.Call[api.Empty] {
	return call.New(ctx, func(ctx context.Context) (api.Empty, error) {
		f.mu.Lock()
		f.sentEventTypes = append(f.sentEventTypes, eventType)
		f.sentEventParents = append(f.sentEventParents, parentID)
		err := f.failWith
		f.mu.Unlock()
		return api.Empty{}, err
	})
}

// serviceEnv, gerçek SQLite cache + fake network ile servis test ortamı.
type serviceEnv struct {
	fake     *fakeChatAPI
	repos    *repository.Repos
	registry *state.Registry
	global   *state.GlobalState
}

func newServiceEnv(t *testing.T) *serviceEnv {
	t.Helper()

	migrations, err := fs.Sub(database.EmbeddedMigrations, "migrations")
	require.NoError(t, err)

	db, err := database.New(filepath.Join(t.TempDir(), "cache.db"), migrations)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	global := state.NewGlobalState()
	global.User.Set(models.User{ID: "ben", Name: "Ben"})

	return &serviceEnv{
		fake:     &fakeChatAPI{},
		repos:    repository.NewSQLiteRepos(db.Conn),
		registry: state.NewRegistry(10 * time.Second),
		global:   global,
	}
}

func (e *serviceEnv) seedChannel(t *testing.T, cid string) {
	t.Helper()
	channelType, channelID, err := models.ParseCID(cid)
	require.NoError(t, err)

	now := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, e.repos.Channels.Upsert(context.Background(), &models.Channel{
		CID: cid, Type: channelType, ID: channelID, CreatedAt: now, UpdatedAt: now,
	}))
}

func (e *serviceEnv) seedMessage(t *testing.T, id, cid string, createdAt time.Time) {
	t.Helper()
	require.NoError(t, e.repos.Messages.Upsert(context.Background(), &models.Message{
		ID: id, CID: cid, UserID: "ayse", Text: "mesaj " + id,
		CreatedAt: createdAt, UpdatedAt: createdAt,
	}))
}
