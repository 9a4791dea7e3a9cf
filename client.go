// Package chatkit, offline-first bir chat client SDK'sıdır.
//
// Client, tüm katmanları birbirine bağlayan kompozisyon köküdür:
// lokal SQLite cache (database + repository), REST client (api),
// WebSocket event kaynağı (ws), reaktif state (state), senkronizasyon
// motoru (sync) ve use-case servisleri (services).
//
// Tipik kullanım:
//
//	cfg, _ := config.Load()
//	client, _ := chatkit.New(cfg)
//	client.ConnectUser(ctx, user, token)
//	channel, _ := client.Channels.WatchChannel(ctx, "messaging:general")
//	messages, unsub := channel.Messages.Subscribe()
package chatkit

import (
	"context"
	"fmt"
	"io/fs"
	"log"

	"github.com/akinalp/chatkit/api"
	"github.com/akinalp/chatkit/config"
	"github.com/akinalp/chatkit/database"
	"github.com/akinalp/chatkit/models"
	"github.com/akinalp/chatkit/pkg"
	"github.com/akinalp/chatkit/pkg/throttle"
	"github.com/akinalp/chatkit/repository"
	"github.com/akinalp/chatkit/services"
	"github.com/akinalp/chatkit/state"
	"github.com/akinalp/chatkit/sync"
	"github.com/akinalp/chatkit/ws"
)

// Client, SDK'nın ana giriş noktası.
//
// Servisler public alanlardır — kullanıcı use-case'lere doğrudan erişir:
// client.Messages.SendMessage(...), client.Channels.WatchChannel(...).
// Global, bağlantı durumu ve unread sayaçları gibi SDK-geneli reaktif
// hücreleri taşır.
type Client struct {
	cfg *config.Config

	db       *database.DB
	repos    *repository.Repos
	httpAPI  *api.HTTPClient
	chatAPI  api.ChatAPI
	conn     *ws.Connection
	registry *state.Registry
	throttle *throttle.Throttle

	dispatcher *sync.Dispatcher
	manager    *sync.Manager

	Global *state.GlobalState

	Messages  services.MessageService
	Reactions services.ReactionService
	Reads     services.ReadService
	Typing    services.TypingService
	Channels  services.ChannelService

	dispatchCancel context.CancelFunc
	connected      bool
}

// New, tüm katmanları kurar ve bağlar. Network'e DOKUNMAZ —
// bağlantı ConnectUser ile kurulur.
func New(cfg *config.Config) (*Client, error) {
	migrations, err := fs.Sub(database.EmbeddedMigrations, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to load embedded migrations: %w", err)
	}

	db, err := database.New(cfg.Cache.Path, migrations)
	if err != nil {
		return nil, err
	}

	repos := repository.NewSQLiteRepos(db.Conn)
	registry := state.NewRegistry(cfg.Typing.Timeout)
	global := state.NewGlobalState()

	httpAPI := api.NewHTTPClient(cfg.API)
	chatAPI := api.NewDistinctAPI(httpAPI)

	dispatcher := sync.NewDispatcher(db.Conn, repos, registry, global)
	manager := sync.NewManager(chatAPI, repos, registry, dispatcher, cfg.Sync)

	client := &Client{
		cfg:        cfg,
		db:         db,
		repos:      repos,
		httpAPI:    httpAPI,
		chatAPI:    chatAPI,
		registry:   registry,
		throttle:   throttle.New(cfg.Typing.ThrottleWindow),
		dispatcher: dispatcher,
		manager:    manager,
		Global:     global,
		Messages:   services.NewMessageService(chatAPI, repos, registry, global),
		Reactions:  services.NewReactionService(chatAPI, repos, registry, global),
		Reads:      services.NewReadService(chatAPI, repos, registry, global),
		Channels:   services.NewChannelService(chatAPI, repos, registry, global),
	}
	client.Typing = services.NewTypingService(chatAPI, client.throttle)

	client.conn = ws.NewConnection(cfg.Socket, client.onConnectionState)
	return client, nil
}

// onConnectionState, socket durum değişimlerini state'e yansıtır ve
// reconnect sonrası recovery'yi tetikler.
func (c *Client) onConnectionState(connState ws.ConnectionState) {
	c.Global.Connection.Set(connState)

	if connState == ws.StateRecovering {
		go func() {
			if err := c.manager.Recover(context.Background()); err != nil {
				log.Printf("[chatkit] recovery failed: %v", err)
			}
			c.conn.MarkRecovered()
		}()
	}
}

// ConnectUser, kullanıcıyı bağlar: token doğrulanır, socket açılır,
// event dispatcher başlar ve ilk recovery (önceki oturumdan kalan
// event replay'i + failed retry) arka planda çalışır.
func (c *Client) ConnectUser(ctx context.Context, user models.User, token string) error {
	if c.connected {
		return fmt.Errorf("%w: already connected, call Disconnect first", pkg.ErrValidation)
	}
	if user.ID == "" {
		return fmt.Errorf("%w: user id is required", pkg.ErrValidation)
	}

	// Token'daki user_id ile verilen user tutarlı olmalı — başka
	// kullanıcının token'ı ile bağlanma hatası erken yakalanır.
	tokenUserID, err := api.UserIDFromToken(token)
	if err != nil {
		return err
	}
	if tokenUserID != user.ID {
		return fmt.Errorf("%w: token belongs to user %q, not %q", pkg.ErrValidation, tokenUserID, user.ID)
	}

	c.httpAPI.SetToken(token)
	c.Global.User.Set(user)
	c.dispatcher.SetCurrentUser(user.ID)
	c.manager.SetCurrentUser(user.ID)

	if err := c.repos.Users.UpsertMany(ctx, []models.User{user}); err != nil {
		return err
	}

	if err := c.conn.Connect(ctx, c.cfg.API.Key, token, user.ID); err != nil {
		return err
	}

	dispatchCtx, cancel := context.WithCancel(context.Background())
	c.dispatchCancel = cancel
	go c.dispatcher.Run(dispatchCtx, c.conn.Events())

	// Önceki oturumdan kalanlar: kaçırılan event'ler + failed mutation'lar.
	go func() {
		if err := c.manager.Recover(context.Background()); err != nil {
			log.Printf("[chatkit] initial recovery failed: %v", err)
		}
	}()

	c.connected = true
	log.Printf("[chatkit] connected as %s", user.ID)
	return nil
}

// Disconnect, socket'i kapatır ve canlı state'i düşürür.
// Lokal cache KALIR — bir sonraki ConnectUser offline veriyle açılır.
func (c *Client) Disconnect() error {
	if !c.connected {
		return pkg.ErrNotConnected
	}

	err := c.conn.Close()
	if c.dispatchCancel != nil {
		c.dispatchCancel()
	}
	c.registry.Clear()
	c.Global.User.Set(models.User{})
	c.connected = false

	// Yeni bağlantı için taze Connection — kapanan instance yeniden
	// kullanılamaz (closed channel'ları vardır).
	c.conn = ws.NewConnection(c.cfg.Socket, c.onConnectionState)

	log.Printf("[chatkit] disconnected")
	return err
}

// Close, SDK'yı komple kapatır: bağlantı, throttle ve cache veritabanı.
func (c *Client) Close() error {
	if c.connected {
		if err := c.Disconnect(); err != nil {
			log.Printf("[chatkit] disconnect during close: %v", err)
		}
	}
	c.throttle.Close()
	return c.db.Close()
}

// HandlePushMessage, push notification ile gelen mesajı cache'e indirir.
//
// Uygulama arka plandayken socket kapalıdır — push payload'ı sadece
// (cid, message_id) taşır. Bu metod mesajı ve kanalını backend'den
// çekip cache'e yazar; kullanıcı uygulamayı açtığında mesaj zaten
// lokaldedir. IDEMPOTENT: mesaj cache'te varsa network'e gidilmez.
func (c *Client) HandlePushMessage(ctx context.Context, cid, messageID string) error {
	if _, _, err := models.ParseCID(cid); err != nil {
		return fmt.Errorf("%w: %v", pkg.ErrValidation, err)
	}
	if messageID == "" {
		return fmt.Errorf("%w: message id is required", pkg.ErrValidation)
	}

	if _, err := c.repos.Messages.GetByID(ctx, messageID); err == nil {
		return nil // Zaten cache'te
	}

	result := c.chatAPI.QueryChannel(ctx, cid, api.QueryChannelRequest{
		MessagesLimit: 25,
	}).Await(ctx)
	if result.Err != nil {
		return result.Err
	}

	page := result.Value
	channel := page.Channel
	if err := c.repos.Channels.Upsert(ctx, &channel); err != nil {
		return err
	}
	for i := range page.Messages {
		message := page.Messages[i]
		message.CID = channel.CID
		message.SyncStatus = models.SyncStatusSynced
		if err := c.repos.Messages.Upsert(ctx, &message); err != nil {
			return err
		}
	}
	return nil
}
