package services

import (
	"context"
	"fmt"
	"time"

	"github.com/akinalp/chatkit/api"
	"github.com/akinalp/chatkit/models"
	"github.com/akinalp/chatkit/pkg"
	"github.com/akinalp/chatkit/pkg/call"
	"github.com/akinalp/chatkit/repository"
	"github.com/akinalp/chatkit/state"
)

// ReadService, okuma durumu (watermark) iş mantığı interface'i.
type ReadService interface {
	MarkRead(ctx context.Context, cid string) *call.Call[bool]
	MarkAllRead(ctx context.Context) *call.Call[api.Empty]
}

type readService struct {
	api      api.ChatAPI
	repos    *repository.Repos
	registry *state.Registry
	global   *state.GlobalState
}

// NewReadService, constructor.
func NewReadService(chatAPI api.ChatAPI, repos *repository.Repos, registry *state.Registry, global *state.GlobalState) ReadService {
	return &readService{
		api:      chatAPI,
		repos:    repos,
		registry: registry,
		global:   global,
	}
}

// MarkRead, kanalı current user için okundu işaretler.
//
// Okunmamış bir şey YOKSA hiçbir şey yapılmaz ve false döner — UI her
// scroll'da MarkRead çağırır, gereksiz network trafiği burada kesilir.
// Varsa: watermark optimistic ilerletilir, sonra server'a bildirilir.
func (s *readService) MarkRead(ctx context.Context, cid string) *call.Call[bool] {
	return call.New(ctx, func(ctx context.Context) (bool, error) {
		if _, _, err := models.ParseCID(cid); err != nil {
			return false, fmt.Errorf("%w: %v", pkg.ErrValidation, err)
		}

		currentUser := s.global.User.Get()
		if !s.hasUnread(ctx, cid, currentUser.ID) {
			return false, nil
		}

		now := time.Now()

		// Optimistic: watermark ileri, unread sıfır.
		read := &models.ChannelUserRead{
			CID:      cid,
			UserID:   currentUser.ID,
			LastRead: now,
		}
		if err := s.repos.Reads.Upsert(ctx, read); err != nil {
			return false, err
		}
		if channelState, ok := s.registry.GetChannel(cid); ok {
			channelState.ApplyRead(currentUser.ID, now)
		}

		result := s.api.MarkRead(ctx, cid, "").Await(ctx)
		if result.Err != nil {
			// Watermark geri alınmaz — server eninde sonunda
			// notification.mark_read ile hizalar.
			return true, result.Err
		}
		return true, nil
	})
}

// MarkAllRead, TÜM kanalları okundu işaretler.
// Aynı optimistic-sonra-reconcile politikası: izlenen her kanalın
// watermark'ı lokal ilerletilir, global sayaçlar sıfırlanır, sonra tek
// API çağrısı yapılır.
func (s *readService) MarkAllRead(ctx context.Context) *call.Call[api.Empty] {
	return call.New(ctx, func(ctx context.Context) (api.Empty, error) {
		currentUser := s.global.User.Get()
		now := time.Now()

		for _, cid := range s.registry.ActiveCIDs() {
			read := &models.ChannelUserRead{
				CID:      cid,
				UserID:   currentUser.ID,
				LastRead: now,
			}
			if err := s.repos.Reads.Upsert(ctx, read); err != nil {
				return api.Empty{}, err
			}
			if channelState, ok := s.registry.GetChannel(cid); ok {
				channelState.ApplyRead(currentUser.ID, now)
			}
		}

		s.global.TotalUnreadCount.Set(0)
		s.global.UnreadChannels.Set(0)

		result := s.api.MarkAllRead(ctx).Await(ctx)
		return api.Empty{}, result.Err
	})
}

// hasUnread, kanalda current user için okunmamış bir şey olup
// olmadığını döner. İki kaynak kontrol edilir: unread sayacı ve
// kanalın son mesajı ile watermark karşılaştırması.
func (s *readService) hasUnread(ctx context.Context, cid, userID string) bool {
	read, err := s.repos.Reads.Get(ctx, cid, userID)
	if err != nil {
		// Hiç read kaydı yok — kanalda mesaj varsa okunmamıştır.
		channel, chErr := s.repos.Channels.GetByCID(ctx, cid)
		return chErr == nil && channel.LastMessageAt != nil
	}

	if read.UnreadMessages > 0 {
		return true
	}

	channel, err := s.repos.Channels.GetByCID(ctx, cid)
	if err != nil || channel.LastMessageAt == nil {
		return false
	}
	return channel.LastMessageAt.After(read.LastRead)
}
