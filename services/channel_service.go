package services

import (
	"context"
	"fmt"
	"log"

	"github.com/akinalp/chatkit/api"
	"github.com/akinalp/chatkit/models"
	"github.com/akinalp/chatkit/pkg"
	"github.com/akinalp/chatkit/repository"
	"github.com/akinalp/chatkit/state"
	"github.com/akinalp/chatkit/sync"
)

// ChannelService, kanal sorgulama ve izleme iş mantığı interface'i.
type ChannelService interface {
	QueryChannels(ctx context.Context, filter models.Filter, sort []models.SortField, limit int) (*state.QueryChannelsState, error)
	QueryChannelsLoadMore(ctx context.Context, query *state.QueryChannelsState, limit int) error
	WatchChannel(ctx context.Context, cid string) (*state.ChannelState, error)
	StopWatching(ctx context.Context, cid string) error
}

type channelService struct {
	api      api.ChatAPI
	repos    *repository.Repos
	registry *state.Registry
	global   *state.GlobalState
}

// NewChannelService, constructor.
func NewChannelService(chatAPI api.ChatAPI, repos *repository.Repos, registry *state.Registry, global *state.GlobalState) ChannelService {
	return &channelService{
		api:      chatAPI,
		repos:    repos,
		registry: registry,
		global:   global,
	}
}

// QueryChannels, canlı bir kanal-listesi sorgusu başlatır.
//
// Offline-first akış:
//  1. Aynı (filter, sort) için mevcut controller varsa o döner —
//     sorgu kimliği canonical key'dir, eş anlamlı iki filter aynı
//     controller'ı paylaşır.
//  2. Cache'teki son sonuç varsa HEMEN yayınlanır (offline açılış).
//  3. Network cevabı gelince liste server sonucuyla değiştirilir.
//
// limit <= 0 tam bir NO-OP'tur: network'e gidilmez, cache okunmaz,
// sadece controller döner. "Sorguyu kur ama henüz yükleme" çağrısıdır.
func (s *channelService) QueryChannels(ctx context.Context, filter models.Filter, sort []models.SortField, limit int) (*state.QueryChannelsState, error) {
	query := s.registry.Query(state.NewQueryChannelsState(filter, sort))
	if limit <= 0 {
		return query, nil
	}

	// 2. Cache'ten anında sonuç.
	if query.Len() == 0 {
		if spec, err := s.repos.QueryChannels.GetByKey(ctx, query.Key); err == nil {
			if cached, err := s.repos.Channels.GetByCIDs(ctx, spec.CIDs); err == nil && len(cached) > 0 {
				query.SetChannels(cached)
			}
		}
	}

	// 3. Network.
	result := s.api.QueryChannels(ctx, api.QueryChannelsRequest{
		Filter:        filter,
		Sort:          sort,
		Limit:         limit,
		MessagesLimit: 25,
		Watch:         true,
	}).Await(ctx)
	if result.Err != nil {
		// Cache'ten bir şey gösterebildiysek sorgu "başarılı ama bayat".
		if query.Len() > 0 {
			log.Printf("[services] query channels offline, serving cache: %v", result.Err)
			return query, nil
		}
		return nil, result.Err
	}

	channels := sync.HydrateQueryPage(ctx, s.repos, s.registry, result.Value)
	query.SetChannels(channels)
	query.SetHasMore(len(result.Value) >= limit)
	s.persistQuery(ctx, query)
	return query, nil
}

// QueryChannelsLoadMore, sorgunun sonraki sayfasını yükler.
// Eşzamanlı ikinci load more no-op'tur; server'da sayfa kalmadıysa
// network'e gidilmez.
func (s *channelService) QueryChannelsLoadMore(ctx context.Context, query *state.QueryChannelsState, limit int) error {
	if query == nil {
		return fmt.Errorf("%w: query state is nil", pkg.ErrValidation)
	}
	if limit <= 0 {
		limit = 30
	}
	if !query.HasMore() {
		return nil
	}
	if !query.TryBeginLoad() {
		return nil
	}
	defer query.EndLoad()

	result := s.api.QueryChannels(ctx, api.QueryChannelsRequest{
		Filter:        query.Filter,
		Sort:          query.Sort,
		Limit:         limit,
		Offset:        query.Len(),
		MessagesLimit: 25,
		Watch:         true,
	}).Await(ctx)
	if result.Err != nil {
		return result.Err
	}

	channels := sync.HydrateQueryPage(ctx, s.repos, s.registry, result.Value)
	query.AppendChannels(channels)
	query.SetHasMore(len(result.Value) >= limit)
	s.persistQuery(ctx, query)
	return nil
}

// WatchChannel, kanalı izlemeye başlar: controller açılır, cache'teki
// veri hemen yayınlanır, server snapshot'ı gelince üstüne yazılır.
// Network hatası izlemeyi BOZMAZ — kanal offline modda cache'ten çalışır.
func (s *channelService) WatchChannel(ctx context.Context, cid string) (*state.ChannelState, error) {
	if _, _, err := models.ParseCID(cid); err != nil {
		return nil, fmt.Errorf("%w: %v", pkg.ErrValidation, err)
	}

	channelState := s.registry.Channel(cid)

	// Cache'ten anında doldur.
	s.populateFromCache(ctx, channelState)

	// Server snapshot + watch aboneliği.
	result := s.api.QueryChannel(ctx, cid, api.QueryChannelRequest{
		MessagesLimit: 25,
		Watch:         true,
	}).Await(ctx)
	if result.Err != nil {
		log.Printf("[services] watch channel %s offline, serving cache: %v", cid, result.Err)
		s.persistActiveCIDs(ctx)
		return channelState, nil
	}

	if err := sync.HydrateChannelPage(ctx, s.repos, channelState, result.Value, true); err != nil {
		return nil, err
	}
	s.persistActiveCIDs(ctx)
	return channelState, nil
}

// StopWatching, kanalın izlemesini bırakır ve controller'ını kapatır.
func (s *channelService) StopWatching(ctx context.Context, cid string) error {
	if _, _, err := models.ParseCID(cid); err != nil {
		return fmt.Errorf("%w: %v", pkg.ErrValidation, err)
	}
	s.registry.RemoveChannel(cid)
	s.persistActiveCIDs(ctx)
	return nil
}

// populateFromCache, controller'ı lokal cache'ten doldurur —
// network beklenmeden UI'da veri görünür.
func (s *channelService) populateFromCache(ctx context.Context, channelState *state.ChannelState) {
	cid := channelState.CID

	if channel, err := s.repos.Channels.GetByCID(ctx, cid); err == nil {
		channelState.SetChannel(*channel)
	}
	if members, err := s.repos.Members.GetByCID(ctx, cid); err == nil && len(members) > 0 {
		channelState.SetMembers(members)
	}
	if reads, err := s.repos.Reads.GetByCID(ctx, cid); err == nil && len(reads) > 0 {
		channelState.SetReads(reads)
	}
	if messages, err := s.repos.Messages.GetByCID(ctx, cid, "", 50); err == nil && len(messages) > 0 {
		channelState.SetMessages(messages)
	}
}

// persistActiveCIDs, izlenen kanal listesini sync state'e yazar —
// reconnect recovery bu listeyi re-watch eder.
func (s *channelService) persistActiveCIDs(ctx context.Context) {
	currentUser := s.global.User.Get()
	if currentUser.ID == "" {
		return
	}

	syncState, err := s.repos.SyncState.GetByUserID(ctx, currentUser.ID)
	if err != nil {
		syncState = &models.SyncState{UserID: currentUser.ID}
	}
	syncState.ActiveCIDs = s.registry.ActiveCIDs()
	if err := s.repos.SyncState.Upsert(ctx, syncState); err != nil {
		log.Printf("[services] failed to persist active channels: %v", err)
	}
}

// persistQuery, sorgunun güncel cid listesini cache'e yazar.
func (s *channelService) persistQuery(ctx context.Context, query *state.QueryChannelsState) {
	spec := &models.QueryChannelsSpec{
		Filter: query.Filter,
		Sort:   query.Sort,
		CIDs:   query.CIDs(),
	}
	if err := s.repos.QueryChannels.Upsert(ctx, spec); err != nil {
		log.Printf("[services] failed to persist query %s: %v", query.Key, err)
	}
}
