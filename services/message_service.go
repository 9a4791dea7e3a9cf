// Package services, SDK'nın use-case katmanını içerir.
//
// Her servis bir interface + constructor injection ile kurulan somut
// struct'tır. Servisler api.ChatAPI interface'ine bağımlıdır, somut
// HTTP client'a değil — testlerde elle yazılmış fake ile değiştirilir.
//
// Optimistic mutation deseni tüm mutation servislerinde aynıdır:
//  1. Validate — bozuk girdi network'e ULAŞMAZ (pkg.ErrValidation)
//  2. Lokal yaz — pending olarak cache + state (UI anında güncellenir)
//  3. Network — API call
//  4. Reconcile — başarıda server alanları merge edilir (synced),
//     hatada entity failed işaretlenir ama İÇERİK KORUNUR
package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/akinalp/chatkit/api"
	"github.com/akinalp/chatkit/models"
	"github.com/akinalp/chatkit/pkg"
	"github.com/akinalp/chatkit/pkg/call"
	"github.com/akinalp/chatkit/repository"
	"github.com/akinalp/chatkit/state"
)

// mentionRegex, mesaj metnindeki @isim kalıplarını bulur.
//
// @        — literal @ karakteri (mention başlangıcı)
// (\w+)    — bir veya daha fazla kelime karakteri (harf, rakam, _)
//
// False positive'ler (email@test.com → "test") kanal üyesi lookup'ı ile
// elenir — üye adıyla eşleşmeyen token mention değildir.
var mentionRegex = regexp.MustCompile(`@(\w+)`)

// MessageService, mesaj iş mantığı interface'i.
//
// Mutation'lar *call.Call döner — optimistic yazma dahil tüm akış call
// tetiklendiğinde çalışır. Okumalar senkrondur.
type MessageService interface {
	SendMessage(ctx context.Context, cid, text string, parentID string) *call.Call[models.Message]
	EditMessage(ctx context.Context, messageID, text string) *call.Call[models.Message]
	DeleteMessage(ctx context.Context, messageID string) *call.Call[models.Message]

	LoadOlderMessages(ctx context.Context, cid string, limit int) ([]models.Message, error)
	LoadNewerMessages(ctx context.Context, cid string, limit int) ([]models.Message, error)
	GetReplies(ctx context.Context, parentID string, limit int) ([]models.Message, error)
}

type messageService struct {
	api      api.ChatAPI
	repos    *repository.Repos
	registry *state.Registry
	global   *state.GlobalState
}

// NewMessageService, constructor.
func NewMessageService(chatAPI api.ChatAPI, repos *repository.Repos, registry *state.Registry, global *state.GlobalState) MessageService {
	return &messageService{
		api:      chatAPI,
		repos:    repos,
		registry: registry,
		global:   global,
	}
}

// SendMessage, optimistic mesaj gönderimi.
//
// Mesaj ID'si CLIENT tarafında üretilir (UUID) ve server tarafından
// korunur — reconcile'da id swap yoktur, dedup her katmanda bu id ile
// çalışır. Offline'da bile mesaj anında listede görünür (pending);
// network hatası mesajı SİLMEZ, failed işaretler.
func (s *messageService) SendMessage(ctx context.Context, cid, text string, parentID string) *call.Call[models.Message] {
	return call.New(ctx, func(ctx context.Context) (models.Message, error) {
		if _, _, err := models.ParseCID(cid); err != nil {
			return models.Message{}, fmt.Errorf("%w: %v", pkg.ErrValidation, err)
		}
		if strings.TrimSpace(text) == "" {
			return models.Message{}, fmt.Errorf("%w: message text is empty", pkg.ErrValidation)
		}

		currentUser := s.global.User.Get()
		now := time.Now()

		message := models.Message{
			ID:               uuid.NewString(),
			CID:              cid,
			UserID:           currentUser.ID,
			User:             &currentUser,
			Text:             text,
			MentionedUserIDs: s.resolveMentions(ctx, cid, text),
			SyncStatus:       models.SyncStatusPending,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if parentID != "" {
			message.ParentID = &parentID
		}

		// Optimistic: önce lokal.
		if err := s.repos.Messages.Upsert(ctx, &message); err != nil {
			return models.Message{}, err
		}
		if channelState, ok := s.registry.GetChannel(cid); ok {
			channelState.UpsertMessage(message)
		}

		// Network + reconcile.
		result := s.api.SendMessage(ctx, cid, &message).Await(ctx)
		return s.reconcileMessage(ctx, message, result)
	})
}

// EditMessage, mevcut mesajın metnini optimistic günceller.
func (s *messageService) EditMessage(ctx context.Context, messageID, text string) *call.Call[models.Message] {
	return call.New(ctx, func(ctx context.Context) (models.Message, error) {
		if strings.TrimSpace(text) == "" {
			return models.Message{}, fmt.Errorf("%w: message text is empty", pkg.ErrValidation)
		}

		existing, err := s.repos.Messages.GetByID(ctx, messageID)
		if err != nil {
			return models.Message{}, err
		}

		message := *existing
		message.Text = text
		message.MentionedUserIDs = s.resolveMentions(ctx, message.CID, text)
		message.SyncStatus = models.SyncStatusPending
		message.UpdatedAt = time.Now()

		if err := s.repos.Messages.Upsert(ctx, &message); err != nil {
			return models.Message{}, err
		}
		if channelState, ok := s.registry.GetChannel(message.CID); ok {
			channelState.UpsertMessage(message)
		}

		result := s.api.EditMessage(ctx, &message).Await(ctx)
		return s.reconcileMessage(ctx, message, result)
	})
}

// DeleteMessage, mesajı optimistic olarak tombstone'a çevirir.
// Failed olursa tombstone kalır — recovery retry'ı delete'i tamamlar.
func (s *messageService) DeleteMessage(ctx context.Context, messageID string) *call.Call[models.Message] {
	return call.New(ctx, func(ctx context.Context) (models.Message, error) {
		existing, err := s.repos.Messages.GetByID(ctx, messageID)
		if err != nil {
			return models.Message{}, err
		}

		message := *existing
		now := time.Now()
		message.DeletedAt = &now
		message.SyncStatus = models.SyncStatusPending
		message.UpdatedAt = now

		if err := s.repos.Messages.Upsert(ctx, &message); err != nil {
			return models.Message{}, err
		}
		if channelState, ok := s.registry.GetChannel(message.CID); ok {
			channelState.UpsertMessage(message)
		}

		result := s.api.DeleteMessage(ctx, messageID).Await(ctx)
		return s.reconcileMessage(ctx, message, result)
	})
}

// reconcileMessage, network sonucunu lokal mesajla birleştirir.
//
// Başarı: server'ın döndüğü mesaj (aggregate'ler, server zaman
// damgaları) synced olarak yazılır.
// Hata: mesaj failed işaretlenir, içerik olduğu gibi korunur.
func (s *messageService) reconcileMessage(ctx context.Context, local models.Message, result call.Result[models.Message]) (models.Message, error) {
	if result.Err != nil {
		local.SyncStatus = models.SyncStatusFailed
		if err := s.repos.Messages.Upsert(ctx, &local); err != nil {
			return models.Message{}, errors.Join(result.Err, err)
		}
		if channelState, ok := s.registry.GetChannel(local.CID); ok {
			channelState.UpsertMessage(local)
		}
		return models.Message{}, result.Err
	}

	synced := result.Value
	if synced.ID == "" {
		synced.ID = local.ID
	}
	if synced.CID == "" {
		synced.CID = local.CID
	}
	synced.SyncStatus = models.SyncStatusSynced

	if err := s.repos.Messages.Upsert(ctx, &synced); err != nil {
		return models.Message{}, err
	}
	if channelState, ok := s.registry.GetChannel(synced.CID); ok {
		channelState.UpsertMessage(synced)
	}
	return synced, nil
}

// LoadOlderMessages, kanalın en eski yüklü mesajından geriye bir sayfa
// yükler. Network-first: önce server denenir; ulaşılamazsa lokal cache
// sayfası döner (offline scroll).
func (s *messageService) LoadOlderMessages(ctx context.Context, cid string, limit int) ([]models.Message, error) {
	channelState, ok := s.registry.GetChannel(cid)
	if !ok {
		return nil, fmt.Errorf("%w: channel %s is not watched", pkg.ErrValidation, cid)
	}
	if limit <= 0 {
		limit = 25
	}
	if channelState.EndReached() {
		return nil, nil
	}

	cursor := channelState.OldestMessageID()

	result := s.api.QueryChannel(ctx, cid, api.QueryChannelRequest{
		MessagesLimit: limit,
		Before:        cursor,
	}).Await(ctx)
	if result.Err == nil {
		page := result.Value.Messages
		for i := range page {
			message := page[i]
			message.CID = cid
			message.SyncStatus = models.SyncStatusSynced
			if err := s.repos.Messages.Upsert(ctx, &message); err != nil {
				return nil, err
			}
		}
		channelState.MergeMessages(page)
		if len(page) < limit {
			channelState.SetEndReached(true)
		}
		return page, nil
	}

	// Network yok — lokal cache'ten devam.
	cached, err := s.repos.Messages.GetByCID(ctx, cid, cursor, limit)
	if err != nil {
		return nil, err
	}
	channelState.MergeMessages(cached)
	return cached, nil
}

// LoadNewerMessages, derin geçmişten güncele doğru bir sayfa yükler.
func (s *messageService) LoadNewerMessages(ctx context.Context, cid string, limit int) ([]models.Message, error) {
	channelState, ok := s.registry.GetChannel(cid)
	if !ok {
		return nil, fmt.Errorf("%w: channel %s is not watched", pkg.ErrValidation, cid)
	}
	if limit <= 0 {
		limit = 25
	}

	cursor := channelState.NewestMessageID()
	if cursor == "" {
		return nil, nil
	}

	result := s.api.QueryChannel(ctx, cid, api.QueryChannelRequest{
		MessagesLimit: limit,
		After:         cursor,
	}).Await(ctx)
	if result.Err == nil {
		page := result.Value.Messages
		for i := range page {
			message := page[i]
			message.CID = cid
			message.SyncStatus = models.SyncStatusSynced
			if err := s.repos.Messages.Upsert(ctx, &message); err != nil {
				return nil, err
			}
		}
		channelState.MergeMessages(page)
		return page, nil
	}

	cached, err := s.repos.Messages.GetAfter(ctx, cid, cursor, limit)
	if err != nil {
		return nil, err
	}
	channelState.MergeMessages(cached)
	return cached, nil
}

// GetReplies, bir thread'in yanıtlarını getirir. Network-first;
// offline'da cache'teki yanıtlar döner. Eşzamanlı aynı istekler
// distinct katmanında dedup edilir.
func (s *messageService) GetReplies(ctx context.Context, parentID string, limit int) ([]models.Message, error) {
	if parentID == "" {
		return nil, fmt.Errorf("%w: parent message id is empty", pkg.ErrValidation)
	}
	if limit <= 0 {
		limit = 25
	}

	result := s.api.GetReplies(ctx, parentID, limit).Await(ctx)
	if result.Err == nil {
		for i := range result.Value {
			reply := result.Value[i]
			reply.SyncStatus = models.SyncStatusSynced
			if err := s.repos.Messages.Upsert(ctx, &reply); err != nil {
				return nil, err
			}
		}
		return result.Value, nil
	}

	return s.repos.Messages.GetByParentID(ctx, parentID, limit)
}

// resolveMentions, metindeki @isim token'larını kanal üyeleriyle
// eşleştirip user id listesi üretir. Üye adıyla eşleşmeyen token
// mention sayılmaz. Eşleşme case-insensitive'dir.
func (s *messageService) resolveMentions(ctx context.Context, cid, text string) []string {
	matches := mentionRegex.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	var members []models.Member
	if channelState, ok := s.registry.GetChannel(cid); ok {
		members = channelState.GetMembers()
	} else if cached, err := s.repos.Members.GetByCID(ctx, cid); err == nil {
		members = cached
	}
	if len(members) == 0 {
		return nil
	}

	byName := make(map[string]string, len(members))
	for _, member := range members {
		if member.User != nil && member.User.Name != "" {
			byName[strings.ToLower(member.User.Name)] = member.UserID
		}
	}

	var ids []string
	seen := make(map[string]bool)
	for _, match := range matches {
		userID, ok := byName[strings.ToLower(match[1])]
		if !ok || seen[userID] {
			continue
		}
		seen[userID] = true
		ids = append(ids, userID)
	}
	return ids
}
