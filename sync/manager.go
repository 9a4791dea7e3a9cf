package sync

import (
	"context"
	"errors"
	"log"
	gosync "sync"
	"time"

	"github.com/akinalp/chatkit/api"
	"github.com/akinalp/chatkit/config"
	"github.com/akinalp/chatkit/models"
	"github.com/akinalp/chatkit/pkg/call"
	"github.com/akinalp/chatkit/repository"
	"github.com/akinalp/chatkit/state"
)

// Manager, bağlantı kopması sonrası state'i server ile yeniden hizalar.
//
// Recovery üç adımdır ve SIRASI önemlidir:
//  1. Re-watch: aktif kanallar yeniden watch edilir — server bu
//     bağlantıya tekrar event göndermeye başlar ve güncel snapshot döner.
//  2. Re-query: canlı kanal-listesi sorguları yeniden çalıştırılır —
//     kopukken listeye giren/çıkan kanallar yakalanır.
//  3. Replay: kaçırılan event'ler sync history'den çekilir ve canlı
//     event'lerle AYNI dispatcher kodundan geçirilir. Idempotent
//     uygulama sayesinde snapshot ile çakışan event'ler zarar vermez.
//
// Ardından failed/pending entity'ler yeniden gönderilir (retry).
type Manager struct {
	api      api.ChatAPI
	repos    *repository.Repos
	registry *state.Registry

	dispatcher *Dispatcher
	cfg        config.SyncConfig

	currentUserID string

	mu         gosync.Mutex
	recovering bool
	attempts   map[string]int
}

// NewManager, constructor. Dispatcher'ın health check hook'una retry
// akışını bağlar — her health.check'te failed entity'ler denenir.
func NewManager(chatAPI api.ChatAPI, repos *repository.Repos, registry *state.Registry, dispatcher *Dispatcher, cfg config.SyncConfig) *Manager {
	m := &Manager{
		api:        chatAPI,
		repos:      repos,
		registry:   registry,
		dispatcher: dispatcher,
		cfg:        cfg,
		attempts:   make(map[string]int),
	}
	dispatcher.SetHealthCheckHook(func() {
		go m.RetryFailed(context.Background())
	})
	return m
}

// SetCurrentUser, recovery'nin sync state okuyacağı kullanıcıyı ayarlar.
func (m *Manager) SetCurrentUser(userID string) {
	m.currentUserID = userID
}

// Recover, reconnect sonrası tam recovery akışını yürütür.
// Eşzamanlı ikinci çağrı no-op'tur (ilk recovery zaten sürüyor).
func (m *Manager) Recover(ctx context.Context) error {
	if !m.cfg.RecoveryEnabled {
		return nil
	}

	m.mu.Lock()
	if m.recovering {
		m.mu.Unlock()
		return nil
	}
	m.recovering = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.recovering = false
		m.mu.Unlock()
	}()

	log.Printf("[sync] recovery started")

	var since *time.Time
	if syncState, err := m.repos.SyncState.GetByUserID(ctx, m.currentUserID); err == nil {
		since = syncState.LastSyncedAt
	}

	activeCIDs := m.registry.ActiveCIDs()

	// 1. Re-watch — aktif kanallar için güncel snapshot + event aboneliği.
	for _, cid := range activeCIDs {
		channelState, ok := m.registry.GetChannel(cid)
		if !ok {
			continue
		}
		result := m.api.QueryChannel(ctx, cid, api.QueryChannelRequest{
			MessagesLimit: 25,
			Watch:         true,
		}).Await(ctx)
		if result.Err != nil {
			log.Printf("[sync] re-watch failed for %s: %v", cid, result.Err)
			continue
		}
		if err := HydrateChannelPage(ctx, m.repos, channelState, result.Value, true); err != nil {
			log.Printf("[sync] re-watch hydrate failed for %s: %v", cid, err)
		}
	}

	// 2. Re-query — canlı kanal listeleri yeniden çalıştırılır.
	for _, query := range m.registry.Queries() {
		limit := query.Len()
		if limit == 0 {
			limit = 30
		}
		result := m.api.QueryChannels(ctx, api.QueryChannelsRequest{
			Filter: query.Filter,
			Sort:   query.Sort,
			Limit:  limit,
			Watch:  true,
		}).Await(ctx)
		if result.Err != nil {
			log.Printf("[sync] re-query failed for %s: %v", query.Key, result.Err)
			continue
		}
		channels := HydrateQueryPage(ctx, m.repos, m.registry, result.Value)
		query.SetChannels(channels)
		m.persistQuery(ctx, query)
	}

	// 3. Replay — kaçırılan event'ler canlı akışla aynı koddan geçer.
	if since != nil && len(activeCIDs) > 0 {
		result := m.api.GetSyncHistory(ctx, activeCIDs, *since).Await(ctx)
		if result.Err != nil {
			log.Printf("[sync] history replay failed: %v", result.Err)
		} else {
			for _, event := range result.Value {
				if err := m.dispatcher.HandleEvent(ctx, event); err != nil {
					log.Printf("[sync] replay apply failed for %s: %v", event.Type, err)
				}
			}
			log.Printf("[sync] replayed %d events since %s", len(result.Value), since.Format(time.RFC3339))
		}
	}

	// Watermark ilerletilir — bir sonraki kopuş buradan replay eder.
	now := time.Now()
	syncState := &models.SyncState{
		UserID:       m.currentUserID,
		LastSyncedAt: &now,
		ActiveCIDs:   activeCIDs,
	}
	if err := m.repos.SyncState.Upsert(ctx, syncState); err != nil {
		log.Printf("[sync] failed to persist sync state: %v", err)
	}

	m.RetryFailed(ctx)

	log.Printf("[sync] recovery finished")
	return nil
}

// RetryFailed, gönderilememiş (failed) ve yarıda kalmış (pending)
// mutation'ları yeniden dener.
//
// Retry bütçesi entity başınadır: RetryMaxAttempts aşılan entity failed
// olarak KALIR — asla silinmez, kullanıcı içeriği kaybolmaz. UI failed
// mesajı retry butonuyla gösterir, explicit retry bütçeyi sıfırlar.
func (m *Manager) RetryFailed(ctx context.Context) {
	for _, status := range []models.SyncStatus{models.SyncStatusFailed, models.SyncStatusPending} {
		messages, err := m.repos.Messages.GetBySyncStatus(ctx, status)
		if err != nil {
			log.Printf("[sync] failed to load %s messages: %v", status, err)
			continue
		}
		for i := range messages {
			m.retryMessage(ctx, &messages[i])
		}

		reactions, err := m.repos.Reactions.GetBySyncStatus(ctx, status)
		if err != nil {
			log.Printf("[sync] failed to load %s reactions: %v", status, err)
			continue
		}
		for i := range reactions {
			m.retryReaction(ctx, &reactions[i])
		}
	}
}

// ResetRetryBudget, entity'nin retry sayacını sıfırlar — kullanıcının
// explicit retry aksiyonu otomatik bütçeden bağımsızdır.
func (m *Manager) ResetRetryBudget(key string) {
	m.mu.Lock()
	delete(m.attempts, key)
	m.mu.Unlock()
}

func (m *Manager) retryMessage(ctx context.Context, message *models.Message) {
	if !m.takeAttempt("message:" + message.ID) {
		return
	}

	// Tombstone ise bekleyen işlem SİLMEDİR — yeniden gönderme değil.
	var result call.Result[models.Message]
	if message.DeletedAt != nil {
		result = m.api.DeleteMessage(ctx, message.ID).Await(ctx)
	} else {
		result = m.api.SendMessage(ctx, message.CID, message).Await(ctx)
	}
	if result.Err != nil {
		m.markMessageOutcome(ctx, message, result.Err)
		return
	}

	synced := result.Value
	synced.SyncStatus = models.SyncStatusSynced
	if err := m.repos.Messages.Upsert(ctx, &synced); err != nil {
		log.Printf("[sync] failed to store retried message %s: %v", message.ID, err)
		return
	}
	if channelState, ok := m.registry.GetChannel(synced.CID); ok {
		channelState.UpsertMessage(synced)
	}
	m.ResetRetryBudget("message:" + message.ID)
	log.Printf("[sync] retried message %s", message.ID)
}

func (m *Manager) retryReaction(ctx context.Context, reaction *models.Reaction) {
	key := "reaction:" + reaction.MessageID + ":" + reaction.Type
	if !m.takeAttempt(key) {
		return
	}

	result := m.api.SendReaction(ctx, reaction).Await(ctx)
	if result.Err != nil {
		reaction.SyncStatus = models.SyncStatusFailed
		if err := m.repos.Reactions.Upsert(ctx, reaction); err != nil {
			log.Printf("[sync] failed to mark reaction failed: %v", err)
		}
		return
	}

	synced := result.Value
	synced.SyncStatus = models.SyncStatusSynced
	if err := m.repos.Reactions.Upsert(ctx, &synced); err != nil {
		log.Printf("[sync] failed to store retried reaction: %v", err)
		return
	}
	m.ResetRetryBudget(key)
}

// markMessageOutcome, başarısız retry sonrası mesajı failed işaretler.
// İçerik korunur — sadece sync_status değişir.
func (m *Manager) markMessageOutcome(ctx context.Context, message *models.Message, sendErr error) {
	var apiErr *api.Error
	if errors.As(sendErr, &apiErr) && !apiErr.Temporary() {
		// Kalıcı hata — bütçe tüketmeye gerek yok, tekrar denense de
		// aynı cevap gelir.
		m.exhaustAttempts("message:" + message.ID)
	}

	message.SyncStatus = models.SyncStatusFailed
	if err := m.repos.Messages.Upsert(ctx, message); err != nil {
		log.Printf("[sync] failed to mark message failed: %v", err)
		return
	}
	if channelState, ok := m.registry.GetChannel(message.CID); ok {
		channelState.UpsertMessage(*message)
	}
}

// takeAttempt, entity için bir retry hakkı düşer.
// Bütçe bittiyse false döner.
func (m *Manager) takeAttempt(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.attempts[key] >= m.cfg.RetryMaxAttempts {
		return false
	}
	m.attempts[key]++
	return true
}

func (m *Manager) exhaustAttempts(key string) {
	m.mu.Lock()
	m.attempts[key] = m.cfg.RetryMaxAttempts
	m.mu.Unlock()
}

// persistQuery, sorgunun güncel cid listesini query_channels cache
// satırına yazar — offline açılış buradan okur.
func (m *Manager) persistQuery(ctx context.Context, query *state.QueryChannelsState) {
	spec := &models.QueryChannelsSpec{
		Filter: query.Filter,
		Sort:   query.Sort,
		CIDs:   query.CIDs(),
	}
	if err := m.repos.QueryChannels.Upsert(ctx, spec); err != nil {
		log.Printf("[sync] failed to persist query %s: %v", query.Key, err)
	}
}
