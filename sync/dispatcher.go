package sync

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/akinalp/chatkit/database"
	"github.com/akinalp/chatkit/models"
	"github.com/akinalp/chatkit/repository"
	"github.com/akinalp/chatkit/state"
	"github.com/akinalp/chatkit/ws"
)

// Dispatcher, server event'lerini lokal cache'e ve state'e uygular.
//
// Tek goroutine kuralı: Run, event channel'ını TEK goroutine'de tüketir.
// Aynı kanalın event'leri geldikleri sırayla işlenir — "mesaj geldi,
// sonra silindi" sırası hiçbir zaman ters uygulanmaz. Paralellik
// istenseydi kanal bazında sıra garantisi ayrıca kurulmak zorunda
// kalırdı; event uygulama ucuz olduğu için tek goroutine yeterlidir.
//
// Her event idempotent uygulanır: replay edilen bir event (sync history
// canlı akışla çakıştı) cache'i ikinci kez bozmaz — upsert'ler aynı
// satırı yazar, read guard'ları watermark'ı geri almaz.
type Dispatcher struct {
	db       *sql.DB
	repos    *repository.Repos
	registry *state.Registry
	global   *state.GlobalState

	// currentUserID, Run başlamadan önce ConnectUser tarafından set edilir.
	currentUserID string

	// onHealthCheck: manager'ın failed retry hook'u. Her health.check
	// event'inde çağrılır.
	onHealthCheck func()
}

// NewDispatcher, constructor.
func NewDispatcher(db *sql.DB, repos *repository.Repos, registry *state.Registry, global *state.GlobalState) *Dispatcher {
	return &Dispatcher{
		db:       db,
		repos:    repos,
		registry: registry,
		global:   global,
	}
}

// SetCurrentUser, event'lerin "kendi mesajım mı" ayrımı için current
// user'ı ayarlar. Run'dan ÖNCE çağrılmalıdır.
func (d *Dispatcher) SetCurrentUser(userID string) {
	d.currentUserID = userID
}

// SetHealthCheckHook, health.check event'lerinde çağrılacak hook'u ayarlar.
func (d *Dispatcher) SetHealthCheckHook(fn func()) {
	d.onHealthCheck = fn
}

// Run, event channel'ını kapatılana veya ctx iptal olana kadar tüketir.
// Bir goroutine olarak başlatılır; SDK'daki TEK event uygulayıcısıdır.
func (d *Dispatcher) Run(ctx context.Context, events <-chan ws.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := d.HandleEvent(ctx, event); err != nil {
				log.Printf("[sync] failed to apply event %s: %v", event.Type, err)
			}
		}
	}
}

// HandleEvent, tek bir event'i cache'e ve state'e uygular.
// Bilinmeyen event tipleri sessizce atlanır — eski SDK yeni server
// event'i görünce kırılmaz.
func (d *Dispatcher) HandleEvent(ctx context.Context, event ws.Event) error {
	var err error
	switch event.Type {
	case ws.EventMessageNew, ws.EventNotificationMessageNew:
		err = d.applyMessageNew(ctx, event)
	case ws.EventMessageUpdated:
		err = d.applyMessageUpsert(ctx, event)
	case ws.EventMessageDeleted:
		err = d.applyMessageDeleted(ctx, event)
	case ws.EventReactionNew:
		err = d.applyReaction(ctx, event, true)
	case ws.EventReactionDeleted:
		err = d.applyReaction(ctx, event, false)
	case ws.EventMessageRead:
		err = d.applyRead(ctx, event)
	case ws.EventNotificationMarkRead:
		err = d.applyMarkRead(ctx, event)
	case ws.EventMemberAdded:
		err = d.applyMemberAdded(ctx, event)
	case ws.EventMemberRemoved:
		err = d.applyMemberRemoved(ctx, event)
	case ws.EventChannelUpdated:
		err = d.applyChannelUpdated(ctx, event)
	case ws.EventChannelDeleted:
		err = d.applyChannelDeleted(ctx, event)
	case ws.EventChannelTruncated:
		err = d.applyChannelTruncated(ctx, event)
	case ws.EventNotificationAddedToChannel:
		err = d.applyAddedToChannel(ctx, event)
	case ws.EventTypingStart:
		d.applyTyping(event, true)
	case ws.EventTypingStop:
		d.applyTyping(event, false)
	case ws.EventHealthCheck:
		if d.onHealthCheck != nil {
			d.onHealthCheck()
		}
	default:
		// Bilinmeyen tip — atla.
	}

	if err != nil {
		return err
	}
	d.advanceSyncPoint(ctx, event.CreatedAt)
	return nil
}

// ─── Mesaj event'leri ───────────────────────────────────────────────

func (d *Dispatcher) applyMessageNew(ctx context.Context, event ws.Event) error {
	if event.Message == nil {
		return nil
	}
	message := *event.Message
	message.SyncStatus = models.SyncStatusSynced

	// notification.message_new izlenmeyen bir kanaldan gelir — kanal
	// cache'te olmayabilir. FK kanal satırını şart koşar: mesajdan önce
	// kanal (payload'daki, yoksa cid'den minimal satır) yazılır.
	if err := d.ensureChannel(ctx, event, message.CID); err != nil {
		return err
	}

	// Replay dedup: mesaj zaten cache'teyse bu event daha önce
	// uygulanmıştır. Upsert idempotent'tir ama unread sayacı değildir —
	// sayaç sadece ilk uygulamada artar.
	_, lookupErr := d.repos.Messages.GetByID(ctx, message.ID)
	replayed := lookupErr == nil

	if err := d.cacheMessage(ctx, &message); err != nil {
		return err
	}

	if err := d.repos.Channels.SetLastMessageAt(ctx, message.CID, message.CreatedAt); err != nil {
		log.Printf("[sync] failed to bump last_message_at for %s: %v", message.CID, err)
	}

	// Başkasının mesajı current user için okunmamıştır.
	own := message.UserID == d.currentUserID
	if !own && !replayed {
		if err := d.repos.Reads.IncrementUnread(ctx, message.CID, d.currentUserID); err != nil {
			log.Printf("[sync] failed to increment unread for %s: %v", message.CID, err)
		}
	}

	if channelState, ok := d.registry.GetChannel(message.CID); ok {
		channelState.UpsertMessage(message)
		if !own && !replayed {
			channelState.IncrementUnread(d.currentUserID)
		}
	}

	// Kanal listelerinde kanalı güncelle ve başa taşı.
	d.promoteChannel(ctx, message.CID)
	return nil
}

// ensureChannel, mesajın kanalının cache'te var olmasını garantiler.
// Kanal yoksa event payload'ındaki kanal, o da yoksa cid'den türetilen
// minimal bir satır yazılır — sonraki query/watch satırı zenginleştirir.
func (d *Dispatcher) ensureChannel(ctx context.Context, event ws.Event, cid string) error {
	if _, err := d.repos.Channels.GetByCID(ctx, cid); err == nil {
		return nil
	}

	channel := models.Channel{CID: cid, CreatedAt: event.CreatedAt, UpdatedAt: event.CreatedAt}
	if event.Channel != nil {
		channel = *event.Channel
	} else if channelType, channelID, err := models.ParseCID(cid); err == nil {
		channel.Type = channelType
		channel.ID = channelID
	}
	return d.repos.Channels.Upsert(ctx, &channel)
}

func (d *Dispatcher) applyMessageUpsert(ctx context.Context, event ws.Event) error {
	if event.Message == nil {
		return nil
	}
	message := *event.Message
	message.SyncStatus = models.SyncStatusSynced

	if err := d.cacheMessage(ctx, &message); err != nil {
		return err
	}
	if channelState, ok := d.registry.GetChannel(message.CID); ok {
		channelState.UpsertMessage(message)
	}
	return nil
}

// applyMessageDeleted, mesajı tombstone'a çevirir — satır silinmez,
// deleted_at işaretlenir. UI "bu mesaj silindi" gösterebilir.
func (d *Dispatcher) applyMessageDeleted(ctx context.Context, event ws.Event) error {
	if event.Message == nil {
		return nil
	}
	message := *event.Message
	message.SyncStatus = models.SyncStatusSynced
	if message.DeletedAt == nil {
		deletedAt := event.CreatedAt
		message.DeletedAt = &deletedAt
	}

	if err := d.cacheMessage(ctx, &message); err != nil {
		return err
	}
	if channelState, ok := d.registry.GetChannel(message.CID); ok {
		channelState.UpsertMessage(message)
	}
	return nil
}

// cacheMessage, mesajı ve taşıdığı user payload'ını cache'e yazar.
func (d *Dispatcher) cacheMessage(ctx context.Context, message *models.Message) error {
	if message.User != nil {
		if err := d.repos.Users.UpsertMany(ctx, []models.User{*message.User}); err != nil {
			return err
		}
	}
	return d.repos.Messages.Upsert(ctx, message)
}

// ─── Reaction event'leri ────────────────────────────────────────────

// applyReaction, reaction event'ini mevcut cached mesajın aggregate'lerine
// uygular. Mesaj cache'te yoksa event atlanır — aggregate'siz reaction
// gösterilemez; mesaj sonradan yüklenirse server aggregate'leri taşır.
//
// OwnReactions AYRIMI burada yapılır: event'i üreten kullanıcı current
// user ise reaction OwnReactions'a da girer, değilse sadece
// LatestReactions'a. Server payload'ı "own" bilgisini taşımaz — bu
// client'a göre değişen bir kavramdır.
func (d *Dispatcher) applyReaction(ctx context.Context, event ws.Event, added bool) error {
	if event.Reaction == nil {
		return nil
	}
	reaction := *event.Reaction
	reaction.SyncStatus = models.SyncStatusSynced

	message, err := d.repos.Messages.GetByID(ctx, reaction.MessageID)
	if err != nil {
		return nil // Mesaj cache'te yok — uygulanacak yer yok
	}

	// Reaction listeleri messages tablosunda persist edilmez — aggregate
	// düşümünün eşleşme bulabilmesi için listeler tablodan doldurulur.
	if err := repository.HydrateMessageReactions(ctx, d.repos.Reactions, message, d.currentUserID); err != nil {
		return err
	}

	isOwn := reaction.UserID == d.currentUserID
	if added {
		message.AddReaction(reaction, isOwn)
		if err := d.repos.Reactions.Upsert(ctx, &reaction); err != nil {
			return err
		}
	} else {
		message.RemoveReaction(reaction, isOwn)
		if err := d.repos.Reactions.Delete(ctx, reaction.MessageID, reaction.UserID, reaction.Type); err != nil {
			return err
		}
	}

	if err := d.repos.Messages.Upsert(ctx, message); err != nil {
		return err
	}
	if channelState, ok := d.registry.GetChannel(message.CID); ok {
		channelState.UpsertMessage(*message)
	}
	return nil
}

// ─── Read event'leri ────────────────────────────────────────────────

func (d *Dispatcher) applyRead(ctx context.Context, event ws.Event) error {
	if event.User == nil || event.CID == "" {
		return nil
	}

	read := &models.ChannelUserRead{
		CID:      event.CID,
		UserID:   event.User.ID,
		LastRead: event.CreatedAt,
	}
	if err := d.repos.Reads.Upsert(ctx, read); err != nil {
		return err
	}

	if channelState, ok := d.registry.GetChannel(event.CID); ok {
		channelState.ApplyRead(event.User.ID, event.CreatedAt)
	}
	return nil
}

// applyMarkRead, server'ın hesapladığı global unread sayaçlarını yayınlar.
// Sayaç alanları opsiyoneldir — payload taşımıyorsa mevcut değerler
// korunur (sıfırla ezilmez). CID doluysa kanalın watermark'ı da ilerletilir.
func (d *Dispatcher) applyMarkRead(ctx context.Context, event ws.Event) error {
	if event.TotalUnreadCount != nil {
		d.global.TotalUnreadCount.Set(*event.TotalUnreadCount)
	}
	if event.UnreadChannels != nil {
		d.global.UnreadChannels.Set(*event.UnreadChannels)
	}

	if event.CID != "" && event.User != nil {
		return d.applyRead(ctx, event)
	}
	return nil
}

// ─── Üye event'leri ─────────────────────────────────────────────────

func (d *Dispatcher) applyMemberAdded(ctx context.Context, event ws.Event) error {
	if event.Member == nil || event.CID == "" {
		return nil
	}
	member := *event.Member
	member.CID = event.CID

	if member.User != nil {
		if err := d.repos.Users.UpsertMany(ctx, []models.User{*member.User}); err != nil {
			return err
		}
	}
	if err := d.repos.Members.UpsertMany(ctx, []models.Member{member}); err != nil {
		return err
	}

	if channelState, ok := d.registry.GetChannel(event.CID); ok {
		channelState.UpsertMember(member)
	}
	return nil
}

func (d *Dispatcher) applyMemberRemoved(ctx context.Context, event ws.Event) error {
	if event.Member == nil || event.CID == "" {
		return nil
	}

	if err := d.repos.Members.Delete(ctx, event.CID, event.Member.UserID); err != nil {
		return err
	}
	if channelState, ok := d.registry.GetChannel(event.CID); ok {
		channelState.RemoveMember(event.Member.UserID)
	}

	// Current user kanaldan çıkarıldıysa kanal, kanal listelerinden düşer.
	if event.Member.UserID == d.currentUserID {
		for _, query := range d.registry.Queries() {
			query.RemoveChannel(event.CID)
		}
	}
	return nil
}

// ─── Kanal event'leri ───────────────────────────────────────────────

func (d *Dispatcher) applyChannelUpdated(ctx context.Context, event ws.Event) error {
	if event.Channel == nil {
		return nil
	}
	channel := *event.Channel

	if err := d.repos.Channels.Upsert(ctx, &channel); err != nil {
		return err
	}
	if channelState, ok := d.registry.GetChannel(channel.CID); ok {
		channelState.SetChannel(channel)
	}
	for _, query := range d.registry.Queries() {
		query.UpsertChannel(channel, false)
	}
	return nil
}

func (d *Dispatcher) applyChannelDeleted(ctx context.Context, event ws.Event) error {
	cid := event.CID
	if event.Channel != nil {
		cid = event.Channel.CID
	}
	if cid == "" {
		return nil
	}

	deletedAt := event.CreatedAt
	if err := d.repos.Channels.SetDeletedAt(ctx, cid, deletedAt); err != nil {
		log.Printf("[sync] failed to mark channel %s deleted: %v", cid, err)
	}

	for _, query := range d.registry.Queries() {
		query.RemoveChannel(cid)
	}
	if channelState, ok := d.registry.GetChannel(cid); ok {
		channel := channelState.Channel.Get()
		channel.DeletedAt = &deletedAt
		channelState.SetChannel(channel)
	}
	return nil
}

// applyChannelTruncated, kanalın tüm mesaj geçmişini düşürür.
// Mesaj silme + last_message_at sıfırlama tek transaction'da yapılır —
// yarım kalmış truncate tutarsız cache bırakmasın.
func (d *Dispatcher) applyChannelTruncated(ctx context.Context, event ws.Event) error {
	cid := event.CID
	if event.Channel != nil {
		cid = event.Channel.CID
	}
	if cid == "" {
		return nil
	}

	err := database.WithTx(ctx, d.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE cid = ?`, cid); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `UPDATE channels SET last_message_at = NULL WHERE cid = ?`, cid)
		return err
	})
	if err != nil {
		return err
	}

	if channelState, ok := d.registry.GetChannel(cid); ok {
		channelState.RemoveAllMessages()
		channel := channelState.Channel.Get()
		channel.LastMessageAt = nil
		channelState.SetChannel(channel)
	}
	for _, query := range d.registry.Queries() {
		if channel, err := d.repos.Channels.GetByCID(ctx, cid); err == nil {
			query.UpsertChannel(*channel, false)
		}
	}
	return nil
}

// applyAddedToChannel, current user'ın eklendiği kanalı cache'e yazar
// ve canlı kanal listelerinin başına ekler.
func (d *Dispatcher) applyAddedToChannel(ctx context.Context, event ws.Event) error {
	if event.Channel == nil {
		return nil
	}
	channel := *event.Channel

	if err := d.repos.Channels.Upsert(ctx, &channel); err != nil {
		return err
	}
	for _, query := range d.registry.Queries() {
		query.AddChannel(channel)
	}
	return nil
}

// ─── Typing event'leri ──────────────────────────────────────────────

// applyTyping, typing göstergesini günceller. Sadece state işidir —
// typing cache'e YAZILMAZ (geçici bilgi kalıcı store'a girmez).
func (d *Dispatcher) applyTyping(event ws.Event, started bool) {
	if event.User == nil || event.CID == "" {
		return
	}
	// Kendi typing event'imiz yansıtılmaz — kullanıcı kendi "yazıyor"
	// göstergesini görmez.
	if event.User.ID == d.currentUserID {
		return
	}

	channelState, ok := d.registry.GetChannel(event.CID)
	if !ok {
		return
	}
	if started {
		channelState.SetTyping(*event.User)
	} else {
		channelState.RemoveTyping(event.User.ID)
	}
}

// ─── Yardımcılar ────────────────────────────────────────────────────

// promoteChannel, kanalı içeren tüm canlı sorgularda kanalı günceller
// ve listenin başına taşır (yeni mesaj geldi).
func (d *Dispatcher) promoteChannel(ctx context.Context, cid string) {
	channel, err := d.repos.Channels.GetByCID(ctx, cid)
	if err != nil {
		return
	}
	for _, query := range d.registry.Queries() {
		query.UpsertChannel(*channel, true)
	}
}

// advanceSyncPoint, işlenen event'in zaman damgasını sync watermark'ı
// olarak kaydeder — forward-only, replay sırasında geri gitmez.
func (d *Dispatcher) advanceSyncPoint(ctx context.Context, at time.Time) {
	if at.IsZero() || d.currentUserID == "" {
		return
	}

	current, err := d.repos.SyncState.GetByUserID(ctx, d.currentUserID)
	if err == nil && current.LastSyncedAt != nil && !at.After(*current.LastSyncedAt) {
		return
	}

	syncState := &models.SyncState{
		UserID:       d.currentUserID,
		LastSyncedAt: &at,
		ActiveCIDs:   d.registry.ActiveCIDs(),
	}
	if err := d.repos.SyncState.Upsert(ctx, syncState); err != nil {
		log.Printf("[sync] failed to advance sync point: %v", err)
	}
}
