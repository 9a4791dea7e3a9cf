package api

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/akinalp/chatkit/models"
	"github.com/akinalp/chatkit/pkg/call"
	"github.com/akinalp/chatkit/ws"
)

// DistinctAPI, ChatAPI'yi sararak tekrar eden OKUMA isteklerini dedup eder.
//
// Problem: UI katmanı aynı anda aynı sorguyu birden fazla kez tetikler
// (iki ekran aynı kanal listesini ister, scroll iki kez ateşlenir...).
// Her tetik ayrı network call'a dönerse bant genişliği boşa gider ve
// cevaplar birbirinin üstüne yazar.
//
// Çözüm: Aynı argümanlarla yapılan eşzamanlı istekler AYNI Call
// instance'ını paylaşır. Call tamamlanınca (başarı, hata veya cancel)
// kayıt registry'den düşer — SONRAKİ istek taze bir call üretir,
// bayat sonuç asla paylaşılmaz.
//
// Sadece read-path dedup edilir. Mutation'lar (SendMessage, SendReaction,
// MarkRead...) edilmez — iki kez mesaj göndermek iki mesajdır,
// dedup edilmesi veri kaybıdır.
//
// Key canonicalization: Filter map'leri encoding/json ile marshal edilir;
// encoding/json map key'lerini alfabetik sıralar, bu yüzden aynı içerikli
// iki map her zaman aynı key'i üretir (contract testi ile sabitlenmiştir).
type DistinctAPI struct {
	ChatAPI

	mu       sync.Mutex
	inflight map[string]any // key → *call.Call[T]
}

// NewDistinctAPI, verilen ChatAPI'yi dedup katmanıyla sarar.
func NewDistinctAPI(inner ChatAPI) *DistinctAPI {
	return &DistinctAPI{
		ChatAPI:  inner,
		inflight: make(map[string]any),
	}
}

// distinct, generic dedup yardımcısı.
//
// Registry map[string]any tutar çünkü farklı metodların Call tipleri
// farklıdır (Call[ChannelPage], Call[[]ws.Event]...). Type assertion
// her zaman tutar — key, operasyon adını içerir, iki farklı tip aynı
// key'i üretemez.
func distinct[T any](d *DistinctAPI, key string, factory func() *call.Call[T]) *call.Call[T] {
	d.mu.Lock()
	defer d.mu.Unlock()

	if existing, ok := d.inflight[key]; ok {
		if c, ok := existing.(*call.Call[T]); ok {
			return c
		}
	}

	c := factory()
	c.OnComplete(func(call.Result[T]) {
		d.mu.Lock()
		delete(d.inflight, key)
		d.mu.Unlock()
	})
	d.inflight[key] = c
	return c
}

// InflightCount, kayıtlı in-flight call sayısını döner (test görünürlüğü).
func (d *DistinctAPI) InflightCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.inflight)
}

func (d *DistinctAPI) QueryChannel(ctx context.Context, cid string, req QueryChannelRequest) *call.Call[ChannelPage] {
	key := fmt.Sprintf("query_channel|%s|%d|%s|%s|%t",
		cid, req.MessagesLimit, req.Before, req.After, req.Watch)
	return distinct(d, key, func() *call.Call[ChannelPage] {
		return d.ChatAPI.QueryChannel(ctx, cid, req)
	})
}

func (d *DistinctAPI) QueryChannels(ctx context.Context, req QueryChannelsRequest) *call.Call[[]ChannelPage] {
	key := fmt.Sprintf("query_channels|%s|%s|%d|%d|%d|%t",
		req.Filter.Key(), models.SortKey(req.Sort),
		req.Limit, req.Offset, req.MessagesLimit, req.Watch)
	return distinct(d, key, func() *call.Call[[]ChannelPage] {
		return d.ChatAPI.QueryChannels(ctx, req)
	})
}

func (d *DistinctAPI) GetReplies(ctx context.Context, parentID string, limit int) *call.Call[[]models.Message] {
	key := fmt.Sprintf("get_replies|%s|%d", parentID, limit)
	return distinct(d, key, func() *call.Call[[]models.Message] {
		return d.ChatAPI.GetReplies(ctx, parentID, limit)
	})
}

func (d *DistinctAPI) GetSyncHistory(ctx context.Context, cids []string, since time.Time) *call.Call[[]ws.Event] {
	key := fmt.Sprintf("sync_history|%s|%s",
		strings.Join(cids, ","), since.Format(time.RFC3339Nano))
	return distinct(d, key, func() *call.Call[[]ws.Event] {
		return d.ChatAPI.GetSyncHistory(ctx, cids, since)
	})
}
