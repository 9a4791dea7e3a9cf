package state

import (
	"sync"
	"time"
)

// Registry, aktif state controller'larını tutar:
// cid → ChannelState (izlenen kanallar) ve key → QueryChannelsState
// (canlı kanal-listesi sorguları).
//
// Event dispatcher bir event'i uygularken ilgili controller'ları
// buradan bulur. Kayıtlı OLMAYAN bir kanala gelen event sadece lokal
// cache'e yazılır — state tarafında yapılacak iş yoktur.
type Registry struct {
	mu       sync.Mutex
	channels map[string]*ChannelState
	queries  map[string]*QueryChannelsState

	typingTimeout time.Duration
}

// NewRegistry, constructor.
func NewRegistry(typingTimeout time.Duration) *Registry {
	return &Registry{
		channels:      make(map[string]*ChannelState),
		queries:       make(map[string]*QueryChannelsState),
		typingTimeout: typingTimeout,
	}
}

// Channel, cid için ChannelState döner — yoksa oluşturur.
// WatchChannel bu yoldan controller açar.
func (r *Registry) Channel(cid string) *ChannelState {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.channels[cid]; ok {
		return existing
	}
	channelState := NewChannelState(cid, r.typingTimeout)
	r.channels[cid] = channelState
	return channelState
}

// GetChannel, cid için ChannelState döner — yoksa (nil, false).
// Dispatcher event uygularken bu yolu kullanır; event controller
// oluşturmaz, sadece var olanı günceller.
func (r *Registry) GetChannel(cid string) (*ChannelState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	channelState, ok := r.channels[cid]
	return channelState, ok
}

// RemoveChannel, kanalın controller'ını düşürür ve kaynaklarını kapatır.
func (r *Registry) RemoveChannel(cid string) {
	r.mu.Lock()
	channelState, ok := r.channels[cid]
	delete(r.channels, cid)
	r.mu.Unlock()

	if ok {
		channelState.Close()
	}
}

// ActiveCIDs, izlenen tüm kanalların cid listesini döner —
// sync_state.active_cids buradan beslenir, recovery re-watch buradan okur.
func (r *Registry) ActiveCIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	cids := make([]string, 0, len(r.channels))
	for cid := range r.channels {
		cids = append(cids, cid)
	}
	return cids
}

// Query, (filter, sort) için QueryChannelsState döner — yoksa oluşturur.
func (r *Registry) Query(query *QueryChannelsState) *QueryChannelsState {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.queries[query.Key]; ok {
		return existing
	}
	r.queries[query.Key] = query
	return query
}

// Queries, tüm canlı sorgu controller'larının snapshot'ını döner.
// Dispatcher kanal event'lerini her sorguya uygular; recovery hepsini
// yeniden çalıştırır.
func (r *Registry) Queries() []*QueryChannelsState {
	r.mu.Lock()
	defer r.mu.Unlock()

	queries := make([]*QueryChannelsState, 0, len(r.queries))
	for _, query := range r.queries {
		queries = append(queries, query)
	}
	return queries
}

// Clear, tüm controller'ları düşürür (Disconnect).
func (r *Registry) Clear() {
	r.mu.Lock()
	channels := r.channels
	r.channels = make(map[string]*ChannelState)
	r.queries = make(map[string]*QueryChannelsState)
	r.mu.Unlock()

	for _, channelState := range channels {
		channelState.Close()
	}
}
