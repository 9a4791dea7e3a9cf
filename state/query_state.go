package state

import (
	"sync"

	"github.com/akinalp/chatkit/models"
)

// QueryChannelsState, tek bir canlı kanal-listesi sorgusunun state'ini
// tutar. Sorgunun kimliği (filter, sort) ikilisidir; Channels hücresi
// o sorgunun mevcut sıralı kanal listesini taşır.
//
// Kanal listesi sıralamasını SERVER belirler (sort parametresi server
// tarafında uygulanır) — client listeyi yeniden sıralamaz, event'lerle
// günceller: yeni mesaj kanalı listenin başına taşır, channel.deleted
// kanalı listeden düşürür.
type QueryChannelsState struct {
	Key    string
	Filter models.Filter
	Sort   []models.SortField

	mu       sync.Mutex
	cids     []string
	hasMore  bool
	loading  bool

	Channels *Store[[]models.Channel]
}

// NewQueryChannelsState, constructor.
func NewQueryChannelsState(filter models.Filter, sortFields []models.SortField) *QueryChannelsState {
	spec := models.QueryChannelsSpec{Filter: filter, Sort: sortFields}
	return &QueryChannelsState{
		Key:      spec.Key(),
		Filter:   filter,
		Sort:     sortFields,
		hasMore:  true,
		Channels: NewStore[[]models.Channel](nil),
	}
}

// SetChannels, sorgu sonucunu komple değiştirir (ilk sayfa cevabı).
func (s *QueryChannelsState) SetChannels(channels []models.Channel) {
	s.mu.Lock()
	s.cids = cidsOf(channels)
	s.mu.Unlock()

	s.Channels.Set(channels)
}

// AppendChannels, sonraki sayfayı listenin sonuna ekler (load more).
// Zaten listede olan cid'ler atlanır.
func (s *QueryChannelsState) AppendChannels(channels []models.Channel) {
	s.mu.Lock()
	existing := make(map[string]bool, len(s.cids))
	for _, cid := range s.cids {
		existing[cid] = true
	}
	var fresh []models.Channel
	for _, channel := range channels {
		if existing[channel.CID] {
			continue
		}
		s.cids = append(s.cids, channel.CID)
		fresh = append(fresh, channel)
	}
	s.mu.Unlock()

	if len(fresh) == 0 {
		return
	}
	s.Channels.Update(func(current []models.Channel) []models.Channel {
		return append(current, fresh...)
	})
}

// UpsertChannel, listedeki kanalı günceller; yoksa dokunmaz.
// promote true ise kanal listenin BAŞINA taşınır (yeni mesaj geldi —
// "son mesaja göre sırala" semantiği).
func (s *QueryChannelsState) UpsertChannel(channel models.Channel, promote bool) {
	s.mu.Lock()
	found := false
	for i, cid := range s.cids {
		if cid == channel.CID {
			found = true
			if promote && i != 0 {
				copy(s.cids[1:i+1], s.cids[:i])
				s.cids[0] = channel.CID
			}
			break
		}
	}
	s.mu.Unlock()

	if !found {
		return
	}
	s.Channels.Update(func(current []models.Channel) []models.Channel {
		idx := -1
		for i := range current {
			if current[i].CID == channel.CID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return current
		}
		out := make([]models.Channel, len(current))
		copy(out, current)
		if promote && idx != 0 {
			copy(out[1:idx+1], out[:idx])
			out[0] = channel
		} else {
			out[idx] = channel
		}
		return out
	})
}

// AddChannel, listede olmayan bir kanalı başa ekler
// (notification.added_to_channel).
func (s *QueryChannelsState) AddChannel(channel models.Channel) {
	s.mu.Lock()
	for _, cid := range s.cids {
		if cid == channel.CID {
			s.mu.Unlock()
			return
		}
	}
	s.cids = append([]string{channel.CID}, s.cids...)
	s.mu.Unlock()

	s.Channels.Update(func(current []models.Channel) []models.Channel {
		return append([]models.Channel{channel}, current...)
	})
}

// RemoveChannel, kanalı listeden düşürür (channel.deleted,
// member.removed — current user kanaldan atıldı).
func (s *QueryChannelsState) RemoveChannel(cid string) {
	s.mu.Lock()
	for i, existing := range s.cids {
		if existing == cid {
			s.cids = append(s.cids[:i], s.cids[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	s.Channels.Update(func(current []models.Channel) []models.Channel {
		for i := range current {
			if current[i].CID == cid {
				out := make([]models.Channel, 0, len(current)-1)
				out = append(out, current[:i]...)
				return append(out, current[i+1:]...)
			}
		}
		return current
	})
}

// Contains, cid'nin bu sorgunun sonucunda olup olmadığını döner.
func (s *QueryChannelsState) Contains(cid string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.cids {
		if existing == cid {
			return true
		}
	}
	return false
}

// CIDs, mevcut sıralı cid listesinin kopyasını döner —
// query_channels cache satırına yazılacak hali.
func (s *QueryChannelsState) CIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.cids))
	copy(out, s.cids)
	return out
}

// Len, listedeki kanal sayısını döner — load more offset'i.
func (s *QueryChannelsState) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cids)
}

// SetHasMore, server'da daha fazla sayfa olup olmadığını işaretler.
func (s *QueryChannelsState) SetHasMore(hasMore bool) {
	s.mu.Lock()
	s.hasMore = hasMore
	s.mu.Unlock()
}

// HasMore, daha fazla sayfa beklenip beklenmediğini döner.
func (s *QueryChannelsState) HasMore() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasMore
}

// TryBeginLoad, eşzamanlı load more'a karşı kilit alır.
// Zaten bir yükleme sürüyorsa false döner — çağıran vazgeçer.
func (s *QueryChannelsState) TryBeginLoad() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loading {
		return false
	}
	s.loading = true
	return true
}

// EndLoad, load more kilidini bırakır.
func (s *QueryChannelsState) EndLoad() {
	s.mu.Lock()
	s.loading = false
	s.mu.Unlock()
}

func cidsOf(channels []models.Channel) []string {
	cids := make([]string, len(channels))
	for i, channel := range channels {
		cids[i] = channel.CID
	}
	return cids
}
