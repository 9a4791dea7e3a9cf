package models

import "time"

// SyncStatus, lokal olarak değiştirilmiş bir entity'nin server ile
// senkronizasyon durumunu temsil eder.
//
// Optimistic mutation akışı:
// 1. Kullanıcı mesaj gönderir → lokal insert, SyncStatusPending
// 2. Network call başarılı → server alanları merge edilir, SyncStatusSynced
// 3. Network call başarısız → SyncStatusFailed — mesaj SİLİNMEZ,
//    içerik korunur. UI failed mesajı retry butonu ile gösterir.
type SyncStatus int

const (
	SyncStatusSynced  SyncStatus = 0
	SyncStatusPending SyncStatus = 1
	SyncStatusFailed  SyncStatus = 2
)

// String, log çıktıları için okunabilir durum adı döner.
func (s SyncStatus) String() string {
	switch s {
	case SyncStatusSynced:
		return "synced"
	case SyncStatusPending:
		return "pending"
	case SyncStatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// UploadState, bir attachment'ın yükleme durumunu temsil eder.
type UploadState int

const (
	UploadStateSuccess    UploadState = 0
	UploadStateInProgress UploadState = 1
	UploadStateFailed     UploadState = 2
)

// Attachment, bir mesaja eklenmiş dosya/medya referansını temsil eder.
// SDK dosya içeriği taşımaz — sadece URL ve upload durumu tutar.
type Attachment struct {
	Type        string      `json:"type,omitempty"`
	Title       string      `json:"title,omitempty"`
	AssetURL    string      `json:"asset_url,omitempty"`
	MimeType    string      `json:"mime_type,omitempty"`
	FileSize    int64       `json:"file_size,omitempty"`
	UploadState UploadState `json:"-"` // Wire'a çıkmaz — lokal durum
}

// Message, bir chat mesajını temsil eder.
//
// Reaction aggregate'leri mesajın üstünde denormalize tutulur:
// ReactionCounts/ReactionScores her reaction ekleme/silmede güncellenir.
// LatestReactions tüm kullanıcıların son reaction'larını,
// OwnReactions ise SADECE current user'ın reaction'larını taşır.
// Invariant: current user reaction verdiyse OwnReactions ⊆ LatestReactions
// (user-id bazında).
//
// ParentID, thread bağlantısıdır — doluysa mesaj bir thread yanıtıdır.
type Message struct {
	ID               string         `json:"id"`
	CID              string         `json:"cid"`
	UserID           string         `json:"user_id"`
	User             *User          `json:"user,omitempty"`
	Text             string         `json:"text"`
	ParentID         *string        `json:"parent_id,omitempty"`
	Attachments      []Attachment   `json:"attachments,omitempty"`
	MentionedUserIDs []string       `json:"mentioned_user_ids,omitempty"`
	ReactionCounts   map[string]int `json:"reaction_counts,omitempty"`
	ReactionScores   map[string]int `json:"reaction_scores,omitempty"`
	LatestReactions  []Reaction     `json:"latest_reactions,omitempty"`
	OwnReactions     []Reaction     `json:"own_reactions,omitempty"`
	SyncStatus       SyncStatus     `json:"-"` // Lokal durum — wire'a çıkmaz
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        *time.Time     `json:"deleted_at,omitempty"`
}

// Before, mesaj sıralama kuralını tanımlar: CreatedAt artan, eşitlikte
// ID artan (deterministic tie-break). Tüm katmanlar (controller,
// repository sorguları) aynı kuralı kullanır — event'ler transport'ta
// sırası bozulmuş gelse bile final liste CreatedAt sırasındadır.
func (m *Message) Before(other *Message) bool {
	if m.CreatedAt.Equal(other.CreatedAt) {
		return m.ID < other.ID
	}
	return m.CreatedAt.Before(other.CreatedAt)
}

// AddReaction, mesajın reaction aggregate'lerine bir reaction ekler.
//
// isOwn: Reaction'ı veren kullanıcı current user mı?
// OwnReactions sadece isOwn=true ise güncellenir — başka kullanıcının
// reaction'ı current user'ın kendi reaction listesini değiştirmez.
//
// Aynı (user, type) reaction'ı zaten varsa önce kaldırılır (idempotent
// upsert) — aynı event iki kez uygulanırsa count şişmez.
func (m *Message) AddReaction(r Reaction, isOwn bool) {
	m.RemoveReaction(r, isOwn)

	if m.ReactionCounts == nil {
		m.ReactionCounts = make(map[string]int)
	}
	if m.ReactionScores == nil {
		m.ReactionScores = make(map[string]int)
	}
	m.ReactionCounts[r.Type]++
	m.ReactionScores[r.Type] += r.Score
	m.LatestReactions = append(m.LatestReactions, r)
	if isOwn {
		m.OwnReactions = append(m.OwnReactions, r)
	}
}

// RemoveReaction, mesajın aggregate'lerinden bir reaction'ı düşer.
// Reaction mevcut değilse hiçbir şey yapmaz (count negatife inmez).
func (m *Message) RemoveReaction(r Reaction, isOwn bool) {
	removed := false
	m.LatestReactions = filterReactions(m.LatestReactions, r, &removed)
	if isOwn {
		m.OwnReactions = filterReactions(m.OwnReactions, r, nil)
	}

	if !removed {
		return
	}
	if m.ReactionCounts[r.Type] > 0 {
		m.ReactionCounts[r.Type]--
		if m.ReactionCounts[r.Type] == 0 {
			delete(m.ReactionCounts, r.Type)
		}
	}
	if _, ok := m.ReactionScores[r.Type]; ok {
		m.ReactionScores[r.Type] -= r.Score
		if m.ReactionScores[r.Type] <= 0 {
			delete(m.ReactionScores, r.Type)
		}
	}
}

// filterReactions, (user, type) eşleşen reaction'ı listeden çıkarır.
// removed pointer'ı nil değilse, bir eşleşme bulunduğunda true yazılır.
func filterReactions(list []Reaction, target Reaction, removed *bool) []Reaction {
	out := list[:0]
	for _, existing := range list {
		if existing.UserID == target.UserID && existing.Type == target.Type {
			if removed != nil {
				*removed = true
			}
			continue
		}
		out = append(out, existing)
	}
	return out
}
