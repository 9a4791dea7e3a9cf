package models

import "time"

// ChannelUserRead, bir kullanıcının belirli bir kanaldaki okuma durumunu
// temsil eder (watermark pattern — her mesajı tek tek işaretlemek yerine
// "bu zamana kadar okudum" bilgisi tutulur).
//
// Forward-only invariant: LastRead sadece İLERİ gidebilir. Geç gelen
// veya sırası bozulmuş bir read event'i watermark'ı geri ALAMAZ —
// Apply bu kuralı uygular, repository katmanı da SQL tarafında aynı
// guard'ı taşır.
type ChannelUserRead struct {
	CID            string    `json:"cid"`
	UserID         string    `json:"user_id"`
	LastRead       time.Time `json:"last_read"`
	UnreadMessages int       `json:"unread_messages"`
}

// Apply, yeni bir read watermark'ını forward-only kuralıyla uygular.
// newLastRead mevcut LastRead'den ileriyse watermark ilerler ve true
// döner; değilse durum değişmez, false döner.
func (r *ChannelUserRead) Apply(newLastRead time.Time) bool {
	if !newLastRead.After(r.LastRead) {
		return false
	}
	r.LastRead = newLastRead
	r.UnreadMessages = 0
	return true
}
