package repository

import "encoding/json"

// JSON kolon yardımcıları.
//
// SQLite'ta slice/map alanları JSON string olarak saklanır (attachments,
// mentioned_user_ids, reaction_counts, active_cids...). Bu yardımcılar
// marshal/unmarshal boilerplate'ini tek yerde toplar.

// toJSON, değeri JSON string'e çevirir. Hata durumunda fallback döner —
// cache yazımı server verisini hiçbir zaman bloklamasın.
func toJSON(v any, fallback string) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fallback
	}
	return string(data)
}

// fromJSON, JSON string'i hedef pointer'a çözer. Boş veya bozuk veri
// sessizce atlanır — hedef zero value'da kalır.
func fromJSON(raw string, target any) {
	if raw == "" {
		return
	}
	_ = json.Unmarshal([]byte(raw), target)
}
