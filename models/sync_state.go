package models

import "time"

// SyncState, kullanıcı başına senkronizasyon durumunu temsil eder.
//
// LastSyncedAt: En son hangi ana kadar event'lerin işlendiği.
// Reconnect sonrası kaçırılan event'ler bu zamandan itibaren
// sync history endpoint'i ile replay edilir.
//
// ActiveCIDs: Aktif olarak izlenen (watched) kanalların cid listesi.
// Reconnect'te bu kanallar yeniden watch edilir ve replay bu
// kanallarla sınırlıdır.
type SyncState struct {
	UserID       string     `json:"user_id"`
	LastSyncedAt *time.Time `json:"last_synced_at"`
	ActiveCIDs   []string   `json:"active_cids"`
}
