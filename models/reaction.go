package models

import "time"

// Reaction, bir kullanıcının bir mesaja verdiği tek bir tepkiyi temsil eder.
//
// (MessageID, UserID, Type) üçlüsü unique'tir — bir kullanıcı aynı mesaja
// aynı türden tek bir reaction verebilir. Score, "clap x5" gibi
// çok-skorlu reaction'lar içindir; normal emoji reaction'da 1'dir.
//
// SyncStatus optimistic reaction akışını taşır: lokal olarak uygulanan
// ama henüz server tarafından onaylanmamış reaction pending'dir.
type Reaction struct {
	MessageID  string     `json:"message_id"`
	UserID     string     `json:"user_id"`
	Type       string     `json:"type"`
	Score      int        `json:"score"`
	SyncStatus SyncStatus `json:"-"`
	CreatedAt  time.Time  `json:"created_at"`
}
