package repository

import (
	"context"

	"github.com/akinalp/chatkit/models"
)

// SyncStateRepository, kullanıcı başına senkronizasyon durumu için interface.
//
// LastSyncedAt recovery'nin replay başlangıç noktasıdır; ActiveCIDs
// reconnect'te yeniden watch edilecek kanalların listesidir.
type SyncStateRepository interface {
	Upsert(ctx context.Context, state *models.SyncState) error
	GetByUserID(ctx context.Context, userID string) (*models.SyncState, error)
}
