package repository

import (
	"context"

	"github.com/akinalp/chatkit/models"
)

// ReadStateRepository, kanal başına okuma watermark'ları için interface.
//
// Forward-only invariant SQL tarafında da uygulanır: Upsert, mevcut
// satırdan ESKİ bir last_read değerini yazmaz. Model tarafındaki
// ChannelUserRead.Apply ile aynı kural — iki katman da guard taşır,
// hangisinden geçerse geçsin watermark geri gidemez.
type ReadStateRepository interface {
	Upsert(ctx context.Context, read *models.ChannelUserRead) error
	Get(ctx context.Context, cid, userID string) (*models.ChannelUserRead, error)
	GetByCID(ctx context.Context, cid string) ([]models.ChannelUserRead, error)
	IncrementUnread(ctx context.Context, cid, userID string) error
}
