package repository

import (
	"context"
	"time"

	"github.com/akinalp/chatkit/models"
)

// ChannelRepository, lokal kanal cache'i için interface.
//
// SetDeletedAt soft delete yapar — kanal satırı silinmez, işaretlenir.
// Mesajlar cascade ile GİTMEZ; channel.deleted event handler'ı mesaj
// temizliğine ayrıca karar verir.
//
// SetLastMessageAt forward-only'dir: elimizdekinden eski bir zaman
// damgası denormalize alanı geri alamaz (sırası bozulmuş event guard'ı).
type ChannelRepository interface {
	Upsert(ctx context.Context, channel *models.Channel) error
	GetByCID(ctx context.Context, cid string) (*models.Channel, error)
	GetByCIDs(ctx context.Context, cids []string) ([]models.Channel, error)
	SetDeletedAt(ctx context.Context, cid string, deletedAt time.Time) error
	SetLastMessageAt(ctx context.Context, cid string, lastMessageAt time.Time) error
}
