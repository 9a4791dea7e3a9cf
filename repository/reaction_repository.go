package repository

import (
	"context"

	"github.com/akinalp/chatkit/models"
)

// ReactionRepository, lokal reaction cache'i için interface.
//
// (MessageID, UserID, Type) üçlüsü primary key'dir — Upsert aynı üçlü
// ile tekrar çağrıldığında satır güncellenir, kopyalanmaz.
type ReactionRepository interface {
	Upsert(ctx context.Context, reaction *models.Reaction) error
	Delete(ctx context.Context, messageID, userID, reactionType string) error
	GetByMessageID(ctx context.Context, messageID string) ([]models.Reaction, error)
	GetByMessageAndUser(ctx context.Context, messageID, userID string) ([]models.Reaction, error)
	GetBySyncStatus(ctx context.Context, status models.SyncStatus) ([]models.Reaction, error)
}

// HydrateMessageReactions, mesajın LatestReactions/OwnReactions listelerini
// reactions tablosundan doldurur.
//
// Messages tablosu sadece count/score aggregate'lerini taşır — reaction
// LİSTELERİ ayrı tabloda yaşar. Cache'ten okunan bir mesaj üzerinde
// AddReaction/RemoveReaction çağrılmadan önce bu fonksiyon çağrılmalıdır;
// aksi halde RemoveReaction listede eşleşme bulamaz ve aggregate düşümü
// atlanır (count sonsuza kadar şişik kalır).
func HydrateMessageReactions(ctx context.Context, reactions ReactionRepository, message *models.Message, currentUserID string) error {
	rows, err := reactions.GetByMessageID(ctx, message.ID)
	if err != nil {
		return err
	}

	message.LatestReactions = rows
	message.OwnReactions = nil
	for _, r := range rows {
		if r.UserID == currentUserID {
			message.OwnReactions = append(message.OwnReactions, r)
		}
	}
	return nil
}
