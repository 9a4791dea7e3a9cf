package repository

import (
	"context"

	"github.com/akinalp/chatkit/models"
)

// MemberRepository, kanal üyelikleri için interface.
//
// GetByCID üyeleri user bilgisiyle JOIN'li döner — mention çözümleme
// (@ali → user id) üye adlarına ihtiyaç duyar.
type MemberRepository interface {
	UpsertMany(ctx context.Context, members []models.Member) error
	Delete(ctx context.Context, cid, userID string) error
	GetByCID(ctx context.Context, cid string) ([]models.Member, error)
}
