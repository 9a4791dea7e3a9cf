package repository

import (
	"context"

	"github.com/akinalp/chatkit/models"
)

// UserRepository, lokal kullanıcı cache'i için interface.
// Her mesaj/üye payload'ı ile gelen user nesneleri buraya yazılır;
// mesaj hydration'ı ve mention çözümleme buradan okur.
type UserRepository interface {
	UpsertMany(ctx context.Context, users []models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
}
