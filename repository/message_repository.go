package repository

import (
	"context"

	"github.com/akinalp/chatkit/models"
)

// MessageRepository, lokal mesaj cache'i için interface.
//
// Upsert hem insert hem update yapar — server'dan gelen her mesaj
// payload'ı (event, query cevabı, replay) aynı yoldan cache'e yazılır.
// Lokal optimistic mesajlar da aynı yoldan pending olarak girer.
//
// GetByCID cursor-based pagination kullanır:
// beforeID = bu mesajdan eski mesajları getir (boşsa en yenilerden başla).
// Sonuç her zaman artan sırada döner (created_at, eşitlikte id) —
// sıralama kuralı tüm katmanlarda aynıdır.
type MessageRepository interface {
	Upsert(ctx context.Context, message *models.Message) error
	GetByID(ctx context.Context, id string) (*models.Message, error)
	GetByCID(ctx context.Context, cid string, beforeID string, limit int) ([]models.Message, error)
	GetAfter(ctx context.Context, cid string, afterID string, limit int) ([]models.Message, error)
	GetByParentID(ctx context.Context, parentID string, limit int) ([]models.Message, error)
	GetBySyncStatus(ctx context.Context, status models.SyncStatus) ([]models.Message, error)
	DeleteByCID(ctx context.Context, cid string) error
}
