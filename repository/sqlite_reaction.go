package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/akinalp/chatkit/models"
)

// sqliteReactionRepo, ReactionRepository interface'inin SQLite implementasyonu.
type sqliteReactionRepo struct {
	db *sql.DB
}

// NewSQLiteReactionRepo, constructor — interface döner.
func NewSQLiteReactionRepo(db *sql.DB) ReactionRepository {
	return &sqliteReactionRepo{db: db}
}

func (r *sqliteReactionRepo) Upsert(ctx context.Context, reaction *models.Reaction) error {
	query := `
		INSERT INTO reactions (message_id, user_id, type, score, sync_status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(message_id, user_id, type) DO UPDATE SET
			score = excluded.score,
			sync_status = excluded.sync_status`

	_, err := r.db.ExecContext(ctx, query,
		reaction.MessageID,
		reaction.UserID,
		reaction.Type,
		reaction.Score,
		int(reaction.SyncStatus),
		reaction.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert reaction: %w", err)
	}
	return nil
}

// Delete, reaction satırını kaldırır. Satır yoksa sessizce geçer —
// aynı reaction.deleted event'i iki kez uygulansa da sonuç aynıdır.
func (r *sqliteReactionRepo) Delete(ctx context.Context, messageID, userID, reactionType string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM reactions WHERE message_id = ? AND user_id = ? AND type = ?`,
		messageID, userID, reactionType)
	if err != nil {
		return fmt.Errorf("failed to delete reaction: %w", err)
	}
	return nil
}

func (r *sqliteReactionRepo) GetByMessageID(ctx context.Context, messageID string) ([]models.Reaction, error) {
	query := `
		SELECT message_id, user_id, type, score, sync_status, created_at
		FROM reactions
		WHERE message_id = ?
		ORDER BY created_at ASC`

	return r.queryReactions(ctx, query, messageID)
}

// GetByMessageAndUser, bir kullanıcının tek mesajdaki reaction'larını
// getirir — OwnReactions hydration'ı için.
func (r *sqliteReactionRepo) GetByMessageAndUser(ctx context.Context, messageID, userID string) ([]models.Reaction, error) {
	query := `
		SELECT message_id, user_id, type, score, sync_status, created_at
		FROM reactions
		WHERE message_id = ? AND user_id = ?
		ORDER BY created_at ASC`

	return r.queryReactions(ctx, query, messageID, userID)
}

func (r *sqliteReactionRepo) GetBySyncStatus(ctx context.Context, status models.SyncStatus) ([]models.Reaction, error) {
	query := `
		SELECT message_id, user_id, type, score, sync_status, created_at
		FROM reactions
		WHERE sync_status = ?
		ORDER BY created_at ASC`

	return r.queryReactions(ctx, query, int(status))
}

func (r *sqliteReactionRepo) queryReactions(ctx context.Context, query string, args ...any) ([]models.Reaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reactions: %w", err)
	}
	defer rows.Close()

	var reactions []models.Reaction
	for rows.Next() {
		var reaction models.Reaction
		var syncStatus int
		if err := rows.Scan(
			&reaction.MessageID, &reaction.UserID, &reaction.Type,
			&reaction.Score, &syncStatus, &reaction.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan reaction row: %w", err)
		}
		reaction.SyncStatus = models.SyncStatus(syncStatus)
		reactions = append(reactions, reaction)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reaction rows: %w", err)
	}
	return reactions, nil
}
