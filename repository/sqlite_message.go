package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/akinalp/chatkit/models"
	"github.com/akinalp/chatkit/pkg"
)

// sqliteMessageRepo, MessageRepository interface'inin SQLite implementasyonu.
type sqliteMessageRepo struct {
	db *sql.DB
}

// NewSQLiteMessageRepo, constructor — interface döner.
func NewSQLiteMessageRepo(db *sql.DB) MessageRepository {
	return &sqliteMessageRepo{db: db}
}

const messageColumns = `
	m.id, m.cid, m.user_id, m.text, m.parent_id,
	m.attachments, m.mentioned_user_ids, m.reaction_counts, m.reaction_scores,
	m.sync_status, m.created_at, m.updated_at, m.deleted_at,
	u.id, u.name, u.image`

// Upsert, mesajı cache'e yazar — varsa günceller, yoksa ekler.
//
// ON CONFLICT semantiği last-writer-wins'tir: aynı mesaj hem optimistic
// insert hem server cevabı ile geldiğinde server alanları pending
// satırın üstüne yazılır. ID client tarafında üretilir (UUID) ve server
// tarafından korunur — id swap yoktur.
func (r *sqliteMessageRepo) Upsert(ctx context.Context, message *models.Message) error {
	query := `
		INSERT INTO messages (
			id, cid, user_id, text, parent_id,
			attachments, mentioned_user_ids, reaction_counts, reaction_scores,
			sync_status, created_at, updated_at, deleted_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			text = excluded.text,
			parent_id = excluded.parent_id,
			attachments = excluded.attachments,
			mentioned_user_ids = excluded.mentioned_user_ids,
			reaction_counts = excluded.reaction_counts,
			reaction_scores = excluded.reaction_scores,
			sync_status = excluded.sync_status,
			updated_at = excluded.updated_at,
			deleted_at = excluded.deleted_at`

	_, err := r.db.ExecContext(ctx, query,
		message.ID,
		message.CID,
		message.UserID,
		message.Text,
		message.ParentID,
		toJSON(message.Attachments, "[]"),
		toJSON(message.MentionedUserIDs, "[]"),
		toJSON(message.ReactionCounts, "{}"),
		toJSON(message.ReactionScores, "{}"),
		int(message.SyncStatus),
		message.CreatedAt,
		message.UpdatedAt,
		message.DeletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert message: %w", err)
	}
	return nil
}

func (r *sqliteMessageRepo) GetByID(ctx context.Context, id string) (*models.Message, error) {
	// Mesajı yazar bilgisiyle birlikte getir (JOIN).
	// LEFT JOIN — yazar cache'te yoksa bile mesaj görünür.
	query := `
		SELECT ` + messageColumns + `
		FROM messages m
		LEFT JOIN users u ON m.user_id = u.id
		WHERE m.id = ?`

	msg, err := scanMessage(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message by id: %w", err)
	}
	return msg, nil
}

// GetByCID, cursor-based pagination ile mesajları getirir.
//
// 1. beforeID boşsa → en yeni mesajlardan başla
// 2. beforeID doluysa → cursor mesajından ESKİ mesajları getir
//    (aynı created_at'te id tie-break cursor'a da uygulanır)
// 3. Alt sorgu DESC + LIMIT ile son N'i seçer, dış sorgu ASC'ye çevirir —
//    sonuç her zaman artan sırada döner.
func (r *sqliteMessageRepo) GetByCID(ctx context.Context, cid string, beforeID string, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = 50
	}

	var inner string
	var args []any

	if beforeID == "" {
		inner = `
			SELECT m.* FROM messages m
			WHERE m.cid = ?
			ORDER BY m.created_at DESC, m.id DESC
			LIMIT ?`
		args = []any{cid, limit}
	} else {
		inner = `
			SELECT m.* FROM messages m
			WHERE m.cid = ?
			  AND (m.created_at, m.id) < (SELECT created_at, id FROM messages WHERE id = ?)
			ORDER BY m.created_at DESC, m.id DESC
			LIMIT ?`
		args = []any{cid, beforeID, limit}
	}

	query := `
		SELECT ` + messageColumns + `
		FROM (` + inner + `) m
		LEFT JOIN users u ON m.user_id = u.id
		ORDER BY m.created_at ASC, m.id ASC`

	return r.queryMessages(ctx, query, args...)
}

// GetAfter, cursor mesajından YENİ mesajları artan sırada getirir.
// "Load newer" yönü için kullanılır (derin geçmişten geri dönüş).
func (r *sqliteMessageRepo) GetAfter(ctx context.Context, cid string, afterID string, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT ` + messageColumns + `
		FROM messages m
		LEFT JOIN users u ON m.user_id = u.id
		WHERE m.cid = ?
		  AND (m.created_at, m.id) > (SELECT created_at, id FROM messages WHERE id = ?)
		ORDER BY m.created_at ASC, m.id ASC
		LIMIT ?`

	return r.queryMessages(ctx, query, cid, afterID, limit)
}

// GetByParentID, bir thread'in yanıtlarını artan sırada getirir.
func (r *sqliteMessageRepo) GetByParentID(ctx context.Context, parentID string, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT ` + messageColumns + `
		FROM messages m
		LEFT JOIN users u ON m.user_id = u.id
		WHERE m.parent_id = ?
		ORDER BY m.created_at ASC, m.id ASC
		LIMIT ?`

	return r.queryMessages(ctx, query, parentID, limit)
}

// GetBySyncStatus, verilen sync durumundaki mesajları getirir.
// Recovery akışı pending/failed mesajları bu sorgu ile bulup yeniden gönderir.
func (r *sqliteMessageRepo) GetBySyncStatus(ctx context.Context, status models.SyncStatus) ([]models.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages m
		LEFT JOIN users u ON m.user_id = u.id
		WHERE m.sync_status = ?
		ORDER BY m.created_at ASC, m.id ASC`

	return r.queryMessages(ctx, query, int(status))
}

// DeleteByCID, bir kanalın TÜM mesajlarını siler (channel.truncated).
// Reaction'lar FK cascade ile birlikte gider.
func (r *sqliteMessageRepo) DeleteByCID(ctx context.Context, cid string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM messages WHERE cid = ?`, cid); err != nil {
		return fmt.Errorf("failed to delete messages by cid: %w", err)
	}
	return nil
}

func (r *sqliteMessageRepo) queryMessages(ctx context.Context, query string, args ...any) ([]models.Message, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		messages = append(messages, *msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating message rows: %w", err)
	}
	return messages, nil
}

// rowScanner, hem *sql.Row hem *sql.Rows tarafından karşılanır.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (*models.Message, error) {
	msg := &models.Message{}
	var author models.User
	var authorID, authorName, authorImage sql.NullString
	var attachments, mentions, counts, scores string
	var syncStatus int

	err := row.Scan(
		&msg.ID, &msg.CID, &msg.UserID, &msg.Text, &msg.ParentID,
		&attachments, &mentions, &counts, &scores,
		&syncStatus, &msg.CreatedAt, &msg.UpdatedAt, &msg.DeletedAt,
		&authorID, &authorName, &authorImage,
	)
	if err != nil {
		return nil, err
	}

	fromJSON(attachments, &msg.Attachments)
	fromJSON(mentions, &msg.MentionedUserIDs)
	fromJSON(counts, &msg.ReactionCounts)
	fromJSON(scores, &msg.ReactionScores)
	msg.SyncStatus = models.SyncStatus(syncStatus)

	if authorID.Valid {
		author.ID = authorID.String
		author.Name = authorName.String
		author.Image = authorImage.String
		msg.User = &author
	}

	return msg, nil
}
