package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/akinalp/chatkit/models"
	"github.com/akinalp/chatkit/pkg"
)

// sqliteReadStateRepo, ReadStateRepository interface'inin SQLite implementasyonu.
type sqliteReadStateRepo struct {
	db *sql.DB
}

// NewSQLiteReadStateRepo, constructor — interface döner.
func NewSQLiteReadStateRepo(db *sql.DB) ReadStateRepository {
	return &sqliteReadStateRepo{db: db}
}

// Upsert, watermark'ı forward-only kuralıyla yazar.
//
// "ON CONFLICT ... DO UPDATE ... WHERE excluded.last_read > reads.last_read"
// — çakışmada güncelleme SADECE yeni değer ileriyse çalışır. Geç gelen
// veya replay edilen eski bir read event'i satırı değiştirmez.
func (r *sqliteReadStateRepo) Upsert(ctx context.Context, read *models.ChannelUserRead) error {
	query := `
		INSERT INTO reads (cid, user_id, last_read, unread_messages)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(cid, user_id) DO UPDATE SET
			last_read = excluded.last_read,
			unread_messages = excluded.unread_messages
		WHERE excluded.last_read > reads.last_read`

	_, err := r.db.ExecContext(ctx, query,
		read.CID, read.UserID, read.LastRead, read.UnreadMessages)
	if err != nil {
		return fmt.Errorf("failed to upsert read state: %w", err)
	}
	return nil
}

func (r *sqliteReadStateRepo) Get(ctx context.Context, cid, userID string) (*models.ChannelUserRead, error) {
	query := `
		SELECT cid, user_id, last_read, unread_messages
		FROM reads
		WHERE cid = ? AND user_id = ?`

	read := &models.ChannelUserRead{}
	err := r.db.QueryRowContext(ctx, query, cid, userID).Scan(
		&read.CID, &read.UserID, &read.LastRead, &read.UnreadMessages)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get read state: %w", err)
	}
	return read, nil
}

func (r *sqliteReadStateRepo) GetByCID(ctx context.Context, cid string) ([]models.ChannelUserRead, error) {
	query := `
		SELECT cid, user_id, last_read, unread_messages
		FROM reads
		WHERE cid = ?`

	rows, err := r.db.QueryContext(ctx, query, cid)
	if err != nil {
		return nil, fmt.Errorf("failed to get read states by cid: %w", err)
	}
	defer rows.Close()

	var reads []models.ChannelUserRead
	for rows.Next() {
		var read models.ChannelUserRead
		if err := rows.Scan(&read.CID, &read.UserID, &read.LastRead, &read.UnreadMessages); err != nil {
			return nil, fmt.Errorf("failed to scan read state row: %w", err)
		}
		reads = append(reads, read)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating read state rows: %w", err)
	}
	return reads, nil
}

// IncrementUnread, başka bir kullanıcıdan yeni mesaj geldiğinde current
// user'ın unread sayacını bir artırır. Satır yoksa 1 olarak açılır
// (last_read sıfır zamanda başlar — hiç okunmamış kanal).
func (r *sqliteReadStateRepo) IncrementUnread(ctx context.Context, cid, userID string) error {
	query := `
		INSERT INTO reads (cid, user_id, last_read, unread_messages)
		VALUES (?, ?, ?, 1)
		ON CONFLICT(cid, user_id) DO UPDATE SET
			unread_messages = reads.unread_messages + 1`

	if _, err := r.db.ExecContext(ctx, query, cid, userID, time.Time{}); err != nil {
		return fmt.Errorf("failed to increment unread count: %w", err)
	}
	return nil
}
