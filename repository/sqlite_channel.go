package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/akinalp/chatkit/models"
	"github.com/akinalp/chatkit/pkg"
)

// sqliteChannelRepo, ChannelRepository interface'inin SQLite implementasyonu.
type sqliteChannelRepo struct {
	db *sql.DB
}

// NewSQLiteChannelRepo, constructor — interface döner.
func NewSQLiteChannelRepo(db *sql.DB) ChannelRepository {
	return &sqliteChannelRepo{db: db}
}

func (r *sqliteChannelRepo) Upsert(ctx context.Context, channel *models.Channel) error {
	query := `
		INSERT INTO channels (
			cid, type, id, name, last_message_at, extra_data,
			created_at, updated_at, deleted_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(cid) DO UPDATE SET
			name = excluded.name,
			last_message_at = excluded.last_message_at,
			extra_data = excluded.extra_data,
			updated_at = excluded.updated_at,
			deleted_at = excluded.deleted_at`

	_, err := r.db.ExecContext(ctx, query,
		channel.CID,
		channel.Type,
		channel.ID,
		channel.Name,
		channel.LastMessageAt,
		toJSON(channel.ExtraData, "{}"),
		channel.CreatedAt,
		channel.UpdatedAt,
		channel.DeletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert channel: %w", err)
	}
	return nil
}

func (r *sqliteChannelRepo) GetByCID(ctx context.Context, cid string) (*models.Channel, error) {
	query := `
		SELECT cid, type, id, name, last_message_at, extra_data,
		       created_at, updated_at, deleted_at
		FROM channels
		WHERE cid = ?`

	ch, err := scanChannel(r.db.QueryRowContext(ctx, query, cid))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get channel by cid: %w", err)
	}
	return ch, nil
}

// GetByCIDs, kanalları verilen cid sırasıyla döner.
// Query-channels cache'i kanal sıralamasını cids listesinde taşır —
// SQL'in IN sırası belirsizdir, bu yüzden sonuç Go tarafında yeniden
// sıralanır. Cache'te olmayan cid'ler sessizce atlanır.
func (r *sqliteChannelRepo) GetByCIDs(ctx context.Context, cids []string) ([]models.Channel, error) {
	if len(cids) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(cids))
	placeholders = placeholders[:len(placeholders)-1]

	query := `
		SELECT cid, type, id, name, last_message_at, extra_data,
		       created_at, updated_at, deleted_at
		FROM channels
		WHERE cid IN (` + placeholders + `)`

	args := make([]any, len(cids))
	for i, cid := range cids {
		args[i] = cid
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get channels by cids: %w", err)
	}
	defer rows.Close()

	byCID := make(map[string]models.Channel, len(cids))
	for rows.Next() {
		ch, err := scanChannel(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan channel row: %w", err)
		}
		byCID[ch.CID] = *ch
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating channel rows: %w", err)
	}

	channels := make([]models.Channel, 0, len(cids))
	for _, cid := range cids {
		if ch, ok := byCID[cid]; ok {
			channels = append(channels, ch)
		}
	}
	return channels, nil
}

func (r *sqliteChannelRepo) SetDeletedAt(ctx context.Context, cid string, deletedAt time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE channels SET deleted_at = ? WHERE cid = ?`, deletedAt, cid)
	if err != nil {
		return fmt.Errorf("failed to mark channel deleted: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return pkg.ErrNotFound
	}
	return nil
}

// SetLastMessageAt, denormalize last_message_at alanını günceller.
// WHERE guard'ı forward-only kuralını SQL tarafında uygular — geç gelen
// bir event elimizdeki daha yeni zaman damgasını geri alamaz.
func (r *sqliteChannelRepo) SetLastMessageAt(ctx context.Context, cid string, lastMessageAt time.Time) error {
	query := `
		UPDATE channels SET last_message_at = ?
		WHERE cid = ?
		  AND (last_message_at IS NULL OR last_message_at < ?)`

	if _, err := r.db.ExecContext(ctx, query, lastMessageAt, cid, lastMessageAt); err != nil {
		return fmt.Errorf("failed to update channel last_message_at: %w", err)
	}
	return nil
}

func scanChannel(row rowScanner) (*models.Channel, error) {
	ch := &models.Channel{}
	var extraData string

	err := row.Scan(
		&ch.CID, &ch.Type, &ch.ID, &ch.Name, &ch.LastMessageAt, &extraData,
		&ch.CreatedAt, &ch.UpdatedAt, &ch.DeletedAt,
	)
	if err != nil {
		return nil, err
	}

	fromJSON(extraData, &ch.ExtraData)
	return ch, nil
}
