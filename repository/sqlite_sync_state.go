package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/akinalp/chatkit/models"
	"github.com/akinalp/chatkit/pkg"
)

// sqliteSyncStateRepo, SyncStateRepository interface'inin SQLite implementasyonu.
type sqliteSyncStateRepo struct {
	db *sql.DB
}

// NewSQLiteSyncStateRepo, constructor — interface döner.
func NewSQLiteSyncStateRepo(db *sql.DB) SyncStateRepository {
	return &sqliteSyncStateRepo{db: db}
}

func (r *sqliteSyncStateRepo) Upsert(ctx context.Context, state *models.SyncState) error {
	query := `
		INSERT INTO sync_state (user_id, last_synced_at, active_cids)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			last_synced_at = excluded.last_synced_at,
			active_cids = excluded.active_cids`

	_, err := r.db.ExecContext(ctx, query,
		state.UserID, state.LastSyncedAt, toJSON(state.ActiveCIDs, "[]"))
	if err != nil {
		return fmt.Errorf("failed to upsert sync state: %w", err)
	}
	return nil
}

func (r *sqliteSyncStateRepo) GetByUserID(ctx context.Context, userID string) (*models.SyncState, error) {
	query := `
		SELECT user_id, last_synced_at, active_cids
		FROM sync_state
		WHERE user_id = ?`

	state := &models.SyncState{}
	var activeCIDs string
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&state.UserID, &state.LastSyncedAt, &activeCIDs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sync state: %w", err)
	}

	fromJSON(activeCIDs, &state.ActiveCIDs)
	return state, nil
}
