package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/akinalp/chatkit/models"
	"github.com/akinalp/chatkit/pkg"
)

// sqliteQueryChannelsRepo, QueryChannelsRepository interface'inin
// SQLite implementasyonu.
type sqliteQueryChannelsRepo struct {
	db *sql.DB
}

// NewSQLiteQueryChannelsRepo, constructor — interface döner.
func NewSQLiteQueryChannelsRepo(db *sql.DB) QueryChannelsRepository {
	return &sqliteQueryChannelsRepo{db: db}
}

func (r *sqliteQueryChannelsRepo) Upsert(ctx context.Context, spec *models.QueryChannelsSpec) error {
	query := `
		INSERT INTO query_channels (id, filter, sort, cids)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			cids = excluded.cids`

	_, err := r.db.ExecContext(ctx, query,
		spec.Key(),
		spec.Filter.Key(),
		models.SortKey(spec.Sort),
		toJSON(spec.CIDs, "[]"),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert query channels spec: %w", err)
	}
	return nil
}

func (r *sqliteQueryChannelsRepo) GetByKey(ctx context.Context, key string) (*models.QueryChannelsSpec, error) {
	query := `
		SELECT filter, sort, cids
		FROM query_channels
		WHERE id = ?`

	var filterRaw, sortRaw, cidsRaw string
	err := r.db.QueryRowContext(ctx, query, key).Scan(&filterRaw, &sortRaw, &cidsRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get query channels spec: %w", err)
	}

	spec := &models.QueryChannelsSpec{}
	fromJSON(filterRaw, &spec.Filter)
	fromJSON(sortRaw, &spec.Sort)
	fromJSON(cidsRaw, &spec.CIDs)
	return spec, nil
}
