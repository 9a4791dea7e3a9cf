package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/akinalp/chatkit/models"
	"github.com/akinalp/chatkit/pkg"
)

// sqliteUserRepo, UserRepository interface'inin SQLite implementasyonu.
type sqliteUserRepo struct {
	db *sql.DB
}

// NewSQLiteUserRepo, constructor — interface döner.
func NewSQLiteUserRepo(db *sql.DB) UserRepository {
	return &sqliteUserRepo{db: db}
}

func (r *sqliteUserRepo) UpsertMany(ctx context.Context, users []models.User) error {
	if len(users) == 0 {
		return nil
	}

	query := `
		INSERT INTO users (id, name, image, last_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			image = excluded.image,
			last_active = excluded.last_active,
			updated_at = excluded.updated_at`

	for _, user := range users {
		if _, err := r.db.ExecContext(ctx, query,
			user.ID, user.Name, user.Image, user.LastActive,
			user.CreatedAt, user.UpdatedAt); err != nil {
			return fmt.Errorf("failed to upsert user: %w", err)
		}
	}
	return nil
}

func (r *sqliteUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `
		SELECT id, name, image, last_active, created_at, updated_at
		FROM users
		WHERE id = ?`

	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID, &user.Name, &user.Image, &user.LastActive,
		&user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	return user, nil
}
