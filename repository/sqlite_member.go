package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/akinalp/chatkit/models"
)

// sqliteMemberRepo, MemberRepository interface'inin SQLite implementasyonu.
type sqliteMemberRepo struct {
	db *sql.DB
}

// NewSQLiteMemberRepo, constructor — interface döner.
func NewSQLiteMemberRepo(db *sql.DB) MemberRepository {
	return &sqliteMemberRepo{db: db}
}

func (r *sqliteMemberRepo) UpsertMany(ctx context.Context, members []models.Member) error {
	if len(members) == 0 {
		return nil
	}

	query := `
		INSERT INTO members (cid, user_id, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(cid, user_id) DO NOTHING`

	for _, member := range members {
		if _, err := r.db.ExecContext(ctx, query,
			member.CID, member.UserID, member.CreatedAt); err != nil {
			return fmt.Errorf("failed to upsert member: %w", err)
		}
	}
	return nil
}

// Delete, üyelik satırını kaldırır. Satır yoksa sessizce geçer —
// member.removed event'i idempotent'tir.
func (r *sqliteMemberRepo) Delete(ctx context.Context, cid, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM members WHERE cid = ? AND user_id = ?`, cid, userID)
	if err != nil {
		return fmt.Errorf("failed to delete member: %w", err)
	}
	return nil
}

func (r *sqliteMemberRepo) GetByCID(ctx context.Context, cid string) ([]models.Member, error) {
	// Üyeleri user bilgisiyle birlikte getir (JOIN).
	// LEFT JOIN — user satırı cache'te henüz yoksa üyelik yine görünür.
	query := `
		SELECT m.cid, m.user_id, m.created_at,
		       u.id, u.name, u.image
		FROM members m
		LEFT JOIN users u ON m.user_id = u.id
		WHERE m.cid = ?
		ORDER BY m.created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, cid)
	if err != nil {
		return nil, fmt.Errorf("failed to get members by cid: %w", err)
	}
	defer rows.Close()

	var members []models.Member
	for rows.Next() {
		var member models.Member
		var user models.User
		var userID, userName, userImage sql.NullString

		if err := rows.Scan(
			&member.CID, &member.UserID, &member.CreatedAt,
			&userID, &userName, &userImage,
		); err != nil {
			return nil, fmt.Errorf("failed to scan member row: %w", err)
		}

		if userID.Valid {
			user.ID = userID.String
			user.Name = userName.String
			user.Image = userImage.String
			member.User = &user
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating member rows: %w", err)
	}
	return members, nil
}
