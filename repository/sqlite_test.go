package repository

import (
	"context"
	"io/fs"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/akinalp/chatkit/database"
	"github.com/akinalp/chatkit/models"
)

// newTestRepos, geçici bir dosyada gerçek SQLite açar ve migration'ları
// uygular — repository testleri in-memory fake yerine gerçek şemaya
// karşı koşar.
func newTestRepos(t *testing.T) *Repos {
	t.Helper()

	migrations, err := fs.Sub(database.EmbeddedMigrations, "migrations")
	require.NoError(t, err)

	db, err := database.New(filepath.Join(t.TempDir(), "cache.db"), migrations)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return NewSQLiteRepos(db.Conn)
}

// seedChannel, FK constraint'leri için kanal satırını hazırlar.
func seedChannel(t *testing.T, repos *Repos, cid string) {
	t.Helper()
	channelType, channelID, err := models.ParseCID(cid)
	require.NoError(t, err)

	now := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, repos.Channels.Upsert(context.Background(), &models.Channel{
		CID:       cid,
		Type:      channelType,
		ID:        channelID,
		CreatedAt: now,
		UpdatedAt: now,
	}))
}

func seedMessage(t *testing.T, repos *Repos, id, cid string, createdAt time.Time) {
	t.Helper()
	require.NoError(t, repos.Messages.Upsert(context.Background(), &models.Message{
		ID:        id,
		CID:       cid,
		UserID:    "ayse",
		Text:      "mesaj " + id,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}))
}
