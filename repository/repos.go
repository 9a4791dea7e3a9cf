package repository

import "database/sql"

// Repos, tüm repository interface'lerini tek struct'ta toplar.
// Client kurulumunda bir kez oluşturulur ve ihtiyaç duyan katmanlara
// (dispatcher, manager, servisler) komple geçirilir — yedi ayrı
// parametre taşımak yerine.
type Repos struct {
	Messages      MessageRepository
	Channels      ChannelRepository
	Reactions     ReactionRepository
	Reads         ReadStateRepository
	Members       MemberRepository
	Users         UserRepository
	SyncState     SyncStateRepository
	QueryChannels QueryChannelsRepository
}

// NewSQLiteRepos, tüm repository'lerin SQLite implementasyonlarını kurar.
func NewSQLiteRepos(db *sql.DB) *Repos {
	return &Repos{
		Messages:      NewSQLiteMessageRepo(db),
		Channels:      NewSQLiteChannelRepo(db),
		Reactions:     NewSQLiteReactionRepo(db),
		Reads:         NewSQLiteReadStateRepo(db),
		Members:       NewSQLiteMemberRepo(db),
		Users:         NewSQLiteUserRepo(db),
		SyncState:     NewSQLiteSyncStateRepo(db),
		QueryChannels: NewSQLiteQueryChannelsRepo(db),
	}
}
