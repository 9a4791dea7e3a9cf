package state

import (
	"github.com/akinalp/chatkit/models"
	"github.com/akinalp/chatkit/ws"
)

// GlobalState, kanala bağlı olmayan SDK-geneli state hücrelerini tutar.
//
// UnreadCounts, notification.mark_read event'leriyle server'dan gelen
// toplam sayaçlardır — client kendi hesaplamaz, server'ın söylediğini
// yayınlar.
type GlobalState struct {
	// User: ConnectUser ile bağlanan current user.
	User *Store[models.User]

	// Connection: socket bağlantı durumu. UI "bağlanıyor..." banner'ını
	// buradan sürer.
	Connection *Store[ws.ConnectionState]

	// TotalUnreadCount: tüm kanallardaki toplam okunmamış mesaj sayısı.
	TotalUnreadCount *Store[int]

	// UnreadChannels: okunmamış mesajı olan kanal sayısı.
	UnreadChannels *Store[int]
}

// NewGlobalState, constructor.
func NewGlobalState() *GlobalState {
	return &GlobalState{
		User:             NewStore(models.User{}),
		Connection:       NewStore(ws.StateDisconnected),
		TotalUnreadCount: NewStore(0),
		UnreadChannels:   NewStore(0),
	}
}
