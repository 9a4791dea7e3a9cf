// Package ws, chat backend'ine giden WebSocket bağlantısını yönetir.
//
// Bu paket SDK'nın event KAYNAĞIDIR: socket'ten gelen her frame bir
// Event'e çözülür ve tek bir channel üzerinden sync dispatcher'a
// teslim edilir. Event'lerin cache'e ve state'e UYGULANMASI bu paketin
// işi değildir — o iş sync paketindedir. Kaynak ile işleyiciyi ayırmak,
// replay edilen geçmiş event'lerin (sync history) canlı event'lerle
// aynı koddan geçmesini sağlar.
package ws

import (
	"time"

	"github.com/akinalp/chatkit/models"
)

// Server'dan gelen event tipleri.
//
// "notification.*" event'leri, izlenmeyen (unwatched) kanallar için
// gelir — server, watch edilmeyen kanalın mesajını normal
// "message.new" yerine notification olarak iletir.
const (
	EventMessageNew     = "message.new"
	EventMessageUpdated = "message.updated"
	EventMessageDeleted = "message.deleted"

	EventReactionNew     = "reaction.new"
	EventReactionDeleted = "reaction.deleted"

	EventMessageRead = "message.read"

	EventMemberAdded   = "member.added"
	EventMemberRemoved = "member.removed"

	EventChannelUpdated   = "channel.updated"
	EventChannelDeleted   = "channel.deleted"
	EventChannelTruncated = "channel.truncated"

	EventNotificationMessageNew     = "notification.message_new"
	EventNotificationAddedToChannel = "notification.added_to_channel"
	EventNotificationMarkRead       = "notification.mark_read"

	EventTypingStart = "typing.start"
	EventTypingStop  = "typing.stop"

	EventHealthCheck = "health.check"
)

// Event, socket'ten veya sync history replay'inden gelen tek bir olayı
// temsil eder. Hangi alanların dolu olduğu Type'a bağlıdır — örn.
// message.new'da Message dolu, member.added'da Member dolu.
type Event struct {
	Type      string           `json:"type"`
	CID       string           `json:"cid,omitempty"`
	Message   *models.Message  `json:"message,omitempty"`
	Reaction  *models.Reaction `json:"reaction,omitempty"`
	Channel   *models.Channel  `json:"channel,omitempty"`
	Member    *models.Member   `json:"member,omitempty"`
	User      *models.User     `json:"user,omitempty"`
	CreatedAt time.Time        `json:"created_at"`

	// notification.mark_read ile gelen global sayaçlar. Pointer'dır —
	// sayaç taşımayan payload ile meşru bir sıfır değeri ayırt edilir.
	TotalUnreadCount *int `json:"total_unread_count,omitempty"`
	UnreadChannels   *int `json:"unread_channels,omitempty"`
}

// ConnectionState, socket bağlantısının durumunu temsil eder.
type ConnectionState int

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected

	// StateRecovering: bağlantı kuruldu ama kaçırılan event'ler henüz
	// replay edilmedi — state güncel kabul edilemez.
	StateRecovering
)

// String, log çıktıları için okunabilir durum adı döner.
func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateRecovering:
		return "recovering"
	default:
		return "unknown"
	}
}
