package models

import (
	"fmt"
	"strings"
	"time"
)

// Channel, bir chat kanalını temsil eder.
// Hem lokal cache'teki "channels" tablosunun hem de backend'den gelen
// channel payload'ının Go karşılığı.
//
// Composite key: Kanal, (Type, ID) ikilisi ile tanımlanır.
// CID = "type:id" (örn. "messaging:123") — tüm katmanlarda kanal
// referansı olarak bu string kullanılır.
//
// LastMessageAt denormalize bir alandır — kanal listesi sıralaması için
// her yeni mesajda güncellenir, ayrıca message tablosuna JOIN gerekmez.
type Channel struct {
	CID           string            `json:"cid"`
	Type          string            `json:"type"`
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Members       []Member          `json:"members,omitempty"`
	Reads         []ChannelUserRead `json:"read,omitempty"`
	LastMessageAt *time.Time        `json:"last_message_at"`
	ExtraData     map[string]any    `json:"extra_data,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`

	// DeletedAt — soft delete. Kanal storage'dan silinmez, işaretlenir.
	// Aktif query'ler deleted kanalları kendi filter semantiği ile dışlar.
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// IsDeleted, kanalın soft-delete edilip edilmediğini döner.
func (c Channel) IsDeleted() bool {
	return c.DeletedAt != nil
}

// ParseCID, "type:id" formatındaki composite kanal kimliğini parçalar.
//
// cid boşsa veya ":" ayracı içermiyorsa hata döner — bu bir validation
// hatasıdır, network hatası değil. Use-case katmanı her işlemin başında
// bu fonksiyonu çağırır; bozuk cid hiçbir zaman network'e ulaşmaz.
func ParseCID(cid string) (channelType, channelID string, err error) {
	if cid == "" || !strings.Contains(cid, ":") {
		return "", "", fmt.Errorf("invalid cid %q: expected format \"type:id\"", cid)
	}
	parts := strings.SplitN(cid, ":", 2)
	if parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid cid %q: type and id must be non-empty", cid)
	}
	return parts[0], parts[1], nil
}

// NewCID, (type, id) ikilisinden composite kanal kimliği üretir.
func NewCID(channelType, channelID string) string {
	return channelType + ":" + channelID
}
