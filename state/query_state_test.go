package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/chatkit/models"
)

func testChannels(cids ...string) []models.Channel {
	channels := make([]models.Channel, len(cids))
	for i, cid := range cids {
		channels[i] = models.Channel{CID: cid, Type: "messaging"}
	}
	return channels
}

func channelCIDs(channels []models.Channel) []string {
	cids := make([]string, len(channels))
	for i, channel := range channels {
		cids[i] = channel.CID
	}
	return cids
}

func TestQueryChannelsStateSet(t *testing.T) {
	q := NewQueryChannelsState(models.Filter{"type": "messaging"}, nil)

	q.SetChannels(testChannels("messaging:1", "messaging:2"))

	assert.Equal(t, []string{"messaging:1", "messaging:2"}, q.CIDs())
	assert.Equal(t, 2, q.Len())
	assert.True(t, q.Contains("messaging:1"))
	assert.False(t, q.Contains("messaging:9"))
}

func TestQueryChannelsStateAppend(t *testing.T) {
	q := NewQueryChannelsState(models.Filter{"type": "messaging"}, nil)
	q.SetChannels(testChannels("messaging:1", "messaging:2"))

	// İkinci sayfa birinci sayfayla çakışıyor — duplicate atlanır.
	q.AppendChannels(testChannels("messaging:2", "messaging:3"))

	assert.Equal(t, []string{"messaging:1", "messaging:2", "messaging:3"}, q.CIDs())
	assert.Equal(t, []string{"messaging:1", "messaging:2", "messaging:3"}, channelCIDs(q.Channels.Get()))
}

func TestQueryChannelsStateUpsert(t *testing.T) {
	t.Run("promote moves channel to front", func(t *testing.T) {
		q := NewQueryChannelsState(models.Filter{"type": "messaging"}, nil)
		q.SetChannels(testChannels("messaging:1", "messaging:2", "messaging:3"))

		updated := models.Channel{CID: "messaging:3", Type: "messaging", Name: "güncel"}
		q.UpsertChannel(updated, true)

		assert.Equal(t, []string{"messaging:3", "messaging:1", "messaging:2"}, q.CIDs())
		channels := q.Channels.Get()
		require.Equal(t, "messaging:3", channels[0].CID)
		assert.Equal(t, "güncel", channels[0].Name)
	})

	t.Run("without promote position is kept", func(t *testing.T) {
		q := NewQueryChannelsState(models.Filter{"type": "messaging"}, nil)
		q.SetChannels(testChannels("messaging:1", "messaging:2"))

		updated := models.Channel{CID: "messaging:2", Type: "messaging", Name: "yeni ad"}
		q.UpsertChannel(updated, false)

		assert.Equal(t, []string{"messaging:1", "messaging:2"}, q.CIDs())
		assert.Equal(t, "yeni ad", q.Channels.Get()[1].Name)
	})

	t.Run("unknown channel is ignored", func(t *testing.T) {
		q := NewQueryChannelsState(models.Filter{"type": "messaging"}, nil)
		q.SetChannels(testChannels("messaging:1"))

		q.UpsertChannel(models.Channel{CID: "messaging:9"}, true)

		assert.Equal(t, []string{"messaging:1"}, q.CIDs())
	})
}

func TestQueryChannelsStateAddRemove(t *testing.T) {
	q := NewQueryChannelsState(models.Filter{"type": "messaging"}, nil)
	q.SetChannels(testChannels("messaging:1", "messaging:2"))

	q.AddChannel(models.Channel{CID: "messaging:0", Type: "messaging"})
	assert.Equal(t, []string{"messaging:0", "messaging:1", "messaging:2"}, q.CIDs())

	// Zaten listedeyken ekleme etkisizdir.
	q.AddChannel(models.Channel{CID: "messaging:1", Type: "messaging"})
	assert.Equal(t, 3, q.Len())

	q.RemoveChannel("messaging:1")
	assert.Equal(t, []string{"messaging:0", "messaging:2"}, q.CIDs())
	assert.Equal(t, []string{"messaging:0", "messaging:2"}, channelCIDs(q.Channels.Get()))

	// Listede olmayan cid'i düşürmek etkisizdir.
	q.RemoveChannel("messaging:404")
	assert.Equal(t, 2, q.Len())
}

func TestQueryChannelsStateLoadGuard(t *testing.T) {
	q := NewQueryChannelsState(models.Filter{"type": "messaging"}, nil)

	assert.True(t, q.TryBeginLoad())
	assert.False(t, q.TryBeginLoad(), "yükleme sürerken ikinci load başlamamalı")

	q.EndLoad()
	assert.True(t, q.TryBeginLoad())
	q.EndLoad()
}

func TestQueryChannelsStateKeyIdentity(t *testing.T) {
	a := NewQueryChannelsState(models.Filter{"type": "messaging", "muted": false}, []models.SortField{{Field: "last_message_at", Direction: models.SortDescending}})
	b := NewQueryChannelsState(models.Filter{"muted": false, "type": "messaging"}, []models.SortField{{Field: "last_message_at", Direction: models.SortDescending}})

	assert.Equal(t, a.Key, b.Key, "aynı filter+sort aynı sorgu kimliğini üretmeli")
}
