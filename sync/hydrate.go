// Package sync, server event'lerini lokal cache'e ve state'e uygulayan
// senkronizasyon motorunu içerir: dispatcher (canlı event akışı) ve
// manager (reconnect recovery + failed retry).
package sync

import (
	"context"
	"log"

	"github.com/akinalp/chatkit/api"
	"github.com/akinalp/chatkit/models"
	"github.com/akinalp/chatkit/repository"
	"github.com/akinalp/chatkit/state"
)

// HydrateChannelPage, bir kanal sorgusu cevabını (kanal + üyeler +
// read'ler + mesaj sayfası) hem lokal cache'e hem state controller'ına
// yazar. Watch cevabı, load more cevabı ve recovery re-watch hepsi bu
// yoldan geçer — tek uygulama, tek invariant seti.
//
// replace: true ise mesaj listesi komple değiştirilir (ilk watch),
// false ise sayfa mevcut listeye merge edilir (pagination).
func HydrateChannelPage(ctx context.Context, repos *repository.Repos, channelState *state.ChannelState, page api.ChannelPage, replace bool) error {
	channel := page.Channel

	if err := repos.Channels.Upsert(ctx, &channel); err != nil {
		return err
	}

	// Üye payload'larıyla gelen user'lar da cache'e yazılır —
	// mention çözümleme ve mesaj hydration'ı buradan beslenir.
	var users []models.User
	for _, member := range channel.Members {
		if member.User != nil {
			users = append(users, *member.User)
		}
	}
	for _, message := range page.Messages {
		if message.User != nil {
			users = append(users, *message.User)
		}
	}
	if err := repos.Users.UpsertMany(ctx, users); err != nil {
		return err
	}

	if err := repos.Members.UpsertMany(ctx, channel.Members); err != nil {
		return err
	}

	for i := range channel.Reads {
		read := channel.Reads[i]
		read.CID = channel.CID
		if err := repos.Reads.Upsert(ctx, &read); err != nil {
			return err
		}
	}

	for i := range page.Messages {
		message := page.Messages[i]
		message.CID = channel.CID
		message.SyncStatus = models.SyncStatusSynced
		if err := repos.Messages.Upsert(ctx, &message); err != nil {
			return err
		}
	}

	channelState.SetChannel(channel)
	channelState.SetMembers(channel.Members)
	channelState.SetReads(channel.Reads)
	if replace {
		channelState.SetMessages(page.Messages)
	} else {
		channelState.MergeMessages(page.Messages)
	}
	return nil
}

// HydrateQueryPage, bir kanal-listesi sorgusu cevabını cache'e ve
// sorgu state'ine yazar. Her kanalın kendi sayfası HydrateChannelPage
// kurallarından geçer; izlenmeyen kanallar için registry'de controller
// AÇILMAZ — sadece cache güncellenir.
func HydrateQueryPage(ctx context.Context, repos *repository.Repos, registry *state.Registry, pages []api.ChannelPage) []models.Channel {
	channels := make([]models.Channel, 0, len(pages))
	for _, page := range pages {
		channels = append(channels, page.Channel)

		channelState, watched := registry.GetChannel(page.Channel.CID)
		if watched {
			if err := HydrateChannelPage(ctx, repos, channelState, page, true); err != nil {
				log.Printf("[sync] failed to hydrate channel %s: %v", page.Channel.CID, err)
			}
			continue
		}

		// İzlenmeyen kanal — sadece cache.
		channel := page.Channel
		if err := repos.Channels.Upsert(ctx, &channel); err != nil {
			log.Printf("[sync] failed to cache channel %s: %v", channel.CID, err)
			continue
		}
		_ = repos.Members.UpsertMany(ctx, channel.Members)
		for i := range page.Messages {
			message := page.Messages[i]
			message.CID = channel.CID
			message.SyncStatus = models.SyncStatusSynced
			if err := repos.Messages.Upsert(ctx, &message); err != nil {
				log.Printf("[sync] failed to cache message %s: %v", message.ID, err)
			}
		}
	}
	return channels
}
