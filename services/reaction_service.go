package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/akinalp/chatkit/api"
	"github.com/akinalp/chatkit/models"
	"github.com/akinalp/chatkit/pkg"
	"github.com/akinalp/chatkit/pkg/call"
	"github.com/akinalp/chatkit/repository"
	"github.com/akinalp/chatkit/state"
)

// ReactionService, reaction iş mantığı interface'i.
type ReactionService interface {
	SendReaction(ctx context.Context, messageID, reactionType string, score int) *call.Call[models.Reaction]
	DeleteReaction(ctx context.Context, messageID, reactionType string) *call.Call[models.Reaction]
}

type reactionService struct {
	api      api.ChatAPI
	repos    *repository.Repos
	registry *state.Registry
	global   *state.GlobalState
}

// NewReactionService, constructor.
func NewReactionService(chatAPI api.ChatAPI, repos *repository.Repos, registry *state.Registry, global *state.GlobalState) ReactionService {
	return &reactionService{
		api:      chatAPI,
		repos:    repos,
		registry: registry,
		global:   global,
	}
}

// SendReaction, optimistic reaction ekler.
//
// Aggregate güncellemesi AddReaction üzerinden yapılır — aynı (user,
// type) ikinci kez gönderilirse count şişmez (idempotent upsert).
// Current user'ın reaction'ı olduğu için OwnReactions da güncellenir.
func (s *reactionService) SendReaction(ctx context.Context, messageID, reactionType string, score int) *call.Call[models.Reaction] {
	return call.New(ctx, func(ctx context.Context) (models.Reaction, error) {
		if messageID == "" || reactionType == "" {
			return models.Reaction{}, fmt.Errorf("%w: message id and reaction type are required", pkg.ErrValidation)
		}
		if score <= 0 {
			score = 1
		}

		message, err := s.repos.Messages.GetByID(ctx, messageID)
		if err != nil {
			return models.Reaction{}, err
		}

		currentUser := s.global.User.Get()

		// Cache'ten okunan mesajın reaction listeleri boştur (listeler ayrı
		// tabloda yaşar) — idempotent AddReaction eşleşmeyi bu listelerde
		// arar, önce doldurulmaları gerekir.
		if err := repository.HydrateMessageReactions(ctx, s.repos.Reactions, message, currentUser.ID); err != nil {
			return models.Reaction{}, err
		}

		reaction := models.Reaction{
			MessageID:  messageID,
			UserID:     currentUser.ID,
			Type:       reactionType,
			Score:      score,
			SyncStatus: models.SyncStatusPending,
			CreatedAt:  time.Now(),
		}

		// Optimistic: aggregate + reaction satırı + state.
		message.AddReaction(reaction, true)
		if err := s.repos.Reactions.Upsert(ctx, &reaction); err != nil {
			return models.Reaction{}, err
		}
		if err := s.repos.Messages.Upsert(ctx, message); err != nil {
			return models.Reaction{}, err
		}
		if channelState, ok := s.registry.GetChannel(message.CID); ok {
			channelState.UpsertMessage(*message)
		}

		result := s.api.SendReaction(ctx, &reaction).Await(ctx)
		if result.Err != nil {
			// Failed — aggregate geri ALINMAZ, reaction failed işaretlenir.
			// Recovery retry'ı tamamlar; kullanıcı niyeti kaybolmaz.
			reaction.SyncStatus = models.SyncStatusFailed
			if err := s.repos.Reactions.Upsert(ctx, &reaction); err != nil {
				return models.Reaction{}, errors.Join(result.Err, err)
			}
			return models.Reaction{}, result.Err
		}

		synced := result.Value
		if synced.MessageID == "" {
			synced = reaction
		}
		synced.SyncStatus = models.SyncStatusSynced
		if err := s.repos.Reactions.Upsert(ctx, &synced); err != nil {
			return models.Reaction{}, err
		}
		return synced, nil
	})
}

// DeleteReaction, optimistic reaction siler.
func (s *reactionService) DeleteReaction(ctx context.Context, messageID, reactionType string) *call.Call[models.Reaction] {
	return call.New(ctx, func(ctx context.Context) (models.Reaction, error) {
		if messageID == "" || reactionType == "" {
			return models.Reaction{}, fmt.Errorf("%w: message id and reaction type are required", pkg.ErrValidation)
		}

		message, err := s.repos.Messages.GetByID(ctx, messageID)
		if err != nil {
			return models.Reaction{}, err
		}

		currentUser := s.global.User.Get()

		// Aggregate düşümü listede eşleşme bulmalı — listeler tablodan
		// doldurulmazsa RemoveReaction no-op olur ve count şişik kalır.
		if err := repository.HydrateMessageReactions(ctx, s.repos.Reactions, message, currentUser.ID); err != nil {
			return models.Reaction{}, err
		}

		reaction := models.Reaction{
			MessageID: messageID,
			UserID:    currentUser.ID,
			Type:      reactionType,
			Score:     1,
		}
		// Score aggregate düşümünde kullanılır — cache'teki gerçek skor alınır.
		if own, err := s.repos.Reactions.GetByMessageAndUser(ctx, messageID, currentUser.ID); err == nil {
			for _, existing := range own {
				if existing.Type == reactionType {
					reaction.Score = existing.Score
					break
				}
			}
		}

		message.RemoveReaction(reaction, true)
		if err := s.repos.Reactions.Delete(ctx, messageID, currentUser.ID, reactionType); err != nil {
			return models.Reaction{}, err
		}
		if err := s.repos.Messages.Upsert(ctx, message); err != nil {
			return models.Reaction{}, err
		}
		if channelState, ok := s.registry.GetChannel(message.CID); ok {
			channelState.UpsertMessage(*message)
		}

		result := s.api.DeleteReaction(ctx, messageID, reactionType).Await(ctx)
		if result.Err != nil {
			return models.Reaction{}, result.Err
		}
		return reaction, nil
	})
}
