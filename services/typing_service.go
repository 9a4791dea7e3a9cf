package services

import (
	"context"
	"fmt"

	"github.com/akinalp/chatkit/api"
	"github.com/akinalp/chatkit/models"
	"github.com/akinalp/chatkit/pkg"
	"github.com/akinalp/chatkit/pkg/call"
	"github.com/akinalp/chatkit/pkg/throttle"
	"github.com/akinalp/chatkit/ws"
)

// TypingService, typing indicator iş mantığı interface'i.
//
// parentID, thread typing'i ayırır: thread'e yazan kullanıcı kanalın ana
// akışında "yazıyor" görünmez. Boş parentID kanal seviyesi demektir.
type TypingService interface {
	Keystroke(ctx context.Context, cid, parentID string) *call.Call[api.Empty]
	StopTyping(ctx context.Context, cid, parentID string) *call.Call[api.Empty]
}

type typingService struct {
	api      api.ChatAPI
	throttle *throttle.Throttle
}

// NewTypingService, constructor.
// throttle: kanal başına typing.start gönderim penceresi (~3s) —
// her tuş vuruşu ayrı event üretmez.
func NewTypingService(chatAPI api.ChatAPI, th *throttle.Throttle) TypingService {
	return &typingService{
		api:      chatAPI,
		throttle: th,
	}
}

// Keystroke, kullanıcının tuşa bastığını bildirir.
//
// Throttle penceresi içindeki tekrar çağrılar network'e GİTMEZ — başarı
// döner, event atlanır. Pencere (cid, parentID) ikilisi bazındadır:
// thread typing kanal typing'ini bastırmaz. Karşı taraf göstergeyi TTL
// ile canlı tutar.
func (s *typingService) Keystroke(ctx context.Context, cid, parentID string) *call.Call[api.Empty] {
	return call.New(ctx, func(ctx context.Context) (api.Empty, error) {
		if _, _, err := models.ParseCID(cid); err != nil {
			return api.Empty{}, fmt.Errorf("%w: %v", pkg.ErrValidation, err)
		}

		if !s.throttle.Allow(typingKey(cid, parentID)) {
			return api.Empty{}, nil
		}

		result := s.api.SendEvent(ctx, cid, ws.EventTypingStart, parentID).Await(ctx)
		return api.Empty{}, result.Err
	})
}

// StopTyping, kullanıcının yazmayı bıraktığını bildirir ve throttle
// penceresini sıfırlar — bir sonraki keystroke hemen gönderilir.
func (s *typingService) StopTyping(ctx context.Context, cid, parentID string) *call.Call[api.Empty] {
	return call.New(ctx, func(ctx context.Context) (api.Empty, error) {
		if _, _, err := models.ParseCID(cid); err != nil {
			return api.Empty{}, fmt.Errorf("%w: %v", pkg.ErrValidation, err)
		}

		s.throttle.Reset(typingKey(cid, parentID))

		result := s.api.SendEvent(ctx, cid, ws.EventTypingStop, parentID).Await(ctx)
		return api.Empty{}, result.Err
	})
}

// typingKey, throttle anahtarını üretir. parentID ayrı bir segment
// olarak eklenir — thread typing kanal typing'inin penceresini paylaşmaz.
func typingKey(cid, parentID string) string {
	if parentID == "" {
		return cid
	}
	return cid + "|" + parentID
}
