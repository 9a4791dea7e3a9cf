// Package api, chat backend'inin REST yüzeyini saran HTTP client'ı içerir.
//
// Her metod bir *call.Call döner — istek HENÜZ atılmaz, çağıran taraf
// Execute/Enqueue/Await ile tetikler. Bu lazy model, distinct dedup'ın
// (aynı anda aynı istek → tek network call) temelidir; bkz. distinct.go.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/akinalp/chatkit/config"
	"github.com/akinalp/chatkit/models"
	"github.com/akinalp/chatkit/pkg/call"
	"github.com/akinalp/chatkit/ws"
)

// Empty, gövdesi önemsiz API cevapları için boş sonuç tipi.
type Empty struct{}

// ChannelPage, tek bir kanal sorgusunun cevabı: kanal metadata'sı
// (üyeler ve read state'ler dahil) + istenen mesaj sayfası.
type ChannelPage struct {
	Channel  models.Channel   `json:"channel"`
	Messages []models.Message `json:"messages"`
}

// QueryChannelRequest, tek kanal sorgusunun parametreleri.
// Before/After mesaj id cursor'larıdır — ikisi birden verilmez.
type QueryChannelRequest struct {
	MessagesLimit int    `json:"messages_limit,omitempty"`
	Before        string `json:"before,omitempty"`
	After         string `json:"after,omitempty"`
	Watch         bool   `json:"watch,omitempty"`
}

// QueryChannelsRequest, kanal listesi sorgusunun parametreleri.
type QueryChannelsRequest struct {
	Filter        models.Filter      `json:"filter"`
	Sort          []models.SortField `json:"sort,omitempty"`
	Limit         int                `json:"limit,omitempty"`
	Offset        int                `json:"offset,omitempty"`
	MessagesLimit int                `json:"messages_limit,omitempty"`
	Watch         bool               `json:"watch,omitempty"`
}

// ChatAPI, backend REST yüzeyinin interface'i.
//
// Use-case katmanı bu interface'e bağımlıdır, somut HTTP client'a değil —
// testlerde elle yazılmış fake ile değiştirilir.
type ChatAPI interface {
	SendMessage(ctx context.Context, cid string, message *models.Message) *call.Call[models.Message]
	EditMessage(ctx context.Context, message *models.Message) *call.Call[models.Message]
	DeleteMessage(ctx context.Context, messageID string) *call.Call[models.Message]

	SendReaction(ctx context.Context, reaction *models.Reaction) *call.Call[models.Reaction]
	DeleteReaction(ctx context.Context, messageID, reactionType string) *call.Call[models.Reaction]

	MarkRead(ctx context.Context, cid, messageID string) *call.Call[Empty]
	MarkAllRead(ctx context.Context) *call.Call[Empty]

	QueryChannel(ctx context.Context, cid string, req QueryChannelRequest) *call.Call[ChannelPage]
	QueryChannels(ctx context.Context, req QueryChannelsRequest) *call.Call[[]ChannelPage]
	GetReplies(ctx context.Context, parentID string, limit int) *call.Call[[]models.Message]
	GetSyncHistory(ctx context.Context, cids []string, since time.Time) *call.Call[[]ws.Event]

	SendEvent(ctx context.Context, cid, eventType, parentID string) *call.Call[Empty]
}

// HTTPClient, ChatAPI interface'inin gerçek HTTP implementasyonu.
type HTTPClient struct {
	baseURL string
	apiKey  string
	token   string
	http    *http.Client
}

// NewHTTPClient, constructor.
func NewHTTPClient(cfg config.APIConfig) *HTTPClient {
	return &HTTPClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.Key,
		http:    &http.Client{Timeout: cfg.Timeout},
	}
}

// SetToken, ConnectUser sonrası kullanıcı token'ını ayarlar.
// Bundan sonraki her istek Authorization header'ı taşır.
func (c *HTTPClient) SetToken(token string) {
	c.token = token
}

// ─── Response envelope'ları ─────────────────────────────────────────
// Backend her cevabı bir zarf içinde döner: {"message": {...}} gibi.

type messageEnvelope struct {
	Message models.Message `json:"message"`
}

type reactionEnvelope struct {
	Reaction models.Reaction `json:"reaction"`
}

type channelsEnvelope struct {
	Channels []ChannelPage `json:"channels"`
}

type repliesEnvelope struct {
	Messages []models.Message `json:"messages"`
}

type syncEnvelope struct {
	Events []ws.Event `json:"events"`
}

// ─── ChatAPI implementasyonu ────────────────────────────────────────

func (c *HTTPClient) SendMessage(ctx context.Context, cid string, message *models.Message) *call.Call[models.Message] {
	return call.New(ctx, func(ctx context.Context) (models.Message, error) {
		channelType, channelID, err := models.ParseCID(cid)
		if err != nil {
			return models.Message{}, err
		}
		var env messageEnvelope
		path := fmt.Sprintf("/channels/%s/%s/message", channelType, channelID)
		err = c.do(ctx, http.MethodPost, path, map[string]any{"message": message}, &env)
		return env.Message, err
	})
}

func (c *HTTPClient) EditMessage(ctx context.Context, message *models.Message) *call.Call[models.Message] {
	return call.New(ctx, func(ctx context.Context) (models.Message, error) {
		var env messageEnvelope
		path := "/messages/" + url.PathEscape(message.ID)
		err := c.do(ctx, http.MethodPost, path, map[string]any{"message": message}, &env)
		return env.Message, err
	})
}

func (c *HTTPClient) DeleteMessage(ctx context.Context, messageID string) *call.Call[models.Message] {
	return call.New(ctx, func(ctx context.Context) (models.Message, error) {
		var env messageEnvelope
		path := "/messages/" + url.PathEscape(messageID)
		err := c.do(ctx, http.MethodDelete, path, nil, &env)
		return env.Message, err
	})
}

func (c *HTTPClient) SendReaction(ctx context.Context, reaction *models.Reaction) *call.Call[models.Reaction] {
	return call.New(ctx, func(ctx context.Context) (models.Reaction, error) {
		var env reactionEnvelope
		path := fmt.Sprintf("/messages/%s/reaction", url.PathEscape(reaction.MessageID))
		err := c.do(ctx, http.MethodPost, path, map[string]any{"reaction": reaction}, &env)
		return env.Reaction, err
	})
}

func (c *HTTPClient) DeleteReaction(ctx context.Context, messageID, reactionType string) *call.Call[models.Reaction] {
	return call.New(ctx, func(ctx context.Context) (models.Reaction, error) {
		var env reactionEnvelope
		path := fmt.Sprintf("/messages/%s/reaction/%s",
			url.PathEscape(messageID), url.PathEscape(reactionType))
		err := c.do(ctx, http.MethodDelete, path, nil, &env)
		return env.Reaction, err
	})
}

func (c *HTTPClient) MarkRead(ctx context.Context, cid, messageID string) *call.Call[Empty] {
	return call.New(ctx, func(ctx context.Context) (Empty, error) {
		channelType, channelID, err := models.ParseCID(cid)
		if err != nil {
			return Empty{}, err
		}
		body := map[string]any{}
		if messageID != "" {
			body["message_id"] = messageID
		}
		path := fmt.Sprintf("/channels/%s/%s/read", channelType, channelID)
		return Empty{}, c.do(ctx, http.MethodPost, path, body, nil)
	})
}

func (c *HTTPClient) MarkAllRead(ctx context.Context) *call.Call[Empty] {
	return call.New(ctx, func(ctx context.Context) (Empty, error) {
		return Empty{}, c.do(ctx, http.MethodPost, "/channels/read", map[string]any{}, nil)
	})
}

func (c *HTTPClient) QueryChannel(ctx context.Context, cid string, req QueryChannelRequest) *call.Call[ChannelPage] {
	return call.New(ctx, func(ctx context.Context) (ChannelPage, error) {
		channelType, channelID, err := models.ParseCID(cid)
		if err != nil {
			return ChannelPage{}, err
		}
		var page ChannelPage
		path := fmt.Sprintf("/channels/%s/%s/query", channelType, channelID)
		err = c.do(ctx, http.MethodPost, path, req, &page)
		return page, err
	})
}

func (c *HTTPClient) QueryChannels(ctx context.Context, req QueryChannelsRequest) *call.Call[[]ChannelPage] {
	return call.New(ctx, func(ctx context.Context) ([]ChannelPage, error) {
		var env channelsEnvelope
		err := c.do(ctx, http.MethodPost, "/channels", req, &env)
		return env.Channels, err
	})
}

func (c *HTTPClient) GetReplies(ctx context.Context, parentID string, limit int) *call.Call[[]models.Message] {
	return call.New(ctx, func(ctx context.Context) ([]models.Message, error) {
		var env repliesEnvelope
		path := fmt.Sprintf("/messages/%s/replies?limit=%d", url.PathEscape(parentID), limit)
		err := c.do(ctx, http.MethodGet, path, nil, &env)
		return env.Messages, err
	})
}

// GetSyncHistory, verilen kanallar için since'ten bu yana kaçırılan
// event'leri getirir. Recovery replay'inin veri kaynağıdır.
func (c *HTTPClient) GetSyncHistory(ctx context.Context, cids []string, since time.Time) *call.Call[[]ws.Event] {
	return call.New(ctx, func(ctx context.Context) ([]ws.Event, error) {
		var env syncEnvelope
		body := map[string]any{
			"channel_cids":   cids,
			"last_synced_at": since.Format(time.RFC3339Nano),
		}
		err := c.do(ctx, http.MethodPost, "/sync", body, &env)
		return env.Events, err
	})
}

// SendEvent, kanala ephemeral bir event gönderir (typing.start gibi).
// parentID doluysa event bir thread'e aittir — payload'da taşınır.
func (c *HTTPClient) SendEvent(ctx context.Context, cid, eventType, parentID string) *call.Call[Empty] {
	return call.New(ctx, func(ctx context.Context) (Empty, error) {
		channelType, channelID, err := models.ParseCID(cid)
		if err != nil {
			return Empty{}, err
		}
		payload := map[string]any{"type": eventType}
		if parentID != "" {
			payload["parent_id"] = parentID
		}
		body := map[string]any{"event": payload}
		path := fmt.Sprintf("/channels/%s/%s/event", channelType, channelID)
		return Empty{}, c.do(ctx, http.MethodPost, path, body, nil)
	})
}

// do, tek bir HTTP isteğini uçtan uca yürütür:
// body'yi JSON'a çevir → isteği at → hata ise api.Error'a çöz →
// başarı ise cevabı out'a decode et (out nil ise gövde atlanır).
func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	// API key her istekte query param olarak gider.
	q := req.URL.Query()
	q.Set("api_key", c.apiKey)
	req.URL.RawQuery = q.Encode()

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &Error{StatusCode: resp.StatusCode}
		data, _ := io.ReadAll(resp.Body)
		if jsonErr := json.Unmarshal(data, apiErr); jsonErr != nil || apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		apiErr.StatusCode = resp.StatusCode
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
