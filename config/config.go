// Package config, SDK'nın tüm konfigürasyonunu merkezi olarak yönetir.
// Environment variable'lardan okur, .env dosyasını da destekler.
//
// Config struct'ı tüm ayarları tek bir yerde toplar — her yerde ayrı ayrı
// os.Getenv() çağırmak yerine tek bir Config nesnesi taşırız.
// Client, config'i constructor'da alır; global config YOK.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config, SDK'nın tüm konfigürasyon değerlerini taşır.
// Her alt bölüm ayrı bir struct — her struct tek bir concern'ü temsil eder.
type Config struct {
	API    APIConfig
	Socket SocketConfig
	Cache  CacheConfig
	Typing TypingConfig
	Sync   SyncConfig
}

// APIConfig, REST API ayarları.
type APIConfig struct {
	BaseURL string        // Chat backend base URL (ör: https://chat.example.com)
	Key     string        // API key — her istekte query param olarak gider
	Timeout time.Duration // HTTP istek timeout'u
}

// SocketConfig, WebSocket bağlantı ayarları.
type SocketConfig struct {
	URL               string        // WS endpoint (ör: wss://chat.example.com/connect)
	HeartbeatInterval time.Duration // Health check gönderme aralığı
	ReconnectEnabled  bool          // Kopunca otomatik reconnect denensin mi
}

// CacheConfig, lokal SQLite cache ayarları.
type CacheConfig struct {
	Path string // SQLite dosya yolu (ör: ./data/chatkit.db)
}

// TypingConfig, typing indicator ayarları.
type TypingConfig struct {
	// ThrottleWindow: iki keystroke event'i arasındaki minimum süre.
	// Pencere içindeki ek keystroke'lar server'a gönderilmez.
	ThrottleWindow time.Duration

	// Timeout: Bu süre boyunca yeni keystroke gelmeyen kullanıcı
	// "yazmayı bıraktı" sayılır — explicit stop event'i beklenmez.
	Timeout time.Duration
}

// SyncConfig, offline senkronizasyon ayarları.
type SyncConfig struct {
	RecoveryEnabled  bool // Reconnect'te watch/query/replay recovery çalışsın mı
	RetryMaxAttempts int  // Failed entity başına maksimum yeniden gönderim
}

// Load, environment variable'lardan Config oluşturur.
// .env dosyası varsa önce onu yükler (development kolaylığı için).
// Production'da bu dosya olmaz, gerçek env variable'lar kullanılır.
func Load() (*Config, error) {
	_ = godotenv.Load()

	apiURL := getEnv("CHATKIT_API_URL", "")
	if apiURL == "" {
		return nil, fmt.Errorf("CHATKIT_API_URL environment variable is required")
	}

	apiKey := getEnv("CHATKIT_API_KEY", "")
	if apiKey == "" {
		return nil, fmt.Errorf("CHATKIT_API_KEY environment variable is required")
	}

	timeout, err := parseSeconds("CHATKIT_API_TIMEOUT_SECONDS", "30")
	if err != nil {
		return nil, err
	}

	heartbeat, err := parseSeconds("CHATKIT_HEARTBEAT_SECONDS", "25")
	if err != nil {
		return nil, err
	}

	throttleWindow, err := parseSeconds("CHATKIT_TYPING_THROTTLE_SECONDS", "3")
	if err != nil {
		return nil, err
	}

	typingTimeout, err := parseSeconds("CHATKIT_TYPING_TIMEOUT_SECONDS", "10")
	if err != nil {
		return nil, err
	}

	retryMax, err := strconv.Atoi(getEnv("CHATKIT_RETRY_MAX_ATTEMPTS", "3"))
	if err != nil {
		return nil, fmt.Errorf("invalid CHATKIT_RETRY_MAX_ATTEMPTS: %w", err)
	}

	cfg := &Config{
		API: APIConfig{
			BaseURL: apiURL,
			Key:     apiKey,
			Timeout: timeout,
		},
		Socket: SocketConfig{
			URL:               getEnv("CHATKIT_WS_URL", deriveSocketURL(apiURL)),
			HeartbeatInterval: heartbeat,
			ReconnectEnabled:  getEnv("CHATKIT_WS_RECONNECT", "true") == "true",
		},
		Cache: CacheConfig{
			Path: getEnv("CHATKIT_CACHE_PATH", "./data/chatkit.db"),
		},
		Typing: TypingConfig{
			ThrottleWindow: throttleWindow,
			Timeout:        typingTimeout,
		},
		Sync: SyncConfig{
			RecoveryEnabled:  getEnv("CHATKIT_RECOVERY", "true") == "true",
			RetryMaxAttempts: retryMax,
		},
	}

	return cfg, nil
}

// deriveSocketURL, WS URL verilmemişse API URL'den türetir:
// https://host → wss://host/connect, http://host → ws://host/connect.
func deriveSocketURL(apiURL string) string {
	switch {
	case len(apiURL) > 8 && apiURL[:8] == "https://":
		return "wss://" + apiURL[8:] + "/connect"
	case len(apiURL) > 7 && apiURL[:7] == "http://":
		return "ws://" + apiURL[7:] + "/connect"
	default:
		return apiURL + "/connect"
	}
}

// parseSeconds, saniye cinsinden bir env değerini time.Duration'a çevirir.
func parseSeconds(key, fallback string) (time.Duration, error) {
	raw := getEnv(key, fallback)
	seconds, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return time.Duration(seconds) * time.Second, nil
}

// getEnv, environment variable'ı okur, yoksa fallback değeri döner.
func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}
