package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/akinalp/chatkit/config"
	"github.com/akinalp/chatkit/pkg/backoff"
)

// WebSocket bağlantı sabitleri
const (
	// writeWait: Bir frame'i yazmak için maksimum bekleme süresi.
	writeWait = 10 * time.Second

	// readWait: Server'dan bir frame gelmesi için beklenen maksimum süre.
	// Server her health check'e cevap verir — bu sürede hiçbir şey
	// gelmezse bağlantı kopmuş sayılır.
	readWait = 90 * time.Second

	// eventBufferSize: Event channel'ının buffer boyutu.
	// Dispatcher event'leri sırayla işlerken okuma pump'ı bloklanmasın.
	eventBufferSize = 256
)

// Connection, backend'e giden tek WebSocket bağlantısını yönetir.
//
// Tek reader kuralı: gorilla/websocket aynı anda tek okuma destekler —
// tüm frame'ler readPump goroutine'inde okunur ve Events() channel'ına
// yazılır. Event'leri TÜKETEN taraf (sync dispatcher) kendi tek
// goroutine'inde işler; böylece kanal bazında event sırası korunur.
//
// Reconnect: Bağlantı koptuğunda exponential backoff ile yeniden
// denenir. Her başarılı bağlanışta state callback'i tetiklenir —
// recovery akışını (replay, re-watch) bu callback başlatır.
type Connection struct {
	cfg    config.SocketConfig
	policy backoff.Policy

	events  chan Event
	onState func(ConnectionState)

	mu     sync.Mutex
	conn   *websocket.Conn
	state  ConnectionState
	dialed dialParams

	closeOnce sync.Once
	closed    chan struct{}
}

// dialParams, reconnect için saklanan bağlantı kimlik bilgileri.
type dialParams struct {
	apiKey string
	token  string
	userID string
}

// NewConnection, constructor. onState nil olabilir.
func NewConnection(cfg config.SocketConfig, onState func(ConnectionState)) *Connection {
	return &Connection{
		cfg:     cfg,
		policy:  backoff.Default(),
		events:  make(chan Event, eventBufferSize),
		onState: onState,
		state:   StateDisconnected,
		closed:  make(chan struct{}),
	}
}

// Events, socket'ten gelen event akışını döner.
//
// Channel hiç KAPANMAZ — Close() sadece closed sinyalini verir ve
// pump'lar durur. Kapatma close(events) ile yapılsaydı, send case'ine
// commit olmuş bir readPump kapalı channel'a yazıp panic üretebilirdi.
// Tüketici (dispatcher.Run) kendi context'inin iptaliyle durdurulur.
func (c *Connection) Events() <-chan Event {
	return c.events
}

// State, mevcut bağlantı durumunu döner.
func (c *Connection) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect, WebSocket bağlantısını kurar ve pump goroutine'lerini başlatır.
// Başarılı dönüşten sonra event'ler Events() channel'ından akmaya başlar.
func (c *Connection) Connect(ctx context.Context, apiKey, token, userID string) error {
	c.mu.Lock()
	c.dialed = dialParams{apiKey: apiKey, token: token, userID: userID}
	c.mu.Unlock()

	c.setState(StateConnecting)

	conn, err := c.dial(ctx)
	if err != nil {
		c.setState(StateDisconnected)
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.setState(StateConnected)

	go c.readPump(conn)
	go c.heartbeat(conn)
	return nil
}

// dial, saklanan kimlik bilgileriyle WebSocket bağlantısı açar.
func (c *Connection) dial(ctx context.Context) (*websocket.Conn, error) {
	c.mu.Lock()
	params := c.dialed
	c.mu.Unlock()

	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid socket url: %w", err)
	}
	q := u.Query()
	q.Set("api_key", params.apiKey)
	q.Set("authorization", params.token)
	q.Set("user_id", params.userID)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial socket: %w", err)
	}
	return conn, nil
}

// readPump, socket'ten frame okur, Event'e çözer ve channel'a yazar.
// Bağlantı kopana kadar döngüde kalır; kopunca reconnect'i tetikler.
func (c *Connection) readPump(conn *websocket.Conn) {
	for {
		if err := conn.SetReadDeadline(time.Now().Add(readWait)); err != nil {
			log.Printf("[ws] failed to set read deadline: %v", err)
		}

		_, raw, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.closed:
				return // Kullanıcı kapattı — reconnect yok
			default:
			}
			log.Printf("[ws] read error: %v", err)
			c.setState(StateDisconnected)
			if c.cfg.ReconnectEnabled {
				go c.reconnect()
			}
			return
		}

		var event Event
		if err := json.Unmarshal(raw, &event); err != nil {
			// Bozuk frame bağlantıyı düşürmez — logla ve devam et.
			log.Printf("[ws] failed to decode event: %v", err)
			continue
		}

		select {
		case c.events <- event:
		case <-c.closed:
			return
		}
	}
}

// heartbeat, düzenli aralıklarla health check frame'i gönderir.
// Server cevap event'i döner — readPump'ın read deadline'ı yenilenir.
func (c *Connection) heartbeat(conn *websocket.Conn) {
	ticker := time.NewTicker(c.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.closed:
			return
		case <-ticker.C:
			c.mu.Lock()
			current := c.conn
			c.mu.Unlock()
			if current != conn {
				return // Reconnect yeni bağlantı açtı — eski heartbeat ölsün
			}

			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(Event{Type: EventHealthCheck}); err != nil {
				log.Printf("[ws] heartbeat write error: %v", err)
				return
			}
		}
	}
}

// reconnect, exponential backoff ile bağlantıyı yeniden kurmayı dener.
// Close() çağrılana kadar pes etmez.
func (c *Connection) reconnect() {
	for attempt := 0; ; attempt++ {
		delay := c.policy.Delay(attempt)
		log.Printf("[ws] reconnecting in %s (attempt %d)", delay, attempt+1)

		select {
		case <-c.closed:
			return
		case <-time.After(delay):
		}

		c.setState(StateConnecting)
		conn, err := c.dial(context.Background())
		if err != nil {
			log.Printf("[ws] reconnect failed: %v", err)
			c.setState(StateDisconnected)
			continue
		}

		c.mu.Lock()
		c.conn = conn
		c.mu.Unlock()

		// Recovering: bağlantı var ama kaçırılan event'ler henüz replay
		// edilmedi. Recovery tamamlanınca manager Connected'a çeker.
		c.setState(StateRecovering)

		go c.readPump(conn)
		go c.heartbeat(conn)
		return
	}
}

// MarkRecovered, recovery akışı bitince bağlantıyı Connected durumuna çeker.
func (c *Connection) MarkRecovered() {
	c.setState(StateConnected)
}

// Close, bağlantıyı kalıcı olarak kapatır. Reconnect denenmez; pump'lar
// closed sinyali ile durur. Events() channel'ı kapatılmaz — bkz. Events.
// İkinci çağrı etkisizdir.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		c.mu.Lock()
		if c.conn != nil {
			err = c.conn.Close()
		}
		c.mu.Unlock()
		c.setState(StateDisconnected)
	})
	return err
}

// setState, durumu günceller ve callback'i (varsa) çağırır.
// Callback lock dışında çağrılır — callback içinden State() okunabilir.
func (c *Connection) setState(state ConnectionState) {
	c.mu.Lock()
	if c.state == state {
		c.mu.Unlock()
		return
	}
	c.state = state
	c.mu.Unlock()

	log.Printf("[ws] connection state: %s", state)
	if c.onState != nil {
		c.onState(state)
	}
}
