// Package throttle — Key bazlı event throttling (keystroke debounce).
//
// Typing indicator akışında her tuş basışında server'a event göndermek
// gereksiz trafik yaratır. Throttle, key başına (cid veya cid+parentId)
// bir pencere tutar: pencere içinde İLK çağrı geçer, sonrakiler sessizce
// reddedilir. Pencere dolunca ilk çağrı yeniden geçer.
//
// Tasarım:
// - Her key için son geçen çağrının zamanı tutulur.
// - Allow: now - last >= window ise true döner ve zamanı günceller.
// - Reset: explicit stop-typing'te key temizlenir — bir sonraki keystroke
//   pencereyi beklemeden hemen geçer.
// - Background goroutine ile eski key'ler temizlenir (memory leak engeli).
//
// Neden ayrı paket?
// services ↔ state arasında import cycle oluşmaması için throttle
// bağımsız bir leaf paket olarak konumlandırıldı — hiçbir proje içi
// pakete bağımlı değildir.
package throttle

import (
	"sync"
	"time"
)

// Throttle, key bazlı event throttling.
//
// Kullanım:
//
//	t := throttle.New(3 * time.Second)
//	if t.Allow(cid) {
//	    // typing.start event'ini gönder
//	}
type Throttle struct {
	mu          sync.Mutex
	last        map[string]time.Time
	window      time.Duration
	stopCleanup chan struct{}
}

// New, yeni bir Throttle oluşturur ve arka plan temizleme goroutine'ini
// başlatır. window: aynı key için iki geçiş arasındaki minimum süre.
func New(window time.Duration) *Throttle {
	t := &Throttle{
		last:        make(map[string]time.Time),
		window:      window,
		stopCleanup: make(chan struct{}),
	}

	go t.cleanupLoop()

	return t
}

// Allow, verilen key için event geçişine izin verilip verilmediğini döner.
//
// true: pencere boş — event gönderilmeli, pencere başlatıldı.
// false: pencere içindeyiz — event suppress edilmeli (idempotent keystroke).
func (t *Throttle) Allow(key string) bool {
	now := time.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	if last, ok := t.last[key]; ok && now.Sub(last) < t.window {
		return false
	}
	t.last[key] = now
	return true
}

// Reset, key'in penceresini temizler. Explicit stop-typing sonrası
// bir sonraki keystroke beklemeden geçer.
func (t *Throttle) Reset(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.last, key)
}

// Close, temizleme goroutine'ini durdurur.
func (t *Throttle) Close() {
	close(t.stopCleanup)
}

// cleanupLoop, pencere süresi çoktan dolmuş key'leri periyodik siler.
// Uzun yaşayan bir client'ta her kanal için kalıcı entry birikmesini önler.
func (t *Throttle) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cutoff := time.Now().Add(-2 * t.window)
			t.mu.Lock()
			for key, last := range t.last {
				if last.Before(cutoff) {
					delete(t.last, key)
				}
			}
			t.mu.Unlock()
		case <-t.stopCleanup:
			return
		}
	}
}
