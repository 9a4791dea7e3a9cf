// Package call — Tek bir asenkron network operasyonunu saran generic Call tipi.
//
// Call[T], bir "producer" fonksiyonunu (ctx alıp (T, error) dönen) sarar ve
// üç farklı çalıştırma modu sunar:
//
//	result := c.Execute()            // senkron — tamamlanana kadar bloklar
//	c.Enqueue(func(r Result[T]) {})  // asenkron — callback ile
//	result := c.Await(ctx)           // cooperative — ctx iptaline duyarlı bekleme
//
// Producer EN FAZLA BİR KEZ çalışır (sync.Once). Hangi mod önce tetiklerse
// tetiklesin, tüm bekleyenler AYNI completion'ı gözlemler — bu sayede
// distinct-call dedup'ında tek bir Call instance'ı birden fazla çağırana
// güvenle paylaştırılabilir (bkz. api/distinct.go).
//
// Cancel:
// - Producer'a verilen context iptal edilir (HTTP istekleri abort olur)
// - Henüz teslim edilmemiş Enqueue callback'leri SUPPRESS edilir
// - Bekleyen Execute/Await çağrıları ErrCanceled sonucu alır
package call

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrCanceled, iptal edilmiş bir call'un sonucu olarak döner.
var ErrCanceled = errors.New("call canceled")

// Result, bir network operasyonunun tekil sonucu: değer VEYA hata.
//
// Public API boundary'den exception/panic geçmez — her başarısızlık
// bu tip içinde taşınır.
type Result[T any] struct {
	Value T
	Err   error
}

// Ok, başarılı sonuç oluşturur.
func Ok[T any](value T) Result[T] {
	return Result[T]{Value: value}
}

// Err, hatalı sonuç oluşturur.
func Err[T any](err error) Result[T] {
	return Result[T]{Err: err}
}

// IsSuccess, sonucun başarılı olup olmadığını döner.
func (r Result[T]) IsSuccess() bool {
	return r.Err == nil
}

// Call, tek bir asenkron operasyonu temsil eder.
//
// İç durum makinesi:
// - start(): producer'ı bir goroutine'de EXACTLY ONCE başlatır
// - done channel'ı kapanınca result final'dir ve bir daha değişmez
// - canceled flag'i atomik — Cancel ile yarışan Enqueue teslimi güvenlidir
type Call[T any] struct {
	producer func(ctx context.Context) (T, error)

	ctx    context.Context
	cancel context.CancelFunc

	once     sync.Once
	done     chan struct{}
	result   Result[T]
	canceled atomic.Bool

	// onComplete hook'ları — completion'da (başarı, hata veya cancel)
	// TEK KEZ çalışır. Distinct registry, key temizliği için kullanır.
	// New'dan sonra, ilk çalıştırmadan ÖNCE eklenmelidir.
	hookMu     sync.Mutex
	onComplete []func(Result[T])
}

// New, verilen producer'ı saran yeni bir Call oluşturur.
// Producer henüz ÇALIŞMAZ — ilk Execute/Enqueue/Await tetikler.
//
// parent context, call'un yaşam alanıdır: parent iptal olursa
// producer'ın context'i de iptal olur (structured concurrency).
func New[T any](parent context.Context, producer func(ctx context.Context) (T, error)) *Call[T] {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	return &Call[T]{
		producer: producer,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// OnComplete, completion'da çağrılacak bir hook ekler.
// Hook, iptal dahil HER completion'da çalışır — registry temizliği
// gibi "her durumda yapılmalı" işler içindir (callback suppression
// sadece Enqueue callback'lerine uygulanır).
func (c *Call[T]) OnComplete(fn func(Result[T])) {
	c.hookMu.Lock()
	defer c.hookMu.Unlock()
	c.onComplete = append(c.onComplete, fn)
}

// start, producer'ı exactly-once başlatır.
func (c *Call[T]) start() {
	c.once.Do(func() {
		go func() {
			value, err := c.producer(c.ctx)

			// İptal yarışı: producer ctx iptalini fark etmeden normal
			// dönmüş olabilir — iptal edilmiş call'un sonucu her zaman
			// ErrCanceled'dır (deterministik completion).
			switch {
			case c.canceled.Load():
				c.result = Err[T](ErrCanceled)
			case err != nil:
				c.result = Err[T](err)
			default:
				c.result = Ok(value)
			}
			close(c.done)

			c.hookMu.Lock()
			hooks := c.onComplete
			c.onComplete = nil
			c.hookMu.Unlock()
			for _, hook := range hooks {
				hook(c.result)
			}
		}()
	})
}

// Execute, call'u senkron çalıştırır — completion'a kadar bloklar.
func (c *Call[T]) Execute() Result[T] {
	c.start()
	<-c.done
	return c.result
}

// Enqueue, call'u asenkron çalıştırır; completion'da callback çağrılır.
//
// Cancel edilmiş bir call'un callback'i ÇAĞRILMAZ — "iptal ettim ama
// callback yine de geldi" durumu oluşmaz.
func (c *Call[T]) Enqueue(callback func(Result[T])) {
	c.start()
	go func() {
		<-c.done
		if c.canceled.Load() {
			return
		}
		callback(c.result)
	}()
}

// Await, call'u çalıştırır ve ctx iptaline duyarlı şekilde bekler.
//
// ctx iptal olursa SADECE bekleme sonlanır — call'un kendisi iptal
// edilmez (başka bir bekleyen aynı call'u paylaşıyor olabilir).
// Call'u gerçekten durdurmak için Cancel kullanılır.
func (c *Call[T]) Await(ctx context.Context) Result[T] {
	c.start()
	select {
	case <-ctx.Done():
		return Err[T](ctx.Err())
	case <-c.done:
		return c.result
	}
}

// Cancel, call'u iptal eder: producer context'i iptal edilir, bekleyen
// Enqueue callback'leri suppress edilir. Tamamlanmış bir call üzerinde
// Cancel etkisizdir.
func (c *Call[T]) Cancel() {
	select {
	case <-c.done:
		return // Zaten tamamlandı
	default:
	}
	c.canceled.Store(true)
	c.cancel()
	// Producer hiç başlamadıysa bile completion üretilmeli —
	// bekleyen Execute/Await sonsuza kadar takılmamalı.
	c.start()
}
