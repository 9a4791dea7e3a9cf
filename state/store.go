// Package state, SDK'nın UI'a açılan reaktif state katmanını içerir.
//
// UI, SDK'ya "sorgu" atmaz — state hücrelerine ABONE olur. Her mutation
// (event, optimistic update, reconcile) ilgili hücreyi günceller ve tüm
// aboneler yeni değeri alır. Server'daki hub'ın broadcast rolünün
// client tarafındaki karşılığı budur: orada mesaj tüm bağlı client'lara
// yayınlanır, burada yeni state tüm abonelere yayınlanır.
package state

import "sync"

// Store, tek değerli broadcast state hücresi — generic.
//
// Kurallar:
// - Tek yazıcı: Set'i çağıran taraf tektir (dispatcher veya use-case
//   katmanı). Okuma sayısı sınırsızdır.
// - Last-value replay: Yeni abone, abone olduğu anda MEVCUT değeri alır
//   (boş ekran yok, abone kaçırdığını beklemez).
// - Conflation: Yavaş bir abone publish'i bloklamaz — abonenin
//   kuyruğunda en fazla bir değer bekler, yenisi eskisinin üstüne
//   yazar. UI her zaman EN SON değeri görür, ara değerleri kaçırabilir.
type Store[T any] struct {
	mu    sync.Mutex
	value T
	subs  map[int]chan T
	next  int
}

// NewStore, verilen başlangıç değeriyle bir hücre oluşturur.
func NewStore[T any](initial T) *Store[T] {
	return &Store[T]{
		value: initial,
		subs:  make(map[int]chan T),
	}
}

// Get, mevcut değeri döner.
func (s *Store[T]) Get() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Set, değeri günceller ve tüm abonelere yayınlar.
func (s *Store[T]) Set(value T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = value
	for _, ch := range s.subs {
		deliver(ch, value)
	}
}

// Update, mevcut değeri verilen fonksiyondan geçirip sonucu yayınlar.
// Read-modify-write'ı tek lock altında yapar — iki ayrı Get+Set
// çağrısı arasına başka yazma giremez.
func (s *Store[T]) Update(fn func(T) T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = fn(s.value)
	for _, ch := range s.subs {
		deliver(ch, s.value)
	}
}

// Subscribe, yeni bir abonelik açar. Dönen channel'a önce mevcut değer
// yazılır, sonra her Set'te yeni değer gelir. İkinci dönüş değeri
// aboneliği kapatan fonksiyondur — çağrılmazsa abonelik sızar.
func (s *Store[T]) Subscribe() (<-chan T, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.next
	s.next++

	// Buffer 1 — conflation için yeterli tek slot.
	ch := make(chan T, 1)
	ch <- s.value
	s.subs[id] = ch

	unsubscribe := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if existing, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(existing)
		}
	}
	return ch, unsubscribe
}

// deliver, conflation ile teslim eder: slot doluysa eski değer atılır.
func deliver[T any](ch chan T, value T) {
	select {
	case ch <- value:
		return
	default:
	}
	// Slot dolu — eskiyi boşalt, yeniyi koy. İkinci select gerekli
	// çünkü bu arada abone eskiyi okumuş olabilir.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- value:
	default:
	}
}
