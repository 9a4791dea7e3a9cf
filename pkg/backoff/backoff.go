// Package backoff — Exponential backoff hesabı ve ctx-duyarlı bekleme.
//
// Socket reconnect ve failed-entity retry döngüleri bu paketi kullanır.
//
// Formül: base = Initial × Factor^(attempt-1)
//
//	jitter = base × Jitter × random[0,1)
//	delay  = min(Max, base + jitter)
//
// Jitter neden var?
// Server düştüğünde tüm client'lar aynı anda kopar. Jitter olmadan hepsi
// aynı saniyede reconnect dener — "thundering herd". Küçük bir rastgele
// pay, denemeleri zamana yayar.
package backoff

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// Policy, backoff parametrelerini taşır.
type Policy struct {
	Initial time.Duration // İlk deneme gecikmesi
	Max     time.Duration // Üst sınır — delay bunun üstüne çıkmaz
	Factor  float64       // Her denemede çarpan (örn. 2 = ikiye katla)
	Jitter  float64       // Rastgelelik payı, 0.0–1.0
}

// Default, socket reconnect için kullanılan varsayılan policy.
// 250ms'den başlar, ikiye katlanarak 30s'de doyar, %10 jitter.
func Default() Policy {
	return Policy{
		Initial: 250 * time.Millisecond,
		Max:     30 * time.Second,
		Factor:  2,
		Jitter:  0.1,
	}
}

// Delay, verilen deneme numarası (1-indexed) için bekleme süresini döner.
func (p Policy) Delay(attempt int) time.Duration {
	return p.DelayWithRand(attempt, rand.Float64())
}

// DelayWithRand, rastgele değeri dışarıdan alır — testlerde deterministik
// sonuç için. randomValue [0,1) aralığında olmalıdır.
func (p Policy) DelayWithRand(attempt int, randomValue float64) time.Duration {
	exp := math.Max(float64(attempt-1), 0)
	base := float64(p.Initial) * math.Pow(p.Factor, exp)
	jitter := base * p.Jitter * randomValue
	total := math.Min(float64(p.Max), base+jitter)
	return time.Duration(total)
}

// Sleep, deneme numarasına göre hesaplanan süre kadar bekler.
// ctx iptal olursa beklemeyi keser ve ctx.Err() döner — graceful
// shutdown sırasında reconnect döngüsü takılı kalmaz.
func (p Policy) Sleep(ctx context.Context, attempt int) error {
	timer := time.NewTimer(p.Delay(attempt))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
