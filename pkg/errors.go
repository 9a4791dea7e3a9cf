// Package pkg, projede paylaşılan utility'leri barındırır.
// Bu dosya domain-level error tanımlarını içerir.
//
// Go'da error'lar basit değerlerdir (string taşıyan struct'lar).
// errors.New() ile sabit error değişkenleri tanımlarız.
// Böylece error karşılaştırması string yerine referans ile yapılır:
//
//	if errors.Is(err, pkg.ErrValidation) { ... }
//
// Bu, typo'ya açık string karşılaştırmasından çok daha güvenlidir.
package pkg

import "errors"

// Domain-level error'lar.
//
// Use-case katmanı alt katman hatalarını bu sentinel'lara sararak döner
// (fmt.Errorf("%w: ...", pkg.ErrValidation) gibi). SDK'yı kullanan taraf
// hiçbir zaman alt katmana özgü error tipi görmez — sadece bu sentinel'lar
// ve api.Error (network hatası) public boundary'yi geçer.
var (
	// ErrValidation — girdi hatası (bozuk cid, boş zorunlu alan).
	// Senkron döner, hiçbir zaman network'e ulaşmaz.
	ErrValidation = errors.New("validation failed")

	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInternal     = errors.New("internal error")

	// ErrNotConnected — socket bağlantısı yokken bağlantı gerektiren
	// bir işlem çağrıldı (örn. ConnectUser yapılmadan WatchChannel).
	ErrNotConnected = errors.New("not connected")
)
