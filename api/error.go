package api

import "fmt"

// Error, backend'den dönen bir API hatasını temsil eder.
//
// Public boundary'den geçen iki hata ailesinden biridir (diğeri pkg
// sentinel'ları). SDK'yı kullanan taraf StatusCode ve Code ile hatayı
// programatik olarak ayırt edebilir.
type Error struct {
	Code       int    `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"status_code"`
}

// Error, error interface implementasyonu.
func (e *Error) Error() string {
	return fmt.Sprintf("api error %d (http %d): %s", e.Code, e.StatusCode, e.Message)
}

// Temporary, hatanın yeniden denemeye değer olup olmadığını döner.
//
// 5xx, timeout (408) ve rate limit (429) geçicidir — retry mantıklıdır.
// Diğer 4xx'ler kalıcıdır: aynı isteği tekrar göndermek aynı hatayı
// üretir. Failed sync durumuna geçiş bu ayrıma dayanır.
func (e *Error) Temporary() bool {
	if e.StatusCode >= 500 {
		return true
	}
	return e.StatusCode == 408 || e.StatusCode == 429
}
