package models

import (
	"encoding/json"
	"fmt"
)

// Sıralama yönleri. Stream tarzı API'lerde -1 = descending, 1 = ascending.
const (
	SortAscending  = 1
	SortDescending = -1
)

// Filter, kanal listesi sorgusunun filtre kriterlerini taşır.
//
// İç temsil map[string]any'dir — backend'in filter şeması dışarıda
// tanımlıdır, SDK içeriğini yorumlamaz, sadece taşır ve key üretir.
//
// Equality semantiği: İki Filter, canonical JSON encoding'leri aynıysa
// eşittir. encoding/json map key'lerini alfabetik sıralar (nested
// map'ler dahil) — bu yüzden aynı içerikli iki map her zaman aynı
// byte dizisine encode olur. Distinct-call dedup key'i bu garantiye
// dayanır; bkz. api/distinct.go ve key contract testi.
type Filter map[string]any

// Key, filter'ın canonical string temsilini döner.
// Marshal hatası pratikte olmaz (map[string]any + JSON-uyumlu değerler);
// olursa boş filter key'i döner — dedup biraz gevşer ama davranış bozulmaz.
func (f Filter) Key() string {
	data, err := json.Marshal(f)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// SortField, tek bir sıralama kriteri (alan + yön).
type SortField struct {
	Field     string `json:"field"`
	Direction int    `json:"direction"`
}

// SortKey, sort listesinin canonical string temsilini döner.
// Slice sırası anlamlıdır (birincil/ikincil sıralama) — sıralanmaz.
func SortKey(sort []SortField) string {
	data, err := json.Marshal(sort)
	if err != nil {
		return "[]"
	}
	return string(data)
}

// QueryChannelsSpec, tek bir canlı kanal-listesi sorgusunu tanımlar.
// (Filter, Sort) ikilisi sorgunun kimliğidir; CIDs o sorgunun mevcut
// sayfa durumunu (sıralı kanal kimlikleri) taşır.
type QueryChannelsSpec struct {
	Filter Filter      `json:"filter"`
	Sort   []SortField `json:"sort"`
	CIDs   []string    `json:"cids"`
}

// Key, sorgunun (filter, sort) bazlı kimliğini döner. Aynı filter ve
// sort ile yapılan iki sorgu aynı spec'i günceller.
func (s *QueryChannelsSpec) Key() string {
	return fmt.Sprintf("%s|%s", s.Filter.Key(), SortKey(s.Sort))
}
