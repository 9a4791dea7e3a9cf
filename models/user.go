package models

import "time"

// User, bir chat kullanıcısını temsil eder.
//
// Name aynı zamanda mention handle'ıdır — mesaj metnindeki "@ali"
// token'ı kanal üyelerinin Name alanıyla eşleştirilir.
type User struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Image      string     `json:"image,omitempty"`
	LastActive *time.Time `json:"last_active,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Member, bir kanal üyeliğini temsil eder — (CID, UserID) unique.
// User alanı JOIN ile doldurulur; mention çözümleme ve üye listesi
// gösterimi için kullanılır.
type Member struct {
	CID       string    `json:"cid"`
	UserID    string    `json:"user_id"`
	User      *User     `json:"user,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
