package api

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/akinalp/chatkit/pkg"
)

// JWT token yardımcıları.
//
// Production'da token'ı uygulamanın KENDİ backend'i üretir (API secret
// client'a asla gömülmez). DevToken sadece development/test içindir —
// secret'ı bilen bir ortamda hızlı token üretmeyi sağlar.

// DevToken, verilen kullanıcı için HS256 imzalı bir JWT üretir.
func DevToken(secret, userID string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
	})

	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign dev token: %w", err)
	}
	return signed, nil
}

// UserIDFromToken, JWT'nin user_id claim'ini İMZA DOĞRULAMADAN okur.
//
// Client tarafında secret yoktur, imza doğrulanamaz — doğrulamayı
// server yapar. Burada sadece ConnectUser'a verilen token ile user
// nesnesinin tutarlılığını kontrol etmek için claim okunur.
func UserIDFromToken(tokenString string) (string, error) {
	parser := jwt.NewParser()
	token, _, err := parser.ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return "", fmt.Errorf("%w: malformed token: %v", pkg.ErrValidation, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("%w: unexpected token claims", pkg.ErrValidation)
	}

	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("%w: token missing user_id claim", pkg.ErrValidation)
	}
	return userID, nil
}
