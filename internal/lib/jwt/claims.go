// Package jwt реализует выпуск и разбор токенов сессии.
//
// Токен подписывается HS256 и содержит UID аккаунта (sub), email и
// идентификатор сессии (jti), по которому сессию можно отозвать.
package jwt

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Maker описывает интерфейс для генерации и парсинга токенов сессии.
type Maker interface {
	GenerateToken(accountUID, email, sessionID string) (string, time.Time, error)
	ParseToken(tokenStr string) (*CustomClaims, error)
}

// CustomClaims описывает данные сессии, хранящиеся в токене.
type CustomClaims struct {
	Email                string `json:"email"`
	jwt.RegisteredClaims        // sub = UID аккаунта, jti = ID сессии
}

// AccountUID возвращает UID аккаунта из claims.
func (c *CustomClaims) AccountUID() string {
	return c.Subject
}

// SessionID возвращает идентификатор сессии из claims.
func (c *CustomClaims) SessionID() string {
	return c.ID
}

// MakerImpl реализует Maker с использованием секретного ключа и TTL.
type MakerImpl struct {
	secretKey string
	tokenTTL  time.Duration
}

// NewJWTMaker создаёт новый экземпляр MakerImpl на основе секретного ключа и TTL.
func NewJWTMaker(secretKey string, ttl time.Duration) *MakerImpl {
	return &MakerImpl{
		secretKey: secretKey,
		tokenTTL:  ttl,
	}
}

// TTL возвращает время жизни выпускаемых токенов.
func (j *MakerImpl) TTL() time.Duration {
	return j.tokenTTL
}
