package jwt

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTMaker_GenerateAndParseToken_ValidCases(t *testing.T) {
	tokenTTL := 15 * time.Minute
	maker := NewJWTMaker("test_secret_key_1234567890", tokenTTL)

	tests := []struct {
		name       string
		accountUID string
		email      string
		sessionID  string
	}{
		{
			name:       "regular account",
			accountUID: "6f1c2a7e-7d1b-4d7e-9a55-0c0f3b1f2a11",
			email:      "mario@example.com",
			sessionID:  "sess-1",
		},
		{
			name:       "email with plus",
			accountUID: "acc-2",
			email:      "anna+voice@example.it",
			sessionID:  "sess-2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, expiresAt, err := maker.GenerateToken(tt.accountUID, tt.email, tt.sessionID)
			require.NoError(t, err)
			assert.NotEmpty(t, token)
			assert.WithinDuration(t, time.Now().Add(tokenTTL), expiresAt, time.Second)

			claims, err := maker.ParseToken(token)
			require.NoError(t, err)

			assert.Equal(t, tt.accountUID, claims.AccountUID())
			assert.Equal(t, tt.email, claims.Email)
			assert.Equal(t, tt.sessionID, claims.SessionID())
			assert.WithinDuration(t, time.Now(), claims.IssuedAt.Time, time.Second)
			assert.WithinDuration(t, expiresAt, claims.ExpiresAt.Time, time.Second)
		})
	}
}

func TestJWTMaker_ParseToken_InvalidTokens(t *testing.T) {
	secretKey := "test_secret_key_1234567890"
	maker := NewJWTMaker(secretKey, 15*time.Minute)

	validToken, _, err := maker.GenerateToken("acc-1", "user@example.com", "sess-1")
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty token", token: ""},
		{name: "malformed token", token: "invalid.token.here"},
		{name: "expired token", token: createExpiredToken(t, secretKey)},
		{name: "wrong secret key", token: createTokenWithWrongSecret(t)},
		{name: "tampered token", token: validToken + "tampered"},
		{name: "missing session id", token: createTokenWithoutSession(t, secretKey)},
		{name: "none algorithm", token: createUnsignedToken(t)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := maker.ParseToken(tt.token)
			assert.Error(t, err)
			assert.Nil(t, claims)
		})
	}
}

func TestJWTMaker_DifferentSecretKeys(t *testing.T) {
	maker1 := NewJWTMaker("first_secret_key", 15*time.Minute)
	maker2 := NewJWTMaker("different_secret_key", 15*time.Minute)

	token, _, err := maker1.GenerateToken("acc-1", "user@example.com", "sess-1")
	require.NoError(t, err)

	claims, err := maker2.ParseToken(token)
	assert.Error(t, err)
	assert.Nil(t, claims)

	claims, err = maker1.ParseToken(token)
	assert.NoError(t, err)
	assert.NotNil(t, claims)
}

func TestJWTMaker_TokenExpiration(t *testing.T) {
	maker := NewJWTMaker("test_secret_key", 2*time.Second)

	token, _, err := maker.GenerateToken("acc-1", "user@example.com", "sess-1")
	require.NoError(t, err)

	_, err = maker.ParseToken(token)
	require.NoError(t, err)

	time.Sleep(2100 * time.Millisecond)

	_, err = maker.ParseToken(token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")
}

func createExpiredToken(t *testing.T, secretKey string) string {
	maker := NewJWTMaker(secretKey, -time.Hour)
	token, _, err := maker.GenerateToken("acc-1", "user@example.com", "sess-1")
	require.NoError(t, err)
	return token
}

func createTokenWithWrongSecret(t *testing.T) string {
	wrongMaker := NewJWTMaker("wrong_secret_key", 15*time.Minute)
	token, _, err := wrongMaker.GenerateToken("acc-1", "user@example.com", "sess-1")
	require.NoError(t, err)
	return token
}

func createTokenWithoutSession(t *testing.T, secretKey string) string {
	maker := NewJWTMaker(secretKey, 15*time.Minute)
	token, _, err := maker.GenerateToken("acc-1", "user@example.com", "")
	require.NoError(t, err)
	return token
}

func createUnsignedToken(t *testing.T) string {
	claims := CustomClaims{
		Email: "user@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "acc-1",
			ID:        "sess-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	return token
}
