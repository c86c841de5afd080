package middlewarectx_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/audioia/internal/http/middlewarectx"
	"github.com/magabrotheeeer/audioia/internal/models"
)

// Mock for Authenticator
type AuthMock struct {
	mock.Mock
}

func (m *AuthMock) Authenticate(ctx context.Context, token string) (*models.Session, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestSessionMiddleware(t *testing.T) {
	session := &models.Session{ID: "sid", AccountUID: "acc-1", Email: "a@example.com"}

	tests := []struct {
		name           string
		authHeader     string
		cookie         string
		token          string
		mockSession    *models.Session
		mockErr        error
		wantStatusCode int
		wantCalled     bool
	}{
		{
			name:           "missing token",
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:           "invalid Authorization header prefix",
			authHeader:     "Basic sometoken",
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:           "session revoked",
			authHeader:     "Bearer token",
			token:          "token",
			mockErr:        errors.New("session not found"),
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:           "valid bearer token",
			authHeader:     "Bearer validtoken",
			token:          "validtoken",
			mockSession:    session,
			wantStatusCode: http.StatusOK,
			wantCalled:     true,
		},
		{
			name:           "valid cookie",
			cookie:         "cookietoken",
			token:          "cookietoken",
			mockSession:    session,
			wantStatusCode: http.StatusOK,
			wantCalled:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			authMock := new(AuthMock)
			if tt.token != "" {
				if tt.mockSession != nil {
					authMock.On("Authenticate", mock.Anything, tt.token).Return(tt.mockSession, nil).Once()
				} else {
					authMock.On("Authenticate", mock.Anything, tt.token).Return(nil, tt.mockErr).Once()
				}
			}

			handlerCalled := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				handlerCalled = true
				got, ok := middlewarectx.SessionFromContext(r.Context())
				assert.True(t, ok)
				assert.Equal(t, "acc-1", got.AccountUID)
				w.WriteHeader(http.StatusOK)
			})
			h := middlewarectx.SessionMiddleware(authMock, "audioia_session", newNoopLogger())(next)

			req := httptest.NewRequest(http.MethodGet, "/api/v1/account", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "audioia_session", Value: tt.cookie})
			}
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)
			assert.Equal(t, tt.wantCalled, handlerCalled)
			if !tt.wantCalled {
				assert.Contains(t, rec.Body.String(), `"code":"authentication_failed"`)
			}
			authMock.AssertExpectations(t)
		})
	}
}

func TestTokenFromRequest_HeaderWins(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer header-token")
	req.AddCookie(&http.Cookie{Name: "c", Value: "cookie-token"})

	assert.Equal(t, "header-token", middlewarectx.TokenFromRequest(req, "c"))
	assert.Equal(t, "header-token", middlewarectx.TokenFromRequest(req, ""))
}

func TestLimiter_Allow(t *testing.T) {
	l := middlewarectx.NewLimiter(1, 2)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.True(t, l.Allow("a", now))
	assert.True(t, l.Allow("a", now))
	assert.False(t, l.Allow("a", now))
	// другой ключ не делит корзину
	assert.True(t, l.Allow("b", now))
	// через секунду корзина пополняется на один токен
	assert.True(t, l.Allow("a", now.Add(time.Second)))
}

func TestRateLimitMiddleware(t *testing.T) {
	l := middlewarectx.NewLimiter(1, 1)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	h := middlewarectx.RateLimitMiddleware(l, newNoopLogger())(next)

	do := func(accountUID string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		if accountUID != "" {
			req = req.WithContext(middlewarectx.WithSession(req.Context(), &models.Session{AccountUID: accountUID}))
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusNoContent, do("acc-1").Code)
	rec := do("acc-1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"too_many_requests"`)
	// тот же IP, но другой аккаунт
	assert.Equal(t, http.StatusNoContent, do("acc-2").Code)
	// анонимный запрос считается по IP
	assert.Equal(t, http.StatusNoContent, do("").Code)
	assert.Equal(t, http.StatusTooManyRequests, do("").Code)
}
