package login

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/audioia/internal/models"
	"github.com/magabrotheeeer/audioia/internal/services/auth"
)

type AuthServiceMock struct {
	mock.Mock
}

func (m *AuthServiceMock) Login(ctx context.Context, email, password string) (string, *models.Session, error) {
	args := m.Called(ctx, email, password)
	session, _ := args.Get(1).(*models.Session)
	return args.String(0), session, args.Error(2)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestLoginHandler_ServeHTTP(t *testing.T) {
	session := &models.Session{
		ID:         "sid",
		AccountUID: "acc-1",
		Email:      "user@example.com",
		ExpiresAt:  time.Now().Add(time.Hour),
	}

	tests := []struct {
		name           string
		body           string
		setupMock      func(m *AuthServiceMock)
		wantStatusCode int
		wantCode       string
		wantCookie     bool
	}{
		{
			name: "success",
			body: `{"email":"user@example.com","password":"secret123"}`,
			setupMock: func(m *AuthServiceMock) {
				m.On("Login", mock.Anything, "user@example.com", "secret123").Return("tok", session, nil).Once()
			},
			wantStatusCode: http.StatusOK,
			wantCookie:     true,
		},
		{
			name:           "invalid json",
			body:           `{`,
			setupMock:      func(_ *AuthServiceMock) {},
			wantStatusCode: http.StatusBadRequest,
			wantCode:       "invalid_request",
		},
		{
			name:           "missing password",
			body:           `{"email":"user@example.com"}`,
			setupMock:      func(_ *AuthServiceMock) {},
			wantStatusCode: http.StatusUnprocessableEntity,
			wantCode:       "validation_failed",
		},
		{
			name: "wrong password",
			body: `{"email":"user@example.com","password":"bad"}`,
			setupMock: func(m *AuthServiceMock) {
				m.On("Login", mock.Anything, "user@example.com", "bad").
					Return("", nil, fmt.Errorf("auth.Login: %w", auth.ErrInvalidCredentials)).Once()
			},
			wantStatusCode: http.StatusUnauthorized,
			wantCode:       "authentication_failed",
		},
		{
			name: "session store down",
			body: `{"email":"user@example.com","password":"secret123"}`,
			setupMock: func(m *AuthServiceMock) {
				m.On("Login", mock.Anything, "user@example.com", "secret123").
					Return("", nil, errors.New("redis down")).Once()
			},
			wantStatusCode: http.StatusInternalServerError,
			wantCode:       "internal_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			serviceMock := new(AuthServiceMock)
			tt.setupMock(serviceMock)
			handler := New(newNoopLogger(), serviceMock, CookieConfig{Name: "audioia_session"})

			req := httptest.NewRequest(http.MethodPost, "/api/v1/login", bytes.NewBufferString(tt.body))
			req = req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, "reqid123"))
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)

			var got map[string]any
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))

			if tt.wantCode != "" {
				assert.Equal(t, "Error", got["status"])
				assert.Equal(t, tt.wantCode, got["code"])
			} else {
				data, ok := got["data"].(map[string]any)
				require.True(t, ok)
				assert.Equal(t, "tok", data["token"])
			}

			cookies := rec.Result().Cookies()
			if tt.wantCookie {
				require.Len(t, cookies, 1)
				assert.Equal(t, "audioia_session", cookies[0].Name)
				assert.Equal(t, "tok", cookies[0].Value)
				assert.True(t, cookies[0].HttpOnly)
			} else {
				assert.Empty(t, cookies)
			}

			serviceMock.AssertExpectations(t)
		})
	}
}
