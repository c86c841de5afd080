// Package middlewarectx содержит HTTP middleware для проверки сессии и
// ограничения частоты запросов.
//
// SessionMiddleware принимает токен из заголовка Authorization (Bearer) или из
// cookie сессии, проверяет его через сервис аутентификации и в случае успеха
// кладёт сессию в контекст запроса. При ошибке возвращает 401 Unauthorized.
package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/audioia/internal/http/response"
	"github.com/magabrotheeeer/audioia/internal/lib/sl"
	"github.com/magabrotheeeer/audioia/internal/models"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

// SessionKey ключ сессии в контексте.
const SessionKey Key = "session"

// Authenticator проверяет токен сессии.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.Session, error)
}

// TokenFromRequest достаёт токен сессии из заголовка Authorization или cookie.
func TokenFromRequest(r *http.Request, cookieName string) string {
	if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	if cookieName == "" {
		return ""
	}
	if c, err := r.Cookie(cookieName); err == nil {
		return c.Value
	}
	return ""
}

// WithSession возвращает контекст с сессией.
func WithSession(ctx context.Context, s *models.Session) context.Context {
	return context.WithValue(ctx, SessionKey, s)
}

// SessionFromContext возвращает сессию, положенную SessionMiddleware.
func SessionFromContext(ctx context.Context) (*models.Session, bool) {
	s, ok := ctx.Value(SessionKey).(*models.Session)
	return s, ok && s != nil
}

// SessionMiddleware возвращает middleware, который требует действующую сессию.
func SessionMiddleware(auth Authenticator, cookieName string, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.SessionMiddleware"
			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			token := TokenFromRequest(r, cookieName)
			if token == "" {
				log.Info("missing session token")
				response.WriteError(w, r, http.StatusUnauthorized, response.CodeAuthenticationFailed, "missing session token")
				return
			}

			session, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				log.Info("invalid or expired session", sl.Err(err))
				response.WriteError(w, r, http.StatusUnauthorized, response.CodeAuthenticationFailed, "invalid or expired session")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
		})
	}
}
