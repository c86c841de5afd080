// Package logout реализует HTTP-обработчик завершения сессии.
package logout

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/audioia/internal/http/middlewarectx"
	"github.com/magabrotheeeer/audioia/internal/http/response"
	"github.com/magabrotheeeer/audioia/internal/lib/sl"
)

// Service отзывает сессии.
type Service interface {
	Logout(ctx context.Context, token string) error
}

// Handler обрабатывает выход из аккаунта.
type Handler struct {
	log        *slog.Logger
	service    Service
	cookieName string
}

// New создаёт Handler.
func New(log *slog.Logger, service Service, cookieName string) *Handler {
	return &Handler{
		log:        log,
		service:    service,
		cookieName: cookieName,
	}
}

// ServeHTTP godoc
// @Summary Выход из аккаунта
// @Description Отзывает сессию и удаляет cookie.
// @Tags Auth
// @Produce  json
// @Success 200 {object} response.Response
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /logout [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.logout"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	if token := middlewarectx.TokenFromRequest(r, h.cookieName); token != "" {
		if err := h.service.Logout(r.Context(), token); err != nil {
			log.Error("failed to revoke session", sl.Err(err))
			response.WriteError(w, r, http.StatusInternalServerError, response.CodeInternal, "failed to logout")
			return
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
	})

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"message": "logged out",
	}))
}
