// Package account отдаёт состояние тарифа и квоты текущего аккаунта.
package account

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/audioia/internal/http/middlewarectx"
	"github.com/magabrotheeeer/audioia/internal/http/response"
	"github.com/magabrotheeeer/audioia/internal/lib/sl"
	"github.com/magabrotheeeer/audioia/internal/services/quota"
	"github.com/magabrotheeeer/audioia/internal/storage"
)

// QuotaStatus источник состояния квоты.
type QuotaStatus interface {
	Status(ctx context.Context, accountUID string, now time.Time) (*quota.Status, error)
}

// Handler обрабатывает GET /account.
type Handler struct {
	log   *slog.Logger
	quota QuotaStatus
	now   func() time.Time
}

// New создаёт Handler.
func New(log *slog.Logger, q QuotaStatus) *Handler {
	return &Handler{
		log:   log,
		quota: q,
		now:   time.Now,
	}
}

// ServeHTTP godoc
// @Summary Состояние аккаунта
// @Description Тариф, число загрузок в текущем окне и остаток квоты.
// @Tags Account
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.ErrorResponse "Нет сессии"
// @Failure 404 {object} response.ErrorResponse "Аккаунт не найден"
// @Router /account [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.account"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	session, ok := middlewarectx.SessionFromContext(r.Context())
	if !ok {
		response.WriteError(w, r, http.StatusUnauthorized, response.CodeAuthenticationFailed, "authentication required")
		return
	}

	st, err := h.quota.Status(r.Context(), session.AccountUID, h.now().UTC())
	if err != nil {
		if errors.Is(err, storage.ErrAccountNotFound) {
			response.WriteError(w, r, http.StatusNotFound, response.CodeNotFound, "account not found")
			return
		}
		log.Error("failed to get quota status", sl.Err(err))
		response.WriteError(w, r, http.StatusInternalServerError, response.CodeInternal, "failed to get account")
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"email":             session.Email,
		"entitlement":       st.Entitlement,
		"uploads_in_window": st.UploadsInWindow,
		"limit":             st.Limit,
		"remaining":         st.Remaining,
		"window_resets_at":  st.WindowResetsAt,
	}))
}
