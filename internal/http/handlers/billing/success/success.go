// Package success подтверждает оплату при возврате пользователя со страницы провайдера.
package success

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/audioia/internal/http/middlewarectx"
	"github.com/magabrotheeeer/audioia/internal/http/response"
	"github.com/magabrotheeeer/audioia/internal/lib/sl"
	"github.com/magabrotheeeer/audioia/internal/services/billing"
)

// Service подтверждает оплату.
type Service interface {
	ConfirmRedirect(ctx context.Context, accountUID, checkoutSessionID string) error
}

// Handler обрабатывает GET /checkout/success.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создаёт Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Возврат после оплаты
// @Description Проверяет сессию оплаты у провайдера и переводит аккаунт на premium.
// @Tags Billing
// @Produce  json
// @Security BearerAuth
// @Param session_id query string true "ID сессии оплаты"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Оплата не завершена"
// @Failure 403 {object} response.ErrorResponse "Сессия оплаты другого аккаунта"
// @Failure 409 {object} response.ErrorResponse "Оплата ожидает подтверждения"
// @Failure 502 {object} response.ErrorResponse "Ошибка платёжного провайдера"
// @Router /checkout/success [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.billing.success"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	session, ok := middlewarectx.SessionFromContext(r.Context())
	if !ok {
		response.WriteError(w, r, http.StatusUnauthorized, response.CodeAuthenticationFailed, "authentication required")
		return
	}

	checkoutSessionID := r.URL.Query().Get("session_id")
	if checkoutSessionID == "" {
		response.WriteError(w, r, http.StatusBadRequest, response.CodeInvalidRequest, "session_id is required")
		return
	}
	log = log.With(slog.String("account_uid", session.AccountUID), slog.String("checkout_session", checkoutSessionID))

	if err := h.service.ConfirmRedirect(r.Context(), session.AccountUID, checkoutSessionID); err != nil {
		switch {
		case errors.Is(err, billing.ErrCheckoutIncomplete):
			log.Info("checkout not complete")
			response.WriteError(w, r, http.StatusBadRequest, response.CodeCheckoutIncomplete, "payment is not complete")
		case errors.Is(err, billing.ErrPaymentPending):
			log.Info("checkout payment pending")
			response.WriteError(w, r, http.StatusConflict, response.CodePaymentPending, "payment is pending, premium will be activated once it clears")
		case errors.Is(err, billing.ErrAccountMismatch):
			log.Warn("checkout session belongs to another account")
			response.WriteError(w, r, http.StatusForbidden, response.CodeAccountMismatch, "checkout session belongs to another account")
		default:
			log.Error("failed to confirm checkout", sl.Err(err))
			response.WriteError(w, r, http.StatusBadGateway, response.CodeBillingProviderFailed, "failed to confirm payment")
		}
		return
	}

	log.Info("premium confirmed by redirect")
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"entitlement": "premium",
		"message":     "payment completed, premium is active",
	}))
}
