// Package webhook принимает уведомления платёжного провайдера.
package webhook

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/audioia/internal/http/response"
	"github.com/magabrotheeeer/audioia/internal/lib/sl"
	"github.com/magabrotheeeer/audioia/internal/services/billing"
)

// Размер тела уведомления, больше которого запрос отклоняется.
const maxPayloadBytes = 64 << 10

// SignatureHeader заголовок с подписью уведомления.
const SignatureHeader = "Stripe-Signature"

// Service обрабатывает уведомления.
type Service interface {
	HandleNotification(ctx context.Context, payload []byte, signature string) error
}

// Handler обрабатывает POST /billing/webhook.
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
// @Summary Уведомление платёжного провайдера
// @Description Проверяет подпись и переводит аккаунт на premium по оплаченной сессии (checkout.session.completed или checkout.session.async_payment_succeeded).
// @Tags Billing
// @Accept  json
// @Produce  json
// @Param Stripe-Signature header string true "Подпись уведомления"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Неверная подпись"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /billing/webhook [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.billing.webhook"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes+1))
	if err != nil {
		log.Error("failed to read webhook body", sl.Err(err))
		response.WriteError(w, r, http.StatusBadRequest, response.CodeInvalidRequest, "failed to read body")
		return
	}
	if len(payload) > maxPayloadBytes {
		response.WriteError(w, r, http.StatusRequestEntityTooLarge, response.CodePayloadTooLarge, "payload too large")
		return
	}

	if err := h.service.HandleNotification(r.Context(), payload, r.Header.Get(SignatureHeader)); err != nil {
		if errors.Is(err, billing.ErrInvalidSignature) {
			log.Warn("invalid or missing webhook signature")
			response.WriteError(w, r, http.StatusBadRequest, response.CodeBillingVerification, "billing notification verification failed")
			return
		}
		log.Error("failed to process webhook event", sl.Err(err))
		response.WriteError(w, r, http.StatusInternalServerError, response.CodeInternal, "failed to process notification")
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"received": true,
	}))
}
