// Package checkout реализует HTTP-обработчик создания сессии оплаты premium.
package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/audioia/internal/http/middlewarectx"
	"github.com/magabrotheeeer/audioia/internal/http/response"
	"github.com/magabrotheeeer/audioia/internal/lib/sl"
	"github.com/magabrotheeeer/audioia/internal/models"
)

// Request тарифный план.
type Request struct {
	Plan string `json:"plan" validate:"required,oneof=monthly annual"`
}

// Service создаёт сессии оплаты.
type Service interface {
	CreateCheckout(ctx context.Context, accountUID string, plan models.Plan) (string, error)
}

// Handler обрабатывает POST /checkout.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создаёт Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Оплата premium
// @Description Создаёт сессию оплаты и возвращает ссылку на неё. С ?redirect=1 отвечает 303 на страницу оплаты.
// @Tags Billing
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body Request true "План monthly или annual"
// @Param redirect query string false "1 для редиректа"
// @Success 200 {object} response.Response
// @Success 303
// @Failure 401 {object} response.ErrorResponse "Нет сессии"
// @Failure 422 {object} response.ErrorResponse "Неизвестный план"
// @Failure 502 {object} response.ErrorResponse "Ошибка платёжного провайдера"
// @Router /checkout [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.billing.checkout"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	session, ok := middlewarectx.SessionFromContext(r.Context())
	if !ok {
		response.WriteError(w, r, http.StatusUnauthorized, response.CodeAuthenticationFailed, "authentication required")
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		response.WriteError(w, r, http.StatusBadRequest, response.CodeInvalidRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		log.Info("validation failed", sl.Err(err))
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			response.WriteError(w, r, http.StatusBadRequest, response.CodeInvalidRequest, "invalid request body")
			return
		}
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(verrs))
		return
	}

	checkoutURL, err := h.service.CreateCheckout(r.Context(), session.AccountUID, models.Plan(req.Plan))
	if err != nil {
		log.Error("failed to create checkout session", sl.Err(err))
		response.WriteError(w, r, http.StatusBadGateway, response.CodeBillingProviderFailed, "failed to create checkout session")
		return
	}

	if r.URL.Query().Get("redirect") == "1" {
		http.Redirect(w, r, checkoutURL, http.StatusSeeOther)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"url": checkoutURL,
	}))
}
