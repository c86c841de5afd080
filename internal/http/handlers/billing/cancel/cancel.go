package cancel

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/audioia/internal/http/response"
)

// Handler сообщает, что оплата отменена пользователем.
type Handler struct {
	log *slog.Logger
}

func New(log *slog.Logger) *Handler {
	return &Handler{
		log: log,
	}
}

// ServeHTTP godoc
// @Summary Отмена оплаты
// @Tags Billing
// @Produce  json
// @Success 200 {object} response.Response
// @Router /checkout/cancel [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.log.Info("checkout cancelled by user")
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"message": "payment cancelled",
	}))
}
