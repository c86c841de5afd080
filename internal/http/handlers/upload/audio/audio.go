// Package audio отдаёт синтезированные записи владельцу сессии.
package audio

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/audioia/internal/artifacts"
	"github.com/magabrotheeeer/audioia/internal/http/middlewarectx"
	"github.com/magabrotheeeer/audioia/internal/http/response"
	"github.com/magabrotheeeer/audioia/internal/lib/sl"
)

// Store источник записей.
type Store interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// Handler обрабатывает GET /audio/{name}.
type Handler struct {
	log   *slog.Logger
	store Store
}

// New создаёт Handler.
func New(log *slog.Logger, store Store) *Handler {
	return &Handler{
		log:   log,
		store: store,
	}
}

// ServeHTTP godoc
// @Summary Получение синтезированной записи
// @Description Отдаёт audio/mpeg только аккаунту, которому принадлежит запись.
// @Tags Uploads
// @Produce  audio/mpeg
// @Security BearerAuth
// @Param name path string true "Имя записи"
// @Success 200 {file} binary
// @Failure 401 {object} response.ErrorResponse "Нет сессии"
// @Failure 404 {object} response.ErrorResponse "Запись не найдена"
// @Router /audio/{name} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.upload.audio"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	session, ok := middlewarectx.SessionFromContext(r.Context())
	if !ok {
		response.WriteError(w, r, http.StatusUnauthorized, response.CodeAuthenticationFailed, "authentication required")
		return
	}

	// chi отдаёт параметр в экранированном виде, если у запроса задан RawPath.
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil {
		response.WriteError(w, r, http.StatusNotFound, response.CodeNotFound, "audio not found")
		return
	}
	key, err := artifacts.Key(session.AccountUID, name)
	if err != nil {
		log.Info("invalid audio name", slog.String("name", name))
		response.WriteError(w, r, http.StatusNotFound, response.CodeNotFound, "audio not found")
		return
	}

	rc, err := h.store.Open(r.Context(), key)
	if err != nil {
		if errors.Is(err, artifacts.ErrNotFound) {
			response.WriteError(w, r, http.StatusNotFound, response.CodeNotFound, "audio not found")
			return
		}
		log.Error("failed to open audio", sl.Err(err))
		response.WriteError(w, r, http.StatusInternalServerError, response.CodeStorageFailed, "failed to read audio")
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Cache-Control", "private, no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		log.Error("failed to stream audio", sl.Err(err))
	}
}
