// Package create реализует HTTP-обработчик загрузки голосовой заметки.
//
// Запрос принимается как multipart/form-data с полями audio (файл), title и
// language. Ошибки оркестратора переводятся в HTTP-статус и код ответа.
package create

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/audioia/internal/http/middlewarectx"
	"github.com/magabrotheeeer/audioia/internal/http/response"
	"github.com/magabrotheeeer/audioia/internal/lib/sl"
	"github.com/magabrotheeeer/audioia/internal/services/quota"
	"github.com/magabrotheeeer/audioia/internal/services/upload"
)

// Объём multipart-формы, который держится в памяти, остальное уходит во временные файлы.
const maxMemory = 8 << 20

// Service оркестратор загрузок.
type Service interface {
	Handle(ctx context.Context, req upload.Request) (*upload.Result, error)
}

// Handler обрабатывает загрузку записи.
type Handler struct {
	log      *slog.Logger
	service  Service
	maxBytes int64
	now      func() time.Time
}

// New создаёт Handler. maxBytes ограничивает размер тела запроса.
func New(log *slog.Logger, service Service, maxBytes int64) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		maxBytes: maxBytes,
		now:      time.Now,
	}
}

// ServeHTTP godoc
// @Summary Загрузка голосовой заметки
// @Description Транскрибирует запись, анализирует текст и озвучивает результат.
// @Tags Uploads
// @Accept  multipart/form-data
// @Produce  json
// @Security BearerAuth
// @Param audio formData file true "Аудиозапись"
// @Param title formData string false "Заголовок"
// @Param language formData string false "Язык анализа (it или en)"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Нет файла audio"
// @Failure 401 {object} response.ErrorResponse "Нет сессии"
// @Failure 413 {object} response.ErrorResponse "Слишком большой файл"
// @Failure 429 {object} response.ErrorResponse "Квота исчерпана"
// @Failure 502 {object} response.ErrorResponse "Ошибка внешнего сервиса"
// @Failure 500 {object} response.ErrorResponse "Ошибка хранилища"
// @Router /uploads [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.upload.create"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	session, ok := middlewarectx.SessionFromContext(r.Context())
	if !ok {
		log.Error("session missing in context")
		response.WriteError(w, r, http.StatusUnauthorized, response.CodeAuthenticationFailed, "authentication required")
		return
	}
	log = log.With(slog.String("account_uid", session.AccountUID))

	if h.maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	}
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			log.Info("upload too large", slog.Int64("limit", tooLarge.Limit))
			response.WriteError(w, r, http.StatusRequestEntityTooLarge, response.CodePayloadTooLarge, "audio file is too large")
			return
		}
		log.Info("failed to parse multipart form", sl.Err(err))
		response.WriteError(w, r, http.StatusBadRequest, response.CodeMissingAudio, "audio file is required")
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	file, header, err := r.FormFile("audio")
	if err != nil || header.Size == 0 {
		log.Info("audio file missing", sl.Err(err))
		response.WriteError(w, r, http.StatusBadRequest, response.CodeMissingAudio, "audio file is required")
		return
	}
	defer file.Close()

	res, err := h.service.Handle(r.Context(), upload.Request{
		AccountUID: session.AccountUID,
		Now:        h.now().UTC(),
		Audio:      file,
		Filename:   header.Filename,
		Title:      r.FormValue("title"),
		Language:   r.FormValue("language"),
	})
	if err != nil {
		h.writeError(w, r, log, err)
		return
	}

	log.Info("upload processed", slog.String("audio_handle", res.AudioHandle))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"title":         res.Title,
		"transcription": res.Transcription,
		"summary":       res.Summary,
		"audio_handle":  res.AudioHandle,
		"audio_url":     "/api/v1/audio/" + url.PathEscape(res.AudioHandle),
	}))
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	var upstream *upload.UpstreamError
	switch {
	case errors.Is(err, quota.ErrQuotaExceeded):
		log.Info("quota exceeded")
		response.WriteError(w, r, http.StatusTooManyRequests, response.CodeQuotaExceeded, "daily upload quota exceeded")
	case errors.As(err, &upstream):
		log.Error("upstream service failed", slog.String("stage", upstream.Stage), sl.Err(err))
		response.WriteError(w, r, http.StatusBadGateway, stageCode(upstream.Stage), upstream.Stage+" service failed")
	case errors.Is(err, upload.ErrStorage):
		log.Error("failed to store audio", sl.Err(err))
		response.WriteError(w, r, http.StatusInternalServerError, response.CodeStorageFailed, "failed to store audio")
	default:
		log.Error("upload failed", sl.Err(err))
		response.WriteError(w, r, http.StatusInternalServerError, response.CodeInternal, "upload failed")
	}
}

func stageCode(stage string) string {
	switch stage {
	case upload.StageTranscription:
		return response.CodeTranscriptionFailed
	case upload.StageSummarization:
		return response.CodeSummarizationFailed
	case upload.StageSynthesis:
		return response.CodeSynthesisFailed
	default:
		return response.CodeInternal
	}
}
