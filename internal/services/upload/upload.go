// Package upload обрабатывает загрузку голосовой заметки: квота,
// транскрибация, анализ, синтез речи и сохранение аудио.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/magabrotheeeer/audioia/internal/artifacts"
	"github.com/magabrotheeeer/audioia/internal/lib/sl"
	"github.com/magabrotheeeer/audioia/internal/services/quota"
)

// Этапы внешнего конвейера.
const (
	StageTranscription = "transcription"
	StageSummarization = "summarization"
	StageSynthesis     = "synthesis"
)

// ErrStorage не удалось сохранить синтезированное аудио.
var ErrStorage = errors.New("artifact storage failed")

// UpstreamError ошибка внешнего сервиса на этапе Stage.
type UpstreamError struct {
	Stage string
	Err   error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Transcriber переводит запись в текст.
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error)
}

// Summarizer анализирует транскрипт.
type Summarizer interface {
	Summarize(ctx context.Context, prompt string) (string, error)
}

// Synthesizer озвучивает текст.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, lang string) ([]byte, error)
}

// Gate контроль квоты.
type Gate interface {
	Admit(ctx context.Context, accountUID string, now time.Time) (*quota.Reservation, error)
	Commit(ctx context.Context, r *quota.Reservation) error
	Release(ctx context.Context, r *quota.Reservation) error
}

// Observer получает исходы загрузок и длительности этапов.
type Observer interface {
	ObserveUpload(result string)
	ObserveStage(stage string, start time.Time)
}

// Request загрузка пользователя.
type Request struct {
	AccountUID string
	Now        time.Time
	Audio      io.Reader
	Filename   string
	Title      string
	Language   string
}

// Result результат обработки.
type Result struct {
	Title         string `json:"title"`
	Transcription string `json:"transcription"`
	Summary       string `json:"summary"`
	AudioHandle   string `json:"audio_handle"`
}

// Defaults значения по умолчанию для пустых полей запроса.
type Defaults struct {
	Title    string
	Language string
}

// Service оркестратор загрузок.
type Service struct {
	gate        Gate
	transcriber Transcriber
	summarizer  Summarizer
	synthesizer Synthesizer
	store       artifacts.Store
	observer    Observer
	defaults    Defaults
	log         *slog.Logger
}

// NewService создаёт Service. observer может быть nil.
func NewService(
	gate Gate,
	transcriber Transcriber,
	summarizer Summarizer,
	synthesizer Synthesizer,
	store artifacts.Store,
	observer Observer,
	defaults Defaults,
	log *slog.Logger,
) *Service {
	return &Service{
		gate:        gate,
		transcriber: transcriber,
		summarizer:  summarizer,
		synthesizer: synthesizer,
		store:       store,
		observer:    observer,
		defaults:    defaults,
		log:         log,
	}
}

// Handle выполняет загрузку.
//
// Этапы строго последовательны. При отказе квоты возвращается
// quota.ErrQuotaExceeded, внешние сервисы не вызываются. Ошибки этапов
// возвращаются как *UpstreamError, ошибка сохранения как ErrStorage. В обоих
// случаях занятый слот квоты возвращается, и счётчик не меняется.
func (s *Service) Handle(ctx context.Context, req Request) (res *Result, err error) {
	const op = "upload.Handle"
	log := s.log.With(sl.Op(op), slog.String("account_uid", req.AccountUID))

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = s.defaults.Title
	}
	lang := strings.TrimSpace(req.Language)
	if lang == "" {
		lang = s.defaults.Language
	}

	reservation, err := s.gate.Admit(ctx, req.AccountUID, req.Now)
	if err != nil {
		if errors.Is(err, quota.ErrQuotaExceeded) {
			s.observe("quota_exceeded")
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		if err == nil {
			return
		}
		// Слот возвращается и при отменённом запросе.
		if relErr := s.gate.Release(context.WithoutCancel(ctx), reservation); relErr != nil {
			log.Error("failed to release quota reservation", sl.Err(relErr))
		}
	}()

	start := time.Now()
	transcript, err := s.transcriber.Transcribe(ctx, req.Audio, req.Filename)
	s.observeStage(StageTranscription, start)
	if err != nil {
		return nil, s.upstream(log, op, StageTranscription, err)
	}

	start = time.Now()
	summary, err := s.summarizer.Summarize(ctx, BuildPrompt(transcript, lang))
	s.observeStage(StageSummarization, start)
	if err != nil {
		return nil, s.upstream(log, op, StageSummarization, err)
	}

	start = time.Now()
	audio, err := s.synthesizer.Synthesize(ctx, summary, lang)
	s.observeStage(StageSynthesis, start)
	if err != nil {
		return nil, s.upstream(log, op, StageSynthesis, err)
	}

	handle := ArtifactName(title)
	key, err := artifacts.Key(req.AccountUID, handle)
	if err == nil {
		err = s.store.Save(ctx, key, audio)
	}
	if err != nil {
		log.Error("failed to store artifact", sl.Err(err))
		s.observe("storage")
		return nil, fmt.Errorf("%s: %w: %v", op, ErrStorage, err)
	}

	if err := s.gate.Commit(ctx, reservation); err != nil {
		log.Error("failed to commit quota reservation", sl.Err(err))
	}
	s.observe("ok")
	log.Info("upload processed", slog.String("handle", handle), slog.String("language", lang))

	return &Result{
		Title:         title,
		Transcription: transcript,
		Summary:       summary,
		AudioHandle:   handle,
	}, nil
}

func (s *Service) upstream(log *slog.Logger, op, stage string, err error) error {
	log.Error("upstream stage failed", slog.String("stage", stage), sl.Err(err))
	s.observe(stage)
	return fmt.Errorf("%s: %w", op, &UpstreamError{Stage: stage, Err: err})
}

func (s *Service) observe(result string) {
	if s.observer != nil {
		s.observer.ObserveUpload(result)
	}
}

func (s *Service) observeStage(stage string, start time.Time) {
	if s.observer != nil {
		s.observer.ObserveStage(stage, start)
	}
}
