// Package openai клиент OpenAI для транскрибации голосовых заметок
// (audio/transcriptions) и их анализа (chat/completions).
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/magabrotheeeer/audioia/internal/config"
)

const defaultBaseURL = "https://api.openai.com/v1"

// ErrEmptyResponse сервис ответил успешно, но без текста.
var ErrEmptyResponse = errors.New("openai: empty response")

// APIError ответ API с кодом ошибки.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("openai: status %d: %s", e.StatusCode, e.Message)
}

// Client клиент OpenAI.
type Client struct {
	api                *goopenai.Client
	transcriptionModel string
	summaryModel       string
}

// NewClient создаёт клиента. Таймаут каждого вызова задаётся cfg.OpenAITimeout.
func NewClient(cfg config.OpenAI) *Client {
	apiCfg := goopenai.DefaultConfig(strings.TrimSpace(cfg.OpenAIAPIKey))
	if baseURL := strings.TrimRight(cfg.OpenAIBaseURL, "/"); baseURL != "" {
		apiCfg.BaseURL = baseURL
	} else {
		apiCfg.BaseURL = defaultBaseURL
	}
	apiCfg.HTTPClient = &http.Client{Timeout: cfg.OpenAITimeout}

	return &Client{
		api:                goopenai.NewClientWithConfig(apiCfg),
		transcriptionModel: cfg.TranscriptionModel,
		summaryModel:       cfg.SummaryModel,
	}
}

// Transcribe отправляет запись в audio/transcriptions и возвращает текст.
func (c *Client) Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error) {
	const op = "openai.Transcribe"

	if filename == "" {
		filename = "audio.webm"
	}
	resp, err := c.api.CreateTranscription(ctx, goopenai.AudioRequest{
		Model:    c.transcriptionModel,
		FilePath: filename,
		Reader:   audio,
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, mapError(err))
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", fmt.Errorf("%s: %w", op, ErrEmptyResponse)
	}
	return text, nil
}

// Summarize отправляет prompt одним сообщением пользователя и возвращает ответ модели.
func (c *Client) Summarize(ctx context.Context, prompt string) (string, error) {
	const op = "openai.Summarize"

	resp, err := c.api.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: c.summaryModel,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, mapError(err))
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: %w", op, ErrEmptyResponse)
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("%s: %w", op, ErrEmptyResponse)
	}
	return text, nil
}

// mapError приводит ошибки API с HTTP-статусом к APIError, остальные возвращает как есть.
func mapError(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return &APIError{StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message}
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		msg := http.StatusText(reqErr.HTTPStatusCode)
		if reqErr.Err != nil {
			msg = reqErr.Err.Error()
		}
		return &APIError{StatusCode: reqErr.HTTPStatusCode, Message: msg}
	}
	return err
}
