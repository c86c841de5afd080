// Package response содержит вспомогательные типы и функции для формирования
// унифицированных JSON‑ответов HTTP‑обработчиков. Пакет упрощает возврат
// успешных ответов, ошибок и сообщений валидации в едином формате.
//
// Каждая ошибка несёт стабильный машинный код (Code), по которому клиент
// различает категории ошибок независимо от текста.
package response

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator"
)

// Response описывает стандартную структуру JSON‑ответа сервера.
// Поле Status: статус запроса ("OK" или "Error").
// Поле Code: машинный код ошибки (опционально, при неуспехе).
// Поле Error: текст ошибки (опционально, при неуспехе).
// Поле Data: данные ответа (опционально, при успехе).
type Response struct {
	Status string `json:"status"`
	Code   string `json:"code,omitempty"`
	Error  string `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

// ErrorResponse структура ошибки для Swagger-документации.
// Используется в аннотациях @Failure как возвращаемый тип ошибки.
type ErrorResponse struct {
	Status string `json:"status" example:"Error"`
	Code   string `json:"code" example:"quota_exceeded"`
	Error  string `json:"error" example:"daily upload quota exceeded"`
}

const (
	// StatusOK значение статуса для успешного ответа.
	StatusOK = "OK"
	// StatusError значение статуса для ответа с ошибкой.
	StatusError = "Error"
)

// Коды ошибок.
const (
	CodeInvalidRequest        = "invalid_request"
	CodeValidationFailed      = "validation_failed"
	CodeDuplicateAccount      = "duplicate_account"
	CodeAuthenticationFailed  = "authentication_failed"
	CodeQuotaExceeded         = "quota_exceeded"
	CodeTranscriptionFailed   = "transcription_failed"
	CodeSummarizationFailed   = "summarization_failed"
	CodeSynthesisFailed       = "synthesis_failed"
	CodeStorageFailed         = "storage_failed"
	CodeMissingAudio          = "missing_audio"
	CodePayloadTooLarge       = "payload_too_large"
	CodeNotFound              = "not_found"
	CodeBillingVerification   = "billing_verification_failed"
	CodeCheckoutIncomplete    = "checkout_incomplete"
	CodeAccountMismatch       = "account_mismatch"
	CodePaymentPending        = "payment_pending"
	CodeBillingProviderFailed = "billing_provider_failed"
	CodeTooManyRequests       = "too_many_requests"
	CodeInternal              = "internal_error"
)

// StatusOKWithData возвращает успешный Response с переданными данными.
func StatusOKWithData(data any) Response {
	return Response{
		Status: StatusOK,
		Data:   data,
	}
}

// Error возвращает ErrorResponse с кодом и переданным сообщением.
func Error(code, msg string) ErrorResponse {
	return ErrorResponse{
		Status: StatusError,
		Code:   code,
		Error:  msg,
	}
}

// WriteError выставляет HTTP-статус и пишет ошибку в общем формате.
func WriteError(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	render.Status(r, status)
	render.JSON(w, r, Error(code, msg))
}

// ValidationError формирует Response со статусом Error на основе ошибок валидации.
// Каждое нарушение формируется в человеко‑читаемый текст, объединённый через запятую.
func ValidationError(errs validator.ValidationErrors) Response {
	var errsMsgs []string

	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is a required field", err.Field()))
		case "email":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be a valid email", err.Field()))
		case "min":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be at least %s characters long", err.Field(), err.Param()))
		case "max":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be at most %s characters long", err.Field(), err.Param()))
		case "oneof":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be one of [%s]", err.Field(), err.Param()))
		default:
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is not a valid", err.Field()))
		}
	}
	return Response{
		Status: StatusError,
		Code:   CodeValidationFailed,
		Error:  strings.Join(errsMsgs, ", "),
	}
}
