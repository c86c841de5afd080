package create

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/audioia/internal/http/middlewarectx"
	"github.com/magabrotheeeer/audioia/internal/models"
	"github.com/magabrotheeeer/audioia/internal/services/quota"
	"github.com/magabrotheeeer/audioia/internal/services/upload"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) Handle(ctx context.Context, req upload.Request) (*upload.Result, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*upload.Result), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func multipartBody(t *testing.T, audio []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if audio != nil {
		fw, err := mw.CreateFormFile("audio", "note.m4a")
		require.NoError(t, err)
		_, err = fw.Write(audio)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestCreateHandler(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	okResult := &upload.Result{
		Title:         "Meeting",
		Transcription: "ciao",
		Summary:       "riassunto",
		AudioHandle:   "Meeting.mp3",
	}

	tests := []struct {
		name       string
		audio      []byte
		noSession  bool
		maxBytes   int64
		mockRes    *upload.Result
		mockErr    error
		callMock   bool
		wantStatus int
		wantCode   string
	}{
		{
			name:       "success",
			audio:      []byte("fake-audio"),
			callMock:   true,
			mockRes:    okResult,
			wantStatus: http.StatusOK,
		},
		{
			name:       "no session",
			audio:      []byte("fake-audio"),
			noSession:  true,
			wantStatus: http.StatusUnauthorized,
			wantCode:   "authentication_failed",
		},
		{
			name:       "missing audio",
			wantStatus: http.StatusBadRequest,
			wantCode:   "missing_audio",
		},
		{
			name:       "too large",
			audio:      bytes.Repeat([]byte("a"), 4096),
			maxBytes:   512,
			wantStatus: http.StatusRequestEntityTooLarge,
			wantCode:   "payload_too_large",
		},
		{
			name:       "quota exceeded",
			audio:      []byte("fake-audio"),
			callMock:   true,
			mockErr:    fmt.Errorf("upload.Handle: %w", quota.ErrQuotaExceeded),
			wantStatus: http.StatusTooManyRequests,
			wantCode:   "quota_exceeded",
		},
		{
			name:       "transcription failed",
			audio:      []byte("fake-audio"),
			callMock:   true,
			mockErr:    &upload.UpstreamError{Stage: upload.StageTranscription, Err: errors.New("boom")},
			wantStatus: http.StatusBadGateway,
			wantCode:   "transcription_failed",
		},
		{
			name:       "summarization failed",
			audio:      []byte("fake-audio"),
			callMock:   true,
			mockErr:    fmt.Errorf("wrap: %w", &upload.UpstreamError{Stage: upload.StageSummarization, Err: errors.New("boom")}),
			wantStatus: http.StatusBadGateway,
			wantCode:   "summarization_failed",
		},
		{
			name:       "synthesis failed",
			audio:      []byte("fake-audio"),
			callMock:   true,
			mockErr:    &upload.UpstreamError{Stage: upload.StageSynthesis, Err: errors.New("boom")},
			wantStatus: http.StatusBadGateway,
			wantCode:   "synthesis_failed",
		},
		{
			name:       "storage failed",
			audio:      []byte("fake-audio"),
			callMock:   true,
			mockErr:    fmt.Errorf("upload.Handle: %w: disk full", upload.ErrStorage),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "storage_failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(ServiceMock)
			if tt.callMock {
				svc.On("Handle", mock.Anything, mock.MatchedBy(func(req upload.Request) bool {
					return req.AccountUID == "acc-1" &&
						req.Title == "Meeting" &&
						req.Language == "en" &&
						req.Filename == "note.m4a" &&
						req.Now.Equal(now)
				})).Return(tt.mockRes, tt.mockErr).Once()
			}

			maxBytes := tt.maxBytes
			if maxBytes == 0 {
				maxBytes = 1 << 20
			}
			h := New(newNoopLogger(), svc, maxBytes)
			h.now = func() time.Time { return now }

			body, contentType := multipartBody(t, tt.audio, map[string]string{"title": "Meeting", "language": "en"})
			req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads", body)
			req.Header.Set("Content-Type", contentType)
			if !tt.noSession {
				req = req.WithContext(middlewarectx.WithSession(req.Context(), &models.Session{AccountUID: "acc-1"}))
			}
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)

			var got map[string]any
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
			if tt.wantCode != "" {
				assert.Equal(t, "Error", got["status"])
				assert.Equal(t, tt.wantCode, got["code"])
			} else {
				data, ok := got["data"].(map[string]any)
				require.True(t, ok)
				assert.Equal(t, "Meeting.mp3", data["audio_handle"])
				assert.Equal(t, "/api/v1/audio/Meeting.mp3", data["audio_url"])
				assert.Equal(t, "riassunto", data["summary"])
			}
			svc.AssertExpectations(t)
		})
	}
}
