package success

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/audioia/internal/http/middlewarectx"
	"github.com/magabrotheeeer/audioia/internal/models"
	"github.com/magabrotheeeer/audioia/internal/services/billing"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) ConfirmRedirect(ctx context.Context, accountUID, checkoutSessionID string) error {
	return m.Called(ctx, accountUID, checkoutSessionID).Error(0)
}

func TestSuccessHandler(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		mockErr    error
		callMock   bool
		wantStatus int
		wantBody   string
	}{
		{
			name:       "confirmed",
			query:      "?session_id=cs_1",
			callMock:   true,
			wantStatus: http.StatusOK,
			wantBody:   `"entitlement":"premium"`,
		},
		{
			name:       "missing session id",
			wantStatus: http.StatusBadRequest,
			wantBody:   `"code":"invalid_request"`,
		},
		{
			name:       "incomplete",
			query:      "?session_id=cs_1",
			callMock:   true,
			mockErr:    fmt.Errorf("billing.ConfirmRedirect: %w", billing.ErrCheckoutIncomplete),
			wantStatus: http.StatusBadRequest,
			wantBody:   `"code":"checkout_incomplete"`,
		},
		{
			name:       "payment pending",
			query:      "?session_id=cs_1",
			callMock:   true,
			mockErr:    fmt.Errorf("billing.ConfirmRedirect: %w", billing.ErrPaymentPending),
			wantStatus: http.StatusConflict,
			wantBody:   `"code":"payment_pending"`,
		},
		{
			name:       "other account",
			query:      "?session_id=cs_1",
			callMock:   true,
			mockErr:    fmt.Errorf("billing.ConfirmRedirect: %w", billing.ErrAccountMismatch),
			wantStatus: http.StatusForbidden,
			wantBody:   `"code":"account_mismatch"`,
		},
		{
			name:       "provider error",
			query:      "?session_id=cs_1",
			callMock:   true,
			mockErr:    errors.New("stripe down"),
			wantStatus: http.StatusBadGateway,
			wantBody:   `"code":"billing_provider_failed"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(ServiceMock)
			if tt.callMock {
				svc.On("ConfirmRedirect", mock.Anything, "acc-1", "cs_1").Return(tt.mockErr).Once()
			}
			h := New(slog.New(slog.NewTextHandler(io.Discard, nil)), svc)

			req := httptest.NewRequest(http.MethodGet, "/api/v1/checkout/success"+tt.query, nil)
			req = req.WithContext(middlewarectx.WithSession(req.Context(), &models.Session{AccountUID: "acc-1"}))
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
			svc.AssertExpectations(t)
		})
	}
}
