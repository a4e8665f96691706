package http

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/itwhiprentals/claims-service/internal/app"
	"github.com/itwhiprentals/claims-service/internal/domain"
)

const releaseBody = `{
	"booking": {"id":"b1","guest_id":"g1","guest_email":"g@example.com","payment_ref":"pi_1","deposit_total":"500","deposit_card_paid":"300","deposit_wallet_paid":"200"},
	"deduction": "150"
}`

func TestHandleDepositRelease(t *testing.T) {
	t.Parallel()

	successResult := app.ReleaseDepositResult{
		Release: domain.DepositRelease{
			TotalDeposit: decimal.RequireFromString("350"),
			CardRefund:   decimal.RequireFromString("210"),
			WalletReturn: decimal.RequireFromString("140"),
		},
	}

	tests := []struct {
		name           string
		body           string
		serviceErr     error
		expectedStatus int
		expectedSubstr string
	}{
		{
			name:           "success",
			body:           releaseBody,
			expectedStatus: http.StatusOK,
			expectedSubstr: `"card_refund":"210.00"`,
		},
		{
			name:           "invalid json",
			body:           `{"booking":`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "bad deduction",
			body:           strings.Replace(releaseBody, `"150"`, `"some"`, 1),
			expectedStatus: http.StatusBadRequest,
			expectedSubstr: `"code":"invalid_amount"`,
		},
		{
			name:           "bad deposit amount",
			body:           strings.Replace(releaseBody, `"300"`, `"card"`, 1),
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid amounts from service",
			body:           releaseBody,
			serviceErr:     domain.ErrInvalidAmount,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "internal error",
			body:           releaseBody,
			serviceErr:     errors.New("boom"),
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := &stubDepositReleaser{result: successResult, err: tt.serviceErr}
			req := httptest.NewRequest(http.MethodPost, "/deposits/release", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()

			HandleDepositRelease(svc).ServeHTTP(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.expectedStatus, rec.Code, rec.Body.String())
			}
			if tt.expectedSubstr != "" && !strings.Contains(rec.Body.String(), tt.expectedSubstr) {
				t.Fatalf("expected response to contain %q, got %q", tt.expectedSubstr, rec.Body.String())
			}
		})
	}

	t.Run("method not allowed", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		HandleDepositRelease(&stubDepositReleaser{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/deposits/release", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("expected 405, got %d", rec.Code)
		}
	})

	t.Run("pending refund is surfaced", func(t *testing.T) {
		t.Parallel()
		svc := &stubDepositReleaser{result: app.ReleaseDepositResult{
			Release:           successResult.Release,
			CardRefundPending: true,
		}}
		req := httptest.NewRequest(http.MethodPost, "/deposits/release", bytes.NewBufferString(releaseBody))
		rec := httptest.NewRecorder()

		HandleDepositRelease(svc).ServeHTTP(rec, req)

		if !strings.Contains(rec.Body.String(), `"card_refund_pending":true`) {
			t.Fatalf("expected pending flag, got %s", rec.Body.String())
		}
	})

	t.Run("input is forwarded", func(t *testing.T) {
		t.Parallel()
		svc := &stubDepositReleaser{result: successResult}
		req := httptest.NewRequest(http.MethodPost, "/deposits/release", bytes.NewBufferString(releaseBody))
		rec := httptest.NewRecorder()

		HandleDepositRelease(svc).ServeHTTP(rec, req)

		if svc.lastInput.Booking.ID != "b1" {
			t.Fatalf("expected booking forwarded, got %+v", svc.lastInput.Booking)
		}
		if svc.lastInput.Deduction.StringFixed(2) != "150.00" {
			t.Fatalf("expected deduction 150, got %s", svc.lastInput.Deduction)
		}
	})
}

type stubDepositReleaser struct {
	result    app.ReleaseDepositResult
	err       error
	lastInput app.ReleaseDepositInput
}

func (s *stubDepositReleaser) Release(_ context.Context, in app.ReleaseDepositInput) (app.ReleaseDepositResult, error) {
	s.lastInput = in
	if s.err != nil {
		return app.ReleaseDepositResult{}, s.err
	}
	return s.result, nil
}
