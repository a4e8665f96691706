package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/itwhiprentals/claims-service/internal/app"
	"github.com/itwhiprentals/claims-service/internal/domain"
)

// DepositReleaser is the minimal interface needed to settle a deposit.
type DepositReleaser interface {
	Release(ctx context.Context, in app.ReleaseDepositInput) (app.ReleaseDepositResult, error)
}

// HandleDepositRelease returns an HTTP handler for POST /deposits/release.
func HandleDepositRelease(svc DepositReleaser) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req releaseDepositRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		booking, err := req.Booking.toBooking()
		if err != nil {
			writeDomainError(w, err)
			return
		}

		deduction := decimal.Zero
		if req.Deduction != "" {
			deduction, err = decimal.NewFromString(req.Deduction)
			if err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidAmount, "invalid deduction")
				return
			}
		}

		result, err := svc.Release(r.Context(), app.ReleaseDepositInput{
			Booking:   booking,
			Deduction: deduction,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(newReleaseResponse(booking, result))
	}
}

type releaseDepositRequest struct {
	Booking   bookingRequest `json:"booking"`
	Deduction string         `json:"deduction"`
}

type releaseDepositResponse struct {
	BookingID         string `json:"booking_id"`
	TotalDeposit      string `json:"total_deposit"`
	CardRefund        string `json:"card_refund"`
	WalletReturn      string `json:"wallet_return"`
	CardRefundPending bool   `json:"card_refund_pending"`
}

func newReleaseResponse(booking domain.Booking, result app.ReleaseDepositResult) releaseDepositResponse {
	return releaseDepositResponse{
		BookingID:         booking.ID,
		TotalDeposit:      result.Release.TotalDeposit.StringFixed(2),
		CardRefund:        result.Release.CardRefund.StringFixed(2),
		WalletReturn:      result.Release.WalletReturn.StringFixed(2),
		CardRefundPending: result.CardRefundPending,
	}
}
