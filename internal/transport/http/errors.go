package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/itwhiprentals/claims-service/internal/domain"
)

const (
	codeMethodNotAllowed    = "method_not_allowed"
	codeNotFound            = "not_found"
	codeInvalidRequestBody  = "invalid_request_body"
	codeInvalidClaimInput   = "invalid_claim_input"
	codeInvalidAmount       = "invalid_amount"
	codeInvalidID           = "invalid_id"
	codeIdempotencyRequired = "idempotency_key_required"
	codeIdempotencyConflict = "idempotency_conflict"
	codeClaimNotFound       = "claim_not_found"
	codeInvalidTransition   = "invalid_transition"
	codeDeadlinePassed      = "deadline_passed"
	codeRoundsExhausted     = "rounds_exhausted"
	codeNotNegotiable       = "not_negotiable"
	codeClaimClosed         = "claim_closed"
	codeConflict            = "conflict"
	codeForbidden           = "forbidden"
	codeInternalError       = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error: msg,
		Code:  code,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

// writeDomainError maps lifecycle sentinels onto HTTP statuses. Rejected
// transitions and race losers surface as conflicts; malformed input as
// bad requests.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrClaimNotFound), errors.Is(err, domain.ErrHoldNotFound):
		writeError(w, http.StatusNotFound, codeClaimNotFound, err.Error())
	case errors.Is(err, domain.ErrIdempotencyKeyRequired):
		writeError(w, http.StatusBadRequest, codeIdempotencyRequired, err.Error())
	case errors.Is(err, domain.ErrInvalidClaimInput):
		writeError(w, http.StatusBadRequest, codeInvalidClaimInput, err.Error())
	case errors.Is(err, domain.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, codeInvalidAmount, err.Error())
	case errors.Is(err, domain.ErrInvalidID):
		writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
	case errors.Is(err, domain.ErrIdempotencyConflict):
		writeError(w, http.StatusConflict, codeIdempotencyConflict, err.Error())
	case errors.Is(err, domain.ErrDeadlinePassed):
		writeError(w, http.StatusConflict, codeDeadlinePassed, err.Error())
	case errors.Is(err, domain.ErrRoundsExhausted):
		writeError(w, http.StatusConflict, codeRoundsExhausted, err.Error())
	case errors.Is(err, domain.ErrNotNegotiable):
		writeError(w, http.StatusConflict, codeNotNegotiable, err.Error())
	case errors.Is(err, domain.ErrClaimClosed):
		writeError(w, http.StatusConflict, codeClaimClosed, err.Error())
	case errors.Is(err, domain.ErrInvalidTransition):
		writeError(w, http.StatusConflict, codeInvalidTransition, err.Error())
	case errors.Is(err, domain.ErrVersionConflict):
		writeError(w, http.StatusConflict, codeConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}
