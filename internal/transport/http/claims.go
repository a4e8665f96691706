package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/itwhiprentals/claims-service/internal/app"
	"github.com/itwhiprentals/claims-service/internal/domain"
)

const idempotencyHeader = "Idempotency-Key"

// ClaimFiler is the minimal interface needed to file a claim.
type ClaimFiler interface {
	FileClaim(ctx context.Context, in app.FileClaimInput) (domain.Claim, error)
}

// ClaimActor is the minimal interface needed for per-claim actions.
type ClaimActor interface {
	GetClaim(ctx context.Context, claimID string) (app.ClaimStatus, error)
	Respond(ctx context.Context, in app.RespondInput) (domain.Claim, error)
	CounterOffer(ctx context.Context, in app.CounterOfferInput) (domain.Claim, error)
	AcceptOffer(ctx context.Context, claimID string) (domain.Claim, error)
	DeclineOffer(ctx context.Context, claimID string) (domain.Claim, error)
	BeginReview(ctx context.Context, claimID string) (domain.Claim, error)
	Resolve(ctx context.Context, in app.ResolveInput) (domain.Claim, error)
}

// HandleFileClaim returns an HTTP handler for POST /claims.
func HandleFileClaim(svc ClaimFiler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		key := r.Header.Get(idempotencyHeader)
		if key == "" {
			writeError(w, http.StatusBadRequest, codeIdempotencyRequired, domain.ErrIdempotencyKeyRequired.Error())
			return
		}

		var req fileClaimRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		in, err := req.toInput(key)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		claim, err := svc.FileClaim(r.Context(), in)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(newClaimResponse(claim))
	}
}

// HandleClaimActions routes GET /claims/{id} and POST /claims/{id}/{action}.
func HandleClaimActions(svc ClaimActor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claimID, action, ok := parseClaimPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		if action == "" {
			if r.Method != http.MethodGet {
				writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
				return
			}
			status, err := svc.GetClaim(r.Context(), claimID)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(newClaimStatusResponse(status))
			return
		}

		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var claim domain.Claim
		var err error
		switch action {
		case "respond":
			claim, err = svc.Respond(r.Context(), app.RespondInput{ClaimID: claimID})
		case "counter":
			var req counterOfferRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if decodeErr := dec.Decode(&req); decodeErr != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}
			claim, err = svc.CounterOffer(r.Context(), app.CounterOfferInput{
				ClaimID: claimID,
				By:      domain.PartyRole(req.By),
				Note:    req.Note,
			})
		case "accept":
			claim, err = svc.AcceptOffer(r.Context(), claimID)
		case "decline":
			claim, err = svc.DeclineOffer(r.Context(), claimID)
		case "review":
			claim, err = svc.BeginReview(r.Context(), claimID)
		case "resolve":
			var req resolveRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if decodeErr := dec.Decode(&req); decodeErr != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}
			payout := decimal.Zero
			if req.PayoutAmount != "" {
				payout, err = decimal.NewFromString(req.PayoutAmount)
				if err != nil {
					writeError(w, http.StatusBadRequest, codeInvalidAmount, "invalid payout_amount")
					return
				}
			}
			claim, err = svc.Resolve(r.Context(), app.ResolveInput{
				ClaimID:      claimID,
				Outcome:      domain.ClaimOutcome(req.Outcome),
				PayoutAmount: payout,
			})
		default:
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		if err != nil {
			writeDomainError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(newClaimResponse(claim))
	}
}

func parseClaimPath(path string) (id, action string, ok bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 2 || len(parts) > 3 || parts[0] != "claims" || parts[1] == "" {
		return "", "", false
	}
	if len(parts) == 2 {
		return parts[1], "", true
	}
	if parts[2] == "" {
		return "", "", false
	}
	return parts[1], parts[2], true
}

type fileClaimRequest struct {
	Booking       bookingRequest       `json:"booking"`
	Kind          string               `json:"kind"`
	FiledBy       string               `json:"filed_by"`
	Type          string               `json:"type"`
	IncidentAt    string               `json:"incident_at"`
	EstimatedCost string               `json:"estimated_cost"`
	Description   string               `json:"description"`
	HostDocs      insuranceDocsRequest `json:"host_docs"`
}

type bookingRequest struct {
	ID                string `json:"id"`
	VehicleID         string `json:"vehicle_id"`
	HostID            string `json:"host_id"`
	GuestID           string `json:"guest_id"`
	GuestEmail        string `json:"guest_email"`
	HostEmail         string `json:"host_email"`
	PaymentRef        string `json:"payment_ref"`
	DepositTotal      string `json:"deposit_total"`
	DepositCardPaid   string `json:"deposit_card_paid"`
	DepositWalletPaid string `json:"deposit_wallet_paid"`
	HostPolicyID      string `json:"host_policy_id"`
	GuestPolicyID     string `json:"guest_policy_id"`
}

type insuranceDocsRequest struct {
	HasCommercialPolicy   bool `json:"has_commercial_policy"`
	HasP2PEndorsement     bool `json:"has_p2p_endorsement"`
	PolicyCoversRentalUse bool `json:"policy_covers_rental_use"`
	PolicyExpired         bool `json:"policy_expired"`
}

type counterOfferRequest struct {
	By   string `json:"by"`
	Note string `json:"note"`
}

type resolveRequest struct {
	Outcome      string `json:"outcome"`
	PayoutAmount string `json:"payout_amount"`
}

func (req fileClaimRequest) toInput(key string) (app.FileClaimInput, error) {
	incidentAt, err := time.Parse(time.RFC3339, req.IncidentAt)
	if err != nil {
		return app.FileClaimInput{}, domain.ErrInvalidClaimInput
	}

	cost := decimal.Zero
	if req.EstimatedCost != "" {
		cost, err = decimal.NewFromString(req.EstimatedCost)
		if err != nil {
			return app.FileClaimInput{}, domain.ErrInvalidAmount
		}
	}

	booking, err := req.Booking.toBooking()
	if err != nil {
		return app.FileClaimInput{}, err
	}

	return app.FileClaimInput{
		Booking:       booking,
		Kind:          domain.ClaimKind(req.Kind),
		FiledBy:       domain.PartyRole(req.FiledBy),
		Type:          domain.ClaimType(req.Type),
		IncidentAt:    incidentAt,
		EstimatedCost: cost,
		Description:   req.Description,
		HostDocs: domain.InsuranceDocs{
			HasCommercialPolicy:   req.HostDocs.HasCommercialPolicy,
			HasP2PEndorsement:     req.HostDocs.HasP2PEndorsement,
			PolicyCoversRentalUse: req.HostDocs.PolicyCoversRentalUse,
			PolicyExpired:         req.HostDocs.PolicyExpired,
		},
		IdempotencyKey: key,
	}, nil
}

func (req bookingRequest) toBooking() (domain.Booking, error) {
	parseAmount := func(s string) (decimal.Decimal, error) {
		if s == "" {
			return decimal.Zero, nil
		}
		return decimal.NewFromString(s)
	}

	total, err := parseAmount(req.DepositTotal)
	if err != nil {
		return domain.Booking{}, domain.ErrInvalidAmount
	}
	card, err := parseAmount(req.DepositCardPaid)
	if err != nil {
		return domain.Booking{}, domain.ErrInvalidAmount
	}
	wallet, err := parseAmount(req.DepositWalletPaid)
	if err != nil {
		return domain.Booking{}, domain.ErrInvalidAmount
	}

	return domain.Booking{
		ID:                req.ID,
		VehicleID:         req.VehicleID,
		HostID:            req.HostID,
		GuestID:           req.GuestID,
		GuestEmail:        req.GuestEmail,
		HostEmail:         req.HostEmail,
		PaymentRef:        req.PaymentRef,
		DepositTotal:      total,
		DepositCardPaid:   card,
		DepositWalletPaid: wallet,
		HostPolicyID:      req.HostPolicyID,
		GuestPolicyID:     req.GuestPolicyID,
	}, nil
}

type payerRefResponse struct {
	Role     string `json:"role"`
	Source   string `json:"source"`
	PolicyID string `json:"policy_id"`
}

type claimResponse struct {
	ID                string             `json:"id"`
	BookingID         string             `json:"booking_id"`
	Kind              string             `json:"kind"`
	State             string             `json:"state"`
	Outcome           string             `json:"outcome,omitempty"`
	Round             int                `json:"round"`
	MaxRounds         int                `json:"max_rounds"`
	NeedsManualReview bool               `json:"needs_manual_review"`
	Tier              string             `json:"tier"`
	Hierarchy         []payerRefResponse `json:"hierarchy"`
	ResponseDeadline  time.Time          `json:"response_deadline"`
	CreatedAt         time.Time          `json:"created_at"`
}

func newClaimResponse(c domain.Claim) claimResponse {
	hierarchy := make([]payerRefResponse, 0, len(c.Hierarchy))
	for _, ref := range c.Hierarchy {
		hierarchy = append(hierarchy, payerRefResponse{
			Role:     string(ref.Role),
			Source:   string(ref.Source),
			PolicyID: ref.PolicyID,
		})
	}
	return claimResponse{
		ID:                c.ID,
		BookingID:         c.BookingID,
		Kind:              string(c.Kind),
		State:             string(c.State),
		Outcome:           string(c.Outcome),
		Round:             c.Round,
		MaxRounds:         c.MaxRounds,
		NeedsManualReview: c.NeedsManualReview,
		Tier:              string(c.Tier),
		Hierarchy:         hierarchy,
		ResponseDeadline:  c.ResponseDeadline,
		CreatedAt:         c.CreatedAt,
	}
}

type claimStatusResponse struct {
	claimResponse
	RemainingSeconds int64  `json:"remaining_seconds"`
	RequiredAction   string `json:"required_action,omitempty"`
}

func newClaimStatusResponse(s app.ClaimStatus) claimStatusResponse {
	return claimStatusResponse{
		claimResponse:    newClaimResponse(s.Claim),
		RemainingSeconds: int64(s.Remaining / time.Second),
		RequiredAction:   s.RequiredAction,
	}
}
