package app

import (
	"context"
	"encoding/json"
	"log"

	"github.com/shopspring/decimal"

	"github.com/itwhiprentals/claims-service/internal/clock"
	"github.com/itwhiprentals/claims-service/internal/domain"
)

// PaymentProcessor reverses card authorizations. The amount passed here
// is only ever the card portion of a deposit split and never exceeds the
// original authorization.
type PaymentProcessor interface {
	Refund(ctx context.Context, paymentRef string, amount decimal.Decimal) error
}

// WalletLedger credits the internal wallet.
type WalletLedger interface {
	Credit(ctx context.Context, accountID string, amount decimal.Decimal) error
}

type DepositService struct {
	processor PaymentProcessor
	wallet    WalletLedger
	outbox    OutboxEnqueuer
	clock     clock.Clock
	logger    *log.Logger
}

func NewDepositService(processor PaymentProcessor, wallet WalletLedger, outbox OutboxEnqueuer, clk clock.Clock, logger *log.Logger) *DepositService {
	if logger == nil {
		logger = log.Default()
	}
	return &DepositService{
		processor: processor,
		wallet:    wallet,
		outbox:    outbox,
		clock:     clk,
		logger:    logger,
	}
}

type ReleaseDepositInput struct {
	Booking domain.Booking
	// Deduction is the amount withheld for a resolved claim; zero for a
	// clean trip completion.
	Deduction decimal.Decimal
}

type ReleaseDepositResult struct {
	Release domain.DepositRelease
	// CardRefundPending is set when the processor rejected the refund;
	// the instruction must be retried by operations, independently of the
	// wallet credit which already went through.
	CardRefundPending bool
}

// Release settles a held security deposit, returning each portion to the
// channel it was collected through. Zero-amount channels are skipped
// entirely, including their notifications. A failed card refund is a
// financial-correctness problem, not a UX one: it is alerted distinctly
// and reported as pending, but it never blocks the wallet credit.
func (s *DepositService) Release(ctx context.Context, in ReleaseDepositInput) (ReleaseDepositResult, error) {
	if in.Booking.ID == "" {
		return ReleaseDepositResult{}, domain.ErrInvalidID
	}
	if in.Deduction.IsNegative() {
		return ReleaseDepositResult{}, domain.ErrInvalidAmount
	}

	total := in.Booking.DepositTotal.Sub(in.Deduction)
	if total.IsNegative() {
		return ReleaseDepositResult{}, domain.ErrInvalidAmount
	}

	release, err := domain.SplitDeposit(total, in.Booking.DepositCardPaid, in.Booking.DepositWalletPaid)
	if err != nil {
		return ReleaseDepositResult{}, err
	}

	result := ReleaseDepositResult{Release: release}

	if release.WalletReturn.IsPositive() {
		if err := s.wallet.Credit(ctx, in.Booking.GuestID, release.WalletReturn); err != nil {
			return ReleaseDepositResult{}, err
		}
	}

	if release.CardRefund.IsPositive() {
		if err := s.processor.Refund(ctx, in.Booking.PaymentRef, release.CardRefund); err != nil {
			s.logger.Printf("ALERT: card refund of %s for booking %s failed: %v",
				release.CardRefund.StringFixed(2), in.Booking.ID, err)
			result.CardRefundPending = true
		}
	}

	if release.CardRefund.IsPositive() || release.WalletReturn.IsPositive() {
		payload, err := domain.NewDepositReleasedPayload(in.Booking.ID, release)
		if err != nil {
			return ReleaseDepositResult{}, err
		}
		body, err := json.Marshal(payload)
		if err != nil {
			return ReleaseDepositResult{}, err
		}
		now := s.clock.Now()
		msg := domain.OutboxMessage{
			ID:        newOutboxID(now),
			Recipient: in.Booking.GuestEmail,
			Kind:      domain.TemplateDepositReleased,
			Payload:   body,
			CreatedAt: now,
		}
		if err := s.outbox.Enqueue(ctx, msg); err != nil {
			s.logger.Printf("WARN: enqueue deposit-released notification for booking %s: %v", in.Booking.ID, err)
		}
	}

	return result, nil
}
