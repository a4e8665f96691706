package domain

import "github.com/shopspring/decimal"

// DepositRelease is the settlement of a held security deposit. Each
// portion goes back to its original source: the card amount as a refund
// instruction, the wallet amount as a ledger credit.
type DepositRelease struct {
	TotalDeposit decimal.Decimal
	CardRefund   decimal.Decimal
	WalletReturn decimal.Decimal
}

// SplitDeposit computes how a released amount divides between the card
// and wallet channels the deposit was originally collected through.
//
// The sum invariant CardRefund + WalletReturn == total holds for every
// well-formed call. On a full release each portion returns exactly what
// was paid through it. On a partial release (a claim deduction reduced
// the total) the split is proportional, with the wallet share truncated
// to cents and the fractional remainder biased to the card refund, since
// card processors reject sub-cent instructions more strictly than the
// internal ledger.
func SplitDeposit(total, cardPaid, walletPaid decimal.Decimal) (DepositRelease, error) {
	if total.IsNegative() || cardPaid.IsNegative() || walletPaid.IsNegative() {
		return DepositRelease{}, ErrInvalidAmount
	}
	paid := cardPaid.Add(walletPaid)
	if total.GreaterThan(paid) {
		return DepositRelease{}, ErrInvalidAmount
	}

	if total.Equal(paid) {
		return DepositRelease{
			TotalDeposit: total,
			CardRefund:   cardPaid,
			WalletReturn: walletPaid,
		}, nil
	}

	if paid.IsZero() {
		return DepositRelease{TotalDeposit: total, CardRefund: decimal.Zero, WalletReturn: decimal.Zero}, nil
	}

	wallet := total.Mul(walletPaid).Div(paid).Truncate(2)
	card := total.Sub(wallet)
	return DepositRelease{
		TotalDeposit: total,
		CardRefund:   card,
		WalletReturn: wallet,
	}, nil
}
