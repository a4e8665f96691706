package domain

import "github.com/shopspring/decimal"

// Tier is the insurance-documentation-based earning and coverage bracket
// assigned to a host. It is recomputed only when the host's documentation
// changes; open claims keep the tier stamped at filing time.
type Tier string

const (
	TierBasic    Tier = "basic"
	TierStandard Tier = "standard"
	TierPremium  Tier = "premium"
)

// InsuranceDocs are the verified documentation flags for a host.
type InsuranceDocs struct {
	HasCommercialPolicy  bool
	HasP2PEndorsement    bool
	PolicyCoversRentalUse bool
	PolicyExpired        bool
}

// TierTerms are the economic attributes bound to a tier.
type TierTerms struct {
	HostEarningPct    int64
	PlatformPct       int64
	Deductible        decimal.Decimal
	HostPolicyPrimary bool
}

// Terms returns the earning split, deductible and payer role for the tier.
func (t Tier) Terms() TierTerms {
	switch t {
	case TierPremium:
		return TierTerms{HostEarningPct: 90, PlatformPct: 10, Deductible: decimal.NewFromInt(500), HostPolicyPrimary: true}
	case TierStandard:
		return TierTerms{HostEarningPct: 75, PlatformPct: 25, Deductible: decimal.NewFromInt(1000), HostPolicyPrimary: true}
	default:
		return TierTerms{HostEarningPct: 40, PlatformPct: 60, Deductible: decimal.Zero, HostPolicyPrimary: false}
	}
}

// ResolveTier maps verified host documentation to a tier. It is total and
// deterministic: every input yields exactly one tier, and documentation
// that is missing, contradictory or expired degrades to basic rather than
// erroring, so a host without insurance can still operate at the reduced
// earning share.
func ResolveTier(docs InsuranceDocs) Tier {
	if docs.PolicyExpired {
		return TierBasic
	}
	if !docs.PolicyCoversRentalUse {
		return TierBasic
	}
	if docs.HasCommercialPolicy {
		return TierPremium
	}
	if docs.HasP2PEndorsement {
		return TierStandard
	}
	return TierBasic
}
