package domain

// PayerRole is the position of a policy in the coverage hierarchy.
type PayerRole string

const (
	PayerPrimary   PayerRole = "primary"
	PayerSecondary PayerRole = "secondary"
	PayerTertiary  PayerRole = "tertiary"
)

// PayerSource identifies whose policy a payer reference points at.
type PayerSource string

const (
	SourceHost     PayerSource = "host"
	SourcePlatform PayerSource = "platform"
	SourceGuest    PayerSource = "guest"
)

// PlatformPolicyID is the platform's master liability policy.
const PlatformPolicyID = "PLAT-MASTER-001"

// PayerRef binds a hierarchy position to a concrete policy.
type PayerRef struct {
	Role     PayerRole   `json:"role"`
	Source   PayerSource `json:"source"`
	PolicyID string      `json:"policy_id"`
}

// BuildHierarchy returns the ordered list of payers for a booking. The
// ordering depends only on the tier and whether the guest carries a
// personal policy, so it can be computed and shown to both parties before
// any incident occurs.
//
// Above basic, the host policy pays first and the platform second. At
// basic the platform is the single payer: there is no secondary, so a
// claim can never be collected twice. A guest personal policy is always
// tertiary; it reduces the guest's exposure but never displaces platform
// coverage.
func BuildHierarchy(tier Tier, hostPolicyID, guestPolicyID string) []PayerRef {
	var refs []PayerRef
	if tier != TierBasic {
		refs = append(refs,
			PayerRef{Role: PayerPrimary, Source: SourceHost, PolicyID: hostPolicyID},
			PayerRef{Role: PayerSecondary, Source: SourcePlatform, PolicyID: PlatformPolicyID},
		)
	} else {
		refs = append(refs, PayerRef{Role: PayerPrimary, Source: SourcePlatform, PolicyID: PlatformPolicyID})
	}
	if guestPolicyID != "" {
		refs = append(refs, PayerRef{Role: PayerTertiary, Source: SourceGuest, PolicyID: guestPolicyID})
	}
	return refs
}
