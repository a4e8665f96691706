package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Booking is read-only trip context owned outside this core. Callers
// supply it when filing claims or releasing deposits; the core never
// mutates it.
type Booking struct {
	ID         string
	Code       string
	VehicleID  string
	HostID     string
	GuestID    string
	GuestEmail string
	HostEmail  string
	// PaymentRef identifies the original card authorization; refunds are
	// issued against it and must never exceed it.
	PaymentRef        string
	DepositTotal      decimal.Decimal
	DepositCardPaid   decimal.Decimal
	DepositWalletPaid decimal.Decimal
	HostPolicyID      string
	GuestPolicyID     string
	TripStart         time.Time
	TripEnd           time.Time
}

// VehicleEditability is the explicit lock state of a vehicle listing,
// computed once and passed down instead of being re-derived from boolean
// flags at every call site.
type VehicleEditability string

const (
	VehicleOpen             VehicleEditability = "open"
	VehicleLockedByClaim    VehicleEditability = "locked_by_claim"
	VehicleLockedByApproval VehicleEditability = "locked_by_approval"
)

// ComputeVehicleEditability decides whether a vehicle's listing fields may
// be edited. An open claim on the vehicle locks it regardless of approval
// state; the lock clears only when no open claim references the vehicle,
// independently of any account hold lifted earlier.
func ComputeVehicleEditability(hasOpenClaim, pendingApproval bool) VehicleEditability {
	if hasOpenClaim {
		return VehicleLockedByClaim
	}
	if pendingApproval {
		return VehicleLockedByApproval
	}
	return VehicleOpen
}
