package domain

// TaxBreakdown is the per-component tax on a charge, in minor units. Each
// component is floored individually.
type TaxBreakdown struct {
	State    int64 `json:"state"`
	Local    int64 `json:"local"`
	Category int64 `json:"category"`
	Total    int64 `json:"total"`
}

// SplitShare is one party's floored share of the platform fee.
type SplitShare struct {
	Party  string `json:"party"`
	Amount int64  `json:"amount"`
}

// FeeBreakdown is the full computed breakdown for one operation. Exactly the
// fields relevant to the operation type are populated; Total is always the
// amount debited from (or, for funding, credited to) the wallet. All values
// are integer minor units; no fee path ever touches floating point.
type FeeBreakdown struct {
	PricingVersion int          `json:"pricing_version,omitempty"`
	InitialFee     int64        `json:"initial_fee,omitempty"`
	VenueFee       int64        `json:"venue_fee,omitempty"`    // re-entry venue portion
	PlatformFee    int64        `json:"platform_fee,omitempty"` // re-entry or purchase platform portion
	ItemTotal      int64        `json:"item_total,omitempty"`
	Tip            int64        `json:"tip,omitempty"`
	VendorPayout   int64        `json:"vendor_payout,omitempty"`
	Tax            TaxBreakdown `json:"tax"`
	Splits         []SplitShare `json:"splits,omitempty"`
	SplitRemainder int64        `json:"split_remainder,omitempty"` // kept by the platform
	Total          int64        `json:"total"`
}

// DenialReason is the stable machine-readable reason attached to a DENIED
// result. Clients branch on it to prompt for a top-up versus a hard stop.
type DenialReason string

const (
	DenialInsufficientBalance  DenialReason = "insufficient_balance"
	DenialReentryNotAllowed    DenialReason = "reentry_not_allowed"
	DenialMaxReentriesReached  DenialReason = "max_reentries_reached"
	DenialReentryWindowExpired DenialReason = "reentry_window_expired"
	DenialItemUnavailable      DenialReason = "item_unavailable"
)

// Denial is a business refusal: not a system fault and never retried
// automatically. Balance is the wallet's balance at decision time; Shortfall
// is non-zero only for insufficient_balance.
type Denial struct {
	Reason    DenialReason `json:"reason"`
	Shortfall int64        `json:"shortfall,omitempty"`
	Balance   int64        `json:"balance"`
}
