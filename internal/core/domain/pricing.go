package domain

import "time"

// TaxProfile holds tax rates in basis points. Category rates apply per item
// category (e.g. alcohol, food) and only to purchases of items in that
// category. Tax is always computed on the pre-split total.
type TaxProfile struct {
	StateBps    int64            `json:"state_bps"`
	LocalBps    int64            `json:"local_bps"`
	CategoryBps map[string]int64 `json:"category_bps,omitempty"`
}

// SplitParty is one stakeholder in a platform-fee revenue split.
type SplitParty struct {
	Party    string `json:"party"`
	ShareBps int64  `json:"share_bps"`
}

// PricingConfig is the per-venue/event pricing and eligibility policy. It is
// a read-only input to fee computation; changes never retroactively affect
// already-written records, which snapshot their breakdown. Version identifies
// the policy revision a breakdown was computed under.
type PricingConfig struct {
	VenueID            string         `json:"venue_id"`
	Version            int            `json:"version"`
	InitialFee         int64          `json:"initial_fee"`          // minor units
	ReentryVenueFee    int64          `json:"reentry_venue_fee"`    // minor units
	ReentryPlatformFee int64          `json:"reentry_platform_fee"` // minor units
	PurchaseFeeBps     int64          `json:"purchase_fee_bps"`     // platform cut of item total
	ReentryAllowed     bool           `json:"reentry_allowed"`
	MaxReentries       *int           `json:"max_reentries,omitempty"`
	ReentryWindow      *time.Duration `json:"reentry_window,omitempty"` // measured from initial entry
	Tax                *TaxProfile    `json:"tax,omitempty"`
	Splits             []SplitParty   `json:"splits,omitempty"`
}

// VendorItem is a purchasable catalog item at a venue.
type VendorItem struct {
	ID        string `json:"id"`
	VenueID   string `json:"venue_id"`
	Name      string `json:"name"`
	Category  string `json:"category"` // tax category, e.g. alcohol, food
	UnitPrice int64  `json:"unit_price"`
	Available bool   `json:"available"`
}
