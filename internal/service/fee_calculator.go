package service

import (
	"time"

	"venue-wallet-engine/internal/core/domain"
	"venue-wallet-engine/internal/core/ports"
)

const bpsDenominator = 10000

// FeeCalculator computes fee, tax and revenue-split breakdowns. It is a pure
// function of its inputs: no I/O, no clock reads (the caller passes time in),
// and integer minor-unit arithmetic throughout. Every floor is plain integer
// division on non-negative values.
type FeeCalculator struct{}

// NewFeeCalculator creates a FeeCalculator.
func NewFeeCalculator() *FeeCalculator {
	return &FeeCalculator{}
}

// CheckReentry applies the hard eligibility rules for a venue entry before
// any fee computation. It returns nil when the entry may proceed, or a
// Denial carrying the refusal reason. priorCount == 0 (an initial entry) is
// always eligible.
func (c *FeeCalculator) CheckReentry(cfg *domain.PricingConfig, stats ports.EntryStats, now time.Time) *domain.Denial {
	if stats.Count == 0 {
		return nil
	}
	if !cfg.ReentryAllowed {
		return &domain.Denial{Reason: domain.DenialReentryNotAllowed}
	}
	if cfg.MaxReentries != nil && stats.Count-1 >= *cfg.MaxReentries {
		return &domain.Denial{Reason: domain.DenialMaxReentriesReached}
	}
	if cfg.ReentryWindow != nil && stats.FirstEntryAt != nil &&
		now.Sub(*stats.FirstEntryAt) > *cfg.ReentryWindow {
		return &domain.Denial{Reason: domain.DenialReentryWindowExpired}
	}
	return nil
}

// EntryFees prices a venue entry. An initial entry (priorCount == 0) charges
// only the initial fee; every later entry charges the venue re-entry fee
// plus the platform re-entry fee. Tax is computed on the fee base before the
// revenue split is taken from the platform portion.
func (c *FeeCalculator) EntryFees(cfg *domain.PricingConfig, priorCount int) domain.FeeBreakdown {
	fb := domain.FeeBreakdown{PricingVersion: cfg.Version}

	var base int64
	if priorCount == 0 {
		fb.InitialFee = cfg.InitialFee
		base = cfg.InitialFee
	} else {
		fb.VenueFee = cfg.ReentryVenueFee
		fb.PlatformFee = cfg.ReentryPlatformFee
		base = cfg.ReentryVenueFee + cfg.ReentryPlatformFee
	}

	fb.Tax = computeTax(cfg.Tax, base, "")
	fb.Splits, fb.SplitRemainder = computeSplit(cfg.Splits, fb.PlatformFee)
	fb.Total = base + fb.Tax.Total
	return fb
}

// PurchaseFees prices a vendor purchase. The platform fee is a floored cut
// of the item total; the tip is added to the charge but excluded from the
// platform-fee base and passed through to the vendor in full. Tax applies to
// the item total, never to the tip.
func (c *FeeCalculator) PurchaseFees(cfg *domain.PricingConfig, item *domain.VendorItem, quantity int, tip int64) domain.FeeBreakdown {
	itemTotal := item.UnitPrice * int64(quantity)
	platformFee := itemTotal * cfg.PurchaseFeeBps / bpsDenominator

	fb := domain.FeeBreakdown{
		PricingVersion: cfg.Version,
		ItemTotal:      itemTotal,
		PlatformFee:    platformFee,
		VendorPayout:   itemTotal - platformFee + tip,
		Tip:            tip,
	}
	fb.Tax = computeTax(cfg.Tax, itemTotal, item.Category)
	fb.Splits, fb.SplitRemainder = computeSplit(cfg.Splits, platformFee)
	fb.Total = itemTotal + fb.Tax.Total + tip
	return fb
}

// computeTax breaks the tax on base into state/local/category components,
// each floored individually. Tax is computed before the revenue split.
func computeTax(p *domain.TaxProfile, base int64, category string) domain.TaxBreakdown {
	if p == nil {
		return domain.TaxBreakdown{}
	}
	t := domain.TaxBreakdown{
		State: base * p.StateBps / bpsDenominator,
		Local: base * p.LocalBps / bpsDenominator,
	}
	if category != "" {
		if bps, ok := p.CategoryBps[category]; ok {
			t.Category = base * bps / bpsDenominator
		}
	}
	t.Total = t.State + t.Local + t.Category
	return t
}

// computeSplit apportions the platform fee among the configured parties.
// Floor rounding can leave unallocated minor units; the remainder stays with
// the platform and is reported explicitly rather than silently dropped.
func computeSplit(parties []domain.SplitParty, platformFee int64) ([]domain.SplitShare, int64) {
	if len(parties) == 0 || platformFee == 0 {
		return nil, 0
	}
	shares := make([]domain.SplitShare, 0, len(parties))
	var allocated int64
	for _, p := range parties {
		amount := platformFee * p.ShareBps / bpsDenominator
		shares = append(shares, domain.SplitShare{Party: p.Party, Amount: amount})
		allocated += amount
	}
	return shares, platformFee - allocated
}
