package service

import (
	"testing"
	"time"

	"venue-wallet-engine/internal/core/domain"
	"venue-wallet-engine/internal/core/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPricing() *domain.PricingConfig {
	return &domain.PricingConfig{
		VenueID:            "venue-1",
		Version:            1,
		InitialFee:         2500,
		ReentryVenueFee:    1000,
		ReentryPlatformFee: 25,
		PurchaseFeeBps:     250, // 2.5%
		ReentryAllowed:     true,
	}
}

func TestEntryFees_InitialEntry(t *testing.T) {
	calc := NewFeeCalculator()

	fb := calc.EntryFees(testPricing(), 0)

	assert.Equal(t, int64(2500), fb.InitialFee)
	assert.Zero(t, fb.VenueFee)
	assert.Zero(t, fb.PlatformFee)
	assert.Equal(t, int64(2500), fb.Total)
}

func TestEntryFees_Reentry(t *testing.T) {
	calc := NewFeeCalculator()

	fb := calc.EntryFees(testPricing(), 1)

	assert.Zero(t, fb.InitialFee)
	assert.Equal(t, int64(1000), fb.VenueFee)
	assert.Equal(t, int64(25), fb.PlatformFee)
	assert.Equal(t, int64(1025), fb.Total)
}

func TestEntryFees_Deterministic(t *testing.T) {
	calc := NewFeeCalculator()
	cfg := testPricing()
	cfg.Tax = &domain.TaxProfile{StateBps: 600, LocalBps: 150}
	cfg.Splits = []domain.SplitParty{{Party: "venue", ShareBps: 7000}, {Party: "pool", ShareBps: 2000}}

	first := calc.EntryFees(cfg, 3)
	for i := 0; i < 50; i++ {
		assert.Equal(t, first, calc.EntryFees(cfg, 3))
	}
}

func TestPurchaseFees_PlatformCut(t *testing.T) {
	calc := NewFeeCalculator()
	item := &domain.VendorItem{ID: "beer", VenueID: "venue-1", Category: "alcohol", UnitPrice: 800, Available: true}

	fb := calc.PurchaseFees(testPricing(), item, 3, 0)

	assert.Equal(t, int64(2400), fb.ItemTotal)
	assert.Equal(t, int64(60), fb.PlatformFee)
	assert.Equal(t, int64(2340), fb.VendorPayout)
	assert.Equal(t, int64(2400), fb.Total)
}

func TestPurchaseFees_TipExcludedFromFeeBase(t *testing.T) {
	calc := NewFeeCalculator()
	item := &domain.VendorItem{UnitPrice: 1000, Category: "food"}

	fb := calc.PurchaseFees(testPricing(), item, 1, 300)

	assert.Equal(t, int64(25), fb.PlatformFee, "tip must not enter the platform-fee base")
	assert.Equal(t, int64(300), fb.Tip)
	assert.Equal(t, int64(1275), fb.VendorPayout, "full tip passes through to the vendor")
	assert.Equal(t, int64(1300), fb.Total)
}

func TestPurchaseFees_TaxBeforeSplit(t *testing.T) {
	calc := NewFeeCalculator()
	cfg := testPricing()
	cfg.PurchaseFeeBps = 1000 // 10%
	cfg.Tax = &domain.TaxProfile{
		StateBps:    600, // 6%
		LocalBps:    100, // 1%
		CategoryBps: map[string]int64{"alcohol": 1000},
	}
	cfg.Splits = []domain.SplitParty{
		{Party: "venue", ShareBps: 5000},
		{Party: "promoter", ShareBps: 3000},
	}
	item := &domain.VendorItem{UnitPrice: 999, Category: "alcohol"}

	fb := calc.PurchaseFees(cfg, item, 1, 0)

	// Tax on the pre-split item total, floored per component.
	assert.Equal(t, int64(59), fb.Tax.State)    // floor(999*0.06)
	assert.Equal(t, int64(9), fb.Tax.Local)     // floor(999*0.01)
	assert.Equal(t, int64(99), fb.Tax.Category) // floor(999*0.10)
	assert.Equal(t, int64(167), fb.Tax.Total)
	assert.Equal(t, int64(1166), fb.Total)

	// Split of the platform fee (99): 49 + 29 with 21 left to the platform.
	require.Len(t, fb.Splits, 2)
	assert.Equal(t, int64(49), fb.Splits[0].Amount)
	assert.Equal(t, int64(29), fb.Splits[1].Amount)
	assert.Equal(t, int64(21), fb.SplitRemainder)
}

func TestCheckReentry_InitialAlwaysEligible(t *testing.T) {
	calc := NewFeeCalculator()
	cfg := testPricing()
	cfg.ReentryAllowed = false

	denial := calc.CheckReentry(cfg, ports.EntryStats{Count: 0}, time.Now())
	assert.Nil(t, denial)
}

func TestCheckReentry_NotAllowed(t *testing.T) {
	calc := NewFeeCalculator()
	cfg := testPricing()
	cfg.ReentryAllowed = false

	denial := calc.CheckReentry(cfg, ports.EntryStats{Count: 1}, time.Now())
	require.NotNil(t, denial)
	assert.Equal(t, domain.DenialReentryNotAllowed, denial.Reason)
}

func TestCheckReentry_MaxReached(t *testing.T) {
	calc := NewFeeCalculator()
	cfg := testPricing()
	max := 2
	cfg.MaxReentries = &max

	// Initial + 2 re-entries already recorded: the third re-entry is refused.
	denial := calc.CheckReentry(cfg, ports.EntryStats{Count: 3}, time.Now())
	require.NotNil(t, denial)
	assert.Equal(t, domain.DenialMaxReentriesReached, denial.Reason)

	// One re-entry left.
	assert.Nil(t, calc.CheckReentry(cfg, ports.EntryStats{Count: 2}, time.Now()))
}

func TestCheckReentry_WindowExpired(t *testing.T) {
	calc := NewFeeCalculator()
	cfg := testPricing()
	window := 4 * time.Hour
	cfg.ReentryWindow = &window

	first := time.Now().Add(-5 * time.Hour)
	denial := calc.CheckReentry(cfg, ports.EntryStats{Count: 1, FirstEntryAt: &first}, time.Now())
	require.NotNil(t, denial)
	assert.Equal(t, domain.DenialReentryWindowExpired, denial.Reason)

	recent := time.Now().Add(-1 * time.Hour)
	assert.Nil(t, calc.CheckReentry(cfg, ports.EntryStats{Count: 1, FirstEntryAt: &recent}, time.Now()))
}
