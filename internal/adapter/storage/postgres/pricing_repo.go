package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"venue-wallet-engine/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// PricingRepo implements ports.PricingRepository over the pricing_configs
// and vendor_items tables. Both are read-only from the engine's point of
// view; operator tooling maintains them.
type PricingRepo struct {
	pool Pool
}

// NewPricingRepo creates a new PricingRepo.
func NewPricingRepo(pool Pool) *PricingRepo {
	return &PricingRepo{pool: pool}
}

// GetConfig fetches the pricing/eligibility policy for a venue.
func (r *PricingRepo) GetConfig(ctx context.Context, venueID string) (*domain.PricingConfig, error) {
	query := `SELECT venue_id, version, initial_fee, reentry_venue_fee, reentry_platform_fee,
		purchase_fee_bps, reentry_allowed, max_reentries, reentry_window_seconds, tax, splits
		FROM pricing_configs WHERE venue_id = $1`

	cfg := &domain.PricingConfig{}
	var (
		windowSeconds *int64
		tax           []byte
		splits        []byte
	)
	err := r.pool.QueryRow(ctx, query, venueID).Scan(
		&cfg.VenueID, &cfg.Version, &cfg.InitialFee, &cfg.ReentryVenueFee, &cfg.ReentryPlatformFee,
		&cfg.PurchaseFeeBps, &cfg.ReentryAllowed, &cfg.MaxReentries, &windowSeconds, &tax, &splits,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get pricing config: %w", err)
	}

	if windowSeconds != nil {
		window := time.Duration(*windowSeconds) * time.Second
		cfg.ReentryWindow = &window
	}
	if len(tax) > 0 {
		cfg.Tax = &domain.TaxProfile{}
		if err := json.Unmarshal(tax, cfg.Tax); err != nil {
			return nil, fmt.Errorf("unmarshal tax profile: %w", err)
		}
	}
	if len(splits) > 0 {
		if err := json.Unmarshal(splits, &cfg.Splits); err != nil {
			return nil, fmt.Errorf("unmarshal split profile: %w", err)
		}
	}
	return cfg, nil
}

// GetItem fetches a vendor catalog item.
func (r *PricingRepo) GetItem(ctx context.Context, itemID string) (*domain.VendorItem, error) {
	query := `SELECT id, venue_id, name, category, unit_price, available
		FROM vendor_items WHERE id = $1`

	item := &domain.VendorItem{}
	err := r.pool.QueryRow(ctx, query, itemID).Scan(
		&item.ID, &item.VenueID, &item.Name, &item.Category, &item.UnitPrice, &item.Available,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get vendor item: %w", err)
	}
	return item, nil
}
