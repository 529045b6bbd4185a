package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"venue-wallet-engine/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

const purchaseColumns = `id, wallet_id, item_id, venue_id, gateway_id, quantity, tip, fees, receipt_id, created_at`

// PurchaseRepo implements ports.PurchaseRepository.
type PurchaseRepo struct {
	pool Pool
}

// NewPurchaseRepo creates a new PurchaseRepo.
func NewPurchaseRepo(pool Pool) *PurchaseRepo {
	return &PurchaseRepo{pool: pool}
}

// Create inserts a purchase record within a database transaction.
func (r *PurchaseRepo) Create(ctx context.Context, tx pgx.Tx, rec *domain.PurchaseRecord) error {
	fees, err := json.Marshal(rec.Fees)
	if err != nil {
		return fmt.Errorf("marshal fee breakdown: %w", err)
	}
	query := `INSERT INTO purchase_records (` + purchaseColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err = tx.Exec(ctx, query,
		rec.ID, rec.WalletID, rec.ItemID, rec.VenueID, rec.GatewayID,
		rec.Quantity, rec.Tip, fees, rec.ReceiptID, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert purchase record: %w", err)
	}
	return nil
}

// CreateStandalone inserts a purchase record outside any transaction, used
// by the repair path.
func (r *PurchaseRepo) CreateStandalone(ctx context.Context, rec *domain.PurchaseRecord) error {
	fees, err := json.Marshal(rec.Fees)
	if err != nil {
		return fmt.Errorf("marshal fee breakdown: %w", err)
	}
	query := `INSERT INTO purchase_records (` + purchaseColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT DO NOTHING`

	_, err = r.pool.Exec(ctx, query,
		rec.ID, rec.WalletID, rec.ItemID, rec.VenueID, rec.GatewayID,
		rec.Quantity, rec.Tip, fees, rec.ReceiptID, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert purchase record (standalone): %w", err)
	}
	return nil
}
