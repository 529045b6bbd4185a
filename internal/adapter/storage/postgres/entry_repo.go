package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"venue-wallet-engine/internal/core/domain"
	"venue-wallet-engine/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const entryColumns = `id, wallet_id, venue_id, gateway_id, method, sequence, kind, fees, receipt_id, created_at`

const entryStatsQuery = `SELECT COUNT(*), MIN(created_at) FROM entry_records
	WHERE wallet_id = $1 AND venue_id = $2`

// EntryRepo implements ports.EntryRepository. The unique constraint on
// (wallet_id, venue_id, sequence) is the storage backstop for sequence
// contiguity: a racing insert of the same sequence fails instead of
// silently duplicating.
type EntryRepo struct {
	pool Pool
}

// NewEntryRepo creates a new EntryRepo.
func NewEntryRepo(pool Pool) *EntryRepo {
	return &EntryRepo{pool: pool}
}

// Stats returns the prior-entry count and first entry time for a wallet at
// a venue.
func (r *EntryRepo) Stats(ctx context.Context, walletID uuid.UUID, venueID string) (ports.EntryStats, error) {
	return scanEntryStats(r.pool.QueryRow(ctx, entryStatsQuery, walletID, venueID))
}

// StatsTx is Stats inside an open transaction, used by the logging stage to
// verify the priced classification still holds before committing a record.
func (r *EntryRepo) StatsTx(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, venueID string) (ports.EntryStats, error) {
	return scanEntryStats(tx.QueryRow(ctx, entryStatsQuery, walletID, venueID))
}

// Create inserts an entry record within a database transaction.
func (r *EntryRepo) Create(ctx context.Context, tx pgx.Tx, rec *domain.EntryRecord) error {
	fees, err := json.Marshal(rec.Fees)
	if err != nil {
		return fmt.Errorf("marshal fee breakdown: %w", err)
	}
	query := `INSERT INTO entry_records (` + entryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err = tx.Exec(ctx, query,
		rec.ID, rec.WalletID, rec.VenueID, rec.GatewayID, rec.Method,
		rec.Sequence, rec.Kind, fees, rec.ReceiptID, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert entry record: %w", err)
	}
	return nil
}

// CreateStandalone inserts an entry record outside any transaction, used by
// the repair path. Conflicting sequences are left alone rather than
// overwritten.
func (r *EntryRepo) CreateStandalone(ctx context.Context, rec *domain.EntryRecord) error {
	fees, err := json.Marshal(rec.Fees)
	if err != nil {
		return fmt.Errorf("marshal fee breakdown: %w", err)
	}
	query := `INSERT INTO entry_records (` + entryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT DO NOTHING`

	_, err = r.pool.Exec(ctx, query,
		rec.ID, rec.WalletID, rec.VenueID, rec.GatewayID, rec.Method,
		rec.Sequence, rec.Kind, fees, rec.ReceiptID, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert entry record (standalone): %w", err)
	}
	return nil
}

// ListByWalletVenue returns the entry history for a wallet at a venue in
// sequence order.
func (r *EntryRepo) ListByWalletVenue(ctx context.Context, walletID uuid.UUID, venueID string) ([]domain.EntryRecord, error) {
	query := `SELECT ` + entryColumns + ` FROM entry_records
		WHERE wallet_id = $1 AND venue_id = $2 ORDER BY sequence ASC`

	rows, err := r.pool.Query(ctx, query, walletID, venueID)
	if err != nil {
		return nil, fmt.Errorf("list entry records: %w", err)
	}
	defer rows.Close()

	var records []domain.EntryRecord
	for rows.Next() {
		rec := domain.EntryRecord{}
		var fees []byte
		err := rows.Scan(
			&rec.ID, &rec.WalletID, &rec.VenueID, &rec.GatewayID, &rec.Method,
			&rec.Sequence, &rec.Kind, &fees, &rec.ReceiptID, &rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan entry record: %w", err)
		}
		if len(fees) > 0 {
			if err := json.Unmarshal(fees, &rec.Fees); err != nil {
				return nil, fmt.Errorf("unmarshal fee breakdown: %w", err)
			}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entry rows: %w", err)
	}
	return records, nil
}

func scanEntryStats(row pgx.Row) (ports.EntryStats, error) {
	var (
		count   int
		firstAt *time.Time
	)
	if err := row.Scan(&count, &firstAt); err != nil {
		return ports.EntryStats{}, fmt.Errorf("scan entry stats: %w", err)
	}
	return ports.EntryStats{Count: count, FirstEntryAt: firstAt}, nil
}
