package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"venue-wallet-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const ledgerColumns = `id, wallet_id, type, amount, balance_before, balance_after,
	counterpart_type, counterpart_id, gateway_id, receipt_id, external_ref, fees, status, created_at`

// LedgerRepo implements ports.LedgerRepository over the append-only
// ledger_entries table. receipt_id and external_ref carry unique
// constraints; the latter is what makes funding idempotency race-safe.
type LedgerRepo struct {
	pool Pool
}

// NewLedgerRepo creates a new LedgerRepo.
func NewLedgerRepo(pool Pool) *LedgerRepo {
	return &LedgerRepo{pool: pool}
}

// Append inserts a completed ledger row within a database transaction.
func (r *LedgerRepo) Append(ctx context.Context, tx pgx.Tx, e *domain.LedgerEntry) error {
	fees, err := json.Marshal(e.Fees)
	if err != nil {
		return fmt.Errorf("marshal fee breakdown: %w", err)
	}
	query := `INSERT INTO ledger_entries (` + ledgerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err = tx.Exec(ctx, query,
		e.ID, e.WalletID, e.Type, e.Amount, e.BalanceBefore, e.BalanceAfter,
		e.Counterpart, e.CounterpartID, e.GatewayID, e.ReceiptID, e.ExternalRef,
		fees, e.Status, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

// AppendStandalone inserts a completed ledger row outside any transaction,
// used by the repair path.
func (r *LedgerRepo) AppendStandalone(ctx context.Context, e *domain.LedgerEntry) error {
	fees, err := json.Marshal(e.Fees)
	if err != nil {
		return fmt.Errorf("marshal fee breakdown: %w", err)
	}
	query := `INSERT INTO ledger_entries (` + ledgerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (receipt_id) DO NOTHING`

	_, err = r.pool.Exec(ctx, query,
		e.ID, e.WalletID, e.Type, e.Amount, e.BalanceBefore, e.BalanceAfter,
		e.Counterpart, e.CounterpartID, e.GatewayID, e.ReceiptID, e.ExternalRef,
		fees, e.Status, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert ledger entry (standalone): %w", err)
	}
	return nil
}

// ReserveFunding claims an external funding reference by inserting a pending
// row. When another row already holds the reference the insert is a no-op
// and the existing row is returned; the unique constraint, not a prior
// read, resolves concurrent duplicates.
func (r *LedgerRepo) ReserveFunding(ctx context.Context, e *domain.LedgerEntry) (*domain.LedgerEntry, error) {
	fees, err := json.Marshal(e.Fees)
	if err != nil {
		return nil, fmt.Errorf("marshal fee breakdown: %w", err)
	}
	query := `INSERT INTO ledger_entries (` + ledgerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (external_ref) DO NOTHING`

	tag, err := r.pool.Exec(ctx, query,
		e.ID, e.WalletID, e.Type, e.Amount, e.BalanceBefore, e.BalanceAfter,
		e.Counterpart, e.CounterpartID, e.GatewayID, e.ReceiptID, e.ExternalRef,
		fees, e.Status, e.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("reserve funding: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil, nil
	}

	existing, err := r.GetByExternalRef(ctx, *e.ExternalRef)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fmt.Errorf("funding reservation lost but holder not found for ref %q", *e.ExternalRef)
	}
	return existing, nil
}

// CompleteFunding promotes a pending funding row to completed with the
// observed balances.
func (r *LedgerRepo) CompleteFunding(ctx context.Context, id uuid.UUID, balanceBefore, balanceAfter int64) error {
	query := `UPDATE ledger_entries SET balance_before = $2, balance_after = $3, status = 'completed'
		WHERE id = $1 AND status = 'pending'`

	tag, err := r.pool.Exec(ctx, query, id, balanceBefore, balanceAfter)
	if err != nil {
		return fmt.Errorf("complete funding: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("pending funding row not found: %s", id)
	}
	return nil
}

// MarkFailed marks a pending funding row failed so the upstream reference
// can be retried. It reports whether the row actually transitioned.
func (r *LedgerRepo) MarkFailed(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `UPDATE ledger_entries SET status = 'failed' WHERE id = $1 AND status = 'pending'`

	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("mark funding failed: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// MarkPending takes over a previously failed funding row for a retry. The
// status guard makes the takeover atomic: of N concurrent retries only one
// sees rows affected, and only that one may credit.
func (r *LedgerRepo) MarkPending(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `UPDATE ledger_entries SET status = 'pending' WHERE id = $1 AND status = 'failed'`

	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("mark funding pending: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// GetByReceipt fetches a ledger entry by its receipt identifier.
func (r *LedgerRepo) GetByReceipt(ctx context.Context, receiptID uuid.UUID) (*domain.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + ` FROM ledger_entries WHERE receipt_id = $1`

	return r.scanEntry(r.pool.QueryRow(ctx, query, receiptID))
}

// GetByExternalRef fetches a ledger entry by its external funding reference.
func (r *LedgerRepo) GetByExternalRef(ctx context.Context, externalRef string) (*domain.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + ` FROM ledger_entries WHERE external_ref = $1`

	return r.scanEntry(r.pool.QueryRow(ctx, query, externalRef))
}

// ListByWallet returns a wallet's ledger in ascending time order, for audit
// replay.
func (r *LedgerRepo) ListByWallet(ctx context.Context, walletID uuid.UUID, limit int) ([]domain.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + ` FROM ledger_entries
		WHERE wallet_id = $1 ORDER BY created_at ASC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, walletID, limit)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		e, err := scanLedgerRow(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger rows: %w", err)
	}
	return entries, nil
}

func (r *LedgerRepo) scanEntry(row pgx.Row) (*domain.LedgerEntry, error) {
	e, err := scanLedgerRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return e, nil
}

func scanLedgerRow(row pgx.Row) (*domain.LedgerEntry, error) {
	e := &domain.LedgerEntry{}
	var fees []byte
	err := row.Scan(
		&e.ID, &e.WalletID, &e.Type, &e.Amount, &e.BalanceBefore, &e.BalanceAfter,
		&e.Counterpart, &e.CounterpartID, &e.GatewayID, &e.ReceiptID, &e.ExternalRef,
		&fees, &e.Status, &e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan ledger entry: %w", err)
	}
	if len(fees) > 0 {
		if err := json.Unmarshal(fees, &e.Fees); err != nil {
			return nil, fmt.Errorf("unmarshal fee breakdown: %w", err)
		}
	}
	return e, nil
}
