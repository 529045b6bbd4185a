package postgres

import (
	"context"
	"errors"
	"fmt"

	"venue-wallet-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WalletRepo implements ports.WalletRepository. The balance column is only
// ever changed through ConditionalAdjust; there is no unconditional update.
type WalletRepo struct {
	pool Pool
}

// NewWalletRepo creates a new WalletRepo.
func NewWalletRepo(pool Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

// Create inserts a new wallet. The unique constraint on device_binding
// resolves concurrent first-use creation races.
func (r *WalletRepo) Create(ctx context.Context, w *domain.Wallet) error {
	query := `INSERT INTO wallets (id, device_binding, balance, version, entry_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.pool.Exec(ctx, query,
		w.ID, w.DeviceBinding, w.Balance, w.Version, w.EntryCount, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

// GetByID fetches a wallet by its UUID.
func (r *WalletRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT id, device_binding, balance, version, entry_count, created_at, updated_at
		FROM wallets WHERE id = $1`

	return r.scanWallet(r.pool.QueryRow(ctx, query, id))
}

// GetByDeviceBinding fetches a wallet by its device-binding token.
func (r *WalletRepo) GetByDeviceBinding(ctx context.Context, binding string) (*domain.Wallet, error) {
	query := `SELECT id, device_binding, balance, version, entry_count, created_at, updated_at
		FROM wallets WHERE device_binding = $1`

	return r.scanWallet(r.pool.QueryRow(ctx, query, binding))
}

// ConditionalAdjust atomically applies delta iff the stored version still
// equals expectedVersion and the resulting balance is non-negative. Zero
// rows affected means a conflict (or an adjustment that would overdraw);
// either way nothing was mutated and the caller must re-read and retry.
func (r *WalletRepo) ConditionalAdjust(ctx context.Context, id uuid.UUID, delta int64, expectedVersion int64) (bool, error) {
	query := `UPDATE wallets
		SET balance = balance + $2, version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $3 AND balance + $2 >= 0`

	tag, err := r.pool.Exec(ctx, query, id, delta, expectedVersion)
	if err != nil {
		return false, fmt.Errorf("conditional adjust: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// IncrementEntryCount bumps the wallet's lifetime entry counter within the
// logging transaction of a successful entry.
func (r *WalletRepo) IncrementEntryCount(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	query := `UPDATE wallets SET entry_count = entry_count + 1, updated_at = NOW() WHERE id = $1`

	tag, err := tx.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("increment entry count: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("wallet not found: %s", id)
	}
	return nil
}

func (r *WalletRepo) scanWallet(row pgx.Row) (*domain.Wallet, error) {
	w := &domain.Wallet{}
	err := row.Scan(
		&w.ID, &w.DeviceBinding, &w.Balance, &w.Version, &w.EntryCount,
		&w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan wallet: %w", err)
	}
	return w, nil
}
