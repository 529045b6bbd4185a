package ports

import (
	"context"
	"time"

	"venue-wallet-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WalletRepository defines persistence operations for wallets. The balance is
// mutated exclusively through ConditionalAdjust; there is no blind overwrite.
type WalletRepository interface {
	Create(ctx context.Context, wallet *domain.Wallet) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error)
	GetByDeviceBinding(ctx context.Context, binding string) (*domain.Wallet, error)
	// ConditionalAdjust atomically applies delta to the balance iff the stored
	// version still equals expectedVersion and the result is non-negative.
	// It returns false with no mutation on a version or balance conflict.
	// This is the single point where balance races are resolved.
	ConditionalAdjust(ctx context.Context, id uuid.UUID, delta int64, expectedVersion int64) (bool, error)
	// IncrementEntryCount bumps the wallet's lifetime entry counter inside the
	// logging transaction of a successful entry.
	IncrementEntryCount(ctx context.Context, tx pgx.Tx, id uuid.UUID) error
}

// LedgerRepository defines persistence for the append-only transaction log.
type LedgerRepository interface {
	// Append inserts a completed ledger row within a database transaction.
	Append(ctx context.Context, tx pgx.Tx, entry *domain.LedgerEntry) error
	// AppendStandalone inserts a completed ledger row outside any transaction,
	// used by the out-of-band repair path.
	AppendStandalone(ctx context.Context, entry *domain.LedgerEntry) error
	// ReserveFunding inserts a pending ledger row carrying a unique external
	// reference. It returns (nil, nil) when the reservation won; when another
	// row already holds the reference it returns that row untouched. The
	// unique constraint, not a prior read, is what makes duplicate detection
	// race-safe.
	ReserveFunding(ctx context.Context, entry *domain.LedgerEntry) (*domain.LedgerEntry, error)
	// CompleteFunding promotes a pending funding row to completed, recording
	// the observed before/after balances.
	CompleteFunding(ctx context.Context, id uuid.UUID, balanceBefore, balanceAfter int64) error
	// MarkFailed marks a pending row failed so the upstream reference can be
	// retried later. It reports whether the row was still pending and
	// actually transitioned.
	MarkFailed(ctx context.Context, id uuid.UUID) (bool, error)
	// MarkPending takes over a previously failed funding row for a retry.
	// The transition is atomic: only the caller it reports true to owns the
	// retry, everyone else must treat the reference as in flight.
	MarkPending(ctx context.Context, id uuid.UUID) (bool, error)
	GetByReceipt(ctx context.Context, receiptID uuid.UUID) (*domain.LedgerEntry, error)
	GetByExternalRef(ctx context.Context, externalRef string) (*domain.LedgerEntry, error)
	ListByWallet(ctx context.Context, walletID uuid.UUID, limit int) ([]domain.LedgerEntry, error)
}

// EntryStats summarises a wallet's entry history at one venue. FirstEntryAt
// is nil when the wallet has never entered the venue.
type EntryStats struct {
	Count        int
	FirstEntryAt *time.Time
}

// EntryRepository defines persistence for entry records. Stats must be
// re-read inside the same transaction that writes a new record so that two
// concurrent scans cannot both commit the same sequence number.
type EntryRepository interface {
	Stats(ctx context.Context, walletID uuid.UUID, venueID string) (EntryStats, error)
	StatsTx(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, venueID string) (EntryStats, error)
	Create(ctx context.Context, tx pgx.Tx, record *domain.EntryRecord) error
	CreateStandalone(ctx context.Context, record *domain.EntryRecord) error
	ListByWalletVenue(ctx context.Context, walletID uuid.UUID, venueID string) ([]domain.EntryRecord, error)
}

// PurchaseRepository defines persistence for purchase records.
type PurchaseRepository interface {
	Create(ctx context.Context, tx pgx.Tx, record *domain.PurchaseRecord) error
	CreateStandalone(ctx context.Context, record *domain.PurchaseRecord) error
}

// PricingRepository is the read-only pricing/catalog lookup collaborator.
type PricingRepository interface {
	GetConfig(ctx context.Context, venueID string) (*domain.PricingConfig, error)
	GetItem(ctx context.Context, itemID string) (*domain.VendorItem, error)
}

// FundingCache is the fast-path idempotency lookup for external funding
// references, sitting in front of the ledger's unique constraint. Best
// effort only: a miss or error always falls through to the database.
type FundingCache interface {
	Get(ctx context.Context, externalRef string) ([]byte, error) // nil, nil on miss
	Set(ctx context.Context, externalRef string, value []byte, ttl time.Duration) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
