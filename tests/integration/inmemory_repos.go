package integration

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"venue-wallet-engine/internal/core/domain"
	"venue-wallet-engine/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// --- In-Memory Wallet Repo ---

type inMemoryWalletRepo struct {
	mu        sync.RWMutex
	wallets   map[uuid.UUID]*domain.Wallet
	byBinding map[string]uuid.UUID
}

func newInMemoryWalletRepo() *inMemoryWalletRepo {
	return &inMemoryWalletRepo{
		wallets:   make(map[uuid.UUID]*domain.Wallet),
		byBinding: make(map[string]uuid.UUID),
	}
}

func (r *inMemoryWalletRepo) Create(ctx context.Context, w *domain.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byBinding[w.DeviceBinding]; ok {
		return fmt.Errorf("device binding already exists")
	}
	cp := *w
	r.wallets[w.ID] = &cp
	r.byBinding[w.DeviceBinding] = w.ID
	return nil
}

func (r *inMemoryWalletRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.wallets[id]
	if !ok {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

func (r *inMemoryWalletRepo) GetByDeviceBinding(ctx context.Context, binding string) (*domain.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byBinding[binding]
	if !ok {
		return nil, nil
	}
	cp := *r.wallets[id]
	return &cp, nil
}

// ConditionalAdjust mirrors the SQL compare-and-swap: the adjustment applies
// only if the stored version still matches and the balance stays non-negative.
func (r *inMemoryWalletRepo) ConditionalAdjust(ctx context.Context, id uuid.UUID, delta int64, expectedVersion int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[id]
	if !ok {
		return false, nil
	}
	if w.Version != expectedVersion || w.Balance+delta < 0 {
		return false, nil
	}
	w.Balance += delta
	w.Version++
	w.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (r *inMemoryWalletRepo) IncrementEntryCount(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[id]
	if !ok {
		return fmt.Errorf("wallet not found")
	}
	w.EntryCount++
	return nil
}

// --- In-Memory Ledger Repo ---

type inMemoryLedgerRepo struct {
	mu            sync.RWMutex
	rows          map[uuid.UUID]*domain.LedgerEntry
	byExternalRef map[string]uuid.UUID
	byReceipt     map[uuid.UUID]uuid.UUID
}

func newInMemoryLedgerRepo() *inMemoryLedgerRepo {
	return &inMemoryLedgerRepo{
		rows:          make(map[uuid.UUID]*domain.LedgerEntry),
		byExternalRef: make(map[string]uuid.UUID),
		byReceipt:     make(map[uuid.UUID]uuid.UUID),
	}
}

func (r *inMemoryLedgerRepo) insert(entry *domain.LedgerEntry) error {
	if _, ok := r.byReceipt[entry.ReceiptID]; ok {
		return fmt.Errorf("duplicate receipt id")
	}
	cp := *entry
	r.rows[entry.ID] = &cp
	r.byReceipt[entry.ReceiptID] = entry.ID
	if entry.ExternalRef != nil {
		r.byExternalRef[*entry.ExternalRef] = entry.ID
	}
	return nil
}

func (r *inMemoryLedgerRepo) Append(ctx context.Context, tx pgx.Tx, entry *domain.LedgerEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.insert(entry)
}

// AppendStandalone mirrors ON CONFLICT (receipt_id) DO NOTHING: a repair
// retry that already landed its row is a no-op, not an error.
func (r *inMemoryLedgerRepo) AppendStandalone(ctx context.Context, entry *domain.LedgerEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byReceipt[entry.ReceiptID]; ok {
		return nil
	}
	return r.insert(entry)
}

// ReserveFunding mirrors INSERT .. ON CONFLICT DO NOTHING on external_ref:
// the first caller wins and gets (nil, nil); later callers get the holder.
func (r *inMemoryLedgerRepo) ReserveFunding(ctx context.Context, entry *domain.LedgerEntry) (*domain.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry.ExternalRef == nil {
		return nil, fmt.Errorf("funding row requires external ref")
	}
	if id, ok := r.byExternalRef[*entry.ExternalRef]; ok {
		cp := *r.rows[id]
		return &cp, nil
	}
	if err := r.insert(entry); err != nil {
		return nil, err
	}
	return nil, nil
}

func (r *inMemoryLedgerRepo) CompleteFunding(ctx context.Context, id uuid.UUID, balanceBefore, balanceAfter int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return fmt.Errorf("ledger row not found")
	}
	if row.Status != domain.LedgerStatusPending {
		return fmt.Errorf("ledger row %s is not pending", id)
	}
	row.Status = domain.LedgerStatusCompleted
	row.BalanceBefore = balanceBefore
	row.BalanceAfter = balanceAfter
	return nil
}

func (r *inMemoryLedgerRepo) MarkFailed(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.casStatus(id, domain.LedgerStatusPending, domain.LedgerStatusFailed)
}

func (r *inMemoryLedgerRepo) MarkPending(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.casStatus(id, domain.LedgerStatusFailed, domain.LedgerStatusPending)
}

// casStatus mirrors the status-guarded UPDATE: the transition only happens
// when the row is still in the expected state, and the caller learns
// whether it won.
func (r *inMemoryLedgerRepo) casStatus(id uuid.UUID, from, to domain.LedgerStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return false, fmt.Errorf("ledger row not found")
	}
	if row.Status != from {
		return false, nil
	}
	row.Status = to
	return true, nil
}

// forceStatus lets tests stage a row in an arbitrary state.
func (r *inMemoryLedgerRepo) forceStatus(id uuid.UUID, status domain.LedgerStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row, ok := r.rows[id]; ok {
		row.Status = status
	}
}

func (r *inMemoryLedgerRepo) GetByReceipt(ctx context.Context, receiptID uuid.UUID) (*domain.LedgerEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byReceipt[receiptID]
	if !ok {
		return nil, nil
	}
	cp := *r.rows[id]
	return &cp, nil
}

func (r *inMemoryLedgerRepo) GetByExternalRef(ctx context.Context, externalRef string) (*domain.LedgerEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byExternalRef[externalRef]
	if !ok {
		return nil, nil
	}
	cp := *r.rows[id]
	return &cp, nil
}

func (r *inMemoryLedgerRepo) ListByWallet(ctx context.Context, walletID uuid.UUID, limit int) ([]domain.LedgerEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.LedgerEntry
	for _, row := range r.rows {
		if row.WalletID == walletID {
			result = append(result, *row)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// --- In-Memory Entry Repo ---

type inMemoryEntryRepo struct {
	mu      sync.RWMutex
	records []domain.EntryRecord
}

func newInMemoryEntryRepo() *inMemoryEntryRepo {
	return &inMemoryEntryRepo{}
}

func (r *inMemoryEntryRepo) stats(walletID uuid.UUID, venueID string) ports.EntryStats {
	var stats ports.EntryStats
	for i := range r.records {
		rec := &r.records[i]
		if rec.WalletID != walletID || rec.VenueID != venueID {
			continue
		}
		stats.Count++
		if stats.FirstEntryAt == nil || rec.CreatedAt.Before(*stats.FirstEntryAt) {
			at := rec.CreatedAt
			stats.FirstEntryAt = &at
		}
	}
	return stats
}

func (r *inMemoryEntryRepo) Stats(ctx context.Context, walletID uuid.UUID, venueID string) (ports.EntryStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stats(walletID, venueID), nil
}

func (r *inMemoryEntryRepo) StatsTx(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, venueID string) (ports.EntryStats, error) {
	return r.Stats(ctx, walletID, venueID)
}

// Create enforces the (wallet_id, venue_id, sequence) unique constraint that
// backstops sequence contiguity in the real schema.
func (r *inMemoryEntryRepo) Create(ctx context.Context, tx pgx.Tx, record *domain.EntryRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.records {
		rec := &r.records[i]
		if rec.WalletID == record.WalletID && rec.VenueID == record.VenueID && rec.Sequence == record.Sequence {
			// Surface the rejection the way the driver would.
			return fmt.Errorf("insert entry record: %w", &pgconn.PgError{
				Code:           "23505",
				ConstraintName: "entry_records_wallet_id_venue_id_sequence_key",
			})
		}
	}
	r.records = append(r.records, *record)
	return nil
}

// CreateStandalone mirrors ON CONFLICT DO NOTHING: a sequence that already
// landed is left alone.
func (r *inMemoryEntryRepo) CreateStandalone(ctx context.Context, record *domain.EntryRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.records {
		rec := &r.records[i]
		if rec.WalletID == record.WalletID && rec.VenueID == record.VenueID && rec.Sequence == record.Sequence {
			return nil
		}
	}
	r.records = append(r.records, *record)
	return nil
}

func (r *inMemoryEntryRepo) ListByWalletVenue(ctx context.Context, walletID uuid.UUID, venueID string) ([]domain.EntryRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.EntryRecord
	for _, rec := range r.records {
		if rec.WalletID == walletID && rec.VenueID == venueID {
			result = append(result, rec)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Sequence < result[j].Sequence })
	return result, nil
}

// --- In-Memory Purchase Repo ---

type inMemoryPurchaseRepo struct {
	mu      sync.RWMutex
	records []domain.PurchaseRecord
}

func newInMemoryPurchaseRepo() *inMemoryPurchaseRepo {
	return &inMemoryPurchaseRepo{}
}

func (r *inMemoryPurchaseRepo) Create(ctx context.Context, tx pgx.Tx, record *domain.PurchaseRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, *record)
	return nil
}

func (r *inMemoryPurchaseRepo) CreateStandalone(ctx context.Context, record *domain.PurchaseRecord) error {
	return r.Create(ctx, nil, record)
}

// --- In-Memory Pricing Repo ---

type inMemoryPricingRepo struct {
	mu      sync.RWMutex
	configs map[string]*domain.PricingConfig
	items   map[string]*domain.VendorItem
}

func newInMemoryPricingRepo() *inMemoryPricingRepo {
	return &inMemoryPricingRepo{
		configs: make(map[string]*domain.PricingConfig),
		items:   make(map[string]*domain.VendorItem),
	}
}

func (r *inMemoryPricingRepo) seedConfig(cfg *domain.PricingConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs[cfg.VenueID] = cfg
}

func (r *inMemoryPricingRepo) seedItem(item *domain.VendorItem) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[item.ID] = item
}

func (r *inMemoryPricingRepo) GetConfig(ctx context.Context, venueID string) (*domain.PricingConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.configs[venueID]
	if !ok {
		return nil, nil
	}
	cp := *cfg
	return &cp, nil
}

func (r *inMemoryPricingRepo) GetItem(ctx context.Context, itemID string) (*domain.VendorItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.items[itemID]
	if !ok {
		return nil, nil
	}
	cp := *item
	return &cp, nil
}

// --- In-Memory Transactor ---

// inMemoryTransactor serializes logging transactions with a global lock,
// matching the isolation the processor relies on when it recounts entries
// inside the transaction that writes a new record.
type inMemoryTransactor struct {
	mu sync.Mutex
}

func newInMemoryTransactor() *inMemoryTransactor {
	return &inMemoryTransactor{}
}

func (t *inMemoryTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	t.mu.Lock()
	return &lockedTx{unlock: t.mu.Unlock}, nil
}

// lockedTx is a no-op pgx.Tx that releases the transactor lock on the first
// Commit or Rollback.
type lockedTx struct {
	once   sync.Once
	unlock func()
}

func (t *lockedTx) release() { t.once.Do(t.unlock) }

func (t *lockedTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *lockedTx) Commit(ctx context.Context) error          { t.release(); return nil }
func (t *lockedTx) Rollback(ctx context.Context) error        { t.release(); return nil }
func (t *lockedTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *lockedTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *lockedTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *lockedTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *lockedTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *lockedTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *lockedTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *lockedTx) Conn() *pgx.Conn { return nil }
