package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"venue-wallet-engine/internal/core/domain"
	"venue-wallet-engine/internal/core/ports"
	"venue-wallet-engine/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	defaultMaxConflictRetries = 3
	defaultFundingCacheTTL    = 24 * time.Hour
)

// errEntryRace signals that the prior-entry count observed inside the
// logging transaction no longer matches the count the attempt was priced
// against, so the debit must be compensated and the attempt repriced.
var errEntryRace = errors.New("prior-entry count changed since pricing")

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// Processor is the transaction engine state machine. Each public operation
// walks VALIDATING -> PRICING -> DEBITING -> LOGGING -> COMPLETE, with
// business denials exiting early and optimistic-concurrency conflicts
// looping back to PRICING up to a fixed bound. The wallet balance mutation
// (ConditionalAdjust) is the single linearization point; the ledger is
// written afterwards and repaired out-of-band if that write fails, because
// the balance, not the log, is the source of truth.
type Processor struct {
	walletRepo   ports.WalletRepository
	ledgerRepo   ports.LedgerRepository
	entryRepo    ports.EntryRepository
	purchaseRepo ports.PurchaseRepository
	pricingRepo  ports.PricingRepository
	fundingCache ports.FundingCache
	transactor   ports.DBTransactor
	calc         *FeeCalculator
	events       ports.EventPublisher
	repairs      RepairScheduler
	metrics      *Metrics
	log          zerolog.Logger

	maxConflictRetries int
	fundingCacheTTL    time.Duration
	now                func() time.Time
}

// ProcessorDeps holds everything a Processor needs. Events, Repairs and
// Metrics are mandatory in production wiring; FundingCache may be nil, in
// which case funding idempotency rests on the ledger's unique constraint
// alone.
type ProcessorDeps struct {
	WalletRepo   ports.WalletRepository
	LedgerRepo   ports.LedgerRepository
	EntryRepo    ports.EntryRepository
	PurchaseRepo ports.PurchaseRepository
	PricingRepo  ports.PricingRepository
	FundingCache ports.FundingCache
	Transactor   ports.DBTransactor
	Events       ports.EventPublisher
	Repairs      RepairScheduler
	Metrics      *Metrics
	Logger       zerolog.Logger

	MaxConflictRetries int           // 0 = default (3)
	FundingCacheTTL    time.Duration // 0 = default (24h)
}

// NewProcessor creates a Processor.
func NewProcessor(deps ProcessorDeps) *Processor {
	retries := deps.MaxConflictRetries
	if retries <= 0 {
		retries = defaultMaxConflictRetries
	}
	ttl := deps.FundingCacheTTL
	if ttl <= 0 {
		ttl = defaultFundingCacheTTL
	}
	return &Processor{
		walletRepo:         deps.WalletRepo,
		ledgerRepo:         deps.LedgerRepo,
		entryRepo:          deps.EntryRepo,
		purchaseRepo:       deps.PurchaseRepo,
		pricingRepo:        deps.PricingRepo,
		fundingCache:       deps.FundingCache,
		transactor:         deps.Transactor,
		calc:               NewFeeCalculator(),
		events:             deps.Events,
		repairs:            deps.Repairs,
		metrics:            deps.Metrics,
		log:                deps.Logger,
		maxConflictRetries: retries,
		fundingCacheTTL:    ttl,
		now:                func() time.Time { return time.Now().UTC() },
	}
}

// ProcessEntry handles an entry or re-entry scan at a venue gateway.
func (p *Processor) ProcessEntry(ctx context.Context, req ports.EntryRequest) (*ports.EntryResult, error) {
	if req.WalletID == uuid.Nil {
		return nil, apperror.ErrMissingField("wallet_id")
	}
	if req.VenueID == "" {
		return nil, apperror.ErrMissingField("venue_id")
	}
	if req.GatewayID == "" {
		return nil, apperror.ErrMissingField("gateway_id")
	}

	// The receipt identifies this logical operation from the start, not
	// only after success, so partial failures remain traceable.
	receiptID := uuid.New()

	for attempt := 0; attempt <= p.maxConflictRetries; attempt++ {
		wallet, cfg, stats, err := p.readEntryState(ctx, req)
		if err != nil {
			return nil, err
		}

		if denial := p.calc.CheckReentry(cfg, stats, p.now()); denial != nil {
			denial.Balance = wallet.Balance
			return p.deniedEntry(receiptID, denial), nil
		}

		fees := p.calc.EntryFees(cfg, stats.Count)
		if !wallet.CanAfford(fees.Total) {
			return p.deniedEntry(receiptID, &domain.Denial{
				Reason:    domain.DenialInsufficientBalance,
				Shortfall: wallet.Shortfall(fees.Total),
				Balance:   wallet.Balance,
			}), nil
		}

		ok, err := p.walletRepo.ConditionalAdjust(ctx, wallet.ID, -fees.Total, wallet.Version)
		if err != nil {
			return nil, apperror.ErrDatabaseError(err)
		}
		if !ok {
			p.metrics.conflictRetries.Inc()
			p.log.Debug().
				Str("wallet_id", wallet.ID.String()).
				Int("attempt", attempt+1).
				Msg("entry debit conflicted, repricing")
			continue
		}

		sequence := stats.Count + 1
		kind := domain.KindForSequence(sequence)
		now := p.now()

		ledgerRow := &domain.LedgerEntry{
			ID:            uuid.New(),
			WalletID:      wallet.ID,
			Type:          ledgerTypeForEntry(kind),
			Amount:        -fees.Total,
			BalanceBefore: wallet.Balance,
			BalanceAfter:  wallet.Balance - fees.Total,
			Counterpart:   domain.CounterpartVenue,
			CounterpartID: req.VenueID,
			GatewayID:     req.GatewayID,
			ReceiptID:     receiptID,
			Fees:          fees,
			Status:        domain.LedgerStatusCompleted,
			CreatedAt:     now,
		}
		record := &domain.EntryRecord{
			ID:        uuid.New(),
			WalletID:  wallet.ID,
			VenueID:   req.VenueID,
			GatewayID: req.GatewayID,
			Method:    req.Method,
			Sequence:  sequence,
			Kind:      kind,
			Fees:      fees,
			ReceiptID: receiptID,
			CreatedAt: now,
		}

		err = p.logEntry(ctx, stats.Count, ledgerRow, record)
		if errors.Is(err, errEntryRace) {
			// A concurrent scan claimed this sequence number between our
			// pricing read and the logging transaction. Undo the debit and
			// reprice against fresh state.
			p.metrics.compensationsTotal.Inc()
			p.compensate(ctx, wallet.ID, fees.Total)
			continue
		}
		if err != nil {
			// The debit stands: report success and backfill the log.
			p.scheduleRepair(RepairTask{Ledger: ledgerRow, Entry: record}, err)
		}

		p.metrics.transactionsTotal.WithLabelValues("entry", "approved").Inc()
		p.publish(domain.TransactionEvent{
			Type:       domain.EventEntryCompleted,
			WalletID:   wallet.ID,
			ReceiptID:  receiptID,
			Amount:     -fees.Total,
			NewBalance: ledgerRow.BalanceAfter,
			VenueID:    req.VenueID,
			GatewayID:  req.GatewayID,
			OccurredAt: now,
		})
		p.log.Info().
			Str("wallet_id", wallet.ID.String()).
			Str("venue_id", req.VenueID).
			Str("receipt_id", receiptID.String()).
			Int("sequence", sequence).
			Str("kind", string(kind)).
			Int64("charged", fees.Total).
			Int64("new_balance", ledgerRow.BalanceAfter).
			Msg("entry approved")

		return &ports.EntryResult{
			Status:     ports.ResultApproved,
			Kind:       kind,
			Sequence:   sequence,
			Fees:       fees,
			ReceiptID:  receiptID,
			NewBalance: ledgerRow.BalanceAfter,
		}, nil
	}

	p.metrics.transactionsTotal.WithLabelValues("entry", "conflict").Inc()
	return nil, apperror.ErrConflict()
}

// ProcessPurchase handles a point-of-sale purchase at a vendor terminal.
func (p *Processor) ProcessPurchase(ctx context.Context, req ports.PurchaseRequest) (*ports.PurchaseResult, error) {
	if req.WalletID == uuid.Nil {
		return nil, apperror.ErrMissingField("wallet_id")
	}
	if req.ItemID == "" {
		return nil, apperror.ErrMissingField("item_id")
	}
	if req.GatewayID == "" {
		return nil, apperror.ErrMissingField("gateway_id")
	}
	if req.Quantity < 1 {
		return nil, apperror.ErrInvalidQuantity()
	}
	if req.Tip < 0 {
		return nil, apperror.ErrInvalidTip()
	}

	receiptID := uuid.New()

	for attempt := 0; attempt <= p.maxConflictRetries; attempt++ {
		wallet, item, err := p.readPurchaseState(ctx, req)
		if err != nil {
			return nil, err
		}

		if !item.Available {
			return p.deniedPurchase(receiptID, &domain.Denial{
				Reason:  domain.DenialItemUnavailable,
				Balance: wallet.Balance,
			}), nil
		}

		cfg, err := p.pricingRepo.GetConfig(ctx, item.VenueID)
		if err != nil {
			return nil, apperror.ErrDatabaseError(err)
		}
		if cfg == nil {
			return nil, apperror.ErrNotFound("venue pricing")
		}

		fees := p.calc.PurchaseFees(cfg, item, req.Quantity, req.Tip)
		if !wallet.CanAfford(fees.Total) {
			return p.deniedPurchase(receiptID, &domain.Denial{
				Reason:    domain.DenialInsufficientBalance,
				Shortfall: wallet.Shortfall(fees.Total),
				Balance:   wallet.Balance,
			}), nil
		}

		ok, err := p.walletRepo.ConditionalAdjust(ctx, wallet.ID, -fees.Total, wallet.Version)
		if err != nil {
			return nil, apperror.ErrDatabaseError(err)
		}
		if !ok {
			p.metrics.conflictRetries.Inc()
			continue
		}

		now := p.now()
		ledgerRow := &domain.LedgerEntry{
			ID:            uuid.New(),
			WalletID:      wallet.ID,
			Type:          domain.LedgerTypeSpend,
			Amount:        -fees.Total,
			BalanceBefore: wallet.Balance,
			BalanceAfter:  wallet.Balance - fees.Total,
			Counterpart:   domain.CounterpartVendor,
			CounterpartID: item.ID,
			GatewayID:     req.GatewayID,
			ReceiptID:     receiptID,
			Fees:          fees,
			Status:        domain.LedgerStatusCompleted,
			CreatedAt:     now,
		}
		record := &domain.PurchaseRecord{
			ID:        uuid.New(),
			WalletID:  wallet.ID,
			ItemID:    item.ID,
			VenueID:   item.VenueID,
			GatewayID: req.GatewayID,
			Quantity:  req.Quantity,
			Tip:       req.Tip,
			Fees:      fees,
			ReceiptID: receiptID,
			CreatedAt: now,
		}

		if err := p.logPurchase(ctx, ledgerRow, record); err != nil {
			p.scheduleRepair(RepairTask{Ledger: ledgerRow, Purchase: record}, err)
		}

		p.metrics.transactionsTotal.WithLabelValues("purchase", "approved").Inc()
		p.publish(domain.TransactionEvent{
			Type:       domain.EventPurchaseCompleted,
			WalletID:   wallet.ID,
			ReceiptID:  receiptID,
			Amount:     -fees.Total,
			NewBalance: ledgerRow.BalanceAfter,
			VenueID:    item.VenueID,
			GatewayID:  req.GatewayID,
			OccurredAt: now,
		})
		p.log.Info().
			Str("wallet_id", wallet.ID.String()).
			Str("item_id", item.ID).
			Str("receipt_id", receiptID.String()).
			Int64("charged", fees.Total).
			Int64("vendor_payout", fees.VendorPayout).
			Int64("new_balance", ledgerRow.BalanceAfter).
			Msg("purchase approved")

		return &ports.PurchaseResult{
			Status:     ports.ResultApproved,
			Fees:       fees,
			ReceiptID:  receiptID,
			NewBalance: ledgerRow.BalanceAfter,
		}, nil
	}

	p.metrics.transactionsTotal.WithLabelValues("purchase", "conflict").Inc()
	return nil, apperror.ErrConflict()
}

// FundWallet credits a wallet from an external funding source. The external
// source reference makes the operation idempotent: a duplicate delivery
// returns the original receipt without a second credit. The wallet is
// created on first use for an unseen device binding.
func (p *Processor) FundWallet(ctx context.Context, req ports.FundRequest) (*ports.FundResult, error) {
	if req.DeviceBinding == "" {
		return nil, apperror.ErrMissingField("device_binding")
	}
	if req.SourceRef == "" {
		return nil, apperror.ErrMissingField("source_ref")
	}
	if req.Amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	// Layer 1: cache lookup, best effort only. The unique constraint below
	// is the authoritative duplicate check.
	if p.fundingCache != nil {
		cached, err := p.fundingCache.Get(ctx, req.SourceRef)
		if err != nil {
			p.log.Warn().Err(err).Str("source_ref", req.SourceRef).Msg("funding cache check failed, falling through to ledger")
		}
		if cached != nil {
			var res ports.FundResult
			if err := json.Unmarshal(cached, &res); err == nil {
				res.Duplicate = true
				p.metrics.duplicateFundings.Inc()
				return &res, nil
			}
		}
	}

	wallet, err := p.resolveWallet(ctx, req.DeviceBinding)
	if err != nil {
		return nil, err
	}

	externalRef := req.SourceRef
	pending := &domain.LedgerEntry{
		ID:            uuid.New(),
		WalletID:      wallet.ID,
		Type:          domain.LedgerTypeFund,
		Amount:        req.Amount,
		Counterpart:   domain.CounterpartSource,
		CounterpartID: req.SourceRef,
		ReceiptID:     uuid.New(),
		ExternalRef:   &externalRef,
		Fees:          domain.FeeBreakdown{Total: req.Amount},
		Status:        domain.LedgerStatusPending,
		CreatedAt:     p.now(),
	}

	existing, err := p.ledgerRepo.ReserveFunding(ctx, pending)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	if existing != nil {
		if existing.Status != domain.LedgerStatusFailed {
			p.metrics.duplicateFundings.Inc()
			p.log.Info().
				Str("source_ref", req.SourceRef).
				Str("receipt_id", existing.ReceiptID.String()).
				Msg("duplicate funding reference, returning original receipt")
			return &ports.FundResult{
				WalletID:   existing.WalletID,
				NewBalance: existing.BalanceAfter,
				ReceiptID:  existing.ReceiptID,
				Duplicate:  true,
			}, nil
		}
		// A previous attempt reserved the reference but never credited;
		// take the row over and retry the credit. The failed->pending
		// transition is atomic, so concurrent retries of the same
		// reference elect exactly one creditor.
		took, err := p.ledgerRepo.MarkPending(ctx, existing.ID)
		if err != nil {
			return nil, apperror.ErrDatabaseError(err)
		}
		if !took {
			p.metrics.duplicateFundings.Inc()
			p.log.Info().
				Str("source_ref", req.SourceRef).
				Str("receipt_id", existing.ReceiptID.String()).
				Msg("funding retry lost the takeover, reference is in flight")
			return &ports.FundResult{
				WalletID:   existing.WalletID,
				NewBalance: existing.BalanceAfter,
				ReceiptID:  existing.ReceiptID,
				Duplicate:  true,
			}, nil
		}
		pending = existing
	}

	balanceBefore, balanceAfter, err := p.credit(ctx, wallet.ID, req.Amount)
	if err != nil {
		if marked, markErr := p.ledgerRepo.MarkFailed(ctx, pending.ID); markErr != nil {
			p.log.Error().Err(markErr).Str("ledger_id", pending.ID.String()).Msg("failed to mark funding row failed")
		} else if !marked {
			p.log.Warn().Str("ledger_id", pending.ID.String()).Msg("funding row no longer pending, leaving it alone")
		}
		p.metrics.transactionsTotal.WithLabelValues("fund", "conflict").Inc()
		return nil, err
	}

	if err := p.ledgerRepo.CompleteFunding(ctx, pending.ID, balanceBefore, balanceAfter); err != nil {
		p.scheduleRepair(RepairTask{
			CompleteFundingID: &pending.ID,
			BalanceBefore:     balanceBefore,
			BalanceAfter:      balanceAfter,
		}, err)
	}

	result := &ports.FundResult{
		WalletID:   wallet.ID,
		NewBalance: balanceAfter,
		ReceiptID:  pending.ReceiptID,
	}

	if p.fundingCache != nil {
		if payload, err := json.Marshal(result); err == nil {
			if err := p.fundingCache.Set(ctx, req.SourceRef, payload, p.fundingCacheTTL); err != nil {
				p.log.Warn().Err(err).Str("source_ref", req.SourceRef).Msg("failed to cache funding result")
			}
		}
	}

	p.metrics.transactionsTotal.WithLabelValues("fund", "approved").Inc()
	p.publish(domain.TransactionEvent{
		Type:       domain.EventWalletFunded,
		WalletID:   wallet.ID,
		ReceiptID:  pending.ReceiptID,
		Amount:     req.Amount,
		NewBalance: balanceAfter,
		OccurredAt: p.now(),
	})
	p.log.Info().
		Str("wallet_id", wallet.ID.String()).
		Str("source_ref", req.SourceRef).
		Int64("amount", req.Amount).
		Int64("new_balance", balanceAfter).
		Msg("wallet funded")

	return result, nil
}

// GetBalance returns the wallet's current balance.
func (p *Processor) GetBalance(ctx context.Context, walletID uuid.UUID) (int64, error) {
	wallet, err := p.walletRepo.GetByID(ctx, walletID)
	if err != nil {
		return 0, apperror.ErrDatabaseError(err)
	}
	if wallet == nil {
		return 0, apperror.ErrNotFound("wallet")
	}
	return wallet.Balance, nil
}

// --- internals ---

// readEntryState performs the PRICING stage's parallel reads: wallet
// balance+version, venue pricing, and prior-entry stats.
func (p *Processor) readEntryState(ctx context.Context, req ports.EntryRequest) (*domain.Wallet, *domain.PricingConfig, ports.EntryStats, error) {
	var (
		wallet *domain.Wallet
		cfg    *domain.PricingConfig
		stats  ports.EntryStats
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		w, err := p.walletRepo.GetByID(gctx, req.WalletID)
		if err != nil {
			return apperror.ErrDatabaseError(err)
		}
		if w == nil {
			return apperror.ErrNotFound("wallet")
		}
		wallet = w
		return nil
	})
	g.Go(func() error {
		c, err := p.pricingRepo.GetConfig(gctx, req.VenueID)
		if err != nil {
			return apperror.ErrDatabaseError(err)
		}
		if c == nil {
			return apperror.ErrNotFound("venue pricing")
		}
		cfg = c
		return nil
	})
	g.Go(func() error {
		s, err := p.entryRepo.Stats(gctx, req.WalletID, req.VenueID)
		if err != nil {
			return apperror.ErrDatabaseError(err)
		}
		stats = s
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, nil, ports.EntryStats{}, err
	}
	return wallet, cfg, stats, nil
}

// readPurchaseState reads the wallet and catalog item in parallel.
func (p *Processor) readPurchaseState(ctx context.Context, req ports.PurchaseRequest) (*domain.Wallet, *domain.VendorItem, error) {
	var (
		wallet *domain.Wallet
		item   *domain.VendorItem
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		w, err := p.walletRepo.GetByID(gctx, req.WalletID)
		if err != nil {
			return apperror.ErrDatabaseError(err)
		}
		if w == nil {
			return apperror.ErrNotFound("wallet")
		}
		wallet = w
		return nil
	})
	g.Go(func() error {
		i, err := p.pricingRepo.GetItem(gctx, req.ItemID)
		if err != nil {
			return apperror.ErrDatabaseError(err)
		}
		if i == nil {
			return apperror.ErrNotFound("item")
		}
		item = i
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return wallet, item, nil
}

// logEntry writes the ledger row and entry record in one database
// transaction. It re-reads the prior-entry count inside that transaction:
// if another scan committed in the window between pricing and here, the
// sequence this attempt was priced for is stale and errEntryRace is
// returned so the caller can compensate and reprice.
func (p *Processor) logEntry(ctx context.Context, pricedCount int, row *domain.LedgerEntry, record *domain.EntryRecord) error {
	tx, err := p.transactor.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin logging tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	stats, err := p.entryRepo.StatsTx(ctx, tx, record.WalletID, record.VenueID)
	if err != nil {
		return fmt.Errorf("recount entries: %w", err)
	}
	if stats.Count != pricedCount {
		return errEntryRace
	}

	if err := p.ledgerRepo.Append(ctx, tx, row); err != nil {
		return fmt.Errorf("append ledger row: %w", err)
	}
	if err := p.entryRepo.Create(ctx, tx, record); err != nil {
		// Under READ COMMITTED a competing scan can commit this sequence
		// after our recount but before our insert. The unique constraint
		// on (wallet, venue, sequence) is the backstop: treat it as the
		// same race, not a logging failure.
		if isUniqueViolation(err) {
			return errEntryRace
		}
		return fmt.Errorf("create entry record: %w", err)
	}
	if err := p.walletRepo.IncrementEntryCount(ctx, tx, record.WalletID); err != nil {
		return fmt.Errorf("increment entry count: %w", err)
	}
	return tx.Commit(ctx)
}

// logPurchase writes the ledger row and purchase record in one database
// transaction. Purchases carry no sequence, so no recount is needed.
func (p *Processor) logPurchase(ctx context.Context, row *domain.LedgerEntry, record *domain.PurchaseRecord) error {
	tx, err := p.transactor.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin logging tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := p.ledgerRepo.Append(ctx, tx, row); err != nil {
		return fmt.Errorf("append ledger row: %w", err)
	}
	if err := p.purchaseRepo.Create(ctx, tx, record); err != nil {
		return fmt.Errorf("create purchase record: %w", err)
	}
	return tx.Commit(ctx)
}

// credit applies a positive adjustment with the standard conflict-retry
// loop, returning the observed before/after balances.
func (p *Processor) credit(ctx context.Context, walletID uuid.UUID, amount int64) (int64, int64, error) {
	for attempt := 0; attempt <= p.maxConflictRetries; attempt++ {
		w, err := p.walletRepo.GetByID(ctx, walletID)
		if err != nil {
			return 0, 0, apperror.ErrDatabaseError(err)
		}
		if w == nil {
			return 0, 0, apperror.ErrNotFound("wallet")
		}
		ok, err := p.walletRepo.ConditionalAdjust(ctx, walletID, amount, w.Version)
		if err != nil {
			return 0, 0, apperror.ErrDatabaseError(err)
		}
		if ok {
			return w.Balance, w.Balance + amount, nil
		}
		p.metrics.conflictRetries.Inc()
	}
	return 0, 0, apperror.ErrConflict()
}

// compensate restores an amount debited by an attempt that could not be
// logged consistently. A compensation that itself exhausts its retries is
// handed to the repair worker; the balance must not stay short.
func (p *Processor) compensate(ctx context.Context, walletID uuid.UUID, amount int64) {
	if _, _, err := p.credit(ctx, walletID, amount); err != nil {
		p.log.Error().Err(err).
			Str("wallet_id", walletID.String()).
			Int64("amount", amount).
			Msg("compensating credit failed, scheduling repair")
		p.scheduleRepair(RepairTask{CreditWalletID: &walletID, CreditAmount: amount}, err)
	}
}

func (p *Processor) scheduleRepair(task RepairTask, cause error) {
	p.metrics.repairEnqueued.Inc()
	p.log.Error().Err(cause).Msg("in-band ledger write failed, queuing repair")
	if p.repairs != nil {
		p.repairs.Schedule(task)
	}
}

func (p *Processor) publish(event domain.TransactionEvent) {
	if p.events != nil {
		p.events.Publish(event)
	}
}

// resolveWallet finds the wallet for a device binding, creating it on first
// use. A concurrent create for the same binding loses to the unique
// constraint, in which case the winner's row is fetched and used.
func (p *Processor) resolveWallet(ctx context.Context, binding string) (*domain.Wallet, error) {
	wallet, err := p.walletRepo.GetByDeviceBinding(ctx, binding)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	if wallet != nil {
		return wallet, nil
	}

	fresh := domain.NewWallet(binding)
	if err := p.walletRepo.Create(ctx, fresh); err != nil {
		if again, gerr := p.walletRepo.GetByDeviceBinding(ctx, binding); gerr == nil && again != nil {
			return again, nil
		}
		return nil, apperror.ErrDatabaseError(err)
	}
	p.log.Info().
		Str("wallet_id", fresh.ID.String()).
		Msg("wallet created for new device binding")
	return fresh, nil
}

func (p *Processor) deniedEntry(receiptID uuid.UUID, denial *domain.Denial) *ports.EntryResult {
	p.metrics.transactionsTotal.WithLabelValues("entry", "denied").Inc()
	p.metrics.denialsTotal.WithLabelValues(string(denial.Reason)).Inc()
	p.log.Info().
		Str("receipt_id", receiptID.String()).
		Str("reason", string(denial.Reason)).
		Int64("shortfall", denial.Shortfall).
		Msg("entry denied")
	return &ports.EntryResult{
		Status:     ports.ResultDenied,
		Denial:     denial,
		ReceiptID:  receiptID,
		NewBalance: denial.Balance,
	}
}

func (p *Processor) deniedPurchase(receiptID uuid.UUID, denial *domain.Denial) *ports.PurchaseResult {
	p.metrics.transactionsTotal.WithLabelValues("purchase", "denied").Inc()
	p.metrics.denialsTotal.WithLabelValues(string(denial.Reason)).Inc()
	p.log.Info().
		Str("receipt_id", receiptID.String()).
		Str("reason", string(denial.Reason)).
		Int64("shortfall", denial.Shortfall).
		Msg("purchase denied")
	return &ports.PurchaseResult{
		Status:     ports.ResultDenied,
		Denial:     denial,
		ReceiptID:  receiptID,
		NewBalance: denial.Balance,
	}
}

func ledgerTypeForEntry(kind domain.EntryKind) domain.LedgerType {
	if kind == domain.EntryKindInitial {
		return domain.LedgerTypeEntryFee
	}
	return domain.LedgerTypeReentryFee
}
