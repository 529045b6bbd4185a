package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"venue-wallet-engine/internal/core/domain"
	"venue-wallet-engine/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const defaultRepairQueueSize = 64

// RepairTask is one out-of-band fix for a wallet whose balance mutation
// succeeded but whose in-band bookkeeping did not. Exactly one of the task
// shapes is populated:
//   - Ledger (+ Entry or Purchase): backfill the ledger row and its record
//   - CompleteFundingID: promote a pending funding row with known balances
//   - CreditWalletID: re-apply a compensating credit that could not land
type RepairTask struct {
	Ledger   *domain.LedgerEntry
	Entry    *domain.EntryRecord
	Purchase *domain.PurchaseRecord

	CompleteFundingID *uuid.UUID
	BalanceBefore     int64
	BalanceAfter      int64

	CreditWalletID *uuid.UUID
	CreditAmount   int64
}

// RepairScheduler accepts repair tasks from the processor.
type RepairScheduler interface {
	Schedule(task RepairTask)
}

// RepairWorker consumes repair tasks and retries them with backoff. The
// balance is authoritative, so a missing ledger row is a reporting gap, not
// a financial one; the worker's job is to close that gap.
type RepairWorker struct {
	walletRepo   ports.WalletRepository
	ledgerRepo   ports.LedgerRepository
	entryRepo    ports.EntryRepository
	purchaseRepo ports.PurchaseRepository
	ch           chan RepairTask
	backoffs     []time.Duration
	metrics      *Metrics
	log          zerolog.Logger
	wg           sync.WaitGroup
}

// NewRepairWorker creates a RepairWorker with the given queue size (0 =
// default).
func NewRepairWorker(
	walletRepo ports.WalletRepository,
	ledgerRepo ports.LedgerRepository,
	entryRepo ports.EntryRepository,
	purchaseRepo ports.PurchaseRepository,
	size int,
	metrics *Metrics,
	log zerolog.Logger,
) *RepairWorker {
	if size <= 0 {
		size = defaultRepairQueueSize
	}
	return &RepairWorker{
		walletRepo:   walletRepo,
		ledgerRepo:   ledgerRepo,
		entryRepo:    entryRepo,
		purchaseRepo: purchaseRepo,
		ch:           make(chan RepairTask, size),
		backoffs:     []time.Duration{time.Second, 5 * time.Second, 15 * time.Second},
		metrics:      metrics,
		log:          log,
	}
}

// Schedule implements RepairScheduler. A full queue drops the task with an
// error log; the reconciliation sweep (external) remains the final backstop.
func (w *RepairWorker) Schedule(task RepairTask) {
	select {
	case w.ch <- task:
	default:
		w.metrics.repairFailed.Inc()
		w.log.Error().Msg("repair queue full, dropping task")
	}
}

// Start launches the consumer worker.
func (w *RepairWorker) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case task, ok := <-w.ch:
				if !ok {
					return
				}
				w.run(ctx, task)
			}
		}
	}()
}

// Close stops accepting tasks and waits for the worker.
func (w *RepairWorker) Close() {
	close(w.ch)
	w.wg.Wait()
}

func (w *RepairWorker) run(ctx context.Context, task RepairTask) {
	var lastErr error
	for i, backoff := range w.backoffs {
		if i > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
		}
		if lastErr = w.attempt(ctx, task); lastErr == nil {
			w.log.Info().Msg("repair task completed")
			return
		}
		w.log.Warn().Err(lastErr).Int("attempt", i+1).Msg("repair attempt failed")
	}
	w.metrics.repairFailed.Inc()
	w.log.Error().Err(lastErr).Msg("repair task exhausted retries")
}

func (w *RepairWorker) attempt(ctx context.Context, task RepairTask) error {
	switch {
	case task.CompleteFundingID != nil:
		return w.ledgerRepo.CompleteFunding(ctx, *task.CompleteFundingID, task.BalanceBefore, task.BalanceAfter)

	case task.CreditWalletID != nil:
		return w.applyCredit(ctx, *task.CreditWalletID, task.CreditAmount)

	case task.Ledger != nil:
		if err := w.ledgerRepo.AppendStandalone(ctx, task.Ledger); err != nil {
			return err
		}
		if task.Entry != nil {
			return w.entryRepo.CreateStandalone(ctx, task.Entry)
		}
		if task.Purchase != nil {
			return w.purchaseRepo.CreateStandalone(ctx, task.Purchase)
		}
		return nil
	}
	return nil
}

func (w *RepairWorker) applyCredit(ctx context.Context, walletID uuid.UUID, amount int64) error {
	wallet, err := w.walletRepo.GetByID(ctx, walletID)
	if err != nil {
		return err
	}
	if wallet == nil {
		return fmt.Errorf("wallet not found: %s", walletID)
	}
	ok, err := w.walletRepo.ConditionalAdjust(ctx, walletID, amount, wallet.Version)
	if err != nil {
		return err
	}
	if !ok {
		return errRepairConflict
	}
	return nil
}

var errRepairConflict = &repairConflictError{}

type repairConflictError struct{}

func (*repairConflictError) Error() string { return "wallet version moved during repair credit" }
