package domain

import (
	"time"

	"github.com/google/uuid"
)

// LedgerType classifies a balance-affecting event.
type LedgerType string

const (
	LedgerTypeFund       LedgerType = "FUND"
	LedgerTypeSpend      LedgerType = "SPEND"
	LedgerTypeEntryFee   LedgerType = "ENTRY_FEE"
	LedgerTypeReentryFee LedgerType = "REENTRY_FEE"
)

// LedgerStatus is the lifecycle state of a ledger entry. Entries are
// append-only; the only permitted transition is PENDING -> COMPLETED (or
// PENDING -> FAILED), used by the funding reservation protocol.
type LedgerStatus string

const (
	LedgerStatusCompleted LedgerStatus = "completed"
	LedgerStatusFailed    LedgerStatus = "failed"
	LedgerStatusPending   LedgerStatus = "pending"
)

// CounterpartType identifies what the wallet transacted against.
type CounterpartType string

const (
	CounterpartVenue  CounterpartType = "venue"
	CounterpartVendor CounterpartType = "vendor"
	CounterpartSource CounterpartType = "source" // external funding source
)

// LedgerEntry is an immutable record of one balance-affecting event. The
// before/after balances make every row independently auditable without
// replaying history. ReceiptID is unique per logical operation; ExternalRef
// is the unique upstream reference used for idempotent funding.
type LedgerEntry struct {
	ID            uuid.UUID       `json:"id"`
	WalletID      uuid.UUID       `json:"wallet_id"`
	Type          LedgerType      `json:"type"`
	Amount        int64           `json:"amount"` // signed: credits positive, debits negative
	BalanceBefore int64           `json:"balance_before"`
	BalanceAfter  int64           `json:"balance_after"`
	Counterpart   CounterpartType `json:"counterpart_type"`
	CounterpartID string          `json:"counterpart_id"`
	GatewayID     string          `json:"gateway_id,omitempty"`
	ReceiptID     uuid.UUID       `json:"receipt_id"`
	ExternalRef   *string         `json:"external_ref,omitempty"`
	Fees          FeeBreakdown    `json:"fees"`
	Status        LedgerStatus    `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Balanced reports whether the row's arithmetic is internally consistent.
func (e *LedgerEntry) Balanced() bool {
	return e.BalanceAfter == e.BalanceBefore+e.Amount
}
