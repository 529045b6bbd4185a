package ports

import (
	"context"

	"venue-wallet-engine/internal/core/domain"

	"github.com/google/uuid"
)

// ResultStatus is the outcome of a processed operation.
type ResultStatus string

const (
	ResultApproved ResultStatus = "APPROVED"
	ResultDenied   ResultStatus = "DENIED"
)

// NotificationDispatcher delivers completed-transaction events to the
// external notification sink. Implementations may block; the engine only
// calls this from the outbound event worker, never from the request path.
type NotificationDispatcher interface {
	Send(ctx context.Context, event domain.TransactionEvent) error
}

// EventPublisher is the non-blocking side the processor sees: events are
// enqueued fire-and-forget and a full queue drops rather than stalls.
type EventPublisher interface {
	Publish(event domain.TransactionEvent)
}

// --- Transaction processor (core engine surface) ---

// EntryRequest is a validated entry-scan request.
type EntryRequest struct {
	WalletID  uuid.UUID
	VenueID   string
	GatewayID string
	Method    string // qr, manual, nfc
}

// EntryResult is the outcome of an entry scan. Denial is set iff Status is
// DENIED; the remaining fields are populated on approval.
type EntryResult struct {
	Status     ResultStatus        `json:"status"`
	Denial     *domain.Denial      `json:"denial,omitempty"`
	Kind       domain.EntryKind    `json:"entry_type,omitempty"`
	Sequence   int                 `json:"sequence_number,omitempty"`
	Fees       domain.FeeBreakdown `json:"fee_breakdown"`
	ReceiptID  uuid.UUID           `json:"receipt_id"`
	NewBalance int64               `json:"new_balance"`
}

// PurchaseRequest is a validated point-of-sale purchase request.
type PurchaseRequest struct {
	WalletID  uuid.UUID
	ItemID    string
	GatewayID string
	Quantity  int
	Tip       int64
}

// PurchaseResult is the outcome of a purchase.
type PurchaseResult struct {
	Status     ResultStatus        `json:"status"`
	Denial     *domain.Denial      `json:"denial,omitempty"`
	Fees       domain.FeeBreakdown `json:"fee_breakdown"`
	ReceiptID  uuid.UUID           `json:"receipt_id"`
	NewBalance int64               `json:"new_balance"`
}

// FundRequest credits a wallet from an external source. SourceRef is the
// upstream reference that makes the operation idempotent; the wallet is
// created on first use for an unseen device binding.
type FundRequest struct {
	DeviceBinding string
	Amount        int64
	SourceRef     string
}

// FundResult is the outcome of a funding request. Duplicate is true when the
// source reference had already been applied and the original result is
// returned unchanged.
type FundResult struct {
	WalletID   uuid.UUID `json:"wallet_id"`
	NewBalance int64     `json:"new_balance"`
	ReceiptID  uuid.UUID `json:"receipt_id"`
	Duplicate  bool      `json:"duplicate,omitempty"`
}

// TransactionProcessor is the core engine: it validates a request, prices
// it, mutates the wallet balance exactly once, and records the ledger.
type TransactionProcessor interface {
	ProcessEntry(ctx context.Context, req EntryRequest) (*EntryResult, error)
	ProcessPurchase(ctx context.Context, req PurchaseRequest) (*PurchaseResult, error)
	FundWallet(ctx context.Context, req FundRequest) (*FundResult, error)
	GetBalance(ctx context.Context, walletID uuid.UUID) (int64, error)
}
