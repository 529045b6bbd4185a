package domain

import (
	"time"

	"github.com/google/uuid"
)

// Transaction event types published to the notification sink.
const (
	EventEntryCompleted    = "ENTRY_COMPLETED"
	EventPurchaseCompleted = "PURCHASE_COMPLETED"
	EventWalletFunded      = "WALLET_FUNDED"
)

// TransactionEvent is the fire-and-forget payload emitted after a completed
// transaction. Delivery failures never affect the financial outcome.
type TransactionEvent struct {
	Type       string    `json:"type"`
	WalletID   uuid.UUID `json:"wallet_id"`
	ReceiptID  uuid.UUID `json:"receipt_id"`
	Amount     int64     `json:"amount"` // signed, as on the ledger row
	NewBalance int64     `json:"new_balance"`
	VenueID    string    `json:"venue_id,omitempty"`
	GatewayID  string    `json:"gateway_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
