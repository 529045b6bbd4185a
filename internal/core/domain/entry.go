package domain

import (
	"time"

	"github.com/google/uuid"
)

// EntryKind classifies a venue entry.
type EntryKind string

const (
	EntryKindInitial EntryKind = "initial"
	EntryKindReentry EntryKind = "re_entry"
)

// EntryRecord is one successful entry of a wallet into a venue. Sequence is
// 1 for the initial entry and N for the Nth re-entry of that wallet+venue
// pair; the (wallet_id, venue_id, sequence) triple is unique, which is the
// storage-level backstop for sequence contiguity under concurrent scans.
// Records are immutable once written.
type EntryRecord struct {
	ID        uuid.UUID    `json:"id"`
	WalletID  uuid.UUID    `json:"wallet_id"`
	VenueID   string       `json:"venue_id"`
	GatewayID string       `json:"gateway_id"`
	Method    string       `json:"method"` // qr, manual, nfc
	Sequence  int          `json:"sequence"`
	Kind      EntryKind    `json:"kind"`
	Fees      FeeBreakdown `json:"fees"`
	ReceiptID uuid.UUID    `json:"receipt_id"`
	CreatedAt time.Time    `json:"created_at"`
}

// KindForSequence derives the entry classification from a sequence number.
func KindForSequence(seq int) EntryKind {
	if seq <= 1 {
		return EntryKindInitial
	}
	return EntryKindReentry
}

// PurchaseRecord is one successful point-of-sale purchase against a wallet.
type PurchaseRecord struct {
	ID        uuid.UUID    `json:"id"`
	WalletID  uuid.UUID    `json:"wallet_id"`
	ItemID    string       `json:"item_id"`
	VenueID   string       `json:"venue_id"`
	GatewayID string       `json:"gateway_id"`
	Quantity  int          `json:"quantity"`
	Tip       int64        `json:"tip"`
	Fees      FeeBreakdown `json:"fees"`
	ReceiptID uuid.UUID    `json:"receipt_id"`
	CreatedAt time.Time    `json:"created_at"`
}
