package dto

import "venue-wallet-engine/internal/core/domain"

// EntryScanRequest is the request body for an entry or re-entry scan.
type EntryScanRequest struct {
	WalletID  string `json:"wallet_id" binding:"required,uuid"`
	VenueID   string `json:"venue_id" binding:"required,safe_id,max=64"`
	GatewayID string `json:"gateway_id" binding:"required,safe_id,max=64"`
	Method    string `json:"method" binding:"omitempty,oneof=qr nfc manual"`
}

// PurchaseRequest is the request body for a point-of-sale purchase.
type PurchaseRequest struct {
	WalletID  string `json:"wallet_id" binding:"required,uuid"`
	ItemID    string `json:"item_id" binding:"required,safe_id,max=64"`
	GatewayID string `json:"gateway_id" binding:"required,safe_id,max=64"`
	Quantity  int    `json:"quantity" binding:"required,gte=1,lte=100"`
	Tip       int64  `json:"tip" binding:"omitempty,gte=0"`
}

// FundRequest is the request body for a wallet top-up.
type FundRequest struct {
	DeviceBinding string `json:"device_binding" binding:"required,max=128"`
	Amount        int64  `json:"amount" binding:"required,gt=0"`
	SourceRef     string `json:"source_ref" binding:"required,max=100"`
}

// DenialResponse carries the machine-readable reason for a DENIED result.
type DenialResponse struct {
	Reason    string `json:"reason"`
	Shortfall int64  `json:"shortfall,omitempty"`
	Balance   int64  `json:"balance"`
}

// EntryResponse is the response body for an entry scan.
type EntryResponse struct {
	Status     string              `json:"status"`
	EntryType  string              `json:"entry_type,omitempty"`
	Sequence   int                 `json:"sequence_number,omitempty"`
	Fees       domain.FeeBreakdown `json:"fee_breakdown"`
	ReceiptID  string              `json:"receipt_id"`
	NewBalance int64               `json:"new_balance"`
	Denial     *DenialResponse     `json:"denial,omitempty"`
}

// PurchaseResponse is the response body for a purchase.
type PurchaseResponse struct {
	Status     string              `json:"status"`
	Fees       domain.FeeBreakdown `json:"fee_breakdown"`
	ReceiptID  string              `json:"receipt_id"`
	NewBalance int64               `json:"new_balance"`
	Denial     *DenialResponse     `json:"denial,omitempty"`
}

// FundResponse is the response body for a wallet top-up.
type FundResponse struct {
	WalletID   string `json:"wallet_id"`
	NewBalance int64  `json:"new_balance"`
	ReceiptID  string `json:"receipt_id"`
	Duplicate  bool   `json:"duplicate,omitempty"`
}

// BalanceResponse is the response for a balance query.
type BalanceResponse struct {
	WalletID string `json:"wallet_id"`
	Balance  int64  `json:"balance"`
}

// LedgerEntryResponse is one row of a wallet's transaction history.
type LedgerEntryResponse struct {
	Type          string              `json:"type"`
	Amount        int64               `json:"amount"`
	BalanceAfter  int64               `json:"balance_after"`
	Counterpart   string              `json:"counterpart_type"`
	CounterpartID string              `json:"counterpart_id"`
	ReceiptID     string              `json:"receipt_id"`
	Fees          domain.FeeBreakdown `json:"fee_breakdown"`
	CreatedAt     string              `json:"created_at"`
}
