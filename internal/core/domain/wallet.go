package domain

import (
	"time"

	"github.com/google/uuid"
)

// Wallet is an anonymous prepaid wallet bound to a single physical device.
// Balance is held in integer minor currency units and must never go negative.
// Version is a monotonic counter used as the optimistic-concurrency token:
// every balance mutation bumps it, so a stale writer loses even when the
// balance itself has returned to a previously seen value.
type Wallet struct {
	ID            uuid.UUID `json:"id"`
	DeviceBinding string    `json:"device_binding"`
	Balance       int64     `json:"balance"` // minor units, >= 0
	Version       int64     `json:"version"`
	EntryCount    int64     `json:"entry_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// CanAfford reports whether the wallet covers a charge of the given amount.
func (w *Wallet) CanAfford(amount int64) bool {
	return w.Balance >= amount
}

// Shortfall returns how many minor units the wallet is missing for a charge,
// or zero if the balance covers it.
func (w *Wallet) Shortfall(amount int64) int64 {
	if w.Balance >= amount {
		return 0
	}
	return amount - w.Balance
}

// NewWallet creates an empty wallet for a previously unseen device binding.
func NewWallet(deviceBinding string) *Wallet {
	now := time.Now().UTC()
	return &Wallet{
		ID:            uuid.New(),
		DeviceBinding: deviceBinding,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}
