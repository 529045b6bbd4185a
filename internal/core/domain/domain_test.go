package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWallet_CanAfford(t *testing.T) {
	tests := []struct {
		name    string
		balance int64
		amount  int64
		want    bool
	}{
		{"exact balance", 2500, 2500, true},
		{"surplus", 5000, 2500, true},
		{"short", 500, 2500, false},
		{"zero charge", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &Wallet{Balance: tt.balance}
			assert.Equal(t, tt.want, w.CanAfford(tt.amount))
		})
	}
}

func TestWallet_Shortfall(t *testing.T) {
	w := &Wallet{Balance: 500}
	assert.Equal(t, int64(2000), w.Shortfall(2500))
	assert.Equal(t, int64(0), w.Shortfall(500))
	assert.Equal(t, int64(0), w.Shortfall(100))
}

func TestNewWallet(t *testing.T) {
	w := NewWallet("device-abc")
	assert.Equal(t, "device-abc", w.DeviceBinding)
	assert.Zero(t, w.Balance)
	assert.Zero(t, w.Version)
	assert.Zero(t, w.EntryCount)
	assert.NotEqual(t, w.ID.String(), "00000000-0000-0000-0000-000000000000")
}

func TestLedgerEntry_Balanced(t *testing.T) {
	tests := []struct {
		name   string
		before int64
		amount int64
		after  int64
		want   bool
	}{
		{"credit", 0, 5000, 5000, true},
		{"debit", 5000, -2500, 2500, true},
		{"corrupt", 5000, -2500, 3000, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &LedgerEntry{BalanceBefore: tt.before, Amount: tt.amount, BalanceAfter: tt.after}
			assert.Equal(t, tt.want, e.Balanced())
		})
	}
}

func TestKindForSequence(t *testing.T) {
	assert.Equal(t, EntryKindInitial, KindForSequence(1))
	assert.Equal(t, EntryKindReentry, KindForSequence(2))
	assert.Equal(t, EntryKindReentry, KindForSequence(7))
}
