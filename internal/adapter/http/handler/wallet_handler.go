package handler

import (
	"strconv"
	"time"

	"venue-wallet-engine/internal/adapter/http/dto"
	"venue-wallet-engine/internal/core/ports"
	"venue-wallet-engine/pkg/apperror"
	"venue-wallet-engine/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const defaultLedgerPageSize = 50

// WalletHandler handles wallet funding and lookup endpoints.
type WalletHandler struct {
	processor  ports.TransactionProcessor
	ledgerRepo ports.LedgerRepository
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(processor ports.TransactionProcessor, ledgerRepo ports.LedgerRepository) *WalletHandler {
	return &WalletHandler{processor: processor, ledgerRepo: ledgerRepo}
}

// Fund handles POST /api/v1/wallets/fund.
func (h *WalletHandler) Fund(c *gin.Context) {
	var req dto.FundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	result, err := h.processor.FundWallet(c.Request.Context(), ports.FundRequest{
		DeviceBinding: req.DeviceBinding,
		Amount:        req.Amount,
		SourceRef:     req.SourceRef,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	resp := dto.FundResponse{
		WalletID:   result.WalletID.String(),
		NewBalance: result.NewBalance,
		ReceiptID:  result.ReceiptID.String(),
		Duplicate:  result.Duplicate,
	}
	if result.Duplicate {
		response.OK(c, resp)
		return
	}
	response.Created(c, resp)
}

// GetBalance handles GET /api/v1/wallets/:id/balance.
func (h *WalletHandler) GetBalance(c *gin.Context) {
	walletID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("id must be a UUID"))
		return
	}

	balance, err := h.processor.GetBalance(c.Request.Context(), walletID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.BalanceResponse{
		WalletID: walletID.String(),
		Balance:  balance,
	})
}

// GetLedger handles GET /api/v1/wallets/:id/ledger.
func (h *WalletHandler) GetLedger(c *gin.Context) {
	walletID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("id must be a UUID"))
		return
	}

	limit := defaultLedgerPageSize
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			response.Error(c, apperror.Validation("limit must be between 1 and 500"))
			return
		}
		limit = n
	}

	entries, err := h.ledgerRepo.ListByWallet(c.Request.Context(), walletID, limit)
	if err != nil {
		response.Error(c, apperror.ErrDatabaseError(err))
		return
	}

	items := make([]dto.LedgerEntryResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, dto.LedgerEntryResponse{
			Type:          string(e.Type),
			Amount:        e.Amount,
			BalanceAfter:  e.BalanceAfter,
			Counterpart:   string(e.Counterpart),
			CounterpartID: e.CounterpartID,
			ReceiptID:     e.ReceiptID.String(),
			Fees:          e.Fees,
			CreatedAt:     e.CreatedAt.Format(time.RFC3339),
		})
	}
	response.OK(c, items)
}
