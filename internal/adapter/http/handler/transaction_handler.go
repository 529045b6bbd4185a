package handler

import (
	"venue-wallet-engine/internal/adapter/http/dto"
	"venue-wallet-engine/internal/core/domain"
	"venue-wallet-engine/internal/core/ports"
	"venue-wallet-engine/pkg/apperror"
	"venue-wallet-engine/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TransactionHandler handles the gateway-facing transaction endpoints.
type TransactionHandler struct {
	processor ports.TransactionProcessor
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(processor ports.TransactionProcessor) *TransactionHandler {
	return &TransactionHandler{processor: processor}
}

// ProcessEntry handles POST /api/v1/entries.
func (h *TransactionHandler) ProcessEntry(c *gin.Context) {
	var req dto.EntryScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	walletID, err := uuid.Parse(req.WalletID)
	if err != nil {
		response.Error(c, apperror.Validation("wallet_id must be a UUID"))
		return
	}
	if req.Method == "" {
		req.Method = "qr"
	}

	result, err := h.processor.ProcessEntry(c.Request.Context(), ports.EntryRequest{
		WalletID:  walletID,
		VenueID:   req.VenueID,
		GatewayID: req.GatewayID,
		Method:    req.Method,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	resp := dto.EntryResponse{
		Status:     string(result.Status),
		EntryType:  string(result.Kind),
		Sequence:   result.Sequence,
		Fees:       result.Fees,
		ReceiptID:  result.ReceiptID.String(),
		NewBalance: result.NewBalance,
		Denial:     toDenialResponse(result.Denial),
	}
	if result.Status == ports.ResultDenied {
		response.OK(c, resp)
		return
	}
	response.Created(c, resp)
}

// ProcessPurchase handles POST /api/v1/purchases.
func (h *TransactionHandler) ProcessPurchase(c *gin.Context) {
	var req dto.PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	walletID, err := uuid.Parse(req.WalletID)
	if err != nil {
		response.Error(c, apperror.Validation("wallet_id must be a UUID"))
		return
	}

	result, err := h.processor.ProcessPurchase(c.Request.Context(), ports.PurchaseRequest{
		WalletID:  walletID,
		ItemID:    req.ItemID,
		GatewayID: req.GatewayID,
		Quantity:  req.Quantity,
		Tip:       req.Tip,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	resp := dto.PurchaseResponse{
		Status:     string(result.Status),
		Fees:       result.Fees,
		ReceiptID:  result.ReceiptID.String(),
		NewBalance: result.NewBalance,
		Denial:     toDenialResponse(result.Denial),
	}
	if result.Status == ports.ResultDenied {
		response.OK(c, resp)
		return
	}
	response.Created(c, resp)
}

func toDenialResponse(d *domain.Denial) *dto.DenialResponse {
	if d == nil {
		return nil
	}
	return &dto.DenialResponse{
		Reason:    string(d.Reason),
		Shortfall: d.Shortfall,
		Balance:   d.Balance,
	}
}
