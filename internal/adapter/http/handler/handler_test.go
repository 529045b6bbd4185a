package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"venue-wallet-engine/internal/core/domain"
	"venue-wallet-engine/internal/core/ports"
	"venue-wallet-engine/internal/core/ports/mocks"
	"venue-wallet-engine/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type handlerTestDeps struct {
	processor  *mocks.MockTransactionProcessor
	ledgerRepo *mocks.MockLedgerRepository
	router     *gin.Engine
}

func setupTestRouter(t *testing.T, checkers ...ports.HealthChecker) *handlerTestDeps {
	t.Helper()
	ctrl := gomock.NewController(t)

	d := &handlerTestDeps{
		processor:  mocks.NewMockTransactionProcessor(ctrl),
		ledgerRepo: mocks.NewMockLedgerRepository(ctrl),
	}
	d.router = SetupRouter(RouterDeps{
		Processor:      d.processor,
		LedgerRepo:     d.ledgerRepo,
		HealthCheckers: checkers,
		Logger:         zerolog.Nop(),
	})
	return d
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Data      json.RawMessage `json:"data"`
	ErrorCode string          `json:"error_code"`
	Message   string          `json:"message"`
	Retryable bool            `json:"retryable"`
	RequestID string          `json:"request_id"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

// --- Entry scans ---

func TestProcessEntry_Approved(t *testing.T) {
	d := setupTestRouter(t)
	walletID := uuid.New()
	receiptID := uuid.New()

	d.processor.EXPECT().
		ProcessEntry(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req ports.EntryRequest) (*ports.EntryResult, error) {
			assert.Equal(t, walletID, req.WalletID)
			assert.Equal(t, "venue-1", req.VenueID)
			assert.Equal(t, "gate-7", req.GatewayID)
			assert.Equal(t, "qr", req.Method) // defaulted when omitted
			return &ports.EntryResult{
				Status:     ports.ResultApproved,
				Kind:       domain.EntryKindInitial,
				Sequence:   1,
				Fees:       domain.FeeBreakdown{InitialFee: 2500, Total: 2500},
				ReceiptID:  receiptID,
				NewBalance: 7500,
			}, nil
		})

	w := doJSON(t, d.router, http.MethodPost, "/api/v1/entries", gin.H{
		"wallet_id":  walletID.String(),
		"venue_id":   "venue-1",
		"gateway_id": "gate-7",
	})

	require.Equal(t, http.StatusCreated, w.Code)
	env := decodeEnvelope(t, w)
	assert.NotEmpty(t, env.RequestID)

	var resp struct {
		Status     string `json:"status"`
		EntryType  string `json:"entry_type"`
		Sequence   int    `json:"sequence_number"`
		ReceiptID  string `json:"receipt_id"`
		NewBalance int64  `json:"new_balance"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, "APPROVED", resp.Status)
	assert.Equal(t, "initial", resp.EntryType)
	assert.Equal(t, 1, resp.Sequence)
	assert.Equal(t, receiptID.String(), resp.ReceiptID)
	assert.Equal(t, int64(7500), resp.NewBalance)
}

func TestProcessEntry_DeniedReturns200(t *testing.T) {
	d := setupTestRouter(t)
	walletID := uuid.New()

	d.processor.EXPECT().
		ProcessEntry(gomock.Any(), gomock.Any()).
		Return(&ports.EntryResult{
			Status: ports.ResultDenied,
			Denial: &domain.Denial{
				Reason:    domain.DenialInsufficientBalance,
				Shortfall: 500,
				Balance:   2000,
			},
		}, nil)

	w := doJSON(t, d.router, http.MethodPost, "/api/v1/entries", gin.H{
		"wallet_id":  walletID.String(),
		"venue_id":   "venue-1",
		"gateway_id": "gate-7",
		"method":     "nfc",
	})

	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)

	var resp struct {
		Status string `json:"status"`
		Denial struct {
			Reason    string `json:"reason"`
			Shortfall int64  `json:"shortfall"`
			Balance   int64  `json:"balance"`
		} `json:"denial"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, "DENIED", resp.Status)
	assert.Equal(t, "insufficient_balance", resp.Denial.Reason)
	assert.Equal(t, int64(500), resp.Denial.Shortfall)
	assert.Equal(t, int64(2000), resp.Denial.Balance)
}

func TestProcessEntry_MissingFieldRejected(t *testing.T) {
	d := setupTestRouter(t)
	// Processor must not be reached for a malformed request.

	w := doJSON(t, d.router, http.MethodPost, "/api/v1/entries", gin.H{
		"wallet_id": uuid.New().String(),
		// venue_id and gateway_id missing
	})

	require.Equal(t, http.StatusBadRequest, w.Code)
	env := decodeEnvelope(t, w)
	assert.Equal(t, "VAL_000", env.ErrorCode)
}

func TestProcessEntry_BadWalletIDRejected(t *testing.T) {
	d := setupTestRouter(t)

	w := doJSON(t, d.router, http.MethodPost, "/api/v1/entries", gin.H{
		"wallet_id":  "not-a-uuid",
		"venue_id":   "venue-1",
		"gateway_id": "gate-7",
	})

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProcessEntry_ConflictMapsTo409(t *testing.T) {
	d := setupTestRouter(t)

	d.processor.EXPECT().
		ProcessEntry(gomock.Any(), gomock.Any()).
		Return(nil, apperror.ErrConflict())

	w := doJSON(t, d.router, http.MethodPost, "/api/v1/entries", gin.H{
		"wallet_id":  uuid.New().String(),
		"venue_id":   "venue-1",
		"gateway_id": "gate-7",
	})

	require.Equal(t, http.StatusConflict, w.Code)
	env := decodeEnvelope(t, w)
	assert.Equal(t, "CONFLICT_001", env.ErrorCode)
	assert.True(t, env.Retryable)
}

func TestProcessEntry_UnknownErrorMapsTo500(t *testing.T) {
	d := setupTestRouter(t)

	d.processor.EXPECT().
		ProcessEntry(gomock.Any(), gomock.Any()).
		Return(nil, errors.New("boom"))

	w := doJSON(t, d.router, http.MethodPost, "/api/v1/entries", gin.H{
		"wallet_id":  uuid.New().String(),
		"venue_id":   "venue-1",
		"gateway_id": "gate-7",
	})

	require.Equal(t, http.StatusInternalServerError, w.Code)
	env := decodeEnvelope(t, w)
	assert.Equal(t, "SYS_001", env.ErrorCode)
}

// --- Purchases ---

func TestProcessPurchase_Approved(t *testing.T) {
	d := setupTestRouter(t)
	walletID := uuid.New()
	receiptID := uuid.New()

	d.processor.EXPECT().
		ProcessPurchase(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req ports.PurchaseRequest) (*ports.PurchaseResult, error) {
			assert.Equal(t, walletID, req.WalletID)
			assert.Equal(t, "beer-lg", req.ItemID)
			assert.Equal(t, 3, req.Quantity)
			assert.Equal(t, int64(200), req.Tip)
			return &ports.PurchaseResult{
				Status:     ports.ResultApproved,
				Fees:       domain.FeeBreakdown{ItemTotal: 2400, Tip: 200, PlatformFee: 60, VendorPayout: 2540, Total: 2600},
				ReceiptID:  receiptID,
				NewBalance: 4900,
			}, nil
		})

	w := doJSON(t, d.router, http.MethodPost, "/api/v1/purchases", gin.H{
		"wallet_id":  walletID.String(),
		"item_id":    "beer-lg",
		"gateway_id": "pos-3",
		"quantity":   3,
		"tip":        200,
	})

	require.Equal(t, http.StatusCreated, w.Code)
	env := decodeEnvelope(t, w)

	var resp struct {
		Status     string `json:"status"`
		NewBalance int64  `json:"new_balance"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, "APPROVED", resp.Status)
	assert.Equal(t, int64(4900), resp.NewBalance)
}

func TestProcessPurchase_InvalidQuantityRejected(t *testing.T) {
	d := setupTestRouter(t)

	for _, qty := range []int{0, -1, 101} {
		w := doJSON(t, d.router, http.MethodPost, "/api/v1/purchases", gin.H{
			"wallet_id":  uuid.New().String(),
			"item_id":    "beer-lg",
			"gateway_id": "pos-3",
			"quantity":   qty,
		})
		assert.Equal(t, http.StatusBadRequest, w.Code, "quantity=%d", qty)
	}
}

func TestProcessPurchase_NegativeTipRejected(t *testing.T) {
	d := setupTestRouter(t)

	w := doJSON(t, d.router, http.MethodPost, "/api/v1/purchases", gin.H{
		"wallet_id":  uuid.New().String(),
		"item_id":    "beer-lg",
		"gateway_id": "pos-3",
		"quantity":   1,
		"tip":        -50,
	})

	require.Equal(t, http.StatusBadRequest, w.Code)
}

// --- Funding ---

func TestFund_NewTopUpReturns201(t *testing.T) {
	d := setupTestRouter(t)
	walletID := uuid.New()
	receiptID := uuid.New()

	d.processor.EXPECT().
		FundWallet(gomock.Any(), ports.FundRequest{
			DeviceBinding: "device-abc",
			Amount:        5000,
			SourceRef:     "psp-tx-001",
		}).
		Return(&ports.FundResult{
			WalletID:   walletID,
			NewBalance: 5000,
			ReceiptID:  receiptID,
		}, nil)

	w := doJSON(t, d.router, http.MethodPost, "/api/v1/wallets/fund", gin.H{
		"device_binding": "device-abc",
		"amount":         5000,
		"source_ref":     "psp-tx-001",
	})

	require.Equal(t, http.StatusCreated, w.Code)
	env := decodeEnvelope(t, w)

	var resp struct {
		WalletID   string `json:"wallet_id"`
		NewBalance int64  `json:"new_balance"`
		Duplicate  bool   `json:"duplicate"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, walletID.String(), resp.WalletID)
	assert.Equal(t, int64(5000), resp.NewBalance)
	assert.False(t, resp.Duplicate)
}

func TestFund_DuplicateReturns200(t *testing.T) {
	d := setupTestRouter(t)

	d.processor.EXPECT().
		FundWallet(gomock.Any(), gomock.Any()).
		Return(&ports.FundResult{
			WalletID:   uuid.New(),
			NewBalance: 5000,
			ReceiptID:  uuid.New(),
			Duplicate:  true,
		}, nil)

	w := doJSON(t, d.router, http.MethodPost, "/api/v1/wallets/fund", gin.H{
		"device_binding": "device-abc",
		"amount":         5000,
		"source_ref":     "psp-tx-001",
	})

	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)

	var resp struct {
		Duplicate bool `json:"duplicate"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.True(t, resp.Duplicate)
}

func TestFund_NonPositiveAmountRejected(t *testing.T) {
	d := setupTestRouter(t)

	for _, amount := range []int64{0, -100} {
		w := doJSON(t, d.router, http.MethodPost, "/api/v1/wallets/fund", gin.H{
			"device_binding": "device-abc",
			"amount":         amount,
			"source_ref":     "psp-tx-001",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code, "amount=%d", amount)
	}
}

// --- Balance & ledger ---

func TestGetBalance(t *testing.T) {
	d := setupTestRouter(t)
	walletID := uuid.New()

	d.processor.EXPECT().
		GetBalance(gomock.Any(), walletID).
		Return(int64(7500), nil)

	w := doJSON(t, d.router, http.MethodGet, "/api/v1/wallets/"+walletID.String()+"/balance", nil)

	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)

	var resp struct {
		WalletID string `json:"wallet_id"`
		Balance  int64  `json:"balance"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, walletID.String(), resp.WalletID)
	assert.Equal(t, int64(7500), resp.Balance)
}

func TestGetBalance_NotFound(t *testing.T) {
	d := setupTestRouter(t)
	walletID := uuid.New()

	d.processor.EXPECT().
		GetBalance(gomock.Any(), walletID).
		Return(int64(0), apperror.ErrNotFound("wallet"))

	w := doJSON(t, d.router, http.MethodGet, "/api/v1/wallets/"+walletID.String()+"/balance", nil)

	require.Equal(t, http.StatusNotFound, w.Code)
	env := decodeEnvelope(t, w)
	assert.Equal(t, "NF_001", env.ErrorCode)
}

func TestGetLedger(t *testing.T) {
	d := setupTestRouter(t)
	walletID := uuid.New()
	now := time.Now().UTC()

	d.ledgerRepo.EXPECT().
		ListByWallet(gomock.Any(), walletID, 50).
		Return([]domain.LedgerEntry{
			{
				Type:          domain.LedgerTypeEntryFee,
				Amount:        -2500,
				BalanceAfter:  7500,
				Counterpart:   domain.CounterpartVenue,
				CounterpartID: "venue-1",
				ReceiptID:     uuid.New(),
				Fees:          domain.FeeBreakdown{InitialFee: 2500, Total: 2500},
				CreatedAt:     now,
			},
			{
				Type:          domain.LedgerTypeFund,
				Amount:        10000,
				BalanceAfter:  10000,
				Counterpart:   domain.CounterpartSource,
				CounterpartID: "psp-tx-001",
				ReceiptID:     uuid.New(),
				CreatedAt:     now.Add(-time.Hour),
			},
		}, nil)

	w := doJSON(t, d.router, http.MethodGet, "/api/v1/wallets/"+walletID.String()+"/ledger", nil)

	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)

	var items []struct {
		Type         string `json:"type"`
		Amount       int64  `json:"amount"`
		BalanceAfter int64  `json:"balance_after"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &items))
	require.Len(t, items, 2)
	assert.Equal(t, int64(-2500), items[0].Amount)
	assert.Equal(t, int64(10000), items[1].Amount)
}

func TestGetLedger_CustomLimit(t *testing.T) {
	d := setupTestRouter(t)
	walletID := uuid.New()

	d.ledgerRepo.EXPECT().
		ListByWallet(gomock.Any(), walletID, 5).
		Return([]domain.LedgerEntry{}, nil)

	w := doJSON(t, d.router, http.MethodGet, "/api/v1/wallets/"+walletID.String()+"/ledger?limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestGetLedger_InvalidLimitRejected(t *testing.T) {
	d := setupTestRouter(t)
	walletID := uuid.New()

	for _, limit := range []string{"0", "501", "abc"} {
		w := doJSON(t, d.router, http.MethodGet,
			fmt.Sprintf("/api/v1/wallets/%s/ledger?limit=%s", walletID, limit), nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, "limit=%s", limit)
	}
}

// --- Health ---

type stubChecker struct {
	name string
	err  error
}

func (s stubChecker) Ping(context.Context) error { return s.err }
func (s stubChecker) Name() string               { return s.name }

func TestHealth_AllHealthy(t *testing.T) {
	d := setupTestRouter(t,
		stubChecker{name: "postgres"},
		stubChecker{name: "redis"},
	)

	w := doJSON(t, d.router, http.MethodGet, "/health", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
}

func TestHealth_DegradedReturns503(t *testing.T) {
	d := setupTestRouter(t,
		stubChecker{name: "postgres"},
		stubChecker{name: "redis", err: errors.New("connection refused")},
	)

	w := doJSON(t, d.router, http.MethodGet, "/health", nil)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	var body struct {
		Status       string `json:"status"`
		Dependencies map[string]struct {
			Status string `json:"status"`
			Error  string `json:"error"`
		} `json:"dependencies"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, "healthy", body.Dependencies["postgres"].Status)
	assert.Equal(t, "unhealthy", body.Dependencies["redis"].Status)
	assert.Contains(t, body.Dependencies["redis"].Error, "connection refused")
}

// --- Request ID propagation ---

func TestRequestID_CallerValueHonoured(t *testing.T) {
	d := setupTestRouter(t)
	walletID := uuid.New()

	d.processor.EXPECT().
		GetBalance(gomock.Any(), walletID).
		Return(int64(100), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/wallets/"+walletID.String()+"/balance", nil)
	req.Header.Set("X-Request-ID", "trace-me-42")
	w := httptest.NewRecorder()
	d.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "trace-me-42", w.Header().Get("X-Request-ID"))
	env := decodeEnvelope(t, w)
	assert.Equal(t, "trace-me-42", env.RequestID)
}
