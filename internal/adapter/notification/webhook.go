package notification

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"

	"venue-wallet-engine/internal/core/domain"

	"github.com/rs/zerolog"
)

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// webhookPayload is the JSON structure sent to the notification sink.
type webhookPayload struct {
	Event     domain.TransactionEvent `json:"event"`
	Signature string                  `json:"signature"`
}

// WebhookDispatcher posts completed-transaction events to a configured sink
// URL. Each payload is signed with HMAC-SHA256 over the serialized event so
// the receiver can verify origin. Delivery is single-attempt: the caller
// owns drop/count semantics, and the reconciliation sweep over the ledger is
// the backstop for consumers that need completeness.
type WebhookDispatcher struct {
	url        string
	secret     []byte
	httpClient HTTPClient
	log        zerolog.Logger
}

// NewWebhookDispatcher creates a WebhookDispatcher targeting the given URL.
func NewWebhookDispatcher(url, secret string, httpClient HTTPClient, log zerolog.Logger) *WebhookDispatcher {
	return &WebhookDispatcher{
		url:        url,
		secret:     []byte(secret),
		httpClient: httpClient,
		log:        log,
	}
}

// Send implements ports.NotificationDispatcher.
func (d *WebhookDispatcher) Send(ctx context.Context, event domain.TransactionEvent) error {
	eventBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}

	payload := webhookPayload{
		Event:     event,
		Signature: d.sign(eventBytes),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("posting event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notification sink returned status %d", resp.StatusCode)
	}

	d.log.Debug().
		Str("type", event.Type).
		Str("receipt_id", event.ReceiptID.String()).
		Msg("notification delivered")
	return nil
}

func (d *WebhookDispatcher) sign(data []byte) string {
	mac := hmac.New(sha256.New, d.secret)
	mac.Write(data)
	return hex.EncodeToString(mac.Sum(nil))
}

// LogDispatcher writes events to the structured log instead of an external
// sink. Used when no notifier URL is configured.
type LogDispatcher struct {
	log zerolog.Logger
}

// NewLogDispatcher creates a LogDispatcher.
func NewLogDispatcher(log zerolog.Logger) *LogDispatcher {
	return &LogDispatcher{log: log}
}

// Send implements ports.NotificationDispatcher.
func (d *LogDispatcher) Send(_ context.Context, event domain.TransactionEvent) error {
	d.log.Info().
		Str("type", event.Type).
		Str("wallet_id", event.WalletID.String()).
		Str("receipt_id", event.ReceiptID.String()).
		Int64("amount", event.Amount).
		Int64("new_balance", event.NewBalance).
		Msg("transaction event")
	return nil
}
