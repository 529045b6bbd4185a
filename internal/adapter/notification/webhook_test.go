package notification

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"venue-wallet-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturingClient struct {
	req    *http.Request
	body   []byte
	status int
	err    error
}

func (c *capturingClient) Do(req *http.Request) (*http.Response, error) {
	if c.err != nil {
		return nil, c.err
	}
	c.req = req
	c.body, _ = io.ReadAll(req.Body)
	return &http.Response{
		StatusCode: c.status,
		Body:       io.NopCloser(strings.NewReader("")),
	}, nil
}

func testEvent() domain.TransactionEvent {
	return domain.TransactionEvent{
		Type:       domain.EventPurchaseCompleted,
		WalletID:   uuid.New(),
		ReceiptID:  uuid.New(),
		Amount:     -2600,
		NewBalance: 4900,
		GatewayID:  "pos-3",
		OccurredAt: time.Now().UTC(),
	}
}

func TestWebhookDispatcher_SignsAndDelivers(t *testing.T) {
	client := &capturingClient{status: http.StatusOK}
	d := NewWebhookDispatcher("https://sink.example.com/events", "shh-secret", client, zerolog.Nop())

	event := testEvent()
	require.NoError(t, d.Send(context.Background(), event))

	require.NotNil(t, client.req)
	assert.Equal(t, http.MethodPost, client.req.Method)
	assert.Equal(t, "https://sink.example.com/events", client.req.URL.String())
	assert.Equal(t, "application/json", client.req.Header.Get("Content-Type"))

	var payload struct {
		Event     domain.TransactionEvent `json:"event"`
		Signature string                  `json:"signature"`
	}
	require.NoError(t, json.Unmarshal(client.body, &payload))
	assert.Equal(t, event.ReceiptID, payload.Event.ReceiptID)

	// Receiver-side verification: HMAC over the serialized event.
	eventBytes, err := json.Marshal(payload.Event)
	require.NoError(t, err)
	mac := hmac.New(sha256.New, []byte("shh-secret"))
	mac.Write(eventBytes)
	assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), payload.Signature)
}

func TestWebhookDispatcher_Non2xxIsError(t *testing.T) {
	client := &capturingClient{status: http.StatusBadGateway}
	d := NewWebhookDispatcher("https://sink.example.com/events", "s", client, zerolog.Nop())

	err := d.Send(context.Background(), testEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestWebhookDispatcher_TransportError(t *testing.T) {
	client := &capturingClient{err: errors.New("connection refused")}
	d := NewWebhookDispatcher("https://sink.example.com/events", "s", client, zerolog.Nop())

	err := d.Send(context.Background(), testEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestLogDispatcher_NeverFails(t *testing.T) {
	d := NewLogDispatcher(zerolog.Nop())
	assert.NoError(t, d.Send(context.Background(), testEvent()))
}
