package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type markerSpy struct {
	paid   []string
	failed []string
}

func (m *markerSpy) MarkPaid(_ context.Context, id string) error {
	m.paid = append(m.paid, id)
	return nil
}

func (m *markerSpy) MarkPaymentFailed(_ context.Context, id, _ string) error {
	m.failed = append(m.failed, id)
	return nil
}

const webhookSecret = "whsec_test_secret"

// sign produces the provider's signature header: an HMAC-SHA256 of
// "{timestamp}.{payload}" keyed with the endpoint secret.
func sign(payload string, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(webhookSecret))
	fmt.Fprintf(mac, "%d.%s", ts.Unix(), payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func eventPayload(eventType, intentID string) string {
	return fmt.Sprintf(`{"id":"evt_1","type":%q,"data":{"object":{"id":%q,"object":"payment_intent"}}}`, eventType, intentID)
}

func TestWebhookHandle(t *testing.T) {
	t.Run("settles the order on payment success", func(t *testing.T) {
		spy := &markerSpy{}
		h := NewWebhookHandler(webhookSecret, spy, zap.NewNop())

		payload := eventPayload("payment_intent.succeeded", "pi_123")
		req := httptest.NewRequest("POST", "/webhooks/stripe", strings.NewReader(payload))
		req.Header.Set("Stripe-Signature", sign(payload, time.Now()))
		rec := httptest.NewRecorder()

		h.Handle(rec, req)

		assert.Equal(t, 200, rec.Code)
		require.Len(t, spy.paid, 1)
		assert.Equal(t, "pi_123", spy.paid[0])
	})

	t.Run("routes payment failure", func(t *testing.T) {
		spy := &markerSpy{}
		h := NewWebhookHandler(webhookSecret, spy, zap.NewNop())

		payload := eventPayload("payment_intent.payment_failed", "pi_456")
		req := httptest.NewRequest("POST", "/webhooks/stripe", strings.NewReader(payload))
		req.Header.Set("Stripe-Signature", sign(payload, time.Now()))
		rec := httptest.NewRecorder()

		h.Handle(rec, req)

		assert.Equal(t, 200, rec.Code)
		require.Len(t, spy.failed, 1)
		assert.Equal(t, "pi_456", spy.failed[0])
		assert.Empty(t, spy.paid)
	})

	t.Run("rejects a bad signature", func(t *testing.T) {
		spy := &markerSpy{}
		h := NewWebhookHandler(webhookSecret, spy, zap.NewNop())

		payload := eventPayload("payment_intent.succeeded", "pi_123")
		req := httptest.NewRequest("POST", "/webhooks/stripe", strings.NewReader(payload))
		req.Header.Set("Stripe-Signature", "t=123,v1=deadbeef")
		rec := httptest.NewRecorder()

		h.Handle(rec, req)

		assert.Equal(t, 400, rec.Code)
		assert.Empty(t, spy.paid)
	})

	t.Run("rejects a tampered payload", func(t *testing.T) {
		spy := &markerSpy{}
		h := NewWebhookHandler(webhookSecret, spy, zap.NewNop())

		payload := eventPayload("payment_intent.succeeded", "pi_123")
		sig := sign(payload, time.Now())
		tampered := strings.Replace(payload, "pi_123", "pi_999", 1)
		req := httptest.NewRequest("POST", "/webhooks/stripe", strings.NewReader(tampered))
		req.Header.Set("Stripe-Signature", sig)
		rec := httptest.NewRecorder()

		h.Handle(rec, req)

		assert.Equal(t, 400, rec.Code)
		assert.Empty(t, spy.paid)
	})

	t.Run("acknowledges unhandled event types", func(t *testing.T) {
		spy := &markerSpy{}
		h := NewWebhookHandler(webhookSecret, spy, zap.NewNop())

		payload := eventPayload("customer.created", "cus_1")
		req := httptest.NewRequest("POST", "/webhooks/stripe", strings.NewReader(payload))
		req.Header.Set("Stripe-Signature", sign(payload, time.Now()))
		rec := httptest.NewRecorder()

		h.Handle(rec, req)

		assert.Equal(t, 200, rec.Code)
		assert.Empty(t, spy.paid)
		assert.Empty(t, spy.failed)
	})
}

func TestMockProcessor(t *testing.T) {
	ctx := context.Background()
	p := NewMockProcessor()

	intent, err := p.CreateIntent(ctx, &CreateIntentInput{OrderID: "order-1"})
	require.NoError(t, err)
	assert.Equal(t, IntentSucceeded, intent.Status)
	assert.NotEmpty(t, intent.ClientSecret)

	got, err := p.GetIntent(ctx, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, intent.ID, got.ID)

	require.NoError(t, p.CancelIntent(ctx, intent.ID))
	got, err = p.GetIntent(ctx, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, IntentCanceled, got.Status)

	_, err = p.GetIntent(ctx, "pi_missing")
	assert.Error(t, err)
}
