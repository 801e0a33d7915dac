package payments

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/harvestly/farmstand-service/internal/httpx"
	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/webhook"
	"go.uber.org/zap"
)

const maxWebhookBody = 64 << 10

// OrderMarker is the slice of the order flow the webhook needs: settling and
// failing payments by intent id.
type OrderMarker interface {
	MarkPaid(ctx context.Context, paymentIntentID string) error
	MarkPaymentFailed(ctx context.Context, paymentIntentID, reason string) error
}

type WebhookHandler struct {
	secret string
	orders OrderMarker
	logger *zap.Logger
}

func NewWebhookHandler(secret string, orders OrderMarker, log *zap.Logger) *WebhookHandler {
	return &WebhookHandler{secret: secret, orders: orders, logger: log}
}

// Handle verifies the provider signature and applies the event. Unrecognized
// event types are acknowledged so the provider stops retrying them.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	// Account API versions rarely match the pinned library version, so only
	// the signature is enforced.
	event, err := webhook.ConstructEventWithOptions(payload, r.Header.Get("Stripe-Signature"), h.secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		h.logger.Warn("webhook signature verification failed", zap.Error(err))
		http.Error(w, "invalid signature", http.StatusBadRequest)
		return
	}

	switch string(event.Type) {
	case "payment_intent.succeeded":
		h.applyIntent(r.Context(), event, func(ctx context.Context, id string) error {
			return h.orders.MarkPaid(ctx, id)
		})
	case "payment_intent.payment_failed":
		h.applyIntent(r.Context(), event, func(ctx context.Context, id string) error {
			return h.orders.MarkPaymentFailed(ctx, id, "payment failed at provider")
		})
	default:
		h.logger.Debug("ignoring webhook event", zap.String("type", string(event.Type)))
	}

	httpx.JSON(w, http.StatusOK, map[string]string{"received": "true"})
}

func (h *WebhookHandler) applyIntent(ctx context.Context, event stripe.Event, apply func(context.Context, string) error) {
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		h.logger.Error("failed to decode webhook payload",
			zap.String("type", string(event.Type)), zap.Error(err))
		return
	}
	if err := apply(ctx, pi.ID); err != nil {
		// Returning 200 regardless: the order may already be settled or the
		// intent may belong to another environment.
		h.logger.Error("failed to apply webhook event",
			zap.String("payment_intent_id", pi.ID), zap.Error(err))
	}
}
