package payments

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/harvestly/farmstand-service/internal/apperrors"
	"github.com/shopspring/decimal"
)

// mockProcessor fakes the provider in-memory. Intents succeed immediately so
// local flows can run end to end without provider credentials.
type mockProcessor struct {
	mu      sync.Mutex
	intents map[string]*Intent
}

func NewMockProcessor() Processor {
	return &mockProcessor{intents: map[string]*Intent{}}
}

func (p *mockProcessor) CreateIntent(_ context.Context, input *CreateIntentInput) (*Intent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := "pi_mock_" + uuid.NewString()
	intent := &Intent{
		ID:           id,
		ClientSecret: id + "_secret",
		Status:       IntentSucceeded,
		Amount:       input.Amount,
	}
	p.intents[id] = intent
	return intent, nil
}

func (p *mockProcessor) GetIntent(_ context.Context, id string) (*Intent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	intent, ok := p.intents[id]
	if !ok {
		return nil, apperrors.NotFound("payment intent %s not found", id)
	}
	return intent, nil
}

func (p *mockProcessor) CancelIntent(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	intent, ok := p.intents[id]
	if !ok {
		return apperrors.NotFound("payment intent %s not found", id)
	}
	intent.Status = IntentCanceled
	return nil
}

func (p *mockProcessor) CreateRefund(_ context.Context, paymentIntentID string, _ decimal.Decimal, _ RefundReason) (*Refund, error) {
	if paymentIntentID == "" {
		return nil, apperrors.Validation("payment intent id is required for refunds")
	}
	return &Refund{ID: "re_mock_" + uuid.NewString(), Status: "succeeded"}, nil
}

func (p *mockProcessor) CreateCustomer(_ context.Context, _ *CustomerInput) (string, error) {
	return "cus_mock_" + uuid.NewString(), nil
}

func (p *mockProcessor) UpdateCustomer(_ context.Context, id string, _ *CustomerInput) error {
	if id == "" {
		return apperrors.Validation("customer id is required")
	}
	return nil
}

func (p *mockProcessor) CreateProduct(_ context.Context, name string) (string, error) {
	if name == "" {
		return "", apperrors.Validation("product name is required")
	}
	return "prod_mock_" + uuid.NewString(), nil
}

func (p *mockProcessor) CreatePrice(_ context.Context, productRef string, _ decimal.Decimal) (string, error) {
	if productRef == "" {
		return "", apperrors.Validation("product reference is required")
	}
	return "price_mock_" + uuid.NewString(), nil
}

func (p *mockProcessor) CreatePayout(_ context.Context, input *PayoutInput) (*PayoutResult, error) {
	if !input.Amount.IsPositive() {
		return nil, apperrors.Validation("payout amount must be positive, got %s", input.Amount)
	}
	status := "pending"
	if input.Instant {
		status = "paid"
	}
	return &PayoutResult{ID: fmt.Sprintf("po_mock_%s", uuid.NewString()), Status: status}, nil
}
