package payments

import (
	"context"

	"github.com/shopspring/decimal"
)

type IntentStatus string

const (
	IntentRequiresPayment IntentStatus = "requires_payment_method"
	IntentProcessing      IntentStatus = "processing"
	IntentSucceeded       IntentStatus = "succeeded"
	IntentCanceled        IntentStatus = "canceled"
)

type Intent struct {
	ID           string          `json:"id"`
	ClientSecret string          `json:"client_secret"`
	Status       IntentStatus    `json:"status"`
	Amount       decimal.Decimal `json:"amount"`
}

type CreateIntentInput struct {
	Amount     decimal.Decimal
	CustomerID string
	OrderID    string
	FarmID     string
}

type RefundReason string

const (
	RefundRequestedByCustomer RefundReason = "requested_by_customer"
	RefundDuplicate           RefundReason = "duplicate"
	RefundFraudulent          RefundReason = "fraudulent"
)

type Refund struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type CustomerInput struct {
	Email string
	Name  string
}

type PayoutInput struct {
	Amount      decimal.Decimal
	Description string
	FarmID      string
	Instant     bool
}

type PayoutResult struct {
	ID     string
	Status string
}

// Processor abstracts the payment provider so order and payout flows can run
// against a mock in development and tests.
type Processor interface {
	CreateIntent(ctx context.Context, input *CreateIntentInput) (*Intent, error)
	GetIntent(ctx context.Context, id string) (*Intent, error)
	CancelIntent(ctx context.Context, id string) error

	CreateRefund(ctx context.Context, paymentIntentID string, amount decimal.Decimal, reason RefundReason) (*Refund, error)

	CreateCustomer(ctx context.Context, input *CustomerInput) (string, error)
	UpdateCustomer(ctx context.Context, id string, input *CustomerInput) error

	CreateProduct(ctx context.Context, name string) (string, error)
	CreatePrice(ctx context.Context, productRef string, amount decimal.Decimal) (string, error)

	CreatePayout(ctx context.Context, input *PayoutInput) (*PayoutResult, error)
}

// toCents converts a decimal dollar amount to the integer minor units the
// provider expects, rounding half up.
func toCents(d decimal.Decimal) int64 {
	return d.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func fromCents(cents int64) decimal.Decimal {
	return decimal.NewFromInt(cents).Div(decimal.NewFromInt(100))
}
