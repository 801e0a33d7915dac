package payments

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
	"go.uber.org/zap"
)

type stripeProcessor struct {
	sc     *client.API
	logger *zap.Logger
}

func NewStripeProcessor(secretKey string, log *zap.Logger) Processor {
	sc := &client.API{}
	sc.Init(secretKey, nil)
	return &stripeProcessor{sc: sc, logger: log}
}

func (p *stripeProcessor) CreateIntent(ctx context.Context, input *CreateIntentInput) (*Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(toCents(input.Amount)),
		Currency: stripe.String(string(stripe.CurrencyUSD)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	if input.CustomerID != "" {
		params.Customer = stripe.String(input.CustomerID)
	}
	params.AddMetadata("order_id", input.OrderID)
	params.AddMetadata("farm_id", input.FarmID)

	pi, err := p.sc.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}
	return intentFrom(pi), nil
}

func (p *stripeProcessor) GetIntent(ctx context.Context, id string) (*Intent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := p.sc.PaymentIntents.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("get payment intent %s: %w", id, err)
	}
	return intentFrom(pi), nil
}

func (p *stripeProcessor) CancelIntent(ctx context.Context, id string) error {
	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx
	if _, err := p.sc.PaymentIntents.Cancel(id, params); err != nil {
		return fmt.Errorf("cancel payment intent %s: %w", id, err)
	}
	return nil
}

func (p *stripeProcessor) CreateRefund(ctx context.Context, paymentIntentID string, amount decimal.Decimal, reason RefundReason) (*Refund, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(paymentIntentID),
		Reason:        stripe.String(string(reason)),
	}
	params.Context = ctx
	if amount.IsPositive() {
		params.Amount = stripe.Int64(toCents(amount))
	}

	r, err := p.sc.Refunds.New(params)
	if err != nil {
		return nil, fmt.Errorf("create refund for %s: %w", paymentIntentID, err)
	}
	return &Refund{ID: r.ID, Status: string(r.Status)}, nil
}

func (p *stripeProcessor) CreateCustomer(ctx context.Context, input *CustomerInput) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(input.Email),
		Name:  stripe.String(input.Name),
	}
	params.Context = ctx
	c, err := p.sc.Customers.New(params)
	if err != nil {
		return "", fmt.Errorf("create customer: %w", err)
	}
	return c.ID, nil
}

func (p *stripeProcessor) UpdateCustomer(ctx context.Context, id string, input *CustomerInput) error {
	params := &stripe.CustomerParams{
		Email: stripe.String(input.Email),
		Name:  stripe.String(input.Name),
	}
	params.Context = ctx
	if _, err := p.sc.Customers.Update(id, params); err != nil {
		return fmt.Errorf("update customer: %w", err)
	}
	return nil
}

func (p *stripeProcessor) CreateProduct(ctx context.Context, name string) (string, error) {
	params := &stripe.ProductParams{Name: stripe.String(name)}
	params.Context = ctx
	prod, err := p.sc.Products.New(params)
	if err != nil {
		return "", fmt.Errorf("create product: %w", err)
	}
	return prod.ID, nil
}

func (p *stripeProcessor) CreatePrice(ctx context.Context, productRef string, amount decimal.Decimal) (string, error) {
	params := &stripe.PriceParams{
		Product:    stripe.String(productRef),
		UnitAmount: stripe.Int64(toCents(amount)),
		Currency:   stripe.String(string(stripe.CurrencyUSD)),
	}
	params.Context = ctx
	price, err := p.sc.Prices.New(params)
	if err != nil {
		return "", fmt.Errorf("create price: %w", err)
	}
	return price.ID, nil
}

func (p *stripeProcessor) CreatePayout(ctx context.Context, input *PayoutInput) (*PayoutResult, error) {
	params := &stripe.PayoutParams{
		Amount:   stripe.Int64(toCents(input.Amount)),
		Currency: stripe.String(string(stripe.CurrencyUSD)),
	}
	params.Context = ctx
	if input.Description != "" {
		params.Description = stripe.String(input.Description)
	}
	if input.Instant {
		params.Method = stripe.String("instant")
	}
	params.AddMetadata("farm_id", input.FarmID)

	po, err := p.sc.Payouts.New(params)
	if err != nil {
		return nil, fmt.Errorf("create payout: %w", err)
	}
	return &PayoutResult{ID: po.ID, Status: string(po.Status)}, nil
}

func intentFrom(pi *stripe.PaymentIntent) *Intent {
	return &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       IntentStatus(pi.Status),
		Amount:       fromCents(pi.Amount),
	}
}
