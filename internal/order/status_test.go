package order

import (
	"testing"

	"github.com/harvestly/farmstand-service/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to model.OrderStatus }{
		{model.OrderPending, model.OrderConfirmed},
		{model.OrderPending, model.OrderCancelled},
		{model.OrderConfirmed, model.OrderProcessing},
		{model.OrderProcessing, model.OrderReadyForPickup},
		{model.OrderProcessing, model.OrderShipped},
		{model.OrderReadyForPickup, model.OrderCompleted},
		{model.OrderShipped, model.OrderDelivered},
		{model.OrderShipped, model.OrderCancelled},
		{model.OrderDelivered, model.OrderCompleted},
	}
	for _, tc := range allowed {
		assert.True(t, CanTransition(tc.from, tc.to), "%s -> %s should be allowed", tc.from, tc.to)
	}

	denied := []struct{ from, to model.OrderStatus }{
		{model.OrderPending, model.OrderProcessing},
		{model.OrderPending, model.OrderCompleted},
		{model.OrderConfirmed, model.OrderPending},
		{model.OrderDelivered, model.OrderShipped},
		{model.OrderDelivered, model.OrderCancelled},
		{model.OrderDelivered, model.OrderRefunded},
		{model.OrderCancelled, model.OrderPending},
		{model.OrderCancelled, model.OrderConfirmed},
		{model.OrderRefunded, model.OrderCompleted},
		{model.OrderCompleted, model.OrderPending},
		{model.OrderCompleted, model.OrderRefunded},
	}
	for _, tc := range denied {
		assert.False(t, CanTransition(tc.from, tc.to), "%s -> %s should be denied", tc.from, tc.to)
	}
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, IsTerminal(model.OrderCancelled))
	assert.True(t, IsTerminal(model.OrderRefunded))
	assert.True(t, IsTerminal(model.OrderCompleted))
	assert.False(t, IsTerminal(model.OrderPending))
	assert.False(t, IsTerminal(model.OrderDelivered))
}

func TestAllowedForFulfillment(t *testing.T) {
	assert.True(t, AllowedForFulfillment(model.FulfillmentDelivery, model.OrderShipped))
	assert.False(t, AllowedForFulfillment(model.FulfillmentFarmPickup, model.OrderShipped))
	assert.False(t, AllowedForFulfillment(model.FulfillmentMarketPickup, model.OrderShipped))

	assert.True(t, AllowedForFulfillment(model.FulfillmentFarmPickup, model.OrderReadyForPickup))
	assert.True(t, AllowedForFulfillment(model.FulfillmentMarketPickup, model.OrderReadyForPickup))
	assert.False(t, AllowedForFulfillment(model.FulfillmentDelivery, model.OrderReadyForPickup))

	// Statuses outside the branch are method-agnostic.
	assert.True(t, AllowedForFulfillment(model.FulfillmentDelivery, model.OrderConfirmed))
	assert.True(t, AllowedForFulfillment(model.FulfillmentFarmPickup, model.OrderCompleted))
}
