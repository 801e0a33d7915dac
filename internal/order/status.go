package order

import (
	"github.com/harvestly/farmstand-service/internal/model"
)

// validNext encodes the fulfillment state machine. READY_FOR_PICKUP and
// SHIPPED are the method-specific branches after PROCESSING. Cancellation is
// open until the order is DELIVERED; REFUNDED is never reachable through the
// generic transition, only through the cancel-with-refund flow.
var validNext = map[model.OrderStatus][]model.OrderStatus{
	model.OrderPending:        {model.OrderConfirmed, model.OrderCancelled},
	model.OrderConfirmed:      {model.OrderProcessing, model.OrderCancelled},
	model.OrderProcessing:     {model.OrderReadyForPickup, model.OrderShipped, model.OrderCancelled},
	model.OrderReadyForPickup: {model.OrderCompleted, model.OrderCancelled},
	model.OrderShipped:        {model.OrderDelivered, model.OrderCancelled},
	model.OrderDelivered:      {model.OrderCompleted},
	model.OrderCompleted:      {},
	model.OrderCancelled:      {},
	model.OrderRefunded:       {},
}

func CanTransition(from, to model.OrderStatus) bool {
	for _, s := range validNext[from] {
		if s == to {
			return true
		}
	}
	return false
}

func IsTerminal(s model.OrderStatus) bool {
	return len(validNext[s]) == 0
}

// AllowedForFulfillment rejects the branch that does not match the order's
// fulfillment method: pickup orders never ship, delivery orders are never
// marked ready for pickup.
func AllowedForFulfillment(method model.FulfillmentMethod, to model.OrderStatus) bool {
	switch to {
	case model.OrderShipped:
		return method == model.FulfillmentDelivery
	case model.OrderReadyForPickup:
		return method.IsPickup()
	default:
		return true
	}
}
