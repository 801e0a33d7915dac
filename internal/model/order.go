package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending        OrderStatus = "PENDING"
	OrderConfirmed      OrderStatus = "CONFIRMED"
	OrderProcessing     OrderStatus = "PROCESSING"
	OrderReadyForPickup OrderStatus = "READY_FOR_PICKUP"
	OrderShipped        OrderStatus = "SHIPPED"
	OrderDelivered      OrderStatus = "DELIVERED"
	OrderCompleted      OrderStatus = "COMPLETED"
	OrderCancelled      OrderStatus = "CANCELLED"
	OrderRefunded       OrderStatus = "REFUNDED"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "PENDING"
	PaymentPaid     PaymentStatus = "PAID"
	PaymentRefunded PaymentStatus = "REFUNDED"
)

type FulfillmentMethod string

const (
	FulfillmentDelivery     FulfillmentMethod = "DELIVERY"
	FulfillmentFarmPickup   FulfillmentMethod = "FARM_PICKUP"
	FulfillmentMarketPickup FulfillmentMethod = "MARKET_PICKUP"
)

func (m FulfillmentMethod) IsPickup() bool {
	return m == FulfillmentFarmPickup || m == FulfillmentMarketPickup
}

// Order is the aggregate root for one purchase from one farm. All monetary
// fields are fixed-point decimals; they convert to float only at presentation.
type Order struct {
	BaseModel
	OrderNumber     string            `db:"order_number" json:"order_number"`
	CustomerID      string            `db:"customer_id" json:"customer_id"`
	FarmID          string            `db:"farm_id" json:"farm_id"`
	Status          OrderStatus       `db:"status" json:"status"`
	PaymentStatus   PaymentStatus     `db:"payment_status" json:"payment_status"`
	Fulfillment     FulfillmentMethod `db:"fulfillment_method" json:"fulfillment_method"`
	Subtotal        decimal.Decimal   `db:"subtotal" json:"subtotal"`
	Tax             decimal.Decimal   `db:"tax" json:"tax"`
	DeliveryFee     decimal.Decimal   `db:"delivery_fee" json:"delivery_fee"`
	PlatformFee     decimal.Decimal   `db:"platform_fee" json:"platform_fee"`
	Discount        decimal.Decimal   `db:"discount" json:"discount"`
	Total           decimal.Decimal   `db:"total" json:"total"`
	FarmerAmount    decimal.Decimal   `db:"farmer_amount" json:"farmer_amount"`
	PaymentIntentID *string           `db:"payment_intent_id" json:"payment_intent_id,omitempty"`
	ScheduledDate   *time.Time        `db:"scheduled_date" json:"scheduled_date"`
	ScheduledSlot   *string           `db:"scheduled_slot" json:"scheduled_slot"`
	AddressStreet   *string           `db:"address_street" json:"address_street,omitempty"`
	AddressCity     *string           `db:"address_city" json:"address_city,omitempty"`
	AddressState    *string           `db:"address_state" json:"address_state,omitempty"`
	AddressZip      *string           `db:"address_zip" json:"address_zip,omitempty"`
	Instructions    *string           `db:"instructions" json:"instructions,omitempty"`
	CancelReason    *string           `db:"cancel_reason" json:"cancel_reason,omitempty"`
	CancelledBy     *string           `db:"cancelled_by" json:"cancelled_by,omitempty"`
	CancelledAt     *time.Time        `db:"cancelled_at" json:"cancelled_at,omitempty"`
	Items           []OrderItem       `db:"-" json:"items"`
}

type OrderItem struct {
	ID              string          `db:"id" json:"id"`
	OrderID         string          `db:"order_id" json:"order_id"`
	ProductID       string          `db:"product_id" json:"product_id"`
	InventoryItemID string          `db:"inventory_item_id" json:"inventory_item_id"`
	ProductName     string          `db:"product_name" json:"product_name"`
	Quantity        float64         `db:"quantity" json:"quantity"`
	Unit            string          `db:"unit" json:"unit"`
	UnitPrice       decimal.Decimal `db:"unit_price" json:"unit_price"`
	Subtotal        decimal.Decimal `db:"subtotal" json:"subtotal"`
}
