package dto

import (
	"time"

	"github.com/harvestly/farmstand-service/internal/model"
	"github.com/shopspring/decimal"
)

type OrderItemInput struct {
	InventoryItemID string  `json:"inventory_item_id"`
	Quantity        float64 `json:"quantity"`
}

type CreateOrderInput struct {
	CustomerID    string                  `json:"customer_id"`
	FarmID        string                  `json:"farm_id"`
	Fulfillment   model.FulfillmentMethod `json:"fulfillment_method"`
	Items         []OrderItemInput        `json:"items"`
	Discount      decimal.Decimal         `json:"discount"`
	ScheduledDate *time.Time              `json:"scheduled_date"`
	ScheduledSlot string                  `json:"scheduled_slot"`
	AddressStreet string                  `json:"address_street"`
	AddressCity   string                  `json:"address_city"`
	AddressState  string                  `json:"address_state"`
	AddressZip    string                  `json:"address_zip"`
	Instructions  string                  `json:"instructions"`
}

type TransitionInput struct {
	OrderID string            `json:"-"`
	Status  model.OrderStatus `json:"status"`
}

type CancelOrderInput struct {
	OrderID string `json:"-"`
	Reason  string `json:"reason"`
}

type OrderFilters struct {
	CustomerID    string
	FarmID        string
	Status        []model.OrderStatus
	PaymentStatus model.PaymentStatus
	Fulfillment   model.FulfillmentMethod
	StartDate     *time.Time
	EndDate       *time.Time
	Page          int
	PageSize      int
}

type OrderList struct {
	Orders  []model.Order `json:"orders"`
	Total   int           `json:"total"`
	Page    int           `json:"page"`
	Limit   int           `json:"limit"`
	HasMore bool          `json:"has_more"`
}

type Statistics struct {
	TotalOrders       int                       `json:"total_orders"`
	TotalRevenue      decimal.Decimal           `json:"total_revenue"`
	AverageOrderValue decimal.Decimal           `json:"average_order_value"`
	ByStatus          map[model.OrderStatus]int `json:"by_status"`
	CompletedOrders   int                       `json:"completed_orders"`
	CancelledOrders   int                       `json:"cancelled_orders"`
}
