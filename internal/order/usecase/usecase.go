package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harvestly/farmstand-service/internal/apperrors"
	"github.com/harvestly/farmstand-service/internal/auth"
	"github.com/harvestly/farmstand-service/internal/inventory"
	invdto "github.com/harvestly/farmstand-service/internal/inventory/dto"
	"github.com/harvestly/farmstand-service/internal/model"
	"github.com/harvestly/farmstand-service/internal/notification"
	"github.com/harvestly/farmstand-service/internal/order"
	"github.com/harvestly/farmstand-service/internal/order/dto"
	"github.com/harvestly/farmstand-service/internal/payments"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	taxRate         = decimal.NewFromFloat(0.08)
	platformFeeRate = decimal.NewFromFloat(0.10)
	deliveryFee     = decimal.NewFromFloat(5.00)
)

// ProductCatalog resolves product names for order lines.
type ProductCatalog interface {
	GetProduct(ctx context.Context, id string) (*model.Product, error)
}

type orderUseCase struct {
	repo      order.Repository
	stock     inventory.UseCase
	catalog   ProductCatalog
	processor payments.Processor
	notifier  *notification.Service
	logger    *zap.Logger
}

func NewOrderUseCase(
	repo order.Repository,
	stock inventory.UseCase,
	catalog ProductCatalog,
	processor payments.Processor,
	notifier *notification.Service,
	log *zap.Logger,
) order.UseCase {
	return &orderUseCase{
		repo:      repo,
		stock:     stock,
		catalog:   catalog,
		processor: processor,
		notifier:  notifier,
		logger:    log,
	}
}

func (uc *orderUseCase) CreateOrder(ctx context.Context, input *dto.CreateOrderInput) (*model.Order, error) {
	if len(input.Items) == 0 {
		return nil, apperrors.Validation("order must contain at least one item")
	}
	for _, line := range input.Items {
		if line.Quantity <= 0 {
			return nil, apperrors.InvalidQuantity("item quantity must be positive, got %g", line.Quantity)
		}
	}
	if input.Fulfillment == model.FulfillmentDelivery && input.AddressStreet == "" {
		return nil, apperrors.Validation("delivery orders require a shipping address")
	}

	orderID := uuid.NewString()
	now := time.Now()

	number, err := uc.nextOrderNumber(ctx, now)
	if err != nil {
		return nil, err
	}

	items, subtotal, err := uc.buildLines(ctx, orderID, input)
	if err != nil {
		return nil, err
	}

	o := &model.Order{
		BaseModel: model.BaseModel{
			ID:        orderID,
			CreatedAt: now,
			UpdatedAt: now,
		},
		OrderNumber:   number,
		CustomerID:    input.CustomerID,
		FarmID:        input.FarmID,
		Status:        model.OrderPending,
		PaymentStatus: model.PaymentPending,
		Fulfillment:   input.Fulfillment,
		ScheduledDate: input.ScheduledDate,
		Items:         items,
	}
	applyTotals(o, subtotal, input.Discount)
	if input.ScheduledSlot != "" {
		o.ScheduledSlot = &input.ScheduledSlot
	}
	if input.Fulfillment == model.FulfillmentDelivery {
		o.AddressStreet = &input.AddressStreet
		o.AddressCity = &input.AddressCity
		o.AddressState = &input.AddressState
		o.AddressZip = &input.AddressZip
	}
	if input.Instructions != "" {
		o.Instructions = &input.Instructions
	}

	// Reserve every line before touching payment; a partial failure rolls the
	// earlier reservations back.
	reserved := make([]dto.OrderItemInput, 0, len(input.Items))
	for _, line := range input.Items {
		_, err := uc.stock.ReserveStock(ctx, &invdto.ReserveStockInput{
			InventoryItemID: line.InventoryItemID,
			Quantity:        line.Quantity,
			ReferenceID:     orderID,
			ReferenceType:   "ORDER",
			PerformedBy:     input.CustomerID,
		})
		if err != nil {
			uc.releaseLines(ctx, orderID, input.CustomerID, reserved)
			return nil, err
		}
		reserved = append(reserved, line)
	}

	intent, err := uc.processor.CreateIntent(ctx, &payments.CreateIntentInput{
		Amount:  o.Total,
		OrderID: orderID,
		FarmID:  input.FarmID,
	})
	if err != nil {
		uc.releaseLines(ctx, orderID, input.CustomerID, reserved)
		return nil, apperrors.Wrap(apperrors.CodeInternal, "failed to initialize payment", err)
	}
	o.PaymentIntentID = &intent.ID
	if intent.Status == payments.IntentSucceeded {
		o.PaymentStatus = model.PaymentPaid
	}

	// Two concurrent checkouts can race to the same daily sequence number;
	// recount and retry on the unique-constraint conflict.
	createErr := uc.repo.Create(ctx, o)
	for attempt := 0; createErr != nil && apperrors.Is(createErr, apperrors.CodeConflict) && attempt < 2; attempt++ {
		if number, err = uc.nextOrderNumber(ctx, now); err != nil {
			break
		}
		o.OrderNumber = number
		createErr = uc.repo.Create(ctx, o)
	}
	if createErr != nil {
		uc.releaseLines(ctx, orderID, input.CustomerID, reserved)
		return nil, createErr
	}

	uc.logger.Info("order created",
		zap.String("order_id", o.ID),
		zap.String("order_number", o.OrderNumber),
		zap.String("farm_id", o.FarmID),
		zap.String("total", o.Total.String()))
	return o, nil
}

func (uc *orderUseCase) buildLines(ctx context.Context, orderID string, input *dto.CreateOrderInput) ([]model.OrderItem, decimal.Decimal, error) {
	items := make([]model.OrderItem, 0, len(input.Items))
	subtotal := decimal.Zero

	for _, line := range input.Items {
		inv, err := uc.stock.GetItem(ctx, line.InventoryItemID)
		if err != nil {
			return nil, decimal.Zero, err
		}
		if inv.FarmID != input.FarmID {
			return nil, decimal.Zero, apperrors.Validation("inventory item %s belongs to a different farm", inv.ID)
		}

		name := inv.ProductID
		if uc.catalog != nil {
			if product, err := uc.catalog.GetProduct(ctx, inv.ProductID); err == nil {
				name = product.Name
			}
		}

		lineTotal := inv.PricePerUnit.Mul(decimal.NewFromFloat(line.Quantity)).Round(2)
		items = append(items, model.OrderItem{
			ID:              uuid.NewString(),
			OrderID:         orderID,
			ProductID:       inv.ProductID,
			InventoryItemID: inv.ID,
			ProductName:     name,
			Quantity:        line.Quantity,
			Unit:            inv.Unit,
			UnitPrice:       inv.PricePerUnit,
			Subtotal:        lineTotal,
		})
		subtotal = subtotal.Add(lineTotal)
	}
	return items, subtotal, nil
}

// applyTotals writes the money breakdown onto the order. Delivery orders pay
// tax on the delivery fee too; the platform fee comes out of the farmer's
// side, so the farmer amount is subtotal net of that fee.
func applyTotals(o *model.Order, subtotal, discount decimal.Decimal) {
	if discount.IsNegative() {
		discount = decimal.Zero
	}

	fee := decimal.Zero
	if o.Fulfillment == model.FulfillmentDelivery {
		fee = deliveryFee
	}

	taxBase := subtotal.Add(fee)
	tax := taxBase.Mul(taxRate).Round(2)
	platformFee := subtotal.Mul(platformFeeRate).Round(2)

	o.Subtotal = subtotal
	o.Tax = tax
	o.DeliveryFee = fee
	o.PlatformFee = platformFee
	o.Discount = discount
	o.Total = subtotal.Add(tax).Add(fee).Add(platformFee).Sub(discount)
	o.FarmerAmount = subtotal.Sub(platformFee)
}

func (uc *orderUseCase) nextOrderNumber(ctx context.Context, now time.Time) (string, error) {
	count, err := uc.repo.CountForDay(ctx, now)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ORD-%s-%03d", now.Format("20060102"), count+1), nil
}

func (uc *orderUseCase) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	return uc.repo.GetByID(ctx, id)
}

func (uc *orderUseCase) ListOrders(ctx context.Context, f *dto.OrderFilters) (*dto.OrderList, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = 20
	}
	orders, total, err := uc.repo.FindAll(ctx, f)
	if err != nil {
		return nil, err
	}
	return &dto.OrderList{
		Orders:  orders,
		Total:   total,
		Page:    f.Page,
		Limit:   f.PageSize,
		HasMore: f.Page*f.PageSize < total,
	}, nil
}

func (uc *orderUseCase) Transition(ctx context.Context, input *dto.TransitionInput) (*model.Order, error) {
	if input.Status == model.OrderCancelled {
		return nil, apperrors.Validation("use the cancel operation to cancel an order")
	}

	o, err := uc.repo.GetByID(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}

	if !order.CanTransition(o.Status, input.Status) {
		return nil, apperrors.Conflict("cannot move order from %s to %s", o.Status, input.Status)
	}
	if !order.AllowedForFulfillment(o.Fulfillment, input.Status) {
		return nil, apperrors.Validation("%s is not valid for %s orders", input.Status, o.Fulfillment)
	}
	if input.Status == model.OrderConfirmed && o.PaymentStatus != model.PaymentPaid {
		return nil, apperrors.Conflict("order %s cannot be confirmed before payment settles", o.ID)
	}

	actor, _ := auth.ActorFrom(ctx)
	if !actor.CanAdvanceOrder(o.FarmID) {
		return nil, apperrors.Authorization("only the farm can update order status")
	}

	previous := o.Status
	updated, err := uc.repo.UpdateStatus(ctx, o.ID, previous, input.Status)
	if err != nil {
		return nil, err
	}

	if updated.Status == model.OrderCompleted {
		uc.consumeReservations(ctx, updated, actor.ID)
	}
	if uc.notifier != nil {
		uc.notifier.OrderStatusChanged(ctx, updated, previous)
	}
	return updated, nil
}

// consumeReservations turns the order's holds into sales once fulfillment
// finishes. Each line releases its hold and then records the sale movement.
func (uc *orderUseCase) consumeReservations(ctx context.Context, o *model.Order, performedBy string) {
	for _, item := range o.Items {
		if _, err := uc.stock.ReleaseStock(ctx, &invdto.ReleaseStockInput{
			InventoryItemID: item.InventoryItemID,
			Quantity:        item.Quantity,
			ReferenceID:     o.ID,
			PerformedBy:     performedBy,
		}); err != nil {
			uc.logger.Error("failed to release hold for completed order",
				zap.String("order_id", o.ID),
				zap.String("inventory_item_id", item.InventoryItemID),
				zap.Error(err))
			continue
		}
		if _, err := uc.stock.AdjustStock(ctx, &invdto.AdjustStockInput{
			InventoryItemID: item.InventoryItemID,
			QuantityChange:  -item.Quantity,
			Type:            model.MovementSale,
			Reason:          "Order completed",
			ReferenceID:     o.ID,
			ReferenceType:   "ORDER",
			PerformedBy:     performedBy,
		}); err != nil {
			uc.logger.Error("failed to record sale for completed order",
				zap.String("order_id", o.ID),
				zap.String("inventory_item_id", item.InventoryItemID),
				zap.Error(err))
		}
	}
}

func (uc *orderUseCase) CancelOrder(ctx context.Context, input *dto.CancelOrderInput) (*model.Order, error) {
	o, err := uc.repo.GetByID(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}

	if !order.CanTransition(o.Status, model.OrderCancelled) {
		return nil, apperrors.Conflict("order in status %s cannot be cancelled", o.Status)
	}

	actor, _ := auth.ActorFrom(ctx)
	if !actor.CanCancelOrder(o.CustomerID, o.FarmID) {
		return nil, apperrors.Authorization("not a party to this order")
	}

	previous := o.Status
	cancelled, err := uc.repo.MarkCancelled(ctx, o.ID, previous, input.Reason, actor.ID)
	if err != nil {
		return nil, err
	}

	// Release exactly the quantities this order held.
	for _, item := range cancelled.Items {
		if _, err := uc.stock.ReleaseStock(ctx, &invdto.ReleaseStockInput{
			InventoryItemID: item.InventoryItemID,
			Quantity:        item.Quantity,
			ReferenceID:     cancelled.ID,
			PerformedBy:     actor.ID,
		}); err != nil {
			uc.logger.Error("failed to release reservation on cancel",
				zap.String("order_id", cancelled.ID),
				zap.String("inventory_item_id", item.InventoryItemID),
				zap.Error(err))
		}
	}

	if o.PaymentStatus == model.PaymentPaid && o.PaymentIntentID != nil {
		if _, err := uc.processor.CreateRefund(ctx, *o.PaymentIntentID, o.Total, payments.RefundRequestedByCustomer); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeInternal, "cancellation recorded but refund failed", err)
		}
		if err := uc.repo.UpdatePaymentStatus(ctx, cancelled.ID, model.PaymentRefunded); err != nil {
			return nil, err
		}
		cancelled, err = uc.repo.UpdateStatus(ctx, cancelled.ID, model.OrderCancelled, model.OrderRefunded)
		if err != nil {
			return nil, err
		}
	} else if o.PaymentIntentID != nil {
		if err := uc.processor.CancelIntent(ctx, *o.PaymentIntentID); err != nil {
			uc.logger.Warn("failed to cancel payment intent",
				zap.String("order_id", cancelled.ID), zap.Error(err))
		}
	}

	if uc.notifier != nil {
		uc.notifier.OrderStatusChanged(ctx, cancelled, previous)
	}
	return cancelled, nil
}

func (uc *orderUseCase) MarkPaid(ctx context.Context, paymentIntentID string) error {
	o, err := uc.repo.GetByPaymentIntent(ctx, paymentIntentID)
	if err != nil {
		return err
	}
	if o.PaymentStatus == model.PaymentPaid {
		return nil
	}
	if err := uc.repo.UpdatePaymentStatus(ctx, o.ID, model.PaymentPaid); err != nil {
		return err
	}
	uc.logger.Info("order payment settled",
		zap.String("order_id", o.ID), zap.String("payment_intent_id", paymentIntentID))
	return nil
}

func (uc *orderUseCase) MarkPaymentFailed(ctx context.Context, paymentIntentID, reason string) error {
	o, err := uc.repo.GetByPaymentIntent(ctx, paymentIntentID)
	if err != nil {
		return err
	}
	if o.Status != model.OrderPending {
		return nil
	}

	cancelled, err := uc.repo.MarkCancelled(ctx, o.ID, o.Status, reason, "system")
	if err != nil {
		return err
	}
	for _, item := range cancelled.Items {
		if _, err := uc.stock.ReleaseStock(ctx, &invdto.ReleaseStockInput{
			InventoryItemID: item.InventoryItemID,
			Quantity:        item.Quantity,
			ReferenceID:     cancelled.ID,
			PerformedBy:     "system",
		}); err != nil {
			uc.logger.Error("failed to release reservation after payment failure",
				zap.String("order_id", cancelled.ID), zap.Error(err))
		}
	}
	if uc.notifier != nil {
		uc.notifier.OrderStatusChanged(ctx, cancelled, o.Status)
	}
	return nil
}

func (uc *orderUseCase) Statistics(ctx context.Context, farmID string, f *dto.OrderFilters) (*dto.Statistics, error) {
	if farmID == "" {
		return nil, apperrors.Validation("farm_id is required")
	}
	return uc.repo.Statistics(ctx, farmID, f.StartDate, f.EndDate)
}

func (uc *orderUseCase) releaseLines(ctx context.Context, orderID, performedBy string, lines []dto.OrderItemInput) {
	for _, line := range lines {
		if _, err := uc.stock.ReleaseStock(ctx, &invdto.ReleaseStockInput{
			InventoryItemID: line.InventoryItemID,
			Quantity:        line.Quantity,
			ReferenceID:     orderID,
			PerformedBy:     performedBy,
		}); err != nil {
			uc.logger.Error("failed to roll back reservation",
				zap.String("order_id", orderID),
				zap.String("inventory_item_id", line.InventoryItemID),
				zap.Error(err))
		}
	}
}
