package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/harvestly/farmstand-service/internal/apperrors"
	"github.com/harvestly/farmstand-service/internal/auth"
	invdto "github.com/harvestly/farmstand-service/internal/inventory/dto"
	"github.com/harvestly/farmstand-service/internal/model"
	"github.com/harvestly/farmstand-service/internal/order"
	"github.com/harvestly/farmstand-service/internal/order/dto"
	"github.com/harvestly/farmstand-service/internal/payments"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeOrderRepo struct {
	orders map[string]*model.Order
	byDay  int

	// conflictNext fails the next n inserts with a duplicate order number,
	// bumping the day count the way the competing insert would.
	conflictNext int
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: map[string]*model.Order{}}
}

func (f *fakeOrderRepo) Create(_ context.Context, o *model.Order) error {
	if f.conflictNext > 0 {
		f.conflictNext--
		f.byDay++
		return apperrors.Conflict("order number %s already exists", o.OrderNumber)
	}
	clone := *o
	f.orders[o.ID] = &clone
	f.byDay++
	return nil
}

func (f *fakeOrderRepo) GetByID(_ context.Context, id string) (*model.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, apperrors.NotFound("order %s not found", id)
	}
	clone := *o
	return &clone, nil
}

func (f *fakeOrderRepo) GetByPaymentIntent(_ context.Context, pi string) (*model.Order, error) {
	for _, o := range f.orders {
		if o.PaymentIntentID != nil && *o.PaymentIntentID == pi {
			clone := *o
			return &clone, nil
		}
	}
	return nil, apperrors.NotFound("no order for payment intent %s", pi)
}

func (f *fakeOrderRepo) FindAll(_ context.Context, _ *dto.OrderFilters) ([]model.Order, int, error) {
	out := make([]model.Order, 0, len(f.orders))
	for _, o := range f.orders {
		out = append(out, *o)
	}
	return out, len(out), nil
}

func (f *fakeOrderRepo) UpdateStatus(_ context.Context, id string, from, to model.OrderStatus) (*model.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, apperrors.NotFound("order %s not found", id)
	}
	if o.Status != from {
		return nil, apperrors.Conflict("order %s moved from %s to %s concurrently", id, from, o.Status)
	}
	o.Status = to
	clone := *o
	return &clone, nil
}

func (f *fakeOrderRepo) UpdatePaymentStatus(_ context.Context, id string, status model.PaymentStatus) error {
	o, ok := f.orders[id]
	if !ok {
		return apperrors.NotFound("order %s not found", id)
	}
	o.PaymentStatus = status
	return nil
}

func (f *fakeOrderRepo) SetPaymentIntent(_ context.Context, id, pi string) error {
	o, ok := f.orders[id]
	if !ok {
		return apperrors.NotFound("order %s not found", id)
	}
	o.PaymentIntentID = &pi
	return nil
}

func (f *fakeOrderRepo) MarkCancelled(_ context.Context, id string, from model.OrderStatus, reason, cancelledBy string) (*model.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, apperrors.NotFound("order %s not found", id)
	}
	if o.Status != from {
		return nil, apperrors.Conflict("order %s moved concurrently", id)
	}
	now := time.Now()
	o.Status = model.OrderCancelled
	o.CancelReason = &reason
	o.CancelledBy = &cancelledBy
	o.CancelledAt = &now
	clone := *o
	return &clone, nil
}

func (f *fakeOrderRepo) CountForDay(_ context.Context, _ time.Time) (int, error) {
	return f.byDay, nil
}

func (f *fakeOrderRepo) Statistics(_ context.Context, _ string, _, _ *time.Time) (*dto.Statistics, error) {
	return &dto.Statistics{}, nil
}

// fakeStock tracks reservations per inventory item.
type fakeStock struct {
	items    map[string]*model.InventoryItem
	failNext bool
}

func newFakeStock(items ...*model.InventoryItem) *fakeStock {
	f := &fakeStock{items: map[string]*model.InventoryItem{}}
	for _, item := range items {
		f.items[item.ID] = item
	}
	return f
}

func (f *fakeStock) GetItem(_ context.Context, id string) (*model.InventoryItem, error) {
	item, ok := f.items[id]
	if !ok {
		return nil, apperrors.NotFound("inventory item %s not found", id)
	}
	return item, nil
}

func (f *fakeStock) ReserveStock(_ context.Context, input *invdto.ReserveStockInput) (*model.InventoryItem, error) {
	if f.failNext {
		f.failNext = false
		return nil, apperrors.InsufficientStock("not enough stock")
	}
	item, ok := f.items[input.InventoryItemID]
	if !ok {
		return nil, apperrors.NotFound("inventory item %s not found", input.InventoryItemID)
	}
	if item.Available() < input.Quantity {
		return nil, apperrors.InsufficientStock("requested %g, available %g", input.Quantity, item.Available())
	}
	item.ReservedQuantity += input.Quantity
	return item, nil
}

func (f *fakeStock) ReleaseStock(_ context.Context, input *invdto.ReleaseStockInput) (*model.InventoryItem, error) {
	item, ok := f.items[input.InventoryItemID]
	if !ok {
		return nil, apperrors.NotFound("inventory item %s not found", input.InventoryItemID)
	}
	if item.ReservedQuantity < input.Quantity {
		return nil, apperrors.InsufficientStock("release exceeds reservation")
	}
	item.ReservedQuantity -= input.Quantity
	return item, nil
}

func (f *fakeStock) AdjustStock(_ context.Context, input *invdto.AdjustStockInput) (*model.InventoryItem, error) {
	item, ok := f.items[input.InventoryItemID]
	if !ok {
		return nil, apperrors.NotFound("inventory item %s not found", input.InventoryItemID)
	}
	item.Quantity += input.QuantityChange
	return item, nil
}

func (f *fakeStock) CreateItem(context.Context, *invdto.CreateItemInput) (*model.InventoryItem, error) {
	return nil, nil
}
func (f *fakeStock) ListItems(context.Context, *invdto.ItemFilters) (*invdto.ItemList, error) {
	return nil, nil
}
func (f *fakeStock) Metrics(context.Context, string) (*invdto.Metrics, error) { return nil, nil }
func (f *fakeStock) ListMovements(context.Context, *invdto.MovementFilters) ([]model.StockMovement, int, error) {
	return nil, 0, nil
}
func (f *fakeStock) ListAlerts(context.Context, string, bool) ([]model.InventoryAlert, error) {
	return nil, nil
}
func (f *fakeStock) ResolveAlert(context.Context, string, string) error { return nil }
func (f *fakeStock) CreateBatch(context.Context, *invdto.CreateBatchInput) (*model.ProductBatch, error) {
	return nil, nil
}

type fakeCatalog struct{}

func (fakeCatalog) GetProduct(_ context.Context, id string) (*model.Product, error) {
	return &model.Product{BaseModel: model.BaseModel{ID: id}, Name: "Heirloom Tomatoes"}, nil
}

func invItem(id string, qty float64, price float64) *model.InventoryItem {
	return &model.InventoryItem{
		BaseModel:    model.BaseModel{ID: id},
		ProductID:    "prod-" + id,
		FarmID:       "farm-1",
		Quantity:     qty,
		Unit:         "lb",
		PricePerUnit: decimal.NewFromFloat(price),
	}
}

func farmerCtx() context.Context {
	return auth.WithActor(context.Background(), auth.Actor{ID: "farmer-1", Role: auth.RoleFarmer, FarmID: "farm-1"})
}

func customerCtx() context.Context {
	return auth.WithActor(context.Background(), auth.Actor{ID: "cust-1", Role: auth.RoleCustomer})
}

func newTestUseCase(repo order.Repository, stock *fakeStock) order.UseCase {
	return NewOrderUseCase(repo, stock, fakeCatalog{}, payments.NewMockProcessor(), nil, zap.NewNop())
}

func createInput() *dto.CreateOrderInput {
	return &dto.CreateOrderInput{
		CustomerID:  "cust-1",
		FarmID:      "farm-1",
		Fulfillment: model.FulfillmentFarmPickup,
		Items: []dto.OrderItemInput{
			{InventoryItemID: "item-1", Quantity: 10},
			{InventoryItemID: "item-2", Quantity: 2},
		},
	}
}

func TestApplyTotals(t *testing.T) {
	t.Run("pickup order", func(t *testing.T) {
		o := &model.Order{Fulfillment: model.FulfillmentFarmPickup}
		applyTotals(o, decimal.NewFromFloat(100), decimal.Zero)

		assert.True(t, o.Tax.Equal(decimal.NewFromFloat(8.00)), "tax %s", o.Tax)
		assert.True(t, o.DeliveryFee.IsZero())
		assert.True(t, o.PlatformFee.Equal(decimal.NewFromFloat(10.00)), "fee %s", o.PlatformFee)
		assert.True(t, o.Total.Equal(decimal.NewFromFloat(118.00)), "total %s", o.Total)
		assert.True(t, o.FarmerAmount.Equal(decimal.NewFromFloat(90.00)), "farmer %s", o.FarmerAmount)
	})

	t.Run("delivery order taxes the delivery fee", func(t *testing.T) {
		o := &model.Order{Fulfillment: model.FulfillmentDelivery}
		applyTotals(o, decimal.NewFromFloat(100), decimal.Zero)

		assert.True(t, o.DeliveryFee.Equal(decimal.NewFromFloat(5.00)))
		assert.True(t, o.Tax.Equal(decimal.NewFromFloat(8.40)), "tax %s", o.Tax)
		assert.True(t, o.Total.Equal(decimal.NewFromFloat(123.40)), "total %s", o.Total)
	})

	t.Run("breakdown always sums to total", func(t *testing.T) {
		o := &model.Order{Fulfillment: model.FulfillmentDelivery}
		applyTotals(o, decimal.NewFromFloat(37.53), decimal.NewFromFloat(2.50))

		sum := o.Subtotal.Add(o.Tax).Add(o.DeliveryFee).Add(o.PlatformFee).Sub(o.Discount)
		assert.True(t, o.Total.Equal(sum), "total %s != sum %s", o.Total, sum)
	})

	t.Run("negative discount is ignored", func(t *testing.T) {
		o := &model.Order{Fulfillment: model.FulfillmentFarmPickup}
		applyTotals(o, decimal.NewFromFloat(50), decimal.NewFromFloat(-10))
		assert.True(t, o.Discount.IsZero())
	})
}

func TestCreateOrder(t *testing.T) {
	t.Run("reserves stock per line", func(t *testing.T) {
		stock := newFakeStock(invItem("item-1", 100, 3.50), invItem("item-2", 20, 12))
		uc := newTestUseCase(newFakeOrderRepo(), stock)

		o, err := uc.CreateOrder(customerCtx(), createInput())
		require.NoError(t, err)

		assert.Equal(t, model.OrderPending, o.Status)
		assert.Regexp(t, `^ORD-\d{8}-\d{3}$`, o.OrderNumber)
		assert.Equal(t, float64(10), stock.items["item-1"].ReservedQuantity)
		assert.Equal(t, float64(2), stock.items["item-2"].ReservedQuantity)

		// 10*3.50 + 2*12 = 59.00
		assert.True(t, o.Subtotal.Equal(decimal.NewFromFloat(59.00)), "subtotal %s", o.Subtotal)
		require.Len(t, o.Items, 2)
		assert.Equal(t, "Heirloom Tomatoes", o.Items[0].ProductName)
		require.NotNil(t, o.PaymentIntentID)
	})

	t.Run("retries a taken daily number", func(t *testing.T) {
		stock := newFakeStock(invItem("item-1", 100, 3.50), invItem("item-2", 20, 12))
		repo := newFakeOrderRepo()
		repo.conflictNext = 1
		uc := newTestUseCase(repo, stock)

		o, err := uc.CreateOrder(customerCtx(), createInput())
		require.NoError(t, err)
		assert.Regexp(t, `^ORD-\d{8}-002$`, o.OrderNumber)
		assert.Equal(t, float64(10), stock.items["item-1"].ReservedQuantity)
	})

	t.Run("exhausted number retries release reservations", func(t *testing.T) {
		stock := newFakeStock(invItem("item-1", 100, 3.50), invItem("item-2", 20, 12))
		repo := newFakeOrderRepo()
		repo.conflictNext = 5
		uc := newTestUseCase(repo, stock)

		_, err := uc.CreateOrder(customerCtx(), createInput())
		assert.True(t, apperrors.Is(err, apperrors.CodeConflict))
		assert.Equal(t, float64(0), stock.items["item-1"].ReservedQuantity)
		assert.Equal(t, float64(0), stock.items["item-2"].ReservedQuantity)
	})

	t.Run("insufficient stock rolls back earlier reservations", func(t *testing.T) {
		stock := newFakeStock(invItem("item-1", 100, 3.50), invItem("item-2", 1, 12))
		uc := newTestUseCase(newFakeOrderRepo(), stock)

		_, err := uc.CreateOrder(customerCtx(), createInput())
		assert.True(t, apperrors.Is(err, apperrors.CodeInsufficientStock))
		assert.Equal(t, float64(0), stock.items["item-1"].ReservedQuantity)
		assert.Equal(t, float64(0), stock.items["item-2"].ReservedQuantity)
	})

	t.Run("rejects empty and non-positive lines", func(t *testing.T) {
		uc := newTestUseCase(newFakeOrderRepo(), newFakeStock())

		_, err := uc.CreateOrder(customerCtx(), &dto.CreateOrderInput{FarmID: "farm-1"})
		assert.True(t, apperrors.Is(err, apperrors.CodeValidation))

		in := createInput()
		in.Items[0].Quantity = 0
		_, err = uc.CreateOrder(customerCtx(), in)
		assert.True(t, apperrors.Is(err, apperrors.CodeInvalidQuantity))
	})

	t.Run("delivery requires an address", func(t *testing.T) {
		uc := newTestUseCase(newFakeOrderRepo(), newFakeStock())
		in := createInput()
		in.Fulfillment = model.FulfillmentDelivery
		_, err := uc.CreateOrder(customerCtx(), in)
		assert.True(t, apperrors.Is(err, apperrors.CodeValidation))
	})
}

func TestTransition(t *testing.T) {
	seed := func(t *testing.T) (order.UseCase, *fakeOrderRepo, *fakeStock, string) {
		stock := newFakeStock(invItem("item-1", 100, 3.50), invItem("item-2", 20, 12))
		repo := newFakeOrderRepo()
		uc := newTestUseCase(repo, stock)
		o, err := uc.CreateOrder(customerCtx(), createInput())
		require.NoError(t, err)
		return uc, repo, stock, o.ID
	}

	t.Run("farmer confirms a paid order", func(t *testing.T) {
		uc, _, _, id := seed(t)
		// The mock processor settles intents immediately.
		o, err := uc.Transition(farmerCtx(), &dto.TransitionInput{OrderID: id, Status: model.OrderConfirmed})
		require.NoError(t, err)
		assert.Equal(t, model.OrderConfirmed, o.Status)
	})

	t.Run("unpaid order cannot be confirmed", func(t *testing.T) {
		uc, repo, _, id := seed(t)
		repo.orders[id].PaymentStatus = model.PaymentPending

		_, err := uc.Transition(farmerCtx(), &dto.TransitionInput{OrderID: id, Status: model.OrderConfirmed})
		assert.True(t, apperrors.Is(err, apperrors.CodeConflict))
	})

	t.Run("customer cannot advance the order", func(t *testing.T) {
		uc, _, _, id := seed(t)
		_, err := uc.Transition(customerCtx(), &dto.TransitionInput{OrderID: id, Status: model.OrderConfirmed})
		assert.True(t, apperrors.Is(err, apperrors.CodeAuthorization))
	})

	t.Run("skipping states is rejected", func(t *testing.T) {
		uc, _, _, id := seed(t)
		_, err := uc.Transition(farmerCtx(), &dto.TransitionInput{OrderID: id, Status: model.OrderCompleted})
		assert.True(t, apperrors.Is(err, apperrors.CodeConflict))
	})

	t.Run("pickup order cannot ship", func(t *testing.T) {
		uc, repo, _, id := seed(t)
		repo.orders[id].Status = model.OrderProcessing

		_, err := uc.Transition(farmerCtx(), &dto.TransitionInput{OrderID: id, Status: model.OrderShipped})
		assert.True(t, apperrors.Is(err, apperrors.CodeValidation))
	})

	t.Run("completed order cannot be refunded through status updates", func(t *testing.T) {
		uc, repo, _, id := seed(t)
		repo.orders[id].Status = model.OrderCompleted

		_, err := uc.Transition(farmerCtx(), &dto.TransitionInput{OrderID: id, Status: model.OrderRefunded})
		assert.True(t, apperrors.Is(err, apperrors.CodeConflict))
	})

	t.Run("completion consumes the reservation as a sale", func(t *testing.T) {
		uc, repo, stock, id := seed(t)
		repo.orders[id].Status = model.OrderReadyForPickup

		o, err := uc.Transition(farmerCtx(), &dto.TransitionInput{OrderID: id, Status: model.OrderCompleted})
		require.NoError(t, err)
		assert.Equal(t, model.OrderCompleted, o.Status)
		assert.Equal(t, float64(0), stock.items["item-1"].ReservedQuantity)
		assert.Equal(t, float64(90), stock.items["item-1"].Quantity)
		assert.Equal(t, float64(18), stock.items["item-2"].Quantity)
	})
}

func TestCancelOrder(t *testing.T) {
	seed := func(t *testing.T) (order.UseCase, *fakeOrderRepo, *fakeStock, string) {
		stock := newFakeStock(invItem("item-1", 100, 3.50), invItem("item-2", 20, 12))
		repo := newFakeOrderRepo()
		uc := newTestUseCase(repo, stock)
		o, err := uc.CreateOrder(customerCtx(), createInput())
		require.NoError(t, err)
		return uc, repo, stock, o.ID
	}

	t.Run("paid order refunds and releases reservations", func(t *testing.T) {
		uc, _, stock, id := seed(t)

		o, err := uc.CancelOrder(customerCtx(), &dto.CancelOrderInput{OrderID: id, Reason: "changed my mind"})
		require.NoError(t, err)
		assert.Equal(t, model.OrderRefunded, o.Status)
		assert.Equal(t, float64(0), stock.items["item-1"].ReservedQuantity)
		assert.Equal(t, float64(0), stock.items["item-2"].ReservedQuantity)
		// Quantity itself is untouched.
		assert.Equal(t, float64(100), stock.items["item-1"].Quantity)
	})

	t.Run("unpaid order lands in cancelled", func(t *testing.T) {
		uc, repo, _, id := seed(t)
		repo.orders[id].PaymentStatus = model.PaymentPending

		o, err := uc.CancelOrder(customerCtx(), &dto.CancelOrderInput{OrderID: id, Reason: "late"})
		require.NoError(t, err)
		assert.Equal(t, model.OrderCancelled, o.Status)
		require.NotNil(t, o.CancelReason)
		assert.Equal(t, "late", *o.CancelReason)
	})

	t.Run("stranger cannot cancel", func(t *testing.T) {
		uc, _, _, id := seed(t)
		ctx := auth.WithActor(context.Background(), auth.Actor{ID: "other", Role: auth.RoleCustomer})
		_, err := uc.CancelOrder(ctx, &dto.CancelOrderInput{OrderID: id, Reason: "nope"})
		assert.True(t, apperrors.Is(err, apperrors.CodeAuthorization))
	})

	t.Run("shipped order can still be cancelled", func(t *testing.T) {
		uc, repo, stock, id := seed(t)
		repo.orders[id].Status = model.OrderShipped

		o, err := uc.CancelOrder(customerCtx(), &dto.CancelOrderInput{OrderID: id, Reason: "never arrived"})
		require.NoError(t, err)
		assert.Equal(t, model.OrderRefunded, o.Status)
		assert.Equal(t, float64(0), stock.items["item-1"].ReservedQuantity)
	})

	t.Run("delivered order cannot be cancelled", func(t *testing.T) {
		uc, repo, _, id := seed(t)
		repo.orders[id].Status = model.OrderDelivered
		_, err := uc.CancelOrder(customerCtx(), &dto.CancelOrderInput{OrderID: id, Reason: "too late"})
		assert.True(t, apperrors.Is(err, apperrors.CodeConflict))
	})
}

func TestMarkPaid(t *testing.T) {
	stock := newFakeStock(invItem("item-1", 100, 3.50), invItem("item-2", 20, 12))
	repo := newFakeOrderRepo()
	uc := newTestUseCase(repo, stock)

	o, err := uc.CreateOrder(customerCtx(), createInput())
	require.NoError(t, err)
	repo.orders[o.ID].PaymentStatus = model.PaymentPending

	require.NoError(t, uc.MarkPaid(context.Background(), *o.PaymentIntentID))
	assert.Equal(t, model.PaymentPaid, repo.orders[o.ID].PaymentStatus)

	// Settling twice is a no-op.
	require.NoError(t, uc.MarkPaid(context.Background(), *o.PaymentIntentID))

	assert.True(t, apperrors.Is(uc.MarkPaid(context.Background(), "pi_unknown"), apperrors.CodeNotFound))
}

func TestMarkPaymentFailed(t *testing.T) {
	stock := newFakeStock(invItem("item-1", 100, 3.50), invItem("item-2", 20, 12))
	repo := newFakeOrderRepo()
	uc := newTestUseCase(repo, stock)

	o, err := uc.CreateOrder(customerCtx(), createInput())
	require.NoError(t, err)

	require.NoError(t, uc.MarkPaymentFailed(context.Background(), *o.PaymentIntentID, "card declined"))
	assert.Equal(t, model.OrderCancelled, repo.orders[o.ID].Status)
	assert.Equal(t, float64(0), stock.items["item-1"].ReservedQuantity)
}
