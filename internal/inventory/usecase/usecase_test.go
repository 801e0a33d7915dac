package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/harvestly/farmstand-service/internal/apperrors"
	"github.com/harvestly/farmstand-service/internal/inventory"
	"github.com/harvestly/farmstand-service/internal/inventory/dto"
	"github.com/harvestly/farmstand-service/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeRepo mirrors the conditional-update semantics of the SQL layer.
type fakeRepo struct {
	items     map[string]*model.InventoryItem
	movements []model.StockMovement
	alerts    []model.InventoryAlert
	batches   map[string]*model.ProductBatch
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		items:   map[string]*model.InventoryItem{},
		batches: map[string]*model.ProductBatch{},
	}
}

func (f *fakeRepo) GetByID(_ context.Context, id string) (*model.InventoryItem, error) {
	item, ok := f.items[id]
	if !ok {
		return nil, apperrors.NotFound("inventory item %s not found", id)
	}
	clone := *item
	return &clone, nil
}

func (f *fakeRepo) FindByNaturalKey(_ context.Context, productID, farmID, batchID, locationID string) (*model.InventoryItem, error) {
	for _, item := range f.items {
		if item.ProductID == productID && item.FarmID == farmID && item.BatchID == batchID && item.LocationID == locationID {
			clone := *item
			return &clone, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) FindAll(_ context.Context, _ *dto.ItemFilters) ([]model.InventoryItem, int, error) {
	out := make([]model.InventoryItem, 0, len(f.items))
	for _, item := range f.items {
		out = append(out, *item)
	}
	return out, len(out), nil
}

func (f *fakeRepo) FindAllByFarm(_ context.Context, farmID string) ([]model.InventoryItem, error) {
	out := []model.InventoryItem{}
	for _, item := range f.items {
		if item.FarmID == farmID {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (f *fakeRepo) Create(_ context.Context, item *model.InventoryItem, movement *model.StockMovement) error {
	clone := *item
	f.items[item.ID] = &clone
	f.movements = append(f.movements, *movement)
	return nil
}

func (f *fakeRepo) AdjustQuantity(_ context.Context, id string, delta float64, gateOnAvailable bool, movement *model.StockMovement) (*model.InventoryItem, error) {
	item, ok := f.items[id]
	if !ok {
		return nil, apperrors.NotFound("inventory item %s not found", id)
	}
	if item.Quantity+delta < 0 {
		return nil, apperrors.InsufficientStock("requested %g, have %g", -delta, item.Quantity)
	}
	if gateOnAvailable && item.Available()+delta < 0 {
		return nil, apperrors.InsufficientStock("requested %g, available %g", -delta, item.Available())
	}
	movement.QuantityBefore = item.Quantity
	item.Quantity += delta
	movement.QuantityAfter = item.Quantity
	movement.QuantityChange = delta
	item.Status = inventory.DeriveStatus(item.Quantity, item.ReorderPoint)
	f.movements = append(f.movements, *movement)
	clone := *item
	return &clone, nil
}

func (f *fakeRepo) AdjustReservation(_ context.Context, id string, delta float64, movement *model.StockMovement) (*model.InventoryItem, error) {
	item, ok := f.items[id]
	if !ok {
		return nil, apperrors.NotFound("inventory item %s not found", id)
	}
	next := item.ReservedQuantity + delta
	if next < 0 || next > item.Quantity {
		return nil, apperrors.InsufficientStock("cannot move reservation by %g", delta)
	}
	movement.QuantityBefore = item.ReservedQuantity
	item.ReservedQuantity = next
	movement.QuantityAfter = next
	movement.QuantityChange = delta
	f.movements = append(f.movements, *movement)
	clone := *item
	return &clone, nil
}

func (f *fakeRepo) UpdateStatus(_ context.Context, id string, status model.InventoryStatus) error {
	item, ok := f.items[id]
	if !ok {
		return apperrors.NotFound("inventory item %s not found", id)
	}
	item.Status = status
	return nil
}

func (f *fakeRepo) ListMovements(_ context.Context, _ *dto.MovementFilters) ([]model.StockMovement, int, error) {
	return f.movements, len(f.movements), nil
}

func (f *fakeRepo) InsertAlerts(_ context.Context, alerts []model.InventoryAlert) error {
	// Duplicate-skip on (item, type) for open alerts.
	for _, a := range alerts {
		dup := false
		for _, existing := range f.alerts {
			if !existing.IsResolved && existing.InventoryItemID == a.InventoryItemID && existing.Type == a.Type {
				dup = true
				break
			}
		}
		if !dup {
			f.alerts = append(f.alerts, a)
		}
	}
	return nil
}

func (f *fakeRepo) ListAlerts(_ context.Context, farmID string, unresolvedOnly bool) ([]model.InventoryAlert, error) {
	out := []model.InventoryAlert{}
	for _, a := range f.alerts {
		if a.FarmID == farmID && (!unresolvedOnly || !a.IsResolved) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeRepo) ResolveAlert(_ context.Context, alertID, resolvedBy string) error {
	for i := range f.alerts {
		if f.alerts[i].ID == alertID {
			f.alerts[i].IsResolved = true
			f.alerts[i].ResolvedBy = &resolvedBy
			return nil
		}
	}
	return apperrors.NotFound("alert %s not found", alertID)
}

func (f *fakeRepo) CreateBatch(_ context.Context, batch *model.ProductBatch) error {
	clone := *batch
	f.batches[batch.ID] = &clone
	return nil
}

func (f *fakeRepo) AdjustBatchQuantity(_ context.Context, id string, delta float64) error {
	batch, ok := f.batches[id]
	if !ok {
		return apperrors.NotFound("batch %s not found", id)
	}
	if batch.CurrentQuantity+delta < 0 {
		return apperrors.InsufficientStock("requested %g, have %g", -delta, batch.CurrentQuantity)
	}
	batch.CurrentQuantity += delta
	return nil
}

func newUseCase(repo inventory.Repository) inventory.UseCase {
	return NewInventoryUseCase(repo, nil, zap.NewNop())
}

func createInput(qty float64) *dto.CreateItemInput {
	expiry := time.Now().Add(60 * 24 * time.Hour)
	return &dto.CreateItemInput{
		ProductID:    "prod-1",
		FarmID:       "farm-1",
		BatchID:      "batch-1",
		LocationID:   "loc-1",
		Quantity:     qty,
		Unit:         "lb",
		ReorderPoint: 10,
		ExpiryDate:   &expiry,
		PricePerUnit: decimal.NewFromFloat(3.50),
	}
}

func TestCreateItem(t *testing.T) {
	t.Run("rejects negative quantity", func(t *testing.T) {
		uc := newUseCase(newFakeRepo())
		_, err := uc.CreateItem(context.Background(), createInput(-5))
		assert.True(t, apperrors.Is(err, apperrors.CodeInvalidQuantity))
	})

	t.Run("derives status and writes opening movement", func(t *testing.T) {
		repo := newFakeRepo()
		uc := newUseCase(repo)

		item, err := uc.CreateItem(context.Background(), createInput(100))
		require.NoError(t, err)
		assert.Equal(t, model.InventoryInStock, item.Status)
		assert.Equal(t, float64(0), item.ReservedQuantity)

		require.Len(t, repo.movements, 1)
		assert.Equal(t, model.MovementHarvest, repo.movements[0].Type)
		assert.Equal(t, float64(0), repo.movements[0].QuantityBefore)
		assert.Equal(t, float64(100), repo.movements[0].QuantityAfter)
	})

	t.Run("same natural key tops up the existing row", func(t *testing.T) {
		repo := newFakeRepo()
		uc := newUseCase(repo)

		first, err := uc.CreateItem(context.Background(), createInput(40))
		require.NoError(t, err)
		second, err := uc.CreateItem(context.Background(), createInput(25))
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, float64(65), second.Quantity)
		assert.Len(t, repo.items, 1)
		assert.Len(t, repo.movements, 2)
	})
}

func TestAdjustStock(t *testing.T) {
	seed := func(t *testing.T, qty float64) (inventory.UseCase, *fakeRepo, string) {
		repo := newFakeRepo()
		uc := newUseCase(repo)
		item, err := uc.CreateItem(context.Background(), createInput(qty))
		require.NoError(t, err)
		return uc, repo, item.ID
	}

	t.Run("rejects zero delta", func(t *testing.T) {
		uc, _, id := seed(t, 100)
		_, err := uc.AdjustStock(context.Background(), &dto.AdjustStockInput{
			InventoryItemID: id, QuantityChange: 0, Type: model.MovementAdjustment,
		})
		assert.True(t, apperrors.Is(err, apperrors.CodeInvalidQuantity))
	})

	t.Run("sale depletes the source batch", func(t *testing.T) {
		uc, repo, id := seed(t, 100)
		repo.batches["batch-1"] = &model.ProductBatch{
			BaseModel:       model.BaseModel{ID: "batch-1"},
			InitialQuantity: 100,
			CurrentQuantity: 100,
		}

		_, err := uc.AdjustStock(context.Background(), &dto.AdjustStockInput{
			InventoryItemID: id, QuantityChange: -30, Type: model.MovementSale,
		})
		require.NoError(t, err)
		assert.Equal(t, float64(70), repo.batches["batch-1"].CurrentQuantity)

		// Replenishment leaves the batch alone.
		_, err = uc.AdjustStock(context.Background(), &dto.AdjustStockInput{
			InventoryItemID: id, QuantityChange: 20, Type: model.MovementHarvest,
		})
		require.NoError(t, err)
		assert.Equal(t, float64(70), repo.batches["batch-1"].CurrentQuantity)
	})

	t.Run("oversell fails and leaves state unchanged", func(t *testing.T) {
		uc, repo, id := seed(t, 100)
		_, err := uc.AdjustStock(context.Background(), &dto.AdjustStockInput{
			InventoryItemID: id, QuantityChange: -150, Type: model.MovementSale,
		})
		assert.True(t, apperrors.Is(err, apperrors.CodeInsufficientStock))
		assert.Equal(t, float64(100), repo.items[id].Quantity)
		assert.Len(t, repo.movements, 1)
	})

	t.Run("sale cannot consume reserved stock", func(t *testing.T) {
		uc, _, id := seed(t, 100)
		_, err := uc.ReserveStock(context.Background(), &dto.ReserveStockInput{
			InventoryItemID: id, Quantity: 80,
		})
		require.NoError(t, err)

		_, err = uc.AdjustStock(context.Background(), &dto.AdjustStockInput{
			InventoryItemID: id, QuantityChange: -30, Type: model.MovementSale,
		})
		assert.True(t, apperrors.Is(err, apperrors.CodeInsufficientStock))
	})

	t.Run("damage writedown may dip into reserved stock", func(t *testing.T) {
		uc, repo, id := seed(t, 100)
		_, err := uc.ReserveStock(context.Background(), &dto.ReserveStockInput{
			InventoryItemID: id, Quantity: 80,
		})
		require.NoError(t, err)

		item, err := uc.AdjustStock(context.Background(), &dto.AdjustStockInput{
			InventoryItemID: id, QuantityChange: -15, Type: model.MovementAdjustment,
		})
		require.NoError(t, err)
		assert.Equal(t, float64(85), item.Quantity)
		assert.Equal(t, float64(80), repo.items[id].ReservedQuantity)
	})

	t.Run("dropping to reorder point flags low stock", func(t *testing.T) {
		uc, _, id := seed(t, 100)
		item, err := uc.AdjustStock(context.Background(), &dto.AdjustStockInput{
			InventoryItemID: id, QuantityChange: -92, Type: model.MovementSale,
		})
		require.NoError(t, err)
		assert.Equal(t, model.InventoryLowStock, item.Status)

		alerts, err := uc.ListAlerts(context.Background(), "farm-1", true)
		require.NoError(t, err)
		require.Len(t, alerts, 1)
		assert.Equal(t, model.AlertLowStock, alerts[0].Type)

		// Re-deriving must not duplicate the open alert.
		_, err = uc.AdjustStock(context.Background(), &dto.AdjustStockInput{
			InventoryItemID: id, QuantityChange: -1, Type: model.MovementSale,
		})
		require.NoError(t, err)
		alerts, _ = uc.ListAlerts(context.Background(), "farm-1", true)
		assert.Len(t, alerts, 1)
	})
}

func TestReserveAndRelease(t *testing.T) {
	seed := func(t *testing.T) (inventory.UseCase, *fakeRepo, string) {
		repo := newFakeRepo()
		uc := newUseCase(repo)
		item, err := uc.CreateItem(context.Background(), createInput(100))
		require.NoError(t, err)
		return uc, repo, item.ID
	}

	t.Run("round trip restores available stock", func(t *testing.T) {
		uc, _, id := seed(t)

		item, err := uc.ReserveStock(context.Background(), &dto.ReserveStockInput{
			InventoryItemID: id, Quantity: 30, ReferenceID: "order-1",
		})
		require.NoError(t, err)
		assert.Equal(t, float64(100), item.Quantity)
		assert.Equal(t, float64(30), item.ReservedQuantity)
		assert.Equal(t, float64(70), item.Available())
		assert.Equal(t, model.InventoryInStock, item.Status)

		item, err = uc.ReleaseStock(context.Background(), &dto.ReleaseStockInput{
			InventoryItemID: id, Quantity: 30, ReferenceID: "order-1",
		})
		require.NoError(t, err)
		assert.Equal(t, float64(0), item.ReservedQuantity)
		assert.Equal(t, float64(100), item.Available())
	})

	t.Run("cannot reserve beyond quantity", func(t *testing.T) {
		uc, repo, id := seed(t)
		_, err := uc.ReserveStock(context.Background(), &dto.ReserveStockInput{
			InventoryItemID: id, Quantity: 130,
		})
		assert.True(t, apperrors.Is(err, apperrors.CodeInsufficientStock))
		assert.Equal(t, float64(0), repo.items[id].ReservedQuantity)
	})

	t.Run("cannot release below zero", func(t *testing.T) {
		uc, _, id := seed(t)
		_, err := uc.ReleaseStock(context.Background(), &dto.ReleaseStockInput{
			InventoryItemID: id, Quantity: 5,
		})
		assert.True(t, apperrors.Is(err, apperrors.CodeInsufficientStock))
	})

	t.Run("rejects non-positive quantities", func(t *testing.T) {
		uc, _, id := seed(t)
		_, err := uc.ReserveStock(context.Background(), &dto.ReserveStockInput{InventoryItemID: id, Quantity: 0})
		assert.True(t, apperrors.Is(err, apperrors.CodeInvalidQuantity))
		_, err = uc.ReleaseStock(context.Background(), &dto.ReleaseStockInput{InventoryItemID: id, Quantity: -2})
		assert.True(t, apperrors.Is(err, apperrors.CodeInvalidQuantity))
	})
}

func TestMetrics(t *testing.T) {
	repo := newFakeRepo()
	uc := newUseCase(repo)

	in := createInput(100)
	_, err := uc.CreateItem(context.Background(), in)
	require.NoError(t, err)

	in2 := createInput(5)
	in2.ProductID = "prod-2"
	in2.BatchID = "batch-2"
	in2.PricePerUnit = decimal.NewFromFloat(10)
	_, err = uc.CreateItem(context.Background(), in2)
	require.NoError(t, err)

	m, err := uc.Metrics(context.Background(), "farm-1")
	require.NoError(t, err)

	assert.Equal(t, 2, m.TotalItems)
	assert.True(t, m.TotalValue.Equal(decimal.NewFromFloat(400)), "got %s", m.TotalValue)
	assert.Equal(t, 1, m.LowStockItems)
	assert.Equal(t, 1, m.ByStatus[model.InventoryInStock])
	assert.Equal(t, 1, m.ByStatus[model.InventoryLowStock])
	require.Len(t, m.TopProductsByValue, 2)
	assert.Equal(t, "prod-1", m.TopProductsByValue[0].ProductID)
}
