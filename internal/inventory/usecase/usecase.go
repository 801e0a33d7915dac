package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/harvestly/farmstand-service/internal/apperrors"
	"github.com/harvestly/farmstand-service/internal/inventory"
	"github.com/harvestly/farmstand-service/internal/inventory/dto"
	"github.com/harvestly/farmstand-service/internal/model"
	"github.com/harvestly/farmstand-service/internal/pkg/cache"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type inventoryUseCase struct {
	repo   inventory.Repository
	cache  *cache.Client
	logger *zap.Logger
}

func NewInventoryUseCase(repo inventory.Repository, cacheClient *cache.Client, log *zap.Logger) inventory.UseCase {
	return &inventoryUseCase{
		repo:   repo,
		cache:  cacheClient,
		logger: log,
	}
}

func (uc *inventoryUseCase) CreateItem(ctx context.Context, input *dto.CreateItemInput) (*model.InventoryItem, error) {
	if input.Quantity < 0 {
		return nil, apperrors.InvalidQuantity("quantity must not be negative, got %g", input.Quantity)
	}
	if input.ProductID == "" || input.FarmID == "" {
		return nil, apperrors.Validation("product_id and farm_id are required")
	}

	batchID := input.BatchID
	if batchID == "" {
		batchID = fmt.Sprintf("BATCH-%d", time.Now().UnixMilli())
	}

	// Creation is upsert-by-natural-key: a second harvest entry for the same
	// (product, farm, batch, location) tuple tops up the existing row.
	existing, err := uc.repo.FindByNaturalKey(ctx, input.ProductID, input.FarmID, batchID, input.LocationID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return uc.AdjustStock(ctx, &dto.AdjustStockInput{
			InventoryItemID: existing.ID,
			QuantityChange:  input.Quantity,
			Type:            model.MovementHarvest,
			Reason:          "New harvest added to existing batch",
			PerformedBy:     input.FarmID,
		})
	}

	now := time.Now()
	item := &model.InventoryItem{
		BaseModel: model.BaseModel{
			ID:        uuid.NewString(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		ProductID:        input.ProductID,
		FarmID:           input.FarmID,
		BatchID:          batchID,
		LocationID:       input.LocationID,
		Quantity:         input.Quantity,
		ReservedQuantity: 0,
		Unit:             input.Unit,
		MinimumStock:     input.MinimumStock,
		ReorderPoint:     input.ReorderPoint,
		Status:           inventory.DeriveStatus(input.Quantity, input.ReorderPoint),
		Season:           inventory.CurrentSeason(now),
		HarvestDate:      input.HarvestDate,
		ExpiryDate:       input.ExpiryDate,
		QualityGrade:     input.QualityGrade,
		StorageCondition: input.StorageCondition,
		IsOrganic:        input.IsOrganic,
		CostPerUnit:      input.CostPerUnit,
		PricePerUnit:     input.PricePerUnit,
	}
	if input.Notes != "" {
		item.Notes = &input.Notes
	}
	if item.HarvestDate == nil {
		item.HarvestDate = &now
	}

	movement := &model.StockMovement{
		ID:              uuid.NewString(),
		InventoryItemID: item.ID,
		Type:            model.MovementHarvest,
		QuantityBefore:  0,
		QuantityChange:  input.Quantity,
		QuantityAfter:   input.Quantity,
		PerformedBy:     input.FarmID,
		Reason:          "Initial harvest",
		CreatedAt:       now,
	}

	if err := uc.repo.Create(ctx, item, movement); err != nil {
		return nil, err
	}

	uc.checkAlerts(ctx, item)
	uc.invalidate(ctx, item.FarmID)
	return item, nil
}

func (uc *inventoryUseCase) GetItem(ctx context.Context, id string) (*model.InventoryItem, error) {
	return uc.repo.GetByID(ctx, id)
}

func (uc *inventoryUseCase) ListItems(ctx context.Context, f *dto.ItemFilters) (*dto.ItemList, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = 20
	}
	items, total, err := uc.repo.FindAll(ctx, f)
	if err != nil {
		return nil, err
	}
	return &dto.ItemList{
		Items:   items,
		Total:   total,
		Page:    f.Page,
		Limit:   f.PageSize,
		HasMore: f.Page*f.PageSize < total,
	}, nil
}

func (uc *inventoryUseCase) Metrics(ctx context.Context, farmID string) (*dto.Metrics, error) {
	items, err := uc.repo.FindAllByFarm(ctx, farmID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	in7 := now.AddDate(0, 0, 7)
	in30 := now.AddDate(0, 0, 30)

	m := &dto.Metrics{
		TotalItems: len(items),
		TotalValue: decimal.Zero,
		ByStatus:   map[model.InventoryStatus]int{},
	}

	byProduct := map[string]*dto.TopProduct{}
	for i := range items {
		item := &items[i]
		value := item.PricePerUnit.Mul(decimal.NewFromFloat(item.Quantity))
		m.TotalValue = m.TotalValue.Add(value)
		m.ByStatus[item.Status]++
		if item.Quantity <= item.ReorderPoint {
			m.LowStockItems++
		}
		if item.ExpiryDate != nil && !item.ExpiryDate.Before(now) {
			if !item.ExpiryDate.After(in7) {
				m.ExpiringWithin7Days++
			}
			if !item.ExpiryDate.After(in30) {
				m.ExpiringWithin30Days++
			}
		}
		tp, ok := byProduct[item.ProductID]
		if !ok {
			tp = &dto.TopProduct{ProductID: item.ProductID, Value: decimal.Zero}
			byProduct[item.ProductID] = tp
		}
		tp.Quantity += item.Quantity
		tp.Value = tp.Value.Add(value)
	}

	top := make([]dto.TopProduct, 0, len(byProduct))
	for _, tp := range byProduct {
		top = append(top, *tp)
	}
	sort.Slice(top, func(i, j int) bool { return top[i].Value.GreaterThan(top[j].Value) })
	if len(top) > 10 {
		top = top[:10]
	}
	m.TopProductsByValue = top

	return m, nil
}

func (uc *inventoryUseCase) AdjustStock(ctx context.Context, input *dto.AdjustStockInput) (*model.InventoryItem, error) {
	if input.QuantityChange == 0 {
		return nil, apperrors.InvalidQuantity("quantity change must not be zero")
	}

	unlock, err := uc.lockItem(ctx, input.InventoryItemID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	movement := &model.StockMovement{
		ID:              uuid.NewString(),
		InventoryItemID: input.InventoryItemID,
		Type:            input.Type,
		PerformedBy:     input.PerformedBy,
		Reason:          input.Reason,
		CreatedAt:       time.Now(),
	}
	if input.ReferenceID != "" {
		movement.ReferenceID = &input.ReferenceID
	}
	if input.ReferenceType != "" {
		movement.ReferenceType = &input.ReferenceType
	}

	// Sale-type consumption must not eat into reserved stock; every other
	// movement gates on the raw quantity.
	gateOnAvailable := input.QuantityChange < 0 && consumesAvailable(input.Type)

	item, err := uc.repo.AdjustQuantity(ctx, input.InventoryItemID, input.QuantityChange, gateOnAvailable, movement)
	if err != nil {
		return nil, err
	}

	// Consumption also depletes the source batch when the item tracks one.
	if item.BatchID != "" && gateOnAvailable {
		if err := uc.repo.AdjustBatchQuantity(ctx, item.BatchID, input.QuantityChange); err != nil {
			uc.logger.Warn("failed to update batch quantity",
				zap.String("batch_id", item.BatchID),
				zap.String("inventory_item_id", item.ID),
				zap.Error(err))
		}
	}

	uc.checkAlerts(ctx, item)
	uc.invalidate(ctx, item.FarmID)
	return item, nil
}

func consumesAvailable(t model.MovementType) bool {
	return t == model.MovementSale || t == model.MovementWaste || t == model.MovementTransfer
}

func (uc *inventoryUseCase) ReserveStock(ctx context.Context, input *dto.ReserveStockInput) (*model.InventoryItem, error) {
	if input.Quantity <= 0 {
		return nil, apperrors.InvalidQuantity("reservation quantity must be positive, got %g", input.Quantity)
	}

	unlock, err := uc.lockItem(ctx, input.InventoryItemID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	movement := &model.StockMovement{
		ID:              uuid.NewString(),
		InventoryItemID: input.InventoryItemID,
		Type:            model.MovementReservation,
		PerformedBy:     input.PerformedBy,
		Reason:          "Stock reserved for order",
		CreatedAt:       time.Now(),
	}
	if input.ReferenceID != "" {
		movement.ReferenceID = &input.ReferenceID
	}
	if input.ReferenceType != "" {
		movement.ReferenceType = &input.ReferenceType
	}

	item, err := uc.repo.AdjustReservation(ctx, input.InventoryItemID, input.Quantity, movement)
	if err != nil {
		return nil, err
	}

	uc.invalidate(ctx, item.FarmID)
	return item, nil
}

func (uc *inventoryUseCase) ReleaseStock(ctx context.Context, input *dto.ReleaseStockInput) (*model.InventoryItem, error) {
	if input.Quantity <= 0 {
		return nil, apperrors.InvalidQuantity("release quantity must be positive, got %g", input.Quantity)
	}

	unlock, err := uc.lockItem(ctx, input.InventoryItemID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	movement := &model.StockMovement{
		ID:              uuid.NewString(),
		InventoryItemID: input.InventoryItemID,
		Type:            model.MovementRelease,
		PerformedBy:     input.PerformedBy,
		Reason:          "Reserved stock released",
		CreatedAt:       time.Now(),
	}
	if input.ReferenceID != "" {
		movement.ReferenceID = &input.ReferenceID
		refType := "ORDER"
		movement.ReferenceType = &refType
	}

	item, err := uc.repo.AdjustReservation(ctx, input.InventoryItemID, -input.Quantity, movement)
	if err != nil {
		return nil, err
	}

	uc.checkAlerts(ctx, item)
	uc.invalidate(ctx, item.FarmID)
	return item, nil
}

func (uc *inventoryUseCase) ListMovements(ctx context.Context, f *dto.MovementFilters) ([]model.StockMovement, int, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = 50
	}
	return uc.repo.ListMovements(ctx, f)
}

func (uc *inventoryUseCase) ListAlerts(ctx context.Context, farmID string, unresolvedOnly bool) ([]model.InventoryAlert, error) {
	return uc.repo.ListAlerts(ctx, farmID, unresolvedOnly)
}

func (uc *inventoryUseCase) ResolveAlert(ctx context.Context, alertID, resolvedBy string) error {
	return uc.repo.ResolveAlert(ctx, alertID, resolvedBy)
}

func (uc *inventoryUseCase) CreateBatch(ctx context.Context, input *dto.CreateBatchInput) (*model.ProductBatch, error) {
	if input.InitialQuantity < 0 {
		return nil, apperrors.InvalidQuantity("initial quantity must not be negative, got %g", input.InitialQuantity)
	}

	now := time.Now()
	unit := input.Unit
	if unit == "" {
		unit = "lb"
	}
	grade := input.QualityGrade
	if grade == "" {
		grade = model.GradeA
	}

	batch := &model.ProductBatch{
		BaseModel: model.BaseModel{
			ID:        uuid.NewString(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		BatchNumber:     generateBatchNumber(input.FarmID, input.HarvestDate),
		ProductID:       input.ProductID,
		FarmID:          input.FarmID,
		HarvestDate:     input.HarvestDate,
		HarvestSeason:   inventory.CurrentSeason(input.HarvestDate),
		InitialQuantity: input.InitialQuantity,
		CurrentQuantity: input.InitialQuantity,
		Unit:            unit,
		QualityGrade:    grade,
		IsOrganic:       input.IsOrganic,
		Certifications:  input.Certifications,
		ExpiryDate:      input.ExpiryDate,
		Status:          "ACTIVE",
	}

	if err := uc.repo.CreateBatch(ctx, batch); err != nil {
		return nil, err
	}
	return batch, nil
}

func generateBatchNumber(farmID string, date time.Time) string {
	code := farmID
	if len(code) > 4 {
		code = code[:4]
	}
	return fmt.Sprintf("%s-%s-%d", code, date.Format("20060102"), time.Now().UnixMilli()%10000)
}

// lockItem serializes mutations on one item across processes. The conditional
// updates are the correctness guard; the lock just avoids thundering retries.
func (uc *inventoryUseCase) lockItem(ctx context.Context, itemID string) (func(), error) {
	if uc.cache == nil {
		return func() {}, nil
	}

	key := fmt.Sprintf(cache.KeyLockInventory, itemID)
	value := uuid.NewString()
	for i := 0; i < 3; i++ {
		ok, err := uc.cache.AcquireLock(ctx, key, value, cache.TTLLock)
		if err != nil {
			uc.logger.Error("failed to acquire inventory lock", zap.Error(err))
			break
		}
		if ok {
			return func() {
				if err := uc.cache.ReleaseLock(ctx, key, value); err != nil {
					uc.logger.Error("failed to release inventory lock", zap.Error(err))
				}
			}, nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	// Proceed without the lock; the DB guard still protects the invariant.
	return func() {}, nil
}

func (uc *inventoryUseCase) checkAlerts(ctx context.Context, item *model.InventoryItem) {
	alerts := inventory.BuildAlerts(item, time.Now())
	if len(alerts) == 0 {
		return
	}
	for i := range alerts {
		alerts[i].ID = uuid.NewString()
	}
	if err := uc.repo.InsertAlerts(ctx, alerts); err != nil {
		uc.logger.Error("failed to insert inventory alerts",
			zap.String("inventory_item_id", item.ID), zap.Error(err))
	}
}

func (uc *inventoryUseCase) invalidate(ctx context.Context, farmID string) {
	if uc.cache == nil {
		return
	}
	pattern := fmt.Sprintf(cache.PatternInventoryByFarm, farmID)
	if err := uc.cache.InvalidatePattern(ctx, pattern); err != nil {
		uc.logger.Error("failed to invalidate inventory cache",
			zap.String("farm_id", farmID), zap.Error(err))
	}
}
