package inventory

import (
	"context"

	"github.com/harvestly/farmstand-service/internal/inventory/dto"
	"github.com/harvestly/farmstand-service/internal/model"
)

type Repository interface {
	GetByID(ctx context.Context, id string) (*model.InventoryItem, error)
	FindByNaturalKey(ctx context.Context, productID, farmID, batchID, locationID string) (*model.InventoryItem, error)
	FindAll(ctx context.Context, f *dto.ItemFilters) ([]model.InventoryItem, int, error)
	FindAllByFarm(ctx context.Context, farmID string) ([]model.InventoryItem, error)

	// Create inserts the item and its opening movement in one transaction.
	// The natural key (product, farm, batch, location) is unique-indexed.
	Create(ctx context.Context, item *model.InventoryItem, movement *model.StockMovement) error

	// AdjustQuantity applies delta as a single conditional UPDATE plus the
	// movement insert inside one transaction. gateOnAvailable additionally
	// requires quantity-reserved to cover a negative delta. The returned item
	// reflects the post-update row.
	AdjustQuantity(ctx context.Context, id string, delta float64, gateOnAvailable bool, movement *model.StockMovement) (*model.InventoryItem, error)

	// AdjustReservation applies delta to reservedQuantity under the invariant
	// 0 <= reserved <= quantity, same transactional shape as AdjustQuantity.
	AdjustReservation(ctx context.Context, id string, delta float64, movement *model.StockMovement) (*model.InventoryItem, error)

	UpdateStatus(ctx context.Context, id string, status model.InventoryStatus) error

	ListMovements(ctx context.Context, f *dto.MovementFilters) ([]model.StockMovement, int, error)

	// InsertAlerts skips duplicates: at most one open alert per (item, type).
	InsertAlerts(ctx context.Context, alerts []model.InventoryAlert) error
	ListAlerts(ctx context.Context, farmID string, unresolvedOnly bool) ([]model.InventoryAlert, error)
	ResolveAlert(ctx context.Context, alertID, resolvedBy string) error

	CreateBatch(ctx context.Context, batch *model.ProductBatch) error
	AdjustBatchQuantity(ctx context.Context, batchID string, delta float64) error
}
