package inventory

import (
	"context"

	"github.com/harvestly/farmstand-service/internal/inventory/dto"
	"github.com/harvestly/farmstand-service/internal/model"
)

type UseCase interface {
	CreateItem(ctx context.Context, input *dto.CreateItemInput) (*model.InventoryItem, error)
	GetItem(ctx context.Context, id string) (*model.InventoryItem, error)
	ListItems(ctx context.Context, f *dto.ItemFilters) (*dto.ItemList, error)
	Metrics(ctx context.Context, farmID string) (*dto.Metrics, error)

	AdjustStock(ctx context.Context, input *dto.AdjustStockInput) (*model.InventoryItem, error)
	ReserveStock(ctx context.Context, input *dto.ReserveStockInput) (*model.InventoryItem, error)
	ReleaseStock(ctx context.Context, input *dto.ReleaseStockInput) (*model.InventoryItem, error)

	ListMovements(ctx context.Context, f *dto.MovementFilters) ([]model.StockMovement, int, error)
	ListAlerts(ctx context.Context, farmID string, unresolvedOnly bool) ([]model.InventoryAlert, error)
	ResolveAlert(ctx context.Context, alertID, resolvedBy string) error

	CreateBatch(ctx context.Context, input *dto.CreateBatchInput) (*model.ProductBatch, error)
}
