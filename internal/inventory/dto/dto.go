package dto

import (
	"time"

	"github.com/harvestly/farmstand-service/internal/model"
	"github.com/shopspring/decimal"
)

type ItemFilters struct {
	FarmID             string                  `json:"farm_id"`
	ProductID          string                  `json:"product_id"`
	Status             []model.InventoryStatus `json:"status"`
	Season             []model.Season          `json:"season"`
	QualityGrade       []model.QualityGrade    `json:"quality_grade"`
	StorageCondition   []string                `json:"storage_condition"`
	LocationID         string                  `json:"location_id"`
	IsOrganic          *bool                   `json:"is_organic"`
	LowStock           bool                    `json:"low_stock"`
	ExpiringWithinDays int                     `json:"expiring_within_days"`
	Search             string                  `json:"search"`
	Page               int                     `json:"page"`
	PageSize           int                     `json:"page_size"`
	SortBy             string                  `json:"sort_by"`
	SortOrder          string                  `json:"sort_order"`
}

type MovementFilters struct {
	InventoryItemID string
	FarmID          string
	Type            model.MovementType
	StartDate       *time.Time
	EndDate         *time.Time
	Page            int
	PageSize        int
}

type ItemList struct {
	Items   []model.InventoryItem `json:"items"`
	Total   int                   `json:"total"`
	Page    int                   `json:"page"`
	Limit   int                   `json:"limit"`
	HasMore bool                  `json:"has_more"`
}

type TopProduct struct {
	ProductID string          `json:"product_id"`
	Quantity  float64         `json:"quantity"`
	Value     decimal.Decimal `json:"value"`
}

type Metrics struct {
	TotalItems           int                           `json:"total_items"`
	TotalValue           decimal.Decimal               `json:"total_value"`
	ByStatus             map[model.InventoryStatus]int `json:"by_status"`
	LowStockItems        int                           `json:"low_stock_items"`
	ExpiringWithin7Days  int                           `json:"expiring_within_7_days"`
	ExpiringWithin30Days int                           `json:"expiring_within_30_days"`
	TopProductsByValue   []TopProduct                  `json:"top_products_by_value"`
}
