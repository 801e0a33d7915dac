package dto

import (
	"time"

	"github.com/harvestly/farmstand-service/internal/model"
	"github.com/shopspring/decimal"
)

type CreateItemInput struct {
	ProductID        string             `json:"product_id"`
	FarmID           string             `json:"farm_id"`
	BatchID          string             `json:"batch_id"`
	LocationID       string             `json:"location_id"`
	Quantity         float64            `json:"quantity"`
	Unit             string             `json:"unit"`
	MinimumStock     float64            `json:"minimum_stock"`
	ReorderPoint     float64            `json:"reorder_point"`
	HarvestDate      *time.Time         `json:"harvest_date"`
	ExpiryDate       *time.Time         `json:"expiry_date"`
	QualityGrade     model.QualityGrade `json:"quality_grade"`
	StorageCondition string             `json:"storage_condition"`
	IsOrganic        bool               `json:"is_organic"`
	CostPerUnit      decimal.Decimal    `json:"cost_per_unit"`
	PricePerUnit     decimal.Decimal    `json:"price_per_unit"`
	Notes            string             `json:"notes"`
}

type AdjustStockInput struct {
	InventoryItemID string             `json:"inventory_item_id"`
	QuantityChange  float64            `json:"quantity_change"`
	Type            model.MovementType `json:"type"`
	Reason          string             `json:"reason"`
	ReferenceID     string             `json:"reference_id"`
	ReferenceType   string             `json:"reference_type"`
	PerformedBy     string             `json:"performed_by"`
}

type ReserveStockInput struct {
	InventoryItemID string  `json:"inventory_item_id"`
	Quantity        float64 `json:"quantity"`
	ReferenceID     string  `json:"reference_id"`
	ReferenceType   string  `json:"reference_type"`
	PerformedBy     string  `json:"performed_by"`
}

type ReleaseStockInput struct {
	InventoryItemID string  `json:"inventory_item_id"`
	Quantity        float64 `json:"quantity"`
	ReferenceID     string  `json:"reference_id"`
	PerformedBy     string  `json:"performed_by"`
}

type CreateBatchInput struct {
	ProductID       string             `json:"product_id"`
	FarmID          string             `json:"farm_id"`
	HarvestDate     time.Time          `json:"harvest_date"`
	InitialQuantity float64            `json:"initial_quantity"`
	Unit            string             `json:"unit"`
	QualityGrade    model.QualityGrade `json:"quality_grade"`
	IsOrganic       bool               `json:"is_organic"`
	Certifications  []string           `json:"certifications"`
	ExpiryDate      *time.Time         `json:"expiry_date"`
}
