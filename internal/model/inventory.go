package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type InventoryStatus string

const (
	InventoryInStock    InventoryStatus = "IN_STOCK"
	InventoryLowStock   InventoryStatus = "LOW_STOCK"
	InventoryOutOfStock InventoryStatus = "OUT_OF_STOCK"
	InventoryReserved   InventoryStatus = "RESERVED"
	InventoryDamaged    InventoryStatus = "DAMAGED"
	InventoryExpired    InventoryStatus = "EXPIRED"
	InventoryRecalled   InventoryStatus = "RECALLED"
)

type MovementType string

const (
	MovementHarvest     MovementType = "HARVEST"
	MovementSale        MovementType = "SALE"
	MovementAdjustment  MovementType = "ADJUSTMENT"
	MovementReservation MovementType = "RESERVATION"
	MovementRelease     MovementType = "RELEASE"
	MovementReturn      MovementType = "RETURN"
	MovementWaste       MovementType = "WASTE"
	MovementTransfer    MovementType = "TRANSFER"
)

type Season string

const (
	SeasonSpring Season = "SPRING"
	SeasonSummer Season = "SUMMER"
	SeasonAutumn Season = "AUTUMN"
	SeasonWinter Season = "WINTER"
)

type QualityGrade string

const (
	GradeA QualityGrade = "GRADE_A"
	GradeB QualityGrade = "GRADE_B"
	GradeC QualityGrade = "GRADE_C"
)

// InventoryItem is one (product, farm, batch, location) ledger row. Rows are
// never hard-deleted; exhausted stock transitions through status instead.
type InventoryItem struct {
	BaseModel
	ProductID        string          `db:"product_id" json:"product_id"`
	FarmID           string          `db:"farm_id" json:"farm_id"`
	BatchID          string          `db:"batch_id" json:"batch_id"`
	LocationID       string          `db:"location_id" json:"location_id"`
	Quantity         float64         `db:"quantity" json:"quantity"`
	ReservedQuantity float64         `db:"reserved_quantity" json:"reserved_quantity"`
	Unit             string          `db:"unit" json:"unit"`
	MinimumStock     float64         `db:"minimum_stock" json:"minimum_stock"`
	ReorderPoint     float64         `db:"reorder_point" json:"reorder_point"`
	Status           InventoryStatus `db:"status" json:"status"`
	Season           Season          `db:"season" json:"season"`
	HarvestDate      *time.Time      `db:"harvest_date" json:"harvest_date"`
	ExpiryDate       *time.Time      `db:"expiry_date" json:"expiry_date"`
	QualityGrade     QualityGrade    `db:"quality_grade" json:"quality_grade"`
	StorageCondition string          `db:"storage_condition" json:"storage_condition"`
	IsOrganic        bool            `db:"is_organic" json:"is_organic"`
	CostPerUnit      decimal.Decimal `db:"cost_per_unit" json:"cost_per_unit"`
	PricePerUnit     decimal.Decimal `db:"price_per_unit" json:"price_per_unit"`
	Notes            *string         `db:"notes" json:"notes,omitempty"`
}

// Available is the sellable portion right now.
func (i *InventoryItem) Available() float64 {
	return i.Quantity - i.ReservedQuantity
}

// StockMovement is an immutable audit record of one quantity delta.
type StockMovement struct {
	ID              string       `db:"id" json:"id"`
	InventoryItemID string       `db:"inventory_item_id" json:"inventory_item_id"`
	Type            MovementType `db:"type" json:"type"`
	QuantityBefore  float64      `db:"quantity_before" json:"quantity_before"`
	QuantityChange  float64      `db:"quantity_change" json:"quantity_change"`
	QuantityAfter   float64      `db:"quantity_after" json:"quantity_after"`
	ReferenceID     *string      `db:"reference_id" json:"reference_id"`
	ReferenceType   *string      `db:"reference_type" json:"reference_type"`
	PerformedBy     string       `db:"performed_by" json:"performed_by"`
	Reason          string       `db:"reason" json:"reason"`
	CreatedAt       time.Time    `db:"created_at" json:"created_at"`
}

// ProductBatch is a traceable harvest lot.
type ProductBatch struct {
	BaseModel
	BatchNumber     string       `db:"batch_number" json:"batch_number"`
	ProductID       string       `db:"product_id" json:"product_id"`
	FarmID          string       `db:"farm_id" json:"farm_id"`
	HarvestDate     time.Time    `db:"harvest_date" json:"harvest_date"`
	HarvestSeason   Season       `db:"harvest_season" json:"harvest_season"`
	InitialQuantity float64      `db:"initial_quantity" json:"initial_quantity"`
	CurrentQuantity float64      `db:"current_quantity" json:"current_quantity"`
	Unit            string       `db:"unit" json:"unit"`
	QualityGrade    QualityGrade `db:"quality_grade" json:"quality_grade"`
	IsOrganic       bool         `db:"is_organic" json:"is_organic"`
	Certifications  []string     `db:"-" json:"certifications"`
	ExpiryDate      *time.Time   `db:"expiry_date" json:"expiry_date"`
	Status          string       `db:"status" json:"status"`
}

type AlertType string

const (
	AlertLowStock     AlertType = "LOW_STOCK"
	AlertOutOfStock   AlertType = "OUT_OF_STOCK"
	AlertExpired      AlertType = "EXPIRED"
	AlertExpiringSoon AlertType = "EXPIRING_SOON"
)

type AlertSeverity string

const (
	SeverityWarning  AlertSeverity = "WARNING"
	SeverityCritical AlertSeverity = "CRITICAL"
)

// InventoryAlert is derived from ledger state after each mutation and stays
// open until resolved.
type InventoryAlert struct {
	ID              string        `db:"id" json:"id"`
	InventoryItemID string        `db:"inventory_item_id" json:"inventory_item_id"`
	FarmID          string        `db:"farm_id" json:"farm_id"`
	ProductID       string        `db:"product_id" json:"product_id"`
	Type            AlertType     `db:"type" json:"type"`
	Severity        AlertSeverity `db:"severity" json:"severity"`
	Message         string        `db:"message" json:"message"`
	CurrentValue    float64       `db:"current_value" json:"current_value"`
	ThresholdValue  float64       `db:"threshold_value" json:"threshold_value"`
	IsResolved      bool          `db:"is_resolved" json:"is_resolved"`
	ResolvedAt      *time.Time    `db:"resolved_at" json:"resolved_at"`
	ResolvedBy      *string       `db:"resolved_by" json:"resolved_by"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
}
