package dto

import (
	"github.com/harvestly/farmstand-service/internal/model"
	"github.com/shopspring/decimal"
)

type CreateProductInput struct {
	FarmID      string          `json:"farm_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Unit        string          `json:"unit"`
	IsOrganic   bool            `json:"is_organic"`
	ImageURL    string          `json:"image_url"`
}

type ProductFilters struct {
	FarmID    string
	Category  string
	Season    model.Season
	IsOrganic *bool
	MinPrice  *decimal.Decimal
	MaxPrice  *decimal.Decimal
	Search    string
	SortBy    string
	SortOrder string
	Page      int
	PageSize  int
}

type ProductList struct {
	Products []model.Product `json:"products"`
	Total    int             `json:"total"`
	Page     int             `json:"page"`
	Limit    int             `json:"limit"`
	HasMore  bool            `json:"has_more"`
}

type FarmFilters struct {
	City     string
	State    string
	Verified *bool
	Search   string
	Page     int
	PageSize int
}

type FarmList struct {
	Farms   []model.Farm `json:"farms"`
	Total   int          `json:"total"`
	Page    int          `json:"page"`
	Limit   int          `json:"limit"`
	HasMore bool         `json:"has_more"`
}

type Recommendations struct {
	Season     model.Season    `json:"season"`
	Categories []string        `json:"categories"`
	Products   []model.Product `json:"products"`
}
