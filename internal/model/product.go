package model

import "github.com/shopspring/decimal"

type ProductStatus string

const (
	ProductActive   ProductStatus = "ACTIVE"
	ProductInactive ProductStatus = "INACTIVE"
	ProductArchived ProductStatus = "ARCHIVED"
)

type Product struct {
	BaseModel
	FarmID      string          `db:"farm_id" json:"farm_id"`
	Name        string          `db:"name" json:"name"`
	Slug        string          `db:"slug" json:"slug"`
	Description *string         `db:"description" json:"description"`
	Category    string          `db:"category" json:"category"`
	Price       decimal.Decimal `db:"price" json:"price"`
	Unit        string          `db:"unit" json:"unit"`
	IsOrganic   bool            `db:"is_organic" json:"is_organic"`
	Status      ProductStatus   `db:"status" json:"status"`
	ImageURL    *string         `db:"image_url" json:"image_url"`
	Farm        *Farm           `db:"-" json:"farm,omitempty"`
}

// Farm aggregate fields (AverageRating, TotalOrders, TotalRevenue) are
// denormalized; a periodic recompute refreshes them outside the request path.
type Farm struct {
	BaseModel
	OwnerID       string          `db:"owner_id" json:"owner_id"`
	Name          string          `db:"name" json:"name"`
	Slug          string          `db:"slug" json:"slug"`
	Description   *string         `db:"description" json:"description"`
	City          string          `db:"city" json:"city"`
	State         string          `db:"state" json:"state"`
	IsVerified    bool            `db:"is_verified" json:"is_verified"`
	AverageRating float64         `db:"average_rating" json:"average_rating"`
	TotalOrders   int             `db:"total_orders" json:"total_orders"`
	TotalRevenue  decimal.Decimal `db:"total_revenue" json:"total_revenue"`
}

type User struct {
	BaseModel
	Email            string  `db:"email" json:"email"`
	Name             string  `db:"name" json:"name"`
	Role             string  `db:"role" json:"role"`
	StripeCustomerID *string `db:"stripe_customer_id" json:"-"`
}

type Review struct {
	BaseModel
	FarmID     string  `db:"farm_id" json:"farm_id"`
	ProductID  *string `db:"product_id" json:"product_id"`
	CustomerID string  `db:"customer_id" json:"customer_id"`
	Rating     int     `db:"rating" json:"rating"`
	Comment    *string `db:"comment" json:"comment"`
}
