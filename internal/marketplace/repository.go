package marketplace

import (
	"context"

	"github.com/harvestly/farmstand-service/internal/marketplace/dto"
	"github.com/harvestly/farmstand-service/internal/model"
)

type Repository interface {
	CreateProduct(ctx context.Context, p *model.Product) error
	GetProduct(ctx context.Context, id string) (*model.Product, error)
	GetProductsByIDs(ctx context.Context, ids []string) ([]model.Product, error)
	FindProducts(ctx context.Context, f *dto.ProductFilters) ([]model.Product, int, error)

	GetFarm(ctx context.Context, id string) (*model.Farm, error)
	FindFarms(ctx context.Context, f *dto.FarmFilters) ([]model.Farm, int, error)

	// RefreshFarmStats recomputes the denormalized rating and order aggregates
	// for every farm. Runs on a timer, never in a request.
	RefreshFarmStats(ctx context.Context) error
}

type UseCase interface {
	CreateProduct(ctx context.Context, input *dto.CreateProductInput) (*model.Product, error)
	GetProduct(ctx context.Context, id string) (*model.Product, error)
	SearchProducts(ctx context.Context, f *dto.ProductFilters) (*dto.ProductList, error)

	GetFarm(ctx context.Context, id string) (*model.Farm, error)
	ListFarms(ctx context.Context, f *dto.FarmFilters) (*dto.FarmList, error)

	Recommendations(ctx context.Context) (*dto.Recommendations, error)
	ReindexProducts(ctx context.Context) error
}
