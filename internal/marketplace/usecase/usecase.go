package usecase

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harvestly/farmstand-service/internal/apperrors"
	"github.com/harvestly/farmstand-service/internal/inventory"
	"github.com/harvestly/farmstand-service/internal/marketplace"
	"github.com/harvestly/farmstand-service/internal/marketplace/dto"
	"github.com/harvestly/farmstand-service/internal/model"
	"github.com/harvestly/farmstand-service/internal/payments"
	"github.com/harvestly/farmstand-service/internal/pkg/cache"
	"github.com/harvestly/farmstand-service/internal/pkg/search"
	"go.uber.org/zap"
)

const (
	productIndex = "marketplace-products"
	maxPageSize  = 100
)

const productMapping = `{
	"mappings": {
		"properties": {
			"name":        {"type": "text"},
			"description": {"type": "text"},
			"category":    {"type": "keyword"},
			"farm_id":     {"type": "keyword"},
			"is_organic":  {"type": "boolean"},
			"price":       {"type": "double"},
			"status":      {"type": "keyword"}
		}
	}
}`

// seasonalCategories maps the current season to produce categories featured on
// the storefront.
var seasonalCategories = map[model.Season][]string{
	model.SeasonSpring: {"greens", "herbs", "berries", "eggs"},
	model.SeasonSummer: {"tomatoes", "stone-fruit", "corn", "melons"},
	model.SeasonAutumn: {"squash", "apples", "root-vegetables", "pumpkins"},
	model.SeasonWinter: {"root-vegetables", "citrus", "preserves", "dairy"},
}

type marketplaceUseCase struct {
	repo      marketplace.Repository
	search    *search.Client
	cache     *cache.Client
	processor payments.Processor
	logger    *zap.Logger
}

func NewMarketplaceUseCase(
	repo marketplace.Repository,
	searchClient *search.Client,
	cacheClient *cache.Client,
	processor payments.Processor,
	log *zap.Logger,
) marketplace.UseCase {
	uc := &marketplaceUseCase{
		repo:      repo,
		search:    searchClient,
		cache:     cacheClient,
		processor: processor,
		logger:    log,
	}
	if searchClient != nil {
		if err := searchClient.CreateIndex(context.Background(), productIndex, productMapping); err != nil {
			log.Warn("failed to ensure product index", zap.Error(err))
		}
	}
	return uc
}

func (uc *marketplaceUseCase) CreateProduct(ctx context.Context, input *dto.CreateProductInput) (*model.Product, error) {
	if input.Name == "" || input.FarmID == "" {
		return nil, apperrors.Validation("name and farm_id are required")
	}
	if !input.Price.IsPositive() {
		return nil, apperrors.Validation("price must be positive")
	}

	now := time.Now()
	p := &model.Product{
		BaseModel: model.BaseModel{
			ID:        uuid.NewString(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		FarmID:    input.FarmID,
		Name:      input.Name,
		Slug:      slugify(input.Name),
		Category:  strings.ToLower(input.Category),
		Price:     input.Price,
		Unit:      input.Unit,
		IsOrganic: input.IsOrganic,
		Status:    model.ProductActive,
	}
	if input.Description != "" {
		p.Description = &input.Description
	}
	if input.ImageURL != "" {
		p.ImageURL = &input.ImageURL
	}

	if err := uc.repo.CreateProduct(ctx, p); err != nil {
		return nil, err
	}

	// Mirror the product at the payment provider so the storefront can sell
	// it with hosted checkout flows. Failures leave the product sellable
	// through payment intents regardless.
	if ref, err := uc.processor.CreateProduct(ctx, p.Name); err != nil {
		uc.logger.Warn("failed to mirror product at payment provider",
			zap.String("product_id", p.ID), zap.Error(err))
	} else if _, err := uc.processor.CreatePrice(ctx, ref, p.Price); err != nil {
		uc.logger.Warn("failed to create provider price",
			zap.String("product_id", p.ID), zap.Error(err))
	}

	uc.indexProduct(ctx, p)
	uc.invalidateLists(ctx)
	return p, nil
}

func (uc *marketplaceUseCase) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	return uc.repo.GetProduct(ctx, id)
}

func (uc *marketplaceUseCase) SearchProducts(ctx context.Context, f *dto.ProductFilters) (*dto.ProductList, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = 20
	}
	if f.PageSize > maxPageSize {
		f.PageSize = maxPageSize
	}

	cacheKey := uc.listCacheKey(f)
	if uc.cache != nil {
		var cached dto.ProductList
		if hit, err := uc.cache.GetJSON(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	var (
		products []model.Product
		total    int
		err      error
	)
	if f.Search != "" && uc.search != nil {
		products, total, err = uc.searchViaIndex(ctx, f)
		if err != nil {
			uc.logger.Warn("search index unavailable, falling back to database", zap.Error(err))
			products, total, err = uc.repo.FindProducts(ctx, f)
		}
	} else {
		products, total, err = uc.repo.FindProducts(ctx, f)
	}
	if err != nil {
		return nil, err
	}

	list := &dto.ProductList{
		Products: products,
		Total:    total,
		Page:     f.Page,
		Limit:    f.PageSize,
		HasMore:  f.Page*f.PageSize < total,
	}
	if uc.cache != nil {
		if err := uc.cache.SetJSON(ctx, cacheKey, list, cache.TTLList); err != nil {
			uc.logger.Warn("failed to cache product list", zap.Error(err))
		}
	}
	return list, nil
}

func (uc *marketplaceUseCase) searchViaIndex(ctx context.Context, f *dto.ProductFilters) ([]model.Product, int, error) {
	must := []map[string]any{{
		"multi_match": map[string]any{
			"query":     f.Search,
			"fields":    []string{"name^3", "description", "category^2"},
			"fuzziness": "AUTO",
		},
	}}
	filter := []map[string]any{{"term": map[string]any{"status": string(model.ProductActive)}}}
	if f.FarmID != "" {
		filter = append(filter, map[string]any{"term": map[string]any{"farm_id": f.FarmID}})
	}
	if f.Category != "" {
		filter = append(filter, map[string]any{"term": map[string]any{"category": f.Category}})
	}
	if f.IsOrganic != nil {
		filter = append(filter, map[string]any{"term": map[string]any{"is_organic": *f.IsOrganic}})
	}
	if f.MinPrice != nil || f.MaxPrice != nil {
		priceRange := map[string]any{}
		if f.MinPrice != nil {
			priceRange["gte"] = f.MinPrice.InexactFloat64()
		}
		if f.MaxPrice != nil {
			priceRange["lte"] = f.MaxPrice.InexactFloat64()
		}
		filter = append(filter, map[string]any{"range": map[string]any{"price": priceRange}})
	}

	query := map[string]any{
		"from": (f.Page - 1) * f.PageSize,
		"size": f.PageSize,
		"query": map[string]any{
			"bool": map[string]any{"must": must, "filter": filter},
		},
	}

	result, err := uc.search.Search(ctx, productIndex, query)
	if err != nil {
		return nil, 0, err
	}

	ids := make([]string, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		ids = append(ids, hit.ID)
	}
	products, err := uc.repo.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	return products, result.Hits.Total.Value, nil
}

func (uc *marketplaceUseCase) GetFarm(ctx context.Context, id string) (*model.Farm, error) {
	return uc.repo.GetFarm(ctx, id)
}

func (uc *marketplaceUseCase) ListFarms(ctx context.Context, f *dto.FarmFilters) (*dto.FarmList, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = 20
	}
	if f.PageSize > maxPageSize {
		f.PageSize = maxPageSize
	}
	farms, total, err := uc.repo.FindFarms(ctx, f)
	if err != nil {
		return nil, err
	}
	return &dto.FarmList{
		Farms:   farms,
		Total:   total,
		Page:    f.Page,
		Limit:   f.PageSize,
		HasMore: f.Page*f.PageSize < total,
	}, nil
}

func (uc *marketplaceUseCase) Recommendations(ctx context.Context) (*dto.Recommendations, error) {
	season := inventory.CurrentSeason(time.Now())
	categories := seasonalCategories[season]

	rec := &dto.Recommendations{Season: season, Categories: categories}
	for _, category := range categories {
		products, _, err := uc.repo.FindProducts(ctx, &dto.ProductFilters{
			Category: category,
			Page:     1,
			PageSize: 4,
		})
		if err != nil {
			return nil, err
		}
		rec.Products = append(rec.Products, products...)
	}
	return rec, nil
}

func (uc *marketplaceUseCase) ReindexProducts(ctx context.Context) error {
	if uc.search == nil {
		return apperrors.New(apperrors.CodeInternal, "search is not configured")
	}

	page := 1
	for {
		products, total, err := uc.repo.FindProducts(ctx, &dto.ProductFilters{Page: page, PageSize: maxPageSize})
		if err != nil {
			return err
		}
		for i := range products {
			uc.indexProduct(ctx, &products[i])
		}
		if page*maxPageSize >= total {
			return nil
		}
		page++
	}
}

func (uc *marketplaceUseCase) indexProduct(ctx context.Context, p *model.Product) {
	if uc.search == nil {
		return
	}
	doc := map[string]any{
		"name":       p.Name,
		"category":   p.Category,
		"farm_id":    p.FarmID,
		"is_organic": p.IsOrganic,
		"price":      p.Price.InexactFloat64(),
		"status":     string(p.Status),
	}
	if p.Description != nil {
		doc["description"] = *p.Description
	}
	if err := uc.search.Index(ctx, productIndex, p.ID, doc); err != nil {
		uc.logger.Warn("failed to index product", zap.String("product_id", p.ID), zap.Error(err))
	}
}

func (uc *marketplaceUseCase) listCacheKey(f *dto.ProductFilters) string {
	raw, _ := json.Marshal(f)
	return fmt.Sprintf(cache.KeyMarketplaceList, md5.Sum(raw))
}

func (uc *marketplaceUseCase) invalidateLists(ctx context.Context) {
	if uc.cache == nil {
		return
	}
	if err := uc.cache.InvalidatePattern(ctx, cache.PatternMarketplace); err != nil {
		uc.logger.Warn("failed to invalidate marketplace cache", zap.Error(err))
	}
}

func slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r == ' ' || r == '-' || r == '_':
			return '-'
		default:
			return -1
		}
	}, slug)
	return strings.Trim(slug, "-")
}
