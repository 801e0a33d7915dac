package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/harvestly/farmstand-service/internal/apperrors"
	"github.com/harvestly/farmstand-service/internal/marketplace"
	"github.com/harvestly/farmstand-service/internal/marketplace/dto"
	"github.com/harvestly/farmstand-service/internal/model"
	"github.com/jmoiron/sqlx"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) marketplace.Repository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) CreateProduct(ctx context.Context, p *model.Product) error {
	_, err := r.DB.NamedExecContext(ctx, `
		INSERT INTO products (id, farm_id, name, slug, description, category, price, unit, is_organic, status, image_url, created_at, updated_at)
		VALUES (:id, :farm_id, :name, :slug, :description, :category, :price, :unit, :is_organic, :status, :image_url, :created_at, :updated_at)`, p)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (r *PGRepository) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	var p model.Product
	if err := r.DB.GetContext(ctx, &p, `SELECT * FROM products WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("product %s not found", id)
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	var farm model.Farm
	if err := r.DB.GetContext(ctx, &farm, `SELECT * FROM farms WHERE id = $1`, p.FarmID); err == nil {
		p.Farm = &farm
	}
	return &p, nil
}

func (r *PGRepository) GetProductsByIDs(ctx context.Context, ids []string) ([]model.Product, error) {
	if len(ids) == 0 {
		return []model.Product{}, nil
	}
	query, args, err := sqlx.In(`SELECT * FROM products WHERE id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("build products query: %w", err)
	}
	products := []model.Product{}
	if err := r.DB.SelectContext(ctx, &products, r.DB.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("get products by ids: %w", err)
	}

	// Preserve the caller's ordering, which carries search relevance.
	byID := make(map[string]model.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	ordered := make([]model.Product, 0, len(products))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			ordered = append(ordered, p)
		}
	}
	return ordered, nil
}

var productSortColumns = map[string]string{
	"price":      "price",
	"name":       "name",
	"created_at": "created_at",
}

func (r *PGRepository) FindProducts(ctx context.Context, f *dto.ProductFilters) ([]model.Product, int, error) {
	conditions := []string{"status = ?"}
	args := []any{model.ProductActive}

	if f.FarmID != "" {
		conditions = append(conditions, "farm_id = ?")
		args = append(args, f.FarmID)
	}
	if f.Category != "" {
		conditions = append(conditions, "category = ?")
		args = append(args, f.Category)
	}
	if f.IsOrganic != nil {
		conditions = append(conditions, "is_organic = ?")
		args = append(args, *f.IsOrganic)
	}
	if f.MinPrice != nil {
		conditions = append(conditions, "price >= ?")
		args = append(args, *f.MinPrice)
	}
	if f.MaxPrice != nil {
		conditions = append(conditions, "price <= ?")
		args = append(args, *f.MaxPrice)
	}
	if f.Search != "" {
		conditions = append(conditions, "(name ILIKE ? OR description ILIKE ? OR category ILIKE ?)")
		pattern := "%" + f.Search + "%"
		args = append(args, pattern, pattern, pattern)
	}
	where := strings.Join(conditions, " AND ")

	countQuery, countArgs, err := sqlx.In("SELECT COUNT(*) FROM products WHERE "+where, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("build count query: %w", err)
	}
	var total int
	if err := r.DB.GetContext(ctx, &total, r.DB.Rebind(countQuery), countArgs...); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	sortBy := "created_at"
	if col, ok := productSortColumns[f.SortBy]; ok {
		sortBy = col
	}
	sortOrder := "DESC"
	if strings.EqualFold(f.SortOrder, "asc") {
		sortOrder = "ASC"
	}

	offset := (f.Page - 1) * f.PageSize
	listQuery, listArgs, err := sqlx.In(
		fmt.Sprintf("SELECT * FROM products WHERE %s ORDER BY %s %s LIMIT ? OFFSET ?", where, sortBy, sortOrder),
		append(args, f.PageSize, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("build list query: %w", err)
	}
	products := []model.Product{}
	if err := r.DB.SelectContext(ctx, &products, r.DB.Rebind(listQuery), listArgs...); err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	return products, total, nil
}

func (r *PGRepository) GetFarm(ctx context.Context, id string) (*model.Farm, error) {
	var farm model.Farm
	if err := r.DB.GetContext(ctx, &farm, `SELECT * FROM farms WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("farm %s not found", id)
		}
		return nil, fmt.Errorf("get farm: %w", err)
	}
	return &farm, nil
}

func (r *PGRepository) FindFarms(ctx context.Context, f *dto.FarmFilters) ([]model.Farm, int, error) {
	conditions := []string{"1=1"}
	args := []any{}

	if f.City != "" {
		conditions = append(conditions, "city ILIKE ?")
		args = append(args, f.City)
	}
	if f.State != "" {
		conditions = append(conditions, "state = ?")
		args = append(args, f.State)
	}
	if f.Verified != nil {
		conditions = append(conditions, "is_verified = ?")
		args = append(args, *f.Verified)
	}
	if f.Search != "" {
		conditions = append(conditions, "(name ILIKE ? OR description ILIKE ?)")
		pattern := "%" + f.Search + "%"
		args = append(args, pattern, pattern)
	}
	where := strings.Join(conditions, " AND ")

	countQuery, countArgs, err := sqlx.In("SELECT COUNT(*) FROM farms WHERE "+where, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("build count query: %w", err)
	}
	var total int
	if err := r.DB.GetContext(ctx, &total, r.DB.Rebind(countQuery), countArgs...); err != nil {
		return nil, 0, fmt.Errorf("count farms: %w", err)
	}

	offset := (f.Page - 1) * f.PageSize
	listQuery, listArgs, err := sqlx.In(
		"SELECT * FROM farms WHERE "+where+" ORDER BY average_rating DESC, total_orders DESC LIMIT ? OFFSET ?",
		append(args, f.PageSize, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("build list query: %w", err)
	}
	farms := []model.Farm{}
	if err := r.DB.SelectContext(ctx, &farms, r.DB.Rebind(listQuery), listArgs...); err != nil {
		return nil, 0, fmt.Errorf("list farms: %w", err)
	}
	return farms, total, nil
}

func (r *PGRepository) RefreshFarmStats(ctx context.Context) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE farms f SET
			average_rating = COALESCE(r.avg_rating, 0),
			total_orders = COALESCE(o.order_count, 0),
			total_revenue = COALESCE(o.revenue, 0),
			updated_at = now()
		FROM (SELECT id FROM farms) ids
		LEFT JOIN (
			SELECT farm_id, AVG(rating)::float AS avg_rating
			FROM reviews GROUP BY farm_id
		) r ON r.farm_id = ids.id
		LEFT JOIN (
			SELECT farm_id, COUNT(*) AS order_count, SUM(total) AS revenue
			FROM orders WHERE status IN ('COMPLETED', 'DELIVERED')
			GROUP BY farm_id
		) o ON o.farm_id = ids.id
		WHERE f.id = ids.id`)
	if err != nil {
		return fmt.Errorf("refresh farm stats: %w", err)
	}
	return nil
}
