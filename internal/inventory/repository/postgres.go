package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/harvestly/farmstand-service/internal/apperrors"
	"github.com/harvestly/farmstand-service/internal/inventory"
	"github.com/harvestly/farmstand-service/internal/inventory/dto"
	"github.com/harvestly/farmstand-service/internal/model"
	"github.com/jmoiron/sqlx"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) GetByID(ctx context.Context, id string) (*model.InventoryItem, error) {
	var item model.InventoryItem
	err := r.DB.GetContext(ctx, &item, `SELECT * FROM inventory_items WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("inventory item %s not found", id)
		}
		return nil, err
	}
	return &item, nil
}

func (r *PGRepository) FindByNaturalKey(ctx context.Context, productID, farmID, batchID, locationID string) (*model.InventoryItem, error) {
	var item model.InventoryItem
	err := r.DB.GetContext(ctx, &item, `
        SELECT * FROM inventory_items
        WHERE product_id = $1 AND farm_id = $2 AND batch_id = $3 AND location_id = $4`,
		productID, farmID, batchID, locationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.ItemFilters) ([]model.InventoryItem, int, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}

	if f.FarmID != "" {
		conditions = append(conditions, "farm_id = ?")
		args = append(args, f.FarmID)
	}
	if f.ProductID != "" {
		conditions = append(conditions, "product_id = ?")
		args = append(args, f.ProductID)
	}
	if f.LocationID != "" {
		conditions = append(conditions, "location_id = ?")
		args = append(args, f.LocationID)
	}
	if len(f.Status) > 0 {
		conditions = append(conditions, "status IN (?)")
		args = append(args, f.Status)
	}
	if len(f.Season) > 0 {
		conditions = append(conditions, "season IN (?)")
		args = append(args, f.Season)
	}
	if len(f.QualityGrade) > 0 {
		conditions = append(conditions, "quality_grade IN (?)")
		args = append(args, f.QualityGrade)
	}
	if len(f.StorageCondition) > 0 {
		conditions = append(conditions, "storage_condition IN (?)")
		args = append(args, f.StorageCondition)
	}
	if f.IsOrganic != nil {
		conditions = append(conditions, "is_organic = ?")
		args = append(args, *f.IsOrganic)
	}
	if f.LowStock {
		conditions = append(conditions, "quantity <= reorder_point")
	}
	if f.ExpiringWithinDays > 0 {
		conditions = append(conditions, "expiry_date IS NOT NULL AND expiry_date >= now() AND expiry_date <= ?")
		args = append(args, time.Now().AddDate(0, 0, f.ExpiringWithinDays))
	}
	if f.Search != "" {
		conditions = append(conditions,
			`(batch_id ILIKE ? OR storage_condition ILIKE ? OR EXISTS (
                SELECT 1 FROM products p WHERE p.id = inventory_items.product_id AND p.name ILIKE ?))`)
		pattern := "%" + f.Search + "%"
		args = append(args, pattern, pattern, pattern)
	}

	where := " WHERE " + strings.Join(conditions, " AND ")

	countQuery, countArgs, err := sqlx.In("SELECT count(*) FROM inventory_items"+where, args...)
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := r.DB.GetContext(ctx, &total, r.DB.Rebind(countQuery), countArgs...); err != nil {
		return nil, 0, err
	}

	sortBy := "updated_at"
	switch f.SortBy {
	case "quantity", "expiry_date", "harvest_date", "created_at":
		sortBy = f.SortBy
	}
	order := "DESC"
	if strings.EqualFold(f.SortOrder, "asc") {
		order = "ASC"
	}

	query := "SELECT * FROM inventory_items" + where + fmt.Sprintf(" ORDER BY %s %s", sortBy, order)
	if f.PageSize > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, (f.Page-1)*f.PageSize)
	}

	listQuery, listArgs, err := sqlx.In(query, args...)
	if err != nil {
		return nil, 0, err
	}
	var items []model.InventoryItem
	if err := r.DB.SelectContext(ctx, &items, r.DB.Rebind(listQuery), listArgs...); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *PGRepository) FindAllByFarm(ctx context.Context, farmID string) ([]model.InventoryItem, error) {
	var items []model.InventoryItem
	err := r.DB.SelectContext(ctx, &items,
		`SELECT * FROM inventory_items WHERE farm_id = $1 ORDER BY updated_at DESC`, farmID)
	return items, err
}

func (r *PGRepository) Create(ctx context.Context, item *model.InventoryItem, movement *model.StockMovement) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.NamedExecContext(ctx, `
        INSERT INTO inventory_items (
            id, product_id, farm_id, batch_id, location_id,
            quantity, reserved_quantity, unit, minimum_stock, reorder_point,
            status, season, harvest_date, expiry_date, quality_grade,
            storage_condition, is_organic, cost_per_unit, price_per_unit, notes,
            created_at, updated_at
        ) VALUES (
            :id, :product_id, :farm_id, :batch_id, :location_id,
            :quantity, :reserved_quantity, :unit, :minimum_stock, :reorder_point,
            :status, :season, :harvest_date, :expiry_date, :quality_grade,
            :storage_condition, :is_organic, :cost_per_unit, :price_per_unit, :notes,
            :created_at, :updated_at
        )`, item)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflict("inventory item already exists for this product, farm, batch and location")
		}
		return fmt.Errorf("insert inventory item: %w", err)
	}

	if err := insertMovement(ctx, tx, movement); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *PGRepository) AdjustQuantity(ctx context.Context, id string, delta float64, gateOnAvailable bool, movement *model.StockMovement) (*model.InventoryItem, error) {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// Single conditional update: the WHERE clause is the stock guard, so two
	// concurrent adjustments can never both pass a stale read.
	query := `
        UPDATE inventory_items
        SET quantity = quantity + $2, updated_at = now()
        WHERE id = $1 AND quantity + $2 >= 0`
	if gateOnAvailable {
		query += ` AND quantity - reserved_quantity + $2 >= 0`
	}
	query += ` RETURNING *`

	var item model.InventoryItem
	if err := tx.GetContext(ctx, &item, query, id, delta); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, r.rejectAdjust(ctx, id, delta, gateOnAvailable)
		}
		return nil, err
	}

	item.Status = inventory.DeriveStatus(item.Quantity, item.ReorderPoint)
	if _, err := tx.ExecContext(ctx,
		`UPDATE inventory_items SET status = $2 WHERE id = $1`, id, item.Status); err != nil {
		return nil, err
	}

	movement.QuantityAfter = item.Quantity
	movement.QuantityBefore = item.Quantity - delta
	movement.QuantityChange = delta
	if err := insertMovement(ctx, tx, movement); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &item, nil
}

// rejectAdjust distinguishes a missing row from a stock shortage after the
// guarded update matched nothing.
func (r *PGRepository) rejectAdjust(ctx context.Context, id string, delta float64, gateOnAvailable bool) error {
	var cur struct {
		Quantity float64 `db:"quantity"`
		Reserved float64 `db:"reserved_quantity"`
	}
	err := r.DB.GetContext(ctx, &cur,
		`SELECT quantity, reserved_quantity FROM inventory_items WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.NotFound("inventory item %s not found", id)
	}
	if err != nil {
		return err
	}
	available := cur.Quantity
	if gateOnAvailable {
		available = cur.Quantity - cur.Reserved
	}
	return apperrors.InsufficientStock("requested %g exceeds available %g", -delta, available)
}

func (r *PGRepository) AdjustReservation(ctx context.Context, id string, delta float64, movement *model.StockMovement) (*model.InventoryItem, error) {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var item model.InventoryItem
	err = tx.GetContext(ctx, &item, `
        UPDATE inventory_items
        SET reserved_quantity = reserved_quantity + $2, updated_at = now()
        WHERE id = $1
          AND reserved_quantity + $2 >= 0
          AND reserved_quantity + $2 <= quantity
        RETURNING *`, id, delta)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, r.rejectReservation(ctx, id, delta)
		}
		return nil, err
	}

	movement.QuantityAfter = item.ReservedQuantity
	movement.QuantityBefore = item.ReservedQuantity - delta
	movement.QuantityChange = delta
	if err := insertMovement(ctx, tx, movement); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *PGRepository) rejectReservation(ctx context.Context, id string, delta float64) error {
	var cur struct {
		Quantity float64 `db:"quantity"`
		Reserved float64 `db:"reserved_quantity"`
	}
	err := r.DB.GetContext(ctx, &cur,
		`SELECT quantity, reserved_quantity FROM inventory_items WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.NotFound("inventory item %s not found", id)
	}
	if err != nil {
		return err
	}
	if delta > 0 {
		return apperrors.InsufficientStock("cannot reserve %g, only %g available", delta, cur.Quantity-cur.Reserved)
	}
	return apperrors.InsufficientStock("cannot release %g, only %g reserved", -delta, cur.Reserved)
}

func (r *PGRepository) UpdateStatus(ctx context.Context, id string, status model.InventoryStatus) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE inventory_items SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NotFound("inventory item %s not found", id)
	}
	return nil
}

func insertMovement(ctx context.Context, tx *sqlx.Tx, m *model.StockMovement) error {
	_, err := tx.NamedExecContext(ctx, `
        INSERT INTO stock_movements (
            id, inventory_item_id, type, quantity_before, quantity_change,
            quantity_after, reference_id, reference_type, performed_by, reason, created_at
        ) VALUES (
            :id, :inventory_item_id, :type, :quantity_before, :quantity_change,
            :quantity_after, :reference_id, :reference_type, :performed_by, :reason, :created_at
        )`, m)
	if err != nil {
		return fmt.Errorf("insert stock movement: %w", err)
	}
	return nil
}

func (r *PGRepository) ListMovements(ctx context.Context, f *dto.MovementFilters) ([]model.StockMovement, int, error) {
	conditions := []string{}
	args := map[string]interface{}{}

	if f.InventoryItemID != "" {
		conditions = append(conditions, "inventory_item_id = :inventory_item_id")
		args["inventory_item_id"] = f.InventoryItemID
	}
	if f.FarmID != "" {
		conditions = append(conditions, `inventory_item_id IN (
            SELECT id FROM inventory_items WHERE farm_id = :farm_id)`)
		args["farm_id"] = f.FarmID
	}
	if f.Type != "" {
		conditions = append(conditions, "type = :type")
		args["type"] = f.Type
	}
	if f.StartDate != nil {
		conditions = append(conditions, "created_at >= :start_date")
		args["start_date"] = *f.StartDate
	}
	if f.EndDate != nil {
		conditions = append(conditions, "created_at <= :end_date")
		args["end_date"] = *f.EndDate
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	rows, err := r.DB.NamedQueryContext(ctx, "SELECT count(*) FROM stock_movements"+where, args)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&total); err != nil {
			return nil, 0, err
		}
	}

	query := "SELECT * FROM stock_movements" + where + " ORDER BY created_at DESC"
	if f.PageSize > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, (f.Page-1)*f.PageSize)
	}

	nstmt, err := r.DB.PrepareNamedContext(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	defer nstmt.Close()

	var movements []model.StockMovement
	err = nstmt.SelectContext(ctx, &movements, args)
	return movements, total, err
}

func (r *PGRepository) InsertAlerts(ctx context.Context, alerts []model.InventoryAlert) error {
	for i := range alerts {
		_, err := r.DB.NamedExecContext(ctx, `
            INSERT INTO inventory_alerts (
                id, inventory_item_id, farm_id, product_id, type, severity,
                message, current_value, threshold_value, is_resolved, created_at
            ) VALUES (
                :id, :inventory_item_id, :farm_id, :product_id, :type, :severity,
                :message, :current_value, :threshold_value, false, :created_at
            )
            ON CONFLICT (inventory_item_id, type) WHERE NOT is_resolved DO NOTHING`,
			&alerts[i])
		if err != nil {
			return fmt.Errorf("insert alert: %w", err)
		}
	}
	return nil
}

func (r *PGRepository) ListAlerts(ctx context.Context, farmID string, unresolvedOnly bool) ([]model.InventoryAlert, error) {
	query := `SELECT * FROM inventory_alerts WHERE farm_id = $1`
	if unresolvedOnly {
		query += ` AND NOT is_resolved`
	}
	query += ` ORDER BY created_at DESC`

	var alerts []model.InventoryAlert
	err := r.DB.SelectContext(ctx, &alerts, query, farmID)
	return alerts, err
}

func (r *PGRepository) ResolveAlert(ctx context.Context, alertID, resolvedBy string) error {
	res, err := r.DB.ExecContext(ctx, `
        UPDATE inventory_alerts
        SET is_resolved = true, resolved_at = now(), resolved_by = $2
        WHERE id = $1 AND NOT is_resolved`, alertID, resolvedBy)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NotFound("open alert %s not found", alertID)
	}
	return nil
}

func (r *PGRepository) CreateBatch(ctx context.Context, batch *model.ProductBatch) error {
	_, err := r.DB.ExecContext(ctx, `
        INSERT INTO product_batches (
            id, batch_number, product_id, farm_id, harvest_date, harvest_season,
            initial_quantity, current_quantity, unit, quality_grade, is_organic,
            certifications, expiry_date, status, created_at, updated_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		batch.ID, batch.BatchNumber, batch.ProductID, batch.FarmID,
		batch.HarvestDate, batch.HarvestSeason, batch.InitialQuantity,
		batch.CurrentQuantity, batch.Unit, batch.QualityGrade, batch.IsOrganic,
		strings.Join(batch.Certifications, ","), batch.ExpiryDate, batch.Status,
		batch.CreatedAt, batch.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflict("batch number %s already exists", batch.BatchNumber)
		}
		return fmt.Errorf("insert batch: %w", err)
	}
	return nil
}

func (r *PGRepository) AdjustBatchQuantity(ctx context.Context, batchID string, delta float64) error {
	res, err := r.DB.ExecContext(ctx, `
        UPDATE product_batches
        SET current_quantity = current_quantity + $2, updated_at = now()
        WHERE id = $1 AND current_quantity + $2 >= 0`, batchID, delta)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.InsufficientStock("batch %s cannot absorb delta %g", batchID, delta)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	// pgx wraps server errors; SQLSTATE 23505 is unique_violation.
	return err != nil && strings.Contains(err.Error(), "23505")
}
