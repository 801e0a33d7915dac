package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/harvestly/farmstand-service/internal/apperrors"
	"github.com/harvestly/farmstand-service/internal/model"
	"github.com/harvestly/farmstand-service/internal/order"
	"github.com/harvestly/farmstand-service/internal/order/dto"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) order.Repository {
	return &PGRepository{DB: db}
}

const insertOrderQuery = `
	INSERT INTO orders (
		id, order_number, customer_id, farm_id, status, payment_status, fulfillment_method,
		subtotal, tax, delivery_fee, platform_fee, discount, total, farmer_amount,
		payment_intent_id, scheduled_date, scheduled_slot,
		address_street, address_city, address_state, address_zip, instructions,
		created_at, updated_at
	) VALUES (
		:id, :order_number, :customer_id, :farm_id, :status, :payment_status, :fulfillment_method,
		:subtotal, :tax, :delivery_fee, :platform_fee, :discount, :total, :farmer_amount,
		:payment_intent_id, :scheduled_date, :scheduled_slot,
		:address_street, :address_city, :address_state, :address_zip, :instructions,
		:created_at, :updated_at
	)`

const insertOrderItemQuery = `
	INSERT INTO order_items (id, order_id, product_id, inventory_item_id, product_name, quantity, unit, unit_price, subtotal)
	VALUES (:id, :order_id, :product_id, :inventory_item_id, :product_name, :quantity, :unit, :unit_price, :subtotal)`

func (r *PGRepository) Create(ctx context.Context, o *model.Order) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.NamedExecContext(ctx, insertOrderQuery, o); err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflict("order number %s already exists", o.OrderNumber)
		}
		return fmt.Errorf("insert order: %w", err)
	}
	if len(o.Items) > 0 {
		if _, err := tx.NamedExecContext(ctx, insertOrderItemQuery, o.Items); err != nil {
			return fmt.Errorf("insert order items: %w", err)
		}
	}
	return tx.Commit()
}

func (r *PGRepository) GetByID(ctx context.Context, id string) (*model.Order, error) {
	var o model.Order
	if err := r.DB.GetContext(ctx, &o, `SELECT * FROM orders WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("order %s not found", id)
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if err := r.loadItems(ctx, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *PGRepository) GetByPaymentIntent(ctx context.Context, paymentIntentID string) (*model.Order, error) {
	var o model.Order
	err := r.DB.GetContext(ctx, &o, `SELECT * FROM orders WHERE payment_intent_id = $1`, paymentIntentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("no order for payment intent %s", paymentIntentID)
		}
		return nil, fmt.Errorf("get order by payment intent: %w", err)
	}
	if err := r.loadItems(ctx, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *PGRepository) loadItems(ctx context.Context, o *model.Order) error {
	if err := r.DB.SelectContext(ctx, &o.Items,
		`SELECT * FROM order_items WHERE order_id = $1 ORDER BY product_name`, o.ID); err != nil {
		return fmt.Errorf("load order items: %w", err)
	}
	return nil
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.OrderFilters) ([]model.Order, int, error) {
	conditions := []string{"1=1"}
	args := []any{}

	if f.CustomerID != "" {
		conditions = append(conditions, "customer_id = ?")
		args = append(args, f.CustomerID)
	}
	if f.FarmID != "" {
		conditions = append(conditions, "farm_id = ?")
		args = append(args, f.FarmID)
	}
	if len(f.Status) > 0 {
		conditions = append(conditions, "status IN (?)")
		args = append(args, f.Status)
	}
	if f.PaymentStatus != "" {
		conditions = append(conditions, "payment_status = ?")
		args = append(args, f.PaymentStatus)
	}
	if f.Fulfillment != "" {
		conditions = append(conditions, "fulfillment_method = ?")
		args = append(args, f.Fulfillment)
	}
	if f.StartDate != nil {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, *f.StartDate)
	}
	if f.EndDate != nil {
		conditions = append(conditions, "created_at <= ?")
		args = append(args, *f.EndDate)
	}

	where := strings.Join(conditions, " AND ")

	countQuery, countArgs, err := sqlx.In("SELECT COUNT(*) FROM orders WHERE "+where, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("build count query: %w", err)
	}
	var total int
	if err := r.DB.GetContext(ctx, &total, r.DB.Rebind(countQuery), countArgs...); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	offset := (f.Page - 1) * f.PageSize
	listQuery, listArgs, err := sqlx.In(
		"SELECT * FROM orders WHERE "+where+" ORDER BY created_at DESC LIMIT ? OFFSET ?",
		append(args, f.PageSize, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("build list query: %w", err)
	}

	orders := []model.Order{}
	if err := r.DB.SelectContext(ctx, &orders, r.DB.Rebind(listQuery), listArgs...); err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	if len(orders) == 0 {
		return orders, total, nil
	}

	ids := make([]string, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
	}
	itemsQuery, itemsArgs, err := sqlx.In(`SELECT * FROM order_items WHERE order_id IN (?)`, ids)
	if err != nil {
		return nil, 0, fmt.Errorf("build items query: %w", err)
	}
	var items []model.OrderItem
	if err := r.DB.SelectContext(ctx, &items, r.DB.Rebind(itemsQuery), itemsArgs...); err != nil {
		return nil, 0, fmt.Errorf("load order items: %w", err)
	}

	byOrder := map[string][]model.OrderItem{}
	for _, item := range items {
		byOrder[item.OrderID] = append(byOrder[item.OrderID], item)
	}
	for i := range orders {
		orders[i].Items = byOrder[orders[i].ID]
	}
	return orders, total, nil
}

func (r *PGRepository) UpdateStatus(ctx context.Context, id string, from, to model.OrderStatus) (*model.Order, error) {
	var o model.Order
	err := r.DB.GetContext(ctx, &o,
		`UPDATE orders SET status = $3, updated_at = now() WHERE id = $1 AND status = $2 RETURNING *`,
		id, from, to)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, r.rejectTransition(ctx, id, from)
		}
		return nil, fmt.Errorf("update order status: %w", err)
	}
	if err := r.loadItems(ctx, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *PGRepository) rejectTransition(ctx context.Context, id string, expected model.OrderStatus) error {
	var current model.OrderStatus
	err := r.DB.GetContext(ctx, &current, `SELECT status FROM orders WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.NotFound("order %s not found", id)
	}
	if err != nil {
		return fmt.Errorf("check order status: %w", err)
	}
	return apperrors.Conflict("order %s moved from %s to %s concurrently", id, expected, current)
}

func (r *PGRepository) UpdatePaymentStatus(ctx context.Context, id string, status model.PaymentStatus) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE orders SET payment_status = $2, updated_at = now() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NotFound("order %s not found", id)
	}
	return nil
}

func (r *PGRepository) SetPaymentIntent(ctx context.Context, id, paymentIntentID string) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE orders SET payment_intent_id = $2, updated_at = now() WHERE id = $1`, id, paymentIntentID)
	if err != nil {
		return fmt.Errorf("set payment intent: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NotFound("order %s not found", id)
	}
	return nil
}

func (r *PGRepository) MarkCancelled(ctx context.Context, id string, from model.OrderStatus, reason, cancelledBy string) (*model.Order, error) {
	var o model.Order
	err := r.DB.GetContext(ctx, &o, `
		UPDATE orders
		SET status = $3, cancel_reason = $4, cancelled_by = $5, cancelled_at = now(), updated_at = now()
		WHERE id = $1 AND status = $2
		RETURNING *`,
		id, from, model.OrderCancelled, reason, cancelledBy)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, r.rejectTransition(ctx, id, from)
		}
		return nil, fmt.Errorf("cancel order: %w", err)
	}
	if err := r.loadItems(ctx, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *PGRepository) CountForDay(ctx context.Context, day time.Time) (int, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)

	var count int
	err := r.DB.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM orders WHERE created_at >= $1 AND created_at < $2`, start, end)
	if err != nil {
		return 0, fmt.Errorf("count orders for day: %w", err)
	}
	return count, nil
}

type statusCount struct {
	Status model.OrderStatus `db:"status"`
	Count  int               `db:"count"`
	Total  decimal.Decimal   `db:"total"`
}

func (r *PGRepository) Statistics(ctx context.Context, farmID string, start, end *time.Time) (*dto.Statistics, error) {
	conditions := []string{"farm_id = ?"}
	args := []any{farmID}
	if start != nil {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, *start)
	}
	if end != nil {
		conditions = append(conditions, "created_at <= ?")
		args = append(args, *end)
	}

	query := `SELECT status, COUNT(*) AS count, COALESCE(SUM(total), 0) AS total
		FROM orders WHERE ` + strings.Join(conditions, " AND ") + ` GROUP BY status`

	var rows []statusCount
	if err := r.DB.SelectContext(ctx, &rows, r.DB.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("order statistics: %w", err)
	}

	stats := &dto.Statistics{
		TotalRevenue:      decimal.Zero,
		AverageOrderValue: decimal.Zero,
		ByStatus:          map[model.OrderStatus]int{},
	}
	revenueOrders := 0
	for _, row := range rows {
		stats.TotalOrders += row.Count
		stats.ByStatus[row.Status] = row.Count
		switch row.Status {
		case model.OrderCompleted, model.OrderDelivered:
			stats.TotalRevenue = stats.TotalRevenue.Add(row.Total)
			revenueOrders += row.Count
		}
	}
	stats.CompletedOrders = stats.ByStatus[model.OrderCompleted]
	stats.CancelledOrders = stats.ByStatus[model.OrderCancelled]
	if revenueOrders > 0 {
		stats.AverageOrderValue = stats.TotalRevenue.Div(decimal.NewFromInt(int64(revenueOrders))).Round(2)
	}
	return stats, nil
}

func isUniqueViolation(err error) bool {
	// pgx wraps server errors; SQLSTATE 23505 is unique_violation.
	return err != nil && strings.Contains(err.Error(), "23505")
}
