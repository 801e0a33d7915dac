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
	"github.com/harvestly/farmstand-service/internal/payout"
	"github.com/harvestly/farmstand-service/internal/payout/dto"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) payout.Repository {
	return &PGRepository{DB: db}
}

const insertPayoutQuery = `
	INSERT INTO payouts (
		id, farm_id, account_id, amount, status, period_start, period_end,
		order_count, scheduled_date, completed_date, processor_ref, failure_reason,
		requested_by, is_instant, created_at, updated_at
	) VALUES (
		:id, :farm_id, :account_id, :amount, :status, :period_start, :period_end,
		:order_count, :scheduled_date, :completed_date, :processor_ref, :failure_reason,
		:requested_by, :is_instant, :created_at, :updated_at
	)`

func (r *PGRepository) Create(ctx context.Context, p *model.Payout) error {
	if _, err := r.DB.NamedExecContext(ctx, insertPayoutQuery, p); err != nil {
		return fmt.Errorf("insert payout: %w", err)
	}
	return nil
}

func (r *PGRepository) GetByID(ctx context.Context, id string) (*model.Payout, error) {
	var p model.Payout
	if err := r.DB.GetContext(ctx, &p, `SELECT * FROM payouts WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("payout %s not found", id)
		}
		return nil, fmt.Errorf("get payout: %w", err)
	}
	return &p, nil
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.PayoutFilters) ([]model.Payout, int, error) {
	conditions := []string{"1=1"}
	args := []any{}
	if f.FarmID != "" {
		conditions = append(conditions, "farm_id = ?")
		args = append(args, f.FarmID)
	}
	if len(f.Status) > 0 {
		conditions = append(conditions, "status IN (?)")
		args = append(args, f.Status)
	}
	where := strings.Join(conditions, " AND ")

	countQuery, countArgs, err := sqlx.In("SELECT COUNT(*) FROM payouts WHERE "+where, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("build count query: %w", err)
	}
	var total int
	if err := r.DB.GetContext(ctx, &total, r.DB.Rebind(countQuery), countArgs...); err != nil {
		return nil, 0, fmt.Errorf("count payouts: %w", err)
	}

	offset := (f.Page - 1) * f.PageSize
	listQuery, listArgs, err := sqlx.In(
		"SELECT * FROM payouts WHERE "+where+" ORDER BY scheduled_date DESC LIMIT ? OFFSET ?",
		append(args, f.PageSize, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("build list query: %w", err)
	}
	payouts := []model.Payout{}
	if err := r.DB.SelectContext(ctx, &payouts, r.DB.Rebind(listQuery), listArgs...); err != nil {
		return nil, 0, fmt.Errorf("list payouts: %w", err)
	}
	return payouts, total, nil
}

func (r *PGRepository) UpdateStatus(ctx context.Context, id string, status model.PayoutStatus, processorRef, failureReason *string) error {
	query := `UPDATE payouts SET status = $2, processor_ref = COALESCE($3, processor_ref),
		failure_reason = $4, updated_at = now()`
	if status == model.PayoutCompleted {
		query += `, completed_date = now()`
	}
	query += ` WHERE id = $1`

	res, err := r.DB.ExecContext(ctx, query, id, status, processorRef, failureReason)
	if err != nil {
		return fmt.Errorf("update payout status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NotFound("payout %s not found", id)
	}
	return nil
}

func (r *PGRepository) EligibleAmount(ctx context.Context, farmID string, start, end time.Time) (decimal.Decimal, int, error) {
	var row struct {
		Amount decimal.Decimal `db:"amount"`
		Count  int             `db:"count"`
	}
	err := r.DB.GetContext(ctx, &row, `
		SELECT COALESCE(SUM(farmer_amount), 0) AS amount, COUNT(*) AS count
		FROM orders
		WHERE farm_id = $1
		  AND status = $2
		  AND payment_status = $3
		  AND updated_at >= $4 AND updated_at < $5`,
		farmID, model.OrderCompleted, model.PaymentPaid, start, end)
	if err != nil {
		return decimal.Zero, 0, fmt.Errorf("sum eligible orders: %w", err)
	}
	return row.Amount, row.Count, nil
}

func (r *PGRepository) TotalPaidOut(ctx context.Context, farmID string) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.DB.GetContext(ctx, &total, `
		SELECT COALESCE(SUM(amount), 0) FROM payouts
		WHERE farm_id = $1 AND status = $2`, farmID, model.PayoutCompleted)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum paid out: %w", err)
	}
	return total, nil
}

func (r *PGRepository) LastPayoutEnd(ctx context.Context, farmID string) (*time.Time, error) {
	var end time.Time
	err := r.DB.GetContext(ctx, &end, `
		SELECT period_end FROM payouts
		WHERE farm_id = $1 AND status IN ($2, $3, $4)
		ORDER BY period_end DESC LIMIT 1`,
		farmID, model.PayoutPending, model.PayoutProcessing, model.PayoutCompleted)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get last payout end: %w", err)
	}
	return &end, nil
}

func (r *PGRepository) GetSchedule(ctx context.Context, farmID string) (*model.PayoutSchedule, error) {
	var s model.PayoutSchedule
	err := r.DB.GetContext(ctx, &s, `SELECT * FROM payout_schedules WHERE farm_id = $1`, farmID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get payout schedule: %w", err)
	}
	return &s, nil
}

func (r *PGRepository) UpsertSchedule(ctx context.Context, s *model.PayoutSchedule) error {
	_, err := r.DB.NamedExecContext(ctx, `
		INSERT INTO payout_schedules (farm_id, frequency, day_of_week, day_of_month, minimum_amount, updated_at)
		VALUES (:farm_id, :frequency, :day_of_week, :day_of_month, :minimum_amount, :updated_at)
		ON CONFLICT (farm_id) DO UPDATE SET
			frequency = EXCLUDED.frequency,
			day_of_week = EXCLUDED.day_of_week,
			day_of_month = EXCLUDED.day_of_month,
			minimum_amount = EXCLUDED.minimum_amount,
			updated_at = EXCLUDED.updated_at`, s)
	if err != nil {
		return fmt.Errorf("upsert payout schedule: %w", err)
	}
	return nil
}

func (r *PGRepository) ListFarmsWithSchedules(ctx context.Context) ([]model.PayoutSchedule, error) {
	schedules := []model.PayoutSchedule{}
	if err := r.DB.SelectContext(ctx, &schedules, `SELECT * FROM payout_schedules`); err != nil {
		return nil, fmt.Errorf("list payout schedules: %w", err)
	}
	return schedules, nil
}

func (r *PGRepository) CreateAccount(ctx context.Context, a *model.PayoutAccount) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if a.IsDefault {
		if _, err := tx.ExecContext(ctx,
			`UPDATE payout_accounts SET is_default = false WHERE farm_id = $1`, a.FarmID); err != nil {
			return fmt.Errorf("clear default account: %w", err)
		}
	}
	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO payout_accounts (id, farm_id, account_type, last4, bank_name, account_holder_name, is_default, status, created_at, updated_at)
		VALUES (:id, :farm_id, :account_type, :last4, :bank_name, :account_holder_name, :is_default, :status, :created_at, :updated_at)`, a)
	if err != nil {
		return fmt.Errorf("insert payout account: %w", err)
	}
	return tx.Commit()
}

func (r *PGRepository) ListAccounts(ctx context.Context, farmID string) ([]model.PayoutAccount, error) {
	accounts := []model.PayoutAccount{}
	err := r.DB.SelectContext(ctx, &accounts, `
		SELECT * FROM payout_accounts
		WHERE farm_id = $1 AND status != $2
		ORDER BY is_default DESC, created_at`, farmID, model.PayoutAccountInactive)
	if err != nil {
		return nil, fmt.Errorf("list payout accounts: %w", err)
	}
	return accounts, nil
}

func (r *PGRepository) DefaultAccount(ctx context.Context, farmID string) (*model.PayoutAccount, error) {
	var a model.PayoutAccount
	err := r.DB.GetContext(ctx, &a, `
		SELECT * FROM payout_accounts
		WHERE farm_id = $1 AND is_default = true AND status = $2`,
		farmID, model.PayoutAccountActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("farm %s has no default payout account", farmID)
	}
	if err != nil {
		return nil, fmt.Errorf("get default payout account: %w", err)
	}
	return &a, nil
}

func (r *PGRepository) SetDefaultAccount(ctx context.Context, farmID, accountID string) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE payout_accounts SET is_default = false WHERE farm_id = $1`, farmID); err != nil {
		return fmt.Errorf("clear default account: %w", err)
	}
	res, err := tx.ExecContext(ctx, `
		UPDATE payout_accounts SET is_default = true, updated_at = now()
		WHERE id = $1 AND farm_id = $2 AND status = $3`,
		accountID, farmID, model.PayoutAccountActive)
	if err != nil {
		return fmt.Errorf("set default account: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NotFound("payout account %s not found for farm %s", accountID, farmID)
	}
	return tx.Commit()
}

func (r *PGRepository) DeactivateAccount(ctx context.Context, farmID, accountID string) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE payout_accounts SET status = $3, is_default = false, updated_at = now()
		WHERE id = $1 AND farm_id = $2`,
		accountID, farmID, model.PayoutAccountInactive)
	if err != nil {
		return fmt.Errorf("deactivate payout account: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NotFound("payout account %s not found for farm %s", accountID, farmID)
	}
	return nil
}
