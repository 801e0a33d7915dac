package payout

import (
	"context"
	"time"

	"github.com/harvestly/farmstand-service/internal/model"
	"github.com/harvestly/farmstand-service/internal/payout/dto"
	"github.com/shopspring/decimal"
)

type Repository interface {
	Create(ctx context.Context, p *model.Payout) error
	GetByID(ctx context.Context, id string) (*model.Payout, error)
	FindAll(ctx context.Context, f *dto.PayoutFilters) ([]model.Payout, int, error)
	UpdateStatus(ctx context.Context, id string, status model.PayoutStatus, processorRef, failureReason *string) error

	// EligibleAmount sums farmer proceeds from settled completed orders in the
	// period, together with the order count.
	EligibleAmount(ctx context.Context, farmID string, start, end time.Time) (decimal.Decimal, int, error)
	TotalPaidOut(ctx context.Context, farmID string) (decimal.Decimal, error)
	LastPayoutEnd(ctx context.Context, farmID string) (*time.Time, error)

	GetSchedule(ctx context.Context, farmID string) (*model.PayoutSchedule, error)
	UpsertSchedule(ctx context.Context, s *model.PayoutSchedule) error
	ListFarmsWithSchedules(ctx context.Context) ([]model.PayoutSchedule, error)

	CreateAccount(ctx context.Context, a *model.PayoutAccount) error
	ListAccounts(ctx context.Context, farmID string) ([]model.PayoutAccount, error)
	DefaultAccount(ctx context.Context, farmID string) (*model.PayoutAccount, error)
	SetDefaultAccount(ctx context.Context, farmID, accountID string) error
	DeactivateAccount(ctx context.Context, farmID, accountID string) error
}
