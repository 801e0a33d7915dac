package payout

import (
	"context"

	"github.com/harvestly/farmstand-service/internal/model"
	"github.com/harvestly/farmstand-service/internal/payout/dto"
)

type UseCase interface {
	RunPayout(ctx context.Context, input *dto.RunPayoutInput) (*model.Payout, error)
	RunScheduledPayouts(ctx context.Context) error

	GetPayout(ctx context.Context, id string) (*model.Payout, error)
	ListPayouts(ctx context.Context, f *dto.PayoutFilters) (*dto.PayoutList, error)
	Earnings(ctx context.Context, farmID string) (*dto.Earnings, error)

	GetSchedule(ctx context.Context, farmID string) (*model.PayoutSchedule, error)
	UpdateSchedule(ctx context.Context, input *dto.UpdateScheduleInput) (*model.PayoutSchedule, error)

	AddAccount(ctx context.Context, input *dto.AddAccountInput) (*model.PayoutAccount, error)
	ListAccounts(ctx context.Context, farmID string) ([]model.PayoutAccount, error)
	SetDefaultAccount(ctx context.Context, farmID, accountID string) error
	RemoveAccount(ctx context.Context, farmID, accountID string) error
}
