package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harvestly/farmstand-service/internal/apperrors"
	"github.com/harvestly/farmstand-service/internal/model"
	"github.com/harvestly/farmstand-service/internal/notification"
	"github.com/harvestly/farmstand-service/internal/payments"
	"github.com/harvestly/farmstand-service/internal/payout"
	"github.com/harvestly/farmstand-service/internal/payout/dto"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type payoutUseCase struct {
	repo      payout.Repository
	processor payments.Processor
	notifier  *notification.Service
	minimum   decimal.Decimal
	logger    *zap.Logger
}

func NewPayoutUseCase(
	repo payout.Repository,
	processor payments.Processor,
	notifier *notification.Service,
	minimum decimal.Decimal,
	log *zap.Logger,
) payout.UseCase {
	return &payoutUseCase{
		repo:      repo,
		processor: processor,
		notifier:  notifier,
		minimum:   minimum,
		logger:    log,
	}
}

func (uc *payoutUseCase) RunPayout(ctx context.Context, input *dto.RunPayoutInput) (*model.Payout, error) {
	if input.FarmID == "" {
		return nil, apperrors.Validation("farm_id is required")
	}

	now := time.Now()
	schedule, err := uc.repo.GetSchedule(ctx, input.FarmID)
	if err != nil {
		return nil, err
	}
	frequency := model.PayoutWeekly
	minimum := uc.minimum
	if schedule != nil {
		frequency = schedule.Frequency
		if schedule.MinimumAmount.GreaterThan(minimum) {
			minimum = schedule.MinimumAmount
		}
	}

	var start, end time.Time
	if input.Instant {
		// Instant payouts sweep everything accrued since the last payout.
		last, err := uc.repo.LastPayoutEnd(ctx, input.FarmID)
		if err != nil {
			return nil, err
		}
		if last != nil {
			start = *last
		} else {
			start = now.AddDate(-1, 0, 0)
		}
		end = now
	} else {
		start, end = payout.Period(frequency, now)
		last, err := uc.repo.LastPayoutEnd(ctx, input.FarmID)
		if err != nil {
			return nil, err
		}
		if last != nil && !last.Before(end) {
			return nil, apperrors.Conflict("period ending %s is already paid out", end.Format("2006-01-02"))
		}
	}

	amount, orderCount, err := uc.repo.EligibleAmount(ctx, input.FarmID, start, end)
	if err != nil {
		return nil, err
	}
	if amount.LessThan(minimum) {
		return nil, apperrors.Validation("eligible amount %s is below the %s minimum", amount, minimum)
	}

	account, err := uc.repo.DefaultAccount(ctx, input.FarmID)
	if err != nil {
		return nil, err
	}

	p := &model.Payout{
		BaseModel: model.BaseModel{
			ID:        uuid.NewString(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		FarmID:          input.FarmID,
		AccountID:       account.ID,
		Amount:          amount,
		Status:          model.PayoutPending,
		PeriodStart:     start,
		PeriodEnd:       end,
		OrderCount:      orderCount,
		ScheduledDate:   now,
		IsInstantPayout: input.Instant,
	}
	if input.RequestedBy != "" {
		p.RequestedBy = &input.RequestedBy
	}
	if err := uc.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	uc.dispatch(ctx, p)
	return p, nil
}

// dispatch hands the payout to the provider and records the outcome. The
// payout row survives a provider failure so it can be retried.
func (uc *payoutUseCase) dispatch(ctx context.Context, p *model.Payout) {
	if err := uc.repo.UpdateStatus(ctx, p.ID, model.PayoutProcessing, nil, nil); err != nil {
		uc.logger.Error("failed to mark payout processing", zap.String("payout_id", p.ID), zap.Error(err))
		return
	}
	p.Status = model.PayoutProcessing

	result, err := uc.processor.CreatePayout(ctx, &payments.PayoutInput{
		Amount:      p.Amount,
		Description: fmt.Sprintf("Payout %s to %s", p.PeriodStart.Format("2006-01-02"), p.PeriodEnd.Format("2006-01-02")),
		FarmID:      p.FarmID,
		Instant:     p.IsInstantPayout,
	})
	if err != nil {
		reason := err.Error()
		if uerr := uc.repo.UpdateStatus(ctx, p.ID, model.PayoutFailed, nil, &reason); uerr != nil {
			uc.logger.Error("failed to mark payout failed", zap.String("payout_id", p.ID), zap.Error(uerr))
		}
		p.Status = model.PayoutFailed
		p.FailureReason = &reason
		uc.logger.Error("payout dispatch failed",
			zap.String("payout_id", p.ID), zap.String("farm_id", p.FarmID), zap.Error(err))
	} else {
		if uerr := uc.repo.UpdateStatus(ctx, p.ID, model.PayoutCompleted, &result.ID, nil); uerr != nil {
			uc.logger.Error("failed to mark payout completed", zap.String("payout_id", p.ID), zap.Error(uerr))
		}
		p.Status = model.PayoutCompleted
		p.ProcessorRef = &result.ID
		uc.logger.Info("payout completed",
			zap.String("payout_id", p.ID),
			zap.String("farm_id", p.FarmID),
			zap.String("amount", p.Amount.String()))
	}

	if uc.notifier != nil {
		uc.notifier.PayoutStatusChanged(ctx, p, p.FarmID)
	}
}

func (uc *payoutUseCase) RunScheduledPayouts(ctx context.Context) error {
	schedules, err := uc.repo.ListFarmsWithSchedules(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	for i := range schedules {
		s := &schedules[i]
		if !payout.Due(s, now) {
			continue
		}
		if _, err := uc.RunPayout(ctx, &dto.RunPayoutInput{FarmID: s.FarmID}); err != nil {
			// Below-minimum and already-paid farms are expected on most runs.
			if apperrors.Is(err, apperrors.CodeValidation) || apperrors.Is(err, apperrors.CodeConflict) {
				continue
			}
			uc.logger.Error("scheduled payout failed",
				zap.String("farm_id", s.FarmID), zap.Error(err))
		}
	}
	return nil
}

func (uc *payoutUseCase) GetPayout(ctx context.Context, id string) (*model.Payout, error) {
	return uc.repo.GetByID(ctx, id)
}

func (uc *payoutUseCase) ListPayouts(ctx context.Context, f *dto.PayoutFilters) (*dto.PayoutList, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = 20
	}
	payouts, total, err := uc.repo.FindAll(ctx, f)
	if err != nil {
		return nil, err
	}
	return &dto.PayoutList{
		Payouts: payouts,
		Total:   total,
		Page:    f.Page,
		Limit:   f.PageSize,
		HasMore: f.Page*f.PageSize < total,
	}, nil
}

func (uc *payoutUseCase) Earnings(ctx context.Context, farmID string) (*dto.Earnings, error) {
	now := time.Now()

	paidOut, err := uc.repo.TotalPaidOut(ctx, farmID)
	if err != nil {
		return nil, err
	}

	var pendingStart time.Time
	last, err := uc.repo.LastPayoutEnd(ctx, farmID)
	if err != nil {
		return nil, err
	}
	if last != nil {
		pendingStart = *last
	} else {
		pendingStart = now.AddDate(-1, 0, 0)
	}
	pending, _, err := uc.repo.EligibleAmount(ctx, farmID, pendingStart, now)
	if err != nil {
		return nil, err
	}

	e := &dto.Earnings{
		FarmID:         farmID,
		TotalEarned:    paidOut.Add(pending),
		TotalPaidOut:   paidOut,
		PendingBalance: pending,
	}
	if schedule, err := uc.repo.GetSchedule(ctx, farmID); err == nil && schedule != nil {
		next := payout.NextRunDate(schedule, now)
		e.NextPayoutDate = &next
	}
	return e, nil
}

func (uc *payoutUseCase) GetSchedule(ctx context.Context, farmID string) (*model.PayoutSchedule, error) {
	schedule, err := uc.repo.GetSchedule(ctx, farmID)
	if err != nil {
		return nil, err
	}
	if schedule == nil {
		return &model.PayoutSchedule{
			FarmID:        farmID,
			Frequency:     model.PayoutWeekly,
			MinimumAmount: uc.minimum,
		}, nil
	}
	return schedule, nil
}

func (uc *payoutUseCase) UpdateSchedule(ctx context.Context, input *dto.UpdateScheduleInput) (*model.PayoutSchedule, error) {
	switch input.Frequency {
	case model.PayoutDaily, model.PayoutWeekly, model.PayoutMonthly:
	default:
		return nil, apperrors.Validation("unknown payout frequency %q", input.Frequency)
	}
	if input.DayOfWeek != nil && (*input.DayOfWeek < 0 || *input.DayOfWeek > 6) {
		return nil, apperrors.Validation("day_of_week must be 0 through 6")
	}
	if input.DayOfMonth != nil && (*input.DayOfMonth < 1 || *input.DayOfMonth > 28) {
		return nil, apperrors.Validation("day_of_month must be 1 through 28")
	}
	if input.MinimumAmount.IsNegative() {
		return nil, apperrors.Validation("minimum amount must not be negative")
	}

	s := &model.PayoutSchedule{
		FarmID:        input.FarmID,
		Frequency:     input.Frequency,
		DayOfWeek:     input.DayOfWeek,
		DayOfMonth:    input.DayOfMonth,
		MinimumAmount: input.MinimumAmount,
		UpdatedAt:     time.Now(),
	}
	if s.MinimumAmount.IsZero() {
		s.MinimumAmount = uc.minimum
	}
	if err := uc.repo.UpsertSchedule(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (uc *payoutUseCase) AddAccount(ctx context.Context, input *dto.AddAccountInput) (*model.PayoutAccount, error) {
	if input.AccountType != "BANK" && input.AccountType != "STRIPE" {
		return nil, apperrors.Validation("account_type must be BANK or STRIPE")
	}
	if len(input.Last4) != 4 {
		return nil, apperrors.Validation("last4 must be exactly four digits")
	}

	existing, err := uc.repo.ListAccounts(ctx, input.FarmID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	a := &model.PayoutAccount{
		BaseModel: model.BaseModel{
			ID:        uuid.NewString(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		FarmID:      input.FarmID,
		AccountType: input.AccountType,
		Last4:       input.Last4,
		IsDefault:   input.SetDefault || len(existing) == 0,
		Status:      model.PayoutAccountActive,
	}
	if input.BankName != "" {
		a.BankName = &input.BankName
	}
	if input.AccountHolderName != "" {
		a.AccountHolderName = &input.AccountHolderName
	}
	if err := uc.repo.CreateAccount(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (uc *payoutUseCase) ListAccounts(ctx context.Context, farmID string) ([]model.PayoutAccount, error) {
	return uc.repo.ListAccounts(ctx, farmID)
}

func (uc *payoutUseCase) SetDefaultAccount(ctx context.Context, farmID, accountID string) error {
	return uc.repo.SetDefaultAccount(ctx, farmID, accountID)
}

func (uc *payoutUseCase) RemoveAccount(ctx context.Context, farmID, accountID string) error {
	return uc.repo.DeactivateAccount(ctx, farmID, accountID)
}
