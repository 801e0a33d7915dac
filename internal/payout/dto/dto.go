package dto

import (
	"time"

	"github.com/harvestly/farmstand-service/internal/model"
	"github.com/shopspring/decimal"
)

type RunPayoutInput struct {
	FarmID      string `json:"farm_id"`
	RequestedBy string `json:"-"`
	Instant     bool   `json:"instant"`
}

type UpdateScheduleInput struct {
	FarmID        string                `json:"-"`
	Frequency     model.PayoutFrequency `json:"frequency"`
	DayOfWeek     *int                  `json:"day_of_week"`
	DayOfMonth    *int                  `json:"day_of_month"`
	MinimumAmount decimal.Decimal       `json:"minimum_amount"`
}

type AddAccountInput struct {
	FarmID            string `json:"-"`
	AccountType       string `json:"account_type"`
	Last4             string `json:"last4"`
	BankName          string `json:"bank_name"`
	AccountHolderName string `json:"account_holder_name"`
	SetDefault        bool   `json:"set_default"`
}

type PayoutFilters struct {
	FarmID   string
	Status   []model.PayoutStatus
	Page     int
	PageSize int
}

type PayoutList struct {
	Payouts []model.Payout `json:"payouts"`
	Total   int            `json:"total"`
	Page    int            `json:"page"`
	Limit   int            `json:"limit"`
	HasMore bool           `json:"has_more"`
}

// Earnings summarizes what a farm has accrued and what is still pending.
type Earnings struct {
	FarmID         string          `json:"farm_id"`
	TotalEarned    decimal.Decimal `json:"total_earned"`
	TotalPaidOut   decimal.Decimal `json:"total_paid_out"`
	PendingBalance decimal.Decimal `json:"pending_balance"`
	NextPayoutDate *time.Time      `json:"next_payout_date,omitempty"`
}
