package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type PayoutStatus string

const (
	PayoutPending    PayoutStatus = "PENDING"
	PayoutProcessing PayoutStatus = "PROCESSING"
	PayoutCompleted  PayoutStatus = "COMPLETED"
	PayoutFailed     PayoutStatus = "FAILED"
)

type PayoutFrequency string

const (
	PayoutDaily   PayoutFrequency = "DAILY"
	PayoutWeekly  PayoutFrequency = "WEEKLY"
	PayoutMonthly PayoutFrequency = "MONTHLY"
)

// Payout is one aggregated disbursement of a farm's net proceeds over a
// period. Amount is already net of the platform fee.
type Payout struct {
	BaseModel
	FarmID          string          `db:"farm_id" json:"farm_id"`
	AccountID       string          `db:"account_id" json:"account_id"`
	Amount          decimal.Decimal `db:"amount" json:"amount"`
	Status          PayoutStatus    `db:"status" json:"status"`
	PeriodStart     time.Time       `db:"period_start" json:"period_start"`
	PeriodEnd       time.Time       `db:"period_end" json:"period_end"`
	OrderCount      int             `db:"order_count" json:"order_count"`
	ScheduledDate   time.Time       `db:"scheduled_date" json:"scheduled_date"`
	CompletedDate   *time.Time      `db:"completed_date" json:"completed_date"`
	ProcessorRef    *string         `db:"processor_ref" json:"processor_ref,omitempty"`
	FailureReason   *string         `db:"failure_reason" json:"failure_reason,omitempty"`
	RequestedBy     *string         `db:"requested_by" json:"requested_by,omitempty"`
	IsInstantPayout bool            `db:"is_instant" json:"is_instant"`
}

type PayoutAccountStatus string

const (
	PayoutAccountActive   PayoutAccountStatus = "ACTIVE"
	PayoutAccountPending  PayoutAccountStatus = "PENDING"
	PayoutAccountInactive PayoutAccountStatus = "INACTIVE"
)

type PayoutAccount struct {
	BaseModel
	FarmID            string              `db:"farm_id" json:"farm_id"`
	AccountType       string              `db:"account_type" json:"account_type"` // BANK | STRIPE
	Last4             string              `db:"last4" json:"last4"`
	BankName          *string             `db:"bank_name" json:"bank_name"`
	AccountHolderName *string             `db:"account_holder_name" json:"account_holder_name"`
	IsDefault         bool                `db:"is_default" json:"is_default"`
	Status            PayoutAccountStatus `db:"status" json:"status"`
}

type PayoutSchedule struct {
	FarmID        string          `db:"farm_id" json:"farm_id"`
	Frequency     PayoutFrequency `db:"frequency" json:"frequency"`
	DayOfWeek     *int            `db:"day_of_week" json:"day_of_week,omitempty"`
	DayOfMonth    *int            `db:"day_of_month" json:"day_of_month,omitempty"`
	MinimumAmount decimal.Decimal `db:"minimum_amount" json:"minimum_amount"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}
