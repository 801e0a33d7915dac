package payout

import (
	"testing"
	"time"

	"github.com/harvestly/farmstand-service/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestPeriod(t *testing.T) {
	// Wednesday, June 18 2025.
	now := time.Date(2025, 6, 18, 14, 30, 0, 0, time.UTC)

	t.Run("daily is the previous calendar day", func(t *testing.T) {
		start, end := Period(model.PayoutDaily, now)
		assert.Equal(t, time.Date(2025, 6, 17, 0, 0, 0, 0, time.UTC), start)
		assert.Equal(t, time.Date(2025, 6, 18, 0, 0, 0, 0, time.UTC), end)
	})

	t.Run("weekly is the previous monday-to-monday week", func(t *testing.T) {
		start, end := Period(model.PayoutWeekly, now)
		assert.Equal(t, time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC), start)
		assert.Equal(t, time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC), end)
		assert.Equal(t, time.Monday, start.Weekday())
		assert.Equal(t, time.Monday, end.Weekday())
	})

	t.Run("weekly on a monday closes the week just ended", func(t *testing.T) {
		monday := time.Date(2025, 6, 16, 8, 0, 0, 0, time.UTC)
		start, end := Period(model.PayoutWeekly, monday)
		assert.Equal(t, time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC), start)
		assert.Equal(t, time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC), end)
	})

	t.Run("monthly is the previous calendar month", func(t *testing.T) {
		start, end := Period(model.PayoutMonthly, now)
		assert.Equal(t, time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC), start)
		assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), end)
	})

	t.Run("monthly across a year boundary", func(t *testing.T) {
		jan := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
		start, end := Period(model.PayoutMonthly, jan)
		assert.Equal(t, time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC), start)
		assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), end)
	})
}

func TestDue(t *testing.T) {
	wednesday := time.Date(2025, 6, 18, 9, 0, 0, 0, time.UTC)
	monday := time.Date(2025, 6, 16, 9, 0, 0, 0, time.UTC)
	first := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	daily := &model.PayoutSchedule{Frequency: model.PayoutDaily}
	assert.True(t, Due(daily, wednesday))
	assert.True(t, Due(daily, monday))

	weekly := &model.PayoutSchedule{Frequency: model.PayoutWeekly}
	assert.True(t, Due(weekly, monday))
	assert.False(t, Due(weekly, wednesday))

	wedIdx := int(time.Wednesday)
	weeklyWed := &model.PayoutSchedule{Frequency: model.PayoutWeekly, DayOfWeek: &wedIdx}
	assert.True(t, Due(weeklyWed, wednesday))
	assert.False(t, Due(weeklyWed, monday))

	monthly := &model.PayoutSchedule{Frequency: model.PayoutMonthly}
	assert.True(t, Due(monthly, first))
	assert.False(t, Due(monthly, wednesday))

	fifteenth := 15
	monthly15 := &model.PayoutSchedule{Frequency: model.PayoutMonthly, DayOfMonth: &fifteenth}
	assert.True(t, Due(monthly15, time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)))
	assert.False(t, Due(monthly15, first))
}

func TestNextRunDate(t *testing.T) {
	wednesday := time.Date(2025, 6, 18, 9, 0, 0, 0, time.UTC)

	daily := &model.PayoutSchedule{Frequency: model.PayoutDaily}
	assert.Equal(t, time.Date(2025, 6, 19, 0, 0, 0, 0, time.UTC), NextRunDate(daily, wednesday))

	weekly := &model.PayoutSchedule{Frequency: model.PayoutWeekly}
	next := NextRunDate(weekly, wednesday)
	assert.Equal(t, time.Monday, next.Weekday())
	assert.True(t, next.After(wednesday))

	fifteenth := 15
	monthly := &model.PayoutSchedule{Frequency: model.PayoutMonthly, DayOfMonth: &fifteenth}
	assert.Equal(t, time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC), NextRunDate(monthly, wednesday))
}
