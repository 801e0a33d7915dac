package payout

import (
	"time"

	"github.com/harvestly/farmstand-service/internal/model"
)

// Period returns the most recently closed payout window for a frequency,
// relative to now. Windows are half-open: [start, end).
func Period(frequency model.PayoutFrequency, now time.Time) (time.Time, time.Time) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch frequency {
	case model.PayoutWeekly:
		// Weeks run Monday through Sunday.
		offset := int(today.Weekday()-time.Monday+7) % 7
		weekStart := today.AddDate(0, 0, -offset)
		return weekStart.AddDate(0, 0, -7), weekStart
	case model.PayoutMonthly:
		monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return monthStart.AddDate(0, -1, 0), monthStart
	default: // DAILY
		return today.AddDate(0, 0, -1), today
	}
}

// NextRunDate reports when the schedule fires next, for display only.
func NextRunDate(s *model.PayoutSchedule, now time.Time) time.Time {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch s.Frequency {
	case model.PayoutWeekly:
		target := time.Monday
		if s.DayOfWeek != nil {
			target = time.Weekday(*s.DayOfWeek % 7)
		}
		days := int(target-today.Weekday()+7) % 7
		if days == 0 {
			days = 7
		}
		return today.AddDate(0, 0, days)
	case model.PayoutMonthly:
		day := 1
		if s.DayOfMonth != nil && *s.DayOfMonth >= 1 && *s.DayOfMonth <= 28 {
			day = *s.DayOfMonth
		}
		next := time.Date(now.Year(), now.Month(), day, 0, 0, 0, 0, now.Location())
		if !next.After(today) {
			next = next.AddDate(0, 1, 0)
		}
		return next
	default:
		return today.AddDate(0, 0, 1)
	}
}

// Due reports whether the schedule should run today.
func Due(s *model.PayoutSchedule, now time.Time) bool {
	switch s.Frequency {
	case model.PayoutWeekly:
		target := time.Monday
		if s.DayOfWeek != nil {
			target = time.Weekday(*s.DayOfWeek % 7)
		}
		return now.Weekday() == target
	case model.PayoutMonthly:
		day := 1
		if s.DayOfMonth != nil && *s.DayOfMonth >= 1 && *s.DayOfMonth <= 28 {
			day = *s.DayOfMonth
		}
		return now.Day() == day
	default:
		return true
	}
}
