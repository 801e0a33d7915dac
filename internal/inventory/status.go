package inventory

import (
	"fmt"
	"math"
	"time"

	"github.com/harvestly/farmstand-service/internal/model"
)

// DeriveStatus maps quantity thresholds to a stock status. RESERVED, DAMAGED,
// EXPIRED and RECALLED are set by explicit operations, never derived here.
func DeriveStatus(quantity, reorderPoint float64) model.InventoryStatus {
	switch {
	case quantity <= 0:
		return model.InventoryOutOfStock
	case quantity <= reorderPoint:
		return model.InventoryLowStock
	default:
		return model.InventoryInStock
	}
}

// DaysUntilExpiry returns nil when the item has no expiry date.
func DaysUntilExpiry(expiry *time.Time, now time.Time) *int {
	if expiry == nil {
		return nil
	}
	days := int(math.Ceil(expiry.Sub(now).Hours() / 24))
	return &days
}

const (
	expiringSoonDays     = 7
	expiringCriticalDays = 3
)

// BuildAlerts derives the open alerts an item should carry after a mutation.
// Insertion uses duplicate-skip semantics so re-deriving is harmless.
func BuildAlerts(item *model.InventoryItem, now time.Time) []model.InventoryAlert {
	var alerts []model.InventoryAlert

	base := model.InventoryAlert{
		InventoryItemID: item.ID,
		FarmID:          item.FarmID,
		ProductID:       item.ProductID,
		CreatedAt:       now,
	}

	if item.Quantity <= item.ReorderPoint {
		a := base
		if item.Quantity <= 0 {
			a.Type = model.AlertOutOfStock
			a.Severity = model.SeverityCritical
			a.Message = fmt.Sprintf("Out of stock - Current: %g, Reorder point: %g", item.Quantity, item.ReorderPoint)
		} else {
			a.Type = model.AlertLowStock
			a.Severity = model.SeverityWarning
			a.Message = fmt.Sprintf("Low stock - Current: %g, Reorder point: %g", item.Quantity, item.ReorderPoint)
		}
		a.CurrentValue = item.Quantity
		a.ThresholdValue = item.ReorderPoint
		alerts = append(alerts, a)
	}

	if days := DaysUntilExpiry(item.ExpiryDate, now); days != nil {
		switch {
		case *days <= 0:
			a := base
			a.Type = model.AlertExpired
			a.Severity = model.SeverityCritical
			a.Message = fmt.Sprintf("Expired on %s", item.ExpiryDate.Format("2006-01-02"))
			a.CurrentValue = float64(*days)
			alerts = append(alerts, a)
		case *days <= expiringSoonDays:
			a := base
			a.Type = model.AlertExpiringSoon
			a.Severity = model.SeverityWarning
			if *days <= expiringCriticalDays {
				a.Severity = model.SeverityCritical
			}
			a.Message = fmt.Sprintf("Expiring in %d days", *days)
			a.CurrentValue = float64(*days)
			a.ThresholdValue = expiringSoonDays
			alerts = append(alerts, a)
		}
	}

	return alerts
}

// CurrentSeason maps a month to the growing season used for batch tagging and
// marketplace recommendations.
func CurrentSeason(now time.Time) model.Season {
	switch m := now.Month(); {
	case m >= time.March && m <= time.May:
		return model.SeasonSpring
	case m >= time.June && m <= time.August:
		return model.SeasonSummer
	case m >= time.September && m <= time.November:
		return model.SeasonAutumn
	default:
		return model.SeasonWinter
	}
}
