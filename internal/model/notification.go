package model

import "time"

type NotificationType string

const (
	NotificationOrderStatus    NotificationType = "ORDER_STATUS"
	NotificationInventoryAlert NotificationType = "INVENTORY_ALERT"
	NotificationPayout         NotificationType = "PAYOUT"
)

// Notification is the persisted record; delivery happens downstream of the
// event topic and is out of scope here.
type Notification struct {
	ID          string           `db:"id" json:"id"`
	RecipientID string           `db:"recipient_id" json:"recipient_id"`
	Type        NotificationType `db:"type" json:"type"`
	Title       string           `db:"title" json:"title"`
	Body        string           `db:"body" json:"body"`
	ReferenceID *string          `db:"reference_id" json:"reference_id"`
	IsRead      bool             `db:"is_read" json:"is_read"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
}
