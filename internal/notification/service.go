package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harvestly/farmstand-service/internal/model"
	"github.com/harvestly/farmstand-service/internal/pkg/broker"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// Event is the envelope published to the notification topic. Delivery workers
// downstream fan it out to email and push channels.
type Event struct {
	ID          string                 `json:"id"`
	Type        model.NotificationType `json:"type"`
	RecipientID string                 `json:"recipient_id"`
	Title       string                 `json:"title"`
	Body        string                 `json:"body"`
	ReferenceID string                 `json:"reference_id,omitempty"`
	OccurredAt  time.Time              `json:"occurred_at"`
	Payload     map[string]any         `json:"payload,omitempty"`
}

// Service records notifications and emits them to the event topic. Failures
// are logged, never surfaced: a dropped notification must not fail the
// business operation that triggered it.
type Service struct {
	db       *sqlx.DB
	producer *broker.Producer
	logger   *zap.Logger
}

func NewService(db *sqlx.DB, producer *broker.Producer, log *zap.Logger) *Service {
	return &Service{db: db, producer: producer, logger: log}
}

func (s *Service) OrderStatusChanged(ctx context.Context, order *model.Order, previous model.OrderStatus) {
	title := fmt.Sprintf("Order %s is now %s", order.OrderNumber, order.Status)
	s.emit(ctx, &Event{
		Type:        model.NotificationOrderStatus,
		RecipientID: order.CustomerID,
		Title:       title,
		Body:        fmt.Sprintf("Your order from status %s moved to %s.", previous, order.Status),
		ReferenceID: order.ID,
		Payload: map[string]any{
			"order_number":    order.OrderNumber,
			"farm_id":         order.FarmID,
			"previous_status": previous,
			"status":          order.Status,
		},
	})
}

func (s *Service) InventoryAlert(ctx context.Context, alert *model.InventoryAlert, farmOwnerID string) {
	s.emit(ctx, &Event{
		Type:        model.NotificationInventoryAlert,
		RecipientID: farmOwnerID,
		Title:       fmt.Sprintf("Inventory alert: %s", alert.Type),
		Body:        alert.Message,
		ReferenceID: alert.InventoryItemID,
		Payload: map[string]any{
			"alert_type": alert.Type,
			"severity":   alert.Severity,
		},
	})
}

func (s *Service) PayoutStatusChanged(ctx context.Context, payout *model.Payout, farmOwnerID string) {
	s.emit(ctx, &Event{
		Type:        model.NotificationPayout,
		RecipientID: farmOwnerID,
		Title:       fmt.Sprintf("Payout %s", payout.Status),
		Body:        fmt.Sprintf("Payout of $%s for %s through %s is %s.", payout.Amount, payout.PeriodStart.Format("Jan 2"), payout.PeriodEnd.Format("Jan 2"), payout.Status),
		ReferenceID: payout.ID,
		Payload: map[string]any{
			"farm_id": payout.FarmID,
			"amount":  payout.Amount,
			"status":  payout.Status,
		},
	})
}

func (s *Service) emit(ctx context.Context, event *Event) {
	event.ID = uuid.NewString()
	event.OccurredAt = time.Now()

	if s.db != nil {
		row := &model.Notification{
			ID:          event.ID,
			RecipientID: event.RecipientID,
			Type:        event.Type,
			Title:       event.Title,
			Body:        event.Body,
			CreatedAt:   event.OccurredAt,
		}
		if event.ReferenceID != "" {
			row.ReferenceID = &event.ReferenceID
		}
		query := `INSERT INTO notifications (id, recipient_id, type, title, body, reference_id, is_read, created_at)
			VALUES (:id, :recipient_id, :type, :title, :body, :reference_id, :is_read, :created_at)`
		if _, err := s.db.NamedExecContext(ctx, query, row); err != nil {
			s.logger.Error("failed to record notification",
				zap.String("type", string(event.Type)), zap.Error(err))
		}
	}

	if s.producer == nil {
		return
	}
	if err := s.producer.Publish(ctx, event.RecipientID, event); err != nil {
		s.logger.Error("failed to publish notification event",
			zap.String("type", string(event.Type)), zap.Error(err))
	}
}
