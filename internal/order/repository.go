package order

import (
	"context"
	"time"

	"github.com/harvestly/farmstand-service/internal/model"
	"github.com/harvestly/farmstand-service/internal/order/dto"
)

type Repository interface {
	Create(ctx context.Context, order *model.Order) error
	GetByID(ctx context.Context, id string) (*model.Order, error)
	GetByPaymentIntent(ctx context.Context, paymentIntentID string) (*model.Order, error)
	FindAll(ctx context.Context, f *dto.OrderFilters) ([]model.Order, int, error)

	// UpdateStatus persists a transition only when the stored status still
	// equals from; a concurrent transition makes it report no rows.
	UpdateStatus(ctx context.Context, id string, from, to model.OrderStatus) (*model.Order, error)
	UpdatePaymentStatus(ctx context.Context, id string, status model.PaymentStatus) error
	SetPaymentIntent(ctx context.Context, id, paymentIntentID string) error
	MarkCancelled(ctx context.Context, id string, from model.OrderStatus, reason, cancelledBy string) (*model.Order, error)

	CountForDay(ctx context.Context, day time.Time) (int, error)
	Statistics(ctx context.Context, farmID string, start, end *time.Time) (*dto.Statistics, error)
}
