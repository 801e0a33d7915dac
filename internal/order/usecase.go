package order

import (
	"context"

	"github.com/harvestly/farmstand-service/internal/model"
	"github.com/harvestly/farmstand-service/internal/order/dto"
)

type UseCase interface {
	CreateOrder(ctx context.Context, input *dto.CreateOrderInput) (*model.Order, error)
	GetOrder(ctx context.Context, id string) (*model.Order, error)
	ListOrders(ctx context.Context, f *dto.OrderFilters) (*dto.OrderList, error)

	Transition(ctx context.Context, input *dto.TransitionInput) (*model.Order, error)
	CancelOrder(ctx context.Context, input *dto.CancelOrderInput) (*model.Order, error)

	MarkPaid(ctx context.Context, paymentIntentID string) error
	MarkPaymentFailed(ctx context.Context, paymentIntentID, reason string) error

	Statistics(ctx context.Context, farmID string, f *dto.OrderFilters) (*dto.Statistics, error)
}
