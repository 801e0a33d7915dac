package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/harvestly/farmstand-service/internal/apperrors"
	"github.com/harvestly/farmstand-service/internal/auth"
	"github.com/harvestly/farmstand-service/internal/httpx"
	"github.com/harvestly/farmstand-service/internal/model"
	"github.com/harvestly/farmstand-service/internal/order"
	"github.com/harvestly/farmstand-service/internal/order/dto"
	"go.uber.org/zap"
)

type OrderHandler struct {
	uc     order.UseCase
	logger *zap.Logger
}

func NewOrderHandler(uc order.UseCase, log *zap.Logger) *OrderHandler {
	return &OrderHandler{uc: uc, logger: log}
}

func (h *OrderHandler) Routes(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.CreateOrder)
		r.Get("/", h.ListOrders)
		r.Get("/statistics", h.Statistics)
		r.Get("/{orderID}", h.GetOrder)
		r.Post("/{orderID}/status", h.Transition)
		r.Post("/{orderID}/cancel", h.CancelOrder)
	})
}

func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var input dto.CreateOrderInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	if actor, ok := auth.ActorFrom(r.Context()); ok && input.CustomerID == "" {
		input.CustomerID = actor.ID
	}

	o, err := h.uc.CreateOrder(r.Context(), &input)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, o)
}

func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.uc.GetOrder(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}

	actor, _ := auth.ActorFrom(r.Context())
	if !actor.CanCancelOrder(o.CustomerID, o.FarmID) {
		httpx.Error(w, h.logger, apperrors.Authorization("not a party to this order"))
		return
	}
	httpx.JSON(w, http.StatusOK, o)
}

func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	f := parseOrderFilters(r)

	// Non-admin callers only see their own side of the marketplace.
	actor, _ := auth.ActorFrom(r.Context())
	if !actor.IsAdmin() {
		if actor.FarmID != "" {
			f.FarmID = actor.FarmID
		} else {
			f.CustomerID = actor.ID
		}
	}

	list, err := h.uc.ListOrders(r.Context(), f)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *OrderHandler) Transition(w http.ResponseWriter, r *http.Request) {
	var input dto.TransitionInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	input.OrderID = chi.URLParam(r, "orderID")

	o, err := h.uc.Transition(r.Context(), &input)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, o)
}

func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	var input dto.CancelOrderInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	input.OrderID = chi.URLParam(r, "orderID")

	o, err := h.uc.CancelOrder(r.Context(), &input)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, o)
}

func (h *OrderHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFrom(r.Context())
	farmID := r.URL.Query().Get("farm_id")
	if farmID == "" {
		farmID = actor.FarmID
	}
	if !actor.ManagesFarm(farmID) {
		httpx.Error(w, h.logger, apperrors.Authorization("statistics are restricted to the farm owner"))
		return
	}

	f := parseOrderFilters(r)
	stats, err := h.uc.Statistics(r.Context(), farmID, f)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, stats)
}

func parseOrderFilters(r *http.Request) *dto.OrderFilters {
	q := r.URL.Query()
	f := &dto.OrderFilters{
		CustomerID:    q.Get("customer_id"),
		FarmID:        q.Get("farm_id"),
		PaymentStatus: model.PaymentStatus(q.Get("payment_status")),
		Fulfillment:   model.FulfillmentMethod(q.Get("fulfillment_method")),
		Page:          queryInt(q.Get("page"), 1),
		PageSize:      queryInt(q.Get("page_size"), 20),
	}
	if raw := q.Get("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				f.Status = append(f.Status, model.OrderStatus(s))
			}
		}
	}
	if t, err := time.Parse(time.RFC3339, q.Get("start_date")); err == nil {
		f.StartDate = &t
	}
	if t, err := time.Parse(time.RFC3339, q.Get("end_date")); err == nil {
		f.EndDate = &t
	}
	return f
}

func queryInt(v string, fallback int) int {
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
