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
	"github.com/harvestly/farmstand-service/internal/inventory"
	"github.com/harvestly/farmstand-service/internal/inventory/dto"
	"github.com/harvestly/farmstand-service/internal/model"
	"go.uber.org/zap"
)

type InventoryHandler struct {
	uc     inventory.UseCase
	logger *zap.Logger
}

func NewInventoryHandler(uc inventory.UseCase, log *zap.Logger) *InventoryHandler {
	return &InventoryHandler{uc: uc, logger: log}
}

func (h *InventoryHandler) Routes(r chi.Router) {
	r.Route("/inventory", func(r chi.Router) {
		r.Post("/", h.CreateItem)
		r.Get("/", h.ListItems)
		r.Get("/metrics", h.Metrics)
		r.Get("/movements", h.ListMovements)
		r.Get("/alerts", h.ListAlerts)
		r.Post("/alerts/{alertID}/resolve", h.ResolveAlert)
		r.Post("/batches", h.CreateBatch)
		r.Get("/{itemID}", h.GetItem)
		r.Post("/{itemID}/adjust", h.AdjustStock)
		r.Post("/{itemID}/reserve", h.ReserveStock)
		r.Post("/{itemID}/release", h.ReleaseStock)
	})
}

func (h *InventoryHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var input dto.CreateItemInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Error(w, h.logger, err)
		return
	}

	actor, _ := auth.ActorFrom(r.Context())
	if !actor.ManagesFarm(input.FarmID) {
		httpx.Error(w, h.logger, apperrors.Authorization("only the farm owner can add inventory"))
		return
	}

	item, err := h.uc.CreateItem(r.Context(), &input)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, item)
}

func (h *InventoryHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.uc.GetItem(r.Context(), chi.URLParam(r, "itemID"))
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *InventoryHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	f := parseItemFilters(r)
	list, err := h.uc.ListItems(r.Context(), f)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *InventoryHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	farmID := r.URL.Query().Get("farm_id")
	if farmID == "" {
		httpx.Error(w, h.logger, apperrors.Validation("farm_id is required"))
		return
	}
	actor, _ := auth.ActorFrom(r.Context())
	if !actor.ManagesFarm(farmID) {
		httpx.Error(w, h.logger, apperrors.Authorization("only the farm owner can view inventory metrics"))
		return
	}
	m, err := h.uc.Metrics(r.Context(), farmID)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, m)
}

// requireItemAccess loads the item and checks the actor operates its farm.
// Checkout reserves stock through the order flow, not these endpoints, so
// every HTTP stock mutation is farm-staff only.
func (h *InventoryHandler) requireItemAccess(r *http.Request, itemID string) error {
	item, err := h.uc.GetItem(r.Context(), itemID)
	if err != nil {
		return err
	}
	actor, _ := auth.ActorFrom(r.Context())
	if !actor.ManagesFarm(item.FarmID) {
		return apperrors.Authorization("only the farm owner can modify stock")
	}
	return nil
}

func (h *InventoryHandler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	var input dto.AdjustStockInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	input.InventoryItemID = chi.URLParam(r, "itemID")

	if err := h.requireItemAccess(r, input.InventoryItemID); err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	if actor, ok := auth.ActorFrom(r.Context()); ok && input.PerformedBy == "" {
		input.PerformedBy = actor.ID
	}

	item, err := h.uc.AdjustStock(r.Context(), &input)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *InventoryHandler) ReserveStock(w http.ResponseWriter, r *http.Request) {
	var input dto.ReserveStockInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	input.InventoryItemID = chi.URLParam(r, "itemID")

	if err := h.requireItemAccess(r, input.InventoryItemID); err != nil {
		httpx.Error(w, h.logger, err)
		return
	}

	item, err := h.uc.ReserveStock(r.Context(), &input)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *InventoryHandler) ReleaseStock(w http.ResponseWriter, r *http.Request) {
	var input dto.ReleaseStockInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	input.InventoryItemID = chi.URLParam(r, "itemID")

	if err := h.requireItemAccess(r, input.InventoryItemID); err != nil {
		httpx.Error(w, h.logger, err)
		return
	}

	item, err := h.uc.ReleaseStock(r.Context(), &input)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *InventoryHandler) ListMovements(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := &dto.MovementFilters{
		InventoryItemID: q.Get("inventory_item_id"),
		FarmID:          q.Get("farm_id"),
		Type:            model.MovementType(q.Get("type")),
		Page:            queryInt(q.Get("page"), 1),
		PageSize:        queryInt(q.Get("page_size"), 50),
	}
	if t, err := time.Parse(time.RFC3339, q.Get("start_date")); err == nil {
		f.StartDate = &t
	}
	if t, err := time.Parse(time.RFC3339, q.Get("end_date")); err == nil {
		f.EndDate = &t
	}

	movements, total, err := h.uc.ListMovements(r.Context(), f)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"movements": movements,
		"total":     total,
		"page":      f.Page,
		"limit":     f.PageSize,
	})
}

func (h *InventoryHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	farmID := q.Get("farm_id")
	if farmID == "" {
		httpx.Error(w, h.logger, apperrors.Validation("farm_id is required"))
		return
	}
	unresolvedOnly := q.Get("include_resolved") != "true"

	alerts, err := h.uc.ListAlerts(r.Context(), farmID, unresolvedOnly)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, alerts)
}

func (h *InventoryHandler) ResolveAlert(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFrom(r.Context())
	if !actor.IsFarmer() {
		httpx.Error(w, h.logger, apperrors.Authorization("only farm staff can resolve alerts"))
		return
	}
	if err := h.uc.ResolveAlert(r.Context(), chi.URLParam(r, "alertID"), actor.ID); err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "resolved"})
}

func (h *InventoryHandler) CreateBatch(w http.ResponseWriter, r *http.Request) {
	var input dto.CreateBatchInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Error(w, h.logger, err)
		return
	}

	actor, _ := auth.ActorFrom(r.Context())
	if !actor.ManagesFarm(input.FarmID) {
		httpx.Error(w, h.logger, apperrors.Authorization("only the farm owner can create batches"))
		return
	}

	batch, err := h.uc.CreateBatch(r.Context(), &input)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, batch)
}

func parseItemFilters(r *http.Request) *dto.ItemFilters {
	q := r.URL.Query()
	f := &dto.ItemFilters{
		FarmID:             q.Get("farm_id"),
		ProductID:          q.Get("product_id"),
		LocationID:         q.Get("location_id"),
		LowStock:           q.Get("low_stock") == "true",
		ExpiringWithinDays: queryInt(q.Get("expiring_within_days"), 0),
		Search:             q.Get("search"),
		Page:               queryInt(q.Get("page"), 1),
		PageSize:           queryInt(q.Get("page_size"), 20),
		SortBy:             q.Get("sort_by"),
		SortOrder:          q.Get("sort_order"),
	}
	for _, s := range splitParam(q.Get("status")) {
		f.Status = append(f.Status, model.InventoryStatus(s))
	}
	for _, s := range splitParam(q.Get("season")) {
		f.Season = append(f.Season, model.Season(s))
	}
	for _, s := range splitParam(q.Get("quality_grade")) {
		f.QualityGrade = append(f.QualityGrade, model.QualityGrade(s))
	}
	f.StorageCondition = splitParam(q.Get("storage_condition"))
	if v := q.Get("is_organic"); v != "" {
		organic := v == "true"
		f.IsOrganic = &organic
	}
	return f
}

func splitParam(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
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
