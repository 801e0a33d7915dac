package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/harvestly/farmstand-service/internal/apperrors"
	"github.com/harvestly/farmstand-service/internal/auth"
	"github.com/harvestly/farmstand-service/internal/httpx"
	"github.com/harvestly/farmstand-service/internal/marketplace"
	"github.com/harvestly/farmstand-service/internal/marketplace/dto"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type MarketplaceHandler struct {
	uc     marketplace.UseCase
	logger *zap.Logger
}

func NewMarketplaceHandler(uc marketplace.UseCase, log *zap.Logger) *MarketplaceHandler {
	return &MarketplaceHandler{uc: uc, logger: log}
}

func (h *MarketplaceHandler) Routes(r chi.Router) {
	r.Route("/marketplace", func(r chi.Router) {
		r.Post("/products", h.CreateProduct)
		r.Get("/products", h.SearchProducts)
		r.Get("/products/{productID}", h.GetProduct)
		r.Get("/farms", h.ListFarms)
		r.Get("/farms/{farmID}", h.GetFarm)
		r.Get("/recommendations", h.Recommendations)
		r.Post("/reindex", h.Reindex)
	})
}

func (h *MarketplaceHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var input dto.CreateProductInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Error(w, h.logger, err)
		return
	}

	actor, _ := auth.ActorFrom(r.Context())
	if input.FarmID == "" {
		input.FarmID = actor.FarmID
	}
	if !actor.ManagesFarm(input.FarmID) {
		httpx.Error(w, h.logger, apperrors.Authorization("only the farm owner can list products"))
		return
	}

	p, err := h.uc.CreateProduct(r.Context(), &input)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

func (h *MarketplaceHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.uc.GetProduct(r.Context(), chi.URLParam(r, "productID"))
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *MarketplaceHandler) SearchProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := &dto.ProductFilters{
		FarmID:    q.Get("farm_id"),
		Category:  q.Get("category"),
		Search:    q.Get("search"),
		SortBy:    q.Get("sort_by"),
		SortOrder: q.Get("sort_order"),
		Page:      queryInt(q.Get("page"), 1),
		PageSize:  queryInt(q.Get("page_size"), 20),
	}
	if v := q.Get("is_organic"); v != "" {
		organic := v == "true"
		f.IsOrganic = &organic
	}
	if v := q.Get("min_price"); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			f.MinPrice = &d
		}
	}
	if v := q.Get("max_price"); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			f.MaxPrice = &d
		}
	}

	list, err := h.uc.SearchProducts(r.Context(), f)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *MarketplaceHandler) ListFarms(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := &dto.FarmFilters{
		City:     q.Get("city"),
		State:    q.Get("state"),
		Search:   q.Get("search"),
		Page:     queryInt(q.Get("page"), 1),
		PageSize: queryInt(q.Get("page_size"), 20),
	}
	if v := q.Get("verified"); v != "" {
		verified := v == "true"
		f.Verified = &verified
	}

	list, err := h.uc.ListFarms(r.Context(), f)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *MarketplaceHandler) GetFarm(w http.ResponseWriter, r *http.Request) {
	farm, err := h.uc.GetFarm(r.Context(), chi.URLParam(r, "farmID"))
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, farm)
}

func (h *MarketplaceHandler) Recommendations(w http.ResponseWriter, r *http.Request) {
	rec, err := h.uc.Recommendations(r.Context())
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

func (h *MarketplaceHandler) Reindex(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFrom(r.Context())
	if !actor.IsAdmin() {
		httpx.Error(w, h.logger, apperrors.Authorization("reindexing requires admin access"))
		return
	}
	if err := h.uc.ReindexProducts(r.Context()); err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "reindexed"})
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
