package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/harvestly/farmstand-service/internal/apperrors"
	"github.com/harvestly/farmstand-service/internal/auth"
	"github.com/harvestly/farmstand-service/internal/httpx"
	"github.com/harvestly/farmstand-service/internal/model"
	"github.com/harvestly/farmstand-service/internal/payout"
	"github.com/harvestly/farmstand-service/internal/payout/dto"
	"go.uber.org/zap"
)

type PayoutHandler struct {
	uc     payout.UseCase
	logger *zap.Logger
}

func NewPayoutHandler(uc payout.UseCase, log *zap.Logger) *PayoutHandler {
	return &PayoutHandler{uc: uc, logger: log}
}

func (h *PayoutHandler) Routes(r chi.Router) {
	r.Route("/payouts", func(r chi.Router) {
		r.Post("/run", h.RunPayout)
		r.Get("/", h.ListPayouts)
		r.Get("/earnings", h.Earnings)
		r.Get("/schedule", h.GetSchedule)
		r.Put("/schedule", h.UpdateSchedule)
		r.Post("/accounts", h.AddAccount)
		r.Get("/accounts", h.ListAccounts)
		r.Post("/accounts/{accountID}/default", h.SetDefaultAccount)
		r.Delete("/accounts/{accountID}", h.RemoveAccount)
		r.Get("/{payoutID}", h.GetPayout)
	})
}

// farmFor resolves the target farm and rejects callers who do not manage it.
func farmFor(r *http.Request) (string, auth.Actor, error) {
	actor, _ := auth.ActorFrom(r.Context())
	farmID := r.URL.Query().Get("farm_id")
	if farmID == "" {
		farmID = actor.FarmID
	}
	if farmID == "" {
		return "", actor, apperrors.Validation("farm_id is required")
	}
	if !actor.ManagesFarm(farmID) {
		return "", actor, apperrors.Authorization("payouts are restricted to the farm owner")
	}
	return farmID, actor, nil
}

func (h *PayoutHandler) RunPayout(w http.ResponseWriter, r *http.Request) {
	var input dto.RunPayoutInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Error(w, h.logger, err)
		return
	}

	actor, _ := auth.ActorFrom(r.Context())
	if input.FarmID == "" {
		input.FarmID = actor.FarmID
	}
	if !actor.ManagesFarm(input.FarmID) {
		httpx.Error(w, h.logger, apperrors.Authorization("payouts are restricted to the farm owner"))
		return
	}
	input.RequestedBy = actor.ID

	p, err := h.uc.RunPayout(r.Context(), &input)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

func (h *PayoutHandler) GetPayout(w http.ResponseWriter, r *http.Request) {
	p, err := h.uc.GetPayout(r.Context(), chi.URLParam(r, "payoutID"))
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}

	actor, _ := auth.ActorFrom(r.Context())
	if !actor.ManagesFarm(p.FarmID) {
		httpx.Error(w, h.logger, apperrors.Authorization("payouts are restricted to the farm owner"))
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *PayoutHandler) ListPayouts(w http.ResponseWriter, r *http.Request) {
	farmID, _, err := farmFor(r)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}

	q := r.URL.Query()
	f := &dto.PayoutFilters{
		FarmID:   farmID,
		Page:     queryInt(q.Get("page"), 1),
		PageSize: queryInt(q.Get("page_size"), 20),
	}
	if raw := q.Get("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				f.Status = append(f.Status, model.PayoutStatus(s))
			}
		}
	}

	list, err := h.uc.ListPayouts(r.Context(), f)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *PayoutHandler) Earnings(w http.ResponseWriter, r *http.Request) {
	farmID, _, err := farmFor(r)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	e, err := h.uc.Earnings(r.Context(), farmID)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, e)
}

func (h *PayoutHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	farmID, _, err := farmFor(r)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	s, err := h.uc.GetSchedule(r.Context(), farmID)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, s)
}

func (h *PayoutHandler) UpdateSchedule(w http.ResponseWriter, r *http.Request) {
	farmID, _, err := farmFor(r)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}

	var input dto.UpdateScheduleInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	input.FarmID = farmID

	s, err := h.uc.UpdateSchedule(r.Context(), &input)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, s)
}

func (h *PayoutHandler) AddAccount(w http.ResponseWriter, r *http.Request) {
	farmID, _, err := farmFor(r)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}

	var input dto.AddAccountInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	input.FarmID = farmID

	a, err := h.uc.AddAccount(r.Context(), &input)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, a)
}

func (h *PayoutHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	farmID, _, err := farmFor(r)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	accounts, err := h.uc.ListAccounts(r.Context(), farmID)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, accounts)
}

func (h *PayoutHandler) SetDefaultAccount(w http.ResponseWriter, r *http.Request) {
	farmID, _, err := farmFor(r)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	if err := h.uc.SetDefaultAccount(r.Context(), farmID, chi.URLParam(r, "accountID")); err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *PayoutHandler) RemoveAccount(w http.ResponseWriter, r *http.Request) {
	farmID, _, err := farmFor(r)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	if err := h.uc.RemoveAccount(r.Context(), farmID, chi.URLParam(r, "accountID")); err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "removed"})
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
