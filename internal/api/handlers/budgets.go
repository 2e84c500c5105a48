package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/dvloznov/sheets-finance-tracker/internal/api/middleware"
	"github.com/dvloznov/sheets-finance-tracker/internal/budget"
	"github.com/dvloznov/sheets-finance-tracker/internal/domain"
	"github.com/dvloznov/sheets-finance-tracker/internal/ledger"
)

// BudgetHandler serves the spending check, the forecast and budget settings.
type BudgetHandler struct {
	ledger  ledger.Provider
	service *budget.Service
}

// NewBudgetHandler creates a new budget handler.
func NewBudgetHandler(provider ledger.Provider, service *budget.Service) *BudgetHandler {
	return &BudgetHandler{ledger: provider, service: service}
}

// CheckSpendingLimit handles POST /api/check-spending-limit
func (h *BudgetHandler) CheckSpendingLimit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Category *string  `json:"category"`
		Amount   *float64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Category == nil {
		middleware.WriteFieldError(w, "category", "category is required")
		return
	}
	if req.Amount == nil {
		middleware.WriteFieldError(w, "amount", "amount is required")
		return
	}

	amount, ok := amountField(w, "amount", *req.Amount)
	if !ok {
		return
	}

	store, ok := storeFor(w, r, h.ledger)
	if !ok {
		return
	}

	res, err := h.service.CheckBeforeSpend(r.Context(), store, *req.Category, amount)
	if err != nil {
		writeServiceError(w, r, err, "Failed to check spending limit")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, res)
}

// SpendingVelocity handles GET /api/spending-velocity?category=
func (h *BudgetHandler) SpendingVelocity(w http.ResponseWriter, r *http.Request) {
	store, ok := storeFor(w, r, h.ledger)
	if !ok {
		return
	}

	res, err := h.service.GetForecast(r.Context(), store, r.URL.Query().Get("category"))
	if err != nil {
		writeServiceError(w, r, err, "Failed to forecast spending")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, res)
}

// ListBudgets handles GET /api/budgets
func (h *BudgetHandler) ListBudgets(w http.ResponseWriter, r *http.Request) {
	store, ok := storeFor(w, r, h.ledger)
	if !ok {
		return
	}

	budgets, err := h.service.ListBudgets(r.Context(), store)
	if err != nil {
		writeServiceError(w, r, err, "Failed to list budgets")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"budgets": budgets,
		"count":   len(budgets),
	})
}

// PutBudget handles PUT /api/budgets/{category}
// Omitted or zero dailyLimit, weeklyLimit and alertThresholdPercent mean the
// defaults: monthlyLimit/30, monthlyLimit/4 and 80%.
func (h *BudgetHandler) PutBudget(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MonthlyLimit          *float64 `json:"monthlyLimit"`
		Period                string   `json:"period"`
		AlertThresholdPercent int      `json:"alertThresholdPercent"`
		DailyLimit            float64  `json:"dailyLimit"`
		WeeklyLimit           float64  `json:"weeklyLimit"`
		BlockOnExceed         bool     `json:"blockOnExceed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.MonthlyLimit == nil {
		middleware.WriteFieldError(w, "monthlyLimit", "monthly limit is required")
		return
	}

	b := domain.Budget{
		Category:              r.PathValue("category"),
		Period:                domain.Period(req.Period),
		AlertThresholdPercent: req.AlertThresholdPercent,
		BlockOnExceed:         req.BlockOnExceed,
	}
	var ok bool
	if b.MonthlyLimit, ok = amountField(w, "monthlyLimit", *req.MonthlyLimit); !ok {
		return
	}
	if b.DailyLimit, ok = amountField(w, "dailyLimit", req.DailyLimit); !ok {
		return
	}
	if b.WeeklyLimit, ok = amountField(w, "weeklyLimit", req.WeeklyLimit); !ok {
		return
	}

	store, ok := storeFor(w, r, h.ledger)
	if !ok {
		return
	}

	saved, err := h.service.SaveBudget(r.Context(), store, b)
	if err != nil {
		writeServiceError(w, r, err, "Failed to save budget")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, saved)
}

// BudgetStatus handles GET /api/budgets/status
func (h *BudgetHandler) BudgetStatus(w http.ResponseWriter, r *http.Request) {
	store, ok := storeFor(w, r, h.ledger)
	if !ok {
		return
	}

	rows, err := h.service.BudgetStatus(r.Context(), store)
	if err != nil {
		writeServiceError(w, r, err, "Failed to compute budget status")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"budgets": rows,
		"count":   len(rows),
	})
}
