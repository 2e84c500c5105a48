package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/sheets-finance-tracker/internal/api/middleware"
	"github.com/dvloznov/sheets-finance-tracker/internal/budget"
	"github.com/dvloznov/sheets-finance-tracker/internal/domain"
	"github.com/dvloznov/sheets-finance-tracker/internal/ledger"
)

// TransactionsHandler handles transaction-related endpoints.
type TransactionsHandler struct {
	ledger  ledger.Provider
	service *budget.Service
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(provider ledger.Provider, service *budget.Service) *TransactionsHandler {
	return &TransactionsHandler{ledger: provider, service: service}
}

// ListTransactions handles GET /api/transactions
func (h *TransactionsHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	now := h.service.Now()

	filter := ledger.TransactionFilter{
		Category: query.Get("category"),
		// Default to the last year.
		Since: civil.DateOf(now.AddDate(-1, 0, 0)),
		Until: civil.DateOf(now),
	}

	var err error
	if s := query.Get("start_date"); s != "" {
		if filter.Since, err = civil.ParseDate(s); err != nil {
			middleware.WriteFieldError(w, "start_date", "Invalid start_date format")
			return
		}
	}
	if s := query.Get("end_date"); s != "" {
		if filter.Until, err = civil.ParseDate(s); err != nil {
			middleware.WriteFieldError(w, "end_date", "Invalid end_date format")
			return
		}
	}
	if s := query.Get("include_inactive"); s != "" {
		if filter.IncludeInactive, err = strconv.ParseBool(s); err != nil {
			middleware.WriteFieldError(w, "include_inactive", "Invalid include_inactive value")
			return
		}
	}

	store, ok := storeFor(w, r, h.ledger)
	if !ok {
		return
	}

	transactions, err := store.ListTransactions(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err, "Failed to query transactions")
		return
	}

	// Return array directly for frontend compatibility
	if transactions == nil {
		transactions = []domain.Transaction{}
	}
	middleware.WriteJSON(w, http.StatusOK, transactions)
}

// CreateTransaction handles POST /api/transactions
func (h *TransactionsHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title    string   `json:"title"`
		Category string   `json:"category"`
		Amount   *float64 `json:"amount"`
		Date     string   `json:"date"`
		Kind     string   `json:"kind"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
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

	in := budget.NewTransaction{
		Title:    req.Title,
		Category: req.Category,
		Amount:   amount,
	}
	if req.Date != "" {
		d, err := civil.ParseDate(req.Date)
		if err != nil {
			middleware.WriteFieldError(w, "date", "Invalid date format")
			return
		}
		in.Date = d
	}
	if req.Kind != "" {
		in.Kind = domain.ParseKind(req.Kind)
	}

	store, ok := storeFor(w, r, h.ledger)
	if !ok {
		return
	}

	tx, err := h.service.AddTransaction(r.Context(), store, in)
	if err != nil {
		writeServiceError(w, r, err, "Failed to add transaction")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, tx)
}

// DeleteTransaction handles DELETE /api/transactions/{id}
func (h *TransactionsHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	store, ok := storeFor(w, r, h.ledger)
	if !ok {
		return
	}

	id := r.PathValue("id")
	if err := h.service.DeleteTransaction(r.Context(), store, id); err != nil {
		writeServiceError(w, r, err, "Failed to delete transaction")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"id":     id,
		"status": "deleted",
	})
}
