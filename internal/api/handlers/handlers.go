package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/dvloznov/sheets-finance-tracker/internal/api/middleware"
	"github.com/dvloznov/sheets-finance-tracker/internal/budget"
	"github.com/dvloznov/sheets-finance-tracker/internal/identity"
	"github.com/dvloznov/sheets-finance-tracker/internal/jobs"
	"github.com/dvloznov/sheets-finance-tracker/internal/ledger"
	"github.com/dvloznov/sheets-finance-tracker/internal/logger"
	"github.com/dvloznov/sheets-finance-tracker/internal/money"
)

// Routes registers every endpoint on mux.
func Routes(mux *http.ServeMux, b *BudgetHandler, t *TransactionsHandler, j *JobsHandler) {
	mux.HandleFunc("POST /api/check-spending-limit", b.CheckSpendingLimit)
	mux.HandleFunc("GET /api/spending-velocity", b.SpendingVelocity)
	mux.HandleFunc("GET /api/budgets", b.ListBudgets)
	mux.HandleFunc("GET /api/budgets/status", b.BudgetStatus)
	mux.HandleFunc("PUT /api/budgets/{category}", b.PutBudget)

	mux.HandleFunc("GET /api/transactions", t.ListTransactions)
	mux.HandleFunc("POST /api/transactions", t.CreateTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", t.DeleteTransaction)

	if j != nil {
		mux.HandleFunc("GET /api/jobs", j.ListJobs)
		mux.HandleFunc("GET /api/jobs/{id}", j.GetJob)
	}

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
}

// storeFor resolves the authenticated caller's ledger. It writes the error
// response itself and reports false when the request cannot continue.
func storeFor(w http.ResponseWriter, r *http.Request, provider ledger.Provider) (ledger.Store, bool) {
	user, ok := identity.FromContext(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "unauthenticated")
		return nil, false
	}

	store, err := provider.StoreFor(r.Context(), user)
	if err != nil {
		writeServiceError(w, r, err, "Failed to open ledger")
		return nil, false
	}
	return store, true
}

// amountField converts a decoded JSON amount, answering 400 for the named
// field when it is out of range.
func amountField(w http.ResponseWriter, field string, v float64) (int64, bool) {
	amount, err := money.FromFloat(v)
	if err != nil {
		middleware.WriteFieldError(w, field, field+" is out of range")
		return 0, false
	}
	return amount, true
}

// writeServiceError maps budget and ledger errors onto HTTP statuses.
// msg is used for server-side failures.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	var ie *budget.InputError
	switch {
	case errors.As(err, &ie):
		middleware.WriteFieldError(w, ie.Field, ie.Message)
	case errors.Is(err, budget.ErrUnauthenticated):
		middleware.WriteError(w, http.StatusUnauthorized, "unauthenticated")
	case errors.Is(err, ledger.ErrNotFound), errors.Is(err, jobs.ErrJobNotFound):
		middleware.WriteError(w, http.StatusNotFound, "Not found")
	default:
		lg := logger.FromContext(r.Context())
		lg.Error().Err(err).Str("path", r.URL.Path).Msg(msg)
		middleware.WriteError(w, http.StatusInternalServerError, msg)
	}
}

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	store jobs.JobStore
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore) *JobsHandler {
	return &JobsHandler{store: store}
}

// GetJob handles GET /api/jobs/{id}. Jobs of other users are reported as missing.
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jobID := r.PathValue("id")
	user, _ := identity.FromContext(ctx)

	job, err := h.store.GetJob(ctx, jobID)
	if err != nil {
		writeServiceError(w, r, err, "Failed to get job")
		return
	}
	if job.Recipient != user.Email {
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, _ := identity.FromContext(ctx)

	// Parse query parameters
	query := r.URL.Query()
	filter := jobs.JobFilter{
		Recipient: user.Email,
		Status:    jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(ctx, filter)
	if err != nil {
		writeServiceError(w, r, err, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}
