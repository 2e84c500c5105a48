package budget

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/sheets-finance-tracker/internal/domain"
	"github.com/dvloznov/sheets-finance-tracker/internal/ledger"
	"github.com/dvloznov/sheets-finance-tracker/internal/logger"
	"github.com/dvloznov/sheets-finance-tracker/internal/money"
	"github.com/google/uuid"
)

// NewTransaction is the input of AddTransaction. A zero Date means today and
// an empty Kind means Expense.
type NewTransaction struct {
	Title    string
	Category string
	Amount   int64
	Date     civil.Date
	Kind     domain.Kind
}

// AddTransaction validates in and appends it to the ledger as an active entry.
func (s *Service) AddTransaction(ctx context.Context, store ledger.Store, in NewTransaction) (*domain.Transaction, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Category = strings.TrimSpace(in.Category)
	switch {
	case in.Title == "":
		return nil, invalid("title", "title is required")
	case in.Category == "":
		return nil, invalid("category", "category is required")
	case in.Amount < 0:
		return nil, invalid("amount", "amount must not be negative")
	case in.Amount > money.MaxAmount:
		return nil, invalid("amount", "amount is out of range")
	}

	ref := s.now()
	if !in.Date.IsValid() {
		in.Date = civil.DateOf(ref)
	}
	if in.Kind == "" {
		in.Kind = domain.KindExpense
	}

	tx := &domain.Transaction{
		ID:        uuid.New().String(),
		Title:     in.Title,
		Category:  in.Category,
		Amount:    in.Amount,
		Date:      in.Date,
		Kind:      in.Kind,
		Active:    true,
		CreatedTS: ref.UTC().Truncate(time.Second),
	}
	if err := store.AppendTransaction(ctx, tx); err != nil {
		return nil, unavailable("AddTransaction", err)
	}

	lg := logger.FromContext(ctx)
	lg.Info().
		Str("transaction_id", tx.ID).
		Str("category", tx.Category).
		Int64("amount", tx.Amount).
		Msg("Transaction added")

	return tx, nil
}

// DeleteTransaction soft-deletes the transaction with id. ledger.ErrNotFound
// is passed through unchanged.
func (s *Service) DeleteTransaction(ctx context.Context, store ledger.Store, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return invalid("id", "id is required")
	}

	err := store.UpdateTransaction(ctx, id, ledger.Deactivate())
	if errors.Is(err, ledger.ErrNotFound) {
		return fmt.Errorf("DeleteTransaction %s: %w", id, err)
	}
	if err != nil {
		return unavailable("DeleteTransaction", err)
	}

	lg := logger.FromContext(ctx)
	lg.Info().Str("transaction_id", id).Msg("Transaction deactivated")
	return nil
}

// ValidateBudget checks the user-editable fields of b. Limits may not exceed
// money.MaxAmount. A zero AlertThresholdPercent is valid and means
// domain.DefaultAlertThresholdPercent.
func ValidateBudget(b domain.Budget) error {
	switch {
	case strings.TrimSpace(b.Category) == "":
		return invalid("category", "category is required")
	case b.MonthlyLimit < 0:
		return invalid("monthlyLimit", "monthly limit must not be negative")
	case b.DailyLimit < 0:
		return invalid("dailyLimit", "daily limit must not be negative")
	case b.WeeklyLimit < 0:
		return invalid("weeklyLimit", "weekly limit must not be negative")
	case b.MonthlyLimit > money.MaxAmount:
		return invalid("monthlyLimit", "monthly limit is out of range")
	case b.DailyLimit > money.MaxAmount:
		return invalid("dailyLimit", "daily limit is out of range")
	case b.WeeklyLimit > money.MaxAmount:
		return invalid("weeklyLimit", "weekly limit is out of range")
	case b.AlertThresholdPercent < 0 || b.AlertThresholdPercent > 100:
		return invalid("alertThresholdPercent", "alert threshold must be between 0 and 100")
	}
	switch b.Period {
	case "", domain.PeriodMonthly, domain.PeriodYearly:
	default:
		return invalid("period", fmt.Sprintf("unknown period %q", b.Period))
	}
	return nil
}

// SaveBudget creates or replaces the budget for b.Category. An existing
// budget keeps its ID. The stored budget is returned with defaults applied.
func (s *Service) SaveBudget(ctx context.Context, store ledger.Store, b domain.Budget) (*domain.Budget, error) {
	b.Category = strings.TrimSpace(b.Category)
	if err := ValidateBudget(b); err != nil {
		return nil, err
	}
	if b.Period == "" {
		b.Period = domain.PeriodMonthly
	}

	existing, err := store.GetBudget(ctx, b.Category)
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		b.ID = uuid.New().String()
	case err != nil:
		return nil, unavailable("SaveBudget: get budget", err)
	default:
		b.ID = existing.ID
	}

	if err := store.UpsertBudget(ctx, &b); err != nil {
		return nil, unavailable("SaveBudget", err)
	}

	lg := logger.FromContext(ctx)
	lg.Info().
		Str("category", b.Category).
		Int64("monthly_limit", b.MonthlyLimit).
		Msg("Budget saved")

	out := b.WithDefaults()
	return &out, nil
}

// ListBudgets returns every budget with defaults applied, one per category.
func (s *Service) ListBudgets(ctx context.Context, store ledger.Store) ([]domain.Budget, error) {
	budgets, err := store.ListBudgets(ctx)
	if err != nil {
		return nil, unavailable("ListBudgets", err)
	}
	idx := ledger.IndexBudgets(budgets)
	out := make([]domain.Budget, 0, len(idx))
	for _, b := range idx.Sorted() {
		out = append(out, b.WithDefaults())
	}
	return out, nil
}
