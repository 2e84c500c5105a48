package budget

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/dvloznov/sheets-finance-tracker/internal/domain"
	"github.com/dvloznov/sheets-finance-tracker/internal/ledger"
	"github.com/dvloznov/sheets-finance-tracker/internal/logger"
	"github.com/dvloznov/sheets-finance-tracker/internal/money"
	"golang.org/x/sync/errgroup"
)

// recentExpensesLimit caps VelocityReport.RecentExpenses.
const recentExpensesLimit = 5

// Limits are the effective limits of the budget that was evaluated.
type Limits struct {
	Daily   int64 `json:"daily"`
	Weekly  int64 `json:"weekly"`
	Monthly int64 `json:"monthly"`
}

// SpendCheck is the response of CheckBeforeSpend. Limits is nil, serialised
// as null, when the category has no budget; SuggestedAction is then CreateBudget.
type SpendCheck struct {
	Decision
	CurrentSpending Spend   `json:"currentSpending"`
	Limits          *Limits `json:"limits"`
	AfterExpense    Spend   `json:"afterExpense"`
}

// VelocityReport is the response of GetForecast.
type VelocityReport struct {
	Category string `json:"category,omitempty"`
	ForecastResult
	RecentExpenses []domain.Transaction `json:"recentExpenses"`
}

// CategoryStatus is one row of the budget status overview.
type CategoryStatus struct {
	Budget   domain.Budget  `json:"budget"`
	Forecast ForecastResult `json:"forecast"`
}

// Service sequences the Ledger Store, the aggregator, the limit evaluator and
// the forecaster. It keeps no state between calls.
type Service struct {
	now func() time.Time
}

// NewService creates a Service. now supplies the reference instant, already in
// the user's time zone; nil means time.Now.
func NewService(now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{now: now}
}

// Now returns the reference instant used for the next evaluation.
func (s *Service) Now() time.Time {
	return s.now()
}

// CheckBeforeSpend evaluates a candidate expense against the category budget.
// A missing budget is not an error: it yields a CreateBudget decision.
func (s *Service) CheckBeforeSpend(ctx context.Context, store ledger.Store, category string, amount int64) (*SpendCheck, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, invalid("category", "category is required")
	}
	if amount < 0 {
		return nil, invalid("amount", "amount must not be negative")
	}
	if amount > money.MaxAmount {
		return nil, invalid("amount", "amount is out of range")
	}

	ref := s.now()
	w := WindowsAt(ref)

	var (
		b   *domain.Budget
		txs []domain.Transaction
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		found, err := store.GetBudget(gctx, category)
		if errors.Is(err, ledger.ErrNotFound) {
			return nil
		}
		if err != nil {
			return unavailable("CheckBeforeSpend: get budget", err)
		}
		b = found
		return nil
	})
	g.Go(func() error {
		list, err := store.ListTransactions(gctx, ledger.TransactionFilter{
			Category: category,
			Since:    w.Earliest(),
			Until:    w.Today,
		})
		if err != nil {
			return unavailable("CheckBeforeSpend: list transactions", err)
		}
		txs = list
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	agg := Aggregate(txs, category, ref)
	decision := Evaluate(amount, category, agg.Spend, b, ref)

	res := &SpendCheck{
		Decision:        decision,
		CurrentSpending: agg.Spend,
		AfterExpense:    agg.Spend.Add(amount),
	}
	if b != nil {
		res.Limits = &Limits{
			Daily:   b.EffectiveDailyLimit(),
			Weekly:  b.EffectiveWeeklyLimit(),
			Monthly: b.MonthlyLimit,
		}
	}

	lg := logger.FromContext(ctx)
	lg.Debug().
		Str("category", category).
		Int64("amount", amount).
		Str("suggested_action", string(decision.SuggestedAction)).
		Int("alerts", len(decision.Alerts)).
		Msg("Spending limit checked")

	return res, nil
}

// GetForecast projects month-end spending for category, or for every category
// when category is AllCategories. For AllCategories the limit is the sum of all
// monthly budgets, if any exist.
func (s *Service) GetForecast(ctx context.Context, store ledger.Store, category string) (*VelocityReport, error) {
	category = strings.TrimSpace(category)
	ref := s.now()
	w := WindowsAt(ref)

	var (
		limit *int64
		txs   []domain.Transaction
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		l, err := s.limitFor(gctx, store, category)
		if err != nil {
			return unavailable("GetForecast: budget", err)
		}
		limit = l
		return nil
	})
	g.Go(func() error {
		list, err := store.ListTransactions(gctx, ledger.TransactionFilter{
			Category: category,
			Since:    w.MonthStart,
			Until:    w.Today,
		})
		if err != nil {
			return unavailable("GetForecast: list transactions", err)
		}
		txs = list
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	agg := Aggregate(txs, category, ref)
	return &VelocityReport{
		Category:       category,
		ForecastResult: Forecast(agg.Month, agg.DailySeries, ref, limit),
		RecentExpenses: recentExpenses(txs, category, recentExpensesLimit),
	}, nil
}

func (s *Service) limitFor(ctx context.Context, store ledger.Store, category string) (*int64, error) {
	if category != AllCategories {
		b, err := store.GetBudget(ctx, category)
		if errors.Is(err, ledger.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return &b.MonthlyLimit, nil
	}

	budgets, err := store.ListBudgets(ctx)
	if err != nil {
		return nil, err
	}
	if len(budgets) == 0 {
		return nil, nil
	}
	var total int64
	for _, b := range budgets {
		total = money.Add(total, b.MonthlyLimit)
	}
	return &total, nil
}

// BudgetStatus forecasts every budgeted category from a single ledger read.
// Rows are sorted by category.
func (s *Service) BudgetStatus(ctx context.Context, store ledger.Store) ([]CategoryStatus, error) {
	ref := s.now()
	w := WindowsAt(ref)

	budgets, err := store.ListBudgets(ctx)
	if err != nil {
		return nil, unavailable("BudgetStatus: list budgets", err)
	}
	if len(budgets) == 0 {
		return []CategoryStatus{}, nil
	}

	txs, err := store.ListTransactions(ctx, ledger.TransactionFilter{
		Category: AllCategories,
		Since:    w.MonthStart,
		Until:    w.Today,
	})
	if err != nil {
		return nil, unavailable("BudgetStatus: list transactions", err)
	}

	idx := ledger.IndexBudgets(budgets)
	out := make([]CategoryStatus, 0, len(idx))
	for category, b := range idx {
		agg := Aggregate(txs, category, ref)
		limit := b.MonthlyLimit
		out = append(out, CategoryStatus{
			Budget:   b.WithDefaults(),
			Forecast: Forecast(agg.Month, agg.DailySeries, ref, &limit),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Budget.Category < out[j].Budget.Category
	})

	return out, nil
}

// recentExpenses returns up to n active expenses, most recent first.
func recentExpenses(txs []domain.Transaction, category string, n int) []domain.Transaction {
	out := make([]domain.Transaction, 0, n)
	for _, tx := range txs {
		if !tx.IsSpend() {
			continue
		}
		if category != AllCategories && tx.Category != category {
			continue
		}
		out = append(out, tx)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].CreatedTS.After(out[j].CreatedTS)
	})

	if len(out) > n {
		out = out[:n]
	}
	return out
}
