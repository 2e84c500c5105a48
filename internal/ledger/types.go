// Package ledger defines the Ledger Store contract: the tabular persistence
// collaborator that owns transactions and budgets for one user.
package ledger

import (
	"context"
	"errors"
	"sort"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/sheets-finance-tracker/internal/domain"
	"github.com/dvloznov/sheets-finance-tracker/internal/identity"
)

// ErrNotFound is returned when a referenced budget or transaction does not exist.
var ErrNotFound = errors.New("ledger: not found")

// AllCategories selects every category in a TransactionFilter.
const AllCategories = ""

// Store provides access to one user's ledger.
type Store interface {
	// ListTransactions returns the transactions matching filter, ordered by date.
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]domain.Transaction, error)

	// AppendTransaction stores a new transaction. tx.ID must be set.
	AppendTransaction(ctx context.Context, tx *domain.Transaction) error

	// UpdateTransaction applies patch to the transaction with the given ID.
	// Returns ErrNotFound when the ID is unknown.
	UpdateTransaction(ctx context.Context, id string, patch TransactionPatch) error

	// ListBudgets returns every configured budget.
	ListBudgets(ctx context.Context) ([]domain.Budget, error)

	// GetBudget returns the budget for category or ErrNotFound.
	GetBudget(ctx context.Context, category string) (*domain.Budget, error)

	// UpsertBudget creates or replaces the budget keyed by b.Category.
	UpsertBudget(ctx context.Context, b *domain.Budget) error
}

// Provider resolves the Ledger Store that belongs to an authenticated user.
type Provider interface {
	StoreFor(ctx context.Context, user identity.User) (Store, error)
}

// TransactionFilter narrows ListTransactions.
type TransactionFilter struct {
	// Category filters by exact category name; AllCategories disables it.
	Category string

	// Since and Until bound the transaction date, both inclusive.
	// Zero values leave the bound open.
	Since civil.Date
	Until civil.Date

	// IncludeInactive also returns soft-deleted transactions.
	IncludeInactive bool
}

// Matches reports whether tx satisfies the filter.
func (f TransactionFilter) Matches(tx domain.Transaction) bool {
	if !f.IncludeInactive && !tx.Active {
		return false
	}
	if f.Category != AllCategories && tx.Category != f.Category {
		return false
	}
	if f.Since.IsValid() && tx.Date.Before(f.Since) {
		return false
	}
	if f.Until.IsValid() && tx.Date.After(f.Until) {
		return false
	}
	return true
}

// TransactionPatch lists the mutable fields of a transaction.
type TransactionPatch struct {
	Active *bool
}

// Deactivate is the patch used for soft deletes.
func Deactivate() TransactionPatch {
	inactive := false
	return TransactionPatch{Active: &inactive}
}

// Apply mutates tx in place.
func (p TransactionPatch) Apply(tx *domain.Transaction) {
	if p.Active != nil {
		tx.Active = *p.Active
	}
}

// BudgetIndex is a keyed category -> budget lookup built from a full budget listing.
type BudgetIndex map[string]domain.Budget

// IndexBudgets builds a BudgetIndex. When a category appears twice the last row wins,
// matching how a spreadsheet edit appends a corrected row.
func IndexBudgets(budgets []domain.Budget) BudgetIndex {
	idx := make(BudgetIndex, len(budgets))
	for _, b := range budgets {
		idx[b.Category] = b
	}
	return idx
}

// Lookup returns the budget for category or ErrNotFound.
func (idx BudgetIndex) Lookup(category string) (*domain.Budget, error) {
	b, ok := idx[category]
	if !ok {
		return nil, ErrNotFound
	}
	return &b, nil
}

// Sorted returns the budgets ordered by category.
func (idx BudgetIndex) Sorted() []domain.Budget {
	out := make([]domain.Budget, 0, len(idx))
	for _, b := range idx {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}
