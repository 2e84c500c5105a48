package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dvloznov/sheets-finance-tracker/internal/domain"
	"github.com/dvloznov/sheets-finance-tracker/internal/identity"
	"github.com/dvloznov/sheets-finance-tracker/internal/ledger"
)

// Store is an in-memory implementation of ledger.Store.
// It is safe for concurrent use. Data is lost on restart, so it serves local
// development and tests.
type Store struct {
	mu           sync.RWMutex
	transactions []domain.Transaction
	budgets      map[string]domain.Budget
}

// NewStore creates an empty in-memory ledger.
func NewStore() *Store {
	return &Store{
		budgets: make(map[string]domain.Budget),
	}
}

// ListTransactions implements ledger.Store.
func (s *Store) ListTransactions(ctx context.Context, filter ledger.TransactionFilter) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Transaction, 0)
	for _, tx := range s.transactions {
		if filter.Matches(tx) {
			result = append(result, tx)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Date.Before(result[j].Date)
	})

	return result, nil
}

// AppendTransaction implements ledger.Store.
func (s *Store) AppendTransaction(ctx context.Context, tx *domain.Transaction) error {
	if tx.ID == "" {
		return fmt.Errorf("transaction ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.transactions {
		if existing.ID == tx.ID {
			return fmt.Errorf("transaction already exists: %s", tx.ID)
		}
	}

	s.transactions = append(s.transactions, *tx)
	return nil
}

// UpdateTransaction implements ledger.Store.
func (s *Store) UpdateTransaction(ctx context.Context, id string, patch ledger.TransactionPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.transactions {
		if s.transactions[i].ID == id {
			patch.Apply(&s.transactions[i])
			return nil
		}
	}

	return fmt.Errorf("transaction %s: %w", id, ledger.ErrNotFound)
}

// ListBudgets implements ledger.Store.
func (s *Store) ListBudgets(ctx context.Context) ([]domain.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Budget, 0, len(s.budgets))
	for _, b := range s.budgets {
		result = append(result, b)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Category < result[j].Category
	})

	return result, nil
}

// GetBudget implements ledger.Store.
func (s *Store) GetBudget(ctx context.Context, category string) (*domain.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, exists := s.budgets[category]
	if !exists {
		return nil, ledger.ErrNotFound
	}

	// Return a copy to avoid external modifications
	return &b, nil
}

// UpsertBudget implements ledger.Store.
func (s *Store) UpsertBudget(ctx context.Context, b *domain.Budget) error {
	if b.Category == "" {
		return fmt.Errorf("budget category is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.budgets[b.Category] = *b
	return nil
}

// Provider hands out one in-memory Store per user email.
type Provider struct {
	mu     sync.Mutex
	stores map[string]*Store
}

// NewProvider creates an empty Provider.
func NewProvider() *Provider {
	return &Provider{stores: make(map[string]*Store)}
}

// StoreFor implements ledger.Provider.
func (p *Provider) StoreFor(ctx context.Context, user identity.User) (ledger.Store, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.stores[user.Email]
	if !ok {
		s = NewStore()
		p.stores[user.Email] = s
	}
	return s, nil
}

// Ensure Store and Provider implement the ledger interfaces.
var _ ledger.Store = (*Store)(nil)
var _ ledger.Provider = (*Provider)(nil)
