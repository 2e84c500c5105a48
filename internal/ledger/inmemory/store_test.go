package inmemory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/sheets-finance-tracker/internal/domain"
	"github.com/dvloznov/sheets-finance-tracker/internal/identity"
	"github.com/dvloznov/sheets-finance-tracker/internal/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) civil.Date {
	return civil.Date{Year: 2024, Month: 6, Day: d}
}

func TestStore_TransactionsLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	require.NoError(t, s.AppendTransaction(ctx, &domain.Transaction{ID: "b", Category: "Food", Amount: 2, Date: day(5), Active: true}))
	require.NoError(t, s.AppendTransaction(ctx, &domain.Transaction{ID: "a", Category: "Food", Amount: 1, Date: day(2), Active: true}))
	require.NoError(t, s.AppendTransaction(ctx, &domain.Transaction{ID: "c", Category: "Travel", Amount: 3, Date: day(3), Active: true}))

	assert.Error(t, s.AppendTransaction(ctx, &domain.Transaction{ID: "a"}), "duplicate ID")
	assert.Error(t, s.AppendTransaction(ctx, &domain.Transaction{}), "missing ID")

	food, err := s.ListTransactions(ctx, ledger.TransactionFilter{Category: "Food"})
	require.NoError(t, err)
	require.Len(t, food, 2)
	assert.Equal(t, "a", food[0].ID, "ordered by date")

	require.NoError(t, s.UpdateTransaction(ctx, "a", ledger.Deactivate()))
	food, err = s.ListTransactions(ctx, ledger.TransactionFilter{Category: "Food"})
	require.NoError(t, err)
	assert.Len(t, food, 1)

	all, err := s.ListTransactions(ctx, ledger.TransactionFilter{IncludeInactive: true})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	err = s.UpdateTransaction(ctx, "missing", ledger.Deactivate())
	assert.True(t, errors.Is(err, ledger.ErrNotFound))
}

func TestStore_Budgets(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	_, err := s.GetBudget(ctx, "Food")
	assert.ErrorIs(t, err, ledger.ErrNotFound)

	require.NoError(t, s.UpsertBudget(ctx, &domain.Budget{Category: "Food", MonthlyLimit: 100}))
	require.NoError(t, s.UpsertBudget(ctx, &domain.Budget{Category: "Food", MonthlyLimit: 200}))
	require.NoError(t, s.UpsertBudget(ctx, &domain.Budget{Category: "Bills", MonthlyLimit: 50}))
	assert.Error(t, s.UpsertBudget(ctx, &domain.Budget{}))

	b, err := s.GetBudget(ctx, "Food")
	require.NoError(t, err)
	assert.EqualValues(t, 200, b.MonthlyLimit)

	b.MonthlyLimit = 1
	again, _ := s.GetBudget(ctx, "Food")
	assert.EqualValues(t, 200, again.MonthlyLimit, "returned budget is a copy")

	list, err := s.ListBudgets(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Bills", list[0].Category)
}

func TestStore_ConcurrentAppend(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = s.AppendTransaction(ctx, &domain.Transaction{ID: string(rune('A' + i)), Active: true, Date: day(1)})
		}(i)
	}
	wg.Wait()

	all, err := s.ListTransactions(ctx, ledger.TransactionFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 50)
}

func TestProvider_StorePerUser(t *testing.T) {
	ctx := context.Background()
	p := NewProvider()

	a1, _ := p.StoreFor(ctx, identity.User{Email: "a@example.com"})
	a2, _ := p.StoreFor(ctx, identity.User{Email: "a@example.com"})
	b, _ := p.StoreFor(ctx, identity.User{Email: "b@example.com"})

	assert.Same(t, a1, a2)
	assert.NotSame(t, a1, b)
}
