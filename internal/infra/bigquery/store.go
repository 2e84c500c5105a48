// Package bigquery implements the Ledger Store on BigQuery. Every user's rows
// share the transactions and budgets tables and are partitioned by user_email.
package bigquery

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/sheets-finance-tracker/internal/domain"
	"github.com/dvloznov/sheets-finance-tracker/internal/identity"
	"github.com/dvloznov/sheets-finance-tracker/internal/ledger"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
)

const (
	transactionsTable = "transactions"
	budgetsTable      = "budgets"
)

const transactionColumns = `
	transaction_id,
	user_email,
	title,
	category,
	amount,
	transaction_date,
	kind,
	is_active,
	created_ts`

const budgetColumns = `
	budget_id,
	user_email,
	category,
	monthly_limit,
	period,
	alert_threshold_percent,
	daily_limit,
	weekly_limit,
	block_on_exceed,
	updated_ts`

// Provider shares one BigQuery client across users. It is safe for concurrent use.
type Provider struct {
	client    *bigquery.Client
	projectID string
	datasetID string
}

// NewProvider creates a Provider with its own client.
func NewProvider(ctx context.Context, projectID, datasetID string) (*Provider, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewProvider: creating client: %w", err)
	}
	return NewProviderWithClient(client, projectID, datasetID), nil
}

// NewProviderWithClient creates a Provider around an existing client.
func NewProviderWithClient(client *bigquery.Client, projectID, datasetID string) *Provider {
	return &Provider{client: client, projectID: projectID, datasetID: datasetID}
}

// Close closes the BigQuery client connection.
func (p *Provider) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}

// StoreFor implements ledger.Provider.
func (p *Provider) StoreFor(ctx context.Context, user identity.User) (ledger.Store, error) {
	if user.Email == "" {
		return nil, fmt.Errorf("StoreFor: %w", identity.ErrUnauthenticated)
	}
	return &Store{client: p.client, projectID: p.projectID, datasetID: p.datasetID, userEmail: user.Email}, nil
}

// Store is one user's view of the ledger tables.
type Store struct {
	client    *bigquery.Client
	projectID string
	datasetID string
	userEmail string
}

func (s *Store) table(name string) string {
	return tableRef(s.projectID, s.datasetID, name)
}

func tableRef(projectID, datasetID, name string) string {
	return "`" + projectID + "." + datasetID + "." + name + "`"
}

// transactionsQuery builds the SELECT for a filter. Exposed for tests.
func transactionsQuery(table, userEmail string, f ledger.TransactionFilter) (string, []bigquery.QueryParameter) {
	where := []string{"user_email = @user_email"}
	params := []bigquery.QueryParameter{{Name: "user_email", Value: userEmail}}

	if f.Category != ledger.AllCategories {
		where = append(where, "category = @category")
		params = append(params, bigquery.QueryParameter{Name: "category", Value: f.Category})
	}
	if !f.IncludeInactive {
		where = append(where, "is_active = TRUE")
	}
	if f.Since.IsValid() {
		where = append(where, "transaction_date >= @since")
		params = append(params, bigquery.QueryParameter{Name: "since", Value: f.Since})
	}
	if f.Until.IsValid() {
		where = append(where, "transaction_date <= @until")
		params = append(params, bigquery.QueryParameter{Name: "until", Value: f.Until})
	}

	sql := "SELECT" + transactionColumns + "\nFROM " + table +
		"\nWHERE " + strings.Join(where, "\n  AND ") +
		"\nORDER BY transaction_date, created_ts"
	return sql, params
}

// ListTransactions implements ledger.Store.
func (s *Store) ListTransactions(ctx context.Context, filter ledger.TransactionFilter) ([]domain.Transaction, error) {
	sql, params := transactionsQuery(s.table(transactionsTable), s.userEmail, filter)
	q := s.client.Query(sql)
	q.Parameters = params

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListTransactions: query read: %w", err)
	}

	result := make([]domain.Transaction, 0)
	for {
		var r TransactionRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListTransactions: iter next: %w", err)
		}
		result = append(result, r.toDomain())
	}

	return result, nil
}

// AppendTransaction implements ledger.Store. It uses DML rather than the
// streaming inserter so the row can be soft-deleted right away.
func (s *Store) AppendTransaction(ctx context.Context, tx *domain.Transaction) error {
	if tx.ID == "" {
		return fmt.Errorf("AppendTransaction: transaction ID is required")
	}
	row := transactionRow(s.userEmail, tx)

	q := s.client.Query(`
		INSERT INTO ` + s.table(transactionsTable) + ` (` + transactionColumns + `)
		VALUES (@transaction_id, @user_email, @title, @category, @amount,
		        @transaction_date, @kind, @is_active, @created_ts)
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "transaction_id", Value: row.TransactionID},
		{Name: "user_email", Value: row.UserEmail},
		{Name: "title", Value: row.Title},
		{Name: "category", Value: row.Category},
		{Name: "amount", Value: row.Amount},
		{Name: "transaction_date", Value: row.TransactionDate},
		{Name: "kind", Value: row.Kind},
		{Name: "is_active", Value: row.IsActive},
		{Name: "created_ts", Value: row.CreatedTS},
	}

	if _, err := runDML(ctx, q); err != nil {
		return fmt.Errorf("AppendTransaction: %w", err)
	}
	return nil
}

// UpdateTransaction implements ledger.Store.
func (s *Store) UpdateTransaction(ctx context.Context, id string, patch ledger.TransactionPatch) error {
	if patch.Active == nil {
		return nil
	}

	q := s.client.Query(`
		UPDATE ` + s.table(transactionsTable) + `
		SET is_active = @is_active
		WHERE transaction_id = @transaction_id
		  AND user_email = @user_email
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "is_active", Value: *patch.Active},
		{Name: "transaction_id", Value: id},
		{Name: "user_email", Value: s.userEmail},
	}

	affected, err := runDML(ctx, q)
	if err != nil {
		return fmt.Errorf("UpdateTransaction: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("UpdateTransaction: transaction %s: %w", id, ledger.ErrNotFound)
	}
	return nil
}

// ListBudgets implements ledger.Store.
func (s *Store) ListBudgets(ctx context.Context) ([]domain.Budget, error) {
	q := s.client.Query(`
		SELECT` + budgetColumns + `
		FROM ` + s.table(budgetsTable) + `
		WHERE user_email = @user_email
		ORDER BY category, updated_ts
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_email", Value: s.userEmail},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListBudgets: query read: %w", err)
	}

	result := make([]domain.Budget, 0)
	for {
		var r BudgetRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListBudgets: iter next: %w", err)
		}
		result = append(result, r.toDomain())
	}

	return result, nil
}

// GetBudget implements ledger.Store.
func (s *Store) GetBudget(ctx context.Context, category string) (*domain.Budget, error) {
	q := s.client.Query(`
		SELECT` + budgetColumns + `
		FROM ` + s.table(budgetsTable) + `
		WHERE user_email = @user_email
		  AND category = @category
		ORDER BY updated_ts DESC
		LIMIT 1
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_email", Value: s.userEmail},
		{Name: "category", Value: category},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetBudget: query read: %w", err)
	}

	var r BudgetRow
	err = it.Next(&r)
	if err == iterator.Done {
		return nil, ledger.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetBudget: iter next: %w", err)
	}

	b := r.toDomain()
	return &b, nil
}

// UpsertBudget implements ledger.Store.
func (s *Store) UpsertBudget(ctx context.Context, b *domain.Budget) error {
	if b.Category == "" {
		return fmt.Errorf("UpsertBudget: budget category is required")
	}
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	row := budgetRow(s.userEmail, b)

	q := s.client.Query(`
		MERGE ` + s.table(budgetsTable) + ` T
		USING (SELECT @user_email AS user_email, @category AS category) S
		ON T.user_email = S.user_email AND T.category = S.category
		WHEN MATCHED THEN
		  UPDATE SET
		    monthly_limit = @monthly_limit,
		    period = @period,
		    alert_threshold_percent = @alert_threshold_percent,
		    daily_limit = @daily_limit,
		    weekly_limit = @weekly_limit,
		    block_on_exceed = @block_on_exceed,
		    updated_ts = @updated_ts
		WHEN NOT MATCHED THEN
		  INSERT (` + budgetColumns + `)
		  VALUES (@budget_id, @user_email, @category, @monthly_limit, @period,
		          @alert_threshold_percent, @daily_limit, @weekly_limit,
		          @block_on_exceed, @updated_ts)
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "budget_id", Value: row.BudgetID},
		{Name: "user_email", Value: row.UserEmail},
		{Name: "category", Value: row.Category},
		{Name: "monthly_limit", Value: row.MonthlyLimit},
		{Name: "period", Value: row.Period},
		{Name: "alert_threshold_percent", Value: row.AlertThresholdPercent},
		{Name: "daily_limit", Value: row.DailyLimit},
		{Name: "weekly_limit", Value: row.WeeklyLimit},
		{Name: "block_on_exceed", Value: row.BlockOnExceed},
		{Name: "updated_ts", Value: row.UpdatedTS},
	}

	if _, err := runDML(ctx, q); err != nil {
		return fmt.Errorf("UpsertBudget: %w", err)
	}
	return nil
}

// runDML runs a DML statement to completion and returns the affected row count.
func runDML(ctx context.Context, q *bigquery.Query) (int64, error) {
	job, err := q.Run(ctx)
	if err != nil {
		return 0, fmt.Errorf("run query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return 0, fmt.Errorf("wait for job: %w", err)
	}

	if err := status.Err(); err != nil {
		return 0, fmt.Errorf("job error: %w", err)
	}

	if status.Statistics != nil {
		if qs, ok := status.Statistics.Details.(*bigquery.QueryStatistics); ok {
			return qs.NumDMLAffectedRows, nil
		}
	}
	return 0, nil
}

// Ensure Store and Provider implement the ledger interfaces.
var _ ledger.Store = (*Store)(nil)
var _ ledger.Provider = (*Provider)(nil)
