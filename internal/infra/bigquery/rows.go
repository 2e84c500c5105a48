package bigquery

import (
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/dvloznov/sheets-finance-tracker/internal/domain"
)

type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"` // REQUIRED
	UserEmail     string `bigquery:"user_email"`     // REQUIRED

	Title    bigquery.NullString `bigquery:"title"`    // NULLABLE
	Category string              `bigquery:"category"` // REQUIRED

	Amount          int64      `bigquery:"amount"`           // REQUIRED INT64, smallest currency unit
	TransactionDate civil.Date `bigquery:"transaction_date"` // REQUIRED
	Kind            string     `bigquery:"kind"`             // REQUIRED
	IsActive        bool       `bigquery:"is_active"`        // REQUIRED

	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED
}

type BudgetRow struct {
	BudgetID  string `bigquery:"budget_id"`  // REQUIRED
	UserEmail string `bigquery:"user_email"` // REQUIRED
	Category  string `bigquery:"category"`   // REQUIRED

	MonthlyLimit          int64              `bigquery:"monthly_limit"`           // REQUIRED
	Period                string             `bigquery:"period"`                  // REQUIRED
	AlertThresholdPercent bigquery.NullInt64 `bigquery:"alert_threshold_percent"` // NULLABLE
	DailyLimit            bigquery.NullInt64 `bigquery:"daily_limit"`             // NULLABLE
	WeeklyLimit           bigquery.NullInt64 `bigquery:"weekly_limit"`            // NULLABLE
	BlockOnExceed         bool               `bigquery:"block_on_exceed"`         // REQUIRED

	UpdatedTS time.Time `bigquery:"updated_ts"` // REQUIRED
}

func (r *TransactionRow) toDomain() domain.Transaction {
	return domain.Transaction{
		ID:        r.TransactionID,
		Title:     r.Title.StringVal,
		Category:  r.Category,
		Amount:    r.Amount,
		Date:      r.TransactionDate,
		Kind:      domain.ParseKind(r.Kind),
		Active:    r.IsActive,
		CreatedTS: r.CreatedTS,
	}
}

func transactionRow(userEmail string, tx *domain.Transaction) *TransactionRow {
	created := tx.CreatedTS
	if created.IsZero() {
		created = time.Now().UTC()
	}
	kind := tx.Kind
	if kind == "" {
		kind = domain.KindExpense
	}
	return &TransactionRow{
		TransactionID:   tx.ID,
		UserEmail:       userEmail,
		Title:           bigquery.NullString{StringVal: tx.Title, Valid: tx.Title != ""},
		Category:        tx.Category,
		Amount:          tx.Amount,
		TransactionDate: tx.Date,
		Kind:            string(kind),
		IsActive:        tx.Active,
		CreatedTS:       created,
	}
}

func (r *BudgetRow) toDomain() domain.Budget {
	b := domain.Budget{
		ID:            r.BudgetID,
		Category:      r.Category,
		MonthlyLimit:  r.MonthlyLimit,
		Period:        domain.Period(r.Period),
		BlockOnExceed: r.BlockOnExceed,
	}
	if r.AlertThresholdPercent.Valid {
		b.AlertThresholdPercent = int(r.AlertThresholdPercent.Int64)
	}
	if r.DailyLimit.Valid {
		b.DailyLimit = r.DailyLimit.Int64
	}
	if r.WeeklyLimit.Valid {
		b.WeeklyLimit = r.WeeklyLimit.Int64
	}
	return b
}

func nullPositive(v int64) bigquery.NullInt64 {
	return bigquery.NullInt64{Int64: v, Valid: v > 0}
}

func budgetRow(userEmail string, b *domain.Budget) *BudgetRow {
	period := b.Period
	if period == "" {
		period = domain.PeriodMonthly
	}
	return &BudgetRow{
		BudgetID:              b.ID,
		UserEmail:             userEmail,
		Category:              b.Category,
		MonthlyLimit:          b.MonthlyLimit,
		Period:                string(period),
		AlertThresholdPercent: nullPositive(int64(b.AlertThresholdPercent)),
		DailyLimit:            nullPositive(b.DailyLimit),
		WeeklyLimit:           nullPositive(b.WeeklyLimit),
		BlockOnExceed:         b.BlockOnExceed,
		UpdatedTS:             time.Now().UTC(),
	}
}
