package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/sheets-finance-tracker/internal/budget"
	"github.com/dvloznov/sheets-finance-tracker/internal/domain"
	"github.com/dvloznov/sheets-finance-tracker/internal/ledger"
	"github.com/dvloznov/sheets-finance-tracker/internal/logger"
)

// ContentType of the exported object.
const ContentType = "text/csv; charset=utf-8"

// MonthLayout is the accepted month format, e.g. "2024-06".
const MonthLayout = "2006-01"

var (
	transactionHeader = []string{"id", "date", "title", "category", "kind", "amount"}
	summaryHeader     = []string{"category", "monthly_limit", "total_spent", "daily_velocity", "projected_total", "percent_used", "status"}
)

// ErrNoBucket is returned when Export is called without a destination bucket.
var ErrNoBucket = errors.New("export: bucket is not configured")

// Exporter snapshots one month of a user's ledger into a CSV object.
type Exporter struct {
	storage Storage
	bucket  string
	now     func() time.Time
}

// NewExporter creates an Exporter. now supplies the current instant in the
// user's time zone; nil means time.Now.
func NewExporter(storage Storage, bucket string, now func() time.Time) *Exporter {
	if now == nil {
		now = time.Now
	}
	return &Exporter{storage: storage, bucket: BucketName(bucket), now: now}
}

// ObjectName is the object path of a user's export for month.
func ObjectName(email string, month time.Time) string {
	return fmt.Sprintf("exports/%s/%s.csv", email, month.Format(MonthLayout))
}

// Export builds the CSV for month and uploads it. It returns the gs:// URI.
func (e *Exporter) Export(ctx context.Context, email string, store ledger.Store, month time.Time) (string, error) {
	if e.bucket == "" {
		return "", ErrNoBucket
	}

	data, err := e.Build(ctx, store, month)
	if err != nil {
		return "", err
	}

	object := ObjectName(email, month)
	if err := e.storage.Upload(ctx, e.bucket, object, ContentType, data); err != nil {
		return "", fmt.Errorf("Export: %w", err)
	}

	uri := URI(e.bucket, object)
	lg := logger.FromContext(ctx)
	lg.Info().Str("uri", uri).Int("bytes", len(data)).Msg("Ledger exported")
	return uri, nil
}

// Build reads the month from store and renders the CSV. A month still in
// progress is forecast from now; a finished month from its last day.
func (e *Exporter) Build(ctx context.Context, store ledger.Store, month time.Time) ([]byte, error) {
	ref := monthRef(month, e.now())
	first := civil.Date{Year: month.Year(), Month: month.Month(), Day: 1}
	last := civil.Date{Year: month.Year(), Month: month.Month(), Day: budget.DaysIn(month.Year(), month.Month())}

	txs, err := store.ListTransactions(ctx, ledger.TransactionFilter{
		Category: ledger.AllCategories,
		Since:    first,
		Until:    last,
	})
	if err != nil {
		return nil, fmt.Errorf("Build: list transactions: %w", err)
	}

	rows, err := budget.NewService(func() time.Time { return ref }).BudgetStatus(ctx, store)
	if err != nil {
		return nil, fmt.Errorf("Build: %w", err)
	}

	return WriteCSV(txs, rows)
}

// monthRef picks the forecast reference instant for month given now.
func monthRef(month, now time.Time) time.Time {
	end := time.Date(month.Year(), month.Month()+1, 1, 0, 0, 0, 0, now.Location()).Add(-time.Second)
	if now.Before(end) {
		return now
	}
	return end
}

// WriteCSV renders transactions followed by a blank line and the per-category
// forecast summary.
func WriteCSV(txs []domain.Transaction, rows []budget.CategoryStatus) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	records := [][]string{transactionHeader}
	for _, tx := range txs {
		records = append(records, []string{
			tx.ID,
			tx.Date.String(),
			tx.Title,
			tx.Category,
			string(tx.Kind),
			strconv.FormatInt(tx.Amount, 10),
		})
	}
	records = append(records, nil, summaryHeader)

	for _, r := range rows {
		f := r.Forecast
		rec := []string{
			r.Budget.Category,
			strconv.FormatInt(r.Budget.MonthlyLimit, 10),
			strconv.FormatInt(f.TotalSpent, 10),
			strconv.FormatFloat(f.DailyVelocity, 'f', 2, 64),
			strconv.FormatFloat(f.ProjectedTotal, 'f', 2, 64),
			"",
			"",
		}
		if f.Budget != nil {
			rec[5] = strconv.FormatFloat(f.Budget.PercentUsed, 'f', 1, 64)
			rec[6] = string(f.Budget.Status)
		}
		records = append(records, rec)
	}

	if err := w.WriteAll(records); err != nil {
		return nil, fmt.Errorf("WriteCSV: %w", err)
	}
	return buf.Bytes(), nil
}
