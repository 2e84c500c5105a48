package export

import (
	"context"
	"encoding/csv"
	"errors"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/sheets-finance-tracker/internal/domain"
	"github.com/dvloznov/sheets-finance-tracker/internal/ledger/inmemory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var refJune10 = time.Date(2024, time.June, 10, 15, 30, 0, 0, time.UTC)

// mockStorage records uploads.
type mockStorage struct {
	uploadFunc func(ctx context.Context, bucket, object, contentType string, data []byte) error

	bucket, object, contentType string
	data                        []byte
}

func (m *mockStorage) Upload(ctx context.Context, bucket, object, contentType string, data []byte) error {
	if m.uploadFunc != nil {
		return m.uploadFunc(ctx, bucket, object, contentType, data)
	}
	m.bucket, m.object, m.contentType, m.data = bucket, object, contentType, data
	return nil
}

func seeded(t *testing.T) *inmemory.Store {
	t.Helper()
	ctx := context.Background()
	s := inmemory.NewStore()
	require.NoError(t, s.UpsertBudget(ctx, &domain.Budget{Category: "Food", MonthlyLimit: 3_000_000}))

	for _, tx := range []domain.Transaction{
		{ID: "may-31", Title: "Dinner, late", Category: "Food", Amount: 100_000, Kind: domain.KindExpense, Active: true, Date: civil.Date{Year: 2024, Month: time.May, Day: 31}},
		{ID: "jun-03", Title: "Lunch", Category: "Food", Amount: 200_000, Kind: domain.KindExpense, Active: true, Date: civil.Date{Year: 2024, Month: time.June, Day: 3}},
		{ID: "jun-05", Title: "Salary", Category: "Salary", Amount: 9_000_000, Kind: domain.KindIncome, Active: true, Date: civil.Date{Year: 2024, Month: time.June, Day: 5}},
		{ID: "jun-06", Title: "Refunded", Category: "Food", Amount: 50_000, Kind: domain.KindExpense, Active: false, Date: civil.Date{Year: 2024, Month: time.June, Day: 6}},
	} {
		tx := tx
		require.NoError(t, s.AppendTransaction(ctx, &tx))
	}
	return s
}

func readCSV(t *testing.T, data []byte) [][]string {
	t.Helper()
	r := csv.NewReader(strings.NewReader(string(data)))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	require.NoError(t, err)
	return records
}

func TestExporter_Export(t *testing.T) {
	storage := &mockStorage{}
	e := NewExporter(storage, "gs://finance-exports/", func() time.Time { return refJune10 })

	uri, err := e.Export(context.Background(), "me@example.com", seeded(t), refJune10)
	require.NoError(t, err)

	assert.Equal(t, "gs://finance-exports/exports/me@example.com/2024-06.csv", uri)
	assert.Equal(t, "finance-exports", storage.bucket)
	assert.Equal(t, "exports/me@example.com/2024-06.csv", storage.object)
	assert.Equal(t, ContentType, storage.contentType)

	records := readCSV(t, storage.data)
	// The blank separator line is skipped by the reader.
	require.Len(t, records, 5)
	assert.Equal(t, transactionHeader, records[0])
	assert.Equal(t, []string{"jun-03", "2024-06-03", "Lunch", "Food", "Expense", "200000"}, records[1])
	assert.Equal(t, "jun-05", records[2][0])
	assert.Equal(t, summaryHeader, records[3])
	// 200,000 over 10 days, projected across 30.
	assert.Equal(t, []string{"Food", "3000000", "200000", "20000.00", "600000.00", "6.7", "Good"}, records[4])
}

func TestExporter_FinishedMonth(t *testing.T) {
	storage := &mockStorage{}
	e := NewExporter(storage, "finance-exports", func() time.Time { return refJune10 })

	may := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)
	_, err := e.Export(context.Background(), "me@example.com", seeded(t), may)
	require.NoError(t, err)
	assert.Equal(t, "exports/me@example.com/2024-05.csv", storage.object)

	records := readCSV(t, storage.data)
	require.Len(t, records, 4)
	assert.Equal(t, "Dinner, late", records[1][2])
	// Forecast is taken on May 31, so the projection equals the spend.
	assert.Equal(t, []string{"Food", "3000000", "100000", "3225.81", "100000.00", "3.3", "Good"}, records[3])
}

func TestExporter_Errors(t *testing.T) {
	_, err := NewExporter(&mockStorage{}, "", nil).Export(context.Background(), "me@example.com", seeded(t), refJune10)
	assert.ErrorIs(t, err, ErrNoBucket)

	failing := &mockStorage{uploadFunc: func(ctx context.Context, bucket, object, contentType string, data []byte) error {
		return errors.New("permission denied")
	}}
	_, err = NewExporter(failing, "b", func() time.Time { return refJune10 }).Export(context.Background(), "me@example.com", seeded(t), refJune10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
}

func TestWriteCSV_Empty(t *testing.T) {
	data, err := WriteCSV(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "id,date,title,category,kind,amount\n\ncategory,monthly_limit,total_spent,daily_velocity,projected_total,percent_used,status\n", string(data))
}

func TestMonthRef(t *testing.T) {
	assert.Equal(t, refJune10, monthRef(refJune10, refJune10))

	may := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, time.May, 31, 23, 59, 59, 0, time.UTC), monthRef(may, refJune10))
}

func TestBucketName(t *testing.T) {
	for _, in := range []string{"b", "gs://b", "gs://b/", " b "} {
		assert.Equal(t, "b", BucketName(in), in)
	}
	assert.Equal(t, "gs://b/exports/x.csv", URI("b", "/exports/x.csv"))
}
