package notifier

import (
	"testing"
	"time"

	"github.com/dvloznov/sheets-finance-tracker/internal/budget"
	"github.com/dvloznov/sheets-finance-tracker/internal/domain"
	"github.com/stretchr/testify/assert"
)

func statusRow(category string, spent, limit int64) budget.CategoryStatus {
	ref := time.Date(2024, time.June, 10, 20, 0, 0, 0, time.UTC)
	return budget.CategoryStatus{
		Budget:   domain.Budget{Category: category, MonthlyLimit: limit},
		Forecast: budget.Forecast(spent, nil, ref, &limit),
	}
}

func TestFormatDigest(t *testing.T) {
	rows := []budget.CategoryStatus{
		statusRow("Food", 100_000, 3_000_000),
		statusRow("Travel", 700_000, 1_000_000),
	}

	msg := FormatDigest("me@example.com", "2024-06-10", rows)

	assert.Equal(t, []string{"me@example.com"}, msg.To)
	assert.Equal(t, "[Action needed] Budget digest 2024-06-10", msg.Subject)
	assert.Contains(t, msg.Body, "Food\n  Spent:     100,000đ of 3,000,000đ (3.3%)")
	assert.Contains(t, msg.Body, "Projected: 2,100,000đ by 2024-06-30")
	assert.Contains(t, msg.Body, "Status:    Critical")
}

func TestFormatDigest_AllGood(t *testing.T) {
	msg := FormatDigest("me@example.com", "2024-06-10", []budget.CategoryStatus{statusRow("Food", 100_000, 3_000_000)})
	assert.Equal(t, "Budget digest 2024-06-10", msg.Subject)
	assert.Contains(t, msg.Body, "Status:    Good")
}

func TestFormatDigest_NoBudgets(t *testing.T) {
	msg := FormatDigest("me@example.com", "2024-06-10", nil)
	assert.Equal(t, "Budget digest 2024-06-10", msg.Subject)
	assert.Contains(t, msg.Body, "No budgets are configured yet.")
}

func TestNeedsAction(t *testing.T) {
	assert.False(t, NeedsAction(nil))
	assert.False(t, NeedsAction([]budget.CategoryStatus{{}}), "rows without a budget forecast are ignored")
	assert.True(t, NeedsAction([]budget.CategoryStatus{statusRow("Travel", 350_000, 1_000_000)}))
}
