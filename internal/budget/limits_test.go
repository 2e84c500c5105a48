package budget

import (
	"testing"
	"time"

	"github.com/dvloznov/sheets-finance-tracker/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func foodBudget() *domain.Budget {
	return &domain.Budget{Category: "Food", MonthlyLimit: 3_000_000, Period: domain.PeriodMonthly}
}

func kinds(alerts []Alert) []AlertKind {
	out := make([]AlertKind, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, a.Kind)
	}
	return out
}

func TestEvaluate_DailyExceeded(t *testing.T) {
	b := foodBudget()
	b.DailyLimit = 100_000

	d := Evaluate(20_000, "Food", Spend{Day: 90_000, Week: 90_000, Month: 90_000}, b, refJune10)

	require.Len(t, d.Alerts, 1)
	assert.Equal(t, KindDailyExceeded, d.Alerts[0].Kind)
	assert.Equal(t, LevelDanger, d.Alerts[0].Level)
	require.NotNil(t, d.Alerts[0].Percentage)
	assert.InDelta(t, 110.0, *d.Alerts[0].Percentage, 1e-9)
	assert.True(t, d.CanProceed)
	assert.True(t, d.RequireConfirmation)
	assert.Equal(t, ActionConfirmRequired, d.SuggestedAction)
}

func TestEvaluate_DailyExceededBlocked(t *testing.T) {
	b := foodBudget()
	b.DailyLimit = 100_000
	b.BlockOnExceed = true

	d := Evaluate(20_000, "Food", Spend{Day: 90_000, Week: 90_000, Month: 90_000}, b, refJune10)

	require.Len(t, d.Alerts, 1)
	assert.Equal(t, LevelBlocked, d.Alerts[0].Level)
	assert.False(t, d.CanProceed)
	assert.Equal(t, ActionBlocked, d.SuggestedAction)
}

func TestEvaluate_NoBudget(t *testing.T) {
	d := Evaluate(20_000, "Gifts", Spend{Day: 1_000_000}, nil, refJune10)

	require.Len(t, d.Alerts, 1)
	assert.Equal(t, KindNoBudget, d.Alerts[0].Kind)
	assert.Equal(t, LevelInfo, d.Alerts[0].Level)
	assert.Nil(t, d.Alerts[0].Percentage)
	assert.True(t, d.CanProceed)
	assert.False(t, d.RequireConfirmation)
	assert.Equal(t, ActionCreateBudget, d.SuggestedAction)
}

func TestEvaluate_VelocityWarning(t *testing.T) {
	d := Evaluate(50_000, "Food", Spend{Month: 1_150_000}, foodBudget(), refJune10)

	require.Len(t, d.Alerts, 1)
	a := d.Alerts[0]
	assert.Equal(t, KindVelocityWarning, a.Kind)
	assert.Equal(t, LevelInfo, a.Level)
	assert.Contains(t, a.Message, "3,600,000")
	assert.Contains(t, a.Message, "15 day(s)")
	assert.Contains(t, a.Recommendation, "100,000")
	assert.True(t, d.CanProceed)
	assert.True(t, d.RequireConfirmation)
	assert.Equal(t, ActionWarningShown, d.SuggestedAction)
}

func TestEvaluate_VelocityOnlyWhenNoOtherAlerts(t *testing.T) {
	b := foodBudget()
	b.DailyLimit = 40_000

	d := Evaluate(50_000, "Food", Spend{Month: 1_150_000}, b, refJune10)
	assert.Equal(t, []AlertKind{KindDailyExceeded}, kinds(d.Alerts))
}

func TestEvaluate_Proceed(t *testing.T) {
	d := Evaluate(10_000, "Food", Spend{Day: 10_000, Week: 20_000, Month: 100_000}, foodBudget(), refJune10)

	assert.Empty(t, d.Alerts)
	assert.True(t, d.CanProceed)
	assert.False(t, d.RequireConfirmation)
	assert.Equal(t, ActionProceed, d.SuggestedAction)
}

func TestEvaluate_Warnings(t *testing.T) {
	// Monthly 3,000,000 gives derived limits of 100,000 per day and 750,000 per week.
	tests := []struct {
		name    string
		current Spend
		amount  int64
		want    []AlertKind
		action  SuggestedAction
	}{
		{
			name:    "daily warning at 80%",
			current: Spend{Day: 70_000, Week: 70_000, Month: 70_000},
			amount:  10_000,
			want:    []AlertKind{KindDailyWarning},
			action:  ActionWarningShown,
		},
		{
			name:    "weekly warning",
			current: Spend{Day: 0, Week: 600_000, Month: 600_000},
			amount:  10_000,
			want:    []AlertKind{KindWeeklyWarning},
			action:  ActionWarningShown,
		},
		{
			name:    "weekly exceeded",
			current: Spend{Day: 0, Week: 745_000, Month: 745_000},
			amount:  10_000,
			want:    []AlertKind{KindWeeklyExceeded},
			action:  ActionConfirmRequired,
		},
		{
			name:    "monthly warning at threshold",
			current: Spend{Day: 0, Week: 0, Month: 2_390_000},
			amount:  10_000,
			want:    []AlertKind{KindMonthlyWarning},
			action:  ActionWarningShown,
		},
		{
			name:    "monthly exceeded",
			current: Spend{Day: 0, Week: 0, Month: 2_995_000},
			amount:  10_000,
			want:    []AlertKind{KindMonthlyExceeded},
			action:  ActionConfirmRequired,
		},
		{
			name:    "all windows in order",
			current: Spend{Day: 95_000, Week: 745_000, Month: 2_995_000},
			amount:  10_000,
			want:    []AlertKind{KindDailyExceeded, KindWeeklyExceeded, KindMonthlyExceeded},
			action:  ActionConfirmRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Evaluate(tt.amount, "Food", tt.current, foodBudget(), refJune10)
			assert.Equal(t, tt.want, kinds(d.Alerts))
			assert.Equal(t, tt.action, d.SuggestedAction)
			assert.True(t, d.CanProceed)
		})
	}
}

func TestEvaluate_CustomAlertThreshold(t *testing.T) {
	b := foodBudget()
	b.AlertThresholdPercent = 50

	d := Evaluate(10_000, "Food", Spend{Month: 1_500_000}, b, refJune10)
	assert.Equal(t, []AlertKind{KindMonthlyWarning}, kinds(d.Alerts))
}

func TestEvaluate_BlockOnExceedOnlyAppliesToDaily(t *testing.T) {
	b := foodBudget()
	b.BlockOnExceed = true

	d := Evaluate(10_000, "Food", Spend{Day: 0, Week: 745_000, Month: 2_995_000}, b, refJune10)

	assert.Equal(t, []AlertKind{KindWeeklyExceeded, KindMonthlyExceeded}, kinds(d.Alerts))
	assert.True(t, d.CanProceed)
	assert.Equal(t, ActionConfirmRequired, d.SuggestedAction)
}

func TestEvaluate_Idempotent(t *testing.T) {
	current := Spend{Day: 95_000, Week: 300_000, Month: 1_000_000}
	first := Evaluate(10_000, "Food", current, foodBudget(), refJune10)
	second := Evaluate(10_000, "Food", current, foodBudget(), refJune10)
	assert.Equal(t, first, second)
}

func TestEvaluate_NeverBlocksWithoutBlockOnExceed(t *testing.T) {
	b := foodBudget()
	for _, amount := range []int64{0, 1, 50_000, 100_000, 1_000_000, 10_000_000} {
		for _, current := range []Spend{
			{},
			{Day: 99_999, Week: 749_999, Month: 2_999_999},
			{Day: 5_000_000, Week: 5_000_000, Month: 5_000_000},
		} {
			d := Evaluate(amount, "Food", current, b, refJune10)
			assert.True(t, d.CanProceed, "amount=%d current=%+v", amount, current)
		}
	}
}

func maxLevel(alerts []Alert) int {
	highest := 0
	for _, a := range alerts {
		if r := a.Level.Rank(); r > highest {
			highest = r
		}
	}
	return highest
}

func TestEvaluate_MonotonicInAmount(t *testing.T) {
	b := foodBudget()
	b.BlockOnExceed = true
	current := Spend{Day: 20_000, Week: 200_000, Month: 900_000}

	prev := Evaluate(0, "Food", current, b, refJune10)
	for amount := int64(10_000); amount <= 3_000_000; amount += 10_000 {
		next := Evaluate(amount, "Food", current, b, refJune10)
		assert.GreaterOrEqual(t, maxLevel(next.Alerts), maxLevel(prev.Alerts), "amount=%d", amount)
		if !prev.CanProceed {
			assert.False(t, next.CanProceed, "amount=%d", amount)
		}
		prev = next
	}
}

func TestEvaluate_FirstOfMonth(t *testing.T) {
	ref := time.Date(2024, time.June, 1, 10, 0, 0, 0, time.UTC)

	// The candidate amount is the whole month so far: 200,000 x 30 > 3,000,000.
	d := Evaluate(200_000, "Food", Spend{}, &domain.Budget{Category: "Food", MonthlyLimit: 3_000_000, DailyLimit: 500_000, WeeklyLimit: 1_000_000}, ref)
	assert.Equal(t, []AlertKind{KindVelocityWarning}, kinds(d.Alerts))
}

func TestAlertLevel_Rank(t *testing.T) {
	assert.Less(t, LevelInfo.Rank(), LevelWarning.Rank())
	assert.Less(t, LevelWarning.Rank(), LevelDanger.Rank())
	assert.Less(t, LevelDanger.Rank(), LevelBlocked.Rank())
	assert.Zero(t, AlertLevel("bogus").Rank())
}
