// Package budget is the budget-enforcement and spending-forecast engine.
//
// Aggregate, Forecast and Evaluate are pure functions over a snapshot of the
// ledger and are safe for concurrent use. Service sequences them against a
// ledger.Store.
package budget

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/sheets-finance-tracker/internal/domain"
	"github.com/dvloznov/sheets-finance-tracker/internal/ledger"
	"github.com/dvloznov/sheets-finance-tracker/internal/money"
)

// AllCategories aggregates across every category.
const AllCategories = ledger.AllCategories

// Spend holds spend-so-far for the day, week and month windows.
type Spend struct {
	Day   int64 `json:"today"`
	Week  int64 `json:"thisWeek"`
	Month int64 `json:"thisMonth"`
}

// Add returns the totals after spending amount in every window.
func (s Spend) Add(amount int64) Spend {
	return Spend{Day: money.Add(s.Day, amount), Week: money.Add(s.Week, amount), Month: money.Add(s.Month, amount)}
}

// Aggregation is the result of Aggregate.
type Aggregation struct {
	Spend

	// DailySeries sums month-window spending per ISO date (YYYY-MM-DD).
	// Only days with at least one transaction are present.
	DailySeries map[string]int64
}

// Windows are the calendar windows an aggregation covers, all ending at the
// reference date inclusive.
type Windows struct {
	Today      civil.Date
	WeekStart  civil.Date
	MonthStart civil.Date
}

// WindowsAt computes the windows for ref. Weeks start on Sunday.
func WindowsAt(ref time.Time) Windows {
	today := civil.DateOf(ref)
	return Windows{
		Today:      today,
		WeekStart:  today.AddDays(-int(ref.Weekday())),
		MonthStart: civil.Date{Year: today.Year, Month: today.Month, Day: 1},
	}
}

// Earliest returns the first date any window needs. The week window can
// reach back into the previous month.
func (w Windows) Earliest() civil.Date {
	if w.WeekStart.Before(w.MonthStart) {
		return w.WeekStart
	}
	return w.MonthStart
}

func inWindow(d, start, end civil.Date) bool {
	return !d.Before(start) && !d.After(end)
}

// Aggregate computes day, week and month spend for category as of ref.
// Only active expenses count. Pass AllCategories to aggregate everything.
func Aggregate(txs []domain.Transaction, category string, ref time.Time) Aggregation {
	w := WindowsAt(ref)
	agg := Aggregation{DailySeries: make(map[string]int64)}

	for _, tx := range txs {
		if !tx.IsSpend() {
			continue
		}
		if category != AllCategories && tx.Category != category {
			continue
		}

		if inWindow(tx.Date, w.Today, w.Today) {
			agg.Day = money.Add(agg.Day, tx.Amount)
		}
		if inWindow(tx.Date, w.WeekStart, w.Today) {
			agg.Week = money.Add(agg.Week, tx.Amount)
		}
		if inWindow(tx.Date, w.MonthStart, w.Today) {
			agg.Month = money.Add(agg.Month, tx.Amount)
			key := tx.Date.String()
			agg.DailySeries[key] = money.Add(agg.DailySeries[key], tx.Amount)
		}
	}

	return agg
}
