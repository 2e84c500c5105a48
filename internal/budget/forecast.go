package budget

import (
	"fmt"
	"math"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/sheets-finance-tracker/internal/money"
)

// Stability classifies how evenly spending is spread across days.
type Stability string

const (
	StabilityStable   Stability = "Stable"
	StabilityModerate Stability = "Moderate"
	StabilityVolatile Stability = "Volatile"
)

// Confidence reflects how many data points back a forecast.
type Confidence string

const (
	ConfidenceLow    Confidence = "Low"
	ConfidenceMedium Confidence = "Medium"
	ConfidenceHigh   Confidence = "High"
)

// Status is the projected budget outcome for the period.
type Status string

const (
	StatusGood     Status = "Good"
	StatusModerate Status = "Moderate"
	StatusWarning  Status = "Warning"
	StatusCritical Status = "Critical"
)

// Stability and confidence thresholds.
const (
	stableCVLimit   = 30.0
	moderateCVLimit = 60.0

	highConfidencePoints   = 7
	mediumConfidencePoints = 3
)

// BudgetForecast compares a projection against a monthly limit.
type BudgetForecast struct {
	Limit               int64   `json:"limit"`
	Remaining           int64   `json:"remaining"`
	PercentUsed         float64 `json:"percentUsed"`
	DaysUntilEmpty      *int    `json:"daysUntilEmpty"`
	TargetDailyVelocity float64 `json:"targetDailyVelocity"`
	Status              Status  `json:"status"`
	Recommendation      string  `json:"recommendation"`
}

// SeriesAnalysis describes the distribution of the daily spending series.
type SeriesAnalysis struct {
	DataPoints             int       `json:"dataPoints"`
	AvgDaily               float64   `json:"avgDaily"`
	MaxDaily               int64     `json:"maxDaily"`
	MinDaily               int64     `json:"minDaily"`
	Variance               float64   `json:"variance"`
	StdDev                 float64   `json:"stdDev"`
	CoefficientOfVariation float64   `json:"coefficientOfVariation"`
	Stability              Stability `json:"stability"`
	StabilityScore         float64   `json:"stabilityScore"`
}

// ForecastResult is the month-end projection for one category or for all.
type ForecastResult struct {
	PeriodStart    civil.Date      `json:"periodStart"`
	PeriodEnd      civil.Date      `json:"periodEnd"`
	DaysInMonth    int             `json:"daysInMonth"`
	DaysElapsed    int             `json:"daysElapsed"`
	DaysRemaining  int             `json:"daysRemaining"`
	TotalSpent     int64           `json:"totalSpent"`
	DailyVelocity  float64         `json:"dailyVelocity"`
	ProjectedTotal float64         `json:"projectedTotal"`
	Budget         *BudgetForecast `json:"budget,omitempty"`
	Stability      Stability       `json:"stability"`
	Confidence     Confidence      `json:"confidence"`
	Analysis       SeriesAnalysis  `json:"analysis"`
}

// DaysIn returns the number of days in the given calendar month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Forecast projects month-end spending from month-to-date velocity.
// limit may be nil when no budget applies. It never fails: an empty series
// yields Low confidence and Stable stability.
func Forecast(monthSpent int64, series map[string]int64, ref time.Time, limit *int64) ForecastResult {
	today := civil.DateOf(ref)
	daysInMonth := DaysIn(today.Year, today.Month)

	daysElapsed := today.Day
	if daysElapsed < 1 {
		daysElapsed = 1
	}

	velocity := float64(monthSpent) / float64(daysElapsed)
	projected := velocity * float64(daysInMonth)
	analysis := Analyze(series)

	res := ForecastResult{
		PeriodStart:    civil.Date{Year: today.Year, Month: today.Month, Day: 1},
		PeriodEnd:      civil.Date{Year: today.Year, Month: today.Month, Day: daysInMonth},
		DaysInMonth:    daysInMonth,
		DaysElapsed:    daysElapsed,
		DaysRemaining:  daysInMonth - daysElapsed,
		TotalSpent:     monthSpent,
		DailyVelocity:  velocity,
		ProjectedTotal: projected,
		Stability:      analysis.Stability,
		Confidence:     confidenceFor(analysis.DataPoints),
		Analysis:       analysis,
	}

	if limit != nil {
		res.Budget = forecastBudget(*limit, monthSpent, velocity, projected, daysInMonth)
	}

	return res
}

func forecastBudget(limit, spent int64, velocity, projected float64, daysInMonth int) *BudgetForecast {
	target := float64(limit) / float64(daysInMonth)
	bf := &BudgetForecast{
		Limit:               limit,
		Remaining:           limit - spent,
		PercentUsed:         money.Percent(spent, limit),
		TargetDailyVelocity: target,
	}

	if velocity > 0 {
		days := int(math.Floor(float64(bf.Remaining) / velocity))
		if days < 0 {
			days = 0
		}
		bf.DaysUntilEmpty = &days
	}

	l := float64(limit)
	switch {
	case projected > l*1.2:
		bf.Status = StatusCritical
		bf.Recommendation = fmt.Sprintf(
			"At this pace you will overspend by %s. Cut daily spending to %s or less.",
			money.Format(int64(math.Round(projected-l))), money.Format(int64(math.Round(target))))
	case projected > l:
		bf.Status = StatusWarning
		bf.Recommendation = fmt.Sprintf(
			"Projected to exceed the budget by %s. Aim for at most %s per day.",
			money.Format(int64(math.Round(projected-l))), money.Format(int64(math.Round(target))))
	case projected > l*0.8:
		bf.Status = StatusModerate
		bf.Recommendation = fmt.Sprintf(
			"Close to the limit. Keep daily spending around %s.",
			money.Format(int64(math.Round(target))))
	default:
		bf.Status = StatusGood
		bf.Recommendation = fmt.Sprintf(
			"On track. You can spend up to %s per day.",
			money.Format(int64(math.Round(target))))
	}

	return bf
}

// Analyze computes population statistics over the days present in series.
func Analyze(series map[string]int64) SeriesAnalysis {
	a := SeriesAnalysis{DataPoints: len(series)}
	if a.DataPoints == 0 {
		a.Stability = StabilityStable
		a.StabilityScore = 100
		return a
	}

	var sum int64
	first := true
	for _, v := range series {
		sum += v
		if first || v > a.MaxDaily {
			a.MaxDaily = v
		}
		if first || v < a.MinDaily {
			a.MinDaily = v
		}
		first = false
	}

	n := float64(a.DataPoints)
	mean := float64(sum) / n

	var sq float64
	for _, v := range series {
		d := float64(v) - mean
		sq += d * d
	}

	a.AvgDaily = mean
	a.Variance = sq / n
	a.StdDev = math.Sqrt(a.Variance)
	if mean > 0 {
		a.CoefficientOfVariation = a.StdDev / mean * 100
	}
	a.Stability = stabilityFor(a.CoefficientOfVariation)
	a.StabilityScore = money.Round1(math.Max(0, 100-a.CoefficientOfVariation))

	return a
}

func stabilityFor(cv float64) Stability {
	switch {
	case cv < stableCVLimit:
		return StabilityStable
	case cv < moderateCVLimit:
		return StabilityModerate
	default:
		return StabilityVolatile
	}
}

func confidenceFor(points int) Confidence {
	switch {
	case points >= highConfidencePoints:
		return ConfidenceHigh
	case points >= mediumConfidencePoints:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}
