package budget

import (
	"fmt"
	"math"
	"time"

	"github.com/dvloznov/sheets-finance-tracker/internal/domain"
	"github.com/dvloznov/sheets-finance-tracker/internal/money"
)

// AlertLevel is ordered Info < Warning < Danger < Blocked.
type AlertLevel string

const (
	LevelInfo    AlertLevel = "Info"
	LevelWarning AlertLevel = "Warning"
	LevelDanger  AlertLevel = "Danger"
	LevelBlocked AlertLevel = "Blocked"
)

// Rank orders levels by severity.
func (l AlertLevel) Rank() int {
	switch l {
	case LevelInfo:
		return 1
	case LevelWarning:
		return 2
	case LevelDanger:
		return 3
	case LevelBlocked:
		return 4
	default:
		return 0
	}
}

// AlertKind identifies which check produced an alert.
type AlertKind string

const (
	KindNoBudget        AlertKind = "NoBudget"
	KindDailyExceeded   AlertKind = "DailyExceeded"
	KindDailyWarning    AlertKind = "DailyWarning"
	KindWeeklyExceeded  AlertKind = "WeeklyExceeded"
	KindWeeklyWarning   AlertKind = "WeeklyWarning"
	KindMonthlyExceeded AlertKind = "MonthlyExceeded"
	KindMonthlyWarning  AlertKind = "MonthlyWarning"
	KindVelocityWarning AlertKind = "VelocityWarning"
)

// Alert is one finding of the limit evaluation.
type Alert struct {
	Level          AlertLevel `json:"level"`
	Kind           AlertKind  `json:"kind"`
	Message        string     `json:"message"`
	Recommendation string     `json:"recommendation"`
	Percentage     *float64   `json:"percentage,omitempty"`
}

// SuggestedAction tells the caller how to proceed with the expense.
type SuggestedAction string

const (
	ActionProceed         SuggestedAction = "Proceed"
	ActionWarningShown    SuggestedAction = "WarningShown"
	ActionConfirmRequired SuggestedAction = "ConfirmRequired"
	ActionBlocked         SuggestedAction = "Blocked"
	ActionCreateBudget    SuggestedAction = "CreateBudget"
)

// Decision is the admission verdict for a candidate expense.
// Alerts are ordered daily, weekly, monthly, velocity.
type Decision struct {
	CanProceed          bool            `json:"canProceed"`
	RequireConfirmation bool            `json:"requireConfirmation"`
	Alerts              []Alert         `json:"alerts"`
	SuggestedAction     SuggestedAction `json:"suggestedAction"`
}

// periodWarningPercent is the warning threshold for the daily and weekly checks.
const periodWarningPercent = 80.0

// Evaluate decides whether spending amount in category is allowed given the
// spend so far and the category's budget. b may be nil.
// Only the daily check honours BlockOnExceed.
func Evaluate(amount int64, category string, current Spend, b *domain.Budget, ref time.Time) Decision {
	if b == nil {
		return Decision{
			CanProceed:      true,
			SuggestedAction: ActionCreateBudget,
			Alerts: []Alert{{
				Level:          LevelInfo,
				Kind:           KindNoBudget,
				Message:        fmt.Sprintf("No budget is set for %q.", category),
				Recommendation: "Create a budget for this category to track spending limits.",
			}},
		}
	}

	after := current.Add(amount)
	dailyLimit := b.EffectiveDailyLimit()
	weeklyLimit := b.EffectiveWeeklyLimit()
	monthlyLimit := b.MonthlyLimit

	alerts := make([]Alert, 0, 4)

	dailyPct := money.Percent(after.Day, dailyLimit)
	switch {
	case after.Day > dailyLimit:
		level := LevelDanger
		rec := "Consider postponing this expense until tomorrow."
		if b.BlockOnExceed {
			level = LevelBlocked
			rec = "This budget blocks spending over the daily limit."
		}
		alerts = append(alerts, Alert{
			Level: level,
			Kind:  KindDailyExceeded,
			Message: fmt.Sprintf("Today's %s spending would reach %s, over the daily limit of %s.",
				category, money.Format(after.Day), money.Format(dailyLimit)),
			Recommendation: rec,
			Percentage:     &dailyPct,
		})
	case dailyPct >= periodWarningPercent:
		alerts = append(alerts, Alert{
			Level: LevelWarning,
			Kind:  KindDailyWarning,
			Message: fmt.Sprintf("Today's %s spending would reach %.1f%% of the daily limit (%s / %s).",
				category, dailyPct, money.Format(after.Day), money.Format(dailyLimit)),
			Recommendation: fmt.Sprintf("%s left for today.", money.Format(dailyLimit-after.Day)),
			Percentage:     &dailyPct,
		})
	}

	weeklyPct := money.Percent(after.Week, weeklyLimit)
	switch {
	case after.Week > weeklyLimit:
		alerts = append(alerts, Alert{
			Level: LevelDanger,
			Kind:  KindWeeklyExceeded,
			Message: fmt.Sprintf("This week's %s spending would reach %s, over the weekly limit of %s.",
				category, money.Format(after.Week), money.Format(weeklyLimit)),
			Recommendation: "Hold off on non-essential spending until next week.",
			Percentage:     &weeklyPct,
		})
	case weeklyPct >= periodWarningPercent:
		alerts = append(alerts, Alert{
			Level: LevelWarning,
			Kind:  KindWeeklyWarning,
			Message: fmt.Sprintf("This week's %s spending would reach %.1f%% of the weekly limit (%s / %s).",
				category, weeklyPct, money.Format(after.Week), money.Format(weeklyLimit)),
			Recommendation: fmt.Sprintf("%s left for this week.", money.Format(weeklyLimit-after.Week)),
			Percentage:     &weeklyPct,
		})
	}

	monthlyPct := money.Percent(after.Month, monthlyLimit)
	switch {
	case after.Month > monthlyLimit:
		alerts = append(alerts, Alert{
			Level: LevelDanger,
			Kind:  KindMonthlyExceeded,
			Message: fmt.Sprintf("This month's %s spending would reach %s, over the monthly budget of %s.",
				category, money.Format(after.Month), money.Format(monthlyLimit)),
			Recommendation: "Review the budget or move funds from another category.",
			Percentage:     &monthlyPct,
		})
	case monthlyPct >= float64(b.EffectiveAlertThreshold()):
		alerts = append(alerts, Alert{
			Level: LevelWarning,
			Kind:  KindMonthlyWarning,
			Message: fmt.Sprintf("This month's %s spending would reach %.1f%% of the monthly budget (%s / %s).",
				category, monthlyPct, money.Format(after.Month), money.Format(monthlyLimit)),
			Recommendation: fmt.Sprintf("%s left for this month.", money.Format(monthlyLimit-after.Month)),
			Percentage:     &monthlyPct,
		})
	}

	if len(alerts) == 0 {
		if a, ok := velocityAlert(after.Month, monthlyLimit, ref); ok {
			alerts = append(alerts, a)
		}
	}

	return decide(alerts)
}

// velocityAlert warns when month-to-date velocity projects past the monthly limit.
func velocityAlert(monthSpent, monthlyLimit int64, ref time.Time) (Alert, bool) {
	f := Forecast(monthSpent, nil, ref, &monthlyLimit)
	if f.ProjectedTotal <= float64(monthlyLimit) {
		return Alert{}, false
	}

	target := int64(math.Round(f.Budget.TargetDailyVelocity))
	msg := fmt.Sprintf("At %s per day you are on pace to spend %s this month, over the budget of %s.",
		money.Format(int64(math.Round(f.DailyVelocity))),
		money.Format(int64(math.Round(f.ProjectedTotal))),
		money.Format(monthlyLimit))
	if f.Budget.DaysUntilEmpty != nil {
		msg += fmt.Sprintf(" The budget runs out in %d day(s) at this pace.", *f.Budget.DaysUntilEmpty)
	}

	pct := money.Percent(int64(math.Round(f.ProjectedTotal)), monthlyLimit)
	return Alert{
		Level:          LevelInfo,
		Kind:           KindVelocityWarning,
		Message:        msg,
		Recommendation: fmt.Sprintf("Keep daily spending under %s.", money.Format(target)),
		Percentage:     &pct,
	}, true
}

// decide folds the ordered alert list into a verdict, most severe level first.
func decide(alerts []Alert) Decision {
	d := Decision{CanProceed: true, Alerts: alerts, SuggestedAction: ActionProceed}

	highest := 0
	for _, a := range alerts {
		if r := a.Level.Rank(); r > highest {
			highest = r
		}
	}

	switch {
	case highest == LevelBlocked.Rank():
		d.CanProceed = false
		d.SuggestedAction = ActionBlocked
	case highest == LevelDanger.Rank():
		d.RequireConfirmation = true
		d.SuggestedAction = ActionConfirmRequired
	case len(alerts) > 0:
		d.RequireConfirmation = true
		d.SuggestedAction = ActionWarningShown
	}

	return d
}
