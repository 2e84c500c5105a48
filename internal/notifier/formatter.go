package notifier

import (
	"fmt"
	"strings"

	"github.com/dvloznov/sheets-finance-tracker/internal/budget"
	"github.com/dvloznov/sheets-finance-tracker/internal/money"
)

// ActionNeededPrefix marks digests where at least one budget is projected to overrun.
const ActionNeededPrefix = "[Action needed] "

// NeedsAction reports whether any category is forecast at Warning or Critical.
func NeedsAction(rows []budget.CategoryStatus) bool {
	for _, r := range rows {
		if r.Forecast.Budget == nil {
			continue
		}
		switch r.Forecast.Budget.Status {
		case budget.StatusWarning, budget.StatusCritical:
			return true
		}
	}
	return false
}

// FormatDigest renders the budget status overview as a plain-text e-mail for day.
func FormatDigest(to, day string, rows []budget.CategoryStatus) Message {
	subject := "Budget digest " + day
	if NeedsAction(rows) {
		subject = ActionNeededPrefix + subject
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("Budget status for %s\n\n", day))

	if len(rows) == 0 {
		b.WriteString("No budgets are configured yet.\n")
		return Message{To: []string{to}, Subject: subject, Body: b.String()}
	}

	for _, r := range rows {
		f := r.Forecast
		b.WriteString(fmt.Sprintf("%s\n", r.Budget.Category))
		b.WriteString(fmt.Sprintf("  Spent:     %s of %s", money.Format(f.TotalSpent), money.Format(r.Budget.MonthlyLimit)))
		if f.Budget != nil {
			b.WriteString(fmt.Sprintf(" (%.1f%%)", f.Budget.PercentUsed))
		}
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("  Projected: %s by %s\n", money.Format(int64(f.ProjectedTotal+0.5)), f.PeriodEnd))
		if f.Budget != nil {
			b.WriteString(fmt.Sprintf("  Status:    %s\n", f.Budget.Status))
			b.WriteString(fmt.Sprintf("  %s\n", f.Budget.Recommendation))
		}
		b.WriteString("\n")
	}

	return Message{To: []string{to}, Subject: subject, Body: b.String()}
}
