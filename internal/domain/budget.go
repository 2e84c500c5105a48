package domain

// Period is the reset cadence of a budget.
type Period string

const (
	PeriodMonthly Period = "Monthly"
	PeriodYearly  Period = "Yearly"
)

// DefaultAlertThresholdPercent is used when a budget leaves the threshold unset.
const DefaultAlertThresholdPercent = 80

// Budget is the spending limit configured for one category.
// Zero-valued optional limits fall back to the defaults derived from
// MonthlyLimit; use the Effective* accessors instead of reading them directly.
type Budget struct {
	ID                    string `json:"id"`
	Category              string `json:"category"`
	MonthlyLimit          int64  `json:"monthlyLimit"`
	Period                Period `json:"period"`
	AlertThresholdPercent int    `json:"alertThresholdPercent"` // 0 means DefaultAlertThresholdPercent
	DailyLimit            int64  `json:"dailyLimit"`
	WeeklyLimit           int64  `json:"weeklyLimit"`
	BlockOnExceed         bool   `json:"blockOnExceed"`
}

// EffectiveDailyLimit returns DailyLimit, or MonthlyLimit/30 when unset.
func (b Budget) EffectiveDailyLimit() int64 {
	if b.DailyLimit > 0 {
		return b.DailyLimit
	}
	return b.MonthlyLimit / 30
}

// EffectiveWeeklyLimit returns WeeklyLimit, or MonthlyLimit/4 when unset.
func (b Budget) EffectiveWeeklyLimit() int64 {
	if b.WeeklyLimit > 0 {
		return b.WeeklyLimit
	}
	return b.MonthlyLimit / 4
}

// EffectiveAlertThreshold returns the monthly warning threshold in percent.
func (b Budget) EffectiveAlertThreshold() int {
	if b.AlertThresholdPercent <= 0 {
		return DefaultAlertThresholdPercent
	}
	return b.AlertThresholdPercent
}

// WithDefaults returns a copy of b with every derived field filled in.
func (b Budget) WithDefaults() Budget {
	b.DailyLimit = b.EffectiveDailyLimit()
	b.WeeklyLimit = b.EffectiveWeeklyLimit()
	b.AlertThresholdPercent = b.EffectiveAlertThreshold()
	if b.Period == "" {
		b.Period = PeriodMonthly
	}
	return b
}
