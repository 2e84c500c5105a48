package sheets

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/sheets-finance-tracker/internal/domain"
	"github.com/dvloznov/sheets-finance-tracker/internal/money"
)

// Transactions sheet columns, A..H.
const (
	txColID = iota
	txColDate
	txColTitle
	txColCategory
	txColAmount
	txColKind
	txColActive
	txColCreated
	txColumns
)

// Budgets sheet columns, A..H.
const (
	bColID = iota
	bColCategory
	bColMonthly
	bColPeriod
	bColThreshold
	bColDaily
	bColWeekly
	bColBlock
	bColumns
)

// Column letter of the Active flag in the transactions sheet.
const activeColumn = "G"

// Google Sheets serial dates count days from this epoch.
var serialEpoch = civil.Date{Year: 1899, Month: time.December, Day: 30}

// dateLayouts are accepted for text date cells, ISO first.
var dateLayouts = []string{"2006-01-02", "02/01/2006", "2/1/2006", "2006/01/02"}

func cell(row []interface{}, i int) interface{} {
	if i >= len(row) {
		return nil
	}
	return row[i]
}

func cellString(row []interface{}, i int) string {
	switch v := cell(row, i).(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func cellAmount(row []interface{}, i int) (int64, error) {
	switch v := cell(row, i).(type) {
	case nil:
		return 0, nil
	case float64:
		return money.FromFloat(v)
	case string:
		if strings.TrimSpace(v) == "" {
			return 0, nil
		}
		return money.Parse(v)
	default:
		return 0, fmt.Errorf("unexpected amount cell %T", v)
	}
}

func cellBool(row []interface{}, i int, def bool) bool {
	switch v := cell(row, i).(type) {
	case bool:
		return v
	case string:
		switch strings.ToUpper(strings.TrimSpace(v)) {
		case "TRUE", "YES", "1", "X":
			return true
		case "FALSE", "NO", "0":
			return false
		}
	case float64:
		return v != 0
	}
	return def
}

func cellDate(row []interface{}, i int) (civil.Date, error) {
	switch v := cell(row, i).(type) {
	case float64:
		return serialEpoch.AddDays(int(v)), nil
	case string:
		s := strings.TrimSpace(v)
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return civil.DateOf(t), nil
			}
		}
		return civil.Date{}, fmt.Errorf("unrecognised date %q", s)
	default:
		return civil.Date{}, fmt.Errorf("missing date")
	}
}

// transactionFromRow maps one transactions-sheet row.
func transactionFromRow(row []interface{}) (domain.Transaction, error) {
	tx := domain.Transaction{
		ID:       cellString(row, txColID),
		Title:    cellString(row, txColTitle),
		Category: cellString(row, txColCategory),
		Kind:     domain.ParseKind(cellString(row, txColKind)),
		Active:   cellBool(row, txColActive, true),
	}
	if tx.ID == "" {
		return tx, fmt.Errorf("missing id")
	}

	d, err := cellDate(row, txColDate)
	if err != nil {
		return tx, fmt.Errorf("transaction %s: %w", tx.ID, err)
	}
	tx.Date = d

	amount, err := cellAmount(row, txColAmount)
	if err != nil {
		return tx, fmt.Errorf("transaction %s: %w", tx.ID, err)
	}
	if amount < 0 {
		// Some sheets record expenses as negative numbers.
		amount = -amount
	}
	tx.Amount = amount

	if created := cellString(row, txColCreated); created != "" {
		if ts, err := time.Parse(time.RFC3339, created); err == nil {
			tx.CreatedTS = ts
		}
	}

	return tx, nil
}

// transactionToRow is the inverse of transactionFromRow.
func transactionToRow(tx *domain.Transaction) []interface{} {
	created := ""
	if !tx.CreatedTS.IsZero() {
		created = tx.CreatedTS.UTC().Format(time.RFC3339)
	}
	row := make([]interface{}, txColumns)
	row[txColID] = tx.ID
	row[txColDate] = tx.Date.String()
	row[txColTitle] = tx.Title
	row[txColCategory] = tx.Category
	row[txColAmount] = tx.Amount
	row[txColKind] = string(tx.Kind)
	row[txColActive] = tx.Active
	row[txColCreated] = created
	return row
}

// budgetFromRow maps one budgets-sheet row.
func budgetFromRow(row []interface{}) (domain.Budget, error) {
	b := domain.Budget{
		ID:            cellString(row, bColID),
		Category:      cellString(row, bColCategory),
		Period:        domain.Period(cellString(row, bColPeriod)),
		BlockOnExceed: cellBool(row, bColBlock, false),
	}
	if b.Category == "" {
		return b, fmt.Errorf("missing category")
	}
	if b.Period == "" {
		b.Period = domain.PeriodMonthly
	}

	var err error
	if b.MonthlyLimit, err = cellAmount(row, bColMonthly); err != nil {
		return b, fmt.Errorf("budget %s: monthly limit: %w", b.Category, err)
	}
	if b.DailyLimit, err = cellAmount(row, bColDaily); err != nil {
		return b, fmt.Errorf("budget %s: daily limit: %w", b.Category, err)
	}
	if b.WeeklyLimit, err = cellAmount(row, bColWeekly); err != nil {
		return b, fmt.Errorf("budget %s: weekly limit: %w", b.Category, err)
	}

	threshold, err := cellAmount(row, bColThreshold)
	if err != nil {
		return b, fmt.Errorf("budget %s: alert threshold: %w", b.Category, err)
	}
	b.AlertThresholdPercent = int(threshold)

	return b, nil
}

// budgetToRow is the inverse of budgetFromRow.
func budgetToRow(b *domain.Budget) []interface{} {
	row := make([]interface{}, bColumns)
	row[bColID] = b.ID
	row[bColCategory] = b.Category
	row[bColMonthly] = b.MonthlyLimit
	row[bColPeriod] = string(b.Period)
	row[bColThreshold] = b.AlertThresholdPercent
	row[bColDaily] = b.DailyLimit
	row[bColWeekly] = b.WeeklyLimit
	row[bColBlock] = b.BlockOnExceed
	return row
}
