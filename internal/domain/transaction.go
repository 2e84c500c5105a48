package domain

import (
	"time"

	"cloud.google.com/go/civil"
)

// Kind tells whether a transaction takes money out of or brings money into
// the user's pocket.
type Kind string

const (
	KindExpense Kind = "Expense"
	KindIncome  Kind = "Income"
)

// ParseKind maps a free-form spreadsheet/request value to a Kind.
// Anything that is not recognisably income is treated as an expense.
func ParseKind(s string) Kind {
	switch s {
	case "Income", "income", "INCOME", "Thu", "thu":
		return KindIncome
	default:
		return KindExpense
	}
}

// Transaction is one ledger entry as read from the Ledger Store.
// Amount is expressed in the smallest currency unit and is never negative;
// the direction is carried by Kind. Only Active may change after creation.
type Transaction struct {
	ID       string     `json:"id"`
	Title    string     `json:"title"`
	Category string     `json:"category"`
	Amount   int64      `json:"amount"`
	Date     civil.Date `json:"date"`
	Kind     Kind       `json:"kind"`
	Active   bool       `json:"active"`

	CreatedTS time.Time `json:"createdAt,omitempty"`
}

// IsSpend reports whether t counts toward spending aggregates.
func (t Transaction) IsSpend() bool {
	return t.Active && t.Kind == KindExpense
}
