// Package sheets implements the Ledger Store on top of a Google Sheets
// spreadsheet with one tab for transactions and one for budgets. Row 1 of
// each tab is a header.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/dvloznov/sheets-finance-tracker/internal/domain"
	"github.com/dvloznov/sheets-finance-tracker/internal/ledger"
	"github.com/dvloznov/sheets-finance-tracker/internal/logger"
	"google.golang.org/api/googleapi"
	sheetsapi "google.golang.org/api/sheets/v4"
)

const (
	valueRender    = "UNFORMATTED_VALUE"
	dateTimeRender = "FORMATTED_STRING"
	valueInput     = "USER_ENTERED"
	insertRows     = "INSERT_ROWS"
)

// Layout names the tabs of a finance spreadsheet.
type Layout struct {
	TransactionsSheet string
	BudgetsSheet      string
}

// Store is a ledger.Store backed by one spreadsheet.
type Store struct {
	svc           *sheetsapi.Service
	spreadsheetID string
	layout        Layout
}

// NewStore wraps an authenticated Sheets service.
func NewStore(svc *sheetsapi.Service, spreadsheetID string, layout Layout) *Store {
	return &Store{svc: svc, spreadsheetID: spreadsheetID, layout: layout}
}

func (s *Store) txRange(cols string) string {
	return fmt.Sprintf("'%s'!%s", s.layout.TransactionsSheet, cols)
}

func (s *Store) budgetRange(cols string) string {
	return fmt.Sprintf("'%s'!%s", s.layout.BudgetsSheet, cols)
}

func (s *Store) read(ctx context.Context, rng string) ([][]interface{}, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, rng).
		ValueRenderOption(valueRender).
		DateTimeRenderOption(dateTimeRender).
		Context(ctx).
		Do()
	if err != nil {
		return nil, translate(err)
	}
	return resp.Values, nil
}

// ListTransactions implements ledger.Store. Rows that cannot be parsed are
// logged and skipped.
func (s *Store) ListTransactions(ctx context.Context, filter ledger.TransactionFilter) ([]domain.Transaction, error) {
	rows, err := s.read(ctx, s.txRange("A2:H"))
	if err != nil {
		return nil, fmt.Errorf("ListTransactions: reading rows: %w", err)
	}

	log := logger.FromContext(ctx)
	result := make([]domain.Transaction, 0, len(rows))
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		tx, err := transactionFromRow(row)
		if err != nil {
			log.Warn().Err(err).Int("row", i+2).Str("sheet", s.layout.TransactionsSheet).Msg("Skipping malformed row")
			continue
		}
		if filter.Matches(tx) {
			result = append(result, tx)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Date.Before(result[j].Date)
	})

	return result, nil
}

// AppendTransaction implements ledger.Store.
func (s *Store) AppendTransaction(ctx context.Context, tx *domain.Transaction) error {
	if tx.ID == "" {
		return fmt.Errorf("AppendTransaction: transaction ID is required")
	}

	vr := &sheetsapi.ValueRange{Values: [][]interface{}{transactionToRow(tx)}}
	_, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID, s.txRange("A:H"), vr).
		ValueInputOption(valueInput).
		InsertDataOption(insertRows).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("AppendTransaction: appending row: %w", translate(err))
	}
	return nil
}

// UpdateTransaction implements ledger.Store.
func (s *Store) UpdateTransaction(ctx context.Context, id string, patch ledger.TransactionPatch) error {
	ids, err := s.read(ctx, s.txRange("A2:A"))
	if err != nil {
		return fmt.Errorf("UpdateTransaction: reading ids: %w", err)
	}

	rowNum := findRow(ids, id)
	if rowNum == 0 {
		return fmt.Errorf("UpdateTransaction: transaction %s: %w", id, ledger.ErrNotFound)
	}
	if patch.Active == nil {
		return nil
	}

	rng := s.txRange(fmt.Sprintf("%s%d", activeColumn, rowNum))
	vr := &sheetsapi.ValueRange{Values: [][]interface{}{{*patch.Active}}}
	_, err = s.svc.Spreadsheets.Values.Update(s.spreadsheetID, rng, vr).
		ValueInputOption(valueInput).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("UpdateTransaction: updating row %d: %w", rowNum, translate(err))
	}
	return nil
}

// findRow returns the 1-based sheet row holding id in a column read from
// row 2 downwards, or 0.
func findRow(column [][]interface{}, id string) int {
	for i, row := range column {
		if cellString(row, 0) == id {
			return i + 2
		}
	}
	return 0
}

// ListBudgets implements ledger.Store.
func (s *Store) ListBudgets(ctx context.Context) ([]domain.Budget, error) {
	rows, err := s.read(ctx, s.budgetRange("A2:H"))
	if err != nil {
		return nil, fmt.Errorf("ListBudgets: reading rows: %w", err)
	}

	log := logger.FromContext(ctx)
	result := make([]domain.Budget, 0, len(rows))
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		b, err := budgetFromRow(row)
		if err != nil {
			log.Warn().Err(err).Int("row", i+2).Str("sheet", s.layout.BudgetsSheet).Msg("Skipping malformed row")
			continue
		}
		result = append(result, b)
	}
	return result, nil
}

// GetBudget implements ledger.Store.
func (s *Store) GetBudget(ctx context.Context, category string) (*domain.Budget, error) {
	budgets, err := s.ListBudgets(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetBudget: %w", err)
	}
	return ledger.IndexBudgets(budgets).Lookup(category)
}

// UpsertBudget implements ledger.Store. The last row for the category is
// overwritten; otherwise a new row is appended.
func (s *Store) UpsertBudget(ctx context.Context, b *domain.Budget) error {
	if b.Category == "" {
		return fmt.Errorf("UpsertBudget: budget category is required")
	}

	rows, err := s.read(ctx, s.budgetRange("A2:B"))
	if err != nil {
		return fmt.Errorf("UpsertBudget: reading rows: %w", err)
	}

	rowNum := 0
	for i, row := range rows {
		if cellString(row, bColCategory) == b.Category {
			rowNum = i + 2
		}
	}

	vr := &sheetsapi.ValueRange{Values: [][]interface{}{budgetToRow(b)}}
	if rowNum == 0 {
		_, err = s.svc.Spreadsheets.Values.Append(s.spreadsheetID, s.budgetRange("A:H"), vr).
			ValueInputOption(valueInput).
			InsertDataOption(insertRows).
			Context(ctx).
			Do()
	} else {
		_, err = s.svc.Spreadsheets.Values.Update(s.spreadsheetID, s.budgetRange(fmt.Sprintf("A%d:H%d", rowNum, rowNum)), vr).
			ValueInputOption(valueInput).
			Context(ctx).
			Do()
	}
	if err != nil {
		return fmt.Errorf("UpsertBudget: writing row: %w", translate(err))
	}
	return nil
}

// ErrSpreadsheetNotFound is returned when the spreadsheet or tab does not exist
// or is not shared with the caller.
var ErrSpreadsheetNotFound = errors.New("spreadsheet not found")

// translate keeps the API status visible in the error chain.
func translate(err error) error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return err
	}
	switch gerr.Code {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %v", ErrSpreadsheetNotFound, gerr.Message)
	default:
		return fmt.Errorf("sheets API %d: %w", gerr.Code, err)
	}
}

// Ensure Store implements ledger.Store.
var _ ledger.Store = (*Store)(nil)
