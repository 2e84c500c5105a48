package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dvloznov/sheets-finance-tracker/internal/app"
	"github.com/dvloznov/sheets-finance-tracker/internal/budget"
	"github.com/dvloznov/sheets-finance-tracker/internal/config"
	"github.com/dvloznov/sheets-finance-tracker/internal/ledger/inmemory"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var refJune10 = time.Date(2024, time.June, 10, 15, 30, 0, 0, time.UTC)

// cli runs commands against one shared in-memory ledger.
type cli struct {
	t   *testing.T
	app *app.App
	dir string
}

func newCLI(t *testing.T) *cli {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	a := &app.App{
		Config:  cfg,
		Log:     zerolog.Nop(),
		Ledger:  inmemory.NewProvider(),
		Service: budget.NewService(func() time.Time { return refJune10 }),
	}

	orig := newApp
	t.Cleanup(func() { newApp = orig })
	newApp = func(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*app.App, error) {
		return a, nil
	}

	return &cli{t: t, app: a, dir: t.TempDir()}
}

func (c *cli) run(args ...string) (string, error) {
	c.t.Helper()

	// Flag variables outlive a single Execute.
	userEmail, jsonOutput = "", false
	addDate, addIncome = "", false
	budgetDaily, budgetWeekly, budgetThreshold, budgetBlock = "", "", 0, false
	exportMonth, exportBucket, exportOut = "", "", ""

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(append([]string{"--config", filepath.Join(c.dir, "missing.yaml"), "--user", "me@example.com"}, args...))

	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCLI_BudgetAddCheck(t *testing.T) {
	c := newCLI(t)

	out, err := c.run("budget", "Food", "3,000,000", "--daily", "100000")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Food: 3,000,000đ per month, 750,000đ per week, 100,000đ per day")

	out, err = c.run("add", "Lunch", "Food", "50000", "--date", "2024-06-10")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Expense Lunch 50,000đ on 2024-06-10")

	out, err = c.run("check", "Food", "60000")
	require.NoError(t, err)
	assert.Contains(t, out, "Food 60,000đ: ConfirmRequired")
	assert.Contains(t, out, "today 110,000đ")

	out, err = c.run("check", "Gifts", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "CreateBudget")
}

func TestCLI_CheckBlocked(t *testing.T) {
	c := newCLI(t)

	_, err := c.run("budget", "Rent", "3000000", "--daily", "10", "--block")
	require.NoError(t, err)

	out, err := c.run("check", "Rent", "100")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blocked")
	assert.Contains(t, out, "Blocked")
}

func TestCLI_ForecastJSON(t *testing.T) {
	c := newCLI(t)

	_, err := c.run("add", "Lunch", "Food", "50000", "--date", "2024-06-10")
	require.NoError(t, err)

	out, err := c.run("forecast", "Food", "--json")
	require.NoError(t, err)

	var res budget.VelocityReport
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, int64(50_000), res.TotalSpent)
	assert.Nil(t, res.Budget)
	require.Len(t, res.RecentExpenses, 1)

	out, err = c.run("forecast")
	require.NoError(t, err)
	assert.Contains(t, out, "All categories, 2024-06-01 to 2024-06-30 (day 10 of 30)")
	assert.Contains(t, out, "Lunch")
}

func TestCLI_Status(t *testing.T) {
	c := newCLI(t)

	out, err := c.run("status")
	require.NoError(t, err)
	assert.Contains(t, out, "No budgets are configured yet.")

	_, err = c.run("budget", "Travel", "1000000")
	require.NoError(t, err)

	out, err = c.run("status")
	require.NoError(t, err)
	assert.Contains(t, out, "Travel")
	assert.Contains(t, out, "Budget:    1,000,000đ, 0.0% used, Good")
}

func TestCLI_ExportToFile(t *testing.T) {
	c := newCLI(t)

	_, err := c.run("add", "Lunch", "Food", "50000")
	require.NoError(t, err)

	path := filepath.Join(c.dir, "june.csv")
	out, err := c.run("export", "--out", path)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Wrote "+path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "id,date,title,category,kind,amount")
}

func TestCLI_BadInput(t *testing.T) {
	c := newCLI(t)

	_, err := c.run("check", "Food", "lots")
	assert.Error(t, err)

	_, err = c.run("check", "Food")
	assert.Error(t, err)

	_, err = c.run("add", "Lunch", "Food", "1", "--date", "10/06/2024")
	assert.Error(t, err)

	_, err = c.run("export", "--month", "June", "--out", filepath.Join(c.dir, "x.csv"))
	assert.Error(t, err)
}
