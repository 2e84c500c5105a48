package cmd

import (
	"fmt"
	"math"

	"github.com/dvloznov/sheets-finance-tracker/internal/budget"
	"github.com/dvloznov/sheets-finance-tracker/internal/money"
	"github.com/spf13/cobra"
)

var forecastCmd = &cobra.Command{
	Use:   "forecast [category]",
	Short: "Project month-end spending for a category or for everything",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runForecast,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show every budget with its forecast",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(forecastCmd)
	rootCmd.AddCommand(statusCmd)
}

func runForecast(cmd *cobra.Command, args []string) error {
	category := budget.AllCategories
	if len(args) == 1 {
		category = args[0]
	}

	ctx := cmd.Context()
	store, err := ledgerStore(ctx)
	if err != nil {
		return err
	}

	res, err := current.Service.GetForecast(ctx, store, category)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if done, err := printJSON(out, res); done || err != nil {
		return err
	}

	label := category
	if label == budget.AllCategories {
		label = "All categories"
	}
	fmt.Fprintf(out, "%s, %s to %s (day %d of %d)\n", label, res.PeriodStart, res.PeriodEnd, res.DaysElapsed, res.DaysInMonth)
	printForecast(cmd, res.ForecastResult)

	if len(res.RecentExpenses) > 0 {
		fmt.Fprintln(out, "  Recent:")
		for _, tx := range res.RecentExpenses {
			fmt.Fprintf(out, "    %s  %-20s %s\n", tx.Date, tx.Title, money.Format(tx.Amount))
		}
	}
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	store, err := ledgerStore(ctx)
	if err != nil {
		return err
	}

	rows, err := current.Service.BudgetStatus(ctx, store)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if done, err := printJSON(out, rows); done || err != nil {
		return err
	}

	if len(rows) == 0 {
		fmt.Fprintln(out, "No budgets are configured yet.")
		return nil
	}
	for _, r := range rows {
		fmt.Fprintln(out, r.Budget.Category)
		printForecast(cmd, r.Forecast)
	}
	return nil
}

func printForecast(cmd *cobra.Command, f budget.ForecastResult) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "  Spent:     %s (%s/day)\n", money.Format(f.TotalSpent), money.Format(int64(math.Round(f.DailyVelocity))))
	fmt.Fprintf(out, "  Projected: %s\n", money.Format(int64(math.Round(f.ProjectedTotal))))
	fmt.Fprintf(out, "  Stability: %s (%.1f), confidence %s\n", f.Stability, f.Analysis.StabilityScore, f.Confidence)
	if b := f.Budget; b != nil {
		fmt.Fprintf(out, "  Budget:    %s, %.1f%% used, %s\n", money.Format(b.Limit), b.PercentUsed, b.Status)
		fmt.Fprintf(out, "  %s\n", b.Recommendation)
	}
}
