package cmd

import (
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/sheets-finance-tracker/internal/budget"
	"github.com/dvloznov/sheets-finance-tracker/internal/domain"
	"github.com/dvloznov/sheets-finance-tracker/internal/money"
	"github.com/spf13/cobra"
)

var addCmd = &cobra.Command{
	Use:   "add <title> <category> <amount>",
	Short: "Record an expense or income",
	Long: `Record a transaction in the ledger. The date defaults to today.

Examples:
  finance add "Lunch" Food 85000
  finance add "Salary" Salary 25,000,000 --income --date 2024-06-01`,
	Args: cobra.ExactArgs(3),
	RunE: runAdd,
}

var budgetCmd = &cobra.Command{
	Use:   "budget <category> <monthly-limit>",
	Short: "Set a category budget",
	Args:  cobra.ExactArgs(2),
	RunE:  runBudget,
}

var (
	addDate   string
	addIncome bool

	budgetDaily     string
	budgetWeekly    string
	budgetThreshold int
	budgetBlock     bool
)

func init() {
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(budgetCmd)

	addCmd.Flags().StringVar(&addDate, "date", "", "transaction date, YYYY-MM-DD")
	addCmd.Flags().BoolVar(&addIncome, "income", false, "record income instead of an expense")

	budgetCmd.Flags().StringVar(&budgetDaily, "daily", "", "daily limit (default monthly/30)")
	budgetCmd.Flags().StringVar(&budgetWeekly, "weekly", "", "weekly limit (default monthly/4)")
	budgetCmd.Flags().IntVar(&budgetThreshold, "threshold", 0, "monthly alert threshold in percent (default 80)")
	budgetCmd.Flags().BoolVar(&budgetBlock, "block", false, "refuse expenses over the daily limit")
}

func runAdd(cmd *cobra.Command, args []string) error {
	amount, err := money.Parse(args[2])
	if err != nil {
		return err
	}

	in := budget.NewTransaction{Title: args[0], Category: args[1], Amount: amount}
	if addDate != "" {
		if in.Date, err = civil.ParseDate(addDate); err != nil {
			return fmt.Errorf("--date: %w", err)
		}
	}
	if addIncome {
		in.Kind = domain.KindIncome
	}

	ctx := cmd.Context()
	store, err := ledgerStore(ctx)
	if err != nil {
		return err
	}

	tx, err := current.Service.AddTransaction(ctx, store, in)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if done, err := printJSON(out, tx); done || err != nil {
		return err
	}
	fmt.Fprintf(out, "✓ %s %s %s on %s (%s)\n", tx.Kind, tx.Title, money.Format(tx.Amount), tx.Date, tx.ID)
	return nil
}

func runBudget(cmd *cobra.Command, args []string) error {
	monthly, err := money.Parse(args[1])
	if err != nil {
		return err
	}

	b := domain.Budget{
		Category:              args[0],
		MonthlyLimit:          monthly,
		AlertThresholdPercent: budgetThreshold,
		BlockOnExceed:         budgetBlock,
	}
	if budgetDaily != "" {
		if b.DailyLimit, err = money.Parse(budgetDaily); err != nil {
			return fmt.Errorf("--daily: %w", err)
		}
	}
	if budgetWeekly != "" {
		if b.WeeklyLimit, err = money.Parse(budgetWeekly); err != nil {
			return fmt.Errorf("--weekly: %w", err)
		}
	}

	ctx := cmd.Context()
	store, err := ledgerStore(ctx)
	if err != nil {
		return err
	}

	saved, err := current.Service.SaveBudget(ctx, store, b)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if done, err := printJSON(out, saved); done || err != nil {
		return err
	}
	fmt.Fprintf(out, "✓ %s: %s per month, %s per week, %s per day\n",
		saved.Category, money.Format(saved.MonthlyLimit), money.Format(saved.WeeklyLimit), money.Format(saved.DailyLimit))
	return nil
}
