package cmd

import (
	"fmt"

	"github.com/dvloznov/sheets-finance-tracker/internal/money"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check <category> <amount>",
	Short: "Ask whether an expense fits the category budget",
	Args:  cobra.ExactArgs(2),
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	amount, err := money.Parse(args[1])
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	store, err := ledgerStore(ctx)
	if err != nil {
		return err
	}

	res, err := current.Service.CheckBeforeSpend(ctx, store, args[0], amount)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if done, err := printJSON(out, res); done || err != nil {
		return err
	}

	fmt.Fprintf(out, "%s %s: %s\n", args[0], money.Format(amount), res.SuggestedAction)
	fmt.Fprintf(out, "  today %s, this week %s, this month %s\n",
		money.Format(res.AfterExpense.Day), money.Format(res.AfterExpense.Week), money.Format(res.AfterExpense.Month))
	if res.Limits != nil {
		fmt.Fprintf(out, "  limits %s / %s / %s\n",
			money.Format(res.Limits.Daily), money.Format(res.Limits.Weekly), money.Format(res.Limits.Monthly))
	}
	for _, a := range res.Alerts {
		fmt.Fprintf(out, "  [%s] %s\n", a.Level, a.Message)
	}
	if !res.CanProceed {
		return fmt.Errorf("expense blocked by the %s budget", args[0])
	}
	return nil
}
