package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/dvloznov/sheets-finance-tracker/internal/app"
	"github.com/dvloznov/sheets-finance-tracker/internal/config"
	"github.com/dvloznov/sheets-finance-tracker/internal/identity"
	"github.com/dvloznov/sheets-finance-tracker/internal/ledger"
	"github.com/dvloznov/sheets-finance-tracker/internal/logger"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "finance",
	Short: "Check spending against budgets and forecast the month",
	Long: `finance works on the same ledger as the API server.

Commands:
  check     - Ask whether an expense fits the category budget
  forecast  - Project month-end spending for a category or for everything
  add       - Record an expense or income
  budget    - Set a category budget
  status    - Show every budget with its forecast
  export    - Upload a month of transactions as CSV to Cloud Storage

Examples:
  finance check Food 150000
  finance forecast
  finance add "Lunch" Food 85000
  finance export --month 2024-06`,
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

var (
	configPath string
	userEmail  string
	jsonOutput bool

	// newApp is replaced in tests.
	newApp = app.New

	current *app.App
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the YAML config file")
	rootCmd.PersistentFlags().StringVarP(&userEmail, "user", "u", "", "ledger owner e-mail (default auth.static_email)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print results as JSON")
}

func setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, err := logger.NewFromConfig(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	if err != nil {
		return err
	}

	ctx := logger.WithContext(cmd.Context(), log)
	cmd.SetContext(ctx)

	current, err = newApp(ctx, cfg, log)
	if err != nil {
		return err
	}

	if userEmail == "" {
		userEmail = cfg.Auth.StaticEmail
	}
	return nil
}

func teardown(cmd *cobra.Command, args []string) error {
	if current == nil {
		return nil
	}
	err := current.Close()
	current = nil
	return err
}

// ledgerStore opens the ledger of the selected user with the backend's own
// credentials.
func ledgerStore(ctx context.Context) (ledger.Store, error) {
	if userEmail == "" && current.Config.Ledger.Backend != config.BackendMemory {
		return nil, fmt.Errorf("no user: pass --user or set auth.static_email")
	}
	return current.Ledger.StoreFor(ctx, identity.User{Email: userEmail})
}

// printJSON writes v indented when --json is set and reports whether it did.
func printJSON(w io.Writer, v interface{}) (bool, error) {
	if !jsonOutput {
		return false, nil
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return true, enc.Encode(v)
}
