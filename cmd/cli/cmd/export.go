package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/dvloznov/sheets-finance-tracker/internal/export"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Upload a month of transactions as CSV to Cloud Storage",
	Long: `Write the month's transactions and a per-category forecast summary to
gs://<bucket>/exports/<user>/<YYYY-MM>.csv.

With --out the CSV is written to a local file instead.

Examples:
  finance export --month 2024-06 --bucket my-finance-exports
  finance export --out june.csv`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

var (
	exportMonth  string
	exportBucket string
	exportOut    string
)

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&exportMonth, "month", "", "month to export, YYYY-MM (default current month)")
	exportCmd.Flags().StringVar(&exportBucket, "bucket", "", "destination bucket (default export.bucket or GCS_BUCKET)")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "write to a local file instead of Cloud Storage")
}

func runExport(cmd *cobra.Command, args []string) error {
	now := current.Config.Clock()()
	month := now
	if exportMonth != "" {
		m, err := time.ParseInLocation(export.MonthLayout, exportMonth, now.Location())
		if err != nil {
			return fmt.Errorf("--month: %w", err)
		}
		month = m
	}

	ctx := cmd.Context()
	store, err := ledgerStore(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	if exportOut != "" {
		data, err := export.NewExporter(nil, "", current.Config.Clock()).Build(ctx, store, month)
		if err != nil {
			return err
		}
		if err := os.WriteFile(exportOut, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", exportOut, err)
		}
		fmt.Fprintf(out, "✓ Wrote %s\n", exportOut)
		return nil
	}

	exporter, err := current.Exporter(ctx, exportBucket)
	if err != nil {
		return err
	}

	uri, err := exporter.Export(ctx, userEmail, store, month)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "✓ Exported to %s\n", uri)
	return nil
}
