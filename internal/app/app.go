// Package app builds the collaborators shared by the binaries from Config.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/sheets-finance-tracker/internal/budget"
	"github.com/dvloznov/sheets-finance-tracker/internal/config"
	"github.com/dvloznov/sheets-finance-tracker/internal/export"
	"github.com/dvloznov/sheets-finance-tracker/internal/identity"
	infraBQ "github.com/dvloznov/sheets-finance-tracker/internal/infra/bigquery"
	"github.com/dvloznov/sheets-finance-tracker/internal/infra/sheets"
	"github.com/dvloznov/sheets-finance-tracker/internal/ledger"
	"github.com/dvloznov/sheets-finance-tracker/internal/ledger/inmemory"
	"github.com/dvloznov/sheets-finance-tracker/internal/notifier"
	"github.com/rs/zerolog"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

// App holds the configured ledger provider and budget service.
type App struct {
	Config  *config.Config
	Log     zerolog.Logger
	Ledger  ledger.Provider
	Service *budget.Service

	closers []func() error
}

// New validates cfg and opens the ledger backend it selects.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	a := &App{
		Config:  cfg,
		Log:     log,
		Service: budget.NewService(cfg.Clock()),
	}

	switch cfg.Ledger.Backend {
	case config.BackendMemory:
		log.Warn().Msg("Using the in-memory ledger; data is lost on restart")
		a.Ledger = inmemory.NewProvider()

	case config.BackendSheets:
		a.Ledger = sheets.NewProvider(sheets.ProviderConfig{
			SpreadsheetID:   cfg.Ledger.Sheets.SpreadsheetID,
			SpreadsheetName: cfg.Ledger.Sheets.SpreadsheetName,
			Layout: sheets.Layout{
				TransactionsSheet: cfg.Ledger.Sheets.TransactionsSheet,
				BudgetsSheet:      cfg.Ledger.Sheets.BudgetsSheet,
			},
		}, option.WithScopes(sheetsapi.SpreadsheetsScope, drive.DriveMetadataReadonlyScope))

	case config.BackendBigQuery:
		p, err := infraBQ.NewProvider(ctx, cfg.Ledger.BigQuery.ProjectID, cfg.Ledger.BigQuery.DatasetID)
		if err != nil {
			return nil, fmt.Errorf("open bigquery ledger: %w", err)
		}
		a.Ledger = p
		a.closers = append(a.closers, p.Close)
	}

	log.Info().
		Str("backend", cfg.Ledger.Backend).
		Str("timezone", cfg.Locale.Timezone).
		Msg("Ledger configured")

	return a, nil
}

// Verifier returns the request authenticator selected by auth.mode.
func (a *App) Verifier(ctx context.Context) (identity.Verifier, error) {
	if a.Config.Auth.Mode == config.AuthStatic {
		a.Log.Warn().Str("email", a.Config.Auth.StaticEmail).Msg("Static auth enabled; every request is trusted")
		return identity.StaticVerifier{Email: a.Config.Auth.StaticEmail}, nil
	}
	return identity.NewGoogleVerifier(ctx, a.Config.Auth.AllowedAudience)
}

// Notifier returns the digest sender selected by notifier.mode.
func (a *App) Notifier(ctx context.Context) (notifier.Notifier, error) {
	if a.Config.Notifier.Mode == config.NotifierGmail {
		return notifier.NewGmailNotifier(ctx, a.Config.Notifier.Sender)
	}
	return notifier.NewLogNotifier(a.Log), nil
}

// Exporter opens a Cloud Storage client for bucket, or export.bucket when
// bucket is empty.
func (a *App) Exporter(ctx context.Context, bucket string) (*export.Exporter, error) {
	if bucket == "" {
		bucket = a.Config.Export.Bucket
	}
	if bucket == "" {
		return nil, export.ErrNoBucket
	}
	storage, err := export.NewGCSStorage(ctx)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, storage.Close)
	return export.NewExporter(storage, bucket, a.Config.Clock()), nil
}

// Close releases every client opened by the App.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
