package main

import (
	"context"
	"flag"
	"os"

	"cloud.google.com/go/bigquery"
	infraBQ "github.com/dvloznov/sheets-finance-tracker/internal/infra/bigquery"
	"github.com/dvloznov/sheets-finance-tracker/internal/logger"
)

var (
	projectID = flag.String("project", os.Getenv("GCP_PROJECT"), "GCP project ID (or set GCP_PROJECT env)")
	datasetID = flag.String("dataset", envOr("BQ_DATASET", "finance"), "BigQuery dataset ID")
	appliedBy = flag.String("applied-by", "migrate-cli", "Name of the tool applying migrations")
	dryRun    = flag.Bool("dry-run", false, "List pending migrations without applying them")
)

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	flag.Parse()

	log := logger.New()
	ctx := context.Background()

	if *projectID == "" {
		log.Fatal().Msg("-project flag is required. Please specify your GCP project ID.")
	}

	migrations, err := infraBQ.LoadMigrations(infraBQ.Migrations(), *projectID, *datasetID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read migrations")
	}
	log.Info().Int("count", len(migrations)).Msg("Found migration files")

	client, err := bigquery.NewClient(ctx, *projectID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery client")
	}
	defer client.Close()

	log.Info().Str("project", *projectID).Str("dataset", *datasetID).Msg("Connected to BigQuery")

	migrator := infraBQ.NewMigrator(client, *projectID, *datasetID, *appliedBy)

	if err := migrator.EnsureSchemaMigrationsTable(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure schema_migrations table")
	}

	applied, err := migrator.Applied(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to get applied migrations")
	}
	log.Info().Int("count", len(applied)).Msg("Found already applied migrations")

	pending := infraBQ.Pending(migrations, applied)
	if len(pending) == 0 {
		log.Info().Msg("No new migrations to apply. Database is up to date.")
		return
	}

	for _, m := range pending {
		mlog := log.With().Int("version", m.Version).Str("name", m.Name).Logger()
		if *dryRun {
			mlog.Info().Msg("Pending")
			continue
		}

		mlog.Info().Msg("Applying migration")
		if err := migrator.Apply(ctx, m); err != nil {
			mlog.Fatal().Err(err).Msg("Failed to apply migration")
		}
		mlog.Info().Msg("Migration applied")
	}

	if !*dryRun {
		log.Info().Int("count", len(pending)).Msg("Successfully applied migrations")
	}
}
