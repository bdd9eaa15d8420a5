package app

import (
	"context"
	"fmt"
	"io"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/league-snapshot/external/apifootball"
	"github.com/riskibarqy/league-snapshot/internal/config"
	"github.com/riskibarqy/league-snapshot/internal/domain/exportrun"
	"github.com/riskibarqy/league-snapshot/internal/infrastructure/repository/postgres"
	"github.com/riskibarqy/league-snapshot/internal/platform/logging"
	"github.com/riskibarqy/league-snapshot/internal/usecase"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var appTracer = otel.Tracer("league-snapshot/internal/app")

type exporter interface {
	Run(ctx context.Context) (usecase.ExportReport, error)
}

// Runner owns the process-wide resources of one exporter process.
type Runner struct {
	exporter exporter
	db       *sqlx.DB
	logger   *logging.Logger
}

// NewRunner opens the database, makes sure the destination schema exists and
// wires the API client, repositories and export service.
func NewRunner(ctx context.Context, cfg config.Config, logger *logging.Logger) (*Runner, error) {
	if logger == nil {
		logger = logging.Default()
	}

	db, err := OpenDatabase(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	snapshots, err := postgres.NewSnapshotRepository(db, postgres.SnapshotRepositoryConfig{
		Schema:          cfg.Database.Schema,
		Strategy:        postgres.ReplaceStrategy(cfg.ExportReplaceStrategy),
		BulkMode:        postgres.BulkMode(cfg.ExportBulkMode),
		InsertBatchSize: cfg.ExportInsertBatchSize,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("build snapshot repository: %w", err)
	}
	if err := snapshots.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	var runs exportrun.Repository
	if cfg.ExportRunLogEnabled {
		runs = postgres.NewExportRunRepository(db)
	}

	client := apifootball.NewClient(apifootball.ClientConfig{
		BaseURL:        cfg.APIFootballBaseURL,
		APIKey:         cfg.APIFootballKey,
		Timeout:        cfg.APIFootballTimeout,
		MaxRetries:     cfg.APIFootballMaxRetries,
		Logger:         logger,
		CircuitBreaker: cfg.APIFootballCircuitBreaker(),
	})

	service, err := usecase.NewExportService(client, snapshots, runs, usecase.ExportServiceConfig{
		LeagueID: cfg.LeagueID,
		Season:   cfg.Season,
		Schema:   snapshots.Schema(),
		Jobs: usecase.DefaultExportJobs(
			cfg.ExportTableStandings,
			cfg.ExportTableTopScorers,
			cfg.ExportTableTopAssists,
		),
		AtomicBatch: cfg.ExportAtomicBatch,
	}, logger)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("build export service: %w", err)
	}

	logger.InfoContext(ctx, "exporter ready",
		"league_id", cfg.LeagueID,
		"season", cfg.Season,
		"schema", snapshots.Schema(),
		"strategy", cfg.ExportReplaceStrategy,
		"bulk_mode", cfg.ExportBulkMode,
		"atomic_batch", cfg.ExportAtomicBatch,
		"run_log", cfg.ExportRunLogEnabled,
	)

	return &Runner{exporter: service, db: db, logger: logger}, nil
}

// RunOnce performs one export and prints a confirmation line per written
// table to out. Tables written before a failure are still reported.
func (r *Runner) RunOnce(ctx context.Context, out io.Writer) error {
	ctx, span := appTracer.Start(ctx, "app.Runner.RunOnce")
	defer span.End()

	report, err := r.exporter.Run(ctx)
	for _, table := range report.Tables {
		fmt.Fprintf(out, "[INFO] Wrote table %s.%s (%d rows)\n", table.Schema, table.Table, table.Rows)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	fmt.Fprintln(out, "PostgreSQL tables updated.")
	return nil
}

func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}
