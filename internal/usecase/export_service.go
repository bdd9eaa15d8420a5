package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/league-snapshot/internal/domain/exportrun"
	"github.com/riskibarqy/league-snapshot/internal/domain/leaguestats"
	"github.com/riskibarqy/league-snapshot/internal/platform/logging"
	"go.opentelemetry.io/otel/attribute"
)

// StatsProvider fetches one statistic for a league season as a flat table.
type StatsProvider interface {
	FetchStatistic(ctx context.Context, stat leaguestats.Statistic, leagueID int64, season int) (leaguestats.Table, error)
}

// ExportJob binds a statistic to the destination table it replaces.
type ExportJob struct {
	Statistic leaguestats.Statistic
	Table     string
}

type ExportServiceConfig struct {
	LeagueID    int64
	Season      int
	Schema      string
	Jobs        []ExportJob
	AtomicBatch bool
}

// DefaultExportJobs returns the three fixed jobs in export order.
func DefaultExportJobs(standings, topScorers, topAssists string) []ExportJob {
	return []ExportJob{
		{Statistic: leaguestats.StatisticStandings, Table: standings},
		{Statistic: leaguestats.StatisticTopScorers, Table: topScorers},
		{Statistic: leaguestats.StatisticTopAssists, Table: topAssists},
	}
}

type TableResult struct {
	Statistic  leaguestats.Statistic
	Schema     string
	Table      string
	Rows       int64
	ExportedAt time.Time
}

type ExportReport struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Tables     []TableResult
}

type ExportService struct {
	provider StatsProvider
	repo     leaguestats.Repository
	runs     exportrun.Repository
	cfg      ExportServiceConfig
	logger   *logging.Logger
	now      func() time.Time
}

// NewExportService wires the pipeline. runs may be nil to skip the run log.
func NewExportService(
	provider StatsProvider,
	repo leaguestats.Repository,
	runs exportrun.Repository,
	cfg ExportServiceConfig,
	logger *logging.Logger,
) (*ExportService, error) {
	if provider == nil || repo == nil {
		return nil, fmt.Errorf("%w: provider and repository are required", ErrInvalidInput)
	}
	if cfg.LeagueID <= 0 {
		return nil, fmt.Errorf("%w: league id must be greater than zero", ErrInvalidInput)
	}
	if cfg.Season <= 0 {
		return nil, fmt.Errorf("%w: season must be greater than zero", ErrInvalidInput)
	}
	cfg.Schema = strings.TrimSpace(cfg.Schema)
	if cfg.Schema == "" {
		cfg.Schema = "public"
	}
	if len(cfg.Jobs) == 0 {
		cfg.Jobs = DefaultExportJobs("epl_standings", "epl_top_scorers", "epl_top_assists")
	}
	seen := make(map[string]struct{}, len(cfg.Jobs))
	for _, job := range cfg.Jobs {
		if !job.Statistic.Valid() {
			return nil, fmt.Errorf("%w: unknown statistic %q", ErrInvalidInput, job.Statistic)
		}
		if strings.TrimSpace(job.Table) == "" {
			return nil, fmt.Errorf("%w: statistic %s has no destination table", ErrInvalidInput, job.Statistic)
		}
		if _, ok := seen[job.Table]; ok {
			return nil, fmt.Errorf("%w: destination table %s is used twice", ErrInvalidInput, job.Table)
		}
		seen[job.Table] = struct{}{}
	}
	if logger == nil {
		logger = logging.Default()
	}

	return &ExportService{
		provider: provider,
		repo:     repo,
		runs:     runs,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Run performs one full export. In per-table mode each job is fetched and
// written before the next starts and the first failure stops the run; tables
// already written stay written. In atomic-batch mode every job is fetched
// first and all tables are replaced in one transaction.
func (s *ExportService) Run(ctx context.Context) (ExportReport, error) {
	ctx, span := startExportSpan(ctx, "run",
		attribute.Int64("league.id", s.cfg.LeagueID),
		attribute.Int("league.season", s.cfg.Season),
		attribute.Bool("export.atomic_batch", s.cfg.AtomicBatch),
	)

	exportedAt := s.now().UTC().Truncate(time.Microsecond)
	report := ExportReport{StartedAt: exportedAt}

	var err error
	if s.cfg.AtomicBatch {
		err = s.runBatch(ctx, exportedAt, &report)
	} else {
		err = s.runSequential(ctx, exportedAt, &report)
	}
	report.FinishedAt = s.now().UTC()
	endExportSpan(span, err)

	if err != nil {
		return report, err
	}
	s.logger.InfoContext(ctx, "export run finished",
		"league_id", s.cfg.LeagueID,
		"season", s.cfg.Season,
		"tables", len(report.Tables),
		"duration", report.FinishedAt.Sub(report.StartedAt),
	)
	return report, nil
}

func (s *ExportService) runSequential(ctx context.Context, exportedAt time.Time, report *ExportReport) error {
	for _, job := range s.cfg.Jobs {
		snapshot, err := s.prepare(ctx, job, exportedAt)
		if err != nil {
			s.recordFailure(ctx, job, exportedAt, err)
			return err
		}

		rows, err := s.replaceTable(ctx, snapshot)
		if err != nil {
			stageErr := &StageError{Stage: StageExport, Statistic: job.Statistic.String(), Table: job.Table, Err: err}
			s.recordFailure(ctx, job, exportedAt, stageErr)
			return stageErr
		}
		s.recordSuccess(ctx, job, exportedAt, rows, report)
	}
	return nil
}

func (s *ExportService) runBatch(ctx context.Context, exportedAt time.Time, report *ExportReport) error {
	snapshots := make([]leaguestats.Snapshot, 0, len(s.cfg.Jobs))
	for _, job := range s.cfg.Jobs {
		snapshot, err := s.prepare(ctx, job, exportedAt)
		if err != nil {
			s.recordFailure(ctx, job, exportedAt, err)
			return err
		}
		snapshots = append(snapshots, snapshot)
	}

	writeCtx, span := startExportSpan(ctx, "replace_tables", attribute.Int("export.tables", len(snapshots)))
	written, err := s.repo.ReplaceTables(writeCtx, snapshots)
	if err == nil && len(written) != len(s.cfg.Jobs) {
		err = fmt.Errorf("%w: repository reported %d tables, want %d", ErrStorage, len(written), len(s.cfg.Jobs))
	}
	endExportSpan(span, err)
	if err != nil {
		return s.batchFailure(ctx, exportedAt, err)
	}

	for i, job := range s.cfg.Jobs {
		s.recordSuccess(ctx, job, exportedAt, written[i], report)
	}
	return nil
}

// batchFailure attributes a failed batch write to every job, since the
// transaction left none of the tables changed.
func (s *ExportService) batchFailure(ctx context.Context, exportedAt time.Time, err error) error {
	tables := make([]string, 0, len(s.cfg.Jobs))
	for _, job := range s.cfg.Jobs {
		tables = append(tables, job.Table)
	}
	stageErr := &StageError{Stage: StageExport, Statistic: "all", Table: strings.Join(tables, ","), Err: err}
	for _, job := range s.cfg.Jobs {
		s.recordFailure(ctx, job, exportedAt, stageErr)
	}
	return stageErr
}

// prepare fetches a job's statistic and stamps the export time on it.
func (s *ExportService) prepare(ctx context.Context, job ExportJob, exportedAt time.Time) (leaguestats.Snapshot, error) {
	fetchCtx, span := startExportSpan(ctx, "fetch", attribute.String("export.statistic", job.Statistic.String()))
	table, err := s.provider.FetchStatistic(fetchCtx, job.Statistic, s.cfg.LeagueID, s.cfg.Season)
	endExportSpan(span, err)
	if err != nil {
		return leaguestats.Snapshot{}, &StageError{Stage: StageFetch, Statistic: job.Statistic.String(), Table: job.Table, Err: err}
	}
	s.logger.DebugContext(ctx, "statistic fetched", "statistic", job.Statistic, "rows", table.Len())

	stamped, err := leaguestats.StampExportedAt(table, exportedAt)
	if err != nil {
		return leaguestats.Snapshot{}, &StageError{Stage: StageNormalize, Statistic: job.Statistic.String(), Table: job.Table, Err: err}
	}
	return leaguestats.Snapshot{TableName: job.Table, Table: stamped}, nil
}

func (s *ExportService) replaceTable(ctx context.Context, snapshot leaguestats.Snapshot) (int64, error) {
	ctx, span := startExportSpan(ctx, "replace_table", attribute.String("export.table", snapshot.TableName))
	rows, err := s.repo.ReplaceTable(ctx, snapshot)
	endExportSpan(span, err)
	return rows, err
}

func (s *ExportService) recordSuccess(ctx context.Context, job ExportJob, exportedAt time.Time, rows int64, report *ExportReport) {
	s.logger.InfoContext(ctx, "table exported",
		"statistic", job.Statistic,
		"schema", s.cfg.Schema,
		"table", job.Table,
		"rows", rows,
	)
	report.Tables = append(report.Tables, TableResult{
		Statistic:  job.Statistic,
		Schema:     s.cfg.Schema,
		Table:      job.Table,
		Rows:       rows,
		ExportedAt: exportedAt,
	})
	s.recordRun(ctx, s.newRun(job, exportedAt, rows, exportrun.StatusSucceeded, ""))
}

func (s *ExportService) recordFailure(ctx context.Context, job ExportJob, exportedAt time.Time, err error) {
	s.logger.ErrorContext(ctx, "export failed",
		"statistic", job.Statistic,
		"table", job.Table,
		"error", err,
	)
	s.recordRun(ctx, s.newRun(job, exportedAt, 0, exportrun.StatusFailed, err.Error()))
}

func (s *ExportService) newRun(job ExportJob, exportedAt time.Time, rows int64, status, message string) exportrun.Run {
	return exportrun.Run{
		Statistic:    job.Statistic.String(),
		TableSchema:  s.cfg.Schema,
		TableName:    job.Table,
		LeagueID:     s.cfg.LeagueID,
		Season:       s.cfg.Season,
		RowsWritten:  rows,
		Status:       status,
		ErrorMessage: message,
		ExportedAt:   exportedAt,
	}
}

// recordRun writes to the run log on a context that survives cancellation of
// the run itself; failures are only logged.
func (s *ExportService) recordRun(ctx context.Context, run exportrun.Run) {
	if s.runs == nil {
		return
	}
	logCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.runs.RecordRun(logCtx, run); err != nil {
		s.logger.WarnContext(ctx, "record export run failed",
			"statistic", run.Statistic,
			"table", run.TableName,
			"error", err,
		)
	}
}
