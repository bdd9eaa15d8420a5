package postgres

import (
	"context"
	"fmt"
	"strings"

	crerr "github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/league-snapshot/internal/domain/exportrun"
	qb "github.com/riskibarqy/league-snapshot/internal/platform/querybuilder"
)

const exportRunsTable = "export_runs"

type ExportRunRepository struct {
	db *sqlx.DB
}

func NewExportRunRepository(db *sqlx.DB) *ExportRunRepository {
	return &ExportRunRepository{db: db}
}

func (r *ExportRunRepository) RecordRun(ctx context.Context, run exportrun.Run) error {
	insertModel := exportRunTableModel{
		Statistic:    strings.TrimSpace(run.Statistic),
		TableSchema:  strings.TrimSpace(run.TableSchema),
		TableName:    strings.TrimSpace(run.TableName),
		LeagueID:     run.LeagueID,
		Season:       run.Season,
		RowsWritten:  run.RowsWritten,
		Status:       run.Status,
		ErrorMessage: run.ErrorMessage,
		ExportedAt:   run.ExportedAt.UTC(),
	}
	query, args, err := qb.InsertModel(exportRunsTable, insertModel)
	if err != nil {
		return crerr.Wrap(err, "build insert export run query")
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return storageError(fmt.Sprintf("insert export run statistic=%s", run.Statistic), err)
	}
	return nil
}
