package postgres

import (
	"context"
	"fmt"
	"strings"

	crerr "github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/riskibarqy/league-snapshot/internal/domain/leaguestats"
	qb "github.com/riskibarqy/league-snapshot/internal/platform/querybuilder"
	"github.com/riskibarqy/league-snapshot/internal/usecase"
)

type ReplaceStrategy string

const (
	// StrategyDrop drops and recreates the destination inside the transaction.
	StrategyDrop ReplaceStrategy = "drop"
	// StrategySwap fills a staging table and renames it over the destination.
	StrategySwap ReplaceStrategy = "swap"
)

type BulkMode string

const (
	BulkModeCopy   BulkMode = "copy"
	BulkModeInsert BulkMode = "insert"
)

const (
	defaultSchema          = "public"
	defaultInsertBatchSize = 500

	stagingSuffix  = "__staging"
	previousSuffix = "__previous"
)

type SnapshotRepositoryConfig struct {
	Schema          string
	Strategy        ReplaceStrategy
	BulkMode        BulkMode
	InsertBatchSize int
}

// SnapshotRepository replaces whole destination tables with a fresh snapshot.
// PostgreSQL DDL is transactional, so other sessions see either the previous
// table or the complete new one.
type SnapshotRepository struct {
	db  *sqlx.DB
	cfg SnapshotRepositoryConfig
}

func NewSnapshotRepository(db *sqlx.DB, cfg SnapshotRepositoryConfig) (*SnapshotRepository, error) {
	cfg.Schema = strings.TrimSpace(cfg.Schema)
	if cfg.Schema == "" {
		cfg.Schema = defaultSchema
	}
	if err := validateIdentifier("schema", cfg.Schema); err != nil {
		return nil, err
	}

	switch cfg.Strategy {
	case "":
		cfg.Strategy = StrategyDrop
	case StrategyDrop, StrategySwap:
	default:
		return nil, crerr.Wrapf(usecase.ErrInvalidInput, "unknown replace strategy %q", cfg.Strategy)
	}

	switch cfg.BulkMode {
	case "":
		cfg.BulkMode = BulkModeCopy
	case BulkModeCopy, BulkModeInsert:
	default:
		return nil, crerr.Wrapf(usecase.ErrInvalidInput, "unknown bulk mode %q", cfg.BulkMode)
	}

	if cfg.InsertBatchSize <= 0 {
		cfg.InsertBatchSize = defaultInsertBatchSize
	}

	return &SnapshotRepository{db: db, cfg: cfg}, nil
}

func (r *SnapshotRepository) Schema() string {
	return r.cfg.Schema
}

func (r *SnapshotRepository) EnsureSchema(ctx context.Context) error {
	query, err := qb.CreateSchemaIfNotExists(pq.QuoteIdentifier(r.cfg.Schema))
	if err != nil {
		return fmt.Errorf("build create schema query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return storageError(fmt.Sprintf("create schema %s", r.cfg.Schema), err)
	}
	return nil
}

// ReplaceTable swaps the destination for snapshot in one transaction and
// returns the number of rows written.
func (r *SnapshotRepository) ReplaceTable(ctx context.Context, snapshot leaguestats.Snapshot) (int64, error) {
	written, err := r.ReplaceTables(ctx, []leaguestats.Snapshot{snapshot})
	if err != nil {
		return 0, err
	}
	return written[0], nil
}

// ReplaceTables replaces every destination in a single transaction; either all
// tables change or none do.
func (r *SnapshotRepository) ReplaceTables(ctx context.Context, snapshots []leaguestats.Snapshot) ([]int64, error) {
	if len(snapshots) == 0 {
		return nil, nil
	}

	seen := make(map[string]struct{}, len(snapshots))
	for _, snapshot := range snapshots {
		if err := r.validateSnapshot(snapshot); err != nil {
			return nil, err
		}
		if _, ok := seen[snapshot.TableName]; ok {
			return nil, fmt.Errorf("%w: table %s appears twice in one batch", usecase.ErrInvalidInput, snapshot.TableName)
		}
		seen[snapshot.TableName] = struct{}{}
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, storageError("begin tx replace tables", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	written := make([]int64, 0, len(snapshots))
	for _, snapshot := range snapshots {
		n, err := r.replaceInTx(ctx, tx, snapshot)
		if err != nil {
			return nil, err
		}
		written = append(written, n)
	}

	if err := tx.Commit(); err != nil {
		return nil, storageError("commit replace tables tx", err)
	}
	return written, nil
}

func (r *SnapshotRepository) validateSnapshot(snapshot leaguestats.Snapshot) error {
	if err := validateIdentifier("table", snapshot.TableName); err != nil {
		return err
	}
	if r.cfg.Strategy == StrategySwap {
		if err := validateIdentifier("table", snapshot.TableName+previousSuffix); err != nil {
			return err
		}
	}
	for _, col := range snapshot.Table.Columns {
		if err := validateIdentifier("column", col.Name); err != nil {
			return err
		}
	}
	if err := snapshot.Table.Validate(); err != nil {
		return fmt.Errorf("%w: table %s: %v", usecase.ErrInvalidInput, snapshot.TableName, err)
	}
	return nil
}

func (r *SnapshotRepository) replaceInTx(ctx context.Context, tx *sqlx.Tx, snapshot leaguestats.Snapshot) (int64, error) {
	if r.cfg.Strategy == StrategySwap {
		return r.swapInTx(ctx, tx, snapshot)
	}

	if err := r.dropTable(ctx, tx, snapshot.TableName); err != nil {
		return 0, err
	}
	if err := r.createTable(ctx, tx, snapshot.TableName, snapshot.Table.Columns); err != nil {
		return 0, err
	}
	return r.load(ctx, tx, snapshot.TableName, snapshot.Table)
}

func (r *SnapshotRepository) swapInTx(ctx context.Context, tx *sqlx.Tx, snapshot leaguestats.Snapshot) (int64, error) {
	target := snapshot.TableName
	staging := target + stagingSuffix
	previous := target + previousSuffix

	if err := r.dropTable(ctx, tx, staging); err != nil {
		return 0, err
	}
	if err := r.createTable(ctx, tx, staging, snapshot.Table.Columns); err != nil {
		return 0, err
	}
	written, err := r.load(ctx, tx, staging, snapshot.Table)
	if err != nil {
		return 0, err
	}
	if err := r.dropTable(ctx, tx, previous); err != nil {
		return 0, err
	}
	if err := r.renameTable(ctx, tx, target, previous); err != nil {
		return 0, err
	}
	if err := r.renameTable(ctx, tx, staging, target); err != nil {
		return 0, err
	}
	if err := r.dropTable(ctx, tx, previous); err != nil {
		return 0, err
	}
	return written, nil
}

func (r *SnapshotRepository) dropTable(ctx context.Context, tx *sqlx.Tx, table string) error {
	query, err := qb.DropTableIfExists(qualifiedName(r.cfg.Schema, table))
	if err != nil {
		return fmt.Errorf("build drop table query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return storageError(fmt.Sprintf("drop table %s.%s", r.cfg.Schema, table), err)
	}
	return nil
}

func (r *SnapshotRepository) createTable(ctx context.Context, tx *sqlx.Tx, table string, columns []leaguestats.Column) error {
	query, err := createTableSQL(r.cfg.Schema, table, columns)
	if err != nil {
		return fmt.Errorf("build create table query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return storageError(fmt.Sprintf("create table %s.%s", r.cfg.Schema, table), err)
	}
	return nil
}

func (r *SnapshotRepository) renameTable(ctx context.Context, tx *sqlx.Tx, from, to string) error {
	query, err := qb.RenameTableIfExists(qualifiedName(r.cfg.Schema, from), pq.QuoteIdentifier(to))
	if err != nil {
		return fmt.Errorf("build rename table query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return storageError(fmt.Sprintf("rename table %s.%s to %s", r.cfg.Schema, from, to), err)
	}
	return nil
}

func (r *SnapshotRepository) load(ctx context.Context, tx *sqlx.Tx, table string, data leaguestats.Table) (int64, error) {
	if data.Len() == 0 {
		return 0, nil
	}
	if r.cfg.BulkMode == BulkModeInsert {
		return r.insertRows(ctx, tx, table, data)
	}
	return r.copyRows(ctx, tx, table, data)
}

func (r *SnapshotRepository) copyRows(ctx context.Context, tx *sqlx.Tx, table string, data leaguestats.Table) (int64, error) {
	names := data.ColumnNames()
	stmt, err := tx.PrepareContext(ctx, pq.CopyInSchema(r.cfg.Schema, table, names...))
	if err != nil {
		return 0, storageError(fmt.Sprintf("prepare copy into %s.%s", r.cfg.Schema, table), err)
	}
	defer func() {
		_ = stmt.Close()
	}()

	for i, row := range data.Rows {
		if _, err := stmt.ExecContext(ctx, rowValues(names, row)...); err != nil {
			return 0, storageError(fmt.Sprintf("copy row %d into %s.%s", i, r.cfg.Schema, table), err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		return 0, storageError(fmt.Sprintf("flush copy into %s.%s", r.cfg.Schema, table), err)
	}
	if err := stmt.Close(); err != nil {
		return 0, storageError(fmt.Sprintf("close copy into %s.%s", r.cfg.Schema, table), err)
	}
	return int64(data.Len()), nil
}

func (r *SnapshotRepository) insertRows(ctx context.Context, tx *sqlx.Tx, table string, data leaguestats.Table) (int64, error) {
	names := data.ColumnNames()
	quoted := make([]string, 0, len(names))
	for _, name := range names {
		quoted = append(quoted, pq.QuoteIdentifier(name))
	}

	batchSize := r.cfg.InsertBatchSize
	if limit := qb.MaxBindParameters / max(len(names), 1); batchSize > limit {
		batchSize = limit
	}

	var written int64
	for start := 0; start < data.Len(); start += batchSize {
		end := min(start+batchSize, data.Len())

		builder := qb.InsertInto(qualifiedName(r.cfg.Schema, table)).Columns(quoted...)
		for _, row := range data.Rows[start:end] {
			builder.Values(rowValues(names, row)...)
		}
		query, args, err := builder.ToSQL()
		if err != nil {
			return 0, fmt.Errorf("build insert rows query: %w", err)
		}

		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return 0, storageError(fmt.Sprintf("insert rows %d-%d into %s.%s", start, end-1, r.cfg.Schema, table), err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			affected = int64(end - start)
		}
		written += affected
	}
	return written, nil
}

func createTableSQL(schema, table string, columns []leaguestats.Column) (string, error) {
	builder := qb.CreateTable(qualifiedName(schema, table))
	for _, col := range columns {
		builder.Column(pq.QuoteIdentifier(col.Name), columnSQLType(col.Type))
	}
	return builder.ToSQL()
}

func rowValues(columns []string, row leaguestats.Record) []any {
	values := make([]any, len(columns))
	for i, name := range columns {
		values[i] = row[name]
	}
	return values
}
