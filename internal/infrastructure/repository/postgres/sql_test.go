package postgres

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/lib/pq"
	"github.com/riskibarqy/league-snapshot/internal/domain/leaguestats"
	"github.com/riskibarqy/league-snapshot/internal/usecase"
)

func TestValidateIdentifier(t *testing.T) {
	t.Run("accepts plain names", func(t *testing.T) {
		for _, name := range []string{"epl_standings", "_tmp", "Reporting2024"} {
			if err := validateIdentifier("table", name); err != nil {
				t.Fatalf("expected %q to be valid: %v", name, err)
			}
		}
	})

	t.Run("rejects unsafe names", func(t *testing.T) {
		for _, name := range []string{"", "1table", "epl-standings", `x"; DROP TABLE y; --`, "public.epl"} {
			err := validateIdentifier("table", name)
			if !errors.Is(err, usecase.ErrInvalidInput) {
				t.Fatalf("expected invalid input for %q, got %v", name, err)
			}
		}
	})

	t.Run("rejects names over the identifier limit", func(t *testing.T) {
		err := validateIdentifier("table", strings.Repeat("a", 64))
		if !errors.Is(err, usecase.ErrInvalidInput) {
			t.Fatalf("expected invalid input, got %v", err)
		}
	})
}

func TestCreateTableSQL_MapsColumnTypes(t *testing.T) {
	columns := []leaguestats.Column{
		{Name: "player", Type: leaguestats.ColumnTypeText},
		{Name: "goals", Type: leaguestats.ColumnTypeInteger},
		{Name: "xg", Type: leaguestats.ColumnTypeReal},
		{Name: "exported_at", Type: leaguestats.ColumnTypeTimestamp},
	}

	got, err := createTableSQL("public", "epl_top_scorers", columns)
	if err != nil {
		t.Fatalf("create table sql: %v", err)
	}

	want := `CREATE TABLE "public"."epl_top_scorers" ("player" TEXT, "goals" BIGINT, "xg" DOUBLE PRECISION, "exported_at" TIMESTAMP)`
	if got != want {
		t.Fatalf("unexpected ddl:\nwant: %s\ngot:  %s", want, got)
	}
}

func TestStorageError_KeepsDriverError(t *testing.T) {
	driverErr := &pq.Error{Code: "42P01", Message: `relation "x" does not exist`}
	err := storageError("drop table public.x", driverErr)

	if !errors.Is(err, usecase.ErrStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != "42P01" {
		t.Fatalf("expected pq error in chain, got %v", err)
	}
	if !strings.Contains(err.Error(), "undefined_table") {
		t.Fatalf("expected condition name in message, got %v", err)
	}

	plain := storageError("begin tx", errors.New("connection refused"))
	if !errors.Is(plain, usecase.ErrStorage) || !strings.Contains(plain.Error(), "connection refused") {
		t.Fatalf("unexpected plain storage error: %v", plain)
	}
}

func TestNewSnapshotRepository_Config(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		repo, err := NewSnapshotRepository(nil, SnapshotRepositoryConfig{})
		if err != nil {
			t.Fatalf("new repository: %v", err)
		}
		if repo.cfg.Schema != "public" || repo.cfg.Strategy != StrategyDrop || repo.cfg.BulkMode != BulkModeCopy || repo.cfg.InsertBatchSize != 500 {
			t.Fatalf("unexpected defaults: %+v", repo.cfg)
		}
	})

	t.Run("rejects unknown strategy", func(t *testing.T) {
		_, err := NewSnapshotRepository(nil, SnapshotRepositoryConfig{Strategy: "merge"})
		if !errors.Is(err, usecase.ErrInvalidInput) {
			t.Fatalf("expected invalid input, got %v", err)
		}
	})

	t.Run("rejects unknown bulk mode", func(t *testing.T) {
		_, err := NewSnapshotRepository(nil, SnapshotRepositoryConfig{BulkMode: "csv"})
		if !errors.Is(err, usecase.ErrInvalidInput) {
			t.Fatalf("expected invalid input, got %v", err)
		}
	})

	t.Run("rejects unsafe schema", func(t *testing.T) {
		_, err := NewSnapshotRepository(nil, SnapshotRepositoryConfig{Schema: "public;drop"})
		if !errors.Is(err, usecase.ErrInvalidInput) {
			t.Fatalf("expected invalid input, got %v", err)
		}
	})
}

func TestReplaceTables_ValidatesBeforeTouchingDatabase(t *testing.T) {
	repo, err := NewSnapshotRepository(nil, SnapshotRepositoryConfig{Strategy: StrategySwap})
	if err != nil {
		t.Fatalf("new repository: %v", err)
	}

	valid := leaguestats.NewTable(leaguestats.StatisticTopScorers)

	ragged := leaguestats.NewTable(leaguestats.StatisticTopScorers)
	ragged.Rows = append(ragged.Rows, leaguestats.Record{leaguestats.ColumnPlayer: "M. Salah"})

	tests := []struct {
		name      string
		snapshots []leaguestats.Snapshot
	}{
		{name: "bad table name", snapshots: []leaguestats.Snapshot{{TableName: "epl top", Table: valid}}},
		{name: "swap suffix overflows identifier", snapshots: []leaguestats.Snapshot{{TableName: strings.Repeat("t", 60), Table: valid}}},
		{name: "non uniform rows", snapshots: []leaguestats.Snapshot{{TableName: "epl_top_scorers", Table: ragged}}},
		{name: "duplicate destination", snapshots: []leaguestats.Snapshot{
			{TableName: "epl_top_scorers", Table: valid},
			{TableName: "epl_top_scorers", Table: valid},
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := repo.ReplaceTables(context.Background(), tc.snapshots)
			if !errors.Is(err, usecase.ErrInvalidInput) {
				t.Fatalf("expected invalid input, got %v", err)
			}
		})
	}
}

func TestRowValues_FollowsColumnOrder(t *testing.T) {
	row := leaguestats.Record{"b": int64(2), "a": "x", "c": nil}
	got := rowValues([]string{"a", "b", "c"}, row)
	if len(got) != 3 || got[0] != "x" || got[1] != int64(2) || got[2] != nil {
		t.Fatalf("unexpected values: %#v", got)
	}
}
