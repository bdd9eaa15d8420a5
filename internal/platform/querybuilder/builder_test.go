package querybuilder

import (
	"strings"
	"testing"
	"time"
)

func TestInsertBuilder_MultiRow(t *testing.T) {
	query, args, err := InsertInto(`"public"."epl_top_scorers"`).
		Columns("player", "goals").
		Values("M. Salah", int64(29)).
		Values("A. Isak", int64(23)).
		ToSQL()
	if err != nil {
		t.Fatalf("build insert query: %v", err)
	}

	wantQuery := `INSERT INTO "public"."epl_top_scorers" (player, goals) VALUES ($1, $2), ($3, $4)`
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 4 || args[0] != "M. Salah" || args[3] != int64(23) {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestInsertBuilder_RejectsRaggedRowsAndOversizedBatches(t *testing.T) {
	_, _, err := InsertInto("t").Columns("a", "b").Values(1).ToSQL()
	if err == nil || !strings.Contains(err.Error(), "row 0") {
		t.Fatalf("expected ragged row error, got %v", err)
	}

	b := InsertInto("t").Columns("a", "b", "c")
	for i := 0; i <= MaxBindParameters/3; i++ {
		b.Values(i, i, i)
	}
	if _, _, err := b.ToSQL(); err == nil {
		t.Fatalf("expected bind parameter limit error")
	}
}

func TestCreateTableBuilder(t *testing.T) {
	query, err := CreateTable(`"public"."epl_standings"`).
		Column(`"rank"`, "BIGINT").
		Column(`"team"`, "TEXT").
		Column(`"exported_at"`, "TIMESTAMP").
		ToSQL()
	if err != nil {
		t.Fatalf("build create table: %v", err)
	}

	want := `CREATE TABLE "public"."epl_standings" ("rank" BIGINT, "team" TEXT, "exported_at" TIMESTAMP)`
	if query != want {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", want, query)
	}

	if _, err := CreateTable("t").ToSQL(); err == nil {
		t.Fatalf("expected error without columns")
	}
}

func TestDDLStatements(t *testing.T) {
	drop, err := DropTableIfExists(`"s"."t"`)
	if err != nil || drop != `DROP TABLE IF EXISTS "s"."t"` {
		t.Fatalf("unexpected drop: %q err=%v", drop, err)
	}

	rename, err := RenameTableIfExists(`"s"."t__staging"`, `"t"`)
	if err != nil || rename != `ALTER TABLE IF EXISTS "s"."t__staging" RENAME TO "t"` {
		t.Fatalf("unexpected rename: %q err=%v", rename, err)
	}

	schema, err := CreateSchemaIfNotExists(`"reporting"`)
	if err != nil || schema != `CREATE SCHEMA IF NOT EXISTS "reporting"` {
		t.Fatalf("unexpected schema: %q err=%v", schema, err)
	}

	if _, err := DropTableIfExists(" "); err == nil {
		t.Fatalf("expected error for empty table")
	}
}

func TestInsertModel_SkipsReadonlyColumns(t *testing.T) {
	type row struct {
		ID        int64     `db:"id,readonly"`
		Statistic string    `db:"statistic"`
		Rows      int64     `db:"rows_written"`
		CreatedAt time.Time `db:"created_at,readonly"`
		note      string
	}

	query, args, err := InsertModel("export_runs", row{ID: 7, Statistic: "standings", Rows: 20, note: "x"})
	if err != nil {
		t.Fatalf("build insert model: %v", err)
	}

	want := "INSERT INTO export_runs (statistic, rows_written) VALUES ($1, $2)"
	if query != want {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", want, query)
	}
	if len(args) != 2 || args[0] != "standings" || args[1] != int64(20) {
		t.Fatalf("unexpected args: %+v", args)
	}

	if _, _, err := InsertModel("t", (*row)(nil)); err == nil {
		t.Fatalf("expected error for nil model")
	}
}
