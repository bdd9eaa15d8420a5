//go:build integration

package app

import (
	"context"
	"testing"
	"time"

	"github.com/riskibarqy/league-snapshot/internal/config"
	"github.com/riskibarqy/league-snapshot/internal/domain/leaguestats"
	"github.com/riskibarqy/league-snapshot/internal/infrastructure/repository/postgres"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

func TestOpenDatabase_CopyLoadThroughTracedHandle(t *testing.T) {
	ctx := context.Background()

	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("league_snapshot"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		tcpostgres.BasicWaitStrategies(),
	)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(ctr); err != nil {
			t.Logf("terminate postgres container: %v", err)
		}
	})
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	cfg := config.Database{URL: dsn, Driver: "postgres", Schema: "reporting", DisablePreparedBinary: true}
	require.Contains(t, DatabaseURL(cfg), "disable_prepared_binary_result=yes")

	db, err := OpenDatabase(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo, err := postgres.NewSnapshotRepository(db, postgres.SnapshotRepositoryConfig{Schema: cfg.Schema})
	require.NoError(t, err)
	require.NoError(t, repo.EnsureSchema(ctx))

	table := leaguestats.NewTable(leaguestats.StatisticTopScorers)
	for i := int64(1); i <= 20; i++ {
		require.NoError(t, table.Append(leaguestats.Record{
			leaguestats.ColumnPlayer:      "Player",
			leaguestats.ColumnTeam:        "Team",
			leaguestats.ColumnGoals:       30 - i,
			leaguestats.ColumnAppearances: int64(38),
		}))
	}
	stamped, err := leaguestats.StampExportedAt(table, time.Date(2025, 5, 25, 16, 30, 0, 0, time.UTC))
	require.NoError(t, err)

	for range 2 {
		n, err := repo.ReplaceTable(ctx, leaguestats.Snapshot{TableName: "epl_top_scorers", Table: stamped})
		require.NoError(t, err)
		require.EqualValues(t, 20, n)
	}

	var count int64
	require.NoError(t, db.GetContext(ctx, &count, `SELECT COUNT(*) FROM "reporting"."epl_top_scorers"`))
	require.EqualValues(t, 20, count)

	var maxGoals int64
	require.NoError(t, db.GetContext(ctx, &maxGoals, `SELECT MAX(goals) FROM "reporting"."epl_top_scorers"`))
	require.EqualValues(t, 29, maxGoals)
}
