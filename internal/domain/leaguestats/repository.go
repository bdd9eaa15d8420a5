package leaguestats

import "context"

type Repository interface {
	ReplaceTable(ctx context.Context, snapshot Snapshot) (int64, error)
	ReplaceTables(ctx context.Context, snapshots []Snapshot) ([]int64, error)
}
