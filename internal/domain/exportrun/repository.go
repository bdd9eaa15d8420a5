package exportrun

import "context"

type Repository interface {
	RecordRun(ctx context.Context, run Run) error
}
