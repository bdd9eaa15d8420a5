package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/riskibarqy/league-snapshot/internal/platform/logging"
	"github.com/robfig/cron/v3"
)

// Schedule runs one export per tick of the cron spec until ctx is cancelled.
// A failed tick is logged and the next tick runs normally. Ticks never overlap.
func (r *Runner) Schedule(ctx context.Context, spec string, out io.Writer) error {
	cronLog := cronLogger{logger: r.logger}
	scheduler := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(cronLog),
		cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
	)

	_, err := scheduler.AddFunc(spec, func() {
		if ctx.Err() != nil {
			return
		}
		started := time.Now()
		if err := r.RunOnce(ctx, out); err != nil {
			r.logger.ErrorContext(ctx, "scheduled export failed", "error", err, "duration", time.Since(started))
			return
		}
		r.logger.InfoContext(ctx, "scheduled export finished", "duration", time.Since(started))
	})
	if err != nil {
		return fmt.Errorf("parse schedule %q: %w", spec, err)
	}

	scheduler.Start()
	r.logger.InfoContext(ctx, "export scheduler started", "schedule", spec)

	<-ctx.Done()
	r.logger.Info("export scheduler stopping")
	<-scheduler.Stop().Done()
	return nil
}

type cronLogger struct {
	logger *logging.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
