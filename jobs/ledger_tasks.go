package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/madaris-app/madaris/internal/jobs"
	"github.com/madaris-app/madaris/internal/ledger"
)

const (
	// TaskTypeOverdueSweep re-derives the status of tuition accounts
	// whose due date has passed. Scheduled nightly.
	TaskTypeOverdueSweep = "ledger:overdue_sweep"
	// TaskTypeReportWarmup precomputes the monthly collection report so
	// the first dashboard hit of the day is served from cache.
	TaskTypeReportWarmup = "ledger:report_warmup"
)

// NewOverdueSweepTask constructs the nightly sweep task.
func NewOverdueSweepTask() *asynq.Task {
	return asynq.NewTask(TaskTypeOverdueSweep, nil)
}

// NewReportWarmupTask constructs the report warmup task.
func NewReportWarmupTask() *asynq.Task {
	return asynq.NewTask(TaskTypeReportWarmup, nil)
}

// NewOverdueSweepHandler processes TaskTypeOverdueSweep tasks.
func NewOverdueSweepHandler(svc *ledger.Service, metrics *jobmetrics.Metrics, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		tracker := metrics.Track(TaskTypeOverdueSweep)
		flipped, err := svc.SweepOverdue(ctx)
		if err != nil {
			return tracker.End(err)
		}
		if logger != nil {
			logger.Info("overdue sweep finished",
				slog.String("job", TaskTypeOverdueSweep), slog.Int("flipped", flipped))
		}
		return tracker.End(nil)
	}
}

// NewReportWarmupHandler processes TaskTypeReportWarmup tasks.
func NewReportWarmupHandler(svc *ledger.Service, metrics *jobmetrics.Metrics, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		tracker := metrics.Track(TaskTypeReportWarmup)
		rows, err := svc.MonthlyReport(ctx)
		if err != nil {
			return tracker.End(err)
		}
		if logger != nil {
			logger.Info("report warmup finished",
				slog.String("job", TaskTypeReportWarmup), slog.Int("rows", len(rows)))
		}
		return tracker.End(nil)
	}
}
