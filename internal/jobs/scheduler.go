package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/valentina-app/backend/internal/metrics"
)

type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Entry binds a job to a cron spec. Specs accept an optional seconds field
// and descriptors such as "@every 5m" or "@hourly".
type Entry struct {
	Spec    string
	Job     Job
	Timeout time.Duration
}

func NewScheduler(entries []Entry, logger *zap.Logger) (*cron.Cron, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	c := cron.New(
		cron.WithParser(cron.NewParser(cron.SecondOptional|cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow|cron.Descriptor)),
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	for _, e := range entries {
		if e.Job == nil || e.Spec == "" {
			continue
		}
		if _, err := c.AddFunc(e.Spec, runner(e, logger)); err != nil {
			logger.Error("register scheduler job failed",
				zap.String("job", e.Job.Name()),
				zap.String("spec", e.Spec),
				zap.Error(err),
			)
			return nil, err
		}
	}
	return c, nil
}

func runner(e Entry, logger *zap.Logger) func() {
	timeout := e.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	name := e.Job.Name()

	return func() {
		defer recoverJobPanic(name, logger)

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		start := time.Now()
		err := e.Job.Run(ctx)
		metrics.IncJobRun(name, err)
		if err != nil {
			logger.Error("scheduler job failed", zap.String("job", name), zap.Error(err))
			return
		}
		logger.Debug("scheduler job finished", zap.String("job", name), zap.Duration("cost", time.Since(start)))
	}
}

func recoverJobPanic(jobName string, logger *zap.Logger) {
	if recovered := recover(); recovered != nil {
		metrics.IncJobRun(jobName, errPanic)
		logger.Error("scheduler job panic recovered",
			zap.String("job", jobName),
			zap.Any("panic", recovered),
		)
	}
}
