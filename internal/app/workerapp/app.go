package workerapp

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/valentina-app/backend/internal/app"
	"github.com/valentina-app/backend/internal/config"
	"github.com/valentina-app/backend/internal/jobs"
	"github.com/valentina-app/backend/internal/jobs/cleanup"
	"github.com/valentina-app/backend/internal/jobs/reveal"
	pgrepo "github.com/valentina-app/backend/internal/repo/postgres"
	notifysvc "github.com/valentina-app/backend/internal/services/notifications"
)

// App runs the periodic jobs: reveal announcements and operator session
// cleanup. It serves no HTTP traffic.
type App struct {
	cfg           config.Config
	logger        *zap.Logger
	postgres      *pgxpool.Pool
	notifications *notifysvc.Service
	scheduler     *cron.Cron
	revealJob     *reveal.Job
}

func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	pool, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxConns)
	if err != nil {
		return nil, fmt.Errorf("init postgres for worker: %w", err)
	}

	notifications, err := app.NewNotifications(cfg, logger)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init notifications for worker: %w", err)
	}

	matchRepo := pgrepo.NewMatchRepo(pool)
	profileRepo := pgrepo.NewProfileRepo(pool)
	operatorSessionRepo := pgrepo.NewOperatorSessionRepo(pool)

	revealJob := reveal.NewJob(matchRepo, profileRepo, notifications, cfg.App.RevealAt, cfg.Jobs.RevealBatch, logger)
	cleanupJob := cleanup.NewOperatorSessionCleanupJob(operatorSessionRepo, cfg.Operators.SessionRetain, logger)

	scheduler, err := jobs.NewScheduler([]jobs.Entry{
		{Spec: cfg.Jobs.RevealNotifier, Job: revealJob, Timeout: 10 * time.Minute},
		{Spec: cfg.Jobs.SessionCleanup, Job: cleanupJob},
	}, logger)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init scheduler: %w", err)
	}

	return &App{
		cfg:           cfg,
		logger:        logger,
		postgres:      pool,
		notifications: notifications,
		scheduler:     scheduler,
		revealJob:     revealJob,
	}, nil
}

// Run starts the scheduler and blocks until ctx is cancelled. A worker
// started after the reveal time runs one announcement pass immediately.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("worker started",
		zap.Time("reveal_at", a.cfg.App.RevealAt),
		zap.String("reveal_schedule", a.cfg.Jobs.RevealNotifier),
		zap.String("cleanup_schedule", a.cfg.Jobs.SessionCleanup),
	)

	if err := a.revealJob.Run(ctx); err != nil {
		a.logger.Warn("initial reveal pass failed", zap.Error(err))
	}

	a.scheduler.Start()
	<-ctx.Done()
	a.logger.Info("worker stopping")
	return nil
}

func (a *App) Shutdown(ctx context.Context) error {
	stopped := a.scheduler.Stop()
	select {
	case <-stopped.Done():
	case <-ctx.Done():
		a.logger.Warn("scheduler jobs still running at shutdown deadline")
	}

	done := make(chan struct{})
	go func() {
		a.notifications.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		a.logger.Warn("pending notifications dropped at shutdown")
	}

	a.postgres.Close()
	return nil
}
