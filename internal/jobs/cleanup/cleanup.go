package cleanup

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

type SessionPurger interface {
	DeleteStale(ctx context.Context, cutoff time.Time) (int64, error)
}

// Job purges operator sessions that were revoked or expired longer ago
// than the retention window.
type Job struct {
	sessions  SessionPurger
	retention time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

func NewOperatorSessionCleanupJob(sessions SessionPurger, retention time.Duration, logger *zap.Logger) *Job {
	if retention <= 0 {
		retention = 7 * 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Job{
		sessions:  sessions,
		retention: retention,
		now:       time.Now,
		logger:    logger,
	}
}

func (j *Job) Name() string {
	return "operator-session-cleanup"
}

func (j *Job) Run(ctx context.Context) error {
	if j.sessions == nil {
		return nil
	}

	cutoff := j.now().UTC().Add(-j.retention)
	rows, err := j.sessions.DeleteStale(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("delete stale operator sessions: %w", err)
	}
	if rows > 0 {
		j.logger.Info("operator session cleanup completed", zap.Int64("deleted", rows), zap.Time("cutoff", cutoff))
	}
	return nil
}
