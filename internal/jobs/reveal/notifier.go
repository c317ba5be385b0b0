package reveal

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/valentina-app/backend/internal/domain/model"
)

type MatchClaimer interface {
	ClaimRevealBatch(ctx context.Context, limit int, now time.Time) ([]model.Match, error)
}

type ProfileReader interface {
	GetMany(ctx context.Context, ids []string) (map[string]model.Profile, error)
}

type MatchNotifier interface {
	NotifyMatch(ctx context.Context, recipient, counterpart model.Profile) error
}

// Job announces regular matches by email once the reveal time has passed.
// Each match is claimed before sending, so a match is announced at most
// once even with several workers running.
type Job struct {
	matches  MatchClaimer
	profiles ProfileReader
	notifier MatchNotifier
	revealAt time.Time
	batch    int
	now      func() time.Time
	logger   *zap.Logger
}

func NewJob(matches MatchClaimer, profiles ProfileReader, notifier MatchNotifier, revealAt time.Time, batch int, logger *zap.Logger) *Job {
	if batch <= 0 {
		batch = 100
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Job{
		matches:  matches,
		profiles: profiles,
		notifier: notifier,
		revealAt: revealAt,
		batch:    batch,
		now:      time.Now,
		logger:   logger,
	}
}

func (j *Job) Name() string {
	return "reveal-notifier"
}

func (j *Job) Run(ctx context.Context) error {
	if j.now().Before(j.revealAt) {
		return nil
	}

	total, failed := 0, 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		claimed, err := j.matches.ClaimRevealBatch(ctx, j.batch, j.now().UTC())
		if err != nil {
			return fmt.Errorf("claim reveal batch: %w", err)
		}
		if len(claimed) == 0 {
			break
		}

		failed += j.announce(ctx, claimed)
		total += len(claimed)
		if len(claimed) < j.batch {
			break
		}
	}

	if total > 0 {
		j.logger.Info("reveal notifications sent", zap.Int("matches", total), zap.Int("failed_sends", failed))
	}
	return nil
}

func (j *Job) announce(ctx context.Context, claimed []model.Match) int {
	ids := make([]string, 0, len(claimed)*2)
	for _, m := range claimed {
		ids = append(ids, m.MaleUserID, m.FemaleUserID)
	}
	profiles, err := j.profiles.GetMany(ctx, ids)
	if err != nil {
		j.logger.Error("load profiles for reveal batch failed", zap.Int("matches", len(claimed)), zap.Error(err))
		return len(claimed) * 2
	}

	failed := 0
	for _, m := range claimed {
		male, okM := profiles[m.MaleUserID]
		female, okF := profiles[m.FemaleUserID]
		if !okM || !okF {
			continue
		}
		if err := j.notifier.NotifyMatch(ctx, male, female); err != nil {
			failed++
		}
		if err := j.notifier.NotifyMatch(ctx, female, male); err != nil {
			failed++
		}
	}
	return failed
}
