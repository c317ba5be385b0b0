package cleanup

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakePurger struct {
	cutoff time.Time
	rows   int64
	err    error
}

func (f *fakePurger) DeleteStale(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return f.rows, f.err
}

func TestRunUsesRetentionCutoff(t *testing.T) {
	now := time.Date(2027, time.February, 15, 3, 0, 0, 0, time.UTC)
	purger := &fakePurger{rows: 4}

	job := NewOperatorSessionCleanupJob(purger, 48*time.Hour, nil)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run cleanup job: %v", err)
	}
	if want := now.Add(-48 * time.Hour); !purger.cutoff.Equal(want) {
		t.Fatalf("unexpected cutoff: got %s want %s", purger.cutoff, want)
	}
}

func TestRunWrapsStoreError(t *testing.T) {
	purger := &fakePurger{err: errors.New("connection refused")}
	job := NewOperatorSessionCleanupJob(purger, 0, nil)

	if err := job.Run(context.Background()); err == nil {
		t.Fatalf("expected error from failing store")
	}
	if job.retention != 7*24*time.Hour {
		t.Fatalf("unexpected default retention: %s", job.retention)
	}
}

func TestRunWithoutStoreIsNoop(t *testing.T) {
	job := NewOperatorSessionCleanupJob(nil, time.Hour, nil)
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("expected noop, got %v", err)
	}
}
