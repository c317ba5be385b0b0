package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/valentina-app/backend/internal/domain/enums"
	"github.com/valentina-app/backend/internal/domain/model"
)

type OperatorSessionRepo struct {
	pool *pgxpool.Pool
}

func NewOperatorSessionRepo(pool *pgxpool.Pool) *OperatorSessionRepo {
	return &OperatorSessionRepo{pool: pool}
}

func (r *OperatorSessionRepo) Create(ctx context.Context, s model.OperatorSession) error {
	q, err := conn(ctx, r.pool)
	if err != nil {
		return err
	}

	if _, err := q.Exec(ctx, `
INSERT INTO operator_sessions (
	id,
	operator_id,
	created_at,
	last_seen_at,
	idle_expires_at,
	expires_at,
	ip,
	user_agent
) VALUES ($1::uuid, $2::uuid, $3, $3, $4, $5, $6, $7)
`, s.ID, s.OperatorID, s.CreatedAt, s.IdleExpiresAt, s.ExpiresAt, s.IP, s.UserAgent); err != nil {
		return fmt.Errorf("insert operator session: %w", err)
	}
	return nil
}

// Touch extends the idle deadline of a live session and returns the
// operator's current role. Revoked, expired or idle sessions and inactive
// operators yield ErrNotFound.
func (r *OperatorSessionRepo) Touch(ctx context.Context, sid, operatorID string, idleTTL time.Duration, now time.Time) (enums.OperatorRole, error) {
	q, err := conn(ctx, r.pool)
	if err != nil {
		return "", err
	}

	seconds := int64(idleTTL.Seconds())
	if seconds <= 0 {
		seconds = 1800
	}

	var role string
	err = q.QueryRow(ctx, `
UPDATE operator_sessions AS s
SET last_seen_at = $3,
    idle_expires_at = LEAST(s.expires_at, $3 + ($4 * INTERVAL '1 second'))
FROM operators AS o
WHERE s.id = $1::uuid
  AND s.operator_id = $2::uuid
  AND s.operator_id = o.id
  AND o.is_active
  AND s.revoked_at IS NULL
  AND s.expires_at > $3
  AND s.idle_expires_at > $3
RETURNING o.role
`, sid, operatorID, now, seconds).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("touch operator session: %w", err)
	}
	return enums.OperatorRole(role), nil
}

func (r *OperatorSessionRepo) Revoke(ctx context.Context, sid string, now time.Time) error {
	q, err := conn(ctx, r.pool)
	if err != nil {
		return err
	}

	if _, err := q.Exec(ctx, `
UPDATE operator_sessions
SET revoked_at = $2
WHERE id = $1::uuid AND revoked_at IS NULL
`, sid, now); err != nil {
		return fmt.Errorf("revoke operator session: %w", err)
	}
	return nil
}

// DeleteStale removes sessions that ended before cutoff.
func (r *OperatorSessionRepo) DeleteStale(ctx context.Context, cutoff time.Time) (int64, error) {
	q, err := conn(ctx, r.pool)
	if err != nil {
		return 0, err
	}

	res, err := q.Exec(ctx, `
DELETE FROM operator_sessions
WHERE COALESCE(revoked_at, LEAST(expires_at, idle_expires_at)) < $1
`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete stale operator sessions: %w", err)
	}
	return res.RowsAffected(), nil
}
