package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/valentina-app/backend/internal/domain/model"
)

type VIPCodeRepo struct {
	pool *pgxpool.Pool
}

const vipCodeColumns = `
	id::text,
	code,
	assigned_user_id::text,
	match_id::text,
	is_used,
	used_at,
	created_at`

func NewVIPCodeRepo(pool *pgxpool.Pool) *VIPCodeRepo {
	return &VIPCodeRepo{pool: pool}
}

// Insert stores a new unused code. A collision on the code value is reported
// as ErrCodeTaken without aborting an enclosing transaction, so the caller
// can regenerate and retry.
func (r *VIPCodeRepo) Insert(ctx context.Context, c model.VIPCode) (model.VIPCode, error) {
	if c.ID == "" || c.Code == "" || c.AssignedUserID == "" {
		return model.VIPCode{}, fmt.Errorf("invalid vip code payload")
	}
	q, err := conn(ctx, r.pool)
	if err != nil {
		return model.VIPCode{}, err
	}

	created, err := scanVIPCode(q.QueryRow(ctx, `
INSERT INTO vip_codes (
	id,
	code,
	assigned_user_id,
	match_id,
	is_used,
	created_at
) VALUES ($1::uuid, $2, $3::uuid, $4::uuid, FALSE, $5)
ON CONFLICT (code) DO NOTHING
RETURNING `+vipCodeColumns,
		c.ID, c.Code, c.AssignedUserID, c.MatchID, c.CreatedAt,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.VIPCode{}, ErrCodeTaken
		}
		if name, ok := uniqueViolation(err); ok && name == "vip_codes_one_unused_uidx" {
			return model.VIPCode{}, ErrUnusedCodeExists
		}
		if foreignKeyViolation(err) {
			return model.VIPCode{}, ErrNotFound
		}
		return model.VIPCode{}, fmt.Errorf("insert vip code: %w", err)
	}
	return created, nil
}

func (r *VIPCodeRepo) CodeExists(ctx context.Context, code string) (bool, error) {
	q, err := conn(ctx, r.pool)
	if err != nil {
		return false, err
	}

	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM vip_codes WHERE code = $1)`, code).Scan(&exists); err != nil {
		return false, fmt.Errorf("check vip code exists: %w", err)
	}
	return exists, nil
}

func (r *VIPCodeRepo) HasUnused(ctx context.Context, userID string) (bool, error) {
	q, err := conn(ctx, r.pool)
	if err != nil {
		return false, err
	}

	var exists bool
	if err := q.QueryRow(ctx, `
SELECT EXISTS (
	SELECT 1 FROM vip_codes WHERE assigned_user_id = $1::uuid AND NOT is_used
)`, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check unused vip code: %w", err)
	}
	return exists, nil
}

// Redeem marks the code used if and only if it is still unused and assigned
// to userID. The UPDATE predicate decides the winner between concurrent calls.
func (r *VIPCodeRepo) Redeem(ctx context.Context, code, userID string, now time.Time) (model.VIPCode, error) {
	q, err := conn(ctx, r.pool)
	if err != nil {
		return model.VIPCode{}, err
	}

	redeemed, err := scanVIPCode(q.QueryRow(ctx, `
UPDATE vip_codes
SET is_used = TRUE,
    used_at = $3
WHERE code = $1
  AND assigned_user_id = $2::uuid
  AND NOT is_used
RETURNING `+vipCodeColumns,
		code, userID, now,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.VIPCode{}, ErrNotFound
		}
		return model.VIPCode{}, fmt.Errorf("redeem vip code: %w", err)
	}
	return redeemed, nil
}

func (r *VIPCodeRepo) Get(ctx context.Context, id string) (model.VIPCode, error) {
	q, err := conn(ctx, r.pool)
	if err != nil {
		return model.VIPCode{}, err
	}

	c, err := scanVIPCode(q.QueryRow(ctx, `SELECT `+vipCodeColumns+` FROM vip_codes WHERE id = $1::uuid`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.VIPCode{}, ErrNotFound
		}
		return model.VIPCode{}, fmt.Errorf("get vip code: %w", err)
	}
	return c, nil
}

// DeleteUnused removes a code that was never redeemed. Redeemed codes are
// history and yield ErrCodeUsed.
func (r *VIPCodeRepo) DeleteUnused(ctx context.Context, id string) (model.VIPCode, error) {
	q, err := conn(ctx, r.pool)
	if err != nil {
		return model.VIPCode{}, err
	}

	deleted, err := scanVIPCode(q.QueryRow(ctx, `
DELETE FROM vip_codes
WHERE id = $1::uuid AND NOT is_used
RETURNING `+vipCodeColumns, id))
	if err == nil {
		return deleted, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return model.VIPCode{}, fmt.Errorf("delete vip code: %w", err)
	}

	if _, getErr := r.Get(ctx, id); getErr != nil {
		return model.VIPCode{}, getErr
	}
	return model.VIPCode{}, ErrCodeUsed
}

func (r *VIPCodeRepo) DeleteUnusedForMatch(ctx context.Context, matchID string) (int64, error) {
	q, err := conn(ctx, r.pool)
	if err != nil {
		return 0, err
	}

	res, err := q.Exec(ctx, `DELETE FROM vip_codes WHERE match_id = $1::uuid AND NOT is_used`, matchID)
	if err != nil {
		return 0, fmt.Errorf("delete vip codes for match: %w", err)
	}
	return res.RowsAffected(), nil
}

// ListRelevantForUser returns the codes that can affect what userID sees:
// codes assigned to the user and codes bound to any of the user's matches.
func (r *VIPCodeRepo) ListRelevantForUser(ctx context.Context, userID string) ([]model.VIPCode, error) {
	return r.list(ctx, `
SELECT `+vipCodeColumns+`
FROM vip_codes c
WHERE c.assigned_user_id = $1::uuid
   OR c.match_id IN (
	SELECT m.id FROM matches m WHERE m.male_user_id = $1::uuid OR m.female_user_id = $1::uuid
   )
ORDER BY c.created_at, c.id
`, userID)
}

func (r *VIPCodeRepo) List(ctx context.Context) ([]model.VIPCode, error) {
	return r.list(ctx, `SELECT `+vipCodeColumns+` FROM vip_codes ORDER BY created_at DESC, id`)
}

func (r *VIPCodeRepo) list(ctx context.Context, query string, args ...any) ([]model.VIPCode, error) {
	q, err := conn(ctx, r.pool)
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query vip codes: %w", err)
	}
	defer rows.Close()

	items := make([]model.VIPCode, 0, 16)
	for rows.Next() {
		c, err := scanVIPCode(rows)
		if err != nil {
			return nil, fmt.Errorf("scan vip code: %w", err)
		}
		items = append(items, c)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate vip codes: %w", rows.Err())
	}
	return items, nil
}

func scanVIPCode(row pgx.Row) (model.VIPCode, error) {
	var c model.VIPCode
	if err := row.Scan(
		&c.ID,
		&c.Code,
		&c.AssignedUserID,
		&c.MatchID,
		&c.IsUsed,
		&c.UsedAt,
		&c.CreatedAt,
	); err != nil {
		return model.VIPCode{}, err
	}
	return c, nil
}
