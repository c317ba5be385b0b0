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

type MatchRepo struct {
	pool *pgxpool.Pool
}

const matchColumns = `
	id::text,
	male_user_id::text,
	female_user_id::text,
	is_instant_match,
	matched_at,
	notified_at`

func NewMatchRepo(pool *pgxpool.Pool) *MatchRepo {
	return &MatchRepo{pool: pool}
}

func (r *MatchRepo) Insert(ctx context.Context, m model.Match) (model.Match, error) {
	if m.ID == "" || m.MaleUserID == "" || m.FemaleUserID == "" {
		return model.Match{}, fmt.Errorf("invalid match payload")
	}
	q, err := conn(ctx, r.pool)
	if err != nil {
		return model.Match{}, err
	}

	created, err := scanMatch(q.QueryRow(ctx, `
INSERT INTO matches (
	id,
	male_user_id,
	female_user_id,
	is_instant_match,
	matched_at,
	notified_at
) VALUES ($1::uuid, $2::uuid, $3::uuid, $4, $5, $6)
RETURNING `+matchColumns,
		m.ID, m.MaleUserID, m.FemaleUserID, m.IsInstantMatch, m.MatchedAt, m.NotifiedAt,
	))
	if err != nil {
		if name, ok := uniqueViolation(err); ok && name == "matches_pair_uidx" {
			return model.Match{}, ErrMatchPairExists
		}
		if foreignKeyViolation(err) {
			return model.Match{}, ErrNotFound
		}
		return model.Match{}, fmt.Errorf("insert match: %w", err)
	}
	return created, nil
}

// InsertInstantForUser pairs userID with the oldest paid, unmatched profile of
// the opposite gender. Candidate selection and the insert share one
// transaction; the requester row is locked so concurrent requests from the
// same user serialize, and candidates locked by another request are skipped.
func (r *MatchRepo) InsertInstantForUser(ctx context.Context, matchID, userID string, now time.Time) (model.Match, error) {
	var created model.Match
	err := inTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		var raw string
		if err := tx.QueryRow(ctx, `SELECT gender FROM profiles WHERE user_id = $1::uuid FOR UPDATE`, userID).Scan(&raw); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("lock requester profile: %w", err)
		}
		gender := enums.Gender(raw)
		if !gender.Valid() {
			return fmt.Errorf("requester has unknown gender %q", raw)
		}

		var matched bool
		if err := tx.QueryRow(ctx, `
SELECT EXISTS (
	SELECT 1 FROM matches WHERE male_user_id = $1::uuid OR female_user_id = $1::uuid
)`, userID).Scan(&matched); err != nil {
			return fmt.Errorf("check requester matches: %w", err)
		}
		if matched {
			return ErrAlreadyMatched
		}

		var candidateID string
		err := tx.QueryRow(ctx, `
SELECT p.user_id::text
FROM profiles p
WHERE p.gender = $2
  AND p.payment_status
  AND p.user_id <> $1::uuid
  AND NOT EXISTS (
	SELECT 1
	FROM matches m
	WHERE m.male_user_id = p.user_id OR m.female_user_id = p.user_id
  )
ORDER BY p.created_at, p.user_id
LIMIT 1
FOR UPDATE OF p SKIP LOCKED
`, userID, string(gender.Opposite())).Scan(&candidateID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNoCandidate
			}
			return fmt.Errorf("select instant match candidate: %w", err)
		}

		m := model.Match{ID: matchID, IsInstantMatch: true, MatchedAt: now}
		if gender == enums.GenderMale {
			m.MaleUserID, m.FemaleUserID = userID, candidateID
		} else {
			m.MaleUserID, m.FemaleUserID = candidateID, userID
		}

		created, err = r.Insert(ctx, m)
		return err
	})
	if err != nil {
		return model.Match{}, err
	}
	return created, nil
}

func (r *MatchRepo) Get(ctx context.Context, id string) (model.Match, error) {
	q, err := conn(ctx, r.pool)
	if err != nil {
		return model.Match{}, err
	}

	m, err := scanMatch(q.QueryRow(ctx, `SELECT `+matchColumns+` FROM matches WHERE id = $1::uuid`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Match{}, ErrNotFound
		}
		return model.Match{}, fmt.Errorf("get match: %w", err)
	}
	return m, nil
}

func (r *MatchRepo) ListForUser(ctx context.Context, userID string) ([]model.Match, error) {
	return r.list(ctx, `
SELECT `+matchColumns+`
FROM matches
WHERE male_user_id = $1::uuid OR female_user_id = $1::uuid
ORDER BY matched_at DESC, id
`, userID)
}

func (r *MatchRepo) List(ctx context.Context) ([]model.Match, error) {
	return r.list(ctx, `SELECT `+matchColumns+` FROM matches ORDER BY matched_at DESC, id`)
}

func (r *MatchRepo) Delete(ctx context.Context, id string) (bool, error) {
	q, err := conn(ctx, r.pool)
	if err != nil {
		return false, err
	}

	res, err := q.Exec(ctx, `DELETE FROM matches WHERE id = $1::uuid`, id)
	if err != nil {
		return false, fmt.Errorf("delete match: %w", err)
	}
	return res.RowsAffected() > 0, nil
}

// ClaimRevealBatch stamps notified_at on up to limit regular matches that
// were never announced and returns them. Rows locked by another worker are
// skipped, so each match is claimed once.
func (r *MatchRepo) ClaimRevealBatch(ctx context.Context, limit int, now time.Time) ([]model.Match, error) {
	if limit <= 0 {
		limit = 100
	}
	return r.list(ctx, `
UPDATE matches
SET notified_at = $2
WHERE id IN (
	SELECT id
	FROM matches
	WHERE notified_at IS NULL AND NOT is_instant_match
	ORDER BY matched_at, id
	LIMIT $1
	FOR UPDATE SKIP LOCKED
)
RETURNING `+matchColumns, limit, now)
}

func (r *MatchRepo) list(ctx context.Context, query string, args ...any) ([]model.Match, error) {
	q, err := conn(ctx, r.pool)
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query matches: %w", err)
	}
	defer rows.Close()

	items := make([]model.Match, 0, 16)
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		items = append(items, m)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate matches: %w", rows.Err())
	}
	return items, nil
}

func scanMatch(row pgx.Row) (model.Match, error) {
	var m model.Match
	if err := row.Scan(
		&m.ID,
		&m.MaleUserID,
		&m.FemaleUserID,
		&m.IsInstantMatch,
		&m.MatchedAt,
		&m.NotifiedAt,
	); err != nil {
		return model.Match{}, err
	}
	return m, nil
}
