package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/valentina-app/backend/internal/domain/enums"
	"github.com/valentina-app/backend/internal/domain/model"
)

type OperatorRepo struct {
	pool *pgxpool.Pool
}

const operatorColumns = `
	id::text,
	username,
	password_hash,
	role,
	is_active,
	failed_login_attempts,
	locked_until,
	last_login_at,
	created_at`

func NewOperatorRepo(pool *pgxpool.Pool) *OperatorRepo {
	return &OperatorRepo{pool: pool}
}

func (r *OperatorRepo) Create(ctx context.Context, op model.Operator) (model.Operator, error) {
	q, err := conn(ctx, r.pool)
	if err != nil {
		return model.Operator{}, err
	}
	if op.ID == "" || strings.TrimSpace(op.Username) == "" || op.PasswordHash == "" || !op.Role.Valid() {
		return model.Operator{}, fmt.Errorf("invalid operator payload")
	}

	created, err := scanOperator(q.QueryRow(ctx, `
INSERT INTO operators (id, username, password_hash, role, is_active, created_at)
VALUES ($1::uuid, $2, $3, $4, TRUE, $5)
RETURNING `+operatorColumns,
		op.ID, strings.TrimSpace(op.Username), op.PasswordHash, string(op.Role), op.CreatedAt,
	))
	if err != nil {
		if name, ok := uniqueViolation(err); ok && name == "operators_username_uidx" {
			return model.Operator{}, ErrUsernameTaken
		}
		return model.Operator{}, fmt.Errorf("insert operator: %w", err)
	}
	return created, nil
}

func (r *OperatorRepo) GetByUsername(ctx context.Context, username string) (model.Operator, error) {
	return r.getOne(ctx, `SELECT `+operatorColumns+` FROM operators WHERE LOWER(username) = LOWER($1)`, strings.TrimSpace(username))
}

func (r *OperatorRepo) Get(ctx context.Context, id string) (model.Operator, error) {
	return r.getOne(ctx, `SELECT `+operatorColumns+` FROM operators WHERE id = $1::uuid`, id)
}

// MarkFailure bumps the failed attempt counter and sets locked_until once
// maxAttempts is reached. It reports whether the operator is now locked.
func (r *OperatorRepo) MarkFailure(ctx context.Context, id string, maxAttempts int, lockUntil, now time.Time) (bool, error) {
	q, err := conn(ctx, r.pool)
	if err != nil {
		return false, err
	}

	var storedLock *time.Time
	err = q.QueryRow(ctx, `
UPDATE operators
SET failed_login_attempts = failed_login_attempts + 1,
    locked_until = CASE
        WHEN failed_login_attempts + 1 >= $2 THEN $3
        ELSE locked_until
    END
WHERE id = $1::uuid
RETURNING locked_until
`, id, maxAttempts, lockUntil).Scan(&storedLock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, ErrNotFound
		}
		return false, fmt.Errorf("mark operator login failure: %w", err)
	}
	return storedLock != nil && storedLock.After(now), nil
}

func (r *OperatorRepo) MarkSuccess(ctx context.Context, id string, now time.Time) error {
	q, err := conn(ctx, r.pool)
	if err != nil {
		return err
	}

	if _, err := q.Exec(ctx, `
UPDATE operators
SET failed_login_attempts = 0,
    locked_until = NULL,
    last_login_at = $2
WHERE id = $1::uuid
`, id, now); err != nil {
		return fmt.Errorf("mark operator login success: %w", err)
	}
	return nil
}

func (r *OperatorRepo) getOne(ctx context.Context, query string, arg any) (model.Operator, error) {
	q, err := conn(ctx, r.pool)
	if err != nil {
		return model.Operator{}, err
	}

	op, err := scanOperator(q.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Operator{}, ErrNotFound
		}
		return model.Operator{}, fmt.Errorf("query operator: %w", err)
	}
	return op, nil
}

func scanOperator(row pgx.Row) (model.Operator, error) {
	var (
		op   model.Operator
		role string
	)
	if err := row.Scan(
		&op.ID,
		&op.Username,
		&op.PasswordHash,
		&role,
		&op.IsActive,
		&op.FailedLoginAttempts,
		&op.LockedUntil,
		&op.LastLoginAt,
		&op.CreatedAt,
	); err != nil {
		return model.Operator{}, err
	}
	op.Role = enums.OperatorRole(role)
	return op, nil
}
