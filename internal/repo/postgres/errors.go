package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound         = errors.New("record not found")
	ErrMatchPairExists  = errors.New("match for this pair already exists")
	ErrAlreadyMatched   = errors.New("user already has a match")
	ErrNoCandidate      = errors.New("no unmatched candidate available")
	ErrCodeTaken        = errors.New("vip code value already taken")
	ErrUnusedCodeExists = errors.New("user already holds an unused vip code")
	ErrCodeUsed         = errors.New("vip code already used")
	ErrEmailTaken       = errors.New("email already registered")
	ErrUsernameTaken    = errors.New("operator username already taken")
	ErrGenderLocked     = errors.New("gender cannot change while user is matched")
	ErrReferenceClaimed = errors.New("payment reference already claimed by another user")
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// uniqueViolation returns the violated constraint or index name.
func uniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return pgErr.ConstraintName, true
	}
	return "", false
}

func foreignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation
}
