package matches

import (
	"errors"
	"strconv"
)

var (
	ErrValidation           = errors.New("validation error")
	ErrSelfMatch            = errors.New("a user cannot be matched with themselves")
	ErrSameGender           = errors.New("matched users must have opposite genders")
	ErrDuplicateMatch       = errors.New("these users are already matched")
	ErrAlreadyMatched       = errors.New("user already has a match")
	ErrAlreadyHasCode       = errors.New("user already has an unused vip code")
	ErrNoAvailableCandidate = errors.New("no available match right now, check back later")
	ErrInvalidCode          = errors.New("invalid vip code")
	ErrCodeAlreadyUsed      = errors.New("vip code has already been used")
	ErrNotFound             = errors.New("not found")
	ErrTooManyAttempts      = errors.New("too many attempts")
)

// RetryAfterError carries the wait before a rate-limited caller may retry.
// It matches ErrTooManyAttempts under errors.Is.
type RetryAfterError struct {
	Seconds int64
}

func (e *RetryAfterError) Error() string {
	return ErrTooManyAttempts.Error() + ", retry in " + strconv.FormatInt(e.Seconds, 10) + "s"
}

func (e *RetryAfterError) Unwrap() error {
	return ErrTooManyAttempts
}
