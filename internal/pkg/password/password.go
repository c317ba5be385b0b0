package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrMismatch = errors.New("password mismatch")
	ErrTooShort = errors.New("password is too short")
)

const MinLength = 8

func Hash(plain string) (string, error) {
	if len(plain) < MinLength {
		return "", fmt.Errorf("%w: need at least %d characters", ErrTooShort, MinLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func Check(hash, plain string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)); err != nil {
		return ErrMismatch
	}
	return nil
}
