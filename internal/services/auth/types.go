package auth

import (
	"errors"
	"time"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrSessionNotFound    = errors.New("session not found")
	ErrRefreshNotFound    = errors.New("refresh token not found")
	ErrResetTokenInvalid  = errors.New("password reset token is invalid or expired")
)

type SessionRecord struct {
	SID       string
	UserID    string
	ExpiresAt time.Time
}

type AccessClaims struct {
	UserID    string
	SID       string
	ExpiresAt time.Time
}

type AuthResult struct {
	AccessToken   string
	RefreshToken  string
	AccessExpires time.Time
	UserID        string
}
