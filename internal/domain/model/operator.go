package model

import (
	"time"

	"github.com/valentina-app/backend/internal/domain/enums"
)

type Operator struct {
	ID                  string             `json:"id"`
	Username            string             `json:"username"`
	PasswordHash        string             `json:"-"`
	Role                enums.OperatorRole `json:"role"`
	IsActive            bool               `json:"is_active"`
	FailedLoginAttempts int                `json:"-"`
	LockedUntil         *time.Time         `json:"-"`
	LastLoginAt         *time.Time         `json:"last_login_at"`
	CreatedAt           time.Time          `json:"created_at"`
}

type OperatorSession struct {
	ID            string
	OperatorID    string
	CreatedAt     time.Time
	LastSeenAt    time.Time
	IdleExpiresAt time.Time
	ExpiresAt     time.Time
	RevokedAt     *time.Time
	IP            string
	UserAgent     string
}
