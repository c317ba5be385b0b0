package operators

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type tokenClaims struct {
	OperatorID string `json:"oid"`
	Username   string `json:"username,omitempty"`
	SID        string `json:"sid"`
	jwt.RegisteredClaims
}

// TokenManager signs operator bearer tokens. A token only names a session;
// the session row is checked on every request.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &TokenManager{secret: []byte(strings.TrimSpace(secret)), ttl: ttl}
}

func (m *TokenManager) Issue(operatorID, username, sid string, now time.Time) (string, time.Time, error) {
	if len(m.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("operator jwt secret is empty")
	}

	now = now.UTC()
	expires := now.Add(m.ttl)
	claims := tokenClaims{
		OperatorID: operatorID,
		Username:   username,
		SID:        sid,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
			NotBefore: jwt.NewNumericDate(now.Add(-5 * time.Second)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign operator jwt: %w", err)
	}
	return signed, expires, nil
}

func (m *TokenManager) Parse(raw string, now time.Time) (tokenClaims, error) {
	token, err := jwt.ParseWithClaims(strings.TrimSpace(raw), &tokenClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrUnauthorized
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return now }), jwt.WithExpirationRequired())
	if err != nil {
		return tokenClaims{}, ErrUnauthorized
	}
	tc, ok := token.Claims.(*tokenClaims)
	if !ok || !token.Valid {
		return tokenClaims{}, ErrUnauthorized
	}
	if strings.TrimSpace(tc.OperatorID) == "" || strings.TrimSpace(tc.SID) == "" {
		return tokenClaims{}, ErrUnauthorized
	}
	return *tc, nil
}
