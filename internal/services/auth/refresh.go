package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

const (
	refreshTokenBytes = 32
	sessionIDBytes    = 18
	resetTokenBytes   = 32
)

// NewOpaqueToken returns byteLen random bytes as unpadded URL-safe base64,
// so the value can travel in a reset link without escaping.
func NewOpaqueToken(byteLen int) (string, error) {
	if byteLen < 16 {
		return "", fmt.Errorf("token must carry at least 16 random bytes, got %d", byteLen)
	}

	b := make([]byte, byteLen)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func NewRefreshToken() (string, error) {
	return NewOpaqueToken(refreshTokenBytes)
}

func NewSessionID() (string, error) {
	return NewOpaqueToken(sessionIDBytes)
}

func NewResetToken() (string, error) {
	return NewOpaqueToken(resetTokenBytes)
}

// HashToken is the storage key for a bearer secret.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
