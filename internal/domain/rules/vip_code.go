package rules

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"strings"
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NormalizeCode canonicalises user-entered codes before lookup.
func NormalizeCode(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// GenerateCode returns prefix followed by n uniformly drawn characters from
// [A-Z0-9]. A nil rnd uses crypto/rand.
func GenerateCode(prefix string, n int, rnd io.Reader) (string, error) {
	if n <= 0 {
		return "", errors.New("code length must be positive")
	}
	if rnd == nil {
		rnd = rand.Reader
	}

	// largest multiple of len(codeAlphabet) that fits in a byte
	limit := byte(256 - 256%len(codeAlphabet))

	var b strings.Builder
	b.Grow(len(prefix) + n)
	b.WriteString(NormalizeCode(prefix))

	buf := make([]byte, n)
	for written := 0; written < n; {
		if _, err := io.ReadFull(rnd, buf); err != nil {
			return "", fmt.Errorf("read random bytes: %w", err)
		}
		for _, v := range buf {
			if v >= limit {
				continue
			}
			b.WriteByte(codeAlphabet[int(v)%len(codeAlphabet)])
			written++
			if written == n {
				break
			}
		}
	}

	return b.String(), nil
}
