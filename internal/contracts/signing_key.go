package contracts

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// NewSigningKey mints a 128-bit hex signing key. Keys are unguessable and
// never reused; a failure of the system randomness source is fatal to the
// operation rather than degraded.
func NewSigningKey() (string, error) {
	return randomHex(16)
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}
