package crypto

import (
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
)

// GenericHash computes a SHA-256 hex hash. API keys are stored and looked up
// by this hash.
func GenericHash(secret string) string {
	h := sha256.Sum256([]byte(secret))
	return fmt.Sprintf("%x", h)
}

// TokenEqual compares two shared secrets in constant time.
func TokenEqual(got, want string) bool {
	if want == "" {
		return false
	}
	a := sha256.Sum256([]byte(got))
	b := sha256.Sum256([]byte(want))
	return subtle.ConstantTimeCompare(a[:], b[:]) == 1
}
