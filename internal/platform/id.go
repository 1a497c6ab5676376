package platform

import (
	"crypto/rand"
	"strings"

	"github.com/google/uuid"
)

const shortIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
const shortIDLength = 10

func NewID() string {
	return uuid.New().String()
}

// NewName returns prefix followed by ten random lowercase alphanumerics.
func NewName(prefix string) string {
	return prefix + RandomSuffix(shortIDLength)
}

// RandomSuffix returns n random characters from [a-z0-9].
func RandomSuffix(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand: " + err.Error())
	}
	for i := range b {
		b[i] = shortIDAlphabet[b[i]%byte(len(shortIDAlphabet))]
	}
	return string(b)
}

// UniqueSuffix returns the first n hex characters of a fresh UUID.
func UniqueSuffix(n int) string {
	s := strings.ReplaceAll(uuid.New().String(), "-", "")
	if n > len(s) {
		n = len(s)
	}
	return s[:n]
}
