package crypto

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const envVarKeyInfo = "kubidu/env-vars/v1"

// Keyring seals and opens secret environment variable values with a key
// derived from the platform master secret.
type Keyring struct {
	key []byte
}

// NewKeyring derives the AES key from secret with HKDF-SHA256.
func NewKeyring(secret string) (*Keyring, error) {
	if secret == "" {
		return nil, errors.New("encryption secret is empty")
	}
	key := make([]byte, keySize)
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte(envVarKeyInfo))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return &Keyring{key: key}, nil
}

func (k *Keyring) Encrypt(plaintext string) (string, error) {
	return Encrypt([]byte(plaintext), k.key)
}

func (k *Keyring) Decrypt(ciphertext string) (string, error) {
	b, err := Decrypt(ciphertext, k.key)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
