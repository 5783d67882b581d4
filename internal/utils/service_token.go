package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// serviceTokenBytes is the entropy of generated service tokens (64 hex characters).
const serviceTokenBytes = 32

// GenerateServiceToken returns a new random service token and the bcrypt hash to configure
// as SERVICE_TOKEN_HASH. Only the hash is stored on the ledger side.
func GenerateServiceToken() (token string, hash string, err error) {
	b := make([]byte, serviceTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	token = hex.EncodeToString(b)
	hashed, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", "", fmt.Errorf("failed to hash service token: %w", err)
	}
	return token, string(hashed), nil
}

// CheckServiceToken compares a presented token with its bcrypt hash.
func CheckServiceToken(token, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(token)) == nil
}
