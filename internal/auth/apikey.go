package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultBcryptCost = 12

	// KeyPrefix marks keys minted by this gateway.
	KeyPrefix = "bb_"

	keyRandomBytes = 24
)

// MintKey generates a new random API key.
func MintKey() (string, error) {
	buf := make([]byte, keyRandomBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate api key: %w", err)
	}
	return KeyPrefix + hex.EncodeToString(buf), nil
}

// HashAdminKey produces the bcrypt hash stored in ADMIN_KEY_BCRYPT_HASH.
func HashAdminKey(rawKey string) (string, error) {
	trimmed := strings.TrimSpace(rawKey)
	if trimmed == "" {
		return "", fmt.Errorf("api key is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(trimmed), DefaultBcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash api key: %w", err)
	}
	return string(hash), nil
}

// VerifyAdminKey checks a raw key against the configured bcrypt hash.
func VerifyAdminKey(rawKey, hash string) bool {
	trimmedKey := strings.TrimSpace(rawKey)
	trimmedHash := strings.TrimSpace(hash)
	if trimmedKey == "" || trimmedHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(trimmedHash), []byte(trimmedKey)) == nil
}
