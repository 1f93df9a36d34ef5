package entity

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// APIKeyPrefix marks cleartext keys minted by this service.
const APIKeyPrefix = "lnc_"

// Role grants a tier of API access to a key.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleReader     Role = "reader"
	RoleSubscriber Role = "subscriber"
)

// APIKey is a stored API credential. Only the SHA-256 hash of the
// cleartext key is persisted.
type APIKey struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	KeyHash    string    `json:"-"`
	Role       Role      `json:"role"`
	Enabled    bool      `json:"enabled"`
	CreatedAt  time.Time `json:"created_at,omitzero"`
	LastUsedAt time.Time `json:"last_used_at,omitzero"`
}

// HashAPIKey returns the hex-encoded SHA-256 digest of a cleartext key.
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// GenerateAPIKey mints a new cleartext key. The cleartext is shown to
// the operator exactly once; only its hash is ever stored.
func GenerateAPIKey() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return APIKeyPrefix + hex.EncodeToString(buf), nil
}
