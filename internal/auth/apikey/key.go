package apikey

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// KeyPrefix is the leading token of every issued API key.
// Keys have the form sk_<keyID>_<secret>.
const KeyPrefix = "sk"

// Common errors for API key validation.
var (
	// ErrInvalidKey indicates that the API key secret does not match.
	ErrInvalidKey = errors.New("invalid API key")

	// ErrKeyNotFound indicates that the API key was not found.
	ErrKeyNotFound = errors.New("API key not found")

	// ErrKeyExpired indicates that the API key has expired.
	ErrKeyExpired = errors.New("API key expired")

	// ErrKeyDisabled indicates that the API key is disabled.
	ErrKeyDisabled = errors.New("API key disabled")

	// ErrEmptyKey indicates that no API key was supplied.
	ErrEmptyKey = errors.New("API key is empty")

	// ErrMalformedKey indicates that the key does not have the
	// sk_<keyID>_<secret> form.
	ErrMalformedKey = errors.New("malformed API key")
)

// APIKey is a stored API key record. The raw secret is never stored;
// only its hash.
type APIKey struct {
	// ID is the public key identifier embedded in the key string.
	ID string `json:"id" yaml:"id"`

	// UserID is the platform account that owns the key.
	UserID string `json:"user_id" yaml:"userId"`

	// Name is a human-readable label.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// SecretHash is the hash of the key's secret part.
	SecretHash string `json:"secret_hash" yaml:"secretHash"`

	// Permissions are the permission tokens granted to the key.
	Permissions []string `json:"permissions,omitempty" yaml:"permissions,omitempty"`

	// RateLimit is the per-key requests-per-second allowance.
	RateLimit int `json:"rate_limit,omitempty" yaml:"rateLimit,omitempty"`

	// Enabled gates the key without deleting it.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// CreatedAt is when the key was issued.
	CreatedAt time.Time `json:"created_at,omitempty" yaml:"createdAt,omitempty"`

	// ExpiresAt is when the key expires. Nil means no expiry.
	ExpiresAt *time.Time `json:"expires_at,omitempty" yaml:"expiresAt,omitempty"`
}

// IsExpired returns true if the key has expired.
func (k *APIKey) IsExpired() bool {
	if k.ExpiresAt == nil {
		return false
	}
	return time.Now().After(*k.ExpiresAt)
}

// ParseKey splits a raw API key into its ID and secret parts.
func ParseKey(raw string) (id, secret string, err error) {
	if raw == "" {
		return "", "", ErrEmptyKey
	}

	parts := strings.SplitN(raw, "_", 3)
	if len(parts) != 3 || parts[0] != KeyPrefix || parts[1] == "" || parts[2] == "" {
		return "", "", ErrMalformedKey
	}

	return parts[1], parts[2], nil
}

// FormatKey assembles a raw API key from its ID and secret parts.
func FormatKey(id, secret string) string {
	return fmt.Sprintf("%s_%s_%s", KeyPrefix, id, secret)
}
