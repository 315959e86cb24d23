package apikey

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/sendrelay/smsgw/internal/auth"
	"github.com/sendrelay/smsgw/internal/observability"
)

// Hash algorithm constants.
const (
	HashAlgSHA256 = "sha256"
	HashAlgBcrypt = "bcrypt"
)

// Validator validates raw API keys and produces the caller context.
type Validator interface {
	// Validate validates a raw API key and returns the caller it
	// authenticates.
	Validate(ctx context.Context, rawKey string) (*auth.CallerContext, error)
}

// validator implements the Validator interface.
type validator struct {
	store     Store
	algorithm string
	logger    observability.Logger
	metrics   *Metrics
}

// ValidatorOption is a functional option for the validator.
type ValidatorOption func(*validator)

// WithValidatorLogger sets the logger for the validator.
func WithValidatorLogger(logger observability.Logger) ValidatorOption {
	return func(v *validator) {
		v.logger = logger
	}
}

// WithValidatorMetrics sets the metrics for the validator.
func WithValidatorMetrics(metrics *Metrics) ValidatorOption {
	return func(v *validator) {
		v.metrics = metrics
	}
}

// WithHashAlgorithm sets the secret hash algorithm (sha256 or bcrypt).
func WithHashAlgorithm(algorithm string) ValidatorOption {
	return func(v *validator) {
		v.algorithm = algorithm
	}
}

// NewValidator creates a new API key validator backed by the given store.
func NewValidator(store Store, opts ...ValidatorOption) (Validator, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}

	v := &validator{
		store:     store,
		algorithm: HashAlgSHA256,
		logger:    observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(v)
	}

	if v.algorithm != HashAlgSHA256 && v.algorithm != HashAlgBcrypt {
		return nil, fmt.Errorf("unsupported hash algorithm: %s", v.algorithm)
	}

	if v.metrics == nil {
		v.metrics = NewMetrics("smsgw")
	}

	return v, nil
}

// Validate validates a raw API key and returns the caller it authenticates.
func (v *validator) Validate(ctx context.Context, rawKey string) (*auth.CallerContext, error) {
	start := time.Now()

	id, secret, err := ParseKey(rawKey)
	if err != nil {
		v.metrics.RecordValidation("error", "malformed", time.Since(start))
		return nil, err
	}

	key, err := v.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			v.metrics.RecordValidation("error", "not_found", time.Since(start))
			return nil, ErrKeyNotFound
		}
		v.metrics.RecordValidation("error", "store_error", time.Since(start))
		return nil, fmt.Errorf("failed to look up API key: %w", err)
	}

	if err := v.compareSecret(secret, key.SecretHash); err != nil {
		v.metrics.RecordValidation("error", "invalid", time.Since(start))
		return nil, err
	}

	if !key.Enabled {
		v.metrics.RecordValidation("error", "disabled", time.Since(start))
		return nil, ErrKeyDisabled
	}

	if key.IsExpired() {
		v.metrics.RecordValidation("error", "expired", time.Since(start))
		return nil, ErrKeyExpired
	}

	v.metrics.RecordValidation("success", "valid", time.Since(start))
	v.logger.Debug("API key validated",
		observability.String("key_id", key.ID),
		observability.String("user_id", key.UserID),
	)

	return &auth.CallerContext{
		UserID:             key.UserID,
		APIKeyID:           key.ID,
		GrantedPermissions: key.Permissions,
		RateLimit:          key.RateLimit,
		AuthTime:           time.Now(),
	}, nil
}

// compareSecret compares the provided secret against the stored hash.
func (v *validator) compareSecret(secret, storedHash string) error {
	switch v.algorithm {
	case HashAlgBcrypt:
		if err := bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(secret)); err != nil {
			return ErrInvalidKey
		}
		return nil
	default:
		hash := sha256.Sum256([]byte(secret))
		providedHash := hex.EncodeToString(hash[:])
		if subtle.ConstantTimeCompare([]byte(providedHash), []byte(storedHash)) != 1 {
			return ErrInvalidKey
		}
		return nil
	}
}

// HashSecret hashes an API key secret using the given algorithm.
func HashSecret(secret, algorithm string) (string, error) {
	switch algorithm {
	case HashAlgSHA256:
		hash := sha256.Sum256([]byte(secret))
		return hex.EncodeToString(hash[:]), nil
	case HashAlgBcrypt:
		hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
		if err != nil {
			return "", err
		}
		return string(hash), nil
	default:
		return "", fmt.Errorf("unsupported hash algorithm: %s", algorithm)
	}
}

// Ensure validator implements Validator.
var _ Validator = (*validator)(nil)
