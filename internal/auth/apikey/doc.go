// Package apikey provides API key authentication for the SMS gateway.
//
// This package implements API key parsing, storage, and validation.
// Keys follow the format "sk_<keyID>_<secret>": the key ID selects the
// stored record and the secret is compared against the stored hash.
//
// # Features
//
//   - SHA-256 and bcrypt secret hashing
//   - Key lifecycle states: enabled, disabled, expired
//   - In-memory and Redis-backed key stores
//   - Prometheus metrics for validation operations
//   - Constant-time comparison for SHA-256 secrets
//
// # Key Storage
//
// The Store interface provides key retrieval by ID:
//
//	store := apikey.NewMemoryStore()
//	store.Put(&apikey.APIKey{ID: "live01", UserID: "usr_1", SecretHash: hash})
//
//	key, err := store.Get(ctx, "live01")
//
// # Validation
//
// The Validator validates raw keys and returns the caller context for
// the authenticated user:
//
//	validator := apikey.NewValidator(store)
//
//	caller, err := validator.Validate(ctx, "sk_live01_s3cr3t")
//	if err != nil {
//	    // Handle invalid key
//	}
package apikey
