package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sendrelay/smsgw/internal/auth"
	"github.com/sendrelay/smsgw/internal/auth/apikey"
)

func newTestValidator(t *testing.T) apikey.Validator {
	t.Helper()

	hash, err := apikey.HashSecret("s3cr3t", apikey.HashAlgSHA256)
	require.NoError(t, err)

	store := apikey.NewMemoryStore()
	store.Put(&apikey.APIKey{
		ID:          "live01",
		UserID:      "usr_1",
		SecretHash:  hash,
		Permissions: []string{"sms:send"},
		Enabled:     true,
	})

	v, err := apikey.NewValidator(store, apikey.WithValidatorMetrics(
		apikey.NewMetricsWithRegisterer("test", prometheus.NewRegistry()),
	))
	require.NoError(t, err)
	return v
}

func TestAuthValidKey(t *testing.T) {
	t.Parallel()

	var caller *auth.CallerContext
	handler := Auth(newTestValidator(t), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, _ = auth.CallerFromContext(r.Context())
	}))

	req := httptest.NewRequest("POST", "/v1/messages", nil)
	req.Header.Set("X-Api-Key", "sk_live01_s3cr3t")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, caller)
	assert.Equal(t, "usr_1", caller.UserID)
	assert.Equal(t, []string{"sms:send"}, caller.GrantedPermissions)
}

func TestAuthInvalidKey(t *testing.T) {
	t.Parallel()

	reached := false
	handler := Auth(newTestValidator(t), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
	}))

	req := httptest.NewRequest("POST", "/v1/messages", nil)
	req.Header.Set("X-Api-Key", "sk_live01_wrong")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, reached)
}

func TestAuthNoKeyPassesThroughWithoutCaller(t *testing.T) {
	t.Parallel()

	var hadCaller bool
	handler := Auth(newTestValidator(t), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hadCaller = auth.CallerFromContext(r.Context())
	}))

	req := httptest.NewRequest("POST", "/v1/messages", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, hadCaller)
}

func TestAuthBearerToken(t *testing.T) {
	t.Parallel()

	var caller *auth.CallerContext
	handler := Auth(newTestValidator(t), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, _ = auth.CallerFromContext(r.Context())
	}))

	req := httptest.NewRequest("POST", "/v1/messages", nil)
	req.Header.Set("Authorization", "Bearer sk_live01_s3cr3t")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.NotNil(t, caller)
	assert.Equal(t, "live01", caller.APIKeyID)
}
