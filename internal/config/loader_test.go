package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sendrelay/smsgw/internal/util"
)

const validConfig = `
server:
  address: ":8080"
  readTimeout: 5s
metrics:
  address: ":9090"
logging:
  level: debug
  format: console
auth:
  hashAlgorithm: sha256
  store: memory
  keys:
    - id: live01
      userId: usr_1
      secretHash: abc123
      permissions: [sms:send, sms:read]
      rateLimit: 100
      enabled: true
rateLimit:
  defaultRps: 20
  defaultBurst: 40
upstreams:
  - name: sms-core
    url: http://sms-core:8081
    timeout: 10s
    breaker:
      threshold: 5
      timeout: 30s
routes:
  - method: POST
    pattern: /v1/messages
    permissions: [sms:send]
    upstream: sms-core
    upstreamPath: /internal/messages
  - method: GET
    pattern: /v1/messages/:messageId
    permissions: [sms:read]
    upstream: sms-core
    upstreamPath: /internal/messages/:messageId
`

func TestLoadFromReader(t *testing.T) {
	t.Parallel()

	cfg, err := LoadFromReader(strings.NewReader(validConfig))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout.Duration())
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)

	require.Len(t, cfg.Auth.Keys, 1)
	assert.Equal(t, "live01", cfg.Auth.Keys[0].ID)
	assert.Equal(t, []string{"sms:send", "sms:read"}, cfg.Auth.Keys[0].Permissions)

	require.Len(t, cfg.Upstreams, 1)
	assert.Equal(t, 5, cfg.Upstreams[0].Breaker.Threshold)
	assert.Equal(t, 30*time.Second, cfg.Upstreams[0].Breaker.Timeout.Duration())

	require.Len(t, cfg.Routes, 2)
	assert.Equal(t, "/v1/messages/:messageId", cfg.Routes[1].Pattern)
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := LoadFromReader(strings.NewReader("routes: []\n"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, ":9090", cfg.Metrics.Address)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "sha256", cfg.Auth.HashAlgorithm)
	assert.Equal(t, StoreMemory, cfg.Auth.Store)
	assert.Equal(t, 50, cfg.RateLimit.DefaultRPS)
	assert.Equal(t, 1.0, cfg.Tracing.SamplingRate)
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "gateway.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validConfig), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Address)
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadInvalidYAML(t *testing.T) {
	t.Parallel()

	_, err := LoadFromReader(strings.NewReader("routes: [unclosed"))
	assert.ErrorIs(t, err, util.ErrConfigInvalid)
}

func TestEnvSubstitution(t *testing.T) {
	t.Setenv("SMSGW_TEST_ADDR", ":9999")

	cfg, err := LoadFromReader(strings.NewReader(
		"server:\n  address: \"${SMSGW_TEST_ADDR}\"\nmetrics:\n  address: \"${SMSGW_TEST_MISSING:-:9091}\"\n",
	))
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.Server.Address)
	assert.Equal(t, ":9091", cfg.Metrics.Address)
}

func TestEnvSubstitutionEscapedDollar(t *testing.T) {
	t.Parallel()

	got := substituteEnvVars("password: $$literal")
	assert.Equal(t, "password: $literal", got)
}
