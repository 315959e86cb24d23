package apikey

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsWithRegisterer(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	m := NewMetricsWithRegisterer("test", registry)
	require.NotNil(t, m)

	m.RecordValidation("success", "valid", 5*time.Millisecond)
	m.RecordValidation("error", "not_found", time.Millisecond)
	m.SetStoreKeys(3)

	families, err := registry.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}

	assert.True(t, names["test_apikey_validation_total"])
	assert.True(t, names["test_apikey_validation_duration_seconds"])
	assert.True(t, names["test_apikey_store_keys"])
}

func TestMetricsNilSafe(t *testing.T) {
	t.Parallel()

	var m *Metrics
	m.RecordValidation("success", "valid", time.Millisecond)
	m.SetStoreKeys(1)
}
