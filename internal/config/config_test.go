package config

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sendrelay/smsgw/internal/util"
)

func validatedConfig(mutate func(*GatewayConfig)) error {
	cfg := DefaultConfig()
	cfg.Upstreams = []UpstreamConfig{{Name: "sms-core", URL: "http://sms-core:8081"}}
	cfg.Routes = []RouteConfig{{
		Method:       "POST",
		Pattern:      "/v1/messages",
		Upstream:     "sms-core",
		UpstreamPath: "/internal/messages",
	}}
	mutate(cfg)
	return cfg.Validate()
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*GatewayConfig)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(cfg *GatewayConfig) {},
		},
		{
			name: "unknown store",
			mutate: func(cfg *GatewayConfig) {
				cfg.Auth.Store = "scylla"
			},
			wantErr: "auth.store",
		},
		{
			name: "redis store requires address",
			mutate: func(cfg *GatewayConfig) {
				cfg.Auth.Store = StoreRedis
			},
			wantErr: "auth.redis.address",
		},
		{
			name: "unknown hash algorithm",
			mutate: func(cfg *GatewayConfig) {
				cfg.Auth.HashAlgorithm = "md5"
			},
			wantErr: "auth.hashAlgorithm",
		},
		{
			name: "key without user",
			mutate: func(cfg *GatewayConfig) {
				cfg.Auth.Keys = []KeyConfig{{ID: "live01", SecretHash: "abc"}}
			},
			wantErr: "userId",
		},
		{
			name: "duplicate upstream",
			mutate: func(cfg *GatewayConfig) {
				cfg.Upstreams = append(cfg.Upstreams, UpstreamConfig{Name: "sms-core", URL: "http://other"})
			},
			wantErr: "duplicate upstream",
		},
		{
			name: "route without method",
			mutate: func(cfg *GatewayConfig) {
				cfg.Routes[0].Method = ""
			},
			wantErr: "method",
		},
		{
			name: "route pattern without slash",
			mutate: func(cfg *GatewayConfig) {
				cfg.Routes[0].Pattern = "v1/messages"
			},
			wantErr: "pattern",
		},
		{
			name: "route references unknown upstream",
			mutate: func(cfg *GatewayConfig) {
				cfg.Routes[0].Upstream = "billing"
			},
			wantErr: "unknown upstream",
		},
		{
			name: "route without upstream path",
			mutate: func(cfg *GatewayConfig) {
				cfg.Routes[0].UpstreamPath = ""
			},
			wantErr: "upstreamPath",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := validatedConfig(tt.mutate)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, util.ErrConfigInvalid)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
