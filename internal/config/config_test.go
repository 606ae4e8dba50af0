package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validAuth() AuthConfig {
	return AuthConfig{
		JWTSecret:              strings.Repeat("k", MinSecretBytes),
		Issuer:                 "issuer",
		Audience:               "audience",
		AccessTokenTTLMinutes:  60,
		InterimTokenTTLMinutes: 5,
		ImpersonatorRoles:      []string{"Admin"},
		PasswordDigest:         "sha512",
	}
}

func TestAuthConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*AuthConfig)
		wantErr string
	}{
		{name: "valid", mutate: func(*AuthConfig) {}},
		{
			name:    "short secret",
			mutate:  func(a *AuthConfig) { a.JWTSecret = "dev-secret" },
			wantErr: "AUTH_JWT_SECRET",
		},
		{
			name:    "missing issuer",
			mutate:  func(a *AuthConfig) { a.Issuer = " " },
			wantErr: "AUTH_JWT_ISSUER",
		},
		{
			name:    "missing audience",
			mutate:  func(a *AuthConfig) { a.Audience = "" },
			wantErr: "AUTH_JWT_AUDIENCE",
		},
		{
			name:    "interim outlives access token",
			mutate:  func(a *AuthConfig) { a.InterimTokenTTLMinutes = 60 },
			wantErr: "shorter than the access token TTL",
		},
		{
			name:    "no impersonator roles",
			mutate:  func(a *AuthConfig) { a.ImpersonatorRoles = nil },
			wantErr: "AUTH_IMPERSONATOR_ROLES",
		},
		{
			name:    "unknown digest",
			mutate:  func(a *AuthConfig) { a.PasswordDigest = "md5" },
			wantErr: "AUTH_PASSWORD_DIGEST",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validAuth()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", strings.Repeat("s", 40))
	t.Setenv("AUTH_IMPERSONATABLE_ROLES", "Subscriber, ,Master")
	t.Setenv("AUTH_STORE_TIMEOUT_MS", "250")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"Subscriber", "Master"}, cfg.Auth.ImpersonatableRoles)
	assert.Equal(t, []string{"Admin"}, cfg.Auth.ImpersonatorRoles)
	assert.Equal(t, 250*time.Millisecond, cfg.Auth.StoreTimeout())
	assert.Equal(t, time.Hour, cfg.Auth.AccessTokenTTL())
	assert.Equal(t, 5*time.Minute, cfg.Auth.InterimTokenTTL())
}

func TestLoadRejectsMissingSecret(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AUTH_JWT_SECRET")
}
