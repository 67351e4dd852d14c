package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/dom/tps-identity/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	for _, key := range []string{
		"PORT", "DATABASE_URL", "JWT_EXPIRATION_HOURS", "RESET_TOKEN_TTL_MINUTES",
		"BOOTSTRAP_ADMIN_NAME", "BOOTSTRAP_ADMIN_EMAIL", "BOOTSTRAP_ADMIN_PASSWORD",
		"MIRROR_BUFFER", "LOG_DEV", "RESET_SWEEP_MINUTES",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "s3cret", cfg.JWTSecret)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL())
	assert.Equal(t, time.Hour, cfg.ResetTokenTTL)
	assert.Equal(t, 256, cfg.MirrorBuffer)
	assert.Zero(t, cfg.ResetSweepInterval)
	assert.Empty(t, cfg.DatabaseURL)
	assert.False(t, cfg.HasBootstrapAdmin())
	assert.False(t, cfg.LogDev)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("JWT_EXPIRATION_HOURS", "2")
	t.Setenv("RESET_TOKEN_TTL_MINUTES", "15")
	t.Setenv("BOOTSTRAP_ADMIN_NAME", "Root")
	t.Setenv("BOOTSTRAP_ADMIN_EMAIL", "root@example.com")
	t.Setenv("BOOTSTRAP_ADMIN_PASSWORD", "Secur3!pass")
	t.Setenv("LOG_DEV", "1")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, 2*time.Hour, cfg.TokenTTL())
	assert.Equal(t, 15*time.Minute, cfg.ResetTokenTTL)
	assert.True(t, cfg.HasBootstrapAdmin())
	assert.True(t, cfg.LogDev)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() config.Config {
		return config.Config{
			JWTSecret:          "s3cret",
			JWTExpirationHours: 24,
			ResetTokenTTL:      time.Hour,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*config.Config) {}},
		{name: "missing secret", mutate: func(c *config.Config) { c.JWTSecret = "" }, wantErr: "JWT_SECRET"},
		{name: "zero expiration", mutate: func(c *config.Config) { c.JWTExpirationHours = 0 }, wantErr: "JWT_EXPIRATION_HOURS"},
		{name: "negative reset ttl", mutate: func(c *config.Config) { c.ResetTokenTTL = -time.Minute }, wantErr: "RESET_TOKEN_TTL_MINUTES"},
		{name: "negative sweep interval", mutate: func(c *config.Config) { c.ResetSweepInterval = -time.Minute }, wantErr: "RESET_SWEEP_MINUTES"},
		{name: "partial bootstrap admin", mutate: func(c *config.Config) { c.BootstrapAdminEmail = "root@example.com" }, wantErr: "must be set together"},
		{name: "full bootstrap admin", mutate: func(c *config.Config) {
			c.BootstrapAdminName = "Root"
			c.BootstrapAdminEmail = "root@example.com"
			c.BootstrapAdminPassword = "Secur3!pass"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
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
