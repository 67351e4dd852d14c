package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port        string
	Environment string

	// Database (optional; empty keeps identity purely in memory)
	DatabaseURL  string
	MirrorBuffer int

	// JWT
	JWTSecret          string
	JWTExpirationHours int

	// Password reset. ResetSweepInterval of zero leaves expiry purely lazy.
	ResetTokenTTL      time.Duration
	ResetSweepInterval time.Duration

	// Bootstrap admin, created at startup when all three are set
	BootstrapAdminName     string
	BootstrapAdminEmail    string
	BootstrapAdminPassword string

	// Logging
	LogLevel string
	LogDev   bool
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:                   getEnv("PORT", "8080"),
		Environment:            getEnv("ENVIRONMENT", "development"),
		DatabaseURL:            getEnv("DATABASE_URL", ""),
		MirrorBuffer:           getEnvInt("MIRROR_BUFFER", 256),
		JWTSecret:              getEnv("JWT_SECRET", ""),
		JWTExpirationHours:     getEnvInt("JWT_EXPIRATION_HOURS", 24),
		ResetTokenTTL:          time.Duration(getEnvInt("RESET_TOKEN_TTL_MINUTES", 60)) * time.Minute,
		ResetSweepInterval:     time.Duration(getEnvInt("RESET_SWEEP_MINUTES", 0)) * time.Minute,
		BootstrapAdminName:     getEnv("BOOTSTRAP_ADMIN_NAME", ""),
		BootstrapAdminEmail:    getEnv("BOOTSTRAP_ADMIN_EMAIL", ""),
		BootstrapAdminPassword: getEnv("BOOTSTRAP_ADMIN_PASSWORD", ""),
		LogLevel:               getEnv("LOG_LEVEL", ""),
		LogDev:                 getEnv("LOG_DEV", "") == "1",
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable is required")
	}
	if c.JWTExpirationHours <= 0 {
		return fmt.Errorf("JWT_EXPIRATION_HOURS must be positive, got %d", c.JWTExpirationHours)
	}
	if c.ResetTokenTTL <= 0 {
		return fmt.Errorf("RESET_TOKEN_TTL_MINUTES must be positive")
	}
	if c.ResetSweepInterval < 0 {
		return fmt.Errorf("RESET_SWEEP_MINUTES must not be negative")
	}

	set := 0
	for _, v := range []string{c.BootstrapAdminName, c.BootstrapAdminEmail, c.BootstrapAdminPassword} {
		if v != "" {
			set++
		}
	}
	if set != 0 && set != 3 {
		return fmt.Errorf("BOOTSTRAP_ADMIN_NAME, BOOTSTRAP_ADMIN_EMAIL and BOOTSTRAP_ADMIN_PASSWORD must be set together")
	}
	return nil
}

func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.JWTExpirationHours) * time.Hour
}

func (c *Config) HasBootstrapAdmin() bool {
	return c.BootstrapAdminEmail != ""
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}
