package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the resolved runtime configuration for the service.
// It merges file defaults and environment overrides to support both local and
// deployed runs.
type Config struct {
	ServiceID string

	HTTPPort int
	GRPCPort int

	DatabaseURL string
	RedisURL    string

	JWTSecret         string
	AllowEphemeralJWT bool

	AdminToken string

	SessionTTL      time.Duration
	LockoutDuration time.Duration
	FailedThreshold int

	EnforceDeviceExclusivity bool
	AllowMultipleLicenses    bool

	MaxDBConns      int32
	EventBufferSize int
	SweepInterval   time.Duration
}

// configFile mirrors the YAML schema used by configs/default.yaml.
// It is intentionally separate from Config so runtime-only fields stay internal.
type configFile struct {
	Service struct {
		ID       string `yaml:"id"`
		HTTPPort int    `yaml:"http_port"`
		GRPCPort int    `yaml:"grpc_port"`
	} `yaml:"service"`
	Dependencies struct {
		PostgresURL string `yaml:"postgres_url"`
		RedisURL    string `yaml:"redis_url"`
	} `yaml:"dependencies"`
	Policy struct {
		FailedLoginThreshold     int  `yaml:"failed_login_threshold"`
		LockoutMinutes           int  `yaml:"lockout_minutes"`
		SessionTTLHours          int  `yaml:"session_ttl_hours"`
		EnforceDeviceExclusivity bool `yaml:"enforce_device_exclusivity"`
		AllowMultipleLicenses    bool `yaml:"allow_multiple_licenses"`
	} `yaml:"policy"`
}

// LoadConfig resolves configuration in priority order: defaults -> file -> env.
// This order keeps local bootstrap simple while allowing environment-specific
// overrides.
func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceID:         "whisker-auth",
		HTTPPort:          8080,
		GRPCPort:          9090,
		AllowEphemeralJWT: true,
		SessionTTL:        24 * time.Hour,
		LockoutDuration:   30 * time.Minute,
		FailedThreshold:   5,
		MaxDBConns:        20,
		EventBufferSize:   256,
		SweepInterval:     time.Minute,
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		if f.Service.ID != "" {
			cfg.ServiceID = f.Service.ID
		}
		if f.Service.HTTPPort > 0 {
			cfg.HTTPPort = f.Service.HTTPPort
		}
		if f.Service.GRPCPort > 0 {
			cfg.GRPCPort = f.Service.GRPCPort
		}
		if f.Dependencies.PostgresURL != "" {
			cfg.DatabaseURL = f.Dependencies.PostgresURL
		}
		if f.Dependencies.RedisURL != "" {
			cfg.RedisURL = f.Dependencies.RedisURL
		}
		if f.Policy.FailedLoginThreshold > 0 {
			cfg.FailedThreshold = f.Policy.FailedLoginThreshold
		}
		if f.Policy.LockoutMinutes > 0 {
			cfg.LockoutDuration = time.Duration(f.Policy.LockoutMinutes) * time.Minute
		}
		if f.Policy.SessionTTLHours > 0 {
			cfg.SessionTTL = time.Duration(f.Policy.SessionTTLHours) * time.Hour
		}
		cfg.EnforceDeviceExclusivity = f.Policy.EnforceDeviceExclusivity
		cfg.AllowMultipleLicenses = f.Policy.AllowMultipleLicenses
	}

	cfg.DatabaseURL = envOrDefault("DB_URL", envOrDefault("POSTGRES_URL", cfg.DatabaseURL))
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.JWTSecret = envOrDefault("JWT_SECRET", cfg.JWTSecret)
	cfg.AllowEphemeralJWT = envBool("JWT_ALLOW_EPHEMERAL", cfg.AllowEphemeralJWT)
	cfg.AdminToken = envOrDefault("ADMIN_TOKEN", cfg.AdminToken)

	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.GRPCPort = envInt("GRPC_PORT", cfg.GRPCPort)
	cfg.FailedThreshold = envInt("FAILED_LOGIN_THRESHOLD", cfg.FailedThreshold)
	cfg.MaxDBConns = int32(envInt("DB_MAX_CONNS", int(cfg.MaxDBConns)))
	cfg.EventBufferSize = envInt("EVENT_BUFFER_SIZE", cfg.EventBufferSize)

	cfg.SessionTTL = time.Duration(envInt("SESSION_TTL_HOURS", int(cfg.SessionTTL.Hours()))) * time.Hour
	cfg.LockoutDuration = time.Duration(envInt("ACCOUNT_LOCKOUT_MINUTES", int(cfg.LockoutDuration.Minutes()))) * time.Minute
	cfg.SweepInterval = time.Duration(envInt("SWEEP_INTERVAL_SECONDS", int(cfg.SweepInterval.Seconds()))) * time.Second

	cfg.EnforceDeviceExclusivity = envBool("ENFORCE_DEVICE_EXCLUSIVITY", cfg.EnforceDeviceExclusivity)
	cfg.AllowMultipleLicenses = envBool("ALLOW_MULTIPLE_LICENSES", cfg.AllowMultipleLicenses)

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("missing DB_URL/POSTGRES_URL")
	}
	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("missing REDIS_URL")
	}
	if cfg.JWTSecret == "" && !cfg.AllowEphemeralJWT {
		return Config{}, fmt.Errorf("missing JWT_SECRET")
	}

	return cfg, nil
}

// envOrDefault returns an env var when present, otherwise the provided fallback.
func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

// envInt parses integer env vars with safe fallback on empty/invalid values.
func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

// envBool parses common boolean env forms while keeping a deterministic fallback.
func envBool(name string, fallback bool) bool {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return fallback
	}
}
