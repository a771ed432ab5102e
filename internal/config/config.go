package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for the validation service.
// Values come from an optional YAML file named by CONFIG_FILE; environment
// variables always override YAML. Secrets only come from the environment.
type Config struct {
	Env        string `yaml:"env" env:"APP_ENV" env-default:"production"`
	ListenAddr string `yaml:"listen_addr" env:"LISTEN_ADDR" env-default:":8080"`
	LogLevel   string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`

	DatabaseURL      string `yaml:"-" env:"DATABASE_URL"` // Secret - not in YAML
	MigrateOnStartup bool   `yaml:"migrate_on_startup" env:"MIGRATE_ON_STARTUP" env-default:"false"`

	// ValidationWorkers is the number of background re-validation workers; 0 disables them.
	ValidationWorkers int           `yaml:"validation_workers" env:"VALIDATION_WORKERS" env-default:"0"`
	JobPollInterval   time.Duration `yaml:"job_poll_interval" env:"JOB_POLL_INTERVAL" env-default:"500ms"`

	// ExternalCallTimeout bounds every reference-service and storage call.
	ExternalCallTimeout time.Duration `yaml:"external_call_timeout" env:"EXTERNAL_CALL_TIMEOUT" env-default:"5s"`

	Cache     CacheConfig     `yaml:"cache"`
	Storage   StorageConfig   `yaml:"storage"`
	Reference ReferenceConfig `yaml:"reference"`
}

// CacheConfig configures the optional Redis cache for reference lookups.
type CacheConfig struct {
	RedisURL string        `yaml:"-" env:"REDIS_URL"` // Secret - may carry a password
	TTL      time.Duration `yaml:"ttl" env:"CACHE_TTL" env-default:"6h"`
}

// StorageConfig configures Supabase Storage access for audit documents.
type StorageConfig struct {
	SupabaseURL string `yaml:"supabase_url" env:"SUPABASE_URL" env-default:""`
	SupabaseKey string `yaml:"-" env:"SUPABASE_SERVICE_KEY"`
	AuditBucket string `yaml:"audit_bucket" env:"AUDIT_BUCKET" env-default:"audit-documents"`
}

// Enabled reports whether document checks can reach storage.
func (s StorageConfig) Enabled() bool {
	return s.SupabaseURL != "" && s.SupabaseKey != ""
}

// ReferenceConfig holds endpoints and credentials of the reference services.
// Missing credentials are not an error: the affected lookups report the
// service as unavailable.
type ReferenceConfig struct {
	PhishTankURL    string `yaml:"phishtank_url" env:"PHISHTANK_URL" env-default:"https://checkurl.phishtank.com/checkurl/"`
	PhishTankAppKey string `yaml:"-" env:"PHISHTANK_APP_KEY"`

	SafeBrowsingURL string `yaml:"safe_browsing_url" env:"SAFE_BROWSING_URL" env-default:"https://safebrowsing.googleapis.com/v4/threatMatches:find"`
	SafeBrowsingKey string `yaml:"-" env:"SAFE_BROWSING_API_KEY"`

	SanctionsURL      string  `yaml:"sanctions_url" env:"SANCTIONS_API_URL" env-default:""`
	SanctionsKey      string  `yaml:"-" env:"SANCTIONS_API_KEY"`
	SanctionsMinScore float64 `yaml:"sanctions_min_score" env:"SANCTIONS_MIN_SCORE" env-default:"0.85"`

	// RatePerSecond throttles each reference client independently.
	RatePerSecond float64 `yaml:"rate_per_second" env:"REFERENCE_RATE_PER_SECOND" env-default:"5"`
	RateBurst     int     `yaml:"rate_burst" env:"REFERENCE_RATE_BURST" env-default:"5"`
}

// Load reads CONFIG_FILE when set, then applies environment overrides.
func Load() (*Config, error) {
	cfg := &Config{}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.ValidationWorkers < 0 {
		return fmt.Errorf("VALIDATION_WORKERS must not be negative")
	}
	if c.ValidationWorkers > 0 && c.JobPollInterval <= 0 {
		return fmt.Errorf("JOB_POLL_INTERVAL must be positive when workers are enabled")
	}
	if c.ExternalCallTimeout <= 0 {
		return fmt.Errorf("EXTERNAL_CALL_TIMEOUT must be positive")
	}
	return nil
}

// IsDevelopment selects human-readable logging.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}
