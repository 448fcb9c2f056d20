// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Filename string `yaml:"filename"`
	URL      string `yaml:"url,omitempty"` // Overridden by DATABASE_URL when set
}

type InvitesConfig struct {
	CooldownSeconds     int  `yaml:"cooldown_seconds"`
	MaxPerRecipientHour int  `yaml:"max_per_recipient_hour"`
	MaxPerIPHour        int  `yaml:"max_per_ip_hour"`
	TrustProxy          bool `yaml:"trust_proxy"`
	ExpireAfterDays     int  `yaml:"expire_after_days"`
}

type Config struct {
	App struct {
		Name                   string   `yaml:"name"`
		Environment            string   `yaml:"environment"`
		Port                   int      `yaml:"port"`
		BaseURL                string   `yaml:"base_url"`
		AllowedOrigins         []string `yaml:"allowed_origins"`
		ShutdownTimeoutSeconds int      `yaml:"shutdown_timeout_seconds"`
	} `yaml:"app"`

	Database DatabaseConfig `yaml:"database"`

	Auth struct {
		ClerkSecretKey string `yaml:"-"` // Loaded from environment
	} `yaml:"-"`

	Payments struct {
		Currency        string `yaml:"currency"`
		StripeSecretKey string `yaml:"-"` // Loaded from environment
	} `yaml:"payments"`

	Email struct {
		Region string `yaml:"region"`
		Sender string `yaml:"sender"`
	} `yaml:"email"`

	Invites InvitesConfig `yaml:"invites"`

	Scheduler struct {
		ProductSyncCron  string `yaml:"product_sync_cron"`
		InviteExpiryCron string `yaml:"invite_expiry_cron"`
	} `yaml:"scheduler"`

	Catalog struct {
		Path string `yaml:"path"`
	} `yaml:"catalog"`

	Features struct {
		EnableMetrics bool `yaml:"enable_metrics"`
		EnableDebug   bool `yaml:"enable_debug"`
	} `yaml:"features"`
}

// Load loads both .env and yaml configuration
func Load(configPath string) (*Config, error) {
	// Load .env file if it exists
	envPath := filepath.Join(filepath.Dir(configPath), ".env")
	if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	// Load sensitive values from environment
	cfg.Auth.ClerkSecretKey = os.Getenv("CLERK_SECRET_KEY")
	cfg.Payments.StripeSecretKey = os.Getenv("STRIPE_SECRET_KEY")
	if url := os.Getenv("DATABASE_URL"); url != "" {
		cfg.Database.URL = url
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Parse decodes YAML configuration and fills defaults. It does not validate.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.App.ShutdownTimeoutSeconds == 0 {
		c.App.ShutdownTimeoutSeconds = 10
	}
	if c.Payments.Currency == "" {
		c.Payments.Currency = "cad"
	}
	c.Payments.Currency = strings.ToLower(c.Payments.Currency)
	if c.Email.Region == "" {
		c.Email.Region = "us-east-1"
	}
	if c.Invites.CooldownSeconds == 0 {
		c.Invites.CooldownSeconds = 60
	}
	if c.Invites.MaxPerRecipientHour == 0 {
		c.Invites.MaxPerRecipientHour = 5
	}
	if c.Invites.MaxPerIPHour == 0 {
		c.Invites.MaxPerIPHour = 30
	}
	if c.Invites.ExpireAfterDays == 0 {
		c.Invites.ExpireAfterDays = 14
	}
	if c.Scheduler.ProductSyncCron == "" {
		c.Scheduler.ProductSyncCron = "0 * * * *"
	}
	if c.Scheduler.InviteExpiryCron == "" {
		c.Scheduler.InviteExpiryCron = "30 3 * * *"
	}
}

// IsDevelopment reports whether the service runs locally.
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "" || c.App.Environment == "development"
}

func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app name is required")
	}
	if c.App.Port == 0 {
		return fmt.Errorf("app port is required")
	}
	if c.App.ShutdownTimeoutSeconds < 0 {
		return fmt.Errorf("shutdown timeout must not be negative")
	}
	if c.Database.Driver == "" {
		return fmt.Errorf("database driver is required")
	}

	// Validate based on database driver
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Filename == "" {
			return fmt.Errorf("database filename is required for sqlite")
		}
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("database URL is required for postgres")
		}
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	if len(c.Payments.Currency) != 3 {
		return fmt.Errorf("payments currency must be a three-letter ISO code: %q", c.Payments.Currency)
	}

	if c.Invites.CooldownSeconds < 0 || c.Invites.MaxPerRecipientHour < 0 || c.Invites.MaxPerIPHour < 0 {
		return fmt.Errorf("invite limits must not be negative")
	}
	if c.Invites.ExpireAfterDays < 0 {
		return fmt.Errorf("invite expiry must not be negative")
	}

	if _, err := cron.ParseStandard(c.Scheduler.ProductSyncCron); err != nil {
		return fmt.Errorf("invalid product_sync_cron %q: %w", c.Scheduler.ProductSyncCron, err)
	}
	if _, err := cron.ParseStandard(c.Scheduler.InviteExpiryCron); err != nil {
		return fmt.Errorf("invalid invite_expiry_cron %q: %w", c.Scheduler.InviteExpiryCron, err)
	}

	return nil
}
