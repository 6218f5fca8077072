package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const EnvPrefix = "SCRAPER"

type Config struct {
	DBPath      string `mapstructure:"db_path"`
	CategoryURL string `mapstructure:"category_url"`

	StealthEnabled bool `mapstructure:"stealth_enabled"`
	// RateLimit is the delay in seconds between detail fetches.
	RateLimit int `mapstructure:"rate_limit"`

	MaxRetries       int           `mapstructure:"max_retries"`
	ChallengeRetries int           `mapstructure:"challenge_retries"`
	BackoffBase      time.Duration `mapstructure:"backoff_base"`
	BackoffMax       time.Duration `mapstructure:"backoff_max"`
	FetchTimeout     time.Duration `mapstructure:"fetch_timeout"`

	Browser struct {
		Headless   bool `mapstructure:"headless"`
		Undetected bool `mapstructure:"undetected"`

		// DebugDir receives screenshots of failed browser fetches.
		DebugDir string `mapstructure:"debug_dir"`
	} `mapstructure:"browser"`

	ProductLinkSelector string `mapstructure:"product_link_selector"`
	// MaxProducts caps detail fetches per run; 0 means no cap.
	MaxProducts int `mapstructure:"max_products"`

	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`

	ExportPath string `mapstructure:"export_path"`
	ServeAddr  string `mapstructure:"serve_addr"`
	// APISpecDir holds the OpenAPI document served on "/" by serve.
	APISpecDir string `mapstructure:"api_spec_dir"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db_path", "prestige_flowers.db")
	v.SetDefault("category_url", "https://www.prestigeflowers.co.uk/christmas-plants")
	v.SetDefault("stealth_enabled", true)
	v.SetDefault("rate_limit", 2)
	v.SetDefault("max_retries", 3)
	v.SetDefault("challenge_retries", 1)
	v.SetDefault("backoff_base", 2*time.Second)
	v.SetDefault("backoff_max", 30*time.Second)
	v.SetDefault("fetch_timeout", 45*time.Second)
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.undetected", false)
	v.SetDefault("browser.debug_dir", "")
	v.SetDefault("product_link_selector", "a.product-img")
	v.SetDefault("max_products", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("export_path", "products.csv")
	v.SetDefault("serve_addr", ":9090")
	v.SetDefault("api_spec_dir", "docs")
}

// Load reads configuration from SCRAPER_* environment variables, on top of an
// optional config file. Nested keys map to env names with "." replaced by "_",
// e.g. browser.headless -> SCRAPER_BROWSER_HEADLESS.
func Load(filePath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if filePath != "" {
		v.SetConfigFile(filePath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", filePath, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("db_path must not be empty")
	}
	if c.CategoryURL == "" {
		return fmt.Errorf("category_url must not be empty")
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate_limit must be >= 0, got %d", c.RateLimit)
	}
	if c.MaxProducts < 0 {
		return fmt.Errorf("max_products must be >= 0, got %d", c.MaxProducts)
	}
	if c.MaxRetries < 0 || c.ChallengeRetries < 0 {
		return fmt.Errorf("retry bounds must be >= 0")
	}
	return nil
}

func (c *Config) RateLimitDelay() time.Duration {
	return time.Duration(c.RateLimit) * time.Second
}
