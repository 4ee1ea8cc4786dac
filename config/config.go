package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Port           string   `env:"PORT" envDefault:"5200"`
	DatabaseDriver string   `env:"DATABASE_DRIVER" envDefault:"postgres"`
	DatabaseURL    string   `env:"DATABASE_URL,required,notEmpty"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`

	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogEncoding string `env:"LOG_ENCODING" envDefault:"json"`

	EthereumRPCURL     string        `env:"ETHEREUM_RPC_URL" envDefault:"https://eth.llamarpc.com"`
	ResolverTimeout    time.Duration `env:"RESOLVER_TIMEOUT" envDefault:"5s"`
	ResolverCacheTTL   time.Duration `env:"RESOLVER_CACHE_TTL" envDefault:"24h"`
	RedisURL           string        `env:"REDIS_URL"`
	CacheSweepInterval time.Duration `env:"CACHE_SWEEP_INTERVAL" envDefault:"10m"`

	CloudflareAccountID string        `env:"CLOUDFLARE_ACCOUNT_ID"`
	R2AccessKeyID       string        `env:"R2_ACCESS_KEY_ID"`
	R2AccessKeySecret   string        `env:"R2_ACCESS_KEY_SECRET"`
	R2BucketName        string        `env:"R2_BUCKET_NAME"`
	ArchivePollInterval time.Duration `env:"ARCHIVE_POLL_INTERVAL" envDefault:"30s"`

	AppServiceToken string `env:"APP_SERVICE_TOKEN"`
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return Parse()
}

// Parse builds a Config from the process environment only.
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	c.DatabaseDriver = strings.ToLower(strings.TrimSpace(c.DatabaseDriver))
	switch c.DatabaseDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}
	for _, d := range []struct {
		name string
		v    time.Duration
	}{
		{"RESOLVER_TIMEOUT", c.ResolverTimeout},
		{"RESOLVER_CACHE_TTL", c.ResolverCacheTTL},
		{"CACHE_SWEEP_INTERVAL", c.CacheSweepInterval},
		{"ARCHIVE_POLL_INTERVAL", c.ArchivePollInterval},
	} {
		if d.v <= 0 {
			return fmt.Errorf("%s must be positive", d.name)
		}
	}
	return nil
}

// ArchiveEnabled reports whether land claims are exported to R2.
func (c *Config) ArchiveEnabled() bool {
	return c.R2BucketName != ""
}

// CORSOrigins is the comma separated origin list fiber's cors middleware expects.
func (c *Config) CORSOrigins() string {
	if len(c.AllowedOrigins) == 0 {
		return "*"
	}
	return strings.Join(c.AllowedOrigins, ",")
}
