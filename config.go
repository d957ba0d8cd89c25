package wardblog

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds everything the site reads from the environment. The
// backend endpoint, its token, the user pool, and the session secret
// have no sane defaults and are validated before anything starts.
type Config struct {
	SiteName        string `env:"SITE_NAME" envDefault:"Ward Blog"`
	SiteURL         string `env:"SITE_URL" envDefault:"http://localhost:3000"`
	SiteDescription string `env:"SITE_DESCRIPTION"`
	Addr            string `env:"ADDR" envDefault:":3000"`

	// GraphCMSEndpoint is the public CDN content endpoint of the hosted
	// backend. The management endpoint is derived from it.
	GraphCMSEndpoint string `env:"GRAPHCMS_ENDPOINT"`
	GraphCMSToken    string `env:"GRAPHCMS_TOKEN"`

	UserPoolID       string `env:"USER_POOL_ID"`
	UserPoolClientID string `env:"USER_POOL_CLIENT_ID"`

	SessionSecret string `env:"SESSION_SECRET"`
	CookieSecure  bool   `env:"COOKIE_SECURE" envDefault:"false"`

	CacheTTL time.Duration `env:"CACHE_TTL" envDefault:"5m"`

	AnalyticsEnabled bool   `env:"ANALYTICS_ENABLED" envDefault:"true"`
	AnalyticsDBPath  string `env:"ANALYTICS_DB_PATH" envDefault:"data/analytics.db"`
}

// LoadConfig parses the environment and validates the result.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("wardblog: parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every missing required value at once, so a bad deploy
// fails with one complete message instead of one variable at a time.
func (c Config) Validate() error {
	var missing []string
	if c.GraphCMSEndpoint == "" {
		missing = append(missing, "GRAPHCMS_ENDPOINT")
	}
	if c.GraphCMSToken == "" {
		missing = append(missing, "GRAPHCMS_TOKEN")
	}
	if c.UserPoolID == "" {
		missing = append(missing, "USER_POOL_ID")
	}
	if c.UserPoolClientID == "" {
		missing = append(missing, "USER_POOL_CLIENT_ID")
	}
	if c.SessionSecret == "" {
		missing = append(missing, "SESSION_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("wardblog: missing configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}
