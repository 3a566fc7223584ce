// Package config loads server configuration from the environment.
//
// Values come from real environment variables first; an optional .env file
// fills in anything unset (godotenv never overrides existing variables).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config contains server configuration parameters.
type Config struct {
	Port           int      `env:"PORT" envDefault:"8080"`
	LogLevel       string   `env:"LOG_LEVEL" envDefault:"info"`
	DBPath         string   `env:"DB_PATH" envDefault:"data/palettes.db"`
	AdminSubjects  []string `env:"ADMIN_SUBJECTS" envSeparator:","`
	MetricsEnabled bool     `env:"METRICS_ENABLED" envDefault:"true"`
	JWT            JWT      `envPrefix:"JWT_"`
	GitHub         GitHub   `envPrefix:"GITHUB_"`
	Catalog        Catalog  `envPrefix:"CATALOG_"`
}

// JWT contains access token parameters. An empty secret disables login.
type JWT struct {
	Secret string        `env:"SECRET"`
	TTL    time.Duration `env:"TTL" envDefault:"24h"`
}

// GitHub contains OAuth app credentials.
type GitHub struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	CallbackURL  string `env:"CALLBACK_URL"`
}

// Catalog points at the block catalog. An empty File means the embedded one.
type Catalog struct {
	File         string `env:"FILE"`
	ImageBaseURL string `env:"IMAGE_BASE_URL" envDefault:"/assets"`
}

// Load reads the given .env files (missing files are skipped) and then
// parses the environment.
func Load(envFiles ...string) (*Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: loading %s: %w", f, err)
		}
	}

	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("config: parsing environment: %w", err)
	}

	if cfg.GitHub.CallbackURL == "" {
		cfg.GitHub.CallbackURL = fmt.Sprintf("http://localhost:%d/auth/github/callback", cfg.Port)
	}

	return &cfg, nil
}

// AuthEnabled reports whether tokens can be issued and verified.
func (c *Config) AuthEnabled() bool {
	return c.JWT.Secret != ""
}

// GitHubEnabled reports whether the GitHub login routes can be served.
func (c *Config) GitHubEnabled() bool {
	return c.AuthEnabled() && c.GitHub.ClientID != "" && c.GitHub.ClientSecret != ""
}

// IsAdmin reports whether subject may run admin operations.
func (c *Config) IsAdmin(subject string) bool {
	return subject != "" && slices.Contains(c.AdminSubjects, subject)
}
