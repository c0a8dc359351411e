package config

import (
	"fmt"
	"os"
	"time"

	"github.com/novelcrawl/piaotian/internal/retry"
	"github.com/novelcrawl/piaotian/pkg/utils"
	"gopkg.in/yaml.v3"
)

// Config holds the tunables of a crawl session
type Config struct {
	Mirror     string   `yaml:"mirror,omitempty"`
	Mirrors    []string `yaml:"mirrors,omitempty"`
	Output     string   `yaml:"output"`
	Debug      bool     `yaml:"debug,omitempty"`
	CookieFile string   `yaml:"cookie_file,omitempty"`
	UserAgent  string   `yaml:"user_agent,omitempty"`
	UserAgents []string `yaml:"user_agents,omitempty"`
	BadLines   []string `yaml:"bad_lines"`

	RateLimit RateLimit `yaml:"rate_limit"`
	Retry     Retry     `yaml:"retry"`
	Transport Transport `yaml:"transport"`
}

// RateLimit is the randomized interval between two requests of one adapter
type RateLimit struct {
	MinDelay time.Duration `yaml:"min_delay"`
	MaxDelay time.Duration `yaml:"max_delay"`
}

// Retry is the application level retry around chapter downloads
type Retry struct {
	Attempts  int           `yaml:"attempts"`
	BaseDelay time.Duration `yaml:"base_delay"`
	Backoff   string        `yaml:"backoff"`
	JitterMin time.Duration `yaml:"jitter_min"`
	JitterMax time.Duration `yaml:"jitter_max"`
}

// Transport is the HTTP level timeout and retry
type Transport struct {
	Timeout       time.Duration `yaml:"timeout"`
	Retries       int           `yaml:"retries"`
	RetryWait     time.Duration `yaml:"retry_wait"`
	RetryMaxWait  time.Duration `yaml:"retry_max_wait"`
	RetryStatuses []int         `yaml:"retry_statuses"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Output: "Books",
		RateLimit: RateLimit{
			MinDelay: 3 * time.Second,
			MaxDelay: 5 * time.Second,
		},
		Retry: Retry{
			Attempts:  3,
			BaseDelay: 5 * time.Second,
			Backoff:   "exponential",
			JitterMin: time.Second,
			JitterMax: 3 * time.Second,
		},
		Transport: Transport{
			Timeout:       30 * time.Second,
			Retries:       2,
			RetryWait:     time.Second,
			RetryMaxWait:  5 * time.Second,
			RetryStatuses: []int{500, 502, 503, 504, 520, 521, 522, 524},
		},
		BadLines: []string{
			`(?i)piaotia\.com`,
			`(?i)ptwxz\.com`,
			`飘天文学`,
		},
	}
}

// Load reads a YAML file on top of the defaults. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// SaveYAML writes cfg to path
func SaveYAML(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.Mirror != "" && !utils.IsAbsoluteURL(c.Mirror) {
		return fmt.Errorf("mirror %q is not an absolute URL", c.Mirror)
	}
	for _, m := range c.Mirrors {
		if !utils.IsAbsoluteURL(m) {
			return fmt.Errorf("mirrors: %q is not an absolute URL", m)
		}
	}

	if c.RateLimit.MinDelay < 0 {
		return fmt.Errorf("rate_limit.min_delay cannot be negative")
	}
	if c.RateLimit.MaxDelay < c.RateLimit.MinDelay {
		return fmt.Errorf("rate_limit.max_delay (%s) must not be below min_delay (%s)", c.RateLimit.MaxDelay, c.RateLimit.MinDelay)
	}

	if c.Retry.Attempts < 1 {
		return fmt.Errorf("retry.attempts must be at least 1")
	}
	if c.Retry.BaseDelay < 0 {
		return fmt.Errorf("retry.base_delay cannot be negative")
	}
	if c.Retry.JitterMax < c.Retry.JitterMin {
		return fmt.Errorf("retry.jitter_max must not be below jitter_min")
	}
	if _, err := retry.ParseBackoff(c.Retry.Backoff); err != nil {
		return fmt.Errorf("retry.backoff: %w", err)
	}

	if c.Transport.Retries < 0 {
		return fmt.Errorf("transport.retries cannot be negative")
	}
	if c.Transport.Timeout <= 0 {
		return fmt.Errorf("transport.timeout must be positive")
	}
	for _, code := range c.Transport.RetryStatuses {
		if code < 100 || code > 599 {
			return fmt.Errorf("transport.retry_statuses: invalid status %d", code)
		}
	}

	return nil
}

// RetryPolicy builds the chapter retry policy
func (c *Config) RetryPolicy() (retry.Policy, error) {
	backoff, err := retry.ParseBackoff(c.Retry.Backoff)
	if err != nil {
		return retry.Policy{}, err
	}
	return retry.Policy{
		MaxAttempts: c.Retry.Attempts,
		BaseDelay:   c.Retry.BaseDelay,
		Backoff:     backoff,
		JitterMin:   c.Retry.JitterMin,
		JitterMax:   c.Retry.JitterMax,
	}, nil
}
