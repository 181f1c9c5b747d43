// Package config provides configuration management for the application.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultBodySizeLimit is the default maximum request body size (1MB).
	DefaultBodySizeLimit int64 = 1 * 1024 * 1024

	// MinBodySizeLimit is the smallest accepted body size limit (1KB).
	MinBodySizeLimit int64 = 1 * 1024

	// MaxBodySizeLimit is the largest accepted body size limit (100MB).
	MaxBodySizeLimit int64 = 100 * 1024 * 1024
)

// Config holds the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Logging   LogConfig       `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Cache     CacheConfig     `yaml:"cache"`
	Client    ClientConfig    `yaml:"client"`
	Resume    ResumeConfig    `yaml:"resume"`
	Contact   ContactConfig   `yaml:"contact"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	HTTP      HTTPConfig      `yaml:"http"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            string `yaml:"port"`
	BodySizeLimit   int64  `yaml:"body_size_limit"`
	CORSAllowOrigin string `yaml:"cors_allow_origin"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error
	Level string `yaml:"level"`
	// Format is one of json, pretty, auto. auto picks pretty when stdout is a terminal.
	Format string `yaml:"format"`
}

// MetricsConfig holds Prometheus exposition settings
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
}

// CacheConfig selects the backing store for server-side response caching
// and the contact rate limiter.
type CacheConfig struct {
	// Type is "memory" or "redis"
	Type  string      `yaml:"type"`
	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	URL       string `yaml:"url"`
	KeyPrefix string `yaml:"key_prefix"`
}

// ClientConfig configures the outbound API client used by the CLI and the
// remote resume source.
type ClientConfig struct {
	BaseURL   string `yaml:"base_url"`
	Timeout   int    `yaml:"timeout"` // seconds
	Retries   int    `yaml:"retries"`
	UserAgent string `yaml:"user_agent"`
}

// ResumeConfig configures where resume data comes from and how long it is cached.
type ResumeConfig struct {
	// File is a YAML or JSON resume document. Empty means built-in data.
	File string `yaml:"file"`
	// RemoteURL, when set, fetches resume data from another folio instance.
	RemoteURL     string `yaml:"remote_url"`
	CacheTTL      int    `yaml:"cache_ttl"`       // seconds
	StatsCacheTTL int    `yaml:"stats_cache_ttl"` // seconds
}

// ContactConfig configures the contact endpoint.
type ContactConfig struct {
	Recipient string          `yaml:"recipient"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Mail      MailConfig      `yaml:"mail"`
}

// RateLimitConfig is a rolling window limit.
type RateLimitConfig struct {
	Max    int `yaml:"max"`
	Window int `yaml:"window"` // seconds
}

// MailConfig selects how contact messages are delivered.
type MailConfig struct {
	// Type is "log" or "smtp"
	Type string     `yaml:"type"`
	SMTP SMTPConfig `yaml:"smtp"`
	// SimulatedFailureRate makes the log mailer fail a fraction of sends (0..1).
	SimulatedFailureRate float64 `yaml:"simulated_failure_rate"`
}

// SMTPConfig holds SMTP relay settings
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// AnalyticsConfig configures analytics ingestion.
type AnalyticsConfig struct {
	MaxEventsPerSession int `yaml:"max_events_per_session"`
	RecentLimit         int `yaml:"recent_limit"`
	FlushInterval       int `yaml:"flush_interval"` // seconds, client tracker
}

// HTTPConfig holds outbound HTTP transport timeouts in seconds
type HTTPConfig struct {
	Timeout               int `yaml:"timeout"`
	ResponseHeaderTimeout int `yaml:"response_header_timeout"`
}

// LoadResult is the outcome of Load.
type LoadResult struct {
	Config *Config
	// Source is the config file that was read, empty when only defaults and env were used.
	Source string
}

// configPaths are searched in order for an optional YAML config file.
var configPaths = []string{"config/config.yaml", "config.yaml"}

func buildDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			BodySizeLimit:   DefaultBodySizeLimit,
			CORSAllowOrigin: "*",
		},
		Logging: LogConfig{
			Level:  "info",
			Format: "auto",
		},
		Metrics: MetricsConfig{
			Enabled:  false,
			Endpoint: "/metrics",
		},
		Cache: CacheConfig{
			Type: "memory",
			Redis: RedisConfig{
				KeyPrefix: "folio:",
			},
		},
		Client: ClientConfig{
			BaseURL:   "http://localhost:8080",
			Timeout:   10,
			Retries:   3,
			UserAgent: "Resume-Website/1.0",
		},
		Resume: ResumeConfig{
			CacheTTL:      300,
			StatsCacheTTL: 600,
		},
		Contact: ContactConfig{
			Recipient: "admin@example.com",
			RateLimit: RateLimitConfig{
				Max:    3,
				Window: 60,
			},
			Mail: MailConfig{
				Type: "log",
				SMTP: SMTPConfig{Port: 587},
			},
		},
		Analytics: AnalyticsConfig{
			MaxEventsPerSession: 1000,
			RecentLimit:         100,
			FlushInterval:       30,
		},
		HTTP: HTTPConfig{
			Timeout:               30,
			ResponseHeaderTimeout: 30,
		},
	}
}

// Load reads configuration from defaults, an optional config.yaml, .env and the environment.
// Precedence (lowest to highest): defaults, config file, environment (including .env).
func Load() (*LoadResult, error) {
	// Optional; real environment variables always win over .env entries.
	_ = godotenv.Load()

	cfg := buildDefaultConfig()
	result := &LoadResult{Config: cfg}

	for _, p := range configPaths {
		data, err := os.ReadFile(p)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("failed to read config file %s: %w", p, err)
		}
		if err := yaml.Unmarshal([]byte(expandString(string(data))), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", p, err)
		}
		result.Source = p
		break
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return result, nil
}

func (c *Config) validate() error {
	switch c.Cache.Type {
	case "memory":
	case "redis":
		if c.Cache.Redis.URL == "" {
			return errors.New("cache type redis requires REDIS_URL")
		}
	default:
		return fmt.Errorf("unknown cache type %q", c.Cache.Type)
	}

	switch c.Contact.Mail.Type {
	case "log":
	case "smtp":
		if c.Contact.Mail.SMTP.Host == "" {
			return errors.New("mail type smtp requires SMTP_HOST")
		}
	default:
		return fmt.Errorf("unknown mail type %q", c.Contact.Mail.Type)
	}

	if c.Contact.Mail.SimulatedFailureRate < 0 || c.Contact.Mail.SimulatedFailureRate > 1 {
		return fmt.Errorf("MAIL_SIMULATED_FAILURE_RATE must be within [0,1], got %v", c.Contact.Mail.SimulatedFailureRate)
	}
	if c.Contact.RateLimit.Max <= 0 || c.Contact.RateLimit.Window <= 0 {
		return errors.New("contact rate limit max and window must be positive")
	}
	if c.Server.BodySizeLimit < MinBodySizeLimit || c.Server.BodySizeLimit > MaxBodySizeLimit {
		return fmt.Errorf("body size limit %d out of range [%d, %d]", c.Server.BodySizeLimit, MinBodySizeLimit, MaxBodySizeLimit)
	}
	return nil
}

var placeholderPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)

// expandString replaces ${VAR} and ${VAR:-default} placeholders.
// A placeholder without default whose variable is unset or empty is left untouched.
func expandString(s string) string {
	if s == "" {
		return s
	}
	return placeholderPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := placeholderPattern.FindStringSubmatch(match)
		name, hasDefault, def := parts[1], parts[2] != "", parts[3]
		if val := os.Getenv(name); val != "" {
			return val
		}
		if hasDefault {
			return def
		}
		return match
	})
}

// applyEnvOverrides maps well-known environment variables onto cfg.
func applyEnvOverrides(cfg *Config) error {
	setString("PORT", &cfg.Server.Port)
	setString("CORS_ALLOW_ORIGIN", &cfg.Server.CORSAllowOrigin)
	if v := os.Getenv("BODY_SIZE_LIMIT"); v != "" {
		limit, err := ParseBodySizeLimit(v)
		if err != nil {
			return err
		}
		cfg.Server.BodySizeLimit = limit
	}

	setString("LOG_LEVEL", &cfg.Logging.Level)
	setString("LOG_FORMAT", &cfg.Logging.Format)

	setString("METRICS_ENDPOINT", &cfg.Metrics.Endpoint)
	if err := setBool("METRICS_ENABLED", &cfg.Metrics.Enabled); err != nil {
		return err
	}

	setString("CACHE_TYPE", &cfg.Cache.Type)
	setString("REDIS_URL", &cfg.Cache.Redis.URL)
	setString("REDIS_KEY_PREFIX", &cfg.Cache.Redis.KeyPrefix)

	setString("FOLIO_API_URL", &cfg.Client.BaseURL)
	setString("FOLIO_USER_AGENT", &cfg.Client.UserAgent)

	setString("RESUME_FILE", &cfg.Resume.File)
	setString("RESUME_REMOTE_URL", &cfg.Resume.RemoteURL)

	setString("CONTACT_EMAIL", &cfg.Contact.Recipient)
	setString("MAIL_TYPE", &cfg.Contact.Mail.Type)
	setString("SMTP_HOST", &cfg.Contact.Mail.SMTP.Host)
	setString("SMTP_USERNAME", &cfg.Contact.Mail.SMTP.Username)
	setString("SMTP_PASSWORD", &cfg.Contact.Mail.SMTP.Password)
	setString("SMTP_FROM", &cfg.Contact.Mail.SMTP.From)
	if v := os.Getenv("MAIL_SIMULATED_FAILURE_RATE"); v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid MAIL_SIMULATED_FAILURE_RATE %q: %w", v, err)
		}
		cfg.Contact.Mail.SimulatedFailureRate = rate
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"CLIENT_TIMEOUT", &cfg.Client.Timeout},
		{"CLIENT_RETRIES", &cfg.Client.Retries},
		{"RESUME_CACHE_TTL", &cfg.Resume.CacheTTL},
		{"RESUME_STATS_CACHE_TTL", &cfg.Resume.StatsCacheTTL},
		{"CONTACT_RATE_LIMIT_MAX", &cfg.Contact.RateLimit.Max},
		{"CONTACT_RATE_LIMIT_WINDOW", &cfg.Contact.RateLimit.Window},
		{"SMTP_PORT", &cfg.Contact.Mail.SMTP.Port},
		{"ANALYTICS_MAX_EVENTS_PER_SESSION", &cfg.Analytics.MaxEventsPerSession},
		{"ANALYTICS_RECENT_LIMIT", &cfg.Analytics.RecentLimit},
		{"ANALYTICS_FLUSH_INTERVAL", &cfg.Analytics.FlushInterval},
		{"HTTP_TIMEOUT", &cfg.HTTP.Timeout},
		{"HTTP_RESPONSE_HEADER_TIMEOUT", &cfg.HTTP.ResponseHeaderTimeout},
	}
	for _, o := range ints {
		if err := setInt(o.key, o.dst); err != nil {
			return err
		}
	}

	return nil
}

func setString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = n
	return nil
}

func setBool(key string, dst *bool) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = b
	return nil
}

var bodySizePattern = regexp.MustCompile(`^(\d+)([KkMm][Bb]?)?$`)

// ParseBodySizeLimit parses sizes like "512K", "10MB" or a plain byte count,
// enforcing the [MinBodySizeLimit, MaxBodySizeLimit] range.
func ParseBodySizeLimit(s string) (int64, error) {
	s = strings.TrimSpace(s)
	m := bodySizePattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid body size limit %q: expected a number with optional K/M suffix", s)
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid body size limit %q: %w", s, err)
	}
	switch strings.TrimSuffix(strings.ToUpper(m[2]), "B") {
	case "K":
		n *= 1024
	case "M":
		n *= 1024 * 1024
	}
	if n < MinBodySizeLimit || n > MaxBodySizeLimit {
		return 0, fmt.Errorf("body size limit %q out of range [1K, 100M]", s)
	}
	return n, nil
}

// ValidateBodySizeLimit reports whether s is an acceptable BODY_SIZE_LIMIT value.
// An empty string is valid and means the default applies.
func ValidateBodySizeLimit(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	_, err := ParseBodySizeLimit(s)
	return err
}
