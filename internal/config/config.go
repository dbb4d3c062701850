package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultAPIURL         = "http://127.0.0.1:8000"
	DefaultListenAddr     = "127.0.0.1:8000"
	DefaultRequestTimeout = 30 * time.Second
	DefaultSuccessFlagTTL = 5 * time.Second

	MinSuccessFlagTTL = 4 * time.Second
	MaxSuccessFlagTTL = 5 * time.Second
)

// ErrInvalidConfig is wrapped by every validation failure in Load.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds all studyplan settings.
type Config struct {
	APIURL             string        `mapstructure:"api_url"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout"`
	SuccessFlagTTL     time.Duration `mapstructure:"success_flag_ttl"`
	LogLevel           string        `mapstructure:"log_level"`
	Env                string        `mapstructure:"env"`
	ExportDir          string        `mapstructure:"export_dir"`
	ListenAddr         string        `mapstructure:"listen_addr"`
	RateLimitPerMinute int           `mapstructure:"rate_limit_per_minute"`
	Trace              string        `mapstructure:"trace"`
	OTLPEndpoint       string        `mapstructure:"otlp_endpoint"`
	OTLPInsecure       bool          `mapstructure:"otlp_insecure"`

	// Source is the config file that was read, empty when none was found.
	Source string `mapstructure:"-"`
}

// Load resolves the configuration. extraDirs are searched for
// config.yaml after the studyplan root; overrides are applied last and
// take precedence over files and environment (used for CLI flags).
func Load(paths *Paths, overrides map[string]any, extraDirs ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if paths != nil {
		v.AddConfigPath(paths.Root)
	}
	for _, dir := range extraDirs {
		v.AddConfigPath(dir)
	}

	v.SetEnvPrefix("STUDYPLAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("api_url", DefaultAPIURL)
	v.SetDefault("request_timeout", DefaultRequestTimeout)
	v.SetDefault("success_flag_ttl", DefaultSuccessFlagTTL)
	v.SetDefault("log_level", "")
	v.SetDefault("env", "development")
	v.SetDefault("export_dir", "")
	v.SetDefault("listen_addr", DefaultListenAddr)
	v.SetDefault("rate_limit_per_minute", 120)
	v.SetDefault("trace", "off")
	v.SetDefault("otlp_endpoint", "")
	v.SetDefault("otlp_insecure", false)

	source := ""
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		source = v.ConfigFileUsed()
	}

	for k, val := range overrides {
		v.Set(k, val)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.Source = source
	cfg.APIURL = strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the resolved settings.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: api_url %q must be an absolute http(s) URL", ErrInvalidConfig, c.APIURL)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%w: request_timeout must be positive", ErrInvalidConfig)
	}
	if c.SuccessFlagTTL < MinSuccessFlagTTL || c.SuccessFlagTTL > MaxSuccessFlagTTL {
		return fmt.Errorf("%w: success_flag_ttl must be between %s and %s", ErrInvalidConfig, MinSuccessFlagTTL, MaxSuccessFlagTTL)
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("%w: rate_limit_per_minute must be positive", ErrInvalidConfig)
	}
	switch c.Trace {
	case "off", "stdout", "otlp":
	default:
		return fmt.Errorf("%w: trace must be off, stdout or otlp, got %q", ErrInvalidConfig, c.Trace)
	}
	return nil
}

// LogLevelOr returns the configured log level, or def when none was set.
func (c *Config) LogLevelOr(def string) string {
	if lvl := strings.TrimSpace(c.LogLevel); lvl != "" {
		return lvl
	}
	return def
}

// IsProduction reports whether env is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production") || strings.EqualFold(c.Env, "prod")
}
