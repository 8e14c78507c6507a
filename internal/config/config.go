package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	BodyFormatText     = "text"
	BodyFormatMarkdown = "markdown"
)

type Config struct {
	ListenAddr string `yaml:"listen_addr"`
	StaticDir  string `yaml:"static_dir"`

	APIBaseURL string        `yaml:"api_base_url"`
	APITimeout time.Duration `yaml:"api_timeout"`

	BodyFormat string `yaml:"body_format"`

	// SiteURL is this site's public origin. Markdown links to it stay in the app.
	SiteURL        string `yaml:"site_url"`
	CodeThemeLight string `yaml:"code_theme_light"`
	CodeThemeDark  string `yaml:"code_theme_dark"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	CacheHTML           string `yaml:"cache_html"`
	CacheLiveNavigation string `yaml:"cache_live_navigation"`

	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

func Default() Config {
	return Config{
		ListenAddr:      ":8080",
		APIBaseURL:      "https://jsonplaceholder.typicode.com",
		APITimeout:      15 * time.Second,
		BodyFormat:      BodyFormatText,
		LogLevel:        "info",
		LogFormat:       "console",
		ShutdownTimeout: 10 * time.Second,
	}
}

// Load returns defaults overlaid with the optional YAML file and then the
// POSTBOARD_* environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if strings.TrimSpace(path) != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}

	cfg.applyEnv()
	cfg.Normalize()
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	return nil
}

func (c *Config) applyEnv() {
	c.ListenAddr = getEnv("POSTBOARD_LISTEN_ADDR", c.ListenAddr)
	c.StaticDir = getEnv("POSTBOARD_STATIC_DIR", c.StaticDir)
	c.APIBaseURL = getEnv("POSTBOARD_API_BASE_URL", c.APIBaseURL)
	c.APITimeout = getEnvDuration("POSTBOARD_API_TIMEOUT", c.APITimeout)
	c.BodyFormat = getEnv("POSTBOARD_BODY_FORMAT", c.BodyFormat)
	c.SiteURL = getEnv("POSTBOARD_SITE_URL", c.SiteURL)
	c.CodeThemeLight = getEnv("POSTBOARD_CODE_THEME_LIGHT", c.CodeThemeLight)
	c.CodeThemeDark = getEnv("POSTBOARD_CODE_THEME_DARK", c.CodeThemeDark)
	c.LogLevel = getEnv("POSTBOARD_LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("POSTBOARD_LOG_FORMAT", c.LogFormat)
	c.CacheHTML = getEnv("POSTBOARD_CACHE_HTML", c.CacheHTML)
	c.CacheLiveNavigation = getEnv("POSTBOARD_CACHE_LIVE_NAV", c.CacheLiveNavigation)
	c.ShutdownTimeout = getEnvDuration("POSTBOARD_SHUTDOWN_TIMEOUT", c.ShutdownTimeout)
}

// Normalize trims every value and lowercases the enumerated ones, so
// "Markdown" from a flag, the file or the environment all mean the same thing.
func (c *Config) Normalize() {
	c.ListenAddr = strings.TrimSpace(c.ListenAddr)
	c.StaticDir = strings.TrimSpace(c.StaticDir)
	c.APIBaseURL = strings.TrimSpace(c.APIBaseURL)
	c.BodyFormat = strings.ToLower(strings.TrimSpace(c.BodyFormat))
	c.SiteURL = strings.TrimSpace(c.SiteURL)
	c.CodeThemeLight = strings.ToLower(strings.TrimSpace(c.CodeThemeLight))
	c.CodeThemeDark = strings.ToLower(strings.TrimSpace(c.CodeThemeDark))
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	c.CacheHTML = strings.TrimSpace(c.CacheHTML)
	c.CacheLiveNavigation = strings.TrimSpace(c.CacheLiveNavigation)
}

// Validate checks the normalized form of c.
func (c Config) Validate() error {
	c.Normalize()
	var errs []error

	if c.ListenAddr == "" {
		errs = append(errs, errors.New("listen_addr is required"))
	}

	parsed, err := url.Parse(c.APIBaseURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		errs = append(errs, fmt.Errorf("api_base_url %q must be an absolute http(s) url", c.APIBaseURL))
	}

	if c.SiteURL != "" {
		site, err := url.Parse(c.SiteURL)
		if err != nil || (site.Scheme != "http" && site.Scheme != "https") || site.Host == "" {
			errs = append(errs, fmt.Errorf("site_url %q must be an absolute http(s) url", c.SiteURL))
		}
	}

	if c.APITimeout <= 0 {
		errs = append(errs, errors.New("api_timeout must be positive"))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("shutdown_timeout must be positive"))
	}

	switch c.BodyFormat {
	case BodyFormatText, BodyFormatMarkdown:
	default:
		errs = append(errs, fmt.Errorf("body_format %q must be %q or %q", c.BodyFormat, BodyFormatText, BodyFormatMarkdown))
	}

	return errors.Join(errs...)
}

func getEnv(key string, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	return value
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return fallback
	}

	return parsed
}
