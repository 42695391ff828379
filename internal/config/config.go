package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultEnvFile         = ".env"
	defaultPort            = "8080"
	defaultReadTimeout     = 15 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultSiteURL         = "https://cafefinder.de"
	defaultSiteName        = "Café Finder"
	defaultSiteDescription = "Cafés, Speisekarten und Kaffeespezialitäten in deiner Stadt."
	defaultSiteLanguage    = "de"
	defaultStrapiURL       = "http://localhost:1337"
	defaultStrapiPrefix    = "/api"
	defaultEnvironment     = "local"
	defaultCity            = "Köln"
	defaultContentTimeout  = 5 * time.Second
	defaultContentCacheTTL = time.Minute
	defaultStateTTL        = 30 * time.Minute
	defaultResizeDebounce  = 150 * time.Millisecond
	defaultTemplatesDir    = "templates"
	defaultPublicDir       = "public"
	defaultContentDir      = "content"
	defaultLocalesDir      = "locales"
	defaultLogLevel        = "info"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Site    SiteConfig
	Strapi  StrapiConfig
	Server  ServerConfig
	Content ContentConfig
	State   StateConfig
	Session SessionConfig
	Paths   PathConfig
	Log     LogConfig
}

// SiteConfig holds the public identity of the site used in head tags,
// sitemap and robots output.
type SiteConfig struct {
	URL         string
	Name        string
	Description string
	Language    string
}

// StrapiConfig points at the content API.
type StrapiConfig struct {
	URL    string
	Prefix string
	Token  string
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	Dev          bool
	Environment  string
}

// Production reports whether the server runs in the prod environment.
func (s ServerConfig) Production() bool {
	return s.Environment == "prod"
}

// ContentConfig controls remote content fetching.
type ContentConfig struct {
	Timeout  time.Duration
	CacheTTL time.Duration
}

// StateConfig controls per-visitor directory and menu state.
type StateConfig struct {
	TTL            time.Duration
	DefaultCity    string
	ResizeDebounce time.Duration
}

// SessionConfig controls the signed session cookie.
type SessionConfig struct {
	SigningKey string
}

// PathConfig lists on-disk locations of templates and assets.
type PathConfig struct {
	Templates string
	Public    string
	Content   string
	Locales   string
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level string
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file path used for local overrides. An empty
// path disables the file.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values in the map
// take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from the process environment, relying only on provided maps and .env files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load assembles the application configuration by combining defaults, .env overrides,
// environment variables and an optional explicit map.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	if err := ctx.Err(); err != nil {
		return Config{}, err
	}
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if dotEnvValues != nil {
			if value, ok := dotEnvValues[key]; ok {
				return value, true
			}
		}
		return "", false
	}

	port := stringWithDefault(lookup, "CAFE_WEB_PORT", "")
	if port == "" {
		port = stringWithDefault(lookup, "PORT", defaultPort)
	}

	cfg := Config{
		Site: SiteConfig{
			URL:         strings.TrimRight(stringWithDefault(lookup, "SITE_URL", defaultSiteURL), "/"),
			Name:        stringWithDefault(lookup, "SITE_NAME", defaultSiteName),
			Description: stringWithDefault(lookup, "SITE_DESCRIPTION", defaultSiteDescription),
			Language:    strings.ToLower(stringWithDefault(lookup, "SITE_LANGUAGE", defaultSiteLanguage)),
		},
		Strapi: StrapiConfig{
			URL:    strings.TrimRight(stringWithDefault(lookup, "STRAPI_URL", defaultStrapiURL), "/"),
			Prefix: stringWithDefault(lookup, "STRAPI_PREFIX", defaultStrapiPrefix),
			Token:  stringWithDefault(lookup, "STRAPI_TOKEN", ""),
		},
		Server: ServerConfig{
			Port:         port,
			ReadTimeout:  durationWithDefault(lookup, "CAFE_WEB_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: durationWithDefault(lookup, "CAFE_WEB_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  durationWithDefault(lookup, "CAFE_WEB_IDLE_TIMEOUT", defaultIdleTimeout),
			Dev:          boolWithDefault(lookup, "CAFE_WEB_DEV", false),
			Environment:  strings.ToLower(stringWithDefault(lookup, "CAFE_WEB_ENV", defaultEnvironment)),
		},
		Content: ContentConfig{
			Timeout:  durationWithDefault(lookup, "CAFE_WEB_CONTENT_TIMEOUT", defaultContentTimeout),
			CacheTTL: durationWithDefault(lookup, "CAFE_WEB_CONTENT_CACHE_TTL", defaultContentCacheTTL),
		},
		State: StateConfig{
			TTL:            durationWithDefault(lookup, "CAFE_WEB_STATE_TTL", defaultStateTTL),
			DefaultCity:    stringWithDefault(lookup, "CAFE_WEB_DEFAULT_CITY", defaultCity),
			ResizeDebounce: durationWithDefault(lookup, "CAFE_WEB_RESIZE_DEBOUNCE", defaultResizeDebounce),
		},
		Session: SessionConfig{
			SigningKey: stringWithDefault(lookup, "CAFE_WEB_SESSION_SIGNING_KEY", ""),
		},
		Paths: PathConfig{
			Templates: stringWithDefault(lookup, "CAFE_WEB_TEMPLATES", defaultTemplatesDir),
			Public:    stringWithDefault(lookup, "CAFE_WEB_PUBLIC", defaultPublicDir),
			Content:   stringWithDefault(lookup, "CAFE_WEB_CONTENT_DIR", defaultContentDir),
			Locales:   stringWithDefault(lookup, "CAFE_WEB_LOCALES", defaultLocalesDir),
		},
		Log: LogConfig{
			Level: strings.ToLower(stringWithDefault(lookup, "LOG_LEVEL", defaultLogLevel)),
		},
	}

	if !strings.HasPrefix(cfg.Strapi.Prefix, "/") {
		cfg.Strapi.Prefix = "/" + cfg.Strapi.Prefix
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg Config) error {
	var missing []string

	if cfg.Server.Port == "" {
		missing = append(missing, "Server.Port")
	}
	if !absoluteURL(cfg.Site.URL) {
		missing = append(missing, "Site.URL")
	}
	if !absoluteURL(cfg.Strapi.URL) {
		missing = append(missing, "Strapi.URL")
	}
	if cfg.Server.ReadTimeout <= 0 {
		missing = append(missing, "Server.ReadTimeout")
	}
	if cfg.Server.WriteTimeout <= 0 {
		missing = append(missing, "Server.WriteTimeout")
	}
	if cfg.Content.Timeout <= 0 {
		missing = append(missing, "Content.Timeout")
	}
	if cfg.State.TTL <= 0 {
		missing = append(missing, "State.TTL")
	}
	if strings.TrimSpace(cfg.State.DefaultCity) == "" {
		missing = append(missing, "State.DefaultCity")
	}
	if cfg.Server.Production() && len(cfg.Session.SigningKey) < 32 {
		missing = append(missing, "Session.SigningKey")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func absoluteURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}
	values, err := godotenv.Read(absPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		d, err := time.ParseDuration(strings.TrimSpace(value))
		if err == nil {
			return d
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}

// Addr returns the listen address for the configured port.
func (c Config) Addr() string {
	if _, err := strconv.Atoi(c.Server.Port); err == nil {
		return ":" + c.Server.Port
	}
	return c.Server.Port
}
