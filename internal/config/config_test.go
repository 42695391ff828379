package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWithDefaults(t *testing.T) {
	cfg, err := Load(context.Background(), WithEnvMap(map[string]string{}), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Addr() != ":8080" {
		t.Errorf("unexpected addr %s", cfg.Addr())
	}
	if cfg.Site.URL != defaultSiteURL {
		t.Errorf("expected default site url, got %s", cfg.Site.URL)
	}
	if cfg.Strapi.URL != "http://localhost:1337" || cfg.Strapi.Prefix != "/api" {
		t.Errorf("unexpected strapi config %+v", cfg.Strapi)
	}
	if cfg.State.DefaultCity != "Köln" {
		t.Errorf("expected default city Köln, got %s", cfg.State.DefaultCity)
	}
	if cfg.State.TTL != 30*time.Minute {
		t.Errorf("unexpected state ttl: %s", cfg.State.TTL)
	}
	if cfg.State.ResizeDebounce != 150*time.Millisecond {
		t.Errorf("unexpected resize debounce: %s", cfg.State.ResizeDebounce)
	}
	if cfg.Content.Timeout != 5*time.Second || cfg.Content.CacheTTL != time.Minute {
		t.Errorf("unexpected content config %+v", cfg.Content)
	}
	if cfg.Server.Environment != "local" || cfg.Server.Production() {
		t.Errorf("expected local environment, got %s", cfg.Server.Environment)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("unexpected log level %s", cfg.Log.Level)
	}
}

func TestLoadWithOverrides(t *testing.T) {
	env := map[string]string{
		"SITE_URL":                     "https://example.org/",
		"SITE_NAME":                    "Kaffee Atlas",
		"STRAPI_URL":                   "https://cms.example.org/",
		"STRAPI_PREFIX":                "v4",
		"STRAPI_TOKEN":                 "tok",
		"PORT":                         "9000",
		"CAFE_WEB_PORT":                "9090",
		"CAFE_WEB_READ_TIMEOUT":        "20s",
		"CAFE_WEB_DEV":                 "yes",
		"CAFE_WEB_ENV":                 "PROD",
		"CAFE_WEB_SESSION_SIGNING_KEY": "0123456789abcdef0123456789abcdef",
		"CAFE_WEB_DEFAULT_CITY":        "Berlin",
		"CAFE_WEB_STATE_TTL":           "10m",
		"CAFE_WEB_RESIZE_DEBOUNCE":     "bogus",
		"LOG_LEVEL":                    "DEBUG",
	}
	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("CAFE_WEB_PORT should win over PORT, got %s", cfg.Server.Port)
	}
	if cfg.Site.URL != "https://example.org" || cfg.Strapi.URL != "https://cms.example.org" {
		t.Errorf("trailing slashes should be trimmed: %s %s", cfg.Site.URL, cfg.Strapi.URL)
	}
	if cfg.Strapi.Prefix != "/v4" {
		t.Errorf("prefix should gain a leading slash, got %s", cfg.Strapi.Prefix)
	}
	if cfg.Server.ReadTimeout != 20*time.Second {
		t.Errorf("unexpected read timeout %s", cfg.Server.ReadTimeout)
	}
	if !cfg.Server.Dev || !cfg.Server.Production() {
		t.Errorf("expected dev + prod flags, got %+v", cfg.Server)
	}
	if cfg.State.DefaultCity != "Berlin" || cfg.State.TTL != 10*time.Minute {
		t.Errorf("unexpected state config %+v", cfg.State)
	}
	if cfg.State.ResizeDebounce != defaultResizeDebounce {
		t.Errorf("invalid duration should fall back, got %s", cfg.State.ResizeDebounce)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("unexpected log level %s", cfg.Log.Level)
	}
}

func TestLoadFromDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "# local overrides\nSITE_NAME=\"Café Test\"\nexport CAFE_WEB_DEFAULT_CITY=Bonn\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}
	cfg, err := Load(context.Background(), WithoutSystemEnv(), WithEnvFile(path),
		WithEnvMap(map[string]string{"CAFE_WEB_DEFAULT_CITY": "Aachen"}))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Site.Name != "Café Test" {
		t.Errorf("expected name from .env, got %q", cfg.Site.Name)
	}
	if cfg.State.DefaultCity != "Aachen" {
		t.Errorf("explicit map should override .env, got %q", cfg.State.DefaultCity)
	}
}

func TestLoadMissingDotEnvIsIgnored(t *testing.T) {
	_, err := Load(context.Background(), WithoutSystemEnv(), WithEnvFile(filepath.Join(t.TempDir(), "missing.env")))
	if err != nil {
		t.Fatalf("missing .env should be ignored, got %v", err)
	}
}

func TestLoadValidationErrors(t *testing.T) {
	env := map[string]string{
		"SITE_URL":           "cafefinder.de",
		"STRAPI_URL":         "ftp://cms",
		"CAFE_WEB_ENV":       "prod",
		"CAFE_WEB_STATE_TTL": "-1m",
	}
	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err == nil {
		t.Fatal("expected validation error")
	}
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	want := map[string]bool{"Site.URL": true, "Strapi.URL": true, "State.TTL": true, "Session.SigningKey": true}
	fields := vErr.Fields()
	if len(fields) != len(want) {
		t.Fatalf("unexpected fields %v", fields)
	}
	for _, f := range fields {
		if !want[f] {
			t.Errorf("unexpected field %s", f)
		}
	}
}
