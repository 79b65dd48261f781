package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("API_BASE_URL", "")
	t.Setenv("ASSETS", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.APIBaseURL != DefaultAPIBaseURL {
		t.Errorf("APIBaseURL = %q; want %q", cfg.APIBaseURL, DefaultAPIBaseURL)
	}
	if cfg.TickerInterval != 5*time.Second {
		t.Errorf("TickerInterval = %v; want 5s", cfg.TickerInterval)
	}
	if cfg.HistoryInterval != 10*time.Second {
		t.Errorf("HistoryInterval = %v; want 10s", cfg.HistoryInterval)
	}
	if cfg.ListLimit != 100 {
		t.Errorf("ListLimit = %d; want 100", cfg.ListLimit)
	}
	if cfg.StaleTime != 0 {
		t.Errorf("StaleTime = %v; want 0", cfg.StaleTime)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("API_BASE_URL", "http://localhost:9000/v1/")
	t.Setenv("ASSETS", " btc-bitcoin, ,eth-ethereum ")
	t.Setenv("TICKER_INTERVAL", "1s")
	t.Setenv("FETCH_RETRIES", "2")
	t.Setenv("METRICS_PORT", "9102")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.APIBaseURL != "http://localhost:9000/v1" {
		t.Errorf("APIBaseURL = %q", cfg.APIBaseURL)
	}
	want := []string{"btc-bitcoin", "eth-ethereum"}
	if !reflect.DeepEqual(cfg.Assets, want) {
		t.Errorf("Assets = %v; want %v", cfg.Assets, want)
	}
	if cfg.TickerInterval != time.Second {
		t.Errorf("TickerInterval = %v; want 1s", cfg.TickerInterval)
	}
	if cfg.Retries != 2 {
		t.Errorf("Retries = %d; want 2", cfg.Retries)
	}
	if cfg.MetricsPort != 9102 {
		t.Errorf("MetricsPort = %d; want 9102", cfg.MetricsPort)
	}
}

func TestLoad_InvalidBaseURL(t *testing.T) {
	t.Setenv("API_BASE_URL", "not a url")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid API_BASE_URL, got nil")
	}
}

func TestLoad_InvalidMetricsPort(t *testing.T) {
	t.Setenv("API_BASE_URL", "")
	t.Setenv("METRICS_PORT", "abc")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid METRICS_PORT, got nil")
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "coinwatch.yaml")
	content := []byte(`
api:
  base_url: https://example.test/v1
refresh:
  ticker: 2s
  history: 30s
assets:
  - btc-bitcoin
list_limit: 25
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("API_BASE_URL", "")
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.APIBaseURL != "https://example.test/v1" {
		t.Errorf("APIBaseURL = %q", cfg.APIBaseURL)
	}
	if cfg.TickerInterval != 2*time.Second || cfg.HistoryInterval != 30*time.Second {
		t.Errorf("intervals = %v/%v; want 2s/30s", cfg.TickerInterval, cfg.HistoryInterval)
	}
	if !reflect.DeepEqual(cfg.Assets, []string{"btc-bitcoin"}) {
		t.Errorf("Assets = %v", cfg.Assets)
	}
	if cfg.ListLimit != 25 {
		t.Errorf("ListLimit = %d; want 25", cfg.ListLimit)
	}
}

func TestLoad_BadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("refresh:\n  ticker: soon\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("API_BASE_URL", "")
	t.Setenv("CONFIG_FILE", path)

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unparsable duration, got nil")
	}
}

func TestSplitAndTrim(t *testing.T) {
	in := " a , ,b ,c"
	got := splitAndTrim(in, ",")
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("splitAndTrim = %v; want %v", got, want)
	}
}
