package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name: "no categories",
			mutate: func(cfg *Config) {
				cfg.Categories = nil
			},
			wantErr: "category",
		},
		{
			name: "duplicate category",
			mutate: func(cfg *Config) {
				cfg.Categories = append(cfg.Categories, cfg.Categories[0])
			},
			wantErr: "duplicate",
		},
		{
			name: "empty base url",
			mutate: func(cfg *Config) {
				cfg.Categories[0].BaseURL = ""
			},
			wantErr: "base URL",
		},
		{
			name: "invalid url format",
			mutate: func(cfg *Config) {
				cfg.Categories[1].BaseURL = "http://"
			},
			wantErr: "base URL",
		},
		{
			name: "empty sentinel",
			mutate: func(cfg *Config) {
				cfg.Sentinel = "  "
			},
			wantErr: "sentinel",
		},
		{
			name: "empty selector",
			mutate: func(cfg *Config) {
				cfg.Selectors.FeatureList = ""
			},
			wantErr: "feature_list",
		},
		{
			name: "unknown required field",
			mutate: func(cfg *Config) {
				cfg.RequiredFields = []string{"title", "colour"}
			},
			wantErr: "colour",
		},
		{
			name: "negative timeout",
			mutate: func(cfg *Config) {
				cfg.Timeout = -1 * time.Second
			},
			wantErr: "timeout",
		},
		{
			name: "negative max pages",
			mutate: func(cfg *Config) {
				cfg.MaxPages = -1
			},
			wantErr: "max pages",
		},
		{
			name: "unknown format",
			mutate: func(cfg *Config) {
				cfg.OutputFormat = "xlsx"
			},
			wantErr: "output format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
	if got := len(cfg.Categories); got != 3 {
		t.Fatalf("categories=%d, want 3", got)
	}
	if cfg.MaxPages != 0 {
		t.Fatalf("pagination should be unbounded by default, got %d", cfg.MaxPages)
	}
}

func TestConfigHosts(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Categories = append(cfg.Categories, Category{Name: "D", BaseURL: "https://other.example/list?page="})

	hosts := cfg.Hosts()
	if len(hosts) != 2 || hosts[0] != "www.freeglisse.com" || hosts[1] != "other.example" {
		t.Fatalf("hosts=%v", hosts)
	}
}

func TestLoadWithoutFileReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Sentinel != DefaultSentinel {
		t.Fatalf("sentinel=%q", cfg.Sentinel)
	}
	if cfg.Selectors.Title != "h1" {
		t.Fatalf("title selector=%q", cfg.Selectors.Title)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("loaded defaults should validate, got %v", err)
	}
}

func TestLoadFileAndEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scraper.yaml")
	content := `
categories:
  - name: X
    label: Qualité X
    base_url: http://shop.test/list?page=
sentinel: No products
selectors:
  title: h1.product-title
max_pages: 7
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("SCRAPER_OUTPUT_FILE", "out/catalog.csv")
	t.Setenv("SCRAPER_FAIL_FAST", "true")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if len(cfg.Categories) != 1 || cfg.Categories[0].BaseURL != "http://shop.test/list?page=" {
		t.Fatalf("categories=%+v", cfg.Categories)
	}
	if cfg.Sentinel != "No products" {
		t.Fatalf("sentinel=%q", cfg.Sentinel)
	}
	if cfg.Selectors.Title != "h1.product-title" {
		t.Fatalf("title selector=%q", cfg.Selectors.Title)
	}
	if cfg.Selectors.Price != ".current-price-value" {
		t.Fatalf("price selector should keep its default, got %q", cfg.Selectors.Price)
	}
	if cfg.MaxPages != 7 {
		t.Fatalf("max pages=%d", cfg.MaxPages)
	}
	if cfg.OutputFile != "out/catalog.csv" {
		t.Fatalf("output file=%q", cfg.OutputFile)
	}
	if !cfg.FailFast {
		t.Fatalf("fail fast should come from the environment")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}
