package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aluiziolira/go-scrape-catalog/models"
)

// DefaultSentinel is the text the target site renders past the last listing page.
const DefaultSentinel = "Aucun produit disponible pour le moment"

// Category is one paginated listing. Page numbers are appended to BaseURL.
type Category struct {
	Name    string `mapstructure:"name"`
	Label   string `mapstructure:"label"`
	BaseURL string `mapstructure:"base_url"`
}

// Selectors locate the pieces of listing and product pages.
type Selectors struct {
	ListingItem   string `mapstructure:"listing_item"`
	ListingLink   string `mapstructure:"listing_link"`
	Price         string `mapstructure:"price"`
	Reference     string `mapstructure:"reference"`
	ReferenceText string `mapstructure:"reference_text"`
	Title         string `mapstructure:"title"`
	FeatureList   string `mapstructure:"feature_list"`
	BrandImage    string `mapstructure:"brand_image"`
}

// Config holds scraper configuration.
type Config struct {
	Categories       []Category        `mapstructure:"categories"`
	Headers          map[string]string `mapstructure:"headers"`
	UserAgent        string            `mapstructure:"user_agent"`
	Timeout          time.Duration     `mapstructure:"timeout"`
	Sentinel         string            `mapstructure:"sentinel"`
	Selectors        Selectors         `mapstructure:"selectors"`
	RequiredFields   []string          `mapstructure:"required_fields"`
	MaxPages         int               `mapstructure:"max_pages"`
	RepeatGuardSize  int               `mapstructure:"repeat_guard_size"`
	FailFast         bool              `mapstructure:"fail_fast"`
	OutputFile       string            `mapstructure:"output_file"`
	OutputFormat     string            `mapstructure:"output_format"` // csv, json, or dual
	MetricsAddr      string            `mapstructure:"metrics_addr"`
	Verbose          bool              `mapstructure:"verbose"`
	RespectRobotsTxt bool              `mapstructure:"respect_robots_txt"`
}

// DefaultSelectors returns the selectors of the freeglisse.com theme.
func DefaultSelectors() Selectors {
	return Selectors{
		ListingItem:   "article[data-id-product]",
		ListingLink:   `a[class="thumbnail product-thumbnail"]`,
		Price:         ".current-price-value",
		Reference:     "div.product-reference.rb-tag-cate",
		ReferenceText: "span",
		Title:         "h1",
		FeatureList:   "dl.data-sheet",
		BrandImage:    "img.img.img-thumbnail.manufacturer-logo",
	}
}

// DefaultConfig returns the settings of the original freeglisse.com export.
func DefaultConfig() *Config {
	return &Config{
		Categories: []Category{
			{Name: "A", Label: "Qualité A", BaseURL: "https://www.freeglisse.com/occasion/ski-occasion/ski-qualite-a?page="},
			{Name: "B", Label: "Qualité B", BaseURL: "https://www.freeglisse.com/occasion/ski-occasion/ski-qualite-b?page="},
			{Name: "C", Label: "Qualité C", BaseURL: "https://www.freeglisse.com/occasion/ski-occasion/ski-qualite-c?page="},
		},
		Headers: map[string]string{
			"Accept-Language": "fr-FR,fr;q=0.9,en;q=0.8",
		},
		UserAgent:        "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
		Timeout:          30 * time.Second,
		Sentinel:         DefaultSentinel,
		Selectors:        DefaultSelectors(),
		RequiredFields:   []string{string(models.FieldTitle), string(models.FieldFeatures)},
		MaxPages:         0,
		RepeatGuardSize:  0,
		FailFast:         false,
		OutputFile:       "freeglisse_export.csv",
		OutputFormat:     "csv",
		Verbose:          false,
		RespectRobotsTxt: false,
	}
}

// DisplayLabel is the value written to the category column.
func (c Category) DisplayLabel() string {
	if c.Label != "" {
		return c.Label
	}
	return c.Name
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if len(c.Categories) == 0 {
		return fmt.Errorf("at least one category is required")
	}
	seen := make(map[string]struct{}, len(c.Categories))
	for i, cat := range c.Categories {
		if strings.TrimSpace(cat.Name) == "" {
			return fmt.Errorf("category %d: name cannot be empty", i)
		}
		if _, ok := seen[cat.Name]; ok {
			return fmt.Errorf("category %q: duplicate name", cat.Name)
		}
		seen[cat.Name] = struct{}{}

		if cat.BaseURL == "" {
			return fmt.Errorf("category %q: base URL cannot be empty", cat.Name)
		}
		parsedURL, err := url.Parse(cat.BaseURL)
		if err != nil {
			return fmt.Errorf("category %q: invalid base URL: %w", cat.Name, err)
		}
		if parsedURL.Host == "" {
			return fmt.Errorf("category %q: base URL must include a host", cat.Name)
		}
	}

	if strings.TrimSpace(c.Sentinel) == "" {
		return fmt.Errorf("sentinel cannot be empty")
	}
	if err := c.Selectors.validate(); err != nil {
		return err
	}
	for _, name := range c.RequiredFields {
		if !knownField(name) {
			return fmt.Errorf("required field %q is not a known field", name)
		}
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxPages < 0 {
		return fmt.Errorf("max pages cannot be negative")
	}
	if c.RepeatGuardSize < 0 {
		return fmt.Errorf("repeat guard size cannot be negative")
	}
	if c.OutputFile == "" {
		return fmt.Errorf("output file cannot be empty")
	}
	if c.OutputFormat != "csv" && c.OutputFormat != "json" && c.OutputFormat != "dual" {
		return fmt.Errorf("output format must be csv, json, or dual")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}

	return nil
}

// Hosts returns the distinct host names (without port) of all category base URLs.
func (c *Config) Hosts() []string {
	var hosts []string
	seen := make(map[string]struct{})
	for _, cat := range c.Categories {
		parsed, err := url.Parse(cat.BaseURL)
		if err != nil || parsed.Hostname() == "" {
			continue
		}
		host := parsed.Hostname()
		if _, ok := seen[host]; ok {
			continue
		}
		seen[host] = struct{}{}
		hosts = append(hosts, host)
	}
	return hosts
}

func (s Selectors) validate() error {
	checks := []struct {
		name  string
		value string
	}{
		{"listing_item", s.ListingItem},
		{"listing_link", s.ListingLink},
		{"price", s.Price},
		{"reference", s.Reference},
		{"reference_text", s.ReferenceText},
		{"title", s.Title},
		{"feature_list", s.FeatureList},
		{"brand_image", s.BrandImage},
	}
	for _, check := range checks {
		if strings.TrimSpace(check.value) == "" {
			return fmt.Errorf("selector %s cannot be empty", check.name)
		}
	}
	return nil
}

func knownField(name string) bool {
	for _, field := range models.Fields {
		if string(field) == name {
			return true
		}
	}
	return false
}
