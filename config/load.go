package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. SCRAPER_OUTPUT_FILE.
const EnvPrefix = "SCRAPER"

// Load builds a Config from defaults, an optional config file and SCRAPER_*
// environment variables, in increasing order of precedence. An empty path
// skips the file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, cfg)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %q: %w", path, err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("categories", cfg.Categories)
	v.SetDefault("headers", cfg.Headers)
	v.SetDefault("user_agent", cfg.UserAgent)
	v.SetDefault("timeout", cfg.Timeout)
	v.SetDefault("sentinel", cfg.Sentinel)
	v.SetDefault("required_fields", cfg.RequiredFields)
	v.SetDefault("max_pages", cfg.MaxPages)
	v.SetDefault("repeat_guard_size", cfg.RepeatGuardSize)
	v.SetDefault("fail_fast", cfg.FailFast)
	v.SetDefault("output_file", cfg.OutputFile)
	v.SetDefault("output_format", cfg.OutputFormat)
	v.SetDefault("metrics_addr", cfg.MetricsAddr)
	v.SetDefault("verbose", cfg.Verbose)
	v.SetDefault("respect_robots_txt", cfg.RespectRobotsTxt)

	v.SetDefault("selectors.listing_item", cfg.Selectors.ListingItem)
	v.SetDefault("selectors.listing_link", cfg.Selectors.ListingLink)
	v.SetDefault("selectors.price", cfg.Selectors.Price)
	v.SetDefault("selectors.reference", cfg.Selectors.Reference)
	v.SetDefault("selectors.reference_text", cfg.Selectors.ReferenceText)
	v.SetDefault("selectors.title", cfg.Selectors.Title)
	v.SetDefault("selectors.feature_list", cfg.Selectors.FeatureList)
	v.SetDefault("selectors.brand_image", cfg.Selectors.BrandImage)
}
