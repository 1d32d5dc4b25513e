// Package config loads service settings from defaults, an optional YAML
// file and THEME_SETUP_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mohammadpnp/theme-setup/internal/application/onboarding"
	"github.com/spf13/viper"
)

const (
	EnvPrefix = "THEME_SETUP"
	// EnvConfigFile names the YAML file when no --config flag is given.
	EnvConfigFile = "THEME_SETUP_CONFIG"
)

var ErrMissingDatabaseURL = errors.New("database.url is required")

type Config struct {
	Log      LogConfig         `mapstructure:"log"`
	HTTP     HTTPConfig        `mapstructure:"http"`
	Database DatabaseConfig    `mapstructure:"database"`
	Redis    RedisConfig       `mapstructure:"redis"`
	Auth     AuthConfig        `mapstructure:"auth"`
	Theme    ThemeConfig       `mapstructure:"theme"`
	WXR      WXRConfig         `mapstructure:"wxr"`
	Import   ImportConfig      `mapstructure:"import"`
	Jobs     JobsConfig        `mapstructure:"jobs"`
	Paths    PathsConfig       `mapstructure:"paths"`
	License  LicenseConfig     `mapstructure:"license"`
	Plugins  PluginsConfig     `mapstructure:"plugins"`
	Demos    []onboarding.Demo `mapstructure:"demos"`
}

type LogConfig struct {
	Development bool `mapstructure:"development"`
}

type HTTPConfig struct {
	Port      int    `mapstructure:"port"`
	BodyLimit string `mapstructure:"body_limit"`
}

type DatabaseConfig struct {
	URL string `mapstructure:"url"`
	// Driver is postgres or sqlite.
	Driver string `mapstructure:"driver"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type AuthConfig struct {
	NonceSecret string `mapstructure:"nonce_secret"`
}

type ThemeConfig struct {
	Slug        string            `mapstructure:"slug"`
	Name        string            `mapstructure:"name"`
	Stylesheet  string            `mapstructure:"stylesheet"`
	Sidebars    map[string]string `mapstructure:"sidebars"`
	Widgets     map[string]string `mapstructure:"widgets"`
	PostTypes   []string          `mapstructure:"post_types"`
	Taxonomies  []string          `mapstructure:"taxonomies"`
	WooCommerce bool              `mapstructure:"woocommerce"`
}

type WXRConfig struct {
	Strategy    string `mapstructure:"strategy"`
	DOMMaxBytes int64  `mapstructure:"dom_max_bytes"`
}

type ImportConfig struct {
	PostsPerChunk      int           `mapstructure:"posts_per_chunk"`
	MapTTL             time.Duration `mapstructure:"map_ttl"`
	BaseNameTTL        time.Duration `mapstructure:"base_name_ttl"`
	AttachmentMaxBytes int64         `mapstructure:"attachment_max_bytes"`
	HTTPTimeout        time.Duration `mapstructure:"http_timeout"`
	DownloadTimeout    time.Duration `mapstructure:"download_timeout"`
	HomePageTitle      string        `mapstructure:"home_page_title"`
	BlogPageTitle      string        `mapstructure:"blog_page_title"`
	AfterImport        bool          `mapstructure:"after_import"`
	CurrentUserID      int64         `mapstructure:"current_user_id"`
}

type JobsConfig struct {
	Workers       int           `mapstructure:"workers"`
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	LeaseDuration time.Duration `mapstructure:"lease_duration"`
	// BaseDir resolves the source paths of queued jobs.
	BaseDir string `mapstructure:"base_dir"`
}

type PathsConfig struct {
	Uploads   string `mapstructure:"uploads"`
	Downloads string `mapstructure:"downloads"`
	BaseURL   string `mapstructure:"base_url"`
	// Demos resolves the local files of the demo registry.
	Demos string `mapstructure:"demos"`
}

type LicenseConfig struct {
	APIURL    string `mapstructure:"api_url"`
	ItemName  string `mapstructure:"item_name"`
	ThemeSlug string `mapstructure:"theme_slug"`
	HomeURL   string `mapstructure:"home_url"`
}

type PluginsConfig struct {
	TGMPAURL string              `mapstructure:"tgmpa_url"`
	Menu     string              `mapstructure:"menu"`
	Items    []onboarding.Plugin `mapstructure:"items"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.development", false)
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.body_limit", "64M")
	v.SetDefault("database.url", "")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("redis.host", "")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "theme-setup")
	v.SetDefault("auth.nonce_secret", "")
	v.SetDefault("theme.slug", "theme")
	v.SetDefault("theme.name", "Theme")
	v.SetDefault("theme.stylesheet", "theme")
	v.SetDefault("theme.woocommerce", false)
	v.SetDefault("wxr.strategy", "auto")
	v.SetDefault("wxr.dom_max_bytes", int64(32<<20))
	v.SetDefault("import.posts_per_chunk", onboarding.DefaultPostsPerChunk)
	v.SetDefault("import.map_ttl", 24*time.Hour)
	v.SetDefault("import.base_name_ttl", onboarding.DefaultBaseNameTTL)
	v.SetDefault("import.attachment_max_bytes", int64(8<<20))
	v.SetDefault("import.http_timeout", 120*time.Second)
	v.SetDefault("import.download_timeout", 20*time.Second)
	v.SetDefault("import.home_page_title", "Home")
	v.SetDefault("import.blog_page_title", "Blog")
	v.SetDefault("import.after_import", true)
	v.SetDefault("import.current_user_id", 1)
	v.SetDefault("jobs.workers", 1)
	v.SetDefault("jobs.poll_interval", 500*time.Millisecond)
	v.SetDefault("jobs.lease_duration", 60*time.Second)
	v.SetDefault("jobs.base_dir", ".")
	v.SetDefault("paths.uploads", "./uploads")
	v.SetDefault("paths.downloads", "")
	v.SetDefault("paths.base_url", "")
	v.SetDefault("paths.demos", ".")
	v.SetDefault("license.api_url", "")
	v.SetDefault("license.item_name", "")
	v.SetDefault("license.theme_slug", "")
	v.SetDefault("license.home_url", "")
	v.SetDefault("plugins.tgmpa_url", "")
	v.SetDefault("plugins.menu", "tgmpa-install-plugins")
}

// Load reads the configuration. path may be empty, in which case
// THEME_SETUP_CONFIG is consulted; with neither only defaults and the
// environment apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = v.GetString("config")
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if cfg.Paths.Downloads == "" {
		cfg.Paths.Downloads = cfg.Paths.Uploads
	}
	if cfg.License.ThemeSlug == "" {
		cfg.License.ThemeSlug = cfg.Theme.Slug
	}
	return &cfg, nil
}

// RequireDatabase reports a missing database URL.
func (c *Config) RequireDatabase() error {
	if strings.TrimSpace(c.Database.URL) == "" {
		return ErrMissingDatabaseURL
	}
	return nil
}
