// File: internal/config/config.go
package config

import (
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config is the full application configuration, populated from
// config.yaml and DEALPILOT_* environment variables.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger"`
	Device    DeviceConfig    `mapstructure:"device"`
	Oracle    OracleConfig    `mapstructure:"oracle"`
	Search    SearchConfig    `mapstructure:"search"`
	Optimizer OptimizerConfig `mapstructure:"optimizer"`
	Cart      CartConfig      `mapstructure:"cart"`
}

// LoggerConfig controls the zap logger setup.
type LoggerConfig struct {
	Level       string `mapstructure:"level"`
	Format      string `mapstructure:"format"` // "console" or "json"
	ServiceName string `mapstructure:"service_name"`
	LogFile     string `mapstructure:"log_file"`
	MaxSize     int    `mapstructure:"max_size"` // megabytes, per lumberjack
	MaxBackups  int    `mapstructure:"max_backups"`
	MaxAge      int    `mapstructure:"max_age"` // days
	Compress    bool   `mapstructure:"compress"`
	AddSource   bool   `mapstructure:"add_source"`
}

// DeviceConfig identifies the Android device and where transient
// screenshots live.
type DeviceConfig struct {
	ADBPath       string `mapstructure:"adb_path"`
	Serial        string `mapstructure:"serial"`
	ScreenshotDir string `mapstructure:"screenshot_dir"`
}

// OracleConfig configures the Gemini vision oracle.
type OracleConfig struct {
	Model          string        `mapstructure:"model"`
	APIKey         string        `mapstructure:"api_key"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	RPS            float64       `mapstructure:"rps"`
	Burst          int           `mapstructure:"burst"`
}

// SearchConfig configures the Serper shopping search.
type SearchConfig struct {
	APIKey           string        `mapstructure:"api_key"`
	ShoppingEndpoint string        `mapstructure:"shopping_endpoint"`
	SearchEndpoint   string        `mapstructure:"search_endpoint"`
	Timeout          time.Duration `mapstructure:"timeout"`
	MaxResults       int           `mapstructure:"max_results"`
	Sites            []string      `mapstructure:"sites"`
	Country          string        `mapstructure:"country"`
	Language         string        `mapstructure:"language"`
}

// OptimizerConfig bounds the control loop and sets the blind settle delays
// after UI-affecting actions. The delays are empirical; tests set them to
// zero.
type OptimizerConfig struct {
	MaxIterations      int           `mapstructure:"max_iterations"`
	MaxScrolls         int           `mapstructure:"max_scrolls"`
	StockRevealScrolls int           `mapstructure:"stock_reveal_scrolls"`
	IterationSettle    time.Duration `mapstructure:"iteration_settle"`
	TapSettle          time.Duration `mapstructure:"tap_settle"`
	ScrollSettle       time.Duration `mapstructure:"scroll_settle"`
	ReloadSettle       time.Duration `mapstructure:"reload_settle"`
	InitialLoadWait    time.Duration `mapstructure:"initial_load_wait"`
}

// CartConfig parameterizes the cart finalizer's blind fallback.
type CartConfig struct {
	FallbackScrolls int `mapstructure:"fallback_scrolls"`
	FallbackTapX    int `mapstructure:"fallback_tap_x"`
	FallbackTapY    int `mapstructure:"fallback_tap_y"`
}

// SetDefaults registers the default value for every key so a missing
// config file still produces a runnable setup.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.service_name", "dealpilot")
	v.SetDefault("logger.max_size", 10)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 7)

	v.SetDefault("device.adb_path", "adb")

	v.SetDefault("oracle.model", "gemini-2.5-flash")
	v.SetDefault("oracle.request_timeout", 60*time.Second)
	v.SetDefault("oracle.rps", 1.0)
	v.SetDefault("oracle.burst", 2)

	v.SetDefault("search.shopping_endpoint", "https://google.serper.dev/shopping")
	v.SetDefault("search.search_endpoint", "https://google.serper.dev/search")
	v.SetDefault("search.timeout", 10*time.Second)
	v.SetDefault("search.max_results", 25)
	v.SetDefault("search.sites", []string{"flipkart.com", "amazon.in", "myntra.com"})
	v.SetDefault("search.country", "in")
	v.SetDefault("search.language", "en")

	v.SetDefault("optimizer.max_iterations", 3)
	v.SetDefault("optimizer.max_scrolls", 15)
	v.SetDefault("optimizer.stock_reveal_scrolls", 5)
	v.SetDefault("optimizer.iteration_settle", 3*time.Second)
	v.SetDefault("optimizer.tap_settle", 4*time.Second)
	v.SetDefault("optimizer.scroll_settle", 800*time.Millisecond)
	v.SetDefault("optimizer.reload_settle", 5*time.Second)
	v.SetDefault("optimizer.initial_load_wait", 8*time.Second)

	v.SetDefault("cart.fallback_scrolls", 3)
	v.SetDefault("cart.fallback_tap_x", 540)
	v.SetDefault("cart.fallback_tap_y", 1900)
}

// Load unmarshals the viper state into a Config. API keys fall back to
// the bare environment variables the upstream services document, so the
// tool works without any config file at all.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.Oracle.APIKey == "" {
		cfg.Oracle.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.Search.APIKey == "" {
		cfg.Search.APIKey = os.Getenv("SERPER_API_KEY")
	}
	return cfg, nil
}
