package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Analysis  AnalysisConfig  `mapstructure:"analysis"`
	Content   ContentConfig   `mapstructure:"content"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port"`
	Mode string     `mapstructure:"mode"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Path            string        `mapstructure:"path"`
	DSN             string        `mapstructure:"dsn"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

type ProvidersConfig struct {
	MockMode   bool             `mapstructure:"mock_mode"`
	Ahrefs     AhrefsConfig     `mapstructure:"ahrefs"`
	DataForSEO DataForSEOConfig `mapstructure:"dataforseo"`
}

type AhrefsConfig struct {
	APIKey        string `mapstructure:"api_key"`
	BaseURL       string `mapstructure:"base_url"`
	RatePerMinute int    `mapstructure:"rate_per_minute"`
}

type DataForSEOConfig struct {
	Username       string  `mapstructure:"username"`
	Password       string  `mapstructure:"password"`
	BaseURL        string  `mapstructure:"base_url"`
	RatePerMinute  int     `mapstructure:"rate_per_minute"`
	DailyBudgetUSD float64 `mapstructure:"daily_budget_usd"`
}

type SchedulerConfig struct {
	Workers       int           `mapstructure:"workers"`
	TickInterval  time.Duration `mapstructure:"tick_interval"`
	RetentionDays int           `mapstructure:"retention_days"`
	Window        WindowConfig  `mapstructure:"window"`
}

// WindowConfig describes when monitoring ticks are allowed to enqueue work.
type WindowConfig struct {
	Timezone  string `mapstructure:"timezone"`
	StartHour int    `mapstructure:"start_hour"`
	EndHour   int    `mapstructure:"end_hour"`
	Weekdays  []int  `mapstructure:"weekdays"` // time.Weekday values, 0=Sunday
}

type AnalysisConfig struct {
	MinDomainRating int `mapstructure:"min_domain_rating"`
	MaxPerStatus    int `mapstructure:"max_per_status"`
	FetchLimit      int `mapstructure:"fetch_limit"`
	SerpTopN        int `mapstructure:"serp_top_n"`
}

type ContentConfig struct {
	MaxURLs        int           `mapstructure:"max_urls"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	// Set config file path
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Enable environment variable override
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/linkdive.db")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("providers.mock_mode", true)
	v.SetDefault("providers.ahrefs.base_url", "https://api.ahrefs.com/v3")
	v.SetDefault("providers.ahrefs.rate_per_minute", 30)
	v.SetDefault("providers.dataforseo.base_url", "https://api.dataforseo.com/v3")
	v.SetDefault("providers.dataforseo.rate_per_minute", 30)
	v.SetDefault("providers.dataforseo.daily_budget_usd", 5.0)
	v.SetDefault("scheduler.workers", 3)
	v.SetDefault("scheduler.tick_interval", 15*time.Minute)
	v.SetDefault("scheduler.retention_days", 365)
	v.SetDefault("scheduler.window.timezone", "Europe/London")
	v.SetDefault("scheduler.window.start_hour", 7)
	v.SetDefault("scheduler.window.end_hour", 19)
	v.SetDefault("scheduler.window.weekdays", []int{1, 2, 3, 4, 5})
	v.SetDefault("analysis.min_domain_rating", 5)
	v.SetDefault("analysis.max_per_status", 100)
	v.SetDefault("analysis.fetch_limit", 50)
	v.SetDefault("analysis.serp_top_n", 10)
	v.SetDefault("content.max_urls", 20)
	v.SetDefault("content.request_timeout", 15*time.Second)

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind environment variables explicitly for sensitive data
	v.BindEnv("database.dsn", "DATABASE_DSN")
	v.BindEnv("database.driver", "DATABASE_DRIVER")
	v.BindEnv("providers.mock_mode", "ENABLE_MOCK_MODE")
	v.BindEnv("providers.ahrefs.api_key", "AHREFS_API_KEY")
	v.BindEnv("providers.ahrefs.base_url", "AHREFS_BASE_URL")
	v.BindEnv("providers.dataforseo.username", "DATAFORSEO_USERNAME")
	v.BindEnv("providers.dataforseo.password", "DATAFORSEO_PASSWORD")
	v.BindEnv("providers.dataforseo.base_url", "DATAFORSEO_BASE_URL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// DSNString returns the connection string for the configured driver.
func (c *DatabaseConfig) DSNString() string {
	if c.DSN != "" {
		return c.DSN
	}
	return c.Path
}
