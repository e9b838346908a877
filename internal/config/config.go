package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Civitai   CivitaiConfig   `mapstructure:"civitai"`
	Data      DataConfig      `mapstructure:"data"`
	State     StateConfig     `mapstructure:"state"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Viewer    ViewerConfig    `mapstructure:"viewer"`
	Histogram HistogramConfig `mapstructure:"histogram"`
	Log       LogConfig       `mapstructure:"log"`
}

// CivitaiConfig holds catalog API configuration
type CivitaiConfig struct {
	BaseURL                string   `mapstructure:"base_url"`
	Timeout                int      `mapstructure:"timeout"`
	MaxRetries             int      `mapstructure:"max_retries"`
	MaxRequestsPerSecond   int      `mapstructure:"max_requests_per_second"`
	MaxConsecutiveFailures int      `mapstructure:"max_consecutive_failures"`
	Proxies                []string `mapstructure:"proxies"`
}

// DataConfig holds the locations of harvested pages and the selection file
type DataConfig struct {
	Dir          string `mapstructure:"dir"`
	PageGlob     string `mapstructure:"page_glob"`
	SelectedDir  string `mapstructure:"selected_dir"`
	SelectedFile string `mapstructure:"selected_file"`
}

// State backends
const (
	StateBackendNone  = "none"
	StateBackendFile  = "file"
	StateBackendRedis = "redis"
)

// StateConfig selects where resumable cursors are kept: none, file or redis
type StateConfig struct {
	Backend string `mapstructure:"backend"`
	File    string `mapstructure:"file"`
}

// RedisConfig holds Redis connection details
type RedisConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Password  string `mapstructure:"password"`
	Database  int    `mapstructure:"database"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// DatabaseConfig holds the Postgres connection used by export
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

// ViewerConfig holds curator display settings
type ViewerConfig struct {
	DisplayHeight int   `mapstructure:"display_height"`
	ImageTimeout  int   `mapstructure:"image_timeout"`
	CacheMaxCost  int64 `mapstructure:"cache_max_cost"`
	PromptLength  int   `mapstructure:"prompt_length"`
}

type HistogramConfig struct {
	Bins  int `mapstructure:"bins"`
	Width int `mapstructure:"width"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// SelectedPath is the full path of the selection file.
func (d DataConfig) SelectedPath() string {
	return filepath.Join(d.SelectedDir, d.SelectedFile)
}

// DSN builds the pgx connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Password, d.Name)
}

// Load loads configuration from an optional YAML file with environment
// variable overrides. An empty path searches for config.yaml in the current
// directory; a missing file there is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) validate() error {
	switch c.State.Backend {
	case StateBackendNone, StateBackendFile, StateBackendRedis:
	default:
		return fmt.Errorf("unknown state backend %q (want none, file or redis)", c.State.Backend)
	}
	if c.Civitai.MaxRequestsPerSecond <= 0 {
		return fmt.Errorf("civitai.max_requests_per_second must be positive")
	}
	if c.Viewer.DisplayHeight <= 0 {
		return fmt.Errorf("viewer.display_height must be positive")
	}
	if c.Histogram.Bins <= 0 {
		return fmt.Errorf("histogram.bins must be positive")
	}
	if c.Histogram.Width <= 0 {
		return fmt.Errorf("histogram.width must be positive")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("civitai.base_url", "https://civitai.com/api/v1/images")
	v.SetDefault("civitai.timeout", 30)
	v.SetDefault("civitai.max_retries", 3)
	v.SetDefault("civitai.max_requests_per_second", 2)
	v.SetDefault("civitai.max_consecutive_failures", 3)
	v.SetDefault("civitai.proxies", []string{})

	v.SetDefault("data.dir", "./datas")
	v.SetDefault("data.page_glob", "civitai_datas_*.json")
	v.SetDefault("data.selected_dir", "./datas/selected")
	v.SetDefault("data.selected_file", "selected_datas.json")

	v.SetDefault("state.backend", StateBackendNone)
	v.SetDefault("state.file", "./datas/.cursor_state.json")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.database", 0)
	v.SetDefault("redis.key_prefix", "civitai:progress:cursor:")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "civitai")
	v.SetDefault("database.user", "civitai_user")
	v.SetDefault("database.password", "civitai_pass")

	v.SetDefault("viewer.display_height", 40)
	v.SetDefault("viewer.image_timeout", 10)
	v.SetDefault("viewer.cache_max_cost", 256<<20)
	v.SetDefault("viewer.prompt_length", 100)

	v.SetDefault("histogram.bins", 20)
	v.SetDefault("histogram.width", 100)

	v.SetDefault("log.level", "info")
}
