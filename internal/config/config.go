package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvPrefix      = "PACKETS"
	ConfigName     = "packets"
	DefaultDBName  = "packets.db"
	DefaultListen  = "127.0.0.1:7071"
	DefaultTimeout = 30 * time.Second
	DefaultHistory = 200
)

type Config struct {
	DataDir            string        `mapstructure:"data_dir"`
	DBPath             string        `mapstructure:"db_path"`
	ListenAddr         string        `mapstructure:"listen_addr"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout"`
	ProxyURL           string        `mapstructure:"proxy_url"`
	InsecureSkipVerify bool          `mapstructure:"insecure_skip_verify"`
	LogLevel           string        `mapstructure:"log_level"`
	LogFormat          string        `mapstructure:"log_format"`
	HistoryLimit       int           `mapstructure:"history_limit"`
}

// DefaultDataDir is ~/.packets, or the working directory when there is no home.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".packets"
	}
	return filepath.Join(home, ".packets")
}

// Load reads configuration from, in increasing priority: defaults, the config
// file (cfgFile, or packets.yaml in the working or data directory), .env files
// and PACKETS_* environment variables.
func Load(cfgFile string, envFiles ...string) (*Config, error) {
	if err := loadDotenv(envFiles...); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetDefault("data_dir", DefaultDataDir())
	v.SetDefault("db_path", "")
	v.SetDefault("listen_addr", DefaultListen)
	v.SetDefault("request_timeout", DefaultTimeout)
	v.SetDefault("proxy_url", "")
	v.SetDefault("insecure_skip_verify", false)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("history_limit", DefaultHistory)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(ConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(v.GetString("data_dir"))
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(cfg.DataDir, DefaultDBName)
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultTimeout
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultHistory
	}
	return &cfg, nil
}

// loadDotenv never overrides variables already present in the environment.
// A missing file is not an error.
func loadDotenv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// EnsureDataDir creates the directory holding the database file.
func (c *Config) EnsureDataDir() error {
	if err := os.MkdirAll(filepath.Dir(c.DBPath), 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", filepath.Dir(c.DBPath), err)
	}
	return nil
}
