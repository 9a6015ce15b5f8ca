package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Paths    PathsConfig    `mapstructure:"paths"`
	Analysis AnalysisConfig `mapstructure:"analysis"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// PathsConfig contains path-related configuration
type PathsConfig struct {
	DataDir   string `mapstructure:"data_dir"`
	CacheFile string `mapstructure:"cache_file"`
	LogFile   string `mapstructure:"log_file"`
	IconsDir  string `mapstructure:"icons_dir"`
}

// AnalysisConfig tunes the classification pipeline
type AnalysisConfig struct {
	// MsiArchitecture is the architecture reported for bare .msi files,
	// whose summary stream the table reader does not expose
	MsiArchitecture string `mapstructure:"msi_architecture"`
	CacheReports    bool   `mapstructure:"cache_reports"`
}

// HTTPConfig tunes the App Installer document resolver
type HTTPConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	Color string `mapstructure:"color"`
}

// Load loads configuration from file and environment
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("toml")

	homeDir, err := os.UserHomeDir()
	if err == nil {
		viper.AddConfigPath(filepath.Join(homeDir, ".config", "pkgprobe"))
	}
	viper.AddConfigPath(".")

	setDefaults()

	// Environment variable overrides
	viper.SetEnvPrefix("PKGPROBE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// Config file not found - use defaults
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.Paths.DataDir = expandPath(cfg.Paths.DataDir)
	cfg.Paths.CacheFile = expandPath(cfg.Paths.CacheFile)
	cfg.Paths.LogFile = expandPath(cfg.Paths.LogFile)
	cfg.Paths.IconsDir = expandPath(cfg.Paths.IconsDir)

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	homeDir, err := os.UserHomeDir()
	if err != nil || homeDir == "" {
		homeDir = os.Getenv("HOME")
	}
	if homeDir == "" {
		homeDir = "."
	}
	dataDir := filepath.Join(homeDir, ".local", "share", "pkgprobe")

	viper.SetDefault("paths.data_dir", dataDir)
	viper.SetDefault("paths.cache_file", filepath.Join(dataDir, "reports.db"))
	viper.SetDefault("paths.log_file", filepath.Join(dataDir, "pkgprobe.log"))
	viper.SetDefault("paths.icons_dir", filepath.Join(dataDir, "icons"))

	viper.SetDefault("analysis.msi_architecture", "x64")
	viper.SetDefault("analysis.cache_reports", true)

	viper.SetDefault("http.timeout_seconds", 30)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.color", "auto")
}

// expandPath expands ~ and environment variables in paths
func expandPath(path string) string {
	if path == "" {
		return path
	}

	if len(path) > 0 && path[0] == '~' {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(homeDir, path[1:])
		}
	}

	path = os.ExpandEnv(path)

	return path
}
