package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	ProjectsDir   string `mapstructure:"projects_dir" yaml:"projects_dir"`
	DefaultFormat string `mapstructure:"default_format" yaml:"default_format"`
	SampleRows    int    `mapstructure:"sample_rows" yaml:"sample_rows"`
	ShowRemoved   bool   `mapstructure:"show_removed" yaml:"show_removed"`

	// Logging
	LogLevel    string `mapstructure:"log_level" yaml:"log_level"`
	LogEncoding string `mapstructure:"log_encoding" yaml:"log_encoding"`

	// HTTP surface
	ServeAddr   string `mapstructure:"serve_addr" yaml:"serve_addr"`
	MaxUploadMB int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`

	// Runner
	CacheMaxEntries int `mapstructure:"cache_max_entries" yaml:"cache_max_entries"`
	BatchWorkers    int `mapstructure:"batch_workers" yaml:"batch_workers"`
}

// Keys lists the settable configuration keys in display order.
var Keys = []string{
	"projects_dir", "default_format", "sample_rows", "show_removed",
	"log_level", "log_encoding", "serve_addr", "max_upload_mb",
	"cache_max_entries", "batch_workers",
}

// Dir returns ~/.edaloom.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".edaloom"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.edaloom/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	var path string
	if cfgFile != "" {
		path = cfgFile
	} else {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
// A .env file in the working directory or in ~/.edaloom seeds the
// environment without overriding variables that are already set.
func Load(cfgFile string) (*Global, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	loadDotEnv(".env", filepath.Join(dir, ".env"))

	v := viper.New()
	v.SetEnvPrefix("EDALOOM")
	v.AutomaticEnv()

	v.SetDefault("projects_dir", "")
	v.SetDefault("default_format", "md")
	v.SetDefault("sample_rows", 5)
	v.SetDefault("show_removed", false)
	v.SetDefault("log_level", "warn")
	v.SetDefault("log_encoding", "console")
	v.SetDefault("serve_addr", ":8080")
	v.SetDefault("max_upload_mb", 32)
	v.SetDefault("cache_max_entries", 128)
	v.SetDefault("batch_workers", 4)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		_ = os.MkdirAll(dir, 0o755)
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read; a present but broken file is still an error
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.ProjectsDir == "" {
		c.ProjectsDir = filepath.Join(dir, "projects")
	}
	return &c, nil
}

func loadDotEnv(paths ...string) {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		_ = godotenv.Load(p)
	}
}

// Set validates and assigns one key.
func (c *Global) Set(key, val string) error {
	switch key {
	case "projects_dir":
		c.ProjectsDir = val
	case "default_format":
		switch strings.ToLower(val) {
		case "md", "markdown":
			c.DefaultFormat = "md"
		case "json", "yaml", "html":
			c.DefaultFormat = strings.ToLower(val)
		default:
			return fmt.Errorf("invalid default_format: %s (use md, json, yaml or html)", val)
		}
	case "sample_rows":
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 {
			return fmt.Errorf("invalid int for sample_rows: %v", val)
		}
		c.SampleRows = i
	case "show_removed":
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("invalid bool for show_removed: %v", val)
		}
		c.ShowRemoved = b
	case "log_level":
		switch strings.ToLower(val) {
		case "debug", "info", "warn", "error":
			c.LogLevel = strings.ToLower(val)
		default:
			return fmt.Errorf("invalid log_level: %s (use debug, info, warn or error)", val)
		}
	case "log_encoding":
		if val != "console" && val != "json" {
			return fmt.Errorf("invalid log_encoding: %s (use console or json)", val)
		}
		c.LogEncoding = val
	case "serve_addr":
		c.ServeAddr = val
	case "max_upload_mb":
		i, err := strconv.Atoi(val)
		if err != nil || i <= 0 {
			return fmt.Errorf("invalid int for max_upload_mb: %v", val)
		}
		c.MaxUploadMB = i
	case "cache_max_entries":
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 {
			return fmt.Errorf("invalid int for cache_max_entries: %v", val)
		}
		c.CacheMaxEntries = i
	case "batch_workers":
		i, err := strconv.Atoi(val)
		if err != nil || i <= 0 {
			return fmt.Errorf("invalid int for batch_workers: %v", val)
		}
		c.BatchWorkers = i
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return nil
}

// Get renders one key for display.
func (c *Global) Get(key string) (string, bool) {
	switch key {
	case "projects_dir":
		return c.ProjectsDir, true
	case "default_format":
		return c.DefaultFormat, true
	case "sample_rows":
		return strconv.Itoa(c.SampleRows), true
	case "show_removed":
		return strconv.FormatBool(c.ShowRemoved), true
	case "log_level":
		return c.LogLevel, true
	case "log_encoding":
		return c.LogEncoding, true
	case "serve_addr":
		return c.ServeAddr, true
	case "max_upload_mb":
		return strconv.Itoa(c.MaxUploadMB), true
	case "cache_max_entries":
		return strconv.Itoa(c.CacheMaxEntries), true
	case "batch_workers":
		return strconv.Itoa(c.BatchWorkers), true
	default:
		return "", false
	}
}
