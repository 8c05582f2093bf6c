package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// configEnvVar overrides the default config file path, read by
// GetConfigPath/LoadDefaultConfig.
const configEnvVar = "GRAFT_CONFIG"

// Config is the CLI's persisted, JSON-backed settings.
type Config struct {
	LogLevel string `json:"log_level"`
	LogFile  string `json:"log_file"`
	Quiet    bool   `json:"quiet"`
	Verbose  bool   `json:"verbose"`

	BlockSize         int    `json:"block_size"`
	DefaultCompressor string `json:"default_compressor"`
	CompressionLevel  int    `json:"compression_level"`
	BackupDirName     string `json:"backup_dir_name"`
}

// NewConfig returns the built-in defaults.
func NewConfig() *Config {
	return &Config{
		LogLevel:          "info",
		LogFile:           "",
		Quiet:             false,
		Verbose:           false,
		BlockSize:         4096,
		DefaultCompressor: "gzip",
		CompressionLevel:  6,
		BackupDirName:     ".patch-backup",
	}
}

// LoadFromFile reads and validates a config from filename.
func (c *Config) LoadFromFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return c.Validate()
}

// SaveToFile writes the config as indented JSON to filename, creating its
// parent directory if necessary.
func (c *Config) SaveToFile(filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks that every field holds an accepted value.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.LogLevel)
	}

	switch c.DefaultCompressor {
	case "none", "gzip", "lz4", "zstd":
	default:
		return fmt.Errorf("invalid compressor: %s", c.DefaultCompressor)
	}

	if c.BlockSize <= 0 {
		return fmt.Errorf("block size must be positive: %d", c.BlockSize)
	}
	if c.CompressionLevel < 0 || c.CompressionLevel > 9 {
		return fmt.Errorf("compression level must be 0-9: %d", c.CompressionLevel)
	}
	if c.BackupDirName == "" {
		return fmt.Errorf("backup dir name must not be empty")
	}
	return nil
}

// GetConfigPath returns GRAFT_CONFIG if set, otherwise ~/.graft/config.json.
func GetConfigPath() string {
	if p := os.Getenv(configEnvVar); p != "" {
		return p
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".graft.json"
	}
	return filepath.Join(homeDir, ".graft", "config.json")
}

// LoadDefaultConfig returns the defaults, overlaid with the config file at
// GetConfigPath if one exists there.
func LoadDefaultConfig() *Config {
	config := NewConfig()

	path := GetConfigPath()
	if _, err := os.Stat(path); err == nil {
		if err := config.LoadFromFile(path); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to load config, using defaults: %v\n", err)
		}
	}
	return config
}
