package logger

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds logging configuration
type Config struct {
	Level          string `yaml:"level"`
	ConsoleEnabled bool   `yaml:"console_enabled"`
	ConsoleFormat  string `yaml:"console_format"`
	FileEnabled    bool   `yaml:"file_enabled"`
	FilePath       string `yaml:"file_path"`
	FileFormat     string `yaml:"file_format"`
	FileMaxSizeMB  int    `yaml:"file_max_size_mb"`
	FileMaxBackups int    `yaml:"file_max_backups"`
	FileMaxAgeDays int    `yaml:"file_max_age_days"`
	FileCompress   bool   `yaml:"file_compress"`
}

// fileConfig mirrors Config with pointer booleans so that keys missing from
// the YAML keep their defaults
type fileConfig struct {
	Level          string `yaml:"level"`
	ConsoleEnabled *bool  `yaml:"console_enabled"`
	ConsoleFormat  string `yaml:"console_format"`
	FileEnabled    *bool  `yaml:"file_enabled"`
	FilePath       string `yaml:"file_path"`
	FileFormat     string `yaml:"file_format"`
	FileMaxSizeMB  int    `yaml:"file_max_size_mb"`
	FileMaxBackups int    `yaml:"file_max_backups"`
	FileMaxAgeDays int    `yaml:"file_max_age_days"`
	FileCompress   *bool  `yaml:"file_compress"`
}

// LoggingConfig wraps the logging block of a tilewave config file
type LoggingConfig struct {
	Logging fileConfig `yaml:"logging"`
}

// DefaultConfig returns console-only text logging at INFO
func DefaultConfig() Config {
	return Config{
		Level:          "INFO",
		ConsoleEnabled: true,
		ConsoleFormat:  "text",
		FileEnabled:    false,
		FilePath:       "logs/tilewave.log",
		FileFormat:     "text",
		FileMaxSizeMB:  10,
		FileMaxBackups: 5,
		FileMaxAgeDays: 30,
	}
}

// LoadConfig loads logging configuration from a YAML file
// and applies environment variable overrides
func LoadConfig(configPath string) (Config, error) {
	config := DefaultConfig()

	// A missing or unparsable file leaves the defaults in place
	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			var lc LoggingConfig
			if err := yaml.Unmarshal(data, &lc); err == nil {
				config.merge(lc.Logging)
			}
		}
	}

	applyEnv(&config)
	return config, nil
}

func (c *Config) merge(f fileConfig) {
	if f.Level != "" {
		c.Level = f.Level
	}
	if f.ConsoleEnabled != nil {
		c.ConsoleEnabled = *f.ConsoleEnabled
	}
	if f.ConsoleFormat != "" {
		c.ConsoleFormat = f.ConsoleFormat
	}
	if f.FileEnabled != nil {
		c.FileEnabled = *f.FileEnabled
	}
	if f.FilePath != "" {
		c.FilePath = f.FilePath
	}
	if f.FileFormat != "" {
		c.FileFormat = f.FileFormat
	}
	if f.FileMaxSizeMB > 0 {
		c.FileMaxSizeMB = f.FileMaxSizeMB
	}
	if f.FileMaxBackups > 0 {
		c.FileMaxBackups = f.FileMaxBackups
	}
	if f.FileMaxAgeDays > 0 {
		c.FileMaxAgeDays = f.FileMaxAgeDays
	}
	if f.FileCompress != nil {
		c.FileCompress = *f.FileCompress
	}
}

func applyEnv(c *Config) {
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.Level = logLevel
	}

	if consoleFormat := os.Getenv("LOG_CONSOLE_FORMAT"); consoleFormat != "" {
		c.ConsoleFormat = consoleFormat
	}

	if fileEnabled := os.Getenv("LOG_FILE_ENABLED"); fileEnabled != "" {
		if enabled, err := strconv.ParseBool(fileEnabled); err == nil {
			c.FileEnabled = enabled
		}
	}

	if filePath := os.Getenv("LOG_FILE_PATH"); filePath != "" {
		c.FilePath = filePath
	}
}
