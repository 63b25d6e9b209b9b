// Package config loads the tilewave YAML configuration file.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lawnchairsociety/tilewave/internal/store"
)

// Config is the root of a tilewave config file. The logging block of the
// same file is read by the logger package.
type Config struct {
	Solver SolverConfig `yaml:"solver"`
	Server ServerConfig `yaml:"server"`
	Store  StoreConfig  `yaml:"store"`
	Render RenderConfig `yaml:"render"`
}

// SolverConfig holds the parameters of a generation run.
type SolverConfig struct {
	// Sample is the name of a sample in the sample library.
	Sample string `yaml:"sample"`

	// SamplesFile is an optional YAML sample library merged over the built-ins.
	SamplesFile string `yaml:"samples_file"`

	TileWidth    int `yaml:"tile_width"`
	TileHeight   int `yaml:"tile_height"`
	OutputWidth  int `yaml:"output_width"`
	OutputHeight int `yaml:"output_height"`

	// Seed drives cell selection and collapse. 0 means pick one from the clock.
	Seed int64 `yaml:"seed"`

	// MaxSteps bounds a headless run. 0 means run until complete.
	MaxSteps int `yaml:"max_steps"`

	// MaxRetries is how many fresh restarts a headless run may make after a
	// contradiction.
	MaxRetries int `yaml:"max_retries"`
}

// ServerConfig holds settings for the interactive server.
type ServerConfig struct {
	Address string `yaml:"address"`

	// TelnetAddress, when set, also accepts line-based TCP clients there.
	TelnetAddress string `yaml:"telnet_address"`

	WebSocket   WebSocketConfig   `yaml:"websocket"`
	Connections ConnectionsConfig `yaml:"connections"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit"`

	// MaxRunSteps caps the N of a single "run N" command.
	MaxRunSteps int `yaml:"max_run_steps"`
}

// RateLimitConfig holds lockout settings for clients that keep sending
// commands the server cannot parse.
type RateLimitConfig struct {
	// MaxInvalid is the number of invalid commands before lockout.
	MaxInvalid int `yaml:"max_invalid"`

	// LockoutSeconds is the initial lockout duration in seconds.
	LockoutSeconds int `yaml:"lockout_seconds"`

	// MaxLockoutSeconds caps the doubling lockout.
	MaxLockoutSeconds int `yaml:"max_lockout_seconds"`
}

// ConnectionsConfig holds connection limit settings.
type ConnectionsConfig struct {
	// MaxPerIP is the maximum concurrent sessions from a single IP address.
	// 0 means unlimited.
	MaxPerIP int `yaml:"max_per_ip"`

	// MaxTotal is the maximum total concurrent sessions. 0 means unlimited.
	MaxTotal int `yaml:"max_total"`
}

// WebSocketConfig holds WebSocket-specific settings.
type WebSocketConfig struct {
	// AllowedOrigins is a list of origins allowed to connect via WebSocket.
	// Empty list enforces same-origin policy.
	// Use "*" to allow all origins.
	AllowedOrigins []string `yaml:"allowed_origins"`

	// MaxMessageSize is the maximum WebSocket message size in bytes.
	MaxMessageSize int64 `yaml:"max_message_size"`
}

// StoreConfig selects where session snapshots are recorded. An empty driver
// disables recording.
type StoreConfig struct {
	Driver     string         `yaml:"driver"`
	SQLitePath string         `yaml:"sqlite_path"`
	Postgres   PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"sslmode"`
	URL             string        `yaml:"url"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// Enabled reports whether snapshots should be recorded at all.
func (s StoreConfig) Enabled() bool {
	return s.Driver != ""
}

// StoreOptions converts the store block to the store package's Config.
func (s StoreConfig) StoreOptions() store.Config {
	return store.Config{
		Driver:     s.Driver,
		SQLitePath: s.SQLitePath,
		Postgres: store.PostgresConfig{
			Host:            s.Postgres.Host,
			Port:            s.Postgres.Port,
			User:            s.Postgres.User,
			Password:        s.Postgres.Password,
			Database:        s.Postgres.Database,
			SSLMode:         s.Postgres.SSLMode,
			URL:             s.Postgres.URL,
			MaxOpenConns:    s.Postgres.MaxOpenConns,
			MaxIdleConns:    s.Postgres.MaxIdleConns,
			ConnMaxLifetime: s.Postgres.ConnMaxLifetime,
		},
	}
}

// RenderConfig controls PNG output.
type RenderConfig struct {
	// CellPixels is the on-screen size of one tile pixel.
	CellPixels int `yaml:"cell_px"`

	// Border outlines collapsed cells.
	Border bool `yaml:"border"`
}

// DefaultConfig returns the playground defaults.
func DefaultConfig() *Config {
	return &Config{
		Solver: SolverConfig{
			Sample:       "crossroads",
			TileWidth:    2,
			TileHeight:   2,
			OutputWidth:  25,
			OutputHeight: 15,
			MaxRetries:   10,
		},
		Server: ServerConfig{
			Address: ":4080",
			WebSocket: WebSocketConfig{
				AllowedOrigins: []string{}, // Same-origin only by default
				MaxMessageSize: 4096,
			},
			Connections: ConnectionsConfig{
				MaxPerIP: 3,
				MaxTotal: 100,
			},
			RateLimit: RateLimitConfig{
				MaxInvalid:        10,
				LockoutSeconds:    30,
				MaxLockoutSeconds: 300,
			},
			MaxRunSteps: 1000,
		},
		Store: StoreConfig{
			Driver:     "",
			SQLitePath: "data/tilewave.db",
			Postgres: PostgresConfig{
				Host:            "localhost",
				Port:            5432,
				SSLMode:         "disable",
				MaxOpenConns:    25,
				MaxIdleConns:    5,
				ConnMaxLifetime: 5 * time.Minute,
			},
		},
		Render: RenderConfig{
			CellPixels: 8,
			Border:     true,
		},
	}
}

// LoadConfig loads configuration from a YAML file.
// A missing file yields the defaults; a parse error yields defaults and the error.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return config, err
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return DefaultConfig(), fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	return config, nil
}

// Validate checks the values a run cannot start without.
func (c *Config) Validate() error {
	s := c.Solver
	if s.TileWidth < 1 || s.TileHeight < 1 {
		return fmt.Errorf("solver: tile size %dx%d must be at least 1x1", s.TileWidth, s.TileHeight)
	}
	if s.OutputWidth < 1 || s.OutputHeight < 1 {
		return fmt.Errorf("solver: output size %dx%d must be at least 1x1", s.OutputWidth, s.OutputHeight)
	}
	if s.MaxSteps < 0 || s.MaxRetries < 0 {
		return fmt.Errorf("solver: max_steps and max_retries must not be negative")
	}
	switch c.Store.Driver {
	case "", "sqlite", "postgres":
	default:
		return fmt.Errorf("store: unknown driver %q", c.Store.Driver)
	}
	if c.Render.CellPixels < 1 {
		return fmt.Errorf("render: cell_px must be positive")
	}
	return nil
}

// IsOriginAllowed checks if the given origin is allowed based on the config.
// Returns true if:
// - AllowedOrigins contains "*" (allow all)
// - AllowedOrigins contains the exact origin
// - AllowedOrigins is empty and origin matches the request host (same-origin)
func (c *WebSocketConfig) IsOriginAllowed(origin, requestHost string) bool {
	if len(c.AllowedOrigins) == 0 {
		return isSameOrigin(origin, requestHost)
	}

	for _, allowed := range c.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}

	return false
}

// isSameOrigin checks if the origin matches the request host (same-origin policy).
func isSameOrigin(origin, requestHost string) bool {
	if origin == "" {
		return true // No origin header means same-origin (e.g., non-browser client)
	}

	// "http://localhost:3000" -> "localhost:3000"
	originHost := origin
	if idx := strings.Index(origin, "://"); idx != -1 {
		originHost = origin[idx+3:]
	}
	originHost = strings.TrimSuffix(originHost, "/")

	return originHost == requestHost
}
